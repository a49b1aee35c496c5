package logs

import (
	"context"
	"sync"
	"time"

	hackerrors "github.com/hack-cli/hack/pkg/errors"
)

// Options specifies one log session. A single options struct serves both
// backends so the CLI, TUI, and tool-calling consumers never branch on
// backend type.
type Options struct {
	Project  string
	Branch   string
	Services []string

	Follow bool
	Tail   int
	Since  time.Time
	Until  time.Time

	// Query is a raw selector that bypasses selector construction
	// entirely (loki only).
	Query string

	// Compose collaborator inputs.
	ComposeFile string
	Profiles    []string

	// Loki collaborator inputs.
	Endpoint string
}

// Source is a log backend. Open starts the backend and returns its live
// stream of canonical entries.
type Source interface {
	Open(ctx context.Context) (*Stream, error)
}

// Stream is a live sequence of canonical entries from one backend.
// Entries are delivered on the Entries channel. The Err channel receives
// any non-nil error that terminates the stream early. Both channels are
// closed when the stream ends; Wait then reports the termination reason.
type Stream struct {
	Entries <-chan Entry
	Err     <-chan error

	close func()

	done   chan struct{}
	once   sync.Once
	reason string
}

// NewStream creates a Stream backed by the provided channels and closer.
// The returned finish function records the termination reason and must be
// called exactly once by the producer when the stream ends; the first
// reason wins if it races with a caller-side stop.
func NewStream(entries <-chan Entry, errs <-chan error, closer func()) (*Stream, func(reason string)) {
	s := &Stream{
		Entries: entries,
		Err:     errs,
		close:   closer,
		done:    make(chan struct{}),
	}
	finish := func(reason string) {
		s.once.Do(func() {
			s.reason = reason
			close(s.done)
		})
	}
	return s, finish
}

// Close terminates the stream and releases its resources. Entries already
// delivered are unaffected; Close only prevents further entries.
func (s *Stream) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}

// Wait blocks until the stream has fully terminated and returns the
// termination reason (e.g. "eof", "exit:1", "closed", "error").
func (s *Stream) Wait() string {
	<-s.done
	return s.reason
}

// Factory creates a Source for the given session options.
type Factory func(opts Options) (Source, error)

// registry maps backend names to their factories. Backends register
// themselves via init() using Register().
var registry = map[Backend]Factory{}

// Register adds a Source factory under the given backend name.
func Register(backend Backend, factory Factory) {
	registry[backend] = factory
}

// NewSource creates a Source for the given backend. Returns an error if
// the backend is not registered.
func NewSource(backend Backend, opts Options) (Source, error) {
	factory, ok := registry[backend]
	if !ok {
		return nil, hackerrors.NotFoundError("log backend", string(backend))
	}
	return factory(opts)
}
