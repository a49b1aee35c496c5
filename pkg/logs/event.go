package logs

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType tags a stream envelope event.
type EventType string

const (
	EventStart     EventType = "start"
	EventLog       EventType = "log"
	EventHeartbeat EventType = "heartbeat"
	EventError     EventType = "error"
	EventEnd       EventType = "end"
)

// Termination reasons carried on end events.
const (
	ReasonEOF       = "eof"
	ReasonClosed    = "closed"
	ReasonError     = "error"
	ReasonTimeout   = "timeout"
	ReasonMaxEvents = "max_events"
)

// ExitReason formats the end reason for a subprocess that exited with a
// non-zero code.
func ExitReason(code int) string {
	return fmt.Sprintf("exit:%d", code)
}

// Event is the wire envelope wrapping canonical entries and session
// control events. One session is exactly one start, zero or more
// log/heartbeat events, and exactly one end (preceded by an error event
// on fatal failure). Project, backend, branch, and session id are
// repeated on every event so stateless consumers can demultiplex
// interleaved sessions.
type Event struct {
	Type    EventType `json:"type"`
	TS      string    `json:"ts"`
	Session string    `json:"session,omitempty"`
	Project string    `json:"project,omitempty"`
	Backend Backend   `json:"backend,omitempty"`
	Branch  string    `json:"branch,omitempty"`

	// Present on start only.
	Services []string `json:"services,omitempty"`
	Follow   *bool    `json:"follow,omitempty"`
	Since    string   `json:"since,omitempty"`
	Until    string   `json:"until,omitempty"`

	// Present on log only.
	Entry *Entry `json:"entry,omitempty"`

	// Present on error only.
	Message string `json:"message,omitempty"`

	// Present on end.
	Reason string `json:"reason,omitempty"`
}

// SessionContext carries the per-session fields stamped onto every event.
type SessionContext struct {
	Session string
	Project string
	Backend Backend
	Branch  string

	// now is injected for tests; defaults to time.Now.
	now func() time.Time
}

// NewSessionContext creates a session context with a fresh session id.
func NewSessionContext(project string, backend Backend, branch string) SessionContext {
	return SessionContext{
		Session: uuid.NewString(),
		Project: project,
		Backend: backend,
		Branch:  branch,
	}
}

func (sc SessionContext) timestamp() string {
	now := time.Now
	if sc.now != nil {
		now = sc.now
	}
	return now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

func (sc SessionContext) base(t EventType) Event {
	return Event{
		Type:    t,
		TS:      sc.timestamp(),
		Session: sc.Session,
		Project: sc.Project,
		Backend: sc.Backend,
		Branch:  sc.Branch,
	}
}

// StartEvent opens a session, recording the full query context.
func (sc SessionContext) StartEvent(opts Options) Event {
	ev := sc.base(EventStart)
	ev.Services = opts.Services
	follow := opts.Follow
	ev.Follow = &follow
	if !opts.Since.IsZero() {
		ev.Since = opts.Since.UTC().Format(time.RFC3339)
	}
	if !opts.Until.IsZero() {
		ev.Until = opts.Until.UTC().Format(time.RFC3339)
	}
	return ev
}

// LogEvent wraps one canonical entry. The event timestamp prefers the
// entry's own timestamp so ordering in storage and replay reflects
// source time, not arrival time.
func (sc SessionContext) LogEvent(entry Entry) Event {
	ev := sc.base(EventLog)
	if entry.Timestamp != "" {
		ev.TS = entry.Timestamp
	}
	ev.Entry = &entry
	return ev
}

// HeartbeatEvent is a reserved extension point for long idle tails.
// Neither backend currently emits it.
func (sc SessionContext) HeartbeatEvent() Event {
	return sc.base(EventHeartbeat)
}

// ErrorEvent reports a fatal connectivity failure. It is always followed
// by an end event.
func (sc SessionContext) ErrorEvent(message string) Event {
	ev := sc.base(EventError)
	ev.Message = message
	return ev
}

// EndEvent closes a session with a termination reason.
func (sc SessionContext) EndEvent(reason string) Event {
	ev := sc.base(EventEnd)
	ev.Reason = reason
	return ev
}

// Emitter serializes events as NDJSON: one complete JSON document per
// line, no event spanning multiple lines, no two events sharing a line.
type Emitter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewEmitter creates an Emitter writing to w.
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{w: w}
}

// Emit writes one event followed by a newline.
func (e *Emitter) Emit(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode stream event: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write stream event: %w", err)
	}
	return nil
}
