package compose

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"

	"golang.org/x/sync/errgroup"

	hackerrors "github.com/hack-cli/hack/pkg/errors"
	"github.com/hack-cli/hack/pkg/logs"
)

func init() {
	logs.Register(logs.BackendCompose, func(opts logs.Options) (logs.Source, error) {
		return New(opts)
	})
}

// Scanner buffers sized for long single-line JSON records.
const (
	scannerInitial = 64 * 1024
	scannerMax     = 1024 * 1024
)

// Source streams logs by spawning the docker compose subprocess and
// draining its multiplexed output.
type Source struct {
	opts logs.Options
}

// New creates a compose log source. The compose file reference is
// required; everything else is optional scoping.
func New(opts logs.Options) (*Source, error) {
	if opts.ComposeFile == "" {
		return nil, hackerrors.New(hackerrors.ErrCodeValidation, "compose log source requires a compose file")
	}
	return &Source{opts: opts}, nil
}

// buildArgs assembles the docker CLI argument list for one session.
func buildArgs(opts logs.Options) []string {
	args := []string{"compose", "-f", opts.ComposeFile}
	if opts.Project != "" {
		args = append(args, "-p", opts.Project)
	}
	for _, profile := range opts.Profiles {
		args = append(args, "--profile", profile)
	}
	args = append(args, "logs")
	if opts.Follow {
		args = append(args, "-f")
	}
	if opts.Tail > 0 {
		args = append(args, "--tail", strconv.Itoa(opts.Tail))
	}
	args = append(args, "--timestamps", "--no-color")
	if len(opts.Services) == 1 {
		args = append(args, opts.Services[0])
	}
	return args
}

// Open spawns the subprocess and starts draining stdout and stderr as
// independent line streams. Each pipe runs through its own grouper and
// normalizer; neither pipe ever blocks the other. The exit code is
// awaited after both drain tasks complete.
func (s *Source) Open(ctx context.Context) (*logs.Stream, error) {
	cmd := exec.CommandContext(ctx, "docker", buildArgs(s.opts)...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start docker compose: %w", err)
	}

	entries := make(chan logs.Entry, 100)
	errs := make(chan error, 1)

	stream, finish := logs.NewStream(entries, errs, func() {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
	})

	go func() {
		var group errgroup.Group
		group.Go(func() error {
			return s.drain(ctx, stdout, logs.PipeStdout, entries)
		})
		group.Go(func() error {
			return s.drain(ctx, stderr, logs.PipeStderr, entries)
		})
		_ = group.Wait()
		close(entries)

		reason, waitErr := waitReason(ctx.Err(), cmd.Wait())
		if waitErr != nil {
			errs <- waitErr
		}
		close(errs)
		finish(reason)
	}()

	return stream, nil
}

// waitReason maps the subprocess termination to a stream end reason.
// A canceled session kills the process, so its -1 exit code is reported
// as "closed" rather than surfaced; a process that could not be waited
// on at all is the only error case.
func waitReason(ctxErr, waitErr error) (string, error) {
	switch {
	case waitErr == nil:
		return logs.ReasonEOF, nil
	case ctxErr != nil:
		return logs.ReasonClosed, nil
	default:
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return logs.ExitReason(exitErr.ExitCode()), nil
		}
		return logs.ReasonError, hackerrors.SubprocessError("docker compose logs", waitErr)
	}
}

// drain reads one pipe line by line, reassembles grouped JSON records,
// and delivers canonical entries. Each pipe owns its own grouper; the
// buffer map is only ever touched by this goroutine.
func (s *Source) drain(ctx context.Context, r io.Reader, pipe logs.Pipe, entries chan<- logs.Entry) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, scannerInitial), scannerMax)
	grouper := NewGrouper()

	send := func(group Group) bool {
		select {
		case entries <- NormalizeGroup(group, pipe, s.opts.Project):
			return true
		case <-ctx.Done():
			return false
		}
	}

	for scanner.Scan() {
		for _, group := range grouper.Offer(scanner.Text()) {
			if !send(group) {
				return ctx.Err()
			}
		}
	}
	// Pipe closed: flush any still-open buffers so no record is dropped.
	for _, group := range grouper.Flush() {
		if !send(group) {
			return ctx.Err()
		}
	}
	return scanner.Err()
}
