package logs

import (
	"context"
	"time"
)

// Collector drains a Stream into a bounded event list for consumers
// that need a finite answer from an unbounded tail, such as the
// tool-calling interface. Both bounds are optional.
type Collector struct {
	// MaxEvents stops collection after this many log events (0 = no cap).
	MaxEvents int

	// MaxDuration stops collection after this much wall time
	// (0 = no cap).
	MaxDuration time.Duration
}

// Collect consumes the stream until it ends or a bound trips, and
// returns the full event sequence (start, logs, optional error, end)
// plus the stop reason. Entries received before the stop signal are
// kept; the signal only prevents further entries. The first stop
// reason wins: a max_events stop is not overwritten by a later timeout
// or by the upstream termination reason.
func (c *Collector) Collect(ctx context.Context, sc SessionContext, opts Options, stream *Stream) ([]Event, string) {
	events := []Event{sc.StartEvent(opts)}

	var timerC <-chan time.Time
	if c.MaxDuration > 0 {
		timer := time.NewTimer(c.MaxDuration)
		defer timer.Stop()
		timerC = timer.C
	}

	stopReason := ""
	stop := func(reason string) {
		if stopReason == "" {
			stopReason = reason
			_ = stream.Close()
		}
	}

	logCount := 0
	entries := stream.Entries
	errs := stream.Err

loop:
	for entries != nil || errs != nil {
		select {
		case entry, ok := <-entries:
			if !ok {
				entries = nil
				continue
			}
			events = append(events, sc.LogEvent(entry))
			logCount++
			if c.MaxEvents > 0 && logCount >= c.MaxEvents {
				stop(ReasonMaxEvents)
				break loop
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			events = append(events, sc.ErrorEvent(err.Error()))
		case <-timerC:
			stop(ReasonTimeout)
			break loop
		case <-ctx.Done():
			stop(ReasonClosed)
			break loop
		}
	}

	// Let the producer run down; discard anything it was still holding.
	go func() {
		for range stream.Entries {
		}
	}()
	go func() {
		for range stream.Err {
		}
	}()

	// A local stop already knows its reason and must not be overwritten
	// by the upstream termination reason. Only wait on the producer when
	// it ended of its own accord.
	reason := stopReason
	if reason == "" {
		reason = stream.Wait()
	}

	events = append(events, sc.EndEvent(reason))
	return events, reason
}
