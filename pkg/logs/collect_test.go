package logs

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// fakeStream builds a producer-driven stream for collector tests.
func fakeStream(produce func(entries chan<- Entry, errs chan<- error) string) *Stream {
	entries := make(chan Entry)
	errs := make(chan error, 1)
	stream, finish := NewStream(entries, errs, nil)
	go func() {
		reason := produce(entries, errs)
		close(entries)
		close(errs)
		finish(reason)
	}()
	return stream
}

func TestCollector_UpstreamEnd(t *testing.T) {
	stream := fakeStream(func(entries chan<- Entry, errs chan<- error) string {
		for i := 0; i < 3; i++ {
			entries <- Entry{Message: fmt.Sprintf("line %d", i), Raw: "x"}
		}
		return ReasonEOF
	})

	collector := Collector{}
	events, reason := collector.Collect(context.Background(), testSessionContext(), Options{}, stream)

	if reason != ReasonEOF {
		t.Errorf("expected eof, got %s", reason)
	}
	// start + 3 logs + end
	if len(events) != 5 {
		t.Fatalf("expected 5 events, got %d", len(events))
	}
	if events[0].Type != EventStart || events[4].Type != EventEnd {
		t.Errorf("missing start/end framing: %v %v", events[0].Type, events[4].Type)
	}
	if events[4].Reason != ReasonEOF {
		t.Errorf("unexpected end reason: %s", events[4].Reason)
	}
}

func TestCollector_MaxEventsWins(t *testing.T) {
	blocked := make(chan struct{})
	stream := fakeStream(func(entries chan<- Entry, errs chan<- error) string {
		for i := 0; i < 2; i++ {
			entries <- Entry{Message: fmt.Sprintf("line %d", i), Raw: "x"}
		}
		// The producer keeps going; the collector must stop on its own.
		select {
		case entries <- Entry{Message: "late", Raw: "x"}:
		case <-blocked:
		}
		return ReasonEOF
	})
	defer close(blocked)

	collector := Collector{MaxEvents: 2, MaxDuration: time.Minute}
	events, reason := collector.Collect(context.Background(), testSessionContext(), Options{}, stream)

	if reason != ReasonMaxEvents {
		t.Errorf("expected max_events to win, got %s", reason)
	}

	logCount := 0
	for _, ev := range events {
		if ev.Type == EventLog {
			logCount++
		}
	}
	if logCount != 2 {
		t.Errorf("expected exactly 2 log events, got %d", logCount)
	}
	if events[len(events)-1].Reason != ReasonMaxEvents {
		t.Errorf("end event should carry the stop reason, got %s", events[len(events)-1].Reason)
	}
}

func TestCollector_Timeout(t *testing.T) {
	release := make(chan struct{})
	stream := fakeStream(func(entries chan<- Entry, errs chan<- error) string {
		entries <- Entry{Message: "first", Raw: "x"}
		<-release
		return ReasonEOF
	})
	defer close(release)

	collector := Collector{MaxDuration: 20 * time.Millisecond}
	events, reason := collector.Collect(context.Background(), testSessionContext(), Options{}, stream)

	if reason != ReasonTimeout {
		t.Errorf("expected timeout, got %s", reason)
	}
	// The entry received before the stop signal is kept.
	found := false
	for _, ev := range events {
		if ev.Type == EventLog && ev.Entry.Message == "first" {
			found = true
		}
	}
	if !found {
		t.Error("entry received before the stop signal was dropped")
	}
}

func TestCollector_UpstreamError(t *testing.T) {
	stream := fakeStream(func(entries chan<- Entry, errs chan<- error) string {
		errs <- fmt.Errorf("connection refused")
		return ReasonError
	})

	collector := Collector{}
	events, reason := collector.Collect(context.Background(), testSessionContext(), Options{}, stream)

	if reason != ReasonError {
		t.Errorf("expected error reason, got %s", reason)
	}

	var sawError bool
	for _, ev := range events {
		if ev.Type == EventError && ev.Message == "connection refused" {
			sawError = true
		}
	}
	if !sawError {
		t.Error("expected an error event before end")
	}
	if events[len(events)-1].Type != EventEnd {
		t.Error("error must still be followed by end")
	}
}
