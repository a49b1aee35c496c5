package logs

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func testSessionContext() SessionContext {
	sc := NewSessionContext("shop", BackendCompose, "main")
	sc.now = func() time.Time {
		return time.Date(2025, 12, 30, 3, 30, 48, 866_000_000, time.UTC)
	}
	return sc
}

func TestStartEvent(t *testing.T) {
	sc := testSessionContext()
	ev := sc.StartEvent(Options{
		Services: []string{"api", "worker"},
		Follow:   true,
		Since:    time.Date(2025, 12, 30, 3, 0, 0, 0, time.UTC),
	})

	if ev.Type != EventStart {
		t.Errorf("unexpected type: %s", ev.Type)
	}
	if ev.Project != "shop" || ev.Backend != BackendCompose || ev.Branch != "main" {
		t.Errorf("session context not mirrored: %+v", ev)
	}
	if ev.Session == "" {
		t.Error("expected a session id")
	}
	if len(ev.Services) != 2 {
		t.Errorf("unexpected services: %v", ev.Services)
	}
	if ev.Follow == nil || !*ev.Follow {
		t.Error("expected follow=true")
	}
	if ev.Since != "2025-12-30T03:00:00Z" {
		t.Errorf("unexpected since: %s", ev.Since)
	}
	if ev.Until != "" {
		t.Errorf("expected empty until, got %s", ev.Until)
	}
}

func TestLogEvent_PrefersEntryTimestamp(t *testing.T) {
	sc := testSessionContext()

	ev := sc.LogEvent(Entry{
		Source:    BackendCompose,
		Message:   "hello",
		Raw:       "hello",
		Timestamp: "2020-01-01T00:00:00.000Z",
	})
	if ev.TS != "2020-01-01T00:00:00.000Z" {
		t.Errorf("log event should mirror entry timestamp, got %s", ev.TS)
	}

	ev = sc.LogEvent(Entry{Source: BackendCompose, Message: "hello", Raw: "hello"})
	if ev.TS != "2025-12-30T03:30:48.866Z" {
		t.Errorf("expected wall-clock fallback, got %s", ev.TS)
	}
}

func TestSessionEvents_ShareSessionID(t *testing.T) {
	sc := testSessionContext()
	events := []Event{
		sc.StartEvent(Options{}),
		sc.LogEvent(Entry{Message: "x", Raw: "x"}),
		sc.HeartbeatEvent(),
		sc.ErrorEvent("boom"),
		sc.EndEvent(ReasonError),
	}

	for _, ev := range events {
		if ev.Session != sc.Session {
			t.Errorf("%s event lost the session id", ev.Type)
		}
		if ev.Project != "shop" || ev.Backend != BackendCompose || ev.Branch != "main" {
			t.Errorf("%s event lost session context", ev.Type)
		}
	}

	if events[3].Message != "boom" {
		t.Errorf("unexpected error message: %q", events[3].Message)
	}
	if events[4].Reason != ReasonError {
		t.Errorf("unexpected end reason: %q", events[4].Reason)
	}
}

func TestEmitter_NDJSON(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewEmitter(&buf)
	sc := testSessionContext()

	events := []Event{
		sc.StartEvent(Options{Follow: true}),
		sc.LogEvent(Entry{Source: BackendCompose, Message: "line with\nnewline", Raw: "x"}),
		sc.EndEvent(ReasonEOF),
	}
	for _, ev := range events {
		if err := emitter.Emit(ev); err != nil {
			t.Fatalf("emit failed: %v", err)
		}
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 NDJSON lines, got %d: %q", len(lines), buf.String())
	}

	for i, line := range lines {
		var decoded Event
		if err := json.Unmarshal([]byte(line), &decoded); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", i, err)
		}
	}

	var logEv Event
	_ = json.Unmarshal([]byte(lines[1]), &logEv)
	if logEv.Type != EventLog || logEv.Entry == nil || logEv.Entry.Message != "line with\nnewline" {
		t.Errorf("log event did not round-trip: %+v", logEv)
	}
}

func TestExitReason(t *testing.T) {
	if ExitReason(2) != "exit:2" {
		t.Errorf("unexpected reason: %s", ExitReason(2))
	}
}
