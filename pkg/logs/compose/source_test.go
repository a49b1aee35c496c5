package compose

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"testing"

	hackerrors "github.com/hack-cli/hack/pkg/errors"
	"github.com/hack-cli/hack/pkg/logs"
)

func TestNew_RequiresComposeFile(t *testing.T) {
	_, err := New(logs.Options{})
	if err == nil {
		t.Fatal("expected error without a compose file")
	}
	if !hackerrors.Is(err, hackerrors.ErrCodeValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestWaitReason(t *testing.T) {
	canceledCtx, cancel := context.WithCancel(context.Background())
	cancel()

	t.Run("clean exit", func(t *testing.T) {
		reason, err := waitReason(nil, nil)
		if reason != logs.ReasonEOF || err != nil {
			t.Errorf("expected eof with no error, got %s / %v", reason, err)
		}
	})

	t.Run("canceled session hides the kill exit code", func(t *testing.T) {
		reason, err := waitReason(canceledCtx.Err(), fmt.Errorf("signal: killed"))
		if reason != logs.ReasonClosed || err != nil {
			t.Errorf("expected closed with no error, got %s / %v", reason, err)
		}
	})

	t.Run("non-zero exit", func(t *testing.T) {
		waitErr := exec.Command("false").Run()
		if waitErr == nil {
			t.Skip("false did not fail")
		}
		reason, err := waitReason(nil, waitErr)
		if reason != logs.ExitReason(1) || err != nil {
			t.Errorf("expected exit:1 with no error, got %s / %v", reason, err)
		}
	})

	t.Run("wait failure", func(t *testing.T) {
		reason, err := waitReason(nil, fmt.Errorf("waitid: no child processes"))
		if reason != logs.ReasonError {
			t.Errorf("expected error reason, got %s", reason)
		}
		if !hackerrors.Is(err, hackerrors.ErrCodeSubprocess) {
			t.Errorf("expected subprocess error, got %v", err)
		}
	})
}

func TestBuildArgs_Follow(t *testing.T) {
	args := buildArgs(logs.Options{
		ComposeFile: "docker-compose.yaml",
		Project:     "shop",
		Profiles:    []string{"dev", "debug"},
		Follow:      true,
		Tail:        100,
	})

	want := "compose -f docker-compose.yaml -p shop --profile dev --profile debug logs -f --tail 100 --timestamps --no-color"
	if got := strings.Join(args, " "); got != want {
		t.Errorf("unexpected args:\nwant %q\ngot  %q", want, got)
	}
}

func TestBuildArgs_SnapshotWithService(t *testing.T) {
	args := buildArgs(logs.Options{
		ComposeFile: "compose.yaml",
		Tail:        50,
		Services:    []string{"api"},
	})

	want := "compose -f compose.yaml logs --tail 50 --timestamps --no-color api"
	if got := strings.Join(args, " "); got != want {
		t.Errorf("unexpected args:\nwant %q\ngot  %q", want, got)
	}
}

func TestBuildArgs_MultipleServicesNotScoped(t *testing.T) {
	// The subprocess only takes a single-service positional; multi-service
	// scoping happens at the loki backend or not at all.
	args := buildArgs(logs.Options{
		ComposeFile: "compose.yaml",
		Services:    []string{"api", "worker"},
	})

	joined := strings.Join(args, " ")
	if strings.Contains(joined, "api") || strings.Contains(joined, "worker") {
		t.Errorf("multiple services must not become positionals: %q", joined)
	}
}

func TestRegistration(t *testing.T) {
	// The init() function should have registered "compose"
	src, err := logs.NewSource(logs.BackendCompose, logs.Options{ComposeFile: "compose.yaml"})
	if err != nil {
		t.Fatalf("expected compose to be registered: %v", err)
	}
	if src == nil {
		t.Fatal("expected non-nil source")
	}
}
