package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/hack-cli/hack/pkg/logs"
	"github.com/hack-cli/hack/pkg/logs/loki"
	"github.com/hack-cli/hack/pkg/project"
)

func newLogsCmd() *cobra.Command {
	var (
		jsonOut        bool
		forceLoki      bool
		forceCompose   bool
		noFollow       bool
		tail           int
		since          string
		until          string
		servicesCSV    string
		query          string
		showTimestamps bool
		noColor        bool
		maxEvents      int
		maxDuration    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View logs from the project's services",
		Long: `View and stream logs from the services of the current project.

Logs come from one of two backends: the docker compose subprocess or a
Loki log index. By default the backend is chosen from the project's
follow_backend / snapshot_backend configuration plus a live Loki
reachability probe; --loki and --compose force the choice.

Streaming:
  hack logs                         # Follow all services
  hack logs --services api,worker   # Follow two services
  hack logs --no-follow -n 50       # Last 50 lines, then exit

Machine output:
  hack logs --json                  # NDJSON event stream
  hack logs --json --max-events 200 # Bounded collection for tooling

Filtering:
  hack logs --since 5m              # Logs from the last 5 minutes
  hack logs --query '{service="api"}'  # Raw LogQL, bypasses scoping`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			if forceLoki && forceCompose {
				return fmt.Errorf("--loki and --compose are mutually exclusive")
			}

			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			proj, err := project.Load(cwd)
			if err != nil {
				return err
			}

			follow := !noFollow

			opts := logs.Options{
				Project:     proj.Name,
				Branch:      proj.Branch,
				Follow:      follow,
				Tail:        tail,
				Query:       query,
				ComposeFile: proj.ComposeFile,
				Profiles:    proj.Profiles,
				Endpoint:    proj.Loki.URL,
			}
			if servicesCSV != "" {
				for _, svc := range strings.Split(servicesCSV, ",") {
					if svc = strings.TrimSpace(svc); svc != "" {
						opts.Services = append(opts.Services, svc)
					}
				}
			}
			if since != "" {
				t, err := parseTimeFlag(since)
				if err != nil {
					return fmt.Errorf("invalid --since value %q: %w", since, err)
				}
				opts.Since = t
			}
			if until != "" {
				t, err := parseTimeFlag(until)
				if err != nil {
					return fmt.Errorf("invalid --until value %q: %w", until, err)
				}
				opts.Until = t
			}

			backend := resolveBackend(ctx, forceCompose, forceLoki, follow, proj)

			src, err := logs.NewSource(backend, opts)
			if err != nil {
				return err
			}
			sc := logs.NewSessionContext(proj.Name, backend, proj.Branch)

			if jsonOut {
				collector := logs.Collector{MaxEvents: maxEvents, MaxDuration: maxDuration}
				return runJSON(ctx, sc, opts, src, collector)
			}
			return runPretty(ctx, src, proj, backend, follow, logs.FormatOptions{
				ShowTimestamps: showTimestamps,
				NoColor:        noColor || !term.IsTerminal(int(os.Stdout.Fd())),
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the NDJSON event stream instead of pretty output")
	cmd.Flags().BoolVar(&forceLoki, "loki", false, "Force the loki backend")
	cmd.Flags().BoolVar(&forceCompose, "compose", false, "Force the compose backend")
	cmd.Flags().BoolVar(&noFollow, "no-follow", false, "Take a bounded snapshot instead of following")
	cmd.Flags().IntVarP(&tail, "tail", "n", 100, "Number of recent lines to show")
	cmd.Flags().StringVar(&since, "since", "", "Show logs since duration or timestamp (e.g., 5m, 1h, 2025-01-01T00:00:00Z)")
	cmd.Flags().StringVar(&until, "until", "", "Show logs until duration or timestamp")
	cmd.Flags().StringVar(&servicesCSV, "services", "", "Comma-separated service names to scope to")
	cmd.Flags().StringVar(&query, "query", "", "Raw LogQL selector (bypasses project/service scoping, loki only)")
	cmd.Flags().BoolVar(&showTimestamps, "timestamps", false, "Show timestamps")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	cmd.Flags().IntVar(&maxEvents, "max-events", 0, "Stop after this many log events (JSON mode)")
	cmd.Flags().DurationVar(&maxDuration, "max-duration", 0, "Stop after this much time (JSON mode)")

	return cmd
}

// resolveBackend picks the backend for this invocation: explicit flags
// win, then the configured default for the mode, gated on a live
// reachability probe. The probe only runs when its answer can change
// the outcome.
func resolveBackend(ctx context.Context, forceCompose, forceLoki, follow bool, proj *project.Config) logs.Backend {
	shouldTry := logs.ShouldTryLoki(forceCompose, forceLoki, follow,
		proj.Logs.FollowBackend, proj.Logs.SnapshotBackend)

	reachable := false
	if shouldTry && !forceLoki {
		timeout := time.Duration(viper.GetInt("loki_ready_timeout_ms")) * time.Millisecond
		reachable = loki.Ready(ctx, proj.Loki.URL, timeout)
	}

	if logs.UseLoki(forceCompose, forceLoki, shouldTry, reachable) {
		return logs.BackendLoki
	}
	return logs.BackendCompose
}

// runJSON emits the session as NDJSON events on stdout. Connectivity
// failures produce an error event, an end event with reason "error",
// and a non-zero exit.
func runJSON(ctx context.Context, sc logs.SessionContext, opts logs.Options, src logs.Source, collector logs.Collector) error {
	emitter := logs.NewEmitter(os.Stdout)

	stream, err := src.Open(ctx)
	if err != nil {
		_ = emitter.Emit(sc.ErrorEvent(err.Error()))
		_ = emitter.Emit(sc.EndEvent(logs.ReasonError))
		return err
	}
	defer stream.Close()

	if collector.MaxEvents > 0 || collector.MaxDuration > 0 {
		events, _ := collector.Collect(ctx, sc, opts, stream)
		var failure error
		for _, ev := range events {
			if ev.Type == logs.EventError {
				failure = fmt.Errorf("log stream failed: %s", ev.Message)
			}
			if err := emitter.Emit(ev); err != nil {
				return err
			}
		}
		return failure
	}

	if err := emitter.Emit(sc.StartEvent(opts)); err != nil {
		return err
	}

	var failure error
	entries := stream.Entries
	errs := stream.Err
	for entries != nil || errs != nil {
		select {
		case entry, ok := <-entries:
			if !ok {
				entries = nil
				continue
			}
			if err := emitter.Emit(sc.LogEvent(entry)); err != nil {
				return err
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			failure = err
			_ = emitter.Emit(sc.ErrorEvent(err.Error()))
		}
	}

	reason := stream.Wait()
	if err := emitter.Emit(sc.EndEvent(reason)); err != nil {
		return err
	}
	return failure
}

// runPretty renders the session as aligned, colored lines on stdout.
func runPretty(ctx context.Context, src logs.Source, proj *project.Config, backend logs.Backend, follow bool, opts logs.FormatOptions) error {
	stream, err := src.Open(ctx)
	if err != nil {
		return err
	}
	defer stream.Close()

	if follow {
		fmt.Fprintf(os.Stderr, "Streaming %s logs from project %q (Ctrl+C to stop)...\n", backend, proj.Name)
	}

	return logs.FormatStream(os.Stdout, stream, opts)
}

// parseTimeFlag parses a duration string (e.g., "5m", "1h") relative to
// now, or an RFC3339 timestamp.
func parseTimeFlag(s string) (time.Time, error) {
	// Try as a duration first
	d, err := time.ParseDuration(s)
	if err == nil {
		return time.Now().Add(-d), nil
	}

	// Try as RFC3339 timestamp
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("must be a duration (e.g., 5m, 1h) or RFC3339 timestamp")
}
