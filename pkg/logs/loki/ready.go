package loki

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// DefaultReadyTimeout bounds the readiness probe. Overridable through
// HACK_LOKI_READY_TIMEOUT_MS, resolved by the caller and injected here
// so the probe carries no package-level state.
const DefaultReadyTimeout = 800 * time.Millisecond

// Ready probes the Loki /ready endpoint with a short timeout. It
// reports reachability only; a false result means the caller should
// fall back to the compose backend unless loki was explicitly
// requested.
func Ready(ctx context.Context, endpoint string, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = DefaultReadyTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimRight(endpoint, "/")+"/ready", nil)
	if err != nil {
		return false
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}
