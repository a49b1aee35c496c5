package logs

// Backend names a log backend in configuration and on the wire.
type Backend string

const (
	BackendCompose Backend = "compose"
	BackendLoki    Backend = "loki"
)

// ShouldTryLoki decides whether the loki backend is worth probing for
// this invocation. --compose is a hard override; --loki is an explicit
// request; otherwise the configured default for the current mode
// (follow vs snapshot) decides.
func ShouldTryLoki(forceCompose, wantsLoki, follow bool, followBackend, snapshotBackend Backend) bool {
	if forceCompose {
		return false
	}
	if wantsLoki {
		return true
	}
	if follow {
		return followBackend == BackendLoki
	}
	return snapshotBackend == BackendLoki
}

// UseLoki makes the final backend choice once reachability is known.
// An explicit --loki wins even when the probe failed: an explicit
// request is allowed to fail loudly downstream rather than silently
// falling back to compose.
func UseLoki(forceCompose, wantsLoki, shouldTry, reachable bool) bool {
	if forceCompose {
		return false
	}
	if wantsLoki {
		return true
	}
	return shouldTry && reachable
}
