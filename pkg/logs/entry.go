// Package logs implements the hack log aggregation pipeline.
//
// Two backends — the docker compose subprocess and a Loki HTTP/WebSocket
// API — are normalized into one canonical Entry stream. Backend adapters
// register themselves via init() in their sub-packages; the CLI imports
// those packages as side effects to make them available at runtime.
package logs

// Pipe identifies which subprocess pipe a compose entry arrived on.
type Pipe string

const (
	PipeStdout Pipe = "stdout"
	PipeStderr Pipe = "stderr"
)

// Level is the normalized severity of a log entry.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Entry is the canonical log record produced by every backend.
//
// Message and Raw are always present. Every other field is derived
// best-effort from the transport line and may be absent without that
// being an error.
type Entry struct {
	// Source names the backend the entry was read from.
	Source  Backend `json:"source"`
	Message string  `json:"message"`

	// Raw is the original untouched transport line, kept for audit and
	// fallback search.
	Raw string `json:"raw"`

	Stream   Pipe   `json:"stream,omitempty"`
	Project  string `json:"project,omitempty"`
	Service  string `json:"service,omitempty"`
	Instance string `json:"instance,omitempty"`

	// Labels holds the full label set of a loki stream.
	Labels map[string]string `json:"labels,omitempty"`

	// Timestamp is ISO-8601. TimestampNS is the loki-native decimal
	// nanosecond string, kept pre-conversion.
	Timestamp   string `json:"timestamp,omitempty"`
	TimestampNS string `json:"timestamp_ns,omitempty"`

	Level Level `json:"level,omitempty"`

	// Fields carries arbitrary extra structured keys from the payload,
	// stringified. encoding/json renders map keys sorted, which keeps
	// output deterministic.
	Fields map[string]string `json:"fields,omitempty"`
}
