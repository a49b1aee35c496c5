package loki

import (
	"strconv"
	"time"

	"github.com/hack-cli/hack/pkg/logs"
)

// nsPerMilli converts a Loki nanosecond timestamp to milliseconds by
// integer division, truncating sub-millisecond precision.
const nsPerMilli = 1_000_000

// NormalizeEntry converts one Loki value pair (label set, nanosecond
// timestamp string, raw line) into a canonical entry.
//
// The nanosecond timestamp is kept verbatim under timestamp_ns and
// converted to ISO-8601 at millisecond precision; an unparsable
// timestamp simply omits the converted form, it is never an error.
// The project and service labels are promoted to top-level fields while
// the full label map is retained.
func NormalizeEntry(labels map[string]string, tsNs, line string) logs.Entry {
	entry := logs.Entry{
		Source:      logs.BackendLoki,
		Raw:         line,
		TimestampNS: tsNs,
	}

	if parsed, ok := logs.ParsePayload(line); ok {
		entry.Message = parsed.Message
		entry.Level = parsed.Level
		entry.Fields = parsed.Fields
	} else {
		entry.Message = line
	}

	if ns, err := strconv.ParseInt(tsNs, 10, 64); err == nil {
		entry.Timestamp = time.UnixMilli(ns / nsPerMilli).
			UTC().Format("2006-01-02T15:04:05.000Z07:00")
	}

	if len(labels) > 0 {
		// Copy so callers can't mutate the stream's label map.
		entry.Labels = make(map[string]string, len(labels))
		for k, v := range labels {
			entry.Labels[k] = v
		}
		entry.Project = labels["project"]
		entry.Service = labels["service"]
	}

	return entry
}
