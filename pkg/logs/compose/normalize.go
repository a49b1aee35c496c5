// Package compose implements the docker compose log backend.
//
// It is imported as a side effect to register the "compose" backend:
//
//	import _ "github.com/hack-cli/hack/pkg/logs/compose"
package compose

import (
	"regexp"
	"strings"

	"github.com/hack-cli/hack/pkg/logs"
)

// timestampPattern matches the RFC3339 timestamp docker compose prepends
// to each payload when --timestamps is passed.
var timestampPattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?Z)\s`)

// instancePattern matches the trailing replica suffix on a scaled
// container name (e.g. "api-2").
var instancePattern = regexp.MustCompile(`^(.+)-(\d+)$`)

// ParseLine converts one multiplexed compose log line of the form
// "<container> | <payload>" into a canonical entry.
//
// A line with no "|" separator is treated as pure payload with no
// service. Lines read from stderr are forced to level error regardless
// of any level embedded in the payload.
func ParseLine(line string, pipe logs.Pipe, projectName string) logs.Entry {
	label, payload, prefixed := splitPrefix(line)

	entry := logs.Entry{
		Source: logs.BackendCompose,
		Raw:    line,
		Stream: pipe,
	}
	if projectName != "" {
		entry.Project = projectName
	}
	if prefixed {
		entry.Service, entry.Instance = parseLabel(label, projectName)
	}

	ts, payload := stripTimestamp(payload)
	entry.Timestamp = ts

	applyPayload(&entry, payload, pipe)
	return entry
}

// NormalizeGroup converts a flushed grouper group into a canonical
// entry. Single-line groups go through ParseLine unchanged; multi-line
// groups take their prefix metadata from the first line and their
// payload from the reassembled JSON lines.
func NormalizeGroup(g Group, pipe logs.Pipe, projectName string) logs.Entry {
	if len(g.Lines) <= 1 {
		line := ""
		if len(g.Lines) == 1 {
			line = g.Lines[0]
		}
		return ParseLine(line, pipe, projectName)
	}

	entry := logs.Entry{
		Source: logs.BackendCompose,
		Raw:    strings.Join(g.Lines, "\n"),
		Stream: pipe,
	}
	if projectName != "" {
		entry.Project = projectName
	}

	label, payload, prefixed := splitPrefix(g.Lines[0])
	if prefixed {
		entry.Service, entry.Instance = parseLabel(label, projectName)
	}
	ts, _ := stripTimestamp(payload)
	entry.Timestamp = ts

	applyPayload(&entry, strings.Join(g.JSON, "\n"), pipe)
	return entry
}

// applyPayload runs payload normalization and fills message, level, and
// fields. Parse failure degrades to the raw payload text; it is never an
// error.
func applyPayload(entry *logs.Entry, payload string, pipe logs.Pipe) {
	if parsed, ok := logs.ParsePayload(payload); ok {
		entry.Message = parsed.Message
		entry.Level = parsed.Level
		entry.Fields = parsed.Fields
	} else {
		entry.Message = payload
	}
	if pipe == logs.PipeStderr {
		entry.Level = logs.LevelError
	}
}

// splitPrefix splits a multiplexed line at the first "|" into the
// container label and the payload. The reported bool is false when the
// line carries no separator and is therefore pure payload.
func splitPrefix(line string) (label, payload string, ok bool) {
	idx := strings.Index(line, "|")
	if idx < 0 {
		return "", line, false
	}
	label = strings.TrimSpace(line[:idx])
	payload = strings.TrimPrefix(line[idx+1:], " ")
	return label, payload, true
}

// parseLabel derives the service name and replica instance from a
// container label, stripping the "<project>-" prefix when present.
func parseLabel(label, projectName string) (service, instance string) {
	service = label
	if projectName != "" {
		service = strings.TrimPrefix(service, projectName+"-")
	}
	if m := instancePattern.FindStringSubmatch(service); m != nil {
		service = m[1]
		instance = m[2]
	}
	return service, instance
}

// stripTimestamp removes a leading RFC3339 timestamp plus one following
// space from the payload, returning the timestamp (or "") and the rest.
func stripTimestamp(payload string) (ts, rest string) {
	m := timestampPattern.FindStringSubmatch(payload)
	if m == nil {
		return "", payload
	}
	return m[1], payload[len(m[0]):]
}
