package compose

import (
	"encoding/json"
	"strings"
)

// Container log multiplexers emit one transport line per newline in the
// underlying process's stdout, so a pretty-printed JSON log record
// arrives as many lines. The Grouper re-joins them before normalization
// so level/message extraction sees one coherent payload.

const (
	// maxGroupLines bounds how many lines a group buffer may hold
	// before it is force-flushed.
	maxGroupLines = 200

	// maxGroupChars bounds the running payload character count of a
	// group buffer before it is force-flushed.
	maxGroupChars = 64000
)

// Group is one unit of output from the Grouper: either a single
// passthrough line or a reassembled multi-line JSON record.
type Group struct {
	// Key is the container label the lines were buffered under.
	Key string

	// Lines are the original transport lines.
	Lines []string

	// JSON are the prefix- and timestamp-stripped payloads, in order.
	// Joining them with newlines reconstructs the record body.
	JSON []string
}

type groupBuffer struct {
	raw  []string
	json []string
	size int
}

// Grouper is a per-source-key buffering state machine that reassembles
// multi-line JSON bodies. At most one buffer is open per key at any
// time. It is driven by a single goroutine per pipe, so it needs no
// locking.
type Grouper struct {
	buffers map[string]*groupBuffer
	order   []string
}

// NewGrouper creates an empty Grouper.
func NewGrouper() *Grouper {
	return &Grouper{buffers: map[string]*groupBuffer{}}
}

// Offer feeds one raw transport line through the state machine and
// returns zero or more groups ready for normalization. Lines that do
// not participate in a JSON record pass through as single-line groups.
func (g *Grouper) Offer(line string) []Group {
	label, payload, prefixed := splitPrefix(line)
	if !prefixed {
		// Not the multiplexed format; emit immediately, unbuffered.
		return []Group{{Lines: []string{line}}}
	}
	_, stripped := stripTimestamp(payload)

	buf := g.buffers[label]
	if buf != nil {
		if looksLikeContinuation(stripped) {
			buf.raw = append(buf.raw, line)
			buf.json = append(buf.json, stripped)
			buf.size += len(stripped)
			if len(buf.raw) >= maxGroupLines || buf.size >= maxGroupChars ||
				isCompleteJSON(strings.Join(buf.json, "\n")) {
				return []Group{g.closeBuffer(label)}
			}
			return nil
		}
		// Not a continuation: flush the open buffer first, then let the
		// new line start a fresh decision.
		flushed := g.closeBuffer(label)
		return append([]Group{flushed}, g.offerFresh(label, line, stripped)...)
	}

	return g.offerFresh(label, line, stripped)
}

// offerFresh handles a line for a key with no open buffer.
func (g *Grouper) offerFresh(label, line, stripped string) []Group {
	if looksLikeJSONStart(stripped) && !isCompleteJSON(stripped) {
		g.buffers[label] = &groupBuffer{
			raw:  []string{line},
			json: []string{stripped},
			size: len(stripped),
		}
		g.order = append(g.order, label)
		return nil
	}
	return []Group{{Key: label, Lines: []string{line}}}
}

// Flush closes every open buffer unconditionally. Called on stream end
// so no record is ever dropped.
func (g *Grouper) Flush() []Group {
	var groups []Group
	for _, label := range g.order {
		if g.buffers[label] != nil {
			groups = append(groups, g.closeBuffer(label))
		}
	}
	return groups
}

func (g *Grouper) closeBuffer(label string) Group {
	buf := g.buffers[label]
	delete(g.buffers, label)
	for i, key := range g.order {
		if key == label {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	return Group{Key: label, Lines: buf.raw, JSON: buf.json}
}

// looksLikeJSONStart reports whether a stripped payload looks like the
// opening of a JSON object or array.
func looksLikeJSONStart(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}

// looksLikeContinuation reports whether a stripped payload looks like
// the interior or closing of an in-progress JSON record. This is an
// approximate heuristic, kept as a pure predicate so it can be fuzzed
// independently of I/O.
func looksLikeContinuation(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	switch s[0] {
	case '{', '}', '[', ']', '"', ',':
		return true
	}
	return false
}

// isCompleteJSON reports whether the text is already a complete JSON
// document on its own.
func isCompleteJSON(s string) bool {
	return json.Valid([]byte(s))
}
