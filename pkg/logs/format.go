package logs

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// labelColors is the palette cycled through for service label prefixes.
var labelColors = []lipgloss.Color{
	"6",  // cyan
	"3",  // yellow
	"2",  // green
	"5",  // magenta
	"4",  // blue
	"1",  // red
	"14", // bright cyan
	"11", // bright yellow
	"10", // bright green
	"13", // bright magenta
}

var (
	styleDebug = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Faint(true)
	styleInfo  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	styleError = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleField = lipgloss.NewStyle().Faint(true)
)

// FormatOptions configures pretty log output.
type FormatOptions struct {
	// ShowTimestamps prefixes each line with the entry's timestamp.
	ShowTimestamps bool

	// NoColor disables all styling in the output.
	NoColor bool
}

// Formatter writes canonical entries as aligned, color-coded lines:
// one colored "<project>/<service>[#<instance>]" label per source,
// an optional timestamp, a level badge, the message, and sorted
// structured fields.
type Formatter struct {
	w    io.Writer
	opts FormatOptions

	colorMap map[string]lipgloss.Color
	colorIdx int
	maxLen   int
}

// NewFormatter creates a Formatter writing to w.
func NewFormatter(w io.Writer, opts FormatOptions) *Formatter {
	return &Formatter{
		w:        w,
		opts:     opts,
		colorMap: map[string]lipgloss.Color{},
	}
}

// Write formats and writes one entry.
func (f *Formatter) Write(entry Entry) {
	label := EntryLabel(entry)
	if len(label) > f.maxLen {
		f.maxLen = len(label)
	}

	var sb strings.Builder

	padded := fmt.Sprintf("%-*s", f.maxLen, label)
	if f.opts.NoColor {
		sb.WriteString(padded)
	} else {
		color, ok := f.colorMap[label]
		if !ok {
			color = labelColors[f.colorIdx%len(labelColors)]
			f.colorMap[label] = color
			f.colorIdx++
		}
		sb.WriteString(lipgloss.NewStyle().Foreground(color).Render(padded))
	}
	sb.WriteString(" | ")

	if f.opts.ShowTimestamps && entry.Timestamp != "" {
		sb.WriteString(entry.Timestamp)
		sb.WriteString("  ")
	}

	if entry.Level != "" {
		sb.WriteString(f.levelBadge(entry.Level))
		sb.WriteString(" ")
	}

	sb.WriteString(entry.Message)

	if len(entry.Fields) > 0 {
		keys := make([]string, 0, len(entry.Fields))
		for k := range entry.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			pair := fmt.Sprintf(" %s=%s", k, entry.Fields[k])
			if f.opts.NoColor {
				sb.WriteString(pair)
			} else {
				sb.WriteString(styleField.Render(pair))
			}
		}
	}

	fmt.Fprintln(f.w, sb.String())
}

func (f *Formatter) levelBadge(level Level) string {
	tag := strings.ToUpper(string(level))
	if f.opts.NoColor {
		return tag
	}
	switch level {
	case LevelDebug:
		return styleDebug.Render(tag)
	case LevelWarn:
		return styleWarn.Render(tag)
	case LevelError:
		return styleError.Render(tag)
	default:
		return styleInfo.Render(tag)
	}
}

// EntryLabel builds the visible "<project>/<service>[#<instance>]"
// label for an entry, rewriting the raw replica-suffixed container name
// into the project/service form.
func EntryLabel(entry Entry) string {
	if entry.Service == "" {
		if entry.Project != "" {
			return entry.Project
		}
		return "unknown"
	}

	label := entry.Service
	if entry.Project != "" {
		label = entry.Project + "/" + label
	}
	if entry.Instance != "" {
		label += "#" + entry.Instance
	}
	return label
}

// FormatStream reads from a Stream and writes formatted entries until
// the stream ends. It blocks until the stream is exhausted or a stream
// error occurs.
func FormatStream(w io.Writer, stream *Stream, opts FormatOptions) error {
	f := NewFormatter(w, opts)

	entries := stream.Entries
	errs := stream.Err
	for entries != nil || errs != nil {
		select {
		case entry, ok := <-entries:
			if !ok {
				entries = nil
				continue
			}
			f.Write(entry)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			return err
		}
	}
	return nil
}
