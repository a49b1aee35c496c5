package logs

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Payload is the result of parsing one structured log payload.
type Payload struct {
	Level   Level
	Message string
	Fields  map[string]string
}

// reservedKeys are payload keys consumed by level/message/timestamp
// extraction and therefore excluded from Fields.
var reservedKeys = map[string]bool{
	"level":     true,
	"lvl":       true,
	"severity":  true,
	"msg":       true,
	"message":   true,
	"ts":        true,
	"time":      true,
	"timestamp": true,
}

// ParsePayload attempts a strict JSON-object parse of a log payload and
// extracts level, message, and extra fields from it.
//
// The second return value reports whether the payload was a JSON object.
// When it is false the payload is plain text: the caller should use the
// raw payload as the message and attach no level and no fields. This
// function never fails; malformed input simply yields ok=false.
func ParsePayload(payload string) (Payload, bool) {
	trimmed := strings.TrimSpace(payload)
	if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
		return Payload{}, false
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(trimmed), &data); err != nil {
		return Payload{}, false
	}

	out := Payload{
		Level:   resolveLevel(data),
		Message: resolveMessage(data, payload),
	}

	for key, value := range data {
		if reservedKeys[key] {
			continue
		}
		s, ok := stringifyField(value)
		if !ok {
			continue
		}
		if out.Fields == nil {
			out.Fields = map[string]string{}
		}
		out.Fields[key] = s
	}

	return out, true
}

// resolveLevel checks the conventional level keys in priority order.
// A JSON payload without a recognizable level defaults to info.
func resolveLevel(data map[string]any) Level {
	for _, key := range []string{"level", "lvl", "severity"} {
		value, ok := data[key]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case string:
			return levelFromName(v)
		case float64:
			return levelFromNumber(v)
		}
	}
	return LevelInfo
}

// levelFromName maps common string level names onto the four-value enum.
// Unknown names normalize to info.
func levelFromName(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error", "fatal", "panic":
		return LevelError
	default:
		return LevelInfo
	}
}

// levelFromNumber applies pino-style numeric thresholds
// (10=trace .. 60=fatal).
func levelFromNumber(n float64) Level {
	switch {
	case n >= 50:
		return LevelError
	case n >= 40:
		return LevelWarn
	case n >= 30:
		return LevelInfo
	default:
		return LevelDebug
	}
}

func resolveMessage(data map[string]any, fallback string) string {
	if msg, ok := data["msg"].(string); ok {
		return msg
	}
	if msg, ok := data["message"].(string); ok {
		return msg
	}
	return fallback
}

// stringifyField renders a JSON leaf value as a string. Only strings,
// numbers, and booleans are kept; nested objects, arrays, and nulls are
// dropped.
func stringifyField(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1e15 {
			return strconv.FormatInt(int64(v), 10), true
		}
		return strconv.FormatFloat(v, 'g', -1, 64), true
	default:
		return "", false
	}
}
