package woocommerce

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Meta is a last-wins index over metadata entries with explicit presence.
type Meta struct {
	values map[string]json.RawMessage
}

func NewMeta(entries []MetaEntry) Meta {
	values := make(map[string]json.RawMessage, len(entries))
	for _, entry := range entries {
		if entry.Key == "" {
			continue
		}
		values[entry.Key] = entry.Value
	}
	return Meta{values: values}
}

// Raw returns the undecoded value. A JSON null still counts as present.
func (m Meta) Raw(key string) (json.RawMessage, bool) {
	v, ok := m.values[key]
	return v, ok
}

// String returns the value as text when it is a JSON scalar. Null, objects
// and arrays are reported as absent.
func (m Meta) String(key string) (string, bool) {
	raw, ok := m.values[key]
	if !ok {
		return "", false
	}
	return ScalarText(raw)
}

// NonEmpty is String that also treats blank text as absent.
func (m Meta) NonEmpty(key string) (string, bool) {
	v, ok := m.String(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (m Meta) Len() int {
	return len(m.values)
}

// ScalarText renders a JSON scalar as plain text.
func ScalarText(raw json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", false
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", false
		}
		return s, true
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return "", false
		}
		if b {
			return "true", true
		}
		return "false", true
	case 'n', '{', '[':
		return "", false
	default:
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return "", false
		}
		return n.String(), true
	}
}
