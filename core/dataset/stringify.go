package dataset

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Stringify renders a file details value as text. Lists render as a
// bracketed, single-quoted list so that normalization strips them back to a
// plain comma-joined string; mappings render as ordered JSON.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case []string:
		items := make([]any, len(t))
		for i, s := range t {
			items[i] = s
		}
		return stringifyList(items)
	case []any:
		return stringifyList(t)
	case *Record, map[string]any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func stringifyList(items []any) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		if s, ok := item.(string); ok {
			b.WriteByte('\'')
			b.WriteString(s)
			b.WriteByte('\'')
			continue
		}
		b.WriteString(Stringify(item))
	}
	b.WriteByte(']')
	return b.String()
}
