package textnorm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// InfoString flattens a metadata value into a comma-joined string.
// Lists join their trimmed, non-empty elements; anything else is rendered
// and re-split on commas. Mappings render as JSON.
func InfoString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			if s := strings.TrimSpace(render(item)); s != "" {
				items = append(items, s)
			}
		}
		return strings.Join(items, Separator)
	case []string:
		items := make([]string, 0, len(v))
		for _, item := range v {
			if s := strings.TrimSpace(item); s != "" {
				items = append(items, s)
			}
		}
		return strings.Join(items, Separator)
	default:
		return splitJoin(render(v))
	}
}

func splitJoin(s string) string {
	items := make([]string, 0, 8)
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return strings.Join(items, Separator)
}

func render(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Marshaler:
		if b, err := x.MarshalJSON(); err == nil {
			return string(b)
		}
		return fmt.Sprint(x)
	case map[string]any:
		if b, err := json.Marshal(x); err == nil {
			return string(b)
		}
		return fmt.Sprint(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
