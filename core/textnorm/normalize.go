// Package textnorm cleans list-like strings extracted from source metadata
// into a comma-joined, de-duplicated form that is safe to embed in prompts.
package textnorm

import (
	"strings"
)

const (
	// WrapChars are stripped from both ends of the whole input.
	WrapChars = "[]'\" \t\r\n"

	// ElementChars are stripped from both ends of every element.
	ElementChars = "'\" \t\r\n"

	// Separator joins the cleaned elements.
	Separator = ", "
)

// Normalize strips wrapping brackets and quotes, splits the input on commas
// outside of {...} groups, trims every element, drops empty and repeated
// elements and joins the rest with ", ". Passes repeat until the result is
// stable, so Normalize(Normalize(s)) == Normalize(s).
//
//	Normalize("{a, b}, c")        == "{a, b}, c"
//	Normalize("  ['x', 'y']  ")   == "x, y"
func Normalize(input string) string {
	out := normalizeOnce(input)
	for out != input {
		input, out = out, normalizeOnce(out)
	}
	return out
}

// normalizeOnce is one strip, split and dedupe pass. Dropping an empty edge
// element can expose brackets that only a further pass removes.
func normalizeOnce(input string) string {
	trimmed := strings.Trim(input, WrapChars)
	if trimmed == "" {
		return ""
	}

	seen := make(map[string]struct{})
	out := make([]string, 0, 8)
	for _, element := range SplitTopLevel(trimmed) {
		element = strings.Trim(element, ElementChars)
		if element == "" {
			continue
		}
		if _, dup := seen[element]; dup {
			continue
		}
		seen[element] = struct{}{}
		out = append(out, element)
	}
	return strings.Join(out, Separator)
}

// SplitTopLevel splits s on commas that are not nested inside braces.
// Unbalanced closing braces drive the depth negative, in which case no
// further commas split until the depth returns to zero.
func SplitTopLevel(s string) []string {
	var (
		parts []string
		start int
		depth int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// Join cleans each part with Normalize and joins the non-empty results,
// then normalizes the combination so duplicates across parts collapse.
func Join(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = Normalize(p); p != "" {
			kept = append(kept, p)
		}
	}
	return Normalize(strings.Join(kept, Separator))
}
