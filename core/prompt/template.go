// Package prompt fills named-placeholder templates and assembles model
// prompts from the configured prompt slots.
package prompt

import (
	"fmt"
	"strings"

	gerrors "github.com/adalundhe/instructgen/core/errors"
)

// Fields maps placeholder names to their values.
type Fields map[string]string

// Format replaces every {name} in tmpl with fields[name]. "{{" and "}}" are
// literal braces. A placeholder without a value fails with a
// TemplateSubstitution error naming every missing field; unused fields are
// ignored.
func Format(tmpl string, fields Fields) (string, error) {
	return format(tmpl, fields, false)
}

// FormatPartial fills the placeholders present in fields and leaves every
// other placeholder, and every escaped brace, in place for a later Format.
func FormatPartial(tmpl string, fields Fields) (string, error) {
	return format(tmpl, fields, true)
}

func format(tmpl string, fields Fields, partial bool) (string, error) {
	var b strings.Builder
	b.Grow(len(tmpl))

	var missing []string
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch c {
		case '{':
			if i+1 < len(tmpl) && tmpl[i+1] == '{' {
				b.WriteString(escapedBrace(partial, "{"))
				i++
				continue
			}
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return "", templateError(fmt.Errorf("unclosed '{' at offset %d", i))
			}
			name := tmpl[i+1 : i+1+end]
			if !validName(name) {
				return "", templateError(fmt.Errorf("invalid placeholder %q at offset %d", name, i))
			}
			if v, ok := fields[name]; ok {
				b.WriteString(v)
			} else if partial {
				b.WriteString("{" + name + "}")
			} else {
				missing = append(missing, name)
			}
			i += end + 1
		case '}':
			if i+1 < len(tmpl) && tmpl[i+1] == '}' {
				b.WriteString(escapedBrace(partial, "}"))
				i++
				continue
			}
			b.WriteByte('}')
		default:
			b.WriteByte(c)
		}
	}

	if len(missing) > 0 {
		return "", templateError(fmt.Errorf("undefined field(s): %s", strings.Join(unique(missing), ", ")))
	}
	return b.String(), nil
}

// Placeholders lists the distinct placeholder names in tmpl, in first-use
// order. Escaped braces are skipped.
func Placeholders(tmpl string) []string {
	var names []string
	for i := 0; i < len(tmpl); i++ {
		if tmpl[i] != '{' {
			continue
		}
		if i+1 < len(tmpl) && tmpl[i+1] == '{' {
			i++
			continue
		}
		end := strings.IndexByte(tmpl[i+1:], '}')
		if end < 0 {
			break
		}
		if name := tmpl[i+1 : i+1+end]; validName(name) {
			names = append(names, name)
		}
		i += end + 1
	}
	return unique(names)
}

// Escape doubles every brace so that s survives a later Format unchanged.
func Escape(s string) string {
	return braceEscaper.Replace(s)
}

var braceEscaper = strings.NewReplacer("{", "{{", "}", "}}")

func escapedBrace(partial bool, brace string) string {
	if partial {
		return brace + brace
	}
	return brace
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

func unique(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := names[:0:0]
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func templateError(err error) error {
	return gerrors.NewGenerationError(gerrors.KindTemplateSubstitution, "", err)
}
