// Package sanitize cleans caller-supplied tool arguments before they
// reach an upstream request or get echoed into output.
package sanitize

import (
	"strings"
	"unicode"
)

// Clean returns a recursively cleaned copy of v. Strings are stripped
// of control characters and trimmed; slices and string-keyed maps are
// cleaned element by element (map keys included); every other scalar
// passes through unchanged. Clean is idempotent and never lengthens a
// string.
func Clean(v any) any {
	switch value := v.(type) {
	case string:
		return CleanString(value)
	case []any:
		cleaned := make([]any, len(value))
		for i, item := range value {
			cleaned[i] = Clean(item)
		}
		return cleaned
	case map[string]any:
		cleaned := make(map[string]any, len(value))
		for key, item := range value {
			cleaned[CleanString(key)] = Clean(item)
		}
		return cleaned
	default:
		return v
	}
}

// CleanString strips control characters and trims surrounding whitespace.
func CleanString(s string) string {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(stripped)
}

// CleanStrict additionally drops characters with injection potential in
// upstream query strings. Used for free-text values interpolated into
// search parameters.
func CleanStrict(s string) string {
	stripped := strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', '"', '\'', '&':
			return -1
		}
		return r
	}, CleanString(s))
	return strings.TrimSpace(stripped)
}

// CleanArgs clones and cleans a tool-argument map. A nil map yields an
// empty, non-nil map so handlers never touch caller-owned storage.
func CleanArgs(args map[string]any) map[string]any {
	if args == nil {
		return map[string]any{}
	}
	cleaned, ok := Clean(args).(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return cleaned
}
