package gwconfig

import (
	"fmt"
	"strings"
	"unicode"
)

// CanonicalKey folds camelCase, kebab-case and snake_case spellings of a
// field name to one snake_case form: "apiKey", "api-key", "API_KEY" and
// "api_key" all become "api_key".
func CanonicalKey(s string) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range runes {
		switch {
		case r == '-' || r == '_' || r == ' ' || r == '.':
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
				b.WriteByte('_')
			}
		case unicode.IsUpper(r):
			if i > 0 && b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// normalizeName lower-cases and trims a provider or channel name.
func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// stringKeys converts decoder mappings keyed by arbitrary values (as some
// YAML documents produce) into map[string]any, recursively.
func stringKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = stringKeys(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = stringKeys(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = stringKeys(val)
		}
		return out
	default:
		return v
	}
}
