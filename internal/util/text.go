package util

import "strings"

// SanitizePostgresText drops invalid UTF-8 and NUL bytes, which PostgreSQL
// rejects in text and jsonb values.
func SanitizePostgresText(value string) string {
	if value == "" {
		return value
	}

	sanitized := strings.ToValidUTF8(value, "")
	return strings.ReplaceAll(sanitized, "\x00", "")
}

// SanitizeProperties applies SanitizePostgresText to every string value of
// props, including strings nested in slices and maps. props is not modified.
func SanitizeProperties(props map[string]any) map[string]any {
	if props == nil {
		return nil
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[SanitizePostgresText(k)] = sanitizeValue(v)
	}
	return out
}

func sanitizeValue(v any) any {
	switch val := v.(type) {
	case string:
		return SanitizePostgresText(val)
	case []string:
		out := make([]string, len(val))
		for i, s := range val {
			out[i] = SanitizePostgresText(s)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = sanitizeValue(s)
		}
		return out
	case map[string]any:
		return SanitizeProperties(val)
	default:
		return v
	}
}
