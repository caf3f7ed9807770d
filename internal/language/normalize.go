package language

import "strings"

// NormalizeTag normalizes a language tag to lowercase and "-" separators.
// The primary subtag must be letters; later subtags may also carry digits
// (es-419). Returns an empty string when the value is blank or malformed.
func NormalizeTag(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return ""
	}

	trimmed = strings.ReplaceAll(trimmed, "_", "-")
	parts := strings.Split(trimmed, "-")
	normalized := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if len(normalized) == 0 && !isAlphaLower(part) {
			return ""
		}
		if !isAlphaNumLower(part) {
			return ""
		}
		normalized = append(normalized, part)
	}

	if len(normalized) == 0 {
		return ""
	}
	return strings.Join(normalized, "-")
}

// NormalizeCode returns the primary language subtag (for example, "en" from "en-US").
func NormalizeCode(raw string) string {
	tag := NormalizeTag(raw)
	if tag == "" {
		return ""
	}
	if dash := strings.IndexByte(tag, '-'); dash >= 0 {
		return tag[:dash]
	}
	return tag
}

func isAlphaLower(value string) bool {
	for _, r := range value {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

func isAlphaNumLower(value string) bool {
	for _, r := range value {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// DefaultTarget is the translation target used when a request names none.
const DefaultTarget = "en"

// NormalizeTarget normalizes a requested translation target, substituting
// DefaultTarget for blank input. ok is false when the tag is malformed.
func NormalizeTarget(raw string) (tag string, ok bool) {
	if strings.TrimSpace(raw) == "" {
		return DefaultTarget, true
	}
	tag = NormalizeTag(raw)
	return tag, tag != ""
}
