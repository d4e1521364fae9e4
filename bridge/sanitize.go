package bridge

import "strings"

// DefaultNamePrefix is prepended to the names that are empty
// or do not start with a letter or a digit
const DefaultNamePrefix = "tool_"

// SanitizeName returns the tool name safe for the agent function calling:
// every character outside of [A-Za-z0-9_-] is replaced with `_`,
// and DefaultNamePrefix is prepended when the result is empty
// or does not start with an alphanumeric character.
func SanitizeName(name string) string {
	return sanitizeName(name, DefaultNamePrefix)
}

func sanitizeName(name, prefix string) string {
	var sb strings.Builder
	sb.Grow(len(prefix) + len(name))
	for _, r := range name {
		if isNameChar(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}

	s := sb.String()
	if s == "" || !isAlphanumeric(rune(s[0])) {
		s = prefix + s
	}
	return s
}

func isAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func isNameChar(r rune) bool {
	return isAlphanumeric(r) || r == '_' || r == '-'
}
