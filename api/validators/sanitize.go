package validators

import "strings"

// SanitizeEmail trims and lowercases an address taken from a request.
func SanitizeEmail(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

// BearerToken strips an optional "Bearer " prefix.
func BearerToken(raw string) string {
	token := strings.TrimSpace(raw)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
