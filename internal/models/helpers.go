package models

import (
	"strings"
	"unicode"
)

// Slugify turns a title into a file-name friendly key.
// Spaces and underscores become hyphens; anything outside [a-z0-9-] is dropped.
func Slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r == ' ' || r == '_' || r == '-':
			b.WriteByte('-')
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SanitizeTitle keeps only letters, digits and spaces, trimming the result.
func SanitizeTitle(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == ' ' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
