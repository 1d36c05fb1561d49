// Package email holds the small email-address helpers shared by the identity
// event payloads and the directory projection.
package email

import (
	"strings"
	"unicode"
)

// Normalize lowercases and trims an address. Profiles store the normalized
// form so lookups match regardless of the identity service's casing.
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Valid reports whether the address has the minimal user@host shape. Full
// RFC validation is the identity service's job; this guards against payloads
// that lost the field entirely.
func Valid(email string) bool {
	at := strings.IndexByte(email, '@')
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t\n")
}

// DeriveNameFromEmail builds a displayable first/last name pair from the
// local part of an address, for identity payloads that carry no names.
func DeriveNameFromEmail(email string) (string, string) {
	localPart := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		localPart = email[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})

	if len(parts) == 0 {
		return "User", "User"
	}

	first := capitalize(parts[0])
	last := "User"
	if len(parts) > 1 {
		last = capitalize(parts[len(parts)-1])
	}

	return first, last
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
