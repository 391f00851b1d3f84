package validate

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,32}$`)

func Required(value string) bool {
	return strings.TrimSpace(value) != ""
}

// Email accepts a bare address only; display names are rejected.
func Email(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	addr, err := mail.ParseAddress(value)
	return err == nil && addr.Address == value
}

func Username(value string) bool {
	return usernamePattern.MatchString(strings.TrimSpace(value))
}

// MaxRunes reports whether value fits in n characters.
func MaxRunes(value string, n int) bool {
	return utf8.RuneCountInString(value) <= n
}
