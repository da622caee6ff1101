package kiosk

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	UsernameMinLength = 2
	UsernameMaxLength = 50
)

var (
	ErrUsernameRequired          = errors.New("Username is required")
	ErrUsernameTooShort          = errors.New("Name must be at least 2 characters long")
	ErrUsernameTooLong           = errors.New("Name must be at most 50 characters long")
	ErrUsernameInvalidCharacters = errors.New(
		"Name can only contain letters, spaces, dots, hyphens, and apostrophes")
)

// ValidateUsername trims raw and checks it against the username rules.
// On success the trimmed username is returned, otherwise one of the
// ErrUsername* errors describing the rejection.
func ValidateUsername(raw string) (string, error) {
	if raw == "" {
		return "", ErrUsernameRequired
	}
	username := strings.TrimSpace(raw)

	length := utf8.RuneCountInString(username)
	switch {
	case length < UsernameMinLength:
		return "", ErrUsernameTooShort
	case length > UsernameMaxLength:
		return "", ErrUsernameTooLong
	}

	for _, r := range username {
		if !isUsernameRune(r) {
			return "", ErrUsernameInvalidCharacters
		}
	}
	return username, nil
}

// ASCII letters, space, dot, hyphen and apostrophe.
func isUsernameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	case r == ' ', r == '.', r == '-', r == '\'':
		return true
	default:
		return false
	}
}
