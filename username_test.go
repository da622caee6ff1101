package kiosk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUsername(t *testing.T) {
	assert := assert.New(t)

	cases := []struct {
		raw      string
		username string
		err      error
	}{
		{raw: "John Smith", username: "John Smith"},
		{raw: "Admin", username: "Admin"},
		{raw: "Mary O'Connor", username: "Mary O'Connor"},
		{raw: "Jean-Pierre", username: "Jean-Pierre"},
		{raw: "Dr. Who", username: "Dr. Who"},
		{raw: "  Valid Name \t", username: "Valid Name"},
		{raw: "Al", username: "Al"},
		{raw: strings.Repeat("a", 50), username: strings.Repeat("a", 50)},
		{raw: "", err: ErrUsernameRequired},
		{raw: "A", err: ErrUsernameTooShort},
		{raw: "  ", err: ErrUsernameTooShort},
		{raw: " B ", err: ErrUsernameTooShort},
		{raw: strings.Repeat("a", 51), err: ErrUsernameTooLong},
		{raw: "123Invalid", err: ErrUsernameInvalidCharacters},
		{raw: "John_Smith", err: ErrUsernameInvalidCharacters},
		{raw: "john@kiosk", err: ErrUsernameInvalidCharacters},
		{raw: "Zoë Smith", err: ErrUsernameInvalidCharacters},
		{raw: "tab\tinside", err: ErrUsernameInvalidCharacters},
	}

	for _, tc := range cases {
		username, err := ValidateUsername(tc.raw)
		if tc.err != nil {
			assert.Equal(tc.err, err, "raw: %q", tc.raw)
			assert.Equal("", username, "raw: %q", tc.raw)
		} else {
			assert.NoError(err, "raw: %q", tc.raw)
			assert.Equal(tc.username, username, "raw: %q", tc.raw)
		}
	}
}

func TestValidateUsernameAllowedAlphabet(t *testing.T) {
	assert := assert.New(t)

	const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ .-'"
	for length := UsernameMinLength; length <= UsernameMaxLength; length++ {
		var b strings.Builder
		for i := 0; i < length; i++ {
			b.WriteByte(alphabet[(i*7+length)%len(alphabet)])
		}
		raw := "x" + b.String()[1:length-1] + "y"

		username, err := ValidateUsername(raw)
		if assert.NoError(err, "raw: %q", raw) {
			assert.Equal(raw, username)
		}
	}

	for _, r := range "0123456789_!?@#$%&*()[]{}<>/\\|,;:\"+=~`^" {
		raw := "ab" + string(r) + "cd"
		_, err := ValidateUsername(raw)
		assert.Equal(ErrUsernameInvalidCharacters, err, "raw: %q", raw)
	}
}
