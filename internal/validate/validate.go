// Package validate holds request-level validation shared across handlers and services.
// Malformed input is rejected here, before any repository is touched.
package validate

import (
	"errors"
	"regexp"
	"strings"
)

// E.164: optional +, leading non-zero digit, up to 15 digits total.
var phoneRe = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// PhoneNumber checks s against E.164 (e.g. +1234567890).
func PhoneNumber(s string) error {
	if !phoneRe.MatchString(s) {
		return errors.New("phone number must be in E.164 format (e.g., +1234567890)")
	}
	return nil
}

// Email checks s for a plausible address shape. Empty is rejected; callers
// handle optional emails before calling.
func Email(s string) error {
	if s == "" || len(s) < 5 || len(s) > 255 || !emailRe.MatchString(s) {
		return errors.New("invalid email format")
	}
	return nil
}

// PersonName checks a display name for length bounds after trimming.
func PersonName(s string, min, max int) error {
	n := len(strings.TrimSpace(s))
	if n < min || n > max {
		return errors.New("name length out of range")
	}
	return nil
}

// Password enforces the registration password policy: at least 8 characters
// with one lowercase letter, one uppercase letter, and one digit.
func Password(s string) error {
	if len(s) < 8 {
		return errors.New("password must be at least 8 characters long")
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return errors.New("password must contain at least one lowercase letter, one uppercase letter, and one number")
	}
	return nil
}
