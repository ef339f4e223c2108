package validation

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"bookbridge-backend/internal/domain"
)

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Err returns a domain validation error carrying the violations, or nil.
func (v Violations) Err(msg string) error {
	if v.Empty() {
		return nil
	}
	return domain.NewValidationError(msg, v)
}

func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

// Length checks the trimmed rune length of value.
func Length(field, value string, minLen, maxLen int, v Violations) {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	if n < minLen || n > maxLen {
		v[field] = "length_out_of_range"
	}
}

// Digits requires value to be exactly n ASCII digits.
func Digits(field, value string, n int, v Violations) {
	if len(value) != n {
		v[field] = "must_be_digits"
		return
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			v[field] = "must_be_digits"
			return
		}
	}
}

func Email(field, value string, v Violations) {
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != strings.TrimSpace(value) {
		v[field] = "invalid_email"
	}
}

func Positive(field string, val int64, v Violations) {
	if val <= 0 {
		v[field] = "must_be_positive"
	}
}

func NonNegative(field string, val int64, v Violations) {
	if val < 0 {
		v[field] = "must_not_be_negative"
	}
}
