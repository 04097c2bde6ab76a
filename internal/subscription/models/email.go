package models

import (
	"net/mail"
	"strings"

	dErrors "inkwell/pkg/domain-errors"
)

// ErrEmailMalformed rejects strings that are not a bare, syntactically valid
// email address.
var ErrEmailMalformed = dErrors.New(dErrors.CodeBadRequest, "email address is malformed")

// SubscriberEmail is a validated email address. Construction through
// ParseEmail is the only validation point.
type SubscriberEmail struct {
	value string
}

// ParseEmail validates raw and wraps it into a trusted SubscriberEmail.
// Accepts only a bare address (no display name), with non-empty local part
// and a dotted domain, and no embedded whitespace.
func ParseEmail(raw string) (SubscriberEmail, error) {
	if raw == "" || strings.ContainsAny(raw, " \t\r\n") {
		return SubscriberEmail{}, ErrEmailMalformed
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return SubscriberEmail{}, ErrEmailMalformed
	}
	at := strings.LastIndexByte(raw, '@')
	local, domain := raw[:at], raw[at+1:]
	if local == "" || domain == "" || !strings.Contains(domain, ".") {
		return SubscriberEmail{}, ErrEmailMalformed
	}
	return SubscriberEmail{value: raw}, nil
}

func (e SubscriberEmail) String() string { return e.value }

// IsZero reports whether the email was never parsed.
func (e SubscriberEmail) IsZero() bool { return e.value == "" }
