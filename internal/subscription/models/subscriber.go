// Package models holds the validated domain values of the subscription
// pipeline. Raw request input crosses into these types exactly once, at the
// service boundary.
package models

import (
	"time"

	"github.com/google/uuid"

	dErrors "inkwell/pkg/domain-errors"
)

// SubscriberStatus tracks the confirmation state machine. The only
// transition is PendingConfirmation -> Confirmed; Confirmed is terminal.
type SubscriberStatus string

const (
	StatusPendingConfirmation SubscriberStatus = "pending_confirmation"
	StatusConfirmed           SubscriberStatus = "confirmed"
)

// Subscriber is one newsletter sign-up.
type Subscriber struct {
	ID           uuid.UUID
	Name         SubscriberName
	Email        SubscriberEmail
	Status       SubscriberStatus
	SubscribedAt time.Time
}

// NewSubscriber creates a pending subscriber with a fresh identity.
func NewSubscriber(name SubscriberName, email SubscriberEmail, now time.Time) *Subscriber {
	return &Subscriber{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		Status:       StatusPendingConfirmation,
		SubscribedAt: now.UTC(),
	}
}

// ErrTokenMalformed rejects confirmation tokens that cannot have been issued
// by this service.
var ErrTokenMalformed = dErrors.New(dErrors.CodeUnauthorized, "confirmation token is malformed")

// ConfirmationToken is the opaque credential mailed to a subscriber. The
// generator package is the only producer; ParseConfirmationToken gates
// inbound redemption requests.
type ConfirmationToken string

// minTokenLength matches the entropy floor of the token generator setting.
const minTokenLength = 25

// ParseConfirmationToken validates an inbound token string.
func ParseConfirmationToken(raw string) (ConfirmationToken, error) {
	if len(raw) < minTokenLength {
		return "", ErrTokenMalformed
	}
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return "", ErrTokenMalformed
		}
	}
	return ConfirmationToken(raw), nil
}

func (t ConfirmationToken) String() string { return string(t) }

// IsZero reports whether the token is unset.
func (t ConfirmationToken) IsZero() bool { return t == "" }
