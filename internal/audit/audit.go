// Package audit records the lifecycle of every subscription as an
// append-only trail. Events are emitted from domain logic and persisted by a
// background worker so the request path never blocks on the trail.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Actions recorded on the trail.
const (
	ActionSubscriptionRequested  = "subscription_requested"
	ActionDuplicateSubscription  = "duplicate_subscription"
	ActionConfirmationEmailSent  = "confirmation_email_sent"
	ActionConfirmationEmailError = "confirmation_email_failed"
	ActionSubscriptionConfirmed  = "subscription_confirmed"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp    time.Time
	SubscriberID uuid.UUID
	Email        string
	Action       string
	RequestID    string
	Detail       string
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubscriber(ctx context.Context, subscriberID uuid.UUID) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
