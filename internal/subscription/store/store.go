// Package store persists subscribers and their pending confirmation tokens.
//
// Implementations uphold two contracts the service depends on:
//
//   - CreatePending writes the subscriber row and the token association as a
//     single atomic unit. No reader ever observes one without the other.
//   - Redeem consumes a token exactly once. Under concurrent redemption of
//     the same token exactly one call wins; the rest see sentinel.ErrNotFound.
//
// The email address is the idempotency key for sign-ups: a second
// CreatePending for an email that is already stored reports
// sentinel.ErrConflict, and PendingByEmail recovers the committed record so
// the caller can resend instead of double-inserting.
package store

import (
	"context"

	"github.com/google/uuid"

	"inkwell/internal/subscription/models"
)

// Store is implemented by InMemory and Postgres. The service layer declares
// its own narrow interface; this one exists for wiring and test fixtures.
type Store interface {
	CreatePending(ctx context.Context, subscriber *models.Subscriber, token models.ConfirmationToken) error
	PendingByEmail(ctx context.Context, email models.SubscriberEmail) (*models.Subscriber, models.ConfirmationToken, error)
	Redeem(ctx context.Context, token models.ConfirmationToken) (uuid.UUID, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Subscriber, error)
}
