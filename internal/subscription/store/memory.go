package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"inkwell/internal/subscription/models"
	"inkwell/pkg/platform/sentinel"
)

// InMemory keeps the store testable without wiring PostgreSQL. It favors
// clarity over performance and mirrors the Postgres semantics exactly,
// including the atomicity of the pair insert and one-shot redemption.
type InMemory struct {
	mu          sync.Mutex
	subscribers map[uuid.UUID]models.Subscriber
	byEmail     map[string]uuid.UUID
	byToken     map[models.ConfirmationToken]uuid.UUID
	tokenFor    map[uuid.UUID]models.ConfirmationToken
}

// NewInMemory constructs an empty in-memory subscription store.
func NewInMemory() *InMemory {
	return &InMemory{
		subscribers: make(map[uuid.UUID]models.Subscriber),
		byEmail:     make(map[string]uuid.UUID),
		byToken:     make(map[models.ConfirmationToken]uuid.UUID),
		tokenFor:    make(map[uuid.UUID]models.ConfirmationToken),
	}
}

func (s *InMemory) CreatePending(_ context.Context, subscriber *models.Subscriber, token models.ConfirmationToken) error {
	if subscriber == nil {
		return fmt.Errorf("subscriber is required")
	}
	if token.IsZero() {
		return fmt.Errorf("confirmation token is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[subscriber.Email.String()]; exists {
		return fmt.Errorf("create pending %s: %w", subscriber.Email, sentinel.ErrConflict)
	}

	s.subscribers[subscriber.ID] = *subscriber
	s.byEmail[subscriber.Email.String()] = subscriber.ID
	s.byToken[token] = subscriber.ID
	s.tokenFor[subscriber.ID] = token
	return nil
}

func (s *InMemory) PendingByEmail(_ context.Context, email models.SubscriberEmail) (*models.Subscriber, models.ConfirmationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[email.String()]
	if !ok {
		return nil, "", fmt.Errorf("pending by email %s: %w", email, sentinel.ErrNotFound)
	}
	subscriber := s.subscribers[id]
	if subscriber.Status == models.StatusConfirmed {
		return &subscriber, "", fmt.Errorf("pending by email %s: %w", email, sentinel.ErrAlreadyUsed)
	}
	return &subscriber, s.tokenFor[id], nil
}

func (s *InMemory) Redeem(_ context.Context, token models.ConfirmationToken) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byToken[token]
	if !ok {
		return uuid.Nil, fmt.Errorf("redeem token: %w", sentinel.ErrNotFound)
	}

	delete(s.byToken, token)
	delete(s.tokenFor, id)
	subscriber := s.subscribers[id]
	subscriber.Status = models.StatusConfirmed
	s.subscribers[id] = subscriber
	return id, nil
}

func (s *InMemory) Get(_ context.Context, id uuid.UUID) (*models.Subscriber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subscriber, ok := s.subscribers[id]
	if !ok {
		return nil, fmt.Errorf("get subscriber %s: %w", id, sentinel.ErrNotFound)
	}
	return &subscriber, nil
}
