// Package service orchestrates the subscription pipeline: validation, token
// issuance, the atomic pair insert, the confirmation email, and one-shot
// token redemption. Handlers stay thin; stores stay dumb.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"inkwell/internal/audit"
	"inkwell/internal/subscription/metrics"
	"inkwell/internal/subscription/models"
	"inkwell/internal/subscription/notify"
	"inkwell/internal/subscription/token"
	dErrors "inkwell/pkg/domain-errors"
	"inkwell/pkg/platform/sentinel"
	"inkwell/pkg/requestcontext"
)

// Store is the persistence surface the service needs.
type Store interface {
	CreatePending(ctx context.Context, subscriber *models.Subscriber, token models.ConfirmationToken) error
	PendingByEmail(ctx context.Context, email models.SubscriberEmail) (*models.Subscriber, models.ConfirmationToken, error)
	Redeem(ctx context.Context, token models.ConfirmationToken) (uuid.UUID, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Subscriber, error)
}

// Notifier delivers the confirmation email.
type Notifier interface {
	Send(ctx context.Context, email notify.Email) error
}

// AuditPublisher records lifecycle events. Emit must not block.
type AuditPublisher interface {
	Emit(event audit.Event)
}

// TokenSource mints confirmation tokens. Swappable for deterministic tests.
type TokenSource func() (models.ConfirmationToken, error)

// Service runs the subscription pipeline.
type Service struct {
	store    Store
	notifier Notifier
	baseURL  string
	logger   *slog.Logger
	metrics  *metrics.Metrics
	audits   AuditPublisher
	newToken TokenSource
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.audits = publisher
	}
}

func WithTokenSource(source TokenSource) Option {
	return func(s *Service) {
		s.newToken = source
	}
}

// New constructs a Service. baseURL is the public address confirmation
// links are built against, without a trailing slash.
func New(store Store, notifier Notifier, baseURL string, opts ...Option) *Service {
	s := &Service{
		store:    store,
		notifier: notifier,
		baseURL:  baseURL,
		logger:   slog.Default(),
		newToken: token.Generate,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers a new pending subscriber and mails the confirmation
// link. The email address is the idempotency key: repeating a pending
// sign-up resends the original token, and repeating a confirmed sign-up is
// a no-op success.
func (s *Service) Subscribe(ctx context.Context, rawName, rawEmail string) (*models.Subscriber, error) {
	name, err := models.ParseName(rawName)
	if err != nil {
		s.metrics.RecordSubscription(metrics.OutcomeInvalid)
		return nil, err
	}
	email, err := models.ParseEmail(rawEmail)
	if err != nil {
		s.metrics.RecordSubscription(metrics.OutcomeInvalid)
		return nil, err
	}

	confirmationToken, err := s.newToken()
	if err != nil {
		s.metrics.RecordSubscription(metrics.OutcomeError)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate confirmation token")
	}

	subscriber := models.NewSubscriber(name, email, requestcontext.Now(ctx))

	err = s.store.CreatePending(ctx, subscriber, confirmationToken)
	switch {
	case err == nil:
		s.emitAudit(ctx, subscriber, audit.ActionSubscriptionRequested, "")
	case errors.Is(err, sentinel.ErrConflict):
		return s.resubscribe(ctx, email)
	case errors.Is(err, sentinel.ErrUnavailable):
		s.metrics.RecordSubscription(metrics.OutcomeError)
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "subscription storage is unavailable")
	default:
		s.metrics.RecordSubscription(metrics.OutcomeError)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store subscription")
	}

	if err := s.sendConfirmation(ctx, subscriber, confirmationToken); err != nil {
		// The pending row stays; the subscriber can sign up again to
		// trigger a resend of the same token.
		s.metrics.RecordSubscription(metrics.OutcomeError)
		return nil, err
	}

	s.metrics.RecordSubscription(metrics.OutcomeAccepted)
	s.logger.Info("subscription requested",
		slog.String("subscriber_id", subscriber.ID.String()),
		slog.String("request_id", requestcontext.RequestID(ctx)),
	)
	return subscriber, nil
}

// resubscribe handles the conflict path: the email already has a committed
// record. Pending records get their original token resent; confirmed ones
// are acknowledged without another email.
func (s *Service) resubscribe(ctx context.Context, email models.SubscriberEmail) (*models.Subscriber, error) {
	existing, existingToken, err := s.store.PendingByEmail(ctx, email)
	switch {
	case err == nil:
		s.emitAudit(ctx, existing, audit.ActionDuplicateSubscription, "resent confirmation email")
		if err := s.sendConfirmation(ctx, existing, existingToken); err != nil {
			s.metrics.RecordSubscription(metrics.OutcomeError)
			return nil, err
		}
		s.metrics.RecordSubscription(metrics.OutcomeDuplicate)
		return existing, nil
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		// Already confirmed. Treat the repeat sign-up as success.
		s.emitAudit(ctx, existing, audit.ActionDuplicateSubscription, "already confirmed")
		s.metrics.RecordSubscription(metrics.OutcomeDuplicate)
		return existing, nil
	case errors.Is(err, sentinel.ErrUnavailable):
		s.metrics.RecordSubscription(metrics.OutcomeError)
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "subscription storage is unavailable")
	default:
		s.metrics.RecordSubscription(metrics.OutcomeError)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load existing subscription")
	}
}

// Confirm redeems a confirmation token. Redemption is one-shot: the winning
// call flips the subscriber to confirmed, every later call is rejected as
// unauthorized.
func (s *Service) Confirm(ctx context.Context, rawToken string) (*models.Subscriber, error) {
	confirmationToken, err := models.ParseConfirmationToken(rawToken)
	if err != nil {
		s.metrics.RecordConfirmation(metrics.OutcomeInvalid)
		return nil, err
	}

	subscriberID, err := s.store.Redeem(ctx, confirmationToken)
	switch {
	case err == nil:
	case errors.Is(err, sentinel.ErrNotFound):
		s.metrics.RecordConfirmation(metrics.OutcomeInvalid)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "confirmation token is invalid or already used")
	case errors.Is(err, sentinel.ErrUnavailable):
		s.metrics.RecordConfirmation(metrics.OutcomeError)
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "subscription storage is unavailable")
	default:
		s.metrics.RecordConfirmation(metrics.OutcomeError)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to redeem confirmation token")
	}

	subscriber, err := s.store.Get(ctx, subscriberID)
	if err != nil {
		s.metrics.RecordConfirmation(metrics.OutcomeError)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load confirmed subscriber")
	}

	s.emitAudit(ctx, subscriber, audit.ActionSubscriptionConfirmed, "")
	s.metrics.RecordConfirmation(metrics.OutcomeAccepted)
	s.logger.Info("subscription confirmed",
		slog.String("subscriber_id", subscriber.ID.String()),
		slog.String("request_id", requestcontext.RequestID(ctx)),
	)
	return subscriber, nil
}

func (s *Service) sendConfirmation(ctx context.Context, subscriber *models.Subscriber, confirmationToken models.ConfirmationToken) error {
	link := fmt.Sprintf("%s/subscriptions/confirm?subscription_token=%s", s.baseURL, confirmationToken)

	err := s.notifier.Send(ctx, notify.Email{
		To:      subscriber.Email.String(),
		Subject: "Welcome to our newsletter!",
		HTMLBody: fmt.Sprintf(
			"Welcome to our newsletter!<br />Click <a href=\"%s\">here</a> to confirm your subscription.",
			link,
		),
		TextBody: fmt.Sprintf(
			"Welcome to our newsletter!\nVisit %s to confirm your subscription.",
			link,
		),
	})
	if err != nil {
		s.metrics.RecordEmailFailure()
		s.emitAudit(ctx, subscriber, audit.ActionConfirmationEmailError, err.Error())
		s.logger.Error("failed to send confirmation email",
			slog.String("subscriber_id", subscriber.ID.String()),
			slog.String("error", err.Error()),
		)
		if errors.Is(err, notify.ErrTimeout) || errors.Is(err, sentinel.ErrUnavailable) {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "confirmation email could not be delivered")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "confirmation email could not be delivered")
	}

	s.metrics.RecordEmailSent()
	s.emitAudit(ctx, subscriber, audit.ActionConfirmationEmailSent, "")
	return nil
}

func (s *Service) emitAudit(ctx context.Context, subscriber *models.Subscriber, action, detail string) {
	if s.audits == nil {
		return
	}
	event := audit.Event{
		Timestamp: requestcontext.Now(ctx),
		Action:    action,
		RequestID: requestcontext.RequestID(ctx),
		Detail:    detail,
	}
	if subscriber != nil {
		event.SubscriberID = subscriber.ID
		event.Email = subscriber.Email.String()
	}
	s.audits.Emit(event)
}
