package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"inkwell/internal/subscription/models"
	"inkwell/pkg/platform/sentinel"
	txcontext "inkwell/pkg/platform/tx"
)

// Postgres persists subscribers in PostgreSQL. All multi-row writes run in a
// transaction with a single commit point; an ambient transaction in the
// context is joined instead of opening a new one.
type Postgres struct {
	db     *sql.DB
	runner *txcontext.Runner
}

// NewPostgres constructs a PostgreSQL-backed subscription store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db, runner: txcontext.NewRunner(db)}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// inTx runs fn inside the ambient transaction when one is present, otherwise
// inside a fresh one.
func (s *Postgres) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txcontext.From(ctx); ok {
		return fn(ctx)
	}
	return s.runner.RunInTx(ctx, fn)
}

func (s *Postgres) CreatePending(ctx context.Context, subscriber *models.Subscriber, token models.ConfirmationToken) error {
	if subscriber == nil {
		return fmt.Errorf("subscriber is required")
	}
	if token.IsZero() {
		return fmt.Errorf("confirmation token is required")
	}

	err := s.inTx(ctx, func(txCtx context.Context) error {
		ex := s.execer(txCtx)
		_, err := ex.ExecContext(txCtx, `
			INSERT INTO subscriptions (id, email, name, status, subscribed_at)
			VALUES ($1, $2, $3, $4, $5)
		`, subscriber.ID, subscriber.Email.String(), subscriber.Name.String(), string(subscriber.Status), subscriber.SubscribedAt)
		if err != nil {
			return err
		}
		_, err = ex.ExecContext(txCtx, `
			INSERT INTO subscription_tokens (subscription_token, subscriber_id)
			VALUES ($1, $2)
		`, token.String(), subscriber.ID)
		return err
	})
	if err != nil {
		return classify(fmt.Sprintf("create pending %s", subscriber.Email), err)
	}
	return nil
}

func (s *Postgres) PendingByEmail(ctx context.Context, email models.SubscriberEmail) (*models.Subscriber, models.ConfirmationToken, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		SELECT s.id, s.email, s.name, s.status, s.subscribed_at, COALESCE(t.subscription_token, '')
		FROM subscriptions s
		LEFT JOIN subscription_tokens t ON t.subscriber_id = s.id
		WHERE s.email = $1
	`, email.String())

	subscriber, tok, err := scanSubscriberWithToken(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", fmt.Errorf("pending by email %s: %w", email, sentinel.ErrNotFound)
		}
		return nil, "", classify(fmt.Sprintf("pending by email %s", email), err)
	}
	if subscriber.Status == models.StatusConfirmed {
		return subscriber, "", fmt.Errorf("pending by email %s: %w", email, sentinel.ErrAlreadyUsed)
	}
	return subscriber, tok, nil
}

// Redeem consumes the token and confirms its subscriber in one transaction.
// DELETE ... RETURNING takes a row lock, so concurrent redemptions of the
// same token serialize at the database and exactly one of them finds the row.
func (s *Postgres) Redeem(ctx context.Context, token models.ConfirmationToken) (uuid.UUID, error) {
	var subscriberID uuid.UUID
	err := s.inTx(ctx, func(txCtx context.Context) error {
		ex := s.execer(txCtx)
		err := ex.QueryRowContext(txCtx, `
			DELETE FROM subscription_tokens
			WHERE subscription_token = $1
			RETURNING subscriber_id
		`, token.String()).Scan(&subscriberID)
		if err != nil {
			return err
		}
		_, err = ex.ExecContext(txCtx, `
			UPDATE subscriptions SET status = $1 WHERE id = $2
		`, string(models.StatusConfirmed), subscriberID)
		return err
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("redeem token: %w", sentinel.ErrNotFound)
		}
		return uuid.Nil, classify("redeem token", err)
	}
	return subscriberID, nil
}

func (s *Postgres) Get(ctx context.Context, id uuid.UUID) (*models.Subscriber, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, email, name, status, subscribed_at
		FROM subscriptions
		WHERE id = $1
	`, id)

	subscriber, err := scanSubscriber(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get subscriber %s: %w", id, sentinel.ErrNotFound)
		}
		return nil, classify(fmt.Sprintf("get subscriber %s", id), err)
	}
	return subscriber, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscriber(row rowScanner) (*models.Subscriber, error) {
	var (
		sub    models.Subscriber
		email  string
		name   string
		status string
	)
	if err := row.Scan(&sub.ID, &email, &name, &status, &sub.SubscribedAt); err != nil {
		return nil, err
	}
	return rehydrate(&sub, email, name, status)
}

func scanSubscriberWithToken(row rowScanner) (*models.Subscriber, models.ConfirmationToken, error) {
	var (
		sub    models.Subscriber
		email  string
		name   string
		status string
		tok    string
	)
	if err := row.Scan(&sub.ID, &email, &name, &status, &sub.SubscribedAt, &tok); err != nil {
		return nil, "", err
	}
	subscriber, err := rehydrate(&sub, email, name, status)
	if err != nil {
		return nil, "", err
	}
	return subscriber, models.ConfirmationToken(tok), nil
}

// rehydrate re-runs the domain validation on stored values. Rows are only
// written through the parse gate, so a failure here means corruption rather
// than bad input.
func rehydrate(sub *models.Subscriber, email, name, status string) (*models.Subscriber, error) {
	parsedEmail, err := models.ParseEmail(email)
	if err != nil {
		return nil, fmt.Errorf("stored email %q failed validation: %w", email, err)
	}
	parsedName, err := models.ParseName(name)
	if err != nil {
		return nil, fmt.Errorf("stored name failed validation: %w", err)
	}
	sub.Email = parsedEmail
	sub.Name = parsedName
	sub.Status = models.SubscriberStatus(status)
	sub.SubscribedAt = sub.SubscribedAt.UTC()
	return sub, nil
}

// classify maps driver errors onto store sentinels so callers never branch
// on PostgreSQL error codes.
func classify(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%s: %v: %w", op, err, sentinel.ErrUnavailable)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s: %w", op, sentinel.ErrConflict)
		case "53300", "57P03", "08000", "08001", "08006": // connection saturation / startup
			return fmt.Errorf("%s: %v: %w", op, err, sentinel.ErrUnavailable)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
