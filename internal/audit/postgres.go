package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	txcontext "inkwell/pkg/platform/tx"
)

// PostgresStore persists the audit trail in the audit_events table. Writes
// join an ambient transaction when one is present on the context.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	var subscriberID any
	if event.SubscriberID != uuid.Nil {
		subscriberID = event.SubscriberID
	}

	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO audit_events (id, subscriber_id, email, action, request_id, detail, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New(), subscriberID, event.Email, event.Action, event.RequestID, event.Detail, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("appending audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBySubscriber(ctx context.Context, subscriberID uuid.UUID) ([]Event, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT subscriber_id, email, action, request_id, detail, occurred_at
		FROM audit_events
		WHERE subscriber_id = $1
		ORDER BY occurred_at`,
		subscriberID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]Event, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT subscriber_id, email, action, request_id, detail, occurred_at
		FROM audit_events
		ORDER BY occurred_at DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing recent audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var event Event
		var subscriberID uuid.NullUUID
		if err := rows.Scan(&subscriberID, &event.Email, &event.Action, &event.RequestID, &event.Detail, &event.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning audit event: %w", err)
		}
		if subscriberID.Valid {
			event.SubscriberID = subscriberID.UUID
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit events: %w", err)
	}
	return events, nil
}
