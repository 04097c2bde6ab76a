package audit

import (
	"context"
	"log/slog"
	"time"
)

// Publisher hands events to the background worker over a buffered channel.
// Emit never blocks the caller: when the buffer is full the event is dropped
// and the drop is logged. The trail is best-effort by contract.
type Publisher struct {
	inbox  chan<- Event
	logger *slog.Logger
}

func NewPublisher(inbox chan<- Event, logger *slog.Logger) *Publisher {
	return &Publisher{inbox: inbox, logger: logger}
}

// Emit queues an event for persistence. Nil-safe so tests can omit auditing.
func (p *Publisher) Emit(event Event) {
	if p == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.Warn("audit buffer full, dropping event",
			slog.String("action", event.Action),
			slog.String("email", event.Email),
		)
	}
}

// Worker consumes audit events from a channel and persists them. Persistence
// failures are logged and skipped so one bad event cannot stall the trail.
type Worker struct {
	store  Store
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(store Store, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, logger: logger}
}

// Run drains the inbox until ctx is cancelled, then flushes whatever is
// already buffered before returning.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.flush()
			return ctx.Err()
		case event := <-w.inbox:
			w.append(ctx, event)
		}
	}
}

func (w *Worker) flush() {
	// Detached context: the run context is already cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for {
		select {
		case event := <-w.inbox:
			w.append(ctx, event)
		default:
			return
		}
	}
}

func (w *Worker) append(ctx context.Context, event Event) {
	if err := w.store.Append(ctx, event); err != nil {
		w.logger.Error("failed to persist audit event",
			slog.String("action", event.Action),
			slog.String("error", err.Error()),
		)
	}
}
