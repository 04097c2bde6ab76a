package audit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInMemoryStoreListBySubscriber(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	subscriberID := uuid.New()
	other := uuid.New()

	require.NoError(t, store.Append(ctx, Event{SubscriberID: subscriberID, Action: ActionSubscriptionRequested}))
	require.NoError(t, store.Append(ctx, Event{SubscriberID: other, Action: ActionSubscriptionRequested}))
	require.NoError(t, store.Append(ctx, Event{SubscriberID: subscriberID, Action: ActionSubscriptionConfirmed}))

	events, err := store.ListBySubscriber(ctx, subscriberID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, ActionSubscriptionRequested, events[0].Action)
	assert.Equal(t, ActionSubscriptionConfirmed, events[1].Action)
}

func TestInMemoryStoreListRecent(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	for _, action := range []string{ActionSubscriptionRequested, ActionConfirmationEmailSent, ActionSubscriptionConfirmed} {
		require.NoError(t, store.Append(ctx, Event{Action: action}))
	}

	events, err := store.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, ActionConfirmationEmailSent, events[0].Action)
	assert.Equal(t, ActionSubscriptionConfirmed, events[1].Action)
}

func TestWorkerPersistsEmittedEvents(t *testing.T) {
	store := NewInMemoryStore()
	inbox := make(chan Event, 8)
	publisher := NewPublisher(inbox, discardLogger())
	worker := NewWorker(store, inbox, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = worker.Run(ctx)
	}()

	subscriberID := uuid.New()
	publisher.Emit(Event{SubscriberID: subscriberID, Action: ActionSubscriptionRequested})
	publisher.Emit(Event{SubscriberID: subscriberID, Action: ActionConfirmationEmailSent})

	require.Eventually(t, func() bool {
		events, err := store.ListBySubscriber(context.Background(), subscriberID)
		return err == nil && len(events) == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestWorkerFlushesBufferOnShutdown(t *testing.T) {
	store := NewInMemoryStore()
	inbox := make(chan Event, 8)
	publisher := NewPublisher(inbox, discardLogger())
	worker := NewWorker(store, inbox, discardLogger())

	subscriberID := uuid.New()
	publisher.Emit(Event{SubscriberID: subscriberID, Action: ActionSubscriptionRequested})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := worker.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	events, err := store.ListBySubscriber(context.Background(), subscriberID)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestEmitSetsTimestampAndNeverBlocks(t *testing.T) {
	inbox := make(chan Event, 1)
	publisher := NewPublisher(inbox, discardLogger())

	publisher.Emit(Event{Action: ActionSubscriptionRequested})
	// Buffer is full now; the second emit must drop instead of blocking.
	publisher.Emit(Event{Action: ActionSubscriptionConfirmed})

	event := <-inbox
	assert.Equal(t, ActionSubscriptionRequested, event.Action)
	assert.False(t, event.Timestamp.IsZero())
	assert.Empty(t, inbox)
}

func TestNilPublisherIsSafe(t *testing.T) {
	var publisher *Publisher
	publisher.Emit(Event{Action: ActionSubscriptionRequested})
}
