package publisher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fjod/go_shop/internal/repository"
)

type eventStoreMock struct {
	mu        sync.Mutex
	events    []*repository.OrderEvent
	processed []uuid.UUID

	fetchErr error
	markErr  error
}

func (m *eventStoreMock) UnprocessedOrderEvents(_ context.Context, limit int) ([]*repository.OrderEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	if len(m.events) > limit {
		return m.events[:limit], nil
	}
	return m.events, nil
}

func (m *eventStoreMock) MarkOrderEventProcessed(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return m.markErr
	}
	m.processed = append(m.processed, id)
	remaining := m.events[:0]
	for _, e := range m.events {
		if e.ID != id {
			remaining = append(remaining, e)
		}
	}
	m.events = remaining
	return nil
}

type writerMock struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
}

func (m *writerMock) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msgs...)
	return nil
}

func testPoller(store EventStore, writer MessageWriter) *OutboxPoller {
	return &OutboxPoller{
		tick:      time.Millisecond,
		batchSize: 100,
		repo:      store,
		writer:    writer,
		logger:    zap.NewNop(),
	}
}

func orderPlacedEvent(orderID int64) *repository.OrderEvent {
	return &repository.OrderEvent{
		ID:        uuid.New(),
		OrderID:   orderID,
		EventType: "order.placed",
		Payload:   []byte(`{"order_id":1,"status":"pending"}`),
		CreatedAt: time.Now(),
	}
}

func TestOutboxPoller_PublishesAndMarksProcessed(t *testing.T) {
	event := orderPlacedEvent(1)
	store := &eventStoreMock{events: []*repository.OrderEvent{event}}
	writer := &writerMock{}

	testPoller(store, writer).processUnpublishedEvents(context.Background())

	require.Len(t, writer.messages, 1)
	msg := writer.messages[0]
	assert.Equal(t, []byte("1"), msg.Key)
	assert.Equal(t, event.Payload, msg.Value)

	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("order.placed"), msg.Headers[0].Value)
	assert.Equal(t, "event_id", msg.Headers[1].Key)
	assert.Equal(t, []byte(event.ID.String()), msg.Headers[1].Value)

	require.Len(t, store.processed, 1)
	assert.Equal(t, event.ID, store.processed[0])
}

func TestOutboxPoller_PublishFailureLeavesEventUnprocessed(t *testing.T) {
	event := orderPlacedEvent(1)
	store := &eventStoreMock{events: []*repository.OrderEvent{event}}
	writer := &writerMock{err: assert.AnError}

	testPoller(store, writer).processUnpublishedEvents(context.Background())

	assert.Empty(t, store.processed, "a failed publish must leave the event for the next tick")
	assert.Len(t, store.events, 1)
}

func TestOutboxPoller_MarkFailureDoesNotStopBatch(t *testing.T) {
	store := &eventStoreMock{
		events:  []*repository.OrderEvent{orderPlacedEvent(1), orderPlacedEvent(2)},
		markErr: assert.AnError,
	}
	writer := &writerMock{}

	testPoller(store, writer).processUnpublishedEvents(context.Background())

	assert.Len(t, writer.messages, 2)
	assert.Empty(t, store.processed)
}

func TestOutboxPoller_FetchFailureIsQuiet(t *testing.T) {
	store := &eventStoreMock{fetchErr: assert.AnError}
	writer := &writerMock{}

	testPoller(store, writer).processUnpublishedEvents(context.Background())

	assert.Empty(t, writer.messages)
}

func TestOutboxPoller_RunStopsOnContextCancel(t *testing.T) {
	store := &eventStoreMock{events: []*repository.OrderEvent{orderPlacedEvent(1)}}
	writer := &writerMock{}
	poller := testPoller(store, writer)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		writer.mu.Lock()
		defer writer.mu.Unlock()
		return len(writer.messages) == 1
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after context cancellation")
	}
}
