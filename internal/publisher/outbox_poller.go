// Package publisher drains the order-event outbox to Kafka. Events are
// recorded in the same transaction as the order they describe, so a crash
// between commit and publish only delays delivery, it never loses the event.
package publisher

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/fjod/go_shop/internal/repository"
)

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// EventStore is the slice of the repository the poller needs.
type EventStore interface {
	UnprocessedOrderEvents(ctx context.Context, limit int) ([]*repository.OrderEvent, error)
	MarkOrderEventProcessed(ctx context.Context, id uuid.UUID) error
}

type OutboxPoller struct {
	tick      time.Duration
	batchSize int
	repo      EventStore
	writer    MessageWriter
	logger    *zap.Logger
}

func NewOutboxPoller(repo EventStore, logger *zap.Logger, topic string, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &OutboxPoller{
		tick:      time.Second,
		batchSize: 100,
		repo:      repo,
		writer:    w,
		logger:    logger,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.UnprocessedOrderEvents(ctx, p.batchSize)
	if err != nil {
		p.logger.Error("failed to fetch order events", zap.Error(err))
		return
	}

	for _, event := range events {
		msg := kafka.Message{
			// key by order id so events for one order stay ordered
			Key:   []byte(strconv.FormatInt(event.OrderID, 10)),
			Value: event.Payload,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(event.EventType)},
				{Key: "event_id", Value: []byte(event.ID.String())},
			},
		}
		if err := p.writer.WriteMessages(ctx, msg); err != nil {
			p.logger.Error("failed to publish order event",
				zap.String("event_id", event.ID.String()), zap.Error(err))
			continue
		}

		if err := p.repo.MarkOrderEventProcessed(ctx, event.ID); err != nil {
			p.logger.Error("failed to mark order event as processed",
				zap.String("event_id", event.ID.String()), zap.Error(err))
			continue
		}
	}
}
