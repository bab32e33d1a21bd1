package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/djdiptayan1/HRone/pkg/domain"
	"github.com/djdiptayan1/HRone/pkg/kafka"
	"github.com/djdiptayan1/HRone/pkg/mylogger"
	outboxDomain "github.com/djdiptayan1/HRone/pkg/outbox/domain"
	"go.uber.org/zap"
)

type CacheInvalidator interface {
	Invalidate(ctx context.Context, ids ...string) error
}

// Consumer drops cached products whenever an event says their stock or
// details may have changed.
type Consumer struct {
	cache  CacheInvalidator
	logger *zap.Logger
}

func NewConsumer(cache CacheInvalidator, logger *zap.Logger) *Consumer {
	return &Consumer{
		cache:  cache,
		logger: logger,
	}
}

func (c *Consumer) Start(ctx context.Context, brokers []string, groupID string, topics []string) error {
	consumerGroup := kafka.NewConsumerGroup(
		brokers,
		groupID,
		topics,
		c.ProcessMessage,
		c.logger,
	)

	return consumerGroup.Run(ctx)
}

func (c *Consumer) ProcessMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	mylogger.Debug(
		ctx,
		c.logger,
		"Processing message",
		zap.String("topic", msg.Topic),
		zap.Int64("offset", msg.Offset),
	)

	var envelope outboxDomain.Envelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		mylogger.Error(ctx, c.logger, "Error unmarshalling envelope", zap.Error(err))
		return err
	}

	ids, err := affectedProducts(envelope)
	if err != nil {
		mylogger.Warn(
			ctx,
			c.logger,
			"Error unmarshalling event structure",
			zap.String("event_type", envelope.Event),
			zap.Error(err),
		)
		return err
	}

	if len(ids) == 0 {
		return nil
	}

	if err := c.cache.Invalidate(ctx, ids...); err != nil {
		mylogger.Warn(ctx, c.logger, "Error invalidating product cache", zap.Strings("product_ids", ids), zap.Error(err))
		return err
	}

	mylogger.Debug(
		ctx,
		c.logger,
		"Invalidated cached products",
		zap.String("event_type", envelope.Event),
		zap.Strings("product_ids", ids),
	)

	return nil
}

// affectedProducts lists the product ids whose cached copy is stale after
// the event. OrderDeleted carries no items and touches no stock.
func affectedProducts(envelope outboxDomain.Envelope) ([]string, error) {
	switch envelope.Event {
	case domain.EventOrderPlaced:
		var event domain.OrderPlacedEvent
		if err := json.Unmarshal(envelope.Payload, &event); err != nil {
			return nil, fmt.Errorf("decode %s: %w", envelope.Event, err)
		}

		return lineProducts(event.Items), nil
	case domain.EventOrderUpdated:
		var event domain.OrderUpdatedEvent
		if err := json.Unmarshal(envelope.Payload, &event); err != nil {
			return nil, fmt.Errorf("decode %s: %w", envelope.Event, err)
		}

		return lineProducts(event.Items), nil
	case domain.EventProductUpserted:
		var event domain.ProductUpsertedEvent
		if err := json.Unmarshal(envelope.Payload, &event); err != nil {
			return nil, fmt.Errorf("decode %s: %w", envelope.Event, err)
		}

		return []string{event.ProductID}, nil
	case domain.EventProductDeleted:
		var event domain.ProductDeletedEvent
		if err := json.Unmarshal(envelope.Payload, &event); err != nil {
			return nil, fmt.Errorf("decode %s: %w", envelope.Event, err)
		}

		return []string{event.ProductID}, nil
	default:
		return nil, nil
	}
}

func lineProducts(lines []domain.OrderLine) []string {
	seen := make(map[string]struct{}, len(lines))
	ids := make([]string, 0, len(lines))

	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}

	return ids
}
