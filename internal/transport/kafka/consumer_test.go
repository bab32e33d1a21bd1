package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/djdiptayan1/HRone/pkg/domain"
	outboxDomain "github.com/djdiptayan1/HRone/pkg/outbox/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingCache struct {
	calls [][]string
	err   error
}

func (r *recordingCache) Invalidate(_ context.Context, ids ...string) error {
	r.calls = append(r.calls, ids)
	return r.err
}

func message(t *testing.T, topic, eventType string, payload any) *sarama.ConsumerMessage {
	t.Helper()

	event, err := outboxDomain.NewEvent(topic, "Test", "agg-1", eventType, payload)
	require.NoError(t, err)

	return &sarama.ConsumerMessage{Topic: topic, Value: event.Payload}
}

func TestProcessMessage_InvalidatesAffectedProducts(t *testing.T) {
	tests := []struct {
		name  string
		msg   func(t *testing.T) *sarama.ConsumerMessage
		calls [][]string
	}{
		{
			name: "order placed",
			msg: func(t *testing.T) *sarama.ConsumerMessage {
				return message(t, "order_events", domain.EventOrderPlaced, domain.OrderPlacedEvent{
					OrderID: "o1",
					Items: []domain.OrderLine{
						{ProductID: "p1", Qty: 1},
						{ProductID: "p2", Qty: 2},
						{ProductID: "p1", Qty: 3},
					},
					PlacedAt: time.Now(),
				})
			},
			calls: [][]string{{"p1", "p2"}},
		},
		{
			name: "order updated",
			msg: func(t *testing.T) *sarama.ConsumerMessage {
				return message(t, "order_events", domain.EventOrderUpdated, domain.OrderUpdatedEvent{
					OrderID: "o1",
					Items:   []domain.OrderLine{{ProductID: "p3", Qty: 1}},
				})
			},
			calls: [][]string{{"p3"}},
		},
		{
			name: "product upserted",
			msg: func(t *testing.T) *sarama.ConsumerMessage {
				return message(t, "product_events", domain.EventProductUpserted, domain.ProductUpsertedEvent{ProductID: "p4"})
			},
			calls: [][]string{{"p4"}},
		},
		{
			name: "product deleted",
			msg: func(t *testing.T) *sarama.ConsumerMessage {
				return message(t, "product_events", domain.EventProductDeleted, domain.ProductDeletedEvent{ProductID: "p5"})
			},
			calls: [][]string{{"p5"}},
		},
		{
			name: "order deleted touches nothing",
			msg: func(t *testing.T) *sarama.ConsumerMessage {
				return message(t, "order_events", domain.EventOrderDeleted, domain.OrderDeletedEvent{OrderID: "o1"})
			},
		},
		{
			name: "unknown event ignored",
			msg: func(t *testing.T) *sarama.ConsumerMessage {
				return message(t, "order_events", "SomethingElse", map[string]string{"x": "y"})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := &recordingCache{}
			consumer := NewConsumer(cache, zap.NewNop())

			require.NoError(t, consumer.ProcessMessage(context.Background(), tt.msg(t)))
			require.Equal(t, tt.calls, cache.calls)
		})
	}
}

func TestProcessMessage_Failures(t *testing.T) {
	consumer := NewConsumer(&recordingCache{}, zap.NewNop())

	err := consumer.ProcessMessage(context.Background(), &sarama.ConsumerMessage{Value: []byte("not json")})
	require.Error(t, err)

	err = consumer.ProcessMessage(context.Background(), &sarama.ConsumerMessage{
		Value: []byte(`{"event":"ProductDeleted","payload":"oops"}`),
	})
	require.Error(t, err)

	boom := errors.New("redis down")
	failing := NewConsumer(&recordingCache{err: boom}, zap.NewNop())

	err = failing.ProcessMessage(
		context.Background(),
		message(t, "product_events", domain.EventProductDeleted, domain.ProductDeletedEvent{ProductID: "p1"}),
	)
	require.ErrorIs(t, err, boom)
}
