package kafka

import (
	"context"

	"github.com/djdiptayan1/HRone/pkg/utils"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type breakerProducer struct {
	next Producer
	cb   *gobreaker.CircuitBreaker
}

// WithBreaker guards next with a circuit breaker. While the breaker is open
// ProduceMessage fails fast with gobreaker.ErrOpenState.
func WithBreaker(next Producer, logger *zap.Logger) Producer {
	return &breakerProducer{
		next: next,
		cb:   utils.NewBreaker("KafkaProducer", logger),
	}
}

func (p *breakerProducer) ProduceMessage(ctx context.Context, topic, key string, message interface{}) error {
	_, err := utils.ExecuteWithBreaker(p.cb, func() (struct{}, error) {
		return struct{}{}, p.next.ProduceMessage(ctx, topic, key, message)
	})

	return err
}

func (p *breakerProducer) Close() error {
	return p.next.Close()
}
