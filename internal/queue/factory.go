package queue

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Queue bundles the publisher and consumer for one backend. Dequeuer is
// nil when the queue was built without a handler.
type Queue struct {
	Enqueuer Enqueuer
	Dequeuer Dequeuer
	closeFn  func() error
}

// Close releases the backend client.
func (q *Queue) Close() error {
	if q.closeFn == nil {
		return nil
	}
	return q.closeFn()
}

// New builds a Queue for cfg.Type. A nil handler yields an enqueue-only
// queue, used by producers.
func New(ctx context.Context, cfg Config, handler MessageHandler, log zerolog.Logger) (*Queue, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	switch cfg.Type {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		q := &Queue{
			Enqueuer: NewRedisEnqueuer(client, cfg.Stream),
			closeFn:  client.Close,
		}
		if handler != nil {
			q.Dequeuer = NewRedisDequeuer(client, handler, cfg, log)
		}
		return q, nil

	case "sqs":
		client, err := newAWSSQSClient(ctx, cfg.SQSRegion)
		if err != nil {
			return nil, fmt.Errorf("create sqs client: %w", err)
		}
		q := &Queue{Enqueuer: NewSQSEnqueuer(client, cfg.SQSQueueURL)}
		if handler != nil {
			q.Dequeuer = NewSQSDequeuer(client, handler, cfg, log)
		}
		return q, nil

	default:
		return nil, fmt.Errorf("unknown queue type: %s", cfg.Type)
	}
}
