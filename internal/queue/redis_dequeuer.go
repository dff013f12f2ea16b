package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisDequeuer runs a pool of workers reading a Redis stream through a
// consumer group.
type RedisDequeuer struct {
	client  *redis.Client
	handler MessageHandler
	config  Config
	log     zerolog.Logger
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

// NewRedisDequeuer creates a RedisDequeuer for cfg.Stream and cfg.Group.
func NewRedisDequeuer(client *redis.Client, handler MessageHandler, cfg Config, log zerolog.Logger) *RedisDequeuer {
	return &RedisDequeuer{
		client:  client,
		handler: handler,
		config:  cfg.withDefaults(),
		log:     log,
	}
}

// Start creates the consumer group if needed and launches the workers.
func (d *RedisDequeuer) Start(ctx context.Context) error {
	if err := d.createConsumerGroup(ctx); err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}

	ctx, d.cancel = context.WithCancel(ctx)

	for i := range d.config.WorkerCount {
		d.wg.Add(1)
		go d.runWorker(ctx, fmt.Sprintf("worker-%d", i))
	}

	d.log.Info().
		Int("worker_count", d.config.WorkerCount).
		Str("stream", d.config.Stream).
		Str("group", d.config.Group).
		Msg("redis dequeuer started")

	return nil
}

// Stop signals all workers and waits up to the shutdown timeout.
func (d *RedisDequeuer) Stop(ctx context.Context) error {
	if d.cancel == nil {
		return nil
	}
	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.log.Info().Msg("redis dequeuer stopped gracefully")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d.config.ShutdownTimeout):
		d.log.Warn().Msg("redis dequeuer shutdown timed out")
		return fmt.Errorf("shutdown timed out after %s", d.config.ShutdownTimeout)
	}
}

func (d *RedisDequeuer) createConsumerGroup(ctx context.Context) error {
	err := d.client.XGroupCreateMkStream(ctx, d.config.Stream, d.config.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group %s on stream %s: %w", d.config.Group, d.config.Stream, err)
	}
	return nil
}

func (d *RedisDequeuer) runWorker(ctx context.Context, consumerName string) {
	defer d.wg.Done()

	d.log.Debug().Str("consumer", consumerName).Msg("worker started")

	for {
		select {
		case <-ctx.Done():
			d.log.Debug().Str("consumer", consumerName).Msg("worker stopping")
			return
		default:
		}

		xStreams, err := d.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    d.config.Group,
			Consumer: consumerName,
			Streams:  []string{d.config.Stream, ">"},
			Count:    1,
			Block:    d.config.BlockTimeout,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			d.log.Error().Err(err).Str("consumer", consumerName).Msg("xreadgroup error")
			continue
		}

		for _, stream := range xStreams {
			for _, xMsg := range stream.Messages {
				d.processMessage(ctx, xMsg)
			}
		}
	}
}

// processMessage decodes and handles one entry. Entries are acknowledged
// whatever the outcome; failed deliveries are already logged as records.
func (d *RedisDequeuer) processMessage(ctx context.Context, xMsg redis.XMessage) {
	defer func() {
		if err := d.client.XAck(context.WithoutCancel(ctx), d.config.Stream, d.config.Group, xMsg.ID).Err(); err != nil {
			d.log.Error().Err(err).Str("entry_id", xMsg.ID).Msg("failed to acknowledge message")
		}
	}()

	msg, err := decodeEntry(xMsg)
	if err != nil {
		d.log.Error().Err(err).Str("entry_id", xMsg.ID).Msg("discarding malformed stream entry")
		return
	}

	start := time.Now()
	processCtx, cancel := context.WithTimeout(ctx, d.config.ProcessTimeout)
	defer cancel()

	_ = d.handler.HandleMessage(processCtx, msg)
	MessageProcessingDuration.Observe(time.Since(start).Seconds())
}

func decodeEntry(xMsg redis.XMessage) (*Message, error) {
	data, ok := xMsg.Values["data"].(string)
	if !ok {
		return nil, errors.New("missing data field")
	}
	var msg Message
	if err := json.Unmarshal([]byte(data), &msg); err != nil {
		return nil, fmt.Errorf("unmarshal message: %w", err)
	}
	if msg.ID == "" {
		msg.ID = xMsg.ID
	}
	return &msg, nil
}
