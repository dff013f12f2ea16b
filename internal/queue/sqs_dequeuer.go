package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SQSDequeuer runs a pool of workers long-polling an SQS queue.
type SQSDequeuer struct {
	client   sqsAPI
	queueURL string
	handler  MessageHandler
	config   Config
	log      zerolog.Logger
	wg       sync.WaitGroup
	cancel   context.CancelFunc
}

func NewSQSDequeuer(client sqsAPI, handler MessageHandler, cfg Config, log zerolog.Logger) *SQSDequeuer {
	return &SQSDequeuer{
		client:   client,
		queueURL: cfg.SQSQueueURL,
		handler:  handler,
		config:   cfg.withDefaults(),
		log:      log,
	}
}

// Start launches the workers.
func (d *SQSDequeuer) Start(ctx context.Context) error {
	ctx, d.cancel = context.WithCancel(ctx)

	for i := range d.config.WorkerCount {
		d.wg.Add(1)
		go d.runWorker(ctx, fmt.Sprintf("sqs-worker-%d", i))
	}

	d.log.Info().
		Int("worker_count", d.config.WorkerCount).
		Str("queue_url", d.queueURL).
		Msg("sqs dequeuer started")

	return nil
}

// Stop cancels the workers and waits up to the shutdown timeout.
func (d *SQSDequeuer) Stop(ctx context.Context) error {
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
		d.log.Info().Msg("sqs dequeuer stopped gracefully")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d.config.ShutdownTimeout):
		d.log.Warn().Msg("sqs dequeuer shutdown timed out")
		return fmt.Errorf("shutdown timed out after %s", d.config.ShutdownTimeout)
	}
}

func (d *SQSDequeuer) runWorker(ctx context.Context, workerName string) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		out, err := d.client.ReceiveMessage(ctx, &sqsReceiveInput{
			QueueURL:            d.queueURL,
			MaxNumberOfMessages: 1,
			WaitTimeSeconds:     d.config.SQSWaitTime,
			VisibilityTimeout:   d.config.SQSVisTimeout,
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d.log.Error().Err(err).Str("worker", workerName).Msg("sqs receive error")
			continue
		}

		for _, sqsMsg := range out.Messages {
			d.processMessage(ctx, sqsMsg)
		}
	}
}

// processMessage handles one message and deletes it regardless of outcome.
func (d *SQSDequeuer) processMessage(ctx context.Context, sqsMsg sqsReceivedMessage) {
	defer func() {
		if err := d.client.DeleteMessage(context.WithoutCancel(ctx), &sqsDeleteInput{
			QueueURL:      d.queueURL,
			ReceiptHandle: sqsMsg.ReceiptHandle,
		}); err != nil {
			d.log.Error().Err(err).Str("sqs_message_id", sqsMsg.MessageID).Msg("failed to delete sqs message")
		}
	}()

	var msg Message
	if err := json.Unmarshal([]byte(sqsMsg.Body), &msg); err != nil {
		d.log.Error().Err(err).Str("sqs_message_id", sqsMsg.MessageID).Msg("discarding malformed sqs message")
		return
	}
	if msg.ID == "" {
		msg.ID = sqsMsg.MessageID
	}

	start := time.Now()
	processCtx, cancel := context.WithTimeout(ctx, d.config.ProcessTimeout)
	defer cancel()

	_ = d.handler.HandleMessage(processCtx, &msg)
	MessageProcessingDuration.Observe(time.Since(start).Seconds())
}
