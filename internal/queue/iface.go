package queue

import "context"

// Enqueuer publishes messages to the queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, msg *Message) (string, error)
}

// Dequeuer consumes messages from the queue.
// Start begins consuming in background goroutines.
// Stop shuts down consumers, waiting up to the configured timeout.
type Dequeuer interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// MessageHandler processes a single queue message. Every message is
// acknowledged after HandleMessage returns, whatever the result.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg *Message) error
}
