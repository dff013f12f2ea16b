package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/sungwon/email-dispatch/internal/delivery"
)

// Message is the queue payload: the same JSON fields as an HTTP send
// request, plus an optional envelope id and enqueue time. Producers that
// publish a bare send request are accepted.
type Message struct {
	ID         string     `json:"message_id,omitempty"`
	EnqueuedAt *time.Time `json:"enqueued_at,omitempty"`
	delivery.Request
}

// NewMessage wraps req with a generated id and the current time.
func NewMessage(req *delivery.Request) *Message {
	now := time.Now().UTC()
	return &Message{
		ID:         uuid.NewString(),
		EnqueuedAt: &now,
		Request:    *req,
	}
}
