package delivery

import (
	"context"
	"time"
)

// Dispatcher delivers a single email request and returns its audit record.
// The engine is the only implementation; the HTTP and queue front-ends
// depend on this interface.
type Dispatcher interface {
	Dispatch(ctx context.Context, req *Request) (*Record, error)
}

// Request is a send request as submitted by a caller.
type Request struct {
	ToEmail          string         `json:"to_email"`
	ToName           string         `json:"to_name,omitempty"`
	Subject          string         `json:"subject"`
	Body             string         `json:"body"`
	TemplateData     map[string]any `json:"template_data,omitempty"`
	EventType        string         `json:"event_type,omitempty"`
	RelatedUserID    string         `json:"related_user_id,omitempty"`
	RelatedProjectID string         `json:"related_project_id,omitempty"`
}

// Status is the outcome of a dispatch attempt.
type Status string

const (
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

// Record is the immutable audit entry produced for every dispatch attempt.
type Record struct {
	ID               string     `json:"id"`
	ToEmail          string     `json:"to_email"`
	ToName           string     `json:"to_name,omitempty"`
	Subject          string     `json:"subject"`
	Status           Status     `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	SentAt           *time.Time `json:"sent_at"`
	Provider         string     `json:"provider"`
	MessageID        *string    `json:"message_id"`
	EventType        string     `json:"event_type,omitempty"`
	RelatedUserID    string     `json:"related_user_id,omitempty"`
	RelatedProjectID string     `json:"related_project_id,omitempty"`
	ErrorMessage     *string    `json:"error_message"`
}

// Content is the rendered message as handed to the provider.
type Content struct {
	RecordID string    `json:"record_id"`
	Subject  string    `json:"subject"`
	Text     string    `json:"text"`
	HTML     string    `json:"html"`
	Created  time.Time `json:"created_at"`
}
