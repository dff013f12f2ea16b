package provider

import (
	"context"
	"time"
)

// Provider sends a single email through one delivery backend. Each Send
// makes exactly one outbound attempt; retry policy belongs to callers.
type Provider interface {
	// Send delivers msg and returns the provider-assigned message id.
	Send(ctx context.Context, msg *Message) (*DeliveryResult, error)
	// GetName returns the provider's identifier ("sendgrid", "smtp").
	GetName() string
}

// HTTPClient abstracts HTTP operations for testability.
type HTTPClient interface {
	Do(ctx context.Context, req *HTTPRequest) (*HTTPResponse, error)
}

// HTTPRequest represents an outgoing HTTP request.
type HTTPRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// HTTPResponse represents an HTTP response from a provider API.
type HTTPResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// Message is a rendered email ready for delivery to a single recipient.
type Message struct {
	ID       string
	To       string
	ToName   string
	Subject  string
	TextBody string
	HTMLBody string
}

// DeliveryResult contains the outcome of a successful delivery.
type DeliveryResult struct {
	ProviderMessageID string
	Timestamp         time.Time
}

// ProviderError is the single failure kind surfaced by adapters:
// authentication, network, timeout and recipient rejections all map here.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Provider + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Provider + ": " + e.Message
}

func (e *ProviderError) Unwrap() error { return e.Err }
