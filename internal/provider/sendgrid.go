package provider

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendgridDefaultEndpoint = "https://api.sendgrid.com"
	sendgridSendPath        = "/v3/mail/send"
)

// SendGrid implements the Provider interface for the SendGrid v3 API.
type SendGrid struct {
	apiKey    string
	endpoint  string
	fromEmail string
	fromName  string
	client    HTTPClient
}

// NewSendGrid creates a SendGrid provider. It fails when no API key is configured.
func NewSendGrid(cfg SendGridConfig, client HTTPClient) (*SendGrid, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = sendgridDefaultEndpoint
	}
	if client == nil {
		client = NewHTTPClient(cfg.Timeout)
	}
	return &SendGrid{
		apiKey:    cfg.APIKey,
		endpoint:  endpoint,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		client:    client,
	}, nil
}

func (s *SendGrid) GetName() string { return "sendgrid" }

// Send delivers a message via the SendGrid v3 Mail Send API.
func (s *SendGrid) Send(ctx context.Context, msg *Message) (*DeliveryResult, error) {
	body := mail.GetRequestBody(s.buildPayload(msg))

	resp, err := s.client.Do(ctx, &HTTPRequest{
		Method: "POST",
		URL:    s.endpoint + sendgridSendPath,
		Headers: map[string]string{
			"Authorization": "Bearer " + s.apiKey,
			"Content-Type":  "application/json",
		},
		Body: body,
	})
	if err != nil {
		return nil, &ProviderError{Provider: s.GetName(), Message: "send request", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderError{
			Provider:   s.GetName(),
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("status %d: %s", resp.StatusCode, truncate(string(resp.Body), 512)),
		}
	}

	messageID := resp.Headers["X-Message-Id"]
	if messageID == "" {
		messageID = uuid.NewString()
	}
	return &DeliveryResult{
		ProviderMessageID: messageID,
		Timestamp:         time.Now().UTC(),
	}, nil
}

func (s *SendGrid) buildPayload(msg *Message) *mail.SGMailV3 {
	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail(s.fromName, s.fromEmail))
	m.Subject = msg.Subject

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail(msg.ToName, msg.To))
	m.AddPersonalizations(p)

	// SendGrid requires text/plain to precede text/html.
	if msg.TextBody != "" {
		m.AddContent(mail.NewContent("text/plain", msg.TextBody))
	}
	if msg.HTMLBody != "" {
		m.AddContent(mail.NewContent("text/html", msg.HTMLBody))
	}
	return m
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
