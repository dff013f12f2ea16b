package provider

import (
	"errors"
	"time"
)

const defaultTimeout = 30 * time.Second

// SendGridConfig holds the hosted-API credential and sender identity.
type SendGridConfig struct {
	APIKey    string
	Endpoint  string // overrides the API base URL, for tests
	FromEmail string
	FromName  string
	Timeout   time.Duration
}

// Validate checks that the credential and sender are present.
func (c *SendGridConfig) Validate() error {
	if c.APIKey == "" {
		return errors.New("sendgrid: api_key is required")
	}
	if c.FromEmail == "" {
		return errors.New("sendgrid: from_email is required")
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	return nil
}

// SMTPConfig holds relay connection settings and sender identity.
type SMTPConfig struct {
	Host      string
	Port      int
	Secure    bool // implicit TLS; otherwise STARTTLS is used when offered
	Username  string
	Password  string
	FromEmail string
	FromName  string
	Timeout   time.Duration
	LocalName string

	// InsecureSkipVerify disables certificate checks. Test relays only.
	InsecureSkipVerify bool
}

// Validate checks host, port and sender.
func (c *SMTPConfig) Validate() error {
	if c.Host == "" {
		return errors.New("smtp: host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.New("smtp: port is out of range")
	}
	if c.FromEmail == "" {
		return errors.New("smtp: from_email is required")
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.LocalName == "" {
		c.LocalName = "localhost"
	}
	return nil
}
