package queue

import (
	"errors"
	"time"
)

// Config holds configuration for the queue system.
type Config struct {
	// Type selects the queue backend: "redis" (default) or "sqs".
	Type            string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	Stream          string
	Group           string
	WorkerCount     int
	BlockTimeout    time.Duration
	ProcessTimeout  time.Duration
	ShutdownTimeout time.Duration

	SQSQueueURL   string
	SQSRegion     string
	SQSWaitTime   int32 // long poll seconds
	SQSVisTimeout int32 // seconds
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Type:            "redis",
		RedisAddr:       "localhost:6379",
		Stream:          "email-notifications",
		Group:           "email-service",
		WorkerCount:     4,
		BlockTimeout:    5 * time.Second,
		ProcessTimeout:  60 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		SQSWaitTime:     20,
		SQSVisTimeout:   60,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Type == "" {
		c.Type = d.Type
	}
	if c.RedisAddr == "" {
		c.RedisAddr = d.RedisAddr
	}
	if c.Stream == "" {
		c.Stream = d.Stream
	}
	if c.Group == "" {
		c.Group = d.Group
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = d.WorkerCount
	}
	if c.BlockTimeout <= 0 {
		c.BlockTimeout = d.BlockTimeout
	}
	if c.ProcessTimeout <= 0 {
		c.ProcessTimeout = d.ProcessTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	if c.SQSWaitTime <= 0 {
		c.SQSWaitTime = d.SQSWaitTime
	}
	if c.SQSVisTimeout <= 0 {
		c.SQSVisTimeout = d.SQSVisTimeout
	}
	return c
}

// Validate checks backend-specific required fields.
func (c Config) Validate() error {
	switch c.Type {
	case "", "redis":
		return nil
	case "sqs":
		if c.SQSQueueURL == "" {
			return errors.New("queue: sqs_queue_url is required for sqs")
		}
		return nil
	default:
		return errors.New("queue: type must be redis or sqs")
	}
}
