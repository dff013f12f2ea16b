// Package main provides a CLI for submitting emails to the email service,
// either through the HTTP API or by publishing to the ingestion queue.
//
// Usage:
//
//	send-client --to user@example.com --subject "Hi {{name}}" --body "Hello {{name}}" --data name=Ada
//	send-client --mode queue --config ./config --to user@example.com --subject "Digest" --body "..." --count 10
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sungwon/email-dispatch/internal/config"
	"github.com/sungwon/email-dispatch/internal/delivery"
	"github.com/sungwon/email-dispatch/internal/queue"
)

type options struct {
	mode      string
	url       string
	apiKey    string
	token     string
	configDir string
	to        string
	name      string
	subject   string
	body      string
	eventType string
	data      keyValues
	count     int
	rate      float64
	timeout   time.Duration
}

// keyValues implements flag.Value for repeatable --data key=value flags.
type keyValues map[string]any

func (kv keyValues) String() string {
	parts := make([]string, 0, len(kv))
	for k, v := range kv {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(parts, ",")
}

func (kv keyValues) Set(value string) error {
	k, v, ok := strings.Cut(value, "=")
	if !ok || k == "" {
		return fmt.Errorf("expected key=value, got %q", value)
	}
	kv[k] = v
	return nil
}

func parseFlags() options {
	opts := options{data: keyValues{}}
	flag.StringVar(&opts.mode, "mode", "http", "submission mode: http or queue")
	flag.StringVar(&opts.url, "url", "http://localhost:8003", "email service base URL (http mode)")
	flag.StringVar(&opts.apiKey, "api-key", "", "API key sent as X-API-Key (http mode)")
	flag.StringVar(&opts.token, "token", "", "bearer token (http mode)")
	flag.StringVar(&opts.configDir, "config", "config", "config directory holding queue settings (queue mode)")
	flag.StringVar(&opts.to, "to", "", "recipient address (required)")
	flag.StringVar(&opts.name, "name", "", "recipient display name")
	flag.StringVar(&opts.subject, "subject", "Test email", "subject")
	flag.StringVar(&opts.body, "body", "This is a test email.", "plain-text body")
	flag.StringVar(&opts.eventType, "event-type", "", "event type tag")
	flag.Var(opts.data, "data", "template value as key=value (repeatable)")
	flag.IntVar(&opts.count, "count", 1, "number of emails to submit")
	flag.Float64Var(&opts.rate, "rate", 1, "submissions per second when count > 1")
	flag.DurationVar(&opts.timeout, "timeout", 60*time.Second, "per-request timeout")
	flag.Parse()
	return opts
}

// submitter sends one request and returns a short result description.
type submitter func(ctx context.Context, req *delivery.Request) (string, error)

func main() {
	opts := parseFlags()

	if opts.to == "" {
		fmt.Fprintln(os.Stderr, "error: --to is required")
		flag.Usage()
		os.Exit(2)
	}

	var (
		submit  submitter
		cleanup = func() {}
	)
	switch opts.mode {
	case "http":
		submit = httpSubmitter(opts)
	case "queue":
		s, closeFn, err := queueSubmitter(opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		submit, cleanup = s, closeFn
	default:
		fmt.Fprintf(os.Stderr, "error: unknown --mode %q\n", opts.mode)
		os.Exit(2)
	}
	defer cleanup()

	fmt.Printf("Email Send Client\n")
	fmt.Printf("  Mode:     %s\n", opts.mode)
	fmt.Printf("  To:       %s\n", opts.to)
	fmt.Printf("  Count:    %d\n", opts.count)
	fmt.Println()

	interval := time.Duration(0)
	if opts.count > 1 && opts.rate > 0 {
		interval = time.Duration(float64(time.Second) / opts.rate)
	}

	var okCount, failCount int
	for i := 0; i < opts.count; i++ {
		if i > 0 && interval > 0 {
			time.Sleep(interval)
		}

		seq := i + 1
		req := buildRequest(opts, seq)

		ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
		start := time.Now()
		result, err := submit(ctx, req)
		cancel()

		if err != nil {
			failCount++
			fmt.Printf("  [%d/%d] FAIL (%s): %v\n", seq, opts.count, time.Since(start), err)
			continue
		}
		okCount++
		fmt.Printf("  [%d/%d] OK   (%s) %s\n", seq, opts.count, time.Since(start), result)
	}

	fmt.Println()
	fmt.Printf("Results: %d submitted, %d failed\n", okCount, failCount)
	if failCount > 0 {
		cleanup()
		os.Exit(1)
	}
}

func buildRequest(opts options, seq int) *delivery.Request {
	req := &delivery.Request{
		ToEmail:   opts.to,
		ToName:    opts.name,
		Subject:   opts.subject,
		Body:      opts.body,
		EventType: opts.eventType,
	}
	if len(opts.data) > 0 {
		req.TemplateData = map[string]any(opts.data)
	}
	if opts.count > 1 {
		req.Subject = fmt.Sprintf("%s [%d/%d]", opts.subject, seq, opts.count)
	}
	return req
}

func httpSubmitter(opts options) submitter {
	client := &http.Client{}
	endpoint := strings.TrimRight(opts.url, "/") + "/api/v1/emails/send"

	return func(ctx context.Context, req *delivery.Request) (string, error) {
		payload, err := json.Marshal(req)
		if err != nil {
			return "", fmt.Errorf("marshal request: %w", err)
		}
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return "", err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if opts.apiKey != "" {
			httpReq.Header.Set("X-API-Key", opts.apiKey)
		}
		if opts.token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+opts.token)
		}

		resp, err := client.Do(httpReq)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}

		var rec delivery.Record
		if err := json.Unmarshal(body, &rec); err != nil {
			return "", fmt.Errorf("decode record: %w", err)
		}
		msgID := ""
		if rec.MessageID != nil {
			msgID = *rec.MessageID
		}
		return fmt.Sprintf("id=%s provider=%s message_id=%s", rec.ID, rec.Provider, msgID), nil
	}
}

func queueSubmitter(opts options) (submitter, func(), error) {
	cfg, err := config.Load(opts.configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	q, err := queue.New(context.Background(), queue.Config{
		Type:          cfg.Queue.Type,
		RedisAddr:     cfg.Queue.Broker,
		RedisPassword: cfg.Queue.Password,
		Stream:        cfg.Queue.Topic,
		Group:         cfg.Queue.GroupID,
		SQSQueueURL:   cfg.Queue.SQSQueueURL,
		SQSRegion:     cfg.Queue.SQSRegion,
	}, nil, zerolog.Nop())
	if err != nil {
		return nil, nil, fmt.Errorf("create queue: %w", err)
	}

	closed := false
	closeFn := func() {
		if !closed {
			closed = true
			_ = q.Close()
		}
	}

	return func(ctx context.Context, req *delivery.Request) (string, error) {
		if err := req.Validate(); err != nil {
			var ve *delivery.ValidationError
			if errors.As(err, &ve) {
				return "", fmt.Errorf("invalid request: %s", strings.Join(ve.Details, "; "))
			}
			return "", err
		}
		msg := queue.NewMessage(req)
		entryID, err := q.Enqueuer.Enqueue(ctx, msg)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("message_id=%s entry=%s", msg.ID, entryID), nil
	}, closeFn, nil
}
