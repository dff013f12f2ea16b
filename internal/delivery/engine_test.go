package delivery

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sungwon/email-dispatch/internal/provider"
)

// mockProvider implements provider.Provider for testing.
type mockProvider struct {
	name   string
	sendFn func(ctx context.Context, msg *provider.Message) (*provider.DeliveryResult, error)

	mu   sync.Mutex
	sent []*provider.Message
}

func (m *mockProvider) Send(ctx context.Context, msg *provider.Message) (*provider.DeliveryResult, error) {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	if m.sendFn != nil {
		return m.sendFn(ctx, msg)
	}
	return &provider.DeliveryResult{ProviderMessageID: "mock-id-123"}, nil
}

func (m *mockProvider) GetName() string { return m.name }

// mockRecorder captures appended records.
type mockRecorder struct {
	mu      sync.Mutex
	begins  int
	records []*Record
}

func (m *mockRecorder) Begin() {
	m.mu.Lock()
	m.begins++
	m.mu.Unlock()
}

func (m *mockRecorder) Append(_ context.Context, rec *Record) {
	m.mu.Lock()
	m.records = append(m.records, rec)
	m.mu.Unlock()
}

type mockArchiver struct {
	saved []*Content
	err   error
}

func (m *mockArchiver) Save(_ context.Context, c *Content) error {
	m.saved = append(m.saved, c)
	return m.err
}

func newTestEngine(hosted, relay provider.Provider, rec Recorder, archive Archiver) *Engine {
	return NewEngine(provider.NewState(provider.NameSendGrid, hosted, relay), rec, archive, zerolog.Nop())
}

func TestEngine_Dispatch_Success(t *testing.T) {
	hosted := &mockProvider{name: "sendgrid"}
	rec := &mockRecorder{}
	e := newTestEngine(hosted, nil, rec, nil)

	got, err := e.Dispatch(context.Background(), &Request{
		ToEmail:       "a@b.com",
		ToName:        "Sam",
		Subject:       "Hi {{name}}",
		Body:          "Hello {{name}}\nBye",
		TemplateData:  map[string]any{"name": "Sam"},
		EventType:     "welcome",
		RelatedUserID: "u-1",
	})
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}

	if got.Status != StatusSent {
		t.Errorf("status = %q, want sent", got.Status)
	}
	if got.SentAt == nil {
		t.Error("expected sent_at to be set")
	}
	if got.MessageID == nil || *got.MessageID != "mock-id-123" {
		t.Errorf("message id = %v", got.MessageID)
	}
	if got.ErrorMessage != nil {
		t.Errorf("unexpected error message %q", *got.ErrorMessage)
	}
	if got.Subject != "Hi {{name}}" {
		t.Errorf("record subject = %q, want as submitted", got.Subject)
	}
	if got.Provider != "sendgrid" {
		t.Errorf("provider = %q", got.Provider)
	}
	if got.EventType != "welcome" || got.RelatedUserID != "u-1" {
		t.Errorf("metadata not carried: %+v", got)
	}
	if got.ID == "" || got.CreatedAt.IsZero() {
		t.Error("expected id and created_at")
	}

	if len(hosted.sent) != 1 {
		t.Fatalf("expected 1 send, got %d", len(hosted.sent))
	}
	msg := hosted.sent[0]
	if msg.Subject != "Hi Sam" {
		t.Errorf("sent subject = %q", msg.Subject)
	}
	if msg.TextBody != "Hello Sam\nBye" {
		t.Errorf("sent text = %q", msg.TextBody)
	}
	if msg.HTMLBody != "Hello Sam<br>Bye" {
		t.Errorf("sent html = %q", msg.HTMLBody)
	}
	if msg.ToName != "Sam" {
		t.Errorf("sent to name = %q", msg.ToName)
	}

	if rec.begins != 1 || len(rec.records) != 1 {
		t.Fatalf("begins=%d records=%d, want 1/1", rec.begins, len(rec.records))
	}
	if rec.records[0] != got {
		t.Error("appended record differs from returned record")
	}
}

func TestEngine_Dispatch_NoTemplateDataSendsVerbatim(t *testing.T) {
	hosted := &mockProvider{name: "sendgrid"}
	e := newTestEngine(hosted, nil, &mockRecorder{}, nil)

	if _, err := e.Dispatch(context.Background(), &Request{ToEmail: "a@b.com", Subject: "S {{x}}", Body: "B {{x}}"}); err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if hosted.sent[0].TextBody != "B {{x}}" || hosted.sent[0].Subject != "S {{x}}" {
		t.Errorf("expected verbatim content, got %+v", hosted.sent[0])
	}
}

func TestEngine_Dispatch_FallsBackToSMTP(t *testing.T) {
	relay := &mockProvider{name: "smtp"}
	rec := &mockRecorder{}
	e := newTestEngine(nil, relay, rec, nil)

	got, err := e.Dispatch(context.Background(), &Request{ToEmail: "a@b.com", Subject: "s", Body: "b"})
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if got.Provider != "smtp" {
		t.Errorf("provider = %q, want smtp", got.Provider)
	}
	if len(relay.sent) != 1 {
		t.Errorf("expected smtp send")
	}
}

func TestEngine_Dispatch_ProviderFailure_LogsThenRaises(t *testing.T) {
	hosted := &mockProvider{
		name: "sendgrid",
		sendFn: func(context.Context, *provider.Message) (*provider.DeliveryResult, error) {
			return nil, &provider.ProviderError{Provider: "sendgrid", StatusCode: 401, Message: "unauthorized"}
		},
	}
	relay := &mockProvider{name: "smtp"}
	rec := &mockRecorder{}
	e := newTestEngine(hosted, relay, rec, nil)

	got, err := e.Dispatch(context.Background(), &Request{ToEmail: "a@b.com", Subject: "s", Body: "b"})

	var de *DeliveryError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DeliveryError, got %T: %v", err, err)
	}
	var pe *provider.ProviderError
	if !errors.As(err, &pe) {
		t.Error("DeliveryError should unwrap to the adapter error")
	}
	if len(relay.sent) != 0 {
		t.Error("failed send must not be retried on the other provider")
	}
	if len(rec.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(rec.records))
	}
	if got == nil || got != rec.records[0] || de.Record != got {
		t.Fatal("expected the appended record to be returned")
	}
	if got.Status != StatusFailed {
		t.Errorf("status = %q, want failed", got.Status)
	}
	if got.SentAt != nil || got.MessageID != nil {
		t.Error("failed record must not carry sent_at or message_id")
	}
	if got.ErrorMessage == nil || !strings.Contains(*got.ErrorMessage, "unauthorized") {
		t.Errorf("error message = %v", got.ErrorMessage)
	}
	if got.Provider != "sendgrid" {
		t.Errorf("provider = %q", got.Provider)
	}
}

func TestEngine_Dispatch_NoProvider(t *testing.T) {
	rec := &mockRecorder{}
	e := newTestEngine(nil, nil, rec, nil)

	got, err := e.Dispatch(context.Background(), &Request{ToEmail: "a@b.com", Subject: "s", Body: "b"})
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
	if len(rec.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(rec.records))
	}
	if got.Provider != "" {
		t.Errorf("provider = %q, want empty", got.Provider)
	}
	if got.SentAt != nil {
		t.Error("unexpected sent_at")
	}
	if got.Status != StatusFailed {
		t.Errorf("status = %q", got.Status)
	}
}

func TestEngine_Dispatch_ValidationErrorHasNoSideEffects(t *testing.T) {
	hosted := &mockProvider{name: "sendgrid"}
	rec := &mockRecorder{}
	e := newTestEngine(hosted, nil, rec, nil)

	_, err := e.Dispatch(context.Background(), &Request{ToEmail: "bogus", Subject: "s", Body: "b"})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if rec.begins != 0 || len(rec.records) != 0 || len(hosted.sent) != 0 {
		t.Error("validation failure must not record or send")
	}
}

func TestEngine_Dispatch_ArchivesRenderedContent(t *testing.T) {
	hosted := &mockProvider{name: "sendgrid"}
	archive := &mockArchiver{}
	e := newTestEngine(hosted, nil, &mockRecorder{}, archive)

	got, err := e.Dispatch(context.Background(), &Request{
		ToEmail:      "a@b.com",
		Subject:      "Hi {{n}}",
		Body:         "Body {{n}}",
		TemplateData: map[string]any{"n": 7},
	})
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if len(archive.saved) != 1 {
		t.Fatalf("expected 1 archived content, got %d", len(archive.saved))
	}
	c := archive.saved[0]
	if c.RecordID != got.ID || c.Subject != "Hi 7" || c.Text != "Body 7" {
		t.Errorf("archived content = %+v", c)
	}
}

func TestEngine_Dispatch_ArchiveFailureIgnored(t *testing.T) {
	e := newTestEngine(&mockProvider{name: "sendgrid"}, nil, &mockRecorder{}, &mockArchiver{err: errors.New("disk full")})

	got, err := e.Dispatch(context.Background(), &Request{ToEmail: "a@b.com", Subject: "s", Body: "b"})
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if got.Status != StatusSent {
		t.Errorf("status = %q", got.Status)
	}
}

func TestEngine_Dispatch_Concurrent(t *testing.T) {
	rec := &mockRecorder{}
	e := newTestEngine(&mockProvider{name: "sendgrid"}, nil, rec, nil)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = e.Dispatch(context.Background(), &Request{ToEmail: "a@b.com", Subject: "s", Body: "b"})
		}()
	}
	wg.Wait()

	if len(rec.records) != n {
		t.Fatalf("records = %d, want %d", len(rec.records), n)
	}
	seen := make(map[string]bool, n)
	for _, r := range rec.records {
		if seen[r.ID] {
			t.Fatalf("duplicate record id %s", r.ID)
		}
		seen[r.ID] = true
	}
}

func TestEngine_Dispatch_CallerCancelDoesNotAbortSend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hosted := &mockProvider{name: "sendgrid", sendFn: func(sendCtx context.Context, _ *provider.Message) (*provider.DeliveryResult, error) {
		// The caller goes away while the provider is still working.
		cancel()
		select {
		case <-sendCtx.Done():
			return nil, sendCtx.Err()
		case <-time.After(50 * time.Millisecond):
		}
		return &provider.DeliveryResult{ProviderMessageID: "sg-late"}, nil
	}}
	rec := &mockRecorder{}
	e := newTestEngine(hosted, nil, rec, nil)

	got, err := e.Dispatch(ctx, &Request{ToEmail: "a@b.com", Subject: "s", Body: "b"})
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if ctx.Err() == nil {
		t.Fatal("expected caller context to be cancelled")
	}
	if got.Status != StatusSent {
		t.Errorf("status = %q, want sent", got.Status)
	}
	if got.MessageID == nil || *got.MessageID != "sg-late" {
		t.Errorf("message id = %v", got.MessageID)
	}
	if len(rec.records) != 1 || rec.records[0].Status != StatusSent {
		t.Errorf("expected one sent record, got %+v", rec.records)
	}
}
