package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/sungwon/email-dispatch/internal/auth"
	"github.com/sungwon/email-dispatch/internal/delivery"
	"github.com/sungwon/email-dispatch/internal/provider"
)

// jsonBuffer is a goroutine-safe log sink.
type jsonBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *jsonBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *jsonBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *jsonBuffer) contains(s string) bool { return strings.Contains(b.String(), s) }

func testDeps() Deps {
	return Deps{
		Info: ServiceInfo{Name: "email-service", Version: "1.0.0", Environment: "test", QueueStatus: "disabled"},
		Dispatcher: &mockDispatcher{dispatchFn: func(_ context.Context, req *delivery.Request) (*delivery.Record, error) {
			return &delivery.Record{ID: "rec-1", ToEmail: req.ToEmail, Status: delivery.StatusSent}, nil
		}},
		Providers: &mockProviders{snap: provider.Snapshot{Configured: "smtp", SMTPReady: true}},
		Logs:      &mockLogs{},
		Stats:     &mockStats{},
	}
}

func TestRouter_Routes(t *testing.T) {
	r := NewRouter(testDeps(), nil, zerolog.Nop())

	tests := []struct {
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{http.MethodGet, "/", "", http.StatusOK},
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodPost, "/api/v1/emails/send", `{"to_email":"a@b.com","subject":"s","body":"b"}`, http.StatusOK},
		{http.MethodGet, "/api/v1/emails/health", "", http.StatusOK},
		{http.MethodGet, "/api/v1/emails/logs", "", http.StatusOK},
		{http.MethodGet, "/api/v1/emails/logs/db", "", http.StatusOK},
		{http.MethodGet, "/api/v1/emails/stats", "", http.StatusOK},
		{http.MethodGet, "/api/v1/emails/stats/db", "", http.StatusOK},
		{http.MethodGet, "/api/v1/emails/0b8e2c4a-6b0c-4a57-9d0e-3f1f1c9b7a11/content", "", http.StatusNotFound},
		{http.MethodGet, "/api/v1/unknown", "", http.StatusNotFound},
		{http.MethodGet, "/api/v1/emails/send", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d; body %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if rec.Header().Get("X-Correlation-ID") == "" {
				t.Error("expected X-Correlation-ID header")
			}
		})
	}
}

func TestRouter_NotFoundBody(t *testing.T) {
	r := NewRouter(testDeps(), nil, zerolog.Nop())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere?x=1", nil))

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["error"] == "" || resp["path"] != "/nowhere?x=1" {
		t.Errorf("unexpected not-found body: %v", resp)
	}
}

func TestRouter_HealthReportsDatabase(t *testing.T) {
	tests := []struct {
		name string
		db   Pinger
		want string
	}{
		{name: "no durable store", db: nil, want: "disconnected"},
		{name: "reachable", db: &mockPinger{}, want: "connected"},
		{name: "unreachable", db: &mockPinger{err: errors.New("refused")}, want: "disconnected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := testDeps()
			d.DB = tt.db
			r := NewRouter(d, nil, zerolog.Nop())

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			var resp map[string]interface{}
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp["database"] != tt.want || resp["status"] != "healthy" || resp["version"] != "1.0.0" {
				t.Errorf("unexpected health body: %v", resp)
			}
		})
	}
}

func TestRouter_InfoReportsQueue(t *testing.T) {
	d := testDeps()
	d.Info.QueueType = "redis"
	d.Info.QueueStatus = "running"
	r := NewRouter(d, nil, zerolog.Nop())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	var resp struct {
		Service   string                 `json:"service"`
		Status    string                 `json:"status"`
		Queue     map[string]interface{} `json:"queue"`
		Endpoints []string               `json:"endpoints"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Service != "email-service" || resp.Status != "running" {
		t.Errorf("unexpected info: %+v", resp)
	}
	if resp.Queue["enabled"] != true || resp.Queue["type"] != "redis" || resp.Queue["status"] != "running" {
		t.Errorf("unexpected queue info: %v", resp.Queue)
	}
	if len(resp.Endpoints) == 0 {
		t.Error("expected endpoint list")
	}
}

func TestRouter_AuthGuardsAPIOnly(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	keys, err := auth.NewAPIKeyStore([]string{string(hash)})
	if err != nil {
		t.Fatalf("NewAPIKeyStore: %v", err)
	}
	jwtSvc := auth.NewJWTService(auth.JWTConfig{SigningKey: "router-test-signing-key-32-bytes!!"})
	token, err := jwtSvc.GenerateToken("svc", time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	r := NewRouter(testDeps(), auth.NewAuthenticator(jwtSvc, keys), zerolog.Nop())

	tests := []struct {
		name       string
		path       string
		header     string
		value      string
		wantStatus int
	}{
		{name: "health is open", path: "/health", wantStatus: http.StatusOK},
		{name: "api without credentials", path: "/api/v1/emails/stats", wantStatus: http.StatusUnauthorized},
		{name: "api with key", path: "/api/v1/emails/stats", header: auth.APIKeyHeader, value: "secret", wantStatus: http.StatusOK},
		{name: "api with token", path: "/api/v1/emails/stats", header: "Authorization", value: "Bearer " + token, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
