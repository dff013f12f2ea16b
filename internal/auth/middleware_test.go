package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sungwon/email-dispatch/internal/metrics"
)

func TestAuthenticator_Disabled(t *testing.T) {
	a := NewAuthenticator(nil, nil)
	if a.Enabled() {
		t.Fatal("expected disabled authenticator")
	}

	called := false
	handler := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/emails/logs", nil))

	if !called {
		t.Error("expected request to pass through")
	}
}

func TestAuthenticator_Middleware(t *testing.T) {
	svc := newTestJWTService()
	validToken, err := svc.GenerateToken("billing-worker", time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	keys, err := NewAPIKeyStore([]string{mustHash(t, "secret-key")})
	if err != nil {
		t.Fatalf("NewAPIKeyStore() error = %v", err)
	}
	a := NewAuthenticator(svc, keys)

	tests := []struct {
		name          string
		headers       map[string]string
		wantStatus    int
		wantPrincipal string
	}{
		{
			name:          "valid bearer token",
			headers:       map[string]string{"Authorization": "Bearer " + validToken},
			wantStatus:    http.StatusOK,
			wantPrincipal: "billing-worker",
		},
		{
			name:          "valid api key",
			headers:       map[string]string{APIKeyHeader: "secret-key"},
			wantStatus:    http.StatusOK,
			wantPrincipal: "api-key",
		},
		{
			name:       "missing credentials",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong api key",
			headers:    map[string]string{APIKeyHeader: "nope"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "basic scheme",
			headers:    map[string]string{"Authorization": "Basic dXNlcjpwYXNz"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "garbage token",
			headers:    map[string]string{"Authorization": "Bearer abc.def.ghi"},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var principal string
			handler := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				principal = PrincipalFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/v1/emails/send", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			before := testutil.ToFloat64(metrics.APIAuthFailuresTotal)

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if principal != tt.wantPrincipal {
				t.Errorf("principal = %q, want %q", principal, tt.wantPrincipal)
			}
			failures := testutil.ToFloat64(metrics.APIAuthFailuresTotal) - before
			if tt.wantStatus == http.StatusUnauthorized {
				if failures != 1 {
					t.Errorf("auth failure counter delta = %v, want 1", failures)
				}
				if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
					t.Errorf("Content-Type = %q", ct)
				}
			}
		})
	}
}

func TestAuthenticator_APIKeyOnlyRejectsBearer(t *testing.T) {
	keys, err := NewAPIKeyStore([]string{mustHash(t, "k")})
	if err != nil {
		t.Fatalf("NewAPIKeyStore() error = %v", err)
	}
	token, _ := newTestJWTService().GenerateToken("svc", time.Minute)

	handler := NewAuthenticator(nil, keys).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/emails/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
