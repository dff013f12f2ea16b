package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/sungwon/email-dispatch/internal/logger"
	"github.com/sungwon/email-dispatch/internal/metrics"
)

type contextKey string

const principalKey contextKey = "principal"

// APIKeyHeader carries a plain API key.
const APIKeyHeader = "X-API-Key"

// PrincipalFromContext returns the authenticated caller: the JWT subject,
// or "api-key" for key-authenticated requests. Empty when unauthenticated.
func PrincipalFromContext(ctx context.Context) string {
	if p, ok := ctx.Value(principalKey).(string); ok {
		return p
	}
	return ""
}

func withPrincipal(ctx context.Context, p string) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// Authenticator guards API routes with JWT bearer tokens or API keys.
// Either mechanism may be nil; the guard is disabled when both are.
type Authenticator struct {
	jwt  *JWTService
	keys *APIKeyStore
}

func NewAuthenticator(jwtService *JWTService, keys *APIKeyStore) *Authenticator {
	return &Authenticator{jwt: jwtService, keys: keys}
}

// Enabled reports whether any mechanism is configured.
func (a *Authenticator) Enabled() bool {
	return a != nil && (a.jwt != nil || a.keys.Len() > 0)
}

// Middleware returns an HTTP middleware that rejects unauthenticated
// requests with 401. It passes everything through when disabled.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	if !a.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, reason := a.authenticate(r)
		if reason != "" {
			metrics.APIAuthFailuresTotal.Inc()
			l := logger.FromContext(r.Context())
			l.Warn().
				Str("reason", reason).
				Str("path", r.URL.Path).
				Msg("api authentication failed")
			unauthorized(w, reason)
			return
		}

		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), principal)))
	})
}

func (a *Authenticator) authenticate(r *http.Request) (principal, reason string) {
	if key := r.Header.Get(APIKeyHeader); key != "" {
		if a.keys.Match(key) {
			return "api-key", ""
		}
		return "", "invalid API key"
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", "authorization required"
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", "invalid authorization format, expected Bearer <token>"
	}
	if a.jwt == nil {
		return "", "bearer tokens not accepted"
	}

	claims, err := a.jwt.ValidateToken(parts[1])
	if err != nil {
		return "", "invalid or expired token"
	}
	return claims.Subject, ""
}

func unauthorized(w http.ResponseWriter, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="email-service"`)
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","message":"` + reason + `"}`))
}
