package api

import (
	"net/http"
	"time"
)

// endpoints is the route list advertised by GET /.
var endpoints = []string{
	"GET / - Service info",
	"GET /health - Application health check",
	"GET /metrics - Prometheus metrics",
	"GET /api/v1/emails/health - Email provider health",
	"POST /api/v1/emails/send - Send email",
	"GET /api/v1/emails/logs - Recent email logs (memory)",
	"GET /api/v1/emails/logs/db - Email log history (database)",
	"GET /api/v1/emails/stats - Statistics since start (memory)",
	"GET /api/v1/emails/stats/db - All-time statistics (database)",
	"GET /api/v1/emails/{id}/content - Archived message content",
}

// InfoHandler handles GET /.
func InfoHandler(info ServiceInfo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		queue := map[string]interface{}{
			"enabled": info.QueueType != "",
			"status":  info.QueueStatus,
		}
		if info.QueueType != "" {
			queue["type"] = info.QueueType
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"service":     info.Name,
			"version":     info.Version,
			"status":      "running",
			"timestamp":   time.Now().UTC(),
			"environment": info.Environment,
			"queue":       queue,
			"endpoints":   endpoints,
		})
	}
}

// HealthHandler handles GET /health. It always returns 200; the durable
// store is reported as connected or disconnected.
func HealthHandler(info ServiceInfo, db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		database := "disconnected"
		if db != nil && db.Ping(r.Context()) == nil {
			database = "connected"
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "healthy",
			"timestamp": time.Now().UTC(),
			"service":   info.Name,
			"version":   info.Version,
			"database":  database,
		})
	}
}

// NotFoundHandler answers unknown routes with a JSON body.
func NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusNotFound, map[string]string{
			"error": "route not found",
			"path":  r.URL.RequestURI(),
		})
	}
}

// MethodNotAllowedHandler answers known routes hit with the wrong method.
func MethodNotAllowedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusMethodNotAllowed, map[string]string{
			"error": "method not allowed",
			"path":  r.URL.RequestURI(),
		})
	}
}
