package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sungwon/email-dispatch/internal/delivery"
	"github.com/sungwon/email-dispatch/internal/logger"
	"github.com/sungwon/email-dispatch/internal/msgstore"
	"github.com/sungwon/email-dispatch/internal/provider"
)

const (
	maxBodyBytes     = 10 << 20
	defaultPageLimit = 50
	maxPageLimit     = 100
)

// dispatchFailure is returned when the provider could not deliver. The
// failed record has already been logged.
type dispatchFailure struct {
	Error   string           `json:"error"`
	Message string           `json:"message"`
	Record  *delivery.Record `json:"record,omitempty"`
}

// SendHandler handles POST /api/v1/emails/send.
func SendHandler(d delivery.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req delivery.Request
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err := dec.Decode(&req); err != nil {
			respondValidationErrors(w, []string{"request body must be a valid JSON object"})
			return
		}

		rec, err := d.Dispatch(r.Context(), &req)
		if err == nil {
			respondJSON(w, http.StatusOK, rec)
			return
		}

		var ve *delivery.ValidationError
		var de *delivery.DeliveryError
		switch {
		case errors.As(err, &ve):
			respondValidationErrors(w, ve.Details)
		case errors.Is(err, delivery.ErrProviderUnavailable):
			respondJSON(w, http.StatusInternalServerError, dispatchFailure{
				Error:   "provider_unavailable",
				Message: err.Error(),
				Record:  rec,
			})
		case errors.As(err, &de):
			respondJSON(w, http.StatusInternalServerError, dispatchFailure{
				Error:   "delivery_failed",
				Message: de.Err.Error(),
				Record:  de.Record,
			})
		default:
			l := logger.FromContext(r.Context())
			l.Error().Err(err).Msg("unexpected dispatch error")
			respondJSON(w, http.StatusInternalServerError, dispatchFailure{
				Error:   "internal server error",
				Message: "the email could not be processed",
			})
		}
	}
}

type providerHealth struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	provider.Snapshot
	Timestamp time.Time `json:"timestamp"`
}

// ProviderHealthHandler handles GET /api/v1/emails/health.
func ProviderHealthHandler(p ProviderStatus, service string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, providerHealth{
			Status:    "healthy",
			Service:   service,
			Snapshot:  p.Snapshot(),
			Timestamp: time.Now().UTC(),
		})
	}
}

// LogsHandler handles GET /api/v1/emails/logs, reading the in-memory view.
func LogsHandler(logs LogReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit", defaultPageLimit)
		if limit <= 0 {
			limit = defaultPageLimit
		}
		recent := logs.Recent(limit)
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"logs":   recent,
			"total":  len(recent),
			"source": "memory",
		})
	}
}

// DurableLogsHandler handles GET /api/v1/emails/logs/db.
func DurableLogsHandler(logs LogReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit", defaultPageLimit)
		if limit <= 0 {
			limit = defaultPageLimit
		}
		if limit > maxPageLimit {
			limit = maxPageLimit
		}
		offset := queryInt(r, "offset", 0)
		if offset < 0 {
			offset = 0
		}

		page := logs.Query(r.Context(), limit, offset, r.URL.Query().Get("status"))
		respondJSON(w, http.StatusOK, page)
	}
}

// StatsHandler handles GET /api/v1/emails/stats.
func StatsHandler(s StatsReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, s.Memory())
	}
}

// DurableStatsHandler handles GET /api/v1/emails/stats/db. An unavailable
// durable store is reported in the body, not as an HTTP error.
func DurableStatsHandler(s StatsReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view := s.Durable(r.Context())
		if view == nil {
			respondError(w, http.StatusOK, "database unavailable")
			return
		}
		respondJSON(w, http.StatusOK, view)
	}
}

// ContentHandler handles GET /api/v1/emails/{id}/content.
func ContentHandler(archive ContentReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if archive == nil {
			respondError(w, http.StatusNotFound, "content archive disabled")
			return
		}

		content, err := archive.Load(r.Context(), chi.URLParam(r, "id"))
		switch {
		case err == nil:
			respondJSON(w, http.StatusOK, content)
		case errors.Is(err, msgstore.ErrInvalidID):
			respondError(w, http.StatusBadRequest, "invalid email id")
		case errors.Is(err, msgstore.ErrNotFound):
			respondError(w, http.StatusNotFound, "content not found")
		default:
			l := logger.FromContext(r.Context())
			l.Error().Err(err).Msg("load archived content")
			respondError(w, http.StatusInternalServerError, "failed to load content")
		}
	}
}

// queryInt parses an integer query parameter, returning def when the
// parameter is absent or not a number.
func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
