// Package deliverylog keeps the record of every dispatch attempt: a bounded
// in-memory ring for recent activity and, when configured, a durable table.
package deliverylog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/sungwon/email-dispatch/internal/delivery"
	"github.com/sungwon/email-dispatch/internal/metrics"
	"github.com/sungwon/email-dispatch/internal/storage"
)

const (
	DefaultCapacity     = 1000
	DefaultQueryTimeout = 10 * time.Second
)

// MemoryStats are running counters for the process lifetime.
type MemoryStats struct {
	TotalSent    int64 `json:"total_sent"`
	TotalFailed  int64 `json:"total_failed"`
	TotalPending int64 `json:"total_pending"`
}

// DurableStats aggregate the full durable history.
type DurableStats struct {
	Total            int64 `json:"total"`
	Successful       int64 `json:"successful"`
	Failed           int64 `json:"failed"`
	UniqueRecipients int64 `json:"unique_recipients"`
}

// Page is one page of durable records plus the filtered total.
type Page struct {
	Logs  []*delivery.Record `json:"logs"`
	Total int64              `json:"total"`
}

// Store is safe for concurrent use. The zero value is not usable; call New.
type Store struct {
	queries      storage.Querier
	queryTimeout time.Duration
	log          zerolog.Logger

	mu      sync.Mutex
	ring    []*delivery.Record
	next    int // slot for the next append
	size    int
	sent    int64
	failed  int64
	pending int64
}

// New creates a Store holding up to capacity recent records. queries may be
// nil, in which case the store runs memory-only.
func New(capacity int, queries storage.Querier, queryTimeout time.Duration, log zerolog.Logger) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if queryTimeout <= 0 {
		queryTimeout = DefaultQueryTimeout
	}
	return &Store{
		queries:      queries,
		queryTimeout: queryTimeout,
		log:          log,
		ring:         make([]*delivery.Record, capacity),
	}
}

// DurableEnabled reports whether a durable store is attached.
func (s *Store) DurableEnabled() bool { return s.queries != nil }

// Begin counts a dispatch that has been accepted but not yet appended.
func (s *Store) Begin() {
	s.mu.Lock()
	s.pending++
	s.mu.Unlock()
}

// Append adds rec to the in-memory ring, evicting the oldest record when
// full, then attempts a durable insert. Durable failures are logged and
// never returned; the in-memory append is never undone.
func (s *Store) Append(ctx context.Context, rec *delivery.Record) {
	s.mu.Lock()
	s.ring[s.next] = rec
	s.next = (s.next + 1) % len(s.ring)
	if s.size < len(s.ring) {
		s.size++
	}
	switch rec.Status {
	case delivery.StatusSent:
		s.sent++
	case delivery.StatusFailed:
		s.failed++
	}
	if s.pending > 0 {
		s.pending--
	}
	size := s.size
	s.mu.Unlock()
	metrics.LogBufferSize.Set(float64(size))

	if s.queries == nil {
		return
	}
	s.persist(ctx, rec)
}

func (s *Store) persist(ctx context.Context, rec *delivery.Record) {
	// The insert outlives a cancelled request but not the query timeout.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.queryTimeout)
	defer cancel()

	id, err := uuid.Parse(rec.ID)
	if err != nil {
		s.persistFailed("insert", rec.ID, err)
		return
	}

	start := time.Now()
	_, err = s.queries.InsertEmailLog(ctx, toParams(id, rec))
	metrics.DBQueryDuration.WithLabelValues("insert_email_log").Observe(time.Since(start).Seconds())
	if err != nil {
		s.persistFailed("insert", rec.ID, err)
	}
}

func (s *Store) persistFailed(op, recordID string, err error) {
	metrics.LogPersistErrorsTotal.WithLabelValues(op).Inc()
	ev := s.log.Error().Err(err).Str("op", op)
	if recordID != "" {
		ev = ev.Str("record_id", recordID)
	}
	ev.Msg("delivery log persistence failed")
}

// Recent returns up to limit records, newest first. limit <= 0 returns all
// buffered records.
func (s *Store) Recent(limit int) []*delivery.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.size
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*delivery.Record, 0, n)
	idx := s.next
	for i := 0; i < n; i++ {
		idx = (idx - 1 + len(s.ring)) % len(s.ring)
		out = append(out, s.ring[idx])
	}
	return out
}

// StatsMemory returns the running counters. Eviction does not change them.
func (s *Store) StatsMemory() MemoryStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return MemoryStats{TotalSent: s.sent, TotalFailed: s.failed, TotalPending: s.pending}
}

// normalizeStatus maps a filter value to the stored vocabulary. "success"
// is accepted for "sent". ok is false for unknown values.
func normalizeStatus(status string) (pgtype.Text, bool) {
	switch status {
	case "":
		return pgtype.Text{}, true
	case string(delivery.StatusSent), "success":
		return pgtype.Text{String: string(delivery.StatusSent), Valid: true}, true
	case string(delivery.StatusFailed):
		return pgtype.Text{String: string(delivery.StatusFailed), Valid: true}, true
	default:
		return pgtype.Text{}, false
	}
}

// Query reads one page of durable records newest first. When the durable
// store is absent or fails, it returns an empty page with total 0.
func (s *Store) Query(ctx context.Context, limit, offset int, status string) Page {
	empty := Page{Logs: []*delivery.Record{}}
	if s.queries == nil {
		return empty
	}
	filter, ok := normalizeStatus(status)
	if !ok {
		return empty
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	start := time.Now()
	rows, err := s.queries.ListEmailLogs(ctx, storage.ListEmailLogsParams{
		Status: filter,
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	metrics.DBQueryDuration.WithLabelValues("list_email_logs").Observe(time.Since(start).Seconds())
	if err != nil {
		s.persistFailed("list", "", err)
		return empty
	}

	total, err := s.queries.CountEmailLogs(ctx, filter)
	if err != nil {
		s.persistFailed("count", "", err)
		return empty
	}

	page := Page{Logs: make([]*delivery.Record, 0, len(rows)), Total: total}
	for _, row := range rows {
		page.Logs = append(page.Logs, fromRow(row))
	}
	return page
}

// StatsDurable aggregates the durable table. It returns nil when the
// durable store is absent or the query fails.
func (s *Store) StatsDurable(ctx context.Context) *DurableStats {
	if s.queries == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	start := time.Now()
	row, err := s.queries.EmailLogStats(ctx)
	metrics.DBQueryDuration.WithLabelValues("email_log_stats").Observe(time.Since(start).Seconds())
	if err != nil {
		s.persistFailed("stats", "", err)
		return nil
	}
	return &DurableStats{
		Total:            row.Total,
		Successful:       row.Successful,
		Failed:           row.Failed,
		UniqueRecipients: row.UniqueRecipients,
	}
}
