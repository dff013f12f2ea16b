package api

import (
	"context"

	"github.com/sungwon/email-dispatch/internal/delivery"
	"github.com/sungwon/email-dispatch/internal/deliverylog"
	"github.com/sungwon/email-dispatch/internal/provider"
	"github.com/sungwon/email-dispatch/internal/stats"
)

// ProviderStatus is implemented by *provider.State.
type ProviderStatus interface {
	Snapshot() provider.Snapshot
}

// LogReader is implemented by *deliverylog.Store.
type LogReader interface {
	Recent(limit int) []*delivery.Record
	Query(ctx context.Context, limit, offset int, status string) deliverylog.Page
}

// StatsReader is implemented by *stats.Aggregator.
type StatsReader interface {
	Memory() stats.MemoryView
	Durable(ctx context.Context) *stats.DurableView
}

// ContentReader is implemented by *msgstore.Archive.
type ContentReader interface {
	Load(ctx context.Context, recordID string) (*delivery.Content, error)
}

// Pinger is implemented by *storage.DB.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ServiceInfo describes the running process for GET / and GET /health.
type ServiceInfo struct {
	Name        string
	Version     string
	Environment string
	QueueType   string // empty when queue ingestion is disabled
	QueueStatus string // disabled, running, or error
}

// Deps are the collaborators behind the HTTP surface. Content and DB are
// nil when the archive or durable store is not configured.
type Deps struct {
	Info       ServiceInfo
	Dispatcher delivery.Dispatcher
	Providers  ProviderStatus
	Logs       LogReader
	Stats      StatsReader
	Content    ContentReader
	DB         Pinger
}
