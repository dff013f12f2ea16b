package api

import (
	"context"

	"github.com/sungwon/email-dispatch/internal/delivery"
	"github.com/sungwon/email-dispatch/internal/deliverylog"
	"github.com/sungwon/email-dispatch/internal/provider"
	"github.com/sungwon/email-dispatch/internal/stats"
)

type mockDispatcher struct {
	dispatchFn func(ctx context.Context, req *delivery.Request) (*delivery.Record, error)
	calls      int
}

func (m *mockDispatcher) Dispatch(ctx context.Context, req *delivery.Request) (*delivery.Record, error) {
	m.calls++
	return m.dispatchFn(ctx, req)
}

type mockProviders struct {
	snap provider.Snapshot
}

func (m *mockProviders) Snapshot() provider.Snapshot { return m.snap }

type mockLogs struct {
	recent      []*delivery.Record
	page        deliverylog.Page
	recentLimit int
	queryArgs   struct {
		limit, offset int
		status        string
	}
}

func (m *mockLogs) Recent(limit int) []*delivery.Record {
	m.recentLimit = limit
	return m.recent
}

func (m *mockLogs) Query(_ context.Context, limit, offset int, status string) deliverylog.Page {
	m.queryArgs.limit = limit
	m.queryArgs.offset = offset
	m.queryArgs.status = status
	return m.page
}

type mockStats struct {
	memory  stats.MemoryView
	durable *stats.DurableView
}

func (m *mockStats) Memory() stats.MemoryView                       { return m.memory }
func (m *mockStats) Durable(_ context.Context) *stats.DurableView { return m.durable }

type mockContent struct {
	content *delivery.Content
	err     error
}

func (m *mockContent) Load(_ context.Context, _ string) (*delivery.Content, error) {
	return m.content, m.err
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }
