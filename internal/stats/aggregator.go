// Package stats exposes the two delivery statistics views separately:
// counters since process start and aggregates over the durable history.
package stats

import (
	"context"

	"github.com/sungwon/email-dispatch/internal/deliverylog"
)

// Source is implemented by *deliverylog.Store.
type Source interface {
	StatsMemory() deliverylog.MemoryStats
	StatsDurable(ctx context.Context) *deliverylog.DurableStats
}

// MemoryView reports counters since process start.
type MemoryView struct {
	deliverylog.MemoryStats
	Source string `json:"source"`
}

// DurableView reports all-time aggregates.
type DurableView struct {
	deliverylog.DurableStats
	Source string `json:"source"`
}

// Aggregator holds no state of its own.
type Aggregator struct {
	src Source
}

func New(src Source) *Aggregator {
	return &Aggregator{src: src}
}

// Memory returns the in-process counters.
func (a *Aggregator) Memory() MemoryView {
	return MemoryView{MemoryStats: a.src.StatsMemory(), Source: "memory"}
}

// Durable returns the durable aggregates, or nil when the durable store is
// unavailable.
func (a *Aggregator) Durable(ctx context.Context) *DurableView {
	st := a.src.StatsDurable(ctx)
	if st == nil {
		return nil
	}
	return &DurableView{DurableStats: *st, Source: "database"}
}
