package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Dispatch metrics
var (
	DispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_dispatch_total",
			Help: "Total number of dispatch attempts",
		},
		[]string{"provider", "status"}, // sent, failed, unavailable
	)

	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "email_dispatch_duration_seconds",
			Help:    "Duration of provider send calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	DispatchInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "email_dispatch_in_flight",
			Help: "Number of dispatches accepted but not yet logged",
		},
	)
)

// Delivery log metrics
var (
	LogPersistErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_log_persist_errors_total",
			Help: "Total number of durable delivery log operations that failed",
		},
		[]string{"op"}, // insert, list, count, stats
	)

	LogBufferSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "email_log_buffer_size",
			Help: "Number of records held in the in-memory delivery log",
		},
	)

	ArchiveWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_archive_writes_total",
			Help: "Total number of rendered-content archive writes",
		},
		[]string{"result"}, // success, failure
	)
)

// API metrics
var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	APIAuthFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "api_auth_failures_total",
			Help: "Total number of API authentication failures",
		},
	)
)

// Database metrics
var (
	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of acquired database connections",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database queries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"},
	)
)

// Queue metrics
var (
	QueueMessagesConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_messages_consumed_total",
			Help: "Total number of queue messages consumed by outcome",
		},
		[]string{"result"}, // sent, failed, invalid, unavailable
	)
)
