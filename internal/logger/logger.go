package logger

import (
	"context"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Options selects the level, destination and static fields of the service
// logger. It mirrors config.LoggingConfig to avoid an import cycle.
type Options struct {
	Level       string
	Output      string // stdout (default) or file
	FilePath    string
	MaxSizeMB   int
	MaxFiles    int
	Service     string
	Environment string
}

type contextKey string

const (
	loggerKey        contextKey = "logger"
	correlationIDKey contextKey = "correlation_id"
)

// New creates a JSON zerolog.Logger on stdout at the given level.
// An unparseable level falls back to info.
func New(level string) zerolog.Logger {
	return build(os.Stdout, level)
}

// NewFromOptions creates the service logger. Output "file" writes through a
// rotating lumberjack file; anything else writes to stdout. Service and
// environment, when set, are attached to every entry.
func NewFromOptions(opts Options) zerolog.Logger {
	var writer io.Writer = os.Stdout
	if opts.Output == "file" && opts.FilePath != "" {
		writer = NewFileWriter(FileConfig{
			Path:      opts.FilePath,
			MaxSizeMB: opts.MaxSizeMB,
			MaxFiles:  opts.MaxFiles,
		})
	}

	log := build(writer, opts.Level)
	ctx := log.With()
	if opts.Service != "" {
		ctx = ctx.Str("service", opts.Service)
	}
	if opts.Environment != "" {
		ctx = ctx.Str("env", opts.Environment)
	}
	return ctx.Logger()
}

func build(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

// WithLogger stores a logger in the context.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// WithCorrelationID stores a correlation ID in the context.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationIDKey, correlationID)
}

// CorrelationIDFromContext returns the correlation ID, or "" when unset.
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// FromContext returns the context logger (or an info-level default) with the
// correlation ID attached when one is present.
func FromContext(ctx context.Context) zerolog.Logger {
	var log zerolog.Logger

	if l, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		log = l
	} else {
		log = New("info")
	}

	if id := CorrelationIDFromContext(ctx); id != "" {
		log = log.With().Str("correlation_id", id).Logger()
	}

	return log
}

// NewCorrelationID generates a new UUID-based correlation ID.
func NewCorrelationID() string {
	return uuid.New().String()
}
