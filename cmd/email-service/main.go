package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/sungwon/email-dispatch/internal/api"
	"github.com/sungwon/email-dispatch/internal/auth"
	"github.com/sungwon/email-dispatch/internal/config"
	"github.com/sungwon/email-dispatch/internal/delivery"
	"github.com/sungwon/email-dispatch/internal/deliverylog"
	"github.com/sungwon/email-dispatch/internal/logger"
	"github.com/sungwon/email-dispatch/internal/msgstore"
	"github.com/sungwon/email-dispatch/internal/provider"
	"github.com/sungwon/email-dispatch/internal/queue"
	"github.com/sungwon/email-dispatch/internal/stats"
	"github.com/sungwon/email-dispatch/internal/storage"
)

const version = "1.0.0"

func main() {
	// Load configuration from the "config" directory.
	cfg, err := config.Load("config")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewFromOptions(logger.Options{
		Level:       cfg.Logging.Level,
		Output:      cfg.Logging.Output,
		FilePath:    cfg.Logging.FilePath,
		MaxSizeMB:   cfg.Logging.MaxSizeMB,
		MaxFiles:    cfg.Logging.MaxFiles,
		Service:     cfg.Service.Name,
		Environment: cfg.Service.Environment,
	})
	log.Info().Str("version", version).Msg("starting email service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The durable store is optional; without it only the in-memory log is kept.
	db, queries := openDurableStore(ctx, cfg.Database, log)
	if db != nil {
		go db.ReportStats(ctx, 15*time.Second)
	}

	providers := provider.Init(ctx, provider.Settings{
		Provider: cfg.Email.Provider,
		SendGrid: provider.SendGridConfig{
			APIKey:    cfg.Email.SendGrid.APIKey,
			Endpoint:  cfg.Email.SendGrid.Endpoint,
			FromEmail: cfg.Email.SendGrid.FromEmail,
			FromName:  cfg.Email.SendGrid.FromName,
			Timeout:   cfg.Email.SendGrid.Timeout,
		},
		SMTP: provider.SMTPConfig{
			Host:      cfg.Email.SMTP.Host,
			Port:      cfg.Email.SMTP.Port,
			Secure:    cfg.Email.SMTP.Secure,
			Username:  cfg.Email.SMTP.Username,
			Password:  cfg.Email.SMTP.Password,
			FromEmail: cfg.Email.SMTP.FromEmail,
			FromName:  cfg.Email.SMTP.FromName,
			Timeout:   cfg.Email.SMTP.Timeout,
			LocalName: cfg.Email.SMTP.LocalName,
		},
	}, nil, log)
	if _, ok := providers.Select(); !ok {
		log.Warn().Msg("no email provider available; send requests will fail until restart")
	}

	logs := deliverylog.New(cfg.LogStore.MemoryCapacity, queries, cfg.Database.QueryTimeout, log)

	// A nil *msgstore.Archive must not reach the interfaces below.
	var (
		archiver delivery.Archiver
		content  api.ContentReader
	)
	archive, err := msgstore.New(ctx, msgstore.Config{
		Type:       cfg.Archive.Type,
		Path:       cfg.Archive.Path,
		S3Bucket:   cfg.Archive.S3Bucket,
		S3Prefix:   cfg.Archive.S3Prefix,
		S3Endpoint: cfg.Archive.S3Endpoint,
		S3Region:   cfg.Archive.S3Region,
	})
	switch {
	case err != nil:
		log.Warn().Err(err).Str("type", cfg.Archive.Type).Msg("content archive disabled")
	case archive != nil:
		archiver, content = archive, archive
		log.Info().Str("type", cfg.Archive.Type).Msg("content archive enabled")
	}

	engine := delivery.NewEngine(providers, logs, archiver, log.With().Str("component", "delivery").Logger())

	info := api.ServiceInfo{
		Name:        cfg.Service.Name,
		Version:     version,
		Environment: cfg.Service.Environment,
		QueueStatus: "disabled",
	}

	var consumer *queue.Queue
	if cfg.Queue.Enabled {
		info.QueueType = cfg.Queue.Type
		consumer, err = startConsumer(ctx, cfg.Queue, engine, log.With().Str("component", "queue").Logger())
		if err != nil {
			log.Error().Err(err).Msg("queue consumer not started")
			info.QueueStatus = "error"
		} else {
			info.QueueStatus = "running"
		}
	}

	authn, err := newAuthenticator(cfg.Auth)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid auth configuration")
	}
	if !authn.Enabled() {
		log.Warn().Msg("API authentication disabled; set auth.signing_key or auth.api_key_hashes in production")
	}

	deps := api.Deps{
		Info:       info,
		Dispatcher: engine,
		Providers:  providers,
		Logs:       logs,
		Stats:      stats.New(logs),
		Content:    content,
	}
	if db != nil {
		deps.DB = db
	}
	router := api.NewRouter(deps, authn, log)

	addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("API server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	if consumer != nil {
		if err := consumer.Dequeuer.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("queue consumer shutdown error")
		}
		if err := consumer.Close(); err != nil {
			log.Error().Err(err).Msg("queue client close error")
		}
	}

	cancel()
	if db != nil {
		db.Close()
	}

	log.Info().Msg("email service stopped")
}

// openDurableStore connects and bootstraps the schema. Failures are logged
// and the service continues without durable history; queries is then a nil
// interface.
func openDurableStore(ctx context.Context, cfg config.DatabaseConfig, log zerolog.Logger) (*storage.DB, storage.Querier) {
	if cfg.URL == "" {
		log.Warn().Msg("database.url not set; durable delivery log disabled")
		return nil, nil
	}

	db, err := storage.NewDB(ctx, cfg.URL, cfg.PoolMin, cfg.PoolMax, cfg.ConnectTimeout)
	if err != nil {
		log.Warn().Err(err).Msg("database unavailable; durable delivery log disabled")
		return nil, nil
	}

	schemaCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := storage.EnsureSchema(schemaCtx, db.Pool); err != nil {
		log.Warn().Err(err).Msg("schema bootstrap failed; durable delivery log disabled")
		db.Close()
		return nil, nil
	}

	log.Info().Msg("database connection established")
	return db, storage.New(db.Pool)
}

func startConsumer(ctx context.Context, cfg config.QueueConfig, d delivery.Dispatcher, log zerolog.Logger) (*queue.Queue, error) {
	q, err := queue.New(ctx, queueConfig(cfg), queue.NewDispatchHandler(d, log), log)
	if err != nil {
		return nil, err
	}
	if err := q.Dequeuer.Start(ctx); err != nil {
		_ = q.Close()
		return nil, err
	}
	return q, nil
}

func queueConfig(c config.QueueConfig) queue.Config {
	return queue.Config{
		Type:            c.Type,
		RedisAddr:       c.Broker,
		RedisPassword:   c.Password,
		Stream:          c.Topic,
		Group:           c.GroupID,
		WorkerCount:     c.Workers,
		BlockTimeout:    c.BlockTimeout,
		ProcessTimeout:  c.ProcessTimeout,
		ShutdownTimeout: c.ShutdownTimeout,
		SQSQueueURL:     c.SQSQueueURL,
		SQSRegion:       c.SQSRegion,
		SQSWaitTime:     c.SQSWaitTime,
	}
}

func newAuthenticator(c config.AuthConfig) (*auth.Authenticator, error) {
	var jwtService *auth.JWTService
	if c.SigningKey != "" {
		jwtService = auth.NewJWTService(auth.JWTConfig{
			SigningKey: c.SigningKey,
			Issuer:     c.Issuer,
			Audience:   c.Audience,
		})
	}
	keys, err := auth.NewAPIKeyStore(c.APIKeyHashes)
	if err != nil {
		return nil, err
	}
	return auth.NewAuthenticator(jwtService, keys), nil
}
