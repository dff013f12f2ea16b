package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sungwon/email-dispatch/internal/metrics"
	"github.com/sungwon/email-dispatch/internal/provider"
	"github.com/sungwon/email-dispatch/internal/template"
)

// ProviderSelector yields the provider fixed at startup.
type ProviderSelector interface {
	Select() (provider.Provider, bool)
}

// Recorder is the delivery log the engine appends to. Append must not fail
// the dispatch; durable errors are handled behind it.
type Recorder interface {
	Begin()
	Append(ctx context.Context, rec *Record)
}

// Archiver stores the rendered content of a dispatch.
type Archiver interface {
	Save(ctx context.Context, c *Content) error
}

// Engine renders, sends and records each request through exactly one provider.
type Engine struct {
	providers ProviderSelector
	recorder  Recorder
	archive   Archiver
	tracer    trace.Tracer
	log       zerolog.Logger
	now       func() time.Time
}

// NewEngine creates an Engine. archive may be nil to disable archiving.
func NewEngine(providers ProviderSelector, recorder Recorder, archive Archiver, log zerolog.Logger) *Engine {
	return &Engine{
		providers: providers,
		recorder:  recorder,
		archive:   archive,
		tracer:    otel.Tracer("github.com/sungwon/email-dispatch/internal/delivery"),
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Dispatch validates req, renders it, sends it and appends exactly one
// record. On delivery failure the failed record is appended before the
// *DeliveryError is returned. Validation errors return before any side effect.
func (e *Engine) Dispatch(ctx context.Context, req *Request) (*Record, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	rec := &Record{
		ID:               uuid.NewString(),
		ToEmail:          req.ToEmail,
		ToName:           req.ToName,
		Subject:          req.Subject,
		CreatedAt:        e.now(),
		EventType:        req.EventType,
		RelatedUserID:    req.RelatedUserID,
		RelatedProjectID: req.RelatedProjectID,
	}

	ctx, span := e.tracer.Start(ctx, "delivery.Dispatch")
	defer span.End()
	span.SetAttributes(attribute.String("email.record_id", rec.ID))

	e.recorder.Begin()
	metrics.DispatchInFlight.Inc()
	defer metrics.DispatchInFlight.Dec()

	log := e.log.With().Str("record_id", rec.ID).Logger()

	p, ok := e.providers.Select()
	if !ok {
		e.fail(ctx, rec, ErrProviderUnavailable)
		metrics.DispatchTotal.WithLabelValues("none", "unavailable").Inc()
		span.RecordError(ErrProviderUnavailable)
		span.SetStatus(codes.Error, "provider unavailable")
		log.Error().Msg("no email provider available")
		return rec, ErrProviderUnavailable
	}
	rec.Provider = p.GetName()
	span.SetAttributes(attribute.String("email.provider", rec.Provider))

	subject, text := req.Subject, req.Body
	if req.TemplateData != nil {
		subject = template.Render(subject, req.TemplateData)
		text = template.Render(text, req.TemplateData)
	}
	msg := &provider.Message{
		ID:       rec.ID,
		To:       req.ToEmail,
		ToName:   req.ToName,
		Subject:  subject,
		TextBody: text,
		HTMLBody: template.HTML(text),
	}

	// A send in flight runs to completion or to the adapter's own timeout;
	// caller cancellation must not abort mail the provider may have accepted.
	sendCtx := context.WithoutCancel(ctx)

	start := time.Now()
	result, err := p.Send(sendCtx, msg)
	metrics.DispatchDuration.WithLabelValues(rec.Provider).Observe(time.Since(start).Seconds())
	if err != nil {
		e.fail(ctx, rec, err)
		metrics.DispatchTotal.WithLabelValues(rec.Provider, string(StatusFailed)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		log.Error().Err(err).Str("provider", rec.Provider).Str("to", rec.ToEmail).Msg("email delivery failed")
		return rec, &DeliveryError{Provider: rec.Provider, Record: rec, Err: err}
	}

	sentAt := e.now()
	messageID := result.ProviderMessageID
	rec.Status = StatusSent
	rec.SentAt = &sentAt
	rec.MessageID = &messageID
	e.recorder.Append(ctx, rec)
	metrics.DispatchTotal.WithLabelValues(rec.Provider, string(StatusSent)).Inc()

	e.saveContent(sendCtx, rec.ID, msg, log)

	span.SetAttributes(
		attribute.String("email.message_id", messageID),
		attribute.String("email.status", string(StatusSent)),
	)
	span.SetStatus(codes.Ok, "email sent")
	log.Info().
		Str("provider", rec.Provider).
		Str("provider_message_id", messageID).
		Str("to", rec.ToEmail).
		Msg("email sent")
	return rec, nil
}

func (e *Engine) fail(ctx context.Context, rec *Record, cause error) {
	msg := cause.Error()
	rec.Status = StatusFailed
	rec.ErrorMessage = &msg
	e.recorder.Append(ctx, rec)
}

func (e *Engine) saveContent(ctx context.Context, id string, msg *provider.Message, log zerolog.Logger) {
	if e.archive == nil {
		return
	}
	err := e.archive.Save(ctx, &Content{
		RecordID: id,
		Subject:  msg.Subject,
		Text:     msg.TextBody,
		HTML:     msg.HTMLBody,
		Created:  e.now(),
	})
	if err != nil {
		metrics.ArchiveWritesTotal.WithLabelValues("failure").Inc()
		log.Warn().Err(err).Msg("failed to archive rendered content")
		return
	}
	metrics.ArchiveWritesTotal.WithLabelValues("success").Inc()
}
