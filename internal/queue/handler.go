package queue

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/sungwon/email-dispatch/internal/delivery"
	"github.com/sungwon/email-dispatch/internal/metrics"
)

// DispatchHandler feeds queue messages into the dispatch engine. Failed
// deliveries are already recorded by the engine and are not redelivered.
type DispatchHandler struct {
	dispatcher delivery.Dispatcher
	log        zerolog.Logger
}

func NewDispatchHandler(dispatcher delivery.Dispatcher, log zerolog.Logger) *DispatchHandler {
	return &DispatchHandler{dispatcher: dispatcher, log: log}
}

// HandleMessage implements MessageHandler.
func (h *DispatchHandler) HandleMessage(ctx context.Context, msg *Message) error {
	log := h.log.With().Str("message_id", msg.ID).Str("event_type", msg.EventType).Logger()

	rec, err := h.dispatcher.Dispatch(ctx, &msg.Request)
	result := outcome(err)
	metrics.QueueMessagesConsumedTotal.WithLabelValues(result).Inc()

	switch result {
	case "sent":
		log.Info().Str("record_id", rec.ID).Msg("queued email dispatched")
	case "invalid":
		log.Warn().Err(err).Msg("discarding invalid queue message")
	default:
		log.Error().Err(err).Msg("queued email not delivered")
	}
	return err
}

func outcome(err error) string {
	var ve *delivery.ValidationError
	var de *delivery.DeliveryError
	switch {
	case err == nil:
		return "sent"
	case errors.As(err, &ve):
		return "invalid"
	case errors.Is(err, delivery.ErrProviderUnavailable):
		return "unavailable"
	case errors.As(err, &de):
		return "failed"
	default:
		return "error"
	}
}
