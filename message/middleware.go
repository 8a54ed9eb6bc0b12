package message

import (
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/lithammer/shortuuid/v3"
	"github.com/sirupsen/logrus"
)

// History writes are keyed by event id, so retries never duplicate entries.
var historyRetry = middleware.Retry{
	MaxRetries:      10,
	InitialInterval: time.Millisecond * 100,
	MaxInterval:     time.Second,
	Multiplier:      2,
}

func addMiddlewares(router *message.Router, logger watermill.LoggerAdapter) {
	retry := historyRetry
	retry.Logger = logger

	router.AddMiddleware(middleware.Recoverer)
	router.AddMiddleware(correlationIDMiddleware)
	router.AddMiddleware(ticketLoggerMiddleware)
	router.AddMiddleware(handlerLogMiddleware)
	router.AddMiddleware(retry.Middleware)
}

func correlationIDMiddleware(next message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		correlationID := middleware.MessageCorrelationID(msg)
		if correlationID == "" {
			correlationID = "gen_" + shortuuid.New()
		}

		msg.SetContext(log.ContextWithCorrelationID(msg.Context(), correlationID))

		return next(msg)
	}
}

// ticketEnvelope is the part every ticket event shares.
type ticketEnvelope struct {
	Header struct {
		IdempotencyKey string `json:"idempotency_key"`
	} `json:"header"`
	BookingReference string `json:"booking_reference"`
}

func ticketLoggerMiddleware(next message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		fields := logrus.Fields{
			"message_uuid":   msg.UUID,
			"event_name":     msg.Metadata.Get("name"),
			"correlation_id": log.CorrelationIDFromContext(msg.Context()),
		}

		var envelope ticketEnvelope
		if err := json.Unmarshal(msg.Payload, &envelope); err == nil {
			fields["booking_reference"] = envelope.BookingReference
			fields["idempotency_key"] = envelope.Header.IdempotencyKey
		}

		msg.SetContext(log.ToContext(msg.Context(), logrus.WithFields(fields)))

		return next(msg)
	}
}

func handlerLogMiddleware(next message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		logger := log.FromContext(msg.Context())
		start := time.Now()

		msgs, err := next(msg)

		logger = logger.WithField("duration", time.Since(start))
		if err != nil {
			logger.WithError(err).Error("Ticket event handling failed")
		} else {
			logger.Debug("Ticket event handled")
		}

		return msgs, err
	}
}
