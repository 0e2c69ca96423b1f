// Package event holds the application's subscribers to domain events.
package event

import (
	"context"

	"github.com/donation/backend/internal/domain/shared"
	infraevent "github.com/donation/backend/internal/infrastructure/event"
	"go.uber.org/zap"
)

// ActivityLogHandler writes every domain event to the structured log as an
// audit trail of campaign, donation and admin activity
type ActivityLogHandler struct {
	serializer *infraevent.EventSerializer
	logger     *zap.Logger
}

// NewActivityLogHandler creates a new ActivityLogHandler
func NewActivityLogHandler(serializer *infraevent.EventSerializer, logger *zap.Logger) *ActivityLogHandler {
	if serializer == nil {
		serializer = infraevent.NewDomainEventSerializer()
	}
	return &ActivityLogHandler{
		serializer: serializer,
		logger:     logger.Named("activity"),
	}
}

// Handle logs the event with its serialized payload
func (h *ActivityLogHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	payload, err := h.serializer.Serialize(event)
	if err != nil {
		return err
	}
	h.logger.Info("domain event",
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
		zap.ByteString("payload", payload),
	)
	return nil
}

// EventTypes returns nil so the handler receives every event
func (h *ActivityLogHandler) EventTypes() []string {
	return nil
}
