package services

import (
	"context"
	"time"

	"shop-service/logger"
	"shop-service/models"
)

// EventPublisher delivers order lifecycle events to the message broker.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, ev models.OrderEvent) error
	PublishDelayedEvent(ctx context.Context, ev models.OrderEvent, delay time.Duration) error
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderEvent(context.Context, models.OrderEvent) error { return nil }

func (NoopPublisher) PublishDelayedEvent(context.Context, models.OrderEvent, time.Duration) error {
	return nil
}

// publish sends ev after the database work is committed. Broker failures are
// logged and never fail the request.
func publish(ctx context.Context, events EventPublisher, log *logger.Logger, o *models.Order, typ models.OrderEventType) {
	if err := events.PublishOrderEvent(ctx, models.NewOrderEvent(o, typ)); err != nil {
		log.Warn("failed to publish order event", "order_id", o.ID, "type", typ, "error", err)
	}
}
