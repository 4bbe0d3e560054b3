package consumers

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"shop-service/config"
	"shop-service/logger"
	"shop-service/models"
)

// OrderExpirer cancels orders whose payment window has passed.
type OrderExpirer interface {
	ExpireUnpaid(ctx context.Context, id string) error
}

type OrderConsumer struct {
	orders OrderExpirer
	log    *logger.Logger
}

func NewOrderConsumer(orders OrderExpirer, log *logger.Logger) *OrderConsumer {
	return &OrderConsumer{orders: orders, log: log}
}

// Start consumes the order queue and the dead letter queue until ctx is
// cancelled or the channel closes.
func (oc *OrderConsumer) Start(ctx context.Context, ch *amqp.Channel, cfg *config.Config) error {
	msgs, err := ch.Consume(
		cfg.OrderQueue,
		"shop-service", // consumer tag
		false,          // auto-ack
		false,          // exclusive
		false,          // no-local
		false,          // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume %s: %w", cfg.OrderQueue, err)
	}

	dlqMsgs, err := ch.Consume(cfg.DeadLetterQueue, "shop-service-dlq", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", cfg.DeadLetterQueue, err)
	}

	go oc.loop(ctx, msgs, oc.processOrderMessage)
	go oc.loop(ctx, dlqMsgs, oc.processDeadLetterMessage)
	return nil
}

func (oc *OrderConsumer) loop(ctx context.Context, msgs <-chan amqp.Delivery, handle func(context.Context, amqp.Delivery)) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			handle(ctx, msg)
		}
	}
}

func (oc *OrderConsumer) processOrderMessage(ctx context.Context, msg amqp.Delivery) {
	defer func() {
		if r := recover(); r != nil {
			oc.log.Error("recovered from panic in message processing", "panic", r)
			oc.settle(msg, msg.Nack(false, false))
		}
	}()

	var ev models.OrderEvent
	if err := json.Unmarshal(msg.Body, &ev); err != nil || ev.OrderID == "" {
		oc.log.Warn("invalid order message", "body", string(msg.Body), "error", err)
		oc.settle(msg, msg.Nack(false, false))
		return
	}

	log := oc.log.With("order_id", ev.OrderID, "type", ev.Type)
	log.Debug("processing order event")

	switch ev.Type {
	case models.OrderEventCreated, models.OrderEventStatusUpdated, models.OrderEventCancelled, models.OrderEventPaid:
		log.Info("order event", "status", ev.Status, "total", ev.Total.StringFixed(2))
	case models.OrderEventPaymentCheck:
		if err := oc.orders.ExpireUnpaid(ctx, ev.OrderID); err != nil {
			// One retry, then the message goes to the dead letter queue.
			log.Error("payment check failed", "error", err, "redelivered", msg.Redelivered)
			oc.settle(msg, msg.Nack(false, !msg.Redelivered))
			return
		}
	default:
		log.Warn("unknown order event type")
	}

	oc.settle(msg, msg.Ack(false))
}

func (oc *OrderConsumer) processDeadLetterMessage(_ context.Context, msg amqp.Delivery) {
	reason := ""
	if deaths, ok := msg.Headers["x-death"].([]any); ok && len(deaths) > 0 {
		if d, ok := deaths[0].(amqp.Table); ok {
			reason, _ = d["reason"].(string)
		}
	}
	oc.log.Warn("dead letter received", "body", string(msg.Body), "reason", reason)
	oc.settle(msg, msg.Ack(false))
}

func (oc *OrderConsumer) settle(msg amqp.Delivery, err error) {
	if err != nil {
		oc.log.Error("failed to settle message", "delivery_tag", msg.DeliveryTag, "error", err)
	}
}
