package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"shop-service/config"
	"shop-service/logger"
	"shop-service/models"
)

const (
	defaultPriority    = 5
	cancelledPriority  = 8
	largeOrderPriority = 9
)

var largeOrderTotal = decimal.NewFromInt(1000)

// RabbitMQ publishes order events. Channels are not safe for concurrent
// publishing, so Publish calls are serialised.
type RabbitMQ struct {
	Conn    *amqp.Connection
	Channel *amqp.Channel
	Cfg     *config.Config

	log     *logger.Logger
	mu      sync.Mutex
	delayed bool
}

// ErrDelayUnavailable is returned by PublishDelayedEvent when the broker
// lacks the delayed message exchange.
var ErrDelayUnavailable = errors.New("delayed exchange unavailable")

func NewRabbitMQ(cfg *config.Config, log *logger.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	return &RabbitMQ{
		Conn:    conn,
		Channel: ch,
		Cfg:     cfg,
		log:     log,
	}, nil
}

func (r *RabbitMQ) deadLetterExchange() string {
	return r.Cfg.DeadLetterQueue + "_exchange"
}

// SetupQueues declares the topology: the order exchange feeding a priority
// queue that dead-letters into the DLQ, and the delayed exchange routed to
// the same queue.
func (r *RabbitMQ) SetupQueues() error {
	if err := r.Channel.ExchangeDeclare(
		r.deadLetterExchange(),
		"direct",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare dead letter exchange: %w", err)
	}

	if _, err := r.Channel.QueueDeclare(
		r.Cfg.DeadLetterQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		amqp.Table{"x-queue-type": "classic"},
	); err != nil {
		return fmt.Errorf("declare dead letter queue: %w", err)
	}

	if err := r.Channel.QueueBind(
		r.Cfg.DeadLetterQueue,
		r.Cfg.DeadLetterQueue,
		r.deadLetterExchange(),
		false,
		nil,
	); err != nil {
		return fmt.Errorf("bind dead letter queue: %w", err)
	}

	if err := r.Channel.ExchangeDeclare(
		r.Cfg.OrderExchange,
		"fanout",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("declare order exchange: %w", err)
	}

	if _, err := r.Channel.QueueDeclare(
		r.Cfg.OrderQueue,
		true,
		false,
		false,
		false,
		amqp.Table{
			"x-max-priority":            r.Cfg.MaxPriority,
			"x-dead-letter-exchange":    r.deadLetterExchange(),
			"x-dead-letter-routing-key": r.Cfg.DeadLetterQueue,
		},
	); err != nil {
		return fmt.Errorf("declare order queue: %w", err)
	}

	if err := r.Channel.QueueBind(r.Cfg.OrderQueue, "", r.Cfg.OrderExchange, false, nil); err != nil {
		return fmt.Errorf("bind order queue: %w", err)
	}

	// Needs the rabbitmq_delayed_message_exchange plugin. Without it the
	// server closes the channel, so the check runs on a throwaway one.
	if err := r.declareDelayExchange(); err != nil {
		r.log.Warn("delayed exchange not supported, payment checks disabled", "error", err)
	} else {
		r.delayed = true
	}

	return nil
}

func (r *RabbitMQ) declareDelayExchange() error {
	side, err := r.Conn.Channel()
	if err != nil {
		return err
	}
	defer side.Close()

	if err := side.ExchangeDeclare(
		r.Cfg.DelayExchange,
		"x-delayed-message",
		true,
		false,
		false,
		false,
		amqp.Table{"x-delayed-type": "direct"},
	); err != nil {
		return err
	}
	return side.QueueBind(r.Cfg.OrderQueue, r.Cfg.OrderQueue, r.Cfg.DelayExchange, false, nil)
}

// priorityFor ranks large orders and cancellations ahead of routine events.
func priorityFor(ev models.OrderEvent) uint8 {
	switch {
	case ev.Total.GreaterThan(largeOrderTotal):
		return largeOrderPriority
	case ev.Type == models.OrderEventCancelled:
		return cancelledPriority
	default:
		return defaultPriority
	}
}

func encodeEvent(ev models.OrderEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode order event: %w", err)
	}
	return amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.Occurred,
		ContentType:  "application/json",
		Type:         string(ev.Type),
		MessageId:    ev.OrderID + ":" + string(ev.Type),
		Body:         body,
	}, nil
}

func (r *RabbitMQ) PublishOrderEvent(ctx context.Context, ev models.OrderEvent) error {
	msg, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	msg.Priority = priorityFor(ev)
	return r.publish(ctx, r.Cfg.OrderExchange, "", msg)
}

// PublishDelayedEvent delivers ev to the order queue after delay.
func (r *RabbitMQ) PublishDelayedEvent(ctx context.Context, ev models.OrderEvent, delay time.Duration) error {
	if !r.delayed {
		return ErrDelayUnavailable
	}
	msg, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	msg.Headers = amqp.Table{"x-delay": delay.Milliseconds()}
	return r.publish(ctx, r.Cfg.DelayExchange, r.Cfg.OrderQueue, msg)
}

func (r *RabbitMQ) publish(ctx context.Context, exchange, key string, msg amqp.Publishing) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.Channel.PublishWithContext(ctx, exchange, key, false, false, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", exchange, err)
	}
	return nil
}

func (r *RabbitMQ) Close() {
	if r.Channel != nil {
		if err := r.Channel.Close(); err != nil {
			r.log.Warn("close rabbitmq channel", "error", err)
		}
	}
	if r.Conn != nil {
		if err := r.Conn.Close(); err != nil {
			r.log.Warn("close rabbitmq connection", "error", err)
		}
	}
}
