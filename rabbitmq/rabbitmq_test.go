package rabbitmq

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-service/models"
)

func event(typ models.OrderEventType, total string) models.OrderEvent {
	return models.OrderEvent{
		OrderID:  "o1",
		UserID:   "u1",
		Type:     typ,
		Status:   models.OrderStatusPending,
		Total:    decimal.RequireFromString(total),
		Occurred: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestPriorityFor(t *testing.T) {
	tests := []struct {
		name string
		ev   models.OrderEvent
		want uint8
	}{
		{"routine", event(models.OrderEventCreated, "99.99"), defaultPriority},
		{"boundary is not large", event(models.OrderEventCreated, "1000"), defaultPriority},
		{"large order", event(models.OrderEventCreated, "1000.01"), largeOrderPriority},
		{"cancellation", event(models.OrderEventCancelled, "10"), cancelledPriority},
		{"large cancellation", event(models.OrderEventCancelled, "5000"), largeOrderPriority},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, priorityFor(tt.ev))
		})
	}
}

func TestEncodeEvent(t *testing.T) {
	ev := event(models.OrderEventPaid, "25.50")

	msg, err := encodeEvent(ev)
	require.NoError(t, err)

	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, "paid", msg.Type)
	assert.Equal(t, "o1:paid", msg.MessageId)
	assert.Equal(t, ev.Occurred, msg.Timestamp)

	var decoded models.OrderEvent
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, "o1", decoded.OrderID)
	assert.True(t, decoded.Total.Equal(ev.Total))
	assert.Contains(t, string(msg.Body), `"order_id":"o1"`)
}

func TestPublishDelayedEvent_WithoutDelayExchange(t *testing.T) {
	r := &RabbitMQ{}

	err := r.PublishDelayedEvent(context.Background(), event(models.OrderEventPaymentCheck, "10"), time.Minute)

	assert.ErrorIs(t, err, ErrDelayUnavailable)
}
