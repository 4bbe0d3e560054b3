package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// CANCELLED is reachable only through the cancel workflow, which restores stock.
var validNext = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusPending:    {OrderStatusProcessing: true},
	OrderStatusProcessing: {OrderStatusShipped: true},
	OrderStatusShipped:    {OrderStatusDelivered: true},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

func (s OrderStatus) Valid() bool {
	_, ok := validNext[s]
	return ok
}

func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	Status          OrderStatus     `json:"status"`
	TotalAmount     decimal.Decimal `json:"total"`
	ShippingAddress string          `json:"shippingAddress"`
	TrackingNumber  *string         `json:"trackingNumber,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
	CartID          *string         `json:"cartId,omitempty"`
	UserEmail       string          `json:"userEmail,omitempty"`
	UserName        string          `json:"userName,omitempty"`
	Items           []OrderItem     `json:"items"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

type OrderItem struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"-"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// OrderItemInput is one requested line. Price is optional; when present it
// must match the catalog price.
type OrderItemInput struct {
	ProductID string           `json:"productId" binding:"required"`
	Quantity  int              `json:"quantity" binding:"required,min=1"`
	Price     *decimal.Decimal `json:"price,omitempty"`
}

type CreateOrderRequest struct {
	Items           []OrderItemInput `json:"items" binding:"required,min=1,dive"`
	ShippingAddress string           `json:"shippingAddress" binding:"omitempty,max=500"`
}

// OrderPatch carries the optional fields of an order update.
type OrderPatch struct {
	Status          *OrderStatus `json:"status,omitempty"`
	TrackingNumber  *string      `json:"trackingNumber,omitempty" binding:"omitempty,max=100"`
	Notes           *string      `json:"notes,omitempty" binding:"omitempty,max=1000"`
	ShippingAddress *string      `json:"shippingAddress,omitempty" binding:"omitempty,max=500"`
}

func (p OrderPatch) Empty() bool {
	return p.Status == nil && p.TrackingNumber == nil && p.Notes == nil && p.ShippingAddress == nil
}

type OrderQuery struct {
	Page   int         `form:"page" binding:"omitempty,min=1"`
	Limit  int         `form:"limit" binding:"omitempty,min=1,max=100"`
	Status OrderStatus `form:"status" binding:"omitempty,oneof=PENDING PROCESSING SHIPPED DELIVERED CANCELLED"`
	Search string      `form:"search" binding:"omitempty,max=100"`
}

// OrderFilter is the store-level view of OrderQuery. An empty UserID lists
// every user's orders.
type OrderFilter struct {
	UserID string
	Status OrderStatus
	Search string
	Page   int
	Limit  int
}

type OrderEventType string

const (
	OrderEventCreated       OrderEventType = "created"
	OrderEventStatusUpdated OrderEventType = "status_updated"
	OrderEventCancelled     OrderEventType = "cancelled"
	OrderEventPaid          OrderEventType = "paid"
	OrderEventPaymentCheck  OrderEventType = "payment_check"
)

type OrderEvent struct {
	OrderID  string          `json:"order_id"`
	UserID   string          `json:"user_id"`
	Type     OrderEventType  `json:"type"`
	Status   OrderStatus     `json:"status"`
	Total    decimal.Decimal `json:"total"`
	Occurred time.Time       `json:"occurred"`
}

func NewOrderEvent(o *Order, typ OrderEventType) OrderEvent {
	return OrderEvent{
		OrderID:  o.ID,
		UserID:   o.UserID,
		Type:     typ,
		Status:   o.Status,
		Total:    o.TotalAmount,
		Occurred: time.Now().UTC(),
	}
}
