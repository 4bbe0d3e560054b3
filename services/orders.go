package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"shop-service/apperrors"
	"shop-service/logger"
	"shop-service/models"
	"shop-service/store"
)

type OrderStore interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	LatestOpenCart(ctx context.Context, userID string) (*models.Cart, error)
	CreateOrder(ctx context.Context, o *models.Order) error
	GetOrder(ctx context.Context, id, userID string) (*models.Order, error)
	ListOrders(ctx context.Context, f models.OrderFilter) ([]models.Order, int, error)
	UpdateOrder(ctx context.Context, id string, from models.OrderStatus, patch models.OrderPatch) error
	CancelOrder(ctx context.Context, o *models.Order) error
}

type OrderService struct {
	store          OrderStore
	events         EventPublisher
	log            *logger.Logger
	paymentTimeout time.Duration
}

func NewOrderService(st OrderStore, events EventPublisher, log *logger.Logger, paymentTimeout time.Duration) *OrderService {
	return &OrderService{store: st, events: events, log: log.With("component", "orders"), paymentTimeout: paymentTimeout}
}

// Create validates every line against the catalog, then writes the order,
// its items and the stock decrements in one transaction.
func (s *OrderService) Create(ctx context.Context, userID string, req models.CreateOrderRequest) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, apperrors.Validation("Order must contain at least one item")
	}

	products := make(map[string]*models.Product)
	requested := make(map[string]int)
	var productOrder []string
	items := make([]models.OrderItem, 0, len(req.Items))
	total := decimal.Zero

	for _, in := range req.Items {
		if in.Quantity < 1 {
			return nil, apperrors.Validation("Quantity must be at least 1")
		}
		p, ok := products[in.ProductID]
		if !ok {
			var err error
			p, err = s.store.GetProduct(ctx, in.ProductID)
			if errors.Is(err, store.ErrNotFound) {
				return nil, apperrors.NotFound("Product with ID %s not found", in.ProductID)
			}
			if err != nil {
				return nil, apperrors.Internal("Failed to create order", err)
			}
			products[in.ProductID] = p
			productOrder = append(productOrder, in.ProductID)
		}
		if !p.IsActive {
			return nil, apperrors.InvalidState("Product %s is not available", p.Name)
		}
		if in.Price != nil && !in.Price.Equal(p.Price) {
			return nil, apperrors.InvalidState("Price of product %s has changed to %s", p.Name, p.Price.StringFixed(2))
		}

		requested[in.ProductID] += in.Quantity
		subtotal := p.Price.Mul(decimal.NewFromInt(int64(in.Quantity)))
		total = total.Add(subtotal)
		items = append(items, models.OrderItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    in.Quantity,
			Price:       p.Price,
			Subtotal:    subtotal,
		})
	}

	for _, id := range productOrder {
		p := products[id]
		if p.Stock < requested[id] {
			return nil, apperrors.InvalidState("Insufficient stock for product %s. Available: %d", p.Name, p.Stock)
		}
	}

	order := &models.Order{
		UserID:          userID,
		Status:          models.OrderStatusPending,
		TotalAmount:     total,
		ShippingAddress: req.ShippingAddress,
		Items:           items,
	}

	cart, err := s.store.LatestOpenCart(ctx, userID)
	switch {
	case err == nil:
		order.CartID = &cart.ID
	case !errors.Is(err, store.ErrNotFound):
		return nil, apperrors.Internal("Failed to create order", err)
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		if errors.Is(err, store.ErrInsufficientStock) {
			return nil, apperrors.InvalidState("Insufficient stock")
		}
		return nil, apperrors.Internal("Failed to create order", err)
	}
	s.log.Info("order created", "order_id", order.ID, "user_id", userID, "total", order.TotalAmount.String())

	publish(ctx, s.events, s.log, order, models.OrderEventCreated)
	if s.paymentTimeout > 0 {
		ev := models.NewOrderEvent(order, models.OrderEventPaymentCheck)
		if err := s.events.PublishDelayedEvent(ctx, ev, s.paymentTimeout); err != nil {
			s.log.Warn("failed to schedule payment check", "order_id", order.ID, "error", err)
		}
	}
	return order, nil
}

func (s *OrderService) FindAll(ctx context.Context, userID string, q models.OrderQuery) ([]models.Order, models.PageMeta, error) {
	return s.list(ctx, userID, q)
}

func (s *OrderService) FindAllForAdmin(ctx context.Context, q models.OrderQuery) ([]models.Order, models.PageMeta, error) {
	return s.list(ctx, "", q)
}

func (s *OrderService) list(ctx context.Context, userID string, q models.OrderQuery) ([]models.Order, models.PageMeta, error) {
	page, limit := models.Paginate(q.Page, q.Limit)
	orders, total, err := s.store.ListOrders(ctx, models.OrderFilter{
		UserID: userID,
		Status: q.Status,
		Search: q.Search,
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return nil, models.PageMeta{}, apperrors.Internal("Failed to fetch orders", err)
	}
	return orders, models.NewPageMeta(total, page, limit), nil
}

// FindOne returns an order with its items. An empty userID skips the
// ownership check.
func (s *OrderService) FindOne(ctx context.Context, id, userID string) (*models.Order, error) {
	o, err := s.store.GetOrder(ctx, id, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NotFound("Order with ID %s not found", id)
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to fetch order", err)
	}
	return o, nil
}

// Update applies patch. Administrators pass an empty userID and may move the
// status along PENDING, PROCESSING, SHIPPED, DELIVERED; owners may only edit
// notes, and the shipping address while the order is pending.
func (s *OrderService) Update(ctx context.Context, id string, patch models.OrderPatch, userID string) (*models.Order, error) {
	if patch.Empty() {
		return nil, apperrors.Validation("No fields to update")
	}
	admin := userID == ""

	o, err := s.FindOne(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if !admin && (patch.Status != nil || patch.TrackingNumber != nil) {
		return nil, apperrors.Forbidden("Only administrators can change order status or tracking")
	}
	if patch.ShippingAddress != nil && o.Status != models.OrderStatusPending {
		return nil, apperrors.InvalidState("Shipping address can only be changed while the order is pending")
	}

	statusChanged := false
	if patch.Status != nil {
		to := *patch.Status
		switch {
		case !to.Valid():
			return nil, apperrors.Validation("Invalid order status %s", to)
		case to == o.Status:
			patch.Status = nil
		case to == models.OrderStatusCancelled:
			return nil, apperrors.InvalidState("Orders are cancelled through the cancel endpoint")
		case !models.CanTransition(o.Status, to):
			return nil, apperrors.InvalidState("Cannot change order status from %s to %s", o.Status, to)
		default:
			statusChanged = true
		}
	}

	if err := s.store.UpdateOrder(ctx, id, o.Status, patch); err != nil {
		if errors.Is(err, store.ErrStatusChanged) {
			return nil, apperrors.InvalidState("Order was modified concurrently, please retry")
		}
		return nil, apperrors.Internal("Failed to update order", err)
	}

	updated, err := s.FindOne(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if statusChanged {
		s.log.Info("order status changed", "order_id", id, "from", o.Status, "to", updated.Status)
		publish(ctx, s.events, s.log, updated, models.OrderEventStatusUpdated)
	}
	return updated, nil
}

// Cancel cancels a pending order and restores its stock.
func (s *OrderService) Cancel(ctx context.Context, id, userID string) (*models.Order, error) {
	o, err := s.FindOne(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if o.Status != models.OrderStatusPending {
		return nil, apperrors.InvalidState("Only pending orders can be cancelled")
	}

	if err := s.store.CancelOrder(ctx, o); err != nil {
		if errors.Is(err, store.ErrStatusChanged) {
			return nil, apperrors.InvalidState("Only pending orders can be cancelled")
		}
		return nil, apperrors.Internal("Failed to cancel order", err)
	}
	o.Status = models.OrderStatusCancelled
	s.log.Info("order cancelled", "order_id", id)

	publish(ctx, s.events, s.log, o, models.OrderEventCancelled)
	return o, nil
}

// ExpireUnpaid cancels the order if it is still pending once the payment
// window has passed. Orders that moved on are left alone.
func (s *OrderService) ExpireUnpaid(ctx context.Context, id string) error {
	o, err := s.store.GetOrder(ctx, id, "")
	if errors.Is(err, store.ErrNotFound) {
		s.log.Warn("payment check for unknown order", "order_id", id)
		return nil
	}
	if err != nil {
		return err
	}
	if o.Status != models.OrderStatusPending {
		return nil
	}

	if err := s.store.CancelOrder(ctx, o); err != nil {
		if errors.Is(err, store.ErrStatusChanged) {
			return nil
		}
		return err
	}
	o.Status = models.OrderStatusCancelled
	s.log.Info("auto-cancelled unpaid order", "order_id", id)

	publish(ctx, s.events, s.log, o, models.OrderEventCancelled)
	return nil
}
