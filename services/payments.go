package services

import (
	"context"
	"errors"
	"strings"

	"shop-service/apperrors"
	"shop-service/gateway"
	"shop-service/logger"
	"shop-service/models"
	"shop-service/store"
)

const defaultCurrency = "usd"

type PaymentStore interface {
	GetOrder(ctx context.Context, id, userID string) (*models.Order, error)
	HasCompletedPayment(ctx context.Context, orderID string) (bool, error)
	CreatePayment(ctx context.Context, p *models.Payment) error
	GetPaymentByTransaction(ctx context.Context, orderID, userID, transactionID string) (*models.Payment, error)
	CompletePayment(ctx context.Context, paymentID, orderID string) error
	FailPayment(ctx context.Context, id string) error
	MarkCartCheckedOut(ctx context.Context, id string) error
	GetPayment(ctx context.Context, id, userID string) (*models.Payment, error)
	GetPaymentByOrder(ctx context.Context, orderID, userID string) (*models.Payment, error)
	ListPayments(ctx context.Context, userID string) ([]models.Payment, error)
}

type PaymentService struct {
	store     PaymentStore
	processor gateway.Processor
	events    EventPublisher
	log       *logger.Logger
}

func NewPaymentService(st PaymentStore, processor gateway.Processor, events EventPublisher, log *logger.Logger) *PaymentService {
	return &PaymentService{store: st, processor: processor, events: events, log: log.With("component", "payments")}
}

// CreateIntent opens a payment intent at the processor for a pending order
// and records it as a PENDING payment.
func (s *PaymentService) CreateIntent(ctx context.Context, userID string, req models.CreatePaymentIntentRequest) (*models.PaymentIntentResult, error) {
	order, err := s.store.GetOrder(ctx, req.OrderID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NotFound("Order with ID %s not found", req.OrderID)
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to create payment intent", err)
	}

	paid, err := s.store.HasCompletedPayment(ctx, order.ID)
	if err != nil {
		return nil, apperrors.Internal("Failed to create payment intent", err)
	}
	if paid {
		return nil, apperrors.InvalidState("Order has already been paid")
	}
	if order.Status != models.OrderStatusPending {
		return nil, apperrors.InvalidState("Only pending orders can be paid")
	}

	amount := order.TotalAmount
	if req.Amount != nil && !req.Amount.Equal(amount) {
		return nil, apperrors.InvalidState("Payment amount does not match order total of %s", amount.StringFixed(2))
	}
	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = defaultCurrency
	}
	description := req.Description
	if description == "" {
		description = "Order " + order.ID
	}

	intent, err := s.processor.CreateIntent(ctx, gateway.IntentRequest{
		Amount:      amount,
		Currency:    currency,
		Description: description,
		Metadata:    map[string]string{"orderId": order.ID, "userId": userID},
	})
	if err != nil {
		return nil, apperrors.Internal("Failed to create payment intent", err)
	}

	method := models.PaymentMethodStripe
	payment := &models.Payment{
		OrderID:       order.ID,
		UserID:        userID,
		Amount:        amount,
		Currency:      currency,
		Status:        models.PaymentStatusPending,
		PaymentMethod: &method,
		TransactionID: &intent.ID,
	}
	if err := s.store.CreatePayment(ctx, payment); err != nil {
		return nil, apperrors.Internal("Failed to create payment intent", err)
	}
	s.log.Info("payment intent created", "payment_id", payment.ID, "order_id", order.ID, "intent", intent.ID)

	return &models.PaymentIntentResult{ClientSecret: intent.ClientSecret, PaymentID: payment.ID}, nil
}

// Confirm checks the intent with the processor and, when it succeeded, marks
// the payment COMPLETED and the order PROCESSING together. The order's cart
// is checked out afterwards on a best-effort basis.
func (s *PaymentService) Confirm(ctx context.Context, userID string, req models.ConfirmPaymentRequest) (*models.Payment, error) {
	payment, err := s.store.GetPaymentByTransaction(ctx, req.OrderID, userID, req.PaymentIntentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NotFound("Payment not found")
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to confirm payment", err)
	}
	if err := settledPaymentError(payment.Status); err != nil {
		return nil, err
	}

	intent, err := s.processor.GetIntent(ctx, req.PaymentIntentID)
	if err != nil {
		return nil, apperrors.Internal("Failed to verify payment", err)
	}
	if intent.Canceled() {
		if err := s.store.FailPayment(ctx, payment.ID); err != nil && !errors.Is(err, store.ErrStatusChanged) {
			s.log.Warn("failed to mark payment failed", "payment_id", payment.ID, "error", err)
		}
		return nil, apperrors.InvalidState("Payment failed")
	}
	if !intent.Succeeded() {
		return nil, apperrors.InvalidState("Payment not successful")
	}

	if err := s.store.CompletePayment(ctx, payment.ID, req.OrderID); err != nil {
		if !errors.Is(err, store.ErrStatusChanged) {
			return nil, apperrors.Internal("Failed to confirm payment", err)
		}
		// The order was cancelled or paid while the intent was checked.
		if current, rerr := s.store.GetPaymentByTransaction(ctx, req.OrderID, userID, req.PaymentIntentID); rerr == nil {
			if err := settledPaymentError(current.Status); err != nil {
				return nil, err
			}
		}
		return nil, apperrors.InvalidState("Payment can no longer be completed for this order")
	}
	payment.Status = models.PaymentStatusCompleted
	s.log.Info("payment completed", "payment_id", payment.ID, "order_id", req.OrderID)

	order, err := s.store.GetOrder(ctx, req.OrderID, userID)
	if err != nil {
		s.log.Warn("failed to reload paid order", "order_id", req.OrderID, "error", err)
		return payment, nil
	}
	if order.CartID != nil {
		if err := s.store.MarkCartCheckedOut(ctx, *order.CartID); err != nil {
			s.log.Warn("failed to check out cart", "cart_id", *order.CartID, "order_id", order.ID, "error", err)
		}
	}
	publish(ctx, s.events, s.log, order, models.OrderEventPaid)
	return payment, nil
}

func settledPaymentError(status models.PaymentStatus) error {
	switch status {
	case models.PaymentStatusCompleted:
		return apperrors.InvalidState("Payment already completed")
	case models.PaymentStatusCancelled:
		return apperrors.InvalidState("Payment was cancelled because the order was cancelled")
	case models.PaymentStatusFailed:
		return apperrors.InvalidState("Payment failed")
	}
	return nil
}

func (s *PaymentService) FindAll(ctx context.Context, userID string) ([]models.Payment, error) {
	payments, err := s.store.ListPayments(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("Failed to fetch payments", err)
	}
	return payments, nil
}

func (s *PaymentService) FindOne(ctx context.Context, id, userID string) (*models.Payment, error) {
	p, err := s.store.GetPayment(ctx, id, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NotFound("Payment with ID %s not found", id)
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to fetch payment", err)
	}
	return p, nil
}

// FindByOrder returns nil without an error when the order has no payment.
func (s *PaymentService) FindByOrder(ctx context.Context, orderID, userID string) (*models.Payment, error) {
	p, err := s.store.GetPaymentByOrder(ctx, orderID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to fetch payment", err)
	}
	return p, nil
}
