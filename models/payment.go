package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

const PaymentMethodStripe = "STRIPE"

type Payment struct {
	ID            string          `json:"id"`
	OrderID       string          `json:"orderId"`
	UserID        string          `json:"userId"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Status        PaymentStatus   `json:"status"`
	PaymentMethod *string         `json:"paymentMethod"`
	TransactionID *string         `json:"transactionId"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

type CreatePaymentIntentRequest struct {
	OrderID     string           `json:"orderId" binding:"required"`
	Amount      *decimal.Decimal `json:"amount" binding:"omitempty,gt=0"`
	Currency    string           `json:"currency" binding:"omitempty,len=3,alpha"`
	Description string           `json:"description" binding:"omitempty,max=255"`
}

type PaymentIntentResult struct {
	ClientSecret string `json:"clientSecret"`
	PaymentID    string `json:"paymentId"`
}

type ConfirmPaymentRequest struct {
	PaymentIntentID string `json:"paymentIntentId" binding:"required"`
	OrderID         string `json:"orderId" binding:"required"`
}

type Cart struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	CheckedOut bool      `json:"checkedOut"`
	CreatedAt  time.Time `json:"createdAt"`
}
