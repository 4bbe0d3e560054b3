package gateway

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var ErrNotConfigured = errors.New("payment processor is not configured")

const (
	StatusSucceeded = "succeeded"
	StatusCanceled  = "canceled"
)

type IntentRequest struct {
	Amount      decimal.Decimal
	Currency    string
	Description string
	Metadata    map[string]string
}

// Intent is the processor's view of a payment attempt.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
}

func (i *Intent) Succeeded() bool {
	return i.Status == StatusSucceeded
}

// Canceled reports whether the intent can no longer succeed.
func (i *Intent) Canceled() bool {
	return i.Status == StatusCanceled
}

// Processor creates and inspects payment intents at an external provider.
type Processor interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	GetIntent(ctx context.Context, id string) (*Intent, error)
}

// MinorUnits converts an amount to the smallest currency unit (cents).
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

type unconfigured struct{}

// Unconfigured returns a Processor that fails every call. It lets the
// service start without processor credentials.
func Unconfigured() Processor { return unconfigured{} }

func (unconfigured) CreateIntent(context.Context, IntentRequest) (*Intent, error) {
	return nil, ErrNotConfigured
}

func (unconfigured) GetIntent(context.Context, string) (*Intent, error) {
	return nil, ErrNotConfigured
}
