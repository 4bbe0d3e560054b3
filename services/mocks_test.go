package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"shop-service/gateway"
	"shop-service/models"
)

// MockStore satisfies every store interface the services depend on.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockStore) GetProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockStore) CreateProduct(ctx context.Context, p *models.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockStore) ListProducts(ctx context.Context, f models.CatalogFilter) ([]models.Product, int, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]models.Product), args.Int(1), args.Error(2)
}

func (m *MockStore) UpdateProduct(ctx context.Context, id string, req models.UpdateProductRequest) error {
	return m.Called(ctx, id, req).Error(0)
}

func (m *MockStore) AdjustStock(ctx context.Context, id string, delta int) error {
	return m.Called(ctx, id, delta).Error(0)
}

func (m *MockStore) CountOrderItemsForProduct(ctx context.Context, id string) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) DeleteProduct(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockStore) CreateCategory(ctx context.Context, c *models.Category) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockStore) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

func (m *MockStore) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

func (m *MockStore) ListCategories(ctx context.Context, f models.CatalogFilter) ([]models.Category, int, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]models.Category), args.Int(1), args.Error(2)
}

func (m *MockStore) UpdateCategory(ctx context.Context, c *models.Category) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockStore) DeleteCategory(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockStore) LatestOpenCart(ctx context.Context, userID string) (*models.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Cart), args.Error(1)
}

func (m *MockStore) CreateCart(ctx context.Context, c *models.Cart) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockStore) MarkCartCheckedOut(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockStore) CreateOrder(ctx context.Context, o *models.Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *MockStore) GetOrder(ctx context.Context, id, userID string) (*models.Order, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockStore) ListOrders(ctx context.Context, f models.OrderFilter) ([]models.Order, int, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]models.Order), args.Int(1), args.Error(2)
}

func (m *MockStore) UpdateOrder(ctx context.Context, id string, from models.OrderStatus, patch models.OrderPatch) error {
	return m.Called(ctx, id, from, patch).Error(0)
}

func (m *MockStore) CancelOrder(ctx context.Context, o *models.Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *MockStore) HasCompletedPayment(ctx context.Context, orderID string) (bool, error) {
	args := m.Called(ctx, orderID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) CreatePayment(ctx context.Context, p *models.Payment) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockStore) GetPaymentByTransaction(ctx context.Context, orderID, userID, transactionID string) (*models.Payment, error) {
	args := m.Called(ctx, orderID, userID, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockStore) CompletePayment(ctx context.Context, paymentID, orderID string) error {
	return m.Called(ctx, paymentID, orderID).Error(0)
}

func (m *MockStore) FailPayment(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockStore) GetPayment(ctx context.Context, id, userID string) (*models.Payment, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockStore) GetPaymentByOrder(ctx context.Context, orderID, userID string) (*models.Payment, error) {
	args := m.Called(ctx, orderID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockStore) ListPayments(ctx context.Context, userID string) ([]models.Payment, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.Payment), args.Error(1)
}

func (m *MockStore) CreateUser(ctx context.Context, u *models.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *MockStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStore) ListUsers(ctx context.Context, page, limit int) ([]models.User, int, error) {
	args := m.Called(ctx, page, limit)
	return args.Get(0).([]models.User), args.Int(1), args.Error(2)
}

func (m *MockStore) UpdateUser(ctx context.Context, u *models.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *MockStore) UpdatePassword(ctx context.Context, id, hash string) error {
	return m.Called(ctx, id, hash).Error(0)
}

func (m *MockStore) SetRefreshID(ctx context.Context, id string, refreshID *string) error {
	return m.Called(ctx, id, refreshID).Error(0)
}

func (m *MockStore) DeleteUser(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishOrderEvent(ctx context.Context, ev models.OrderEvent) error {
	return m.Called(ctx, ev).Error(0)
}

func (m *MockPublisher) PublishDelayedEvent(ctx context.Context, ev models.OrderEvent, delay time.Duration) error {
	return m.Called(ctx, ev, delay).Error(0)
}

type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) CreateIntent(ctx context.Context, req gateway.IntentRequest) (*gateway.Intent, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Intent), args.Error(1)
}

func (m *MockProcessor) GetIntent(ctx context.Context, id string) (*gateway.Intent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Intent), args.Error(1)
}

func strPtr(s string) *string { return &s }
