package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"shop-service/apperrors"
	"shop-service/logger"
	"shop-service/models"
	"shop-service/store"
	"shop-service/utils"
)

const (
	userID  = "6f1c1f0e-4d0a-4a86-9d43-1d8f3c3f0a01"
	adminID = "6f1c1f0e-4d0a-4a86-9d43-1d8f3c3f0a02"
	orderID = "0b7e7c43-1c55-4a9b-8f0e-5a1b2c3d4e5f"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := RegisterValidators(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type MockAuth struct{ mock.Mock }

func (m *MockAuth) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*models.AuthResponse)
	return res, args.Error(1)
}

func (m *MockAuth) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*models.AuthResponse)
	return res, args.Error(1)
}

func (m *MockAuth) Refresh(ctx context.Context, refreshToken string) (*models.AuthResponse, error) {
	args := m.Called(ctx, refreshToken)
	res, _ := args.Get(0).(*models.AuthResponse)
	return res, args.Error(1)
}

func (m *MockAuth) Logout(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type MockOrders struct{ mock.Mock }

func (m *MockOrders) Create(ctx context.Context, userID string, req models.CreateOrderRequest) (*models.Order, error) {
	args := m.Called(ctx, userID, req)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

func (m *MockOrders) FindAll(ctx context.Context, userID string, q models.OrderQuery) ([]models.Order, models.PageMeta, error) {
	args := m.Called(ctx, userID, q)
	orders, _ := args.Get(0).([]models.Order)
	return orders, args.Get(1).(models.PageMeta), args.Error(2)
}

func (m *MockOrders) FindAllForAdmin(ctx context.Context, q models.OrderQuery) ([]models.Order, models.PageMeta, error) {
	args := m.Called(ctx, q)
	orders, _ := args.Get(0).([]models.Order)
	return orders, args.Get(1).(models.PageMeta), args.Error(2)
}

func (m *MockOrders) FindOne(ctx context.Context, id, userID string) (*models.Order, error) {
	args := m.Called(ctx, id, userID)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

func (m *MockOrders) Update(ctx context.Context, id string, patch models.OrderPatch, userID string) (*models.Order, error) {
	args := m.Called(ctx, id, patch, userID)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

func (m *MockOrders) Cancel(ctx context.Context, id, userID string) (*models.Order, error) {
	args := m.Called(ctx, id, userID)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

type MockPayments struct{ mock.Mock }

func (m *MockPayments) CreateIntent(ctx context.Context, userID string, req models.CreatePaymentIntentRequest) (*models.PaymentIntentResult, error) {
	args := m.Called(ctx, userID, req)
	res, _ := args.Get(0).(*models.PaymentIntentResult)
	return res, args.Error(1)
}

func (m *MockPayments) Confirm(ctx context.Context, userID string, req models.ConfirmPaymentRequest) (*models.Payment, error) {
	args := m.Called(ctx, userID, req)
	p, _ := args.Get(0).(*models.Payment)
	return p, args.Error(1)
}

func (m *MockPayments) FindAll(ctx context.Context, userID string) ([]models.Payment, error) {
	args := m.Called(ctx, userID)
	p, _ := args.Get(0).([]models.Payment)
	return p, args.Error(1)
}

func (m *MockPayments) FindOne(ctx context.Context, id, userID string) (*models.Payment, error) {
	args := m.Called(ctx, id, userID)
	p, _ := args.Get(0).(*models.Payment)
	return p, args.Error(1)
}

func (m *MockPayments) FindByOrder(ctx context.Context, orderID, userID string) (*models.Payment, error) {
	args := m.Called(ctx, orderID, userID)
	p, _ := args.Get(0).(*models.Payment)
	return p, args.Error(1)
}

type MockProducts struct{ mock.Mock }

func (m *MockProducts) Create(ctx context.Context, req models.CreateProductRequest) (*models.Product, error) {
	args := m.Called(ctx, req)
	p, _ := args.Get(0).(*models.Product)
	return p, args.Error(1)
}

func (m *MockProducts) FindAll(ctx context.Context, q models.ProductQuery) ([]models.Product, models.PageMeta, error) {
	args := m.Called(ctx, q)
	p, _ := args.Get(0).([]models.Product)
	return p, args.Get(1).(models.PageMeta), args.Error(2)
}

func (m *MockProducts) FindOne(ctx context.Context, id string) (*models.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*models.Product)
	return p, args.Error(1)
}

func (m *MockProducts) Update(ctx context.Context, id string, req models.UpdateProductRequest) (*models.Product, error) {
	args := m.Called(ctx, id, req)
	p, _ := args.Get(0).(*models.Product)
	return p, args.Error(1)
}

func (m *MockProducts) UpdateStock(ctx context.Context, id string, delta int) (*models.Product, error) {
	args := m.Called(ctx, id, delta)
	p, _ := args.Get(0).(*models.Product)
	return p, args.Error(1)
}

func (m *MockProducts) Remove(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type lookup map[string]*models.User

func (l lookup) GetUserByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := l[id]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

type testAPI struct {
	router   *gin.Engine
	auth     *MockAuth
	orders   *MockOrders
	payments *MockPayments
	products *MockProducts
	user     string
	admin    string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	tokens := utils.NewTokenIssuer("access", "refresh", time.Minute, time.Hour)
	users := lookup{
		userID:  {ID: userID, Role: models.RoleUser},
		adminID: {ID: adminID, Role: models.RoleAdmin},
	}

	api := &testAPI{
		auth:     new(MockAuth),
		orders:   new(MockOrders),
		payments: new(MockPayments),
		products: new(MockProducts),
	}
	h := NewHandler(Services{
		Auth:     api.auth,
		Orders:   api.orders,
		Payments: api.payments,
		Products: api.products,
	}, logger.Nop())

	api.router = gin.New()
	h.RegisterRoutes(api.router, tokens, users, nil)

	userPair, err := tokens.IssuePair(userID, "user@example.com", string(models.RoleUser))
	require.NoError(t, err)
	adminPair, err := tokens.IssuePair(adminID, "admin@example.com", string(models.RoleAdmin))
	require.NoError(t, err)
	api.user, api.admin = userPair.AccessToken, adminPair.AccessToken
	return api
}

func (a *testAPI) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func TestRegister_WeakPasswordRejectedBeforeService(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodPost, "/api/v1/auth/register", "", `{"email":"a@b.co","password":"password"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "password must contain uppercase, lowercase, number and special character")
	api.auth.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestRegister(t *testing.T) {
	api := newTestAPI(t)
	req := models.RegisterRequest{Email: "a@b.co", Password: "Str0ng!pass"}
	api.auth.On("Register", mock.Anything, req).
		Return(&models.AuthResponse{AccessToken: "at", RefreshToken: "rt"}, nil)

	w := api.do(http.MethodPost, "/api/v1/auth/register", "", `{"email":"a@b.co","password":"Str0ng!pass"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"accessToken":"at"`)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	api := newTestAPI(t)
	api.auth.On("Login", mock.Anything, mock.Anything).
		Return(nil, apperrors.Unauthorized("Invalid email or password"))

	w := api.do(http.MethodPost, "/api/v1/auth/login", "", `{"email":"a@b.co","password":"x"}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Invalid email or password"}`, w.Body.String())
}

func TestRefresh(t *testing.T) {
	api := newTestAPI(t)
	api.auth.On("Refresh", mock.Anything, "from-header").
		Return(&models.AuthResponse{AccessToken: "a1"}, nil)
	api.auth.On("Refresh", mock.Anything, "from-body").
		Return(&models.AuthResponse{AccessToken: "a2"}, nil)

	assert.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/v1/auth/refresh", "from-header", "").Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/v1/auth/refresh", "", `{"refreshToken":"from-body"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, "/api/v1/auth/refresh", "", "").Code)
	api.auth.AssertExpectations(t)
}

func TestCreateOrder(t *testing.T) {
	api := newTestAPI(t)
	order := &models.Order{ID: orderID, UserID: userID, Status: models.OrderStatusPending, TotalAmount: decimal.RequireFromString("20")}
	api.orders.On("Create", mock.Anything, userID, mock.MatchedBy(func(req models.CreateOrderRequest) bool {
		return len(req.Items) == 1 && req.Items[0].Quantity == 2
	})).Return(order, nil)

	w := api.do(http.MethodPost, "/api/v1/orders", api.user, `{"items":[{"productId":"p1","quantity":2}]}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
	assert.Contains(t, w.Body.String(), `"message":"Order created successfully"`)
	assert.Contains(t, w.Body.String(), orderID)
}

func TestCreateOrder_Validation(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodPost, "/api/v1/orders", api.user, `{"items":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodPost, "/api/v1/orders", api.user, `{"items":[{"productId":"p1","quantity":0}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "quantity")

	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, "/api/v1/orders", "", `{}`).Code)
	api.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateOrder_ServiceErrors(t *testing.T) {
	api := newTestAPI(t)
	api.orders.On("Create", mock.Anything, userID, mock.Anything).
		Return(nil, apperrors.InvalidState("Insufficient stock for product %s. Available: %d", "Widget", 1)).Once()
	api.orders.On("Create", mock.Anything, userID, mock.Anything).
		Return(nil, apperrors.Internal("Failed to create order", errors.New("db down"))).Once()

	body := `{"items":[{"productId":"p1","quantity":2}]}`

	w := api.do(http.MethodPost, "/api/v1/orders", api.user, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Insufficient stock for product Widget. Available: 1"}`, w.Body.String())

	w = api.do(http.MethodPost, "/api/v1/orders", api.user, body)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db down")
}

func TestGetOrder_Scoping(t *testing.T) {
	api := newTestAPI(t)
	order := &models.Order{ID: orderID}
	api.orders.On("FindOne", mock.Anything, orderID, userID).Return(order, nil)
	api.orders.On("FindOne", mock.Anything, orderID, "").Return(order, nil)

	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/orders/"+orderID, api.user, "").Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/admin/orders/"+orderID, api.admin, "").Code)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodGet, "/api/v1/admin/orders/"+orderID, api.user, "").Code)

	w := api.do(http.MethodGet, "/api/v1/orders/not-a-uuid", api.user, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid order ID"}`, w.Body.String())

	api.orders.AssertExpectations(t)
}

func TestListOrders(t *testing.T) {
	api := newTestAPI(t)
	meta := models.NewPageMeta(1, 1, 10)
	api.orders.On("FindAll", mock.Anything, userID, models.OrderQuery{Status: models.OrderStatusPending}).
		Return([]models.Order{{ID: orderID}}, meta, nil)

	w := api.do(http.MethodGet, "/api/v1/orders?status=PENDING", api.user, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"meta":{"total":1,"page":1,"limit":10,"totalPages":1}`)

	w = api.do(http.MethodGet, "/api/v1/orders?status=LOST", api.user, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateOrder_AdminPassesNoScope(t *testing.T) {
	api := newTestAPI(t)
	shipped := models.OrderStatusShipped
	patch := models.OrderPatch{Status: &shipped}
	api.orders.On("Update", mock.Anything, orderID, patch, "").
		Return(&models.Order{ID: orderID, Status: shipped}, nil)
	api.orders.On("Update", mock.Anything, orderID, patch, userID).
		Return(nil, apperrors.Forbidden("Only administrators can change order status"))

	assert.Equal(t, http.StatusOK, api.do(http.MethodPatch, "/api/v1/admin/orders/"+orderID, api.admin, `{"status":"SHIPPED"}`).Code)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPatch, "/api/v1/orders/"+orderID, api.user, `{"status":"SHIPPED"}`).Code)
}

func TestCancelOrder(t *testing.T) {
	api := newTestAPI(t)
	api.orders.On("Cancel", mock.Anything, orderID, userID).
		Return(nil, apperrors.InvalidState("Only pending orders can be cancelled"))

	w := api.do(http.MethodDelete, "/api/v1/orders/"+orderID, api.user, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Only pending orders can be cancelled"}`, w.Body.String())
}

func TestCreatePaymentIntent(t *testing.T) {
	api := newTestAPI(t)
	api.payments.On("CreateIntent", mock.Anything, userID, mock.MatchedBy(func(req models.CreatePaymentIntentRequest) bool {
		return req.OrderID == orderID && req.Amount != nil && req.Amount.Equal(decimal.RequireFromString("20.50"))
	})).Return(&models.PaymentIntentResult{ClientSecret: "cs_1", PaymentID: "pay-1"}, nil)

	w := api.do(http.MethodPost, "/api/v1/payments/create-intent", api.user, `{"orderId":"`+orderID+`","amount":20.5}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"clientSecret":"cs_1"`)

	w = api.do(http.MethodPost, "/api/v1/payments/create-intent", api.user, `{"orderId":"`+orderID+`","amount":-1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "amount must be greater than 0")
}

func TestGetOrderPayment_None(t *testing.T) {
	api := newTestAPI(t)
	api.payments.On("FindByOrder", mock.Anything, orderID, userID).Return(nil, nil)

	w := api.do(http.MethodGet, "/api/v1/payments/order/"+orderID, api.user, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"message":"No payment found for this order","data":null}`, w.Body.String())
}

func TestCreateProduct_RequiresAdminAndPositivePrice(t *testing.T) {
	api := newTestAPI(t)
	body := `{"name":"Widget","price":"-5","sku":"W-1","categoryId":"c1"}`

	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPost, "/api/v1/products", api.user, body).Code)

	w := api.do(http.MethodPost, "/api/v1/products", api.admin, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "price must be greater than 0")

	api.products.On("Create", mock.Anything, mock.Anything).
		Return(&models.Product{ID: "p1", Name: "Widget"}, nil)
	w = api.do(http.MethodPost, "/api/v1/products", api.admin, `{"name":"Widget","price":"9.99","sku":"W-1","categoryId":"c1"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestUpdateStock_NotFound(t *testing.T) {
	api := newTestAPI(t)
	id := "5d1b1b3c-1111-4222-8333-944455556666"
	api.products.On("UpdateStock", mock.Anything, id, -3).
		Return(nil, apperrors.NotFound("Product with ID %s not found", id))

	w := api.do(http.MethodPatch, "/api/v1/products/"+id+"/stock", api.admin, `{"quantity":-3}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
