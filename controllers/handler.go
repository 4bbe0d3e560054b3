package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"shop-service/apperrors"
	"shop-service/logger"
	"shop-service/models"
	"shop-service/utils"
)

type AuthService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*models.AuthResponse, error)
	Logout(ctx context.Context, userID string) error
}

type UserService interface {
	FindOne(ctx context.Context, id string) (*models.User, error)
	FindAll(ctx context.Context, page, limit int) ([]models.User, models.PageMeta, error)
	UpdateProfile(ctx context.Context, id string, req models.UpdateUserRequest) (*models.User, error)
	ChangePassword(ctx context.Context, id string, req models.ChangePasswordRequest) error
	Remove(ctx context.Context, id string) error
}

type CategoryService interface {
	Create(ctx context.Context, req models.CreateCategoryRequest) (*models.Category, error)
	FindAll(ctx context.Context, q models.CategoryQuery) ([]models.Category, models.PageMeta, error)
	FindOne(ctx context.Context, id string) (*models.Category, error)
	FindBySlug(ctx context.Context, slug string) (*models.Category, error)
	Update(ctx context.Context, id string, req models.UpdateCategoryRequest) (*models.Category, error)
	Remove(ctx context.Context, id string) error
}

type ProductService interface {
	Create(ctx context.Context, req models.CreateProductRequest) (*models.Product, error)
	FindAll(ctx context.Context, q models.ProductQuery) ([]models.Product, models.PageMeta, error)
	FindOne(ctx context.Context, id string) (*models.Product, error)
	Update(ctx context.Context, id string, req models.UpdateProductRequest) (*models.Product, error)
	UpdateStock(ctx context.Context, id string, delta int) (*models.Product, error)
	Remove(ctx context.Context, id string) error
}

type OrderService interface {
	Create(ctx context.Context, userID string, req models.CreateOrderRequest) (*models.Order, error)
	FindAll(ctx context.Context, userID string, q models.OrderQuery) ([]models.Order, models.PageMeta, error)
	FindAllForAdmin(ctx context.Context, q models.OrderQuery) ([]models.Order, models.PageMeta, error)
	FindOne(ctx context.Context, id, userID string) (*models.Order, error)
	Update(ctx context.Context, id string, patch models.OrderPatch, userID string) (*models.Order, error)
	Cancel(ctx context.Context, id, userID string) (*models.Order, error)
}

type PaymentService interface {
	CreateIntent(ctx context.Context, userID string, req models.CreatePaymentIntentRequest) (*models.PaymentIntentResult, error)
	Confirm(ctx context.Context, userID string, req models.ConfirmPaymentRequest) (*models.Payment, error)
	FindAll(ctx context.Context, userID string) ([]models.Payment, error)
	FindOne(ctx context.Context, id, userID string) (*models.Payment, error)
	FindByOrder(ctx context.Context, orderID, userID string) (*models.Payment, error)
}

type CartService interface {
	Current(ctx context.Context, userID string) (*models.Cart, error)
}

// Services groups the dependencies of Handler.
type Services struct {
	Auth       AuthService
	Users      UserService
	Categories CategoryService
	Products   ProductService
	Orders     OrderService
	Payments   PaymentService
	Carts      CartService
}

type Handler struct {
	auth       AuthService
	users      UserService
	categories CategoryService
	products   ProductService
	orders     OrderService
	payments   PaymentService
	carts      CartService
	log        *logger.Logger
}

func NewHandler(s Services, log *logger.Logger) *Handler {
	return &Handler{
		auth:       s.Auth,
		users:      s.Users,
		categories: s.Categories,
		products:   s.Products,
		orders:     s.Orders,
		payments:   s.Payments,
		carts:      s.Carts,
		log:        log,
	}
}

// RegisterValidators installs the custom binding rules on gin's validator:
// the strongpassword tag and numeric checks on decimal amounts.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected binding validator engine")
	}

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})

	return v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return utils.StrongPassword(fl.Field().String())
	})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	kind := apperrors.KindOf(err)
	if kind == apperrors.KindInternal {
		h.log.Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
	}
	c.JSON(apperrors.HTTPStatus(kind), gin.H{"error": apperrors.Message(err)})
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": bindMessage(err)})
}

func bindMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request body"
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return strings.Join(msgs, "; ")
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "strongpassword":
		return field + " must contain uppercase, lowercase, number and special character"
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// pathID reads a UUID path parameter, answering 400 when it is malformed.
func pathID(c *gin.Context, name, label string) (string, bool) {
	id := c.Param(name)
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + label + " ID"})
		return "", false
	}
	return id, true
}

func respondOK(c *gin.Context, status int, message string, data any) {
	c.JSON(status, gin.H{"success": true, "message": message, "data": data})
}

func respondList(c *gin.Context, data any, meta models.PageMeta) {
	c.JSON(http.StatusOK, gin.H{"data": data, "meta": meta})
}

func succeeded(c *gin.Context) bool {
	return c.Writer.Status() >= 200 && c.Writer.Status() < 300
}
