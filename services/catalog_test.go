package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"shop-service/apperrors"
	"shop-service/logger"
	"shop-service/models"
	"shop-service/store"
)

func TestCategoryService_Create_DerivesSlug(t *testing.T) {
	st := new(MockStore)
	svc := NewCategoryService(st, logger.Nop())

	st.On("GetCategoryBySlug", mock.Anything, "home-garden").Return(nil, store.ErrNotFound)
	st.On("CreateCategory", mock.Anything, mock.MatchedBy(func(c *models.Category) bool {
		return c.Slug == "home-garden" && c.IsActive
	})).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Category).ID = "c1"
	})
	st.On("GetCategory", mock.Anything, "c1").Return(&models.Category{ID: "c1", Slug: "home-garden"}, nil)

	c, err := svc.Create(context.Background(), models.CreateCategoryRequest{Name: "Home & Garden"})
	require.NoError(t, err)
	assert.Equal(t, "home-garden", c.Slug)
}

func TestCategoryService_Create_SlugTaken(t *testing.T) {
	st := new(MockStore)
	svc := NewCategoryService(st, logger.Nop())

	st.On("GetCategoryBySlug", mock.Anything, "tea").Return(&models.Category{ID: "c0"}, nil)

	_, err := svc.Create(context.Background(), models.CreateCategoryRequest{Name: "Tea"})
	assert.True(t, apperrors.Is(err, apperrors.KindConflict))
	st.AssertNotCalled(t, "CreateCategory", mock.Anything, mock.Anything)
}

func TestCategoryService_Create_DuplicateFromDatabase(t *testing.T) {
	st := new(MockStore)
	svc := NewCategoryService(st, logger.Nop())

	st.On("GetCategoryBySlug", mock.Anything, "tea").Return(nil, store.ErrNotFound)
	st.On("CreateCategory", mock.Anything, mock.Anything).Return(store.ErrDuplicate)

	_, err := svc.Create(context.Background(), models.CreateCategoryRequest{Name: "Tea"})
	assert.True(t, apperrors.Is(err, apperrors.KindConflict))
}

func TestCategoryService_Update_SlugChange(t *testing.T) {
	st := new(MockStore)
	svc := NewCategoryService(st, logger.Nop())
	slug := "coffee"

	st.On("GetCategory", mock.Anything, "c1").Return(&models.Category{ID: "c1", Slug: "tea"}, nil)
	st.On("GetCategoryBySlug", mock.Anything, "coffee").Return(&models.Category{ID: "c2"}, nil)

	_, err := svc.Update(context.Background(), "c1", models.UpdateCategoryRequest{Slug: &slug})
	assert.True(t, apperrors.Is(err, apperrors.KindConflict))
	st.AssertNotCalled(t, "UpdateCategory", mock.Anything, mock.Anything)
}

func TestCategoryService_Remove_WithProducts(t *testing.T) {
	st := new(MockStore)
	svc := NewCategoryService(st, logger.Nop())

	st.On("GetCategory", mock.Anything, "c1").Return(&models.Category{ID: "c1", ProductCount: 3}, nil)

	err := svc.Remove(context.Background(), "c1")
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidState))
	assert.Equal(t, "Cannot delete category with 3 products. Remove or reassign first", apperrors.Message(err))
	st.AssertNotCalled(t, "DeleteCategory", mock.Anything, mock.Anything)
}

func TestCategoryService_Remove_Empty(t *testing.T) {
	st := new(MockStore)
	svc := NewCategoryService(st, logger.Nop())

	st.On("GetCategory", mock.Anything, "c1").Return(&models.Category{ID: "c1"}, nil)
	st.On("DeleteCategory", mock.Anything, "c1").Return(nil)

	require.NoError(t, svc.Remove(context.Background(), "c1"))
	st.AssertExpectations(t)
}

func TestCategoryService_FindBySlug_Missing(t *testing.T) {
	st := new(MockStore)
	svc := NewCategoryService(st, logger.Nop())

	st.On("GetCategoryBySlug", mock.Anything, "nope").Return(nil, store.ErrNotFound)

	_, err := svc.FindBySlug(context.Background(), "nope")
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func newProductRequest() models.CreateProductRequest {
	return models.CreateProductRequest{
		Name:       "Mug",
		Price:      decimal.RequireFromString("9.99"),
		Stock:      5,
		SKU:        "MUG-1",
		CategoryID: "c1",
	}
}

func TestProductService_Create(t *testing.T) {
	st := new(MockStore)
	svc := NewProductService(st, logger.Nop())

	st.On("GetProductBySKU", mock.Anything, "MUG-1").Return(nil, store.ErrNotFound)
	st.On("GetCategory", mock.Anything, "c1").Return(&models.Category{ID: "c1"}, nil)
	st.On("CreateProduct", mock.Anything, mock.AnythingOfType("*models.Product")).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Product).ID = "p1"
	})
	st.On("GetProduct", mock.Anything, "p1").Return(&models.Product{ID: "p1", SKU: "MUG-1"}, nil)

	p, err := svc.Create(context.Background(), newProductRequest())
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
}

func TestProductService_Create_Conflicts(t *testing.T) {
	st := new(MockStore)
	svc := NewProductService(st, logger.Nop())

	st.On("GetProductBySKU", mock.Anything, "MUG-1").Return(&models.Product{ID: "p0"}, nil)

	_, err := svc.Create(context.Background(), newProductRequest())
	assert.True(t, apperrors.Is(err, apperrors.KindConflict))
}

func TestProductService_Create_MissingCategory(t *testing.T) {
	st := new(MockStore)
	svc := NewProductService(st, logger.Nop())

	st.On("GetProductBySKU", mock.Anything, "MUG-1").Return(nil, store.ErrNotFound)
	st.On("GetCategory", mock.Anything, "c1").Return(nil, store.ErrNotFound)

	_, err := svc.Create(context.Background(), newProductRequest())
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestProductService_UpdateStock(t *testing.T) {
	st := new(MockStore)
	svc := NewProductService(st, logger.Nop())

	st.On("GetProduct", mock.Anything, "p1").Return(&models.Product{ID: "p1", Stock: 2}, nil)
	st.On("AdjustStock", mock.Anything, "p1", -3).Return(store.ErrInsufficientStock)

	_, err := svc.UpdateStock(context.Background(), "p1", -3)
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidState))
	assert.Equal(t, "Insufficient stock", apperrors.Message(err))
}

func TestProductService_Remove_Ordered(t *testing.T) {
	st := new(MockStore)
	svc := NewProductService(st, logger.Nop())

	st.On("GetProduct", mock.Anything, "p1").Return(&models.Product{ID: "p1"}, nil)
	st.On("CountOrderItemsForProduct", mock.Anything, "p1").Return(2, nil)

	err := svc.Remove(context.Background(), "p1")
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidState))
	st.AssertNotCalled(t, "DeleteProduct", mock.Anything, mock.Anything)
}

func TestCartService_Current(t *testing.T) {
	st := new(MockStore)
	svc := NewCartService(st)

	st.On("LatestOpenCart", mock.Anything, "u1").Return(nil, store.ErrNotFound)
	st.On("CreateCart", mock.Anything, mock.MatchedBy(func(c *models.Cart) bool { return c.UserID == "u1" })).Return(nil)

	c, err := svc.Current(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", c.UserID)
	assert.False(t, c.CheckedOut)
}

func TestProductService_Update_NameOnlyLeavesStockAlone(t *testing.T) {
	st := new(MockStore)
	svc := NewProductService(st, logger.Nop())

	st.On("GetProduct", mock.Anything, "p1").
		Return(&models.Product{ID: "p1", Name: "Mug", SKU: "MUG-1", Stock: 10}, nil).Once()
	st.On("UpdateProduct", mock.Anything, "p1", mock.MatchedBy(func(req models.UpdateProductRequest) bool {
		return req.Stock == nil && req.Name != nil && *req.Name == "Mug v2"
	})).Return(nil)
	st.On("GetProduct", mock.Anything, "p1").
		Return(&models.Product{ID: "p1", Name: "Mug v2", SKU: "MUG-1", Stock: 8}, nil).Once()

	p, err := svc.Update(context.Background(), "p1", models.UpdateProductRequest{Name: strPtr("  Mug v2 ")})
	require.NoError(t, err)
	assert.Equal(t, 8, p.Stock)
	st.AssertExpectations(t)
}

func TestProductService_Update_SKUTaken(t *testing.T) {
	st := new(MockStore)
	svc := NewProductService(st, logger.Nop())

	st.On("GetProduct", mock.Anything, "p1").Return(&models.Product{ID: "p1", SKU: "MUG-1"}, nil)
	st.On("GetProductBySKU", mock.Anything, "CUP-1").Return(&models.Product{ID: "p2", SKU: "CUP-1"}, nil)

	_, err := svc.Update(context.Background(), "p1", models.UpdateProductRequest{SKU: strPtr("CUP-1")})
	assert.True(t, apperrors.Is(err, apperrors.KindConflict))
	assert.Equal(t, "Product with SKU 'CUP-1' already exists", apperrors.Message(err))
	st.AssertNotCalled(t, "UpdateProduct", mock.Anything, mock.Anything, mock.Anything)
}

func TestProductService_Update_SameSKUIsNotWritten(t *testing.T) {
	st := new(MockStore)
	svc := NewProductService(st, logger.Nop())

	st.On("GetProduct", mock.Anything, "p1").Return(&models.Product{ID: "p1", SKU: "MUG-1"}, nil)
	st.On("UpdateProduct", mock.Anything, "p1", mock.MatchedBy(func(req models.UpdateProductRequest) bool {
		return req.SKU == nil
	})).Return(nil)

	_, err := svc.Update(context.Background(), "p1", models.UpdateProductRequest{SKU: strPtr("MUG-1")})
	require.NoError(t, err)
	st.AssertNotCalled(t, "GetProductBySKU", mock.Anything, mock.Anything)
}

func TestProductService_Update_MissingCategory(t *testing.T) {
	st := new(MockStore)
	svc := NewProductService(st, logger.Nop())

	st.On("GetProduct", mock.Anything, "p1").Return(&models.Product{ID: "p1", CategoryID: "c1"}, nil)
	st.On("GetCategory", mock.Anything, "c9").Return(nil, store.ErrNotFound)

	_, err := svc.Update(context.Background(), "p1", models.UpdateProductRequest{CategoryID: strPtr("c9")})
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
	st.AssertNotCalled(t, "UpdateProduct", mock.Anything, mock.Anything, mock.Anything)
}

func TestProductService_Update_NonPositivePrice(t *testing.T) {
	st := new(MockStore)
	svc := NewProductService(st, logger.Nop())

	st.On("GetProduct", mock.Anything, "p1").Return(&models.Product{ID: "p1"}, nil)
	zero := decimal.Zero

	_, err := svc.Update(context.Background(), "p1", models.UpdateProductRequest{Price: &zero})
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
	st.AssertNotCalled(t, "UpdateProduct", mock.Anything, mock.Anything, mock.Anything)
}

func TestProductService_Update_DuplicateFromDatabase(t *testing.T) {
	st := new(MockStore)
	svc := NewProductService(st, logger.Nop())

	st.On("GetProduct", mock.Anything, "p1").Return(&models.Product{ID: "p1", SKU: "MUG-1"}, nil)
	st.On("GetProductBySKU", mock.Anything, "CUP-1").Return(nil, store.ErrNotFound)
	st.On("UpdateProduct", mock.Anything, "p1", mock.Anything).Return(store.ErrDuplicate)

	_, err := svc.Update(context.Background(), "p1", models.UpdateProductRequest{SKU: strPtr("CUP-1")})
	assert.True(t, apperrors.Is(err, apperrors.KindConflict))
}
