package services

import (
	"context"
	"errors"
	"strings"

	"shop-service/apperrors"
	"shop-service/logger"
	"shop-service/models"
	"shop-service/store"
	"shop-service/utils"
)

type CategoryStore interface {
	CreateCategory(ctx context.Context, c *models.Category) error
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error)
	ListCategories(ctx context.Context, f models.CatalogFilter) ([]models.Category, int, error)
	UpdateCategory(ctx context.Context, c *models.Category) error
	DeleteCategory(ctx context.Context, id string) error
}

type CategoryService struct {
	store CategoryStore
	log   *logger.Logger
}

func NewCategoryService(st CategoryStore, log *logger.Logger) *CategoryService {
	return &CategoryService{store: st, log: log.With("component", "categories")}
}

func (s *CategoryService) Create(ctx context.Context, req models.CreateCategoryRequest) (*models.Category, error) {
	slug := utils.Slugify(req.Name)
	if req.Slug != nil {
		slug = utils.Slugify(*req.Slug)
	}
	if slug == "" {
		return nil, apperrors.Validation("Category slug cannot be empty")
	}
	if err := s.ensureSlugFree(ctx, slug); err != nil {
		return nil, err
	}

	c := &models.Category{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Slug:        slug,
		ImageURL:    req.ImageURL,
		IsActive:    true,
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
	if err := s.store.CreateCategory(ctx, c); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperrors.Conflict("Category with slug '%s' already exists", slug)
		}
		return nil, apperrors.Internal("Failed to create category", err)
	}
	s.log.Info("category created", "category_id", c.ID, "slug", slug)
	return s.FindOne(ctx, c.ID)
}

func (s *CategoryService) ensureSlugFree(ctx context.Context, slug string) error {
	_, err := s.store.GetCategoryBySlug(ctx, slug)
	switch {
	case err == nil:
		return apperrors.Conflict("Category with slug '%s' already exists", slug)
	case errors.Is(err, store.ErrNotFound):
		return nil
	default:
		return apperrors.Internal("Failed to check category slug", err)
	}
}

func (s *CategoryService) FindAll(ctx context.Context, q models.CategoryQuery) ([]models.Category, models.PageMeta, error) {
	page, limit := models.Paginate(q.Page, q.Limit)
	cats, total, err := s.store.ListCategories(ctx, models.CatalogFilter{
		IsActive: q.IsActive,
		Search:   q.Search,
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		return nil, models.PageMeta{}, apperrors.Internal("Failed to fetch categories", err)
	}
	return cats, models.NewPageMeta(total, page, limit), nil
}

func (s *CategoryService) FindOne(ctx context.Context, id string) (*models.Category, error) {
	c, err := s.store.GetCategory(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NotFound("Category with ID %s not found", id)
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to fetch category", err)
	}
	return c, nil
}

func (s *CategoryService) FindBySlug(ctx context.Context, slug string) (*models.Category, error) {
	c, err := s.store.GetCategoryBySlug(ctx, slug)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NotFound("Category with slug '%s' not found", slug)
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to fetch category", err)
	}
	return c, nil
}

func (s *CategoryService) Update(ctx context.Context, id string, req models.UpdateCategoryRequest) (*models.Category, error) {
	c, err := s.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Slug != nil {
		slug := utils.Slugify(*req.Slug)
		if slug == "" {
			return nil, apperrors.Validation("Category slug cannot be empty")
		}
		if slug != c.Slug {
			if err := s.ensureSlugFree(ctx, slug); err != nil {
				return nil, err
			}
			c.Slug = slug
		}
	}
	if req.Name != nil {
		c.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		c.Description = req.Description
	}
	if req.ImageURL != nil {
		c.ImageURL = req.ImageURL
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}

	if err := s.store.UpdateCategory(ctx, c); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperrors.Conflict("Category with slug '%s' already exists", c.Slug)
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("Category with ID %s not found", id)
		}
		return nil, apperrors.Internal("Failed to update category", err)
	}
	return s.FindOne(ctx, id)
}

// Remove deletes an empty category.
func (s *CategoryService) Remove(ctx context.Context, id string) error {
	c, err := s.FindOne(ctx, id)
	if err != nil {
		return err
	}
	if c.ProductCount > 0 {
		return apperrors.InvalidState("Cannot delete category with %d products. Remove or reassign first", c.ProductCount)
	}
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.NotFound("Category with ID %s not found", id)
		}
		return apperrors.Internal("Failed to delete category", err)
	}
	s.log.Info("category deleted", "category_id", id)
	return nil
}

type ProductStore interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	GetProductBySKU(ctx context.Context, sku string) (*models.Product, error)
	ListProducts(ctx context.Context, f models.CatalogFilter) ([]models.Product, int, error)
	UpdateProduct(ctx context.Context, id string, req models.UpdateProductRequest) error
	AdjustStock(ctx context.Context, id string, delta int) error
	CountOrderItemsForProduct(ctx context.Context, id string) (int, error)
	DeleteProduct(ctx context.Context, id string) error
	GetCategory(ctx context.Context, id string) (*models.Category, error)
}

type ProductService struct {
	store ProductStore
	log   *logger.Logger
}

func NewProductService(st ProductStore, log *logger.Logger) *ProductService {
	return &ProductService{store: st, log: log.With("component", "products")}
}

func (s *ProductService) Create(ctx context.Context, req models.CreateProductRequest) (*models.Product, error) {
	if !req.Price.IsPositive() {
		return nil, apperrors.Validation("Price must be greater than zero")
	}
	if err := s.ensureSKUFree(ctx, req.SKU); err != nil {
		return nil, err
	}
	if err := s.ensureCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	p := &models.Product{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		SKU:         req.SKU,
		Price:       req.Price,
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
		CategoryID:  req.CategoryID,
		IsActive:    true,
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if err := s.store.CreateProduct(ctx, p); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperrors.Conflict("Product with SKU '%s' already exists", req.SKU)
		}
		return nil, apperrors.Internal("Failed to create product", err)
	}
	s.log.Info("product created", "product_id", p.ID, "sku", p.SKU)
	return s.FindOne(ctx, p.ID)
}

func (s *ProductService) ensureSKUFree(ctx context.Context, sku string) error {
	_, err := s.store.GetProductBySKU(ctx, sku)
	switch {
	case err == nil:
		return apperrors.Conflict("Product with SKU '%s' already exists", sku)
	case errors.Is(err, store.ErrNotFound):
		return nil
	default:
		return apperrors.Internal("Failed to check product SKU", err)
	}
}

func (s *ProductService) ensureCategory(ctx context.Context, id string) error {
	_, err := s.store.GetCategory(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.NotFound("Category with ID %s not found", id)
	}
	if err != nil {
		return apperrors.Internal("Failed to check category", err)
	}
	return nil
}

func (s *ProductService) FindAll(ctx context.Context, q models.ProductQuery) ([]models.Product, models.PageMeta, error) {
	page, limit := models.Paginate(q.Page, q.Limit)
	products, total, err := s.store.ListProducts(ctx, models.CatalogFilter{
		CategoryID: q.Category,
		IsActive:   q.IsActive,
		Search:     q.Search,
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		return nil, models.PageMeta{}, apperrors.Internal("Failed to fetch products", err)
	}
	return products, models.NewPageMeta(total, page, limit), nil
}

func (s *ProductService) FindOne(ctx context.Context, id string) (*models.Product, error) {
	p, err := s.store.GetProduct(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NotFound("Product with ID %s not found", id)
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to fetch product", err)
	}
	return p, nil
}

// Update changes the fields present in req. Stock changes only when req
// carries a stock value.
func (s *ProductService) Update(ctx context.Context, id string, req models.UpdateProductRequest) (*models.Product, error) {
	p, err := s.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.SKU != nil {
		if *req.SKU == p.SKU {
			req.SKU = nil
		} else if err := s.ensureSKUFree(ctx, *req.SKU); err != nil {
			return nil, err
		}
	}
	if req.CategoryID != nil && *req.CategoryID != p.CategoryID {
		if err := s.ensureCategory(ctx, *req.CategoryID); err != nil {
			return nil, err
		}
	}
	if req.Price != nil && !req.Price.IsPositive() {
		return nil, apperrors.Validation("Price must be greater than zero")
	}
	if req.Stock != nil && *req.Stock < 0 {
		return nil, apperrors.Validation("Stock cannot be negative")
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperrors.Validation("Product name cannot be empty")
		}
		req.Name = &name
	}

	if err := s.store.UpdateProduct(ctx, id, req); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			sku := p.SKU
			if req.SKU != nil {
				sku = *req.SKU
			}
			return nil, apperrors.Conflict("Product with SKU '%s' already exists", sku)
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("Product with ID %s not found", id)
		}
		return nil, apperrors.Internal("Failed to update product", err)
	}
	return s.FindOne(ctx, id)
}

// UpdateStock adds a signed delta to the product's stock.
func (s *ProductService) UpdateStock(ctx context.Context, id string, delta int) (*models.Product, error) {
	if _, err := s.FindOne(ctx, id); err != nil {
		return nil, err
	}
	if err := s.store.AdjustStock(ctx, id, delta); err != nil {
		if errors.Is(err, store.ErrInsufficientStock) {
			return nil, apperrors.InvalidState("Insufficient stock")
		}
		return nil, apperrors.Internal("Failed to update stock", err)
	}
	s.log.Info("stock adjusted", "product_id", id, "delta", delta)
	return s.FindOne(ctx, id)
}

// Remove deletes a product that no order references. Ordered products must
// be deactivated instead so order history stays intact.
func (s *ProductService) Remove(ctx context.Context, id string) error {
	if _, err := s.FindOne(ctx, id); err != nil {
		return err
	}
	n, err := s.store.CountOrderItemsForProduct(ctx, id)
	if err != nil {
		return apperrors.Internal("Failed to delete product", err)
	}
	if n > 0 {
		return apperrors.InvalidState("Cannot delete product referenced by %d order items. Deactivate it instead", n)
	}
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.NotFound("Product with ID %s not found", id)
		}
		return apperrors.Internal("Failed to delete product", err)
	}
	s.log.Info("product deleted", "product_id", id)
	return nil
}
