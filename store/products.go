package store

import (
	"context"
	"fmt"
	"strings"

	"shop-service/models"
)

const productSelect = `
	SELECT p.id, p.name, p.description, p.sku, p.price, p.stock, p.image_url,
	       p.category_id, c.name, p.is_active, p.created_at, p.updated_at
	FROM products p
	JOIN categories c ON c.id = p.category_id`

func scanProduct(row scanner) (*models.Product, error) {
	var p models.Product
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.SKU, &p.Price, &p.Stock, &p.ImageURL,
		&p.CategoryID, &p.CategoryName, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	if p.ID == "" {
		p.ID = newID()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO products (id, name, description, sku, price, stock, image_url, category_id, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.SKU, p.Price, p.Stock, p.ImageURL, p.CategoryID, p.IsActive)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, productSelect+` WHERE p.id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (s *Store) GetProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, productSelect+` WHERE p.sku = ?`, sku))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func productWhere(f models.CatalogFilter) (string, []any) {
	var conds []string
	var args []any
	if f.CategoryID != "" {
		conds = append(conds, "p.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.IsActive != nil {
		conds = append(conds, "p.is_active = ?")
		args = append(args, *f.IsActive)
	}
	if f.Search != "" {
		conds = append(conds, "(p.name LIKE ? OR p.description LIKE ?)")
		pat := likePattern(f.Search)
		args = append(args, pat, pat)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *Store) ListProducts(ctx context.Context, f models.CatalogFilter) ([]models.Product, int, error) {
	where, args := productWhere(f)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products p`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, productSelect+where+` ORDER BY p.created_at DESC LIMIT ? OFFSET ?`,
		append(args, f.Limit, offset(f.Page, f.Limit))...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, total, rows.Err()
}

// UpdateProduct writes only the fields present in req. Stock is left to the
// order workflow unless req sets it explicitly.
func (s *Store) UpdateProduct(ctx context.Context, id string, req models.UpdateProductRequest) error {
	var sets []string
	var args []any
	if req.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *req.Name)
	}
	if req.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *req.Description)
	}
	if req.SKU != nil {
		sets = append(sets, "sku = ?")
		args = append(args, *req.SKU)
	}
	if req.Price != nil {
		sets = append(sets, "price = ?")
		args = append(args, *req.Price)
	}
	if req.Stock != nil {
		sets = append(sets, "stock = ?")
		args = append(args, *req.Stock)
	}
	if req.ImageURL != nil {
		sets = append(sets, "image_url = ?")
		args = append(args, *req.ImageURL)
	}
	if req.CategoryID != nil {
		sets = append(sets, "category_id = ?")
		args = append(args, *req.CategoryID)
	}
	if req.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *req.IsActive)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil && isDuplicate(err) {
		return ErrDuplicate
	}
	if err := requireRow(res, err); err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

// AdjustStock adds delta to the product's stock unless the result would be
// negative, in which case it returns ErrInsufficientStock.
func (s *Store) AdjustStock(ctx context.Context, id string, delta int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET stock = stock + ? WHERE id = ? AND stock + ? >= 0`, delta, id, delta)
	if err != nil {
		return fmt.Errorf("adjust stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("adjust stock: %w", err)
	}
	if n == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func (s *Store) CountOrderItemsForProduct(ctx context.Context, id string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM order_items WHERE product_id = ?`, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("count order items: %w", err)
	}
	return n, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err := requireRow(res, err); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}
