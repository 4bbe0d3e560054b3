package store

import (
	"context"
	"fmt"
	"strings"

	"shop-service/models"
)

const categorySelect = `
	SELECT c.id, c.name, c.description, c.slug, c.image_url, c.is_active,
	       (SELECT COUNT(*) FROM products p WHERE p.category_id = c.id) AS product_count,
	       c.created_at, c.updated_at
	FROM categories c`

func scanCategory(row scanner) (*models.Category, error) {
	var c models.Category
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Slug, &c.ImageURL, &c.IsActive,
		&c.ProductCount, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) CreateCategory(ctx context.Context, c *models.Category) error {
	if c.ID == "" {
		c.ID = newID()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, description, slug, image_url, is_active) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Description, c.Slug, c.ImageURL, c.IsActive)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (s *Store) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	c, err := scanCategory(s.db.QueryRowContext(ctx, categorySelect+` WHERE c.id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func (s *Store) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	c, err := scanCategory(s.db.QueryRowContext(ctx, categorySelect+` WHERE c.slug = ?`, slug))
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func categoryWhere(f models.CatalogFilter) (string, []any) {
	var conds []string
	var args []any
	if f.IsActive != nil {
		conds = append(conds, "c.is_active = ?")
		args = append(args, *f.IsActive)
	}
	if f.Search != "" {
		conds = append(conds, "(c.name LIKE ? OR c.description LIKE ?)")
		p := likePattern(f.Search)
		args = append(args, p, p)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *Store) ListCategories(ctx context.Context, f models.CatalogFilter) ([]models.Category, int, error) {
	where, args := categoryWhere(f)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories c`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count categories: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, categorySelect+where+` ORDER BY c.name ASC LIMIT ? OFFSET ?`,
		append(args, f.Limit, offset(f.Page, f.Limit))...)
	if err != nil {
		return nil, 0, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, *c)
	}
	return categories, total, rows.Err()
}

func (s *Store) UpdateCategory(ctx context.Context, c *models.Category) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, description = ?, slug = ?, image_url = ?, is_active = ? WHERE id = ?`,
		c.Name, c.Description, c.Slug, c.ImageURL, c.IsActive, c.ID)
	if err != nil && isDuplicate(err) {
		return ErrDuplicate
	}
	if err := requireRow(res, err); err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return nil
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err := requireRow(res, err); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}
