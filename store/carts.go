package store

import (
	"context"
	"fmt"
	"time"

	"shop-service/models"
)

func (s *Store) LatestOpenCart(ctx context.Context, userID string) (*models.Cart, error) {
	var c models.Cart
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, checked_out, created_at FROM carts
		 WHERE user_id = ? AND checked_out = FALSE ORDER BY created_at DESC LIMIT 1`, userID).
		Scan(&c.ID, &c.UserID, &c.CheckedOut, &c.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *Store) CreateCart(ctx context.Context, c *models.Cart) error {
	if c.ID == "" {
		c.ID = newID()
	}
	c.CreatedAt = time.Now().UTC()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO carts (id, user_id, checked_out, created_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.UserID, c.CheckedOut, c.CreatedAt); err != nil {
		return fmt.Errorf("insert cart: %w", err)
	}
	return nil
}

func (s *Store) MarkCartCheckedOut(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE carts SET checked_out = TRUE WHERE id = ?`, id)
	if err := requireRow(res, err); err != nil {
		return fmt.Errorf("check out cart: %w", err)
	}
	return nil
}
