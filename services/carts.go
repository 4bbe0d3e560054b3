package services

import (
	"context"
	"errors"

	"shop-service/apperrors"
	"shop-service/models"
	"shop-service/store"
)

type CartStore interface {
	LatestOpenCart(ctx context.Context, userID string) (*models.Cart, error)
	CreateCart(ctx context.Context, c *models.Cart) error
}

type CartService struct {
	store CartStore
}

func NewCartService(st CartStore) *CartService {
	return &CartService{store: st}
}

// Current returns the user's open cart, opening one if needed.
func (s *CartService) Current(ctx context.Context, userID string) (*models.Cart, error) {
	c, err := s.store.LatestOpenCart(ctx, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.Internal("Failed to fetch cart", err)
	}

	c = &models.Cart{UserID: userID}
	if err := s.store.CreateCart(ctx, c); err != nil {
		return nil, apperrors.Internal("Failed to create cart", err)
	}
	return c, nil
}
