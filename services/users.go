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

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context, page, limit int) ([]models.User, int, error)
	UpdateUser(ctx context.Context, u *models.User) error
	UpdatePassword(ctx context.Context, id, hash string) error
	SetRefreshID(ctx context.Context, id string, refreshID *string) error
	DeleteUser(ctx context.Context, id string) error
}

type AuthService struct {
	users    UserStore
	tokens   *utils.TokenIssuer
	log      *logger.Logger
	hashCost int
}

func NewAuthService(users UserStore, tokens *utils.TokenIssuer, log *logger.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, log: log.With("component", "auth"), hashCost: utils.RegisterHashCost}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if !utils.StrongPassword(req.Password) {
		return nil, apperrors.Validation("Password must contain uppercase, lowercase, number and special character")
	}

	_, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, apperrors.Conflict("User with this email already exists")
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.Internal("An error occurred during registration", err)
	}

	hash, err := utils.HashPassword(req.Password, s.hashCost)
	if err != nil {
		return nil, apperrors.Internal("An error occurred during registration", err)
	}
	u := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         models.RoleUser,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperrors.Conflict("User with this email already exists")
		}
		return nil, apperrors.Internal("An error occurred during registration", err)
	}
	s.log.Info("user registered", "user_id", u.ID)

	resp, err := s.issue(ctx, u)
	if err != nil {
		return nil, apperrors.Internal("An error occurred during registration", err)
	}
	return resp, nil
}

func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	u, err := s.users.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.Unauthorized("Invalid email or password")
	}
	if err != nil {
		return nil, apperrors.Internal("Login failed", err)
	}
	if !utils.CheckPassword(u.PasswordHash, req.Password) {
		return nil, apperrors.Unauthorized("Invalid email or password")
	}

	resp, err := s.issue(ctx, u)
	if err != nil {
		return nil, apperrors.Internal("Login failed", err)
	}
	return resp, nil
}

// Refresh exchanges a valid refresh token for a new pair. Each refresh token
// works once: its id is rotated on use.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.AuthResponse, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized("Invalid refresh token")
	}

	u, err := s.users.GetUserByID(ctx, claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.Unauthorized("Invalid refresh token")
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to refresh token", err)
	}
	if u.RefreshID == nil || *u.RefreshID != claims.RefreshID {
		return nil, apperrors.Unauthorized("Refresh token has been revoked")
	}

	resp, err := s.issue(ctx, u)
	if err != nil {
		return nil, apperrors.Internal("Failed to refresh token", err)
	}
	return resp, nil
}

func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.users.SetRefreshID(ctx, userID, nil); err != nil && !errors.Is(err, store.ErrNotFound) {
		return apperrors.Internal("Logout failed", err)
	}
	return nil
}

func (s *AuthService) issue(ctx context.Context, u *models.User) (*models.AuthResponse, error) {
	pair, err := s.tokens.IssuePair(u.ID, u.Email, string(u.Role))
	if err != nil {
		return nil, err
	}
	if err := s.users.SetRefreshID(ctx, u.ID, &pair.RefreshID); err != nil {
		return nil, err
	}
	u.RefreshID = &pair.RefreshID
	return &models.AuthResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken, User: u}, nil
}

type UserService struct {
	users    UserStore
	log      *logger.Logger
	hashCost int
}

func NewUserService(users UserStore, log *logger.Logger) *UserService {
	return &UserService{users: users, log: log.With("component", "users"), hashCost: utils.ChangeHashCost}
}

func (s *UserService) FindOne(ctx context.Context, id string) (*models.User, error) {
	u, err := s.users.GetUserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NotFound("User with ID %s not found", id)
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to fetch user", err)
	}
	return u, nil
}

func (s *UserService) FindAll(ctx context.Context, page, limit int) ([]models.User, models.PageMeta, error) {
	page, limit = models.Paginate(page, limit)
	users, total, err := s.users.ListUsers(ctx, page, limit)
	if err != nil {
		return nil, models.PageMeta{}, apperrors.Internal("Failed to fetch users", err)
	}
	return users, models.NewPageMeta(total, page, limit), nil
}

func (s *UserService) UpdateProfile(ctx context.Context, id string, req models.UpdateUserRequest) (*models.User, error) {
	u, err := s.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		if email != u.Email {
			other, err := s.users.GetUserByEmail(ctx, email)
			if err == nil && other.ID != id {
				return nil, apperrors.Conflict("Email already in use")
			}
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return nil, apperrors.Internal("Failed to update user", err)
			}
			u.Email = email
		}
	}
	if req.FirstName != nil {
		u.FirstName = req.FirstName
	}
	if req.LastName != nil {
		u.LastName = req.LastName
	}

	if err := s.users.UpdateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperrors.Conflict("Email already in use")
		}
		return nil, apperrors.Internal("Failed to update user", err)
	}
	return u, nil
}

// ChangePassword also revokes the user's refresh token.
func (s *UserService) ChangePassword(ctx context.Context, id string, req models.ChangePasswordRequest) error {
	u, err := s.FindOne(ctx, id)
	if err != nil {
		return err
	}
	if !utils.CheckPassword(u.PasswordHash, req.CurrentPassword) {
		return apperrors.Unauthorized("Current password is incorrect")
	}
	if req.CurrentPassword == req.NewPassword {
		return apperrors.Validation("New password must be different from the current password")
	}
	if !utils.StrongPassword(req.NewPassword) {
		return apperrors.Validation("Password must contain uppercase, lowercase, number and special character")
	}

	hash, err := utils.HashPassword(req.NewPassword, s.hashCost)
	if err != nil {
		return apperrors.Internal("Failed to change password", err)
	}
	if err := s.users.UpdatePassword(ctx, id, hash); err != nil {
		return apperrors.Internal("Failed to change password", err)
	}
	if err := s.users.SetRefreshID(ctx, id, nil); err != nil {
		s.log.Warn("failed to revoke refresh token", "user_id", id, "error", err)
	}
	s.log.Info("password changed", "user_id", id)
	return nil
}

func (s *UserService) Remove(ctx context.Context, id string) error {
	if err := s.users.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.NotFound("User with ID %s not found", id)
		}
		if errors.Is(err, store.ErrReferenced) {
			return apperrors.InvalidState("Cannot delete user with existing orders")
		}
		return apperrors.Internal("Failed to delete user", err)
	}
	s.log.Info("user deleted", "user_id", id)
	return nil
}
