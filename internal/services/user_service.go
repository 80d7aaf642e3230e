package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/signup/internal/models"
	"github.com/charlesng35/signup/internal/registration"
	apperrors "github.com/charlesng35/signup/pkg/errors"
)

// ErrUserNotFound indicates the requested user does not exist.
var ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)

// UserService owns the accounts created by confirmed registrations.
type UserService struct {
	db *gorm.DB
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{db: db}, nil
}

// AccountExists reports whether an account uses identifier as its email, ignoring case.
func (s *UserService) AccountExists(ctx context.Context, identifier string) (bool, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" {
		return false, nil
	}

	var count int64
	if err := dbFromContext(ctx, s.db).
		Model(&models.User{}).
		Where("LOWER(email) = ?", identifier).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("user service: lookup account: %w", err)
	}
	return count > 0, nil
}

// CreateUserAndAccount persists an active user from a confirmed flow, reusing the hash
// computed at registration time.
func (s *UserService) CreateUserAndAccount(ctx context.Context, flow *registration.Flow) (*registration.Account, error) {
	if flow == nil {
		return nil, errors.New("user service: flow is required")
	}
	if flow.EncryptedPassword() == "" {
		return nil, errors.New("user service: flow has no encrypted password")
	}

	user := &models.User{
		Email:      strings.ToLower(flow.Email()),
		Password:   flow.EncryptedPassword(),
		Attributes: datatypes.JSONMap(flow.Attributes()),
		IsActive:   true,
	}

	if err := dbFromContext(ctx, s.db).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}

	return &registration.Account{ID: user.ID, Identifier: user.Email}, nil
}

// GetByEmail loads a user by email.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := dbFromContext(ctx, s.db).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user service: get user: %w", err)
	}
	return &user, nil
}
