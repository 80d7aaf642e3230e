package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/signup/internal/models"
	"github.com/charlesng35/signup/internal/registration"
)

// FlowRepository stores registration flows in the registration_flows table.
type FlowRepository struct {
	db *gorm.DB
}

// NewFlowRepository constructs a FlowRepository.
func NewFlowRepository(db *gorm.DB) (*FlowRepository, error) {
	if db == nil {
		return nil, errors.New("flow repository: db is required")
	}
	return &FlowRepository{db: db}, nil
}

// FindByEmail returns every pending flow registered for email.
func (r *FlowRepository) FindByEmail(ctx context.Context, email string) ([]*registration.Flow, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, nil
	}

	var rows []models.RegistrationFlow
	if err := dbFromContext(ctx, r.db).
		Where("LOWER(email) = ?", strings.ToLower(email)).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("flow repository: find by email: %w", err)
	}

	flows := make([]*registration.Flow, 0, len(rows))
	for i := range rows {
		flows = append(flows, toFlow(&rows[i]))
	}
	return flows, nil
}

func (r *FlowRepository) FindOneByActivationToken(ctx context.Context, token string) (*registration.Flow, error) {
	return r.findOneBy(ctx, "activation_token", token)
}

func (r *FlowRepository) FindOneByConfirmationToken(ctx context.Context, token string) (*registration.Flow, error) {
	return r.findOneBy(ctx, "confirmation_token", token)
}

func (r *FlowRepository) findOneBy(ctx context.Context, column, token string) (*registration.Flow, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil
	}

	var row models.RegistrationFlow
	err := dbFromContext(ctx, r.db).Where(column+" = ?", token).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("flow repository: find by %s: %w", column, err)
	}
	return toFlow(&row), nil
}

// Add inserts a flow whose password has already been hashed.
func (r *FlowRepository) Add(ctx context.Context, flow *registration.Flow) error {
	if flow == nil {
		return errors.New("flow repository: flow is required")
	}
	if flow.EncryptedPassword() == "" {
		return errors.New("flow repository: flow has no encrypted password")
	}

	row := fromFlow(flow)
	if err := dbFromContext(ctx, r.db).Create(row).Error; err != nil {
		return fmt.Errorf("flow repository: add: %w", err)
	}
	return nil
}

// Remove deletes the flow. Removing a flow that is already gone yields ErrFlowNotFound.
func (r *FlowRepository) Remove(ctx context.Context, flow *registration.Flow) error {
	if flow == nil || flow.ID() == "" {
		return errors.New("flow repository: flow is required")
	}

	result := dbFromContext(ctx, r.db).Where("id = ?", flow.ID()).Delete(&models.RegistrationFlow{})
	if result.Error != nil {
		return fmt.Errorf("flow repository: remove: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrFlowNotFound
	}
	return nil
}

// PurgeExpired deletes flows whose activation and confirmation tokens have both expired
// at now and returns the number of rows removed.
func (r *FlowRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result := dbFromContext(ctx, r.db).
		Where("(activation_token_valid_until IS NULL OR activation_token_valid_until <= ?)", now).
		Where("(confirmation_token_valid_until IS NULL OR confirmation_token_valid_until <= ?)", now).
		Delete(&models.RegistrationFlow{})
	if result.Error != nil {
		return 0, fmt.Errorf("flow repository: purge expired: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func fromFlow(flow *registration.Flow) *models.RegistrationFlow {
	s := flow.Snapshot()
	return &models.RegistrationFlow{
		BaseModel: models.BaseModel{
			ID:        s.ID,
			CreatedAt: s.CreatedAt,
		},
		Email:                       s.Email,
		EncryptedPassword:           s.EncryptedPassword,
		Attributes:                  datatypes.JSONMap(s.Attributes),
		ActivationToken:             nullableString(s.ActivationToken),
		ActivationTokenValidUntil:   s.ActivationTokenValidUntil,
		ConfirmationToken:           nullableString(s.ConfirmationToken),
		ConfirmationTokenValidUntil: s.ConfirmationTokenValidUntil,
	}
}

func toFlow(row *models.RegistrationFlow) *registration.Flow {
	return registration.RestoreFlow(registration.FlowSnapshot{
		ID:                          row.ID,
		Email:                       row.Email,
		EncryptedPassword:           row.EncryptedPassword,
		Attributes:                  map[string]any(row.Attributes),
		ActivationToken:             stringValue(row.ActivationToken),
		ActivationTokenValidUntil:   row.ActivationTokenValidUntil,
		ConfirmationToken:           stringValue(row.ConfirmationToken),
		ConfirmationTokenValidUntil: row.ConfirmationTokenValidUntil,
		CreatedAt:                   row.CreatedAt,
	})
}

func nullableString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
