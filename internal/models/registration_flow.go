package models

import (
	"time"

	"gorm.io/datatypes"
)

// RegistrationFlow persists a pending double opt-in registration. Tokens are nullable so that
// several rows never collide on an empty unique value.
type RegistrationFlow struct {
	BaseModel

	Email                       string            `gorm:"index;not null" json:"email"`
	EncryptedPassword           string            `gorm:"not null" json:"-"`
	Attributes                  datatypes.JSONMap `json:"attributes,omitempty"`
	ActivationToken             *string           `gorm:"uniqueIndex;size:128" json:"-"`
	ActivationTokenValidUntil   *time.Time        `gorm:"index" json:"activation_token_valid_until"`
	ConfirmationToken           *string           `gorm:"uniqueIndex;size:128" json:"-"`
	ConfirmationTokenValidUntil *time.Time        `gorm:"index" json:"confirmation_token_valid_until"`
}
