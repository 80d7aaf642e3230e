package models

import "gorm.io/datatypes"

// User is the account materialised from a confirmed registration flow. Email is the
// account identifier.
type User struct {
	BaseModel

	Email      string            `gorm:"uniqueIndex;not null" json:"email"`
	Password   string            `gorm:"not null" json:"-"`
	Attributes datatypes.JSONMap `json:"attributes,omitempty"`
	IsActive   bool              `gorm:"default:true" json:"is_active"`
}
