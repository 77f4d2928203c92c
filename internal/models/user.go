package models

import "gorm.io/gorm"

// User represents a registered member of the blog.
// Accounts start out deactivated: a freshly registered user carries a
// one-time activation token and may not log in until the token is redeemed
// through the email confirmation link.
type User struct {
	ID              string  `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name            string  `json:"name" gorm:"type:varchar(50)" validate:"required,max=50"`
	Email           string  `json:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email,max=255"`
	Password        string  `gorm:"type:varchar(255)" validate:"required,min=6"` // No json tag for security
	Activated       bool    `json:"activated"`
	ActivationToken *string `json:"-" gorm:"uniqueIndex;type:varchar(36)"` // nil once consumed
	gorm.Model              // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}
