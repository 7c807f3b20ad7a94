package models

import (
	"time"

	"gorm.io/gorm"
)

// Worker represents a laboratory staff account.
// Standardized: Go (PascalCase) -> DB (snake_case) -> JSON (camelCase)
type Worker struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Username string `gorm:"unique;not null" json:"username"`
	Password string `gorm:"not null" json:"-"`
	Email    string `gorm:"unique;not null" json:"email"`
	Name     string `json:"name,omitempty"`
	IsAdmin  bool   `gorm:"default:false" json:"isAdmin"`

	// IsActive is cleared while a deletion request for this worker is
	// outstanding; the account stops authenticating but is not erased.
	IsActive  bool       `gorm:"default:true" json:"isActive"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for Worker
func (Worker) TableName() string {
	return "workers"
}
