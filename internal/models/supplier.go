package models

import (
	"time"
)

// Supplier is a vendor products are purchased from.
type Supplier struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	Name          string `gorm:"not null;index" json:"name"`
	ContactPerson string `json:"contactPerson,omitempty"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Address       string `gorm:"type:text" json:"address,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for Supplier
func (Supplier) TableName() string {
	return "suppliers"
}
