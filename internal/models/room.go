package models

import (
	"time"
)

// Room is a physical storage location within the laboratory.
type Room struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `gorm:"type:text" json:"description,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Relations
	Products []Product `gorm:"foreignKey:RoomID" json:"products,omitempty"`
}

// TableName specifies the table name for Room
func (Room) TableName() string {
	return "rooms"
}
