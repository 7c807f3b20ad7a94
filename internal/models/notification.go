package models

import (
	"time"
)

// Notification kinds raised by the sweep
const (
	NotificationLowStock   = "low_stock"
	NotificationExpirySoon = "expiry_soon"
)

// Notification is an alert raised by the sweep for a product condition.
// Unacknowledged notifications deduplicate: the sweep will not raise a
// second alert of the same kind for the same product until the first one
// is acknowledged.
type Notification struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	ProductID uint   `gorm:"not null;index:idx_notification_product" json:"productId"`
	Kind      string `gorm:"type:varchar(30);not null;index:idx_notification_product" json:"kind"`
	Message   string `gorm:"type:text;not null" json:"message"`

	Acknowledged bool      `gorm:"default:false;index" json:"acknowledged"`
	CreatedAt    time.Time `json:"createdAt"`
}

// TableName specifies the table name for Notification
func (Notification) TableName() string {
	return "notifications"
}
