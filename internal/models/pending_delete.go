package models

import (
	"time"
)

// DeleteTargetType discriminates what a PendingDelete points at.
type DeleteTargetType string

const (
	DeleteTargetProduct DeleteTargetType = "product"
	DeleteTargetRoom    DeleteTargetType = "room"
	DeleteTargetWorker  DeleteTargetType = "worker"
)

// Valid reports whether t is one of the known target types.
func (t DeleteTargetType) Valid() bool {
	switch t {
	case DeleteTargetProduct, DeleteTargetRoom, DeleteTargetWorker:
		return true
	}
	return false
}

// PendingDeleteStatus is the lifecycle state of a deletion request.
type PendingDeleteStatus string

const (
	PendingDeleteStatusPending   PendingDeleteStatus = "pending"
	PendingDeleteStatusApproved  PendingDeleteStatus = "approved"
	PendingDeleteStatusRejected  PendingDeleteStatus = "rejected"
	PendingDeleteStatusCompleted PendingDeleteStatus = "completed"
)

// PendingDelete stages a destructive operation for admin review. The target
// is a tagged (type, id) pair rather than per-type nullable columns, so a
// row always points at exactly one entity. TargetID keeps the entity's key
// as text because products and rooms use numeric ids while workers use
// UUIDs. After finalization the reference dangles; nothing joins through it.
type PendingDelete struct {
	ID         uint             `gorm:"primaryKey" json:"id"`
	TargetType DeleteTargetType `gorm:"type:varchar(20);not null;index:idx_pending_delete_target" json:"targetType"`
	TargetID   string           `gorm:"not null;index:idx_pending_delete_target" json:"targetId"`

	RequestedBy *string `gorm:"type:uuid" json:"requestedBy,omitempty"`
	Reason      string  `gorm:"type:text;not null" json:"reason"`

	Status     PendingDeleteStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Timestamp  time.Time           `gorm:"not null" json:"timestamp"`
	ExpiryDate time.Time           `gorm:"not null;index" json:"expiryDate"`
}

// TableName specifies the table name for PendingDelete
func (PendingDelete) TableName() string {
	return "pending_deletes"
}

// PendingDeleteTTL is how long a request may sit unreviewed before the
// sweep finalizes it.
const PendingDeleteTTL = 30 * 24 * time.Hour
