package models

import (
	"time"
)

// AuditEvent is one immutable record of a field-level change on an entity.
// Rows are only ever appended; the entity they reference may be deleted
// later, so EntityID is a weak reference and must not be joined through.
type AuditEvent struct {
	ID         uint    `gorm:"primaryKey" json:"id"`
	EntityID   string  `gorm:"not null;index:idx_audit_entity" json:"entityId"`
	EntityType string  `gorm:"type:varchar(50);not null;default:'product';index:idx_audit_entity" json:"entityType"`
	ActorID    *string `gorm:"type:uuid" json:"actorId,omitempty"`

	ActionType    string  `gorm:"type:varchar(50);not null;index" json:"actionType"`
	PreviousValue *string `gorm:"type:text" json:"previousValue,omitempty"`
	NewValue      *string `gorm:"type:text" json:"newValue,omitempty"`
	Notes         string  `gorm:"type:text" json:"notes,omitempty"`

	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
}

// TableName specifies the table name for AuditEvent
func (AuditEvent) TableName() string {
	return "audit_events"
}

// Entity types referenced by audit events
const (
	EntityTypeProduct = "product"
	EntityTypeWorker  = "worker"
	EntityTypeRoom    = "room"
)

// Action types constants
const (
	ActionQuantityUpdate        = "quantity_update"
	ActionConcentrationUpdate   = "concentration_update"
	ActionNotesUpdate           = "notes_update"
	ActionEquipmentStatusUpdate = "equipment_status_update"
	ActionCreate                = "create"
	ActionDelete                = "delete"
	ActionDeleteRequested       = "delete_requested"
	ActionDeleteRejected        = "delete_rejected"
	ActionRoleChange            = "role_change"
	ActionLogin                 = "login"
)
