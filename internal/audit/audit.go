// Package audit maintains the append-only ledger of entity changes.
// Every mutating code path writes its event through Record on the same
// transaction handle as the mutation itself, so the row and its event
// commit or roll back together. Events are never updated; they are only
// bulk-removed when their owning product is hard-deleted.
package audit

import (
	"strconv"
	"time"

	"github.com/kibslabs/labstock/internal/models"
	"github.com/kibslabs/labstock/internal/utils"
	"gorm.io/gorm"
)

// DefaultQueryLimit caps reads that do not specify their own limit.
const DefaultQueryLimit = 100

// Entry describes one change to record. EntityID is the referenced
// entity's key as text; products and rooms use numeric ids, workers use
// UUIDs.
type Entry struct {
	EntityID      string
	EntityType    string // defaults to "product"
	ActionType    string
	PreviousValue *string
	NewValue      *string
	ActorID       *string // nil when the system acted
	Notes         string
}

// Record appends one immutable audit event on the given transaction
// handle. Callers pass the same *gorm.DB their mutation runs on; a failed
// insert fails the whole transaction.
func Record(tx *gorm.DB, e Entry) (*models.AuditEvent, error) {
	if e.EntityID == "" {
		return nil, utils.Validationf("audit entry requires an entity id")
	}
	if e.ActionType == "" {
		return nil, utils.Validationf("audit entry requires an action type")
	}
	if e.EntityType == "" {
		e.EntityType = models.EntityTypeProduct
	}

	event := models.AuditEvent{
		EntityID:      e.EntityID,
		EntityType:    e.EntityType,
		ActorID:       e.ActorID,
		ActionType:    e.ActionType,
		PreviousValue: e.PreviousValue,
		NewValue:      e.NewValue,
		Notes:         e.Notes,
		Timestamp:     time.Now().UTC(),
	}

	if err := tx.Create(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// Query filters a ledger read. Zero-value fields are ignored.
type Query struct {
	EntityID   string
	EntityType string
	ActionType string
	Since      *time.Time
	Limit      int
}

// Find returns matching events newest-first. Ordering is by
// (timestamp, id) so events sharing a timestamp resolve by insertion
// order and reads stay deterministic.
func Find(db *gorm.DB, q Query) ([]models.AuditEvent, error) {
	tx := db.Model(&models.AuditEvent{})

	if q.EntityID != "" {
		tx = tx.Where("entity_id = ?", q.EntityID)
	}
	if q.EntityType != "" {
		tx = tx.Where("entity_type = ?", q.EntityType)
	}
	if q.ActionType != "" {
		tx = tx.Where("action_type = ?", q.ActionType)
	}
	if q.Since != nil {
		tx = tx.Where("timestamp >= ?", *q.Since)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	var events []models.AuditEvent
	err := tx.Order("timestamp DESC, id DESC").Limit(limit).Find(&events).Error
	return events, err
}

// Value is a convenience for building previous/new value pointers.
func Value(s string) *string {
	return &s
}

// EntityID formats a numeric entity key for the ledger's entity_id column.
func EntityID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
