// Package deletion implements the time-boxed deletion workflow.
// Destructive operations on products, rooms and workers are never applied
// immediately: they are staged as pending_deletes rows that an admin
// approves or rejects, and that the sweep finalizes automatically once
// their expiry date passes unreviewed. Only rows still in pending status
// are ever acted on, and every status flip commits in the same
// transaction as its side effects, so retried sweeps and concurrent
// resolutions cannot double-process a row.
package deletion

import (
	"errors"
	"strconv"
	"time"

	"github.com/kibslabs/labstock/internal/audit"
	"github.com/kibslabs/labstock/internal/models"
	"github.com/kibslabs/labstock/internal/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Decision is an admin's verdict on a pending request.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// errSkipRow aborts a sweep row's transaction without failing the sweep.
var errSkipRow = errors.New("skip row")

// Workflow coordinates pending-delete state transitions.
type Workflow struct {
	db  *gorm.DB
	log *logrus.Logger
}

// NewWorkflow creates a deletion workflow over the given database.
func NewWorkflow(db *gorm.DB, log *logrus.Logger) *Workflow {
	return &Workflow{db: db, log: log}
}

// CreateRequest stages a new deletion request.
type CreateRequest struct {
	TargetType  models.DeleteTargetType
	TargetID    string
	Reason      string
	RequestedBy *string
}

// Create stages a deletion request for a product, room or worker. The
// targeted worker is deactivated (products are hidden) immediately so the
// entity stops being usable while the request is outstanding. A room
// request additionally stages one child request per product stored in the
// room, carrying the room's timestamp, reason and expiry. Fails with a
// conflict when a pending request already targets the same entity.
func (w *Workflow) Create(req CreateRequest) (*models.PendingDelete, error) {
	if !req.TargetType.Valid() {
		return nil, utils.Validationf("unknown target type %q", req.TargetType)
	}
	if req.TargetID == "" {
		return nil, utils.Validationf("target id is required")
	}
	if req.Reason == "" {
		return nil, utils.Validationf("reason is required")
	}

	var created *models.PendingDelete
	err := w.db.Transaction(func(tx *gorm.DB) error {
		if err := w.ensureNoPending(tx, req.TargetType, req.TargetID); err != nil {
			return err
		}

		now := time.Now().UTC()
		row := models.PendingDelete{
			TargetType:  req.TargetType,
			TargetID:    req.TargetID,
			RequestedBy: req.RequestedBy,
			Reason:      req.Reason,
			Status:      models.PendingDeleteStatusPending,
			Timestamp:   now,
			ExpiryDate:  now.Add(models.PendingDeleteTTL),
		}

		switch req.TargetType {
		case models.DeleteTargetWorker:
			if err := w.stageWorker(tx, &row, req); err != nil {
				return err
			}
		case models.DeleteTargetProduct:
			productID, err := parseNumericID(req.TargetID)
			if err != nil {
				return err
			}
			if err := w.stageProduct(tx, &row, productID, req.RequestedBy); err != nil {
				return err
			}
		case models.DeleteTargetRoom:
			if err := w.stageRoom(tx, &row, req); err != nil {
				return err
			}
		}

		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		created = &row
		return nil
	})
	if err != nil {
		return nil, err
	}

	w.log.WithFields(logrus.Fields{
		"pending_delete_id": created.ID,
		"target_type":       created.TargetType,
		"target_id":         created.TargetID,
		"expiry_date":       created.ExpiryDate.Format(time.RFC3339),
	}).Info("deletion.create")

	return created, nil
}

func (w *Workflow) stageWorker(tx *gorm.DB, row *models.PendingDelete, req CreateRequest) error {
	var worker models.Worker
	if err := tx.First(&worker, "id = ?", req.TargetID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.NotFoundf("worker %s", req.TargetID)
		}
		return err
	}

	if err := tx.Model(&worker).Update("is_active", false).Error; err != nil {
		return err
	}

	_, err := audit.Record(tx, audit.Entry{
		EntityID:   worker.ID,
		EntityType: models.EntityTypeWorker,
		ActionType: models.ActionDeleteRequested,
		ActorID:    req.RequestedBy,
		Notes:      "worker " + worker.Username + ": " + req.Reason,
	})
	return err
}

func (w *Workflow) stageProduct(tx *gorm.DB, row *models.PendingDelete, productID uint, actor *string) error {
	var product models.Product
	if err := tx.First(&product, productID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.NotFoundf("product %d", productID)
		}
		return err
	}

	if err := tx.Model(&product).Update("hidden", true).Error; err != nil {
		return err
	}

	_, err := audit.Record(tx, audit.Entry{
		EntityID:   audit.EntityID(product.ID),
		EntityType: models.EntityTypeProduct,
		ActionType: models.ActionDeleteRequested,
		ActorID:    actor,
		Notes:      row.Reason,
	})
	return err
}

func (w *Workflow) stageRoom(tx *gorm.DB, row *models.PendingDelete, req CreateRequest) error {
	roomID, err := parseNumericID(req.TargetID)
	if err != nil {
		return err
	}
	var room models.Room
	if err := tx.First(&room, roomID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.NotFoundf("room %d", roomID)
		}
		return err
	}

	// Cascade: stage every product stored in the room as its own child
	// request, at request time, carrying the room's timestamp and expiry.
	// Products already under a pending request keep their existing row.
	var products []models.Product
	if err := tx.Where("room_id = ?", room.ID).Order("id ASC").Find(&products).Error; err != nil {
		return err
	}
	for _, p := range products {
		targetID := strconv.FormatUint(uint64(p.ID), 10)
		if err := w.ensureNoPending(tx, models.DeleteTargetProduct, targetID); err != nil {
			if errors.Is(err, utils.ErrConflict) {
				continue
			}
			return err
		}

		child := models.PendingDelete{
			TargetType:  models.DeleteTargetProduct,
			TargetID:    targetID,
			RequestedBy: req.RequestedBy,
			Reason:      req.Reason,
			Status:      models.PendingDeleteStatusPending,
			Timestamp:   row.Timestamp,
			ExpiryDate:  row.ExpiryDate,
		}
		if err := tx.Create(&child).Error; err != nil {
			return err
		}
		if err := w.stageProduct(tx, &child, p.ID, req.RequestedBy); err != nil {
			return err
		}
	}

	_, err = audit.Record(tx, audit.Entry{
		EntityID:   audit.EntityID(room.ID),
		EntityType: models.EntityTypeRoom,
		ActionType: models.ActionDeleteRequested,
		ActorID:    req.RequestedBy,
		Notes:      req.Reason,
	})
	return err
}

// Resolve applies an admin decision to a pending request. Approve
// hard-deletes the entity and everything referencing it in one
// transaction; reject restores the entity to normal visibility. Both
// fail with a conflict when the row is no longer pending.
func (w *Workflow) Resolve(id uint, decision Decision, actorID *string) error {
	if decision != DecisionApprove && decision != DecisionReject {
		return utils.Validationf("unknown decision %q", decision)
	}

	err := w.db.Transaction(func(tx *gorm.DB) error {
		var row models.PendingDelete
		if err := tx.First(&row, id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return utils.NotFoundf("pending delete %d", id)
			}
			return err
		}
		if row.Status != models.PendingDeleteStatusPending {
			return utils.Conflictf("pending delete %d is already %s", id, row.Status)
		}

		var next models.PendingDeleteStatus
		if decision == DecisionApprove {
			next = models.PendingDeleteStatusApproved
			if err := w.finalize(tx, &row, actorID, "deletion approved"); err != nil {
				return err
			}
		} else {
			next = models.PendingDeleteStatusRejected
			if err := w.restore(tx, &row, actorID); err != nil {
				return err
			}
		}

		// The guarded update is the exclusivity gate against a sweep or a
		// second admin racing this resolution.
		res := tx.Model(&models.PendingDelete{}).
			Where("id = ? AND status = ?", row.ID, models.PendingDeleteStatusPending).
			Update("status", next)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return utils.Conflictf("pending delete %d was resolved concurrently", id)
		}
		return nil
	})
	if err != nil {
		return err
	}

	w.log.WithFields(logrus.Fields{
		"pending_delete_id": id,
		"decision":          decision,
	}).Info("deletion.resolve")
	return nil
}

// SweepResult summarizes one expiry sweep.
type SweepResult struct {
	Completed int `json:"completed"`
}

// SweepExpired finalizes every request whose expiry date has passed
// without review, attributing the deletions to the system. Each row runs
// in its own transaction and is completed at most once; rows already
// taken by a concurrent resolution are skipped, so repeated sweeps with
// the same instant are safe.
func (w *Workflow) SweepExpired(now time.Time) (SweepResult, error) {
	var candidates []models.PendingDelete
	err := w.db.
		Where("status = ? AND expiry_date <= ?", models.PendingDeleteStatusPending, now).
		Order("timestamp ASC, id ASC").
		Find(&candidates).Error
	if err != nil {
		return SweepResult{}, err
	}

	// Products and workers finalize before rooms so an expired room never
	// completes ahead of its expired cascade children.
	ordered := make([]models.PendingDelete, 0, len(candidates))
	for _, c := range candidates {
		if c.TargetType != models.DeleteTargetRoom {
			ordered = append(ordered, c)
		}
	}
	for _, c := range candidates {
		if c.TargetType == models.DeleteTargetRoom {
			ordered = append(ordered, c)
		}
	}

	result := SweepResult{}
	for _, candidate := range ordered {
		row := candidate
		err := w.db.Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.PendingDelete{}).
				Where("id = ? AND status = ?", row.ID, models.PendingDeleteStatusPending).
				Update("status", models.PendingDeleteStatusCompleted)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errSkipRow
			}
			return w.finalize(tx, &row, nil, "expired without review")
		})
		switch {
		case err == nil:
			result.Completed++
		case errors.Is(err, errSkipRow):
			continue
		case errors.Is(err, utils.ErrConflict):
			// Room with children still under review; left pending for the
			// next tick.
			w.log.WithFields(logrus.Fields{
				"pending_delete_id": row.ID,
				"reason":            err.Error(),
			}).Info("deletion.sweep.deferred")
		default:
			w.log.WithFields(logrus.Fields{
				"pending_delete_id": row.ID,
				"error":             err.Error(),
			}).Warn("deletion.sweep.row_failed")
		}
	}

	if result.Completed > 0 {
		w.log.WithFields(logrus.Fields{
			"completed": result.Completed,
			"as_of":     now.Format(time.RFC3339),
		}).Info("deletion.sweep.done")
	}
	return result, nil
}

// finalize applies the destructive half of approval or expiry.
func (w *Workflow) finalize(tx *gorm.DB, row *models.PendingDelete, actorID *string, note string) error {
	switch row.TargetType {
	case models.DeleteTargetProduct:
		productID, err := parseNumericID(row.TargetID)
		if err != nil {
			return err
		}
		return w.finalizeProduct(tx, productID, actorID, note)
	case models.DeleteTargetWorker:
		return w.finalizeWorker(tx, row.TargetID, actorID, note)
	case models.DeleteTargetRoom:
		roomID, err := parseNumericID(row.TargetID)
		if err != nil {
			return err
		}
		return w.finalizeRoom(tx, roomID, actorID, note)
	}
	return utils.Validationf("unknown target type %q", row.TargetType)
}

// finalizeProduct hard-deletes the product together with every row that
// references it, then writes a final audit event. The event's entity id
// dangles afterwards; the ledger never joins through it.
func (w *Workflow) finalizeProduct(tx *gorm.DB, productID uint, actorID *string, note string) error {
	var product models.Product
	if err := tx.First(&product, productID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.NotFoundf("product %d", productID)
		}
		return err
	}

	steps := []*gorm.DB{
		tx.Where("product_id = ?", productID).Delete(&models.Notification{}),
		tx.Where("product_id = ?", productID).Delete(&models.InventoryAnalytics{}),
		tx.Where("product_id = ?", productID).Delete(&models.PurchaseRecord{}),
		tx.Where("entity_type = ? AND entity_id = ?", models.EntityTypeProduct, audit.EntityID(productID)).
			Delete(&models.AuditEvent{}),
		tx.Delete(&product),
	}
	for _, step := range steps {
		if step.Error != nil {
			return step.Error
		}
	}

	_, err := audit.Record(tx, audit.Entry{
		EntityID:   audit.EntityID(productID),
		EntityType: models.EntityTypeProduct,
		ActionType: models.ActionDelete,
		ActorID:    actorID,
		Notes:      note + ": " + product.ProductCode,
	})
	return err
}

func (w *Workflow) finalizeWorker(tx *gorm.DB, workerID string, actorID *string, note string) error {
	var worker models.Worker
	if err := tx.Unscoped().First(&worker, "id = ?", workerID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.NotFoundf("worker %s", workerID)
		}
		return err
	}

	if err := tx.Unscoped().Delete(&worker).Error; err != nil {
		return err
	}

	_, err := audit.Record(tx, audit.Entry{
		EntityID:   worker.ID,
		EntityType: models.EntityTypeWorker,
		ActionType: models.ActionDelete,
		ActorID:    actorID,
		Notes:      note + ": worker " + worker.Username,
	})
	return err
}

// finalizeRoom refuses to act while any product in the room is still
// under review; the room completes only once its cascade children are
// resolved.
func (w *Workflow) finalizeRoom(tx *gorm.DB, roomID uint, actorID *string, note string) error {
	var room models.Room
	if err := tx.First(&room, roomID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.NotFoundf("room %d", roomID)
		}
		return err
	}

	pending, err := w.pendingProductsInRoom(tx, roomID)
	if err != nil {
		return err
	}
	if pending > 0 {
		return utils.Conflictf("room %d has %d products still under deletion review", roomID, pending)
	}

	// Products whose own requests were rejected stay alive; they just lose
	// their storage location.
	if err := tx.Model(&models.Product{}).
		Where("room_id = ?", roomID).
		Update("room_id", nil).Error; err != nil {
		return err
	}

	if err := tx.Delete(&room).Error; err != nil {
		return err
	}

	_, err = audit.Record(tx, audit.Entry{
		EntityID:   audit.EntityID(roomID),
		EntityType: models.EntityTypeRoom,
		ActionType: models.ActionDelete,
		ActorID:    actorID,
		Notes:      note + ": " + room.Name,
	})
	return err
}

// restore undoes the staging side effects of a rejected request.
func (w *Workflow) restore(tx *gorm.DB, row *models.PendingDelete, actorID *string) error {
	switch row.TargetType {
	case models.DeleteTargetProduct:
		productID, err := parseNumericID(row.TargetID)
		if err != nil {
			return err
		}
		return w.restoreProduct(tx, productID, actorID, row.Reason)
	case models.DeleteTargetWorker:
		var worker models.Worker
		if err := tx.First(&worker, "id = ?", row.TargetID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return utils.NotFoundf("worker %s", row.TargetID)
			}
			return err
		}
		if err := tx.Model(&worker).Update("is_active", true).Error; err != nil {
			return err
		}
		_, err := audit.Record(tx, audit.Entry{
			EntityID:   worker.ID,
			EntityType: models.EntityTypeWorker,
			ActionType: models.ActionDeleteRejected,
			ActorID:    actorID,
			Notes:      "worker " + worker.Username + " reactivated",
		})
		return err
	case models.DeleteTargetRoom:
		return w.restoreRoom(tx, row, actorID)
	}
	return utils.Validationf("unknown target type %q", row.TargetType)
}

func (w *Workflow) restoreProduct(tx *gorm.DB, productID uint, actorID *string, reason string) error {
	var product models.Product
	if err := tx.First(&product, productID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.NotFoundf("product %d", productID)
		}
		return err
	}
	if err := tx.Model(&product).Update("hidden", false).Error; err != nil {
		return err
	}
	_, err := audit.Record(tx, audit.Entry{
		EntityID:   audit.EntityID(productID),
		EntityType: models.EntityTypeProduct,
		ActionType: models.ActionDeleteRejected,
		ActorID:    actorID,
		Notes:      reason,
	})
	return err
}

// restoreRoom rejects the room request together with the cascade children
// it staged, identified by room membership and the shared request
// timestamp. Products staged by their own earlier requests keep them.
func (w *Workflow) restoreRoom(tx *gorm.DB, row *models.PendingDelete, actorID *string) error {
	roomID, err := parseNumericID(row.TargetID)
	if err != nil {
		return err
	}
	var room models.Room
	if err := tx.First(&room, roomID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.NotFoundf("room %d", roomID)
		}
		return err
	}

	productIDs, err := w.productIDsInRoom(tx, roomID)
	if err != nil {
		return err
	}
	if len(productIDs) > 0 {
		var children []models.PendingDelete
		err := tx.
			Where("target_type = ? AND status = ? AND timestamp = ? AND target_id IN ?",
				models.DeleteTargetProduct, models.PendingDeleteStatusPending, row.Timestamp, productIDs).
			Find(&children).Error
		if err != nil {
			return err
		}
		for _, child := range children {
			productID, err := parseNumericID(child.TargetID)
			if err != nil {
				return err
			}
			if err := w.restoreProduct(tx, productID, actorID, child.Reason); err != nil {
				return err
			}
			res := tx.Model(&models.PendingDelete{}).
				Where("id = ? AND status = ?", child.ID, models.PendingDeleteStatusPending).
				Update("status", models.PendingDeleteStatusRejected)
			if res.Error != nil {
				return res.Error
			}
		}
	}

	_, err = audit.Record(tx, audit.Entry{
		EntityID:   audit.EntityID(roomID),
		EntityType: models.EntityTypeRoom,
		ActionType: models.ActionDeleteRejected,
		ActorID:    actorID,
		Notes:      row.Reason,
	})
	return err
}

// ensureNoPending enforces at most one pending request per entity.
func (w *Workflow) ensureNoPending(tx *gorm.DB, targetType models.DeleteTargetType, targetID string) error {
	var count int64
	err := tx.Model(&models.PendingDelete{}).
		Where("target_type = ? AND target_id = ? AND status = ?",
			targetType, targetID, models.PendingDeleteStatusPending).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return utils.Conflictf("%s %s already has a pending deletion request", targetType, targetID)
	}
	return nil
}

// pendingProductsInRoom counts products located in the room that still
// have a pending deletion request of their own.
func (w *Workflow) pendingProductsInRoom(tx *gorm.DB, roomID uint) (int64, error) {
	productIDs, err := w.productIDsInRoom(tx, roomID)
	if err != nil {
		return 0, err
	}
	if len(productIDs) == 0 {
		return 0, nil
	}

	var count int64
	err = tx.Model(&models.PendingDelete{}).
		Where("target_type = ? AND status = ? AND target_id IN ?",
			models.DeleteTargetProduct, models.PendingDeleteStatusPending, productIDs).
		Count(&count).Error
	return count, err
}

func (w *Workflow) productIDsInRoom(tx *gorm.DB, roomID uint) ([]string, error) {
	var ids []uint
	if err := tx.Model(&models.Product{}).Where("room_id = ?", roomID).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = strconv.FormatUint(uint64(id), 10)
	}
	return out, nil
}

func parseNumericID(s string) (uint, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, utils.Validationf("invalid target id %q", s)
	}
	return uint(n), nil
}
