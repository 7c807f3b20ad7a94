// Package analytics derives per-product movement metrics from the audit
// ledger and suggests restocking for low-stock products. Everything here
// is read-derived: recomputation is a pure function of the audit events,
// products and purchases on disk, so reruns are idempotent and overlapping
// invocations cannot corrupt state.
package analytics

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/kibslabs/labstock/internal/audit"
	"github.com/kibslabs/labstock/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Config holds the classification thresholds. Passed in explicitly so
// boundary values can be exercised in tests.
type Config struct {
	DeadStockDays  int
	SlowMovingDays int
	TopProducts    int
}

// DefaultConfig returns the stock policy thresholds.
func DefaultConfig() Config {
	return Config{
		DeadStockDays:  90,
		SlowMovingDays: 30,
		TopProducts:    5,
	}
}

// ProductError reports one product that failed during a batch run.
type ProductError struct {
	ProductID uint   `json:"productId"`
	Error     string `json:"error"`
}

// Result summarizes a recomputation run.
type Result struct {
	Updated int            `json:"updated"`
	Errors  []ProductError `json:"errors"`
}

// Recomputer rebuilds inventory_analytics rows from durable data.
type Recomputer struct {
	db  *gorm.DB
	cfg Config
	log *logrus.Logger
}

// NewRecomputer creates a recomputer with the given thresholds.
func NewRecomputer(db *gorm.DB, cfg Config, log *logrus.Logger) *Recomputer {
	return &Recomputer{db: db, cfg: cfg, log: log}
}

// Run recomputes analytics for every product as of the given instant.
// Each product is processed in its own transaction; a failing product is
// reported in the result and does not abort the batch. A non-nil error
// means the batch could not run at all, as opposed to an empty catalog.
func (r *Recomputer) Run(now time.Time) (Result, error) {
	result := Result{Errors: []ProductError{}}

	var productIDs []uint
	if err := r.db.Model(&models.Product{}).Order("id ASC").Pluck("id", &productIDs).Error; err != nil {
		r.log.WithField("error", err.Error()).Error("analytics.recompute.list_products")
		return result, fmt.Errorf("listing products: %w", err)
	}

	movementRanks, err := r.movementRanks(productIDs)
	if err != nil {
		r.log.WithField("error", err.Error()).Error("analytics.recompute.movement_ranks")
		return result, fmt.Errorf("movement ranks: %w", err)
	}
	revenueRanks, err := r.revenueRanks(productIDs)
	if err != nil {
		r.log.WithField("error", err.Error()).Error("analytics.recompute.revenue_ranks")
		return result, fmt.Errorf("revenue ranks: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"products": len(productIDs),
		"as_of":    now.Format(time.RFC3339),
	}).Info("analytics.recompute.start")

	for _, id := range productIDs {
		err := r.db.Transaction(func(tx *gorm.DB) error {
			return r.recomputeProduct(tx, id, now, movementRanks[id], revenueRanks[id])
		})
		if err != nil {
			result.Errors = append(result.Errors, ProductError{ProductID: id, Error: err.Error()})
			r.log.WithFields(logrus.Fields{
				"product_id": id,
				"error":      err.Error(),
			}).Warn("analytics.recompute.product_failed")
			continue
		}
		result.Updated++
	}

	r.log.WithFields(logrus.Fields{
		"updated": result.Updated,
		"errors":  len(result.Errors),
	}).Info("analytics.recompute.done")

	return result, nil
}

// recomputeProduct derives and upserts the analytics row for one product.
func (r *Recomputer) recomputeProduct(tx *gorm.DB, productID uint, now time.Time, movementRank, revenueRank int) error {
	row := models.InventoryAnalytics{
		ProductID:    productID,
		MovementRank: movementRank,
		RevenueRank:  revenueRank,
		IsTopProduct: movementRank > 0 && movementRank <= r.cfg.TopProducts,
		LastUpdated:  now,
	}

	entityID := audit.EntityID(productID)

	var lastMovement models.AuditEvent
	err := tx.Where("entity_type = ? AND entity_id = ? AND action_type = ?",
		models.EntityTypeProduct, entityID, models.ActionQuantityUpdate).
		Order("timestamp DESC, id DESC").
		First(&lastMovement).Error
	switch {
	case err == nil:
		ts := lastMovement.Timestamp
		days := int(now.Sub(ts).Hours() / 24)
		if days < 0 {
			return fmt.Errorf("movement event for product %d is in the future", productID)
		}
		row.LastMovementDate = &ts
		row.DaysWithoutMovement = &days
		// A product with no movement history is never classified; only
		// observed inactivity counts.
		row.IsDeadStock = days >= r.cfg.DeadStockDays
		row.IsSlowMoving = days >= r.cfg.SlowMovingDays && days < r.cfg.DeadStockDays
	case err == gorm.ErrRecordNotFound:
		// no movement data yet, leave classification unset
	default:
		return err
	}

	var stockoutCount int64
	if err := tx.Model(&models.AuditEvent{}).
		Where("entity_type = ? AND entity_id = ? AND action_type = ? AND new_value = ?",
			models.EntityTypeProduct, entityID, models.ActionQuantityUpdate, "0").
		Count(&stockoutCount).Error; err != nil {
		return err
	}
	row.StockoutCount = int(stockoutCount)

	if stockoutCount > 0 {
		var lastStockout models.AuditEvent
		if err := tx.Where("entity_type = ? AND entity_id = ? AND action_type = ? AND new_value = ?",
			models.EntityTypeProduct, entityID, models.ActionQuantityUpdate, "0").
			Order("timestamp DESC, id DESC").
			First(&lastStockout).Error; err != nil {
			return err
		}
		ts := lastStockout.Timestamp
		row.LastStockoutDate = &ts
	}

	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"last_movement_date", "days_without_movement",
			"stockout_count", "last_stockout_date",
			"is_dead_stock", "is_slow_moving", "is_top_product",
			"movement_rank", "revenue_rank", "last_updated",
		}),
	}).Create(&row).Error
}

// movementRanks ranks products by their count of quantity_update events,
// descending, ties broken by product id ascending. Products without any
// movement stay unranked (rank zero), so they can never land in the top
// set of a small catalog.
func (r *Recomputer) movementRanks(productIDs []uint) (map[uint]int, error) {
	type countRow struct {
		EntityID string
		Total    int
	}
	var rows []countRow
	err := r.db.Model(&models.AuditEvent{}).
		Select("entity_id, COUNT(*) AS total").
		Where("entity_type = ? AND action_type = ?", models.EntityTypeProduct, models.ActionQuantityUpdate).
		Group("entity_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	known := make(map[uint]bool, len(productIDs))
	for _, id := range productIDs {
		known[id] = true
	}

	counts := make(map[uint]int, len(rows))
	for _, row := range rows {
		id, err := strconv.ParseUint(row.EntityID, 10, 64)
		if err != nil || !known[uint(id)] {
			// not a live product row, ignore
			continue
		}
		counts[uint(id)] = row.Total
	}

	ordered := make([]uint, 0, len(counts))
	for id := range counts {
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if counts[a] != counts[b] {
			return counts[a] > counts[b]
		}
		return a < b
	})

	ranks := make(map[uint]int, len(ordered))
	for i, id := range ordered {
		ranks[id] = i + 1
	}
	return ranks, nil
}

// revenueRanks ranks products by summed purchase totals, descending,
// ties broken by product id ascending. The audit ledger carries no price
// data; purchases do. Products without purchase history stay unranked.
func (r *Recomputer) revenueRanks(productIDs []uint) (map[uint]int, error) {
	type revenueRow struct {
		ProductID uint
		Total     decimal.Decimal
	}
	var rows []revenueRow
	err := r.db.Model(&models.PurchaseRecord{}).
		Select("product_id, SUM(total_price) AS total").
		Group("product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	known := make(map[uint]bool, len(productIDs))
	for _, id := range productIDs {
		known[id] = true
	}

	totals := make(map[uint]decimal.Decimal, len(rows))
	for _, row := range rows {
		if !known[row.ProductID] {
			continue
		}
		totals[row.ProductID] = row.Total
	}

	ordered := make([]uint, 0, len(totals))
	for id := range totals {
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		ta, tb := totals[a], totals[b]
		if !ta.Equal(tb) {
			return ta.GreaterThan(tb)
		}
		return a < b
	})

	ranks := make(map[uint]int, len(ordered))
	for i, id := range ordered {
		ranks[id] = i + 1
	}
	return ranks, nil
}
