package analytics

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/kibslabs/labstock/internal/audit"
	"github.com/kibslabs/labstock/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Urgency buckets restocking suggestions by days until stockout.
type Urgency string

const (
	UrgencyHigh   Urgency = "HIGH"   // <= 7 days
	UrgencyMedium Urgency = "MEDIUM" // <= 14 days
	UrgencyLow    Urgency = "LOW"
)

const (
	highUrgencyDays   = 7
	mediumUrgencyDays = 14
	reorderCoverDays  = 30
)

// DefaultLookback is the consumption-history window. Events and purchases
// older than this no longer influence the estimate.
const DefaultLookback = 90 * 24 * time.Hour

// Suggestion is one advisory restocking recommendation.
type Suggestion struct {
	ProductID         uint     `json:"productId"`
	ProductName       string   `json:"productName"`
	CurrentQuantity   int      `json:"currentQuantity"`
	DaysUntilStockout *float64 `json:"daysUntilStockout"` // nil when no consumption was ever observed
	SuggestedQuantity int      `json:"suggestedQuantity"`
	Urgency           Urgency  `json:"urgency"`
	SupplierID        *uint    `json:"supplierId,omitempty"`
}

// Estimator derives restocking suggestions from recent audit history and
// purchase records. It never mutates inventory state.
type Estimator struct {
	db       *gorm.DB
	lookback time.Duration
	log      *logrus.Logger
}

// NewEstimator creates a restocking estimator. lookback bounds how far
// back consumption history is sampled; zero or negative falls back to
// DefaultLookback.
func NewEstimator(db *gorm.DB, lookback time.Duration, log *logrus.Logger) *Estimator {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	return &Estimator{db: db, lookback: lookback, log: log}
}

// Suggestions returns one suggestion per visible product at or below its
// low-stock threshold, sorted by urgency then by ascending days until
// stockout. Products whose history cannot be evaluated are logged and
// skipped; the rest of the batch still reports.
func (e *Estimator) Suggestions(now time.Time) ([]Suggestion, error) {
	var products []models.Product
	err := e.db.
		Where("low_stock_alert > 0 AND quantity <= low_stock_alert AND hidden = ?", false).
		Order("id ASC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}

	since := now.Add(-e.lookback)

	suggestions := make([]Suggestion, 0, len(products))
	for _, p := range products {
		s, err := e.suggestProduct(p, since)
		if err != nil {
			e.log.WithFields(logrus.Fields{
				"product_id": p.ID,
				"error":      err.Error(),
			}).Warn("analytics.restock.product_failed")
			continue
		}
		suggestions = append(suggestions, s)
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if a.Urgency != b.Urgency {
			return urgencyOrder(a.Urgency) < urgencyOrder(b.Urgency)
		}
		switch {
		case a.DaysUntilStockout == nil && b.DaysUntilStockout == nil:
			return a.ProductID < b.ProductID
		case a.DaysUntilStockout == nil:
			return false
		case b.DaysUntilStockout == nil:
			return true
		case *a.DaysUntilStockout != *b.DaysUntilStockout:
			return *a.DaysUntilStockout < *b.DaysUntilStockout
		}
		return a.ProductID < b.ProductID
	})

	return suggestions, nil
}

func (e *Estimator) suggestProduct(p models.Product, since time.Time) (Suggestion, error) {
	mean, err := e.meanConsumption(p.ID, since)
	if err != nil {
		return Suggestion{}, err
	}

	s := Suggestion{
		ProductID:       p.ID,
		ProductName:     p.Name,
		CurrentQuantity: p.Quantity,
		Urgency:         UrgencyLow,
	}

	if mean > 0 {
		days := float64(p.Quantity) / mean
		s.DaysUntilStockout = &days
		switch {
		case days <= highUrgencyDays:
			s.Urgency = UrgencyHigh
		case days <= mediumUrgencyDays:
			s.Urgency = UrgencyMedium
		}
	}

	suggested := int(math.Ceil(mean * reorderCoverDays))
	if floor := p.LowStockAlert * 2; floor > suggested {
		suggested = floor
	}
	s.SuggestedQuantity = suggested

	supplierID, err := e.preferredSupplier(p.ID, since)
	if err != nil {
		return Suggestion{}, err
	}
	s.SupplierID = supplierID

	return s, nil
}

// meanConsumption averages the positive quantity drops recorded for the
// product within the lookback window. Events whose values do not parse as
// integers are ignored.
func (e *Estimator) meanConsumption(productID uint, since time.Time) (float64, error) {
	var events []models.AuditEvent
	err := e.db.
		Where("entity_type = ? AND entity_id = ? AND action_type = ? AND timestamp >= ?",
			models.EntityTypeProduct, audit.EntityID(productID), models.ActionQuantityUpdate, since).
		Order("timestamp ASC, id ASC").
		Find(&events).Error
	if err != nil {
		return 0, err
	}

	var sum, count int
	for _, ev := range events {
		if ev.PreviousValue == nil || ev.NewValue == nil {
			continue
		}
		prev, err := strconv.Atoi(*ev.PreviousValue)
		if err != nil {
			continue
		}
		next, err := strconv.Atoi(*ev.NewValue)
		if err != nil {
			continue
		}
		if prev > next {
			sum += prev - next
			count++
		}
	}

	if count == 0 {
		return 0, nil
	}
	return float64(sum) / float64(count), nil
}

// preferredSupplier returns the supplier appearing most often in the
// product's purchase history within the lookback window, ties broken by
// supplier id ascending.
func (e *Estimator) preferredSupplier(productID uint, since time.Time) (*uint, error) {
	type supplierRow struct {
		SupplierID uint
		Total      int
	}
	var row supplierRow
	err := e.db.Model(&models.PurchaseRecord{}).
		Select("supplier_id, COUNT(*) AS total").
		Where("product_id = ? AND purchase_date >= ?", productID, since).
		Group("supplier_id").
		Order("total DESC, supplier_id ASC").
		Limit(1).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.SupplierID == 0 {
		return nil, nil
	}
	id := row.SupplierID
	return &id, nil
}

func urgencyOrder(u Urgency) int {
	switch u {
	case UrgencyHigh:
		return 0
	case UrgencyMedium:
		return 1
	default:
		return 2
	}
}
