package analytics_test

import (
	"strconv"
	"testing"
	"time"

	"github.com/kibslabs/labstock/internal/analytics"
	"github.com/kibslabs/labstock/internal/models"
	"github.com/kibslabs/labstock/internal/testutil"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var now = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func seedProduct(t *testing.T, db *gorm.DB, code string) models.Product {
	t.Helper()
	p := models.Product{ProductCode: code, Name: code, Quantity: 10}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("Failed to seed product: %v", err)
	}
	return p
}

func seedMovement(t *testing.T, db *gorm.DB, productID uint, prev, next int, ts time.Time) {
	t.Helper()
	p := strconv.Itoa(prev)
	n := strconv.Itoa(next)
	ev := models.AuditEvent{
		EntityID:      strconv.FormatUint(uint64(productID), 10),
		EntityType:    models.EntityTypeProduct,
		ActionType:    models.ActionQuantityUpdate,
		PreviousValue: &p,
		NewValue:      &n,
		Timestamp:     ts,
	}
	if err := db.Create(&ev).Error; err != nil {
		t.Fatalf("Failed to seed movement: %v", err)
	}
}

func analyticsRow(t *testing.T, db *gorm.DB, productID uint) models.InventoryAnalytics {
	t.Helper()
	var row models.InventoryAnalytics
	if err := db.Where("product_id = ?", productID).First(&row).Error; err != nil {
		t.Fatalf("No analytics row for product %d: %v", productID, err)
	}
	return row
}

func TestRecomputeClassificationBoundaries(t *testing.T) {
	db := testutil.DB(t)
	r := analytics.NewRecomputer(db, analytics.DefaultConfig(), testutil.Logger(t))

	dead := seedProduct(t, db, "P-DEAD")
	boundary := seedProduct(t, db, "P-89")
	slow := seedProduct(t, db, "P-SLOW")
	active := seedProduct(t, db, "P-ACTIVE")
	untouched := seedProduct(t, db, "P-NEVER")

	seedMovement(t, db, dead.ID, 10, 9, now.AddDate(0, 0, -90))
	seedMovement(t, db, boundary.ID, 10, 9, now.AddDate(0, 0, -89))
	seedMovement(t, db, slow.ID, 10, 9, now.AddDate(0, 0, -30))
	seedMovement(t, db, active.ID, 10, 9, now.AddDate(0, 0, -29))

	result, err := r.Run(now)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("Unexpected errors: %+v", result.Errors)
	}
	if result.Updated != 5 {
		t.Fatalf("Expected 5 updated rows, got %d", result.Updated)
	}

	cases := []struct {
		name   string
		id     uint
		days   *int
		isDead bool
		isSlow bool
	}{
		{"90 days is dead stock", dead.ID, intPtr(90), true, false},
		{"89 days is slow moving", boundary.ID, intPtr(89), false, true},
		{"30 days is slow moving", slow.ID, intPtr(30), false, true},
		{"29 days is neither", active.ID, intPtr(29), false, false},
		{"no history is never classified", untouched.ID, nil, false, false},
	}
	for _, tc := range cases {
		row := analyticsRow(t, db, tc.id)
		if tc.days == nil {
			if row.DaysWithoutMovement != nil {
				t.Errorf("%s: expected nil days, got %d", tc.name, *row.DaysWithoutMovement)
			}
		} else if row.DaysWithoutMovement == nil || *row.DaysWithoutMovement != *tc.days {
			t.Errorf("%s: wrong days without movement: %v", tc.name, row.DaysWithoutMovement)
		}
		if row.IsDeadStock != tc.isDead {
			t.Errorf("%s: IsDeadStock = %v", tc.name, row.IsDeadStock)
		}
		if row.IsSlowMoving != tc.isSlow {
			t.Errorf("%s: IsSlowMoving = %v", tc.name, row.IsSlowMoving)
		}
	}
}

func TestRecomputeIsIdempotent(t *testing.T) {
	db := testutil.DB(t)
	r := analytics.NewRecomputer(db, analytics.DefaultConfig(), testutil.Logger(t))

	p := seedProduct(t, db, "P-IDEM")
	seedMovement(t, db, p.ID, 10, 0, now.AddDate(0, 0, -45))
	seedMovement(t, db, p.ID, 0, 20, now.AddDate(0, 0, -40))

	if _, err := r.Run(now); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	first := analyticsRow(t, db, p.ID)

	if _, err := r.Run(now); err != nil {
		t.Fatalf("Rerun failed: %v", err)
	}
	second := analyticsRow(t, db, p.ID)

	if first.ID != second.ID {
		t.Errorf("Rerun replaced the row instead of updating it")
	}
	if *first.DaysWithoutMovement != *second.DaysWithoutMovement ||
		first.StockoutCount != second.StockoutCount ||
		first.IsSlowMoving != second.IsSlowMoving ||
		first.MovementRank != second.MovementRank {
		t.Errorf("Rerun with the same instant produced different values:\n%+v\n%+v", first, second)
	}

	var rows int64
	db.Model(&models.InventoryAnalytics{}).Count(&rows)
	if rows != 1 {
		t.Errorf("Expected a single analytics row, got %d", rows)
	}
}

func TestRecomputeStockouts(t *testing.T) {
	db := testutil.DB(t)
	r := analytics.NewRecomputer(db, analytics.DefaultConfig(), testutil.Logger(t))

	p := seedProduct(t, db, "P-STOCKOUT")
	seedMovement(t, db, p.ID, 10, 0, now.AddDate(0, 0, -60))
	seedMovement(t, db, p.ID, 0, 15, now.AddDate(0, 0, -50))
	seedMovement(t, db, p.ID, 15, 0, now.AddDate(0, 0, -20))
	seedMovement(t, db, p.ID, 0, 5, now.AddDate(0, 0, -10))

	if _, err := r.Run(now); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	row := analyticsRow(t, db, p.ID)

	if row.StockoutCount != 2 {
		t.Errorf("Expected 2 stockouts, got %d", row.StockoutCount)
	}
	want := now.AddDate(0, 0, -20)
	if row.LastStockoutDate == nil || !row.LastStockoutDate.Equal(want) {
		t.Errorf("Wrong last stockout date: %v", row.LastStockoutDate)
	}
	if *row.DaysWithoutMovement != 10 {
		t.Errorf("Expected 10 days without movement, got %d", *row.DaysWithoutMovement)
	}
}

func TestRecomputeRanks(t *testing.T) {
	db := testutil.DB(t)
	r := analytics.NewRecomputer(db, analytics.Config{
		DeadStockDays:  90,
		SlowMovingDays: 30,
		TopProducts:    1,
	}, testutil.Logger(t))

	busy := seedProduct(t, db, "P-BUSY")
	quiet := seedProduct(t, db, "P-QUIET")
	idle := seedProduct(t, db, "P-IDLE")

	for i := 0; i < 3; i++ {
		seedMovement(t, db, busy.ID, 10-i, 9-i, now.AddDate(0, 0, -i-1))
	}
	seedMovement(t, db, quiet.ID, 5, 4, now.AddDate(0, 0, -1))

	supplier := models.Supplier{Name: "LabChem"}
	if err := db.Create(&supplier).Error; err != nil {
		t.Fatalf("Failed to seed supplier: %v", err)
	}
	purchases := []models.PurchaseRecord{
		{ProductID: quiet.ID, SupplierID: supplier.ID, PurchaseDate: now.AddDate(0, -1, 0), Quantity: 10, TotalPrice: decimal.NewFromInt(500)},
		{ProductID: busy.ID, SupplierID: supplier.ID, PurchaseDate: now.AddDate(0, -1, 0), Quantity: 5, TotalPrice: decimal.NewFromInt(100)},
	}
	for i := range purchases {
		if err := db.Create(&purchases[i]).Error; err != nil {
			t.Fatalf("Failed to seed purchase: %v", err)
		}
	}

	if _, err := r.Run(now); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	busyRow := analyticsRow(t, db, busy.ID)
	quietRow := analyticsRow(t, db, quiet.ID)
	idleRow := analyticsRow(t, db, idle.ID)

	if busyRow.MovementRank != 1 || quietRow.MovementRank != 2 {
		t.Errorf("Wrong movement ranks: busy=%d quiet=%d", busyRow.MovementRank, quietRow.MovementRank)
	}
	if !busyRow.IsTopProduct {
		t.Errorf("Most-moved product should be a top product")
	}
	if quietRow.IsTopProduct {
		t.Errorf("Second-ranked product exceeds the top size of 1")
	}
	if quietRow.RevenueRank != 1 || busyRow.RevenueRank != 2 {
		t.Errorf("Wrong revenue ranks: quiet=%d busy=%d", quietRow.RevenueRank, busyRow.RevenueRank)
	}
	if idleRow.MovementRank != 0 || idleRow.RevenueRank != 0 {
		t.Errorf("Product without history got ranked: movement=%d revenue=%d", idleRow.MovementRank, idleRow.RevenueRank)
	}
	if idleRow.IsTopProduct {
		t.Errorf("Product without any movement cannot be a top product")
	}
}

func TestRecomputeIsolatesFailingProducts(t *testing.T) {
	db := testutil.DB(t)
	r := analytics.NewRecomputer(db, analytics.DefaultConfig(), testutil.Logger(t))

	good := seedProduct(t, db, "P-GOOD")
	bad := seedProduct(t, db, "P-FUTURE")

	seedMovement(t, db, good.ID, 10, 9, now.AddDate(0, 0, -5))
	// A movement recorded after the run instant cannot be evaluated.
	seedMovement(t, db, bad.ID, 10, 9, now.AddDate(0, 0, 5))

	result, err := r.Run(now)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Updated != 1 {
		t.Errorf("Expected 1 updated product, got %d", result.Updated)
	}
	if len(result.Errors) != 1 || result.Errors[0].ProductID != bad.ID {
		t.Fatalf("Expected a single error for product %d, got %+v", bad.ID, result.Errors)
	}

	// The failing product left no partial row behind.
	var count int64
	db.Model(&models.InventoryAnalytics{}).Where("product_id = ?", bad.ID).Count(&count)
	if count != 0 {
		t.Errorf("Failing product wrote a partial analytics row")
	}
	analyticsRow(t, db, good.ID)
}

func intPtr(n int) *int {
	return &n
}
