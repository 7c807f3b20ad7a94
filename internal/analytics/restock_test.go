package analytics_test

import (
	"testing"
	"time"

	"github.com/kibslabs/labstock/internal/analytics"
	"github.com/kibslabs/labstock/internal/models"
	"github.com/kibslabs/labstock/internal/testutil"
	"gorm.io/gorm"
)

func seedLowStock(t *testing.T, db *gorm.DB, code string, quantity, alert int) models.Product {
	t.Helper()
	p := models.Product{ProductCode: code, Name: code, Quantity: quantity, LowStockAlert: alert}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("Failed to seed product: %v", err)
	}
	return p
}

func TestSuggestionsSelectsOnlyLowStock(t *testing.T) {
	db := testutil.DB(t)
	e := analytics.NewEstimator(db, analytics.DefaultLookback, testutil.Logger(t))

	seedLowStock(t, db, "P-LOW", 5, 5)
	seedLowStock(t, db, "P-OK", 50, 5)
	seedLowStock(t, db, "P-NOALERT", 0, 0)
	hidden := seedLowStock(t, db, "P-HIDDEN", 2, 5)
	if err := db.Model(&hidden).Update("hidden", true).Error; err != nil {
		t.Fatalf("Failed to hide product: %v", err)
	}

	suggestions, err := e.Suggestions(now)
	if err != nil {
		t.Fatalf("Suggestions failed: %v", err)
	}
	if len(suggestions) != 1 {
		t.Fatalf("Expected 1 suggestion, got %d", len(suggestions))
	}
	if suggestions[0].ProductName != "P-LOW" {
		t.Errorf("Wrong product suggested: %s", suggestions[0].ProductName)
	}
}

func TestSuggestionUrgencyAndQuantity(t *testing.T) {
	db := testutil.DB(t)
	e := analytics.NewEstimator(db, analytics.DefaultLookback, testutil.Logger(t))

	// Mean consumption 2/event: 14/2 = 7 days -> HIGH.
	high := seedLowStock(t, db, "P-HIGH", 14, 20)
	seedMovement(t, db, high.ID, 10, 8, now.AddDate(0, 0, -3))
	seedMovement(t, db, high.ID, 8, 6, now.AddDate(0, 0, -2))

	// Mean 2: 16/2 = 8 days -> MEDIUM.
	medium := seedLowStock(t, db, "P-MEDIUM", 16, 20)
	seedMovement(t, db, medium.ID, 20, 18, now.AddDate(0, 0, -2))

	// Mean 2: 30/2 = 15 days -> LOW.
	low := seedLowStock(t, db, "P-LOW", 30, 30)
	seedMovement(t, db, low.ID, 32, 30, now.AddDate(0, 0, -2))

	suggestions, err := e.Suggestions(now)
	if err != nil {
		t.Fatalf("Suggestions failed: %v", err)
	}
	if len(suggestions) != 3 {
		t.Fatalf("Expected 3 suggestions, got %d", len(suggestions))
	}

	// Sorted most urgent first.
	if suggestions[0].Urgency != analytics.UrgencyHigh ||
		suggestions[1].Urgency != analytics.UrgencyMedium ||
		suggestions[2].Urgency != analytics.UrgencyLow {
		t.Errorf("Wrong urgency ordering: %v %v %v",
			suggestions[0].Urgency, suggestions[1].Urgency, suggestions[2].Urgency)
	}

	s := suggestions[0]
	if s.DaysUntilStockout == nil || *s.DaysUntilStockout != 7 {
		t.Errorf("Expected 7 days until stockout, got %v", s.DaysUntilStockout)
	}
	// ceil(2*30)=60 vs alert floor 40.
	if s.SuggestedQuantity != 60 {
		t.Errorf("Expected suggested quantity 60, got %d", s.SuggestedQuantity)
	}
}

func TestSuggestionWithoutConsumptionHistory(t *testing.T) {
	db := testutil.DB(t)
	e := analytics.NewEstimator(db, analytics.DefaultLookback, testutil.Logger(t))

	p := seedLowStock(t, db, "P-FRESH", 3, 10)
	// Only a restock was ever recorded; no drops.
	seedMovement(t, db, p.ID, 1, 3, now.AddDate(0, 0, -2))

	suggestions, err := e.Suggestions(now)
	if err != nil {
		t.Fatalf("Suggestions failed: %v", err)
	}
	if len(suggestions) != 1 {
		t.Fatalf("Expected 1 suggestion, got %d", len(suggestions))
	}

	s := suggestions[0]
	if s.DaysUntilStockout != nil {
		t.Errorf("No consumption observed; days until stockout should be nil, got %v", *s.DaysUntilStockout)
	}
	if s.Urgency != analytics.UrgencyLow {
		t.Errorf("No consumption observed; urgency should be LOW, got %v", s.Urgency)
	}
	// Falls back to twice the alert threshold.
	if s.SuggestedQuantity != 20 {
		t.Errorf("Expected suggested quantity 20, got %d", s.SuggestedQuantity)
	}
}

func TestSuggestionPreferredSupplier(t *testing.T) {
	db := testutil.DB(t)
	e := analytics.NewEstimator(db, analytics.DefaultLookback, testutil.Logger(t))

	p := seedLowStock(t, db, "P-SUPPLIED", 2, 5)

	frequent := models.Supplier{Name: "Merck"}
	rare := models.Supplier{Name: "Sigma"}
	for _, s := range []*models.Supplier{&frequent, &rare} {
		if err := db.Create(s).Error; err != nil {
			t.Fatalf("Failed to seed supplier: %v", err)
		}
	}
	purchases := []models.PurchaseRecord{
		{ProductID: p.ID, SupplierID: frequent.ID, PurchaseDate: now.AddDate(0, 0, -30), Quantity: 10},
		{ProductID: p.ID, SupplierID: frequent.ID, PurchaseDate: now.AddDate(0, 0, -20), Quantity: 10},
		{ProductID: p.ID, SupplierID: rare.ID, PurchaseDate: now.AddDate(0, 0, -10), Quantity: 10},
		// Outside the window; must not count towards the mode.
		{ProductID: p.ID, SupplierID: rare.ID, PurchaseDate: now.AddDate(0, 0, -120), Quantity: 10},
		{ProductID: p.ID, SupplierID: rare.ID, PurchaseDate: now.AddDate(0, 0, -130), Quantity: 10},
	}
	for i := range purchases {
		if err := db.Create(&purchases[i]).Error; err != nil {
			t.Fatalf("Failed to seed purchase: %v", err)
		}
	}

	suggestions, err := e.Suggestions(now)
	if err != nil {
		t.Fatalf("Suggestions failed: %v", err)
	}
	if len(suggestions) != 1 {
		t.Fatalf("Expected 1 suggestion, got %d", len(suggestions))
	}
	if suggestions[0].SupplierID == nil || *suggestions[0].SupplierID != frequent.ID {
		t.Errorf("Expected supplier %d, got %v", frequent.ID, suggestions[0].SupplierID)
	}
}

func TestSuggestionIgnoresStaleConsumption(t *testing.T) {
	db := testutil.DB(t)
	e := analytics.NewEstimator(db, analytics.DefaultLookback, testutil.Logger(t))

	p := seedLowStock(t, db, "P-STALE", 10, 10)
	// A huge drop well outside the window must not skew the rate.
	seedMovement(t, db, p.ID, 110, 10, now.AddDate(0, 0, -200))
	seedMovement(t, db, p.ID, 11, 10, now.AddDate(0, 0, -5))

	suggestions, err := e.Suggestions(now)
	if err != nil {
		t.Fatalf("Suggestions failed: %v", err)
	}
	if len(suggestions) != 1 {
		t.Fatalf("Expected 1 suggestion, got %d", len(suggestions))
	}

	s := suggestions[0]
	// Only the recent 1-unit drop counts: 10/1 = 10 days.
	if s.DaysUntilStockout == nil || *s.DaysUntilStockout != 10 {
		t.Errorf("Expected 10 days until stockout, got %v", s.DaysUntilStockout)
	}
	if s.Urgency != analytics.UrgencyMedium {
		t.Errorf("Expected MEDIUM urgency, got %v", s.Urgency)
	}
	if s.SuggestedQuantity != 30 {
		t.Errorf("Expected suggested quantity 30, got %d", s.SuggestedQuantity)
	}
}

func TestSuggestionsSortWithinUrgency(t *testing.T) {
	db := testutil.DB(t)
	e := analytics.NewEstimator(db, analytics.DefaultLookback, testutil.Logger(t))

	// Both HIGH, but the second runs out sooner.
	slower := seedLowStock(t, db, "P-SIXDAYS", 12, 20)
	seedMovement(t, db, slower.ID, 14, 12, now.Add(-time.Hour))

	sooner := seedLowStock(t, db, "P-TWODAYS", 4, 20)
	seedMovement(t, db, sooner.ID, 6, 4, now.Add(-time.Hour))

	suggestions, err := e.Suggestions(now)
	if err != nil {
		t.Fatalf("Suggestions failed: %v", err)
	}
	if len(suggestions) != 2 {
		t.Fatalf("Expected 2 suggestions, got %d", len(suggestions))
	}
	if suggestions[0].ProductID != sooner.ID {
		t.Errorf("Expected the product closest to stockout first")
	}
}
