package sweep_test

import (
	"testing"
	"time"

	"github.com/kibslabs/labstock/internal/analytics"
	"github.com/kibslabs/labstock/internal/deletion"
	"github.com/kibslabs/labstock/internal/models"
	"github.com/kibslabs/labstock/internal/sweep"
	"github.com/kibslabs/labstock/internal/testutil"
	"gorm.io/gorm"
)

type captureHub struct {
	messages []interface{}
}

func (h *captureHub) Broadcast(message interface{}) {
	h.messages = append(h.messages, message)
}

func newEngine(t *testing.T) (*sweep.Engine, *gorm.DB, *captureHub) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	hub := &captureHub{}

	recomputer := analytics.NewRecomputer(db, analytics.DefaultConfig(), log)
	workflow := deletion.NewWorkflow(db, log)
	engine := sweep.New(db, recomputer, workflow, hub, time.Hour, 30*24*time.Hour, log)
	return engine, db, hub
}

func TestRunOnceRaisesAndDeduplicatesAlerts(t *testing.T) {
	engine, db, hub := newEngine(t)
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	soon := now.AddDate(0, 0, 10)
	low := models.Product{ProductCode: "P-LOW", Name: "Buffer", Quantity: 2, LowStockAlert: 5}
	expiring := models.Product{ProductCode: "P-EXP", Name: "Serum", Quantity: 50, ExpirationDate: &soon}
	healthy := models.Product{ProductCode: "P-OK", Name: "Gloves", Quantity: 100, LowStockAlert: 5}
	for _, p := range []*models.Product{&low, &expiring, &healthy} {
		if err := db.Create(p).Error; err != nil {
			t.Fatalf("Failed to seed product: %v", err)
		}
	}

	summary := engine.RunOnce(now)
	if summary.Notifications != 2 {
		t.Fatalf("Expected 2 notifications, got %d", summary.Notifications)
	}
	if len(hub.messages) != 2 {
		t.Errorf("Expected 2 broadcasts, got %d", len(hub.messages))
	}
	if summary.Analytics.Updated != 3 {
		t.Errorf("Expected analytics for 3 products, got %d", summary.Analytics.Updated)
	}

	// A second pass raises nothing while the alerts sit unacknowledged.
	summary = engine.RunOnce(now.Add(time.Hour))
	if summary.Notifications != 0 {
		t.Errorf("Unacknowledged alerts should suppress duplicates, got %d", summary.Notifications)
	}

	// Acknowledging re-arms the alert.
	if err := db.Model(&models.Notification{}).
		Where("product_id = ?", low.ID).
		Update("acknowledged", true).Error; err != nil {
		t.Fatalf("Failed to acknowledge: %v", err)
	}
	summary = engine.RunOnce(now.Add(2 * time.Hour))
	if summary.Notifications != 1 {
		t.Errorf("Acknowledged alert should re-raise, got %d", summary.Notifications)
	}
}

func TestRunOnceSkipsHiddenProducts(t *testing.T) {
	engine, db, hub := newEngine(t)
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	hidden := models.Product{ProductCode: "P-HID", Name: "Staged", Quantity: 1, LowStockAlert: 5, Hidden: true}
	if err := db.Create(&hidden).Error; err != nil {
		t.Fatalf("Failed to seed product: %v", err)
	}

	summary := engine.RunOnce(now)
	if summary.Notifications != 0 {
		t.Errorf("Hidden product should raise no alert, got %d", summary.Notifications)
	}
	if len(hub.messages) != 0 {
		t.Errorf("Hidden product should broadcast nothing")
	}
}

func TestRunOnceFinalizesExpiredRequests(t *testing.T) {
	engine, db, _ := newEngine(t)

	p := models.Product{ProductCode: "P-OLD", Name: "Forgotten", Quantity: 1}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("Failed to seed product: %v", err)
	}

	workflow := deletion.NewWorkflow(db, testutil.Logger(t))
	row, err := workflow.Create(deletion.CreateRequest{
		TargetType: models.DeleteTargetProduct,
		TargetID:   "1",
		Reason:     "forgotten",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	summary := engine.RunOnce(row.ExpiryDate.Add(time.Minute))
	if summary.Deletions.Completed != 1 {
		t.Errorf("Expected 1 completed deletion, got %d", summary.Deletions.Completed)
	}

	var products int64
	db.Model(&models.Product{}).Count(&products)
	if products != 0 {
		t.Errorf("Expired product should be gone after the sweep")
	}
}

func TestStartStop(t *testing.T) {
	engine, _, _ := newEngine(t)

	if err := engine.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := engine.Start(); err == nil {
		t.Errorf("Second start should fail")
	}
	engine.Stop()

	// Stop again is a no-op, not a panic.
	engine.Stop()
}
