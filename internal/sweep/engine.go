// Package sweep runs the recurring background pass: analytics
// recomputation, finalization of expired pending deletes, and low-stock /
// expiry notifications. The pass is idempotent end to end — analytics is
// a pure function of durable data and the deletion workflow only acts on
// rows still in pending status — so a retried or overlapping trigger
// cannot corrupt state.
package sweep

import (
	"fmt"
	"sync"
	"time"

	"github.com/kibslabs/labstock/internal/analytics"
	"github.com/kibslabs/labstock/internal/deletion"
	"github.com/kibslabs/labstock/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Broadcaster pushes an alert to connected dashboards.
type Broadcaster interface {
	Broadcast(message interface{})
}

// Summary reports one sweep pass.
type Summary struct {
	Analytics     analytics.Result     `json:"analytics"`
	Deletions     deletion.SweepResult `json:"deletions"`
	Notifications int                  `json:"notifications"`
	Duration      time.Duration        `json:"-"`
}

// Engine owns the sweep schedule.
type Engine struct {
	mu sync.Mutex

	db         *gorm.DB
	log        *logrus.Logger
	recomputer *analytics.Recomputer
	workflow   *deletion.Workflow
	hub        Broadcaster

	interval      time.Duration
	expiryWarning time.Duration

	isRunning  bool
	inProgress bool
	lastRun    time.Time

	stopChan chan struct{}
	runChan  chan struct{}
}

// New creates a sweep engine. hub may be nil when no dashboard transport
// is attached.
func New(db *gorm.DB, recomputer *analytics.Recomputer, workflow *deletion.Workflow, hub Broadcaster, interval, expiryWarning time.Duration, log *logrus.Logger) *Engine {
	return &Engine{
		db:            db,
		log:           log,
		recomputer:    recomputer,
		workflow:      workflow,
		hub:           hub,
		interval:      interval,
		expiryWarning: expiryWarning,
		stopChan:      make(chan struct{}),
		runChan:       make(chan struct{}, 1),
	}
}

// Start launches the schedule loop.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.isRunning {
		return fmt.Errorf("sweep engine already running")
	}
	e.isRunning = true

	go e.loop()

	e.log.WithField("interval", e.interval.String()).Info("sweep.start")
	return nil
}

// Stop stops the schedule loop.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.isRunning {
		return
	}
	e.isRunning = false
	close(e.stopChan)
	e.log.Info("sweep.stop")
}

// RequestRun queues an immediate pass, e.g. from the admin endpoint. A
// pass already queued or in flight absorbs the request.
func (e *Engine) RequestRun() {
	select {
	case e.runChan <- struct{}{}:
	default:
	}
}

func (e *Engine) loop() {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.RunOnce(time.Now().UTC())
		case <-e.runChan:
			e.RunOnce(time.Now().UTC())
		case <-e.stopChan:
			return
		}
	}
}

// RunOnce executes a single sweep pass as of the given instant. Passes
// are serialized; a pass arriving while another is in flight is skipped.
func (e *Engine) RunOnce(now time.Time) Summary {
	e.mu.Lock()
	if e.inProgress {
		e.mu.Unlock()
		e.log.Info("sweep.skipped_overlap")
		return Summary{}
	}
	e.inProgress = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.inProgress = false
		e.lastRun = now
		e.mu.Unlock()
	}()

	start := time.Now()
	summary := Summary{}

	analyticsResult, err := e.recomputer.Run(now)
	if err != nil {
		e.log.WithField("error", err.Error()).Error("sweep.analytics_failed")
	}
	summary.Analytics = analyticsResult

	deletions, err := e.workflow.SweepExpired(now)
	if err != nil {
		e.log.WithField("error", err.Error()).Error("sweep.deletions_failed")
	}
	summary.Deletions = deletions

	summary.Notifications = e.raiseNotifications(now)

	summary.Duration = time.Since(start)
	e.log.WithFields(logrus.Fields{
		"analytics_updated": summary.Analytics.Updated,
		"analytics_errors":  len(summary.Analytics.Errors),
		"deletes_completed": summary.Deletions.Completed,
		"notifications":     summary.Notifications,
		"duration":          summary.Duration.String(),
	}).Info("sweep.done")

	return summary
}

// raiseNotifications creates (and broadcasts) alerts for visible products
// that are at or below their low-stock threshold or expiring soon. An
// unacknowledged alert of the same kind suppresses duplicates.
func (e *Engine) raiseNotifications(now time.Time) int {
	raised := 0

	var lowStock []models.Product
	err := e.db.
		Where("hidden = ? AND low_stock_alert > 0 AND quantity <= low_stock_alert", false).
		Order("id ASC").
		Find(&lowStock).Error
	if err != nil {
		e.log.WithField("error", err.Error()).Error("sweep.low_stock_scan_failed")
	} else {
		for _, p := range lowStock {
			msg := fmt.Sprintf("%s is low on stock: %d left (threshold %d)", p.Name, p.Quantity, p.LowStockAlert)
			if e.raiseNotification(p.ID, models.NotificationLowStock, msg) {
				raised++
			}
		}
	}

	var expiring []models.Product
	err = e.db.
		Where("hidden = ? AND expiration_date IS NOT NULL AND expiration_date <= ?", false, now.Add(e.expiryWarning)).
		Order("id ASC").
		Find(&expiring).Error
	if err != nil {
		e.log.WithField("error", err.Error()).Error("sweep.expiry_scan_failed")
	} else {
		for _, p := range expiring {
			msg := fmt.Sprintf("%s expires on %s", p.Name, p.ExpirationDate.Format("2006-01-02"))
			if e.raiseNotification(p.ID, models.NotificationExpirySoon, msg) {
				raised++
			}
		}
	}

	return raised
}

func (e *Engine) raiseNotification(productID uint, kind, message string) bool {
	var existing int64
	err := e.db.Model(&models.Notification{}).
		Where("product_id = ? AND kind = ? AND acknowledged = ?", productID, kind, false).
		Count(&existing).Error
	if err != nil || existing > 0 {
		return false
	}

	notification := models.Notification{
		ProductID: productID,
		Kind:      kind,
		Message:   message,
	}
	if err := e.db.Create(&notification).Error; err != nil {
		e.log.WithFields(logrus.Fields{
			"product_id": productID,
			"kind":       kind,
			"error":      err.Error(),
		}).Warn("sweep.notification_failed")
		return false
	}

	if e.hub != nil {
		e.hub.Broadcast(notification)
	}
	return true
}
