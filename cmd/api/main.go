package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kibslabs/labstock/internal/analytics"
	"github.com/kibslabs/labstock/internal/config"
	"github.com/kibslabs/labstock/internal/database"
	"github.com/kibslabs/labstock/internal/deletion"
	"github.com/kibslabs/labstock/internal/handlers"
	"github.com/kibslabs/labstock/internal/models"
	"github.com/kibslabs/labstock/internal/notify"
	"github.com/kibslabs/labstock/internal/sweep"
	"github.com/sirupsen/logrus"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Env == "development" {
		logger.SetLevel(logrus.DebugLevel)
	}

	// 2. Initialize database (Detects Embedded vs External automatically)
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	// Note: db.Close() is called manually in shutdown handler below

	// 3. Auto-Migrate Schema (Critical for Zero-Config)
	log.Println("🚀 Synchronizing database schema...")
	err = db.AutoMigrate(
		&models.Worker{},
		&models.Room{},
		&models.Supplier{},
		&models.Product{},
		&models.PurchaseRecord{},

		// Derived and ledger tables
		&models.AuditEvent{},
		&models.InventoryAnalytics{},
		&models.PendingDelete{},
		&models.Notification{},
	)
	if err != nil {
		log.Printf("⚠️ Migration warning: %v\n", err)
	} else {
		log.Println("✅ Schema synchronized successfully")
	}

	// 4. Wire application services
	hub := notify.NewHub()
	go hub.Run()

	recomputer := analytics.NewRecomputer(db.DB, analytics.Config{
		DeadStockDays:  cfg.Analytics.DeadStockDays,
		SlowMovingDays: cfg.Analytics.SlowMovingDays,
		TopProducts:    cfg.Analytics.TopProducts,
	}, logger)
	estimator := analytics.NewEstimator(db.DB, cfg.Analytics.LowStockLookback, logger)
	workflow := deletion.NewWorkflow(db.DB, logger)

	sweeper := sweep.New(db.DB, recomputer, workflow, hub,
		cfg.Sweep.Interval, cfg.Analytics.ExpiryWarning, logger)
	if cfg.Sweep.Enabled {
		if err := sweeper.Start(); err != nil {
			log.Printf("⚠️ Sweep: Failed to start: %v", err)
		} else {
			log.Println("✅ Sweep: Started successfully")
		}
	}

	// 5. Set up HTTP router
	router := handlers.NewRouter(db, cfg, recomputer, estimator, workflow, sweeper, hub)

	// 6. Start server with graceful shutdown
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		log.Printf("🚀 Server starting on port %s\n", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	sig := <-shutdown
	log.Printf("\n⚠️  Received signal: %v. Shutting down gracefully...\n", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	if cfg.Sweep.Enabled {
		sweeper.Stop()
	}

	log.Println("🛑 Closing database connection...")
	if err := db.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}
