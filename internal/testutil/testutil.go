// Package testutil provides an in-memory database for package tests.
package testutil

import (
	"testing"

	"github.com/kibslabs/labstock/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// DB opens a fresh in-memory SQLite database with the full schema
// migrated. Each call returns an isolated database; the single-connection
// pool keeps every session on the same in-memory instance.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("failed to open test db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("failed to access test db pool: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.Worker{},
		&models.Room{},
		&models.Supplier{},
		&models.Product{},
		&models.AuditEvent{},
		&models.InventoryAnalytics{},
		&models.PendingDelete{},
		&models.PurchaseRecord{},
		&models.Notification{},
	); err != nil {
		tb.Fatalf("failed to migrate test schema: %v", err)
	}

	return db
}

// Logger returns a quiet logrus logger for tests.
func Logger(tb testing.TB) *logrus.Logger {
	tb.Helper()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}
