package services

import (
	"path/filepath"
	"testing"

	"github.com/huangang/cipulse/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupTestDB opens a throwaway sqlite database with the full schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(&models.Task{}, &models.WorkflowRun{}, &models.MetricsDaily{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}
