package handlers

import (
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/huangang/cipulse/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

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
