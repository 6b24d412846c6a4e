package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/cipulse/internal/models"
	"github.com/huangang/cipulse/internal/services"
)

// HealthHandler reports the health of the storage and collector subsystems.
type HealthHandler struct {
	collector *services.Collector
}

func NewHealthHandler(collector *services.Collector) *HealthHandler {
	return &HealthHandler{collector: collector}
}

func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"

	dbStatus := "ok"
	sqlDB, err := models.GetDB().DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	} else if err := sqlDB.Ping(); err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	}

	collectorStatus := "stopped"
	if h.collector != nil && h.collector.Running() {
		collectorStatus = "running"
	}

	var storedRuns int64
	models.GetDB().Model(&models.WorkflowRun{}).Count(&storedRuns)

	c.JSON(200, gin.H{
		"status":  overall,
		"service": "cipulse",
		"components": gin.H{
			"database":    dbStatus,
			"collector":   collectorStatus,
			"stored_runs": storedRuns,
		},
	})
}
