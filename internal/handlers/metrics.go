package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/huangang/cipulse/internal/github"
	"github.com/huangang/cipulse/internal/metrics"
	"github.com/huangang/cipulse/internal/services"
	"gorm.io/gorm"
)

const maxRecentRuns = 200

// MetricsHandler serves the live summary, the persisted daily trend and the
// recent-runs listing.
type MetricsHandler struct {
	db         *gorm.DB
	fetcher    services.RunFetcher
	aggregator *services.Aggregator
	pageSize   int
}

func NewMetricsHandler(db *gorm.DB, fetcher services.RunFetcher, pageSize int) *MetricsHandler {
	return &MetricsHandler{
		db:         db,
		fetcher:    fetcher,
		aggregator: services.NewAggregator(db),
		pageSize:   pageSize,
	}
}

// GetSummary computes a fresh snapshot from a live fetch; nothing is read
// from or written to storage on this path.
func (h *MetricsHandler) GetSummary(c *gin.Context) {
	filter := github.RunsFilter{
		Branch:  c.Query("branch"),
		Event:   c.Query("event"),
		PerPage: h.pageSize,
	}

	runs, err := h.fetcher.FetchRuns(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "metrics": metrics.ComputeSummary(runs)})
}

// GetDaily returns the persisted rollup rows for a trailing window in days.
func (h *MetricsHandler) GetDaily(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days <= 0 {
		days = 30
	}

	rows, err := h.aggregator.DailyWindow(days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "metrics": rows})
}

// GetRecentRuns returns stored runs, newest first.
func (h *MetricsHandler) GetRecentRuns(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	if limit > maxRecentRuns {
		limit = maxRecentRuns
	}

	runs, err := services.RecentRuns(h.db, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "runs": runs})
}
