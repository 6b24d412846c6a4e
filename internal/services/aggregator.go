package services

import (
	"fmt"
	"math"
	"time"

	"github.com/huangang/cipulse/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllWorkflowsLabel groups runs that carry no workflow name, so an unnamed
// run is distinguishable from a per-workflow row.
const AllWorkflowsLabel = "all"

var failureConclusions = map[string]bool{
	"failure":   true,
	"cancelled": true,
	"timed_out": true,
}

// IsFailureConclusion reports whether a terminal outcome should count as a
// failure for aggregation and alerting.
func IsFailureConclusion(conclusion string) bool {
	return failureConclusions[conclusion]
}

// Aggregator maintains the metrics_daily rollup table.
type Aggregator struct {
	db *gorm.DB
}

func NewAggregator(db *gorm.DB) *Aggregator {
	return &Aggregator{db: db}
}

type dailyKey struct {
	day      string
	workflow string
}

type dailyAccum struct {
	runs            int
	successes       int
	failures        int
	durationTotalMs int64
	durationCount   int
}

// RecomputeDaily rebuilds the (day, workflow) rollup rows for the trailing
// lookback window. The grouping runs in Go over a single window select so it
// behaves identically on sqlite, mysql and postgres. Rows outside the window
// are left untouched; recomputing twice on unchanged input is a no-op.
func (a *Aggregator) RecomputeDaily(lookbackDays int) error {
	since := time.Now().UTC().AddDate(0, 0, -lookbackDays)

	var runs []models.WorkflowRun
	if err := a.db.Where("created_at >= ?", since).Find(&runs).Error; err != nil {
		return fmt.Errorf("select window: %w", err)
	}

	groups := make(map[dailyKey]*dailyAccum)
	for _, run := range runs {
		workflow := run.WorkflowName
		if workflow == "" {
			workflow = AllWorkflowsLabel
		}
		key := dailyKey{
			day:      run.CreatedAt.UTC().Format("2006-01-02"),
			workflow: workflow,
		}

		acc := groups[key]
		if acc == nil {
			acc = &dailyAccum{}
			groups[key] = acc
		}

		acc.runs++
		if run.Conclusion == "success" {
			acc.successes++
		} else if IsFailureConclusion(run.Conclusion) {
			acc.failures++
		}
		// Zero durations are treated like missing ones so instant
		// completions do not drag the average toward zero.
		if run.RunDurationMs != nil && *run.RunDurationMs != 0 {
			acc.durationTotalMs += *run.RunDurationMs
			acc.durationCount++
		}
	}

	for key, acc := range groups {
		day, err := time.ParseInLocation("2006-01-02", key.day, time.UTC)
		if err != nil {
			return fmt.Errorf("parse day %q: %w", key.day, err)
		}

		row := models.MetricsDaily{
			Day:          day,
			WorkflowName: key.workflow,
			Runs:         acc.runs,
			Successes:    acc.successes,
			Failures:     acc.failures,
		}
		if acc.durationCount > 0 {
			avg := int64(math.Round(float64(acc.durationTotalMs) / float64(acc.durationCount)))
			row.AvgDurationMs = &avg
		}
		if acc.runs > 0 {
			rate := int(math.Round(float64(acc.successes) / float64(acc.runs) * 100))
			row.SuccessRate = &rate
		}

		err = a.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "day"}, {Name: "workflow_name"}},
			UpdateAll: true,
		}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("upsert daily row %s/%s: %w", key.day, key.workflow, err)
		}
	}

	return nil
}

// DailyWindow returns the persisted rollup rows for the trailing window,
// newest day first, workflow name ascending within a day.
func (a *Aggregator) DailyWindow(days int) ([]models.MetricsDaily, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)

	var rows []models.MetricsDaily
	err := a.db.Where("day >= ?", since.Format("2006-01-02")).
		Order("day DESC, workflow_name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query daily metrics: %w", err)
	}
	return rows, nil
}
