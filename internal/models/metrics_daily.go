package models

import (
	"time"
)

// MetricsDaily is one rolled-up row per (calendar day, workflow name).
// Runs without a workflow name are grouped under the "all" label.
// Recomputation overwrites the row for its key; it never appends.
type MetricsDaily struct {
	Day           time.Time `gorm:"primaryKey;type:date" json:"day"`
	WorkflowName  string    `gorm:"primaryKey;size:300" json:"workflow_name"`
	Runs          int       `json:"runs"`
	Successes     int       `json:"successes"`
	Failures      int       `json:"failures"`
	AvgDurationMs *int64    `json:"avg_duration_ms"`
	SuccessRate   *int      `json:"success_rate"`
}

func (MetricsDaily) TableName() string { return "metrics_daily" }
