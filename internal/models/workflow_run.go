package models

import (
	"time"
)

// WorkflowRun is one stored CI workflow execution, keyed by the external run id.
// Rows are replaced wholesale on each collector cycle; no history is kept per id.
type WorkflowRun struct {
	ID            int64      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	WorkflowName  string     `gorm:"size:300" json:"workflow_name"`
	Status        string     `gorm:"size:50" json:"status"`
	Conclusion    string     `gorm:"size:50" json:"conclusion"`
	Event         string     `gorm:"size:100" json:"event"`
	Branch        string     `gorm:"size:300" json:"branch"`
	Actor         string     `gorm:"size:200" json:"actor"`
	HTMLURL       string     `gorm:"type:text" json:"html_url"`
	CreatedAt     time.Time  `gorm:"autoCreateTime:false;index" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime:false" json:"updated_at"`
	RunStartedAt  *time.Time `json:"run_started_at"`
	RunDurationMs *int64     `json:"run_duration_ms"`
}

func (WorkflowRun) TableName() string { return "workflow_runs" }
