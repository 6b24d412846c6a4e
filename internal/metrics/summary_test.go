package metrics

import (
	"testing"
	"time"

	"github.com/huangang/cipulse/internal/github"
)

func TestComputeSummary_EmptyInput(t *testing.T) {
	s := ComputeSummary(nil)

	if s.SampleSize != 0 {
		t.Errorf("SampleSize = %d, expected 0", s.SampleSize)
	}
	if s.SuccessRate != nil {
		t.Errorf("SuccessRate should be nil, got %d", *s.SuccessRate)
	}
	if s.AverageBuildTimeMs != nil {
		t.Errorf("AverageBuildTimeMs should be nil, got %d", *s.AverageBuildTimeMs)
	}
	if s.LastBuildStatus != nil {
		t.Errorf("LastBuildStatus should be nil, got %q", *s.LastBuildStatus)
	}
	if s.LastRun != nil {
		t.Error("LastRun should be nil")
	}
}

func TestComputeSummary_RateAndAverage(t *testing.T) {
	now := time.Now()
	runs := []github.WorkflowRun{
		{ID: 1, Conclusion: "success", CreatedAt: now.Add(-60 * time.Second), UpdatedAt: now},
		{ID: 2, Conclusion: "failure", CreatedAt: now.Add(-120 * time.Second), UpdatedAt: now.Add(-60 * time.Second)},
	}

	s := ComputeSummary(runs)

	if s.SampleSize != 2 {
		t.Errorf("SampleSize = %d, expected 2", s.SampleSize)
	}
	if s.SuccessRate == nil || *s.SuccessRate != 50 {
		t.Errorf("SuccessRate = %v, expected 50", s.SuccessRate)
	}
	if s.AverageBuildTimeMs == nil || *s.AverageBuildTimeMs != 60000 {
		t.Errorf("AverageBuildTimeMs = %v, expected 60000", s.AverageBuildTimeMs)
	}
	if s.LastBuildStatus == nil || *s.LastBuildStatus != "success" {
		t.Errorf("LastBuildStatus = %v, expected success (conclusion of runs[0])", s.LastBuildStatus)
	}
	if s.LastRun == nil || s.LastRun.ID != 1 {
		t.Error("LastRun should be the first element of the input")
	}
}

func TestComputeSummary_RateRounding(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name      string
		successes int
		total     int
		expected  int
	}{
		{"one of three", 1, 3, 33},
		{"two of three", 2, 3, 67},
		{"all", 4, 4, 100},
		{"none", 0, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var runs []github.WorkflowRun
			for i := 0; i < tt.total; i++ {
				run := github.WorkflowRun{ID: int64(i), CreatedAt: now, UpdatedAt: now}
				if i < tt.successes {
					run.Conclusion = "success"
				} else {
					run.Conclusion = "failure"
				}
				runs = append(runs, run)
			}

			s := ComputeSummary(runs)
			if s.SuccessRate == nil || *s.SuccessRate != tt.expected {
				t.Errorf("SuccessRate = %v, expected %d", s.SuccessRate, tt.expected)
			}
			if *s.SuccessRate < 0 || *s.SuccessRate > 100 {
				t.Errorf("SuccessRate %d out of bounds", *s.SuccessRate)
			}
		})
	}
}

func TestComputeSummary_ExactConclusionMatchOnly(t *testing.T) {
	now := time.Now()
	runs := []github.WorkflowRun{
		{ID: 1, Conclusion: "Success", CreatedAt: now, UpdatedAt: now},
		{ID: 2, Conclusion: "success ", CreatedAt: now, UpdatedAt: now},
	}

	s := ComputeSummary(runs)
	if *s.SuccessRate != 0 {
		t.Errorf("only exact 'success' should count, got rate %d", *s.SuccessRate)
	}
}

func TestComputeSummary_NegativeDurationExcluded(t *testing.T) {
	now := time.Now()
	runs := []github.WorkflowRun{
		// end before start: must not contribute, and must never go negative
		{ID: 1, Conclusion: "success", CreatedAt: now, UpdatedAt: now.Add(-30 * time.Second)},
		{ID: 2, Conclusion: "failure", CreatedAt: now.Add(-90 * time.Second), UpdatedAt: now},
	}

	s := ComputeSummary(runs)
	if s.AverageBuildTimeMs == nil || *s.AverageBuildTimeMs != 90000 {
		t.Errorf("AverageBuildTimeMs = %v, expected 90000 from the single valid run", s.AverageBuildTimeMs)
	}
}

func TestComputeSummary_RateWithoutDurations(t *testing.T) {
	// Rate and duration have independent denominators: missing timestamps
	// must not suppress the success rate.
	runs := []github.WorkflowRun{
		{ID: 1, Conclusion: "success"},
		{ID: 2, Conclusion: "failure"},
	}

	s := ComputeSummary(runs)
	if s.SuccessRate == nil || *s.SuccessRate != 50 {
		t.Errorf("SuccessRate = %v, expected 50", s.SuccessRate)
	}
	if s.AverageBuildTimeMs != nil {
		t.Errorf("AverageBuildTimeMs should be nil with no valid durations, got %d", *s.AverageBuildTimeMs)
	}
}

func TestComputeSummary_LastBuildStatusFallsBackToStatus(t *testing.T) {
	now := time.Now()
	runs := []github.WorkflowRun{
		{ID: 1, Status: "in_progress", CreatedAt: now, UpdatedAt: now},
	}

	s := ComputeSummary(runs)
	if s.LastBuildStatus == nil || *s.LastBuildStatus != "in_progress" {
		t.Errorf("LastBuildStatus = %v, expected in_progress", s.LastBuildStatus)
	}
}

func TestRunDuration_PrefersRunStartedAt(t *testing.T) {
	now := time.Now()
	started := now.Add(-20 * time.Second)
	run := github.WorkflowRun{
		CreatedAt:    now.Add(-60 * time.Second),
		RunStartedAt: started,
		UpdatedAt:    now,
	}

	ms, ok := RunDuration(run)
	if !ok {
		t.Fatal("expected a valid duration")
	}
	if ms != 20000 {
		t.Errorf("duration = %d, expected 20000 (from run_started_at)", ms)
	}
}

func TestRunDuration_MissingTimestamps(t *testing.T) {
	if _, ok := RunDuration(github.WorkflowRun{}); ok {
		t.Error("no timestamps should yield no duration")
	}
	if _, ok := RunDuration(github.WorkflowRun{CreatedAt: time.Now()}); ok {
		t.Error("missing end should yield no duration")
	}
}
