// Package metrics computes point-in-time health statistics over a fetched
// page of workflow runs. Everything here is pure: no I/O, no clock, no state.
package metrics

import (
	"math"

	"github.com/huangang/cipulse/internal/github"
)

// Summary is the computed health snapshot for one page of runs.
// The nullable fields are nil when no data supports them, never zero.
type Summary struct {
	SampleSize         int                 `json:"sampleSize"`
	SuccessRate        *int                `json:"successRate"`
	AverageBuildTimeMs *int64              `json:"averageBuildTimeMs"`
	LastBuildStatus    *string             `json:"lastBuildStatus"`
	LastRun            *github.WorkflowRun `json:"lastRun"`
}

// RunDuration derives the wall-clock duration of one run in milliseconds.
// Start prefers run_started_at over created_at. The end is updated_at: the
// runs listing carries no completion timestamp of its own, and updated_at is
// the terminal timestamp on every completed run, so no fallback is needed.
// It reports ok=false when either endpoint is missing or the end precedes
// the start (clock skew, partial data); a duration is never synthesized or
// negative.
func RunDuration(run github.WorkflowRun) (int64, bool) {
	start := run.RunStartedAt
	if start.IsZero() {
		start = run.CreatedAt
	}
	end := run.UpdatedAt
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return 0, false
	}
	return end.Sub(start).Milliseconds(), true
}

// ComputeSummary reduces an ordered run sequence to a Summary. The input is
// trusted to be newest-first (the adapter's ordering contract): the last run
// is taken positionally from index 0, not determined by timestamp.
func ComputeSummary(runs []github.WorkflowRun) Summary {
	if len(runs) == 0 {
		return Summary{}
	}

	successCount := 0
	var durationTotalMs int64
	durationCount := 0

	for _, run := range runs {
		if run.Conclusion == "success" {
			successCount++
		}
		if ms, ok := RunDuration(run); ok {
			durationTotalMs += ms
			durationCount++
		}
	}

	rate := int(math.Round(float64(successCount) / float64(len(runs)) * 100))
	summary := Summary{
		SampleSize:  len(runs),
		SuccessRate: &rate,
		LastRun:     &runs[0],
	}

	if durationCount > 0 {
		avg := int64(math.Round(float64(durationTotalMs) / float64(durationCount)))
		summary.AverageBuildTimeMs = &avg
	}

	switch {
	case runs[0].Conclusion != "":
		summary.LastBuildStatus = &runs[0].Conclusion
	case runs[0].Status != "":
		summary.LastBuildStatus = &runs[0].Status
	}

	return summary
}
