package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/huangang/cipulse/internal/config"
	"github.com/huangang/cipulse/internal/github"
	"github.com/huangang/cipulse/internal/metrics"
	"github.com/huangang/cipulse/internal/models"
	"github.com/huangang/cipulse/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// cycleTimeout bounds one full collector cycle so a hung upstream call
// cannot hold the in-flight slot forever.
const cycleTimeout = 2 * time.Minute

// RunFetcher is the slice of the GitHub client the collector needs.
type RunFetcher interface {
	FetchRuns(ctx context.Context, filter github.RunsFilter) ([]github.WorkflowRun, error)
}

// Collector polls workflow runs on a fixed interval and keeps the run store
// and the daily rollup up to date. One cycle is strictly sequential:
// fetch, then upsert every run, then recompute the rollup window.
type Collector struct {
	db         *gorm.DB
	fetcher    RunFetcher
	aggregator *Aggregator
	cfg        *config.CollectorConfig

	scheduler *cron.Cron
	// running is true only while a schedule is armed: set after Start
	// succeeds, cleared by Stop. A failed Start never sets it.
	running atomic.Bool
	// mu guards the single in-flight cycle; a tick that fires while the
	// previous cycle is still running is skipped, not queued.
	mu sync.Mutex
}

func NewCollector(db *gorm.DB, fetcher RunFetcher, cfg *config.CollectorConfig) *Collector {
	return &Collector{
		db:         db,
		fetcher:    fetcher,
		aggregator: NewAggregator(db),
		cfg:        cfg,
	}
}

// Start runs one cycle immediately, then arms the repeating schedule.
// It is a no-op when the collector is disabled by configuration.
func (c *Collector) Start() {
	if !c.cfg.Enabled {
		logger.Info().Msg("metrics collector disabled (POLL_ENABLED=false)")
		return
	}

	interval := time.Duration(c.cfg.IntervalMS) * time.Millisecond
	logger.Info().Dur("interval", interval).Msg("starting metrics collector")

	c.scheduler = cron.New()
	if _, err := c.scheduler.AddFunc(fmt.Sprintf("@every %s", interval), c.tick); err != nil {
		logger.Error().Err(err).Msg("failed to schedule collector")
		return
	}

	go c.tick()
	c.scheduler.Start()
	c.running.Store(true)
}

// Stop halts the schedule. An in-flight cycle finishes on its own.
func (c *Collector) Stop() {
	if c.scheduler != nil {
		c.scheduler.Stop()
	}
	c.running.Store(false)
}

// Running reports whether the repeating schedule is armed.
func (c *Collector) Running() bool {
	return c.running.Load()
}

// tick is the top-level boundary for background work: every cycle error is
// logged and swallowed so the schedule never stops and the process never dies.
func (c *Collector) tick() {
	if !c.mu.TryLock() {
		logger.Warn().Msg("collector cycle still running, skipping tick")
		return
	}
	defer c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout)
	defer cancel()

	if err := c.RunCycle(ctx); err != nil {
		logger.Error().Err(err).Msg("collector cycle failed")
	}
}

// RunCycle performs one fetch → upsert → recompute pipeline. Exported so a
// cycle can be driven directly in tests without waiting on the schedule.
func (c *Collector) RunCycle(ctx context.Context) error {
	runs, err := c.fetcher.FetchRuns(ctx, github.RunsFilter{PerPage: c.cfg.PageSize})
	if err != nil {
		return fmt.Errorf("fetch runs: %w", err)
	}

	if err := c.UpsertRuns(runs); err != nil {
		return err
	}

	if err := c.aggregator.RecomputeDaily(c.cfg.LookbackDays); err != nil {
		return fmt.Errorf("recompute daily metrics: %w", err)
	}

	logger.Debug().Int("runs", len(runs)).Msg("collector cycle complete")
	return nil
}

// UpsertRuns replaces the stored row for each run, keyed on the external id.
// Re-running with the same input writes equivalent rows, so concurrent or
// repeated cycles cannot corrupt the store.
func (c *Collector) UpsertRuns(runs []github.WorkflowRun) error {
	for _, run := range runs {
		record := toRunRecord(run)
		err := c.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&record).Error
		if err != nil {
			return fmt.Errorf("upsert run %d: %w", run.ID, err)
		}
	}
	return nil
}

func toRunRecord(run github.WorkflowRun) models.WorkflowRun {
	record := models.WorkflowRun{
		ID:           run.ID,
		WorkflowName: run.Name,
		Status:       run.Status,
		Conclusion:   run.Conclusion,
		Event:        run.Event,
		Branch:       run.HeadBranch,
		Actor:        run.Actor.Login,
		HTMLURL:      run.HTMLURL,
		CreatedAt:    run.CreatedAt,
		UpdatedAt:    run.UpdatedAt,
	}
	if !run.RunStartedAt.IsZero() {
		started := run.RunStartedAt
		record.RunStartedAt = &started
	}
	if ms, ok := metrics.RunDuration(run); ok {
		record.RunDurationMs = &ms
	}
	return record
}

// RecentRuns returns stored runs, newest first.
func RecentRuns(db *gorm.DB, limit int) ([]models.WorkflowRun, error) {
	if limit <= 0 {
		limit = 50
	}

	var runs []models.WorkflowRun
	err := db.Order("created_at DESC").Limit(limit).Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("query recent runs: %w", err)
	}
	return runs, nil
}
