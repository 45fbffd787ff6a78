/*
scheduler.go - Automated recalculation scheduler

PURPOSE:
  Schedule statuses and deferred interest depend on "today": a quarter that
  was PENDING yesterday is OVERDUE once its due date passes, even though no
  payment changed. The scheduler periodically recalculates every estimate so
  the stored snapshots keep up with the calendar.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Each pass calls estimate.Service.RecalculateAll
  - Records a recalculation_runs row per pass for audit and UI display
  - Reports pass duration and status movements to Prometheus

CONFIGURATION:
  - CheckInterval: How often to recalculate (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewRecalculationScheduler(service, store, metrics, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: POST /api/recalculate (manual pass)
  - estimate/service.go: RecalculateAll
*/
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/warp/advance-tax/estimate"
	"github.com/warp/advance-tax/store/sqlite"
)

// RunRecorder persists scheduler passes. *sqlite.Store implements it.
type RunRecorder interface {
	SaveRecalculationRun(ctx context.Context, r sqlite.RecalculationRun) error
}

// RecalculationScheduler handles periodic recalculation of all estimates.
type RecalculationScheduler struct {
	Service       *estimate.Service
	Runs          RunRecorder
	Metrics       *Metrics
	CheckInterval time.Duration
	Enabled       bool

	log    zerolog.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	passMu sync.Mutex // one pass at a time, ticker or RunNow
}

// NewRecalculationScheduler creates a new scheduler.
func NewRecalculationScheduler(svc *estimate.Service, runs RunRecorder, metrics *Metrics, log zerolog.Logger) *RecalculationScheduler {
	return &RecalculationScheduler{
		Service:       svc,
		Runs:          runs,
		Metrics:       metrics,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		log:           log.With().Str("component", "scheduler").Logger(),
	}
}

// Start begins the scheduler.
func (rs *RecalculationScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled || rs.CheckInterval <= 0 {
		rs.log.Info().Msg("disabled, not starting")
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.stop = make(chan struct{})
	rs.wg.Add(1)

	go rs.run(rs.ticker, rs.stop)

	rs.log.Info().Dur("interval", rs.CheckInterval).Msg("started")
}

// Stop stops the scheduler and waits for an in-flight pass to finish.
func (rs *RecalculationScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		rs.log.Info().Msg("stopped")
	}
}

func (rs *RecalculationScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer rs.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	// Run immediately on start
	rs.pass(ctx)

	for {
		select {
		case <-ticker.C:
			rs.pass(ctx)
		case <-stop:
			return
		}
	}
}

func (rs *RecalculationScheduler) pass(ctx context.Context) {
	if _, err := rs.RunNow(ctx); err != nil {
		rs.log.Error().Err(err).Msg("recalculation pass failed")
	}
}

// RunNow performs one recalculation pass immediately.
func (rs *RecalculationScheduler) RunNow(ctx context.Context) (estimate.RecalculationSummary, error) {
	rs.passMu.Lock()
	defer rs.passMu.Unlock()

	started := time.Now().UTC()
	run := sqlite.RecalculationRun{
		ID:        uuid.NewString(),
		Status:    "running",
		StartedAt: started,
	}
	if rs.Runs != nil {
		if err := rs.Runs.SaveRecalculationRun(ctx, run); err != nil {
			return estimate.RecalculationSummary{}, fmt.Errorf("failed to save run record: %w", err)
		}
	}

	summary, err := rs.Service.RecalculateAll(ctx)
	elapsed := time.Since(started)

	completed := time.Now().UTC()
	run.CompletedAt = &completed
	run.Processed = summary.Processed
	run.StatusChanges = summary.StatusChanges
	run.Failed = summary.Failed
	run.InterestBefore = summary.InterestBefore
	run.InterestAfter = summary.InterestAfter
	run.Status = "completed"
	if err != nil {
		run.Status = "failed"
		run.Error = err.Error()
	}

	rs.Metrics.ObserveRecalculation(run.Status, elapsed, summary.StatusChanges)

	if rs.Runs != nil {
		// The pass itself may have been cancelled; the audit row should still land.
		if saveErr := rs.Runs.SaveRecalculationRun(context.WithoutCancel(ctx), run); saveErr != nil {
			rs.log.Error().Err(saveErr).Str("run_id", run.ID).Msg("failed to update run record")
		}
	}

	if err != nil {
		return summary, err
	}

	rs.log.Info().
		Str("run_id", run.ID).
		Int("processed", summary.Processed).
		Int("status_changes", summary.StatusChanges).
		Dur("elapsed", elapsed).
		Msg("recalculation pass complete")
	return summary, nil
}

// GetNextRunTime returns when the next scheduled pass will occur.
func (rs *RecalculationScheduler) GetNextRunTime() time.Time {
	return time.Now().Add(rs.CheckInterval)
}
