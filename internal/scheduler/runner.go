package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// JobRunner executes a single job on schedule
type JobRunner struct {
	job      *Job
	ticker   *time.Ticker
	logger   *slog.Logger
	executor Executor
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// Executor performs the two scheduled action kinds skrills supports:
// a discovery cache refresh, and a usage-log ingest for one client.
type Executor interface {
	RefreshCache(ctx context.Context) error
	IngestUsageLogs(ctx context.Context, client, transcriptGlob string) (ingested int, err error)
}

// NewJobRunner creates a new job runner
func NewJobRunner(job *Job, executor Executor, log *slog.Logger) *JobRunner {
	if log == nil {
		log = slog.Default()
	}
	return &JobRunner{
		job:      job,
		executor: executor,
		logger:   log.With("job", job.ID),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins executing the job on schedule
func (r *JobRunner) Start(ctx context.Context) {
	defer close(r.doneCh)

	if !r.job.Enabled {
		r.logger.Debug("job disabled, not starting")
		return
	}

	nextRun, err := r.job.NextRun(time.Now())
	if err != nil {
		r.logger.Error("failed to calculate next run", "error", err)
		return
	}
	r.job.State.NextRunAt = nextRun

	r.logger.Info("job runner started", "next_run", nextRun.Format(time.RFC3339))

	var tickerDuration time.Duration
	switch r.job.Schedule.Kind {
	case "interval":
		tickerDuration = time.Duration(r.job.Schedule.IntervalMs) * time.Millisecond
	case "cron", "at":
		tickerDuration = 1 * time.Minute
	}

	r.ticker = time.NewTicker(tickerDuration)
	defer r.ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("job runner stopped (context cancelled)")
			return
		case <-r.stopCh:
			r.logger.Info("job runner stopped")
			return
		case now := <-r.ticker.C:
			shouldRun := false
			if r.job.Schedule.Kind == "interval" {
				shouldRun = true
			} else {
				shouldRun = now.After(r.job.State.NextRunAt) || now.Equal(r.job.State.NextRunAt)
			}

			if shouldRun {
				r.executeJob(ctx)

				nextRun, err := r.job.NextRun(time.Now())
				if err != nil {
					r.logger.Error("failed to calculate next run", "error", err)
				} else {
					r.job.State.NextRunAt = nextRun
					r.logger.Debug("next run scheduled", "next_run", nextRun.Format(time.RFC3339))
				}
			}
		}
	}
}

// Stop stops the job runner
func (r *JobRunner) Stop() {
	close(r.stopCh)
	<-r.doneCh
}

// executeJob runs the job once
func (r *JobRunner) executeJob(ctx context.Context) {
	start := time.Now()
	r.logger.Info("executing job")

	var err error
	switch r.job.Action.Kind {
	case "cache-refresh":
		err = r.executeCacheRefresh(ctx)
	case "log-ingest":
		err = r.executeLogIngest(ctx)
	default:
		err = fmt.Errorf("unknown action kind: %s", r.job.Action.Kind)
	}

	duration := time.Since(start)

	r.job.State.LastRunAt = time.Now()
	r.job.State.LastDuration = duration
	r.job.State.RunCount++

	if err != nil {
		r.job.State.ErrorCount++
		r.job.State.LastError = err.Error()
		r.logger.Error("job failed",
			"error", err,
			"duration", duration,
			"run_count", r.job.State.RunCount,
			"error_count", r.job.State.ErrorCount)
	} else {
		r.job.State.LastError = ""
		r.logger.Info("job completed",
			"duration", duration,
			"run_count", r.job.State.RunCount)
	}
}

// executeCacheRefresh invalidates and re-scans the discovery cache.
func (r *JobRunner) executeCacheRefresh(ctx context.Context) error {
	if r.executor == nil {
		return fmt.Errorf("executor not set (cannot execute cache-refresh action)")
	}
	return r.executor.RefreshCache(ctx)
}

// executeLogIngest parses one client's session transcripts into usage
// events and folds them into the co-occurrence stats store.
func (r *JobRunner) executeLogIngest(ctx context.Context) error {
	if r.executor == nil {
		return fmt.Errorf("executor not set (cannot execute log-ingest action)")
	}
	ingested, err := r.executor.IngestUsageLogs(ctx, r.job.Action.Client, r.job.Action.TranscriptGlob)
	if err != nil {
		return err
	}
	r.logger.Debug("log ingest completed", "ingested", ingested)
	return nil
}
