package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Scheduler runs skrills' periodic jobs: discovery cache-refresh and
// per-client usage log-ingest (spec §4.9/§6 Scheduler config). Jobs
// are keyed by ID so AddJob, UpdateJob and RemoveJob can add, replace,
// or drop one without restarting the others.
type Scheduler struct {
	jobs     map[string]*Job
	runners  map[string]*JobRunner
	executor Executor
	logger   *slog.Logger
	mu       sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc
}

// Config is the set of jobs a Scheduler should load at startup.
type Config struct {
	Enabled bool   `json:"enabled"`
	Jobs    []*Job `json:"jobs"`
}

// NewScheduler creates a scheduler bound to executor, which performs
// the actual cache-refresh/log-ingest work for every job's Action.
func NewScheduler(executor Executor, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		jobs:     make(map[string]*Job),
		runners:  make(map[string]*JobRunner),
		executor: executor,
		logger:   logger.With("component", "scheduler"),
	}
}

// Start launches a JobRunner goroutine for every enabled job.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.logger.Info("starting scheduler", "jobs", len(s.jobs))

	for id, job := range s.jobs {
		if !job.Enabled {
			s.logger.Debug("skipping disabled job", "job", id)
			continue
		}
		s.startRunnerLocked(id, job)
	}

	s.logger.Info("scheduler started", "active_jobs", len(s.runners))
	return nil
}

// Stop cancels every running job and waits for its runner to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("stopping scheduler")

	if s.cancel != nil {
		s.cancel()
	}

	for id, runner := range s.runners {
		runner.Stop()
		s.logger.Debug("stopped job runner", "job", id)
	}

	s.runners = make(map[string]*JobRunner)
	s.logger.Info("scheduler stopped")
}

// startRunnerLocked must be called with s.mu held and s.ctx set.
func (s *Scheduler) startRunnerLocked(id string, job *Job) {
	runner := NewJobRunner(job, s.executor, s.logger)
	s.runners[id] = runner
	go runner.Start(s.ctx)
}

// AddJob registers a new job, starting it immediately if the
// scheduler is already running.
func (s *Scheduler) AddJob(job *Job) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("invalid job: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job with ID %s already exists", job.ID)
	}
	s.jobs[job.ID] = job

	if s.ctx != nil && job.Enabled {
		s.startRunnerLocked(job.ID, job)
		s.logger.Info("job added and started", "job", job.ID, "action", job.Action.Kind)
	} else {
		s.logger.Info("job added", "job", job.ID, "action", job.Action.Kind, "enabled", job.Enabled)
	}

	return nil
}

// RemoveJob stops (if running) and deletes a job.
func (s *Scheduler) RemoveJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[id]; !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	if runner, exists := s.runners[id]; exists {
		runner.Stop()
		delete(s.runners, id)
	}
	delete(s.jobs, id)
	s.logger.Info("job removed", "job", id)

	return nil
}

// UpdateJob replaces an existing job's definition, restarting its
// runner so the new schedule or action takes effect.
func (s *Scheduler) UpdateJob(job *Job) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("invalid job: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; !exists {
		return fmt.Errorf("job not found: %s", job.ID)
	}

	if runner, exists := s.runners[job.ID]; exists {
		runner.Stop()
		delete(s.runners, job.ID)
	}
	s.jobs[job.ID] = job

	if s.ctx != nil && job.Enabled {
		s.startRunnerLocked(job.ID, job)
		s.logger.Info("job updated and restarted", "job", job.ID)
	} else {
		s.logger.Info("job updated", "job", job.ID, "enabled", job.Enabled)
	}

	return nil
}

// GetJob returns a deep copy of the job registered under id.
func (s *Scheduler) GetJob(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[id]
	if !exists {
		return nil, fmt.Errorf("job not found: %s", id)
	}
	return job.Clone(), nil
}

// ListJobs returns a deep copy of every registered job.
func (s *Scheduler) ListJobs() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job.Clone())
	}
	return jobs
}

// RunJobNow executes id's action immediately, bypassing its schedule.
func (s *Scheduler) RunJobNow(id string) error {
	s.mu.RLock()
	job, exists := s.jobs[id]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	runner := NewJobRunner(job, s.executor, s.logger)
	runner.executeJob(context.Background())
	return nil
}

// LoadJobs registers every job in jobs, logging and skipping (rather
// than failing) any that don't pass Validate so one malformed config
// entry can't take down the rest.
func (s *Scheduler) LoadJobs(jobs []*Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, job := range jobs {
		if err := job.Validate(); err != nil {
			s.logger.Warn("invalid job in config, skipping", "job", job.ID, "error", err)
			continue
		}
		s.jobs[job.ID] = job
		s.logger.Debug("loaded job from config", "job", job.ID, "action", job.Action.Kind)
	}

	s.logger.Info("jobs loaded", "count", len(s.jobs))
	return nil
}

// Stats summarizes the scheduler's current job population, broken down
// by the two action kinds skrills supports.
type Stats struct {
	TotalJobs   int
	ActiveJobs  int
	RunningJobs int
	TotalRuns   int64
	TotalErrors int64
	RefreshJobs int
	IngestJobs  int
}

// GetStats summarizes registered jobs, run counts, and error counts.
func (s *Scheduler) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{TotalJobs: len(s.jobs), RunningJobs: len(s.runners)}
	for _, job := range s.jobs {
		stats.TotalRuns += job.State.RunCount
		stats.TotalErrors += job.State.ErrorCount
		if job.Enabled {
			stats.ActiveJobs++
		}
		switch job.Action.Kind {
		case "cache-refresh":
			stats.RefreshJobs++
		case "log-ingest":
			stats.IngestJobs++
		}
	}
	return stats
}
