package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var errTestRefresh = errors.New("refresh failed")

// MockExecutor implements Executor for testing.
type MockExecutor struct {
	mu           sync.Mutex
	refreshCalls int
	refreshErr   error
	ingestCalls  []IngestCall
	ingestCount  int
	ingestErr    error
}

type IngestCall struct {
	Client         string
	TranscriptGlob string
}

func (m *MockExecutor) RefreshCache(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshCalls++
	return m.refreshErr
}

func (m *MockExecutor) IngestUsageLogs(ctx context.Context, client, transcriptGlob string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingestCalls = append(m.ingestCalls, IngestCall{Client: client, TranscriptGlob: transcriptGlob})
	return m.ingestCount, m.ingestErr
}

func (m *MockExecutor) GetRefreshCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshCalls
}

func (m *MockExecutor) GetIngestCalls() []IngestCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]IngestCall{}, m.ingestCalls...)
}

func TestNewScheduler(t *testing.T) {
	executor := &MockExecutor{}
	sched := NewScheduler(executor, nil)

	if sched == nil {
		t.Fatal("NewScheduler returned nil")
	}
	if sched.executor != executor {
		t.Error("Executor not set correctly")
	}
	if len(sched.jobs) != 0 {
		t.Error("Jobs map should be empty")
	}
}

func TestSchedulerAddJob(t *testing.T) {
	executor := &MockExecutor{}
	sched := NewScheduler(executor, nil)

	job := &Job{
		ID:      "test-job",
		Name:    "Test Job",
		Enabled: true,
		Schedule: ScheduleConfig{
			Kind:       "interval",
			IntervalMs: 60000,
		},
		Action: ActionConfig{
			Kind: "cache-refresh",
		},
	}

	err := sched.AddJob(job)
	if err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}

	err = sched.AddJob(job)
	if err == nil {
		t.Error("AddJob should fail for duplicate ID")
	}

	retrieved, err := sched.GetJob("test-job")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if retrieved.ID != job.ID {
		t.Error("Retrieved job ID doesn't match")
	}
}

func TestSchedulerRemoveJob(t *testing.T) {
	executor := &MockExecutor{}
	sched := NewScheduler(executor, nil)

	job := &Job{
		ID:      "test-job",
		Name:    "Test Job",
		Enabled: true,
		Schedule: ScheduleConfig{
			Kind:       "interval",
			IntervalMs: 60000,
		},
		Action: ActionConfig{
			Kind: "cache-refresh",
		},
	}

	_ = sched.AddJob(job)

	err := sched.RemoveJob("test-job")
	if err != nil {
		t.Fatalf("RemoveJob failed: %v", err)
	}

	_, err = sched.GetJob("test-job")
	if err == nil {
		t.Error("GetJob should fail for removed job")
	}

	err = sched.RemoveJob("non-existent")
	if err == nil {
		t.Error("RemoveJob should fail for non-existent job")
	}
}

func TestSchedulerUpdateJob(t *testing.T) {
	executor := &MockExecutor{}
	sched := NewScheduler(executor, nil)

	job := &Job{
		ID:      "test-job",
		Name:    "Test Job",
		Enabled: true,
		Schedule: ScheduleConfig{
			Kind:       "interval",
			IntervalMs: 60000,
		},
		Action: ActionConfig{
			Kind: "cache-refresh",
		},
	}

	_ = sched.AddJob(job)

	job.Enabled = false
	err := sched.UpdateJob(job)
	if err != nil {
		t.Fatalf("UpdateJob failed: %v", err)
	}

	retrieved, _ := sched.GetJob("test-job")
	if retrieved.Enabled {
		t.Error("Job should be disabled after update")
	}

	nonExistent := &Job{
		ID:       "non-existent",
		Name:     "Non-existent",
		Enabled:  true,
		Schedule: ScheduleConfig{Kind: "interval", IntervalMs: 60000},
		Action:   ActionConfig{Kind: "cache-refresh"},
	}
	err = sched.UpdateJob(nonExistent)
	if err == nil {
		t.Error("UpdateJob should fail for non-existent job")
	}
}

func TestSchedulerListJobs(t *testing.T) {
	executor := &MockExecutor{}
	sched := NewScheduler(executor, nil)

	jobs := []*Job{
		{
			ID:       "job1",
			Name:     "Job 1",
			Enabled:  true,
			Schedule: ScheduleConfig{Kind: "interval", IntervalMs: 60000},
			Action:   ActionConfig{Kind: "cache-refresh"},
		},
		{
			ID:       "job2",
			Name:     "Job 2",
			Enabled:  false,
			Schedule: ScheduleConfig{Kind: "interval", IntervalMs: 120000},
			Action:   ActionConfig{Kind: "log-ingest", Client: "codex"},
		},
	}

	for _, job := range jobs {
		_ = sched.AddJob(job)
	}

	list := sched.ListJobs()
	if len(list) != 2 {
		t.Errorf("ListJobs returned %d jobs, expected 2", len(list))
	}
}

func TestSchedulerLoadJobs(t *testing.T) {
	executor := &MockExecutor{}
	sched := NewScheduler(executor, nil)

	jobs := []*Job{
		{
			ID:       "job1",
			Name:     "Job 1",
			Enabled:  true,
			Schedule: ScheduleConfig{Kind: "interval", IntervalMs: 60000},
			Action:   ActionConfig{Kind: "cache-refresh"},
		},
		{
			ID:       "job2",
			Name:     "Job 2",
			Enabled:  true,
			Schedule: ScheduleConfig{Kind: "interval", IntervalMs: 120000},
			Action:   ActionConfig{Kind: "log-ingest", Client: "claude"},
		},
	}

	err := sched.LoadJobs(jobs)
	if err != nil {
		t.Fatalf("LoadJobs failed: %v", err)
	}

	list := sched.ListJobs()
	if len(list) != 2 {
		t.Errorf("LoadJobs didn't load all jobs")
	}
}

func TestSchedulerGetStats(t *testing.T) {
	executor := &MockExecutor{}
	sched := NewScheduler(executor, nil)

	job1 := &Job{
		ID:       "job1",
		Name:     "Job 1",
		Enabled:  true,
		Schedule: ScheduleConfig{Kind: "interval", IntervalMs: 60000},
		Action:   ActionConfig{Kind: "cache-refresh"},
		State: JobState{
			RunCount:   10,
			ErrorCount: 2,
		},
	}

	job2 := &Job{
		ID:       "job2",
		Name:     "Job 2",
		Enabled:  false,
		Schedule: ScheduleConfig{Kind: "interval", IntervalMs: 120000},
		Action:   ActionConfig{Kind: "log-ingest", Client: "claude"},
		State: JobState{
			RunCount:   5,
			ErrorCount: 1,
		},
	}

	_ = sched.AddJob(job1)
	_ = sched.AddJob(job2)

	stats := sched.GetStats()

	if stats.TotalJobs != 2 {
		t.Errorf("Expected TotalJobs=2, got %v", stats.TotalJobs)
	}
	if stats.ActiveJobs != 1 {
		t.Errorf("Expected ActiveJobs=1, got %v", stats.ActiveJobs)
	}
	if stats.TotalRuns != 15 {
		t.Errorf("Expected TotalRuns=15, got %v", stats.TotalRuns)
	}
	if stats.TotalErrors != 3 {
		t.Errorf("Expected TotalErrors=3, got %v", stats.TotalErrors)
	}
	if stats.RefreshJobs != 1 || stats.IngestJobs != 1 {
		t.Errorf("Expected 1 refresh job and 1 ingest job, got refresh=%d ingest=%d", stats.RefreshJobs, stats.IngestJobs)
	}
}

func TestSchedulerRunJobNow(t *testing.T) {
	executor := &MockExecutor{}
	sched := NewScheduler(executor, nil)

	job := &Job{
		ID:      "ingest-job",
		Name:    "Ingest Job",
		Enabled: true,
		Schedule: ScheduleConfig{
			Kind:       "interval",
			IntervalMs: 60000,
		},
		Action: ActionConfig{
			Kind:           "log-ingest",
			Client:         "claude",
			TranscriptGlob: "~/.claude/projects/**/*.jsonl",
		},
	}

	_ = sched.AddJob(job)

	err := sched.RunJobNow("ingest-job")
	if err != nil {
		t.Fatalf("RunJobNow failed: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	calls := executor.GetIngestCalls()
	if len(calls) != 1 {
		t.Errorf("Expected 1 ingest call, got %d", len(calls))
	}
	if len(calls) > 0 {
		if calls[0].Client != "claude" {
			t.Errorf("Expected client=claude, got %s", calls[0].Client)
		}
	}
}

func TestSchedulerStartStop(t *testing.T) {
	executor := &MockExecutor{}
	sched := NewScheduler(executor, nil)

	job := &Job{
		ID:      "test-job",
		Name:    "Test Job",
		Enabled: true,
		Schedule: ScheduleConfig{
			Kind:       "interval",
			IntervalMs: 100,
		},
		Action: ActionConfig{
			Kind: "cache-refresh",
		},
	}

	_ = sched.AddJob(job)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := sched.Start(ctx)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	time.Sleep(300 * time.Millisecond)

	sched.Stop()

	retrieved, _ := sched.GetJob("test-job")
	if retrieved.State.RunCount == 0 {
		t.Error("Job should have run at least once")
	}
}
