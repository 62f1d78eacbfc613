// Package service runs batch generation jobs over the agent orchestrator.
package service

import (
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the state of a generation job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Task asks agent Agent for Count consecutive artifacts.
type Task struct {
	Agent string
	Count int
}

// Result summarizes a finished job.
type Result struct {
	Generated int
	Titles    []string
	Errors    []string
}

// Job represents one batch generation run.
type Job struct {
	ID          string
	Project     string
	Status      JobStatus
	Tasks       []Task
	Progress    int
	Total       int
	Current     string // agent of the most recent step
	Result      *Result
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time

	mu sync.RWMutex
}

// ErrNoTasks is returned when a job would not generate anything.
var ErrNoTasks = errors.New("job has no tasks")

// JobManager tracks generation jobs.
type JobManager struct {
	jobs        map[string]*Job
	mu          sync.RWMutex
	concurrency int
	logger      *slog.Logger
}

// NewJobManager creates a new job manager. concurrency bounds how many
// agents run at the same time.
func NewJobManager(concurrency int, logger *slog.Logger) *JobManager {
	if concurrency <= 0 {
		concurrency = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &JobManager{
		jobs:        make(map[string]*Job),
		concurrency: concurrency,
		logger:      logger,
	}
}

// Concurrency returns the configured concurrency level.
func (m *JobManager) Concurrency() int {
	return m.concurrency
}

// CreateJob registers a pending job. Tasks with a non-positive count are dropped.
func (m *JobManager) CreateJob(project string, tasks []Task) (*Job, error) {
	var kept []Task
	total := 0
	for _, t := range tasks {
		if t.Count <= 0 || t.Agent == "" {
			continue
		}
		kept = append(kept, t)
		total += t.Count
	}
	if total == 0 {
		return nil, ErrNoTasks
	}

	job := &Job{
		ID:        uuid.New().String()[:8],
		Project:   project,
		Status:    JobStatusPending,
		Tasks:     kept,
		Total:     total,
		StartedAt: time.Now(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	m.logger.Info("job created", "job_id", job.ID, "project", project, "tasks", len(kept), "total", total)
	return job, nil
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// ListJobs returns all jobs, most recent first.
func (m *JobManager) ListJobs() []*Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	slices.SortFunc(jobs, func(a, b *Job) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	return jobs
}

// UpdateProgress records a finished step.
func (m *JobManager) UpdateProgress(job *Job, agentName string) {
	job.mu.Lock()
	job.Progress++
	job.Current = agentName
	if job.Status == JobStatusPending {
		job.Status = JobStatusRunning
	}
	progress, total := job.Progress, job.Total
	job.mu.Unlock()

	m.logger.Debug("job progress", "job_id", job.ID, "agent", agentName, "progress", progress, "total", total)
}

// SetRunning marks job as running.
func (m *JobManager) SetRunning(job *Job) {
	job.mu.Lock()
	job.Status = JobStatusRunning
	job.mu.Unlock()
}

// Complete marks job as completed with result.
func (m *JobManager) Complete(job *Job, result *Result) {
	job.mu.Lock()
	job.Status = JobStatusCompleted
	job.Result = result
	now := time.Now()
	job.CompletedAt = &now
	job.mu.Unlock()

	m.logger.Info("job completed", "job_id", job.ID, "generated", result.Generated, "errors", len(result.Errors))
}

// Fail marks job as failed. A partial result is kept when present.
func (m *JobManager) Fail(job *Job, result *Result, err error) {
	job.mu.Lock()
	job.Status = JobStatusFailed
	job.Result = result
	job.Error = err.Error()
	now := time.Now()
	job.CompletedAt = &now
	job.mu.Unlock()

	m.logger.Error("job failed", "job_id", job.ID, "error", err)
}

// Done reports whether the job reached a terminal state.
func (j *Job) Done() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// Snapshot returns a thread-safe copy of job state.
func (j *Job) Snapshot() Job {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return Job{
		ID:          j.ID,
		Project:     j.Project,
		Status:      j.Status,
		Tasks:       slices.Clone(j.Tasks),
		Progress:    j.Progress,
		Total:       j.Total,
		Current:     j.Current,
		Result:      j.Result,
		Error:       j.Error,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
	}
}
