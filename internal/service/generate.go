package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/raphaelgruber/docforge/internal/llm"
	"github.com/raphaelgruber/docforge/internal/models"
)

// Generator produces one artifact from a named agent. *orchestrator.Orchestrator
// satisfies it.
type Generator interface {
	Generate(ctx context.Context, name string) (models.Artifact, error)
}

// GenerateService runs jobs against a Generator.
type GenerateService struct {
	gen    Generator
	jobs   *JobManager
	logger *slog.Logger
}

// NewGenerateService creates a service that reports progress to jobs.
func NewGenerateService(gen Generator, jobs *JobManager, logger *slog.Logger) *GenerateService {
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerateService{gen: gen, jobs: jobs, logger: logger}
}

// Jobs returns the job manager.
func (s *GenerateService) Jobs() *JobManager {
	return s.jobs
}

// Start runs job in the background. Poll the job for progress.
func (s *GenerateService) Start(ctx context.Context, job *Job) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("job goroutine panicked", "job_id", job.ID, "panic", r)
				s.jobs.Fail(job, nil, fmt.Errorf("internal panic: %v", r))
			}
		}()
		_, _ = s.Run(ctx, job)
	}()
}

// Run executes job and blocks until it finishes. Tasks of different agents
// run in parallel; the steps of one task run in order because every step
// continues the same conversation. A failed step skips the rest of its task.
// A fatal provider error cancels the whole job.
func (s *GenerateService) Run(ctx context.Context, job *Job) (*Result, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	s.jobs.SetRunning(job)

	var (
		mu     sync.Mutex
		result = &Result{}
	)
	record := func(a models.Artifact, err error, agentName string) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", agentName, err))
			return
		}
		result.Generated++
		result.Titles = append(result.Titles, fmt.Sprintf("%s: %s", agentName, a.Title))
	}

	tasks := make(chan Task, len(job.Tasks))
	for _, t := range job.Tasks {
		tasks <- t
	}
	close(tasks)

	workers := min(s.jobs.Concurrency(), len(job.Tasks))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for t := range tasks {
				s.runTask(ctx, cancel, job, t, workerID, record)
			}
		}(i)
	}
	wg.Wait()

	if cause := context.Cause(ctx); cause != nil {
		s.jobs.Fail(job, result, cause)
		return result, cause
	}
	s.jobs.Complete(job, result)
	return result, nil
}

func (s *GenerateService) runTask(ctx context.Context, cancel context.CancelCauseFunc, job *Job, t Task, workerID int, record func(models.Artifact, error, string)) {
	for step := 1; step <= t.Count; step++ {
		if ctx.Err() != nil {
			return
		}
		s.logger.Info("generating", "job_id", job.ID, "worker", workerID, "agent", t.Agent, "step", fmt.Sprintf("%d/%d", step, t.Count))

		art, err := s.gen.Generate(ctx, t.Agent)
		s.jobs.UpdateProgress(job, t.Agent)
		record(art, err, t.Agent)
		if err == nil {
			continue
		}
		if errors.Is(err, llm.ErrFatalAPI) {
			cancel(err)
			return
		}
		s.logger.Warn("generation step failed, skipping rest of task", "job_id", job.ID, "agent", t.Agent, "step", step, "error", err)
		return
	}
}
