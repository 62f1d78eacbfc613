package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/raphaelgruber/docforge/internal/llm"
	"github.com/raphaelgruber/docforge/internal/models"
	"github.com/raphaelgruber/docforge/internal/orchestrator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	timeout = 2 * time.Second
	tick    = 10 * time.Millisecond
)

// fakeGenerator returns numbered artifacts per agent and fails when an
// agent's entry in errs is set.
type fakeGenerator struct {
	mu    sync.Mutex
	calls map[string]int
	errs  map[string]error
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{calls: map[string]int{}, errs: map[string]error{}}
}

func (g *fakeGenerator) Generate(_ context.Context, name string) (models.Artifact, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls[name]++
	if err := g.errs[name]; err != nil {
		return models.Artifact{}, err
	}
	return models.Artifact{Agent: name, Title: fmt.Sprintf("%s #%d", name, g.calls[name])}, nil
}

func (g *fakeGenerator) count(name string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[name]
}

func TestCreateJob(t *testing.T) {
	m := NewJobManager(2, nil)

	_, err := m.CreateJob("demo", []Task{{Agent: "spec", Count: 0}})
	assert.ErrorIs(t, err, ErrNoTasks)

	job, err := m.CreateJob("demo", []Task{{Agent: "spec", Count: 3}, {Agent: "", Count: 1}, {Agent: "classes", Count: 1}})
	require.NoError(t, err)
	assert.Len(t, job.ID, 8)
	assert.Equal(t, 4, job.Total)
	assert.Len(t, job.Tasks, 2)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Same(t, job, m.GetJob(job.ID))
	assert.Len(t, m.ListJobs(), 1)
}

func TestRun(t *testing.T) {
	gen := newFakeGenerator()
	m := NewJobManager(2, nil)
	svc := NewGenerateService(gen, m, nil)

	job, err := m.CreateJob("demo", []Task{{Agent: "spec", Count: 3}, {Agent: "classes", Count: 1}})
	require.NoError(t, err)

	result, err := svc.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Generated)
	assert.Empty(t, result.Errors)
	assert.Contains(t, result.Titles, "spec: spec #3")

	snap := job.Snapshot()
	assert.Equal(t, JobStatusCompleted, snap.Status)
	assert.Equal(t, 4, snap.Progress)
	assert.NotNil(t, snap.CompletedAt)
	assert.True(t, job.Done())
}

func TestRun_FailedStepSkipsRestOfTask(t *testing.T) {
	gen := newFakeGenerator()
	gen.errs["broken"] = errors.New("no valid structured output")
	m := NewJobManager(2, nil)
	svc := NewGenerateService(gen, m, nil)

	job, err := m.CreateJob("demo", []Task{{Agent: "broken", Count: 3}, {Agent: "spec", Count: 2}})
	require.NoError(t, err)

	result, err := svc.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Generated)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "broken")
	assert.Equal(t, 1, gen.count("broken"))
	assert.Equal(t, JobStatusCompleted, job.Snapshot().Status)
}

func TestRun_FatalErrorStopsJob(t *testing.T) {
	gen := newFakeGenerator()
	gen.errs["spec"] = fmt.Errorf("model call failed: %w", llm.ErrFatalAPI)
	m := NewJobManager(1, nil)
	svc := NewGenerateService(gen, m, nil)

	job, err := m.CreateJob("demo", []Task{{Agent: "spec", Count: 2}, {Agent: "classes", Count: 2}})
	require.NoError(t, err)

	_, err = svc.Run(context.Background(), job)
	assert.ErrorIs(t, err, llm.ErrFatalAPI)
	assert.Equal(t, 0, gen.count("classes"), "single worker never reaches the second task")

	snap := job.Snapshot()
	assert.Equal(t, JobStatusFailed, snap.Status)
	assert.NotEmpty(t, snap.Error)
}

func TestRun_Cancelled(t *testing.T) {
	gen := newFakeGenerator()
	m := NewJobManager(1, nil)
	svc := NewGenerateService(gen, m, nil)
	job, err := m.CreateJob("demo", []Task{{Agent: "spec", Count: 2}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Run(ctx, job)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, gen.count("spec"))
}

func TestRun_WithOrchestrator(t *testing.T) {
	scripted := llm.NewScripted(
		"```markdown\n# Overview\n\nFirst.\n```",
		"```markdown\n# Data Model\n\nSecond.\n```",
	)
	o := orchestrator.New(orchestrator.Options{Completer: scripted, DefaultModel: "test"})
	_, err := o.Register("spec", models.VariantTextDocument, "", "")
	require.NoError(t, err)
	o.SwitchProject(&models.ProjectContext{
		ProjectName: "demo",
		Requirements: models.Requirements{
			Input:    "spreadsheets",
			Output:   "web app",
			Features: map[string]string{"login": "auth"},
			Further:  "none",
		},
		TabularDescriptions: []string{"id,name\n"},
	})

	m := NewJobManager(2, nil)
	job, err := m.CreateJob("demo", []Task{{Agent: "spec", Count: 2}})
	require.NoError(t, err)

	result, err := NewGenerateService(o, m, nil).Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, []string{"spec: Overview", "spec: Data Model"}, result.Titles)
	assert.Equal(t, []string{"Overview", "Data Model"}, o.Project().GeneratedTextDocs.Keys())
}

func TestStart(t *testing.T) {
	gen := newFakeGenerator()
	m := NewJobManager(1, nil)
	svc := NewGenerateService(gen, m, nil)
	job, err := m.CreateJob("demo", []Task{{Agent: "spec", Count: 1}})
	require.NoError(t, err)

	svc.Start(context.Background(), job)
	assert.Eventually(t, job.Done, timeout, tick)
	assert.Equal(t, JobStatusCompleted, job.Snapshot().Status)
}
