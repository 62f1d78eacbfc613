// Package orchestrator keeps the named agents of a session, serializes calls
// per agent and keeps every agent framed against the current project.
package orchestrator

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/raphaelgruber/docforge/internal/agent"
	"github.com/raphaelgruber/docforge/internal/conversation"
	"github.com/raphaelgruber/docforge/internal/llm"
	"github.com/raphaelgruber/docforge/internal/metrics"
	"github.com/raphaelgruber/docforge/internal/models"
	"github.com/raphaelgruber/docforge/internal/schema"
)

// Sink persists artifacts produced through the orchestrator.
type Sink interface {
	Save(ctx context.Context, a models.Artifact) error
}

// Options configures an Orchestrator. Only Completer is required.
type Options struct {
	Completer    llm.Completer
	DefaultModel string
	Images       *conversation.ImageLoader
	Sink         Sink
	Metrics      *metrics.Collector
	Logger       *slog.Logger
}

// Info describes a registered agent.
type Info struct {
	Name        string         `json:"name"`
	Variant     models.Variant `json:"variant"`
	DiagramKind schema.Kind    `json:"diagram_kind,omitempty"`
	Model       string         `json:"model"`
	State       string         `json:"state"`
	Turns       int            `json:"turns"`
}

type entry struct {
	// mu is held for the whole duration of a generate or edit call.
	mu    sync.Mutex
	agent *agent.Agent
}

// Orchestrator maps agent names to agents.
type Orchestrator struct {
	opts   Options
	logger *slog.Logger

	// mu guards entries and project. SwitchProject holds it exclusively so
	// no call starts against a stale framing.
	mu      sync.RWMutex
	entries map[string]*entry
	project *models.ProjectContext

	// pmu guards the contents of project.
	pmu sync.RWMutex
}

// New creates an empty orchestrator.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Images == nil {
		opts.Images = conversation.NewImageLoader(conversation.DefaultImageCacheSize)
	}
	return &Orchestrator{
		opts:    opts,
		logger:  logger,
		entries: make(map[string]*entry),
	}
}

// Register creates an agent under name. Names are unique across variants.
// An empty model selects the default model. The new agent is framed against
// the current project when it is ready.
func (o *Orchestrator) Register(name string, variant models.Variant, kind schema.Kind, model string) (*agent.Agent, error) {
	const op = "register"
	if model == "" {
		model = o.opts.DefaultModel
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.entries[name]; exists {
		return nil, agent.NewError(op, name, agent.ErrDuplicateAgentName)
	}
	a, err := agent.New(agent.Options{
		Name:      name,
		Variant:   variant,
		Diagram:   kind,
		Model:     model,
		Completer: o.opts.Completer,
		Images:    o.opts.Images,
		Logger:    o.logger,
	})
	if err != nil {
		return nil, err
	}
	if o.project != nil {
		o.pmu.RLock()
		a.UpdateContext(o.project)
		o.pmu.RUnlock()
	}
	o.entries[name] = &entry{agent: a}
	o.logger.Info("agent registered", "agent", name, "variant", string(variant), "model", model)
	return a, nil
}

// Lookup returns the agent registered under name.
func (o *Orchestrator) Lookup(name string) (*agent.Agent, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	e, ok := o.entries[name]
	if !ok {
		return nil, agent.NewError("lookup", name, agent.ErrAgentNotFound)
	}
	return e.agent, nil
}

// Last returns the most recent artifact of the named agent, waiting for a
// call in flight to finish.
func (o *Orchestrator) Last(name string) (models.Artifact, bool, error) {
	o.mu.RLock()
	e, ok := o.entries[name]
	o.mu.RUnlock()
	if !ok {
		return models.Artifact{}, false, agent.NewError("last", name, agent.ErrAgentNotFound)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	art, ok := e.agent.Last()
	return art, ok, nil
}

// List describes every agent, sorted by name. Busy agents report the state
// observed before their current call.
func (o *Orchestrator) List() []Info {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]Info, 0, len(o.entries))
	for name, e := range o.entries {
		info := Info{
			Name:        name,
			Variant:     e.agent.Variant(),
			DiagramKind: e.agent.DiagramKind(),
			Model:       e.agent.Model(),
			State:       "busy",
		}
		if e.mu.TryLock() {
			info.State = e.agent.State().String()
			info.Turns = e.agent.Turns()
			e.mu.Unlock()
		}
		out = append(out, info)
	}
	slices.SortFunc(out, func(a, b Info) int { return cmp.Compare(a.Name, b.Name) })
	return out
}

// ListByVariant returns the sorted names of agents of one variant.
func (o *Orchestrator) ListByVariant(variant models.Variant) []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	var names []string
	for name, e := range o.entries {
		if e.agent.Variant() == variant {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Unregister removes an agent. An agent with a call in flight cannot be removed.
func (o *Orchestrator) Unregister(name string) error {
	const op = "unregister"
	o.mu.Lock()
	defer o.mu.Unlock()

	e, ok := o.entries[name]
	if !ok {
		return agent.NewError(op, name, agent.ErrAgentNotFound)
	}
	if !e.mu.TryLock() {
		return agent.NewError(op, name, agent.ErrAgentBusy)
	}
	delete(o.entries, name)
	e.mu.Unlock()
	o.logger.Info("agent unregistered", "agent", name)
	return nil
}

// ClearAll removes every agent, waiting for calls in flight to finish.
func (o *Orchestrator) ClearAll() {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, e := range o.entries {
		e.mu.Lock()
		e.mu.Unlock()
	}
	clear(o.entries)
	o.logger.Info("all agents cleared")
}

// SwitchProject binds pc as the current project and re-frames every agent
// before any further call is accepted. Calls in flight finish first.
// It returns the names of agents whose framing was refreshed.
func (o *Orchestrator) SwitchProject(pc *models.ProjectContext) []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.pmu.Lock()
	o.project = pc
	o.pmu.Unlock()

	var framed []string
	for name, e := range o.entries {
		e.mu.Lock()
		o.pmu.RLock()
		ok := e.agent.UpdateContext(pc)
		o.pmu.RUnlock()
		e.mu.Unlock()
		if ok {
			framed = append(framed, name)
		}
	}
	slices.Sort(framed)
	o.logger.Info("project switched", "project", projectName(pc), "agents", len(o.entries), "framed", len(framed))
	return framed
}

// Project returns a copy of the current project, nil when none is bound.
func (o *Orchestrator) Project() *models.ProjectContext {
	o.mu.RLock()
	defer o.mu.RUnlock()
	o.pmu.RLock()
	defer o.pmu.RUnlock()
	return o.snapshot(o.project)
}

// Generate runs generate on the named agent and records the artifact in the
// current project. A concurrent call on the same name fails with AgentBusy.
func (o *Orchestrator) Generate(ctx context.Context, name string) (models.Artifact, error) {
	return o.call(ctx, "generate", metrics.OpGenerate, name, func(a *agent.Agent, pc *models.ProjectContext) (models.Artifact, error) {
		return a.Generate(ctx, pc)
	})
}

// Edit runs edit on the named agent. attached is quoted as the current
// version of the artifact when non-empty.
func (o *Orchestrator) Edit(ctx context.Context, name, instruction, attached string) (models.Artifact, error) {
	return o.call(ctx, "edit", metrics.OpEdit, name, func(a *agent.Agent, pc *models.ProjectContext) (models.Artifact, error) {
		return a.Edit(ctx, pc, instruction, attached)
	})
}

type agentCall func(a *agent.Agent, pc *models.ProjectContext) (models.Artifact, error)

func (o *Orchestrator) call(ctx context.Context, op, metric, name string, fn agentCall) (models.Artifact, error) {
	o.mu.RLock()
	e, ok := o.entries[name]
	if !ok {
		o.mu.RUnlock()
		return models.Artifact{}, agent.NewError(op, name, agent.ErrAgentNotFound)
	}
	if !e.mu.TryLock() {
		o.mu.RUnlock()
		return models.Artifact{}, agent.NewError(op, name, agent.ErrAgentBusy)
	}
	shared := o.project
	o.mu.RUnlock()
	defer e.mu.Unlock()

	// The agent works on a private copy so other agents can render the shared
	// project while this call waits on the model.
	o.pmu.RLock()
	working := o.snapshot(shared)
	o.pmu.RUnlock()

	start := time.Now()
	art, err := fn(e.agent, working)
	if err != nil {
		o.recordFailure(metric)
		return models.Artifact{}, err
	}
	o.recordTiming(metric, time.Since(start))

	if shared != nil {
		o.pmu.Lock()
		err = shared.Apply(art)
		o.pmu.Unlock()
		if err != nil {
			return models.Artifact{}, agent.NewError(op, name, err)
		}
	}
	o.save(ctx, art)
	return art, nil
}

// save hands the artifact to the sink. Persistence failures are logged and
// counted; the artifact is already part of the project.
func (o *Orchestrator) save(ctx context.Context, art models.Artifact) {
	if o.opts.Sink == nil {
		return
	}
	start := time.Now()
	if err := o.opts.Sink.Save(ctx, art); err != nil {
		o.recordFailure(metrics.OpStoreSave)
		o.logger.Error("save artifact", "agent", art.Agent, "title", art.Title, "error", err)
		return
	}
	o.recordTiming(metrics.OpStoreSave, time.Since(start))
}

func (o *Orchestrator) snapshot(pc *models.ProjectContext) *models.ProjectContext {
	if pc == nil {
		return nil
	}
	return pc.Clone()
}

func (o *Orchestrator) recordTiming(op string, d time.Duration) {
	if o.opts.Metrics != nil {
		o.opts.Metrics.RecordTiming(op, d)
	}
}

func (o *Orchestrator) recordFailure(op string) {
	if o.opts.Metrics != nil {
		o.opts.Metrics.RecordFailure(op)
	}
}

func projectName(pc *models.ProjectContext) string {
	if pc == nil {
		return ""
	}
	return pc.ProjectName
}
