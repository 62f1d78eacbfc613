// Package agent implements the generation agent: one conversation with the
// model that produces text documents, diagrams or the HTML prototype of a
// project.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/docforge/internal/conversation"
	"github.com/raphaelgruber/docforge/internal/extract"
	"github.com/raphaelgruber/docforge/internal/llm"
	"github.com/raphaelgruber/docforge/internal/models"
	"github.com/raphaelgruber/docforge/internal/prompt"
	"github.com/raphaelgruber/docforge/internal/schema"
)

// State is the lifecycle position of an agent.
type State int

const (
	StateUninitialized State = iota
	StateFramed
	StateGenerated
)

func (s State) String() string {
	switch s {
	case StateFramed:
		return "framed"
	case StateGenerated:
		return "generated"
	default:
		return "uninitialized"
	}
}

// Options configures a new agent.
type Options struct {
	Name    string
	Variant models.Variant
	// Diagram is required for diagram agents and ignored otherwise.
	Diagram   schema.Kind
	Model     string
	Completer llm.Completer
	// Images is shared between agents; nil reads images uncached.
	Images *conversation.ImageLoader
	Logger *slog.Logger
}

// Agent owns one conversation log. It is not safe for concurrent use; the
// orchestrator serializes calls per agent.
type Agent struct {
	name      string
	model     string
	target    prompt.Target
	schema    *schema.Schema
	completer llm.Completer
	log       *conversation.Log
	logger    *slog.Logger

	state         State
	attached      map[string]bool
	flowDescribed bool
	last          *models.Artifact
}

// New creates an agent in the uninitialized state.
func New(opts Options) (*Agent, error) {
	if strings.TrimSpace(opts.Name) == "" {
		return nil, errors.New("agent name is required")
	}
	if opts.Completer == nil {
		return nil, errors.New("completer is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &Agent{
		name:      opts.Name,
		model:     opts.Model,
		completer: opts.Completer,
		log:       conversation.NewLog(opts.Images, logger),
		logger:    logger.With("agent", opts.Name, "variant", string(opts.Variant)),
		attached:  make(map[string]bool),
	}

	switch opts.Variant {
	case models.VariantTextDocument:
		a.target = prompt.Text()
	case models.VariantPrototype:
		a.target = prompt.Prototype()
	case models.VariantDiagram:
		s, err := schema.Lookup(opts.Diagram)
		if err != nil {
			return nil, err
		}
		a.target = prompt.Diagram(opts.Diagram)
		a.schema = s
	default:
		return nil, fmt.Errorf("unknown variant: %q", opts.Variant)
	}
	return a, nil
}

// Name returns the registry name of the agent.
func (a *Agent) Name() string { return a.name }

// Variant returns the agent's variant tag.
func (a *Agent) Variant() models.Variant { return a.target.Variant }

// DiagramKind returns the diagram kind, empty for non-diagram agents.
func (a *Agent) DiagramKind() schema.Kind { return a.target.Diagram }

// Model returns the model identifier sent with every completion.
func (a *Agent) Model() string { return a.model }

// State returns the lifecycle state.
func (a *Agent) State() State { return a.state }

// Turns returns the number of turns in the conversation log.
func (a *Agent) Turns() int { return a.log.Len() }

// History returns a copy of the conversation log.
func (a *Agent) History() []conversation.Turn { return a.log.Snapshot() }

// Last returns the most recent artifact this agent produced.
func (a *Agent) Last() (models.Artifact, bool) {
	if a.last == nil {
		return models.Artifact{}, false
	}
	return *a.last, true
}

// Reset drops the conversation and returns the agent to the uninitialized state.
func (a *Agent) Reset() {
	a.log.Reset()
	clear(a.attached)
	a.flowDescribed = false
	a.last = nil
	a.state = StateUninitialized
}

// UpdateContext re-renders the framing prompt for pc. When the readiness gate
// fails nothing changes and false is returned. The first framing of an empty
// log is appended; later ones replace turn 0 and keep the history.
func (a *Agent) UpdateContext(pc *models.ProjectContext) bool {
	framing, ok := prompt.Render(pc, a.target)
	if !ok {
		a.logger.Info("project context not ready, framing unchanged")
		return false
	}
	if a.log.Len() == 0 {
		// Cannot fail on an empty log.
		_ = a.log.AppendFraming(framing)
	} else if err := a.log.ReplaceFramingTurn(framing); err != nil {
		a.logger.Error("replace framing turn", "error", err)
		return false
	}
	a.state = StateFramed
	return true
}

// Generate produces the next artifact and merges it into pc.
func (a *Agent) Generate(ctx context.Context, pc *models.ProjectContext) (models.Artifact, error) {
	const op = "generate"
	if !a.UpdateContext(pc) {
		return models.Artifact{}, NewError(op, a.name, ErrReadinessGate)
	}
	a.attachImages(pc)

	if a.needsFlowDescription(pc) {
		if err := a.describeFlow(ctx); err != nil {
			return models.Artifact{}, NewError(op, a.name, err)
		}
		a.log.AddUserText(prompt.PrototypeBuildRequest())
	} else if role, _ := a.log.LastRole(); role == conversation.RoleAssistant {
		a.log.AddUserText(prompt.Continue(a.target))
	}

	art, err := a.run(ctx, pc)
	if err != nil {
		return models.Artifact{}, NewError(op, a.name, err)
	}
	return art, nil
}

// Edit asks the model to rewrite an artifact according to instruction.
// attached is quoted verbatim as the current version when non-empty. The
// conversation must not be empty; a framing turn is enough.
func (a *Agent) Edit(ctx context.Context, pc *models.ProjectContext, instruction, attached string) (models.Artifact, error) {
	const op = "edit"
	if strings.TrimSpace(instruction) == "" {
		return models.Artifact{}, NewError(op, a.name, ErrEmptyInstruction)
	}
	if a.log.Len() == 0 {
		return models.Artifact{}, NewError(op, a.name, ErrNoHistory)
	}
	if !a.UpdateContext(pc) {
		return models.Artifact{}, NewError(op, a.name, ErrReadinessGate)
	}
	a.attachImages(pc)
	a.log.AddUserText(prompt.EditInstruction(a.target, instruction, attached))

	art, err := a.run(ctx, pc)
	if err != nil {
		return models.Artifact{}, NewError(op, a.name, err)
	}
	return art, nil
}

// run issues one completion over the full log, records the answer and
// extracts the artifact. pc is only touched after extraction succeeds.
func (a *Agent) run(ctx context.Context, pc *models.ProjectContext) (models.Artifact, error) {
	text, err := a.complete(ctx)
	if err != nil {
		return models.Artifact{}, err
	}

	art, err := a.extract(text)
	if err != nil {
		a.logger.Warn("extraction failed", "error", err)
		return models.Artifact{}, err
	}
	art.ID = uuid.New().String()
	art.Project = pc.ProjectName
	art.Agent = a.name
	art.Variant = a.target.Variant
	art.DiagramKind = string(a.target.Diagram)
	art.Raw = text
	art.CreatedAt = time.Now().UTC()

	if err := pc.Apply(art); err != nil {
		return models.Artifact{}, err
	}
	a.last = &art
	a.state = StateGenerated
	a.logger.Info("artifact generated", "title", art.Title, "turns", a.log.Len())
	return art, nil
}

func (a *Agent) complete(ctx context.Context) (string, error) {
	resp, err := a.completer.Complete(ctx, a.model, a.log.Snapshot())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrModelCall, err)
	}
	a.log.AppendModelResponse(resp.Text)
	return resp.Text, nil
}

func (a *Agent) extract(text string) (models.Artifact, error) {
	switch a.target.Variant {
	case models.VariantDiagram:
		v, err := extract.JSON(text, a.schema.Validate)
		if err != nil {
			return models.Artifact{}, err
		}
		return models.Artifact{Title: diagramName(v, a.target.Diagram), JSON: v}, nil
	case models.VariantPrototype:
		page, err := extract.HTML(text)
		if err != nil {
			return models.Artifact{}, err
		}
		return models.Artifact{Title: "Prototype", Body: page}, nil
	default:
		doc, err := extract.Markdown(text)
		if err != nil {
			return models.Artifact{}, err
		}
		return models.Artifact{Title: doc.Title, Body: doc.Body}, nil
	}
}

// attachImages appends every image of pc this agent has not sent yet.
// Unreadable files are logged and retried on the next call.
func (a *Agent) attachImages(pc *models.ProjectContext) {
	refs := pc.ReferenceImages
	if a.target.Variant == models.VariantDiagram {
		refs = pc.Images()
	}
	for _, ref := range refs {
		if a.attached[ref] {
			continue
		}
		if _, err := a.log.AddUserImage(ref); err != nil {
			a.logger.Warn("image not attached", "image", ref, "error", err)
			continue
		}
		a.attached[ref] = true
	}
}

func diagramName(v any, kind schema.Kind) string {
	if obj, ok := v.(map[string]any); ok {
		if name, ok := obj["diagramName"].(string); ok && strings.TrimSpace(name) != "" {
			return strings.TrimSpace(name)
		}
	}
	return string(kind)
}
