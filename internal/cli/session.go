package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/raphaelgruber/docforge/internal/conversation"
	"github.com/raphaelgruber/docforge/internal/llm"
	"github.com/raphaelgruber/docforge/internal/models"
	"github.com/raphaelgruber/docforge/internal/orchestrator"
	"github.com/raphaelgruber/docforge/internal/project"
	"github.com/raphaelgruber/docforge/internal/schema"
	"github.com/raphaelgruber/docforge/internal/store"
)

// session binds an orchestrator to a project directory and its stores.
type session struct {
	dir         string
	orch        *orchestrator.Orchestrator
	stores      store.Multi
	closeStores func(context.Context) error
}

func openSession(ctx context.Context, dir string) (*session, error) {
	pc, err := project.Load(dir)
	if err != nil {
		return nil, err
	}

	var completer llm.Completer
	if dryRun {
		completer = llm.Decorate(llm.NewPlaceholder(), cfg, collector, logger)
	} else {
		completer, err = llm.New(ctx, cfg, collector, logger)
		if err != nil {
			return nil, fmt.Errorf("init completer: %w", err)
		}
	}

	stores, closeStores, err := store.Open(ctx, cfg, dir, logger)
	if err != nil {
		return nil, fmt.Errorf("open stores: %w", err)
	}

	orch := orchestrator.New(orchestrator.Options{
		Completer:    completer,
		DefaultModel: cfg.LLMModel,
		Images:       conversation.NewImageLoader(cfg.ImageCacheSize),
		Sink:         stores,
		Metrics:      collector,
		Logger:       logger,
	})
	orch.SwitchProject(pc)

	if !pc.Ready() {
		logger.Warn("project is not ready for generation: requirements or feature tables missing", "project", pc.ProjectName)
	}
	return &session{dir: dir, orch: orch, stores: stores, closeStores: closeStores}, nil
}

// reload re-reads the project directory and re-frames every agent. Artifacts
// generated in this session survive even when no store writes them back to
// the project directory.
func (s *session) reload() ([]string, error) {
	pc, err := project.Load(s.dir)
	if err != nil {
		return nil, err
	}
	pc.KeepGenerated(s.orch.Project())
	return s.orch.SwitchProject(pc), nil
}

// refresh re-frames every agent with the artifacts produced so far.
func (s *session) refresh() []string {
	return s.orch.SwitchProject(s.orch.Project())
}

func (s *session) Close(ctx context.Context) error {
	if s.closeStores == nil {
		return nil
	}
	return s.closeStores(ctx)
}

// parseAgentType resolves "text", "prototype" or a diagram kind ("class",
// "ClassDiagram", "UML Class Diagram") into a variant and kind.
func parseAgentType(s string) (models.Variant, schema.Kind, error) {
	if v, err := models.ParseVariant(s); err == nil {
		if v == models.VariantDiagram {
			return "", "", fmt.Errorf("diagram agents need a kind, one of %s", kindList())
		}
		return v, "", nil
	}
	kind, err := schema.ParseKind(s)
	if err != nil {
		return "", "", fmt.Errorf("unknown agent type %q: use text, prototype or one of %s", s, kindList())
	}
	return models.VariantDiagram, kind, nil
}

// defaultAgentName names the agent a batch run registers for a type.
func defaultAgentName(v models.Variant, kind schema.Kind) string {
	switch v {
	case models.VariantTextDocument:
		return "docs"
	case models.VariantPrototype:
		return "prototype"
	default:
		return strings.ToLower(strings.TrimSuffix(string(kind), "Diagram")) + "-diagram"
	}
}

func kindList() string {
	kinds := schema.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
