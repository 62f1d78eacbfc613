package agent

import (
	"context"

	"github.com/raphaelgruber/docforge/internal/models"
	"github.com/raphaelgruber/docforge/internal/prompt"
)

// needsFlowDescription reports whether a prototype agent still has to ask the
// model to describe the mockups before building the page.
func (a *Agent) needsFlowDescription(pc *models.ProjectContext) bool {
	return a.target.Variant == models.VariantPrototype && !a.flowDescribed && len(pc.ReferenceImages) > 0
}

// describeFlow runs the first prototype step. The description stays in the
// log as context for the build request.
func (a *Agent) describeFlow(ctx context.Context) error {
	a.log.AddUserText(prompt.PrototypeFlowRequest())
	if _, err := a.complete(ctx); err != nil {
		return err
	}
	a.flowDescribed = true
	a.logger.Debug("prototype flow described", "turns", a.log.Len())
	return nil
}
