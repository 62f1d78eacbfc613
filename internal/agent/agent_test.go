package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/raphaelgruber/docforge/internal/conversation"
	"github.com/raphaelgruber/docforge/internal/extract"
	"github.com/raphaelgruber/docforge/internal/llm"
	"github.com/raphaelgruber/docforge/internal/models"
	"github.com/raphaelgruber/docforge/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const classResponse = "Reasoning about the domain.\n```json\n{\"diagramName\":\"Demo\",\"classes\":[{\"name\":\"User\"}]}\n```"

func readyContext() *models.ProjectContext {
	return &models.ProjectContext{
		ProjectName: "demo",
		Requirements: models.Requirements{
			Input:    "Excel sheets",
			Output:   "web app",
			Features: map[string]string{"login": "user auth"},
			Further:  "none",
		},
		TabularDescriptions: []string{"id,name\n1,Alice\n"},
	}
}

func newAgent(t *testing.T, variant models.Variant, kind schema.Kind, c llm.Completer) *Agent {
	t.Helper()
	a, err := New(Options{Name: "a1", Variant: variant, Diagram: kind, Model: "test-model", Completer: c})
	require.NoError(t, err)
	return a
}

func writePNG(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mock.png")
	require.NoError(t, os.WriteFile(path, []byte{0x89, 'P', 'N', 'G'}, 0o644))
	return path
}

func textResponse(title, body string) string {
	return fmt.Sprintf("Thoughts.\n```markdown\n# %s\n\n%s\n```", title, body)
}

func TestNew_Validation(t *testing.T) {
	c := llm.NewScripted()
	tests := []struct {
		name string
		opts Options
	}{
		{"missing name", Options{Variant: models.VariantTextDocument, Completer: c}},
		{"missing completer", Options{Name: "x", Variant: models.VariantTextDocument}},
		{"unknown variant", Options{Name: "x", Variant: "poem", Completer: c}},
		{"unknown diagram kind", Options{Name: "x", Variant: models.VariantDiagram, Diagram: "Gantt", Completer: c}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts)
			assert.Error(t, err)
		})
	}
}

func TestGenerate_ClassDiagramScenario(t *testing.T) {
	c := llm.NewScripted(classResponse)
	a := newAgent(t, models.VariantDiagram, schema.ClassDiagram, c)
	pc := readyContext()

	art, err := a.Generate(context.Background(), pc)
	require.NoError(t, err)

	want := map[string]any{"diagramName": "Demo", "classes": []any{map[string]any{"name": "User"}}}
	assert.Equal(t, want, art.JSON)
	assert.Equal(t, "Demo", art.Title)
	assert.Equal(t, models.VariantDiagram, art.Variant)
	assert.Equal(t, string(schema.ClassDiagram), art.DiagramKind)
	assert.Equal(t, "demo", art.Project)
	assert.NotEmpty(t, art.ID)

	stored, ok := pc.Diagram("ClassDiagram/Demo")
	require.True(t, ok)
	assert.Equal(t, want, stored)

	assert.Equal(t, 2, a.Turns())
	assert.Equal(t, StateGenerated, a.State())

	calls := c.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "test-model", calls[0].Model)
	require.Len(t, calls[0].Turns, 1)
	assert.Contains(t, calls[0].Turns[0].Text(), "UML Class Diagram")
}

func TestUpdateContext_AppendThenReplace(t *testing.T) {
	a := newAgent(t, models.VariantTextDocument, "", llm.NewScripted())
	pc := readyContext()

	require.True(t, a.UpdateContext(pc))
	assert.Equal(t, 1, a.Turns())
	assert.Equal(t, StateFramed, a.State())

	pc.TechStack = "Go"
	require.True(t, a.UpdateContext(pc))
	assert.Equal(t, 1, a.Turns())
	assert.Contains(t, a.History()[0].Text(), "Tech stack: Go")
}

func TestReadinessGate_NoLogMutation(t *testing.T) {
	c := llm.NewScripted(classResponse)
	a := newAgent(t, models.VariantDiagram, schema.ClassDiagram, c)
	pc := readyContext()
	pc.TabularDescriptions = nil

	assert.False(t, a.UpdateContext(pc))
	assert.Equal(t, 0, a.Turns())

	_, err := a.Generate(context.Background(), pc)
	require.Error(t, err)
	assert.Equal(t, KindReadinessGateFailed, KindOf(err))
	assert.True(t, KindOf(err).IsUsage())
	assert.Equal(t, 0, a.Turns())
	assert.Equal(t, StateUninitialized, a.State())
	assert.Empty(t, c.Calls())
}

func TestEdit_Preconditions(t *testing.T) {
	a := newAgent(t, models.VariantTextDocument, "", llm.NewScripted())
	pc := readyContext()

	_, err := a.Edit(context.Background(), pc, "  ", "")
	assert.Equal(t, KindEmptyInstruction, KindOf(err))

	_, err = a.Edit(context.Background(), pc, "shorten it", "")
	assert.Equal(t, KindNoHistory, KindOf(err))
	assert.ErrorIs(t, err, ErrNoHistory)
	assert.Equal(t, 0, a.Turns())
}

func TestEdit_AfterFramingOnly(t *testing.T) {
	c := llm.NewScripted("```json\n{\"diagramName\":\"Demo\",\"classes\":[{\"name\":\"Order\"}]}\n```")
	a := newAgent(t, models.VariantDiagram, schema.ClassDiagram, c)
	pc := readyContext()
	require.True(t, a.UpdateContext(pc))
	require.Equal(t, 1, a.Turns())

	art, err := a.Edit(context.Background(), pc, "add an Order class", `{"diagramName":"Demo","classes":[]}`)
	require.NoError(t, err)
	assert.Equal(t, "Demo", art.Title)
	assert.Equal(t, StateGenerated, a.State())

	// framing, edit instruction, response
	history := a.History()
	require.Len(t, history, 3)
	assert.Contains(t, history[1].Text(), "add an Order class")
}

func TestGenerate_ModelCallFailed(t *testing.T) {
	c := llm.NewScripted()
	c.PushError(errors.New("connection refused"))
	a := newAgent(t, models.VariantTextDocument, "", c)
	pc := readyContext()

	_, err := a.Generate(context.Background(), pc)
	require.Error(t, err)
	assert.Equal(t, KindModelCallFailed, KindOf(err))
	assert.False(t, KindOf(err).IsUsage())
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 1, a.Turns(), "only the framing turn is present")
	assert.Equal(t, 0, pc.GeneratedTextDocs.Len())
}

func TestGenerate_ExtractionFailures(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     Kind
		wantRaw  string
	}{
		{
			name:     "no fence",
			response: `{"diagramName":"Demo","classes":[]}`,
			want:     KindNoValidStructuredOutput,
			wantRaw:  `{"diagramName":"Demo","classes":[]}`,
		},
		{
			name:     "missing required key",
			response: "```json\n{\"diagramName\":\"Demo\"}\n```",
			want:     KindSchemaViolation,
			wantRaw:  `{"diagramName":"Demo"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAgent(t, models.VariantDiagram, schema.ClassDiagram, llm.NewScripted(tt.response))
			pc := readyContext()

			_, err := a.Generate(context.Background(), pc)
			require.Error(t, err)
			assert.Equal(t, tt.want, KindOf(err))

			var agentErr *Error
			require.ErrorAs(t, err, &agentErr)
			assert.Equal(t, tt.wantRaw, agentErr.Raw)

			assert.Equal(t, 0, pc.GeneratedDiagrams.Len(), "context untouched on failure")
			assert.Equal(t, 2, a.Turns(), "the raw response stays in the log")
			assert.Equal(t, StateFramed, a.State())
		})
	}
}

func TestGenerate_RepeatedCallsGrowLogMonotonically(t *testing.T) {
	c := llm.NewScripted(textResponse("Overview", "first"), textResponse("Login Spec", "second"))
	a := newAgent(t, models.VariantTextDocument, "", c)
	pc := readyContext()
	ctx := context.Background()

	_, err := a.Generate(ctx, pc)
	require.NoError(t, err)
	before := a.History()

	art, err := a.Generate(ctx, pc)
	require.NoError(t, err)
	assert.Equal(t, "Login Spec", art.Title)

	after := a.History()
	require.Len(t, after, 4)
	for i := 1; i < len(before); i++ {
		assert.Equal(t, before[i], after[i], "turn %d changed", i)
	}
	assert.Contains(t, after[2].Text(), "Generate the next")
	assert.Equal(t, conversation.RoleAssistant, after[3].Role)

	assert.Equal(t, []string{"Overview", "Login Spec"}, pc.GeneratedTextDocs.Keys())

	// The second framing already lists the first document.
	second := c.Calls()[1].Turns[0].Text()
	assert.Contains(t, second, "=== Overview ===")
}

func TestGenerate_AttachesImagesOnce(t *testing.T) {
	c := llm.NewScripted(textResponse("One", "a"), textResponse("Two", "b"))
	a := newAgent(t, models.VariantTextDocument, "", c)
	pc := readyContext()
	pc.ReferenceImages = []string{writePNG(t)}
	pc.DiagramImages = []string{writePNG(t)}

	ctx := context.Background()
	_, err := a.Generate(ctx, pc)
	require.NoError(t, err)
	_, err = a.Generate(ctx, pc)
	require.NoError(t, err)

	images := 0
	for _, turn := range a.History() {
		if turn.HasImage() {
			images++
		}
	}
	assert.Equal(t, 1, images, "text agents only send reference images, once")
}

func TestGenerate_DiagramAgentAttachesAllImages(t *testing.T) {
	a := newAgent(t, models.VariantDiagram, schema.ClassDiagram, llm.NewScripted(classResponse))
	pc := readyContext()
	pc.ReferenceImages = []string{writePNG(t)}
	pc.DiagramImages = []string{writePNG(t), filepath.Join(t.TempDir(), "legacy.gif")}

	_, err := a.Generate(context.Background(), pc)
	require.NoError(t, err)
	// framing, two images, response
	assert.Equal(t, 4, a.Turns())
}

func TestGenerate_PrototypeDescribesFlowFirst(t *testing.T) {
	page := "<!DOCTYPE html><html><body>app</body></html>"
	c := llm.NewScripted(
		"Screen 1 shows a login form.",
		"Here it is:\n```html\n"+page+"\n```",
		"Updated:\n```html\n"+page+"\n```",
	)
	a := newAgent(t, models.VariantPrototype, "", c)
	pc := readyContext()
	pc.ReferenceImages = []string{writePNG(t)}

	art, err := a.Generate(context.Background(), pc)
	require.NoError(t, err)
	assert.Equal(t, page, art.Body)
	assert.Equal(t, page, pc.PrototypeCode)

	history := a.History()
	require.Len(t, history, 6)
	assert.True(t, history[1].HasImage())
	assert.Contains(t, history[2].Text(), "Describe every screen")
	assert.Equal(t, "Screen 1 shows a login form.", history[3].Text())
	assert.Contains(t, history[4].Text(), "single HTML file")

	_, err = a.Generate(context.Background(), pc)
	require.NoError(t, err)
	assert.Len(t, c.Calls(), 3, "the flow is only described once")
	assert.Contains(t, a.History()[6].Text(), "again")
}

func TestGenerate_PrototypeWithoutImagesSkipsFlow(t *testing.T) {
	c := llm.NewScripted("```html\n<!DOCTYPE html><html></html>\n```")
	a := newAgent(t, models.VariantPrototype, "", c)

	_, err := a.Generate(context.Background(), readyContext())
	require.NoError(t, err)
	assert.Equal(t, 2, a.Turns())
}

func TestEdit_QuotesAttachedArtifact(t *testing.T) {
	c := llm.NewScripted(textResponse("Overview", "first"), textResponse("Overview", "rewritten"))
	a := newAgent(t, models.VariantTextDocument, "", c)
	pc := readyContext()
	ctx := context.Background()

	first, err := a.Generate(ctx, pc)
	require.NoError(t, err)

	art, err := a.Edit(ctx, pc, "Make it shorter", first.Body)
	require.NoError(t, err)
	assert.Equal(t, "rewritten", art.Body)

	body, ok := pc.GeneratedTextDocs.Get("Overview")
	require.True(t, ok)
	assert.Equal(t, "rewritten", body)
	assert.Equal(t, 1, pc.GeneratedTextDocs.Len())

	sent := c.Calls()[1].Turns
	editTurn := sent[len(sent)-1].Text()
	assert.Contains(t, editTurn, "[CURRENT VERSION]\n```markdown\nfirst\n```")
	assert.Contains(t, editTurn, "[INSTRUCTION]\nMake it shorter")

	last, ok := a.Last()
	require.True(t, ok)
	assert.Equal(t, art.ID, last.ID)
}

func TestEdit_GateFailureLeavesHistory(t *testing.T) {
	c := llm.NewScripted(textResponse("Overview", "first"))
	a := newAgent(t, models.VariantTextDocument, "", c)
	pc := readyContext()

	_, err := a.Generate(context.Background(), pc)
	require.NoError(t, err)

	pc.Requirements.Further = ""
	_, err = a.Edit(context.Background(), pc, "shorter", "")
	assert.Equal(t, KindReadinessGateFailed, KindOf(err))
	assert.Equal(t, 2, a.Turns())
}

func TestReset(t *testing.T) {
	a := newAgent(t, models.VariantDiagram, schema.ClassDiagram, llm.NewScripted(classResponse))
	_, err := a.Generate(context.Background(), readyContext())
	require.NoError(t, err)

	a.Reset()
	assert.Equal(t, 0, a.Turns())
	assert.Equal(t, StateUninitialized, a.State())
	_, ok := a.Last()
	assert.False(t, ok)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{nil, KindUnknown},
		{errors.New("other"), KindUnknown},
		{conversation.ErrEmptyConversation, KindEmptyConversation},
		{fmt.Errorf("wrapped: %w", extract.ErrNoValidStructuredOutput), KindNoValidStructuredOutput},
		{&extract.Error{Kind: extract.ErrSchemaViolation}, KindSchemaViolation},
		{NewError("lookup", "x", ErrAgentNotFound), KindAgentNotFound},
		{ErrAgentBusy, KindAgentBusy},
	}
	for _, tt := range tests {
		name := "nil"
		if tt.err != nil {
			name = tt.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestNewError_KeepsExistingKind(t *testing.T) {
	inner := NewError("generate", "a", ErrReadinessGate)
	outer := NewError("orchestrator", "a", fmt.Errorf("wrap: %w", inner))
	assert.Equal(t, KindReadinessGateFailed, KindOf(outer))
	assert.True(t, strings.Contains(outer.Error(), "project context is not ready"))
	assert.Nil(t, NewError("noop", "a", nil))
}
