package prompt

import (
	"fmt"
	"strings"

	"github.com/raphaelgruber/docforge/internal/models"
)

// EditInstruction builds the user turn for an edit. The model must return the
// whole artifact again, never a diff.
func EditInstruction(t Target, instruction, attached string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Revise the %s according to the instruction below.\n\n", t.Noun())
	if strings.TrimSpace(attached) != "" {
		writeSection(&b, "CURRENT VERSION", fenced(t.Variant.Fence(), attached))
	}
	writeSection(&b, "INSTRUCTION", instruction)
	writeSection(&b, "OUTPUT FORMAT", fmt.Sprintf(
		"Rewrite the ENTIRE %s with the change applied. Do not output a diff, a patch or only the changed part. "+
			"Keep everything that the instruction does not ask to change. "+
			"First write your reasoning, then exactly one ```%s fenced block with the full result.",
		t.Noun(), t.Variant.Fence()))
	return strings.TrimRight(b.String(), "\n")
}

// Continue asks for another answer after a previous one in the same conversation.
// Text agents move on to the next document; diagram and prototype agents
// produce their single artifact again against the refreshed context.
func Continue(t Target) string {
	switch t.Variant {
	case models.VariantTextDocument:
		return fmt.Sprintf("Generate the next %s for this project. Do not repeat a document you already produced. "+
			"Use the same output format: reasoning, then exactly one ```%s fenced block.", t.Noun(), t.Variant.Fence())
	default:
		return fmt.Sprintf("Generate the complete %s again so it matches the current project information and "+
			"everything produced so far. Use the same output format: reasoning, then exactly one ```%s fenced block.",
			t.Noun(), t.Variant.Fence())
	}
}

// PrototypeFlowRequest asks the model to describe the screens and navigation
// shown in the mockups before any code is written.
func PrototypeFlowRequest() string {
	return "Before writing any code, study the attached UI mockups. Describe every screen, its components and " +
		"the navigation flow between screens in detail, as a prompt another developer could build the prototype " +
		"from. Do not write code yet."
}

// PrototypeBuildRequest follows the flow description and asks for the page itself.
func PrototypeBuildRequest() string {
	return "Now build the prototype from your description as a single HTML file with inline CSS and vanilla " +
		"JavaScript. Navigation between screens must work on the client side. Do not include comments in the code. " +
		"Reply with your reasoning, then exactly one ```html fenced block from <!DOCTYPE html> to </html>."
}
