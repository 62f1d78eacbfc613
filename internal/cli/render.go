package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/raphaelgruber/docforge/internal/models"
	"golang.org/x/term"
)

const defaultWrap = 100

// markdownSource turns an artifact into Markdown for display.
func markdownSource(a models.Artifact) (string, error) {
	content, err := a.Content()
	if err != nil {
		return "", err
	}
	switch a.Variant {
	case models.VariantTextDocument:
		return fmt.Sprintf("# %s\n\n%s\n", a.Title, content), nil
	default:
		return fmt.Sprintf("# %s\n\n```%s\n%s\n```\n", a.Title, a.Variant.Fence(), content), nil
	}
}

// renderMarkdown styles md for the terminal. Outside a terminal the plain
// style keeps the output free of escape codes.
func renderMarkdown(md string, tty bool) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(defaultWrap)}
	if tty {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 20 {
			opts[0] = glamour.WithWordWrap(w - 4)
		}
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle("notty"))
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("init markdown renderer: %w", err)
	}
	return r.Render(md)
}

// printArtifact writes a rendered artifact to w.
func printArtifact(w io.Writer, a models.Artifact) error {
	md, err := markdownSource(a)
	if err != nil {
		return err
	}
	tty := false
	if f, ok := w.(*os.File); ok {
		tty = term.IsTerminal(int(f.Fd()))
	}
	out, err := renderMarkdown(md, tty)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}
