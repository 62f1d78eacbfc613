package cli

import (
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/raphaelgruber/docforge/internal/service"
)

const pollInterval = 200 * time.Millisecond

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status     lipgloss.Color
	Success    lipgloss.Color
	Error      lipgloss.Color
	Hint       lipgloss.Color
	ProgressBg lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:     lipgloss.Color("#5FAFD7"), // light blue
	Success:    lipgloss.Color("#00D787"), // green
	Error:      lipgloss.Color("#FF005F"), // red
	Hint:       lipgloss.Color("#6C6C6C"), // dim gray
	ProgressBg: lipgloss.Color("#3A3A3A"), // dark gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// tickMsg triggers polling the job status
type tickMsg time.Time

// progressModel is the bubbletea model for job progress.
type progressModel struct {
	job      *service.Job
	snap     service.Job
	cancel   func()
	progress progress.Model
	theme    Theme
	done     bool
	quitting bool
}

func newProgressModel(job *service.Job, cancel func()) progressModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)
	return progressModel{
		job:      job,
		snap:     job.Snapshot(),
		cancel:   cancel,
		progress: prog,
		theme:    defaultTheme,
	}
}

// Init returns the initial command (start polling).
func (m progressModel) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.progress.Init(),
	)
}

// Update handles messages and returns the updated model.
func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}

	case tickMsg:
		m.snap = m.job.Snapshot()
		switch m.snap.Status {
		case service.JobStatusCompleted, service.JobStatusFailed:
			m.done = true
			return m, tea.Quit
		}
		return m, tickCmd()

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m progressModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m progressModel) renderContent() string {
	if m.done || m.quitting {
		return m.finalView()
	}

	var pct float64
	if m.snap.Total > 0 {
		pct = float64(m.snap.Progress) / float64(m.snap.Total)
	}

	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", m.snap.Status))
	progressBar := m.progress.ViewAs(pct)
	counts := fmt.Sprintf("%d/%d artifacts", m.snap.Progress, m.snap.Total)
	current := ""
	if m.snap.Current != "" {
		current = m.theme.hintStyle().Render("last: " + m.snap.Current)
	}
	hint := m.theme.hintStyle().Render("Press Ctrl+C to cancel")

	return fmt.Sprintf("%s %s %s %s\n%s\n", status, progressBar, counts, current, hint)
}

func (m progressModel) finalView() string {
	if m.quitting {
		return m.theme.hintStyle().Render(fmt.Sprintf("\nJob %s cancelled.\n", m.snap.ID))
	}
	return renderJobSummary(m.theme, m.snap)
}

// renderJobSummary formats a finished job. It is shared by the interactive
// and the plain output.
func renderJobSummary(theme Theme, job service.Job) string {
	var b strings.Builder
	if job.Status == service.JobStatusFailed {
		b.WriteString(theme.errorStyle().Render(fmt.Sprintf("✗ Job failed: %s", job.Error)) + "\n")
	} else {
		b.WriteString(theme.completedStyle().Render("✓ Completed") + "\n")
	}
	if r := job.Result; r != nil {
		fmt.Fprintf(&b, "\n  Artifacts generated: %d/%d\n", r.Generated, job.Total)
		for _, title := range r.Titles {
			fmt.Fprintf(&b, "    • %s\n", title)
		}
		if len(r.Errors) > 0 {
			b.WriteString(theme.errorStyle().Render(fmt.Sprintf("\nWarnings (%d):", len(r.Errors))) + "\n")
			for _, e := range r.Errors {
				fmt.Fprintf(&b, "  • %s\n", e)
			}
		}
	}
	return b.String()
}

// tickCmd returns a command that sends a tick after the poll interval.
func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// runJobProgress shows the progress UI until job finishes. cancel stops the job.
func runJobProgress(job *service.Job, cancel func()) error {
	model := newProgressModel(job, cancel)
	p := tea.NewProgram(model)

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("progress UI error: %w", err)
	}
	if m, ok := finalModel.(progressModel); ok && m.quitting {
		return fmt.Errorf("job %s cancelled", m.snap.ID)
	}
	return nil
}
