package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/justapithecus/strata/export"
	"github.com/justapithecus/strata/metrics"
)

// pollInterval is how often the view refreshes its counter snapshot.
const pollInterval = 200 * time.Millisecond

// DoneMsg ends the progress view. The export command sends it when the
// run loop returns.
type DoneMsg struct {
	Summary export.Summary
	Err     error
}

type tickMsg time.Time

type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// ProgressModel is a Bubble Tea model showing live export counters.
// It polls the run's metrics collector; the export loop itself runs on
// another goroutine and reports completion via DoneMsg.
type ProgressModel struct {
	collector *metrics.Collector
	spinner   spinner.Model

	snap     metrics.Snapshot
	summary  export.Summary
	err      error
	done     bool
	quitting bool
	width    int
}

// NewProgressModel creates a progress model over the run's collector.
func NewProgressModel(collector *metrics.Collector) ProgressModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(primaryColor)
	return ProgressModel{
		collector: collector,
		spinner:   sp,
		snap:      collector.Snapshot(),
	}
}

// Init implements tea.Model.
func (m ProgressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick())
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case tickMsg:
		m.snap = m.collector.Snapshot()
		if m.done {
			return m, nil
		}
		return m, tick()

	case DoneMsg:
		m.snap = m.collector.Snapshot()
		m.summary = msg.Summary
		m.err = msg.Err
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m ProgressModel) View() string {
	if m.quitting && !m.done {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("strata export"))
	b.WriteString("\n\n")

	boxes := []string{
		m.renderStatBox("Records", m.snap.RecordsSubmitted, highlightColor),
		m.renderStatBox("Chunks", m.snap.ChunksClosed, successColor),
		m.renderStatBox("Rotations", m.snap.Rotations, warningColor),
		m.renderStatBox("Failures", m.snap.SinkOpenFailure+m.snap.SinkWriteFailure, errorColor),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Job:"), ValueStyle.Render(m.snap.JobID)))
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Format:"), ValueStyle.Render(m.snap.Format)))
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Backend:"), ValueStyle.Render(m.snap.Backend)))
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("export failed: %v", m.err)))
	case m.done:
		b.WriteString(SuccessStyle.Render(fmt.Sprintf(
			"done: %d records in %d chunks", m.summary.Records, m.summary.Chunks)))
	default:
		b.WriteString(m.spinner.View() + " exporting")
	}

	b.WriteString("\n")
	b.WriteString(HelpStyle.Render("Press q or Ctrl+C to quit"))
	return b.String()
}

func (m ProgressModel) renderStatBox(label string, value int64, color lipgloss.Color) string {
	boxStyle := StatBoxStyle.BorderForeground(color)

	valueStr := StatValueStyle.Foreground(color).Render(fmt.Sprintf("%d", value))
	labelStr := StatLabelStyle.Render(label)

	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr))
}

// RunProgress runs the progress view until a DoneMsg arrives. The
// returned program is handed to the caller first so the export
// goroutine can Send its completion message.
func RunProgress(collector *metrics.Collector) *tea.Program {
	return tea.NewProgram(NewProgressModel(collector))
}
