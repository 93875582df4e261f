// Package tui renders a live progress display for long-running pipeline
// stages (extraction, parsing), adapted from the Bubble Tea model style
// used throughout the teacher's cmd/nerd/ui package.
package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// StepMsg reports progress on one unit of work (one archive, one file).
type StepMsg struct {
	Label      string
	Current    int
	Total      int
	Err        error
}

// DoneMsg signals the pipeline stage has finished.
type DoneMsg struct{}

// ProgressModel is a Bubble Tea model driving a single progress bar plus a
// rolling label of the item currently being processed.
type ProgressModel struct {
	title    string
	bar      progress.Model
	label    string
	current  int
	total    int
	failures int
	finished bool
}

// NewProgressModel builds a ProgressModel for a named pipeline stage.
func NewProgressModel(title string) ProgressModel {
	return ProgressModel{
		title: title,
		bar:   progress.New(progress.WithDefaultGradient()),
	}
}

func (m ProgressModel) Init() tea.Cmd { return nil }

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.bar.Width = msg.Width - 4
		return m, nil
	case StepMsg:
		m.label = msg.Label
		m.current = msg.Current
		m.total = msg.Total
		if msg.Err != nil {
			m.failures++
		}
		return m, nil
	case DoneMsg:
		m.finished = true
		return m, tea.Quit
	}
	return m, nil
}

func (m ProgressModel) View() string {
	pct := 0.0
	if m.total > 0 {
		pct = float64(m.current) / float64(m.total)
	}
	header := titleStyle.Render(m.title)
	bar := m.bar.ViewAs(pct)
	status := labelStyle.Render(fmt.Sprintf("%d/%d  %s", m.current, m.total, m.label))
	if m.finished {
		status = doneStyle.Render(fmt.Sprintf("done: %d/%d (%d failures)", m.current, m.total, m.failures))
	}
	return fmt.Sprintf("%s\n%s\n%s\n", header, bar, status)
}

// RunProgress drives a ProgressModel in the foreground while updates arrive
// on the given channel from a pipeline stage running in another goroutine.
// It returns once the channel is closed.
func RunProgress(title string, updates <-chan StepMsg) error {
	p := tea.NewProgram(NewProgressModel(title))

	go func() {
		for u := range updates {
			p.Send(u)
		}
		p.Send(DoneMsg{})
	}()

	_, err := p.Run()
	return err
}
