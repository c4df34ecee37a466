// Package progressview renders a long-running operation: a spinner, a
// progress bar, and the latest status line.
package progressview

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"

	"github.com/asavschaeffer/email-assassin/internal/theme"
)

// Model is the Bubble Tea model for a progress panel.
type Model struct {
	title    string
	status   string
	fraction float64
	bar      progress.Model
	spin     spinner.Model
	width    int
	height   int
}

// New creates a progress panel with the given title.
func New(title string, width, height int) Model {
	bar := progress.New(progress.WithDefaultGradient())
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(theme.ColorBlue)

	return Model{
		title:  title,
		bar:    bar,
		spin:   spin,
		width:  width,
		height: height,
	}
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spin.Tick
}

// SetTitle replaces the panel title.
func (m *Model) SetTitle(title string) {
	m.title = title
}

// SetProgress updates the fraction and status line.
func (m *Model) SetProgress(fraction float64, status string) {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	m.fraction = fraction
	m.status = status
}

// Update advances the spinner.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the panel.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	barWidth := m.width - 8
	if barWidth < 20 {
		barWidth = 20
	}
	if barWidth > 80 {
		barWidth = 80
	}
	m.bar.Width = barWidth

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		titleStyle.Render(m.title),
		m.bar.ViewAs(m.fraction),
		"",
		m.spin.View()+" "+m.status,
	)

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the panel dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
