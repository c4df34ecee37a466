// Package senderlist is the results panel: summary metrics, an inbox
// composition breakdown, and the multi-select kill list of senders.
package senderlist

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/asavschaeffer/email-assassin/internal/aggregate"
	"github.com/asavschaeffer/email-assassin/internal/keys"
	"github.com/asavschaeffer/email-assassin/internal/theme"
)

// PurgeRequestMsg is dispatched when the user asks to remove the selected
// senders. Estimated is the locally-known message count; the purge may
// affect more once the server is re-queried.
type PurgeRequestMsg struct {
	Senders   []string
	Estimated int
}

// OpenUnsubscribeMsg is dispatched when the user asks to open the focused
// sender's unsubscribe link.
type OpenUnsubscribeMsg struct {
	URL string
}

// CloseMsg is dispatched when the user leaves the results panel.
type CloseMsg struct{}

const compositionRows = 10

// Model is the Bubble Tea model for the sender kill list.
type Model struct {
	keys     *keys.KeyMap
	table    []aggregate.SenderCount
	selected map[string]bool
	cursor   int
	offset   int

	totalScanned int
	partialNote  string

	width  int
	height int
}

// New creates an empty sender list.
func New(km *keys.KeyMap, width, height int) Model {
	return Model{
		keys:     km,
		selected: make(map[string]bool),
		width:    width,
		height:   height,
	}
}

// SetTable replaces the sender table after a scan or a reconcile. The
// selection is pruned to senders that still exist.
func (m *Model) SetTable(table []aggregate.SenderCount, totalScanned int, partialNote string) {
	m.table = table
	m.totalScanned = totalScanned
	m.partialNote = partialNote

	keep := make(map[string]bool, len(m.selected))
	for _, row := range table {
		if m.selected[row.Sender] {
			keep[row.Sender] = true
		}
	}
	m.selected = keep

	if m.cursor >= len(table) {
		m.cursor = len(table) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.clampOffset()
}

// Selected returns the selected senders in table order plus the estimated
// locally-known message count.
func (m Model) Selected() ([]string, int) {
	var senders []string
	estimated := 0
	for _, row := range m.table {
		if m.selected[row.Sender] {
			senders = append(senders, row.Sender)
			estimated += row.Count
		}
	}
	return senders, estimated
}

// Update handles navigation and selection keys.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		m.clampOffset()

	case key.Matches(keyMsg, m.keys.Down):
		if m.cursor < len(m.table)-1 {
			m.cursor++
		}
		m.clampOffset()

	case key.Matches(keyMsg, m.keys.Toggle):
		if row, ok := m.cursorRow(); ok {
			if m.selected[row.Sender] {
				delete(m.selected, row.Sender)
			} else {
				m.selected[row.Sender] = true
			}
		}

	case key.Matches(keyMsg, m.keys.Unsubscribe):
		if row, ok := m.cursorRow(); ok && row.UnsubscribeHTTP != "" {
			url := row.UnsubscribeHTTP
			return m, func() tea.Msg { return OpenUnsubscribeMsg{URL: url} }
		}

	case key.Matches(keyMsg, m.keys.Purge):
		senders, estimated := m.Selected()
		if len(senders) > 0 {
			return m, func() tea.Msg {
				return PurgeRequestMsg{Senders: senders, Estimated: estimated}
			}
		}

	case key.Matches(keyMsg, m.keys.Back):
		return m, func() tea.Msg { return CloseMsg{} }
	}

	return m, nil
}

// View renders the metrics, composition breakdown, and kill list.
func (m Model) View() string {
	if len(m.table) == 0 {
		return lipgloss.NewStyle().Padding(1, 2).Render(
			"No senders found. Press esc to scan again.",
		)
	}

	sections := []string{m.renderMetrics()}
	if m.partialNote != "" {
		sections = append(sections, theme.WarnStyle.Render(m.partialNote))
	}
	sections = append(sections, m.renderComposition(), m.renderList())

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// SetSize updates the panel dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.clampOffset()
}

func (m Model) cursorRow() (aggregate.SenderCount, bool) {
	if m.cursor < 0 || m.cursor >= len(m.table) {
		return aggregate.SenderCount{}, false
	}
	return m.table[m.cursor], true
}

func (m Model) renderMetrics() string {
	_, estimated := m.Selected()
	selectedCount := len(m.selected)

	metric := func(label string, value string) string {
		return theme.MetricLabelStyle.Render(label+" ") +
			theme.MetricValueStyle.Render(value)
	}

	parts := []string{
		metric("Scanned", fmt.Sprintf("%d", m.totalScanned)),
		metric("Senders", fmt.Sprintf("%d", len(m.table))),
	}
	if selectedCount > 0 {
		parts = append(parts, theme.MarkedStyle.Render(
			fmt.Sprintf("Selected %d (~%d messages)", selectedCount, estimated),
		))
	}

	return strings.Join(parts, "   ")
}

// renderComposition draws a textual top-N bar breakdown of the mailbox.
func (m Model) renderComposition() string {
	top := aggregate.TopN(m.table, compositionRows)
	if len(top) == 0 {
		return ""
	}

	maxCount := top[0].Count
	if maxCount < 1 {
		maxCount = 1
	}

	barSpace := m.width - 46
	if barSpace < 10 {
		barSpace = 10
	}
	if barSpace > 40 {
		barSpace = 40
	}

	var b strings.Builder
	b.WriteString(theme.MetricLabelStyle.Render("Inbox composition") + "\n")
	for _, row := range top {
		width := row.Count * barSpace / maxCount
		if width < 1 {
			width = 1
		}
		b.WriteString(fmt.Sprintf(
			"%-34s %6d %s\n",
			truncate(row.Sender, 34),
			row.Count,
			theme.BarStyle.Render(strings.Repeat("█", width)),
		))
	}
	return b.String()
}

func (m Model) renderList() string {
	visible := m.visibleRows()
	if visible < 1 {
		visible = 1
	}

	end := m.offset + visible
	if end > len(m.table) {
		end = len(m.table)
	}

	var b strings.Builder
	for i := m.offset; i < end; i++ {
		row := m.table[i]

		mark := "[ ]"
		if m.selected[row.Sender] {
			mark = theme.MarkedStyle.Render("[x]")
		}

		unsub := ""
		if row.UnsubscribeHTTP != "" {
			unsub = " ⛓"
		}

		line := fmt.Sprintf("%s %-40s %6d%s", mark, truncate(row.Sender, 40), row.Count, unsub)
		if i == m.cursor {
			b.WriteString(theme.SelectedItemStyle.Render(line))
		} else {
			b.WriteString(theme.ListItemStyle.Render(line))
		}
		b.WriteString("\n")
	}

	if len(m.table) > visible {
		b.WriteString(theme.HelpStyle.Render(
			fmt.Sprintf("%d-%d of %d", m.offset+1, end, len(m.table)),
		))
	}

	return b.String()
}

// visibleRows returns how many list rows fit under the metrics and
// composition sections.
func (m Model) visibleRows() int {
	reserved := compositionRows + 6
	if m.partialNote != "" {
		reserved++
	}
	return m.height - reserved
}

func (m *Model) clampOffset() {
	visible := m.visibleRows()
	if visible < 1 {
		visible = 1
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
