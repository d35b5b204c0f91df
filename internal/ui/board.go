// Package ui renders the board and table views. It is a pure consumer
// of the board store: every mutation goes through the store's entry
// points, and every repaint is driven by its change notifications
// arriving as messages.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/metalagman/taskdeck/internal/board"
	"github.com/metalagman/taskdeck/internal/model"
)

// RefreshMsg repaints the views from the store. The store subscription
// sends it through the program, so push events and debounce outcomes
// reach the UI on the bubbletea dispatch loop, never mid-render.
type RefreshMsg struct{}

type viewMode int

const (
	modeBoard viewMode = iota
	modeTable
	modeDetail
)

// Styles.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	columnStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	activeColumnStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(0, 1)

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))

	cursorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230"))

	subtaskStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	offlineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	onlineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Model is the bubbletea model for the task board.
type Model struct {
	store *board.Store

	mode      viewMode
	column    int
	cursor    int
	width     int
	height    int
	detail    string
	taskTable table.Model
}

// NewModel creates the board model over a loaded store.
func NewModel(store *board.Store) Model {
	cols := []table.Column{
		{Title: "Order", Width: 5},
		{Title: "Title", Width: 40},
		{Title: "Status", Width: 12},
		{Title: "Assignee", Width: 12},
		{Title: "Feature", Width: 16},
	}
	t := table.New(table.WithColumns(cols), table.WithFocused(true))
	return Model{store: store, taskTable: t}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.taskTable.SetHeight(maxInt(m.height-6, 3))
		return m, nil

	case RefreshMsg:
		m.clampCursor()
		if m.mode == modeTable {
			m.taskTable.SetRows(m.tableRows())
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.mode == modeTable {
		var cmd tea.Cmd
		m.taskTable, cmd = m.taskTable.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.mode == modeDetail {
		switch msg.String() {
		case "q", "esc", "enter":
			m.mode = modeBoard
		case "ctrl+c":
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "tab":
		if m.mode == modeBoard {
			m.mode = modeTable
			m.taskTable.SetRows(m.tableRows())
		} else {
			m.mode = modeBoard
		}
		return m, nil
	}

	if m.mode == modeTable {
		var cmd tea.Cmd
		m.taskTable, cmd = m.taskTable.Update(msg)
		return m, cmd
	}

	statuses := model.Statuses()
	switch msg.String() {
	case "left", "h":
		if m.column > 0 {
			m.column--
			m.clampCursor()
		}
	case "right", "l":
		if m.column < len(statuses)-1 {
			m.column++
			m.clampCursor()
		}
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.columnTasks())-1 {
			m.cursor++
		}
	case "K", "shift+up":
		// Optimistic reorder; persistence is debounced behind it.
		if t, ok := m.selected(); ok && m.cursor > 0 {
			m.store.Reorder(t.ID, m.cursor-1, statuses[m.column])
			m.cursor--
		}
	case "J", "shift+down":
		if t, ok := m.selected(); ok && m.cursor < len(m.columnTasks())-1 {
			m.store.Reorder(t.ID, m.cursor+1, statuses[m.column])
			m.cursor++
		}
	case "[", "H":
		if t, ok := m.selected(); ok && m.column > 0 {
			m.store.Move(t.ID, statuses[m.column-1])
		}
	case "]", "L":
		if t, ok := m.selected(); ok && m.column < len(statuses)-1 {
			m.store.Move(t.ID, statuses[m.column+1])
		}
	case "enter":
		if t, ok := m.selected(); ok {
			m.detail = renderDetail(t, m.store.Subtasks(t.ID), m.width)
			m.mode = modeDetail
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" taskdeck ")
	conn := offlineStyle.Render("● offline")
	if m.store.Connected() {
		conn = onlineStyle.Render("● live")
	}
	header := lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", conn)

	var body, help string
	switch m.mode {
	case modeDetail:
		body = m.detail
		help = helpStyle.Render("esc: back | ctrl+c: quit")
	case modeTable:
		body = m.taskTable.View()
		help = helpStyle.Render("tab: board view | q: quit")
	default:
		body = m.renderColumns()
		help = helpStyle.Render("←→: column | ↑↓: cursor | K/J: reorder | [/]: move | enter: detail | tab: table | q: quit")
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", header, body, help)
}

func (m Model) renderColumns() string {
	statuses := model.Statuses()
	colWidth := maxInt(m.width/len(statuses)-4, 16)

	rendered := make([]string, 0, len(statuses))
	for i, status := range statuses {
		tasks := m.store.OrderedTasks(status)
		var b strings.Builder
		b.WriteString(headerStyle.Render(fmt.Sprintf("%s (%d)", columnTitle(status), len(tasks))))
		b.WriteString("\n")
		for j, t := range tasks {
			line := fmt.Sprintf("%d. %s", t.Order, truncate(t.Title, colWidth-6))
			if t.Feature != "" {
				line += " " + featureBadge(t)
			}
			if n := len(m.store.Subtasks(t.ID)); n > 0 {
				line += subtaskStyle.Render(fmt.Sprintf(" +%d", n))
			}
			if i == m.column && j == m.cursor {
				line = cursorStyle.Render("> " + line)
			} else {
				line = "  " + line
			}
			b.WriteString(line)
			b.WriteString("\n")
		}

		style := columnStyle
		if i == m.column {
			style = activeColumnStyle
		}
		rendered = append(rendered, style.Width(colWidth).Render(b.String()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) tableRows() []table.Row {
	var rows []table.Row
	for _, status := range model.Statuses() {
		for _, t := range m.store.OrderedTasks(status) {
			rows = append(rows, table.Row{
				fmt.Sprintf("%d", t.Order),
				t.Title,
				string(t.Status),
				string(t.Assignee),
				t.Feature,
			})
		}
	}
	return rows
}

func (m Model) columnTasks() []model.Task {
	return m.store.OrderedTasks(model.Statuses()[m.column])
}

func (m Model) selected() (model.Task, bool) {
	tasks := m.columnTasks()
	if m.cursor < 0 || m.cursor >= len(tasks) {
		return model.Task{}, false
	}
	return tasks[m.cursor], true
}

func (m *Model) clampCursor() {
	if n := len(m.columnTasks()); m.cursor >= n {
		m.cursor = maxInt(n-1, 0)
	}
}

// renderDetail shows one task with its markdown description rendered
// through glamour.
func renderDetail(t model.Task, subtasks []model.Task, width int) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(t.Title))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s · #%d · %s", columnTitle(t.Status), t.Order, t.Assignee))
	if t.Feature != "" {
		b.WriteString(" · " + featureBadge(t))
	}
	b.WriteString("\n")

	if t.Description != "" {
		rendered := t.Description
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(maxInt(minInt(width-4, 100), 40)),
		)
		if err == nil {
			if out, rerr := r.Render(t.Description); rerr == nil {
				rendered = out
			}
		}
		b.WriteString(rendered)
	}

	if len(subtasks) > 0 {
		b.WriteString("\n" + headerStyle.Render("Subtasks") + "\n")
		for _, st := range subtasks {
			b.WriteString(fmt.Sprintf("  - [%s] %s\n", st.Status, st.Title))
		}
	}
	return b.String()
}

func featureBadge(t model.Task) string {
	color := t.FeatureColor
	if color == "" {
		color = "63"
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("[" + t.Feature + "]")
}

func columnTitle(status model.Status) string {
	switch status {
	case model.StatusBacklog:
		return "Backlog"
	case model.StatusInProgress:
		return "In Progress"
	case model.StatusReview:
		return "Review"
	case model.StatusComplete:
		return "Complete"
	}
	return string(status)
}

func truncate(s string, width int) string {
	if width < 1 || len(s) <= width {
		return s
	}
	if width <= 3 {
		return s[:width]
	}
	return s[:width-3] + "..."
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
