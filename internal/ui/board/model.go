package board

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/task-focus/internal/keys"
	"github.com/nhle/task-focus/internal/model"
	"github.com/nhle/task-focus/internal/priority"
	"github.com/nhle/task-focus/internal/theme"
)

// SelectedTaskMsg is sent when the user opens a task.
type SelectedTaskMsg struct {
	Task     priority.Annotated
	Quadrant priority.Quadrant
}

// Model is the four-quadrant board view.
type Model struct {
	board    priority.Board
	keys     *keys.KeyMap
	quadrant int
	rows     [4]int
	width    int
	height   int
	loaded   bool
}

// New creates an empty board.
func New(k *keys.KeyMap, width, height int) Model {
	return Model{keys: k, width: width, height: height}
}

// SetBoard replaces the board contents, keeping the cursor on the same
// task when it is still present.
func (m *Model) SetBoard(b priority.Board) {
	selectedID := ""
	if a, ok := m.Selected(); ok {
		selectedID = a.ID
	}

	m.board = b
	m.loaded = true

	if selectedID != "" {
		for qi, bucket := range b {
			for ri, a := range bucket.Tasks {
				if a.ID == selectedID {
					m.quadrant, m.rows[qi] = qi, ri
					return
				}
			}
		}
	}
	for qi := range m.rows {
		if n := len(b[qi].Tasks); m.rows[qi] >= n {
			m.rows[qi] = max(n-1, 0)
		}
	}
}

// Board returns the board being shown.
func (m Model) Board() priority.Board { return m.board }

// Selected returns the task under the cursor.
func (m Model) Selected() (priority.Annotated, bool) {
	tasks := m.board[m.quadrant].Tasks
	row := m.rows[m.quadrant]
	if row < 0 || row >= len(tasks) {
		return priority.Annotated{}, false
	}
	return tasks[row], true
}

// Update handles navigation keys.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Down):
		if m.rows[m.quadrant] < len(m.board[m.quadrant].Tasks)-1 {
			m.rows[m.quadrant]++
		}
	case key.Matches(keyMsg, m.keys.Up):
		if m.rows[m.quadrant] > 0 {
			m.rows[m.quadrant]--
		}
	case key.Matches(keyMsg, m.keys.Right):
		m.quadrant = (m.quadrant + 1) % len(m.board)
	case key.Matches(keyMsg, m.keys.Left):
		m.quadrant = (m.quadrant + len(m.board) - 1) % len(m.board)
	case key.Matches(keyMsg, m.keys.Select):
		if a, ok := m.Selected(); ok {
			q := m.board[m.quadrant].Quadrant
			return m, func() tea.Msg { return SelectedTaskMsg{Task: a, Quadrant: q} }
		}
	}
	return m, nil
}

// View renders the quadrants as a 2x2 grid.
func (m Model) View() string {
	if !m.loaded {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("Loading tasks...")
	}
	if m.board.Len() == 0 {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("Nothing to do.\n\nPress n to add a task.")
	}

	cellWidth := max(m.width/2-2, 20)
	cellHeight := max(m.height/2-2, 3)

	cells := make([]string, len(m.board))
	for i := range m.board {
		cells[i] = m.renderQuadrant(i, cellWidth, cellHeight)
	}

	top := lipgloss.JoinHorizontal(lipgloss.Top, cells[0], cells[1])
	bottom := lipgloss.JoinHorizontal(lipgloss.Top, cells[2], cells[3])
	return lipgloss.JoinVertical(lipgloss.Left, top, bottom)
}

func (m Model) renderQuadrant(i, width, height int) string {
	bucket := m.board[i]
	title := theme.QuadrantTitleStyle(bucket.Quadrant).
		Render(fmt.Sprintf("%s (%d)", bucket.Quadrant, len(bucket.Tasks)))

	lines := []string{title}
	visible := height - 1
	start := 0
	if row := m.rows[i]; row >= visible {
		start = row - visible + 1
	}
	for ri := start; ri < len(bucket.Tasks) && ri < start+visible; ri++ {
		lines = append(lines, m.renderRow(bucket.Tasks[ri], i == m.quadrant && ri == m.rows[i], width-2))
	}

	style := theme.QuadrantStyle
	if i == m.quadrant {
		style = theme.ActiveQuadrantStyle
	}
	return style.Width(width).Height(height).Render(strings.Join(lines, "\n"))
}

func (m Model) renderRow(a priority.Annotated, selected bool, width int) string {
	marker := " "
	switch a.Suggestion {
	case priority.SuggestionOverdue:
		marker = "!"
	case priority.SuggestionReasonMissing:
		marker = "?"
	}

	badge := theme.PriorityStyle(a.Priority).Render(priorityLetter(a.Priority))
	due := ""
	if a.HasDueDate() {
		due = " " + lipgloss.NewStyle().Foreground(theme.ColorGray).Render(a.DueDate.UTC().Format("Jan 02"))
	}

	titleWidth := width - lipgloss.Width(badge) - lipgloss.Width(due) - 4
	title := truncate(a.Title, titleWidth)

	line := fmt.Sprintf("%s %s %s%s", marker, badge, title, due)
	if selected {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}

// FocusBadge renders the running focus timer for the header.
func FocusBadge(elapsed time.Duration) string {
	elapsed = elapsed.Truncate(time.Second)
	h := int(elapsed.Hours())
	mnt := int(elapsed.Minutes()) % 60
	s := int(elapsed.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("focus %d:%02d:%02d", h, mnt, s)
	}
	return fmt.Sprintf("focus %02d:%02d", mnt, s)
}

// SetSize updates the board dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func priorityLetter(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "H"
	case model.PriorityLow:
		return "L"
	default:
		return "N"
	}
}

func truncate(s string, width int) string {
	if width <= 1 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > width {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}
