package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/task-focus/internal/keys"
	"github.com/nhle/task-focus/internal/priority"
	"github.com/nhle/task-focus/internal/theme"
)

// BackMsg signals the parent to navigate back to the board.
type BackMsg struct{}

// ActionMsg signals the parent to execute an action on the current task.
type ActionMsg struct {
	Action string
	TaskID string
}

// Actions emitted by the detail view.
const (
	ActionEdit     = "edit"
	ActionComplete = "complete"
	ActionDelete   = "delete"
)

// Model is the task detail view component.
type Model struct {
	task     *priority.Annotated
	quadrant priority.Quadrant
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int
}

// New creates a new detail view model.
func New(keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the detail view.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg {
				return BackMsg{}
			}

		case key.Matches(msg, m.keys.Edit):
			return m, m.action(ActionEdit)

		case key.Matches(msg, m.keys.Complete):
			return m, m.action(ActionComplete)

		case key.Matches(msg, m.keys.Delete):
			return m, m.action(ActionDelete)
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) action(name string) tea.Cmd {
	if m.task == nil {
		return nil
	}
	id := m.task.ID
	return func() tea.Msg {
		return ActionMsg{Action: name, TaskID: id}
	}
}

// View renders the detail view.
func (m Model) View() string {
	if m.task == nil {
		emptyStyle := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray)
		return emptyStyle.Render("No task selected")
	}

	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.task == nil {
		return ""
	}

	task := m.task
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(task.Title))

	// Badges line: quadrant + status + priority
	quadBadge := theme.QuadrantTitleStyle(m.quadrant).Render(string(m.quadrant))
	statusBadge := theme.StatusStyle(task.Status).Render(string(task.Status))
	priBadge := theme.PriorityStyle(task.Priority).Render(strings.ToUpper(string(task.Priority)))

	badgeLine := lipgloss.JoinHorizontal(
		lipgloss.Top, quadBadge, "  ", statusBadge, "  ", priBadge,
	)
	sections = append(sections, badgeLine)

	if hint := suggestionText(task.Suggestion); hint != "" {
		sections = append(sections, theme.NoticeStyle("warn").Render(hint))
	}
	sections = append(sections, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	row := func(label, value string) {
		if value == "" {
			return
		}
		sections = append(sections, fmt.Sprintf("%-10s %s",
			metaStyle.Render(label+":"), valStyle.Render(value)))
	}

	if task.HasDueDate() {
		row("Due", task.DueDate.UTC().Format("2006-01-02"))
	}
	row("Reason", task.Reason)
	row("Assignee", task.AssignedTo)
	if !task.CreatedAt.IsZero() {
		row("Created", task.CreatedAt.Format("2006-01-02 15:04"))
	}
	if !task.UpdatedAt.IsZero() {
		row("Updated", task.UpdatedAt.Format("2006-01-02 15:04"))
	}
	row("Type", strings.Join(task.PriorityTags.Type, ", "))
	row("Category", strings.Join(task.PriorityTags.Category, ", "))
	row("Complexity", strings.Join(task.PriorityTags.Complexity, ", "))
	row("Impact", strings.Join(task.PriorityTags.Impact, ", "))

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(min(m.width-4, 80), 1)))
	sections = append(sections, "", separator, "")

	noteHeaderStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)
	sections = append(sections, noteHeaderStyle.Render("Note"))

	note := task.Note
	if note == "" {
		note = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No note")
	}
	sections = append(sections, note)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetTask updates the task being displayed and re-renders the content.
func (m *Model) SetTask(task priority.Annotated, q priority.Quadrant) {
	m.task = &task
	m.quadrant = q
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// Task returns the task being displayed.
func (m Model) Task() (priority.Annotated, bool) {
	if m.task == nil {
		return priority.Annotated{}, false
	}
	return *m.task, true
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
}

func suggestionText(code string) string {
	switch code {
	case priority.SuggestionOverdue:
		return "Overdue: reschedule or finish this task."
	case priority.SuggestionReasonMissing:
		return "High priority without a reason: add one."
	default:
		return ""
	}
}
