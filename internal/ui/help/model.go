package help

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/task-focus/internal/keys"
	"github.com/nhle/task-focus/internal/priority"
	"github.com/nhle/task-focus/internal/theme"
)

var sectionStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(theme.ColorWhite).
	MarginTop(1)

// Model is the help overlay: key bindings, the quadrant legend and a short
// note on what the running focus session records.
type Model struct {
	keys    *keys.KeyMap
	help    help.Model
	width   int
	height  int
	focus   bool
	elapsed time.Duration
}

// New creates a help overlay sized to the content area.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.ShowAll = true
	m := Model{keys: keys, help: h}
	m.SetSize(width, height)
	return m
}

// SetFocus records whether a focus session is running when help opens.
func (m *Model) SetFocus(active bool, elapsed time.Duration) {
	m.focus = active
	m.elapsed = elapsed
}

// Update is a no-op; the app closes help on ? or esc.
func (m Model) Update(tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the overlay.
func (m Model) View() string {
	sections := []string{
		sectionStyle.UnsetMarginTop().Render("Keys"),
		m.help.View(m.keys),
		sectionStyle.Render("Quadrants"),
	}
	for _, q := range priority.Quadrants {
		sections = append(sections, theme.QuadrantTitleStyle(q).Render("■ "+string(q)))
	}
	sections = append(sections,
		theme.HelpStyle.Render("! overdue   ? high priority without a reason"),
		sectionStyle.Render("Focus"),
		m.focusText(),
	)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m Model) focusText() string {
	if !m.focus {
		return theme.HelpStyle.Render("Press f to start a session. Edits and completions are journaled until you end it.")
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		theme.FocusHeaderStyle.Render(fmt.Sprintf("running for %s", m.elapsed.Truncate(time.Second))),
		theme.HelpStyle.Render("q is disabled until the session ends (f). ctrl+c exits and resumes it next launch."),
	)
}

// SetSize updates the overlay dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 8
}
