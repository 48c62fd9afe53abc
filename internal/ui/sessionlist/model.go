package sessionlist

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/task-focus/internal/keys"
	"github.com/nhle/task-focus/internal/model"
	"github.com/nhle/task-focus/internal/theme"
)

// SessionsLoadedMsg carries past focus sessions, newest first.
type SessionsLoadedMsg struct {
	Sessions []model.FocusSession
	Err      error
}

// CloseMsg signals the parent to leave the session history.
type CloseMsg struct{}

// SessionItem wraps a focus session for bubbles/list.
type SessionItem struct {
	Session model.FocusSession
}

// FilterValue returns the string used for fuzzy filtering.
func (i SessionItem) FilterValue() string { return i.Title() }

// Title returns the start time and duration.
func (i SessionItem) Title() string {
	return fmt.Sprintf("%s  %s",
		i.Session.StartTime.Local().Format("Mon Jan 02 15:04"),
		FormatSeconds(i.Session.TimeSpent))
}

// Description summarizes what happened in the session.
func (i SessionItem) Description() string {
	return fmt.Sprintf("%d completed | %d changes",
		len(i.Session.CompletedTasks), len(i.Session.TaskChanges))
}

// FormatSeconds renders a duration such as 1h05m or 12m30s.
func FormatSeconds(secs int64) string {
	d := time.Duration(secs) * time.Second
	if d >= time.Hour {
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}

// itemDelegate renders one session per line.
type itemDelegate struct{}

func (d itemDelegate) Height() int                             { return 1 }
func (d itemDelegate) Spacing() int                            { return 0 }
func (d itemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	si, ok := item.(SessionItem)
	if !ok {
		return
	}
	desc := lipgloss.NewStyle().Foreground(theme.ColorGray).Render(si.Description())
	line := si.Title() + "  " + desc
	if index == m.Index() {
		fmt.Fprint(w, theme.SelectedItemStyle.Render(line))
		return
	}
	fmt.Fprint(w, theme.ListItemStyle.Render(line))
}

// Model lists past focus sessions.
type Model struct {
	list   list.Model
	keys   *keys.KeyMap
	err    error
	width  int
	height int
}

// New creates a session history view.
func New(k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, itemDelegate{}, width, height-2)
	l.Title = "Focus Sessions"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{list: l, keys: k, width: width, height: height}
}

// Update handles messages for the session list.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case SessionsLoadedMsg:
		m.err = msg.Err
		items := make([]list.Item, len(msg.Sessions))
		for i, s := range msg.Sessions {
			items[i] = SessionItem{Session: s}
		}
		return m, m.list.SetItems(items)

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Back) {
			return m, func() tea.Msg { return CloseMsg{} }
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// Selected returns the highlighted session.
func (m Model) Selected() (model.FocusSession, bool) {
	item, ok := m.list.SelectedItem().(SessionItem)
	if !ok {
		return model.FocusSession{}, false
	}
	return item.Session, true
}

// View renders the session list followed by details of the selection.
func (m Model) View() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.err != nil {
		return style.Render("Could not load sessions:\n" + m.err.Error())
	}
	if len(m.list.Items()) == 0 {
		return style.Render("No focus sessions yet.\n\nPress f on the board to start one.")
	}

	s, ok := m.Selected()
	if !ok {
		return m.list.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.list.View(), renderSession(s))
}

func renderSession(s model.FocusSession) string {
	var lines []string
	head := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	muted := lipgloss.NewStyle().Foreground(theme.ColorGray)

	if len(s.CompletedTasks) > 0 {
		lines = append(lines, head.Render("Completed"))
		for _, c := range s.CompletedTasks {
			lines = append(lines, fmt.Sprintf("  ✓ %s %s", c.Title,
				muted.Render(c.CompletedAt.Local().Format("15:04"))))
		}
	}
	if len(s.TaskChanges) > 0 {
		lines = append(lines, head.Render("Changes"))
		for _, c := range s.TaskChanges {
			lines = append(lines, fmt.Sprintf("  %s %s %s", FormatSeconds(c.TimeSpent),
				c.TaskTitle, muted.Render(strings.Join(c.SortedFields(), ", "))))
		}
	}
	if len(lines) == 0 {
		return muted.Italic(true).Render("Nothing recorded in this session.")
	}
	return theme.BorderStyle.Padding(0, 1).Render(strings.Join(lines, "\n"))
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, max(height/2, 4))
}
