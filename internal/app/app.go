package app

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/task-focus/internal/keys"
	"github.com/nhle/task-focus/internal/model"
	appsync "github.com/nhle/task-focus/internal/sync"
	"github.com/nhle/task-focus/internal/theme"
	"github.com/nhle/task-focus/internal/ui"
	"github.com/nhle/task-focus/internal/ui/board"
	"github.com/nhle/task-focus/internal/ui/command"
	"github.com/nhle/task-focus/internal/ui/detail"
	helpview "github.com/nhle/task-focus/internal/ui/help"
	"github.com/nhle/task-focus/internal/ui/sessionlist"
	"github.com/nhle/task-focus/internal/ui/taskform"
)

// noticeTTL is how long a notice stays in the status bar.
const noticeTTL = 8 * time.Second

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewBoard ViewState = iota
	ViewDetail
	ViewHelp
	ViewCommand
	ViewTaskCreate
	ViewTaskEdit
	ViewSessions
	ViewNotices
)

// Model is the root Bubble Tea model that manages view routing,
// layout, and access to the host engine.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	host         *Host
	keys         *keys.KeyMap
	board        board.Model
	detail       detail.Model
	helpView     helpview.Model
	commandView  command.Model
	formView     taskform.Model
	sessionView  sessionlist.Model
	poller       *appsync.Poller
	tasks        []model.Task
	ready        bool
	status       string
	unreadCount  int
	authExpired  bool
	now          func() time.Time
}

// New creates a new root application model around h. Tasks are refreshed
// every pollInterval.
func New(h *Host, pollInterval time.Duration) Model {
	k := keys.DefaultKeyMap()
	return Model{
		currentView: ViewBoard,
		host:        h,
		keys:        k,
		board:       board.New(k, 80, 24),
		detail:      detail.New(k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
		formView:    taskform.New(80, 24),
		sessionView: sessionlist.New(k, 80, 24),
		poller:      appsync.New(h.Tasks, pollInterval),
		now:         time.Now,
	}
}

// Init restores any interrupted focus session and starts polling.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.restoreFocus(),
		m.poller.Start(),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.board.SetSize(contentWidth, contentHeight)
		m.detail.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		m.commandView.SetSize(contentWidth, contentHeight)
		m.formView.SetSize(contentWidth, contentHeight)
		m.sessionView.SetSize(contentWidth, contentHeight)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case appsync.RefreshResultMsg:
		wait := m.poller.WaitForNextResult()
		if msg.Error != nil {
			if msg.AuthExpired {
				m.authExpired = true
			}
			m.status = describeError(msg.Error)
			return m, wait
		}
		m.authExpired = false
		m.setTasks(msg.Tasks)
		if msg.NewTaskCount > 0 {
			m.status = fmt.Sprintf("%d new task(s)", msg.NewTaskCount)
		}
		return m, tea.Batch(wait, m.fetchUnreadCount())

	case unreadCountMsg:
		if msg.err != nil {
			m.host.logger.Printf("%s: %v", msg.op, msg.err)
			m.status = "Failed " + msg.op + ": " + describeError(msg.err)
			return m, nil
		}
		m.unreadCount = msg.count
		return m, nil

	case tasksLoadedMsg:
		if msg.err != nil {
			m.status = describeError(msg.err)
			return m, nil
		}
		m.setTasks(msg.tasks)
		return m, m.fetchUnreadCount()

	case taskSavedMsg:
		if msg.err != nil {
			m.status = describeError(msg.err)
			return m, nil
		}
		m.status = ""
		return m, m.loadTasks()

	case taskDeletedMsg:
		if msg.err != nil {
			m.status = describeError(msg.err)
			return m, nil
		}
		if m.currentView == ViewDetail {
			m.currentView = ViewBoard
		}
		return m, m.loadTasks()

	case focusRestoredMsg:
		if msg.err != nil {
			m.status = "Could not restore focus session: " + msg.err.Error()
			return m, nil
		}
		if msg.restored {
			m.status = "Resumed focus session."
			return m, tick()
		}
		return m, nil

	case focusStartedMsg:
		if msg.err != nil {
			m.status = describeError(msg.err)
			return m, nil
		}
		m.status = "Focus session started."
		return m, tick()

	case focusEndedMsg:
		if !msg.ok {
			return m, nil
		}
		m.status = fmt.Sprintf("Focus session ended after %s. Saving...",
			sessionlist.FormatSeconds(msg.session.TimeSpent))
		return m, waitForSync(msg.result)

	case focusSyncedMsg:
		// The host has already raised a notice for the outcome.
		m.status = ""
		if m.currentView == ViewSessions {
			return m, tea.Batch(m.loadSessions(), m.fetchUnreadCount())
		}
		return m, m.fetchUnreadCount()

	case tickMsg:
		if m.host.Focusing() {
			return m, tick()
		}
		return m, nil

	case board.SelectedTaskMsg:
		m.previousView = m.currentView
		m.currentView = ViewDetail
		m.detail.SetTask(msg.Task, msg.Quadrant)
		return m, nil

	case detail.BackMsg:
		m.currentView = ViewBoard
		return m, nil

	case detail.ActionMsg:
		switch msg.Action {
		case detail.ActionComplete:
			return m, m.completeTask(msg.TaskID)
		case detail.ActionDelete:
			return m, m.deleteTask(msg.TaskID)
		case detail.ActionEdit:
			if t, ok := m.findTask(msg.TaskID); ok {
				m.previousView = m.currentView
				m.currentView = ViewTaskEdit
				return m, m.formView.StartEdit(t)
			}
		}
		return m, nil

	case taskform.TaskCreatedMsg:
		m.currentView = ViewBoard
		return m, m.saveTask(msg.Task, false)

	case taskform.TaskUpdatedMsg:
		m.currentView = ViewBoard
		return m, m.saveTask(msg.Task, true)

	case taskform.TaskFormCancelMsg:
		m.currentView = ViewBoard
		return m, nil

	case sessionlist.CloseMsg:
		m.currentView = ViewBoard
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(string(msg))

	case tea.KeyMsg:
		if cmd, handled := m.handleGlobalKey(msg); handled {
			return m, cmd
		}
		if m.currentView == ViewNotices && msg.String() == "esc" {
			m.currentView = ViewBoard
			return m, nil
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// handleGlobalKey processes keys that work outside text inputs.
func (m *Model) handleGlobalKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	inForm := m.currentView == ViewTaskCreate || m.currentView == ViewTaskEdit ||
		m.currentView == ViewCommand

	switch msg.String() {
	case "ctrl+c":
		// A running session is checkpointed and resumes on next start.
		m.poller.Stop()
		return tea.Quit, true
	}
	if inForm {
		if msg.String() == "esc" && m.currentView == ViewCommand {
			m.currentView = m.previousView
			return nil, true
		}
		return nil, false
	}

	switch msg.String() {
	case "q":
		return m.quit(), true

	case "?":
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		m.helpView.SetFocus(m.host.Focusing(), m.host.FocusElapsed())
		return nil, true

	case ":":
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m.commandView.Focus(), true
	}

	if m.currentView != ViewBoard {
		return nil, false
	}

	switch msg.String() {
	case "f":
		return m.toggleFocus(), true
	case "r":
		m.poller.Refresh()
		return nil, true
	case "n":
		return m.startCreate(), true
	case "s":
		return m.openSessions(), true
	case "e", "x", "d":
		a, ok := m.board.Selected()
		if !ok {
			return nil, true
		}
		switch msg.String() {
		case "e":
			m.previousView = m.currentView
			m.currentView = ViewTaskEdit
			if t, found := m.findTask(a.ID); found {
				return m.formView.StartEdit(t), true
			}
			return m.formView.StartEdit(a.Task), true
		case "x":
			return m.completeTask(a.ID), true
		default:
			return m.deleteTask(a.ID), true
		}
	}
	return nil, false
}

// quit leaves the program unless a focus session is running.
func (m *Model) quit() tea.Cmd {
	if m.host.Focusing() {
		m.status = "End the focus session (f) before quitting."
		return nil
	}
	m.poller.Stop()
	return tea.Quit
}

func (m *Model) startCreate() tea.Cmd {
	m.previousView = m.currentView
	m.currentView = ViewTaskCreate
	return m.formView.StartCreate()
}

func (m *Model) openSessions() tea.Cmd {
	m.previousView = m.currentView
	m.currentView = ViewSessions
	return m.loadSessions()
}

// setTasks stores the latest tasks and reclassifies the board.
func (m *Model) setTasks(tasks []model.Task) {
	m.tasks = tasks
	m.board.SetBoard(m.host.Classify(tasks))
	if a, ok := m.detail.Task(); ok && m.currentView == ViewDetail {
		if q, fresh, found := m.board.Board().Locate(a.ID); found {
			m.detail.SetTask(fresh, q)
		}
	}
}

// findTask returns the stored version of a task, without classification
// adjustments.
func (m Model) findTask(id string) (model.Task, bool) {
	for _, t := range m.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewBoard:
		m.board, cmd = m.board.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewTaskCreate, ViewTaskEdit:
		m.formView, cmd = m.formView.Update(msg)
	case ViewSessions:
		m.sessionView, cmd = m.sessionView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	title := "Task Focus"
	if m.unreadCount > 0 {
		title = fmt.Sprintf("Task Focus [%d new]", m.unreadCount)
	}
	if id := m.host.Identity(); id.Email != "" {
		title += " · " + id.Email
	}
	if len(m.tasks) > 0 {
		counts := StatusCounts(m.tasks)
		title += fmt.Sprintf(" · %d pending · %d in progress · %d done",
			counts[model.StatusPending], counts[model.StatusInProgress], counts[model.StatusCompleted])
	}
	focusing := m.host.Focusing()
	right := m.syncStatus()
	if focusing {
		right = board.FocusBadge(m.host.FocusElapsed())
	}

	header := m.layout.RenderHeader(title, right, focusing)
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints(), m.noticeText())

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewBoard:
		return m.board.View()
	case ViewDetail:
		return m.detail.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewTaskCreate, ViewTaskEdit:
		return m.formView.View()
	case ViewSessions:
		return m.sessionView.View()
	case ViewNotices:
		return m.renderNotices()
	default:
		return ""
	}
}

func (m Model) renderNotices() string {
	notices := m.host.Notices()
	if len(notices) == 0 {
		return theme.HelpStyle.Render("No notices.")
	}
	lines := make([]string, 0, len(notices))
	for i := len(notices) - 1; i >= 0; i-- {
		n := notices[i]
		lines = append(lines, fmt.Sprintf("%s %s",
			lipgloss.NewStyle().Foreground(theme.ColorGray).Render(n.CreatedAt.Local().Format("15:04:05")),
			theme.NoticeStyle(n.Level).Render(n.Message)))
	}
	return theme.DetailPanelStyle.Width(m.layout.ContentWidth() - 4).Render(strings.Join(lines, "\n"))
}

// syncStatus returns a short string describing the refresh state.
func (m Model) syncStatus() string {
	if m.authExpired {
		return "signed out"
	}
	s := m.poller.Status()
	switch s.State {
	case appsync.SyncRunning:
		return "syncing"
	case appsync.SyncError:
		return "⚠ unreachable"
	}
	if s.LastSync.IsZero() {
		return "idle"
	}
	return "synced " + s.LastSync.Local().Format("15:04")
}

// noticeText returns the status message, or the latest notice while it
// is fresh.
func (m Model) noticeText() string {
	if m.status != "" {
		return m.status
	}
	n, ok := m.host.LatestNotice()
	if !ok || m.now().Sub(n.CreatedAt) > noticeTTL {
		return ""
	}
	return theme.NoticeStyle(n.Level).Render(n.Message)
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help"
	case ViewCommand:
		return "enter execute | tab complete | esc back"
	case ViewDetail:
		return "esc back | e edit | x complete | d delete"
	case ViewTaskCreate, ViewTaskEdit:
		return "enter submit | esc cancel"
	case ViewSessions, ViewNotices:
		return "esc back | j/k move"
	default:
		if m.host.Focusing() {
			return "f end focus | n new | x complete | ? help"
		}
		return "q quit | ? help | f focus | n new | s sessions | : command"
	}
}

// executeCommand handles a command string from the command palette.
func (m *Model) executeCommand(cmd string) tea.Cmd {
	switch cmd {
	case "focus start", "focus":
		if m.host.Focusing() {
			m.status = "A focus session is already running."
			return nil
		}
		return m.toggleFocus()
	case "focus end", "end":
		if !m.host.Focusing() {
			m.status = "No focus session is running."
			return nil
		}
		return m.toggleFocus()
	case "refresh", "sync":
		m.poller.Refresh()
		return nil
	case "new", "new task":
		return m.startCreate()
	case "sessions", "history":
		return m.openSessions()
	case "notices":
		m.previousView = m.currentView
		m.currentView = ViewNotices
		return m.markNoticesRead()
	case "quit", "q":
		return m.quit()
	default:
		m.status = fmt.Sprintf("Unknown command %q", cmd)
		return nil
	}
}
