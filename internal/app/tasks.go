package app

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/task-focus/internal/focus"
	"github.com/nhle/task-focus/internal/model"
	"github.com/nhle/task-focus/internal/ui/sessionlist"
)

// sessionHistoryLimit is how many past sessions the history view loads.
const sessionHistoryLimit = 20

// tasksLoadedMsg carries the bound user's tasks.
type tasksLoadedMsg struct {
	tasks []model.Task
	err   error
}

// taskSavedMsg is sent after a task is created, updated or completed.
type taskSavedMsg struct {
	task *model.Task
	err  error
}

// taskDeletedMsg is sent after a task is deleted.
type taskDeletedMsg struct{ err error }

// focusStartedMsg is sent after a focus session starts.
type focusStartedMsg struct{ err error }

// focusEndedMsg is sent after a focus session ends locally. result yields
// the background publish outcome.
type focusEndedMsg struct {
	session model.FocusSession
	result  <-chan error
	ok      bool
}

// focusSyncedMsg carries the background publish outcome.
type focusSyncedMsg struct{ err error }

// focusRestoredMsg reports whether a session survived a restart.
type focusRestoredMsg struct {
	restored bool
	err      error
}

// unreadCountMsg carries the number of unread notices to the UI. op names
// the failed step when err is set.
type unreadCountMsg struct {
	count int
	op    string
	err   error
}

// tickMsg drives the focus timer.
type tickMsg time.Time

func (m Model) loadTasks() tea.Cmd {
	h := m.host
	return func() tea.Msg {
		tasks, err := h.Tasks(context.Background())
		return tasksLoadedMsg{tasks: tasks, err: err}
	}
}

func (m Model) saveTask(task model.Task, isUpdate bool) tea.Cmd {
	h := m.host
	return func() tea.Msg {
		saved, err := h.SaveTask(context.Background(), task, isUpdate)
		return taskSavedMsg{task: saved, err: err}
	}
}

func (m Model) completeTask(id string) tea.Cmd {
	h := m.host
	return func() tea.Msg {
		saved, err := h.CompleteTask(context.Background(), id)
		return taskSavedMsg{task: saved, err: err}
	}
}

func (m Model) deleteTask(id string) tea.Cmd {
	h := m.host
	return func() tea.Msg {
		return taskDeletedMsg{err: h.DeleteTask(context.Background(), id)}
	}
}

func (m Model) restoreFocus() tea.Cmd {
	h := m.host
	return func() tea.Msg {
		restored, err := h.Restore(context.Background())
		return focusRestoredMsg{restored: restored, err: err}
	}
}

// toggleFocus starts a session, or ends the running one.
func (m Model) toggleFocus() tea.Cmd {
	h := m.host
	if h.Focusing() {
		return func() tea.Msg {
			session, result, ok := h.EndFocus(context.Background())
			return focusEndedMsg{session: session, result: result, ok: ok}
		}
	}
	return func() tea.Msg {
		return focusStartedMsg{err: h.StartFocus(context.Background())}
	}
}

func waitForSync(result <-chan error) tea.Cmd {
	return func() tea.Msg {
		return focusSyncedMsg{err: <-result}
	}
}

func (m Model) loadSessions() tea.Cmd {
	h := m.host
	return func() tea.Msg {
		sessions, err := h.Sessions(context.Background(), sessionHistoryLimit)
		return sessionlist.SessionsLoadedMsg{Sessions: sessions, Err: err}
	}
}

// fetchUnreadCount returns a tea.Cmd that counts unread notices.
func (m Model) fetchUnreadCount() tea.Cmd {
	h := m.host
	return func() tea.Msg {
		unread, err := h.UnreadNotices(context.Background())
		if err != nil {
			return unreadCountMsg{op: "loading notices", err: err}
		}
		return unreadCountMsg{count: len(unread)}
	}
}

// markNoticesRead clears the unread count once the notices are shown.
func (m Model) markNoticesRead() tea.Cmd {
	h := m.host
	return func() tea.Msg {
		if err := h.MarkNoticesRead(context.Background()); err != nil {
			return unreadCountMsg{op: "marking notices read", err: err}
		}
		return unreadCountMsg{count: 0}
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// describeError turns engine errors into status bar text.
func describeError(err error) string {
	switch {
	case errors.Is(err, ErrSignedOut):
		return "Not signed in. Run `taskfocus login`."
	case errors.Is(err, focus.ErrSessionActive):
		return "A focus session is already running."
	default:
		return err.Error()
	}
}
