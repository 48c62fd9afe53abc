package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/task-focus/internal/model"
	appsync "github.com/nhle/task-focus/internal/sync"
	"github.com/nhle/task-focus/internal/ui/command"
	"github.com/nhle/task-focus/internal/ui/taskform"
)

func taskformCreated(t model.Task) tea.Msg { return taskform.TaskCreatedMsg{Task: t} }

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(t *testing.T) (Model, *Host) {
	t.Helper()
	h, _, clock := newTestHost(t)
	m := New(h, 0)
	m.now = clock.Now
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model), h
}

func TestRefreshResultFillsBoard(t *testing.T) {
	m, _ := newTestModel(t)

	next, cmd := m.Update(appsync.RefreshResultMsg{Tasks: []model.Task{
		{ID: "a", Title: "Quarterly planning", Priority: model.PriorityHigh, Reason: "board ask", Status: model.StatusPending},
	}, NewTaskCount: 1})
	m = next.(Model)

	if cmd == nil {
		t.Error("refresh result should wait for the next result")
	}
	if got := m.board.Board().Len(); got != 1 {
		t.Errorf("board holds %d tasks, want 1", got)
	}
	if !strings.Contains(m.status, "1 new") {
		t.Errorf("status = %q", m.status)
	}
}

func TestAuthExpiryShowsSignedOut(t *testing.T) {
	m, _ := newTestModel(t)
	next, _ := m.Update(appsync.RefreshResultMsg{Error: ErrSignedOut, AuthExpired: true})
	m = next.(Model)

	if m.syncStatus() != "signed out" {
		t.Errorf("syncStatus = %q", m.syncStatus())
	}
	if !strings.Contains(m.status, "login") {
		t.Errorf("status = %q", m.status)
	}
}

func TestQuitBlockedWhileFocusing(t *testing.T) {
	m, h := newTestModel(t)

	next, cmd := m.Update(runes("f"))
	m = next.(Model)
	if cmd == nil {
		t.Fatal("f produced no command")
	}
	next, _ = m.Update(cmd())
	m = next.(Model)
	if !h.Focusing() {
		t.Fatal("focus session did not start")
	}

	next, cmd = m.Update(runes("q"))
	m = next.(Model)
	if cmd != nil {
		t.Error("quit allowed during a focus session")
	}
	if !strings.Contains(m.status, "before quitting") {
		t.Errorf("status = %q", m.status)
	}

	_, cmd = m.Update(runes("f"))
	ended, ok := cmd().(focusEndedMsg)
	if !ok || !ended.ok {
		t.Fatalf("second f = %#v, want ended session", ended)
	}
	if err := wait(t, ended.result); err != nil {
		t.Errorf("sync: %v", err)
	}
	if h.Focusing() {
		t.Error("still focusing after end")
	}
}

func TestCreateTaskThroughForm(t *testing.T) {
	m, h := newTestModel(t)

	next, _ := m.Update(runes("n"))
	m = next.(Model)
	if m.currentView != ViewTaskCreate {
		t.Fatalf("view = %d, want task create", m.currentView)
	}

	next, cmd := m.Update(taskformCreated(model.Task{Title: "Draft agenda"}))
	m = next.(Model)
	if m.currentView != ViewBoard {
		t.Errorf("view = %d, want board", m.currentView)
	}
	saved, ok := cmd().(taskSavedMsg)
	if !ok || saved.err != nil {
		t.Fatalf("save = %#v", saved)
	}

	tasks, _ := h.Tasks(context.Background())
	if len(tasks) != 1 || tasks[0].Title != "Draft agenda" {
		t.Errorf("tasks = %+v", tasks)
	}
}

func TestUnknownCommand(t *testing.T) {
	m, _ := newTestModel(t)
	next, _ := m.Update(command.CommandMsg("launch rockets"))
	if !strings.Contains(next.(Model).status, "Unknown command") {
		t.Errorf("status = %q", next.(Model).status)
	}
}

func TestNoticeExpires(t *testing.T) {
	m, h := newTestModel(t)
	h.Notify(model.Notice{Level: model.NoticeInfo, Message: "Focus session saved successfully!"})
	if !strings.Contains(m.noticeText(), "saved") {
		t.Errorf("fresh notice hidden: %q", m.noticeText())
	}

	later := h.now().Add(noticeTTL + 1)
	m.now = func() time.Time { return later }
	if m.noticeText() != "" {
		t.Errorf("stale notice still shown: %q", m.noticeText())
	}
}

func TestNoticeStoreFailureReachesStatus(t *testing.T) {
	m, _ := newTestModel(t)
	m.unreadCount = 3

	next, _ := m.Update(unreadCountMsg{op: "marking notices read", err: errors.New("database is locked")})
	m = next.(Model)

	if m.unreadCount != 3 {
		t.Errorf("unreadCount = %d, want the previous 3 kept", m.unreadCount)
	}
	if !strings.Contains(m.status, "marking notices read") || !strings.Contains(m.status, "database is locked") {
		t.Errorf("status = %q", m.status)
	}
}
