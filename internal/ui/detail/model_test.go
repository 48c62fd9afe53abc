package detail

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/task-focus/internal/keys"
	"github.com/nhle/task-focus/internal/model"
	"github.com/nhle/task-focus/internal/priority"
)

func TestRenderShowsSuggestionAndTags(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 100, 30)
	m.SetTask(priority.Annotated{
		Task: model.Task{
			ID:           "t1",
			Title:        "Prepare launch",
			Priority:     model.PriorityHigh,
			Status:       model.StatusPending,
			PriorityTags: model.PriorityTags{Type: []string{"Deadline"}},
		},
		Suggestion: priority.SuggestionReasonMissing,
	}, priority.ImportantUrgent)

	out := m.renderContent()
	for _, want := range []string{"Prepare launch", "Deadline", "without a reason", "No note"} {
		if !strings.Contains(out, want) {
			t.Errorf("content missing %q", want)
		}
	}
}

func TestActionKeys(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 100, 30)
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")}); cmd != nil {
		t.Error("action emitted without a task")
	}

	m.SetTask(priority.Annotated{Task: model.Task{ID: "t1", Title: "A"}}, priority.ImportantUrgent)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if cmd == nil {
		t.Fatal("complete key produced no command")
	}
	if msg, ok := cmd().(ActionMsg); !ok || msg.Action != ActionComplete || msg.TaskID != "t1" {
		t.Errorf("message = %#v", msg)
	}

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if _, ok := cmd().(BackMsg); !ok {
		t.Error("esc did not go back")
	}
}
