package priority

import (
	"testing"
	"time"

	"github.com/nhle/task-focus/internal/model"
)

// now is 2025-06-10 12:00 UTC, i.e. 17:30 on 2025-06-10 at UTC+5:30.
var now = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func day(offset int) *time.Time {
	d := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
	return &d
}

func newTestClassifier(warn WarnFunc) *Classifier {
	return NewClassifier(model.DefaultAppConfig().Engine, warn)
}

func TestEscalate(t *testing.T) {
	e := NewEscalator(nil)

	tests := []struct {
		name         string
		in           EscalationInput
		wantPriority model.Priority
		wantReason   string
		wantEscal    bool
	}{
		{
			name:         "title keyword escalates with default reason",
			in:           EscalationInput{Title: "Quarterly Deadline review", Priority: model.PriorityNormal},
			wantPriority: model.PriorityHigh,
			wantReason:   DefaultReason,
			wantEscal:    true,
		},
		{
			name:         "existing reason is kept",
			in:           EscalationInput{Note: "this is strategic work", Priority: model.PriorityLow, Reason: "board asked"},
			wantPriority: model.PriorityHigh,
			wantReason:   "board asked",
			wantEscal:    true,
		},
		{
			name:         "tag keyword",
			in:           EscalationInput{Tags: []string{"Project Delivery Work"}, Priority: model.PriorityNormal},
			wantPriority: model.PriorityHigh,
			wantReason:   DefaultReason,
			wantEscal:    true,
		},
		{
			name:         "already high is unchanged",
			in:           EscalationInput{Title: "deadline", Priority: model.PriorityHigh},
			wantPriority: model.PriorityHigh,
			wantReason:   "",
		},
		{
			name:         "no marker is unchanged",
			in:           EscalationInput{Title: "buy milk", Priority: model.PriorityLow, Reason: "x"},
			wantPriority: model.PriorityLow,
			wantReason:   "x",
		},
		{
			name:         "empty input is total",
			in:           EscalationInput{},
			wantPriority: "",
			wantReason:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Escalate(tt.in)
			if got.Priority != tt.wantPriority {
				t.Errorf("Priority = %q, want %q", got.Priority, tt.wantPriority)
			}
			if got.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", got.Reason, tt.wantReason)
			}
			if got.Escalated != tt.wantEscal {
				t.Errorf("Escalated = %v, want %v", got.Escalated, tt.wantEscal)
			}
		})
	}
}

func TestEscalatorCustomMarkers(t *testing.T) {
	e := NewEscalator([]string{"  Launch  ", ""})
	if !e.Matches("Prepare LAUNCH notes", "", nil) {
		t.Error("expected custom marker to match case-insensitively")
	}
	if e.Matches("deadline", "", nil) {
		t.Error("default markers should not apply when custom markers are set")
	}
}

func TestEscalateTask(t *testing.T) {
	e := NewEscalator(nil)
	task := model.Task{Title: "ship", Priority: model.PriorityNormal,
		PriorityTags: model.PriorityTags{Type: []string{"Deadline"}}}
	got, escalated := e.EscalateTask(task)
	if !escalated || got.Priority != model.PriorityHigh || got.Reason != DefaultReason {
		t.Errorf("EscalateTask = %+v, %v", got, escalated)
	}
	if task.Priority != model.PriorityNormal {
		t.Error("EscalateTask mutated its argument")
	}
}

func TestClassifyEndToEnd(t *testing.T) {
	tasks := []model.Task{
		{ID: "1", DueDate: day(1), Priority: model.PriorityNormal, Status: model.StatusPending},
		{ID: "2", Priority: model.PriorityNormal, Status: model.StatusPending},
		{ID: "3", DueDate: day(0), Priority: model.PriorityHigh, Status: model.StatusPending},
	}

	board := newTestClassifier(nil).Classify(tasks, now)

	want := map[string]Quadrant{
		"1": ImportantNotUrgent,
		"2": NotImportantNotUrgent,
		"3": ImportantUrgent,
	}
	for id, q := range want {
		got, _, ok := board.Locate(id)
		if !ok {
			t.Fatalf("task %s not classified", id)
		}
		if got != q {
			t.Errorf("task %s in %q, want %q", id, got, q)
		}
	}
	if board.Len() != 3 {
		t.Errorf("Len() = %d, want 3", board.Len())
	}
}

func TestClassifyRules(t *testing.T) {
	created := time.Date(2025, 6, 10, 3, 0, 0, 0, time.UTC)
	older := time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		task           model.Task
		wantQuadrant   Quadrant
		wantSuggestion string
	}{
		{"no due date high", model.Task{Priority: model.PriorityHigh}, NotImportantNotUrgent, ""},
		{"no due date low", model.Task{Priority: model.PriorityLow}, NotImportantNotUrgent, ""},
		{"zero due date", model.Task{DueDate: &time.Time{}, Priority: model.PriorityHigh}, NotImportantNotUrgent, ""},
		{"overdue high", model.Task{DueDate: day(-2), Priority: model.PriorityHigh}, ImportantUrgent, SuggestionOverdue},
		{"overdue normal", model.Task{DueDate: day(-2), Priority: model.PriorityNormal}, NotImportantNotUrgent, ""},
		{"today high", model.Task{DueDate: day(0), Priority: model.PriorityHigh, CreatedAt: older}, ImportantUrgent, ""},
		{"today high created today", model.Task{DueDate: day(0), Priority: model.PriorityHigh, CreatedAt: created}, ImportantUrgent, ""},
		{"today normal created earlier", model.Task{DueDate: day(0), Priority: model.PriorityNormal, CreatedAt: older}, NotImportantNotUrgent, ""},
		{"today low created today", model.Task{DueDate: day(0), Priority: model.PriorityLow, CreatedAt: created}, NotImportantUrgent, ""},
		{"today normal created today", model.Task{DueDate: day(0), Priority: model.PriorityNormal, CreatedAt: created}, NotImportantUrgent, ""},
		{"week end normal", model.Task{DueDate: day(5), Priority: model.PriorityNormal}, ImportantNotUrgent, ""},
		{"past week end", model.Task{DueDate: day(6), Priority: model.PriorityHigh}, NotImportantNotUrgent, ""},
		{"this week low", model.Task{DueDate: day(2), Priority: model.PriorityLow}, NotImportantNotUrgent, ""},
	}

	c := newTestClassifier(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.task.ID = "x"
			board := c.Classify([]model.Task{tt.task}, now)
			q, a, ok := board.Locate("x")
			if !ok {
				t.Fatal("task missing from board")
			}
			if q != tt.wantQuadrant {
				t.Errorf("quadrant = %q, want %q", q, tt.wantQuadrant)
			}
			if a.Suggestion != tt.wantSuggestion {
				t.Errorf("suggestion = %q, want %q", a.Suggestion, tt.wantSuggestion)
			}
		})
	}
}

func TestClassifyUsesReferenceOffset(t *testing.T) {
	// 20:00 UTC on June 10 is already June 11 at UTC+5:30.
	late := time.Date(2025, 6, 10, 20, 0, 0, 0, time.UTC)
	task := model.Task{ID: "x", DueDate: day(1), Priority: model.PriorityHigh}

	q, _, _ := newTestClassifier(nil).Classify([]model.Task{task}, late).Locate("x")
	if q != ImportantUrgent {
		t.Errorf("with +5:30 offset quadrant = %q, want %q", q, ImportantUrgent)
	}

	cfg := model.DefaultAppConfig().Engine
	cfg.ReferenceOffset = "0s"
	q, _, _ = NewClassifier(cfg, nil).Classify([]model.Task{task}, late).Locate("x")
	if q != ImportantNotUrgent {
		t.Errorf("with zero offset quadrant = %q, want %q", q, ImportantNotUrgent)
	}
}

func TestClassifySkipsCompletedAndKeepsOrder(t *testing.T) {
	tasks := []model.Task{
		{ID: "a"},
		{ID: "b", Status: model.StatusCompleted},
		{ID: "c", Status: model.StatusDeferred},
		{ID: "d", Status: model.StatusCancelled},
	}
	board := newTestClassifier(nil).Classify(tasks, now)
	got := board.Bucket(NotImportantNotUrgent).Tasks
	if len(got) != 3 {
		t.Fatalf("bucket has %d tasks, want 3", len(got))
	}
	for i, id := range []string{"a", "c", "d"} {
		if got[i].ID != id {
			t.Errorf("bucket[%d] = %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestClassifyAlwaysReturnsFourBuckets(t *testing.T) {
	board := newTestClassifier(nil).Classify(nil, now)
	for i, q := range Quadrants {
		if board[i].Quadrant != q {
			t.Errorf("board[%d] = %q, want %q", i, board[i].Quadrant, q)
		}
		if board[i].Tasks == nil {
			t.Errorf("board[%d].Tasks is nil", i)
		}
	}
}

func TestClassifyStrategicTagWithoutReason(t *testing.T) {
	var warned []string
	c := newTestClassifier(func(task model.Task, msg string) {
		warned = append(warned, task.ID)
	})

	tasks := []model.Task{
		{ID: "no-reason", DueDate: day(-1), Priority: model.PriorityNormal,
			PriorityTags: model.PriorityTags{Type: []string{"Strategic Work"}}},
		{ID: "with-reason", DueDate: day(0), Priority: model.PriorityLow, Reason: "exec review",
			PriorityTags: model.PriorityTags{Impact: []string{"deadline"}}},
		{ID: "title-only", DueDate: day(0), Priority: model.PriorityNormal, Title: "Deadline prep"},
	}
	board := c.Classify(tasks, now)

	q, a, _ := board.Locate("no-reason")
	if q != ImportantUrgent {
		t.Errorf("no-reason in %q, want %q", q, ImportantUrgent)
	}
	if a.Suggestion != SuggestionReasonMissing {
		t.Errorf("no-reason suggestion = %q, want %q", a.Suggestion, SuggestionReasonMissing)
	}
	if a.Priority != model.PriorityHigh {
		t.Errorf("no-reason priority = %q, want high", a.Priority)
	}

	q, a, _ = board.Locate("with-reason")
	if q != ImportantUrgent || a.Suggestion != "" {
		t.Errorf("with-reason = %q/%q, want %q with no suggestion", q, a.Suggestion, ImportantUrgent)
	}

	// Titles are not consulted at classification time.
	q, _, _ = board.Locate("title-only")
	if q != NotImportantNotUrgent {
		t.Errorf("title-only in %q, want %q", q, NotImportantNotUrgent)
	}

	if len(warned) != 1 || warned[0] != "no-reason" {
		t.Errorf("warnings = %v, want [no-reason]", warned)
	}
	if tasks[0].Priority != model.PriorityNormal {
		t.Error("Classify mutated the stored task priority")
	}
}
