package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/nhle/task-focus/internal/model"
	"github.com/nhle/task-focus/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// NewTestStoreAt is NewTestStore with created_at/updated_at stamped by now.
func NewTestStoreAt(t *testing.T, now func() time.Time) *store.SQLiteStore {
	t.Helper()
	s := NewTestStore(t)
	s.SetClock(now)
	return s
}

// SeedTasks creates tasks for userID directly in the store, bypassing any
// escalation a host would apply, and returns them as stored.
func SeedTasks(t *testing.T, s store.Store, userID string, tasks ...model.Task) []model.Task {
	t.Helper()

	out := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		saved, err := s.SaveTask(context.Background(), userID, task, false)
		if err != nil {
			t.Fatalf("seeding task %q: %v", task.Title, err)
		}
		out = append(out, *saved)
	}
	return out
}
