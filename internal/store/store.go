package store

import (
	"context"
	"errors"

	"github.com/nhle/task-focus/internal/model"
)

// ErrNotFound is returned when a task or session does not exist for the user.
var ErrNotFound = errors.New("not found")

// DefaultSessionLimit caps session history queries that pass no limit.
const DefaultSessionLimit = 20

// TaskFilter controls filtering and sorting for task queries.
type TaskFilter struct {
	Status        *model.Status
	Priority      *model.Priority
	Query         *string // search title + note
	ExcludeStatus []model.Status
	SortBy        string // "created_at", "updated_at", "due_date", "title", "priority"
	SortDesc      bool
	Limit         int
}

// Store defines the persistence interface for tasks, focus sessions,
// notices, and in-progress session checkpoints. Every task and session
// query is scoped to a user ID.
type Store interface {
	// === Tasks ===

	SaveTask(ctx context.Context, userID string, task model.Task, isUpdate bool) (*model.Task, error)
	GetTasks(ctx context.Context, userID string, filter TaskFilter) ([]model.Task, error)
	GetTaskByID(ctx context.Context, userID, id string) (*model.Task, error)
	DeleteTask(ctx context.Context, userID, id string) error
	StatusCounts(ctx context.Context, userID string) (map[model.Status]int, error)

	// === Focus sessions ===

	CreateSession(ctx context.Context, userID string, session model.FocusSession) (*model.FocusSession, error)
	ListSessions(ctx context.Context, userID string, limit int) ([]model.FocusSession, error)

	// === Active session checkpoints ===

	SaveCheckpoint(ctx context.Context, userID string, session model.FocusSession) error
	LoadCheckpoint(ctx context.Context, userID string) (*model.FocusSession, error)
	ClearCheckpoint(ctx context.Context, userID string) error

	// === Notices ===

	CreateNotification(ctx context.Context, userID string, n model.Notice) error
	GetUnreadNotifications(ctx context.Context, userID string) ([]model.Notice, error)
	MarkNotificationRead(ctx context.Context, userID, id string) error
}
