package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nhle/task-focus/internal/model"
)

// SaveCheckpoint replaces the in-progress focus session stored for userID.
func (s *SQLiteStore) SaveCheckpoint(
	ctx context.Context,
	userID string,
	session model.FocusSession,
) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshaling focus checkpoint: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO active_focus (user_id, payload, updated_at)
		VALUES (?, ?, ?)`,
		userID, string(payload), s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving focus checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint returns the in-progress session stored for userID, or nil
// when there is none.
func (s *SQLiteStore) LoadCheckpoint(
	ctx context.Context,
	userID string,
) (*model.FocusSession, error) {
	var payload string
	err := s.db.GetContext(ctx, &payload,
		"SELECT payload FROM active_focus WHERE user_id = ?", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading focus checkpoint: %w", err)
	}

	var session model.FocusSession
	if err := json.Unmarshal([]byte(payload), &session); err != nil {
		return nil, fmt.Errorf("unmarshaling focus checkpoint: %w", err)
	}
	return &session, nil
}

// ClearCheckpoint removes the in-progress session stored for userID.
func (s *SQLiteStore) ClearCheckpoint(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM active_focus WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("clearing focus checkpoint: %w", err)
	}
	return nil
}

// UserScope binds a Store to one user so it can serve the focus engine's
// checkpoint and publisher ports and the host's task and notice
// collaborators.
type UserScope struct {
	store  Store
	userID string
}

// ForUser returns a view of s scoped to userID.
func ForUser(s Store, userID string) *UserScope {
	return &UserScope{store: s, userID: userID}
}

// UserID returns the scoped user.
func (u *UserScope) UserID() string { return u.userID }

func (u *UserScope) SaveCheckpoint(ctx context.Context, session model.FocusSession) error {
	return u.store.SaveCheckpoint(ctx, u.userID, session)
}

func (u *UserScope) LoadCheckpoint(ctx context.Context) (*model.FocusSession, error) {
	return u.store.LoadCheckpoint(ctx, u.userID)
}

func (u *UserScope) ClearCheckpoint(ctx context.Context) error {
	return u.store.ClearCheckpoint(ctx, u.userID)
}

func (u *UserScope) CreateSession(ctx context.Context, session model.FocusSession) (*model.FocusSession, error) {
	return u.store.CreateSession(ctx, u.userID, session)
}

func (u *UserScope) ListSessions(ctx context.Context, limit int) ([]model.FocusSession, error) {
	return u.store.ListSessions(ctx, u.userID, limit)
}

func (u *UserScope) SaveTask(ctx context.Context, task model.Task, isUpdate bool) (*model.Task, error) {
	return u.store.SaveTask(ctx, u.userID, task, isUpdate)
}

// Tasks returns every task of the scoped user in creation order.
func (u *UserScope) Tasks(ctx context.Context) ([]model.Task, error) {
	return u.store.GetTasks(ctx, u.userID, TaskFilter{})
}

func (u *UserScope) DeleteTask(ctx context.Context, id string) error {
	return u.store.DeleteTask(ctx, u.userID, id)
}

func (u *UserScope) StatusCounts(ctx context.Context) (map[model.Status]int, error) {
	return u.store.StatusCounts(ctx, u.userID)
}

func (u *UserScope) CreateNotification(ctx context.Context, n model.Notice) error {
	return u.store.CreateNotification(ctx, u.userID, n)
}

func (u *UserScope) GetUnreadNotifications(ctx context.Context) ([]model.Notice, error) {
	return u.store.GetUnreadNotifications(ctx, u.userID)
}

func (u *UserScope) MarkNotificationRead(ctx context.Context, id string) error {
	return u.store.MarkNotificationRead(ctx, u.userID, id)
}
