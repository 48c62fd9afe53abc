package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/nhle/task-focus/internal/model"
)

// CreateSession stores an ended focus session for userID. The full summary
// is kept as JSON; start, end and time spent are duplicated into columns
// for ordering. A UUID is assigned when the session has none.
func (s *SQLiteStore) CreateSession(
	ctx context.Context,
	userID string,
	session model.FocusSession,
) (*model.FocusSession, error) {
	if session.EndTime == nil {
		return nil, fmt.Errorf("focus session has no end time")
	}
	if session.ID == "" {
		session.ID = uuid.New().String()
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("marshaling focus session: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO focus_sessions (id, user_id, start_time, end_time, time_spent, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID, userID, session.StartTime.UTC(), session.EndTime.UTC(),
		session.TimeSpent, string(payload), s.now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating focus session: %w", err)
	}

	return &session, nil
}

// ListSessions returns a user's sessions newest first by start time. A
// non-positive limit uses DefaultSessionLimit.
func (s *SQLiteStore) ListSessions(
	ctx context.Context,
	userID string,
	limit int,
) ([]model.FocusSession, error) {
	if limit <= 0 {
		limit = DefaultSessionLimit
	}

	var payloads []string
	err := s.db.SelectContext(ctx, &payloads, `
		SELECT payload FROM focus_sessions
		WHERE user_id = ?
		ORDER BY start_time DESC, rowid DESC
		LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying focus sessions: %w", err)
	}

	sessions := make([]model.FocusSession, 0, len(payloads))
	for _, p := range payloads {
		var fs model.FocusSession
		if err := json.Unmarshal([]byte(p), &fs); err != nil {
			return nil, fmt.Errorf("unmarshaling focus session: %w", err)
		}
		sessions = append(sessions, fs)
	}
	return sessions, nil
}
