package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/task-focus/internal/model"
)

// taskRow mirrors the tasks table.
type taskRow struct {
	ID           string     `db:"id"`
	UserID       string     `db:"user_id"`
	Title        string     `db:"title"`
	Note         string     `db:"note"`
	Reason       string     `db:"reason"`
	Status       string     `db:"status"`
	Priority     string     `db:"priority"`
	DueDate      *time.Time `db:"due_date"`
	AssignedTo   string     `db:"assigned_to"`
	PriorityTags string     `db:"priority_tags"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

const taskColumns = `id, user_id, title, note, reason, status, priority,
	due_date, assigned_to, priority_tags, created_at, updated_at`

func (r taskRow) toModel() (model.Task, error) {
	t := model.Task{
		ID:         r.ID,
		Title:      r.Title,
		Note:       r.Note,
		Reason:     r.Reason,
		Status:     model.Status(r.Status),
		Priority:   model.Priority(r.Priority),
		DueDate:    r.DueDate,
		AssignedTo: r.AssignedTo,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.PriorityTags != "" {
		if err := json.Unmarshal([]byte(r.PriorityTags), &t.PriorityTags); err != nil {
			return model.Task{}, fmt.Errorf("unmarshaling priority_tags for task %s: %w", r.ID, err)
		}
	}
	return t, nil
}

// SaveTask creates or updates a task for userID. On create a UUID is
// generated when the task has none; on update the task must already exist
// for that user and its created_at is preserved. The stored task is returned.
func (s *SQLiteStore) SaveTask(
	ctx context.Context,
	userID string,
	task model.Task,
	isUpdate bool,
) (*model.Task, error) {
	if strings.TrimSpace(task.Title) == "" {
		return nil, fmt.Errorf("task title must not be empty")
	}
	if task.Priority == "" {
		task.Priority = model.PriorityNormal
	}
	if task.Status == "" {
		task.Status = model.StatusPending
	}

	tags, err := json.Marshal(task.PriorityTags)
	if err != nil {
		return nil, fmt.Errorf("marshaling priority_tags: %w", err)
	}

	now := s.now().UTC()
	task.UpdatedAt = now
	dueDate := utcPtr(task.DueDate)

	if isUpdate {
		existing, err := s.GetTaskByID(ctx, userID, task.ID)
		if err != nil {
			return nil, err
		}
		task.CreatedAt = existing.CreatedAt

		_, err = s.db.ExecContext(ctx, `
			UPDATE tasks SET
				title = ?, note = ?, reason = ?, status = ?, priority = ?,
				due_date = ?, assigned_to = ?, priority_tags = ?, updated_at = ?
			WHERE id = ? AND user_id = ?`,
			task.Title, task.Note, task.Reason, string(task.Status), string(task.Priority),
			dueDate, task.AssignedTo, string(tags), now,
			task.ID, userID,
		)
		if err != nil {
			return nil, fmt.Errorf("updating task %s: %w", task.ID, err)
		}
		return &task, nil
	}

	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	task.CreatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, userID, task.Title, task.Note, task.Reason,
		string(task.Status), string(task.Priority),
		dueDate, task.AssignedTo, string(tags), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	return &task, nil
}

// GetTasks retrieves a user's tasks matching the filter.
func (s *SQLiteStore) GetTasks(
	ctx context.Context,
	userID string,
	filter TaskFilter,
) ([]model.Task, error) {
	conditions := []string{"user_id = ?"}
	args := []interface{}{userID}

	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.Priority != nil {
		conditions = append(conditions, "priority = ?")
		args = append(args, string(*filter.Priority))
	}
	if filter.Query != nil && *filter.Query != "" {
		conditions = append(conditions, "(title LIKE ? OR note LIKE ?)")
		q := "%" + *filter.Query + "%"
		args = append(args, q, q)
	}
	if len(filter.ExcludeStatus) > 0 {
		placeholders := make([]string, len(filter.ExcludeStatus))
		for i, st := range filter.ExcludeStatus {
			placeholders[i] = "?"
			args = append(args, string(st))
		}
		conditions = append(conditions, "status NOT IN ("+strings.Join(placeholders, ", ")+")")
	}

	query := "SELECT " + taskColumns + " FROM tasks WHERE " + strings.Join(conditions, " AND ")

	sortBy := "created_at"
	allowedSorts := map[string]bool{
		"title":      true,
		"priority":   true,
		"due_date":   true,
		"created_at": true,
		"updated_at": true,
	}
	if allowedSorts[filter.SortBy] {
		sortBy = filter.SortBy
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}
	// rowid keeps insertion order stable when timestamps collide.
	query += fmt.Sprintf(" ORDER BY %s %s, rowid ASC", sortBy, direction)

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	var rows []taskRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}

	tasks := make([]model.Task, 0, len(rows))
	for _, r := range rows {
		t, err := r.toModel()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// GetTaskByID retrieves a single task owned by userID.
func (s *SQLiteStore) GetTaskByID(
	ctx context.Context,
	userID, id string,
) (*model.Task, error) {
	var r taskRow
	err := s.db.GetContext(ctx, &r,
		"SELECT "+taskColumns+" FROM tasks WHERE id = ? AND user_id = ?", id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting task %s: %w", id, err)
	}

	t, err := r.toModel()
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteTask removes a task owned by userID.
func (s *SQLiteStore) DeleteTask(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM tasks WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

// StatusCounts returns the number of a user's tasks in each status.
func (s *SQLiteStore) StatusCounts(ctx context.Context, userID string) (map[model.Status]int, error) {
	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"n"`
	}
	err := s.db.SelectContext(ctx, &rows,
		"SELECT status, COUNT(*) AS n FROM tasks WHERE user_id = ? GROUP BY status", userID)
	if err != nil {
		return nil, fmt.Errorf("counting tasks by status: %w", err)
	}

	counts := make(map[model.Status]int, len(rows))
	for _, r := range rows {
		counts[model.Status(r.Status)] = r.Count
	}
	return counts, nil
}

// utcPtr normalizes an optional timestamp to UTC; zero values become NULL.
func utcPtr(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
