package remote

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/nhle/task-focus/internal/model"
)

// Tasks lists the signed-in user's tasks.
func (c *Client) Tasks(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := c.Get(ctx, "/api/tasks", &tasks); err != nil {
		return nil, fmt.Errorf("fetching tasks: %w", err)
	}
	return tasks, nil
}

// SaveTask creates (POST) or updates (PUT) a task and returns the stored copy.
func (c *Client) SaveTask(ctx context.Context, task model.Task, isUpdate bool) (*model.Task, error) {
	var saved model.Task
	if isUpdate {
		path := "/api/tasks/" + url.PathEscape(task.ID)
		if err := c.Put(ctx, path, task, &saved); err != nil {
			return nil, fmt.Errorf("updating task %s: %w", task.ID, err)
		}
		return &saved, nil
	}
	if err := c.Post(ctx, "/api/tasks", task, &saved); err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	return &saved, nil
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	if err := c.Delete(ctx, "/api/tasks/"+url.PathEscape(id)); err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	return nil
}

// CreateSession posts an ended focus session.
func (c *Client) CreateSession(ctx context.Context, session model.FocusSession) (*model.FocusSession, error) {
	var saved model.FocusSession
	if err := c.Post(ctx, "/api/focus", session, &saved); err != nil {
		return nil, fmt.Errorf("saving focus session: %w", err)
	}
	return &saved, nil
}

// ListSessions returns recent sessions, newest first by start time whatever
// order the server used. A non-positive limit leaves the server default in
// place.
func (c *Client) ListSessions(ctx context.Context, limit int) ([]model.FocusSession, error) {
	path := "/api/focus"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var sessions []model.FocusSession
	if err := c.Get(ctx, path, &sessions); err != nil {
		return nil, fmt.Errorf("fetching focus sessions: %w", err)
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].StartTime.After(sessions[j].StartTime)
	})
	return sessions, nil
}
