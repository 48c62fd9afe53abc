package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Priority is the user-facing urgency level of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Status is the lifecycle state of a task. The set is open-ended; hosts
// may store values beyond the constants below.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusDeferred   Status = "deferred"
)

// PriorityTags groups the free-text labels a user attaches to a task.
type PriorityTags struct {
	Complexity []string `json:"complexity"`
	Type       []string `json:"type"`
	Category   []string `json:"category"`
	Impact     []string `json:"impact"`
}

// Flatten returns every label across all four groups, in group order.
func (p PriorityTags) Flatten() []string {
	out := make([]string, 0, len(p.Complexity)+len(p.Type)+len(p.Category)+len(p.Impact))
	out = append(out, p.Complexity...)
	out = append(out, p.Type...)
	out = append(out, p.Category...)
	out = append(out, p.Impact...)
	return out
}

// IsEmpty reports whether no group holds a label.
func (p PriorityTags) IsEmpty() bool {
	return len(p.Complexity) == 0 && len(p.Type) == 0 &&
		len(p.Category) == 0 && len(p.Impact) == 0
}

// Task is a work item owned by the signed-in user.
//
// Every field is always serialized (no omitempty) so that field-level diffs
// see a cleared value as a change rather than a missing key.
type Task struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	DueDate      *time.Time   `json:"due_date"`
	Priority     Priority     `json:"priority"`
	Note         string       `json:"note"`
	Reason       string       `json:"reason"`
	Status       Status       `json:"status"`
	AssignedTo   string       `json:"assigned_to"`
	PriorityTags PriorityTags `json:"priority_tags"`
}

// IsCompleted reports whether the task has reached the completed status.
func (t Task) IsCompleted() bool { return t.Status == StatusCompleted }

// HasDueDate reports whether the task carries a usable due date.
func (t Task) HasDueDate() bool { return t.DueDate != nil && !t.DueDate.IsZero() }

// taskWire mirrors Task with loosely typed timestamps so that malformed
// dates from hosts or older clients degrade to "absent" instead of failing.
type taskWire struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	CreatedAt    json.RawMessage `json:"created_at"`
	UpdatedAt    json.RawMessage `json:"updated_at"`
	DueDate      json.RawMessage `json:"due_date"`
	Priority     Priority        `json:"priority"`
	Note         string          `json:"note"`
	Reason       string          `json:"reason"`
	Status       Status          `json:"status"`
	AssignedTo   string          `json:"assigned_to"`
	PriorityTags PriorityTags    `json:"priority_tags"`
}

// UnmarshalJSON decodes a task, tolerating missing or unparsable dates.
func (t *Task) UnmarshalJSON(data []byte) error {
	var w taskWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*t = Task{
		ID:           w.ID,
		Title:        w.Title,
		Priority:     w.Priority,
		Note:         w.Note,
		Reason:       w.Reason,
		Status:       w.Status,
		AssignedTo:   w.AssignedTo,
		PriorityTags: w.PriorityTags,
	}
	if ts := parseLooseTime(w.CreatedAt); ts != nil {
		t.CreatedAt = *ts
	}
	if ts := parseLooseTime(w.UpdatedAt); ts != nil {
		t.UpdatedAt = *ts
	}
	t.DueDate = parseLooseTime(w.DueDate)
	return nil
}

// looseLayouts are tried in order when decoding a timestamp string.
var looseLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseLooseTime decodes a JSON string timestamp, returning nil for null,
// empty or unparsable values.
func parseLooseTime(raw json.RawMessage) *time.Time {
	if len(raw) == 0 {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return ParseTime(s)
}

// ParseTime parses a user- or wire-supplied timestamp in any of the accepted
// layouts. It returns nil when s is blank or matches no layout.
func ParseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range looseLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			if ts.IsZero() {
				return nil
			}
			return &ts
		}
	}
	return nil
}
