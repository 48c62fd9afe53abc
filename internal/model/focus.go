package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"
)

// FieldChange holds the serialized before/after values of one task field.
type FieldChange struct {
	Before json.RawMessage `json:"before"`
	After  json.RawMessage `json:"after"`
}

// ChangeEntry is a field-level diff recorded while a focus session is active.
type ChangeEntry struct {
	TaskID    string                 `json:"taskId"`
	TaskTitle string                 `json:"taskTitle"`
	Timestamp time.Time              `json:"timestamp"`
	TimeSpent int64                  `json:"timeSpent"`
	Changes   map[string]FieldChange `json:"changes"`
}

// SortedFields returns the changed field names in lexical order.
func (c ChangeEntry) SortedFields() []string {
	fields := make([]string, 0, len(c.Changes))
	for k := range c.Changes {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}

// CompletedTask is the snapshot of a task completed during a focus session.
type CompletedTask struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Status      Status    `json:"status"`
	CompletedAt time.Time `json:"completed_at"`
}

// FocusSession is a bounded focus interval and everything journaled in it.
// EndTime is nil while the session is in progress.
type FocusSession struct {
	ID             string          `json:"id,omitempty"`
	StartTime      time.Time       `json:"startTime"`
	EndTime        *time.Time      `json:"endTime"`
	TimeSpent      int64           `json:"timeSpent"`
	CompletedTasks []CompletedTask `json:"completedTasks"`
	TaskChanges    []ChangeEntry   `json:"taskChanges"`
	Digest         string          `json:"digest,omitempty"`
}

// IsEnded reports whether the session has been sealed with an end time.
func (s FocusSession) IsEnded() bool { return s.EndTime != nil }

// Seal computes the digest over the session content. The ID and any existing
// digest are excluded, so a persisted copy verifies against the original.
func (s *FocusSession) Seal() {
	s.Digest = s.computeDigest()
}

// Verify reports whether the session content still matches its digest.
func (s FocusSession) Verify() bool {
	return s.Digest != "" && s.Digest == s.computeDigest()
}

func (s FocusSession) computeDigest() string {
	c := s
	c.ID = ""
	c.Digest = ""
	c.StartTime = c.StartTime.UTC()
	if c.EndTime != nil {
		end := c.EndTime.UTC()
		c.EndTime = &end
	}
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Clone returns a deep copy that shares no slices or maps with s.
func (s FocusSession) Clone() FocusSession {
	c := s
	if s.EndTime != nil {
		end := *s.EndTime
		c.EndTime = &end
	}
	c.CompletedTasks = append([]CompletedTask{}, s.CompletedTasks...)
	c.TaskChanges = make([]ChangeEntry, len(s.TaskChanges))
	for i, e := range s.TaskChanges {
		ce := e
		ce.Changes = make(map[string]FieldChange, len(e.Changes))
		for k, v := range e.Changes {
			ce.Changes[k] = v
		}
		c.TaskChanges[i] = ce
	}
	return c
}
