package model

import "time"

// NoticeLevel grades how prominently a notice is shown.
type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeWarn  NoticeLevel = "warn"
	NoticeError NoticeLevel = "error"
)

// Notice is a transient message surfaced to the user, such as a missing
// high-priority justification or a failed focus-session sync.
type Notice struct {
	// ID is the unique identifier for this notice.
	ID string `json:"id"`

	// Level grades the notice.
	Level NoticeLevel `json:"level"`

	// TaskID links the notice to a task, when it concerns one.
	TaskID string `json:"task_id,omitempty"`

	// Message is the human-readable notice text.
	Message string `json:"message"`

	// Read indicates whether the user has seen this notice.
	Read bool `json:"read"`

	// CreatedAt is when this notice was generated.
	CreatedAt time.Time `json:"created_at"`
}
