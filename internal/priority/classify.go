package priority

import (
	"strings"
	"time"

	"github.com/nhle/task-focus/internal/model"
)

// Quadrant is one of the four urgency/importance buckets.
type Quadrant string

const (
	ImportantNotUrgent    Quadrant = "Important & Not Urgent"
	ImportantUrgent       Quadrant = "Important & Urgent"
	NotImportantNotUrgent Quadrant = "Not Important & Not Urgent"
	NotImportantUrgent    Quadrant = "Not Important & Urgent"
)

// Quadrants lists the buckets in board order.
var Quadrants = [4]Quadrant{
	ImportantNotUrgent,
	ImportantUrgent,
	NotImportantNotUrgent,
	NotImportantUrgent,
}

// Suggestion codes attached to classified tasks.
const (
	SuggestionReasonMissing = "reasonMissing"
	SuggestionOverdue       = "overdueTask"
)

// dateLayout keys calendar days so that comparisons are plain string
// comparisons.
const dateLayout = "2006-01-02"

// Annotated is a classification-time view of a task. Task.Priority holds
// the resolved priority; the stored task is left untouched.
type Annotated struct {
	model.Task
	Suggestion string `json:"suggestion"`
}

// Bucket is one labeled quadrant and its tasks in input order.
type Bucket struct {
	Quadrant Quadrant    `json:"title"`
	Tasks    []Annotated `json:"list"`
}

// Board is the result of a classification pass: always four buckets.
type Board [4]Bucket

// Bucket returns the bucket for q.
func (b Board) Bucket(q Quadrant) Bucket {
	for _, bucket := range b {
		if bucket.Quadrant == q {
			return bucket
		}
	}
	return Bucket{Quadrant: q}
}

// Locate finds the quadrant and annotated copy of the task with the given id.
func (b Board) Locate(id string) (Quadrant, Annotated, bool) {
	for _, bucket := range b {
		for _, a := range bucket.Tasks {
			if a.ID == id {
				return bucket.Quadrant, a, true
			}
		}
	}
	return "", Annotated{}, false
}

// Len returns the number of tasks across all buckets.
func (b Board) Len() int {
	n := 0
	for _, bucket := range b {
		n += len(bucket.Tasks)
	}
	return n
}

// WarnFunc is called once for each task escalated by a strategic tag that
// carries no justification.
type WarnFunc func(task model.Task, message string)

// Classifier partitions active tasks into quadrants.
type Classifier struct {
	escalator Escalator
	offset    time.Duration
	weekSpan  int
	warn      WarnFunc
}

// NewClassifier builds a classifier from the engine configuration. warn may
// be nil.
func NewClassifier(cfg model.EngineConfig, warn WarnFunc) *Classifier {
	span := cfg.WeekSpanDays
	if span <= 0 {
		span = 5
	}
	return &Classifier{
		escalator: NewEscalator(cfg.StrategicMarkers),
		offset:    cfg.Offset(),
		weekSpan:  span,
		warn:      warn,
	}
}

// Escalator returns the escalator the classifier applies.
func (c *Classifier) Escalator() Escalator { return c.escalator }

// Today returns the reference calendar date of now.
func (c *Classifier) Today(now time.Time) string {
	return now.UTC().Add(c.offset).Format(dateLayout)
}

// Classify buckets every non-completed task. Rules are evaluated in order and
// the first match wins, so buckets are mutually exclusive.
func (c *Classifier) Classify(tasks []model.Task, now time.Time) Board {
	var board Board
	for i, q := range Quadrants {
		board[i] = Bucket{Quadrant: q, Tasks: []Annotated{}}
	}

	today := c.Today(now)
	weekEnd := addDays(today, c.weekSpan)

	for _, t := range tasks {
		if t.IsCompleted() {
			continue
		}
		a := c.annotate(t)
		q, suggestion := c.place(a, today, weekEnd)
		if a.Suggestion == "" {
			a.Suggestion = suggestion
		}
		board[indexOf(q)].Tasks = append(board[indexOf(q)].Tasks, a)
	}

	return board
}

// annotate resolves the classification-time priority from the task's tags.
func (c *Classifier) annotate(t model.Task) Annotated {
	res := c.escalator.Escalate(EscalationInput{
		Tags:     t.PriorityTags.Flatten(),
		Priority: t.Priority,
		Reason:   t.Reason,
	})

	a := Annotated{Task: t}
	a.Priority = res.Priority
	if res.Escalated && strings.TrimSpace(t.Reason) == "" {
		a.Suggestion = SuggestionReasonMissing
		if c.warn != nil {
			c.warn(t, "Task \""+t.Title+"\" is marked high priority because of strategic tag, but reason is missing!")
		}
	}
	return a
}

// place applies the bucket policy. The returned suggestion only applies
// when the task has none yet.
func (c *Classifier) place(a Annotated, today, weekEnd string) (Quadrant, string) {
	if !a.HasDueDate() {
		return NotImportantNotUrgent, ""
	}
	due := a.DueDate.UTC().Format(dateLayout)
	created := ""
	if !a.CreatedAt.IsZero() {
		created = a.CreatedAt.UTC().Format(dateLayout)
	}

	switch {
	case due < today && a.Priority == model.PriorityHigh:
		return ImportantUrgent, SuggestionOverdue
	case due == today && a.Priority == model.PriorityHigh:
		return ImportantUrgent, ""
	case due > today && due <= weekEnd &&
		(a.Priority == model.PriorityHigh || a.Priority == model.PriorityNormal):
		return ImportantNotUrgent, ""
	case created == today && due == today:
		return NotImportantUrgent, ""
	default:
		return NotImportantNotUrgent, ""
	}
}

func indexOf(q Quadrant) int {
	for i, candidate := range Quadrants {
		if candidate == q {
			return i
		}
	}
	return 2
}

// addDays shifts a YYYY-MM-DD key by n calendar days.
func addDays(day string, n int) string {
	t, err := time.Parse(dateLayout, day)
	if err != nil {
		return day
	}
	return t.AddDate(0, 0, n).Format(dateLayout)
}
