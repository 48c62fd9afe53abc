package priority

import (
	"strings"

	"github.com/nhle/task-focus/internal/model"
)

// DefaultReason justifies a priority that was raised automatically.
const DefaultReason = "Automatically marked high due to strategic keywords"

// EscalationInput is the task content the escalator inspects.
type EscalationInput struct {
	Title    string
	Note     string
	Tags     []string
	Priority model.Priority
	Reason   string
}

// Escalation is the escalator's verdict.
type Escalation struct {
	Priority model.Priority
	Reason   string

	// Escalated is true when Priority was raised to high by a marker.
	Escalated bool
}

// Escalator forces strategic work to high priority.
type Escalator struct {
	markers []string
}

// NewEscalator builds an escalator for the given markers. Matching is
// case-insensitive; blank markers are ignored. With no usable markers the
// defaults are used.
func NewEscalator(markers []string) Escalator {
	var lowered []string
	for _, m := range markers {
		m = strings.ToLower(strings.TrimSpace(m))
		if m != "" {
			lowered = append(lowered, m)
		}
	}
	if len(lowered) == 0 {
		for _, m := range model.DefaultStrategicMarkers {
			lowered = append(lowered, strings.ToLower(m))
		}
	}
	return Escalator{markers: lowered}
}

// Escalate raises the priority to high when any strategic marker occurs in
// the title, note or tags. An existing non-blank reason is kept; otherwise
// DefaultReason is supplied. Inputs without a marker, or already high, are
// returned unchanged.
func (e Escalator) Escalate(in EscalationInput) Escalation {
	unchanged := Escalation{Priority: in.Priority, Reason: in.Reason}
	if in.Priority == model.PriorityHigh {
		return unchanged
	}
	if !e.Matches(in.Title, in.Note, in.Tags) {
		return unchanged
	}

	reason := in.Reason
	if strings.TrimSpace(reason) == "" {
		reason = DefaultReason
	}
	return Escalation{Priority: model.PriorityHigh, Reason: reason, Escalated: true}
}

// Matches reports whether any marker is a substring of the combined text.
func (e Escalator) Matches(title, note string, tags []string) bool {
	combined := strings.ToLower(title + " " + note + " " + strings.Join(tags, " "))
	for _, m := range e.markers {
		if strings.Contains(combined, m) {
			return true
		}
	}
	return false
}

// EscalateTask applies the escalator to a task's full text and tags,
// returning the adjusted copy.
func (e Escalator) EscalateTask(t model.Task) (model.Task, bool) {
	res := e.Escalate(EscalationInput{
		Title:    t.Title,
		Note:     t.Note,
		Tags:     t.PriorityTags.Flatten(),
		Priority: t.Priority,
		Reason:   t.Reason,
	})
	t.Priority = res.Priority
	t.Reason = res.Reason
	return t, res.Escalated
}
