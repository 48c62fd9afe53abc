package focus

import (
	"context"
	"errors"
	"io"
	"log"
	gosync "sync"
	"time"

	"github.com/nhle/task-focus/internal/model"
)

// ErrSessionActive is returned by Start when a session is already running.
var ErrSessionActive = errors.New("focus session already active")

// State is the lifecycle state of the manager.
type State int

const (
	Inactive State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "inactive"
}

// Checkpointer is the persistence port the manager calls at defined points:
// after Start, after each recorded completion or change, and (as a clear)
// after End and Reset. Failures are logged and never abort the operation.
type Checkpointer interface {
	SaveCheckpoint(ctx context.Context, session model.FocusSession) error
	LoadCheckpoint(ctx context.Context) (*model.FocusSession, error)
	ClearCheckpoint(ctx context.Context) error
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithCheckpointer attaches a persistence port.
func WithCheckpointer(c Checkpointer) Option {
	return func(m *Manager) { m.checkpoints = c }
}

// WithLogger sets the logger used for checkpoint failures.
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// Manager owns at most one active focus session and its accumulators.
// A single Manager is shared by everything acting for one signed-in user.
type Manager struct {
	mu          gosync.Mutex
	now         func() time.Time
	checkpoints Checkpointer
	logger      *log.Logger

	state     State
	startTime time.Time
	completed []model.CompletedTask
	changes   []model.ChangeEntry
}

// NewManager creates an inactive manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		now:    time.Now,
		logger: log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IsActive reports whether a session is in progress.
func (m *Manager) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == Active
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Start begins a new session with empty accumulators.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Active {
		return ErrSessionActive
	}
	m.state = Active
	m.startTime = m.now()
	m.completed = []model.CompletedTask{}
	m.changes = []model.ChangeEntry{}

	m.checkpointLocked(ctx)
	return nil
}

// RecordCompletion upserts a completion snapshot for task, keyed by its ID.
// A repeated completion replaces the earlier snapshot in place. It reports
// false when no session is active.
func (m *Manager) RecordCompletion(ctx context.Context, task model.Task) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Active {
		return false
	}

	entry := model.CompletedTask{
		ID:          task.ID,
		Title:       task.Title,
		Status:      model.StatusCompleted,
		CompletedAt: m.now(),
	}
	replaced := false
	for i := range m.completed {
		if m.completed[i].ID == entry.ID {
			m.completed[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		m.completed = append(m.completed, entry)
	}

	m.checkpointLocked(ctx)
	return true
}

// RecordChange journals the field-level diff between two snapshots of the
// same task. Nothing is appended when no session is active or when the
// snapshots do not differ; ok is false in both cases.
func (m *Manager) RecordChange(ctx context.Context, before, after model.Task) (model.ChangeEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Active {
		return model.ChangeEntry{}, false
	}

	changes := Diff(before, after)
	if len(changes) == 0 {
		return model.ChangeEntry{}, false
	}

	now := m.now()
	taskID := before.ID
	if taskID == "" {
		taskID = after.ID
	}
	entry := model.ChangeEntry{
		TaskID:    taskID,
		TaskTitle: before.Title,
		Timestamp: now,
		TimeSpent: elapsedSeconds(m.startTime, now),
		Changes:   changes,
	}
	m.changes = append(m.changes, entry)

	m.checkpointLocked(ctx)
	return entry, true
}

// End seals the active session and returns its summary. The manager is
// back to Inactive with empty accumulators before End returns, whatever
// later happens to the summary. Calling End while inactive is a no-op that
// reports false.
func (m *Manager) End(ctx context.Context) (model.FocusSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Active {
		return model.FocusSession{}, false
	}

	end := m.now()
	session := m.snapshotLocked()
	session.EndTime = &end
	session.TimeSpent = elapsedSeconds(m.startTime, end)
	session.Seal()

	m.clearLocked()

	m.clearCheckpointLocked(ctx)
	return session, true
}

// Reset discards any in-progress session without producing a summary.
// Hosts call it when the signed-in identity changes.
func (m *Manager) Reset(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearLocked()

	m.clearCheckpointLocked(ctx)
}

// Snapshot returns a copy of the in-progress session. The second result is
// false when no session is active.
func (m *Manager) Snapshot() (model.FocusSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Active {
		return model.FocusSession{}, false
	}
	return m.snapshotLocked(), true
}

// Elapsed returns how long the active session has been running.
func (m *Manager) Elapsed() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Active {
		return 0
	}
	return m.now().Sub(m.startTime)
}

// Restore reloads an in-progress session from the checkpoint port. It
// reports whether a session was restored. A restore is skipped when a
// session is already active.
func (m *Manager) Restore(ctx context.Context) (bool, error) {
	if m.checkpoints == nil {
		return false, nil
	}
	saved, err := m.checkpoints.LoadCheckpoint(ctx)
	if err != nil {
		return false, err
	}
	if saved == nil || saved.IsEnded() || saved.StartTime.IsZero() {
		return false, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Active {
		return false, nil
	}
	restored := saved.Clone()
	m.state = Active
	m.startTime = restored.StartTime
	m.completed = restored.CompletedTasks
	m.changes = restored.TaskChanges
	if m.completed == nil {
		m.completed = []model.CompletedTask{}
	}
	if m.changes == nil {
		m.changes = []model.ChangeEntry{}
	}
	return true, nil
}

// snapshotLocked copies the accumulators. Callers hold m.mu.
func (m *Manager) snapshotLocked() model.FocusSession {
	return model.FocusSession{
		StartTime:      m.startTime,
		CompletedTasks: m.completed,
		TaskChanges:    m.changes,
	}.Clone()
}

// clearLocked returns to Inactive. Callers hold m.mu.
func (m *Manager) clearLocked() {
	m.state = Inactive
	m.startTime = time.Time{}
	m.completed = nil
	m.changes = nil
}

// checkpointLocked persists the in-progress session. Port I/O happens under
// m.mu so a late save can never resurrect a session that has ended.
func (m *Manager) checkpointLocked(ctx context.Context) {
	if m.checkpoints == nil {
		return
	}
	if err := m.checkpoints.SaveCheckpoint(ctx, m.snapshotLocked()); err != nil {
		m.logger.Printf("saving focus checkpoint: %v", err)
	}
}

func (m *Manager) clearCheckpointLocked(ctx context.Context) {
	if m.checkpoints == nil {
		return
	}
	if err := m.checkpoints.ClearCheckpoint(ctx); err != nil {
		m.logger.Printf("clearing focus checkpoint: %v", err)
	}
}

// elapsedSeconds floors the interval to whole seconds, never negative. It
// uses wall-clock readings only, as a receiver recomputing it from the
// serialized timestamps would.
func elapsedSeconds(start, end time.Time) int64 {
	d := end.Round(0).Sub(start.Round(0))
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}
