package focus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nhle/task-focus/internal/model"
)

// fakeClock is a manually advanced clock.
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

var t0 = time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

// memCheckpoints is an in-memory Checkpointer that counts calls.
type memCheckpoints struct {
	saved   *model.FocusSession
	saves   int
	clears  int
	saveErr error
}

func (m *memCheckpoints) SaveCheckpoint(_ context.Context, s model.FocusSession) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	c := s.Clone()
	m.saved = &c
	return nil
}

func (m *memCheckpoints) LoadCheckpoint(context.Context) (*model.FocusSession, error) {
	return m.saved, nil
}

func (m *memCheckpoints) ClearCheckpoint(context.Context) error {
	m.clears++
	m.saved = nil
	return nil
}

func newTestManager(opts ...Option) (*Manager, *fakeClock) {
	clock := &fakeClock{t: t0}
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return NewManager(opts...), clock
}

func TestSessionScenario(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestManager()

	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	clock.Advance(10 * time.Second)
	entry, ok := m.RecordChange(ctx,
		model.Task{ID: "t1", Title: "A"},
		model.Task{ID: "t1", Title: "B"},
	)
	if !ok {
		t.Fatal("RecordChange reported no entry")
	}
	if entry.TimeSpent != 10 {
		t.Errorf("entry.TimeSpent = %d, want 10", entry.TimeSpent)
	}
	title, ok := entry.Changes["title"]
	if !ok {
		t.Fatalf("changes = %v, want a title change", entry.Changes)
	}
	if string(title.Before) != `"A"` || string(title.After) != `"B"` {
		t.Errorf("title change = %s -> %s, want \"A\" -> \"B\"", title.Before, title.After)
	}
	if len(entry.Changes) != 1 {
		t.Errorf("changes = %v, want only title", entry.SortedFields())
	}

	clock.Advance(50 * time.Second)
	session, ok := m.End(ctx)
	if !ok {
		t.Fatal("End reported no session")
	}
	if session.TimeSpent != 60 {
		t.Errorf("TimeSpent = %d, want 60", session.TimeSpent)
	}
	if len(session.TaskChanges) != 1 {
		t.Errorf("TaskChanges = %d, want 1", len(session.TaskChanges))
	}
	if session.EndTime == nil || !session.EndTime.Equal(t0.Add(60*time.Second)) {
		t.Errorf("EndTime = %v", session.EndTime)
	}
	if !session.Verify() {
		t.Error("ended session is not sealed")
	}
	if m.IsActive() {
		t.Error("manager still active after End")
	}
}

func TestEndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()

	if _, ok := m.End(ctx); ok {
		t.Error("End on inactive manager produced a session")
	}

	_ = m.Start(ctx)
	if _, ok := m.End(ctx); !ok {
		t.Fatal("first End produced no session")
	}
	if _, ok := m.End(ctx); ok {
		t.Error("second End produced a duplicate session")
	}
}

func TestStartWhileActiveIsRejected(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestManager()

	_ = m.Start(ctx)
	m.RecordCompletion(ctx, model.Task{ID: "t1", Title: "x"})
	clock.Advance(time.Minute)

	if err := m.Start(ctx); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("Start while active = %v, want ErrSessionActive", err)
	}
	snap, ok := m.Snapshot()
	if !ok {
		t.Fatal("session lost after rejected Start")
	}
	if !snap.StartTime.Equal(t0) || len(snap.CompletedTasks) != 1 {
		t.Errorf("rejected Start altered the session: %+v", snap)
	}
}

func TestRecordCompletionDedup(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestManager()
	_ = m.Start(ctx)

	m.RecordCompletion(ctx, model.Task{ID: "t1", Title: "first"})
	m.RecordCompletion(ctx, model.Task{ID: "t2", Title: "other"})
	clock.Advance(5 * time.Second)
	m.RecordCompletion(ctx, model.Task{ID: "t1", Title: "second"})

	session, _ := m.End(ctx)
	if len(session.CompletedTasks) != 2 {
		t.Fatalf("CompletedTasks = %d, want 2", len(session.CompletedTasks))
	}
	got := session.CompletedTasks[0]
	if got.ID != "t1" || got.Title != "second" {
		t.Errorf("CompletedTasks[0] = %+v, want later t1 snapshot in place", got)
	}
	if !got.CompletedAt.Equal(t0.Add(5 * time.Second)) {
		t.Errorf("CompletedAt = %v, want later timestamp", got.CompletedAt)
	}
	if got.Status != model.StatusCompleted {
		t.Errorf("Status = %q, want completed", got.Status)
	}
}

func TestRecordWhileInactiveIsIgnored(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()

	if m.RecordCompletion(ctx, model.Task{ID: "t1"}) {
		t.Error("RecordCompletion accepted while inactive")
	}
	if _, ok := m.RecordChange(ctx, model.Task{Title: "a"}, model.Task{Title: "b"}); ok {
		t.Error("RecordChange accepted while inactive")
	}

	_ = m.Start(ctx)
	session, _ := m.End(ctx)
	if len(session.CompletedTasks) != 0 || len(session.TaskChanges) != 0 {
		t.Errorf("inactive records leaked into next session: %+v", session)
	}
}

func TestRecordChangeIdenticalAppendsNothing(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestManager()
	_ = m.Start(ctx)

	task := model.Task{ID: "t1", Title: "same", Priority: model.PriorityHigh}
	if _, ok := m.RecordChange(ctx, task, task); ok {
		t.Error("identical snapshots produced an entry")
	}

	// Bookkeeping timestamps alone are not a change.
	touched := task
	touched.UpdatedAt = clock.Now().Add(time.Hour)
	touched.CreatedAt = clock.Now()
	if _, ok := m.RecordChange(ctx, task, touched); ok {
		t.Error("timestamp-only change produced an entry")
	}

	snap, _ := m.Snapshot()
	if len(snap.TaskChanges) != 0 {
		t.Errorf("TaskChanges = %d, want 0", len(snap.TaskChanges))
	}
}

func TestConsecutiveChangesAreNotMerged(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestManager()
	_ = m.Start(ctx)

	a := model.Task{ID: "t1", Title: "A"}
	b := model.Task{ID: "t1", Title: "B"}
	c := model.Task{ID: "t1", Title: "B", Note: "n"}

	m.RecordChange(ctx, a, b)
	clock.Advance(3 * time.Second)
	m.RecordChange(ctx, b, c)

	session, _ := m.End(ctx)
	if len(session.TaskChanges) != 2 {
		t.Fatalf("TaskChanges = %d, want 2", len(session.TaskChanges))
	}
	if session.TaskChanges[1].TaskTitle != "B" {
		t.Errorf("second entry title = %q, want title at diff time", session.TaskChanges[1].TaskTitle)
	}
	if session.TaskChanges[1].TimeSpent != 3 {
		t.Errorf("second entry TimeSpent = %d, want 3", session.TaskChanges[1].TimeSpent)
	}
}

func TestEndedSessionIsIsolated(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()
	_ = m.Start(ctx)
	m.RecordCompletion(ctx, model.Task{ID: "t1"})
	session, _ := m.End(ctx)

	_ = m.Start(ctx)
	m.RecordCompletion(ctx, model.Task{ID: "t2"})

	if len(session.CompletedTasks) != 1 || session.CompletedTasks[0].ID != "t1" {
		t.Errorf("new session leaked into ended summary: %+v", session.CompletedTasks)
	}
	if !session.Verify() {
		t.Error("ended summary no longer verifies")
	}
}

func TestCheckpointsAtDefinedPoints(t *testing.T) {
	ctx := context.Background()
	cp := &memCheckpoints{}
	m, _ := newTestManager(WithCheckpointer(cp))

	_ = m.Start(ctx)
	m.RecordCompletion(ctx, model.Task{ID: "t1"})
	m.RecordChange(ctx, model.Task{ID: "t1", Title: "a"}, model.Task{ID: "t1", Title: "b"})
	m.RecordChange(ctx, model.Task{ID: "t1"}, model.Task{ID: "t1"})

	if cp.saves != 3 {
		t.Errorf("saves = %d, want 3", cp.saves)
	}
	if cp.saved == nil || len(cp.saved.TaskChanges) != 1 || len(cp.saved.CompletedTasks) != 1 {
		t.Errorf("checkpoint = %+v", cp.saved)
	}

	m.End(ctx)
	if cp.clears != 1 || cp.saved != nil {
		t.Errorf("clears = %d saved = %v, want checkpoint cleared", cp.clears, cp.saved)
	}
}

func TestCheckpointFailureDoesNotAbort(t *testing.T) {
	ctx := context.Background()
	cp := &memCheckpoints{saveErr: errors.New("disk full")}
	m, _ := newTestManager(WithCheckpointer(cp))

	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !m.RecordCompletion(ctx, model.Task{ID: "t1"}) {
		t.Error("RecordCompletion failed because of checkpoint error")
	}
}

func TestRestoreFromCheckpoint(t *testing.T) {
	ctx := context.Background()
	cp := &memCheckpoints{}
	first, clock := newTestManager(WithCheckpointer(cp))
	_ = first.Start(ctx)
	clock.Advance(20 * time.Second)
	first.RecordCompletion(ctx, model.Task{ID: "t1", Title: "done"})

	second := NewManager(WithClock(func() time.Time { return t0.Add(90 * time.Second) }), WithCheckpointer(cp))
	restored, err := second.Restore(ctx)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !restored || !second.IsActive() {
		t.Fatal("session not restored")
	}
	session, _ := second.End(ctx)
	if session.TimeSpent != 90 {
		t.Errorf("TimeSpent = %d, want 90", session.TimeSpent)
	}
	if len(session.CompletedTasks) != 1 {
		t.Errorf("CompletedTasks = %d, want 1", len(session.CompletedTasks))
	}
}

func TestResetClearsEverything(t *testing.T) {
	ctx := context.Background()
	cp := &memCheckpoints{}
	m, _ := newTestManager(WithCheckpointer(cp))
	_ = m.Start(ctx)
	m.RecordCompletion(ctx, model.Task{ID: "t1"})

	m.Reset(ctx)
	if m.IsActive() {
		t.Error("active after Reset")
	}
	if cp.saved != nil {
		t.Error("checkpoint survived Reset")
	}
	if _, ok := m.End(ctx); ok {
		t.Error("End after Reset produced a session")
	}
}

func TestDiff(t *testing.T) {
	due := time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)
	before := model.Task{ID: "t1", Title: "A", Priority: model.PriorityLow, Note: "keep"}
	after := model.Task{ID: "t1", Title: "A", Priority: model.PriorityHigh, Note: "",
		DueDate: &due, PriorityTags: model.PriorityTags{Type: []string{"Deadline"}}}

	changes := Diff(before, after)
	entry := model.ChangeEntry{Changes: changes}
	want := []string{"due_date", "note", "priority", "priority_tags"}
	got := entry.SortedFields()
	if len(got) != len(want) {
		t.Fatalf("fields = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("fields[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if string(changes["due_date"].Before) != "null" {
		t.Errorf("due_date before = %s, want null", changes["due_date"].Before)
	}
	var note string
	if err := json.Unmarshal(changes["note"].After, &note); err != nil || note != "" {
		t.Errorf("note after = %s", changes["note"].After)
	}
}

func TestChangeEntryWireShape(t *testing.T) {
	entry := model.ChangeEntry{
		TaskID:    "t1",
		TaskTitle: "A",
		Timestamp: t0,
		TimeSpent: 10,
		Changes:   Diff(model.Task{Title: "A"}, model.Task{Title: "B"}),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var wire map[string]any
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	changes := wire["changes"].(map[string]any)
	title := changes["title"].(map[string]any)
	if title["before"] != "A" || title["after"] != "B" {
		t.Errorf("wire title change = %v", title)
	}
	if wire["taskId"] != "t1" || wire["timeSpent"].(float64) != 10 {
		t.Errorf("wire entry = %v", wire)
	}
}

func TestTimeSpentMatchesSerializedTimestamps(t *testing.T) {
	ctx := context.Background()
	start := time.Now()
	readings := []time.Time{start, start.Add(90*time.Second + 700*time.Millisecond)}
	m := NewManager(WithClock(func() time.Time {
		now := readings[0]
		if len(readings) > 1 {
			readings = readings[1:]
		}
		return now
	}))

	_ = m.Start(ctx)
	session, _ := m.End(ctx)

	raw, err := json.Marshal(session)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var received model.FocusSession
	if err := json.Unmarshal(raw, &received); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	recomputed := int64(received.EndTime.Sub(received.StartTime) / time.Second)
	if received.TimeSpent != 90 || recomputed != received.TimeSpent {
		t.Errorf("TimeSpent = %d, recomputed from timestamps = %d, want 90", received.TimeSpent, recomputed)
	}
	if !received.Verify() {
		t.Error("digest does not verify after a round trip")
	}
}
