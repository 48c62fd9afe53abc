package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	gosync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/task-focus/internal/auth"
	"github.com/nhle/task-focus/internal/focus"
	"github.com/nhle/task-focus/internal/model"
	"github.com/nhle/task-focus/internal/priority"
)

// ErrSignedOut is returned by task operations while no identity is bound.
var ErrSignedOut = errors.New("not signed in")

// maxNotices bounds the in-memory notice history.
const maxNotices = 50

// TaskBackend is the task-storage collaborator for one signed-in user.
type TaskBackend interface {
	Tasks(ctx context.Context) ([]model.Task, error)
	SaveTask(ctx context.Context, task model.Task, isUpdate bool) (*model.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// SessionBackend persists ended focus sessions for one user.
type SessionBackend interface {
	focus.Publisher
	ListSessions(ctx context.Context, limit int) ([]model.FocusSession, error)
}

// NoticeStore persists the notices of one user.
type NoticeStore interface {
	CreateNotification(ctx context.Context, n model.Notice) error
	GetUnreadNotifications(ctx context.Context) ([]model.Notice, error)
	MarkNotificationRead(ctx context.Context, id string) error
}

// Backends are the collaborators bound to one identity.
type Backends struct {
	Tasks       TaskBackend
	Sessions    SessionBackend
	Checkpoints focus.Checkpointer
	Notices     NoticeStore
}

// BackendFactory builds the collaborators for a signed-in identity.
type BackendFactory func(id auth.Identity) Backends

// Option configures a Host.
type Option func(*Host)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(h *Host) { h.now = now }
}

// WithLogger sets the host logger.
func WithLogger(l *log.Logger) Option {
	return func(h *Host) { h.logger = l }
}

// WithSyncTimeout bounds each background session publish.
func WithSyncTimeout(d time.Duration) Option {
	return func(h *Host) { h.syncTimeout = d }
}

// Host owns the prioritization and focus engine for whoever is signed in.
// UI surfaces and commands call it instead of the engine parts directly.
type Host struct {
	factory     BackendFactory
	classifier  *priority.Classifier
	escalator   priority.Escalator
	syncTimeout time.Duration
	now         func() time.Time
	logger      *log.Logger

	mu       gosync.Mutex
	identity auth.Identity
	backends Backends
	manager  *focus.Manager
	syncer   *focus.Syncer
	notices  []model.Notice
	warned   map[warnKey]bool
}

// warnKey identifies a classifier warning already raised for a task.
type warnKey struct {
	taskID  string
	message string
}

// NewHost creates a signed-out host.
func NewHost(cfg model.EngineConfig, factory BackendFactory, opts ...Option) *Host {
	h := &Host{
		factory: factory,
		now:     time.Now,
		logger:  log.New(io.Discard, "", 0),
		warned:  make(map[warnKey]bool),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.classifier = priority.NewClassifier(cfg, h.warn)
	h.escalator = h.classifier.Escalator()
	h.manager = focus.NewManager(focus.WithClock(h.now), focus.WithLogger(h.logger))
	h.syncer = focus.NewSyncer(nil, h)
	return h
}

// Attach binds the host to w: the current identity is adopted now and
// every later change rebinds the host.
func (h *Host) Attach(w *auth.Watcher) {
	w.Subscribe(h.Bind)
	if id := w.Current(); id.SignedIn() {
		h.Bind(id)
	}
}

// Bind switches the host to id. Any in-progress focus session of the
// previous identity is discarded without a summary, and so are its
// in-memory notices.
func (h *Host) Bind(id auth.Identity) {
	h.mu.Lock()
	old := h.manager
	h.mu.Unlock()

	old.Reset(context.Background())

	var b Backends
	if id.SignedIn() && h.factory != nil {
		b = h.factory(id)
	}

	opts := []focus.Option{focus.WithClock(h.now), focus.WithLogger(h.logger)}
	if b.Checkpoints != nil {
		opts = append(opts, focus.WithCheckpointer(b.Checkpoints))
	}
	var publisher focus.Publisher
	if b.Sessions != nil {
		publisher = b.Sessions
	}
	syncer := focus.NewSyncer(publisher, h.notifierFor(id.UserID))
	if h.syncTimeout > 0 {
		syncer.WithTimeout(h.syncTimeout)
	}

	h.mu.Lock()
	h.identity = id
	h.backends = b
	h.manager = focus.NewManager(opts...)
	h.syncer = syncer
	h.notices = nil
	h.warned = make(map[warnKey]bool)
	h.mu.Unlock()
}

// notifierFor routes sync outcomes to the host only while userID is still
// bound. A publish that finishes after a user switch is logged instead.
func (h *Host) notifierFor(userID string) focus.Notifier {
	return focus.NotifierFunc(func(n model.Notice) {
		if h.Identity().UserID != userID {
			h.logger.Printf("dropping notice for signed-out user: %s", n.Message)
			return
		}
		h.Notify(n)
	})
}

// Identity returns the bound identity.
func (h *Host) Identity() auth.Identity {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.identity
}

func (h *Host) engine() (*focus.Manager, *focus.Syncer, Backends) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.manager, h.syncer, h.backends
}

// Restore reloads an in-progress focus session saved before a restart.
func (h *Host) Restore(ctx context.Context) (bool, error) {
	m, _, _ := h.engine()
	return m.Restore(ctx)
}

// Tasks returns the bound user's tasks.
func (h *Host) Tasks(ctx context.Context) ([]model.Task, error) {
	_, _, b := h.engine()
	if b.Tasks == nil {
		return nil, ErrSignedOut
	}
	return b.Tasks.Tasks(ctx)
}

// Board classifies the bound user's tasks as of now.
func (h *Host) Board(ctx context.Context) (priority.Board, error) {
	tasks, err := h.Tasks(ctx)
	if err != nil {
		return priority.Board{}, err
	}
	return h.Classify(tasks), nil
}

// Classify buckets tasks as of now.
func (h *Host) Classify(tasks []model.Task) priority.Board {
	return h.classifier.Classify(tasks, h.now())
}

// SaveTask escalates strategic tasks, persists the task, and journals the
// change into an active focus session. A task that becomes completed is
// also recorded as a completion.
func (h *Host) SaveTask(ctx context.Context, task model.Task, isUpdate bool) (*model.Task, error) {
	m, _, b := h.engine()
	if b.Tasks == nil {
		return nil, ErrSignedOut
	}

	var before *model.Task
	if isUpdate {
		found, err := h.findTask(ctx, b.Tasks, task.ID)
		if err != nil {
			return nil, err
		}
		before = found
	}

	task, _ = h.escalator.EscalateTask(task)

	saved, err := b.Tasks.SaveTask(ctx, task, isUpdate)
	if err != nil {
		return nil, fmt.Errorf("saving task: %w", err)
	}

	if before != nil {
		m.RecordChange(ctx, *before, *saved)
		if saved.IsCompleted() && !before.IsCompleted() {
			m.RecordCompletion(ctx, *saved)
		}
	} else if saved.IsCompleted() {
		m.RecordCompletion(ctx, *saved)
	}
	return saved, nil
}

// CompleteTask marks a task completed.
func (h *Host) CompleteTask(ctx context.Context, id string) (*model.Task, error) {
	_, _, b := h.engine()
	if b.Tasks == nil {
		return nil, ErrSignedOut
	}
	task, err := h.findTask(ctx, b.Tasks, id)
	if err != nil {
		return nil, err
	}
	task.Status = model.StatusCompleted
	return h.SaveTask(ctx, *task, true)
}

// DeleteTask removes a task.
func (h *Host) DeleteTask(ctx context.Context, id string) error {
	_, _, b := h.engine()
	if b.Tasks == nil {
		return ErrSignedOut
	}
	return b.Tasks.DeleteTask(ctx, id)
}

func (h *Host) findTask(ctx context.Context, tb TaskBackend, id string) (*model.Task, error) {
	tasks, err := tb.Tasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}
	for i := range tasks {
		if tasks[i].ID == id {
			return &tasks[i], nil
		}
	}
	return nil, fmt.Errorf("task %s not found", id)
}

// StartFocus begins a focus session.
func (h *Host) StartFocus(ctx context.Context) error {
	m, _, _ := h.engine()
	return m.Start(ctx)
}

// EndFocus ends the active session and hands the summary to the sync
// collaborator in the background. ok is false when no session was active;
// result yields the publish outcome.
func (h *Host) EndFocus(ctx context.Context) (session model.FocusSession, result <-chan error, ok bool) {
	m, s, _ := h.engine()
	session, ok = m.End(ctx)
	if !ok {
		return model.FocusSession{}, nil, false
	}
	return session, s.Dispatch(session), true
}

// Focusing reports whether a focus session is active.
func (h *Host) Focusing() bool {
	m, _, _ := h.engine()
	return m.IsActive()
}

// FocusElapsed returns the running time of the active session.
func (h *Host) FocusElapsed() time.Duration {
	m, _, _ := h.engine()
	return m.Elapsed()
}

// FocusSnapshot returns the in-progress session.
func (h *Host) FocusSnapshot() (model.FocusSession, bool) {
	m, _, _ := h.engine()
	return m.Snapshot()
}

// Sessions lists past focus sessions, newest first.
func (h *Host) Sessions(ctx context.Context, limit int) ([]model.FocusSession, error) {
	_, _, b := h.engine()
	if b.Sessions == nil {
		return nil, ErrSignedOut
	}
	return b.Sessions.ListSessions(ctx, limit)
}

// Notify implements focus.Notifier. Notices are kept in memory, persisted
// when a notice store is configured, and logged.
func (h *Host) Notify(n model.Notice) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = h.now()
	}

	h.mu.Lock()
	h.notices = append(h.notices, n)
	if len(h.notices) > maxNotices {
		h.notices = h.notices[len(h.notices)-maxNotices:]
	}
	ns := h.backends.Notices
	h.mu.Unlock()

	h.logger.Printf("%s: %s", n.Level, n.Message)
	if ns != nil {
		if err := ns.CreateNotification(context.Background(), n); err != nil {
			h.logger.Printf("persisting notice: %v", err)
		}
	}
}

// Notices returns notices raised so far, oldest first.
func (h *Host) Notices() []model.Notice {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]model.Notice{}, h.notices...)
}

// LatestNotice returns the most recent notice.
func (h *Host) LatestNotice() (model.Notice, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.notices) == 0 {
		return model.Notice{}, false
	}
	return h.notices[len(h.notices)-1], true
}

// UnreadNotices returns the bound user's persisted notices not yet marked
// read.
func (h *Host) UnreadNotices(ctx context.Context) ([]model.Notice, error) {
	_, _, b := h.engine()
	if b.Notices == nil {
		return nil, nil
	}
	return b.Notices.GetUnreadNotifications(ctx)
}

// MarkNoticesRead marks every persisted notice of the bound user as read.
func (h *Host) MarkNoticesRead(ctx context.Context) error {
	_, _, b := h.engine()
	if b.Notices == nil {
		return nil
	}
	unread, err := b.Notices.GetUnreadNotifications(ctx)
	if err != nil {
		return err
	}
	for _, n := range unread {
		if err := b.Notices.MarkNotificationRead(ctx, n.ID); err != nil {
			return fmt.Errorf("marking notice %s read: %w", n.ID, err)
		}
	}
	return nil
}

// warn turns classifier warnings into notices. A warning already raised
// for the same task is not repeated until the identity changes.
func (h *Host) warn(t model.Task, msg string) {
	key := warnKey{taskID: t.ID, message: msg}
	h.mu.Lock()
	if h.warned[key] {
		h.mu.Unlock()
		return
	}
	h.warned[key] = true
	h.mu.Unlock()
	h.Notify(model.Notice{Level: model.NoticeWarn, TaskID: t.ID, Message: msg})
}

// StatusCounts tallies tasks per status.
func StatusCounts(tasks []model.Task) map[model.Status]int {
	counts := make(map[model.Status]int)
	for _, t := range tasks {
		counts[t.Status]++
	}
	return counts
}
