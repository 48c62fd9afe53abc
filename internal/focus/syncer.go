package focus

import (
	"context"
	"fmt"
	"time"

	"github.com/nhle/task-focus/internal/model"
)

// syncTimeout bounds a single publish attempt.
const syncTimeout = 30 * time.Second

// Publisher is the persistence collaborator that receives sealed sessions.
type Publisher interface {
	CreateSession(ctx context.Context, session model.FocusSession) (*model.FocusSession, error)
}

// Notifier receives transient notices for the user.
type Notifier interface {
	Notify(n model.Notice)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(n model.Notice)

// Notify calls f(n).
func (f NotifierFunc) Notify(n model.Notice) { f(n) }

// Syncer hands ended sessions to the publisher, once each and without
// retrying. The local session is already ended when Dispatch is called, so
// a failed publish only produces an error notice.
type Syncer struct {
	publisher Publisher
	notifier  Notifier
	timeout   time.Duration
	now       func() time.Time
}

// NewSyncer creates a Syncer. notifier may be nil.
func NewSyncer(p Publisher, n Notifier) *Syncer {
	return &Syncer{publisher: p, notifier: n, timeout: syncTimeout, now: time.Now}
}

// WithTimeout overrides the per-publish timeout.
func (s *Syncer) WithTimeout(d time.Duration) *Syncer {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Dispatch publishes session in the background. The returned channel
// yields the publish outcome exactly once and is then closed; callers that
// do not care may ignore it.
func (s *Syncer) Dispatch(session model.FocusSession) <-chan error {
	done := make(chan error, 1)
	summary := session.Clone()

	go func() {
		defer close(done)
		done <- s.publish(summary)
	}()

	return done
}

func (s *Syncer) publish(session model.FocusSession) error {
	if s.publisher == nil {
		err := fmt.Errorf("no focus-session publisher configured")
		s.notify(model.NoticeError, "Failed to save focus session: "+err.Error())
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.publisher.CreateSession(ctx, session); err != nil {
		s.notify(model.NoticeError, "Failed to save focus session in background.")
		return fmt.Errorf("publishing focus session: %w", err)
	}

	s.notify(model.NoticeInfo, "Focus session saved successfully!")
	return nil
}

func (s *Syncer) notify(level model.NoticeLevel, msg string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(model.Notice{
		Level:     level,
		Message:   msg,
		CreatedAt: s.now(),
	})
}
