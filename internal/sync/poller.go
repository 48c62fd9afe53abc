package sync

import (
	"context"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/task-focus/internal/model"
	"github.com/nhle/task-focus/internal/remote"
)

// SyncState represents the current state of the refresh loop.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

func (s SyncState) String() string {
	switch s {
	case SyncRunning:
		return "syncing"
	case SyncError:
		return "error"
	default:
		return "idle"
	}
}

// SyncStatus holds the refresh state.
type SyncStatus struct {
	State    SyncState
	LastSync time.Time
	Error    error
}

// RefreshResultMsg is a tea.Msg sent when a refresh completes.
type RefreshResultMsg struct {
	Tasks        []model.Task
	Error        error
	AuthExpired  bool
	NewTaskCount int
}

// Fetcher loads the current task list.
type Fetcher func(ctx context.Context) ([]model.Task, error)

// fetchTimeout is the maximum time allowed for a single fetch operation.
const fetchTimeout = 30 * time.Second

// defaultInterval applies when no poll interval is configured.
const defaultInterval = 120 * time.Second

// Poller refreshes the task list in the background so that changes made
// elsewhere (another device, the REST API) reach the board.
type Poller struct {
	fetch     Fetcher
	interval  time.Duration
	status    SyncStatus
	known     map[string]bool
	resultCh  chan RefreshResultMsg
	triggerCh chan struct{}
	stopCh    chan struct{}
	mu        gosync.Mutex
	running   bool
}

// New creates a Poller. A non-positive interval uses two minutes.
func New(fetch Fetcher, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Poller{
		fetch:     fetch,
		interval:  interval,
		resultCh:  make(chan RefreshResultMsg, 16),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// Start launches the polling goroutine and returns a tea.Cmd that waits
// for the first result.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	go p.loop()

	return p.waitForResult()
}

// Stop halts the polling goroutine.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	close(p.stopCh)
	p.running = false
}

// Refresh triggers an immediate fetch.
func (p *Poller) Refresh() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
		// A refresh is already pending.
	}
}

// Status returns the current refresh status.
func (p *Poller) Status() SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Poller) loop() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.RefreshOnce()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.RefreshOnce()
		case <-p.triggerCh:
			p.RefreshOnce()
		}
	}
}

// RefreshOnce performs a single fetch and publishes the result.
func (p *Poller) RefreshOnce() {
	p.setStatus(SyncRunning, nil)

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	tasks, err := p.fetch(ctx)
	if err != nil {
		p.setStatus(SyncError, err)
		p.sendResult(RefreshResultMsg{Error: err, AuthExpired: remote.IsAuthError(err)})
		return
	}

	p.mu.Lock()
	newCount := 0
	if p.known != nil {
		for _, t := range tasks {
			if !p.known[t.ID] {
				newCount++
			}
		}
	}
	p.known = make(map[string]bool, len(tasks))
	for _, t := range tasks {
		p.known[t.ID] = true
	}
	p.mu.Unlock()

	p.setStatus(SyncIdle, nil)
	p.sendResult(RefreshResultMsg{Tasks: tasks, NewTaskCount: newCount})
}

func (p *Poller) setStatus(state SyncState, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.State = state
	p.status.Error = err
	if state == SyncIdle {
		p.status.LastSync = time.Now()
	}
}

// sendResult sends a result without blocking.
func (p *Poller) sendResult(msg RefreshResultMsg) {
	select {
	case p.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the poller
	}
}

func (p *Poller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-p.resultCh
		if !ok {
			return nil
		}
		return result
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next refresh
// result. Call it after handling each RefreshResultMsg.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}
