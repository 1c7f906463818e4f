// Package countdown provides a drift-free countdown with a single expiry callback.
package countdown

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// State is the lifecycle state of a Timer.
type State int

const (
	Stopped State = iota
	Running
	Expired
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Expired:
		return "expired"
	default:
		return "stopped"
	}
}

// ErrRunning is returned when Start is called on a running timer.
var ErrRunning = errors.New("countdown already running")

// Timer counts down from a total allowance. Remaining time is always derived
// from the start instant and the clock, never from the number of ticks seen.
type Timer struct {
	mu        sync.Mutex
	clock     clockwork.Clock
	state     State
	total     time.Duration
	startedAt time.Time
	frozen    time.Duration
	onExpire  func()
}

// New returns a stopped timer. A nil clock uses the real clock.
func New(clock clockwork.Clock) *Timer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Timer{clock: clock}
}

// OnExpire sets the callback fired once when the allowance runs out.
func (t *Timer) OnExpire(fn func()) {
	t.mu.Lock()
	t.onExpire = fn
	t.mu.Unlock()
}

// Start begins counting down totalSeconds.
func (t *Timer) Start(totalSeconds int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Running {
		return ErrRunning
	}
	if totalSeconds < 0 {
		totalSeconds = 0
	}
	t.total = time.Duration(totalSeconds) * time.Second
	t.startedAt = t.clock.Now()
	t.frozen = 0
	t.state = Running
	return nil
}

// Stop cancels a running countdown without firing the callback.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != Running {
		return
	}
	t.frozen = t.clock.Since(t.startedAt)
	t.state = Stopped
}

// Tick re-reads the clock and returns the remaining whole seconds. The
// transition to Expired and the callback happen at most once per Start.
func (t *Timer) Tick() int {
	t.mu.Lock()
	if t.state != Running {
		remaining := t.remainingLocked()
		t.mu.Unlock()
		return remaining
	}
	remaining := t.remainingLocked()
	var fire func()
	if remaining <= 0 {
		t.state = Expired
		fire = t.onExpire
	}
	t.mu.Unlock()

	if fire != nil {
		fire()
	}
	return remaining
}

// Remaining returns the remaining whole seconds without changing state.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remainingLocked()
}

// Elapsed returns how long the current or last run has been counting.
func (t *Timer) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.state {
	case Running:
		return t.clock.Since(t.startedAt)
	case Expired:
		return t.total
	default:
		return t.frozen
	}
}

// State returns the current state.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Run drives Tick once per second until the timer leaves Running or ctx ends.
func (t *Timer) Run(ctx context.Context) error {
	ticker := t.clock.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		if t.State() != Running {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			t.Tick()
		}
	}
}

func (t *Timer) remainingLocked() int {
	var left time.Duration
	switch t.state {
	case Running:
		left = t.total - t.clock.Since(t.startedAt)
	case Expired:
		return 0
	default:
		left = t.total - t.frozen
	}
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}
