// Package recording turns platform audio capture into a start/stop/artifact lifecycle.
package recording

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/verte-zerg/ieltsmock/internal/countdown"
)

// Phase is the lifecycle phase of a Unit.
type Phase int

const (
	Instructions Phase = iota
	Preparing
	Recording
	Completed
)

func (p Phase) String() string {
	switch p {
	case Preparing:
		return "preparing"
	case Recording:
		return "recording"
	case Completed:
		return "completed"
	default:
		return "instructions"
	}
}

var (
	// ErrWrongPhase is returned when an action does not apply to the current phase.
	ErrWrongPhase = errors.New("action not allowed in current phase")
	// ErrClosed is returned after the unit has been torn down.
	ErrClosed = errors.New("recording unit closed")
)

// Artifact is a finished recording.
type Artifact interface {
	Ref() string
	Discard() error
}

// InputHandle is an open capture on the audio input device.
type InputHandle interface {
	// Finish stops capturing and finalizes the recording.
	Finish() (Artifact, error)
	// Close releases the device. It is safe to call after Finish and more than once.
	Close() error
}

// Source acquires the audio input and starts capturing.
type Source interface {
	Acquire(ctx context.Context) (InputHandle, error)
}

// State is a point-in-time view of a Unit.
type State struct {
	Phase         Phase
	Elapsed       time.Duration
	PrepRemaining int
	TimeRemaining int
	ArtifactRef   string
	Err           error
}

// Unit owns the recording of one speaking question.
type Unit struct {
	mu        sync.Mutex
	source    Source
	profile   Profile
	prep      *countdown.Timer
	limit     *countdown.Timer
	logger    *slog.Logger
	onAnswer  func(ref string)
	phase     Phase
	handle    InputHandle
	acquiring bool
	artifact  Artifact
	recorded  time.Duration
	err       error
	closed    bool
}

// NewUnit builds a unit for the given profile. onAnswer receives the artifact
// reference on completion and "" when the artifact is discarded.
func NewUnit(source Source, profile Profile, clock clockwork.Clock, logger *slog.Logger, onAnswer func(ref string)) *Unit {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Unit{
		source:   source,
		profile:  profile,
		prep:     countdown.New(clock),
		limit:    countdown.New(clock),
		logger:   logger,
		onAnswer: onAnswer,
	}
}

// Profile returns the timing profile of the unit.
func (u *Unit) Profile() Profile {
	return u.profile
}

// Begin starts the preparation countdown, or recording directly when the
// profile has no preparation time.
func (u *Unit) Begin(ctx context.Context) error {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return ErrClosed
	}
	if u.phase != Instructions || u.acquiring {
		u.mu.Unlock()
		return ErrWrongPhase
	}
	u.err = nil
	if u.profile.PrepSeconds > 0 {
		u.phase = Preparing
		err := u.prep.Start(u.profile.PrepSeconds)
		u.mu.Unlock()
		if err != nil {
			return fmt.Errorf("failed to start preparation: %w", err)
		}
		u.logger.Debug("speaking preparation started", "seconds", u.profile.PrepSeconds)
		return nil
	}
	u.mu.Unlock()
	return u.startRecording(ctx)
}

// Tick advances the nested countdowns. It moves preparing to recording when
// preparation ends and stops recording at the ceiling.
func (u *Unit) Tick(ctx context.Context) error {
	u.mu.Lock()
	phase := u.phase
	u.mu.Unlock()

	switch phase {
	case Preparing:
		u.prep.Tick()
		if u.prep.State() == countdown.Expired {
			return u.startRecording(ctx)
		}
	case Recording:
		u.limit.Tick()
		if u.limit.State() == countdown.Expired {
			u.logger.Debug("recording ceiling reached", "seconds", u.profile.MaxSeconds)
			return u.Stop()
		}
	}
	return nil
}

// Stop finishes the recording and emits the artifact reference.
func (u *Unit) Stop() error {
	u.mu.Lock()
	if u.phase != Recording || u.handle == nil {
		u.mu.Unlock()
		return ErrWrongPhase
	}
	handle := u.handle
	u.handle = nil
	u.limit.Stop()
	recorded := u.limit.Elapsed()
	u.mu.Unlock()

	artifact, err := handle.Finish()
	if cerr := handle.Close(); cerr != nil {
		u.logger.Warn("failed to release audio input", "error", cerr)
	}

	u.mu.Lock()
	if err != nil {
		u.phase = Instructions
		u.err = err
		u.mu.Unlock()
		return fmt.Errorf("failed to finish recording: %w", err)
	}
	u.artifact = artifact
	u.recorded = recorded
	u.phase = Completed
	cb := u.onAnswer
	u.mu.Unlock()

	if cb != nil {
		cb(artifact.Ref())
	}
	return nil
}

// Reset discards a completed recording and returns to instructions.
func (u *Unit) Reset() error {
	u.mu.Lock()
	if u.phase != Completed {
		u.mu.Unlock()
		return ErrWrongPhase
	}
	artifact := u.artifact
	u.artifact = nil
	u.recorded = 0
	u.phase = Instructions
	cb := u.onAnswer
	u.mu.Unlock()

	if artifact != nil {
		if err := artifact.Discard(); err != nil {
			u.logger.Warn("failed to discard recording", "ref", artifact.Ref(), "error", err)
		}
	}
	if cb != nil {
		cb("")
	}
	return nil
}

// Close tears the unit down, releasing any open input handle. The completed
// artifact, if any, is kept since it is the submitted answer.
func (u *Unit) Close() error {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return nil
	}
	u.closed = true
	u.prep.Stop()
	u.limit.Stop()
	handle := u.handle
	u.handle = nil
	if u.phase == Preparing || u.phase == Recording {
		u.phase = Instructions
	}
	u.mu.Unlock()

	if handle != nil {
		if err := handle.Close(); err != nil {
			return fmt.Errorf("failed to release audio input: %w", err)
		}
	}
	return nil
}

// State returns a snapshot of the unit.
func (u *Unit) State() State {
	u.mu.Lock()
	defer u.mu.Unlock()
	st := State{Phase: u.phase, Err: u.err}
	switch u.phase {
	case Preparing:
		st.PrepRemaining = u.prep.Remaining()
	case Recording:
		st.Elapsed = u.limit.Elapsed()
		st.TimeRemaining = u.limit.Remaining()
	case Completed:
		st.Elapsed = u.recorded
		if u.artifact != nil {
			st.ArtifactRef = u.artifact.Ref()
		}
	}
	return st
}

func (u *Unit) startRecording(ctx context.Context) error {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return ErrClosed
	}
	if u.acquiring || u.phase == Recording || u.phase == Completed {
		u.mu.Unlock()
		return nil
	}
	u.acquiring = true
	u.mu.Unlock()

	handle, err := u.source.Acquire(ctx)

	u.mu.Lock()
	defer u.mu.Unlock()
	u.acquiring = false
	if err != nil {
		u.prep.Stop()
		u.phase = Instructions
		u.err = err
		u.logger.Warn("failed to acquire audio input", "error", err)
		return err
	}
	if u.closed {
		if cerr := handle.Close(); cerr != nil {
			u.logger.Warn("failed to release audio input", "error", cerr)
		}
		return ErrClosed
	}
	u.handle = handle
	u.phase = Recording
	if err := u.limit.Start(u.profile.MaxSeconds); err != nil {
		return fmt.Errorf("failed to start recording ceiling: %w", err)
	}
	u.logger.Debug("recording started", "max_seconds", u.profile.MaxSeconds)
	return nil
}
