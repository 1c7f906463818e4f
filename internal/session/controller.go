// Package session drives one test attempt from loading to submission.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/verte-zerg/ieltsmock/internal/answers"
	"github.com/verte-zerg/ieltsmock/internal/apperrors"
	"github.com/verte-zerg/ieltsmock/internal/countdown"
	"github.com/verte-zerg/ieltsmock/internal/model"
)

// Phase is the lifecycle phase of a session.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseInProgress
	PhaseSubmitting
	PhaseSubmitted
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseInProgress:
		return "in-progress"
	case PhaseSubmitting:
		return "submitting"
	case PhaseSubmitted:
		return "submitted"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// expiredRetryDelay spaces out resubmissions after a failed auto-submit.
const expiredRetryDelay = 2 * time.Second

// ErrWrongPhase is returned when an operation does not apply to the current phase.
var ErrWrongPhase = errors.New("operation not allowed in current session phase")

// Loader fetches a test definition.
type Loader interface {
	GetTest(ctx context.Context, id string) (model.Test, error)
}

// Submitter sends the ordered answers for scoring.
type Submitter interface {
	SubmitTest(ctx context.Context, testID string, answers []string) (model.Results, error)
}

// Recorder keeps submitted attempts in local history.
type Recorder interface {
	InsertAttempt(ctx context.Context, attempt model.Attempt, answers []model.AttemptAnswer) (int64, error)
}

// Tracked is a per-question component that follows the session clock and
// must be released with the session.
type Tracked interface {
	Tick(ctx context.Context) error
	Close() error
}

// Config wires a Controller.
type Config struct {
	TestID    string
	Loader    Loader
	Submitter Submitter
	// Validate checks a loaded test before the session starts. Optional.
	Validate func(model.Test) error
	// Sink receives the scoring response after a successful submission. Optional.
	Sink     func(model.Handoff)
	Recorder Recorder
	Clock    clockwork.Clock
	Logger   *slog.Logger
}

// Decision is the outcome of a manual submit request.
type Decision struct {
	Allowed      bool
	NeedsConfirm bool
	Answered     int
	Total        int
}

// Snapshot is a read-only view of the session for rendering.
type Snapshot struct {
	Phase     Phase
	Test      model.Test
	Remaining int
	Answered  int
	Total     int
	Err       error
	Results   *model.Results
	Trigger   model.Trigger
	// Expired is set once time is up and answers can no longer change.
	Expired bool
}

// Controller owns the phase, the timer and the answers of one attempt.
type Controller struct {
	mu        sync.Mutex
	cfg       Config
	clock     clockwork.Clock
	logger    *slog.Logger
	phase     Phase
	test      model.Test
	answers   *answers.Store
	timer     *countdown.Timer
	expired   bool
	retryAt   time.Time
	loading   bool
	err       error
	results   *model.Results
	trigger   model.Trigger
	startedAt time.Time
	tracked   []Tracked
	closed    bool
}

// New returns a controller in the loading phase.
func New(cfg Config) *Controller {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Controller{
		cfg:     cfg,
		clock:   clock,
		logger:  logger.With("test_id", cfg.TestID),
		phase:   PhaseLoading,
		answers: answers.New(),
		timer:   countdown.New(clock),
	}
	c.timer.OnExpire(c.markExpired)
	return c
}

// Answers returns the answer store of the session.
func (c *Controller) Answers() *answers.Store {
	return c.answers
}

// Test returns the loaded test definition.
func (c *Controller) Test() model.Test {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.test
}

// Load fetches the test and starts the timer. It is also the retry action
// from the error phase.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrWrongPhase
	}
	if c.loading || (c.phase != PhaseLoading && c.phase != PhaseError) {
		c.mu.Unlock()
		return ErrWrongPhase
	}
	c.loading = true
	c.phase = PhaseLoading
	c.err = nil
	c.mu.Unlock()

	test, err := c.cfg.Loader.GetTest(ctx, c.cfg.TestID)
	if err == nil {
		test.Normalize()
		if c.cfg.Validate != nil {
			err = c.cfg.Validate(test)
		} else if test.TimeLimitMinutes < 1 || len(test.Questions) == 0 {
			err = apperrors.Errorf(apperrors.KindValidation, "load test", "test %q has no questions or time limit", c.cfg.TestID)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	if c.closed {
		return ErrWrongPhase
	}
	if err != nil {
		c.phase = PhaseError
		c.err = err
		c.logger.Warn("failed to load test", "error", err)
		return fmt.Errorf("failed to load test: %w", err)
	}
	c.test = test
	if err := c.timer.Start(test.TimeLimitMinutes * 60); err != nil {
		c.phase = PhaseError
		c.err = err
		return fmt.Errorf("failed to start timer: %w", err)
	}
	c.startedAt = c.clock.Now()
	c.phase = PhaseInProgress
	c.logger.Info("session started", "title", test.Title, "questions", len(test.Questions), "minutes", test.TimeLimitMinutes)
	return nil
}

// Track registers a component to tick with the session and close with it.
func (c *Controller) Track(t Tracked) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracked = append(c.tracked, t)
}

// RequestSubmit decides whether a manual submission may proceed directly or
// needs confirmation because some questions are unanswered. Once time is up
// no confirmation is asked.
func (c *Controller) RequestSubmit() Decision {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := len(c.test.Questions)
	answered := c.answers.Populated()
	if c.phase != PhaseInProgress {
		return Decision{Answered: answered, Total: total}
	}
	return Decision{
		Allowed:      true,
		NeedsConfirm: answered < total && !c.expired,
		Answered:     answered,
		Total:        total,
	}
}

// Submit sends the answers. Only the call that moves the session out of
// in-progress performs the request; concurrent calls return nil. On failure
// the session returns to in-progress with the error kept, and an expired
// session is resubmitted by a later Tick. On success tracked components are
// released.
func (c *Controller) Submit(ctx context.Context, trigger model.Trigger) error {
	c.mu.Lock()
	if c.phase != PhaseInProgress {
		c.mu.Unlock()
		return nil
	}
	c.phase = PhaseSubmitting
	c.err = nil
	test := c.test
	c.mu.Unlock()

	arr := c.answers.OrderedArray(len(test.Questions))
	c.logger.Info("submitting answers", "trigger", trigger, "answered", c.answers.Populated(), "total", len(arr))
	results, err := c.cfg.Submitter.SubmitTest(ctx, test.ID, arr)

	c.mu.Lock()
	if err != nil {
		c.phase = PhaseInProgress
		c.err = err
		if c.expired {
			c.retryAt = c.clock.Now().Add(expiredRetryDelay)
		}
		c.mu.Unlock()
		c.logger.Warn("submission failed", "trigger", trigger, "error", err)
		return fmt.Errorf("failed to submit answers: %w", err)
	}
	c.timer.Stop()
	c.phase = PhaseSubmitted
	c.expired = false
	c.results = &results
	c.trigger = trigger
	startedAt := c.startedAt
	tracked := c.tracked
	c.tracked = nil
	c.mu.Unlock()

	for _, t := range tracked {
		if err := t.Close(); err != nil {
			c.logger.Warn("failed to release tracked component", "error", err)
		}
	}

	c.record(ctx, test, arr, results, trigger, startedAt)
	if c.cfg.Sink != nil {
		c.cfg.Sink(model.Handoff{Results: results, TestTitle: test.Title})
	}
	return nil
}

// Tick advances the timer and tracked components. When the timer has
// expired it submits without confirmation.
func (c *Controller) Tick(ctx context.Context) error {
	c.timer.Tick()

	c.mu.Lock()
	tracked := append([]Tracked(nil), c.tracked...)
	c.mu.Unlock()
	for _, t := range tracked {
		if err := t.Tick(ctx); err != nil {
			c.logger.Debug("tracked component tick failed", "error", err)
		}
	}

	c.mu.Lock()
	due := c.expired && c.phase == PhaseInProgress && !c.clock.Now().Before(c.retryAt)
	c.mu.Unlock()
	if !due {
		return nil
	}
	return c.Submit(ctx, model.TriggerExpired)
}

// Snapshot returns the current state for rendering.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{
		Phase:    c.phase,
		Test:     c.test,
		Answered: c.answers.Populated(),
		Total:    len(c.test.Questions),
		Err:      c.err,
		Results:  c.results,
		Trigger:  c.trigger,
		Expired:  c.expired,
	}
	if c.phase == PhaseInProgress || c.phase == PhaseSubmitting {
		snap.Remaining = c.timer.Remaining()
	}
	return snap
}

// Close stops the timer and releases every tracked component. It is safe
// to call more than once.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	tracked := c.tracked
	c.tracked = nil
	c.mu.Unlock()

	c.timer.Stop()
	var errs []error
	for _, t := range tracked {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Controller) markExpired() {
	c.mu.Lock()
	c.expired = true
	c.mu.Unlock()
	c.logger.Info("time limit reached")
}

func (c *Controller) record(ctx context.Context, test model.Test, arr []string, results model.Results, trigger model.Trigger, startedAt time.Time) {
	if c.cfg.Recorder == nil {
		return
	}
	now := c.clock.Now()
	attempt := model.Attempt{
		RemoteID:    results.AttemptID,
		TestID:      test.ID,
		TestTitle:   test.Title,
		Section:     test.Section,
		Difficulty:  test.Difficulty,
		Score:       results.Score,
		Correct:     results.CorrectAnswers,
		Total:       results.TotalQuestions,
		StartedAt:   startedAt,
		SubmittedAt: now,
		DurationMs:  now.Sub(startedAt).Milliseconds(),
		Trigger:     trigger,
	}
	rows := make([]model.AttemptAnswer, len(arr))
	for i, a := range arr {
		rows[i] = model.AttemptAnswer{Index: i, Answer: a}
		if i < len(results.Answers) {
			rows[i].IsCorrect = results.Answers[i].IsCorrect
			rows[i].CorrectAnswer = results.Answers[i].CorrectAnswer
		}
	}
	if _, err := c.cfg.Recorder.InsertAttempt(ctx, attempt, rows); err != nil {
		c.logger.Warn("failed to record attempt", "error", err)
	}
}
