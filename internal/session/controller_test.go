package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/ieltsmock/internal/apperrors"
	"github.com/verte-zerg/ieltsmock/internal/model"
)

type fakeLoader struct {
	mu    sync.Mutex
	tests []model.Test
	errs  []error
	calls int
}

func (l *fakeLoader) GetTest(_ context.Context, _ string) (model.Test, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.calls
	l.calls++
	if i < len(l.errs) && l.errs[i] != nil {
		return model.Test{}, l.errs[i]
	}
	return l.tests[len(l.tests)-1], nil
}

type submission struct {
	testID  string
	answers []string
}

type fakeSubmitter struct {
	mu      sync.Mutex
	calls   []submission
	errs    []error
	entered chan struct{}
	release chan struct{}
}

func (s *fakeSubmitter) SubmitTest(_ context.Context, testID string, answers []string) (model.Results, error) {
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := len(s.calls)
	s.calls = append(s.calls, submission{testID: testID, answers: answers})
	if i < len(s.errs) && s.errs[i] != nil {
		return model.Results{}, s.errs[i]
	}
	results := model.Results{TotalQuestions: len(answers), AttemptID: "att-1"}
	for _, a := range answers {
		correct := a == "A"
		if correct {
			results.CorrectAnswers++
		}
		results.Answers = append(results.Answers, model.AnswerResult{Answer: a, IsCorrect: correct, CorrectAnswer: "A"})
	}
	results.Score = float64(results.CorrectAnswers) / float64(len(answers)) * 100
	return results, nil
}

func (s *fakeSubmitter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type fakeRecorder struct {
	attempts []model.Attempt
	answers  [][]model.AttemptAnswer
}

func (r *fakeRecorder) InsertAttempt(_ context.Context, a model.Attempt, rows []model.AttemptAnswer) (int64, error) {
	r.attempts = append(r.attempts, a)
	r.answers = append(r.answers, rows)
	return int64(len(r.attempts)), nil
}

type fakeTracked struct {
	ticks  int
	closes int
}

func (f *fakeTracked) Tick(context.Context) error {
	f.ticks++
	return nil
}

func (f *fakeTracked) Close() error {
	f.closes++
	return nil
}

func fiveQuestionTest() model.Test {
	qs := make([]model.Question, 5)
	for i := range qs {
		qs[i] = model.Question{QuestionText: "q", QuestionType: model.TypeShortAnswer}
	}
	return model.Test{ID: "t5", Title: "Reading 5", Section: model.SectionReading, TimeLimitMinutes: 2, Questions: qs}
}

func newController(t *testing.T, test model.Test, sub *fakeSubmitter, opts ...func(*Config)) (*Controller, clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	cfg := Config{
		TestID:    test.ID,
		Loader:    &fakeLoader{tests: []model.Test{test}},
		Submitter: sub,
		Clock:     clock,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	c := New(cfg)
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Load(context.Background()))
	return c, clock
}

func TestLoadStartsTimer(t *testing.T) {
	c, clock := newController(t, fiveQuestionTest(), &fakeSubmitter{})
	snap := c.Snapshot()
	assert.Equal(t, PhaseInProgress, snap.Phase)
	assert.Equal(t, 120, snap.Remaining)
	assert.Equal(t, 5, snap.Total)

	clock.Advance(30 * time.Second)
	require.NoError(t, c.Tick(context.Background()))
	assert.Equal(t, 90, c.Snapshot().Remaining)
	assert.Equal(t, 4, c.Test().Questions[4].Index)
}

func TestManualSubmitWithUnansweredNeedsConfirmation(t *testing.T) {
	sub := &fakeSubmitter{}
	c, _ := newController(t, fiveQuestionTest(), sub)
	for i := 0; i < 3; i++ {
		c.Answers().Set(i, "A")
	}

	d := c.RequestSubmit()
	assert.True(t, d.Allowed)
	assert.True(t, d.NeedsConfirm)
	assert.Equal(t, 3, d.Answered)
	assert.Equal(t, 5, d.Total)
	assert.Equal(t, 0, sub.count(), "request alone never submits")

	for i := 3; i < 5; i++ {
		c.Answers().Set(i, "B")
	}
	assert.False(t, c.RequestSubmit().NeedsConfirm)
}

func TestExpirySubmitsWithoutConfirmation(t *testing.T) {
	sub := &fakeSubmitter{}
	var handoffs []model.Handoff
	c, clock := newController(t, fiveQuestionTest(), sub, func(cfg *Config) {
		cfg.Sink = func(h model.Handoff) { handoffs = append(handoffs, h) }
	})
	for i := 0; i < 3; i++ {
		c.Answers().Set(i, "A")
	}

	clock.Advance(2 * time.Minute)
	require.NoError(t, c.Tick(context.Background()))

	require.Equal(t, 1, sub.count())
	assert.Equal(t, []string{"A", "A", "A", "", ""}, sub.calls[0].answers)
	snap := c.Snapshot()
	assert.Equal(t, PhaseSubmitted, snap.Phase)
	assert.Equal(t, model.TriggerExpired, snap.Trigger)
	require.Len(t, handoffs, 1)
	assert.Equal(t, "Reading 5", handoffs[0].TestTitle)
	assert.Equal(t, 3, handoffs[0].Results.CorrectAnswers)

	require.NoError(t, c.Tick(context.Background()))
	assert.Equal(t, 1, sub.count())
}

func TestConcurrentTriggersSubmitOnce(t *testing.T) {
	sub := &fakeSubmitter{entered: make(chan struct{}, 1), release: make(chan struct{})}
	c, clock := newController(t, fiveQuestionTest(), sub)

	done := make(chan error, 1)
	go func() { done <- c.Submit(context.Background(), model.TriggerManual) }()
	<-sub.entered
	assert.Equal(t, PhaseSubmitting, c.Snapshot().Phase)

	clock.Advance(2 * time.Minute)
	require.NoError(t, c.Tick(context.Background()))
	require.NoError(t, c.Submit(context.Background(), model.TriggerManual))

	close(sub.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, sub.count())
	assert.Equal(t, model.TriggerManual, c.Snapshot().Trigger)
}

func TestFailedSubmitKeepsAnswersAndAllowsRetry(t *testing.T) {
	netErr := apperrors.New(apperrors.KindNetwork, "submit", errors.New("connection refused"))
	sub := &fakeSubmitter{errs: []error{netErr}}
	c, _ := newController(t, fiveQuestionTest(), sub)
	c.Answers().Set(1, "A")

	err := c.Submit(context.Background(), model.TriggerManual)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNetwork)

	snap := c.Snapshot()
	assert.Equal(t, PhaseInProgress, snap.Phase)
	assert.Equal(t, apperrors.KindNetwork, apperrors.KindOf(snap.Err))
	assert.Equal(t, "A", c.Answers().Get(1))
	assert.Equal(t, 1, snap.Answered)

	require.NoError(t, c.Submit(context.Background(), model.TriggerManual))
	assert.Equal(t, PhaseSubmitted, c.Snapshot().Phase)
	assert.NoError(t, c.Snapshot().Err)
	assert.Equal(t, 2, sub.count())
}

func TestExpiryDuringFailedManualSubmitRetriesOnNextTick(t *testing.T) {
	sub := &fakeSubmitter{
		errs:    []error{apperrors.ErrTimeout},
		entered: make(chan struct{}, 2),
		release: make(chan struct{}, 2),
	}
	c, clock := newController(t, fiveQuestionTest(), sub)

	done := make(chan error, 1)
	go func() { done <- c.Submit(context.Background(), model.TriggerManual) }()
	<-sub.entered
	clock.Advance(2 * time.Minute)
	require.NoError(t, c.Tick(context.Background()))
	sub.release <- struct{}{}
	require.Error(t, <-done)
	assert.Equal(t, PhaseInProgress, c.Snapshot().Phase)

	sub.release <- struct{}{}
	clock.Advance(expiredRetryDelay)
	require.NoError(t, c.Tick(context.Background()))
	assert.Equal(t, PhaseSubmitted, c.Snapshot().Phase)
	assert.Equal(t, model.TriggerExpired, c.Snapshot().Trigger)
	assert.Equal(t, 2, sub.count())
}

func TestFailedAutoSubmitIsRetried(t *testing.T) {
	sub := &fakeSubmitter{errs: []error{apperrors.ErrNetwork}}
	c, clock := newController(t, fiveQuestionTest(), sub)
	c.Answers().Set(0, "A")

	clock.Advance(2 * time.Minute)
	require.Error(t, c.Tick(context.Background()))
	snap := c.Snapshot()
	assert.Equal(t, PhaseInProgress, snap.Phase)
	assert.True(t, snap.Expired)
	assert.Equal(t, 0, snap.Remaining)

	decision := c.RequestSubmit()
	assert.True(t, decision.Allowed)
	assert.False(t, decision.NeedsConfirm)

	require.NoError(t, c.Tick(context.Background()))
	assert.Equal(t, 1, sub.count(), "retry waits for the delay")

	for i := 0; i < 5 && c.Snapshot().Phase != PhaseSubmitted; i++ {
		clock.Advance(time.Second)
		require.NoError(t, c.Tick(context.Background()))
	}
	snap = c.Snapshot()
	assert.Equal(t, PhaseSubmitted, snap.Phase)
	assert.False(t, snap.Expired)
	assert.Equal(t, model.TriggerExpired, snap.Trigger)
	assert.Equal(t, 2, sub.count())
	assert.Equal(t, []string{"A", "", "", "", ""}, sub.calls[1].answers)
}

func TestSuccessfulSubmitReleasesTracked(t *testing.T) {
	c, _ := newController(t, fiveQuestionTest(), &fakeSubmitter{})
	tracked := &fakeTracked{}
	c.Track(tracked)

	require.NoError(t, c.Submit(context.Background(), model.TriggerManual))
	assert.Equal(t, PhaseSubmitted, c.Snapshot().Phase)
	assert.Equal(t, 1, tracked.closes)

	require.NoError(t, c.Tick(context.Background()))
	assert.Equal(t, 0, tracked.ticks)
	require.NoError(t, c.Close())
	assert.Equal(t, 1, tracked.closes)
}

func TestFailedSubmitKeepsTracked(t *testing.T) {
	sub := &fakeSubmitter{errs: []error{apperrors.ErrNetwork}}
	c, _ := newController(t, fiveQuestionTest(), sub)
	tracked := &fakeTracked{}
	c.Track(tracked)

	require.Error(t, c.Submit(context.Background(), model.TriggerManual))
	assert.Equal(t, 0, tracked.closes)
}

type gatedLoader struct {
	test    model.Test
	entered chan struct{}
	release chan struct{}
}

func (l *gatedLoader) GetTest(context.Context, string) (model.Test, error) {
	l.entered <- struct{}{}
	<-l.release
	return l.test, nil
}

func TestOverlappingLoadIsRejected(t *testing.T) {
	loader := &gatedLoader{test: fiveQuestionTest(), entered: make(chan struct{}, 1), release: make(chan struct{})}
	c := New(Config{TestID: "t5", Loader: loader, Submitter: &fakeSubmitter{}, Clock: clockwork.NewFakeClock()})
	t.Cleanup(func() { _ = c.Close() })

	done := make(chan error, 1)
	go func() { done <- c.Load(context.Background()) }()
	<-loader.entered

	assert.ErrorIs(t, c.Load(context.Background()), ErrWrongPhase)
	close(loader.release)
	require.NoError(t, <-done)
	assert.Equal(t, PhaseInProgress, c.Snapshot().Phase)
}

func TestLoadErrorThenRetry(t *testing.T) {
	loader := &fakeLoader{
		tests: []model.Test{fiveQuestionTest()},
		errs:  []error{apperrors.Errorf(apperrors.KindNotFound, "get test", "no test t5")},
	}
	c := New(Config{TestID: "t5", Loader: loader, Submitter: &fakeSubmitter{}, Clock: clockwork.NewFakeClock()})
	defer c.Close()

	err := c.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, PhaseError, c.Snapshot().Phase)
	assert.False(t, c.RequestSubmit().Allowed)

	require.NoError(t, c.Load(context.Background()))
	assert.Equal(t, PhaseInProgress, c.Snapshot().Phase)
	assert.ErrorIs(t, c.Load(context.Background()), ErrWrongPhase)
}

func TestLoadRejectsInvalidTest(t *testing.T) {
	test := fiveQuestionTest()
	test.TimeLimitMinutes = 0
	c := New(Config{TestID: "t5", Loader: &fakeLoader{tests: []model.Test{test}}, Submitter: &fakeSubmitter{}})
	defer c.Close()

	err := c.Load(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Equal(t, PhaseError, c.Snapshot().Phase)
}

func TestCustomValidator(t *testing.T) {
	c := New(Config{
		TestID:    "t5",
		Loader:    &fakeLoader{tests: []model.Test{fiveQuestionTest()}},
		Submitter: &fakeSubmitter{},
		Validate:  func(model.Test) error { return apperrors.ErrValidation },
	})
	defer c.Close()
	assert.Error(t, c.Load(context.Background()))
	assert.Equal(t, PhaseError, c.Snapshot().Phase)
}

func TestCloseReleasesTrackedAndStopsTimer(t *testing.T) {
	sub := &fakeSubmitter{}
	c, clock := newController(t, fiveQuestionTest(), sub)
	tr := &fakeTracked{}
	c.Track(tr)

	require.NoError(t, c.Tick(context.Background()))
	assert.Equal(t, 1, tr.ticks)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, 1, tr.closes)

	clock.Advance(5 * time.Minute)
	require.NoError(t, c.Tick(context.Background()))
	assert.Equal(t, 0, sub.count())
}

func TestSubmittedAttemptIsRecorded(t *testing.T) {
	rec := &fakeRecorder{}
	sub := &fakeSubmitter{}
	c, clock := newController(t, fiveQuestionTest(), sub, func(cfg *Config) { cfg.Recorder = rec })
	c.Answers().Set(0, "A")
	clock.Advance(45 * time.Second)

	require.NoError(t, c.Submit(context.Background(), model.TriggerManual))
	require.Len(t, rec.attempts, 1)
	a := rec.attempts[0]
	assert.Equal(t, "t5", a.TestID)
	assert.Equal(t, "att-1", a.RemoteID)
	assert.Equal(t, model.SectionReading, a.Section)
	assert.Equal(t, int64(45000), a.DurationMs)
	assert.Equal(t, model.TriggerManual, a.Trigger)
	require.Len(t, rec.answers[0], 5)
	assert.True(t, rec.answers[0][0].IsCorrect)
	assert.Equal(t, "A", rec.answers[0][1].CorrectAnswer)
}

func TestEndToEndAutoSubmit(t *testing.T) {
	test := model.Test{
		ID:               "e2e",
		Title:            "Listening sample",
		Section:          model.SectionListening,
		TimeLimitMinutes: 1,
		Questions: []model.Question{
			{QuestionText: "Pick one", QuestionType: model.TypeMultipleChoice, Options: []string{"A", "B"}},
			{QuestionText: "Explain", QuestionType: model.TypeText},
		},
	}
	sub := &fakeSubmitter{}
	var handoff model.Handoff
	c, clock := newController(t, test, sub, func(cfg *Config) {
		cfg.Sink = func(h model.Handoff) { handoff = h }
	})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		clock.Advance(time.Second)
		require.NoError(t, c.Tick(ctx))
	}
	c.Answers().Set(0, "A")
	for i := 0; i < 49; i++ {
		clock.Advance(time.Second)
		require.NoError(t, c.Tick(ctx))
	}
	assert.Equal(t, 0, sub.count())
	assert.Equal(t, 1, c.Snapshot().Remaining)

	clock.Advance(time.Second)
	require.NoError(t, c.Tick(ctx))

	require.Equal(t, 1, sub.count())
	assert.Equal(t, "e2e", sub.calls[0].testID)
	assert.Equal(t, []string{"A", ""}, sub.calls[0].answers)
	assert.Equal(t, "Listening sample", handoff.TestTitle)
	assert.Equal(t, PhaseSubmitted, c.Snapshot().Phase)
}
