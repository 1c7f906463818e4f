package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/ieltsmock/internal/apperrors"
	"github.com/verte-zerg/ieltsmock/internal/audio"
	"github.com/verte-zerg/ieltsmock/internal/config"
	"github.com/verte-zerg/ieltsmock/internal/generator"
	"github.com/verte-zerg/ieltsmock/internal/model"
	"github.com/verte-zerg/ieltsmock/internal/render"
	"github.com/verte-zerg/ieltsmock/internal/session"
	"github.com/verte-zerg/ieltsmock/internal/stats"
	"github.com/verte-zerg/ieltsmock/internal/testpack"
	"github.com/verte-zerg/ieltsmock/internal/tui"
	"github.com/verte-zerg/ieltsmock/internal/validate"
)

const defaultWeakTop = 1

var (
	practiceSection    string
	practiceFocusWeak  bool
	practiceWeakFactor float64
	practiceWeakWindow int
)

func newTakeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "take <test-id>",
		Short: "Take a timed mock test",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			return runTest(commandContext(cmd), a, args[0])
		},
	}
}

func runTest(ctx context.Context, a *app, testID string) error {
	clock := clockwork.NewRealClock()
	inbox := tui.NewInbox()
	loader := testpack.NewFallbackLoader(a.client, testpack.Open(config.DefaultTestPackDir()), a.logger)

	ctrl := session.New(session.Config{
		TestID:    testID,
		Loader:    loader,
		Submitter: a.client,
		Validate:  validate.New().Test,
		Sink:      inbox.Deliver,
		Recorder:  a.store,
		Clock:     clock,
		Logger:    a.logger,
	})

	source := audio.NewCommandSource(a.cfg.Recorder.Command, config.DefaultRecordingsDir(), a.logger)
	m := tui.NewModel(ctx, tui.Config{
		Controller: ctrl,
		Inbox:      inbox,
		FieldOptions: render.Options{
			Source:   source,
			Profiles: a.profiles(),
			Clock:    clock,
			Logger:   a.logger,
		},
		History: a.store,
		Logger:  a.logger,
	})
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newPracticeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "practice",
		Short: "Take a random test, optionally biased toward weak sections",
		Args:  cobra.NoArgs,
		RunE:  runPracticeCmd,
	}
	cmd.Flags().StringVar(&practiceSection, "section", "", "only pick tests of this section")
	cmd.Flags().BoolVar(&practiceFocusWeak, "focus-weak", false, "bias practice toward weak sections")
	cmd.Flags().Float64Var(&practiceWeakFactor, "weak-factor", defaultWeakFactor, "extra weight of a weak-section test")
	cmd.Flags().IntVar(&practiceWeakWindow, "weak-window", defaultWeakWindow, "recent attempts per section used to find weak sections")
	return cmd
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	applyStringConfig(cmd, "section", &practiceSection, a.cfg.Practice.Section)
	applyBoolConfig(cmd, "focus-weak", &practiceFocusWeak, a.cfg.Practice.FocusWeak)
	applyFloatConfig(cmd, "weak-factor", &practiceWeakFactor, a.cfg.Practice.WeakFactor)
	applyIntConfig(cmd, "weak-window", &practiceWeakWindow, a.cfg.Practice.WeakWindow)
	if err := validatePractice(); err != nil {
		return err
	}

	ctx := commandContext(cmd)
	tests, err := catalogue(ctx, a, model.TestFilter{Section: practiceSection})
	if err != nil {
		return err
	}

	weak := map[model.Section]struct{}{}
	if practiceFocusWeak {
		aggs, err := a.store.SectionAggregates(ctx, practiceWeakWindow)
		if err != nil {
			logErrf("failed to load section stats: %v\n", err)
		} else {
			weak = stats.SelectWeakSections(aggs, defaultWeakTop)
			if len(weak) == 0 {
				logErrln("no weak sections in history yet; picking uniformly")
			}
		}
	}

	test, err := generator.New().PickWeighted(tests, weak, practiceWeakFactor)
	if err != nil {
		if errors.Is(err, generator.ErrNoTests) {
			return fmt.Errorf("no tests available; run `ieltsmock pack pull` while online")
		}
		return err
	}
	a.logger.Info("practice pick", "test_id", test.ID, "section", test.Section, "focus_weak", practiceFocusWeak)
	return runTest(ctx, a, test.ID)
}

func validatePractice() error {
	if practiceSection != "" {
		if _, ok := model.ParseSection(practiceSection); !ok {
			return fmt.Errorf("--section must be one of Listening, Reading, Writing, Speaking")
		}
	}
	if practiceWeakFactor < 0 {
		return fmt.Errorf("--weak-factor must be >= 0")
	}
	if practiceWeakWindow < 1 {
		return fmt.Errorf("--weak-window must be >= 1")
	}
	return nil
}

// catalogue lists tests from the backend, or from the local pack when the
// backend cannot be reached.
func catalogue(ctx context.Context, a *app, filter model.TestFilter) ([]model.Test, error) {
	page, err := a.client.ListTests(ctx, filter)
	if err == nil {
		return page.Tests, nil
	}
	switch apperrors.KindOf(err) {
	case apperrors.KindNetwork, apperrors.KindTimeout:
	default:
		return nil, err
	}
	a.logger.Warn("listing tests from local pack", "error", err)
	logErrln("Backend unreachable; using the local test pack.")
	local, lerr := testpack.Open(config.DefaultTestPackDir()).List()
	if lerr != nil {
		return nil, fmt.Errorf("failed to read local test pack: %w", lerr)
	}
	return testpack.Apply(local, testpack.FilterFor(filter)), nil
}
