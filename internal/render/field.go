package render

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jonboulle/clockwork"

	"github.com/verte-zerg/ieltsmock/internal/answers"
	"github.com/verte-zerg/ieltsmock/internal/model"
	"github.com/verte-zerg/ieltsmock/internal/recording"
)

const defaultShortAnswerLength = 100

// Field is the answer input for one question. Every edit is written to the
// answer store before Update returns.
type Field interface {
	Question() model.Question
	Kind() Kind
	Focus() tea.Cmd
	Blur()
	SetWidth(width int)
	Update(msg tea.Msg) tea.Cmd
	View() string
	// Hint is an advisory line; it never blocks submission.
	Hint() string
	// Meta describes the task for display only.
	Meta() string
	Close() error
}

// Ticker is implemented by fields that own countdowns.
type Ticker interface {
	Tick(ctx context.Context) error
}

// Options carries what fields need beyond the question and the store.
type Options struct {
	Context  context.Context
	Source   recording.Source
	Profiles recording.Profiles
	Clock    clockwork.Clock
	Logger   *slog.Logger
}

// New selects the presentation for q and binds it to the store entry at q.Index.
func New(q model.Question, store *answers.Store, opts Options) Field {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	switch Classify(q) {
	case KindChoice:
		return newChoiceField(q, store)
	case KindShortAnswer:
		limit := q.MaxAnswerLength
		if limit <= 0 {
			limit = defaultShortAnswerLength
		}
		return newTextField(q, store, KindShortAnswer, limit, "Type your answer...")
	case KindCompletion:
		return newTextField(q, store, KindCompletion, q.MaxAnswerLength, completionPlaceholder(q.QuestionType))
	case KindSpeaking:
		return newSpeakingField(q, store, opts)
	case KindEssay:
		return newEssayField(q, store)
	default:
		return newEssayField(q, store)
	}
}

func completionPlaceholder(t model.QuestionType) string {
	switch t {
	case model.TypeFormCompletion:
		return "Fill in the form field..."
	case model.TypeGapFill:
		return "Fill in the gap..."
	default:
		return "Complete the sentence..."
	}
}

var (
	optionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#B0B0B0"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	liveStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
)

// FormatClock renders seconds as m:ss.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// WordCount counts whitespace separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
