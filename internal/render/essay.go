package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/ieltsmock/internal/answers"
	"github.com/verte-zerg/ieltsmock/internal/model"
)

const (
	task1MinWords = 150
	task2MinWords = 250
	essayHeight   = 8
)

type essayField struct {
	q        model.Question
	store    *answers.Store
	minWords int
	area     textarea.Model
}

func newEssayField(q model.Question, store *answers.Store) *essayField {
	area := textarea.New()
	area.Placeholder = "Write your answer here..."
	area.ShowLineNumbers = false
	area.CharLimit = q.MaxAnswerLength
	area.SetHeight(essayHeight)
	area.SetValue(store.Get(q.Index))
	return &essayField{q: q, store: store, minWords: minWordsFor(q), area: area}
}

func minWordsFor(q model.Question) int {
	if q.MinWordCount > 0 {
		return q.MinWordCount
	}
	switch q.QuestionType {
	case model.TypeWritingTask1:
		return task1MinWords
	case model.TypeWritingTask2:
		return task2MinWords
	default:
		return 0
	}
}

func (f *essayField) Question() model.Question { return f.q }
func (f *essayField) Kind() Kind               { return KindEssay }
func (f *essayField) Focus() tea.Cmd           { return f.area.Focus() }
func (f *essayField) Blur()                    { f.area.Blur() }
func (f *essayField) Close() error             { return nil }

func (f *essayField) SetWidth(width int) {
	f.area.SetWidth(maxInt(20, width-2))
}

func (f *essayField) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.area, cmd = f.area.Update(msg)
	if value := f.area.Value(); value != f.store.Get(f.q.Index) {
		f.store.Set(f.q.Index, value)
	}
	return cmd
}

func (f *essayField) View() string {
	return f.area.View()
}

func (f *essayField) Hint() string {
	words := WordCount(f.area.Value())
	text := fmt.Sprintf("Words: %d", words)
	if f.minWords <= 0 {
		return hintStyle.Render(text)
	}
	if words < f.minWords {
		return warnStyle.Render(fmt.Sprintf("%s (%d more to reach %d)", text, f.minWords-words, f.minWords))
	}
	return hintStyle.Render(fmt.Sprintf("%s (minimum %d reached)", text, f.minWords))
}

func (f *essayField) Meta() string {
	var parts []string
	switch f.q.QuestionType {
	case model.TypeWritingTask1:
		parts = append(parts, "Writing Task 1", "suggested 20 minutes")
	case model.TypeWritingTask2:
		parts = append(parts, "Writing Task 2", "suggested 40 minutes")
	}
	if f.q.WritingTaskType != "" {
		parts = append(parts, f.q.WritingTaskType)
	}
	if f.minWords > 0 {
		parts = append(parts, fmt.Sprintf("at least %d words", f.minWords))
	}
	return strings.Join(parts, " · ")
}
