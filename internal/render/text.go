package render

import (
	"fmt"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/ieltsmock/internal/answers"
	"github.com/verte-zerg/ieltsmock/internal/model"
)

// textField is a single-line answer; limit truncates input when > 0.
type textField struct {
	q     model.Question
	store *answers.Store
	kind  Kind
	limit int
	input textinput.Model
}

func newTextField(q model.Question, store *answers.Store, kind Kind, limit int, placeholder string) *textField {
	input := textinput.New()
	input.Prompt = "› "
	input.Placeholder = placeholder
	input.CharLimit = limit
	input.SetValue(truncateRunes(store.Get(q.Index), limit))
	return &textField{q: q, store: store, kind: kind, limit: limit, input: input}
}

func (f *textField) Question() model.Question { return f.q }
func (f *textField) Kind() Kind               { return f.kind }
func (f *textField) Focus() tea.Cmd           { return f.input.Focus() }
func (f *textField) Blur()                    { f.input.Blur() }
func (f *textField) Close() error             { return nil }

func (f *textField) SetWidth(width int) {
	f.input.Width = maxInt(10, width-4)
}

func (f *textField) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	value := truncateRunes(f.input.Value(), f.limit)
	if value != f.store.Get(f.q.Index) {
		f.store.Set(f.q.Index, value)
	}
	return cmd
}

func (f *textField) View() string {
	return f.input.View()
}

func (f *textField) Hint() string {
	if f.limit <= 0 {
		return ""
	}
	used := utf8.RuneCountInString(f.input.Value())
	text := fmt.Sprintf("%d/%d characters", used, f.limit)
	if used >= f.limit {
		return warnStyle.Render(text + " (limit reached)")
	}
	return hintStyle.Render(text)
}

func (f *textField) Meta() string {
	if f.limit > 0 {
		return fmt.Sprintf("Maximum %d characters", f.limit)
	}
	return ""
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
