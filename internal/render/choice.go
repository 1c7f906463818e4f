package render

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/ieltsmock/internal/answers"
	"github.com/verte-zerg/ieltsmock/internal/model"
)

type choiceField struct {
	q       model.Question
	store   *answers.Store
	cursor  int
	focused bool
	width   int
}

func newChoiceField(q model.Question, store *answers.Store) *choiceField {
	f := &choiceField{q: q, store: store}
	current := store.Get(q.Index)
	for i, opt := range q.Options {
		if opt == current {
			f.cursor = i
			break
		}
	}
	return f
}

func (f *choiceField) Question() model.Question { return f.q }
func (f *choiceField) Kind() Kind               { return KindChoice }
func (f *choiceField) SetWidth(width int)       { f.width = width }
func (f *choiceField) Close() error             { return nil }

func (f *choiceField) Focus() tea.Cmd {
	f.focused = true
	return nil
}

func (f *choiceField) Blur() {
	f.focused = false
}

func (f *choiceField) Update(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if !ok || !f.focused || len(f.q.Options) == 0 {
		return nil
	}
	switch key.String() {
	case "up", "k":
		if f.cursor > 0 {
			f.cursor--
		}
	case "down", "j":
		if f.cursor < len(f.q.Options)-1 {
			f.cursor++
		}
	case "enter", " ":
		f.store.Set(f.q.Index, f.q.Options[f.cursor])
	default:
		if r := key.Runes; len(r) == 1 && r[0] >= '1' && r[0] <= '9' {
			idx := int(r[0] - '1')
			if idx < len(f.q.Options) {
				f.cursor = idx
				f.store.Set(f.q.Index, f.q.Options[idx])
			}
		}
	}
	return nil
}

func (f *choiceField) View() string {
	current := f.store.Get(f.q.Index)
	lines := make([]string, 0, len(f.q.Options))
	for i, opt := range f.q.Options {
		mark := "( )"
		style := optionStyle
		if opt == current {
			mark = "(•)"
			style = selectedStyle
		}
		prefix := "  "
		if f.focused && i == f.cursor {
			prefix = cursorStyle.Render("> ")
		}
		lines = append(lines, prefix+style.Render(mark+" "+opt))
	}
	return strings.Join(lines, "\n")
}

func (f *choiceField) Hint() string {
	if !f.focused {
		return ""
	}
	return hintStyle.Render("up/down: move  enter/space or 1-9: select")
}

func (f *choiceField) Meta() string {
	switch f.q.QuestionType {
	case model.TypeTrueFalseNotGiven:
		return "True / False / Not Given"
	case model.TypeYesNoNotGiven:
		return "Yes / No / Not Given"
	}
	return ""
}
