package testpack

import (
	"strings"

	"github.com/verte-zerg/ieltsmock/internal/model"
)

// FilterFunc returns true when a test should be kept.
type FilterFunc func(model.Test) bool

// FilterFor builds a catalogue filter matching the API query semantics:
// exact section and difficulty, case-insensitive search in title and description.
func FilterFor(f model.TestFilter) FilterFunc {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	return func(t model.Test) bool {
		if f.Section != "" && !strings.EqualFold(string(t.Section), f.Section) {
			return false
		}
		if f.Difficulty != "" && !strings.EqualFold(t.Difficulty, f.Difficulty) {
			return false
		}
		if search == "" {
			return true
		}
		return strings.Contains(strings.ToLower(t.Title), search) ||
			strings.Contains(strings.ToLower(t.Description), search)
	}
}

// Apply keeps the tests accepted by fn.
func Apply(tests []model.Test, fn FilterFunc) []model.Test {
	out := make([]model.Test, 0, len(tests))
	for _, t := range tests {
		if fn(t) {
			out = append(out, t)
		}
	}
	return out
}
