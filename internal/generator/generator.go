// Package generator picks practice tests from a catalogue.
package generator

import (
	"errors"
	"math/rand"
	"time"

	"github.com/verte-zerg/ieltsmock/internal/model"
)

// ErrNoTests is returned when there is nothing to pick from.
var ErrNoTests = errors.New("no tests to pick from")

// Generator picks tests at random.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewWithSeed(time.Now().UnixNano())
}

// NewWithSeed returns a deterministic Generator.
func NewWithSeed(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// PickWeighted selects a test with a bias toward weak sections. A test in a
// weak section weighs 1+factor, any other test weighs 1, so an empty weak set
// picks uniformly.
func (g *Generator) PickWeighted(tests []model.Test, weak map[model.Section]struct{}, factor float64) (model.Test, error) {
	if len(tests) == 0 {
		return model.Test{}, ErrNoTests
	}
	if factor < 0 {
		factor = 0
	}
	weights := make([]float64, len(tests))
	total := 0.0
	for i, t := range tests {
		w := 1.0
		if _, ok := weak[t.Section]; ok {
			w += factor
		}
		weights[i] = w
		total += w
	}

	r := g.rnd.Float64() * total
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r <= acc {
			return tests[i], nil
		}
	}
	return tests[len(tests)-1], nil
}
