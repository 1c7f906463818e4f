// Package answers keeps the answers of a session keyed by question index.
package answers

import (
	"strings"
	"sync"
)

// ChangeFunc observes writes. populated is the number of non-blank answers after the write.
type ChangeFunc func(index int, value string, populated int)

// Store maps question indexes to answers. It never rejects a write.
type Store struct {
	mu        sync.RWMutex
	values    map[int]string
	populated int
	onChange  ChangeFunc
}

// New returns an empty store.
func New() *Store {
	return &Store{values: map[int]string{}}
}

// OnChange registers the write observer.
func (s *Store) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Set inserts or overwrites the answer for index.
func (s *Store) Set(index int, value string) {
	s.mu.Lock()
	prev, had := s.values[index]
	if had && isPopulated(prev) {
		s.populated--
	}
	s.values[index] = value
	if isPopulated(value) {
		s.populated++
	}
	populated := s.populated
	fn := s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn(index, value, populated)
	}
}

// Get returns the answer for index or "" when unset.
func (s *Store) Get(index int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[index]
}

// Populated returns the number of non-blank answers.
func (s *Store) Populated() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.populated
}

// OrderedArray projects the store onto n positions, "" where unset.
func (s *Store) OrderedArray(n int) []string {
	if n < 0 {
		n = 0
	}
	out := make([]string, n)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range out {
		out[i] = s.values[i]
	}
	return out
}

func isPopulated(v string) bool {
	return strings.TrimSpace(v) != ""
}
