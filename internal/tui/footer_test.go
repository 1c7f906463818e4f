package tui

import (
	"strings"
	"testing"

	"github.com/verte-zerg/ieltsmock/internal/model"
	"github.com/verte-zerg/ieltsmock/internal/session"
)

func TestRenderFooterFormats(t *testing.T) {
	m := &Model{}
	out := m.renderFooter(session.Snapshot{Phase: session.PhaseInProgress, Answered: 3, Total: 5})
	if !containsAll(out, []string{"Answered 3 of 5 · 60%", "ctrl+s submit"}) {
		t.Fatalf("footer missing expected segments: %s", out)
	}
	out = m.renderFooter(session.Snapshot{Phase: session.PhaseSubmitting, Answered: 5, Total: 5})
	if !containsAll(out, []string{"100%", "Submitting answers..."}) {
		t.Fatalf("unexpected submitting footer: %s", out)
	}
}

func TestRenderHeaderFormats(t *testing.T) {
	m := &Model{}
	snap := session.Snapshot{
		Test:      model.Test{Title: "Academic Reading", Section: model.SectionReading, Difficulty: "Advanced"},
		Remaining: 125,
		Answered:  1,
		Total:     13,
	}
	out := m.renderHeader(snap)
	if !containsAll(out, []string{"Academic Reading", "Reading · Advanced", "Answered 1 of 13", "Time left 2:05"}) {
		t.Fatalf("header missing expected segments: %s", out)
	}
}

func TestConfirmText(t *testing.T) {
	out := confirmText(session.Decision{Answered: 2, Total: 4})
	if !strings.Contains(out, "answered 2 of 4 questions") {
		t.Fatalf("unexpected confirm text: %s", out)
	}
}

func containsAll(haystack string, needles []string) bool {
	for _, needle := range needles {
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}
