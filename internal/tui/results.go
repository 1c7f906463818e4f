package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/verte-zerg/ieltsmock/internal/apperrors"
	"github.com/verte-zerg/ieltsmock/internal/model"
	"github.com/verte-zerg/ieltsmock/internal/stats"
)

func (m *Model) resizeReview() {
	width := m.contentWidth()
	if width == 0 {
		width = 80
	}
	height := m.height - 14
	if height < 3 {
		height = 3
	}
	m.review.Width = width
	m.review.Height = height
}

func (m *Model) renderResults() string {
	h := m.handoff
	r := h.Results
	band := stats.BandFor(r.Score)
	score := bandStyles[band.String()].Render(fmt.Sprintf("Score %.0f%% (%s)", r.Score, band))

	lines := []string{
		titleStyle.Render("Results · " + h.TestTitle),
		score + "  " + fmt.Sprintf("%d of %d correct", r.CorrectAnswers, r.TotalQuestions),
	}
	if m.trigger == model.TriggerExpired {
		lines = append(lines, currentStyle.Render("Time is up. Your answers were submitted automatically."))
	}

	bars := []stats.Bar{{Label: "This attempt", Value: r.Score}}
	if m.hasAvg {
		bars = append(bars, stats.Bar{Label: "Section average", Value: m.sectionAvg})
	}
	lines = append(lines, "", strings.Join(stats.BarChart(bars, m.review.Width), "\n"), "", m.review.View())
	return strings.Join(lines, "\n")
}

func (m *Model) renderReview(test model.Test) string {
	width := m.review.Width
	answers := m.handoff.Results.Answers
	if len(answers) == 0 {
		return pendingStyle.Render("No per-question review is available.")
	}
	var b strings.Builder
	for i, a := range answers {
		mark := incorrectStyle.Render("✗")
		if a.IsCorrect {
			mark = answeredStyle.Render("✓")
		}
		question := ""
		if i < len(test.Questions) {
			question = test.Questions[i].QuestionText
		}
		fmt.Fprintf(&b, "%s Q%d %s\n", mark, i+1, pendingStyle.Render(truncate(question, width-6)))
		answer := a.Answer
		if strings.TrimSpace(answer) == "" {
			answer = "(no answer)"
		}
		fmt.Fprintf(&b, "    Your answer: %s\n", truncate(answer, width-17))
		if !a.IsCorrect && a.CorrectAnswer != "" {
			fmt.Fprintf(&b, "    Correct answer: %s\n", answeredStyle.Render(truncate(a.CorrectAnswer, width-20)))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func describeError(err error) string {
	if err == nil {
		return ""
	}
	switch apperrors.KindOf(err) {
	case apperrors.KindNotFound:
		return "The test could not be found."
	case apperrors.KindNetwork:
		return "Cannot reach the server. Check your connection."
	case apperrors.KindTimeout:
		return "The server took too long to respond."
	case apperrors.KindValidation:
		return "The request was rejected: " + rootMessage(err)
	case apperrors.KindPermissionDenied:
		return "You are not signed in or not allowed to do this. Run `ieltsmock login` and try again."
	default:
		return "Something went wrong: " + err.Error()
	}
}

func rootMessage(err error) string {
	var e *apperrors.Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err.Error()
	}
	return err.Error()
}
