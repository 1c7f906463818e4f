// Package render provides the per-question-type answer inputs.
package render

import "github.com/verte-zerg/ieltsmock/internal/model"

// Kind is the input presentation chosen for a question.
type Kind int

const (
	KindChoice Kind = iota
	KindShortAnswer
	KindCompletion
	KindEssay
	KindSpeaking
)

func (k Kind) String() string {
	switch k {
	case KindChoice:
		return "choice"
	case KindShortAnswer:
		return "short answer"
	case KindCompletion:
		return "completion"
	case KindEssay:
		return "essay"
	case KindSpeaking:
		return "speaking"
	default:
		return "unknown"
	}
}

// Classify maps a question type onto its presentation. Unrecognized types
// render as a choice list when they carry options and as free text otherwise.
func Classify(q model.Question) Kind {
	switch q.QuestionType {
	case model.TypeMultipleChoice, model.TypeMCQ, model.TypeTrueFalseNotGiven, model.TypeYesNoNotGiven:
		return KindChoice
	case model.TypeShortAnswer:
		return KindShortAnswer
	case model.TypeSentenceCompletion, model.TypeFormCompletion, model.TypeGapFill:
		return KindCompletion
	case model.TypeWritingTask1, model.TypeWritingTask2, model.TypeText:
		return KindEssay
	case model.TypeSpeaking:
		return KindSpeaking
	default:
		if len(q.Options) > 0 {
			return KindChoice
		}
		return KindEssay
	}
}
