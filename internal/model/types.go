// Package model defines shared data structures.
package model

import (
	"strings"
	"time"
)

// Section is one of the four IELTS skill sections.
type Section string

const (
	SectionListening Section = "Listening"
	SectionReading   Section = "Reading"
	SectionWriting   Section = "Writing"
	SectionSpeaking  Section = "Speaking"
)

// Sections lists every section in display order.
var Sections = []Section{SectionListening, SectionReading, SectionWriting, SectionSpeaking}

// ParseSection matches a section name case-insensitively.
func ParseSection(s string) (Section, bool) {
	for _, sec := range Sections {
		if strings.EqualFold(string(sec), strings.TrimSpace(s)) {
			return sec, true
		}
	}
	return "", false
}

// QuestionType is the wire name of a question presentation.
type QuestionType string

const (
	TypeMultipleChoice     QuestionType = "multiple-choice"
	TypeMCQ                QuestionType = "mcq"
	TypeShortAnswer        QuestionType = "short-answer"
	TypeSentenceCompletion QuestionType = "sentence-completion"
	TypeFormCompletion     QuestionType = "form-completion"
	TypeGapFill            QuestionType = "gap-fill"
	TypeTrueFalseNotGiven  QuestionType = "true-false-not-given"
	TypeYesNoNotGiven      QuestionType = "yes-no-not-given"
	TypeSpeaking           QuestionType = "speaking"
	TypeWritingTask1       QuestionType = "writing-task1"
	TypeWritingTask2       QuestionType = "writing-task2"
	TypeText               QuestionType = "text"
)

// TrueFalseNotGivenOptions are used when a true-false-not-given question ships without options.
var TrueFalseNotGivenOptions = []string{"True", "False", "Not Given"}

// YesNoNotGivenOptions are used when a yes-no-not-given question ships without options.
var YesNoNotGivenOptions = []string{"Yes", "No", "Not Given"}

// MediaType describes the attachment of a question.
type MediaType string

const (
	MediaNone  MediaType = "none"
	MediaImage MediaType = "image"
	MediaAudio MediaType = "audio"
)

// Question is a single item of a test.
type Question struct {
	Index           int          `json:"-"`
	ID              string       `json:"_id,omitempty"`
	QuestionText    string       `json:"questionText" validate:"required"`
	QuestionType    QuestionType `json:"questionType"`
	Options         []string     `json:"options,omitempty"`
	Media           string       `json:"media,omitempty"`
	MediaType       MediaType    `json:"mediaType,omitempty"`
	SpeakingPart    int          `json:"speakingPart,omitempty" validate:"gte=0,lte=3"`
	WritingTaskType string       `json:"writingTaskType,omitempty"`
	MinWordCount    int          `json:"minWordCount,omitempty" validate:"gte=0"`
	MaxAnswerLength int          `json:"maxAnswerLength,omitempty" validate:"gte=0"`
}

// IsChoice reports whether the question type requires options.
func (q Question) IsChoice() bool {
	switch q.QuestionType {
	case TypeMultipleChoice, TypeMCQ, TypeTrueFalseNotGiven, TypeYesNoNotGiven:
		return true
	default:
		return false
	}
}

// Test is a complete test definition as served by the API.
type Test struct {
	ID               string     `json:"_id" validate:"required"`
	Title            string     `json:"title" validate:"required"`
	Section          Section    `json:"section" validate:"required,oneof=Listening Reading Writing Speaking"`
	Difficulty       string     `json:"difficulty,omitempty"`
	TimeLimitMinutes int        `json:"timeLimit" validate:"gte=1"`
	Description      string     `json:"description,omitempty"`
	Questions        []Question `json:"questions" validate:"required,min=1,dive"`
}

// Normalize assigns question indexes and fills defaults that the API may omit.
func (t *Test) Normalize() {
	for i := range t.Questions {
		q := &t.Questions[i]
		q.Index = i
		if q.MediaType == "" {
			q.MediaType = MediaNone
		}
		if len(q.Options) == 0 {
			switch q.QuestionType {
			case TypeTrueFalseNotGiven:
				q.Options = append([]string(nil), TrueFalseNotGivenOptions...)
			case TypeYesNoNotGiven:
				q.Options = append([]string(nil), YesNoNotGivenOptions...)
			}
		}
	}
}

// TimeLimit returns the allowance of the test.
func (t Test) TimeLimit() time.Duration {
	return time.Duration(t.TimeLimitMinutes) * time.Minute
}

// TestFilter narrows the test catalogue.
type TestFilter struct {
	Section    string
	Difficulty string
	Search     string
}

// AnswerResult is the scoring of a single submitted answer.
type AnswerResult struct {
	Answer        string `json:"answer"`
	IsCorrect     bool   `json:"isCorrect"`
	CorrectAnswer string `json:"correctAnswer,omitempty"`
}

// Results is the scoring response returned after a submission.
type Results struct {
	Score          float64        `json:"score"`
	CorrectAnswers int            `json:"correctAnswers"`
	TotalQuestions int            `json:"totalQuestions"`
	Answers        []AnswerResult `json:"answers"`
	AttemptID      string         `json:"attemptId,omitempty"`
}

// Handoff is what the results view receives after a successful submission.
type Handoff struct {
	Results   Results
	TestTitle string
}

// User is the authenticated account.
type User struct {
	ID    string `json:"_id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// IsAdmin reports whether the account has the admin role.
func (u User) IsAdmin() bool {
	return u.Role == "admin"
}

// Trigger records how a submission was started.
type Trigger string

const (
	TriggerManual  Trigger = "manual"
	TriggerExpired Trigger = "expired"
)

// Attempt is a submitted attempt kept in local history.
type Attempt struct {
	ID          int64
	LocalID     string
	RemoteID    string
	TestID      string
	TestTitle   string
	Section     Section
	Difficulty  string
	Score       float64
	Correct     int
	Total       int
	StartedAt   time.Time
	SubmittedAt time.Time
	DurationMs  int64
	Trigger     Trigger
}

// AttemptAnswer stores per-question review data for an attempt.
type AttemptAnswer struct {
	Index         int
	Answer        string
	IsCorrect     bool
	CorrectAnswer string
}

// HistoryConfig defines filters and options for history output.
type HistoryConfig struct {
	Section     string
	Since       *time.Time
	Last        int
	CurveWindow int
}

// SectionAggregate summarizes attempts for one section.
type SectionAggregate struct {
	Section  Section
	Attempts int
	ScoreSum float64
	Best     float64
	Correct  int
	Total    int
}

// TestPage is one page of the test catalogue.
type TestPage struct {
	Tests      []Test     `json:"tests"`
	Pagination Pagination `json:"pagination"`
}

// Pagination describes the position of a catalogue page.
type Pagination struct {
	Page  int `json:"page"`
	Pages int `json:"pages"`
	Total int `json:"total"`
}

// AttemptTest is the test summary embedded in a remote attempt.
type AttemptTest struct {
	ID         string  `json:"_id"`
	Title      string  `json:"title"`
	Section    Section `json:"section"`
	Difficulty string  `json:"difficulty"`
}

// RemoteAttempt is an attempt as recorded by the API.
type RemoteAttempt struct {
	ID            string             `json:"_id"`
	Test          AttemptTest        `json:"testId"`
	Score         float64            `json:"score"`
	Date          time.Time          `json:"date"`
	SectionScores map[string]float64 `json:"sectionScores,omitempty"`
}

// Registration is the payload of a new account.
type Registration struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// ProfileUpdate changes the account details.
type ProfileUpdate struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}
