package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Question is a single multiple-choice question. Correct is always one of
// Options; the generator validates this before a question ever enters a quiz.
type Question struct {
	Text    string
	Options []string
	Correct string
}

// Quiz is an immutable set of generated questions owned by a user.
// There is no update operation: a quiz is written once and only read after.
type Quiz struct {
	QuizID     string
	OwnerID    string
	Title      string
	Questions  []Question
	CreateTime time.Time
}

// Answer is one submitted answer, aligned to the quiz question at the same
// index. An empty SelectedOption means the question was left unanswered.
type Answer struct {
	QuestionIndex  int
	SelectedOption string
}

// FeedbackItem is the per-question verdict for one attempt.
// Recommendation is empty for correct answers.
type FeedbackItem struct {
	QuestionText   string
	Correct        bool
	Recommendation string
}

// Result is an immutable record of one scored attempt against a quiz.
// Answers and Feedback always have the same length as the quiz's questions.
type Result struct {
	ResultID   string
	OwnerID    string
	QuizID     string
	Answers    []Answer
	Score      int
	Feedback   []FeedbackItem
	CreateTime time.Time
}

// Standings lists the best score per owner for a quiz, sorted descending.
type Standings struct {
	QuizID  string
	Entries []StandingsEntry
}

type StandingsEntry struct {
	OwnerID string
	Score   float64
}

// OwnerStats aggregates all attempts of one owner across quizzes.
type OwnerStats struct {
	OwnerID        string
	QuizzesCreated int64
	Attempts       int64
	AverageScore   decimal.Decimal
}
