package result

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/genquiz/internal/domain"
	"github.com/victornm/genquiz/internal/errors"
)

func questionsWithCorrect(correct ...string) []domain.Question {
	qs := make([]domain.Question, len(correct))
	for i, c := range correct {
		qs[i] = domain.Question{
			Text:    "Q?",
			Options: []string{"A", "B", "C", "D"},
			Correct: c,
		}
	}
	return qs
}

func TestScoreAnswers(t *testing.T) {
	tests := map[string]struct {
		questions   []domain.Question
		answers     []string
		wantScore   int
		wantCorrect []bool
	}{
		"all correct": {
			questions:   questionsWithCorrect("A", "B", "C"),
			answers:     []string{"A", "B", "C"},
			wantScore:   100,
			wantCorrect: []bool{true, true, true},
		},

		"all wrong": {
			questions:   questionsWithCorrect("A", "B", "C"),
			answers:     []string{"B", "C", "A"},
			wantScore:   0,
			wantCorrect: []bool{false, false, false},
		},

		"all unanswered": {
			questions:   questionsWithCorrect("A", "B", "C"),
			answers:     []string{"", "", ""},
			wantScore:   0,
			wantCorrect: []bool{false, false, false},
		},

		"unanswered middle question rounds half up": {
			questions:   questionsWithCorrect("A", "B", "C"),
			answers:     []string{"A", "", "C"},
			wantScore:   67,
			wantCorrect: []bool{true, false, true},
		},

		"missing trailing answers count as unanswered": {
			questions:   questionsWithCorrect("A", "B", "C", "D"),
			answers:     []string{"A"},
			wantScore:   25,
			wantCorrect: []bool{true, false, false, false},
		},

		"no answers at all": {
			questions:   questionsWithCorrect("A", "B"),
			answers:     nil,
			wantScore:   0,
			wantCorrect: []bool{false, false},
		},

		"exact half rounds up": {
			questions:   questionsWithCorrect("A", "B", "C", "D", "A", "B", "C", "D"),
			answers:     []string{"A"},
			wantScore:   13, // 100/8 = 12.5
			wantCorrect: []bool{true, false, false, false, false, false, false, false},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			score, correct, err := scoreAnswers(tt.questions, tt.answers)
			require.NoError(t, err)

			assert.Equal(t, tt.wantScore, score)
			assert.Equal(t, tt.wantCorrect, correct)
			assert.GreaterOrEqual(t, score, 0)
			assert.LessOrEqual(t, score, 100)
		})
	}
}

func TestScoreAnswers_Idempotent(t *testing.T) {
	questions := questionsWithCorrect("A", "B", "C")
	answers := []string{"A", "D", ""}

	s1, c1, err := scoreAnswers(questions, answers)
	require.NoError(t, err)
	s2, c2, err := scoreAnswers(questions, answers)
	require.NoError(t, err)

	assert.Equal(t, s1, s2)
	assert.Equal(t, c1, c2)
}

func TestScoreAnswers_EmptyQuiz(t *testing.T) {
	_, _, err := scoreAnswers(nil, []string{"A"})
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidArgument, errors.Convert(err).Code)
}
