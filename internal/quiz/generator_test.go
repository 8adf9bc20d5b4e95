package quiz

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/genquiz/internal/domain"
	"github.com/victornm/genquiz/internal/errors"
)

type fakeGenAI struct {
	out string
	err error
}

func (f fakeGenAI) Generate(context.Context, string) (string, error) {
	return f.out, f.err
}

const validOutput = `{
  "questions": [
    {"text": "Q1?", "options": ["A", "B", "C", "D"], "correct": "A"},
    {"text": "Q2?", "options": ["A", "B", "C", "D"], "correct": "B"},
    {"text": "Q3?", "options": ["A", "B", "C", "D"], "correct": "C"},
    {"text": "Q4?", "options": ["A", "B", "C", "D"], "correct": "D"},
    {"text": "Q5?", "options": ["A", "B", "C", "D"], "correct": "A"}
  ]
}`

func TestGenerateQuestions(t *testing.T) {
	s := NewService(Config{GenAI: fakeGenAI{out: validOutput}})

	questions, err := s.generateQuestions(context.Background(), "some source material")
	require.NoError(t, err)

	require.Len(t, questions, questionCount)
	for _, q := range questions {
		assert.NotEmpty(t, q.Text)
		assert.Len(t, q.Options, optionCount)
		assert.Contains(t, q.Options, q.Correct)
	}
}

func TestGenerateQuestions_FencedOutput(t *testing.T) {
	s := NewService(Config{GenAI: fakeGenAI{out: "```json\n" + validOutput + "\n```"}})

	questions, err := s.generateQuestions(context.Background(), "some source material")
	require.NoError(t, err)
	require.Len(t, questions, questionCount)
}

func TestGenerateQuestions_Unavailable(t *testing.T) {
	s := NewService(Config{GenAI: fakeGenAI{err: fmt.Errorf("connection refused")}})

	_, err := s.generateQuestions(context.Background(), "some source material")
	require.Error(t, err)
	assert.Equal(t, errors.CodeUnavailable, errors.Convert(err).Code)
}

func TestGenerateQuestions_RejectsMalformedOutput(t *testing.T) {
	tests := []struct {
		name string
		out  string
	}{
		{"not JSON at all", `I'd be happy to help with that!`},
		{"missing questions field", `{"items": []}`},
		{"empty questions", `{"questions": []}`},
		{"too few questions", `{"questions": [{"text": "Q?", "options": ["A", "B", "C", "D"], "correct": "A"}]}`},
		{"three options", questionsWith(`{"text": "Q?", "options": ["A", "B", "C"], "correct": "A"}`)},
		{"five options", questionsWith(`{"text": "Q?", "options": ["A", "B", "C", "D", "E"], "correct": "A"}`)},
		{"empty question text", questionsWith(`{"text": "", "options": ["A", "B", "C", "D"], "correct": "A"}`)},
		{"empty option", questionsWith(`{"text": "Q?", "options": ["A", "B", "C", " "], "correct": "A"}`)},
		{"duplicate options", questionsWith(`{"text": "Q?", "options": ["A", "A", "C", "D"], "correct": "A"}`)},
		{"missing correct field", questionsWith(`{"text": "Q?", "options": ["A", "B", "C", "D"]}`)},
		{"correct not among options", questionsWith(`{"text": "Q?", "options": ["A", "B", "C", "D"], "correct": "E"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewService(Config{GenAI: fakeGenAI{out: tt.out}})

			_, err := s.generateQuestions(context.Background(), "some source material")
			require.Error(t, err)
			assert.Equal(t, errors.CodeUnavailable, errors.Convert(err).Code)
		})
	}
}

// questionsWith builds a full-size question set where the last entry is the
// given JSON object and the rest are valid.
func questionsWith(q string) string {
	valid := `{"text": "Q?", "options": ["A", "B", "C", "D"], "correct": "A"}`
	s := `{"questions": [`
	for i := 0; i < questionCount-1; i++ {
		s += valid + ","
	}
	return s + q + `]}`
}

func TestBuildQuizPrompt_TruncatesSource(t *testing.T) {
	long := make([]rune, maxSourceChars*2)
	for i := range long {
		long[i] = 'x'
	}

	p := buildQuizPrompt(string(long))
	assert.LessOrEqual(t, len(p), maxSourceChars+1000, "prompt should carry at most %d source chars", maxSourceChars)
}

func TestValidateQuestions_KeepsOrder(t *testing.T) {
	gqs := make([]generatedQuestion, questionCount)
	for i := range gqs {
		gqs[i] = generatedQuestion{
			Text:    fmt.Sprintf("Q%d?", i),
			Options: []string{"A", "B", "C", "D"},
			Correct: "B",
		}
	}

	questions, err := validateQuestions(gqs)
	require.NoError(t, err)

	want := make([]domain.Question, questionCount)
	for i := range want {
		want[i] = domain.Question{
			Text:    fmt.Sprintf("Q%d?", i),
			Options: []string{"A", "B", "C", "D"},
			Correct: "B",
		}
	}
	assert.Equal(t, want, questions)
}
