package result

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/genquiz/internal/domain"
	"github.com/victornm/genquiz/internal/genai"
)

// echoGenAI answers every feedback prompt with a recommendation that repeats
// the question text from the prompt, after a random delay so completion order
// differs from question order.
type echoGenAI struct{}

func (echoGenAI) Generate(_ context.Context, prompt string) (string, error) {
	time.Sleep(time.Duration(rand.Intn(20)) * time.Millisecond)

	var question string
	for _, line := range strings.Split(prompt, "\n") {
		if strings.HasPrefix(line, "Question: ") {
			question = strings.TrimPrefix(line, "Question: ")
		}
	}
	return fmt.Sprintf(`{"recommendation": "revisit %s"}`, question), nil
}

type failingGenAI struct{}

func (failingGenAI) Generate(context.Context, string) (string, error) {
	return "", fmt.Errorf("upstream timeout")
}

type garbageGenAI struct{}

func (garbageGenAI) Generate(context.Context, string) (string, error) {
	return "Sure! Here is my recommendation:", nil
}

func TestBuildFeedback(t *testing.T) {
	s := NewService(Config{GenAI: echoGenAI{}})

	questions := []domain.Question{
		{Text: "Q0?", Options: []string{"A", "B", "C", "D"}, Correct: "A"},
		{Text: "Q1?", Options: []string{"A", "B", "C", "D"}, Correct: "B"},
		{Text: "Q2?", Options: []string{"A", "B", "C", "D"}, Correct: "C"},
	}
	correct := []bool{true, false, false}
	answers := []string{"A", "C", ""}

	items := s.buildFeedback(context.Background(), questions, correct, answers)
	require.Len(t, items, len(questions))

	assert.Equal(t, domain.FeedbackItem{QuestionText: "Q0?", Correct: true}, items[0],
		"correct answers get no recommendation")
	assert.Equal(t, domain.FeedbackItem{QuestionText: "Q1?", Correct: false, Recommendation: "revisit Q1?"}, items[1])
	assert.Equal(t, domain.FeedbackItem{QuestionText: "Q2?", Correct: false, Recommendation: fallbackRecommendation}, items[2],
		"unanswered questions get the fallback")
}

func TestBuildFeedback_OrderSurvivesConcurrency(t *testing.T) {
	s := NewService(Config{GenAI: echoGenAI{}})

	const n = 12
	questions := make([]domain.Question, n)
	correct := make([]bool, n)
	answers := make([]string, n)
	for i := range questions {
		questions[i] = domain.Question{
			Text:    fmt.Sprintf("Q%d?", i),
			Options: []string{"A", "B", "C", "D"},
			Correct: "A",
		}
		answers[i] = "B"
	}

	items := s.buildFeedback(context.Background(), questions, correct, answers)
	require.Len(t, items, n)

	for i, item := range items {
		assert.Equal(t, fmt.Sprintf("Q%d?", i), item.QuestionText)
		assert.Equal(t, fmt.Sprintf("revisit Q%d?", i), item.Recommendation)
	}
}

func TestBuildFeedback_UpstreamFailure(t *testing.T) {
	for name, client := range map[string]genai.Client{
		"call fails":       failingGenAI{},
		"malformed output": garbageGenAI{},
	} {
		t.Run(name, func(t *testing.T) {
			s := NewService(Config{GenAI: client})

			questions := questionsWithCorrect("A", "B")
			items := s.buildFeedback(context.Background(), questions, []bool{false, false}, []string{"B", "A"})

			require.Len(t, items, len(questions))
			for _, item := range items {
				assert.False(t, item.Correct)
				assert.Equal(t, fallbackRecommendation, item.Recommendation)
			}
		})
	}
}
