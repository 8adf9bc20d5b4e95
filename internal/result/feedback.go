package result

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/victornm/genquiz/internal/domain"
	"github.com/victornm/genquiz/internal/genai"
)

const (
	// fallbackRecommendation replaces the model's suggestion whenever the
	// model call fails or returns garbage. A flaky generator must never block
	// persisting a result.
	fallbackRecommendation = "Review the relevant topic in your study materials."

	maxConcurrentFeedback = 4
)

type feedbackResponse struct {
	Recommendation string `json:"recommendation"`
}

// buildFeedback produces one item per question, in question order. Incorrect
// answered questions get a model-generated recommendation; recommendations
// are fetched concurrently but collected into their question's slot, so the
// order never depends on completion order.
func (s *Service) buildFeedback(ctx context.Context, questions []domain.Question, correct []bool, answers []string) []domain.FeedbackItem {
	items := make([]domain.FeedbackItem, len(questions))

	var eg errgroup.Group
	eg.SetLimit(maxConcurrentFeedback)

	for i := range questions {
		items[i] = domain.FeedbackItem{
			QuestionText: questions[i].Text,
			Correct:      correct[i],
		}

		if correct[i] {
			continue
		}

		var answer string
		if i < len(answers) {
			answer = answers[i]
		}
		if answer == "" {
			// Unanswered: nothing to explain, point at the material.
			items[i].Recommendation = fallbackRecommendation
			continue
		}

		i, q := i, questions[i]
		eg.Go(func() error {
			items[i].Recommendation = s.recommend(ctx, q, answer)
			return nil
		})
	}

	_ = eg.Wait() // workers substitute the fallback instead of returning errors

	return items
}

func (s *Service) recommend(ctx context.Context, q domain.Question, answer string) string {
	out, err := s.genai.Generate(ctx, buildFeedbackPrompt(q, answer))
	if err != nil {
		slog.WarnContext(ctx, "result: feedback generation failed", "error", err)
		return fallbackRecommendation
	}

	var fr feedbackResponse
	if err := json.Unmarshal([]byte(genai.ExtractJSON(out)), &fr); err != nil {
		slog.WarnContext(ctx, "result: malformed feedback output", "error", err)
		return fallbackRecommendation
	}

	if strings.TrimSpace(fr.Recommendation) == "" {
		return fallbackRecommendation
	}

	return fr.Recommendation
}

func buildFeedbackPrompt(q domain.Question, answer string) string {
	var sb strings.Builder
	sb.WriteString("A student answered the following quiz question incorrectly. ")
	sb.WriteString("Give one short, specific study recommendation to help them improve. ")
	sb.WriteString(`Respond with JSON only: {"recommendation": "..."}`)
	sb.WriteString(fmt.Sprintf("\n\nQuestion: %s", q.Text))
	sb.WriteString(fmt.Sprintf("\nCorrect answer: %s", q.Correct))
	sb.WriteString(fmt.Sprintf("\nStudent's answer: %s", answer))
	return sb.String()
}
