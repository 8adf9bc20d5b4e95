package quiz

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/victornm/genquiz/internal/domain"
	"github.com/victornm/genquiz/internal/errors"
	"github.com/victornm/genquiz/internal/genai"
)

const (
	questionCount = 5
	optionCount   = 4

	// maxSourceChars bounds what is sent to the model. Longer documents are
	// deliberately truncated, not summarized.
	maxSourceChars = 5000
)

// generatedQuiz mirrors the JSON shape the model is asked to produce.
type generatedQuiz struct {
	Questions []generatedQuestion `json:"questions"`
}

type generatedQuestion struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Correct string   `json:"correct"`
}

// generateQuestions asks the model for a full question set and validates the
// response. Model output is untrusted input: nothing leaves this function
// unless every question is well-formed.
func (s *Service) generateQuestions(ctx context.Context, source string) ([]domain.Question, error) {
	out, err := s.genai.Generate(ctx, buildQuizPrompt(source))
	if err != nil {
		return nil, errors.New(errors.CodeUnavailable,
			errors.WithMessagef("quiz generation is currently unavailable"),
			errors.WithCause(err))
	}

	var gq generatedQuiz
	if err := json.Unmarshal([]byte(genai.ExtractJSON(out)), &gq); err != nil {
		return nil, errors.New(errors.CodeUnavailable,
			errors.WithMessagef("generator returned malformed output"),
			errors.WithCause(err))
	}

	if len(gq.Questions) == 0 {
		return nil, errors.New(errors.CodeUnavailable,
			errors.WithMessagef("generator returned no questions"))
	}

	return validateQuestions(gq.Questions)
}

func validateQuestions(gqs []generatedQuestion) ([]domain.Question, error) {
	if len(gqs) != questionCount {
		return nil, errors.New(errors.CodeUnavailable,
			errors.WithMessagef("generator returned %d questions, want %d", len(gqs), questionCount))
	}

	questions := make([]domain.Question, 0, len(gqs))
	for i, gq := range gqs {
		q, err := validateQuestion(gq)
		if err != nil {
			return nil, errors.New(errors.CodeUnavailable,
				errors.WithMessagef("generator returned an invalid question at index %d", i),
				errors.WithCause(err))
		}
		questions = append(questions, q)
	}

	return questions, nil
}

func validateQuestion(gq generatedQuestion) (domain.Question, error) {
	if strings.TrimSpace(gq.Text) == "" {
		return domain.Question{}, fmt.Errorf("question text is empty")
	}

	if len(gq.Options) != optionCount {
		return domain.Question{}, fmt.Errorf("got %d options, want %d", len(gq.Options), optionCount)
	}

	seen := make(map[string]bool, optionCount)
	for _, opt := range gq.Options {
		if strings.TrimSpace(opt) == "" {
			return domain.Question{}, fmt.Errorf("option is empty")
		}
		if seen[opt] {
			return domain.Question{}, fmt.Errorf("duplicate option %q", opt)
		}
		seen[opt] = true
	}

	if !seen[gq.Correct] {
		return domain.Question{}, fmt.Errorf("correct answer %q is not among the options", gq.Correct)
	}

	return domain.Question{
		Text:    gq.Text,
		Options: gq.Options,
		Correct: gq.Correct,
	}, nil
}

func buildQuizPrompt(source string) string {
	if r := []rune(source); len(r) > maxSourceChars {
		source = string(r[:maxSourceChars])
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Generate exactly %d multiple-choice questions based on the following material.\n\n", questionCount))
	sb.WriteString("Requirements:\n")
	sb.WriteString(fmt.Sprintf("- Each question must have exactly %d distinct options\n", optionCount))
	sb.WriteString("- Exactly one option is correct, and \"correct\" must repeat that option verbatim\n")
	sb.WriteString("- Respond with JSON only, no prose, in this shape:\n")
	sb.WriteString(`{"questions": [{"text": "...", "options": ["...", "...", "...", "..."], "correct": "..."}]}`)
	sb.WriteString("\n\nMaterial:\n")
	sb.WriteString(source)

	return sb.String()
}
