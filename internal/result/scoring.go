package result

import (
	"math"

	"github.com/victornm/genquiz/internal/domain"
	"github.com/victornm/genquiz/internal/errors"
)

// scoreAnswers grades answers against questions by position: answers[i]
// belongs to questions[i], a missing or empty entry counts as unanswered and
// therefore incorrect. Correctness is exact string equality with the
// question's correct option.
//
// The returned score is a percentage in [0, 100], rounded half up.
func scoreAnswers(questions []domain.Question, answers []string) (int, []bool, error) {
	if len(questions) == 0 {
		return 0, nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("cannot score a quiz with no questions"))
	}

	correct := make([]bool, len(questions))
	n := 0
	for i, q := range questions {
		var a string
		if i < len(answers) {
			a = answers[i]
		}
		if a == q.Correct {
			correct[i] = true
			n++
		}
	}

	score := int(math.Round(float64(n*100) / float64(len(questions))))
	return score, correct, nil
}
