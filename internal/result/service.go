package result

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/victornm/genquiz/internal/domain"
	"github.com/victornm/genquiz/internal/errors"
	"github.com/victornm/genquiz/internal/event"
	"github.com/victornm/genquiz/internal/genai"
	"github.com/victornm/genquiz/internal/quiz"
)

type Config struct {
	DB       *pgxpool.Pool
	Quiz     *quiz.Service
	GenAI    genai.Client
	EventBus *event.Bus
}

type Service struct {
	db    *pgxpool.Pool
	quiz  *quiz.Service
	genai genai.Client
	eb    *event.Bus
}

func NewService(c Config) *Service {
	return &Service{
		db:    c.DB,
		quiz:  c.Quiz,
		genai: c.GenAI,
		eb:    c.EventBus,
	}
}

// SubmitRequest represents one attempt at a quiz. Answers are positional:
// Answers[i] answers the quiz's question i, an empty string means unanswered.
type SubmitRequest struct {
	OwnerID string
	QuizID  string
	Answers []string
}

// Submit scores an attempt, generates per-question feedback and persists the
// result as a single immutable record.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*domain.Result, error) {
	if strings.TrimSpace(req.OwnerID) == "" {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("owner id is required"))
	}

	qz, err := s.quiz.Get(ctx, quiz.GetRequest{QuizID: req.QuizID})
	if err != nil {
		return nil, err
	}

	if len(req.Answers) > len(qz.Questions) {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("got %d answers for a quiz with %d questions", len(req.Answers), len(qz.Questions)))
	}

	score, correct, err := scoreAnswers(qz.Questions, req.Answers)
	if err != nil {
		return nil, err
	}

	feedback := s.buildFeedback(ctx, qz.Questions, correct, req.Answers)

	answers := make([]domain.Answer, len(qz.Questions))
	for i := range answers {
		answers[i] = domain.Answer{QuestionIndex: i}
		if i < len(req.Answers) {
			answers[i].SelectedOption = req.Answers[i]
		}
	}

	r := &domain.Result{
		OwnerID:  req.OwnerID,
		QuizID:   qz.QuizID,
		Answers:  answers,
		Score:    score,
		Feedback: feedback,
	}

	if err := s.insertResult(ctx, r); err != nil {
		return nil, fmt.Errorf("insert result: %w", err)
	}

	s.eb.Publish(ctx, domain.EventResultCreated{
		Result: *r,
	})

	return r, nil
}

func (s *Service) insertResult(ctx context.Context, r *domain.Result) (err error) {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate result ID: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = stderrors.Join(err, tx.Rollback(ctx))
		}
	}()

	const (
		insResultStmt = `INSERT INTO results (result_id, owner_id, quiz_id, score, create_time) VALUES ($1, $2, $3, $4, $5);`
		insAnswerStmt = `
INSERT INTO result_answers (result_id, position, selected_option, correct, question_text, recommendation)
VALUES ($1, $2, $3, $4, $5, $6);`
	)

	now := time.Now().UTC()
	_, err = tx.Exec(ctx, insResultStmt, id, r.OwnerID, r.QuizID, r.Score, now)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	r.ResultID = id.String()
	r.CreateTime = now

	for i, a := range r.Answers { // TODO: Batch insert
		f := r.Feedback[i]
		_, err = tx.Exec(ctx, insAnswerStmt, id, i, a.SelectedOption, f.Correct, f.QuestionText, f.Recommendation)
		if err != nil {
			return fmt.Errorf("insert answer %d: %w", i, err)
		}
	}

	return tx.Commit(ctx)
}

type GetRequest struct {
	ResultID string
}

// GetResponse carries the result plus its quiz resolved for display. Quiz is
// nil when the referenced quiz no longer exists.
type GetResponse struct {
	Result *domain.Result
	Quiz   *domain.Quiz
}

func (s *Service) Get(ctx context.Context, req GetRequest) (*GetResponse, error) {
	id, err := uuid.Parse(req.ResultID)
	if err != nil {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("result not found: id=%s", req.ResultID))
	}

	r, err := s.selectResult(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := &GetResponse{Result: r}

	qz, err := s.quiz.Get(ctx, quiz.GetRequest{QuizID: r.QuizID})
	if err == nil {
		resp.Quiz = qz
	} else if errors.Convert(err).Code != errors.CodeNotFound {
		return nil, err
	}

	return resp, nil
}

func (s *Service) selectResult(ctx context.Context, id uuid.UUID) (*domain.Result, error) {
	const resultStmt = `SELECT owner_id, quiz_id, score, create_time FROM results WHERE result_id = $1;`

	r := &domain.Result{ResultID: id.String()}
	err := s.db.QueryRow(ctx, resultStmt, id).Scan(&r.OwnerID, &r.QuizID, &r.Score, &r.CreateTime)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("result not found: id=%s", id))
	}
	if err != nil {
		return nil, fmt.Errorf("select result: %w", err)
	}

	const answerStmt = `
SELECT position, selected_option, correct, question_text, recommendation
FROM result_answers
WHERE result_id = $1
ORDER BY position;`

	rows, err := s.db.Query(ctx, answerStmt, id)
	if err != nil {
		return nil, fmt.Errorf("select answers: %w", err)
	}

	type answerRow struct {
		answer   domain.Answer
		feedback domain.FeedbackItem
	}

	collected, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (answerRow, error) {
		var ar answerRow
		err := row.Scan(&ar.answer.QuestionIndex, &ar.answer.SelectedOption, &ar.feedback.Correct, &ar.feedback.QuestionText, &ar.feedback.Recommendation)
		return ar, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect answers: %w", err)
	}

	for _, ar := range collected {
		r.Answers = append(r.Answers, ar.answer)
		r.Feedback = append(r.Feedback, ar.feedback)
	}

	return r, nil
}
