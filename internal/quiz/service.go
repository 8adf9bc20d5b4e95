package quiz

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/victornm/genquiz/internal/domain"
	"github.com/victornm/genquiz/internal/errors"
	"github.com/victornm/genquiz/internal/event"
	"github.com/victornm/genquiz/internal/genai"
)

const (
	defaultTitle = "Auto-generated Quiz"
	cacheTTL     = 10 * time.Minute
)

type Config struct {
	DB       *pgxpool.Pool
	Cache    redis.UniversalClient
	Prefix   string
	GenAI    genai.Client
	EventBus *event.Bus
}

type Service struct {
	db     *pgxpool.Pool
	cache  redis.UniversalClient
	prefix string
	genai  genai.Client
	eb     *event.Bus
}

func NewService(c Config) *Service {
	return &Service{
		db:     c.DB,
		cache:  c.Cache,
		prefix: c.Prefix,
		genai:  c.GenAI,
		eb:     c.EventBus,
	}
}

// GenerateRequest represents a request to generate a quiz from source text.
type GenerateRequest struct {
	// OwnerID identifies the user the quiz belongs to. Required.
	OwnerID string
	// Title is optional, a default is used when blank.
	Title string
	// Source is the material the questions are generated from.
	Source string
}

// Generate produces a validated quiz from the source text and persists it.
// The quiz is immutable once stored.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*domain.Quiz, error) {
	if strings.TrimSpace(req.OwnerID) == "" {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("owner id is required"))
	}

	source := strings.TrimSpace(req.Source)
	if source == "" {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("no source text to generate questions from"))
	}

	questions, err := s.generateQuestions(ctx, source)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = defaultTitle
	}

	q := &domain.Quiz{
		OwnerID:   req.OwnerID,
		Title:     title,
		Questions: questions,
	}

	if err := s.insertQuiz(ctx, q); err != nil {
		return nil, fmt.Errorf("insert quiz: %w", err)
	}

	s.cacheQuiz(ctx, q)

	s.eb.Publish(ctx, domain.EventQuizCreated{
		Quiz: *q,
	})

	return q, nil
}

func (s *Service) insertQuiz(ctx context.Context, q *domain.Quiz) (err error) {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate quiz ID: %w", err)
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
		insQuizStmt     = `INSERT INTO quizzes (quiz_id, owner_id, title, create_time) VALUES ($1, $2, $3, $4);`
		insQuestionStmt = `INSERT INTO quiz_questions (quiz_id, position, question_text, options, correct) VALUES ($1, $2, $3, $4, $5);`
	)

	now := time.Now().UTC()
	_, err = tx.Exec(ctx, insQuizStmt, id, q.OwnerID, q.Title, now)
	if err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}
	q.QuizID = id.String()
	q.CreateTime = now

	for i, question := range q.Questions { // TODO: Batch insert
		_, err = tx.Exec(ctx, insQuestionStmt, id, i, question.Text, question.Options, question.Correct)
		if err != nil {
			return fmt.Errorf("insert question %d: %w", i, err)
		}
	}

	return tx.Commit(ctx)
}

type GetRequest struct {
	QuizID string
}

// Get returns a stored quiz. Unknown and malformed ids are both reported as
// not found.
func (s *Service) Get(ctx context.Context, req GetRequest) (*domain.Quiz, error) {
	id, err := uuid.Parse(req.QuizID)
	if err != nil {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("quiz not found: id=%s", req.QuizID))
	}

	if q := s.cachedQuiz(ctx, id.String()); q != nil {
		return q, nil
	}

	q, err := s.selectQuiz(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cacheQuiz(ctx, q)
	return q, nil
}

func (s *Service) selectQuiz(ctx context.Context, id uuid.UUID) (*domain.Quiz, error) {
	const quizStmt = `SELECT owner_id, title, create_time FROM quizzes WHERE quiz_id = $1;`

	q := &domain.Quiz{QuizID: id.String()}
	err := s.db.QueryRow(ctx, quizStmt, id).Scan(&q.OwnerID, &q.Title, &q.CreateTime)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("quiz not found: id=%s", id))
	}
	if err != nil {
		return nil, fmt.Errorf("select quiz: %w", err)
	}

	const questionStmt = `
SELECT question_text, options, correct
FROM quiz_questions
WHERE quiz_id = $1
ORDER BY position;`

	rows, err := s.db.Query(ctx, questionStmt, id)
	if err != nil {
		return nil, fmt.Errorf("select questions: %w", err)
	}

	q.Questions, err = pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Question, error) {
		var question domain.Question
		if err := r.Scan(&question.Text, &question.Options, &question.Correct); err != nil {
			return domain.Question{}, err
		}
		return question, nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect questions: %w", err)
	}

	return q, nil
}

// Cache errors are logged and ignored: the database stays the source of truth.
func (s *Service) cacheQuiz(ctx context.Context, q *domain.Quiz) {
	b, err := json.Marshal(q)
	if err != nil {
		slog.WarnContext(ctx, "quiz: marshal for cache failed", "error", err)
		return
	}

	if err := s.cache.Set(ctx, s.quizKey(q.QuizID), b, cacheTTL).Err(); err != nil {
		slog.WarnContext(ctx, "quiz: cache set failed", "error", err)
	}
}

func (s *Service) cachedQuiz(ctx context.Context, id string) *domain.Quiz {
	b, err := s.cache.Get(ctx, s.quizKey(id)).Bytes()
	if err != nil {
		if !stderrors.Is(err, redis.Nil) {
			slog.WarnContext(ctx, "quiz: cache get failed", "error", err)
		}
		return nil
	}

	var q domain.Quiz
	if err := json.Unmarshal(b, &q); err != nil {
		slog.WarnContext(ctx, "quiz: corrupt cache entry", "error", err)
		return nil
	}

	return &q
}

func (s *Service) quizKey(id string) string {
	return fmt.Sprintf("%s:quiz:%s", s.prefix, id)
}
