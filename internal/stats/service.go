// Package stats keeps per-quiz standings and per-owner aggregates, fed by
// quiz.created and result.created events.
package stats

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/victornm/genquiz/internal/domain"
	"github.com/victornm/genquiz/internal/errors"
	"github.com/victornm/genquiz/internal/event"
)

type Config struct {
	EventBus *event.Bus
	Redis    redis.UniversalClient
	Prefix   string
}

type Service struct {
	eb     *event.Bus
	redis  redis.UniversalClient
	prefix string
}

func NewService(c Config) *Service {
	s := &Service{
		eb:     c.EventBus,
		redis:  c.Redis,
		prefix: c.Prefix,
	}

	s.eb.Subscribe(domain.EventNameQuizCreated, func(ctx context.Context, e event.Event) error {
		return s.RecordQuiz(ctx, e.(domain.EventQuizCreated))
	})

	s.eb.Subscribe(domain.EventNameResultCreated, func(ctx context.Context, e event.Event) error {
		return s.RecordResult(ctx, e.(domain.EventResultCreated))
	})

	return s
}

// RecordQuiz counts quizzes created per owner.
func (s *Service) RecordQuiz(ctx context.Context, e domain.EventQuizCreated) error {
	if err := s.redis.HIncrBy(ctx, s.ownerKey(e.Quiz.OwnerID), "quizzes_created", 1).Err(); err != nil {
		return fmt.Errorf("update owner stats: %w", err)
	}

	return nil
}

// RecordResult folds a new result into the quiz's standings and the owner's
// aggregates. Standings keep each owner's best score only.
func (s *Service) RecordResult(ctx context.Context, e domain.EventResultCreated) error {
	r := e.Result

	if err := s.redis.ZAddGT(ctx, s.standingsKey(r.QuizID), redis.Z{
		Score:  float64(r.Score),
		Member: r.OwnerID,
	}).Err(); err != nil {
		return fmt.Errorf("update standings: %w", err)
	}

	pipe := s.redis.Pipeline()
	pipe.HIncrBy(ctx, s.ownerKey(r.OwnerID), "attempts", 1)
	pipe.HIncrBy(ctx, s.ownerKey(r.OwnerID), "total_score", int64(r.Score))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("update owner stats: %w", err)
	}

	return s.publishStandings(ctx, r.QuizID)
}

func (s *Service) publishStandings(ctx context.Context, quizID string) error {
	st, err := s.Standings(ctx, StandingsRequest{QuizID: quizID})
	if err != nil {
		return fmt.Errorf("get standings failed: quiz=%s: %w", quizID, err)
	}

	s.eb.Publish(ctx, domain.EventStandingsUpdated{
		Standings: *st,
	})

	return nil
}

type StandingsRequest struct {
	QuizID string
}

// Standings returns all owners who attempted the quiz with their best score,
// sorted descending.
func (s *Service) Standings(ctx context.Context, req StandingsRequest) (*domain.Standings, error) {
	res, err := s.redis.ZRevRangeWithScores(ctx, s.standingsKey(req.QuizID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("get standings: %w", err)
	}

	if len(res) == 0 {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("no results recorded for quiz: id=%s", req.QuizID))
	}

	entries := make([]domain.StandingsEntry, 0, len(res))
	for _, z := range res {
		entries = append(entries, domain.StandingsEntry{
			OwnerID: z.Member.(string),
			Score:   z.Score,
		})
	}

	return &domain.Standings{
		QuizID:  req.QuizID,
		Entries: entries,
	}, nil
}

type OwnerStatsRequest struct {
	OwnerID string
}

func (s *Service) OwnerStats(ctx context.Context, req OwnerStatsRequest) (*domain.OwnerStats, error) {
	h, err := s.redis.HGetAll(ctx, s.ownerKey(req.OwnerID)).Result()
	if err != nil && !stderrors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get owner stats: %w", err)
	}

	if len(h) == 0 {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("no activity recorded for owner: id=%s", req.OwnerID))
	}

	created, err := parseCount(h["quizzes_created"])
	if err != nil {
		return nil, fmt.Errorf("corrupt owner stats: quizzes_created: %w", err)
	}

	attempts, err := parseCount(h["attempts"])
	if err != nil {
		return nil, fmt.Errorf("corrupt owner stats: attempts: %w", err)
	}

	total, err := parseCount(h["total_score"])
	if err != nil {
		return nil, fmt.Errorf("corrupt owner stats: total_score: %w", err)
	}

	avg := decimal.Zero
	if attempts > 0 {
		avg = decimal.NewFromInt(total).Div(decimal.NewFromInt(attempts)).Round(1)
	}

	return &domain.OwnerStats{
		OwnerID:        req.OwnerID,
		QuizzesCreated: created,
		Attempts:       attempts,
		AverageScore:   avg,
	}, nil
}

// parseCount reads a non-negative counter field, treating a missing field
// as zero.
func parseCount(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid count %q", s)
	}

	return n, nil
}

func (s *Service) standingsKey(quiz string) string {
	return fmt.Sprintf("%s:%s:standings", s.prefix, quiz)
}

func (s *Service) ownerKey(owner string) string {
	return fmt.Sprintf("%s:owner:%s", s.prefix, owner)
}
