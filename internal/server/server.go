package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/victornm/genquiz/internal/api"
	"github.com/victornm/genquiz/internal/event"
	"github.com/victornm/genquiz/internal/genai"
	"github.com/victornm/genquiz/internal/quiz"
	"github.com/victornm/genquiz/internal/result"
	"github.com/victornm/genquiz/internal/stats"
	"github.com/victornm/genquiz/internal/telemetry"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	Redis struct {
		Cache struct {
			Addrs  []string
			Pass   string
			Prefix string
		}

		Standings struct {
			Addrs  []string
			Pass   string
			Prefix string
		}

		Pubsub struct {
			Addrs  []string
			Pass   string
			Prefix string
		}
	}

	Postgres struct {
		Quiz struct {
			Addr string
			User string
			Pass string
			Name string
		}

		Result struct {
			Addr string
			User string
			Pass string
			Name string
		}
	}

	OpenAI struct {
		APIKey         string
		Model          string
		TimeoutSeconds int32
	}
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis struct {
			cache     redis.UniversalClient
			standings redis.UniversalClient
			pubsub    redis.UniversalClient
		}

		postgres struct {
			quiz   *pgxpool.Pool
			result *pgxpool.Pool
		}

		genai genai.Client
	}

	service struct {
		quiz   *quiz.Service
		result *result.Service
		stats  *stats.Service
	}

	http *http.Server
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	s.eb = event.NewBus()

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	s.initService()
	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := s.initPostgres(); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	s.infra.genai = genai.NewOpenAI(genai.Config{
		APIKey:  s.c.OpenAI.APIKey,
		Model:   s.c.OpenAI.Model,
		Timeout: time.Duration(s.c.OpenAI.TimeoutSeconds) * time.Second,
	})

	return nil
}

func (s *Server) initRedis() error {
	connect := func(addrs []string, pass string) (redis.UniversalClient, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		r := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    addrs,
			Password: pass,
		})

		if err := telemetry.MonitorRedis(r); err != nil {
			return nil, err
		}

		if err := r.Ping(ctx).Err(); err != nil {
			return nil, err
		}

		return r, nil
	}

	var err error
	s.infra.redis.cache, err = connect(s.c.Redis.Cache.Addrs, s.c.Redis.Cache.Pass)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	s.infra.redis.standings, err = connect(s.c.Redis.Standings.Addrs, s.c.Redis.Standings.Pass)
	if err != nil {
		return fmt.Errorf("standings: %w", err)
	}

	s.infra.redis.pubsub, err = connect(s.c.Redis.Pubsub.Addrs, s.c.Redis.Pubsub.Pass)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}

	return nil
}

func (s *Server) initPostgres() (err error) {
	connect := func(addr, user, pass, name string) (*pgxpool.Pool, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		cc, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s/%s", user, pass, addr, name))
		if err != nil {
			return nil, err
		}

		db, err := pgxpool.NewWithConfig(ctx, cc)
		if err != nil {
			return nil, err
		}

		if err := db.Ping(ctx); err != nil {
			return nil, err
		}

		return db, nil
	}

	s.infra.postgres.quiz, err = connect(s.c.Postgres.Quiz.Addr, s.c.Postgres.Quiz.User, s.c.Postgres.Quiz.Pass, s.c.Postgres.Quiz.Name)
	if err != nil {
		return fmt.Errorf("postgres: quiz: %w", err)
	}

	s.infra.postgres.result, err = connect(s.c.Postgres.Result.Addr, s.c.Postgres.Result.User, s.c.Postgres.Result.Pass, s.c.Postgres.Result.Name)
	if err != nil {
		return fmt.Errorf("postgres: result: %w", err)
	}

	return nil
}

func (s *Server) initService() {
	s.service.quiz = quiz.NewService(quiz.Config{
		DB:       s.infra.postgres.quiz,
		Cache:    s.infra.redis.cache,
		Prefix:   s.c.Redis.Cache.Prefix,
		GenAI:    s.infra.genai,
		EventBus: s.eb,
	})

	s.service.result = result.NewService(result.Config{
		DB:       s.infra.postgres.result,
		Quiz:     s.service.quiz,
		GenAI:    s.infra.genai,
		EventBus: s.eb,
	})

	s.service.stats = stats.NewService(stats.Config{
		EventBus: s.eb,
		Redis:    s.infra.redis.standings,
		Prefix:   s.c.Redis.Standings.Prefix,
	})
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery())

	api.New(api.Config{
		Engine:       e,
		EventBus:     s.eb,
		Quiz:         s.service.quiz,
		Result:       s.service.result,
		Stats:        s.service.stats,
		Redis:        s.infra.redis.pubsub,
		PubsubPrefix: s.c.Redis.Pubsub.Prefix,
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) Start() {
	ctx := context.TODO()

	slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.eb.Stop()

	slog.InfoContext(ctx, "server: shutdown completed")
}
