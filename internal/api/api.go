package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/victornm/genquiz/internal/domain"
	"github.com/victornm/genquiz/internal/errors"
	"github.com/victornm/genquiz/internal/event"
	"github.com/victornm/genquiz/internal/extract"
	"github.com/victornm/genquiz/internal/quiz"
	"github.com/victornm/genquiz/internal/result"
	"github.com/victornm/genquiz/internal/stats"
)

// maxUploadBytes caps PDF uploads. Anything larger is rejected before the
// extractor runs.
const maxUploadBytes = 10 << 20

type Config struct {
	Engine       *gin.Engine
	EventBus     *event.Bus
	Quiz         *quiz.Service
	Result       *result.Service
	Stats        *stats.Service
	Redis        Redis
	PubsubPrefix string
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type API struct {
	qs *quiz.Service
	rs *result.Service
	ss *stats.Service

	redis  Redis
	prefix string
}

func New(c Config) *API {
	a := &API{
		qs:     c.Quiz,
		rs:     c.Result,
		ss:     c.Stats,
		redis:  c.Redis,
		prefix: c.PubsubPrefix,
	}

	// HTTP APIs
	g := c.Engine.Group("/api")
	g.POST("/quizzes", a.CreateQuiz)
	g.GET("/quizzes/:id", a.GetQuiz)
	g.GET("/quizzes/:id/standings", a.GetStandings)
	g.POST("/results", a.SubmitResult)
	g.GET("/results/:id", a.GetResult)
	g.GET("/owners/:id/stats", a.GetOwnerStats)

	// Register event handlers
	c.EventBus.Subscribe(domain.EventNameStandingsUpdated, func(ctx context.Context, e event.Event) error {
		return a.PublishStandingsUpdated(ctx, e.(domain.EventStandingsUpdated))
	})

	return a
}

type (
	Question struct {
		Text    string   `json:"text"`
		Options []string `json:"options"`
	}

	Quiz struct {
		QuizID     string     `json:"quiz_id"`
		OwnerID    string     `json:"owner_id"`
		Title      string     `json:"title"`
		Questions  []Question `json:"questions"`
		CreateTime time.Time  `json:"create_time"`
	}

	FeedbackItem struct {
		QuestionText   string `json:"question_text"`
		Correct        bool   `json:"correct"`
		Recommendation string `json:"recommendation"`
	}

	Answer struct {
		QuestionIndex  int    `json:"question_index"`
		SelectedOption string `json:"selected_option"`
	}

	Result struct {
		ResultID   string         `json:"result_id"`
		OwnerID    string         `json:"owner_id"`
		QuizID     string         `json:"quiz_id"`
		Answers    []Answer       `json:"answers"`
		Score      int            `json:"score"`
		Feedback   []FeedbackItem `json:"feedback"`
		CreateTime time.Time      `json:"create_time"`
		Quiz       *Quiz          `json:"quiz,omitempty"`
	}
)

// viewQuiz serializes a quiz for clients. The correct answers stay
// server-side: they are only ever compared against submissions.
func viewQuiz(q *domain.Quiz) *Quiz {
	v := &Quiz{
		QuizID:     q.QuizID,
		OwnerID:    q.OwnerID,
		Title:      q.Title,
		Questions:  make([]Question, 0, len(q.Questions)),
		CreateTime: q.CreateTime,
	}

	for _, question := range q.Questions {
		v.Questions = append(v.Questions, Question{
			Text:    question.Text,
			Options: question.Options,
		})
	}

	return v
}

func viewFeedback(items []domain.FeedbackItem) []FeedbackItem {
	v := make([]FeedbackItem, 0, len(items))
	for _, item := range items {
		v = append(v, FeedbackItem{
			QuestionText:   item.QuestionText,
			Correct:        item.Correct,
			Recommendation: item.Recommendation,
		})
	}
	return v
}

type createQuizRequest struct {
	OwnerID string `json:"owner_id"`
	Title   string `json:"title"`
	Text    string `json:"text"`
}

// CreateQuiz generates a quiz from free text (JSON body) or an uploaded PDF
// (multipart form).
func (a *API) CreateQuiz(c *gin.Context) {
	var req quiz.GenerateRequest

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		r, err := a.uploadRequest(c)
		if err != nil {
			a.abort(c, err)
			return
		}
		req = r
	} else {
		var body createQuizRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			a.abort(c, errors.New(errors.CodeInvalidArgument,
				errors.WithMessagef("invalid request body: %v", err)))
			return
		}
		req = quiz.GenerateRequest{
			OwnerID: body.OwnerID,
			Title:   body.Title,
			Source:  body.Text,
		}
	}

	q, err := a.qs.Generate(c.Request.Context(), req)
	if err != nil {
		a.abort(c, err)
		return
	}

	c.JSON(http.StatusCreated, viewQuiz(q))
}

func (a *API) uploadRequest(c *gin.Context) (quiz.GenerateRequest, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return quiz.GenerateRequest{}, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef(`a PDF upload named "file" is required`))
	}

	if fh.Size > maxUploadBytes {
		return quiz.GenerateRequest{}, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("file exceeds the %d MB limit", maxUploadBytes>>20))
	}

	if ct := fh.Header.Get("Content-Type"); ct != "" && ct != "application/pdf" {
		return quiz.GenerateRequest{}, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("only application/pdf uploads are accepted, got %s", ct))
	}

	f, err := fh.Open()
	if err != nil {
		return quiz.GenerateRequest{}, errors.Internal(err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		return quiz.GenerateRequest{}, errors.Internal(err)
	}

	text, err := extract.Text(data)
	if err != nil {
		return quiz.GenerateRequest{}, err
	}

	title := strings.TrimSpace(c.PostForm("title"))
	if title == "" {
		title = strings.TrimSuffix(fh.Filename, ".pdf")
	}

	return quiz.GenerateRequest{
		OwnerID: c.PostForm("owner_id"),
		Title:   title,
		Source:  text,
	}, nil
}

func (a *API) GetQuiz(c *gin.Context) {
	q, err := a.qs.Get(c.Request.Context(), quiz.GetRequest{
		QuizID: c.Param("id"),
	})
	if err != nil {
		a.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, viewQuiz(q))
}

type submitResultRequest struct {
	OwnerID string   `json:"owner_id"`
	QuizID  string   `json:"quiz_id"`
	Answers []string `json:"answers"`
}

type submitResultResponse struct {
	ResultID string         `json:"result_id"`
	Score    int            `json:"score"`
	Feedback []FeedbackItem `json:"feedback"`
}

func (a *API) SubmitResult(c *gin.Context) {
	var body submitResultRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		a.abort(c, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("invalid request body: %v", err)))
		return
	}

	r, err := a.rs.Submit(c.Request.Context(), result.SubmitRequest{
		OwnerID: body.OwnerID,
		QuizID:  body.QuizID,
		Answers: body.Answers,
	})
	if err != nil {
		a.abort(c, err)
		return
	}

	c.JSON(http.StatusCreated, submitResultResponse{
		ResultID: r.ResultID,
		Score:    r.Score,
		Feedback: viewFeedback(r.Feedback),
	})
}

func (a *API) GetResult(c *gin.Context) {
	resp, err := a.rs.Get(c.Request.Context(), result.GetRequest{
		ResultID: c.Param("id"),
	})
	if err != nil {
		a.abort(c, err)
		return
	}

	r := resp.Result
	v := Result{
		ResultID:   r.ResultID,
		OwnerID:    r.OwnerID,
		QuizID:     r.QuizID,
		Answers:    make([]Answer, 0, len(r.Answers)),
		Score:      r.Score,
		Feedback:   viewFeedback(r.Feedback),
		CreateTime: r.CreateTime,
	}
	for _, a := range r.Answers {
		v.Answers = append(v.Answers, Answer{
			QuestionIndex:  a.QuestionIndex,
			SelectedOption: a.SelectedOption,
		})
	}
	if resp.Quiz != nil {
		v.Quiz = viewQuiz(resp.Quiz)
	}

	c.JSON(http.StatusOK, v)
}

func (a *API) GetStandings(c *gin.Context) {
	st, err := a.ss.Standings(c.Request.Context(), stats.StandingsRequest{
		QuizID: c.Param("id"),
	})
	if err != nil {
		a.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, viewStandings(*st))
}

type ownerStatsResponse struct {
	OwnerID        string `json:"owner_id"`
	QuizzesCreated int64  `json:"quizzes_created"`
	Attempts       int64  `json:"attempts"`
	AverageScore   string `json:"average_score"`
}

func (a *API) GetOwnerStats(c *gin.Context) {
	os, err := a.ss.OwnerStats(c.Request.Context(), stats.OwnerStatsRequest{
		OwnerID: c.Param("id"),
	})
	if err != nil {
		a.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, ownerStatsResponse{
		OwnerID:        os.OwnerID,
		QuizzesCreated: os.QuizzesCreated,
		Attempts:       os.Attempts,
		AverageScore:   os.AverageScore.String(),
	})
}

func (a *API) abort(c *gin.Context, err error) {
	e := errors.Convert(err)
	if e.Code == errors.CodeInternal {
		slog.ErrorContext(c.Request.Context(), "api: internal error", "error", e)
	}

	c.AbortWithStatusJSON(e.HTTPStatusCode(), gin.H{
		"code":    e.Code,
		"message": e.Message,
	})
}
