package service

import (
	"context"
	"encoding/json"
	"testhub_backend/internal/model"
	"testhub_backend/internal/util"
	"testhub_backend/pkg/logger"
	"testhub_backend/pkg/monitoring"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	historyCacheKey = "testhub:history"
	historyCacheTTL = time.Minute
)

// HistoryService reads past sessions and derives retake sessions from
// completed ones.
type HistoryService struct {
	Repo SessionStore
	Gen  QuestionGenerator
	rdb  *redis.Client
}

func NewHistoryService(repo SessionStore, gen QuestionGenerator, rdb *redis.Client) *HistoryService {
	return &HistoryService{Repo: repo, Gen: gen, rdb: rdb}
}

type SessionSummary struct {
	ID          string         `json:"id"`
	Topic       string         `json:"topic"`
	Type        model.TestType `json:"type"`
	Difficulty  string         `json:"difficulty"`
	Status      string         `json:"status"`
	Score       *int           `json:"score,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
}

// ListHistory returns session summaries, newest first. Results are cached
// briefly in Redis; every session mutation invalidates the cache.
func (s *HistoryService) ListHistory(ctx context.Context) ([]SessionSummary, error) {
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, historyCacheKey).Bytes(); err == nil {
			var summaries []SessionSummary
			if err := json.Unmarshal(cached, &summaries); err == nil {
				return summaries, nil
			}
		}
	}

	sessions, err := s.Repo.ListSessions()
	if err != nil {
		return nil, err
	}

	summaries := make([]SessionSummary, len(sessions))
	for i, sess := range sessions {
		summaries[i] = SessionSummary{
			ID:          sess.ID,
			Topic:       sess.Topic,
			Type:        sess.Type,
			Difficulty:  sess.Difficulty,
			Status:      sess.Status,
			Score:       sess.Score,
			CreatedAt:   sess.CreatedAt,
			CompletedAt: sess.CompletedAt,
		}
	}

	if s.rdb != nil {
		if encoded, err := json.Marshal(summaries); err == nil {
			if err := s.rdb.Set(ctx, historyCacheKey, encoded, historyCacheTTL).Err(); err != nil {
				logger.Log.Warn("failed to cache test history", zap.Error(err))
			}
		}
	}

	return summaries, nil
}

// RetakeIncorrect builds a brand-new session covering only the questions the
// source session got wrong or never answered. The source session is left
// untouched.
func (s *HistoryService) RetakeIncorrect(ctx context.Context, sessionID string) (*StartTestResponse, error) {
	source, err := s.Repo.FindSession(sessionID)
	if err != nil {
		return nil, err
	}
	if !source.Completed() {
		return nil, util.ErrSessionInProgress
	}

	questions, err := s.Repo.ListQuestions(sessionID)
	if err != nil {
		return nil, err
	}
	answers, err := s.Repo.ListAnswers(sessionID)
	if err != nil {
		return nil, err
	}

	byQuestion := make(map[string]*model.TestAnswer, len(answers))
	for i := range answers {
		byQuestion[answers[i].QuestionID] = &answers[i]
	}

	var prompts []string
	for i := range questions {
		a, ok := byQuestion[questions[i].ID]
		if !ok || needsRetake(a) {
			prompts = append(prompts, questions[i].QuestionText)
		}
	}

	if len(prompts) == 0 {
		return nil, util.ErrNothingToRetake
	}

	generated, err := s.Gen.Regenerate(ctx, source.Topic, source.Difficulty, source.Type, prompts)
	if err != nil {
		return nil, err
	}

	session, newQuestions, newAnswers, err := assembleSession(source.Topic, source.Difficulty, source.Type, generated)
	if err != nil {
		return nil, err
	}

	if err := s.Repo.CreateSessionWithQuestions(session, newQuestions, newAnswers); err != nil {
		return nil, err
	}

	monitoring.TestSessionsStarted.WithLabelValues(string(source.Type)).Inc()
	invalidateHistoryCache(ctx, s.rdb)

	return &StartTestResponse{
		Session:  session,
		Question: questionView(&newQuestions[0]),
	}, nil
}

// TopicSummary lists per-topic average scores, weakest topics first.
func (s *HistoryService) TopicSummary() ([]model.TopicAverage, error) {
	return s.Repo.TopicAverages()
}

// needsRetake marks an answer for inclusion in the retake subset: incorrect,
// unanswered, or answered without a stored verdict.
func needsRetake(a *model.TestAnswer) bool {
	if !a.Answered() {
		return true
	}
	return a.IsCorrect == nil || !*a.IsCorrect
}

func invalidateHistoryCache(ctx context.Context, rdb *redis.Client) {
	if rdb == nil {
		return
	}
	if err := rdb.Del(ctx, historyCacheKey).Err(); err != nil {
		logger.Log.Warn("failed to invalidate test history cache", zap.Error(err))
	}
}
