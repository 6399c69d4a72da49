package service

import (
	"context"
	"encoding/json"
	"testhub_backend/internal/model"
	"testhub_backend/internal/repository"
	"testhub_backend/internal/util"
	"testhub_backend/pkg/logger"
	"testhub_backend/pkg/monitoring"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// SessionStore is the persistence surface the engine needs. Implemented by
// repository.TestSessionRepository.
type SessionStore interface {
	CreateSessionWithQuestions(session *model.TestSession, questions []model.TestQuestion, answers []model.TestAnswer) error
	FindSession(id string) (*model.TestSession, error)
	ListSessions() ([]model.TestSession, error)
	DeleteSession(id string) error
	FindQuestion(id string) (*model.TestQuestion, error)
	ListQuestions(sessionID string) ([]model.TestQuestion, error)
	FindAnswerByQuestion(questionID string) (*model.TestAnswer, error)
	ListAnswers(sessionID string) ([]model.TestAnswer, error)
	FirstUnanswered(sessionID string) (*model.TestQuestion, error)
	AnsweredCount(sessionID string) (int, error)
	FillAnswer(questionID string, fill repository.AnswerFill) (bool, error)
	FinalizeSession(id string, score int, completedAt time.Time) (bool, error)
	TopicAverages() ([]model.TopicAverage, error)
}

type TestHubService struct {
	Repo       SessionStore
	Gen        QuestionGenerator
	Strategies *StrategyRegistry
	Archiver   *ArchiveService
	rdb        *redis.Client
}

func NewTestHubService(repo SessionStore, gen QuestionGenerator, strategies *StrategyRegistry, archiver *ArchiveService, rdb *redis.Client) *TestHubService {
	return &TestHubService{
		Repo:       repo,
		Gen:        gen,
		Strategies: strategies,
		Archiver:   archiver,
		rdb:        rdb,
	}
}

type StartTestRequest struct {
	Topic      string         `json:"topic"`
	Difficulty string         `json:"difficulty"`
	Type       model.TestType `json:"type" binding:"required"`
}

// QuestionView is the caller-facing shape of a question; the correct answer
// is deliberately absent.
type QuestionView struct {
	ID           string   `json:"id"`
	SessionID    string   `json:"sessionId"`
	Sequence     int      `json:"sequence"`
	QuestionText string   `json:"questionText"`
	Options      []string `json:"options,omitempty"`
	StarterCode  string   `json:"starterCode,omitempty"`
	Language     string   `json:"language,omitempty"`
}

type StartTestResponse struct {
	Session  *model.TestSession `json:"session"`
	Question QuestionView       `json:"question"`
}

type ContinueResponse struct {
	Session        *model.TestSession `json:"session"`
	Question       QuestionView       `json:"question"`
	QuestionNumber int                `json:"questionNumber"`
	TotalQuestions int                `json:"totalQuestions"`
}

type SubmitAnswerRequest struct {
	QuestionID string `json:"questionId" binding:"required"`
	Answer     string `json:"answer" binding:"required"`
}

type EvaluationView struct {
	IsCorrect bool            `json:"isCorrect"`
	Feedback  string          `json:"feedback,omitempty"`
	Rubric    json.RawMessage `json:"rubric,omitempty"`
}

type SubmitAnswerResponse struct {
	Evaluation   EvaluationView `json:"evaluation"`
	NextQuestion *QuestionView  `json:"nextQuestion,omitempty"`
	Completed    bool           `json:"completed"`
	Score        *int           `json:"score,omitempty"`
}

// SessionResult joins one question with its graded answer, correct answer
// included.
type SessionResult struct {
	Question      QuestionView    `json:"question"`
	CorrectAnswer string          `json:"correctAnswer"`
	UserAnswer    *string         `json:"userAnswer,omitempty"`
	IsCorrect     *bool           `json:"isCorrect,omitempty"`
	Rubric        json.RawMessage `json:"rubric,omitempty"`
	Feedback      string          `json:"feedback,omitempty"`
}

type SessionResultsResponse struct {
	Session *model.TestSession `json:"session"`
	Results []SessionResult    `json:"results"`
}

// Start validates the request, asks the generator for the type's question
// count, and persists the session with its questions and empty answer rows
// atomically.
func (s *TestHubService) Start(ctx context.Context, req StartTestRequest) (*StartTestResponse, error) {
	strategy, err := s.Strategies.For(req.Type)
	if err != nil {
		return nil, err
	}

	topic := req.Topic
	difficulty := req.Difficulty
	if req.Type.Behavioral() {
		if topic == "" {
			topic = model.BehavioralTopic
		}
		difficulty = model.DifficultyNA
	} else {
		if topic == "" {
			return nil, util.ErrTopicRequired
		}
		if difficulty == "" {
			difficulty = model.DifficultyMid
		}
	}

	generated, err := s.Gen.Generate(ctx, topic, difficulty, req.Type, strategy.QuestionCount())
	if err != nil {
		return nil, err
	}

	session, questions, answers, err := assembleSession(topic, difficulty, req.Type, generated)
	if err != nil {
		return nil, err
	}

	if err := s.Repo.CreateSessionWithQuestions(session, questions, answers); err != nil {
		return nil, err
	}

	monitoring.TestSessionsStarted.WithLabelValues(string(req.Type)).Inc()
	invalidateHistoryCache(ctx, s.rdb)

	return &StartTestResponse{
		Session:  session,
		Question: questionView(&questions[0]),
	}, nil
}

// Continue resumes an in-progress session at its current question.
func (s *TestHubService) Continue(ctx context.Context, sessionID string) (*ContinueResponse, error) {
	session, err := s.Repo.FindSession(sessionID)
	if err != nil {
		return nil, err
	}
	if session.Completed() {
		return nil, util.ErrSessionCompleted
	}

	current, err := s.Repo.FirstUnanswered(sessionID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, util.ErrSessionCompleted
	}

	questions, err := s.Repo.ListQuestions(sessionID)
	if err != nil {
		return nil, err
	}
	answered, err := s.Repo.AnsweredCount(sessionID)
	if err != nil {
		return nil, err
	}

	return &ContinueResponse{
		Session:        session,
		Question:       questionView(current),
		QuestionNumber: answered + 1,
		TotalQuestions: len(questions),
	}, nil
}

// Submit grades one answer and advances the session, finalizing it when the
// last answer lands. A grading failure writes nothing, so the same submit can
// safely be retried.
func (s *TestHubService) Submit(ctx context.Context, req SubmitAnswerRequest) (*SubmitAnswerResponse, error) {
	question, err := s.Repo.FindQuestion(req.QuestionID)
	if err != nil {
		return nil, err
	}

	session, err := s.Repo.FindSession(question.SessionID)
	if err != nil {
		return nil, err
	}
	if session.Completed() {
		return nil, util.ErrSessionCompleted
	}

	answer, err := s.Repo.FindAnswerByQuestion(question.ID)
	if err != nil {
		return nil, err
	}
	if answer.Answered() {
		return nil, util.ErrAlreadyAnswered
	}

	strategy, err := s.Strategies.For(session.Type)
	if err != nil {
		return nil, err
	}
	if err := strategy.ValidateAnswer(question, req.Answer); err != nil {
		return nil, err
	}

	outcome, err := strategy.Grade(ctx, question, req.Answer)
	if err != nil {
		monitoring.GradingFailures.Inc()
		return nil, err
	}

	isCorrect := outcome.IsCorrect
	filled, err := s.Repo.FillAnswer(question.ID, repository.AnswerFill{
		UserAnswer: req.Answer,
		IsCorrect:  &isCorrect,
		Rubric:     outcome.Rubric,
		Feedback:   outcome.Feedback,
	})
	if err != nil {
		return nil, err
	}
	if !filled {
		// Lost the race against a duplicate submission (or the session was
		// deleted underneath us); either way nothing was written here.
		return nil, util.ErrAlreadyAnswered
	}

	resp := &SubmitAnswerResponse{
		Evaluation: EvaluationView{
			IsCorrect: outcome.IsCorrect,
			Feedback:  outcome.Feedback,
			Rubric:    outcome.Rubric,
		},
	}

	next, err := s.Repo.FirstUnanswered(session.ID)
	if err != nil {
		return nil, err
	}
	if next != nil {
		view := questionView(next)
		resp.NextQuestion = &view
		return resp, nil
	}

	score, err := s.finalize(ctx, session)
	if err != nil {
		return nil, err
	}
	resp.Completed = true
	resp.Score = &score
	return resp, nil
}

func (s *TestHubService) finalize(ctx context.Context, session *model.TestSession) (int, error) {
	answers, err := s.Repo.ListAnswers(session.ID)
	if err != nil {
		return 0, err
	}

	score := SessionScore(session.Type, answers)
	completedAt := time.Now()

	frozen, err := s.Repo.FinalizeSession(session.ID, score, completedAt)
	if err != nil {
		return 0, err
	}
	if !frozen {
		// Another submission finalized first; the stored score wins.
		stored, err := s.Repo.FindSession(session.ID)
		if err != nil {
			return 0, err
		}
		if stored.Score != nil {
			return *stored.Score, nil
		}
		return score, nil
	}

	session.Status = model.StatusCompleted
	session.Score = &score
	session.CompletedAt = &completedAt

	monitoring.TestSessionsCompleted.WithLabelValues(string(session.Type)).Inc()
	invalidateHistoryCache(ctx, s.rdb)

	if s.Archiver != nil {
		questions, qErr := s.Repo.ListQuestions(session.ID)
		if qErr != nil {
			logger.Log.Error("failed to load questions for archive", zap.Error(qErr))
		} else {
			snapshot := *session
			go s.Archiver.ArchiveSession(context.Background(), &snapshot, questions, answers)
		}
	}

	return score, nil
}

// GetResults returns the full transcript of a completed session, correct
// answers revealed. In-progress sessions are refused so reference answers
// never leak early.
func (s *TestHubService) GetResults(sessionID string) (*SessionResultsResponse, error) {
	session, err := s.Repo.FindSession(sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Completed() {
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

	results := make([]SessionResult, 0, len(questions))
	for i := range questions {
		q := &questions[i]
		result := SessionResult{
			Question:      questionView(q),
			CorrectAnswer: q.CorrectAnswer,
		}
		if a, ok := byQuestion[q.ID]; ok {
			result.UserAnswer = a.UserAnswer
			result.IsCorrect = a.IsCorrect
			result.Rubric = a.Rubric
			result.Feedback = a.Feedback
		}
		results = append(results, result)
	}

	return &SessionResultsResponse{Session: session, Results: results}, nil
}

// Delete removes a session and everything it owns.
func (s *TestHubService) Delete(ctx context.Context, sessionID string) error {
	if err := s.Repo.DeleteSession(sessionID); err != nil {
		return err
	}
	invalidateHistoryCache(ctx, s.rdb)
	return nil
}

func questionView(q *model.TestQuestion) QuestionView {
	return QuestionView{
		ID:           q.ID,
		SessionID:    q.SessionID,
		Sequence:     q.Sequence,
		QuestionText: q.QuestionText,
		Options:      q.OptionList(),
		StarterCode:  q.StarterCode,
		Language:     q.Language,
	}
}

// assembleSession turns generator output into a session with its question
// and answer rows, paired one-to-one.
func assembleSession(topic, difficulty string, testType model.TestType, generated []GeneratedQuestion) (*model.TestSession, []model.TestQuestion, []model.TestAnswer, error) {
	session := &model.TestSession{
		Topic:      topic,
		Difficulty: difficulty,
		Type:       testType,
		Status:     model.StatusInProgress,
	}

	questions := make([]model.TestQuestion, len(generated))
	answers := make([]model.TestAnswer, len(generated))
	for i, g := range generated {
		var options json.RawMessage
		if len(g.Options) > 0 {
			encoded, err := json.Marshal(g.Options)
			if err != nil {
				return nil, nil, nil, err
			}
			options = encoded
		}
		questions[i] = model.TestQuestion{
			Sequence:      i,
			QuestionText:  g.Question,
			Options:       options,
			StarterCode:   g.StarterCode,
			Language:      g.Language,
			CorrectAnswer: g.Answer,
		}
		answers[i] = model.TestAnswer{Sequence: i}
	}

	return session, questions, answers, nil
}
