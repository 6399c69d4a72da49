package repository

import (
	"encoding/json"
	"errors"
	"testhub_backend/internal/model"
	"testhub_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

type TestSessionRepository struct {
	DB *gorm.DB
}

func NewTestSessionRepository(db *gorm.DB) *TestSessionRepository {
	return &TestSessionRepository{DB: db}
}

// AnswerFill is the one-shot payload written when a question is answered.
type AnswerFill struct {
	UserAnswer string
	IsCorrect  *bool
	Rubric     json.RawMessage
	Feedback   string
}

// CreateSessionWithQuestions persists a session together with its questions
// and their empty answer rows in a single transaction, so question and answer
// counts can never diverge.
func (r *TestSessionRepository) CreateSessionWithQuestions(session *model.TestSession, questions []model.TestQuestion, answers []model.TestAnswer) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(session).Error; err != nil {
			return err
		}
		for i := range questions {
			questions[i].SessionID = session.ID
			if err := tx.Create(&questions[i]).Error; err != nil {
				return err
			}
			answers[i].SessionID = session.ID
			answers[i].QuestionID = questions[i].ID
			answers[i].Sequence = questions[i].Sequence
			if err := tx.Create(&answers[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *TestSessionRepository) FindSession(id string) (*model.TestSession, error) {
	var s model.TestSession
	err := r.DB.First(&s, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *TestSessionRepository) ListSessions() ([]model.TestSession, error) {
	var ss []model.TestSession
	err := r.DB.Order("created_at desc").Find(&ss).Error
	return ss, err
}

// DeleteSession removes a session and cascades to its questions and answers
// in one transaction.
func (r *TestSessionRepository) DeleteSession(id string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&model.TestSession{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return util.ErrSessionNotFound
		}
		if err := tx.Delete(&model.TestAnswer{}, "session_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&model.TestQuestion{}, "session_id = ?", id).Error
	})
}

func (r *TestSessionRepository) FindQuestion(id string) (*model.TestQuestion, error) {
	var q model.TestQuestion
	err := r.DB.First(&q, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuestionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *TestSessionRepository) ListQuestions(sessionID string) ([]model.TestQuestion, error) {
	var qs []model.TestQuestion
	err := r.DB.Where("session_id = ?", sessionID).Order("sequence asc").Find(&qs).Error
	return qs, err
}

func (r *TestSessionRepository) FindAnswerByQuestion(questionID string) (*model.TestAnswer, error) {
	var a model.TestAnswer
	err := r.DB.First(&a, "question_id = ?", questionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuestionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *TestSessionRepository) ListAnswers(sessionID string) ([]model.TestAnswer, error) {
	var as []model.TestAnswer
	err := r.DB.Where("session_id = ?", sessionID).Order("sequence asc").Find(&as).Error
	return as, err
}

// FirstUnanswered returns the lowest-sequence question of the session whose
// answer row is still empty, or nil when every question is answered.
func (r *TestSessionRepository) FirstUnanswered(sessionID string) (*model.TestQuestion, error) {
	var q model.TestQuestion
	err := r.DB.
		Joins("JOIN test_answers ON test_answers.question_id = test_questions.id AND test_answers.deleted_at IS NULL").
		Where("test_questions.session_id = ? AND test_answers.user_answer IS NULL", sessionID).
		Order("test_questions.sequence asc").
		First(&q).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *TestSessionRepository) AnsweredCount(sessionID string) (int, error) {
	var count int64
	err := r.DB.Model(&model.TestAnswer{}).
		Where("session_id = ? AND user_answer IS NOT NULL", sessionID).
		Count(&count).Error
	return int(count), err
}

// FillAnswer writes the grading outcome for a question. The WHERE guard makes
// the write idempotent: a concurrent duplicate submission, or a submission
// racing a delete, affects zero rows and reports false.
func (r *TestSessionRepository) FillAnswer(questionID string, fill AnswerFill) (bool, error) {
	res := r.DB.Model(&model.TestAnswer{}).
		Where("question_id = ? AND user_answer IS NULL", questionID).
		Updates(map[string]interface{}{
			"user_answer": fill.UserAnswer,
			"is_correct":  fill.IsCorrect,
			"rubric":      fill.Rubric,
			"feedback":    fill.Feedback,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// FinalizeSession freezes the score. The status guard makes the write
// happen at most once per session.
func (r *TestSessionRepository) FinalizeSession(id string, score int, completedAt time.Time) (bool, error) {
	res := r.DB.Model(&model.TestSession{}).
		Where("id = ? AND status = ?", id, model.StatusInProgress).
		Updates(map[string]interface{}{
			"status":       model.StatusCompleted,
			"score":        score,
			"completed_at": completedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// TopicAverages aggregates completed sessions per topic, weakest first.
func (r *TestSessionRepository) TopicAverages() ([]model.TopicAverage, error) {
	var rows []model.TopicAverage
	err := r.DB.Model(&model.TestSession{}).
		Select("topic, AVG(score) as average_score, COUNT(*) as sessions").
		Where("status = ?", model.StatusCompleted).
		Group("topic").
		Order("average_score asc").
		Scan(&rows).Error
	return rows, err
}
