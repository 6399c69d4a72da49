package model

import "encoding/json"

// TestAnswer is created together with its TestQuestion and filled exactly
// once when the user submits. An unanswered row has UserAnswer == nil.
// swagger:model TestAnswer
type TestAnswer struct {
	UUIDBase
	SessionID  string          `gorm:"index;type:varchar(36);not null" json:"sessionId"`
	QuestionID string          `gorm:"uniqueIndex;type:varchar(36);not null" json:"questionId"`
	Sequence   int             `gorm:"not null" json:"sequence"`
	UserAnswer *string         `gorm:"type:text" json:"userAnswer,omitempty"`
	IsCorrect  *bool           `json:"isCorrect,omitempty"`
	Rubric     json.RawMessage `gorm:"type:json" json:"rubric,omitempty"` // behavioral types only
	Feedback   string          `gorm:"type:text" json:"feedback,omitempty"`
}

func (TestAnswer) TableName() string {
	return "test_answers"
}

func (a *TestAnswer) Answered() bool {
	return a.UserAnswer != nil
}
