package model

import "encoding/json"

// TestQuestion is one generated question of a session. The correct answer is
// never serialized on the caller-facing path; results views reveal it
// explicitly once the session is completed.
// swagger:model TestQuestion
type TestQuestion struct {
	UUIDBase
	SessionID     string          `gorm:"index;type:varchar(36);not null" json:"sessionId"`
	Sequence      int             `gorm:"not null" json:"sequence"` // 0-based, resume order
	QuestionText  string          `gorm:"type:text;not null" json:"questionText"`
	Options       json.RawMessage `gorm:"type:json" json:"options,omitempty"` // multiple_choice only
	StarterCode   string          `gorm:"type:text" json:"starterCode,omitempty"`
	Language      string          `gorm:"size:50" json:"language,omitempty"`
	CorrectAnswer string          `gorm:"type:text;not null" json:"-"`
}

func (TestQuestion) TableName() string {
	return "test_questions"
}

// OptionList decodes the stored options payload. Nil for types without one.
func (q *TestQuestion) OptionList() []string {
	if len(q.Options) == 0 {
		return nil
	}
	var opts []string
	if err := json.Unmarshal(q.Options, &opts); err != nil {
		return nil
	}
	return opts
}
