package model

import "time"

// TestType is the closed set of supported assessment types.
type TestType string

const (
	TypeShortAnswer    TestType = "short_answer"
	TypeMultipleChoice TestType = "multiple_choice"
	TypeCodeChallenge  TestType = "code_challenge"
	TypeBehavioralSTAR TestType = "behavioral_star"
	TypeBehavioralSOAR TestType = "behavioral_soar"
)

func (t TestType) Valid() bool {
	switch t {
	case TypeShortAnswer, TypeMultipleChoice, TypeCodeChallenge, TypeBehavioralSTAR, TypeBehavioralSOAR:
		return true
	}
	return false
}

// Behavioral reports whether the type is graded against a narrative rubric
// rather than a reference answer.
func (t TestType) Behavioral() bool {
	return t == TypeBehavioralSTAR || t == TypeBehavioralSOAR
}

const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Behavioral sessions carry a fixed topic and a sentinel difficulty.
const (
	BehavioralTopic = "Behavioral"
	DifficultyNA    = "N/A"
)

// Canonical difficulty labels offered by the client. The engine stores the
// label as-is and does not reject unknown values.
const (
	DifficultyJunior = "Junior"
	DifficultyMid    = "Mid-Level"
	DifficultySenior = "Senior"
)

// swagger:model TestSession
type TestSession struct {
	UUIDBase
	Topic       string     `gorm:"size:255;not null" json:"topic"`
	Difficulty  string     `gorm:"size:50;not null" json:"difficulty"`
	Type        TestType   `gorm:"size:50;not null;index" json:"type"`
	Status      string     `gorm:"size:20;default:'in_progress'" json:"status"`
	Score       *int       `json:"score,omitempty"` // set exactly once, at completion
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

func (TestSession) TableName() string {
	return "test_sessions"
}

func (s *TestSession) Completed() bool {
	return s.Status == StatusCompleted
}

// TopicAverage is one row of the guidance summary: mean score across the
// completed sessions of a topic.
type TopicAverage struct {
	Topic        string  `json:"topic"`
	AverageScore float64 `json:"averageScore"`
	Sessions     int     `json:"sessions"`
}
