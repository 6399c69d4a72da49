package service

import (
	"testing"

	"testhub_backend/internal/model"

	"github.com/stretchr/testify/assert"
)

func boolPtr(b bool) *bool { return &b }

func objectiveAnswers(verdicts ...*bool) []model.TestAnswer {
	answers := make([]model.TestAnswer, len(verdicts))
	for i, v := range verdicts {
		answers[i] = model.TestAnswer{Sequence: i, IsCorrect: v}
	}
	return answers
}

func TestSessionScore_Objective(t *testing.T) {
	tests := []struct {
		name     string
		verdicts []*bool
		want     int
	}{
		{"all correct", []*bool{boolPtr(true), boolPtr(true)}, 100},
		{"all wrong", []*bool{boolPtr(false), boolPtr(false)}, 0},
		{"three of five", []*bool{boolPtr(true), boolPtr(true), boolPtr(true), boolPtr(false), boolPtr(false)}, 60},
		{"missing verdict counts as wrong", []*bool{boolPtr(true), nil}, 50},
		{"one of three rounds to 33", []*bool{boolPtr(true), boolPtr(false), boolPtr(false)}, 33},
		{"two of three rounds to 67", []*bool{boolPtr(true), boolPtr(true), boolPtr(false)}, 67},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SessionScore(model.TypeMultipleChoice, objectiveAnswers(tt.verdicts...))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSessionScore_NoAnswers(t *testing.T) {
	assert.Equal(t, 0, SessionScore(model.TypeShortAnswer, nil))
	assert.Equal(t, 0, SessionScore(model.TypeBehavioralSTAR, nil))
}

func TestSessionScore_Behavioral(t *testing.T) {
	rubric := func(scores ...int) RubricEvaluation {
		eval := RubricEvaluation{}
		for _, s := range scores {
			eval.Components = append(eval.Components, RubricComponentScore{Component: "Situation", Score: s})
		}
		return eval
	}

	t.Run("averages rubric composites", func(t *testing.T) {
		answers := []model.TestAnswer{
			{Rubric: mustRubricJSON(t, rubric(80, 80, 80, 80))},
			{Rubric: mustRubricJSON(t, rubric(40, 40, 40, 40))},
		}
		assert.Equal(t, 60, SessionScore(model.TypeBehavioralSTAR, answers))
	})

	t.Run("missing rubric scores zero", func(t *testing.T) {
		answers := []model.TestAnswer{
			{Rubric: mustRubricJSON(t, rubric(100, 100, 100, 100))},
			{},
		}
		assert.Equal(t, 50, SessionScore(model.TypeBehavioralSOAR, answers))
	})

	t.Run("unreadable rubric scores zero", func(t *testing.T) {
		answers := []model.TestAnswer{
			{Rubric: []byte("not json")},
		}
		assert.Equal(t, 0, SessionScore(model.TypeBehavioralSTAR, answers))
	})

	t.Run("rounds the mean", func(t *testing.T) {
		answers := []model.TestAnswer{
			{Rubric: mustRubricJSON(t, rubric(70))},
			{Rubric: mustRubricJSON(t, rubric(75))},
		}
		assert.Equal(t, 73, SessionScore(model.TypeBehavioralSOAR, answers))
	})
}
