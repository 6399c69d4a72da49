package service

import (
	"encoding/json"
	"errors"
	"testing"

	"testhub_backend/internal/model"
	"testhub_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrategyRegistry_For(t *testing.T) {
	registry := NewStrategyRegistry(&stubJudge{})

	for _, testType := range []model.TestType{
		model.TypeShortAnswer,
		model.TypeMultipleChoice,
		model.TypeCodeChallenge,
		model.TypeBehavioralSTAR,
		model.TypeBehavioralSOAR,
	} {
		s, err := registry.For(testType)
		require.NoError(t, err, testType)
		assert.Equal(t, testType, s.Type())
	}

	_, err := registry.For(model.TestType("essay"))
	assert.ErrorIs(t, err, util.ErrInvalidTestType)
}

func TestStrategy_QuestionCounts(t *testing.T) {
	registry := NewStrategyRegistry(&stubJudge{})

	counts := map[model.TestType]int{
		model.TypeShortAnswer:    5,
		model.TypeMultipleChoice: 5,
		model.TypeCodeChallenge:  1,
		model.TypeBehavioralSTAR: 5,
		model.TypeBehavioralSOAR: 5,
	}
	for testType, want := range counts {
		s, err := registry.For(testType)
		require.NoError(t, err)
		assert.Equal(t, want, s.QuestionCount(), testType)
	}
}

func TestMultipleChoiceStrategy(t *testing.T) {
	s := &multipleChoiceStrategy{}
	options, err := json.Marshal([]string{"mutex", "channel", "waitgroup"})
	require.NoError(t, err)
	q := &model.TestQuestion{
		QuestionText:  "Which primitive passes ownership of data between goroutines?",
		Options:       options,
		CorrectAnswer: "channel",
	}

	t.Run("rejects answers outside the options", func(t *testing.T) {
		assert.ErrorIs(t, s.ValidateAnswer(q, "semaphore"), util.ErrInvalidAnswer)
		assert.NoError(t, s.ValidateAnswer(q, "mutex"))
	})

	t.Run("grades by exact match", func(t *testing.T) {
		outcome, err := s.Grade(t.Context(), q, "channel")
		require.NoError(t, err)
		assert.True(t, outcome.IsCorrect)

		outcome, err = s.Grade(t.Context(), q, "mutex")
		require.NoError(t, err)
		assert.False(t, outcome.IsCorrect)
		assert.Contains(t, outcome.Feedback, "channel")
	})
}

func TestShortAnswerStrategy(t *testing.T) {
	judge := &stubJudge{evaluation: Evaluation{IsCorrect: true, Feedback: "Good."}}
	s := &shortAnswerStrategy{judge: judge}
	q := &model.TestQuestion{QuestionText: "What does the race detector find?", CorrectAnswer: "data races"}

	assert.ErrorIs(t, s.ValidateAnswer(q, "   "), util.ErrInvalidAnswer)

	outcome, err := s.Grade(t.Context(), q, "unsynchronized memory access")
	require.NoError(t, err)
	assert.True(t, outcome.IsCorrect)
	assert.Equal(t, "Good.", outcome.Feedback)
	assert.Nil(t, outcome.Rubric)
}

func TestStrategy_JudgeFailureIsGradingUnavailable(t *testing.T) {
	judge := &stubJudge{err: errors.New("upstream timeout")}
	registry := NewStrategyRegistry(judge)

	for _, testType := range []model.TestType{
		model.TypeShortAnswer,
		model.TypeCodeChallenge,
		model.TypeBehavioralSTAR,
	} {
		s, err := registry.For(testType)
		require.NoError(t, err)
		_, err = s.Grade(t.Context(), &model.TestQuestion{QuestionText: "q", CorrectAnswer: "a"}, "attempt")
		assert.ErrorIs(t, err, util.ErrGradingUnavailable, testType)
	}
}

func TestBehavioralStrategy_PassThreshold(t *testing.T) {
	rubricWith := func(score int) RubricEvaluation {
		components := make([]RubricComponentScore, 4)
		for i := range components {
			components[i] = RubricComponentScore{Component: "Action", Score: score}
		}
		return RubricEvaluation{Components: components, OverallScore: float64(score), Summary: "summary"}
	}

	tests := []struct {
		name    string
		overall int
		pass    bool
	}{
		{"above threshold passes", 61, true},
		{"at threshold fails", 60, false},
		{"below threshold fails", 30, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			judge := &stubJudge{rubric: rubricWith(tt.overall)}
			s := &behavioralStrategy{judge: judge, testType: model.TypeBehavioralSTAR}

			outcome, err := s.Grade(t.Context(), &model.TestQuestion{QuestionText: "Tell me about a time..."}, "my story")
			require.NoError(t, err)
			assert.Equal(t, tt.pass, outcome.IsCorrect)
			assert.Equal(t, "summary", outcome.Feedback)

			var stored RubricEvaluation
			require.NoError(t, json.Unmarshal(outcome.Rubric, &stored))
			assert.Equal(t, float64(tt.overall), stored.OverallScore)
			assert.Len(t, stored.Components, 4)
		})
	}
}
