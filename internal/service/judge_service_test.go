package service

import (
	"testing"

	"testhub_backend/internal/model"
	"testhub_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAIJudge_Evaluate(t *testing.T) {
	payload := `{"is_correct":true,"feedback":"Covers the key constraint.","correct_answer":"data races"}`
	judge := NewAIJudge(newChatStub(t, payload))

	eval, err := judge.Evaluate(t.Context(), "What does the race detector find?", "data races", "unsynchronized access")
	require.NoError(t, err)
	assert.True(t, eval.IsCorrect)
	assert.Equal(t, "Covers the key constraint.", eval.Feedback)
	assert.Equal(t, "data races", eval.CorrectAnswer)
}

func TestAIJudge_EvaluateRubric(t *testing.T) {
	payload := `{
		"situation_feedback": {"score": 80, "feedback": "Clear context."},
		"task_feedback": {"score": 70, "feedback": "Role could be sharper."},
		"action_feedback": {"score": 90, "feedback": "Strong, specific steps."},
		"result_feedback": {"score": 60, "feedback": "Quantify the outcome."},
		"final_summary": "Solid answer overall."
	}`
	judge := NewAIJudge(newChatStub(t, payload))

	eval, err := judge.EvaluateRubric(t.Context(), "Tell me about a time...", "my story", model.TypeBehavioralSTAR)
	require.NoError(t, err)
	require.Len(t, eval.Components, 4)

	assert.Equal(t, "Situation", eval.Components[0].Component)
	assert.Equal(t, 80, eval.Components[0].Score)
	assert.Equal(t, "Task", eval.Components[1].Component)
	assert.Equal(t, "Action", eval.Components[2].Component)
	assert.Equal(t, "Result", eval.Components[3].Component)

	assert.Equal(t, float64(75), eval.OverallScore)
	assert.Equal(t, "Solid answer overall.", eval.Summary)
}

func TestAIJudge_EvaluateRubric_SOARComponents(t *testing.T) {
	payload := `{
		"situation_feedback": {"score": 50, "feedback": ""},
		"obstacle_feedback": {"score": 50, "feedback": ""},
		"action_feedback": {"score": 50, "feedback": ""},
		"result_feedback": {"score": 50, "feedback": ""},
		"final_summary": "ok"
	}`
	judge := NewAIJudge(newChatStub(t, payload))

	eval, err := judge.EvaluateRubric(t.Context(), "q", "a", model.TypeBehavioralSOAR)
	require.NoError(t, err)
	require.Len(t, eval.Components, 4)
	assert.Equal(t, "Obstacle", eval.Components[1].Component)
}

func TestAIJudge_EvaluateRubric_ClampsAndFillsGaps(t *testing.T) {
	// One component over range, one under, one missing entirely.
	payload := `{
		"situation_feedback": {"score": 150, "feedback": "over"},
		"task_feedback": {"score": -20, "feedback": "under"},
		"action_feedback": {"score": 50, "feedback": "ok"}
	}`
	judge := NewAIJudge(newChatStub(t, payload))

	eval, err := judge.EvaluateRubric(t.Context(), "q", "a", model.TypeBehavioralSTAR)
	require.NoError(t, err)
	require.Len(t, eval.Components, 4)
	assert.Equal(t, 100, eval.Components[0].Score)
	assert.Equal(t, 0, eval.Components[1].Score)
	assert.Equal(t, 50, eval.Components[2].Score)
	assert.Equal(t, 0, eval.Components[3].Score)
	assert.Equal(t, 37.5, eval.OverallScore)
	assert.Empty(t, eval.Summary)
}

func TestAIJudge_EvaluateRubric_UnknownFramework(t *testing.T) {
	judge := NewAIJudge(nil)

	_, err := judge.EvaluateRubric(t.Context(), "q", "a", model.TypeShortAnswer)
	assert.ErrorIs(t, err, util.ErrInvalidTestType)
}

func TestRubricComposite(t *testing.T) {
	assert.Equal(t, float64(0), rubricComposite(nil))
	assert.Equal(t, float64(60), rubricComposite([]RubricComponentScore{
		{Score: 40}, {Score: 80},
	}))
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, clampScore(-5))
	assert.Equal(t, 42, clampScore(42))
	assert.Equal(t, 100, clampScore(101))
}
