package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testhub_backend/internal/model"
	"testhub_backend/internal/util"
)

// Evaluation is the judge's verdict for an objectively graded answer.
type Evaluation struct {
	IsCorrect     bool   `json:"is_correct"`
	Feedback      string `json:"feedback"`
	CorrectAnswer string `json:"correct_answer,omitempty"`
}

// RubricComponentScore is one component of a behavioral rubric.
type RubricComponentScore struct {
	Component string `json:"component"`
	Score     int    `json:"score"`
	Feedback  string `json:"feedback"`
}

// RubricEvaluation is the judge's structured verdict for a narrative answer.
type RubricEvaluation struct {
	Components   []RubricComponentScore `json:"components"`
	OverallScore float64                `json:"overallScore"`
	Summary      string                 `json:"summary"`
}

// AnswerJudge grades answers. Implementations are external collaborators.
type AnswerJudge interface {
	Evaluate(ctx context.Context, questionText, referenceAnswer, userAnswer string) (*Evaluation, error)
	EvaluateRubric(ctx context.Context, questionText, userAnswer string, framework model.TestType) (*RubricEvaluation, error)
}

const evaluatorSystemPrompt = `You are a meticulous and fair technical interview evaluator. Your task is to evaluate a user's answer based on a provided question and a model answer.

Evaluation steps:
1. Analyze the Question: carefully re-read the original question and identify all its key constraints.
2. Analyze the User's Answer: compare it against those constraints.
3. Determine Correctness: the answer is correct if it satisfies all key constraints, even if the wording differs from the model answer.
4. Provide Feedback: write brief, constructive feedback explaining why the answer is correct or incorrect.
5. Verify the Model Answer: validate the provided model answer against the question's constraints, and correct it if it is flawed.

Return ONLY valid JSON with three keys:
- "is_correct": boolean
- "feedback": string
- "correct_answer": string (the verified, truly correct answer)`

type behavioralFramework struct {
	Name       string
	Components []string
}

var behavioralFrameworks = map[model.TestType]behavioralFramework{
	model.TypeBehavioralSTAR: {
		Name:       "STAR",
		Components: []string{"Situation", "Task", "Action", "Result"},
	},
	model.TypeBehavioralSOAR: {
		Name:       "SOAR",
		Components: []string{"Situation", "Obstacle", "Action", "Result"},
	},
}

// AIJudge implements AnswerJudge on top of the chat client.
type AIJudge struct {
	AI *AIService
}

func NewAIJudge(ai *AIService) *AIJudge {
	return &AIJudge{AI: ai}
}

func (j *AIJudge) Evaluate(ctx context.Context, questionText, referenceAnswer, userAnswer string) (*Evaluation, error) {
	user := fmt.Sprintf("Question: %q\nModel Answer: %q\nUser's Answer: %q\n\nPlease evaluate the user's answer following the steps precisely.",
		questionText, referenceAnswer, userAnswer)

	raw, err := j.AI.ChatJSON(ctx, evaluatorSystemPrompt, user)
	if err != nil {
		return nil, err
	}

	var eval Evaluation
	if err := json.Unmarshal(raw, &eval); err != nil {
		return nil, fmt.Errorf("judge returned invalid JSON: %w", err)
	}
	return &eval, nil
}

func (j *AIJudge) EvaluateRubric(ctx context.Context, questionText, userAnswer string, framework model.TestType) (*RubricEvaluation, error) {
	info, ok := behavioralFrameworks[framework]
	if !ok {
		return nil, util.ErrInvalidTestType
	}

	keys := make([]string, len(info.Components))
	for i, c := range info.Components {
		keys[i] = fmt.Sprintf("%q: { \"score\": number, \"feedback\": \"string\" }", strings.ToLower(c)+"_feedback")
	}

	system := fmt.Sprintf(`You are an expert interview coach specializing in the %s method (%s).
Evaluate the user's answer, providing a score (0-100) and concise, constructive feedback for each of the four components.
Return ONLY valid JSON with the following keys:
%s,
"final_summary": "A brief, overall summary of the user's answer."`,
		info.Name, strings.Join(info.Components, ", "), strings.Join(keys, ",\n"))

	user := fmt.Sprintf("Question: %q\nUser's Answer: %q\n\nPlease evaluate my answer using the %s method and provide structured feedback.",
		questionText, userAnswer, info.Name)

	raw, err := j.AI.ChatJSON(ctx, system, user)
	if err != nil {
		return nil, err
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("judge returned invalid JSON: %w", err)
	}

	eval := &RubricEvaluation{}
	for _, component := range info.Components {
		key := strings.ToLower(component) + "_feedback"
		var cs struct {
			Score    float64 `json:"score"`
			Feedback string  `json:"feedback"`
		}
		if part, found := payload[key]; found {
			if err := json.Unmarshal(part, &cs); err != nil {
				return nil, fmt.Errorf("judge returned an invalid %s component: %w", component, err)
			}
		}
		eval.Components = append(eval.Components, RubricComponentScore{
			Component: component,
			Score:     clampScore(int(cs.Score)),
			Feedback:  cs.Feedback,
		})
	}

	var summary string
	if part, found := payload["final_summary"]; found {
		_ = json.Unmarshal(part, &summary)
	}
	eval.Summary = summary

	// The composite is computed here rather than trusted from the model.
	eval.OverallScore = rubricComposite(eval.Components)

	return eval, nil
}

func rubricComposite(components []RubricComponentScore) float64 {
	if len(components) == 0 {
		return 0
	}
	sum := 0
	for _, c := range components {
		sum += c.Score
	}
	return float64(sum) / float64(len(components))
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
