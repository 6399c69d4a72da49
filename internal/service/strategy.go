package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testhub_backend/internal/model"
	"testhub_backend/internal/util"
)

// GradeOutcome is the strategy's verdict, written to the answer row exactly
// once. Rubric is nil for objective types.
type GradeOutcome struct {
	IsCorrect bool
	Feedback  string
	Rubric    json.RawMessage
}

// QuestionStrategy bundles the per-type behavior: how many questions a
// session gets, what an acceptable answer looks like, and how it is graded.
// Lifecycle code never branches on the type string; it dispatches here.
type QuestionStrategy interface {
	Type() model.TestType
	QuestionCount() int
	ValidateAnswer(q *model.TestQuestion, answer string) error
	Grade(ctx context.Context, q *model.TestQuestion, answer string) (*GradeOutcome, error)
}

// A behavioral composite above this counts as a pass, which is what retake
// selection keys on.
const behavioralPassScore = 60

type StrategyRegistry struct {
	strategies map[model.TestType]QuestionStrategy
}

func NewStrategyRegistry(judge AnswerJudge) *StrategyRegistry {
	r := &StrategyRegistry{strategies: make(map[model.TestType]QuestionStrategy)}
	r.register(&shortAnswerStrategy{judge: judge})
	r.register(&multipleChoiceStrategy{})
	r.register(&codeChallengeStrategy{judge: judge})
	r.register(&behavioralStrategy{judge: judge, testType: model.TypeBehavioralSTAR})
	r.register(&behavioralStrategy{judge: judge, testType: model.TypeBehavioralSOAR})
	return r
}

func (r *StrategyRegistry) register(s QuestionStrategy) {
	r.strategies[s.Type()] = s
}

func (r *StrategyRegistry) For(t model.TestType) (QuestionStrategy, error) {
	s, ok := r.strategies[t]
	if !ok {
		return nil, util.ErrInvalidTestType
	}
	return s, nil
}

// short_answer: free text, judged against the reference answer.

type shortAnswerStrategy struct {
	judge AnswerJudge
}

func (s *shortAnswerStrategy) Type() model.TestType { return model.TypeShortAnswer }
func (s *shortAnswerStrategy) QuestionCount() int   { return 5 }

func (s *shortAnswerStrategy) ValidateAnswer(_ *model.TestQuestion, answer string) error {
	if strings.TrimSpace(answer) == "" {
		return util.ErrInvalidAnswer
	}
	return nil
}

func (s *shortAnswerStrategy) Grade(ctx context.Context, q *model.TestQuestion, answer string) (*GradeOutcome, error) {
	eval, err := s.judge.Evaluate(ctx, q.QuestionText, q.CorrectAnswer, answer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrGradingUnavailable, err)
	}
	return &GradeOutcome{IsCorrect: eval.IsCorrect, Feedback: eval.Feedback}, nil
}

// multiple_choice: exactly one of the stored options, graded locally by
// exact match.

type multipleChoiceStrategy struct{}

func (s *multipleChoiceStrategy) Type() model.TestType { return model.TypeMultipleChoice }
func (s *multipleChoiceStrategy) QuestionCount() int   { return 5 }

func (s *multipleChoiceStrategy) ValidateAnswer(q *model.TestQuestion, answer string) error {
	for _, option := range q.OptionList() {
		if option == answer {
			return nil
		}
	}
	return util.ErrInvalidAnswer
}

func (s *multipleChoiceStrategy) Grade(_ context.Context, q *model.TestQuestion, answer string) (*GradeOutcome, error) {
	if answer == q.CorrectAnswer {
		return &GradeOutcome{IsCorrect: true, Feedback: "Correct."}, nil
	}
	return &GradeOutcome{
		IsCorrect: false,
		Feedback:  fmt.Sprintf("Incorrect. The correct answer is: %s", q.CorrectAnswer),
	}, nil
}

// code_challenge: source text, delegated to the judge. The engine never
// executes submitted code.

type codeChallengeStrategy struct {
	judge AnswerJudge
}

func (s *codeChallengeStrategy) Type() model.TestType { return model.TypeCodeChallenge }
func (s *codeChallengeStrategy) QuestionCount() int   { return 1 }

func (s *codeChallengeStrategy) ValidateAnswer(_ *model.TestQuestion, answer string) error {
	if strings.TrimSpace(answer) == "" {
		return util.ErrInvalidAnswer
	}
	return nil
}

func (s *codeChallengeStrategy) Grade(ctx context.Context, q *model.TestQuestion, answer string) (*GradeOutcome, error) {
	eval, err := s.judge.Evaluate(ctx, q.QuestionText, q.CorrectAnswer, answer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrGradingUnavailable, err)
	}
	return &GradeOutcome{IsCorrect: eval.IsCorrect, Feedback: eval.Feedback}, nil
}

// behavioral_star / behavioral_soar: narrative text scored per-component
// against the framework rubric.

type behavioralStrategy struct {
	judge    AnswerJudge
	testType model.TestType
}

func (s *behavioralStrategy) Type() model.TestType { return s.testType }
func (s *behavioralStrategy) QuestionCount() int   { return 5 }

func (s *behavioralStrategy) ValidateAnswer(_ *model.TestQuestion, answer string) error {
	if strings.TrimSpace(answer) == "" {
		return util.ErrInvalidAnswer
	}
	return nil
}

func (s *behavioralStrategy) Grade(ctx context.Context, q *model.TestQuestion, answer string) (*GradeOutcome, error) {
	eval, err := s.judge.EvaluateRubric(ctx, q.QuestionText, answer, s.testType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrGradingUnavailable, err)
	}

	rubric, err := json.Marshal(eval)
	if err != nil {
		return nil, err
	}

	return &GradeOutcome{
		IsCorrect: eval.OverallScore > behavioralPassScore,
		Feedback:  eval.Summary,
		Rubric:    rubric,
	}, nil
}
