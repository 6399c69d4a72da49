package service

import (
	"encoding/json"
	"math"
	"testhub_backend/internal/model"
)

// SessionScore converts a fully answered session into its frozen percentage
// score. Objective types score by fraction correct; behavioral types average
// the per-question rubric composites.
func SessionScore(testType model.TestType, answers []model.TestAnswer) int {
	if len(answers) == 0 {
		return 0
	}

	var score float64
	if testType.Behavioral() {
		sum := 0.0
		for i := range answers {
			sum += answerComposite(&answers[i])
		}
		score = sum / float64(len(answers))
	} else {
		correct := 0
		for i := range answers {
			if answers[i].IsCorrect != nil && *answers[i].IsCorrect {
				correct++
			}
		}
		score = 100 * float64(correct) / float64(len(answers))
	}

	rounded := int(math.Round(score))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}

// answerComposite is the mean of an answer's rubric sub-scores, 0 when the
// rubric is missing or unreadable.
func answerComposite(a *model.TestAnswer) float64 {
	if len(a.Rubric) == 0 {
		return 0
	}
	var eval RubricEvaluation
	if err := json.Unmarshal(a.Rubric, &eval); err != nil {
		return 0
	}
	return rubricComposite(eval.Components)
}
