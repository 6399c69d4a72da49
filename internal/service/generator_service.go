package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"testhub_backend/internal/model"
	"testhub_backend/internal/util"
)

// GeneratedQuestion is the generator's output for one question. The reference
// answer is stored server-side and withheld from callers.
type GeneratedQuestion struct {
	Question    string   `json:"question"`
	Options     []string `json:"options,omitempty"`
	Answer      string   `json:"answer"`
	StarterCode string   `json:"starter_code,omitempty"`
	Language    string   `json:"language,omitempty"`
}

// QuestionGenerator produces question content for a session. Implementations
// are external collaborators; the engine only consumes the contract.
type QuestionGenerator interface {
	Generate(ctx context.Context, topic, difficulty string, testType model.TestType, count int) ([]GeneratedQuestion, error)
	// Regenerate produces fresh questions covering the same concepts as the
	// given prompts, one output per prompt, for retake sessions.
	Regenerate(ctx context.Context, topic, difficulty string, testType model.TestType, prompts []string) ([]GeneratedQuestion, error)
	PromptMatrix() map[model.TestType]string
}

var promptMatrix = map[model.TestType]string{
	model.TypeMultipleChoice: `You are a senior software engineer creating a technical quiz.
Generate a multiple-choice question to test a candidate's understanding of {topic} at a {difficulty} level.
Provide a clear question, four distinct options (one correct), and identify the correct answer.
Return ONLY valid JSON with keys: "question", "options" (an array of 4 strings), and "answer" (the correct string from the options).`,

	model.TypeShortAnswer: `You are a technical interviewer.
Generate a short-answer question to test a candidate's conceptual understanding of {topic} at a {difficulty} level.
The question should require a concise, text-based answer.
Provide the question and a model correct answer.
Return ONLY valid JSON with keys: "question" and "answer".`,

	model.TypeCodeChallenge: `You are a senior software engineer conducting a technical interview.
Generate a code challenge to test a candidate's practical application of {topic} at a {difficulty} level.
Provide a clear problem description, a minimal starter snippet the candidate completes, and the optimal solution.
Return ONLY valid JSON with keys: "question" (the full problem description), "starter_code" (the starter snippet), "language" (the snippet's language), and "answer" (the full solution as a string).
The "answer" and "starter_code" fields must contain ONLY raw code, with no markdown formatting or code fences.`,
}

const regeneratePrompt = `You are a senior technical interviewer preparing a retake exercise.
Given a previously asked question, produce a NEW question that tests the same concept at the same level, but is not a verbatim copy.
Return ONLY valid JSON in the same shape as the original question type.`

// Behavioral questions come from a fixed bank; no model round-trip needed.
var behavioralQuestionBank = []string{
	"Tell me about a time you had to work with a difficult colleague.",
	"Describe a time you had to learn a new technology quickly.",
	"Tell me about a time you disagreed with a manager or a technical lead.",
	"Describe a project you are particularly proud of and explain your role in it.",
	"Tell me about a time you failed or made a mistake at work.",
	"Describe a time you had to handle a tight deadline or high-pressure situation.",
	"How do you handle constructive criticism?",
	"Tell me about a time you had to persuade someone to see your point of view.",
}

// AIGenerator implements QuestionGenerator on top of the chat client.
type AIGenerator struct {
	AI *AIService
}

func NewAIGenerator(ai *AIService) *AIGenerator {
	return &AIGenerator{AI: ai}
}

func (g *AIGenerator) Generate(ctx context.Context, topic, difficulty string, testType model.TestType, count int) ([]GeneratedQuestion, error) {
	if testType.Behavioral() {
		return behavioralQuestions(count), nil
	}

	template, ok := promptMatrix[testType]
	if !ok {
		return nil, util.ErrInvalidTestType
	}

	system := strings.ReplaceAll(template, "{topic}", topic)
	system = strings.ReplaceAll(system, "{difficulty}", difficulty)

	questions := make([]GeneratedQuestion, 0, count)
	for i := 0; i < count; i++ {
		raw, err := g.AI.ChatJSON(ctx, system, "Please generate one question.")
		if err != nil {
			return nil, fmt.Errorf("question generation failed: %w", err)
		}
		q, err := decodeGenerated(raw, testType)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}

	return questions, nil
}

func (g *AIGenerator) Regenerate(ctx context.Context, topic, difficulty string, testType model.TestType, prompts []string) ([]GeneratedQuestion, error) {
	if testType.Behavioral() {
		// The bank is canned; a retake simply asks the same prompts again.
		questions := make([]GeneratedQuestion, len(prompts))
		for i, p := range prompts {
			questions[i] = GeneratedQuestion{Question: p, Answer: model.DifficultyNA}
		}
		return questions, nil
	}

	template, ok := promptMatrix[testType]
	if !ok {
		return nil, util.ErrInvalidTestType
	}

	system := strings.ReplaceAll(template, "{topic}", topic)
	system = strings.ReplaceAll(system, "{difficulty}", difficulty)
	system = system + "\n\n" + regeneratePrompt

	questions := make([]GeneratedQuestion, 0, len(prompts))
	for _, prompt := range prompts {
		user := fmt.Sprintf("The original question was:\n%q\nPlease generate one new question covering the same concept.", prompt)
		raw, err := g.AI.ChatJSON(ctx, system, user)
		if err != nil {
			return nil, fmt.Errorf("question regeneration failed: %w", err)
		}
		q, err := decodeGenerated(raw, testType)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}

	return questions, nil
}

func (g *AIGenerator) PromptMatrix() map[model.TestType]string {
	matrix := make(map[model.TestType]string, len(promptMatrix))
	for k, v := range promptMatrix {
		matrix[k] = v
	}
	return matrix
}

func behavioralQuestions(count int) []GeneratedQuestion {
	questions := make([]GeneratedQuestion, count)
	for i := range questions {
		questions[i] = GeneratedQuestion{
			Question: behavioralQuestionBank[rand.Intn(len(behavioralQuestionBank))],
			Answer:   model.DifficultyNA,
		}
	}
	return questions
}

func decodeGenerated(raw json.RawMessage, testType model.TestType) (*GeneratedQuestion, error) {
	var q GeneratedQuestion
	if err := json.Unmarshal(raw, &q); err != nil {
		return nil, fmt.Errorf("generator returned invalid JSON: %w", err)
	}
	if q.Question == "" || q.Answer == "" {
		return nil, fmt.Errorf("generator returned an incomplete question")
	}
	if testType == model.TypeMultipleChoice {
		if len(q.Options) < 2 {
			return nil, fmt.Errorf("generator returned %d options, need at least 2", len(q.Options))
		}
		found := false
		for _, o := range q.Options {
			if o == q.Answer {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("generator answer is not among the options")
		}
	}
	return &q, nil
}
