package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"testhub_backend/internal/model"
	"testhub_backend/internal/repository"
	"testhub_backend/internal/util"
	"testhub_backend/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

// fakeStore is an in-memory SessionStore with the same guard semantics as the
// real repository: answer fills and finalization are write-once.
type fakeStore struct {
	mu        sync.Mutex
	clock     time.Time
	sessions  map[string]*model.TestSession
	questions map[string]*model.TestQuestion
	answers   map[string]*model.TestAnswer // keyed by question ID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		clock:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		sessions:  make(map[string]*model.TestSession),
		questions: make(map[string]*model.TestQuestion),
		answers:   make(map[string]*model.TestAnswer),
	}
}

func (f *fakeStore) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeStore) CreateSessionWithQuestions(session *model.TestSession, questions []model.TestQuestion, answers []model.TestAnswer) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(questions) != len(answers) {
		return fmt.Errorf("question/answer count mismatch: %d vs %d", len(questions), len(answers))
	}

	session.ID = uuid.New().String()
	session.CreatedAt = f.tick()
	f.sessions[session.ID] = session

	for i := range questions {
		questions[i].ID = uuid.New().String()
		questions[i].SessionID = session.ID
		q := questions[i]
		f.questions[q.ID] = &q

		answers[i].ID = uuid.New().String()
		answers[i].SessionID = session.ID
		answers[i].QuestionID = q.ID
		answers[i].Sequence = q.Sequence
		a := answers[i]
		f.answers[q.ID] = &a
	}
	return nil
}

func (f *fakeStore) FindSession(id string) (*model.TestSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, util.ErrSessionNotFound
	}
	copied := *s
	return &copied, nil
}

func (f *fakeStore) ListSessions() ([]model.TestSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.TestSession, 0, len(f.sessions))
	for _, s := range f.sessions {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) DeleteSession(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[id]; !ok {
		return util.ErrSessionNotFound
	}
	delete(f.sessions, id)
	for qid, q := range f.questions {
		if q.SessionID == id {
			delete(f.questions, qid)
			delete(f.answers, qid)
		}
	}
	return nil
}

func (f *fakeStore) FindQuestion(id string) (*model.TestQuestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.questions[id]
	if !ok {
		return nil, util.ErrQuestionNotFound
	}
	copied := *q
	return &copied, nil
}

func (f *fakeStore) ListQuestions(sessionID string) ([]model.TestQuestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.TestQuestion
	for _, q := range f.questions {
		if q.SessionID == sessionID {
			out = append(out, *q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (f *fakeStore) FindAnswerByQuestion(questionID string) (*model.TestAnswer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.answers[questionID]
	if !ok {
		return nil, util.ErrQuestionNotFound
	}
	copied := *a
	return &copied, nil
}

func (f *fakeStore) ListAnswers(sessionID string) ([]model.TestAnswer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.TestAnswer
	for _, a := range f.answers {
		if a.SessionID == sessionID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (f *fakeStore) FirstUnanswered(sessionID string) (*model.TestQuestion, error) {
	questions, _ := f.ListQuestions(sessionID)
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range questions {
		if a, ok := f.answers[questions[i].ID]; ok && !a.Answered() {
			copied := questions[i]
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) AnsweredCount(sessionID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, a := range f.answers {
		if a.SessionID == sessionID && a.Answered() {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) FillAnswer(questionID string, fill repository.AnswerFill) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.answers[questionID]
	if !ok || a.Answered() {
		return false, nil
	}
	answer := fill.UserAnswer
	a.UserAnswer = &answer
	a.IsCorrect = fill.IsCorrect
	a.Rubric = fill.Rubric
	a.Feedback = fill.Feedback
	return true, nil
}

func (f *fakeStore) FinalizeSession(id string, score int, completedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok || s.Status != model.StatusInProgress {
		return false, nil
	}
	s.Status = model.StatusCompleted
	s.Score = &score
	s.CompletedAt = &completedAt
	return true, nil
}

func (f *fakeStore) TopicAverages() ([]model.TopicAverage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, s := range f.sessions {
		if s.Status != model.StatusCompleted || s.Score == nil {
			continue
		}
		sums[s.Topic] += float64(*s.Score)
		counts[s.Topic]++
	}
	var rows []model.TopicAverage
	for topic, sum := range sums {
		rows = append(rows, model.TopicAverage{
			Topic:        topic,
			AverageScore: sum / float64(counts[topic]),
			Sessions:     counts[topic],
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].AverageScore < rows[j].AverageScore })
	return rows, nil
}

// stubGenerator returns canned questions and records what it was asked for.
type stubGenerator struct {
	generateErr     error
	regeneratedFrom []string
}

func (g *stubGenerator) Generate(_ context.Context, topic, _ string, testType model.TestType, count int) ([]GeneratedQuestion, error) {
	if g.generateErr != nil {
		return nil, g.generateErr
	}
	questions := make([]GeneratedQuestion, count)
	for i := range questions {
		questions[i] = cannedQuestion(topic, testType, i)
	}
	return questions, nil
}

func (g *stubGenerator) Regenerate(_ context.Context, topic, _ string, testType model.TestType, prompts []string) ([]GeneratedQuestion, error) {
	g.regeneratedFrom = append([]string(nil), prompts...)
	questions := make([]GeneratedQuestion, len(prompts))
	for i := range questions {
		questions[i] = cannedQuestion(topic, testType, i)
	}
	return questions, nil
}

func (g *stubGenerator) PromptMatrix() map[model.TestType]string {
	return map[model.TestType]string{}
}

func cannedQuestion(topic string, testType model.TestType, i int) GeneratedQuestion {
	q := GeneratedQuestion{
		Question: fmt.Sprintf("%s question %d", topic, i),
		Answer:   fmt.Sprintf("answer %d", i),
	}
	if testType == model.TypeMultipleChoice {
		q.Options = []string{fmt.Sprintf("answer %d", i), "wrong A", "wrong B", "wrong C"}
	}
	if testType == model.TypeCodeChallenge {
		q.StarterCode = "func solve() {}"
		q.Language = "go"
	}
	return q
}

// stubJudge grades every answer with a fixed verdict, or fails outright.
type stubJudge struct {
	err        error
	evaluation Evaluation
	rubric     RubricEvaluation
	calls      int
}

func (j *stubJudge) Evaluate(_ context.Context, _, _, _ string) (*Evaluation, error) {
	j.calls++
	if j.err != nil {
		return nil, j.err
	}
	eval := j.evaluation
	return &eval, nil
}

func (j *stubJudge) EvaluateRubric(_ context.Context, _, _ string, _ model.TestType) (*RubricEvaluation, error) {
	j.calls++
	if j.err != nil {
		return nil, j.err
	}
	eval := j.rubric
	return &eval, nil
}

func mustRubricJSON(t *testing.T, eval RubricEvaluation) json.RawMessage {
	t.Helper()
	encoded, err := json.Marshal(eval)
	if err != nil {
		t.Fatalf("marshal rubric: %v", err)
	}
	return encoded
}
