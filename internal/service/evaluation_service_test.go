package service

import (
	"context"
	"fmt"
	"testing"

	"langlearn_backend/internal/grading"
	"langlearn_backend/internal/model"
	"langlearn_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScorer struct {
	score *AIScore
	err   error
	calls int
}

func (f *fakeScorer) ScoreAnswer(ctx context.Context, q model.Question, submitted string) (*AIScore, error) {
	f.calls++
	return f.score, f.err
}

func strPtr(s string) *string { return &s }

func evalFixture(t *testing.T, scorer AIScorer) (*EvaluationService, *fakeStore) {
	t.Helper()
	store := newFakeStore()

	cfg := testConfig()
	cfg.AI.Enabled = scorer != nil

	key := "paris"
	short := model.Question{Type: model.ShortAnswer, Skill: "vocabulary", CorrectAnswer: &key, Points: 4}
	short.ID = 1
	store.addQuestion(short)

	essay := model.Question{Type: model.Essay, Skill: "writing", Points: 10}
	essay.ID = 2
	store.addQuestion(essay)

	attempt := model.Attempt{Status: model.AttemptInProgress}
	attempt.ID = 1
	store.addAttempt(attempt)

	return NewEvaluationService(store, scorer, cfg), store
}

func TestEvaluateObjective(t *testing.T) {
	svc, _ := evalFixture(t, nil)
	key := "paris"
	q := model.Question{Type: model.ShortAnswer, CorrectAnswer: &key, Points: 4}

	out, err := svc.Evaluate(context.Background(), q, "pariss")
	require.NoError(t, err)
	assert.True(t, *out.IsCorrect)
	assert.Equal(t, 4.0, *out.Score)
	assert.Equal(t, model.SourceAuto, out.Source)
}

func TestEvaluateSubjectiveWithoutAI(t *testing.T) {
	svc, _ := evalFixture(t, nil)
	q := model.Question{Type: model.Essay, Points: 10}

	out, err := svc.Evaluate(context.Background(), q, "my essay")
	require.NoError(t, err)
	assert.Nil(t, out.Score)
	assert.True(t, out.NeedsManualReview)
	assert.Equal(t, grading.ReasonSubjective, out.Reason)
}

func TestAIPrePassHighConfidence(t *testing.T) {
	scorer := &fakeScorer{score: &AIScore{Score: 0.8, Confidence: 0.9, Feedback: "well argued"}}
	svc, _ := evalFixture(t, scorer)
	q := model.Question{Type: model.Essay, Points: 10}

	out, err := svc.Evaluate(context.Background(), q, "my essay")
	require.NoError(t, err)
	assert.Equal(t, 1, scorer.calls)
	require.NotNil(t, out.Score)
	assert.Equal(t, 8.0, *out.Score, "AI fraction scaled by question points")
	assert.True(t, *out.IsCorrect)
	assert.False(t, out.NeedsManualReview)
	assert.Equal(t, model.SourceAI, out.Source)
	assert.Equal(t, "well argued", out.Feedback)
}

func TestAIPrePassLowConfidenceKeepsFlag(t *testing.T) {
	scorer := &fakeScorer{score: &AIScore{Score: 0.8, Confidence: 0.4}}
	svc, _ := evalFixture(t, scorer)
	q := model.Question{Type: model.Essay, Points: 10}

	out, err := svc.Evaluate(context.Background(), q, "my essay")
	require.NoError(t, err)
	require.NotNil(t, out.Score)
	assert.Equal(t, 8.0, *out.Score, "low-confidence score is kept as a candidate")
	assert.True(t, out.NeedsManualReview)
	assert.Equal(t, grading.ReasonLowAIConf, out.Reason)
	assert.Equal(t, model.SourceAI, out.Source)
}

func TestAITimeoutFailsOverToHuman(t *testing.T) {
	scorer := &fakeScorer{err: fmt.Errorf("%w: deadline exceeded", util.ErrAITimeout)}
	svc, _ := evalFixture(t, scorer)
	q := model.Question{Type: model.Essay, Points: 10}

	out, err := svc.Evaluate(context.Background(), q, "my essay")
	require.NoError(t, err, "AI failure is never surfaced as a hard error")
	assert.Nil(t, out.Score)
	assert.Nil(t, out.IsCorrect)
	assert.True(t, out.NeedsManualReview)
	assert.Equal(t, grading.ReasonAITimeout, out.Reason)
	assert.Equal(t, model.SourceNone, out.Source)
}

func TestAIErrorFailsOverToHuman(t *testing.T) {
	scorer := &fakeScorer{err: fmt.Errorf("%w: status 502", util.ErrAIUnavailable)}
	svc, _ := evalFixture(t, scorer)
	q := model.Question{Type: model.Essay, Points: 10}

	out, err := svc.Evaluate(context.Background(), q, "my essay")
	require.NoError(t, err)
	assert.True(t, out.NeedsManualReview)
	assert.Equal(t, grading.ReasonAIError, out.Reason)
}

func TestAINotCalledForObjectiveTypes(t *testing.T) {
	scorer := &fakeScorer{score: &AIScore{Score: 1, Confidence: 1}}
	svc, _ := evalFixture(t, scorer)
	key := "true"
	q := model.Question{Type: model.TrueFalse, CorrectAnswer: &key, Points: 2}

	_, err := svc.Evaluate(context.Background(), q, "true")
	require.NoError(t, err)
	assert.Zero(t, scorer.calls)
}

func TestEvaluateUnsupportedType(t *testing.T) {
	svc, _ := evalFixture(t, nil)
	_, err := svc.Evaluate(context.Background(), model.Question{Type: "matching_pairs"}, "x")
	assert.ErrorIs(t, err, grading.ErrUnsupportedType)
}

func TestEvaluateAndRecord(t *testing.T) {
	svc, store := evalFixture(t, nil)

	answer, err := svc.EvaluateAndRecord(context.Background(), 1, 1, strPtr("pariss"), "", 0)
	require.NoError(t, err)
	require.NotNil(t, answer.Score)
	assert.Equal(t, 4.0, *answer.Score)
	assert.False(t, answer.NeedsManualReview)

	assert.Equal(t, 1, store.lockCalls[1])
	assert.Equal(t, 1, store.totalsSaves[1])
	assert.Equal(t, 4.0, store.attempts[1].TotalScore)
	assert.Equal(t, 4.0, store.attempts[1].MaxScore)

	// ungraded attempt stays in progress
	assert.Equal(t, model.AttemptInProgress, store.attempts[1].Status)
}

func TestEvaluateAndRecordSubjective(t *testing.T) {
	svc, store := evalFixture(t, nil)

	answer, err := svc.EvaluateAndRecord(context.Background(), 1, 2, strPtr("my essay"), "", 0)
	require.NoError(t, err)
	assert.Nil(t, answer.Score)
	assert.Nil(t, answer.IsCorrect)
	assert.True(t, answer.NeedsManualReview)

	// deferred answers still count toward the max score
	assert.Equal(t, 0.0, store.attempts[1].TotalScore)
	assert.Equal(t, 10.0, store.attempts[1].MaxScore)
}

func TestEvaluateAndRecordMissingQuestion(t *testing.T) {
	svc, _ := evalFixture(t, nil)
	_, err := svc.EvaluateAndRecord(context.Background(), 1, 999, strPtr("x"), "", 0)
	assert.ErrorIs(t, err, util.ErrQuestionNotFound)
}

func TestEvaluateAndRecordMissingAttempt(t *testing.T) {
	svc, _ := evalFixture(t, nil)
	_, err := svc.EvaluateAndRecord(context.Background(), 999, 1, strPtr("x"), "", 0)
	assert.ErrorIs(t, err, util.ErrAttemptNotFound)
}

func TestSubmitAttempt(t *testing.T) {
	svc, _ := evalFixture(t, nil)

	_, err := svc.EvaluateAndRecord(context.Background(), 1, 1, strPtr("paris"), "", 0)
	require.NoError(t, err)

	attempt, err := svc.SubmitAttempt(context.Background(), 1)
	require.NoError(t, err)

	// every answer graded, so submission completes grading
	assert.Equal(t, model.AttemptGraded, attempt.Status)
	assert.NotNil(t, attempt.SubmittedAt)
	assert.Equal(t, 4.0, attempt.TotalScore)
	assert.True(t, attempt.Passed)
}

func TestSubmitAttemptWithPendingReview(t *testing.T) {
	svc, _ := evalFixture(t, nil)

	_, err := svc.EvaluateAndRecord(context.Background(), 1, 2, strPtr("my essay"), "", 0)
	require.NoError(t, err)

	attempt, err := svc.SubmitAttempt(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptSubmitted, attempt.Status)
	assert.False(t, attempt.Passed)
}

func TestStartAttempt(t *testing.T) {
	svc, store := evalFixture(t, nil)

	attempt, err := svc.StartAttempt(context.Background(), 77)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptInProgress, attempt.Status)
	assert.Equal(t, uint(77), attempt.UserID)
	assert.NotZero(t, attempt.ID)
	_, ok := store.attempts[attempt.ID]
	assert.True(t, ok)
}
