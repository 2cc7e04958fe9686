package service

import (
	"context"
	"testing"
	"time"

	"langlearn_backend/internal/config"
	"langlearn_backend/internal/model"
	"langlearn_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Grading: config.GradingConfig{FuzzyThreshold: 0.8, PassPercent: 60},
		Review: config.ReviewConfig{
			AgeWeight:        10,
			FlagWeight:       5,
			SkillBoost:       50,
			HighWeightSkills: []string{"writing", "speaking"},
		},
		AI: config.AIConfig{TimeoutSeconds: 10, ConfidenceThreshold: 0.75},
	}
}

func flaggedAnswer(id, attemptID, questionID uint) model.Answer {
	a := model.Answer{
		AttemptID:         attemptID,
		QuestionID:        questionID,
		NeedsManualReview: true,
		ReviewReason:      "subjective type",
	}
	a.ID = id
	return a
}

func reviewFixture(t *testing.T) (*ReviewService, *fakeStore) {
	t.Helper()
	store := newFakeStore()

	essay := model.Question{Type: model.Essay, Skill: "writing", Points: 10}
	essay.ID = 1
	store.addQuestion(essay)

	attempt := model.Attempt{Status: model.AttemptSubmitted}
	attempt.ID = 1
	store.addAttempt(attempt)

	store.addAnswer(flaggedAnswer(1, 1, 1))

	return NewReviewService(store, nil, testConfig()), store
}

func uintPtr(v uint) *uint { return &v }

func TestSubmitReviewAppliesOverride(t *testing.T) {
	svc, store := reviewFixture(t)

	result, err := svc.SubmitReview(context.Background(), uintPtr(42),
		ReviewItem{AnswerID: 1, Score: 7.5, Feedback: "good structure"}, model.SourceHuman)
	require.NoError(t, err)

	require.NotNil(t, result.Answer.Score)
	assert.Equal(t, 7.5, *result.Answer.Score)
	require.NotNil(t, result.Answer.IsCorrect)
	assert.True(t, *result.Answer.IsCorrect)
	assert.False(t, result.Answer.NeedsManualReview)
	assert.Equal(t, model.SourceHuman, result.Answer.Source)
	assert.Equal(t, "good structure", result.Answer.Feedback)
	require.NotNil(t, result.Answer.ReviewedBy)
	assert.Equal(t, uint(42), *result.Answer.ReviewedBy)
	assert.NotNil(t, result.Answer.ReviewedAt)

	assert.Equal(t, 7.5, result.Totals.TotalScore)
	assert.Equal(t, 10.0, result.Totals.MaxScore)
	assert.True(t, result.Totals.Passed)

	// attempt fully graded now
	attempt := store.attempts[1]
	assert.Equal(t, model.AttemptGraded, attempt.Status)
	assert.Equal(t, 7.5, attempt.TotalScore)
	assert.Equal(t, 1, store.totalsSaves[1])
	assert.Equal(t, 1, store.lockCalls[1])
}

func TestSubmitReviewZeroScoreWithOverride(t *testing.T) {
	svc, _ := reviewFixture(t)

	correct := true
	result, err := svc.SubmitReview(context.Background(), uintPtr(42),
		ReviewItem{AnswerID: 1, Score: 0, IsCorrect: &correct}, model.SourceHuman)
	require.NoError(t, err)

	assert.Equal(t, 0.0, *result.Answer.Score)
	assert.True(t, *result.Answer.IsCorrect, "explicit override beats score > 0 rule")
}

func TestSubmitReviewRejectsOutOfRange(t *testing.T) {
	svc, store := reviewFixture(t)

	_, err := svc.SubmitReview(context.Background(), uintPtr(42),
		ReviewItem{AnswerID: 1, Score: 10.01}, model.SourceHuman)
	assert.ErrorIs(t, err, util.ErrScoreOutOfRange)

	_, err = svc.SubmitReview(context.Background(), uintPtr(42),
		ReviewItem{AnswerID: 1, Score: -0.01}, model.SourceHuman)
	assert.ErrorIs(t, err, util.ErrScoreOutOfRange)

	// nothing was written
	assert.True(t, store.answers[1].NeedsManualReview)
	assert.Nil(t, store.answers[1].Score)
	assert.Zero(t, store.totalsSaves[1])
}

func TestSubmitReviewAnswerNotFound(t *testing.T) {
	svc, _ := reviewFixture(t)

	_, err := svc.SubmitReview(context.Background(), uintPtr(42),
		ReviewItem{AnswerID: 999, Score: 5}, model.SourceHuman)
	assert.ErrorIs(t, err, util.ErrAnswerNotFound)
}

func TestSubmitReviewAISource(t *testing.T) {
	svc, _ := reviewFixture(t)

	result, err := svc.SubmitReview(context.Background(), nil,
		ReviewItem{AnswerID: 1, Score: 6, Feedback: "coherent"}, model.SourceAI)
	require.NoError(t, err)

	assert.Equal(t, model.SourceAI, result.Answer.Source)
	assert.Nil(t, result.Answer.ReviewedBy)
	assert.False(t, result.Answer.NeedsManualReview)
}

func TestBatchSubmitReview(t *testing.T) {
	store := newFakeStore()

	essay := model.Question{Type: model.Essay, Skill: "writing", Points: 10}
	essay.ID = 1
	store.addQuestion(essay)

	a1 := model.Attempt{Status: model.AttemptSubmitted}
	a1.ID = 1
	store.addAttempt(a1)
	a2 := model.Attempt{Status: model.AttemptSubmitted}
	a2.ID = 2
	store.addAttempt(a2)

	store.addAnswer(flaggedAnswer(1, 1, 1))
	store.addAnswer(flaggedAnswer(2, 1, 1))
	store.addAnswer(flaggedAnswer(3, 2, 1))

	svc := NewReviewService(store, nil, testConfig())

	result, err := svc.BatchSubmitReview(context.Background(), uintPtr(7), []ReviewItem{
		{AnswerID: 1, Score: 8},
		{AnswerID: 999, Score: 5},
		{AnswerID: 2, Score: 10.01},
		{AnswerID: 3, Score: 6},
	}, model.SourceHuman)
	require.NoError(t, err)

	require.Len(t, result.Results, 4)
	assert.True(t, result.Results[0].OK)
	assert.False(t, result.Results[1].OK)
	assert.Contains(t, result.Results[1].Error, "not found")
	assert.False(t, result.Results[2].OK)
	assert.Contains(t, result.Results[2].Error, "out of range")
	assert.True(t, result.Results[3].OK)

	// totals recomputed once per distinct attempt, not once per item
	assert.Equal(t, 1, store.totalsSaves[1])
	assert.Equal(t, 1, store.totalsSaves[2])
	assert.Equal(t, 1, store.lockCalls[1])
	assert.Equal(t, 1, store.lockCalls[2])

	assert.Equal(t, 8.0, store.attempts[1].TotalScore)
	assert.Equal(t, 20.0, store.attempts[1].MaxScore)
	assert.Equal(t, 6.0, store.attempts[2].TotalScore)

	require.Len(t, result.Attempts, 2)
	assert.Equal(t, 8.0, result.Attempts[1].TotalScore)
	assert.Equal(t, 6.0, result.Attempts[2].TotalScore)
}

func TestFlagIsIdempotent(t *testing.T) {
	svc, store := reviewFixture(t)

	// grade it first so it carries a score
	_, err := svc.SubmitReview(context.Background(), uintPtr(42),
		ReviewItem{AnswerID: 1, Score: 7}, model.SourceHuman)
	require.NoError(t, err)

	require.NoError(t, svc.Flag(context.Background(), 1, "score disputed"))
	require.NoError(t, svc.Flag(context.Background(), 1, "score disputed"))

	a := store.answers[1]
	assert.True(t, a.NeedsManualReview)
	assert.Equal(t, "score disputed", a.ReviewReason)
	require.NotNil(t, a.Score)
	assert.Equal(t, 7.0, *a.Score, "flagging must not clear the score")
}

func TestFlagMissingAnswer(t *testing.T) {
	svc, _ := reviewFixture(t)
	err := svc.Flag(context.Background(), 999, "x")
	assert.ErrorIs(t, err, util.ErrAnswerNotFound)
}

func TestRankOrdering(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	cfg := testConfig().Review

	old := now.Add(-48 * time.Hour)
	recent := now.Add(-24 * time.Hour)

	reading := model.Attempt{SubmittedAt: &old}
	reading.ID = 1
	reading.Answers = []model.Answer{
		{Question: model.Question{Skill: "reading"}},
	}

	writing := model.Attempt{SubmittedAt: &recent}
	writing.ID = 2
	writing.Answers = []model.Answer{
		{Question: model.Question{Skill: "writing"}},
		{Question: model.Question{Skill: "writing"}},
		{Question: model.Question{Skill: "writing"}},
	}

	ranked := Rank([]model.Attempt{reading, writing}, cfg, now)
	require.Len(t, ranked, 2)

	// 1*10 + 3*5 + 50 = 75 beats 2*10 + 1*5 = 25
	assert.Equal(t, uint(2), ranked[0].AttemptID)
	assert.Equal(t, 75.0, ranked[0].Priority)
	assert.Equal(t, uint(1), ranked[1].AttemptID)
	assert.Equal(t, 25.0, ranked[1].Priority)
}

func TestRankTieBreaksFIFO(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	cfg := testConfig().Review

	earlier := now.Add(-24 * time.Hour)
	later := now.Add(-24*time.Hour + time.Minute)

	a := model.Attempt{SubmittedAt: &later}
	a.ID = 1
	a.Answers = []model.Answer{{Question: model.Question{Skill: "reading"}}}

	b := model.Attempt{SubmittedAt: &earlier}
	b.ID = 2
	b.Answers = []model.Answer{{Question: model.Question{Skill: "reading"}}}

	ranked := Rank([]model.Attempt{a, b}, cfg, now)
	require.Len(t, ranked, 2)
	assert.Equal(t, uint(2), ranked[0].AttemptID, "earliest submission first on equal priority")
}

func TestRankIsStable(t *testing.T) {
	now := time.Now()
	cfg := testConfig().Review

	sub := now.Add(-12 * time.Hour)
	var attempts []model.Attempt
	for i := uint(1); i <= 5; i++ {
		at := model.Attempt{SubmittedAt: &sub}
		at.ID = i
		at.Answers = []model.Answer{{Question: model.Question{Skill: "grammar"}}}
		attempts = append(attempts, at)
	}

	first := Rank(attempts, cfg, now)
	second := Rank(attempts, cfg, now)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].AttemptID, second[i].AttemptID)
	}
}

func TestPendingReviewsSkillFilter(t *testing.T) {
	store := newFakeStore()

	writing := model.Question{Type: model.Essay, Skill: "writing", Points: 10}
	writing.ID = 1
	store.addQuestion(writing)
	listening := model.Question{Type: model.AudioResponse, Skill: "speaking", Points: 5}
	listening.ID = 2
	store.addQuestion(listening)

	now := time.Now()
	a1 := model.Attempt{Status: model.AttemptSubmitted, SubmittedAt: &now}
	a1.ID = 1
	store.addAttempt(a1)
	a2 := model.Attempt{Status: model.AttemptSubmitted, SubmittedAt: &now}
	a2.ID = 2
	store.addAttempt(a2)

	store.addAnswer(flaggedAnswer(1, 1, 1))
	store.addAnswer(flaggedAnswer(2, 2, 2))

	svc := NewReviewService(store, nil, testConfig())

	items, err := svc.PendingReviews(context.Background(), model.ReviewFilter{Skill: "writing"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, uint(1), items[0].AttemptID)
	assert.Equal(t, 1, items[0].FlaggedCount)
}

func TestGetAttemptTotals(t *testing.T) {
	store := newFakeStore()
	attempt := model.Attempt{TotalScore: 13, MaxScore: 25, Passed: false}
	attempt.ID = 1
	store.addAttempt(attempt)

	svc := NewReviewService(store, nil, testConfig())
	totals, err := svc.GetAttemptTotals(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 13.0, totals.TotalScore)
	assert.Equal(t, 25.0, totals.MaxScore)

	_, err = svc.GetAttemptTotals(context.Background(), 999)
	assert.ErrorIs(t, err, util.ErrAttemptNotFound)
}
