package grading

import (
	"testing"

	"langlearn_backend/internal/model"

	"github.com/stretchr/testify/assert"
)

func answer(points float64, score *float64, pending bool) model.Answer {
	return model.Answer{
		Score:             score,
		NeedsManualReview: pending,
		Question:          model.Question{Points: points},
	}
}

func ptr(f float64) *float64 { return &f }

func TestAggregate(t *testing.T) {
	// one ungraded essay: counts toward max, not toward total
	answers := []model.Answer{
		answer(10, ptr(8), false),
		answer(10, nil, true),
		answer(5, ptr(5), false),
	}

	totals := Aggregate(answers, 60)
	assert.Equal(t, 13.0, totals.TotalScore)
	assert.Equal(t, 25.0, totals.MaxScore)
	assert.False(t, totals.Passed) // 52% < 60%
}

func TestAggregateIsIdempotent(t *testing.T) {
	answers := []model.Answer{
		answer(10, ptr(7), false),
		answer(5, ptr(0), false),
	}

	first := Aggregate(answers, 60)
	second := Aggregate(answers, 60)
	assert.Equal(t, first, second)
}

func TestAggregatePassBoundary(t *testing.T) {
	answers := []model.Answer{
		answer(10, ptr(6), false),
		answer(10, ptr(6), false),
	}

	// exactly at the pass percent counts as passed
	totals := Aggregate(answers, 60)
	assert.True(t, totals.Passed)

	totals = Aggregate(answers, 61)
	assert.False(t, totals.Passed)
}

func TestAggregateEmpty(t *testing.T) {
	totals := Aggregate(nil, 60)
	assert.Zero(t, totals.TotalScore)
	assert.Zero(t, totals.MaxScore)
	assert.False(t, totals.Passed)
}

func TestFullyGraded(t *testing.T) {
	assert.False(t, FullyGraded(nil))
	assert.False(t, FullyGraded([]model.Answer{answer(10, nil, true)}))
	assert.False(t, FullyGraded([]model.Answer{answer(10, ptr(5), true)}))
	assert.True(t, FullyGraded([]model.Answer{
		answer(10, ptr(5), false),
		answer(5, ptr(0), false),
	}))
}
