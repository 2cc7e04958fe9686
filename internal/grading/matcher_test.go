package grading

import (
	"testing"

	"langlearn_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func question(t model.QuestionType, key string, points float64) model.Question {
	q := model.Question{Type: t, Points: points}
	if key != "" {
		q.CorrectAnswer = &key
	}
	return q
}

func TestClassifier(t *testing.T) {
	c := Classifier{}

	cases := map[model.QuestionType]Strategy{
		model.MultipleChoice:   AutoExact,
		model.TrueFalse:        AutoExact,
		model.FillBlank:        AutoFuzzy,
		model.ShortAnswer:      AutoFuzzy,
		model.Essay:            DeferHuman,
		model.AudioResponse:    DeferHuman,
		model.ImageDescription: DeferHuman,
	}
	for qt, want := range cases {
		got, err := c.Classify(qt)
		require.NoError(t, err)
		assert.Equal(t, want, got, "type %s", qt)
	}

	_, err := c.Classify("matching_pairs")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestClassifierAIPrePass(t *testing.T) {
	c := Classifier{AIPrePass: true}
	got, err := c.Classify(model.Essay)
	require.NoError(t, err)
	assert.Equal(t, DeferAI, got)

	// objective types are unaffected by the pre-pass switch
	got, err = c.Classify(model.TrueFalse)
	require.NoError(t, err)
	assert.Equal(t, AutoExact, got)
}

func TestExactMatchIgnoresCaseAndWhitespace(t *testing.T) {
	m := NewMatcher(Classifier{}, 0.8)
	q := question(model.MultipleChoice, "Paris", 5)

	for _, submitted := range []string{"Paris", "paris", "  PARIS  ", "paris\n"} {
		out, err := m.Evaluate(q, submitted)
		require.NoError(t, err)
		require.NotNil(t, out.IsCorrect)
		assert.True(t, *out.IsCorrect, "submitted %q", submitted)
		assert.Equal(t, 5.0, *out.Score)
		assert.False(t, out.NeedsManualReview)
		assert.Equal(t, model.SourceAuto, out.Source)
	}
}

func TestExactMismatchScoresZero(t *testing.T) {
	m := NewMatcher(Classifier{}, 0.8)
	q := question(model.TrueFalse, "true", 2)

	out, err := m.Evaluate(q, "false")
	require.NoError(t, err)
	assert.False(t, *out.IsCorrect)
	assert.Equal(t, 0.0, *out.Score)
	assert.False(t, out.NeedsManualReview)
}

func TestFuzzyMatchPolicy(t *testing.T) {
	m := NewMatcher(Classifier{}, 0.8)
	q := question(model.ShortAnswer, "paris", 4)

	// similarity ≈ 0.833, above threshold
	out, err := m.Evaluate(q, "pariss")
	require.NoError(t, err)
	assert.True(t, *out.IsCorrect)
	assert.Equal(t, 4.0, *out.Score)

	out, err = m.Evaluate(q, "london")
	require.NoError(t, err)
	assert.False(t, *out.IsCorrect)
	assert.Equal(t, 0.0, *out.Score)
}

func TestFuzzyContainment(t *testing.T) {
	m := NewMatcher(Classifier{}, 0.8)
	q := question(model.ShortAnswer, "the eiffel tower", 3)

	out, err := m.Evaluate(q, "eiffel tower")
	require.NoError(t, err)
	assert.True(t, *out.IsCorrect)
}

func TestFuzzySubmittedEqualsKey(t *testing.T) {
	m := NewMatcher(Classifier{}, 0.8)
	q := question(model.FillBlank, "bibliothèque", 1)

	out, err := m.Evaluate(q, "Bibliothèque ")
	require.NoError(t, err)
	assert.True(t, *out.IsCorrect)
}

func TestEmptySubmissionAlwaysIncorrect(t *testing.T) {
	m := NewMatcher(Classifier{}, 0.8)

	// even with an empty answer key the submission must not match
	q := question(model.ShortAnswer, "paris", 4)
	out, err := m.Evaluate(q, "")
	require.NoError(t, err)
	assert.False(t, *out.IsCorrect)
	assert.Equal(t, 0.0, *out.Score)

	out, err = m.Evaluate(q, "   ")
	require.NoError(t, err)
	assert.False(t, *out.IsCorrect)
}

func TestMissingAnswerKeyDefers(t *testing.T) {
	m := NewMatcher(Classifier{}, 0.8)
	q := question(model.ShortAnswer, "", 4)

	out, err := m.Evaluate(q, "anything")
	require.NoError(t, err)
	assert.Nil(t, out.Score)
	assert.Nil(t, out.IsCorrect)
	assert.True(t, out.NeedsManualReview)
	assert.Equal(t, ReasonNoAnswerKey, out.Reason)
}

func TestSubjectiveTypesDefer(t *testing.T) {
	m := NewMatcher(Classifier{}, 0.8)

	for _, qt := range []model.QuestionType{model.Essay, model.AudioResponse, model.ImageDescription} {
		out, err := m.Evaluate(question(qt, "", 10), "my essay text")
		require.NoError(t, err)
		assert.Nil(t, out.Score, "type %s", qt)
		assert.Nil(t, out.IsCorrect, "type %s", qt)
		assert.True(t, out.NeedsManualReview, "type %s", qt)
		assert.Equal(t, ReasonSubjective, out.Reason)
		assert.Equal(t, model.SourceNone, out.Source)
	}
}

func TestUnsupportedTypeFailsEvaluation(t *testing.T) {
	m := NewMatcher(Classifier{}, 0.8)
	_, err := m.Evaluate(question("drag_and_drop", "x", 1), "x")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestNewMatcherClampsBadThreshold(t *testing.T) {
	assert.Equal(t, DefaultFuzzyThreshold, NewMatcher(Classifier{}, 0).FuzzyThreshold)
	assert.Equal(t, DefaultFuzzyThreshold, NewMatcher(Classifier{}, 1.5).FuzzyThreshold)
	assert.Equal(t, 0.9, NewMatcher(Classifier{}, 0.9).FuzzyThreshold)
}
