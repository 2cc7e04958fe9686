package grading

import (
	"strings"

	"langlearn_backend/internal/model"
)

const (
	// DefaultFuzzyThreshold is the similarity above which a free-text
	// answer counts as correct when neither equality nor containment hit.
	DefaultFuzzyThreshold = 0.8

	ReasonSubjective   = "subjective type"
	ReasonNoAnswerKey  = "question has no answer key"
	ReasonAITimeout    = "ai grading timed out; deferred to human review"
	ReasonAIError      = "ai grading unavailable; deferred to human review"
	ReasonLowAIConf    = "ai confidence below threshold"
	ReasonAutoExact    = "exact match"
	ReasonAutoFuzzy    = "fuzzy match"
	ReasonAutoMismatch = "did not match answer key"
)

// Deferred is the outcome that hands an answer over to review: no score,
// no correctness verdict. This is the documented boundary where the AI
// or a human takes over, not a failure.
func Deferred(reason string) model.GradeOutcome {
	return model.GradeOutcome{NeedsManualReview: true, Reason: reason, Source: model.SourceNone}
}

func autoGraded(points float64, correct bool, reason string) model.GradeOutcome {
	score := 0.0
	if correct {
		score = points
	}
	return model.GradeOutcome{
		Score:     &score,
		IsCorrect: &correct,
		Reason:    reason,
		Source:    model.SourceAuto,
	}
}

// Matcher evaluates objectively gradable answers. It is pure: no clock,
// no storage, no network.
type Matcher struct {
	Classifier     Classifier
	FuzzyThreshold float64
}

func NewMatcher(c Classifier, fuzzyThreshold float64) Matcher {
	if fuzzyThreshold <= 0 || fuzzyThreshold >= 1 {
		fuzzyThreshold = DefaultFuzzyThreshold
	}
	return Matcher{Classifier: c, FuzzyThreshold: fuzzyThreshold}
}

// Evaluate decides correctness and score for a submitted answer.
// Full points or zero; partial credit only ever comes from a reviewer.
func (m Matcher) Evaluate(q model.Question, submitted string) (model.GradeOutcome, error) {
	strategy, err := m.Classifier.Classify(q.Type)
	if err != nil {
		return model.GradeOutcome{}, err
	}

	switch strategy {
	case AutoExact:
		return m.evaluateExact(q, submitted), nil
	case AutoFuzzy:
		return m.evaluateFuzzy(q, submitted), nil
	default:
		return Deferred(ReasonSubjective), nil
	}
}

func (m Matcher) evaluateExact(q model.Question, submitted string) model.GradeOutcome {
	if q.CorrectAnswer == nil || normalize(*q.CorrectAnswer) == "" {
		return Deferred(ReasonNoAnswerKey)
	}
	correct := normalize(submitted) == normalize(*q.CorrectAnswer)
	reason := ReasonAutoMismatch
	if correct {
		reason = ReasonAutoExact
	}
	return autoGraded(q.Points, correct, reason)
}

func (m Matcher) evaluateFuzzy(q model.Question, submitted string) model.GradeOutcome {
	if q.CorrectAnswer == nil || normalize(*q.CorrectAnswer) == "" {
		return Deferred(ReasonNoAnswerKey)
	}
	sub := normalize(submitted)
	key := normalize(*q.CorrectAnswer)

	// An empty submission is always incorrect. Checked before similarity
	// so empty-vs-empty can never score as a perfect match.
	if sub == "" {
		return autoGraded(q.Points, false, ReasonAutoMismatch)
	}

	switch {
	case sub == key:
		return autoGraded(q.Points, true, ReasonAutoExact)
	case strings.Contains(sub, key) || strings.Contains(key, sub):
		return autoGraded(q.Points, true, ReasonAutoFuzzy)
	case Similarity(sub, key) > m.FuzzyThreshold:
		return autoGraded(q.Points, true, ReasonAutoFuzzy)
	default:
		return autoGraded(q.Points, false, ReasonAutoMismatch)
	}
}
