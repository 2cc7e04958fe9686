package grading

import "langlearn_backend/internal/model"

// Totals is the derived score state of one attempt.
type Totals struct {
	TotalScore float64 `json:"totalScore"`
	MaxScore   float64 `json:"maxScore"`
	Passed     bool    `json:"passed"`
}

// Aggregate re-derives an attempt's totals from its full answer set.
// TotalScore sums every non-null answer score; MaxScore sums question
// points over all answers present, graded or not, so an attempt with an
// unreviewed essay still reports its full possible score. Answers must
// carry their Question. Totals are never patched incrementally.
func Aggregate(answers []model.Answer, passPercent float64) Totals {
	var t Totals
	for _, a := range answers {
		t.MaxScore += a.Question.Points
		if a.Score != nil {
			t.TotalScore += *a.Score
		}
	}
	if t.MaxScore > 0 {
		t.Passed = t.TotalScore/t.MaxScore*100 >= passPercent
	}
	return t
}

// FullyGraded reports whether every answer has a score and none is
// waiting on review.
func FullyGraded(answers []model.Answer) bool {
	for _, a := range answers {
		if a.Score == nil || a.NeedsManualReview {
			return false
		}
	}
	return len(answers) > 0
}
