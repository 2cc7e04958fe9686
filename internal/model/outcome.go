package model

// GradeOutcome is the transient result of one evaluation pass. It is
// never persisted directly; callers fold it into an Answer through
// ApplyOutcome so grading state can never be written piecemeal.
type GradeOutcome struct {
	Score             *float64    `json:"score"`
	IsCorrect         *bool       `json:"isCorrect"`
	NeedsManualReview bool        `json:"needsManualReview"`
	Reason            string      `json:"reason,omitempty"`
	Feedback          string      `json:"feedback,omitempty"`
	Source            ScoreSource `json:"source"`
}
