package model

import "time"

// ScoreSource records which party produced the answer's current score.
type ScoreSource string

const (
	SourceNone  ScoreSource = "none"
	SourceAuto  ScoreSource = "auto"
	SourceAI    ScoreSource = "ai"
	SourceHuman ScoreSource = "human"
)

// swagger:model Answer
type Answer struct {
	BaseModel

	AttemptID  uint `gorm:"index;type:bigint unsigned;not null" json:"attemptId"`
	QuestionID uint `gorm:"index;type:bigint unsigned;not null" json:"questionId"`

	SubmittedText *string `gorm:"type:text" json:"submittedText,omitempty"`
	MediaURL      string  `gorm:"size:512" json:"mediaUrl,omitempty"` // audio/image submissions
	MediaSeconds  float64 `json:"mediaSeconds,omitempty"`             // probed audio duration

	Score             *float64    `json:"score,omitempty"` // null until a grading pass has run
	IsCorrect         *bool       `json:"isCorrect,omitempty"`
	NeedsManualReview bool        `gorm:"index;default:false" json:"needsManualReview"`
	ReviewReason      string      `gorm:"size:255" json:"reviewReason,omitempty"`
	Feedback          string      `gorm:"type:text" json:"feedback,omitempty"`
	ReviewedBy        *uint       `gorm:"type:bigint unsigned" json:"reviewedBy,omitempty"`
	ReviewedAt        *time.Time  `json:"reviewedAt,omitempty"`
	Source            ScoreSource `gorm:"size:10;default:'none'" json:"source"`

	Question Question `gorm:"foreignKey:QuestionID" json:"question,omitempty"`
}

func (Answer) TableName() string {
	return "answers"
}

// ApplyOutcome is the single write path for grading results. Every pass
// (auto, ai, human) folds its result into the answer here.
func (a *Answer) ApplyOutcome(o GradeOutcome, reviewer *uint, at time.Time) {
	a.Score = o.Score
	a.IsCorrect = o.IsCorrect
	a.NeedsManualReview = o.NeedsManualReview
	a.ReviewReason = o.Reason
	if o.Feedback != "" {
		a.Feedback = o.Feedback
	}
	if o.Source != SourceNone {
		a.Source = o.Source
	}
	if !o.NeedsManualReview {
		a.ReviewedBy = reviewer
		a.ReviewedAt = &at
	}
}

// Flag marks the answer for human attention. Idempotent; never touches
// an existing score.
func (a *Answer) Flag(reason string) {
	a.NeedsManualReview = true
	if reason != "" {
		a.ReviewReason = reason
	}
}
