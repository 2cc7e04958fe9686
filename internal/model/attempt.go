package model

import "time"

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSubmitted  AttemptStatus = "submitted"
	AttemptGraded     AttemptStatus = "graded"
)

// swagger:model Attempt
type Attempt struct {
	BaseModel

	UserID      uint          `gorm:"index;type:bigint unsigned;not null" json:"userId"`
	Status      AttemptStatus `gorm:"size:20;default:'in_progress'" json:"status"`
	SubmittedAt *time.Time    `json:"submittedAt,omitempty"`

	// Totals are derived values owned by the aggregator; they are never
	// patched incrementally, only replaced by a full recompute.
	TotalScore float64 `json:"totalScore"`
	MaxScore   float64 `json:"maxScore"`
	Passed     bool    `gorm:"default:false" json:"passed"`

	Answers []Answer `gorm:"foreignKey:AttemptID" json:"answers,omitempty"`
}

func (Attempt) TableName() string {
	return "attempts"
}
