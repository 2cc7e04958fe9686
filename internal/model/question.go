package model

type QuestionType string

const (
	MultipleChoice   QuestionType = "multiple_choice"
	TrueFalse        QuestionType = "true_false"
	FillBlank        QuestionType = "fill_blank"
	ShortAnswer      QuestionType = "short_answer"
	Essay            QuestionType = "essay"
	AudioResponse    QuestionType = "audio_response"
	ImageDescription QuestionType = "image_description"
)

// swagger:model Question
type Question struct {
	BaseModel

	Skill         string       `gorm:"size:50;index" json:"skill"` // reading, listening, grammar, vocabulary, writing, speaking
	Level         string       `gorm:"size:20" json:"level"`       // A1..C2
	Type          QuestionType `gorm:"size:50;not null" json:"type"`
	Prompt        string       `gorm:"type:text" json:"prompt"`
	Options       string       `gorm:"type:json" json:"options,omitempty"`
	CorrectAnswer *string      `gorm:"type:text" json:"correctAnswer,omitempty"` // null for open-ended types
	Points        float64      `gorm:"not null" json:"points"`
	Explanation   string       `gorm:"type:text" json:"explanation,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}
