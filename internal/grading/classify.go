package grading

import (
	"errors"
	"fmt"

	"langlearn_backend/internal/model"
)

// Strategy is how a question type gets graded.
type Strategy string

const (
	AutoExact  Strategy = "auto_exact"
	AutoFuzzy  Strategy = "auto_fuzzy"
	DeferAI    Strategy = "defer_ai"
	DeferHuman Strategy = "defer_human"
)

var ErrUnsupportedType = errors.New("unsupported question type")

// Classifier maps a question type to its grading strategy. AIPrePass
// switches open-ended types from straight human review to an AI pre-pass
// whose result is still only a candidate grade.
type Classifier struct {
	AIPrePass bool
}

func (c Classifier) Classify(t model.QuestionType) (Strategy, error) {
	switch t {
	case model.MultipleChoice, model.TrueFalse:
		return AutoExact, nil
	case model.FillBlank, model.ShortAnswer:
		return AutoFuzzy, nil
	case model.Essay, model.AudioResponse, model.ImageDescription:
		if c.AIPrePass {
			return DeferAI, nil
		}
		return DeferHuman, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, t)
	}
}
