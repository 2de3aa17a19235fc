package grading

import (
	"fmt"
	"math"
	"strings"

	"github.com/noah-isme/sma-scoring-engine/internal/models"
	appErrors "github.com/noah-isme/sma-scoring-engine/pkg/errors"
)

// ValidateQuestion rejects questions whose answer key cannot be scored.
func ValidateQuestion(q models.Question) error {
	if !q.Type.Valid() {
		return invalidQuestion(q, fmt.Sprintf("unsupported type %q", q.Type))
	}
	if math.IsNaN(q.Points) || math.IsInf(q.Points, 0) || q.Points < 0 {
		return invalidQuestion(q, "points must be a non-negative number")
	}

	d := q.Details
	switch q.Type {
	case models.QuestionTypeMCQ:
		if len(d.Options) == 0 {
			return invalidQuestion(q, "multiple choice question requires options")
		}
		if d.CorrectOptionIndex == nil || *d.CorrectOptionIndex < 0 || *d.CorrectOptionIndex >= len(d.Options) {
			return invalidQuestion(q, "correct option index out of range")
		}
	case models.QuestionTypeTrueFalse:
		if d.ExpectedBoolean == nil {
			return invalidQuestion(q, "true/false question requires expected boolean")
		}
	case models.QuestionTypeShortAnswer:
		if strings.TrimSpace(d.ExpectedAnswer) == "" {
			return invalidQuestion(q, "short answer question requires expected answer")
		}
	}
	return nil
}

// ValidateQuestions validates every question and returns the first failure.
func ValidateQuestions(questions []models.Question) error {
	for _, q := range questions {
		if err := ValidateQuestion(q); err != nil {
			return err
		}
	}
	return nil
}

func invalidQuestion(q models.Question, reason string) error {
	return appErrors.WithDetails(
		appErrors.Clone(appErrors.ErrValidation, "invalid question: "+reason),
		map[string]interface{}{"question_id": q.ID},
	)
}
