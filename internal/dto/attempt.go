package dto

import (
	"time"

	"github.com/noah-isme/sma-scoring-engine/internal/models"
)

// SubmitAttemptRequest carries a student's answers keyed by question id.
type SubmitAttemptRequest struct {
	ExamID    string                 `json:"examId" validate:"required"`
	StudentID string                 `json:"studentId" validate:"required"`
	Answers   map[string]interface{} `json:"answers" validate:"required"`
}

// SaveProgressRequest stores answers without grading.
type SaveProgressRequest struct {
	ExamID    string                 `json:"examId" validate:"required"`
	StudentID string                 `json:"studentId" validate:"required"`
	Answers   map[string]interface{} `json:"answers"`
}

// AttemptResult is returned once an attempt is scored and persisted.
type AttemptResult struct {
	AttemptID     string                 `json:"attemptId"`
	ExamID        string                 `json:"examId"`
	StudentID     string                 `json:"studentId"`
	Status        models.AttemptStatus   `json:"status"`
	FinalScorePct float64                `json:"finalScorePct"`
	EarnedPoints  float64                `json:"earnedPoints"`
	TotalPoints   float64                `json:"totalPoints"`
	NeedsReview   bool                   `json:"needsReview"`
	SubmittedAt   *time.Time             `json:"submittedAt,omitempty"`
	Questions     []models.QuestionScore `json:"questions"`
}
