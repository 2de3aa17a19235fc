package dto

import "time"

// AccessCheckRequest asks whether a write would currently be permitted.
type AccessCheckRequest struct {
	ExamID   string     `json:"examId"`
	SchoolID string     `json:"schoolId"`
	PeriodID string     `json:"periodId"`
	Date     *time.Time `json:"date"`
	Locked   bool       `json:"locked"`
}

// UpsertGradingPolicyRequest sets a school's grading window.
type UpsertGradingPolicyRequest struct {
	SchoolID         string `json:"schoolId" validate:"required"`
	LockAfterMinutes *int   `json:"lockAfterMinutes" validate:"omitempty,gte=0"`
	Timezone         string `json:"timezone" validate:"required"`
}
