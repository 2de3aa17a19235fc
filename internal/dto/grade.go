package dto

import (
	"time"

	"github.com/noah-isme/sma-scoring-engine/internal/models"
)

// RecordManualGradeRequest enters a percentage grade outside the attempt flow.
type RecordManualGradeRequest struct {
	ExamID           string                  `json:"examId" validate:"required"`
	StudentID        string                  `json:"studentId" validate:"required"`
	Score            *float64                `json:"score" validate:"required,gte=0,lte=100"`
	Remark           string                  `json:"remark" validate:"max=500"`
	AttendanceStatus models.AttendanceStatus `json:"attendanceStatus" validate:"omitempty,oneof=PRESENT ABSENT EXCUSED"`
	Date             *time.Time              `json:"date"`
}

// ManualGradeResult echoes the persisted grade and attendance.
type ManualGradeResult struct {
	Grade      models.GradeRecord    `json:"grade"`
	Attendance models.ExamAttendance `json:"attendance"`
}

// SetLockRequest toggles a lock flag.
type SetLockRequest struct {
	Locked *bool `json:"locked" validate:"required"`
}
