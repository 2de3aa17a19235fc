package models

import "time"

// GradeNotification is handed to the messaging collaborator once a grade is final.
type GradeNotification struct {
	StudentID        string           `json:"student_id"`
	SubjectID        string           `json:"subject_id,omitempty"`
	ExamID           string           `json:"exam_id,omitempty"`
	MarklistID       string           `json:"marklist_id,omitempty"`
	Score            float64          `json:"score"`
	Grade            string           `json:"grade,omitempty"`
	AttendanceStatus AttendanceStatus `json:"attendance_status,omitempty"`
	Source           GradeSource      `json:"source"`
	OccurredAt       time.Time        `json:"occurred_at"`
}
