package models

import "time"

// GradeSource tells whether a grade came from a scored attempt or manual entry.
type GradeSource string

const (
	GradeSourceAttempt GradeSource = "ATTEMPT"
	GradeSourceManual  GradeSource = "MANUAL"
	// GradeSourceMarklist only appears on notifications published from a locked marklist.
	GradeSourceMarklist GradeSource = "MARKLIST"
)

// GradeRecord is the authoritative percentage score of a student for an exam.
type GradeRecord struct {
	ID         string      `db:"id" json:"id"`
	StudentID  string      `db:"student_id" json:"student_id"`
	ExamID     string      `db:"exam_id" json:"exam_id"`
	Score      float64     `db:"score" json:"score"`
	Remark     string      `db:"remark" json:"remark"`
	Source     GradeSource `db:"source" json:"source"`
	RecordedBy string      `db:"recorded_by" json:"recorded_by"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updated_at"`
}
