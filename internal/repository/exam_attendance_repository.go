package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-scoring-engine/internal/models"
)

// ExamAttendanceRepository persists exam attendance marks.
type ExamAttendanceRepository struct {
	db *sqlx.DB
}

// NewExamAttendanceRepository creates an attendance repository.
func NewExamAttendanceRepository(db *sqlx.DB) *ExamAttendanceRepository {
	return &ExamAttendanceRepository{db: db}
}

// Upsert records attendance, replacing any earlier status.
func (r *ExamAttendanceRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, record *models.ExamAttendance) error {
	if exec == nil {
		exec = r.db
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.MarkedAt.IsZero() {
		record.MarkedAt = time.Now().UTC()
	}

	const query = `INSERT INTO exam_attendance (id, exam_id, student_id, status, marked_by, marked_at)
        VALUES (:id, :exam_id, :student_id, :status, :marked_by, :marked_at)
        ON CONFLICT (exam_id, student_id)
        DO UPDATE SET status = EXCLUDED.status, marked_by = EXCLUDED.marked_by, marked_at = EXCLUDED.marked_at`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, record); err != nil {
		return fmt.Errorf("upsert exam attendance: %w", err)
	}
	return nil
}
