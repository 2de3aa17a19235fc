package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-scoring-engine/internal/models"
)

// GradeRecordRepository persists authoritative exam grades.
type GradeRecordRepository struct {
	db *sqlx.DB
}

// NewGradeRecordRepository creates a grade record repository.
func NewGradeRecordRepository(db *sqlx.DB) *GradeRecordRepository {
	return &GradeRecordRepository{db: db}
}

// Upsert inserts or replaces the grade of a student for an exam.
func (r *GradeRecordRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, record *models.GradeRecord) error {
	if exec == nil {
		exec = r.db
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	const query = `INSERT INTO grade_records (id, student_id, exam_id, score, remark, source, recorded_by, created_at, updated_at)
        VALUES (:id, :student_id, :exam_id, :score, :remark, :source, :recorded_by, :created_at, :updated_at)
        ON CONFLICT (student_id, exam_id)
        DO UPDATE SET score = EXCLUDED.score, remark = EXCLUDED.remark, source = EXCLUDED.source,
            recorded_by = EXCLUDED.recorded_by, updated_at = EXCLUDED.updated_at`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, record); err != nil {
		return fmt.Errorf("upsert grade record: %w", err)
	}
	return nil
}

// FindByExamAndStudent returns sql.ErrNoRows when no grade exists.
func (r *GradeRecordRepository) FindByExamAndStudent(ctx context.Context, examID, studentID string) (*models.GradeRecord, error) {
	const query = `SELECT id, student_id, exam_id, score, remark, source, recorded_by, created_at, updated_at FROM grade_records WHERE exam_id = $1 AND student_id = $2`
	var record models.GradeRecord
	if err := r.db.GetContext(ctx, &record, query, examID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find grade record: %w", err)
	}
	return &record, nil
}
