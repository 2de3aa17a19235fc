package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-scoring-engine/internal/models"
)

// EnrollmentRepository reads the class roster.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs a new enrollment repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// ListActiveStudentIDs returns the ids of students actively enrolled in a class.
func (r *EnrollmentRepository) ListActiveStudentIDs(ctx context.Context, exec sqlx.ExtContext, classID string) ([]string, error) {
	if exec == nil {
		exec = r.db
	}
	const query = `SELECT student_id FROM enrollments WHERE class_id = $1 AND status = $2 ORDER BY student_id`
	var ids []string
	if err := sqlx.SelectContext(ctx, exec, &ids, query, classID, models.EnrollmentStatusActive); err != nil {
		return nil, fmt.Errorf("list active students: %w", err)
	}
	return ids, nil
}

// IsActive reports whether a student is actively enrolled in a class.
func (r *EnrollmentRepository) IsActive(ctx context.Context, classID, studentID string) (bool, error) {
	const query = `SELECT COUNT(1) FROM enrollments WHERE class_id = $1 AND student_id = $2 AND status = $3`
	var count int
	if err := r.db.GetContext(ctx, &count, query, classID, studentID, models.EnrollmentStatusActive); err != nil {
		return false, fmt.Errorf("check active enrollment: %w", err)
	}
	return count > 0, nil
}
