package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/sma-scoring-engine/internal/models"
)

// AttemptRepository persists exam attempts.
type AttemptRepository struct {
	db *sqlx.DB
}

// NewAttemptRepository creates an attempt repository.
func NewAttemptRepository(db *sqlx.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

func (r *AttemptRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const attemptColumns = `id, exam_id, student_id, status, answers, score, earned_points, total_points, grading_metadata, submitted_at, created_at, updated_at`

// FindByExamAndStudent returns sql.ErrNoRows when no attempt exists.
func (r *AttemptRepository) FindByExamAndStudent(ctx context.Context, examID, studentID string) (*models.Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM attempts WHERE exam_id = $1 AND student_id = $2`
	var attempt models.Attempt
	if err := r.db.GetContext(ctx, &attempt, query, examID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find attempt: %w", err)
	}
	return &attempt, nil
}

// SaveProgress upserts an in-progress attempt. It returns ErrAlreadySubmitted
// when the stored attempt is already submitted.
func (r *AttemptRepository) SaveProgress(ctx context.Context, exec sqlx.ExtContext, attempt *models.Attempt) error {
	prepareAttempt(attempt)
	attempt.Status = models.AttemptStatusInProgress

	const query = `INSERT INTO attempts (id, exam_id, student_id, status, answers, score, earned_points, total_points, grading_metadata, submitted_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, 0, 0, 0, $6, NULL, $7, $8)
        ON CONFLICT (exam_id, student_id)
        DO UPDATE SET answers = EXCLUDED.answers, updated_at = EXCLUDED.updated_at
        WHERE attempts.status <> 'SUBMITTED'
        RETURNING id`
	var id string
	err := sqlx.GetContext(ctx, r.exec(exec), &id, query,
		attempt.ID, attempt.ExamID, attempt.StudentID, attempt.Status, attempt.Answers,
		attempt.GradingMetadata, attempt.CreatedAt, attempt.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrAlreadySubmitted
		}
		return fmt.Errorf("save attempt progress: %w", err)
	}
	attempt.ID = id
	return nil
}

// Submit upserts the attempt as SUBMITTED. The conflict branch only fires for
// attempts that are not yet submitted, so a concurrent second submission
// affects no row and yields ErrAlreadySubmitted.
func (r *AttemptRepository) Submit(ctx context.Context, exec sqlx.ExtContext, attempt *models.Attempt) error {
	prepareAttempt(attempt)
	attempt.Status = models.AttemptStatusSubmitted
	if attempt.SubmittedAt == nil {
		submitted := attempt.UpdatedAt
		attempt.SubmittedAt = &submitted
	}

	const query = `INSERT INTO attempts (id, exam_id, student_id, status, answers, score, earned_points, total_points, grading_metadata, submitted_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        ON CONFLICT (exam_id, student_id)
        DO UPDATE SET status = EXCLUDED.status, answers = EXCLUDED.answers, score = EXCLUDED.score,
            earned_points = EXCLUDED.earned_points, total_points = EXCLUDED.total_points,
            grading_metadata = EXCLUDED.grading_metadata, submitted_at = EXCLUDED.submitted_at,
            updated_at = EXCLUDED.updated_at
        WHERE attempts.status <> 'SUBMITTED'
        RETURNING id`
	var id string
	err := sqlx.GetContext(ctx, r.exec(exec), &id, query,
		attempt.ID, attempt.ExamID, attempt.StudentID, attempt.Status, attempt.Answers,
		attempt.Score, attempt.EarnedPoints, attempt.TotalPoints, attempt.GradingMetadata,
		attempt.SubmittedAt, attempt.CreatedAt, attempt.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrAlreadySubmitted
		}
		return fmt.Errorf("submit attempt: %w", err)
	}
	attempt.ID = id
	return nil
}

func prepareAttempt(attempt *models.Attempt) {
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	if len(attempt.Answers) == 0 {
		attempt.Answers = types.JSONText(`{}`)
	}
	if len(attempt.GradingMetadata) == 0 {
		attempt.GradingMetadata = types.JSONText(`[]`)
	}
	now := time.Now().UTC()
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = now
	}
	attempt.UpdatedAt = now
}
