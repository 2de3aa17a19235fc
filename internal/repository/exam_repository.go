package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-scoring-engine/internal/models"
)

// ExamRepository reads exams and their questions.
type ExamRepository struct {
	db *sqlx.DB
}

// NewExamRepository creates an exam repository.
func NewExamRepository(db *sqlx.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

// FindByID returns sql.ErrNoRows when the exam does not exist.
func (r *ExamRepository) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	const query = `SELECT id, school_id, class_id, subject_id, title, period_id, exam_date, locked, created_at, updated_at FROM exams WHERE id = $1`
	var exam models.Exam
	if err := r.db.GetContext(ctx, &exam, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find exam: %w", err)
	}
	return &exam, nil
}

// ListQuestions returns the exam's questions in authoring order.
func (r *ExamRepository) ListQuestions(ctx context.Context, examID string) ([]models.Question, error) {
	const query = `SELECT id, exam_id, type, text, points, position, details FROM questions WHERE exam_id = $1 ORDER BY position, id`
	var questions []models.Question
	if err := r.db.SelectContext(ctx, &questions, query, examID); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return questions, nil
}

// SetLocked toggles the exam lock flag.
func (r *ExamRepository) SetLocked(ctx context.Context, id string, locked bool) error {
	const query = `UPDATE exams SET locked = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, locked, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set exam lock: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
