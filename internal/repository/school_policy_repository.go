package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-scoring-engine/internal/models"
)

// SchoolPolicyRepository stores per-school grading window policies.
type SchoolPolicyRepository struct {
	db *sqlx.DB
}

// NewSchoolPolicyRepository creates a policy repository.
func NewSchoolPolicyRepository(db *sqlx.DB) *SchoolPolicyRepository {
	return &SchoolPolicyRepository{db: db}
}

// Find returns sql.ErrNoRows when the school has no explicit policy.
func (r *SchoolPolicyRepository) Find(ctx context.Context, schoolID string) (*models.GradingWindowPolicy, error) {
	var policy models.GradingWindowPolicy
	const query = `SELECT school_id, lock_after_minutes, timezone, updated_at FROM school_grading_policies WHERE school_id = $1`
	if err := r.db.GetContext(ctx, &policy, query, schoolID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find grading policy: %w", err)
	}
	return &policy, nil
}

// Upsert creates or replaces a school's policy.
func (r *SchoolPolicyRepository) Upsert(ctx context.Context, policy *models.GradingWindowPolicy) error {
	policy.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO school_grading_policies (school_id, lock_after_minutes, timezone, updated_at)
        VALUES (:school_id, :lock_after_minutes, :timezone, :updated_at)
        ON CONFLICT (school_id)
        DO UPDATE SET lock_after_minutes = EXCLUDED.lock_after_minutes, timezone = EXCLUDED.timezone, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, policy); err != nil {
		return fmt.Errorf("upsert grading policy: %w", err)
	}
	return nil
}
