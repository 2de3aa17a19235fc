package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-scoring-engine/internal/models"
)

// MarklistRepository persists marklist configs, columns, entries and marks.
type MarklistRepository struct {
	db *sqlx.DB
}

// NewMarklistRepository creates a marklist repository.
func NewMarklistRepository(db *sqlx.DB) *MarklistRepository {
	return &MarklistRepository{db: db}
}

func (r *MarklistRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const (
	configColumns = `id, school_id, class_id, subject_id, locked, created_at, updated_at`
	entryColumns  = `id, config_id, student_id, total, max_counted, percentage, grade, created_at, updated_at`
)

// FindConfigByID loads a config with its ordered columns. sql.ErrNoRows when absent.
func (r *MarklistRepository) FindConfigByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.MarklistConfig, error) {
	target := r.exec(exec)
	var cfg models.MarklistConfig
	if err := sqlx.GetContext(ctx, target, &cfg, `SELECT `+configColumns+` FROM marklist_configs WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find marklist config: %w", err)
	}
	columns, err := r.ListColumns(ctx, target, cfg.ID)
	if err != nil {
		return nil, err
	}
	cfg.Columns = columns
	return &cfg, nil
}

// FindConfigByScope loads the config of a class+subject. sql.ErrNoRows when absent.
func (r *MarklistRepository) FindConfigByScope(ctx context.Context, classID, subjectID string) (*models.MarklistConfig, error) {
	var cfg models.MarklistConfig
	query := `SELECT ` + configColumns + ` FROM marklist_configs WHERE class_id = $1 AND subject_id = $2`
	if err := r.db.GetContext(ctx, &cfg, query, classID, subjectID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find marklist config by scope: %w", err)
	}
	columns, err := r.ListColumns(ctx, r.db, cfg.ID)
	if err != nil {
		return nil, err
	}
	cfg.Columns = columns
	return &cfg, nil
}

// UpsertConfig creates the config for a class+subject or touches the existing one.
// The persisted id is written back to cfg.
func (r *MarklistRepository) UpsertConfig(ctx context.Context, exec sqlx.ExtContext, cfg *models.MarklistConfig) error {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = now
	}
	cfg.UpdatedAt = now

	const query = `INSERT INTO marklist_configs (id, school_id, class_id, subject_id, locked, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (class_id, subject_id)
        DO UPDATE SET school_id = EXCLUDED.school_id, updated_at = EXCLUDED.updated_at
        RETURNING id, locked`
	var row struct {
		ID     string `db:"id"`
		Locked bool   `db:"locked"`
	}
	if err := sqlx.GetContext(ctx, r.exec(exec), &row, query,
		cfg.ID, cfg.SchoolID, cfg.ClassID, cfg.SubjectID, cfg.Locked, cfg.CreatedAt, cfg.UpdatedAt); err != nil {
		return fmt.Errorf("upsert marklist config: %w", err)
	}
	cfg.ID = row.ID
	cfg.Locked = row.Locked
	return nil
}

// SetLocked toggles the config lock flag.
func (r *MarklistRepository) SetLocked(ctx context.Context, id string, locked bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE marklist_configs SET locked = $2, updated_at = $3 WHERE id = $1`, id, locked, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set marklist lock: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListColumns returns the config's columns ordered by position.
func (r *MarklistRepository) ListColumns(ctx context.Context, exec sqlx.ExtContext, configID string) ([]models.MarklistColumn, error) {
	const query = `SELECT id, config_id, title, max_marks, position, is_optional FROM marklist_columns WHERE config_id = $1 ORDER BY position, id`
	var columns []models.MarklistColumn
	if err := sqlx.SelectContext(ctx, r.exec(exec), &columns, query, configID); err != nil {
		return nil, fmt.Errorf("list marklist columns: %w", err)
	}
	return columns, nil
}

// CreateColumn inserts a new column.
func (r *MarklistRepository) CreateColumn(ctx context.Context, exec sqlx.ExtContext, col *models.MarklistColumn) error {
	if col.ID == "" {
		col.ID = uuid.NewString()
	}
	const query = `INSERT INTO marklist_columns (id, config_id, title, max_marks, position, is_optional)
        VALUES (:id, :config_id, :title, :max_marks, :position, :is_optional)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, col); err != nil {
		return fmt.Errorf("create marklist column: %w", err)
	}
	return nil
}

// UpdateColumn rewrites the mutable fields of a column.
func (r *MarklistRepository) UpdateColumn(ctx context.Context, exec sqlx.ExtContext, col *models.MarklistColumn) error {
	const query = `UPDATE marklist_columns SET title = :title, max_marks = :max_marks, position = :position, is_optional = :is_optional
        WHERE id = :id AND config_id = :config_id`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, col); err != nil {
		return fmt.Errorf("update marklist column: %w", err)
	}
	return nil
}

// DeleteColumns removes columns and every mark recorded against them.
func (r *MarklistRepository) DeleteColumns(ctx context.Context, exec sqlx.ExtContext, configID string, columnIDs []string) error {
	if len(columnIDs) == 0 {
		return nil
	}
	target := r.exec(exec)
	placeholders, args := inClause(columnIDs, 2)
	args = append([]interface{}{configID}, args...)

	marksQuery := fmt.Sprintf(`DELETE FROM marklist_marks WHERE column_id IN (SELECT id FROM marklist_columns WHERE config_id = $1 AND id IN (%s))`, placeholders)
	if _, err := target.ExecContext(ctx, marksQuery, args...); err != nil {
		return fmt.Errorf("delete marklist marks for columns: %w", err)
	}
	columnsQuery := fmt.Sprintf(`DELETE FROM marklist_columns WHERE config_id = $1 AND id IN (%s)`, placeholders)
	if _, err := target.ExecContext(ctx, columnsQuery, args...); err != nil {
		return fmt.Errorf("delete marklist columns: %w", err)
	}
	return nil
}

// EnsureEntries creates an empty entry for each student lacking one.
func (r *MarklistRepository) EnsureEntries(ctx context.Context, exec sqlx.ExtContext, configID string, studentIDs []string) (int, error) {
	target := r.exec(exec)
	now := time.Now().UTC()
	const query = `INSERT INTO marklist_entries (id, config_id, student_id, total, max_counted, percentage, grade, created_at, updated_at)
        VALUES ($1, $2, $3, 0, 0, 0, 'F', $4, $4)
        ON CONFLICT (config_id, student_id) DO NOTHING`
	created := 0
	for _, studentID := range studentIDs {
		res, err := target.ExecContext(ctx, query, uuid.NewString(), configID, studentID, now)
		if err != nil {
			return created, fmt.Errorf("ensure marklist entry: %w", err)
		}
		if affected, err := res.RowsAffected(); err == nil {
			created += int(affected)
		}
	}
	return created, nil
}

// UpsertEntry returns the id of the student's entry, creating it when missing.
func (r *MarklistRepository) UpsertEntry(ctx context.Context, exec sqlx.ExtContext, configID, studentID string) (string, error) {
	now := time.Now().UTC()
	const query = `INSERT INTO marklist_entries (id, config_id, student_id, total, max_counted, percentage, grade, created_at, updated_at)
        VALUES ($1, $2, $3, 0, 0, 0, 'F', $4, $4)
        ON CONFLICT (config_id, student_id) DO UPDATE SET updated_at = EXCLUDED.updated_at
        RETURNING id`
	var id string
	if err := sqlx.GetContext(ctx, r.exec(exec), &id, query, uuid.NewString(), configID, studentID, now); err != nil {
		return "", fmt.Errorf("upsert marklist entry: %w", err)
	}
	return id, nil
}

// FindEntry returns sql.ErrNoRows when the student has no entry.
func (r *MarklistRepository) FindEntry(ctx context.Context, exec sqlx.ExtContext, configID, studentID string) (*models.MarklistEntry, error) {
	var entry models.MarklistEntry
	query := `SELECT ` + entryColumns + ` FROM marklist_entries WHERE config_id = $1 AND student_id = $2`
	if err := sqlx.GetContext(ctx, r.exec(exec), &entry, query, configID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find marklist entry: %w", err)
	}
	return &entry, nil
}

// ListEntries returns all entries of a config ordered by student.
func (r *MarklistRepository) ListEntries(ctx context.Context, exec sqlx.ExtContext, configID string) ([]models.MarklistEntry, error) {
	var entries []models.MarklistEntry
	query := `SELECT ` + entryColumns + ` FROM marklist_entries WHERE config_id = $1 ORDER BY student_id`
	if err := sqlx.SelectContext(ctx, r.exec(exec), &entries, query, configID); err != nil {
		return nil, fmt.Errorf("list marklist entries: %w", err)
	}
	return entries, nil
}

// UpsertMark writes the score of an entry in a column.
func (r *MarklistRepository) UpsertMark(ctx context.Context, exec sqlx.ExtContext, mark *models.Mark) error {
	if mark.ID == "" {
		mark.ID = uuid.NewString()
	}
	mark.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO marklist_marks (id, entry_id, column_id, score, updated_at)
        VALUES (:id, :entry_id, :column_id, :score, :updated_at)
        ON CONFLICT (entry_id, column_id)
        DO UPDATE SET score = EXCLUDED.score, updated_at = EXCLUDED.updated_at`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, mark); err != nil {
		return fmt.Errorf("upsert marklist mark: %w", err)
	}
	return nil
}

// ListMarks returns every mark of an entry.
func (r *MarklistRepository) ListMarks(ctx context.Context, exec sqlx.ExtContext, entryID string) ([]models.Mark, error) {
	const query = `SELECT id, entry_id, column_id, score, updated_at FROM marklist_marks WHERE entry_id = $1`
	var marks []models.Mark
	if err := sqlx.SelectContext(ctx, r.exec(exec), &marks, query, entryID); err != nil {
		return nil, fmt.Errorf("list marklist marks: %w", err)
	}
	return marks, nil
}

// ListMarksByConfig returns marks of all entries keyed by entry id.
func (r *MarklistRepository) ListMarksByConfig(ctx context.Context, exec sqlx.ExtContext, configID string) (map[string][]models.Mark, error) {
	const query = `SELECT m.id, m.entry_id, m.column_id, m.score, m.updated_at
        FROM marklist_marks m
        JOIN marklist_entries e ON e.id = m.entry_id
        WHERE e.config_id = $1`
	var marks []models.Mark
	if err := sqlx.SelectContext(ctx, r.exec(exec), &marks, query, configID); err != nil {
		return nil, fmt.Errorf("list marklist marks by config: %w", err)
	}
	result := make(map[string][]models.Mark)
	for _, m := range marks {
		result[m.EntryID] = append(result[m.EntryID], m)
	}
	return result, nil
}

// UpdateEntryTotals stores recomputed derived values.
func (r *MarklistRepository) UpdateEntryTotals(ctx context.Context, exec sqlx.ExtContext, entry *models.MarklistEntry) error {
	entry.UpdatedAt = time.Now().UTC()
	const query = `UPDATE marklist_entries SET total = :total, max_counted = :max_counted, percentage = :percentage, grade = :grade, updated_at = :updated_at
        WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, entry); err != nil {
		return fmt.Errorf("update marklist entry totals: %w", err)
	}
	return nil
}

func inClause(values []string, start int) (string, []interface{}) {
	placeholders := make([]string, len(values))
	args := make([]interface{}, len(values))
	for i, v := range values {
		placeholders[i] = fmt.Sprintf("$%d", start+i)
		args[i] = v
	}
	return strings.Join(placeholders, ","), args
}
