package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// EnsureSchema applies the idempotent DDL used by the scoring engine on both drivers.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("ensure schema: db is nil")
	}
	if _, err := db.ExecContext(ctx, schema); err == nil {
		return nil
	}
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %s: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(stmt string) string {
	stmt = strings.TrimSpace(stmt)
	if idx := strings.IndexByte(stmt, '\n'); idx >= 0 {
		return stmt[:idx]
	}
	return stmt
}

const schema = `
CREATE TABLE IF NOT EXISTS exams (
  id TEXT PRIMARY KEY,
  school_id TEXT NOT NULL,
  class_id TEXT NOT NULL,
  subject_id TEXT NOT NULL,
  title TEXT NOT NULL,
  period_id TEXT,
  exam_date DATE,
  locked BOOLEAN NOT NULL DEFAULT FALSE,
  created_at TIMESTAMP NOT NULL,
  updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
  id TEXT PRIMARY KEY,
  exam_id TEXT NOT NULL REFERENCES exams(id) ON DELETE CASCADE,
  type TEXT NOT NULL,
  text TEXT NOT NULL,
  points DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (points >= 0),
  position INTEGER NOT NULL DEFAULT 0,
  details TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS attempts (
  id TEXT PRIMARY KEY,
  exam_id TEXT NOT NULL REFERENCES exams(id) ON DELETE CASCADE,
  student_id TEXT NOT NULL,
  status TEXT NOT NULL,
  answers TEXT NOT NULL DEFAULT '{}',
  score DOUBLE PRECISION NOT NULL DEFAULT 0,
  earned_points DOUBLE PRECISION NOT NULL DEFAULT 0,
  total_points DOUBLE PRECISION NOT NULL DEFAULT 0,
  grading_metadata TEXT NOT NULL DEFAULT '[]',
  submitted_at TIMESTAMP,
  created_at TIMESTAMP NOT NULL,
  updated_at TIMESTAMP NOT NULL,
  UNIQUE (exam_id, student_id)
);

CREATE TABLE IF NOT EXISTS grade_records (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL,
  exam_id TEXT NOT NULL REFERENCES exams(id) ON DELETE CASCADE,
  score DOUBLE PRECISION NOT NULL CHECK (score >= 0 AND score <= 100),
  remark TEXT NOT NULL DEFAULT '',
  source TEXT NOT NULL,
  recorded_by TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMP NOT NULL,
  updated_at TIMESTAMP NOT NULL,
  UNIQUE (student_id, exam_id)
);

CREATE TABLE IF NOT EXISTS exam_attendance (
  id TEXT PRIMARY KEY,
  exam_id TEXT NOT NULL REFERENCES exams(id) ON DELETE CASCADE,
  student_id TEXT NOT NULL,
  status TEXT NOT NULL,
  marked_by TEXT NOT NULL DEFAULT '',
  marked_at TIMESTAMP NOT NULL,
  UNIQUE (exam_id, student_id)
);

CREATE TABLE IF NOT EXISTS marklist_configs (
  id TEXT PRIMARY KEY,
  school_id TEXT NOT NULL,
  class_id TEXT NOT NULL,
  subject_id TEXT NOT NULL,
  locked BOOLEAN NOT NULL DEFAULT FALSE,
  created_at TIMESTAMP NOT NULL,
  updated_at TIMESTAMP NOT NULL,
  UNIQUE (class_id, subject_id)
);

CREATE TABLE IF NOT EXISTS marklist_columns (
  id TEXT PRIMARY KEY,
  config_id TEXT NOT NULL REFERENCES marklist_configs(id) ON DELETE CASCADE,
  title TEXT NOT NULL,
  max_marks DOUBLE PRECISION NOT NULL CHECK (max_marks >= 0),
  position INTEGER NOT NULL DEFAULT 0,
  is_optional BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS marklist_entries (
  id TEXT PRIMARY KEY,
  config_id TEXT NOT NULL REFERENCES marklist_configs(id) ON DELETE CASCADE,
  student_id TEXT NOT NULL,
  total DOUBLE PRECISION NOT NULL DEFAULT 0,
  max_counted DOUBLE PRECISION NOT NULL DEFAULT 0,
  percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
  grade TEXT NOT NULL DEFAULT 'F',
  created_at TIMESTAMP NOT NULL,
  updated_at TIMESTAMP NOT NULL,
  UNIQUE (config_id, student_id)
);

CREATE TABLE IF NOT EXISTS marklist_marks (
  id TEXT PRIMARY KEY,
  entry_id TEXT NOT NULL REFERENCES marklist_entries(id) ON DELETE CASCADE,
  column_id TEXT NOT NULL REFERENCES marklist_columns(id) ON DELETE CASCADE,
  score DOUBLE PRECISION NOT NULL DEFAULT 0,
  updated_at TIMESTAMP NOT NULL,
  UNIQUE (entry_id, column_id)
);

CREATE TABLE IF NOT EXISTS enrollments (
  student_id TEXT NOT NULL,
  class_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'ACTIVE',
  PRIMARY KEY (student_id, class_id)
);

CREATE TABLE IF NOT EXISTS periods (
  id TEXT PRIMARY KEY,
  school_id TEXT NOT NULL,
  name TEXT NOT NULL,
  start_time TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS school_grading_policies (
  school_id TEXT PRIMARY KEY,
  lock_after_minutes INTEGER CHECK (lock_after_minutes >= 0),
  timezone TEXT NOT NULL DEFAULT 'UTC',
  updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_questions_exam ON questions (exam_id, position);
CREATE INDEX IF NOT EXISTS idx_marklist_columns_config ON marklist_columns (config_id, position);
CREATE INDEX IF NOT EXISTS idx_enrollments_class ON enrollments (class_id, status)
`
