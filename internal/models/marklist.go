package models

import "time"

// MarklistConfig defines the rubric columns of a class+subject marklist.
type MarklistConfig struct {
	ID        string           `db:"id" json:"id"`
	SchoolID  string           `db:"school_id" json:"school_id"`
	ClassID   string           `db:"class_id" json:"class_id"`
	SubjectID string           `db:"subject_id" json:"subject_id"`
	Locked    bool             `db:"locked" json:"locked"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
	Columns   []MarklistColumn `db:"-" json:"columns"`
}

// MarklistColumn is a single rubric column.
type MarklistColumn struct {
	ID         string  `db:"id" json:"id"`
	ConfigID   string  `db:"config_id" json:"config_id"`
	Title      string  `db:"title" json:"title"`
	MaxMarks   float64 `db:"max_marks" json:"max_marks"`
	Position   int     `db:"position" json:"position"`
	IsOptional bool    `db:"is_optional" json:"is_optional"`
}

// MarklistEntry holds a student's derived totals for a marklist.
type MarklistEntry struct {
	ID         string    `db:"id" json:"id"`
	ConfigID   string    `db:"config_id" json:"config_id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	Total      float64   `db:"total" json:"total"`
	MaxCounted float64   `db:"max_counted" json:"max_counted"`
	Percentage float64   `db:"percentage" json:"percentage"`
	Grade      string    `db:"grade" json:"grade"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
	Marks      []Mark    `db:"-" json:"marks,omitempty"`
}

// Mark is the score of one entry in one column.
type Mark struct {
	ID        string    `db:"id" json:"id"`
	EntryID   string    `db:"entry_id" json:"entry_id"`
	ColumnID  string    `db:"column_id" json:"column_id"`
	Score     float64   `db:"score" json:"score"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// MarklistSheet is a config with all of its entries.
type MarklistSheet struct {
	Config  MarklistConfig  `json:"config"`
	Entries []MarklistEntry `json:"entries"`
}
