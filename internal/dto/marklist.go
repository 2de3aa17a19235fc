package dto

// MarklistColumnInput declares one column. An empty ID creates a new column.
type MarklistColumnInput struct {
	ID         string   `json:"id"`
	Title      string   `json:"title" validate:"required,max=120"`
	MaxMarks   *float64 `json:"maxMarks" validate:"required,gte=0"`
	Order      int      `json:"order" validate:"gte=0"`
	IsOptional bool     `json:"isOptional"`
}

// SaveMarklistConfigRequest replaces the column set of a class+subject marklist.
type SaveMarklistConfigRequest struct {
	SchoolID  string                `json:"schoolId"`
	ClassID   string                `json:"classId" validate:"required"`
	SubjectID string                `json:"subjectId" validate:"required"`
	Columns   []MarklistColumnInput `json:"columns" validate:"dive"`
}

// EnterMarkRequest records one score.
type EnterMarkRequest struct {
	ConfigID  string   `json:"configId" validate:"required"`
	StudentID string   `json:"studentId" validate:"required"`
	ColumnID  string   `json:"columnId" validate:"required"`
	Score     *float64 `json:"score" validate:"required,gte=0"`
}

// EntrySummary is the recomputed view of a marklist entry.
type EntrySummary struct {
	EntryID    string  `json:"entryId"`
	StudentID  string  `json:"studentId"`
	Total      float64 `json:"total"`
	MaxCounted float64 `json:"maxCounted"`
	Percentage float64 `json:"percentage"`
	Grade      string  `json:"grade"`
}

// ReconcileResult reports lazily created entries.
type ReconcileResult struct {
	ConfigID string `json:"configId"`
	Created  int    `json:"created"`
}
