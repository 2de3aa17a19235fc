package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// QuestionType selects the scoring strategy of a question.
type QuestionType string

const (
	QuestionTypeMCQ         QuestionType = "MCQ"
	QuestionTypeTrueFalse   QuestionType = "TRUE_FALSE"
	QuestionTypeShortAnswer QuestionType = "SHORT_ANSWER"
	QuestionTypeLongAnswer  QuestionType = "LONG_ANSWER"
)

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeMCQ, QuestionTypeTrueFalse, QuestionTypeShortAnswer, QuestionTypeLongAnswer:
		return true
	default:
		return false
	}
}

// AttemptStatus tracks the lifecycle of an exam attempt.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "IN_PROGRESS"
	AttemptStatusSubmitted  AttemptStatus = "SUBMITTED"
)

// Exam is an assessment owned by a class and subject.
type Exam struct {
	ID        string     `db:"id" json:"id"`
	SchoolID  string     `db:"school_id" json:"school_id"`
	ClassID   string     `db:"class_id" json:"class_id"`
	SubjectID string     `db:"subject_id" json:"subject_id"`
	Title     string     `db:"title" json:"title"`
	PeriodID  *string    `db:"period_id" json:"period_id,omitempty"`
	ExamDate  *time.Time `db:"exam_date" json:"exam_date,omitempty"`
	Locked    bool       `db:"locked" json:"locked"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// QuestionDetails carries the type-specific answer key of a question.
// Only the fields relevant to the question type are populated.
type QuestionDetails struct {
	Options            []string `json:"options,omitempty"`
	CorrectOptionIndex *int     `json:"correct_option_index,omitempty"`
	ExpectedBoolean    *bool    `json:"expected_boolean,omitempty"`
	ExpectedAnswer     string   `json:"expected_answer,omitempty"`
	Keywords           []string `json:"keywords,omitempty"`
	GradingCriteria    string   `json:"grading_criteria,omitempty"`
}

// Value implements driver.Valuer.
func (d QuestionDetails) Value() (driver.Value, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (d *QuestionDetails) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*d = QuestionDetails{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan question details: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*d = QuestionDetails{}
		return nil
	}
	return json.Unmarshal(raw, d)
}

// Question is a single gradable item of an exam.
type Question struct {
	ID       string          `db:"id" json:"id"`
	ExamID   string          `db:"exam_id" json:"exam_id"`
	Type     QuestionType    `db:"type" json:"type"`
	Text     string          `db:"text" json:"text"`
	Points   float64         `db:"points" json:"points"`
	Position int             `db:"position" json:"position"`
	Details  QuestionDetails `db:"details" json:"details"`
}

// QuestionScore is the per-question grading breakdown stored with an attempt.
type QuestionScore struct {
	QuestionID       string       `json:"question_id"`
	Type             QuestionType `json:"type"`
	Earned           float64      `json:"earned"`
	Points           float64      `json:"points"`
	Feedback         string       `json:"feedback,omitempty"`
	NeedsReview      bool         `json:"needs_review"`
	EvaluationFailed bool         `json:"evaluation_failed"`
}

// Attempt is a student's response to an exam.
type Attempt struct {
	ID              string         `db:"id" json:"id"`
	ExamID          string         `db:"exam_id" json:"exam_id"`
	StudentID       string         `db:"student_id" json:"student_id"`
	Status          AttemptStatus  `db:"status" json:"status"`
	Answers         types.JSONText `db:"answers" json:"answers"`
	Score           float64        `db:"score" json:"score"`
	EarnedPoints    float64        `db:"earned_points" json:"earned_points"`
	TotalPoints     float64        `db:"total_points" json:"total_points"`
	GradingMetadata types.JSONText `db:"grading_metadata" json:"grading_metadata"`
	SubmittedAt     *time.Time     `db:"submitted_at" json:"submitted_at,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// Breakdown decodes the stored grading metadata.
func (a *Attempt) Breakdown() ([]QuestionScore, error) {
	if a == nil || len(a.GradingMetadata) == 0 {
		return nil, nil
	}
	var scores []QuestionScore
	if err := a.GradingMetadata.Unmarshal(&scores); err != nil {
		return nil, fmt.Errorf("decode grading metadata: %w", err)
	}
	return scores, nil
}
