package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-scoring-engine/internal/models"
)

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

type notifierSpy struct {
	mu   sync.Mutex
	sent []models.GradeNotification
}

func (n *notifierSpy) Publish(_ context.Context, notification models.GradeNotification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
}

func (n *notifierSpy) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type guardStub struct {
	err     error
	targets []WriteTarget
}

func (g *guardStub) Authorize(_ context.Context, target WriteTarget) error {
	g.targets = append(g.targets, target)
	return g.err
}

func (g *guardStub) IsPrivileged(p models.Principal) bool {
	return p.HasRole(models.RoleSuperAdmin, models.RoleAdmin)
}

type examRepoMock struct {
	exams     map[string]*models.Exam
	questions map[string][]models.Question
	lockErr   error
}

func (m *examRepoMock) FindByID(_ context.Context, id string) (*models.Exam, error) {
	exam, ok := m.exams[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copyExam := *exam
	return &copyExam, nil
}

func (m *examRepoMock) ListQuestions(_ context.Context, examID string) ([]models.Question, error) {
	return m.questions[examID], nil
}

func (m *examRepoMock) SetLocked(_ context.Context, id string, locked bool) error {
	if m.lockErr != nil {
		return m.lockErr
	}
	exam, ok := m.exams[id]
	if !ok {
		return sql.ErrNoRows
	}
	exam.Locked = locked
	return nil
}

type gradeRecordRepoMock struct {
	records []models.GradeRecord
	err     error
}

func (m *gradeRecordRepoMock) Upsert(_ context.Context, _ sqlx.ExtContext, record *models.GradeRecord) error {
	if m.err != nil {
		return m.err
	}
	if record.ID == "" {
		record.ID = "grade-1"
	}
	m.records = append(m.records, *record)
	return nil
}

func (m *gradeRecordRepoMock) FindByExamAndStudent(_ context.Context, examID, studentID string) (*models.GradeRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].ExamID == examID && m.records[i].StudentID == studentID {
			out := m.records[i]
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

type attendanceRepoMock struct {
	records []models.ExamAttendance
	err     error
}

func (m *attendanceRepoMock) Upsert(_ context.Context, _ sqlx.ExtContext, record *models.ExamAttendance) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, *record)
	return nil
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }
func floatPtr(v float64) *float64 {
	return &v
}
