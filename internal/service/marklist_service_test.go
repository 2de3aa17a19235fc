package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-scoring-engine/internal/dto"
	"github.com/noah-isme/sma-scoring-engine/internal/models"
	appErrors "github.com/noah-isme/sma-scoring-engine/pkg/errors"
	"github.com/noah-isme/sma-scoring-engine/pkg/export"
)

type marklistStoreMock struct {
	configs map[string]*models.MarklistConfig
	columns map[string]models.MarklistColumn
	entries map[string]*models.MarklistEntry
	marks   map[string]models.Mark
	seq     int
}

func newMarklistStoreMock() *marklistStoreMock {
	return &marklistStoreMock{
		configs: map[string]*models.MarklistConfig{},
		columns: map[string]models.MarklistColumn{},
		entries: map[string]*models.MarklistEntry{},
		marks:   map[string]models.Mark{},
	}
}

func (m *marklistStoreMock) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *marklistStoreMock) FindConfigByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.MarklistConfig, error) {
	cfg, ok := m.configs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := *cfg
	out.Columns, _ = m.ListColumns(ctx, exec, id)
	return &out, nil
}

func (m *marklistStoreMock) FindConfigByScope(ctx context.Context, classID, subjectID string) (*models.MarklistConfig, error) {
	for id, cfg := range m.configs {
		if cfg.ClassID == classID && cfg.SubjectID == subjectID {
			return m.FindConfigByID(ctx, nil, id)
		}
	}
	return nil, sql.ErrNoRows
}

func (m *marklistStoreMock) UpsertConfig(_ context.Context, _ sqlx.ExtContext, cfg *models.MarklistConfig) error {
	for _, existing := range m.configs {
		if existing.ClassID == cfg.ClassID && existing.SubjectID == cfg.SubjectID {
			cfg.ID = existing.ID
			cfg.Locked = existing.Locked
			return nil
		}
	}
	cfg.ID = m.nextID("cfg")
	stored := *cfg
	m.configs[cfg.ID] = &stored
	return nil
}

func (m *marklistStoreMock) SetLocked(_ context.Context, id string, locked bool) error {
	cfg, ok := m.configs[id]
	if !ok {
		return sql.ErrNoRows
	}
	cfg.Locked = locked
	return nil
}

func (m *marklistStoreMock) ListColumns(_ context.Context, _ sqlx.ExtContext, configID string) ([]models.MarklistColumn, error) {
	var out []models.MarklistColumn
	for _, col := range m.columns {
		if col.ConfigID == configID {
			out = append(out, col)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *marklistStoreMock) CreateColumn(_ context.Context, _ sqlx.ExtContext, col *models.MarklistColumn) error {
	col.ID = m.nextID("col")
	m.columns[col.ID] = *col
	return nil
}

func (m *marklistStoreMock) UpdateColumn(_ context.Context, _ sqlx.ExtContext, col *models.MarklistColumn) error {
	m.columns[col.ID] = *col
	return nil
}

func (m *marklistStoreMock) DeleteColumns(_ context.Context, _ sqlx.ExtContext, _ string, ids []string) error {
	for _, id := range ids {
		delete(m.columns, id)
		for key, mark := range m.marks {
			if mark.ColumnID == id {
				delete(m.marks, key)
			}
		}
	}
	return nil
}

func (m *marklistStoreMock) EnsureEntries(ctx context.Context, exec sqlx.ExtContext, configID string, studentIDs []string) (int, error) {
	created := 0
	for _, sid := range studentIDs {
		if _, err := m.FindEntry(ctx, exec, configID, sid); err == nil {
			continue
		}
		_, _ = m.UpsertEntry(ctx, exec, configID, sid)
		created++
	}
	return created, nil
}

func (m *marklistStoreMock) UpsertEntry(_ context.Context, _ sqlx.ExtContext, configID, studentID string) (string, error) {
	for _, e := range m.entries {
		if e.ConfigID == configID && e.StudentID == studentID {
			return e.ID, nil
		}
	}
	id := m.nextID("entry")
	m.entries[id] = &models.MarklistEntry{ID: id, ConfigID: configID, StudentID: studentID, Grade: "F"}
	return id, nil
}

func (m *marklistStoreMock) FindEntry(_ context.Context, _ sqlx.ExtContext, configID, studentID string) (*models.MarklistEntry, error) {
	for _, e := range m.entries {
		if e.ConfigID == configID && e.StudentID == studentID {
			out := *e
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *marklistStoreMock) ListEntries(_ context.Context, _ sqlx.ExtContext, configID string) ([]models.MarklistEntry, error) {
	var out []models.MarklistEntry
	for _, e := range m.entries {
		if e.ConfigID == configID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}

func (m *marklistStoreMock) UpsertMark(_ context.Context, _ sqlx.ExtContext, mark *models.Mark) error {
	m.marks[mark.EntryID+"/"+mark.ColumnID] = *mark
	return nil
}

func (m *marklistStoreMock) ListMarks(_ context.Context, _ sqlx.ExtContext, entryID string) ([]models.Mark, error) {
	var out []models.Mark
	for _, mark := range m.marks {
		if mark.EntryID == entryID {
			out = append(out, mark)
		}
	}
	return out, nil
}

func (m *marklistStoreMock) ListMarksByConfig(_ context.Context, _ sqlx.ExtContext, configID string) (map[string][]models.Mark, error) {
	out := map[string][]models.Mark{}
	for _, mark := range m.marks {
		if e, ok := m.entries[mark.EntryID]; ok && e.ConfigID == configID {
			out[mark.EntryID] = append(out[mark.EntryID], mark)
		}
	}
	return out, nil
}

func (m *marklistStoreMock) UpdateEntryTotals(_ context.Context, _ sqlx.ExtContext, entry *models.MarklistEntry) error {
	stored, ok := m.entries[entry.ID]
	if !ok {
		return sql.ErrNoRows
	}
	stored.Total = entry.Total
	stored.MaxCounted = entry.MaxCounted
	stored.Percentage = entry.Percentage
	stored.Grade = entry.Grade
	return nil
}

type rosterMock struct {
	students map[string][]string
}

func (r *rosterMock) ListActiveStudentIDs(_ context.Context, _ sqlx.ExtContext, classID string) ([]string, error) {
	return r.students[classID], nil
}

func (r *rosterMock) IsActive(_ context.Context, classID, studentID string) (bool, error) {
	for _, id := range r.students[classID] {
		if id == studentID {
			return true, nil
		}
	}
	return false, nil
}

type marklistFixture struct {
	svc      *MarklistService
	store    *marklistStoreMock
	notifier *notifierSpy
}

func newMarklistFixture(tx txProvider) *marklistFixture {
	store := newMarklistStoreMock()
	notifier := &notifierSpy{}
	guard := NewAccessWindowService(nil, nil, nil, nil, WindowDefaults{}, nil, nil)
	roster := &rosterMock{students: map[string][]string{"class-1": {"s-1", "s-2"}}}
	return &marklistFixture{
		svc:      NewMarklistService(store, roster, guard, tx, notifier, nil, nil, nil),
		store:    store,
		notifier: notifier,
	}
}

func saveRequest(columns ...dto.MarklistColumnInput) dto.SaveMarklistConfigRequest {
	return dto.SaveMarklistConfigRequest{SchoolID: "school-1", ClassID: "class-1", SubjectID: "bio", Columns: columns}
}

func TestMarklistServiceSaveConfigCreatesColumnsAndEntries(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	f := newMarklistFixture(tx)

	cfg, err := f.svc.SaveConfig(context.Background(), teacher, saveRequest(
		dto.MarklistColumnInput{Title: "Quiz", MaxMarks: floatPtr(10), Order: 1},
		dto.MarklistColumnInput{Title: "Bonus", MaxMarks: floatPtr(5), Order: 2, IsOptional: true},
	))
	require.NoError(t, err)
	require.Len(t, cfg.Columns, 2)
	assert.Equal(t, "Quiz", cfg.Columns[0].Title)
	assert.Len(t, f.store.entries, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarklistServiceSaveConfigReconcilesColumns(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()
	ctx := context.Background()
	f := newMarklistFixture(tx)

	cfg, err := f.svc.SaveConfig(ctx, teacher, saveRequest(
		dto.MarklistColumnInput{Title: "Quiz", MaxMarks: floatPtr(10), Order: 1},
		dto.MarklistColumnInput{Title: "Essay", MaxMarks: floatPtr(10), Order: 2},
	))
	require.NoError(t, err)
	quiz, essay := cfg.Columns[0], cfg.Columns[1]

	_, err = f.svc.EnterMark(ctx, teacher, dto.EnterMarkRequest{ConfigID: cfg.ID, StudentID: "s-1", ColumnID: essay.ID, Score: floatPtr(5)})
	require.NoError(t, err)

	cfg, err = f.svc.SaveConfig(ctx, teacher, saveRequest(
		dto.MarklistColumnInput{ID: quiz.ID, Title: "Quiz 1", MaxMarks: floatPtr(20), Order: 1},
	))
	require.NoError(t, err)
	require.Len(t, cfg.Columns, 1)
	assert.Equal(t, "Quiz 1", cfg.Columns[0].Title)
	assert.Empty(t, f.store.marks)

	entry, err := f.store.FindEntry(ctx, nil, cfg.ID, "s-1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, entry.Total)
	assert.Equal(t, 20.0, entry.MaxCounted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarklistServiceSaveConfigRejectsUnknownColumn(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()
	f := newMarklistFixture(tx)

	_, err := f.svc.SaveConfig(context.Background(), teacher, saveRequest(
		dto.MarklistColumnInput{ID: "foreign", Title: "Quiz", MaxMarks: floatPtr(10)},
	))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "foreign", appErr.Details["column_id"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarklistServiceEnterMark(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	ctx := context.Background()
	f := newMarklistFixture(tx)
	cfg := seedMarklist(f.store)

	mock.ExpectBegin()
	mock.ExpectCommit()
	summary, err := f.svc.EnterMark(ctx, teacher, dto.EnterMarkRequest{ConfigID: cfg.ID, StudentID: "s-1", ColumnID: "col-quiz", Score: floatPtr(9)})
	require.NoError(t, err)
	assert.Equal(t, 9.0, summary.Total)
	assert.Equal(t, 10.0, summary.MaxCounted)
	assert.Equal(t, "A+", summary.Grade)

	summary, err = f.svc.EnterMark(ctx, teacher, dto.EnterMarkRequest{ConfigID: cfg.ID, StudentID: "s-1", ColumnID: "col-bonus", Score: floatPtr(1)})
	require.NoError(t, err)
	assert.Equal(t, 10.0, summary.Total)
	assert.Equal(t, 15.0, summary.MaxCounted)
	assert.InDelta(t, 66.666, summary.Percentage, 0.01)
	assert.Equal(t, "C", summary.Grade)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarklistServiceEnterMarkOutOfRange(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()
	f := newMarklistFixture(tx)
	cfg := seedMarklist(f.store)

	_, err := f.svc.EnterMark(context.Background(), teacher, dto.EnterMarkRequest{ConfigID: cfg.ID, StudentID: "s-1", ColumnID: "col-quiz", Score: floatPtr(11)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, f.store.marks)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarklistServiceEnterMarkLocked(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	f := newMarklistFixture(tx)
	cfg := seedMarklist(f.store)
	f.store.configs[cfg.ID].Locked = true

	_, err := f.svc.EnterMark(context.Background(), teacher, dto.EnterMarkRequest{ConfigID: cfg.ID, StudentID: "s-1", ColumnID: "col-quiz", Score: floatPtr(5)})
	assert.True(t, errors.Is(err, appErrors.ErrExamLocked))

	_, err = f.svc.EnterMark(context.Background(), admin, dto.EnterMarkRequest{ConfigID: cfg.ID, StudentID: "s-1", ColumnID: "col-quiz", Score: floatPtr(5)})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarklistServiceEnterMarkRejectsStudentOutsideRoster(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	f := newMarklistFixture(tx)
	cfg := seedMarklist(f.store)

	for _, studentID := range []string{"s-9", "ghost"} {
		_, err := f.svc.EnterMark(context.Background(), teacher, dto.EnterMarkRequest{ConfigID: cfg.ID, StudentID: studentID, ColumnID: "col-quiz", Score: floatPtr(5)})
		require.Error(t, err)
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
		assert.Equal(t, studentID, appErr.Details["student_id"])
	}
	f.store.configs[cfg.ID].ClassID = "class-2"
	_, err := f.svc.EnterMark(context.Background(), teacher, dto.EnterMarkRequest{ConfigID: cfg.ID, StudentID: "s-1", ColumnID: "col-quiz", Score: floatPtr(5)})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	assert.Empty(t, f.store.entries)
	assert.Empty(t, f.store.marks)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarklistServiceSaveConfigLockedRefusedBeforeTransaction(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	f := newMarklistFixture(tx)
	cfg := seedMarklist(f.store)
	f.store.configs[cfg.ID].Locked = true

	_, err := f.svc.SaveConfig(context.Background(), teacher, saveRequest(
		dto.MarklistColumnInput{ID: "col-quiz", Title: "Quiz", MaxMarks: floatPtr(20)},
	))
	assert.True(t, errors.Is(err, appErrors.ErrExamLocked))
	assert.Equal(t, 10.0, f.store.columns["col-quiz"].MaxMarks)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarklistServiceRecomputeIdempotent(t *testing.T) {
	tx, _ := newTxProviderMock(t)
	ctx := context.Background()
	f := newMarklistFixture(tx)
	cfg := seedMarklist(f.store)
	entryID, _ := f.store.UpsertEntry(ctx, nil, cfg.ID, "s-1")
	_ = f.store.UpsertMark(ctx, nil, &models.Mark{EntryID: entryID, ColumnID: "col-quiz", Score: 7})

	first, err := f.svc.Recompute(ctx, cfg.ID, "s-1")
	require.NoError(t, err)
	second, err := f.svc.Recompute(ctx, cfg.ID, "s-1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 70.0, first.Percentage)
	assert.Equal(t, "B", first.Grade)

	_, err = f.svc.Recompute(ctx, cfg.ID, "nobody")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestMarklistServiceReconcile(t *testing.T) {
	tx, _ := newTxProviderMock(t)
	f := newMarklistFixture(tx)
	cfg := seedMarklist(f.store)

	result, err := f.svc.Reconcile(context.Background(), cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)

	result, err = f.svc.Reconcile(context.Background(), cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
}

func TestMarklistServiceSetLocked(t *testing.T) {
	tx, _ := newTxProviderMock(t)
	ctx := context.Background()
	f := newMarklistFixture(tx)
	cfg := seedMarklist(f.store)
	_, _ = f.svc.Reconcile(ctx, cfg.ID)

	_, err := f.svc.SetLocked(ctx, teacher, cfg.ID, true)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	locked, err := f.svc.SetLocked(ctx, admin, cfg.ID, true)
	require.NoError(t, err)
	assert.True(t, locked.Locked)
	require.Equal(t, 2, f.notifier.count())
	assert.Equal(t, models.GradeSourceMarklist, f.notifier.sent[0].Source)
	assert.Equal(t, cfg.ID, f.notifier.sent[0].MarklistID)

	_, err = f.svc.SetLocked(ctx, admin, "missing", true)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestMarklistServiceExportCSV(t *testing.T) {
	tx, _ := newTxProviderMock(t)
	ctx := context.Background()
	f := newMarklistFixture(tx)
	cfg := seedMarklist(f.store)
	entryID, _ := f.store.UpsertEntry(ctx, nil, cfg.ID, "s-1")
	_ = f.store.UpsertMark(ctx, nil, &models.Mark{EntryID: entryID, ColumnID: "col-quiz", Score: 8})
	_, err := f.svc.Recompute(ctx, cfg.ID, "s-1")
	require.NoError(t, err)

	body, contentType, filename, err := f.svc.Export(ctx, cfg.ID, export.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.Equal(t, "marklist-class-1-bio.csv", filename)
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Student,Quiz,Bonus,Total,Percentage,Grade", lines[0])
	assert.Equal(t, "s-1,8,,8,80.00,A", lines[1])

	_, _, _, err = f.svc.Export(ctx, cfg.ID, export.Format("xlsx"))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func seedMarklist(store *marklistStoreMock) *models.MarklistConfig {
	cfg := &models.MarklistConfig{ID: "cfg-seed", SchoolID: "school-1", ClassID: "class-1", SubjectID: "bio"}
	store.configs[cfg.ID] = cfg
	store.columns["col-quiz"] = models.MarklistColumn{ID: "col-quiz", ConfigID: cfg.ID, Title: "Quiz", MaxMarks: 10, Position: 1}
	store.columns["col-bonus"] = models.MarklistColumn{ID: "col-bonus", ConfigID: cfg.ID, Title: "Bonus", MaxMarks: 5, Position: 2, IsOptional: true}
	return cfg
}
