package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-scoring-engine/internal/models"
)

func TestMarklistRepositoryUpsertConfigReturnsExistingID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMarklistRepository(db)

	mock.ExpectQuery(`INSERT INTO marklist_configs .*ON CONFLICT \(class_id, subject_id\).*RETURNING id, locked`).
		WithArgs(sqlmock.AnyArg(), "school-1", "class-1", "math", false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "locked"}).AddRow("cfg-1", true))

	cfg := &models.MarklistConfig{SchoolID: "school-1", ClassID: "class-1", SubjectID: "math"}
	require.NoError(t, repo.UpsertConfig(context.Background(), nil, cfg))
	assert.Equal(t, "cfg-1", cfg.ID)
	assert.True(t, cfg.Locked)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarklistRepositoryDeleteColumnsCascadesMarks(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMarklistRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM marklist_marks WHERE column_id IN (SELECT id FROM marklist_columns WHERE config_id = $1 AND id IN ($2,$3))")).
		WithArgs("cfg-1", "col-a", "col-b").
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM marklist_columns WHERE config_id = $1 AND id IN ($2,$3)")).
		WithArgs("cfg-1", "col-a", "col-b").
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.DeleteColumns(context.Background(), nil, "cfg-1", []string{"col-a", "col-b"}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarklistRepositoryDeleteColumnsNoop(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMarklistRepository(db)

	require.NoError(t, repo.DeleteColumns(context.Background(), nil, "cfg-1", nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarklistRepositoryEnsureEntries(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMarklistRepository(db)

	mock.ExpectExec(`INSERT INTO marklist_entries .*DO NOTHING`).
		WithArgs(sqlmock.AnyArg(), "cfg-1", "stu-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO marklist_entries .*DO NOTHING`).
		WithArgs(sqlmock.AnyArg(), "cfg-1", "stu-2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	created, err := repo.EnsureEntries(context.Background(), nil, "cfg-1", []string{"stu-1", "stu-2"})
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarklistRepositoryListMarksByConfig(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMarklistRepository(db)

	now := time.Now()
	mock.ExpectQuery(`SELECT m.id, m.entry_id, m.column_id, m.score, m.updated_at\s+FROM marklist_marks m`).
		WithArgs("cfg-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "entry_id", "column_id", "score", "updated_at"}).
			AddRow("m-1", "e-1", "c-1", 8.0, now).
			AddRow("m-2", "e-1", "c-2", 4.0, now).
			AddRow("m-3", "e-2", "c-1", 9.0, now))

	byEntry, err := repo.ListMarksByConfig(context.Background(), nil, "cfg-1")
	require.NoError(t, err)
	assert.Len(t, byEntry["e-1"], 2)
	assert.Len(t, byEntry["e-2"], 1)
}

func TestMarklistRepositoryUpsertMark(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMarklistRepository(db)

	mock.ExpectExec(`INSERT INTO marklist_marks .*ON CONFLICT \(entry_id, column_id\)`).
		WithArgs(sqlmock.AnyArg(), "e-1", "c-1", 7.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mark := &models.Mark{EntryID: "e-1", ColumnID: "c-1", Score: 7}
	require.NoError(t, repo.UpsertMark(context.Background(), nil, mark))
	assert.NotEmpty(t, mark.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
