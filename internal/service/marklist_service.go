package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scoring-engine/internal/dto"
	"github.com/noah-isme/sma-scoring-engine/internal/grading"
	"github.com/noah-isme/sma-scoring-engine/internal/models"
	appErrors "github.com/noah-isme/sma-scoring-engine/pkg/errors"
	"github.com/noah-isme/sma-scoring-engine/pkg/export"
)

type marklistStore interface {
	FindConfigByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.MarklistConfig, error)
	FindConfigByScope(ctx context.Context, classID, subjectID string) (*models.MarklistConfig, error)
	UpsertConfig(ctx context.Context, exec sqlx.ExtContext, cfg *models.MarklistConfig) error
	SetLocked(ctx context.Context, id string, locked bool) error
	ListColumns(ctx context.Context, exec sqlx.ExtContext, configID string) ([]models.MarklistColumn, error)
	CreateColumn(ctx context.Context, exec sqlx.ExtContext, col *models.MarklistColumn) error
	UpdateColumn(ctx context.Context, exec sqlx.ExtContext, col *models.MarklistColumn) error
	DeleteColumns(ctx context.Context, exec sqlx.ExtContext, configID string, columnIDs []string) error
	EnsureEntries(ctx context.Context, exec sqlx.ExtContext, configID string, studentIDs []string) (int, error)
	UpsertEntry(ctx context.Context, exec sqlx.ExtContext, configID, studentID string) (string, error)
	FindEntry(ctx context.Context, exec sqlx.ExtContext, configID, studentID string) (*models.MarklistEntry, error)
	ListEntries(ctx context.Context, exec sqlx.ExtContext, configID string) ([]models.MarklistEntry, error)
	UpsertMark(ctx context.Context, exec sqlx.ExtContext, mark *models.Mark) error
	ListMarks(ctx context.Context, exec sqlx.ExtContext, entryID string) ([]models.Mark, error)
	ListMarksByConfig(ctx context.Context, exec sqlx.ExtContext, configID string) (map[string][]models.Mark, error)
	UpdateEntryTotals(ctx context.Context, exec sqlx.ExtContext, entry *models.MarklistEntry) error
}

type rosterReader interface {
	ListActiveStudentIDs(ctx context.Context, exec sqlx.ExtContext, classID string) ([]string, error)
	IsActive(ctx context.Context, classID, studentID string) (bool, error)
}

// MarklistService maintains rubric marklists and their derived totals.
type MarklistService struct {
	store     marklistStore
	roster    rosterReader
	guard     writeAuthorizer
	tx        txProvider
	notifier  gradeNotifier
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewMarklistService constructs the marklist aggregator.
func NewMarklistService(store marklistStore, roster rosterReader, guard writeAuthorizer, tx txProvider, notifier gradeNotifier, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *MarklistService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &MarklistService{
		store:     store,
		roster:    roster,
		guard:     guard,
		tx:        tx,
		notifier:  notifier,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// SaveConfig upserts the class+subject config, reconciles its columns against the
// request, creates missing entries for active students and recomputes every entry.
func (s *MarklistService) SaveConfig(ctx context.Context, principal models.Principal, req dto.SaveMarklistConfigRequest) (cfg *models.MarklistConfig, err error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid marklist configuration")
	}
	if req.SchoolID == "" {
		req.SchoolID = principal.SchoolID
	}

	// The guard reads policies outside the transaction, so it runs before begin.
	target := WriteTarget{Principal: principal, SchoolID: req.SchoolID}
	existing, err := s.store.FindConfigByScope(ctx, req.ClassID, req.SubjectID)
	switch {
	case err == nil:
		target.SchoolID = existing.SchoolID
		target.Locked = existing.Locked
	case !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load marklist config")
	}
	if err = s.guard.Authorize(ctx, target); err != nil {
		return nil, err
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	cfg = &models.MarklistConfig{SchoolID: req.SchoolID, ClassID: req.ClassID, SubjectID: req.SubjectID}
	if err = s.store.UpsertConfig(ctx, tx, cfg); err != nil {
		err = appErrors.Persistence(err, "failed to save marklist config")
		return nil, err
	}
	if cfg.Locked && !s.guard.IsPrivileged(principal) {
		err = appErrors.Clone(appErrors.ErrExamLocked, "marklist is locked")
		return nil, err
	}

	if err = s.reconcileColumns(ctx, tx, cfg.ID, req.Columns); err != nil {
		return nil, err
	}
	if _, err = s.ensureEntries(ctx, tx, cfg.ID, cfg.ClassID); err != nil {
		return nil, err
	}
	if cfg.Columns, err = s.store.ListColumns(ctx, tx, cfg.ID); err != nil {
		err = appErrors.Persistence(err, "failed to reload marklist columns")
		return nil, err
	}
	if _, err = s.recomputeAll(ctx, tx, cfg); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Persistence(err, "failed to commit marklist config")
		return nil, err
	}
	return cfg, nil
}

// reconcileColumns applies the declared column set: id-less inputs are created,
// stored columns missing from the input are deleted with their marks, the rest updated.
func (s *MarklistService) reconcileColumns(ctx context.Context, exec sqlx.ExtContext, configID string, inputs []dto.MarklistColumnInput) error {
	existing, err := s.store.ListColumns(ctx, exec, configID)
	if err != nil {
		return appErrors.Persistence(err, "failed to load marklist columns")
	}
	known := make(map[string]struct{}, len(existing))
	for _, col := range existing {
		known[col.ID] = struct{}{}
	}

	kept := make(map[string]struct{}, len(inputs))
	for i, in := range inputs {
		col := models.MarklistColumn{
			ID:         in.ID,
			ConfigID:   configID,
			Title:      in.Title,
			MaxMarks:   *in.MaxMarks,
			Position:   in.Order,
			IsOptional: in.IsOptional,
		}
		if col.Position == 0 {
			col.Position = i + 1
		}
		if in.ID == "" {
			if err := s.store.CreateColumn(ctx, exec, &col); err != nil {
				return appErrors.Persistence(err, "failed to create marklist column")
			}
			continue
		}
		if _, ok := known[in.ID]; !ok {
			return appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "column does not belong to this marklist"), map[string]interface{}{"column_id": in.ID})
		}
		if _, dup := kept[in.ID]; dup {
			return appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "column listed more than once"), map[string]interface{}{"column_id": in.ID})
		}
		kept[in.ID] = struct{}{}
		if err := s.store.UpdateColumn(ctx, exec, &col); err != nil {
			return appErrors.Persistence(err, "failed to update marklist column")
		}
	}

	var removed []string
	for _, col := range existing {
		if _, ok := kept[col.ID]; !ok {
			removed = append(removed, col.ID)
		}
	}
	if len(removed) > 0 {
		if err := s.store.DeleteColumns(ctx, exec, configID, removed); err != nil {
			return appErrors.Persistence(err, "failed to delete marklist columns")
		}
	}
	return nil
}

// Reconcile lazily creates entries for every active student of the class.
func (s *MarklistService) Reconcile(ctx context.Context, configID string) (*dto.ReconcileResult, error) {
	cfg, err := s.loadConfig(ctx, nil, configID)
	if err != nil {
		return nil, err
	}
	created, err := s.ensureEntries(ctx, nil, cfg.ID, cfg.ClassID)
	if err != nil {
		return nil, err
	}
	if created > 0 {
		s.logger.Info("marklist entries created", zap.String("config_id", cfg.ID), zap.Int("created", created))
	}
	return &dto.ReconcileResult{ConfigID: cfg.ID, Created: created}, nil
}

func (s *MarklistService) ensureEntries(ctx context.Context, exec sqlx.ExtContext, configID, classID string) (int, error) {
	students, err := s.roster.ListActiveStudentIDs(ctx, exec, classID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class roster")
	}
	created, err := s.store.EnsureEntries(ctx, exec, configID, students)
	if err != nil {
		return created, appErrors.Persistence(err, "failed to create marklist entries")
	}
	return created, nil
}

// EnterMark records a column score and recomputes the entry within one transaction.
func (s *MarklistService) EnterMark(ctx context.Context, principal models.Principal, req dto.EnterMarkRequest) (summary *dto.EntrySummary, err error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mark payload")
	}

	cfg, err := s.loadConfig(ctx, nil, req.ConfigID)
	if err != nil {
		return nil, err
	}
	if err = s.guard.Authorize(ctx, WriteTarget{Principal: principal, SchoolID: cfg.SchoolID, Locked: cfg.Locked}); err != nil {
		return nil, err
	}
	active, err := s.roster.IsActive(ctx, cfg.ClassID, req.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class roster")
	}
	if !active {
		return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "student is not actively enrolled in this class"), map[string]interface{}{"student_id": req.StudentID})
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Reload under the transaction so a lock or column change since the checks above is honoured.
	if cfg, err = s.loadConfig(ctx, tx, req.ConfigID); err != nil {
		return nil, err
	}
	if cfg.Locked && !s.guard.IsPrivileged(principal) {
		err = appErrors.Clone(appErrors.ErrExamLocked, "marklist is locked")
		return nil, err
	}

	column, ok := findColumn(cfg.Columns, req.ColumnID)
	if !ok {
		err = appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "column does not belong to this marklist"), map[string]interface{}{"column_id": req.ColumnID})
		return nil, err
	}
	if score := *req.Score; score < 0 || score > column.MaxMarks {
		err = appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("score must be between 0 and %g", column.MaxMarks)),
			map[string]interface{}{"column_id": column.ID, "max_marks": column.MaxMarks},
		)
		return nil, err
	}

	entryID, err := s.store.UpsertEntry(ctx, tx, cfg.ID, req.StudentID)
	if err != nil {
		err = appErrors.Persistence(err, "failed to save marklist entry")
		return nil, err
	}
	if err = s.store.UpsertMark(ctx, tx, &models.Mark{EntryID: entryID, ColumnID: column.ID, Score: *req.Score}); err != nil {
		err = appErrors.Persistence(err, "failed to save mark")
		return nil, err
	}

	summary, err = s.recomputeEntry(ctx, tx, cfg, entryID, req.StudentID)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Persistence(err, "failed to commit mark")
		return nil, err
	}
	s.metrics.RecordRecompute(1)
	return summary, nil
}

// Recompute rebuilds a student's totals from the full mark set. Repeated calls are idempotent.
func (s *MarklistService) Recompute(ctx context.Context, configID, studentID string) (*dto.EntrySummary, error) {
	cfg, err := s.loadConfig(ctx, nil, configID)
	if err != nil {
		return nil, err
	}
	entry, err := s.store.FindEntry(ctx, nil, cfg.ID, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "marklist entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load marklist entry")
	}
	summary, err := s.recomputeEntry(ctx, nil, cfg, entry.ID, studentID)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordRecompute(1)
	return summary, nil
}

func (s *MarklistService) recomputeEntry(ctx context.Context, exec sqlx.ExtContext, cfg *models.MarklistConfig, entryID, studentID string) (*dto.EntrySummary, error) {
	marks, err := s.store.ListMarks(ctx, exec, entryID)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load marks")
	}
	entry := applySummary(entryID, cfg.ID, studentID, grading.AggregateMarks(cfg.Columns, marks))
	if err := s.store.UpdateEntryTotals(ctx, exec, &entry); err != nil {
		return nil, appErrors.Persistence(err, "failed to store marklist totals")
	}
	return entrySummary(entry), nil
}

func (s *MarklistService) recomputeAll(ctx context.Context, exec sqlx.ExtContext, cfg *models.MarklistConfig) (int, error) {
	entries, err := s.store.ListEntries(ctx, exec, cfg.ID)
	if err != nil {
		return 0, appErrors.Persistence(err, "failed to load marklist entries")
	}
	marks, err := s.store.ListMarksByConfig(ctx, exec, cfg.ID)
	if err != nil {
		return 0, appErrors.Persistence(err, "failed to load marks")
	}
	for _, e := range entries {
		entry := applySummary(e.ID, cfg.ID, e.StudentID, grading.AggregateMarks(cfg.Columns, marks[e.ID]))
		if err := s.store.UpdateEntryTotals(ctx, exec, &entry); err != nil {
			return 0, appErrors.Persistence(err, "failed to store marklist totals")
		}
	}
	s.metrics.RecordRecompute(len(entries))
	return len(entries), nil
}

// Get returns the config with all entries and their marks.
func (s *MarklistService) Get(ctx context.Context, configID string) (*models.MarklistSheet, error) {
	cfg, err := s.loadConfig(ctx, nil, configID)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.ListEntries(ctx, nil, cfg.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load marklist entries")
	}
	marks, err := s.store.ListMarksByConfig(ctx, nil, cfg.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load marks")
	}
	for i := range entries {
		entries[i].Marks = marks[entries[i].ID]
	}
	return &models.MarklistSheet{Config: *cfg, Entries: entries}, nil
}

// SetLocked toggles the marklist lock. Locking publishes every entry as final.
func (s *MarklistService) SetLocked(ctx context.Context, principal models.Principal, configID string, locked bool) (*models.MarklistConfig, error) {
	if !s.guard.IsPrivileged(principal) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can lock marklists")
	}
	if err := s.store.SetLocked(ctx, configID, locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "marklist not found")
		}
		return nil, appErrors.Persistence(err, "failed to update marklist lock")
	}
	cfg, err := s.loadConfig(ctx, nil, configID)
	if err != nil {
		return nil, err
	}
	if !locked {
		return cfg, nil
	}

	entries, err := s.store.ListEntries(ctx, nil, cfg.ID)
	if err != nil {
		s.logger.Warn("marklist locked but entries could not be published", zap.String("config_id", cfg.ID), zap.Error(err))
		return cfg, nil
	}
	now := s.now().UTC()
	for _, e := range entries {
		s.notifier.Publish(ctx, models.GradeNotification{
			StudentID:  e.StudentID,
			SubjectID:  cfg.SubjectID,
			MarklistID: cfg.ID,
			Score:      e.Percentage,
			Grade:      e.Grade,
			Source:     models.GradeSourceMarklist,
			OccurredAt: now,
		})
	}
	return cfg, nil
}

// Export renders the sheet as CSV or PDF. It returns the body, content type and file name.
func (s *MarklistService) Export(ctx context.Context, configID string, format export.Format) ([]byte, string, string, error) {
	renderer, err := export.RendererFor(format)
	if err != nil {
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	sheet, err := s.Get(ctx, configID)
	if err != nil {
		return nil, "", "", err
	}
	body, err := renderer.Render(sheetDataset(sheet))
	if err != nil {
		return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render marklist")
	}
	filename := fmt.Sprintf("marklist-%s-%s.%s", sheet.Config.ClassID, sheet.Config.SubjectID, renderer.Extension())
	return body, renderer.ContentType(), filename, nil
}

func sheetDataset(sheet *models.MarklistSheet) export.Dataset {
	columns := append([]models.MarklistColumn(nil), sheet.Config.Columns...)
	sort.SliceStable(columns, func(i, j int) bool { return columns[i].Position < columns[j].Position })

	headers := []string{"Student"}
	for _, col := range columns {
		headers = append(headers, col.Title)
	}
	headers = append(headers, "Total", "Percentage", "Grade")

	rows := make([]map[string]string, 0, len(sheet.Entries))
	for _, e := range sheet.Entries {
		row := map[string]string{
			"Student":    e.StudentID,
			"Total":      strconv.FormatFloat(e.Total, 'f', -1, 64),
			"Percentage": strconv.FormatFloat(e.Percentage, 'f', 2, 64),
			"Grade":      e.Grade,
		}
		for _, m := range e.Marks {
			if col, ok := findColumn(columns, m.ColumnID); ok {
				row[col.Title] = strconv.FormatFloat(m.Score, 'f', -1, 64)
			}
		}
		rows = append(rows, row)
	}
	return export.Dataset{
		Title:   fmt.Sprintf("Marklist %s / %s", sheet.Config.ClassID, sheet.Config.SubjectID),
		Headers: headers,
		Rows:    rows,
	}
}

func (s *MarklistService) loadConfig(ctx context.Context, exec sqlx.ExtContext, configID string) (*models.MarklistConfig, error) {
	cfg, err := s.store.FindConfigByID(ctx, exec, configID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "marklist not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load marklist")
	}
	return cfg, nil
}

func (s *MarklistService) begin(ctx context.Context) (*sqlx.Tx, error) {
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to begin transaction")
	}
	return tx, nil
}

func findColumn(columns []models.MarklistColumn, id string) (models.MarklistColumn, bool) {
	for _, col := range columns {
		if col.ID == id {
			return col, true
		}
	}
	return models.MarklistColumn{}, false
}

func applySummary(entryID, configID, studentID string, sum grading.MarklistSummary) models.MarklistEntry {
	return models.MarklistEntry{
		ID:         entryID,
		ConfigID:   configID,
		StudentID:  studentID,
		Total:      sum.Total,
		MaxCounted: sum.MaxCounted,
		Percentage: sum.Percentage,
		Grade:      sum.Grade,
	}
}

func entrySummary(e models.MarklistEntry) *dto.EntrySummary {
	return &dto.EntrySummary{
		EntryID:    e.ID,
		StudentID:  e.StudentID,
		Total:      e.Total,
		MaxCounted: e.MaxCounted,
		Percentage: e.Percentage,
		Grade:      e.Grade,
	}
}
