package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-scoring-engine/internal/models"
	appErrors "github.com/noah-isme/sma-scoring-engine/pkg/errors"
)

type examLocker interface {
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	SetLocked(ctx context.Context, id string, locked bool) error
}

type privilegeChecker interface {
	IsPrivileged(p models.Principal) bool
}

// ExamService exposes exam level administration.
type ExamService struct {
	exams  examLocker
	roles  privilegeChecker
	logger *zap.Logger
}

// NewExamService constructs an ExamService.
func NewExamService(exams examLocker, roles privilegeChecker, logger *zap.Logger) *ExamService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExamService{exams: exams, roles: roles, logger: logger}
}

// Get returns an exam by id.
func (s *ExamService) Get(ctx context.Context, id string) (*models.Exam, error) {
	return loadExam(ctx, s.exams, id)
}

// SetLocked toggles the grading lock of an exam.
func (s *ExamService) SetLocked(ctx context.Context, principal models.Principal, id string, locked bool) (*models.Exam, error) {
	if !s.roles.IsPrivileged(principal) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can lock exams")
	}
	if err := s.exams.SetLocked(ctx, id, locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update exam lock")
	}
	s.logger.Info("exam lock changed", zap.String("exam_id", id), zap.Bool("locked", locked), zap.String("user_id", principal.UserID))
	return loadExam(ctx, s.exams, id)
}

func loadExam(ctx context.Context, exams examFinder, id string) (*models.Exam, error) {
	exam, err := exams.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	return exam, nil
}
