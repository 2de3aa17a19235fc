package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scoring-engine/internal/dto"
	"github.com/noah-isme/sma-scoring-engine/internal/grading"
	"github.com/noah-isme/sma-scoring-engine/internal/models"
	appErrors "github.com/noah-isme/sma-scoring-engine/pkg/errors"
)

type examFinder interface {
	FindByID(ctx context.Context, id string) (*models.Exam, error)
}

type gradeRecordStore interface {
	gradeRecordWriter
	FindByExamAndStudent(ctx context.Context, examID, studentID string) (*models.GradeRecord, error)
}

// GradeRecordService records manually entered exam grades.
type GradeRecordService struct {
	exams      examFinder
	grades     gradeRecordStore
	attendance attendanceWriter
	guard      writeAuthorizer
	tx         txProvider
	notifier   gradeNotifier
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewGradeRecordService constructs the manual grade entry service.
func NewGradeRecordService(exams examFinder, grades gradeRecordStore, attendance attendanceWriter, guard writeAuthorizer, tx txProvider, notifier gradeNotifier, validate *validator.Validate, logger *zap.Logger) *GradeRecordService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &GradeRecordService{
		exams:      exams,
		grades:     grades,
		attendance: attendance,
		guard:      guard,
		tx:         tx,
		notifier:   notifier,
		validator:  validate,
		logger:     logger,
	}
}

// RecordManual upserts a MANUAL grade and the exam attendance in one transaction.
func (s *GradeRecordService) RecordManual(ctx context.Context, principal models.Principal, req dto.RecordManualGradeRequest) (result *dto.ManualGradeResult, err error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}

	exam, err := loadExam(ctx, s.exams, req.ExamID)
	if err != nil {
		return nil, err
	}
	target := examWriteTarget(principal, exam)
	if req.Date != nil {
		target.Date = req.Date
	}
	if err := s.guard.Authorize(ctx, target); err != nil {
		return nil, err
	}

	status := req.AttendanceStatus
	if status == "" {
		status = models.AttendanceStatusPresent
	}
	record := &models.GradeRecord{
		StudentID:  req.StudentID,
		ExamID:     req.ExamID,
		Score:      *req.Score,
		Remark:     req.Remark,
		Source:     models.GradeSourceManual,
		RecordedBy: principal.UserID,
	}
	attendance := &models.ExamAttendance{
		ExamID:    req.ExamID,
		StudentID: req.StudentID,
		Status:    status,
		MarkedBy:  principal.UserID,
	}

	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.grades.Upsert(ctx, tx, record); err != nil {
		s.logger.Error("persist manual grade failed", zap.String("exam_id", req.ExamID), zap.String("student_id", req.StudentID), zap.Error(err))
		err = appErrors.Persistence(err, "failed to persist grade record")
		return nil, err
	}
	if err = s.attendance.Upsert(ctx, tx, attendance); err != nil {
		s.logger.Error("persist attendance failed", zap.String("exam_id", req.ExamID), zap.Error(err))
		err = appErrors.Persistence(err, "failed to persist attendance")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Persistence(err, "failed to commit grade")
		return nil, err
	}

	s.notifier.Publish(ctx, models.GradeNotification{
		StudentID:        record.StudentID,
		SubjectID:        exam.SubjectID,
		ExamID:           exam.ID,
		Score:            record.Score,
		Grade:            grading.LetterGrade(record.Score),
		AttendanceStatus: attendance.Status,
		Source:           models.GradeSourceManual,
		OccurredAt:       record.UpdatedAt,
	})

	return &dto.ManualGradeResult{Grade: *record, Attendance: *attendance}, nil
}

// Get returns the stored grade of a student for an exam, whichever source wrote it.
func (s *GradeRecordService) Get(ctx context.Context, examID, studentID string) (*models.GradeRecord, error) {
	if _, err := loadExam(ctx, s.exams, examID); err != nil {
		return nil, err
	}
	record, err := s.grades.FindByExamAndStudent(ctx, examID, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade record")
	}
	return record, nil
}
