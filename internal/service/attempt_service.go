package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-scoring-engine/internal/dto"
	"github.com/noah-isme/sma-scoring-engine/internal/grading"
	"github.com/noah-isme/sma-scoring-engine/internal/models"
	"github.com/noah-isme/sma-scoring-engine/internal/repository"
	appErrors "github.com/noah-isme/sma-scoring-engine/pkg/errors"
)

type examReader interface {
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	ListQuestions(ctx context.Context, examID string) ([]models.Question, error)
}

type attemptStore interface {
	FindByExamAndStudent(ctx context.Context, examID, studentID string) (*models.Attempt, error)
	SaveProgress(ctx context.Context, exec sqlx.ExtContext, attempt *models.Attempt) error
	Submit(ctx context.Context, exec sqlx.ExtContext, attempt *models.Attempt) error
}

type gradeRecordWriter interface {
	Upsert(ctx context.Context, exec sqlx.ExtContext, record *models.GradeRecord) error
}

type attendanceWriter interface {
	Upsert(ctx context.Context, exec sqlx.ExtContext, record *models.ExamAttendance) error
}

type writeAuthorizer interface {
	Authorize(ctx context.Context, target WriteTarget) error
	IsPrivileged(p models.Principal) bool
}

type questionScorer interface {
	Score(ctx context.Context, q models.Question, answer interface{}) (grading.Result, error)
}

// AttemptService grades submitted attempts and persists the outcome.
type AttemptService struct {
	exams       examReader
	attempts    attemptStore
	grades      gradeRecordWriter
	attendance  attendanceWriter
	guard       writeAuthorizer
	scorer      questionScorer
	tx          txProvider
	notifier    gradeNotifier
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	concurrency int
	now         func() time.Time
}

// AttemptServiceDeps bundles the collaborators of AttemptService.
type AttemptServiceDeps struct {
	Exams       examReader
	Attempts    attemptStore
	Grades      gradeRecordWriter
	Attendance  attendanceWriter
	Guard       writeAuthorizer
	Scorer      questionScorer
	Tx          txProvider
	Notifier    gradeNotifier
	Metrics     *MetricsService
	Validator   *validator.Validate
	Logger      *zap.Logger
	Concurrency int
}

// NewAttemptService constructs the attempt scorer.
func NewAttemptService(deps AttemptServiceDeps) *AttemptService {
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Notifier == nil {
		deps.Notifier = noopNotifier{}
	}
	if deps.Concurrency <= 0 {
		deps.Concurrency = 4
	}
	return &AttemptService{
		exams:       deps.Exams,
		attempts:    deps.Attempts,
		grades:      deps.Grades,
		attendance:  deps.Attendance,
		guard:       deps.Guard,
		scorer:      deps.Scorer,
		tx:          deps.Tx,
		notifier:    deps.Notifier,
		metrics:     deps.Metrics,
		validator:   deps.Validator,
		logger:      deps.Logger,
		concurrency: deps.Concurrency,
		now:         time.Now,
	}
}

// Submit grades every question of the exam and records the attempt, grade and attendance atomically.
func (s *AttemptService) Submit(ctx context.Context, principal models.Principal, req dto.SubmitAttemptRequest) (result *dto.AttemptResult, err error) {
	defer func() { s.metrics.RecordSubmission(submissionOutcome(err)) }()

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}

	exam, err := loadExam(ctx, s.exams, req.ExamID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(ctx, examWriteTarget(principal, exam)); err != nil {
		return nil, err
	}

	existing, err := s.attempts.FindByExamAndStudent(ctx, req.ExamID, req.StudentID)
	switch {
	case err == nil && existing.Status == models.AttemptStatusSubmitted:
		return nil, appErrors.Clone(appErrors.ErrAlreadySubmitted, "attempt already submitted")
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attempt")
	}

	questions, err := s.exams.ListQuestions(ctx, req.ExamID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load questions")
	}
	if err := grading.ValidateQuestions(questions); err != nil {
		return nil, err
	}

	start := time.Now()
	scores, err := s.gradeAll(ctx, questions, req.Answers)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveGrading(time.Since(start))

	var earned, total float64
	needsReview := false
	for _, sc := range scores {
		earned += sc.Earned
		total += sc.Points
		needsReview = needsReview || sc.NeedsReview
	}
	pct := roundScore(grading.PercentageOf(earned, total))

	answers, err := json.Marshal(req.Answers)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "answers are not serialisable")
	}
	breakdown, err := json.Marshal(scores)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode grading breakdown")
	}

	now := s.now().UTC()
	attempt := &models.Attempt{
		ExamID:          req.ExamID,
		StudentID:       req.StudentID,
		Answers:         types.JSONText(answers),
		Score:           pct,
		EarnedPoints:    earned,
		TotalPoints:     total,
		GradingMetadata: types.JSONText(breakdown),
		SubmittedAt:     &now,
	}
	record := &models.GradeRecord{
		StudentID:  req.StudentID,
		ExamID:     req.ExamID,
		Score:      pct,
		Remark:     fmt.Sprintf("earned %s of %s points", formatPoints(earned), formatPoints(total)),
		Source:     models.GradeSourceAttempt,
		RecordedBy: principal.UserID,
	}
	attendance := &models.ExamAttendance{
		ExamID:    req.ExamID,
		StudentID: req.StudentID,
		Status:    models.AttendanceStatusPresent,
		MarkedBy:  principal.UserID,
		MarkedAt:  now,
	}

	if err := s.persistSubmission(ctx, attempt, record, attendance); err != nil {
		return nil, err
	}

	s.notifier.Publish(ctx, models.GradeNotification{
		StudentID:        req.StudentID,
		SubjectID:        exam.SubjectID,
		ExamID:           exam.ID,
		Score:            pct,
		Grade:            grading.LetterGrade(pct),
		AttendanceStatus: models.AttendanceStatusPresent,
		Source:           models.GradeSourceAttempt,
		OccurredAt:       now,
	})

	return &dto.AttemptResult{
		AttemptID:     attempt.ID,
		ExamID:        attempt.ExamID,
		StudentID:     attempt.StudentID,
		Status:        models.AttemptStatusSubmitted,
		FinalScorePct: pct,
		EarnedPoints:  earned,
		TotalPoints:   total,
		NeedsReview:   needsReview,
		SubmittedAt:   attempt.SubmittedAt,
		Questions:     scores,
	}, nil
}

func (s *AttemptService) persistSubmission(ctx context.Context, attempt *models.Attempt, record *models.GradeRecord, attendance *models.ExamAttendance) (err error) {
	if s.tx == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Persistence(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.attempts.Submit(ctx, tx, attempt); err != nil {
		if errors.Is(err, repository.ErrAlreadySubmitted) {
			err = appErrors.Clone(appErrors.ErrAlreadySubmitted, "attempt already submitted")
			return err
		}
		s.logger.Error("persist attempt failed", zap.String("exam_id", attempt.ExamID), zap.String("student_id", attempt.StudentID), zap.Error(err))
		err = appErrors.Persistence(err, "failed to persist attempt")
		return err
	}
	if err = s.grades.Upsert(ctx, tx, record); err != nil {
		s.logger.Error("persist grade record failed", zap.String("exam_id", record.ExamID), zap.Error(err))
		err = appErrors.Persistence(err, "failed to persist grade record")
		return err
	}
	if err = s.attendance.Upsert(ctx, tx, attendance); err != nil {
		s.logger.Error("persist attendance failed", zap.String("exam_id", attendance.ExamID), zap.Error(err))
		err = appErrors.Persistence(err, "failed to persist attendance")
		return err
	}
	if err = tx.Commit(); err != nil {
		s.logger.Error("commit submission failed", zap.String("exam_id", attempt.ExamID), zap.Error(err))
		err = appErrors.Persistence(err, "failed to commit submission")
		return err
	}
	return nil
}

// gradeAll scores questions concurrently, preserving question order in the result.
func (s *AttemptService) gradeAll(ctx context.Context, questions []models.Question, answers map[string]interface{}) ([]models.QuestionScore, error) {
	scores := make([]models.QuestionScore, len(questions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i := range questions {
		i, q := i, questions[i]
		g.Go(func() error {
			res, err := s.scorer.Score(gctx, q, answers[q.ID])
			if err != nil {
				return err
			}
			if q.Type == models.QuestionTypeLongAnswer {
				if res.EvaluationFailed {
					s.metrics.RecordEssayEvaluation("failed")
					s.logger.Warn("essay evaluation failed", zap.String("question_id", q.ID), zap.String("feedback", res.Feedback))
				} else if answers[q.ID] != nil {
					s.metrics.RecordEssayEvaluation("success")
				}
			}
			scores[i] = models.QuestionScore{
				QuestionID:       q.ID,
				Type:             q.Type,
				Earned:           res.Earned,
				Points:           q.Points,
				Feedback:         res.Feedback,
				NeedsReview:      res.NeedsReview,
				EvaluationFailed: res.EvaluationFailed,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to grade attempt")
	}
	return scores, nil
}

// SaveProgress stores draft answers. Submitted attempts cannot be reopened.
func (s *AttemptService) SaveProgress(ctx context.Context, principal models.Principal, req dto.SaveProgressRequest) (*models.Attempt, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid progress payload")
	}
	exam, err := loadExam(ctx, s.exams, req.ExamID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(ctx, examWriteTarget(principal, exam)); err != nil {
		return nil, err
	}

	answers := req.Answers
	if answers == nil {
		answers = map[string]interface{}{}
	}
	payload, err := json.Marshal(answers)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "answers are not serialisable")
	}

	attempt := &models.Attempt{ExamID: req.ExamID, StudentID: req.StudentID, Answers: types.JSONText(payload)}
	if err := s.attempts.SaveProgress(ctx, nil, attempt); err != nil {
		if errors.Is(err, repository.ErrAlreadySubmitted) {
			return nil, appErrors.Clone(appErrors.ErrAlreadySubmitted, "attempt already submitted")
		}
		return nil, appErrors.Persistence(err, "failed to save attempt progress")
	}
	return attempt, nil
}

// Get returns a student's attempt with its graded breakdown.
func (s *AttemptService) Get(ctx context.Context, examID, studentID string) (*dto.AttemptResult, error) {
	attempt, err := s.attempts.FindByExamAndStudent(ctx, examID, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attempt not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attempt")
	}
	scores, err := attempt.Breakdown()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "corrupt grading metadata")
	}
	needsReview := false
	for _, sc := range scores {
		needsReview = needsReview || sc.NeedsReview
	}
	return &dto.AttemptResult{
		AttemptID:     attempt.ID,
		ExamID:        attempt.ExamID,
		StudentID:     attempt.StudentID,
		Status:        attempt.Status,
		FinalScorePct: attempt.Score,
		EarnedPoints:  attempt.EarnedPoints,
		TotalPoints:   attempt.TotalPoints,
		NeedsReview:   needsReview,
		SubmittedAt:   attempt.SubmittedAt,
		Questions:     scores,
	}, nil
}

func examWriteTarget(principal models.Principal, exam *models.Exam) WriteTarget {
	target := WriteTarget{Principal: principal, SchoolID: exam.SchoolID, Locked: exam.Locked, Date: exam.ExamDate}
	if exam.PeriodID != nil {
		target.PeriodID = *exam.PeriodID
	}
	return target
}

func submissionOutcome(err error) string {
	if err == nil {
		return "success"
	}
	return appErrors.FromError(err).Code
}

// roundScore keeps two decimals for storage.
func roundScore(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

func formatPoints(v float64) string {
	return fmt.Sprintf("%g", math.Round(v*100)/100)
}
