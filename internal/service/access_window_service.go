package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scoring-engine/internal/dto"
	"github.com/noah-isme/sma-scoring-engine/internal/grading"
	"github.com/noah-isme/sma-scoring-engine/internal/models"
	appErrors "github.com/noah-isme/sma-scoring-engine/pkg/errors"
)

type schoolPolicyRepo interface {
	Find(ctx context.Context, schoolID string) (*models.GradingWindowPolicy, error)
	Upsert(ctx context.Context, policy *models.GradingWindowPolicy) error
}

type periodReader interface {
	FindByID(ctx context.Context, id string) (*models.Period, error)
}

// WindowDefaults apply to schools without an explicit policy.
// A non-positive LockAfterMinutes means no window is enforced by default.
type WindowDefaults struct {
	LockAfterMinutes int
	Timezone         string
	BypassRoles      []models.UserRole
	CacheTTL         time.Duration
}

// WriteTarget describes a grading or attendance write for the guard.
type WriteTarget struct {
	Principal models.Principal
	SchoolID  string
	Locked    bool
	PeriodID  string
	Date      *time.Time
}

// AccessWindowService decides whether grading writes are currently permitted.
type AccessWindowService struct {
	policies  schoolPolicyRepo
	periods   periodReader
	cache     *CacheService
	metrics   *MetricsService
	defaults  WindowDefaults
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAccessWindowService constructs the guard.
func NewAccessWindowService(policies schoolPolicyRepo, periods periodReader, cache *CacheService, metrics *MetricsService, defaults WindowDefaults, validate *validator.Validate, logger *zap.Logger) *AccessWindowService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaults.Timezone == "" {
		defaults.Timezone = "UTC"
	}
	if len(defaults.BypassRoles) == 0 {
		defaults.BypassRoles = []models.UserRole{models.RoleSuperAdmin, models.RoleAdmin}
	}
	return &AccessWindowService{
		policies:  policies,
		periods:   periods,
		cache:     cache,
		metrics:   metrics,
		defaults:  defaults,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// IsPrivileged reports whether the principal bypasses locks and windows.
func (s *AccessWindowService) IsPrivileged(p models.Principal) bool {
	return p.HasRole(s.defaults.BypassRoles...)
}

// Policy returns the effective policy of a school, defaults applied.
func (s *AccessWindowService) Policy(ctx context.Context, schoolID string) (*models.GradingWindowPolicy, error) {
	policy, err := Remember(ctx, s.cache, policyCacheKey(schoolID), s.defaults.CacheTTL, func(ctx context.Context) (models.GradingWindowPolicy, error) {
		return s.loadPolicy(ctx, schoolID)
	})
	if err != nil {
		return nil, err
	}
	return &policy, nil
}

func (s *AccessWindowService) loadPolicy(ctx context.Context, schoolID string) (models.GradingWindowPolicy, error) {
	fallback := models.GradingWindowPolicy{SchoolID: schoolID, Timezone: s.defaults.Timezone}
	if s.defaults.LockAfterMinutes > 0 {
		limit := s.defaults.LockAfterMinutes
		fallback.LockAfterMinutes = &limit
	}
	if schoolID == "" || s.policies == nil {
		return fallback, nil
	}
	stored, err := s.policies.Find(ctx, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fallback, nil
		}
		return models.GradingWindowPolicy{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grading policy")
	}
	if stored.Timezone == "" {
		stored.Timezone = s.defaults.Timezone
	}
	return *stored, nil
}

// CheckWritable evaluates the guard without turning denials into errors.
func (s *AccessWindowService) CheckWritable(ctx context.Context, target WriteTarget) (grading.Decision, error) {
	if s.IsPrivileged(target.Principal) {
		return grading.Decision{Allowed: true}, nil
	}

	policy, err := s.Policy(ctx, target.SchoolID)
	if err != nil {
		return grading.Decision{}, err
	}

	wc := grading.WriteContext{Principal: target.Principal, Locked: target.Locked}
	if target.Date != nil {
		wc.TargetDate = *target.Date
	}
	if target.PeriodID != "" && policy.LockAfterMinutes != nil && !target.Locked {
		period, err := s.periods.FindByID(ctx, target.PeriodID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return grading.Decision{}, appErrors.Clone(appErrors.ErrNotFound, "period not found")
			}
			return grading.Decision{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load period")
		}
		wc.PeriodStart = period.StartTime
	}

	decision, err := grading.CheckWindow(grading.WindowPolicy{
		LockAfterMinutes: policy.LockAfterMinutes,
		Location:         s.location(policy.Timezone),
		BypassRoles:      s.defaults.BypassRoles,
	}, wc, s.now())
	if err != nil {
		return grading.Decision{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "invalid period start time")
	}
	return decision, nil
}

// Authorize returns EXAM_LOCKED or WINDOW_EXPIRED when the write is refused.
func (s *AccessWindowService) Authorize(ctx context.Context, target WriteTarget) error {
	decision, err := s.CheckWritable(ctx, target)
	if err != nil {
		return err
	}
	if decision.Allowed {
		return nil
	}

	s.metrics.RecordWriteDenial(string(decision.Reason))
	s.logger.Info("grading write denied",
		zap.String("user_id", target.Principal.UserID),
		zap.String("reason", string(decision.Reason)),
		zap.Int("minutes_elapsed", decision.MinutesElapsed),
		zap.Int("limit_minutes", decision.LimitMinutes),
	)

	switch decision.Reason {
	case grading.DenyExamLocked:
		return appErrors.Clone(appErrors.ErrExamLocked, "grading is locked")
	default:
		return appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrWindowExpired, fmt.Sprintf("write window closed %d minutes after period start", decision.LimitMinutes)),
			map[string]interface{}{"minutes_elapsed": decision.MinutesElapsed, "limit_minutes": decision.LimitMinutes},
		)
	}
}

// UpsertPolicy validates and stores a school's policy. Privileged roles only.
func (s *AccessWindowService) UpsertPolicy(ctx context.Context, principal models.Principal, req dto.UpsertGradingPolicyRequest) (*models.GradingWindowPolicy, error) {
	if !s.IsPrivileged(principal) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can change grading policies")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grading policy payload")
	}
	if _, err := time.LoadLocation(req.Timezone); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown timezone %q", req.Timezone))
	}

	policy := &models.GradingWindowPolicy{SchoolID: req.SchoolID, LockAfterMinutes: req.LockAfterMinutes, Timezone: req.Timezone}
	if err := s.policies.Upsert(ctx, policy); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save grading policy")
	}
	_ = s.cache.Invalidate(ctx, policyCacheKey(req.SchoolID))
	return policy, nil
}

func (s *AccessWindowService) location(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err == nil {
		return loc
	}
	s.logger.Warn("invalid school timezone, using default", zap.String("timezone", name), zap.Error(err))
	if loc, err = time.LoadLocation(s.defaults.Timezone); err == nil {
		return loc
	}
	return time.UTC
}

func policyCacheKey(schoolID string) string {
	return "policy:" + schoolID
}
