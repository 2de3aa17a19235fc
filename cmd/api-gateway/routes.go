package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-scoring-engine/api/swagger"
	"github.com/noah-isme/sma-scoring-engine/internal/evaluator"
	"github.com/noah-isme/sma-scoring-engine/internal/grading"
	"github.com/noah-isme/sma-scoring-engine/internal/handler"
	"github.com/noah-isme/sma-scoring-engine/internal/middleware"
	"github.com/noah-isme/sma-scoring-engine/internal/models"
	"github.com/noah-isme/sma-scoring-engine/internal/repository"
	"github.com/noah-isme/sma-scoring-engine/internal/service"
	"github.com/noah-isme/sma-scoring-engine/pkg/config"
	appErrors "github.com/noah-isme/sma-scoring-engine/pkg/errors"
	"github.com/noah-isme/sma-scoring-engine/pkg/response"
)

type app struct {
	metrics       *service.MetricsService
	tokens        *service.TokenService
	cacheRepo     *repository.CacheRepository
	notifications *service.NotificationService

	health    *handler.MetricsHandler
	attempts  *handler.AttemptHandler
	grades    *handler.GradeHandler
	exams     *handler.ExamHandler
	marklists *handler.MarklistHandler
	access    *handler.AccessHandler
}

func buildApp(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logr *zap.Logger) *app {
	validate := validator.New()
	metrics := service.NewMetricsService()

	examRepo := repository.NewExamRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)
	gradeRepo := repository.NewGradeRecordRepository(db)
	attendanceRepo := repository.NewExamAttendanceRepository(db)
	marklistRepo := repository.NewMarklistRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	periodRepo := repository.NewPeriodRepository(db)
	policyRepo := repository.NewSchoolPolicyRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Window.PolicyCacheTTL, logr, cacheRepo.Enabled())

	bypass := make([]models.UserRole, 0, len(cfg.Window.BypassRoles))
	for _, role := range cfg.Window.BypassRoles {
		bypass = append(bypass, models.UserRole(role))
	}
	guard := service.NewAccessWindowService(policyRepo, periodRepo, cacheSvc, metrics, service.WindowDefaults{
		LockAfterMinutes: cfg.Window.DefaultLockAfterMinutes,
		Timezone:         cfg.Window.DefaultTimezone,
		BypassRoles:      bypass,
		CacheTTL:         cfg.Window.PolicyCacheTTL,
	}, validate, logr)

	notifications := service.NewNotificationService(service.NotificationConfig{
		Enabled:    cfg.Notifications.Enabled,
		WebhookURL: cfg.Notifications.WebhookURL,
		Workers:    cfg.Notifications.Workers,
		Retries:    cfg.Notifications.Retries,
		Timeout:    cfg.Notifications.Timeout,
	}, nil, metrics, logr)

	essays := evaluator.New(evaluator.Config{
		Endpoint:         cfg.Evaluator.Endpoint,
		APIKey:           cfg.Evaluator.APIKey,
		APIKeyHeader:     cfg.Evaluator.APIKeyHeader,
		Model:            cfg.Evaluator.Model,
		Timeout:          cfg.Evaluator.Timeout,
		ResponseTextPath: cfg.Evaluator.ResponseTextPath,
	}, nil, logr)
	if !essays.Enabled() {
		logr.Warn("essay evaluator disabled, long answers will be routed to manual review")
	}

	attemptSvc := service.NewAttemptService(service.AttemptServiceDeps{
		Exams:       examRepo,
		Attempts:    attemptRepo,
		Grades:      gradeRepo,
		Attendance:  attendanceRepo,
		Guard:       guard,
		Scorer:      grading.NewGrader(essays),
		Tx:          db,
		Notifier:    notifications,
		Metrics:     metrics,
		Validator:   validate,
		Logger:      logr,
		Concurrency: cfg.Grading.Concurrency,
	})
	gradeSvc := service.NewGradeRecordService(examRepo, gradeRepo, attendanceRepo, guard, db, notifications, validate, logr)
	examSvc := service.NewExamService(examRepo, guard, logr)
	marklistSvc := service.NewMarklistService(marklistRepo, enrollmentRepo, guard, db, notifications, metrics, validate, logr)

	return &app{
		metrics:       metrics,
		tokens:        service.NewTokenService(cfg.JWT.Secret),
		cacheRepo:     cacheRepo,
		notifications: notifications,
		health: handler.NewMetricsHandler(metrics, map[string]handler.Pinger{
			"database": db,
			"cache":    handler.PingFunc(func(ctx context.Context) error { return cacheRepo.Ping(ctx) }),
		}),
		attempts:  handler.NewAttemptHandler(attemptSvc),
		grades:    handler.NewGradeHandler(gradeSvc),
		exams:     handler.NewExamHandler(examSvc),
		marklists: handler.NewMarklistHandler(marklistSvc),
		access:    handler.NewAccessHandler(guard, examSvc),
	}
}

func registerRoutes(r *gin.Engine, cfg *config.Config, a *app) {
	r.Use(middleware.Metrics(a.metrics))

	r.GET("/health", a.health.Health)
	r.GET("/ready", a.health.Ready)
	r.GET("/metrics", a.health.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	r.NoRoute(func(c *gin.Context) {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "route not found"))
	})

	staff := []models.UserRole{models.RoleSuperAdmin, models.RoleAdmin, models.RoleTeacher}
	admins := []models.UserRole{models.RoleSuperAdmin, models.RoleAdmin}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(a.tokens))

	exams := api.Group("/exams")
	exams.GET("/:id", middleware.RequireRoles(staff...), a.exams.Get)
	exams.PUT("/:id/lock", middleware.RequireRoles(admins...), a.exams.SetLock)
	exams.POST("/:id/attempts/submit", a.attempts.Submit)
	exams.PUT("/:id/attempts/progress", a.attempts.SaveProgress)
	exams.GET("/:id/attempts/:studentId", a.attempts.Get)

	grades := api.Group("/grades", middleware.RequireRoles(staff...))
	grades.POST("/manual", a.grades.RecordManual)
	grades.GET("/:examId/:studentId", a.grades.Get)

	marklists := api.Group("/marklists", middleware.RequireRoles(staff...))
	marklists.PUT("", a.marklists.SaveConfig)
	marklists.GET("/:id", a.marklists.Get)
	marklists.POST("/:id/reconcile", a.marklists.Reconcile)
	marklists.POST("/:id/marks", a.marklists.EnterMark)
	marklists.POST("/:id/entries/:studentId/recompute", a.marklists.Recompute)
	marklists.PUT("/:id/lock", middleware.RequireRoles(admins...), a.marklists.SetLock)
	marklists.GET("/:id/export", a.marklists.Export)

	api.POST("/access/check", middleware.RequireRoles(staff...), a.access.Check)
	schools := api.Group("/schools", middleware.RequireRoles(staff...))
	schools.GET("/:id/grading-policy", a.access.GetPolicy)
	schools.PUT("/:id/grading-policy", middleware.RequireRoles(admins...), a.access.UpsertPolicy)
}
