package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scoring-engine/internal/models"
	"github.com/noah-isme/sma-scoring-engine/pkg/jobs"
)

// NotificationConfig configures the outbound grade notification queue.
type NotificationConfig struct {
	Enabled    bool
	WebhookURL string
	Workers    int
	Retries    int
	Timeout    time.Duration
}

// NotificationSink delivers a single notification.
type NotificationSink interface {
	Deliver(ctx context.Context, n models.GradeNotification) error
}

// NotificationService hands finalized grades to the messaging collaborator
// through a bounded in-process queue. Delivery failures never reach the caller.
type NotificationService struct {
	queue   *jobs.Queue[models.GradeNotification]
	sink    NotificationSink
	metrics *MetricsService
	logger  *zap.Logger
	enabled bool
}

// NewNotificationService builds the queue. A nil sink selects the webhook sink
// when a URL is configured and the log sink otherwise.
func NewNotificationService(cfg NotificationConfig, sink NotificationSink, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		if cfg.WebhookURL != "" {
			sink = NewWebhookSink(cfg.WebhookURL, &http.Client{Timeout: cfg.Timeout})
		} else {
			sink = NewLogSink(logger)
		}
	}
	s := &NotificationService{sink: sink, metrics: metrics, logger: logger, enabled: cfg.Enabled}
	s.queue = jobs.NewQueue("grade-notifications", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.Retries,
		RetryDelay: time.Second,
		Logger:     logger,
	})
	return s
}

// Start launches the workers.
func (s *NotificationService) Start(ctx context.Context) {
	if s == nil || !s.enabled {
		return
	}
	s.queue.Start(ctx)
}

// Stop cancels in-flight deliveries and waits for the workers to exit.
// Notifications still buffered at that point are dropped, not delivered.
func (s *NotificationService) Stop() {
	if s == nil || !s.enabled {
		return
	}
	s.queue.Stop()
}

// Publish enqueues a notification without blocking. A full queue drops it with a warning.
func (s *NotificationService) Publish(ctx context.Context, n models.GradeNotification) {
	if s == nil || !s.enabled {
		return
	}
	if n.OccurredAt.IsZero() {
		n.OccurredAt = time.Now().UTC()
	}
	if err := s.queue.TryEnqueue(jobs.Job[models.GradeNotification]{ID: uuid.NewString(), Payload: n}); err != nil {
		outcome := "rejected"
		if errors.Is(err, jobs.ErrQueueFull) {
			outcome = "dropped"
		}
		s.metrics.RecordNotification(outcome)
		s.logger.Warn("grade notification not enqueued", zap.String("student_id", n.StudentID), zap.Error(err))
	}
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job[models.GradeNotification]) error {
	if err := s.sink.Deliver(ctx, job.Payload); err != nil {
		s.metrics.RecordNotification("failed")
		s.logger.Warn("grade notification delivery failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
		return err
	}
	s.metrics.RecordNotification("delivered")
	return nil
}

// WebhookSink POSTs notifications as JSON.
type WebhookSink struct {
	url    string
	client *http.Client
}

// NewWebhookSink constructs a webhook sink.
func NewWebhookSink(url string, client *http.Client) *WebhookSink {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &WebhookSink{url: url, client: client}
}

// Deliver implements NotificationSink.
func (w *WebhookSink) Deliver(ctx context.Context, n models.GradeNotification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification webhook returned %d", resp.StatusCode)
	}
	return nil
}

// LogSink writes notifications to the logger.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink constructs a log sink.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Deliver implements NotificationSink.
func (l *LogSink) Deliver(_ context.Context, n models.GradeNotification) error {
	l.logger.Info("grade finalized",
		zap.String("student_id", n.StudentID),
		zap.String("subject_id", n.SubjectID),
		zap.String("exam_id", n.ExamID),
		zap.String("marklist_id", n.MarklistID),
		zap.Float64("score", n.Score),
		zap.String("grade", n.Grade),
		zap.String("source", string(n.Source)),
	)
	return nil
}
