package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-scoring-engine/internal/dto"
	"github.com/noah-isme/sma-scoring-engine/internal/grading"
	"github.com/noah-isme/sma-scoring-engine/internal/middleware"
	"github.com/noah-isme/sma-scoring-engine/internal/models"
	"github.com/noah-isme/sma-scoring-engine/internal/service"
	"github.com/noah-isme/sma-scoring-engine/pkg/export"
)

func newTestContext(t *testing.T, method, path string, body interface{}, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

type attemptServiceMock struct {
	submitReq  dto.SubmitAttemptRequest
	progress   dto.SaveProgressRequest
	submitErr  error
	getResult  *dto.AttemptResult
	getErr     error
	calledWith []string
}

func (m *attemptServiceMock) Submit(_ context.Context, _ models.Principal, req dto.SubmitAttemptRequest) (*dto.AttemptResult, error) {
	m.submitReq = req
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	return &dto.AttemptResult{ExamID: req.ExamID, StudentID: req.StudentID, Status: models.AttemptStatusSubmitted, FinalScorePct: 100}, nil
}

func (m *attemptServiceMock) SaveProgress(_ context.Context, _ models.Principal, req dto.SaveProgressRequest) (*models.Attempt, error) {
	m.progress = req
	return &models.Attempt{ExamID: req.ExamID, StudentID: req.StudentID, Status: models.AttemptStatusInProgress}, nil
}

func (m *attemptServiceMock) Get(_ context.Context, examID, studentID string) (*dto.AttemptResult, error) {
	m.calledWith = []string{examID, studentID}
	return m.getResult, m.getErr
}

type examServiceMock struct {
	exam      *models.Exam
	err       error
	lockedArg *bool
}

func (m *examServiceMock) Get(context.Context, string) (*models.Exam, error) {
	return m.exam, m.err
}

func (m *examServiceMock) SetLocked(_ context.Context, _ models.Principal, _ string, locked bool) (*models.Exam, error) {
	m.lockedArg = &locked
	if m.err != nil {
		return nil, m.err
	}
	exam := *m.exam
	exam.Locked = locked
	return &exam, nil
}

type accessServiceMock struct {
	target   service.WriteTarget
	decision grading.Decision
}

func (m *accessServiceMock) CheckWritable(_ context.Context, target service.WriteTarget) (grading.Decision, error) {
	m.target = target
	return m.decision, nil
}

func (m *accessServiceMock) Policy(_ context.Context, schoolID string) (*models.GradingWindowPolicy, error) {
	return &models.GradingWindowPolicy{SchoolID: schoolID, Timezone: "UTC"}, nil
}

func (m *accessServiceMock) UpsertPolicy(_ context.Context, _ models.Principal, req dto.UpsertGradingPolicyRequest) (*models.GradingWindowPolicy, error) {
	return &models.GradingWindowPolicy{SchoolID: req.SchoolID, LockAfterMinutes: req.LockAfterMinutes, Timezone: req.Timezone}, nil
}

type marklistServiceMock struct {
	enterReq     dto.EnterMarkRequest
	exportFormat export.Format
	exportErr    error
}

func (m *marklistServiceMock) SaveConfig(_ context.Context, _ models.Principal, req dto.SaveMarklistConfigRequest) (*models.MarklistConfig, error) {
	return &models.MarklistConfig{ID: "cfg-1", ClassID: req.ClassID, SubjectID: req.SubjectID}, nil
}

func (m *marklistServiceMock) Reconcile(context.Context, string) (*dto.ReconcileResult, error) {
	return &dto.ReconcileResult{}, nil
}

func (m *marklistServiceMock) EnterMark(_ context.Context, _ models.Principal, req dto.EnterMarkRequest) (*dto.EntrySummary, error) {
	m.enterReq = req
	return &dto.EntrySummary{StudentID: req.StudentID}, nil
}

func (m *marklistServiceMock) Recompute(_ context.Context, _, studentID string) (*dto.EntrySummary, error) {
	return &dto.EntrySummary{StudentID: studentID}, nil
}

func (m *marklistServiceMock) Get(_ context.Context, configID string) (*models.MarklistSheet, error) {
	return &models.MarklistSheet{}, nil
}

func (m *marklistServiceMock) SetLocked(_ context.Context, _ models.Principal, configID string, locked bool) (*models.MarklistConfig, error) {
	return &models.MarklistConfig{ID: configID, Locked: locked}, nil
}

func (m *marklistServiceMock) Export(_ context.Context, _ string, format export.Format) ([]byte, string, string, error) {
	m.exportFormat = format
	if m.exportErr != nil {
		return nil, "", "", m.exportErr
	}
	return []byte("Student,Total\n"), "text/csv", "marklist-10a-math.csv", nil
}

type gradeServiceMock struct {
	record     *models.GradeRecord
	err        error
	calledWith []string
}

func (m *gradeServiceMock) RecordManual(_ context.Context, principal models.Principal, req dto.RecordManualGradeRequest) (*dto.ManualGradeResult, error) {
	return &dto.ManualGradeResult{Grade: models.GradeRecord{ExamID: req.ExamID, StudentID: req.StudentID, RecordedBy: principal.UserID}}, nil
}

func (m *gradeServiceMock) Get(_ context.Context, examID, studentID string) (*models.GradeRecord, error) {
	m.calledWith = []string{examID, studentID}
	return m.record, m.err
}
