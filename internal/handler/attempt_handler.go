package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-scoring-engine/internal/dto"
	"github.com/noah-isme/sma-scoring-engine/internal/models"
	appErrors "github.com/noah-isme/sma-scoring-engine/pkg/errors"
	"github.com/noah-isme/sma-scoring-engine/pkg/response"
)

type attemptService interface {
	Submit(ctx context.Context, principal models.Principal, req dto.SubmitAttemptRequest) (*dto.AttemptResult, error)
	SaveProgress(ctx context.Context, principal models.Principal, req dto.SaveProgressRequest) (*models.Attempt, error)
	Get(ctx context.Context, examID, studentID string) (*dto.AttemptResult, error)
}

// AttemptHandler exposes exam attempt endpoints.
type AttemptHandler struct {
	attempts attemptService
}

// NewAttemptHandler constructs handler.
func NewAttemptHandler(attempts attemptService) *AttemptHandler {
	return &AttemptHandler{attempts: attempts}
}

// Submit godoc
// @Summary Submit and grade an attempt
// @Tags Attempts
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param payload body dto.SubmitAttemptRequest true "Answers keyed by question id"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 423 {object} response.Envelope
// @Router /exams/{id}/attempts/submit [post]
func (h *AttemptHandler) Submit(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req dto.SubmitAttemptRequest
	if !bindJSON(c, &req) {
		return
	}
	req.ExamID = c.Param("id")
	if principal.Role == models.RoleStudent {
		if req.StudentID != "" && req.StudentID != principal.UserID {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "students can only submit their own attempts"))
			return
		}
		req.StudentID = principal.UserID
	}

	result, err := h.attempts.Submit(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// SaveProgress godoc
// @Summary Save draft answers
// @Tags Attempts
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param payload body dto.SaveProgressRequest true "Draft answers"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/attempts/progress [put]
func (h *AttemptHandler) SaveProgress(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req dto.SaveProgressRequest
	if !bindJSON(c, &req) {
		return
	}
	req.ExamID = c.Param("id")
	if principal.Role == models.RoleStudent {
		req.StudentID = principal.UserID
	}

	attempt, err := h.attempts.SaveProgress(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, attempt)
}

// Get godoc
// @Summary Get a student's attempt
// @Tags Attempts
// @Produce json
// @Param id path string true "Exam ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exams/{id}/attempts/{studentId} [get]
func (h *AttemptHandler) Get(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	studentID := c.Param("studentId")
	if principal.Role == models.RoleStudent && studentID != principal.UserID {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	result, err := h.attempts.Get(c.Request.Context(), c.Param("id"), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}
