package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-scoring-engine/internal/dto"
	"github.com/noah-isme/sma-scoring-engine/internal/models"
	appErrors "github.com/noah-isme/sma-scoring-engine/pkg/errors"
	"github.com/noah-isme/sma-scoring-engine/pkg/response"
)

type examService interface {
	Get(ctx context.Context, id string) (*models.Exam, error)
	SetLocked(ctx context.Context, principal models.Principal, id string, locked bool) (*models.Exam, error)
}

// ExamHandler exposes exam administration endpoints.
type ExamHandler struct {
	exams examService
}

// NewExamHandler constructs handler.
func NewExamHandler(exams examService) *ExamHandler {
	return &ExamHandler{exams: exams}
}

// Get godoc
// @Summary Get exam
// @Tags Exams
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id} [get]
func (h *ExamHandler) Get(c *gin.Context) {
	exam, err := h.exams.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, exam)
}

// SetLock godoc
// @Summary Lock or unlock exam grading
// @Tags Exams
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param payload body dto.SetLockRequest true "Lock flag"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /exams/{id}/lock [put]
func (h *ExamHandler) SetLock(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req dto.SetLockRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Locked == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "locked is required"))
		return
	}
	exam, err := h.exams.SetLocked(c.Request.Context(), principal, c.Param("id"), *req.Locked)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, exam)
}
