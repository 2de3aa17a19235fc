package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-scoring-engine/internal/dto"
	"github.com/noah-isme/sma-scoring-engine/internal/models"
	"github.com/noah-isme/sma-scoring-engine/pkg/response"
)

type gradeRecordService interface {
	RecordManual(ctx context.Context, principal models.Principal, req dto.RecordManualGradeRequest) (*dto.ManualGradeResult, error)
	Get(ctx context.Context, examID, studentID string) (*models.GradeRecord, error)
}

// GradeHandler exposes manual grade entry and grade lookup.
type GradeHandler struct {
	grades gradeRecordService
}

// NewGradeHandler constructs handler.
func NewGradeHandler(grades gradeRecordService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// RecordManual godoc
// @Summary Record a manual exam grade
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body dto.RecordManualGradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 423 {object} response.Envelope
// @Router /grades/manual [post]
func (h *GradeHandler) RecordManual(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req dto.RecordManualGradeRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.grades.RecordManual(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Get godoc
// @Summary Get a student's exam grade
// @Tags Grades
// @Produce json
// @Param examId path string true "Exam ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /grades/{examId}/{studentId} [get]
func (h *GradeHandler) Get(c *gin.Context) {
	record, err := h.grades.Get(c.Request.Context(), c.Param("examId"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, record)
}
