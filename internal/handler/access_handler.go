package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-scoring-engine/internal/dto"
	"github.com/noah-isme/sma-scoring-engine/internal/grading"
	"github.com/noah-isme/sma-scoring-engine/internal/models"
	"github.com/noah-isme/sma-scoring-engine/internal/service"
	"github.com/noah-isme/sma-scoring-engine/pkg/response"
)

type accessWindowService interface {
	CheckWritable(ctx context.Context, target service.WriteTarget) (grading.Decision, error)
	Policy(ctx context.Context, schoolID string) (*models.GradingWindowPolicy, error)
	UpsertPolicy(ctx context.Context, principal models.Principal, req dto.UpsertGradingPolicyRequest) (*models.GradingWindowPolicy, error)
}

// AccessHandler exposes the grading window guard and school policies.
type AccessHandler struct {
	access accessWindowService
	exams  examService
}

// NewAccessHandler constructs handler.
func NewAccessHandler(access accessWindowService, exams examService) *AccessHandler {
	return &AccessHandler{access: access, exams: exams}
}

// Check godoc
// @Summary Check whether a grading write is currently allowed
// @Description When examId is set the exam's school, period, date and lock flag are used.
// @Tags Access
// @Accept json
// @Produce json
// @Param payload body dto.AccessCheckRequest true "Write context"
// @Success 200 {object} response.Envelope
// @Router /access/check [post]
func (h *AccessHandler) Check(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req dto.AccessCheckRequest
	if !bindJSON(c, &req) {
		return
	}

	target := service.WriteTarget{
		Principal: principal,
		SchoolID:  req.SchoolID,
		Locked:    req.Locked,
		PeriodID:  req.PeriodID,
		Date:      req.Date,
	}
	if req.ExamID != "" {
		exam, err := h.exams.Get(c.Request.Context(), req.ExamID)
		if err != nil {
			response.Error(c, err)
			return
		}
		target.SchoolID = exam.SchoolID
		target.Locked = exam.Locked
		if exam.PeriodID != nil {
			target.PeriodID = *exam.PeriodID
		}
		if req.Date == nil {
			target.Date = exam.ExamDate
		}
	}
	if target.SchoolID == "" {
		target.SchoolID = principal.SchoolID
	}

	decision, err := h.access.CheckWritable(c.Request.Context(), target)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, decision)
}

// GetPolicy godoc
// @Summary Get a school's effective grading window policy
// @Tags Access
// @Produce json
// @Param id path string true "School ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{id}/grading-policy [get]
func (h *AccessHandler) GetPolicy(c *gin.Context) {
	policy, err := h.access.Policy(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, policy)
}

// UpsertPolicy godoc
// @Summary Set a school's grading window policy
// @Tags Access
// @Accept json
// @Produce json
// @Param id path string true "School ID"
// @Param payload body dto.UpsertGradingPolicyRequest true "Policy"
// @Success 200 {object} response.Envelope
// @Router /schools/{id}/grading-policy [put]
func (h *AccessHandler) UpsertPolicy(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req dto.UpsertGradingPolicyRequest
	if !bindJSON(c, &req) {
		return
	}
	req.SchoolID = c.Param("id")
	policy, err := h.access.UpsertPolicy(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, policy)
}
