package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-scoring-engine/internal/dto"
	"github.com/noah-isme/sma-scoring-engine/internal/models"
	appErrors "github.com/noah-isme/sma-scoring-engine/pkg/errors"
	"github.com/noah-isme/sma-scoring-engine/pkg/export"
	"github.com/noah-isme/sma-scoring-engine/pkg/response"
)

type marklistService interface {
	SaveConfig(ctx context.Context, principal models.Principal, req dto.SaveMarklistConfigRequest) (*models.MarklistConfig, error)
	Reconcile(ctx context.Context, configID string) (*dto.ReconcileResult, error)
	EnterMark(ctx context.Context, principal models.Principal, req dto.EnterMarkRequest) (*dto.EntrySummary, error)
	Recompute(ctx context.Context, configID, studentID string) (*dto.EntrySummary, error)
	Get(ctx context.Context, configID string) (*models.MarklistSheet, error)
	SetLocked(ctx context.Context, principal models.Principal, configID string, locked bool) (*models.MarklistConfig, error)
	Export(ctx context.Context, configID string, format export.Format) ([]byte, string, string, error)
}

// MarklistHandler exposes rubric marklist endpoints.
type MarklistHandler struct {
	marklists marklistService
}

// NewMarklistHandler constructs handler.
func NewMarklistHandler(marklists marklistService) *MarklistHandler {
	return &MarklistHandler{marklists: marklists}
}

// SaveConfig godoc
// @Summary Create or replace a marklist configuration
// @Tags Marklists
// @Accept json
// @Produce json
// @Param payload body dto.SaveMarklistConfigRequest true "Columns for a class and subject"
// @Success 200 {object} response.Envelope
// @Router /marklists [put]
func (h *MarklistHandler) SaveConfig(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req dto.SaveMarklistConfigRequest
	if !bindJSON(c, &req) {
		return
	}
	cfg, err := h.marklists.SaveConfig(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, cfg)
}

// Get godoc
// @Summary Get a marklist with all entries
// @Tags Marklists
// @Produce json
// @Param id path string true "Marklist ID"
// @Success 200 {object} response.Envelope
// @Router /marklists/{id} [get]
func (h *MarklistHandler) Get(c *gin.Context) {
	sheet, err := h.marklists.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sheet)
}

// Reconcile godoc
// @Summary Create missing entries for active students
// @Tags Marklists
// @Produce json
// @Param id path string true "Marklist ID"
// @Success 200 {object} response.Envelope
// @Router /marklists/{id}/reconcile [post]
func (h *MarklistHandler) Reconcile(c *gin.Context) {
	result, err := h.marklists.Reconcile(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// EnterMark godoc
// @Summary Enter a column mark
// @Tags Marklists
// @Accept json
// @Produce json
// @Param id path string true "Marklist ID"
// @Param payload body dto.EnterMarkRequest true "Mark payload"
// @Success 200 {object} response.Envelope
// @Failure 423 {object} response.Envelope
// @Router /marklists/{id}/marks [post]
func (h *MarklistHandler) EnterMark(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req dto.EnterMarkRequest
	if !bindJSON(c, &req) {
		return
	}
	req.ConfigID = c.Param("id")
	summary, err := h.marklists.EnterMark(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}

// Recompute godoc
// @Summary Recompute an entry from its marks
// @Tags Marklists
// @Produce json
// @Param id path string true "Marklist ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /marklists/{id}/entries/{studentId}/recompute [post]
func (h *MarklistHandler) Recompute(c *gin.Context) {
	summary, err := h.marklists.Recompute(c.Request.Context(), c.Param("id"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}

// SetLock godoc
// @Summary Lock or unlock a marklist
// @Tags Marklists
// @Accept json
// @Produce json
// @Param id path string true "Marklist ID"
// @Param payload body dto.SetLockRequest true "Lock flag"
// @Success 200 {object} response.Envelope
// @Router /marklists/{id}/lock [put]
func (h *MarklistHandler) SetLock(c *gin.Context) {
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
	cfg, err := h.marklists.SetLocked(c.Request.Context(), principal, c.Param("id"), *req.Locked)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, cfg)
}

// Export godoc
// @Summary Export a marklist
// @Tags Marklists
// @Produce octet-stream
// @Param id path string true "Marklist ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /marklists/{id}/export [get]
func (h *MarklistHandler) Export(c *gin.Context) {
	format := export.Format(strings.ToLower(c.DefaultQuery("format", string(export.FormatCSV))))
	body, contentType, filename, err := h.marklists.Export(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, filename, contentType, body)
}
