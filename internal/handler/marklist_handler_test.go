package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-scoring-engine/internal/models"
	appErrors "github.com/noah-isme/sma-scoring-engine/pkg/errors"
	"github.com/noah-isme/sma-scoring-engine/pkg/export"
)

var teacherClaims = &models.JWTClaims{UserID: "t-1", Role: models.RoleTeacher, SchoolID: "school-1"}

func TestMarklistHandlerEnterMarkUsesPathConfig(t *testing.T) {
	svc := &marklistServiceMock{}
	h := NewMarklistHandler(svc)
	c, w := newTestContext(t, http.MethodPost, "/marklists/cfg-1/marks", map[string]interface{}{
		"configId": "other", "studentId": "s-1", "columnId": "col-1", "score": 7.5,
	}, teacherClaims)
	c.Params = gin.Params{{Key: "id", Value: "cfg-1"}}

	h.EnterMark(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cfg-1", svc.enterReq.ConfigID)
	require.NotNil(t, svc.enterReq.Score)
	assert.Equal(t, 7.5, *svc.enterReq.Score)
}

func TestMarklistHandlerExport(t *testing.T) {
	svc := &marklistServiceMock{}
	h := NewMarklistHandler(svc)
	c, w := newTestContext(t, http.MethodGet, "/marklists/cfg-1/export", nil, teacherClaims)
	c.Params = gin.Params{{Key: "id", Value: "cfg-1"}}

	h.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.FormatCSV, svc.exportFormat)
	assert.Equal(t, `attachment; filename="marklist-10a-math.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, "Student,Total\n", w.Body.String())
}

func TestMarklistHandlerExportNormalisesFormat(t *testing.T) {
	svc := &marklistServiceMock{exportErr: appErrors.Clone(appErrors.ErrValidation, "unsupported export format")}
	h := NewMarklistHandler(svc)
	c, w := newTestContext(t, http.MethodGet, "/marklists/cfg-1/export?format=XLSX", nil, teacherClaims)
	c.Params = gin.Params{{Key: "id", Value: "cfg-1"}}

	h.Export(c)

	assert.Equal(t, export.Format("xlsx"), svc.exportFormat)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMarklistHandlerSetLockRequiresFlag(t *testing.T) {
	h := NewMarklistHandler(&marklistServiceMock{})
	c, w := newTestContext(t, http.MethodPut, "/marklists/cfg-1/lock", map[string]interface{}{}, adminClaims)
	c.Params = gin.Params{{Key: "id", Value: "cfg-1"}}

	h.SetLock(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
