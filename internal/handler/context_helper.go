package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-scoring-engine/internal/middleware"
	"github.com/noah-isme/sma-scoring-engine/internal/models"
	appErrors "github.com/noah-isme/sma-scoring-engine/pkg/errors"
	"github.com/noah-isme/sma-scoring-engine/pkg/response"
)

// principalFromContext writes 401 and returns false when no caller is attached.
func principalFromContext(c *gin.Context) (models.Principal, bool) {
	principal, ok := middleware.Principal(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Principal{}, false
	}
	return principal, true
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return false
	}
	return true
}
