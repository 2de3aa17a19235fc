package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-scoring-engine/internal/models"
	appErrors "github.com/noah-isme/sma-scoring-engine/pkg/errors"
	"github.com/noah-isme/sma-scoring-engine/pkg/logger"
)

type tokenValidatorStub struct {
	claims *models.JWTClaims
	seen   string
}

func (s *tokenValidatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	s.seen = token
	if s.claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return s.claims, nil
}

func newRouter(tokens TokenValidator, roles ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", JWT(tokens), RequireRoles(roles...), func(c *gin.Context) {
		principal, _ := Principal(c)
		c.JSON(http.StatusOK, gin.H{"user": principal.UserID, "log_user": c.GetString(logger.ContextUserIDKey)})
	})
	return r
}

func serve(r *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTRejectsMissingOrMalformedHeader(t *testing.T) {
	r := newRouter(&tokenValidatorStub{}, models.RoleTeacher)

	assert.Equal(t, http.StatusUnauthorized, serve(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Bearer bad").Code)
}

func TestJWTAttachesPrincipal(t *testing.T) {
	stub := &tokenValidatorStub{claims: &models.JWTClaims{UserID: "t-1", Role: models.RoleTeacher}}
	r := newRouter(stub, models.RoleTeacher, models.RoleAdmin)

	w := serve(r, "bearer  token-value")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "token-value", stub.seen)
	assert.JSONEq(t, `{"user":"t-1","log_user":"t-1"}`, w.Body.String())
}

func TestRequireRolesForbidsOtherRoles(t *testing.T) {
	stub := &tokenValidatorStub{claims: &models.JWTClaims{UserID: "s-1", Role: models.RoleStudent}}
	r := newRouter(stub, models.RoleTeacher, models.RoleAdmin)

	w := serve(r, "Bearer token")

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRolesWithoutPrincipal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusUnauthorized, serve(r, "").Code)
}
