package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oriontel/backoffice-api/internal/models"
	appErrors "github.com/oriontel/backoffice-api/pkg/errors"
)

type stubValidator struct {
	principal *models.AuthPrincipal
}

func (s stubValidator) ValidateToken(token string) (*models.AuthPrincipal, error) {
	if s.principal == nil || token != "good-token" {
		return nil, appErrors.New(http.StatusUnauthorized, "invalid or expired token")
	}
	return s.principal, nil
}

func newAuthRouter(v TokenValidator, roles ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	chain := []gin.HandlerFunc{Auth(v)}
	if len(roles) > 0 {
		chain = append(chain, RequireRole(roles...))
	}
	chain = append(chain, func(c *gin.Context) {
		principal, _ := Principal(c)
		c.JSON(http.StatusOK, principal)
	})
	router.GET("/secure", chain...)
	return router
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	router := newAuthRouter(stubValidator{})
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRejectsBadToken(t *testing.T) {
	router := newAuthRouter(stubValidator{principal: &models.AuthPrincipal{ID: "u1"}})
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthStoresPrincipal(t *testing.T) {
	router := newAuthRouter(stubValidator{principal: &models.AuthPrincipal{ID: "u1", Username: "alice", Role: models.RoleUser}})
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"alice"`)
}

func TestRequireRoleForbidsWrongRole(t *testing.T) {
	router := newAuthRouter(
		stubValidator{principal: &models.AuthPrincipal{ID: "u1", Role: models.RoleUser}},
		models.RoleAdmin,
	)
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRoleAllowsListedRole(t *testing.T) {
	router := newAuthRouter(
		stubValidator{principal: &models.AuthPrincipal{ID: "u1", Role: models.RoleAdmin}},
		models.RoleAdmin, models.RoleManager,
	)
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
