package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oriontel/backoffice-api/internal/models"
	"github.com/oriontel/backoffice-api/pkg/config"
	appErrors "github.com/oriontel/backoffice-api/pkg/errors"
)

type rejectValidator struct{}

func (rejectValidator) ValidateToken(_ string) (*models.AuthPrincipal, error) {
	return nil, appErrors.New(http.StatusUnauthorized, "invalid token")
}

func newFullRouter() *gin.Engine {
	return NewRouter(&config.Config{}, zap.NewNop(), rejectValidator{}, Handlers{
		Auth:     &AuthHandler{},
		Calendar: &CalendarHandler{},
		Email:    &EmailHandler{},
		Pbx:      &PbxHandler{},
		System:   &SystemHandler{},
	})
}

func TestRouterMountsRoutesAtRoot(t *testing.T) {
	router := newFullRouter()

	registered := make(map[string]bool)
	for _, route := range router.Routes() {
		assert.False(t, strings.HasPrefix(route.Path, "/api/"),
			"route %s %s must not carry a version prefix", route.Method, route.Path)
		registered[route.Method+" "+route.Path] = true
	}

	for _, want := range []string{
		"POST /auth/register",
		"POST /auth/login",
		"GET /auth/me",
		"POST /events",
		"GET /events",
		"GET /events/metrics",
		"GET /events/:id",
		"PUT /events/:id",
		"DELETE /events/:id",
		"POST /emails",
		"GET /calls/export",
		"GET /system/status",
		"GET /health",
		"GET /metrics/prometheus",
	} {
		assert.True(t, registered[want], "missing route %s", want)
	}
}

func TestRouterHealthAtRoot(t *testing.T) {
	router := newFullRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestRouterProtectedRoutesRequireToken(t *testing.T) {
	router := newFullRouter()

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// 401 rather than 404 proves the path is mounted where clients expect.
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
