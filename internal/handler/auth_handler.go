package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oriontel/backoffice-api/internal/middleware"
	"github.com/oriontel/backoffice-api/internal/models"
	appErrors "github.com/oriontel/backoffice-api/pkg/errors"
	"github.com/oriontel/backoffice-api/pkg/response"
)

// Authenticator is the service surface behind the auth routes.
type Authenticator interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
}

// AuthHandler binds the auth routes.
type AuthHandler struct {
	auth Authenticator
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(auth Authenticator) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.New(http.StatusBadRequest, "invalid request body"))
		return
	}
	result, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, result)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.New(http.StatusBadRequest, "invalid request body"))
		return
	}
	result, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	principal, ok := middleware.Principal(c)
	if !ok {
		response.Error(c, appErrors.New(http.StatusUnauthorized, "missing bearer token"))
		return
	}
	response.JSON(c, http.StatusOK, principal)
}
