package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oriontel/backoffice-api/internal/middleware"
	"github.com/oriontel/backoffice-api/internal/models"
	appErrors "github.com/oriontel/backoffice-api/pkg/errors"
	"github.com/oriontel/backoffice-api/pkg/response"
)

// EmailOperations is the service surface behind the email routes.
type EmailOperations interface {
	SendEmail(ctx context.Context, principal models.AuthPrincipal, req models.CreateEmailRequest) (*models.Email, error)
	GetEmail(ctx context.Context, id string) (*models.Email, error)
	ListEmails(ctx context.Context, principal models.AuthPrincipal, limit, offset int) ([]models.Email, error)
	UpdateDraft(ctx context.Context, id string, req models.UpdateEmailRequest) (*models.Email, error)
	DeleteDraft(ctx context.Context, id string) error
	GetMetrics(ctx context.Context, start, end time.Time) (*models.EmailMetrics, error)
	CreateTemplate(ctx context.Context, req models.CreateTemplateRequest) (*models.EmailTemplate, error)
	GetTemplate(ctx context.Context, id string) (*models.EmailTemplate, error)
	ListTemplates(ctx context.Context) ([]models.EmailTemplate, error)
}

// EmailHandler binds the email and template routes.
type EmailHandler struct {
	emails EmailOperations
}

// NewEmailHandler constructs the handler.
func NewEmailHandler(emails EmailOperations) *EmailHandler {
	return &EmailHandler{emails: emails}
}

// Send handles POST /emails.
func (h *EmailHandler) Send(c *gin.Context) {
	principal, ok := middleware.Principal(c)
	if !ok {
		response.Error(c, appErrors.New(http.StatusUnauthorized, "missing bearer token"))
		return
	}
	var req models.CreateEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.New(http.StatusBadRequest, "invalid request body"))
		return
	}
	email, err := h.emails.SendEmail(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, email)
}

// Get handles GET /emails/:id.
func (h *EmailHandler) Get(c *gin.Context) {
	email, err := h.emails.GetEmail(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, email)
}

// List handles GET /emails.
func (h *EmailHandler) List(c *gin.Context) {
	principal, ok := middleware.Principal(c)
	if !ok {
		response.Error(c, appErrors.New(http.StatusUnauthorized, "missing bearer token"))
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	emails, err := h.emails.ListEmails(c.Request.Context(), principal, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"emails": emails})
}

// Update handles PUT /emails/:id.
func (h *EmailHandler) Update(c *gin.Context) {
	var req models.UpdateEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.New(http.StatusBadRequest, "invalid request body"))
		return
	}
	email, err := h.emails.UpdateDraft(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, email)
}

// Delete handles DELETE /emails/:id.
func (h *EmailHandler) Delete(c *gin.Context) {
	if err := h.emails.DeleteDraft(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c)
}

// Metrics handles GET /emails/metrics.
func (h *EmailHandler) Metrics(c *gin.Context) {
	start, end, err := windowParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	metrics, err := h.emails.GetMetrics(c.Request.Context(), start, end)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, metrics)
}

// CreateTemplate handles POST /emails/templates.
func (h *EmailHandler) CreateTemplate(c *gin.Context) {
	var req models.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.New(http.StatusBadRequest, "invalid request body"))
		return
	}
	tpl, err := h.emails.CreateTemplate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, tpl)
}

// GetTemplate handles GET /emails/templates/:id.
func (h *EmailHandler) GetTemplate(c *gin.Context) {
	tpl, err := h.emails.GetTemplate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tpl)
}

// ListTemplates handles GET /emails/templates.
func (h *EmailHandler) ListTemplates(c *gin.Context) {
	templates, err := h.emails.ListTemplates(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"templates": templates})
}
