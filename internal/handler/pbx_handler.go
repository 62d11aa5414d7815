package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/oriontel/backoffice-api/internal/models"
	appErrors "github.com/oriontel/backoffice-api/pkg/errors"
	"github.com/oriontel/backoffice-api/pkg/response"
)

// PbxOperations is the service surface behind the PBX routes.
type PbxOperations interface {
	CreateExtension(ctx context.Context, req models.CreateExtensionRequest) (*models.PbxExtension, error)
	GetExtension(ctx context.Context, id string) (*models.PbxExtension, error)
	ListExtensions(ctx context.Context) ([]models.PbxExtension, error)
	UpdateExtension(ctx context.Context, id string, req models.UpdateExtensionRequest) (*models.PbxExtension, error)
	DeleteExtension(ctx context.Context, id string) error
	RecordCall(ctx context.Context, req models.CreateCallRecordRequest) (*models.CallRecord, error)
	CloseCall(ctx context.Context, id string, req models.UpdateCallRecordRequest) (*models.CallRecord, error)
	GetCall(ctx context.Context, id string) (*models.CallRecord, error)
	ListCalls(ctx context.Context, limit, offset int) ([]models.CallRecord, error)
	ActiveCalls(ctx context.Context) ([]models.CallRecord, error)
	ExportCalls(ctx context.Context, format string, limit int) ([]byte, string, error)
}

// PbxHandler binds the extension and call-record routes.
type PbxHandler struct {
	pbx PbxOperations
}

// NewPbxHandler constructs the handler.
func NewPbxHandler(pbx PbxOperations) *PbxHandler {
	return &PbxHandler{pbx: pbx}
}

// CreateExtension handles POST /extensions.
func (h *PbxHandler) CreateExtension(c *gin.Context) {
	var req models.CreateExtensionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.New(http.StatusBadRequest, "invalid request body"))
		return
	}
	ext, err := h.pbx.CreateExtension(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, ext)
}

// GetExtension handles GET /extensions/:id.
func (h *PbxHandler) GetExtension(c *gin.Context) {
	ext, err := h.pbx.GetExtension(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ext)
}

// ListExtensions handles GET /extensions.
func (h *PbxHandler) ListExtensions(c *gin.Context) {
	extensions, err := h.pbx.ListExtensions(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"extensions": extensions})
}

// UpdateExtension handles PUT /extensions/:id.
func (h *PbxHandler) UpdateExtension(c *gin.Context) {
	var req models.UpdateExtensionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.New(http.StatusBadRequest, "invalid request body"))
		return
	}
	ext, err := h.pbx.UpdateExtension(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ext)
}

// DeleteExtension handles DELETE /extensions/:id.
func (h *PbxHandler) DeleteExtension(c *gin.Context) {
	if err := h.pbx.DeleteExtension(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c)
}

// RecordCall handles POST /calls.
func (h *PbxHandler) RecordCall(c *gin.Context) {
	var req models.CreateCallRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.New(http.StatusBadRequest, "invalid request body"))
		return
	}
	record, err := h.pbx.RecordCall(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, record)
}

// CloseCall handles PUT /calls/:id.
func (h *PbxHandler) CloseCall(c *gin.Context) {
	var req models.UpdateCallRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.New(http.StatusBadRequest, "invalid request body"))
		return
	}
	record, err := h.pbx.CloseCall(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record)
}

// GetCall handles GET /calls/:id.
func (h *PbxHandler) GetCall(c *gin.Context) {
	record, err := h.pbx.GetCall(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record)
}

// ListCalls handles GET /calls.
func (h *PbxHandler) ListCalls(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	records, err := h.pbx.ListCalls(c.Request.Context(), limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"calls": records})
}

// ActiveCalls handles GET /calls/active.
func (h *PbxHandler) ActiveCalls(c *gin.Context) {
	records, err := h.pbx.ActiveCalls(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"calls": records})
}

// ExportCalls handles GET /calls/export.
func (h *PbxHandler) ExportCalls(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "200"))
	payload, contentType, err := h.pbx.ExportCalls(c.Request.Context(), format, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("call-report.%s", format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}
