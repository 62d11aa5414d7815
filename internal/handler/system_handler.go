package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oriontel/backoffice-api/internal/models"
	appErrors "github.com/oriontel/backoffice-api/pkg/errors"
	"github.com/oriontel/backoffice-api/pkg/response"
)

// SystemOperations is the service surface behind the system routes.
type SystemOperations interface {
	IngestMetrics(ctx context.Context, m *models.SystemMetrics) error
	LatestMetrics(ctx context.Context) (*models.SystemMetrics, error)
	MetricsHistory(ctx context.Context, window time.Duration) ([]models.SystemMetrics, error)
	Status(ctx context.Context) (*models.SystemStatus, error)
	ListPreferences(ctx context.Context, category string) ([]models.SystemPreference, error)
	SetPreference(ctx context.Context, category, key string, value json.RawMessage) (*models.SystemPreference, error)
}

// SystemHandler binds the system metric and preference routes.
type SystemHandler struct {
	system SystemOperations
}

// NewSystemHandler constructs the handler.
func NewSystemHandler(system SystemOperations) *SystemHandler {
	return &SystemHandler{system: system}
}

// IngestMetrics handles POST /system/metrics.
func (h *SystemHandler) IngestMetrics(c *gin.Context) {
	var m models.SystemMetrics
	if err := c.ShouldBindJSON(&m); err != nil {
		response.Error(c, appErrors.New(http.StatusBadRequest, "invalid request body"))
		return
	}
	if err := h.system.IngestMetrics(c.Request.Context(), &m); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, m)
}

// LatestMetrics handles GET /system/metrics.
func (h *SystemHandler) LatestMetrics(c *gin.Context) {
	m, err := h.system.LatestMetrics(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, m)
}

// MetricsHistory handles GET /system/metrics/history.
func (h *SystemHandler) MetricsHistory(c *gin.Context) {
	window := 24 * time.Hour
	if raw := c.Query("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			response.Error(c, appErrors.New(http.StatusBadRequest, "invalid window duration"))
			return
		}
		window = parsed
	}
	samples, err := h.system.MetricsHistory(c.Request.Context(), window)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"metrics": samples})
}

// Status handles GET /system/status.
func (h *SystemHandler) Status(c *gin.Context) {
	status, err := h.system.Status(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status)
}

// ListPreferences handles GET /system/preferences.
func (h *SystemHandler) ListPreferences(c *gin.Context) {
	prefs, err := h.system.ListPreferences(c.Request.Context(), c.Query("category"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"preferences": prefs})
}

type setPreferenceRequest struct {
	Category string          `json:"category"`
	Key      string          `json:"key"`
	Value    json.RawMessage `json:"value"`
}

// SetPreference handles PUT /system/preferences.
func (h *SystemHandler) SetPreference(c *gin.Context) {
	var req setPreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.New(http.StatusBadRequest, "invalid request body"))
		return
	}
	pref, err := h.system.SetPreference(c.Request.Context(), req.Category, req.Key, req.Value)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pref)
}
