package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oriontel/backoffice-api/internal/middleware"
	"github.com/oriontel/backoffice-api/internal/models"
	appErrors "github.com/oriontel/backoffice-api/pkg/errors"
	"github.com/oriontel/backoffice-api/pkg/response"
)

// CalendarOperations is the service surface behind the event routes.
type CalendarOperations interface {
	CreateEvent(ctx context.Context, principal models.AuthPrincipal, req models.CreateEventRequest) (*models.EventView, error)
	GetEvent(ctx context.Context, id string) (*models.EventView, error)
	ListEvents(ctx context.Context, principal models.AuthPrincipal, start, end time.Time) ([]models.Event, error)
	UpdateEvent(ctx context.Context, id string, req models.UpdateEventRequest) (*models.EventView, error)
	DeleteEvent(ctx context.Context, id string) error
	GetMetrics(ctx context.Context, start, end time.Time) (*models.CalendarMetrics, error)
}

// CalendarHandler binds the event routes. Mutations are restricted to
// the event creator; reads to the creator and attendees.
type CalendarHandler struct {
	calendar CalendarOperations
}

// NewCalendarHandler constructs the handler.
func NewCalendarHandler(calendar CalendarOperations) *CalendarHandler {
	return &CalendarHandler{calendar: calendar}
}

// Create handles POST /events.
func (h *CalendarHandler) Create(c *gin.Context) {
	principal, ok := middleware.Principal(c)
	if !ok {
		response.Error(c, appErrors.New(http.StatusUnauthorized, "missing bearer token"))
		return
	}
	var req models.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.New(http.StatusBadRequest, "invalid request body"))
		return
	}
	view, err := h.calendar.CreateEvent(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// Get handles GET /events/:id.
func (h *CalendarHandler) Get(c *gin.Context) {
	principal, ok := middleware.Principal(c)
	if !ok {
		response.Error(c, appErrors.New(http.StatusUnauthorized, "missing bearer token"))
		return
	}
	view, err := h.calendar.GetEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !canRead(view.Event, principal) {
		response.Error(c, appErrors.New(http.StatusForbidden, "not an attendee of this event"))
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// List handles GET /events.
func (h *CalendarHandler) List(c *gin.Context) {
	principal, ok := middleware.Principal(c)
	if !ok {
		response.Error(c, appErrors.New(http.StatusUnauthorized, "missing bearer token"))
		return
	}
	start, end, err := windowParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	events, err := h.calendar.ListEvents(c.Request.Context(), principal, start, end)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"events": events})
}

// Update handles PUT /events/:id.
func (h *CalendarHandler) Update(c *gin.Context) {
	principal, ok := middleware.Principal(c)
	if !ok {
		response.Error(c, appErrors.New(http.StatusUnauthorized, "missing bearer token"))
		return
	}
	id := c.Param("id")
	if err := h.requireCreator(c.Request.Context(), id, principal); err != nil {
		response.Error(c, err)
		return
	}
	var req models.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.New(http.StatusBadRequest, "invalid request body"))
		return
	}
	view, err := h.calendar.UpdateEvent(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// Delete handles DELETE /events/:id.
func (h *CalendarHandler) Delete(c *gin.Context) {
	principal, ok := middleware.Principal(c)
	if !ok {
		response.Error(c, appErrors.New(http.StatusUnauthorized, "missing bearer token"))
		return
	}
	id := c.Param("id")
	if err := h.requireCreator(c.Request.Context(), id, principal); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.calendar.DeleteEvent(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c)
}

// Metrics handles GET /events/metrics.
func (h *CalendarHandler) Metrics(c *gin.Context) {
	start, end, err := windowParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	metrics, err := h.calendar.GetMetrics(c.Request.Context(), start, end)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, metrics)
}

func (h *CalendarHandler) requireCreator(ctx context.Context, id string, principal models.AuthPrincipal) error {
	view, err := h.calendar.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	if view.Event.CreatorID != principal.ID {
		return appErrors.New(http.StatusForbidden, "only the creator may modify this event")
	}
	return nil
}

func canRead(event models.Event, principal models.AuthPrincipal) bool {
	if event.CreatorID == principal.ID {
		return true
	}
	for _, attendee := range event.Attendees {
		if attendee == principal.ID {
			return true
		}
	}
	return false
}

// windowParams parses the required start_date and end_date query
// parameters as RFC 3339 instants.
func windowParams(c *gin.Context) (time.Time, time.Time, error) {
	start, err := time.Parse(time.RFC3339, c.Query("start_date"))
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.New(http.StatusBadRequest, fmt.Sprintf("invalid start_date: %v", err))
	}
	end, err := time.Parse(time.RFC3339, c.Query("end_date"))
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.New(http.StatusBadRequest, fmt.Sprintf("invalid end_date: %v", err))
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, appErrors.New(http.StatusBadRequest, "end_date must not precede start_date")
	}
	return start, end, nil
}
