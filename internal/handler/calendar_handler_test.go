package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oriontel/backoffice-api/internal/middleware"
	"github.com/oriontel/backoffice-api/internal/models"
	appErrors "github.com/oriontel/backoffice-api/pkg/errors"
)

type stubCalendar struct {
	view      *models.EventView
	events    []models.Event
	metrics   *models.CalendarMetrics
	createErr error
	deleted   []string
}

func (s *stubCalendar) CreateEvent(_ context.Context, _ models.AuthPrincipal, _ models.CreateEventRequest) (*models.EventView, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return s.view, nil
}

func (s *stubCalendar) GetEvent(_ context.Context, id string) (*models.EventView, error) {
	if s.view == nil || s.view.Event.ID != id {
		return nil, appErrors.New(http.StatusNotFound, "event not found")
	}
	return s.view, nil
}

func (s *stubCalendar) ListEvents(_ context.Context, _ models.AuthPrincipal, _, _ time.Time) ([]models.Event, error) {
	return s.events, nil
}

func (s *stubCalendar) UpdateEvent(_ context.Context, _ string, _ models.UpdateEventRequest) (*models.EventView, error) {
	return s.view, nil
}

func (s *stubCalendar) DeleteEvent(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubCalendar) GetMetrics(_ context.Context, _, _ time.Time) (*models.CalendarMetrics, error) {
	return s.metrics, nil
}

func asPrincipal(principal models.AuthPrincipal) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.PrincipalKey, principal)
		c.Next()
	}
}

func newEventRouter(calendar *stubCalendar, principal models.AuthPrincipal) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewCalendarHandler(calendar)
	router := gin.New()
	group := router.Group("/events", asPrincipal(principal))
	group.POST("", h.Create)
	group.GET("/:id", h.Get)
	group.PUT("/:id", h.Update)
	group.DELETE("/:id", h.Delete)
	group.GET("", h.List)
	return router
}

func sampleView(creatorID string, attendees ...string) *models.EventView {
	return &models.EventView{
		Event: models.Event{
			ID:        "evt-1",
			Title:     "Team Sync",
			CreatorID: creatorID,
			Attendees: attendees,
		},
		Creator: models.UserInfo{ID: creatorID, Username: "alice"},
	}
}

func TestUpdateRejectsNonCreator(t *testing.T) {
	calendar := &stubCalendar{view: sampleView("u1", "u2")}
	router := newEventRouter(calendar, models.AuthPrincipal{ID: "u2"})

	req := httptest.NewRequest(http.MethodPut, "/events/evt-1", strings.NewReader(`{"title":"Hijacked"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)

	var body struct {
		Error struct {
			Message string `json:"message"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusForbidden, body.Error.Code)
	assert.Contains(t, body.Error.Message, "creator")
}

func TestDeleteAllowsCreator(t *testing.T) {
	calendar := &stubCalendar{view: sampleView("u1")}
	router := newEventRouter(calendar, models.AuthPrincipal{ID: "u1"})

	req := httptest.NewRequest(http.MethodDelete, "/events/evt-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"evt-1"}, calendar.deleted)
}

func TestGetAllowsAttendee(t *testing.T) {
	calendar := &stubCalendar{view: sampleView("u1", "u2")}
	router := newEventRouter(calendar, models.AuthPrincipal{ID: "u2"})

	req := httptest.NewRequest(http.MethodGet, "/events/evt-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetRejectsStranger(t *testing.T) {
	calendar := &stubCalendar{view: sampleView("u1", "u2")}
	router := newEventRouter(calendar, models.AuthPrincipal{ID: "u9"})

	req := httptest.NewRequest(http.MethodGet, "/events/evt-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListRequiresWindow(t *testing.T) {
	calendar := &stubCalendar{}
	router := newEventRouter(calendar, models.AuthPrincipal{ID: "u1"})

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodGet,
		"/events?start_date=2025-01-10T00:00:00Z&end_date=2025-01-11T00:00:00Z", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListRejectsInvertedWindow(t *testing.T) {
	calendar := &stubCalendar{}
	router := newEventRouter(calendar, models.AuthPrincipal{ID: "u1"})

	req := httptest.NewRequest(http.MethodGet,
		"/events?start_date=2025-01-11T00:00:00Z&end_date=2025-01-10T00:00:00Z", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreatePropagatesConflictError(t *testing.T) {
	calendar := &stubCalendar{
		createErr: appErrors.New(http.StatusBadRequest, "Event conflicts with 1 existing events"),
	}
	router := newEventRouter(calendar, models.AuthPrincipal{ID: "u1"})

	payload := `{"title":"Clash","start_time":"2025-01-10T09:00:00Z","end_time":"2025-01-10T10:00:00Z","event_type":"meeting"}`
	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "conflicts with 1 existing")
}
