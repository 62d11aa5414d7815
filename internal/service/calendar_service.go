package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/oriontel/backoffice-api/internal/models"
	"github.com/oriontel/backoffice-api/internal/notify"
	"github.com/oriontel/backoffice-api/internal/repository"
	"github.com/oriontel/backoffice-api/pkg/cache"
	appErrors "github.com/oriontel/backoffice-api/pkg/errors"
)

const (
	subjectEventCreated = "New event invitation"
	subjectEventUpdated = "Event updated"
)

// EventStore is the persistence surface CalendarService depends on.
type EventStore interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id string) (*models.Event, error)
	ListForUser(ctx context.Context, userID string, start, end time.Time) ([]models.Event, error)
	UpdatePartial(ctx context.Context, id string, patch repository.EventPatch) (*models.Event, error)
	Delete(ctx context.Context, id string) (int64, error)
	FindConflictCandidates(ctx context.Context, userID string, start, end time.Time) ([]models.Event, error)
	ReplaceReminders(ctx context.Context, eventID string, reminders []models.Reminder) ([]models.Reminder, error)
	CountByTypeAndStatus(ctx context.Context, start, end time.Time) ([]repository.TypeStatusCount, error)
	CountDistinctAttendees(ctx context.Context, start, end time.Time) (int64, error)
}

// UserDirectory resolves principals for event views.
type UserDirectory interface {
	InfoByID(ctx context.Context, id string) (*models.UserInfo, error)
	InfosByIDs(ctx context.Context, ids []string) ([]models.UserInfo, error)
}

// NotificationDispatcher accepts composed notifications for delivery.
type NotificationDispatcher interface {
	Dispatch(notifications []notify.Notification)
}

// CalendarService implements the event lifecycle: validation, conflict
// scan, reminder materialisation and attendee fan-out.
type CalendarService struct {
	events    EventStore
	users     UserDirectory
	notifier  NotificationDispatcher
	snapshots *cache.Snapshots
	validate  *validator.Validate
}

// NewCalendarService wires the calendar service.
func NewCalendarService(events EventStore, users UserDirectory, notifier NotificationDispatcher, snapshots *cache.Snapshots) *CalendarService {
	return &CalendarService{
		events:    events,
		users:     users,
		notifier:  notifier,
		snapshots: snapshots,
		validate:  validator.New(),
	}
}

// CreateEvent validates the request, scans the creator's visible
// schedule for conflicts, persists the event with its reminders and
// fans out invitations to every attendee.
func (s *CalendarService) CreateEvent(ctx context.Context, principal models.AuthPrincipal, req models.CreateEventRequest) (*models.EventView, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.New(http.StatusBadRequest, err.Error())
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, appErrors.New(http.StatusBadRequest, "end_time must be after start_time")
	}
	if !req.EventType.Valid() {
		return nil, appErrors.New(http.StatusBadRequest, fmt.Sprintf("unknown event_type %q", req.EventType))
	}
	if _, err := models.ParseRecurrence(req.Recurrence); err != nil {
		return nil, appErrors.New(http.StatusBadRequest, err.Error())
	}
	if err := validateReminderRequests(req.Reminders); err != nil {
		return nil, err
	}

	candidates, err := s.events.FindConflictCandidates(ctx, principal.ID, req.StartTime, req.EndTime)
	if err != nil {
		return nil, appErrors.Wrap(err, http.StatusInternalServerError, "conflict scan failed")
	}
	conflicts := ClassifyConflicts(candidates, req.StartTime, req.EndTime)
	if len(conflicts) > 0 {
		return nil, appErrors.New(http.StatusBadRequest,
			fmt.Sprintf("Event conflicts with %d existing events", len(conflicts)))
	}

	event := &models.Event{
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime.UTC(),
		EndTime:     req.EndTime.UTC(),
		CreatorID:   principal.ID,
		Attendees:   dedupe(req.Attendees),
		Location:    req.Location,
		EventType:   req.EventType,
		Status:      models.EventStatusScheduled,
		Recurrence:  req.Recurrence,
		Metadata:    req.Metadata,
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to create event")
	}

	if len(req.Reminders) > 0 {
		rows, err := s.events.ReplaceReminders(ctx, event.ID, materialiseReminders(event, req.Reminders))
		if err != nil {
			return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to create reminders")
		}
		event.Reminders = reminderIDs(rows)
	}

	view, err := s.buildView(ctx, event)
	if err != nil {
		return nil, err
	}
	s.notifier.Dispatch(notify.Compose(event, view.Creator.Username, subjectEventCreated))
	return view, nil
}

// GetEvent reads a single event. Access control is the HTTP layer's
// responsibility.
func (s *CalendarService) GetEvent(ctx context.Context, id string) (*models.EventView, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.New(http.StatusNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to load event")
	}
	return s.buildView(ctx, event)
}

// ListEvents returns the principal's visible events in the window,
// ordered by start time.
func (s *CalendarService) ListEvents(ctx context.Context, principal models.AuthPrincipal, start, end time.Time) ([]models.Event, error) {
	events, err := s.events.ListForUser(ctx, principal.ID, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to list events")
	}
	return events, nil
}

// UpdateEvent merges the request field-wise into the stored event. A
// present reminders list replaces the full reminder set; an absent one
// leaves reminders untouched. Moving a single endpoint is validated
// against the stored counterpart so the merged interval stays ordered.
// The new interval is not re-checked for conflicts, matching the
// create-time-only conflict policy.
func (s *CalendarService) UpdateEvent(ctx context.Context, id string, req models.UpdateEventRequest) (*models.EventView, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.New(http.StatusBadRequest, err.Error())
	}
	if req.StartTime != nil && req.EndTime != nil && !req.EndTime.After(*req.StartTime) {
		return nil, appErrors.New(http.StatusBadRequest, "end_time must be after start_time")
	}
	if req.EventType != nil && !req.EventType.Valid() {
		return nil, appErrors.New(http.StatusBadRequest, fmt.Sprintf("unknown event_type %q", *req.EventType))
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, appErrors.New(http.StatusBadRequest, fmt.Sprintf("unknown status %q", *req.Status))
	}
	if _, err := models.ParseRecurrence(req.Recurrence); err != nil {
		return nil, appErrors.New(http.StatusBadRequest, err.Error())
	}
	if req.Reminders != nil {
		if err := validateReminderRequests(*req.Reminders); err != nil {
			return nil, err
		}
	}
	if (req.StartTime == nil) != (req.EndTime == nil) {
		stored, err := s.events.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.New(http.StatusNotFound, "event not found")
			}
			return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to load event")
		}
		start, end := stored.StartTime, stored.EndTime
		if req.StartTime != nil {
			start = *req.StartTime
		}
		if req.EndTime != nil {
			end = *req.EndTime
		}
		if !end.After(start) {
			return nil, appErrors.New(http.StatusBadRequest, "end_time must be after start_time")
		}
	}

	patch := repository.EventPatch{
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Location:    req.Location,
		EventType:   req.EventType,
		Status:      req.Status,
		Recurrence:  req.Recurrence,
		Metadata:    req.Metadata,
	}
	if req.Attendees != nil {
		deduped := dedupe(*req.Attendees)
		patch.Attendees = &deduped
	}

	event, err := s.events.UpdatePartial(ctx, id, patch)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.New(http.StatusNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to update event")
	}

	if req.Reminders != nil {
		rows, err := s.events.ReplaceReminders(ctx, event.ID, materialiseReminders(event, *req.Reminders))
		if err != nil {
			return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to replace reminders")
		}
		event.Reminders = reminderIDs(rows)
	}

	view, err := s.buildView(ctx, event)
	if err != nil {
		return nil, err
	}
	s.notifier.Dispatch(notify.Compose(event, view.Creator.Username, subjectEventUpdated))
	return view, nil
}

// DeleteEvent removes the event. Reminders cascade; attendees are not
// notified.
func (s *CalendarService) DeleteEvent(ctx context.Context, id string) error {
	affected, err := s.events.Delete(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, http.StatusInternalServerError, "failed to delete event")
	}
	if affected == 0 {
		return appErrors.New(http.StatusNotFound, "event not found")
	}
	return nil
}

// GetMetrics aggregates the window [start, end], serving from the
// snapshot cache when a fresh aggregate exists.
func (s *CalendarService) GetMetrics(ctx context.Context, start, end time.Time) (*models.CalendarMetrics, error) {
	key := fmt.Sprintf("calendar:metrics:%d:%d", start.Unix(), end.Unix())
	var metrics models.CalendarMetrics
	if hit, err := s.snapshots.Get(ctx, key, &metrics); err == nil && hit {
		return &metrics, nil
	}

	counts, err := s.events.CountByTypeAndStatus(ctx, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to aggregate events")
	}
	attendees, err := s.events.CountDistinctAttendees(ctx, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to count attendees")
	}

	metrics = models.CalendarMetrics{
		TotalAttendees: attendees,
		EventsByType:   map[string]int64{},
		EventsByStatus: map[string]int64{},
		PeriodStart:    start,
		PeriodEnd:      end,
	}
	for _, c := range counts {
		metrics.TotalEvents += c.Count
		metrics.EventsByType[c.EventType] += c.Count
		metrics.EventsByStatus[c.Status] += c.Count
	}

	// A failed cache write only costs the next caller a recompute.
	_ = s.snapshots.Set(ctx, key, &metrics)
	return &metrics, nil
}

func (s *CalendarService) buildView(ctx context.Context, event *models.Event) (*models.EventView, error) {
	creator, err := s.users.InfoByID(ctx, event.CreatorID)
	if err != nil {
		return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to resolve creator")
	}
	attendees, err := s.users.InfosByIDs(ctx, event.Attendees)
	if err != nil {
		return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to resolve attendees")
	}
	return &models.EventView{
		Event:     *event,
		Creator:   *creator,
		Attendees: attendees,
	}, nil
}

// validateReminderRequests rejects unknown channels and non-positive
// offsets. A zero offset would fire a reminder at the event start.
func validateReminderRequests(reminders []models.ReminderRequest) error {
	for _, r := range reminders {
		if !r.ReminderType.Valid() {
			return appErrors.New(http.StatusBadRequest, fmt.Sprintf("unknown reminder_type %q", r.ReminderType))
		}
		if time.Duration(r.RemindBefore) <= 0 {
			return appErrors.New(http.StatusBadRequest, "remind_before must be greater than zero")
		}
	}
	return nil
}

func materialiseReminders(event *models.Event, reminders []models.ReminderRequest) []models.Reminder {
	rows := make([]models.Reminder, 0, len(reminders))
	for _, r := range reminders {
		rows = append(rows, models.Reminder{
			EventID:      event.ID,
			RemindAt:     event.StartTime.Add(-time.Duration(r.RemindBefore)).UTC(),
			ReminderType: r.ReminderType,
			Status:       models.ReminderStatusPending,
		})
	}
	return rows
}

func reminderIDs(rows []models.Reminder) []string {
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids
}

// dedupe drops repeated attendee ids, preserving first-seen order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
