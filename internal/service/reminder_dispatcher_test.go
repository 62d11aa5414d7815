package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oriontel/backoffice-api/internal/models"
)

type stubReminderStore struct {
	due      []models.Reminder
	events   map[string]*models.Event
	statuses map[string]models.ReminderStatus
}

func newStubReminderStore() *stubReminderStore {
	return &stubReminderStore{
		events:   map[string]*models.Event{},
		statuses: map[string]models.ReminderStatus{},
	}
}

func (s *stubReminderStore) DueReminders(_ context.Context, _ time.Time, _ int) ([]models.Reminder, error) {
	return s.due, nil
}

func (s *stubReminderStore) SetReminderStatus(_ context.Context, id string, status models.ReminderStatus) error {
	s.statuses[id] = status
	return nil
}

func (s *stubReminderStore) GetByID(_ context.Context, id string) (*models.Event, error) {
	event, ok := s.events[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return event, nil
}

func TestRunOnceFiresDueReminders(t *testing.T) {
	store := newStubReminderStore()
	start, _ := time.Parse(time.RFC3339, "2025-01-10T09:00:00Z")
	store.events["evt-1"] = &models.Event{
		ID:        "evt-1",
		Title:     "Team Sync",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		CreatorID: "u1",
		Attendees: []string{"u2"},
	}
	store.due = []models.Reminder{{
		ID:           "rem-1",
		EventID:      "evt-1",
		RemindAt:     start.Add(-15 * time.Minute),
		ReminderType: models.ReminderTypeEmail,
		Status:       models.ReminderStatusPending,
	}}

	notifier := &stubNotifier{}
	d := NewReminderDispatcher(store, stubUsers{}, notifier, "* * * * *", zap.NewNop())

	fired, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fired)
	assert.Equal(t, models.ReminderStatusSent, store.statuses["rem-1"])

	// Creator plus attendee each get one notification.
	require.Len(t, notifier.dispatched, 2)
	assert.Equal(t, "Reminder: Team Sync", notifier.dispatched[0].Subject)
	assert.ElementsMatch(t, []string{"u1", "u2"},
		[]string{notifier.dispatched[0].RecipientID, notifier.dispatched[1].RecipientID})
}

func TestRunOnceMarksOrphanedReminderFailed(t *testing.T) {
	store := newStubReminderStore()
	store.due = []models.Reminder{{
		ID:      "rem-gone",
		EventID: "deleted-event",
		Status:  models.ReminderStatusPending,
	}}

	d := NewReminderDispatcher(store, stubUsers{}, &stubNotifier{}, "* * * * *", zap.NewNop())

	fired, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, fired)
	assert.Equal(t, models.ReminderStatusFailed, store.statuses["rem-gone"])
}

func TestRunOnceNoDueReminders(t *testing.T) {
	d := NewReminderDispatcher(newStubReminderStore(), stubUsers{}, &stubNotifier{}, "* * * * *", zap.NewNop())
	fired, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, fired)
}
