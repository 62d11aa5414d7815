package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/oriontel/backoffice-api/internal/models"
)

const eventColumns = `id, title, description, start_time, end_time, creator_id, attendees, location, event_type, status, recurrence, reminders, metadata, created_at, updated_at`

// CalendarRepository persists calendar events and their reminders.
type CalendarRepository struct {
	db *sqlx.DB
}

// NewCalendarRepository constructs a calendar repository.
func NewCalendarRepository(db *sqlx.DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

// Create inserts an event row.
func (r *CalendarRepository) Create(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now
	if event.Attendees == nil {
		event.Attendees = pq.StringArray{}
	}
	if event.Reminders == nil {
		event.Reminders = pq.StringArray{}
	}
	query := `INSERT INTO calendar_events (id, title, description, start_time, end_time, creator_id, attendees, location, event_type, status, recurrence, reminders, metadata, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.Title, event.Description, event.StartTime, event.EndTime,
		event.CreatorID, event.Attendees, event.Location, event.EventType, event.Status,
		nullableJSON(event.Recurrence), event.Reminders, nullableJSON(event.Metadata),
		event.CreatedAt, event.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// GetByID fetches an event.
func (r *CalendarRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM calendar_events WHERE id = $1", eventColumns)
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		return nil, err
	}
	return &event, nil
}

// ListForUser returns events the user created or attends with a start
// time inside [start, end], ascending by start time.
func (r *CalendarRepository) ListForUser(ctx context.Context, userID string, start, end time.Time) ([]models.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM calendar_events
WHERE (creator_id = $1 OR $1 = ANY(attendees))
AND start_time BETWEEN $2 AND $3
ORDER BY start_time`, eventColumns)
	events := []models.Event{}
	if err := r.db.SelectContext(ctx, &events, query, userID, start, end); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// EventPatch carries the optional fields of a partial update. Nil
// members keep the stored value via COALESCE.
type EventPatch struct {
	Title       *string
	Description *string
	StartTime   *time.Time
	EndTime     *time.Time
	Attendees   *[]string
	Location    *string
	EventType   *models.EventType
	Status      *models.EventStatus
	Recurrence  []byte
	Metadata    []byte
}

// UpdatePartial merges the patch into the stored row and returns the
// updated event. sql.ErrNoRows signals a missing event.
func (r *CalendarRepository) UpdatePartial(ctx context.Context, id string, patch EventPatch) (*models.Event, error) {
	var attendees interface{}
	if patch.Attendees != nil {
		attendees = pq.StringArray(*patch.Attendees)
	}
	query := fmt.Sprintf(`UPDATE calendar_events
SET title = COALESCE($1, title),
    description = COALESCE($2, description),
    start_time = COALESCE($3, start_time),
    end_time = COALESCE($4, end_time),
    attendees = COALESCE($5, attendees),
    location = COALESCE($6, location),
    event_type = COALESCE($7, event_type),
    status = COALESCE($8, status),
    recurrence = COALESCE($9, recurrence),
    metadata = COALESCE($10, metadata),
    updated_at = NOW()
WHERE id = $11
RETURNING %s`, eventColumns)
	var event models.Event
	err := r.db.GetContext(ctx, &event, query,
		patch.Title, patch.Description, patch.StartTime, patch.EndTime, attendees,
		patch.Location, patch.EventType, patch.Status,
		nullableJSON(patch.Recurrence), nullableJSON(patch.Metadata), id)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// Delete removes an event. Reminder rows cascade at the schema level;
// the returned count reports whether a row matched.
func (r *CalendarRepository) Delete(ctx context.Context, id string) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM calendar_events WHERE id = $1", id)
	if err != nil {
		return 0, fmt.Errorf("delete event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete event: %w", err)
	}
	return affected, nil
}

// FindConflictCandidates selects the user's non-cancelled events whose
// interval overlaps [start, end) half-open, or whose recurrence window
// reaches into it.
func (r *CalendarRepository) FindConflictCandidates(ctx context.Context, userID string, start, end time.Time) ([]models.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM calendar_events
WHERE (creator_id = $1 OR $1 = ANY(attendees))
AND status <> 'cancelled'
AND (
    (start_time, end_time) OVERLAPS ($2, $3)
    OR (
        recurrence IS NOT NULL
        AND start_time <= $3
        AND (recurrence->>'until' IS NULL OR (recurrence->>'until')::timestamptz >= $2)
    )
)`, eventColumns)
	events := []models.Event{}
	if err := r.db.SelectContext(ctx, &events, query, userID, start, end); err != nil {
		return nil, fmt.Errorf("find conflicts: %w", err)
	}
	return events, nil
}

// ReplaceReminders swaps the full reminder set of an event inside one
// transaction and mirrors the ids onto the event row.
func (r *CalendarRepository) ReplaceReminders(ctx context.Context, eventID string, reminders []models.Reminder) ([]models.Reminder, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("replace reminders: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM event_reminders WHERE event_id = $1", eventID); err != nil {
		return nil, fmt.Errorf("clear reminders: %w", err)
	}

	ids := make(pq.StringArray, 0, len(reminders))
	inserted := make([]models.Reminder, 0, len(reminders))
	for _, reminder := range reminders {
		if reminder.ID == "" {
			reminder.ID = uuid.NewString()
		}
		reminder.EventID = eventID
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO event_reminders (id, event_id, remind_at, reminder_type, status) VALUES ($1, $2, $3, $4, $5)`,
			reminder.ID, reminder.EventID, reminder.RemindAt, reminder.ReminderType, reminder.Status); err != nil {
			return nil, fmt.Errorf("insert reminder: %w", err)
		}
		ids = append(ids, reminder.ID)
		inserted = append(inserted, reminder)
	}

	if _, err := tx.ExecContext(ctx, "UPDATE calendar_events SET reminders = $1 WHERE id = $2", ids, eventID); err != nil {
		return nil, fmt.Errorf("update reminder ids: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("replace reminders: %w", err)
	}
	return inserted, nil
}

// RemindersByEvent lists the reminders attached to an event.
func (r *CalendarRepository) RemindersByEvent(ctx context.Context, eventID string) ([]models.Reminder, error) {
	reminders := []models.Reminder{}
	query := "SELECT id, event_id, remind_at, reminder_type, status FROM event_reminders WHERE event_id = $1 ORDER BY remind_at"
	if err := r.db.SelectContext(ctx, &reminders, query, eventID); err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	return reminders, nil
}

// DueReminders returns pending reminders whose fire time has passed.
func (r *CalendarRepository) DueReminders(ctx context.Context, now time.Time, limit int) ([]models.Reminder, error) {
	if limit <= 0 {
		limit = 100
	}
	reminders := []models.Reminder{}
	query := `SELECT id, event_id, remind_at, reminder_type, status FROM event_reminders
WHERE status = 'pending' AND remind_at <= $1
ORDER BY remind_at
LIMIT $2`
	if err := r.db.SelectContext(ctx, &reminders, query, now, limit); err != nil {
		return nil, fmt.Errorf("due reminders: %w", err)
	}
	return reminders, nil
}

// SetReminderStatus records the delivery outcome of a reminder.
func (r *CalendarRepository) SetReminderStatus(ctx context.Context, id string, status models.ReminderStatus) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE event_reminders SET status = $1 WHERE id = $2", status, id); err != nil {
		return fmt.Errorf("set reminder status: %w", err)
	}
	return nil
}

// TypeStatusCount is one (event_type, status) bucket of the metrics
// aggregation.
type TypeStatusCount struct {
	EventType string `db:"event_type"`
	Status    string `db:"status"`
	Count     int64  `db:"count"`
}

// CountByTypeAndStatus groups events in the window by type and status.
func (r *CalendarRepository) CountByTypeAndStatus(ctx context.Context, start, end time.Time) ([]TypeStatusCount, error) {
	counts := []TypeStatusCount{}
	query := `SELECT event_type, status, COUNT(*) AS count FROM calendar_events
WHERE start_time BETWEEN $1 AND $2
GROUP BY event_type, status`
	if err := r.db.SelectContext(ctx, &counts, query, start, end); err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	return counts, nil
}

// CountDistinctAttendees counts distinct attendee ids across events in
// the window.
func (r *CalendarRepository) CountDistinctAttendees(ctx context.Context, start, end time.Time) (int64, error) {
	var count int64
	query := `SELECT COUNT(DISTINCT attendee) FROM calendar_events, unnest(attendees) AS attendee
WHERE start_time BETWEEN $1 AND $2`
	if err := r.db.GetContext(ctx, &count, query, start, end); err != nil {
		return 0, fmt.Errorf("count attendees: %w", err)
	}
	return count, nil
}

// nullableJSON maps empty JSON payloads to SQL NULL so COALESCE and
// jsonb columns behave.
func nullableJSON(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
