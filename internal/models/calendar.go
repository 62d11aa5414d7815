package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// EventType classifies a calendar entry.
type EventType string

const (
	EventTypeMeeting     EventType = "meeting"
	EventTypeAppointment EventType = "appointment"
	EventTypeReminder    EventType = "reminder"
	EventTypeTask        EventType = "task"
	EventTypeOther       EventType = "other"
)

// Valid reports whether the event type is a known value.
func (t EventType) Valid() bool {
	switch t {
	case EventTypeMeeting, EventTypeAppointment, EventTypeReminder, EventTypeTask, EventTypeOther:
		return true
	}
	return false
}

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	EventStatusScheduled   EventStatus = "scheduled"
	EventStatusCancelled   EventStatus = "cancelled"
	EventStatusCompleted   EventStatus = "completed"
	EventStatusRescheduled EventStatus = "rescheduled"
)

// Valid reports whether the status is a known value.
func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusScheduled, EventStatusCancelled, EventStatusCompleted, EventStatusRescheduled:
		return true
	}
	return false
}

// ReminderType selects the delivery channel for a reminder.
type ReminderType string

const (
	ReminderTypeEmail        ReminderType = "email"
	ReminderTypeNotification ReminderType = "notification"
	ReminderTypeSMS          ReminderType = "sms"
)

// Valid reports whether the reminder type is a known value.
func (t ReminderType) Valid() bool {
	switch t {
	case ReminderTypeEmail, ReminderTypeNotification, ReminderTypeSMS:
		return true
	}
	return false
}

// ReminderStatus tracks reminder delivery.
type ReminderStatus string

const (
	ReminderStatusPending ReminderStatus = "pending"
	ReminderStatusSent    ReminderStatus = "sent"
	ReminderStatusFailed  ReminderStatus = "failed"
)

// ConflictType classifies how an existing event intersects a candidate
// interval.
type ConflictType string

const (
	ConflictOverlap   ConflictType = "overlap"
	ConflictAdjacent  ConflictType = "adjacent"
	ConflictRecurring ConflictType = "recurring"
)

// Event is a calendar entry owned by its creator, visible to attendees.
type Event struct {
	ID          string          `db:"id" json:"id"`
	Title       string          `db:"title" json:"title"`
	Description *string         `db:"description" json:"description,omitempty"`
	StartTime   time.Time       `db:"start_time" json:"start_time"`
	EndTime     time.Time       `db:"end_time" json:"end_time"`
	CreatorID   string          `db:"creator_id" json:"creator_id"`
	Attendees   pq.StringArray  `db:"attendees" json:"attendees"`
	Location    *string         `db:"location" json:"location,omitempty"`
	EventType   EventType       `db:"event_type" json:"event_type"`
	Status      EventStatus     `db:"status" json:"status"`
	Recurrence  json.RawMessage `db:"recurrence" json:"recurrence,omitempty"`
	Reminders   pq.StringArray  `db:"reminders" json:"reminders"`
	Metadata    json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// Recurrence is the interpreted subset of the stored recurrence object.
// The raw JSON is persisted verbatim; only these fields are read back.
type Recurrence struct {
	Frequency string     `json:"frequency"`
	Interval  int        `json:"interval"`
	Until     *time.Time `json:"until,omitempty"`
}

// ParseRecurrence validates the interpreted fields of a recurrence
// document. Unknown fields are ignored here and preserved in storage.
func ParseRecurrence(raw json.RawMessage) (*Recurrence, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var rec Recurrence
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("recurrence is not a valid object: %w", err)
	}
	switch rec.Frequency {
	case "daily", "weekly", "monthly":
	default:
		return nil, fmt.Errorf("recurrence frequency must be daily, weekly or monthly")
	}
	if rec.Interval < 1 {
		return nil, fmt.Errorf("recurrence interval must be >= 1")
	}
	return &rec, nil
}

// Reminder is a scheduled notification derived from an event.
type Reminder struct {
	ID           string         `db:"id" json:"id"`
	EventID      string         `db:"event_id" json:"event_id"`
	RemindAt     time.Time      `db:"remind_at" json:"remind_at"`
	ReminderType ReminderType   `db:"reminder_type" json:"reminder_type"`
	Status       ReminderStatus `db:"status" json:"status"`
}

// Duration accepts either an integer number of seconds or a Go duration
// string ("15m") on the wire.
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var seconds int64
	if err := json.Unmarshal(data, &seconds); err == nil {
		*d = Duration(time.Duration(seconds) * time.Second)
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("duration must be seconds or a duration string")
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalJSON renders the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// ReminderRequest asks for a reminder relative to the event start.
type ReminderRequest struct {
	ReminderType ReminderType `json:"reminder_type"`
	RemindBefore Duration     `json:"remind_before"`
}

// CreateEventRequest is the POST /events payload.
type CreateEventRequest struct {
	Title       string            `json:"title" validate:"required,max=255"`
	Description *string           `json:"description"`
	StartTime   time.Time         `json:"start_time" validate:"required"`
	EndTime     time.Time         `json:"end_time" validate:"required"`
	Attendees   []string          `json:"attendees"`
	Location    *string           `json:"location"`
	EventType   EventType         `json:"event_type" validate:"required"`
	Recurrence  json.RawMessage   `json:"recurrence,omitempty"`
	Reminders   []ReminderRequest `json:"reminders"`
	Metadata    json.RawMessage   `json:"metadata,omitempty"`
}

// UpdateEventRequest is the PUT /events/:id payload. Absent fields keep
// the stored value; a present reminders list (even empty) replaces the
// full reminder set.
type UpdateEventRequest struct {
	Title       *string            `json:"title" validate:"omitempty,max=255"`
	Description *string            `json:"description"`
	StartTime   *time.Time         `json:"start_time"`
	EndTime     *time.Time         `json:"end_time"`
	Attendees   *[]string          `json:"attendees"`
	Location    *string            `json:"location"`
	EventType   *EventType         `json:"event_type"`
	Status      *EventStatus       `json:"status"`
	Recurrence  json.RawMessage    `json:"recurrence,omitempty"`
	Reminders   *[]ReminderRequest `json:"reminders"`
	Metadata    json.RawMessage    `json:"metadata,omitempty"`
}

// EventView joins an event with resolved creator and attendee views.
type EventView struct {
	Event     Event      `json:"event"`
	Creator   UserInfo   `json:"creator"`
	Attendees []UserInfo `json:"attendees"`
}

// EventConflict is one detector hit.
type EventConflict struct {
	ExistingEvent Event        `json:"existing_event"`
	ConflictType  ConflictType `json:"conflict_type"`
}

// CalendarMetrics aggregates events over a window.
type CalendarMetrics struct {
	TotalEvents    int64            `json:"total_events"`
	TotalAttendees int64            `json:"total_attendees"`
	EventsByType   map[string]int64 `json:"events_by_type"`
	EventsByStatus map[string]int64 `json:"events_by_status"`
	PeriodStart    time.Time        `json:"period_start"`
	PeriodEnd      time.Time        `json:"period_end"`
}
