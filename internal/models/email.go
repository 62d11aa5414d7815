package models

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// EmailStatus tracks an email through its lifecycle.
type EmailStatus string

const (
	EmailStatusDraft     EmailStatus = "draft"
	EmailStatusSent      EmailStatus = "sent"
	EmailStatusFailed    EmailStatus = "failed"
	EmailStatusScheduled EmailStatus = "scheduled"
)

// Email is an outbound message addressed to internal users.
type Email struct {
	ID           string          `db:"id" json:"id"`
	SenderID     string          `db:"sender_id" json:"sender_id"`
	RecipientIDs pq.StringArray  `db:"recipient_ids" json:"recipient_ids"`
	Subject      string          `db:"subject" json:"subject"`
	Content      string          `db:"content" json:"content"`
	Attachments  json.RawMessage `db:"attachments" json:"attachments,omitempty"`
	Status       EmailStatus     `db:"status" json:"status"`
	SentAt       time.Time       `db:"sent_at" json:"sent_at"`
}

// CreateEmailRequest composes a new email; a schedule time defers
// delivery and stores it as scheduled.
type CreateEmailRequest struct {
	RecipientIDs []string        `json:"recipient_ids" validate:"required,min=1"`
	Subject      string          `json:"subject" validate:"required,max=255"`
	Content      string          `json:"content" validate:"required"`
	Attachments  json.RawMessage `json:"attachments,omitempty"`
	ScheduleTime *time.Time      `json:"schedule_time,omitempty"`
}

// UpdateEmailRequest edits a draft; absent fields keep stored values.
type UpdateEmailRequest struct {
	RecipientIDs *[]string       `json:"recipient_ids"`
	Subject      *string         `json:"subject" validate:"omitempty,max=255"`
	Content      *string         `json:"content"`
	Attachments  json.RawMessage `json:"attachments,omitempty"`
	ScheduleTime *time.Time      `json:"schedule_time"`
}

// EmailMetrics summarises delivery over a window.
type EmailMetrics struct {
	TotalSent   int64     `json:"total_sent"`
	TotalFailed int64     `json:"total_failed"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

// EmailTemplate is a reusable subject/content pair with declared
// substitution variables.
type EmailTemplate struct {
	ID        string          `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	Subject   string          `db:"subject" json:"subject"`
	Content   string          `db:"content" json:"content"`
	Variables json.RawMessage `db:"variables" json:"variables"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// CreateTemplateRequest registers a new template.
type CreateTemplateRequest struct {
	Name      string          `json:"name" validate:"required,max=100"`
	Subject   string          `json:"subject" validate:"required,max=255"`
	Content   string          `json:"content" validate:"required"`
	Variables json.RawMessage `json:"variables,omitempty"`
}
