package models

import (
	"encoding/json"
	"time"
)

// ExtensionType is the PBX technology behind an extension.
type ExtensionType string

const (
	ExtensionTypeSIP    ExtensionType = "sip"
	ExtensionTypeIAX    ExtensionType = "iax"
	ExtensionTypeCustom ExtensionType = "custom"
)

// Valid reports whether the extension type is a known value.
func (t ExtensionType) Valid() bool {
	switch t {
	case ExtensionTypeSIP, ExtensionTypeIAX, ExtensionTypeCustom:
		return true
	}
	return false
}

// PbxExtension is a provisioned telephony endpoint.
type PbxExtension struct {
	ID              string          `db:"id" json:"id"`
	ExtensionNumber string          `db:"extension_number" json:"extension_number"`
	Name            string          `db:"name" json:"name"`
	ExtensionType   ExtensionType   `db:"extension_type" json:"extension_type"`
	ConfigData      json.RawMessage `db:"config_data" json:"config_data"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// CallStatus is the outcome of a call leg.
type CallStatus string

const (
	CallStatusActive    CallStatus = "active"
	CallStatusCompleted CallStatus = "completed"
	CallStatusFailed    CallStatus = "failed"
	CallStatusBusy      CallStatus = "busy"
	CallStatusNoAnswer  CallStatus = "no_answer"
)

// CallRecord is one call-detail record.
type CallRecord struct {
	ID            string     `db:"id" json:"id"`
	CallerID      string     `db:"caller_id" json:"caller_id"`
	RecipientID   string     `db:"recipient_id" json:"recipient_id"`
	StartTime     time.Time  `db:"start_time" json:"start_time"`
	EndTime       *time.Time `db:"end_time" json:"end_time,omitempty"`
	Duration      *int       `db:"duration" json:"duration,omitempty"`
	Status        CallStatus `db:"status" json:"status"`
	RecordingPath *string    `db:"recording_path" json:"recording_path,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// CreateExtensionRequest provisions a new extension.
type CreateExtensionRequest struct {
	ExtensionNumber string          `json:"extension_number" validate:"required,min=3,max=20"`
	Name            string          `json:"name" validate:"required,max=100"`
	ExtensionType   ExtensionType   `json:"extension_type" validate:"required"`
	ConfigData      json.RawMessage `json:"config_data"`
}

// UpdateExtensionRequest edits an extension; absent fields keep stored
// values.
type UpdateExtensionRequest struct {
	Name          *string         `json:"name" validate:"omitempty,max=100"`
	ExtensionType *ExtensionType  `json:"extension_type"`
	ConfigData    json.RawMessage `json:"config_data,omitempty"`
}

// CreateCallRecordRequest opens a call-detail record.
type CreateCallRecordRequest struct {
	CallerID    string     `json:"caller_id" validate:"required"`
	RecipientID string     `json:"recipient_id" validate:"required"`
	StartTime   time.Time  `json:"start_time" validate:"required"`
	Status      CallStatus `json:"status" validate:"required"`
}

// UpdateCallRecordRequest closes or amends a call-detail record.
type UpdateCallRecordRequest struct {
	EndTime       time.Time  `json:"end_time" validate:"required"`
	Duration      int        `json:"duration"`
	Status        CallStatus `json:"status" validate:"required"`
	RecordingPath *string    `json:"recording_path"`
}
