package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurationAcceptsSecondsAndStrings(t *testing.T) {
	var fromSeconds Duration
	require.NoError(t, json.Unmarshal([]byte(`900`), &fromSeconds))
	assert.Equal(t, 15*time.Minute, time.Duration(fromSeconds))

	var fromString Duration
	require.NoError(t, json.Unmarshal([]byte(`"15m"`), &fromString))
	assert.Equal(t, 15*time.Minute, time.Duration(fromString))

	var bad Duration
	assert.Error(t, json.Unmarshal([]byte(`"soon"`), &bad))
	assert.Error(t, json.Unmarshal([]byte(`{"m":15}`), &bad))
}

func TestReminderRequestWireFormat(t *testing.T) {
	var req ReminderRequest
	require.NoError(t, json.Unmarshal([]byte(`{"reminder_type":"notification","remind_before":"5m"}`), &req))
	assert.Equal(t, ReminderTypeNotification, req.ReminderType)
	assert.Equal(t, 5*time.Minute, time.Duration(req.RemindBefore))
}

func TestParseRecurrence(t *testing.T) {
	rec, err := ParseRecurrence(json.RawMessage(`{"frequency":"weekly","interval":2,"until":"2025-12-31T00:00:00Z"}`))
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "weekly", rec.Frequency)
	assert.Equal(t, 2, rec.Interval)
	require.NotNil(t, rec.Until)

	rec, err = ParseRecurrence(nil)
	require.NoError(t, err)
	assert.Nil(t, rec)

	_, err = ParseRecurrence(json.RawMessage(`{"frequency":"yearly","interval":1}`))
	assert.Error(t, err)

	_, err = ParseRecurrence(json.RawMessage(`{"frequency":"daily","interval":0}`))
	assert.Error(t, err)
}

func TestUpdateEventRequestDistinguishesAbsentFromEmpty(t *testing.T) {
	var absent UpdateEventRequest
	require.NoError(t, json.Unmarshal([]byte(`{"title":"x"}`), &absent))
	assert.Nil(t, absent.Reminders)
	assert.Nil(t, absent.Attendees)

	var empty UpdateEventRequest
	require.NoError(t, json.Unmarshal([]byte(`{"reminders":[],"attendees":[]}`), &empty))
	require.NotNil(t, empty.Reminders)
	assert.Empty(t, *empty.Reminders)
	require.NotNil(t, empty.Attendees)
	assert.Empty(t, *empty.Attendees)
}
