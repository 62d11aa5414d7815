package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oriontel/backoffice-api/internal/models"
)

func mustParse(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return ts
}

func TestClassifyConflictsOverlap(t *testing.T) {
	start := mustParse(t, "2025-01-10T09:00:00Z")
	end := mustParse(t, "2025-01-10T10:00:00Z")

	existing := models.Event{
		ID:        "evt-1",
		StartTime: mustParse(t, "2025-01-10T09:30:00Z"),
		EndTime:   mustParse(t, "2025-01-10T10:30:00Z"),
	}

	conflicts := ClassifyConflicts([]models.Event{existing}, start, end)
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictOverlap, conflicts[0].ConflictType)
	assert.Equal(t, "evt-1", conflicts[0].ExistingEvent.ID)
}

func TestClassifyConflictsAdjacent(t *testing.T) {
	start := mustParse(t, "2025-01-10T10:00:00Z")
	end := mustParse(t, "2025-01-10T11:00:00Z")

	before := models.Event{
		StartTime: mustParse(t, "2025-01-10T09:00:00Z"),
		EndTime:   mustParse(t, "2025-01-10T10:00:00Z"),
	}
	after := models.Event{
		StartTime: mustParse(t, "2025-01-10T11:00:00Z"),
		EndTime:   mustParse(t, "2025-01-10T12:00:00Z"),
	}

	conflicts := ClassifyConflicts([]models.Event{before, after}, start, end)
	require.Len(t, conflicts, 2)
	assert.Equal(t, models.ConflictAdjacent, conflicts[0].ConflictType)
	assert.Equal(t, models.ConflictAdjacent, conflicts[1].ConflictType)
}

func TestClassifyConflictsRecurringDominates(t *testing.T) {
	start := mustParse(t, "2025-01-10T09:00:00Z")
	end := mustParse(t, "2025-01-10T10:00:00Z")

	// Touches the candidate start and carries an unbounded series, so the
	// recurring label wins over adjacent.
	existing := models.Event{
		StartTime:  mustParse(t, "2025-01-10T08:00:00Z"),
		EndTime:    mustParse(t, "2025-01-10T09:00:00Z"),
		Recurrence: json.RawMessage(`{"frequency":"weekly","interval":1}`),
	}

	conflicts := ClassifyConflicts([]models.Event{existing}, start, end)
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictRecurring, conflicts[0].ConflictType)
}

func TestClassifyConflictsExpiredRecurrence(t *testing.T) {
	start := mustParse(t, "2025-06-01T09:00:00Z")
	end := mustParse(t, "2025-06-01T10:00:00Z")

	// The series ended before the window, so only the concrete interval
	// matters and it overlaps nothing recurring.
	existing := models.Event{
		StartTime:  mustParse(t, "2025-06-01T09:30:00Z"),
		EndTime:    mustParse(t, "2025-06-01T10:30:00Z"),
		Recurrence: json.RawMessage(`{"frequency":"daily","interval":1,"until":"2025-03-01T00:00:00Z"}`),
	}

	conflicts := ClassifyConflicts([]models.Event{existing}, start, end)
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictOverlap, conflicts[0].ConflictType)
}

func TestClassifyConflictsBoundedRecurrenceStillActive(t *testing.T) {
	start := mustParse(t, "2025-02-01T09:00:00Z")
	end := mustParse(t, "2025-02-01T10:00:00Z")

	existing := models.Event{
		StartTime:  mustParse(t, "2025-01-01T09:00:00Z"),
		EndTime:    mustParse(t, "2025-01-01T10:00:00Z"),
		Recurrence: json.RawMessage(`{"frequency":"weekly","interval":2,"until":"2025-12-31T00:00:00Z"}`),
	}

	conflicts := ClassifyConflicts([]models.Event{existing}, start, end)
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictRecurring, conflicts[0].ConflictType)
}

func TestClassifyConflictsEmpty(t *testing.T) {
	conflicts := ClassifyConflicts(nil, time.Now(), time.Now().Add(time.Hour))
	assert.Empty(t, conflicts)
}
