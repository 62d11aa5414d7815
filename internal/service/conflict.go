package service

import (
	"time"

	"github.com/oriontel/backoffice-api/internal/models"
)

// ClassifyConflicts labels each candidate event against the requested
// interval [start, end). Recurring dominates adjacent dominates overlap
// when several labels apply to the same event. The function is pure
// with respect to the candidate slice.
func ClassifyConflicts(candidates []models.Event, start, end time.Time) []models.EventConflict {
	conflicts := make([]models.EventConflict, 0, len(candidates))
	for i := range candidates {
		conflicts = append(conflicts, models.EventConflict{
			ExistingEvent: candidates[i],
			ConflictType:  classify(&candidates[i], start, end),
		})
	}
	return conflicts
}

func classify(existing *models.Event, start, end time.Time) models.ConflictType {
	if recurrenceCovers(existing, start) {
		return models.ConflictRecurring
	}
	if existing.EndTime.Equal(start) || existing.StartTime.Equal(end) {
		return models.ConflictAdjacent
	}
	return models.ConflictOverlap
}

// recurrenceCovers reports whether the existing event repeats into the
// requested window. Occurrences are never expanded; only the series
// bound `until` is interpreted, so an unbounded series conflicts with
// every future interval.
func recurrenceCovers(existing *models.Event, start time.Time) bool {
	rec, err := models.ParseRecurrence(existing.Recurrence)
	if err != nil || rec == nil {
		return false
	}
	if rec.Until == nil {
		return true
	}
	return !rec.Until.Before(start)
}
