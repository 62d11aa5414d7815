package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/oriontel/backoffice-api/internal/models"
	"github.com/oriontel/backoffice-api/internal/notify"
)

const dueReminderBatch = 100

// ReminderStore is the persistence surface the dispatcher depends on.
type ReminderStore interface {
	DueReminders(ctx context.Context, now time.Time, limit int) ([]models.Reminder, error)
	SetReminderStatus(ctx context.Context, id string, status models.ReminderStatus) error
	GetByID(ctx context.Context, id string) (*models.Event, error)
}

// ReminderDispatcher periodically fires pending reminders whose
// remind_at has passed. Delivery is best effort; a reminder is marked
// sent once its notifications are handed to the queue.
type ReminderDispatcher struct {
	store    ReminderStore
	users    UserDirectory
	notifier NotificationDispatcher
	logger   *zap.Logger
	cron     *cron.Cron
	spec     string
}

// NewReminderDispatcher builds a dispatcher on the given cron spec.
func NewReminderDispatcher(store ReminderStore, users UserDirectory, notifier NotificationDispatcher, spec string, logger *zap.Logger) *ReminderDispatcher {
	return &ReminderDispatcher{
		store:    store,
		users:    users,
		notifier: notifier,
		logger:   logger,
		cron:     cron.New(),
		spec:     spec,
	}
}

// Start schedules the periodic scan.
func (d *ReminderDispatcher) Start(ctx context.Context) error {
	_, err := d.cron.AddFunc(d.spec, func() {
		fired, err := d.RunOnce(ctx)
		if err != nil {
			d.logger.Sugar().Errorw("reminder scan failed", "error", err)
			return
		}
		if fired > 0 {
			d.logger.Sugar().Infow("reminders dispatched", "count", fired)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule reminder scan: %w", err)
	}
	d.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running scan to finish.
func (d *ReminderDispatcher) Stop() {
	<-d.cron.Stop().Done()
}

// RunOnce fires every due pending reminder and reports how many were
// dispatched.
func (d *ReminderDispatcher) RunOnce(ctx context.Context) (int, error) {
	due, err := d.store.DueReminders(ctx, time.Now().UTC(), dueReminderBatch)
	if err != nil {
		return 0, fmt.Errorf("scan due reminders: %w", err)
	}

	fired := 0
	for _, reminder := range due {
		if err := d.fire(ctx, reminder); err != nil {
			d.logger.Sugar().Warnw("reminder dispatch failed", "reminder_id", reminder.ID, "error", err)
			if err := d.store.SetReminderStatus(ctx, reminder.ID, models.ReminderStatusFailed); err != nil {
				d.logger.Sugar().Errorw("failed to mark reminder failed", "reminder_id", reminder.ID, "error", err)
			}
			continue
		}
		if err := d.store.SetReminderStatus(ctx, reminder.ID, models.ReminderStatusSent); err != nil {
			d.logger.Sugar().Errorw("failed to mark reminder sent", "reminder_id", reminder.ID, "error", err)
			continue
		}
		fired++
	}
	return fired, nil
}

func (d *ReminderDispatcher) fire(ctx context.Context, reminder models.Reminder) error {
	event, err := d.store.GetByID(ctx, reminder.EventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("event %s is gone", reminder.EventID)
		}
		return fmt.Errorf("load event %s: %w", reminder.EventID, err)
	}
	creator, err := d.users.InfoByID(ctx, event.CreatorID)
	if err != nil {
		return fmt.Errorf("resolve creator %s: %w", event.CreatorID, err)
	}

	// The creator receives the reminder alongside the attendees.
	target := *event
	target.Attendees = dedupe(append([]string{event.CreatorID}, event.Attendees...))
	subject := fmt.Sprintf("Reminder: %s", event.Title)
	d.notifier.Dispatch(notify.Compose(&target, creator.Username, subject))
	return nil
}
