package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/oriontel/backoffice-api/internal/models"
	"github.com/oriontel/backoffice-api/pkg/config"
	"github.com/oriontel/backoffice-api/pkg/jobs"
	"github.com/oriontel/backoffice-api/pkg/mailer"
)

var deliveryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "backoffice_notifications_total",
	Help: "Attendee notifications by delivery outcome.",
}, []string{"outcome"})

// Notification targets a single recipient. Fan-out produces one
// notification per attendee rather than one broadcast.
type Notification struct {
	RecipientID string
	Subject     string
	Body        string
}

// RecipientDirectory resolves principal ids to deliverable addresses.
type RecipientDirectory interface {
	EmailsByIDs(ctx context.Context, ids []string) ([]string, error)
}

// Notifier composes attendee notifications on the write path and hands
// delivery to a background queue so a slow or failing relay cannot roll
// back committed calendar writes.
type Notifier struct {
	queue     *jobs.Queue
	mailer    mailer.Mailer
	directory RecipientDirectory
	logger    *zap.Logger
}

// New builds a notifier with its own delivery queue. Call Start before
// dispatching.
func New(m mailer.Mailer, directory RecipientDirectory, cfg config.NotifyConfig, logger *zap.Logger) *Notifier {
	n := &Notifier{
		mailer:    m,
		directory: directory,
		logger:    logger,
	}
	n.queue = jobs.NewQueue("notifications", n.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return n
}

// Start launches the delivery workers.
func (n *Notifier) Start(ctx context.Context) {
	n.queue.Start(ctx)
}

// Stop drains the workers.
func (n *Notifier) Stop() {
	n.queue.Stop()
}

// Compose builds one notification per attendee with the fixed
// plain-text layout. Times render as RFC 3339 UTC.
func Compose(event *models.Event, creatorUsername, subject string) []Notification {
	location := "Not specified"
	if event.Location != nil && *event.Location != "" {
		location = *event.Location
	}
	description := ""
	if event.Description != nil {
		description = *event.Description
	}

	var b strings.Builder
	b.WriteString("Event: " + event.Title + "\n")
	b.WriteString("Organizer: " + creatorUsername + "\n")
	b.WriteString("When: " + event.StartTime.UTC().Format(time.RFC3339) + " to " + event.EndTime.UTC().Format(time.RFC3339) + "\n")
	b.WriteString("Location: " + location + "\n\n")
	b.WriteString(description)
	body := b.String()

	notifications := make([]Notification, 0, len(event.Attendees))
	for _, attendeeID := range event.Attendees {
		notifications = append(notifications, Notification{
			RecipientID: attendeeID,
			Subject:     subject,
			Body:        body,
		})
	}
	return notifications
}

// Dispatch enqueues notifications for background delivery. Call after
// the enclosing write has committed.
func (n *Notifier) Dispatch(notifications []Notification) {
	for _, notification := range notifications {
		err := n.queue.Enqueue(jobs.Job{
			ID:      uuid.NewString(),
			Type:    "attendee_notification",
			Payload: notification,
		})
		if err != nil {
			n.logger.Sugar().Errorw("failed to enqueue notification", "recipient_id", notification.RecipientID, "error", err)
		}
	}
}

func (n *Notifier) deliver(ctx context.Context, job jobs.Job) error {
	notification, ok := job.Payload.(Notification)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}

	emails, err := n.directory.EmailsByIDs(ctx, []string{notification.RecipientID})
	if err != nil {
		return fmt.Errorf("resolve recipient %s: %w", notification.RecipientID, err)
	}
	if len(emails) == 0 {
		n.logger.Sugar().Warnw("notification recipient has no address", "recipient_id", notification.RecipientID)
		deliveryTotal.WithLabelValues("skipped").Inc()
		return nil
	}

	err = n.mailer.Send(mailer.Message{
		To:      emails,
		Subject: notification.Subject,
		Body:    notification.Body,
	})
	if err != nil {
		deliveryTotal.WithLabelValues("failed").Inc()
		return err
	}
	deliveryTotal.WithLabelValues("delivered").Inc()
	return nil
}
