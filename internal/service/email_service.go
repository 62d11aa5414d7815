package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"

	"github.com/oriontel/backoffice-api/internal/models"
	appErrors "github.com/oriontel/backoffice-api/pkg/errors"
	"github.com/oriontel/backoffice-api/pkg/mailer"
)

// EmailStore is the persistence surface EmailService depends on.
type EmailStore interface {
	Create(ctx context.Context, email *models.Email) error
	GetByID(ctx context.Context, id string) (*models.Email, error)
	ListForUser(ctx context.Context, userID string, limit, offset int) ([]models.Email, error)
	UpdateDraft(ctx context.Context, id string, recipientIDs interface{}, subject, content *string, attachments []byte, sentAt *time.Time) (*models.Email, error)
	DeleteDraft(ctx context.Context, id string) (int64, error)
	SetStatus(ctx context.Context, id string, status models.EmailStatus) error
	CountByStatus(ctx context.Context, status models.EmailStatus, start, end time.Time) (int64, error)
	CreateTemplate(ctx context.Context, tpl *models.EmailTemplate) error
	GetTemplate(ctx context.Context, id string) (*models.EmailTemplate, error)
	ListTemplates(ctx context.Context) ([]models.EmailTemplate, error)
}

// RecipientResolver maps internal user ids to mail addresses.
type RecipientResolver interface {
	EmailsByIDs(ctx context.Context, ids []string) ([]string, error)
}

// EmailService handles internal mail between back-office users.
type EmailService struct {
	store    EmailStore
	users    RecipientResolver
	mailer   mailer.Mailer
	validate *validator.Validate
}

// NewEmailService wires the email service.
func NewEmailService(store EmailStore, users RecipientResolver, m mailer.Mailer) *EmailService {
	return &EmailService{
		store:    store,
		users:    users,
		mailer:   m,
		validate: validator.New(),
	}
}

// SendEmail persists the message and delivers it over the relay. A
// future schedule_time stores it as scheduled instead of delivering.
func (s *EmailService) SendEmail(ctx context.Context, principal models.AuthPrincipal, req models.CreateEmailRequest) (*models.Email, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.New(http.StatusBadRequest, err.Error())
	}

	email := &models.Email{
		SenderID:     principal.ID,
		RecipientIDs: req.RecipientIDs,
		Subject:      req.Subject,
		Content:      req.Content,
		Attachments:  req.Attachments,
		Status:       models.EmailStatusDraft,
	}
	if req.ScheduleTime != nil && req.ScheduleTime.After(time.Now()) {
		email.Status = models.EmailStatusScheduled
		email.SentAt = req.ScheduleTime.UTC()
	}
	if err := s.store.Create(ctx, email); err != nil {
		return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to store email")
	}
	if email.Status == models.EmailStatusScheduled {
		return email, nil
	}

	addresses, err := s.users.EmailsByIDs(ctx, req.RecipientIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to resolve recipients")
	}
	if len(addresses) == 0 {
		return nil, appErrors.New(http.StatusBadRequest, "no known recipients")
	}

	sendErr := s.mailer.Send(mailer.Message{To: addresses, Subject: req.Subject, Body: req.Content})
	status := models.EmailStatusSent
	if sendErr != nil {
		status = models.EmailStatusFailed
	}
	if err := s.store.SetStatus(ctx, email.ID, status); err != nil {
		return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to record delivery")
	}
	email.Status = status
	if sendErr != nil {
		return nil, appErrors.Wrap(sendErr, http.StatusInternalServerError, "failed to deliver email")
	}
	email.SentAt = time.Now().UTC()
	return email, nil
}

// GetEmail reads one message.
func (s *EmailService) GetEmail(ctx context.Context, id string) (*models.Email, error) {
	email, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.New(http.StatusNotFound, "email not found")
		}
		return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to load email")
	}
	return email, nil
}

// ListEmails pages through mail the principal sent or received.
func (s *EmailService) ListEmails(ctx context.Context, principal models.AuthPrincipal, limit, offset int) ([]models.Email, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	emails, err := s.store.ListForUser(ctx, principal.ID, limit, offset)
	if err != nil {
		return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to list emails")
	}
	return emails, nil
}

// UpdateDraft merges edits into a draft. Non-draft messages are
// immutable and report not_found.
func (s *EmailService) UpdateDraft(ctx context.Context, id string, req models.UpdateEmailRequest) (*models.Email, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.New(http.StatusBadRequest, err.Error())
	}
	var recipients interface{}
	if req.RecipientIDs != nil {
		recipients = pq.StringArray(*req.RecipientIDs)
	}
	email, err := s.store.UpdateDraft(ctx, id, recipients, req.Subject, req.Content, req.Attachments, req.ScheduleTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.New(http.StatusNotFound, "draft not found")
		}
		return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to update draft")
	}
	return email, nil
}

// DeleteDraft removes a draft.
func (s *EmailService) DeleteDraft(ctx context.Context, id string) error {
	affected, err := s.store.DeleteDraft(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, http.StatusInternalServerError, "failed to delete draft")
	}
	if affected == 0 {
		return appErrors.New(http.StatusNotFound, "draft not found")
	}
	return nil
}

// GetMetrics reports delivery counts over the window.
func (s *EmailService) GetMetrics(ctx context.Context, start, end time.Time) (*models.EmailMetrics, error) {
	sent, err := s.store.CountByStatus(ctx, models.EmailStatusSent, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to count sent mail")
	}
	failed, err := s.store.CountByStatus(ctx, models.EmailStatusFailed, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to count failed mail")
	}
	return &models.EmailMetrics{
		TotalSent:   sent,
		TotalFailed: failed,
		PeriodStart: start,
		PeriodEnd:   end,
	}, nil
}

// CreateTemplate registers a reusable template.
func (s *EmailService) CreateTemplate(ctx context.Context, req models.CreateTemplateRequest) (*models.EmailTemplate, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.New(http.StatusBadRequest, err.Error())
	}
	tpl := &models.EmailTemplate{
		Name:      req.Name,
		Subject:   req.Subject,
		Content:   req.Content,
		Variables: req.Variables,
	}
	if err := s.store.CreateTemplate(ctx, tpl); err != nil {
		return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to create template")
	}
	return tpl, nil
}

// GetTemplate reads one template.
func (s *EmailService) GetTemplate(ctx context.Context, id string) (*models.EmailTemplate, error) {
	tpl, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.New(http.StatusNotFound, "template not found")
		}
		return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to load template")
	}
	return tpl, nil
}

// ListTemplates returns all templates.
func (s *EmailService) ListTemplates(ctx context.Context) ([]models.EmailTemplate, error) {
	templates, err := s.store.ListTemplates(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to list templates")
	}
	return templates, nil
}
