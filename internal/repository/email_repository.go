package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/oriontel/backoffice-api/internal/models"
)

const emailColumns = "id, sender_id, recipient_ids, subject, content, attachments, status, sent_at"

// EmailRepository persists emails and email templates.
type EmailRepository struct {
	db *sqlx.DB
}

// NewEmailRepository constructs an email repository.
func NewEmailRepository(db *sqlx.DB) *EmailRepository {
	return &EmailRepository{db: db}
}

// Create inserts an email row.
func (r *EmailRepository) Create(ctx context.Context, email *models.Email) error {
	if email.ID == "" {
		email.ID = uuid.NewString()
	}
	query := `INSERT INTO emails (id, sender_id, recipient_ids, subject, content, attachments, status, sent_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(ctx, query,
		email.ID, email.SenderID, email.RecipientIDs, email.Subject, email.Content,
		nullableJSON(email.Attachments), email.Status, email.SentAt); err != nil {
		return fmt.Errorf("create email: %w", err)
	}
	return nil
}

// GetByID fetches an email.
func (r *EmailRepository) GetByID(ctx context.Context, id string) (*models.Email, error) {
	query := fmt.Sprintf("SELECT %s FROM emails WHERE id = $1", emailColumns)
	var email models.Email
	if err := r.db.GetContext(ctx, &email, query, id); err != nil {
		return nil, err
	}
	return &email, nil
}

// ListForUser returns emails the user sent or received, newest first.
func (r *EmailRepository) ListForUser(ctx context.Context, userID string, limit, offset int) ([]models.Email, error) {
	query := fmt.Sprintf(`SELECT %s FROM emails
WHERE sender_id = $1 OR $1 = ANY(recipient_ids)
ORDER BY sent_at DESC
LIMIT $2 OFFSET $3`, emailColumns)
	emails := []models.Email{}
	if err := r.db.SelectContext(ctx, &emails, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("list emails: %w", err)
	}
	return emails, nil
}

// UpdateDraft merges the patch into a draft email. sql.ErrNoRows means
// the email is missing or no longer a draft.
func (r *EmailRepository) UpdateDraft(ctx context.Context, id string, recipientIDs interface{}, subject, content *string, attachments []byte, sentAt *time.Time) (*models.Email, error) {
	query := fmt.Sprintf(`UPDATE emails
SET recipient_ids = COALESCE($1, recipient_ids),
    subject = COALESCE($2, subject),
    content = COALESCE($3, content),
    attachments = COALESCE($4, attachments),
    sent_at = COALESCE($5, sent_at)
WHERE id = $6 AND status = 'draft'
RETURNING %s`, emailColumns)
	var email models.Email
	if err := r.db.GetContext(ctx, &email, query, recipientIDs, subject, content, nullableJSON(attachments), sentAt, id); err != nil {
		return nil, err
	}
	return &email, nil
}

// DeleteDraft removes a draft email, reporting matched rows.
func (r *EmailRepository) DeleteDraft(ctx context.Context, id string) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM emails WHERE id = $1 AND status = 'draft'", id)
	if err != nil {
		return 0, fmt.Errorf("delete email: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete email: %w", err)
	}
	return affected, nil
}

// SetStatus updates an email's delivery state.
func (r *EmailRepository) SetStatus(ctx context.Context, id string, status models.EmailStatus) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE emails SET status = $1 WHERE id = $2", status, id); err != nil {
		return fmt.Errorf("set email status: %w", err)
	}
	return nil
}

// CountByStatus tallies emails in the window with the given status.
func (r *EmailRepository) CountByStatus(ctx context.Context, status models.EmailStatus, start, end time.Time) (int64, error) {
	var count int64
	query := "SELECT COUNT(*) FROM emails WHERE status = $1 AND sent_at BETWEEN $2 AND $3"
	if err := r.db.GetContext(ctx, &count, query, status, start, end); err != nil {
		return 0, fmt.Errorf("count emails: %w", err)
	}
	return count, nil
}

const templateColumns = "id, name, subject, content, variables, created_at, updated_at"

// CreateTemplate inserts a template row.
func (r *EmailRepository) CreateTemplate(ctx context.Context, tpl *models.EmailTemplate) error {
	if tpl.ID == "" {
		tpl.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	tpl.CreatedAt = now
	tpl.UpdatedAt = now
	query := `INSERT INTO email_templates (id, name, subject, content, variables, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query, tpl.ID, tpl.Name, tpl.Subject, tpl.Content, nullableJSON(tpl.Variables), tpl.CreatedAt, tpl.UpdatedAt); err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

// GetTemplate fetches a template.
func (r *EmailRepository) GetTemplate(ctx context.Context, id string) (*models.EmailTemplate, error) {
	query := fmt.Sprintf("SELECT %s FROM email_templates WHERE id = $1", templateColumns)
	var tpl models.EmailTemplate
	if err := r.db.GetContext(ctx, &tpl, query, id); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// ListTemplates returns all templates ordered by name.
func (r *EmailRepository) ListTemplates(ctx context.Context) ([]models.EmailTemplate, error) {
	query := fmt.Sprintf("SELECT %s FROM email_templates ORDER BY name", templateColumns)
	templates := []models.EmailTemplate{}
	if err := r.db.SelectContext(ctx, &templates, query); err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}
