package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/oriontel/backoffice-api/internal/models"
)

const (
	extensionColumns = "id, extension_number, name, extension_type, config_data, created_at, updated_at"
	callColumns      = "id, caller_id, recipient_id, start_time, end_time, duration, status, recording_path, created_at"
)

// PbxRepository persists PBX extensions and call-detail records.
type PbxRepository struct {
	db *sqlx.DB
}

// NewPbxRepository constructs a PBX repository.
func NewPbxRepository(db *sqlx.DB) *PbxRepository {
	return &PbxRepository{db: db}
}

// CreateExtension inserts an extension row.
func (r *PbxRepository) CreateExtension(ctx context.Context, ext *models.PbxExtension) error {
	if ext.ID == "" {
		ext.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	ext.CreatedAt = now
	ext.UpdatedAt = now
	query := `INSERT INTO pbx_extensions (id, extension_number, name, extension_type, config_data, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query, ext.ID, ext.ExtensionNumber, ext.Name, ext.ExtensionType, nullableJSON(ext.ConfigData), ext.CreatedAt, ext.UpdatedAt); err != nil {
		return fmt.Errorf("create extension: %w", err)
	}
	return nil
}

// GetExtension fetches an extension.
func (r *PbxRepository) GetExtension(ctx context.Context, id string) (*models.PbxExtension, error) {
	query := fmt.Sprintf("SELECT %s FROM pbx_extensions WHERE id = $1", extensionColumns)
	var ext models.PbxExtension
	if err := r.db.GetContext(ctx, &ext, query, id); err != nil {
		return nil, err
	}
	return &ext, nil
}

// ListExtensions returns all extensions ordered by number.
func (r *PbxRepository) ListExtensions(ctx context.Context) ([]models.PbxExtension, error) {
	query := fmt.Sprintf("SELECT %s FROM pbx_extensions ORDER BY extension_number", extensionColumns)
	extensions := []models.PbxExtension{}
	if err := r.db.SelectContext(ctx, &extensions, query); err != nil {
		return nil, fmt.Errorf("list extensions: %w", err)
	}
	return extensions, nil
}

// UpdateExtension merges the patch into an extension. sql.ErrNoRows
// signals a missing row.
func (r *PbxRepository) UpdateExtension(ctx context.Context, id string, name *string, extType *models.ExtensionType, configData []byte) (*models.PbxExtension, error) {
	query := fmt.Sprintf(`UPDATE pbx_extensions
SET name = COALESCE($1, name),
    extension_type = COALESCE($2, extension_type),
    config_data = COALESCE($3, config_data),
    updated_at = $4
WHERE id = $5
RETURNING %s`, extensionColumns)
	var ext models.PbxExtension
	if err := r.db.GetContext(ctx, &ext, query, name, extType, nullableJSON(configData), time.Now().UTC(), id); err != nil {
		return nil, err
	}
	return &ext, nil
}

// DeleteExtension removes an extension, reporting matched rows.
func (r *PbxRepository) DeleteExtension(ctx context.Context, id string) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM pbx_extensions WHERE id = $1", id)
	if err != nil {
		return 0, fmt.Errorf("delete extension: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete extension: %w", err)
	}
	return affected, nil
}

// CreateCallRecord opens a call-detail record.
func (r *PbxRepository) CreateCallRecord(ctx context.Context, record *models.CallRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.CreatedAt = time.Now().UTC()
	query := `INSERT INTO call_records (id, caller_id, recipient_id, start_time, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query, record.ID, record.CallerID, record.RecipientID, record.StartTime, record.Status, record.CreatedAt); err != nil {
		return fmt.Errorf("create call record: %w", err)
	}
	return nil
}

// UpdateCallRecord closes or amends a call record. sql.ErrNoRows
// signals a missing row.
func (r *PbxRepository) UpdateCallRecord(ctx context.Context, id string, req models.UpdateCallRecordRequest) (*models.CallRecord, error) {
	query := fmt.Sprintf(`UPDATE call_records
SET end_time = $1, duration = $2, status = $3, recording_path = $4
WHERE id = $5
RETURNING %s`, callColumns)
	var record models.CallRecord
	if err := r.db.GetContext(ctx, &record, query, req.EndTime, req.Duration, req.Status, req.RecordingPath, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// GetCallRecord fetches a call record.
func (r *PbxRepository) GetCallRecord(ctx context.Context, id string) (*models.CallRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM call_records WHERE id = $1", callColumns)
	var record models.CallRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListCallRecords pages through call records, newest first.
func (r *PbxRepository) ListCallRecords(ctx context.Context, limit, offset int) ([]models.CallRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM call_records ORDER BY start_time DESC LIMIT $1 OFFSET $2", callColumns)
	records := []models.CallRecord{}
	if err := r.db.SelectContext(ctx, &records, query, limit, offset); err != nil {
		return nil, fmt.Errorf("list call records: %w", err)
	}
	return records, nil
}

// ActiveCalls returns in-progress calls, newest first.
func (r *PbxRepository) ActiveCalls(ctx context.Context) ([]models.CallRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM call_records WHERE status = 'active' ORDER BY start_time DESC", callColumns)
	records := []models.CallRecord{}
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("list active calls: %w", err)
	}
	return records, nil
}
