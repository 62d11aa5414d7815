package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/oriontel/backoffice-api/internal/models"
	appErrors "github.com/oriontel/backoffice-api/pkg/errors"
	"github.com/oriontel/backoffice-api/pkg/export"
)

// PbxStore is the persistence surface PbxService depends on.
type PbxStore interface {
	CreateExtension(ctx context.Context, ext *models.PbxExtension) error
	GetExtension(ctx context.Context, id string) (*models.PbxExtension, error)
	ListExtensions(ctx context.Context) ([]models.PbxExtension, error)
	UpdateExtension(ctx context.Context, id string, name *string, extType *models.ExtensionType, configData []byte) (*models.PbxExtension, error)
	DeleteExtension(ctx context.Context, id string) (int64, error)
	CreateCallRecord(ctx context.Context, record *models.CallRecord) error
	UpdateCallRecord(ctx context.Context, id string, req models.UpdateCallRecordRequest) (*models.CallRecord, error)
	GetCallRecord(ctx context.Context, id string) (*models.CallRecord, error)
	ListCallRecords(ctx context.Context, limit, offset int) ([]models.CallRecord, error)
	ActiveCalls(ctx context.Context) ([]models.CallRecord, error)
}

// PbxService manages extensions and call-detail records.
type PbxService struct {
	store    PbxStore
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	validate *validator.Validate
}

// NewPbxService wires the PBX service.
func NewPbxService(store PbxStore) *PbxService {
	return &PbxService{
		store:    store,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		validate: validator.New(),
	}
}

// CreateExtension provisions an extension.
func (s *PbxService) CreateExtension(ctx context.Context, req models.CreateExtensionRequest) (*models.PbxExtension, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.New(http.StatusBadRequest, err.Error())
	}
	if !req.ExtensionType.Valid() {
		return nil, appErrors.New(http.StatusBadRequest, fmt.Sprintf("unknown extension_type %q", req.ExtensionType))
	}
	ext := &models.PbxExtension{
		ExtensionNumber: req.ExtensionNumber,
		Name:            req.Name,
		ExtensionType:   req.ExtensionType,
		ConfigData:      req.ConfigData,
	}
	if err := s.store.CreateExtension(ctx, ext); err != nil {
		return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to create extension")
	}
	return ext, nil
}

// GetExtension reads one extension.
func (s *PbxService) GetExtension(ctx context.Context, id string) (*models.PbxExtension, error) {
	ext, err := s.store.GetExtension(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.New(http.StatusNotFound, "extension not found")
		}
		return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to load extension")
	}
	return ext, nil
}

// ListExtensions returns all extensions.
func (s *PbxService) ListExtensions(ctx context.Context) ([]models.PbxExtension, error) {
	extensions, err := s.store.ListExtensions(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to list extensions")
	}
	return extensions, nil
}

// UpdateExtension merges edits into an extension.
func (s *PbxService) UpdateExtension(ctx context.Context, id string, req models.UpdateExtensionRequest) (*models.PbxExtension, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.New(http.StatusBadRequest, err.Error())
	}
	if req.ExtensionType != nil && !req.ExtensionType.Valid() {
		return nil, appErrors.New(http.StatusBadRequest, fmt.Sprintf("unknown extension_type %q", *req.ExtensionType))
	}
	ext, err := s.store.UpdateExtension(ctx, id, req.Name, req.ExtensionType, req.ConfigData)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.New(http.StatusNotFound, "extension not found")
		}
		return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to update extension")
	}
	return ext, nil
}

// DeleteExtension removes an extension.
func (s *PbxService) DeleteExtension(ctx context.Context, id string) error {
	affected, err := s.store.DeleteExtension(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, http.StatusInternalServerError, "failed to delete extension")
	}
	if affected == 0 {
		return appErrors.New(http.StatusNotFound, "extension not found")
	}
	return nil
}

// RecordCall opens a call-detail record.
func (s *PbxService) RecordCall(ctx context.Context, req models.CreateCallRecordRequest) (*models.CallRecord, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.New(http.StatusBadRequest, err.Error())
	}
	record := &models.CallRecord{
		CallerID:    req.CallerID,
		RecipientID: req.RecipientID,
		StartTime:   req.StartTime.UTC(),
		Status:      req.Status,
	}
	if err := s.store.CreateCallRecord(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to record call")
	}
	return record, nil
}

// CloseCall finalises a call-detail record.
func (s *PbxService) CloseCall(ctx context.Context, id string, req models.UpdateCallRecordRequest) (*models.CallRecord, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.New(http.StatusBadRequest, err.Error())
	}
	record, err := s.store.UpdateCallRecord(ctx, id, req)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.New(http.StatusNotFound, "call record not found")
		}
		return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to update call record")
	}
	return record, nil
}

// GetCall reads one call-detail record.
func (s *PbxService) GetCall(ctx context.Context, id string) (*models.CallRecord, error) {
	record, err := s.store.GetCallRecord(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.New(http.StatusNotFound, "call record not found")
		}
		return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to load call record")
	}
	return record, nil
}

// ListCalls pages through call-detail records, newest first.
func (s *PbxService) ListCalls(ctx context.Context, limit, offset int) ([]models.CallRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	records, err := s.store.ListCallRecords(ctx, limit, offset)
	if err != nil {
		return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to list call records")
	}
	return records, nil
}

// ActiveCalls returns calls currently in progress.
func (s *PbxService) ActiveCalls(ctx context.Context) ([]models.CallRecord, error) {
	records, err := s.store.ActiveCalls(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to list active calls")
	}
	return records, nil
}

// ExportCalls renders a call report in the requested format. Supported
// formats are "csv" and "pdf".
func (s *PbxService) ExportCalls(ctx context.Context, format string, limit int) ([]byte, string, error) {
	records, err := s.ListCalls(ctx, limit, 0)
	if err != nil {
		return nil, "", err
	}
	data := callDataset(records)

	switch format {
	case "csv", "":
		out, err := s.csv.Render(data)
		if err != nil {
			return nil, "", appErrors.Wrap(err, http.StatusInternalServerError, "failed to render csv")
		}
		return out, "text/csv", nil
	case "pdf":
		out, err := s.pdf.Render(data, "Call Report")
		if err != nil {
			return nil, "", appErrors.Wrap(err, http.StatusInternalServerError, "failed to render pdf")
		}
		return out, "application/pdf", nil
	default:
		return nil, "", appErrors.New(http.StatusBadRequest, fmt.Sprintf("unsupported export format %q", format))
	}
}

func callDataset(records []models.CallRecord) export.Dataset {
	data := export.Dataset{
		Columns: []string{"id", "caller_id", "recipient_id", "start_time", "end_time", "duration", "status"},
	}
	for _, r := range records {
		start := r.StartTime
		data.AddRow(
			r.ID,
			r.CallerID,
			r.RecipientID,
			export.Timestamp(&start),
			export.Timestamp(r.EndTime),
			export.Seconds(r.Duration),
			string(r.Status),
		)
	}
	return data
}
