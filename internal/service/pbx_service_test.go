package service

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oriontel/backoffice-api/internal/models"
	appErrors "github.com/oriontel/backoffice-api/pkg/errors"
)

type stubPbxStore struct {
	extensions map[string]*models.PbxExtension
	calls      []models.CallRecord
}

func newStubPbxStore() *stubPbxStore {
	return &stubPbxStore{extensions: map[string]*models.PbxExtension{}}
}

func (s *stubPbxStore) CreateExtension(_ context.Context, ext *models.PbxExtension) error {
	ext.ID = uuid.NewString()
	s.extensions[ext.ID] = ext
	return nil
}

func (s *stubPbxStore) GetExtension(_ context.Context, id string) (*models.PbxExtension, error) {
	ext, ok := s.extensions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return ext, nil
}

func (s *stubPbxStore) ListExtensions(_ context.Context) ([]models.PbxExtension, error) {
	out := []models.PbxExtension{}
	for _, ext := range s.extensions {
		out = append(out, *ext)
	}
	return out, nil
}

func (s *stubPbxStore) UpdateExtension(_ context.Context, id string, name *string, extType *models.ExtensionType, _ []byte) (*models.PbxExtension, error) {
	ext, ok := s.extensions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if name != nil {
		ext.Name = *name
	}
	if extType != nil {
		ext.ExtensionType = *extType
	}
	return ext, nil
}

func (s *stubPbxStore) DeleteExtension(_ context.Context, id string) (int64, error) {
	if _, ok := s.extensions[id]; !ok {
		return 0, nil
	}
	delete(s.extensions, id)
	return 1, nil
}

func (s *stubPbxStore) CreateCallRecord(_ context.Context, record *models.CallRecord) error {
	record.ID = uuid.NewString()
	s.calls = append(s.calls, *record)
	return nil
}

func (s *stubPbxStore) UpdateCallRecord(_ context.Context, _ string, _ models.UpdateCallRecordRequest) (*models.CallRecord, error) {
	return nil, sql.ErrNoRows
}

func (s *stubPbxStore) GetCallRecord(_ context.Context, _ string) (*models.CallRecord, error) {
	return nil, sql.ErrNoRows
}

func (s *stubPbxStore) ListCallRecords(_ context.Context, _, _ int) ([]models.CallRecord, error) {
	return s.calls, nil
}

func (s *stubPbxStore) ActiveCalls(_ context.Context) ([]models.CallRecord, error) {
	out := []models.CallRecord{}
	for _, c := range s.calls {
		if c.Status == models.CallStatusActive {
			out = append(out, c)
		}
	}
	return out, nil
}

func TestCreateExtensionRejectsUnknownType(t *testing.T) {
	svc := NewPbxService(newStubPbxStore())

	_, err := svc.CreateExtension(context.Background(), models.CreateExtensionRequest{
		ExtensionNumber: "1001",
		Name:            "Front Desk",
		ExtensionType:   "h323",
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Code)
}

func TestExtensionLifecycle(t *testing.T) {
	svc := NewPbxService(newStubPbxStore())

	ext, err := svc.CreateExtension(context.Background(), models.CreateExtensionRequest{
		ExtensionNumber: "1001",
		Name:            "Front Desk",
		ExtensionType:   models.ExtensionTypeSIP,
	})
	require.NoError(t, err)
	require.NotEmpty(t, ext.ID)

	name := "Reception"
	updated, err := svc.UpdateExtension(context.Background(), ext.ID, models.UpdateExtensionRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Reception", updated.Name)

	require.NoError(t, svc.DeleteExtension(context.Background(), ext.ID))

	err = svc.DeleteExtension(context.Background(), ext.ID)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Code)
}

func TestExportCallsCSV(t *testing.T) {
	store := newStubPbxStore()
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)
	duration := 90
	store.calls = []models.CallRecord{{
		ID:          "call-1",
		CallerID:    "1001",
		RecipientID: "1002",
		StartTime:   start,
		EndTime:     &end,
		Duration:    &duration,
		Status:      models.CallStatusCompleted,
	}}
	svc := NewPbxService(store)

	payload, contentType, err := svc.ExportCalls(context.Background(), "csv", 10)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,caller_id,recipient_id,start_time,end_time,duration,status", strings.TrimSpace(lines[0]))
	assert.Contains(t, lines[1], "call-1")
	assert.Contains(t, lines[1], "2025-03-01T12:00:00Z")
	assert.Contains(t, lines[1], "90")
	assert.Contains(t, lines[1], "completed")
}

func TestExportCallsPDF(t *testing.T) {
	svc := NewPbxService(newStubPbxStore())

	payload, contentType, err := svc.ExportCalls(context.Background(), "pdf", 10)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
}

func TestExportCallsUnknownFormat(t *testing.T) {
	svc := NewPbxService(newStubPbxStore())

	_, _, err := svc.ExportCalls(context.Background(), "xlsx", 10)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Code)
}

func TestCloseCallNotFound(t *testing.T) {
	svc := NewPbxService(newStubPbxStore())

	_, err := svc.CloseCall(context.Background(), "missing", models.UpdateCallRecordRequest{
		EndTime: time.Now(),
		Status:  models.CallStatusCompleted,
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Code)
}
