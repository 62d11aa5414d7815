package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oriontel/backoffice-api/internal/models"
	appErrors "github.com/oriontel/backoffice-api/pkg/errors"
)

type stubSystemStore struct {
	latest *models.SystemMetrics
	prefs  map[string]models.SystemPreference
}

func newStubSystemStore() *stubSystemStore {
	return &stubSystemStore{prefs: map[string]models.SystemPreference{}}
}

func (s *stubSystemStore) StoreMetrics(_ context.Context, m *models.SystemMetrics) error {
	m.ID = uuid.NewString()
	s.latest = m
	return nil
}

func (s *stubSystemStore) LatestMetrics(_ context.Context) (*models.SystemMetrics, error) {
	if s.latest == nil {
		return nil, sql.ErrNoRows
	}
	return s.latest, nil
}

func (s *stubSystemStore) MetricsSince(_ context.Context, _ time.Time) ([]models.SystemMetrics, error) {
	if s.latest == nil {
		return []models.SystemMetrics{}, nil
	}
	return []models.SystemMetrics{*s.latest}, nil
}

func (s *stubSystemStore) ListPreferences(_ context.Context, _ string) ([]models.SystemPreference, error) {
	out := []models.SystemPreference{}
	for _, p := range s.prefs {
		out = append(out, p)
	}
	return out, nil
}

func (s *stubSystemStore) UpsertPreference(_ context.Context, category, key string, value json.RawMessage) (*models.SystemPreference, error) {
	pref := models.SystemPreference{
		ID:        uuid.NewString(),
		Category:  category,
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}
	s.prefs[category+"/"+key] = pref
	return &pref, nil
}

func TestIngestMetricsRejectsNegativeUsage(t *testing.T) {
	svc := NewSystemService(newStubSystemStore())
	err := svc.IngestMetrics(context.Background(), &models.SystemMetrics{CPUUsage: -1})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Code)
}

func TestLatestMetricsEmpty(t *testing.T) {
	svc := NewSystemService(newStubSystemStore())
	_, err := svc.LatestMetrics(context.Background())
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Code)
}

func TestStatusWithoutSamples(t *testing.T) {
	svc := NewSystemService(newStubSystemStore())
	status, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, status.Uptime, int64(0))
	assert.Len(t, status.LoadAverage, 3)
}

func TestSetPreferenceValidation(t *testing.T) {
	svc := NewSystemService(newStubSystemStore())

	_, err := svc.SetPreference(context.Background(), "", "theme", json.RawMessage(`"dark"`))
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Code)

	_, err = svc.SetPreference(context.Background(), "ui", "theme", json.RawMessage(`{broken`))
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Code)

	pref, err := svc.SetPreference(context.Background(), "ui", "theme", json.RawMessage(`"dark"`))
	require.NoError(t, err)
	assert.Equal(t, "ui", pref.Category)
	assert.Equal(t, "theme", pref.Key)
}
