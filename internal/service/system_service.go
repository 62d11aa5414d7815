package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/oriontel/backoffice-api/internal/models"
	appErrors "github.com/oriontel/backoffice-api/pkg/errors"
)

// SystemStore is the persistence surface SystemService depends on.
type SystemStore interface {
	StoreMetrics(ctx context.Context, m *models.SystemMetrics) error
	LatestMetrics(ctx context.Context) (*models.SystemMetrics, error)
	MetricsSince(ctx context.Context, since time.Time) ([]models.SystemMetrics, error)
	ListPreferences(ctx context.Context, category string) ([]models.SystemPreference, error)
	UpsertPreference(ctx context.Context, category, key string, value json.RawMessage) (*models.SystemPreference, error)
}

// SystemService exposes host metric samples and admin preferences.
type SystemService struct {
	store     SystemStore
	startedAt time.Time
}

// NewSystemService wires the system service.
func NewSystemService(store SystemStore) *SystemService {
	return &SystemService{store: store, startedAt: time.Now()}
}

// IngestMetrics records a sample pushed by the monitoring agent.
func (s *SystemService) IngestMetrics(ctx context.Context, m *models.SystemMetrics) error {
	if m.CPUUsage < 0 || m.RAMUsage < 0 || m.SwapUsage < 0 {
		return appErrors.New(http.StatusBadRequest, "usage values must be non-negative")
	}
	if err := s.store.StoreMetrics(ctx, m); err != nil {
		return appErrors.Wrap(err, http.StatusInternalServerError, "failed to store metrics")
	}
	return nil
}

// LatestMetrics returns the most recent sample.
func (s *SystemService) LatestMetrics(ctx context.Context) (*models.SystemMetrics, error) {
	m, err := s.store.LatestMetrics(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.New(http.StatusNotFound, "no metrics recorded")
		}
		return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to load metrics")
	}
	return m, nil
}

// MetricsHistory returns samples from the trailing window.
func (s *SystemService) MetricsHistory(ctx context.Context, window time.Duration) ([]models.SystemMetrics, error) {
	if window <= 0 {
		window = 24 * time.Hour
	}
	samples, err := s.store.MetricsSince(ctx, time.Now().Add(-window))
	if err != nil {
		return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to load metrics history")
	}
	return samples, nil
}

// Status combines the latest sample with process-level figures.
func (s *SystemService) Status(ctx context.Context) (*models.SystemStatus, error) {
	status := &models.SystemStatus{
		Uptime:       int64(time.Since(s.startedAt).Seconds()),
		LoadAverage:  readLoadAverage(),
		ProcessCount: countProcesses(),
	}
	m, err := s.store.LatestMetrics(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to load metrics")
	}
	if m != nil {
		status.Metrics = *m
	}
	return status, nil
}

// ListPreferences returns preferences, optionally scoped to a category.
func (s *SystemService) ListPreferences(ctx context.Context, category string) ([]models.SystemPreference, error) {
	prefs, err := s.store.ListPreferences(ctx, category)
	if err != nil {
		return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to list preferences")
	}
	return prefs, nil
}

// SetPreference stores or overwrites one preference value.
func (s *SystemService) SetPreference(ctx context.Context, category, key string, value json.RawMessage) (*models.SystemPreference, error) {
	if category == "" || key == "" {
		return nil, appErrors.New(http.StatusBadRequest, "category and key are required")
	}
	if len(value) == 0 || !json.Valid(value) {
		return nil, appErrors.New(http.StatusBadRequest, "value must be valid JSON")
	}
	pref, err := s.store.UpsertPreference(ctx, category, key, value)
	if err != nil {
		return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to store preference")
	}
	return pref, nil
}

// readLoadAverage parses /proc/loadavg, returning zeros on platforms
// without procfs.
func readLoadAverage() []float64 {
	load := []float64{0, 0, 0}
	raw, err := os.ReadFile("/proc/loadavg")
	if err != nil {
		return load
	}
	fields := strings.Fields(string(raw))
	for i := 0; i < 3 && i < len(fields); i++ {
		if v, err := strconv.ParseFloat(fields[i], 64); err == nil {
			load[i] = v
		}
	}
	return load
}

// countProcesses counts numeric entries under /proc, returning zero on
// platforms without procfs.
func countProcesses() int {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return 0
	}
	count := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := strconv.Atoi(e.Name()); err == nil {
			count++
		}
	}
	return count
}
