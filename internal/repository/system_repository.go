package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/oriontel/backoffice-api/internal/models"
)

const (
	systemMetricsColumns = "id, cpu_usage, ram_usage, swap_usage, disk_usage, timestamp"
	preferenceColumns    = "id, category, key, value, updated_at"
)

// SystemRepository persists host metric samples and admin preferences.
type SystemRepository struct {
	db *sqlx.DB
}

// NewSystemRepository constructs a system repository.
func NewSystemRepository(db *sqlx.DB) *SystemRepository {
	return &SystemRepository{db: db}
}

// StoreMetrics records a metrics sample.
func (r *SystemRepository) StoreMetrics(ctx context.Context, m *models.SystemMetrics) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	query := `INSERT INTO system_metrics (id, cpu_usage, ram_usage, swap_usage, disk_usage, timestamp)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query, m.ID, m.CPUUsage, m.RAMUsage, m.SwapUsage, nullableJSON(m.DiskUsage), m.Timestamp); err != nil {
		return fmt.Errorf("store metrics: %w", err)
	}
	return nil
}

// LatestMetrics returns the most recent sample. sql.ErrNoRows signals
// that no sample has been recorded yet.
func (r *SystemRepository) LatestMetrics(ctx context.Context) (*models.SystemMetrics, error) {
	query := fmt.Sprintf("SELECT %s FROM system_metrics ORDER BY timestamp DESC LIMIT 1", systemMetricsColumns)
	var m models.SystemMetrics
	if err := r.db.GetContext(ctx, &m, query); err != nil {
		return nil, err
	}
	return &m, nil
}

// MetricsSince returns samples in the window, oldest first.
func (r *SystemRepository) MetricsSince(ctx context.Context, since time.Time) ([]models.SystemMetrics, error) {
	query := fmt.Sprintf("SELECT %s FROM system_metrics WHERE timestamp >= $1 ORDER BY timestamp", systemMetricsColumns)
	samples := []models.SystemMetrics{}
	if err := r.db.SelectContext(ctx, &samples, query, since); err != nil {
		return nil, fmt.Errorf("metrics since: %w", err)
	}
	return samples, nil
}

// ListPreferences returns preferences for a category, or all when
// category is empty.
func (r *SystemRepository) ListPreferences(ctx context.Context, category string) ([]models.SystemPreference, error) {
	prefs := []models.SystemPreference{}
	if category == "" {
		query := fmt.Sprintf("SELECT %s FROM system_preferences ORDER BY category, key", preferenceColumns)
		if err := r.db.SelectContext(ctx, &prefs, query); err != nil {
			return nil, fmt.Errorf("list preferences: %w", err)
		}
		return prefs, nil
	}
	query := fmt.Sprintf("SELECT %s FROM system_preferences WHERE category = $1 ORDER BY key", preferenceColumns)
	if err := r.db.SelectContext(ctx, &prefs, query, category); err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	return prefs, nil
}

// UpsertPreference inserts or overwrites a preference value.
func (r *SystemRepository) UpsertPreference(ctx context.Context, category, key string, value json.RawMessage) (*models.SystemPreference, error) {
	query := fmt.Sprintf(`INSERT INTO system_preferences (id, category, key, value, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (category, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
RETURNING %s`, preferenceColumns)
	var pref models.SystemPreference
	if err := r.db.GetContext(ctx, &pref, query, uuid.NewString(), category, key, []byte(value), time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("upsert preference: %w", err)
	}
	return &pref, nil
}
