package models

import (
	"encoding/json"
	"time"
)

// SystemMetrics is one resource usage sample pushed by the host agent.
type SystemMetrics struct {
	ID        string          `db:"id" json:"id"`
	CPUUsage  float64         `db:"cpu_usage" json:"cpu_usage"`
	RAMUsage  float64         `db:"ram_usage" json:"ram_usage"`
	SwapUsage float64         `db:"swap_usage" json:"swap_usage"`
	DiskUsage json.RawMessage `db:"disk_usage" json:"disk_usage"`
	Timestamp time.Time       `db:"timestamp" json:"timestamp"`
}

// SystemStatus combines the latest sample with host-level figures.
type SystemStatus struct {
	Metrics      SystemMetrics `json:"metrics"`
	Uptime       int64         `json:"uptime"`
	LoadAverage  []float64     `json:"load_average"`
	ProcessCount int           `json:"process_count"`
}

// SystemPreference is a keyed configuration value.
type SystemPreference struct {
	ID        string          `db:"id" json:"id"`
	Category  string          `db:"category" json:"category"`
	Key       string          `db:"key" json:"key"`
	Value     json.RawMessage `db:"value" json:"value"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}
