package config

import (
	"fmt"
	"slices"

	"github.com/kilianp07/cellsched/core/factory"
)

// SnapshotConfig locates the scheduling snapshot.
type SnapshotConfig struct {
	// Path is a YAML or JSON snapshot file, read at the start of every run.
	Path string `json:"path"`
}

func (c *SnapshotConfig) SetDefaults() {
	if c.Path == "" {
		c.Path = "snapshot.yaml"
	}
}

// StoreBackends lists the supported allocation stores.
var StoreBackends = []string{"memory", "sqlite", "postgres"}

// StoreConfig selects where day allocations are persisted.
type StoreConfig struct {
	// Backend is one of memory, sqlite or postgres.
	Backend string `json:"backend"`
	// Path is the SQLite database file.
	Path string `json:"path"`
	// DSN is the PostgreSQL connection string.
	DSN string `json:"dsn"`
}

func (c *StoreConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "sqlite"
	}
	if c.Backend == "sqlite" && c.Path == "" {
		c.Path = "cellsched.db"
	}
}

func (c StoreConfig) Validate() error {
	if !slices.Contains(StoreBackends, c.Backend) {
		return fmt.Errorf("unknown backend %s", c.Backend)
	}
	if c.Backend == "sqlite" && c.Path == "" {
		return fmt.Errorf("path is required")
	}
	if c.Backend == "postgres" && c.DSN == "" {
		return fmt.Errorf("dsn is required")
	}
	return nil
}

// Module returns the store as a factory module configuration.
func (c StoreConfig) Module() factory.ModuleConfig {
	return factory.ModuleConfig{Type: c.Backend, Conf: map[string]any{"path": c.Path, "dsn": c.DSN}}
}

// RunLogConfig defines settings for run log storage and rotation.
type RunLogConfig struct {
	// Backend selects the log store type: "jsonl", "sqlite" or "none".
	Backend string `json:"backend"`
	// Path is the file location of the log store.
	Path string `json:"path"`
	// MaxSizeMB triggers rotation when the file exceeds this size in megabytes.
	MaxSizeMB int `json:"max_size_mb"`
	// MaxBackups limits the number of rotated files to keep.
	MaxBackups int `json:"max_backups"`
	// MaxAgeDays removes rotated files older than this number of days.
	MaxAgeDays int `json:"max_age_days"`
}

func (c *RunLogConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "jsonl"
	}
	if c.Path == "" {
		c.Path = "runs.log"
	}
}

func (c RunLogConfig) Validate() error {
	switch c.Backend {
	case "jsonl", "sqlite", "none":
	default:
		return fmt.Errorf("unknown backend %s", c.Backend)
	}
	if c.Path == "" {
		return fmt.Errorf("path is required")
	}
	if c.MaxSizeMB < 0 || c.MaxBackups < 0 || c.MaxAgeDays < 0 {
		return fmt.Errorf("rotation settings must not be negative")
	}
	return nil
}

// Module returns the run log as a factory module configuration.
func (c RunLogConfig) Module() factory.ModuleConfig {
	return factory.ModuleConfig{Type: c.Backend, Conf: map[string]any{
		"path":         c.Path,
		"max_size_mb":  c.MaxSizeMB,
		"max_backups":  c.MaxBackups,
		"max_age_days": c.MaxAgeDays,
	}}
}

// APIConfig configures the HTTP API.
type APIConfig struct {
	Enabled bool   `json:"enabled"`
	Listen  string `json:"listen"`
	// Token is the bearer token required on every request when non-empty.
	Token string `json:"token"`
}

func (c *APIConfig) SetDefaults() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
}

func (c APIConfig) Validate() error {
	if c.Enabled && c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	return nil
}
