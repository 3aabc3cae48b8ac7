// Package config loads and validates copy job configuration.
//
// A config file is JSON or YAML, chosen by extension. Connection strings
// may reference environment variables ("${MONGO_URI}"); they are expanded
// at load time so credentials stay out of the file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config describes one copy job: where documents come from, where tables
// go, and how the run behaves.
type Config struct {
	Source    SourceConfig    `json:"source" yaml:"source"`
	Warehouse WarehouseConfig `json:"warehouse" yaml:"warehouse"`

	// Dataset is the destination dataset (schema) name.
	Dataset string `json:"dataset" yaml:"dataset"`

	// Collections to operate on. Empty means every collection the source
	// store lists.
	Collections []string `json:"collections" yaml:"collections"`

	Runtime RuntimeConfig `json:"runtime" yaml:"runtime"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
}

// SourceConfig locates the document store.
type SourceConfig struct {
	// URI is the MongoDB connection string. Environment references are
	// expanded.
	URI string `json:"uri" yaml:"uri"`
	// Database is the source database name.
	Database string `json:"database" yaml:"database"`
}

// WarehouseConfig selects the destination backend.
type WarehouseConfig struct {
	// Kind is a registered backend kind: "postgres", "sqlite", "mssql".
	Kind string `json:"kind" yaml:"kind"`
	// DSN is the backend connection string. Environment references are
	// expanded.
	DSN string `json:"dsn" yaml:"dsn"`
}

// RuntimeConfig tunes the copy run.
type RuntimeConfig struct {
	// BatchSize bounds rows per INSERT statement. 0 uses the default.
	BatchSize int `json:"batch_size" yaml:"batch_size"`
	// InsertsPerSecond, when > 0, rate-limits insert statements across
	// all concurrent collections.
	InsertsPerSecond float64 `json:"inserts_per_second" yaml:"inserts_per_second"`
}

// MetricsConfig selects the metrics backend.
type MetricsConfig struct {
	// Backend is "datadog" or "none" (default).
	Backend string `json:"backend" yaml:"backend"`
	// Job tags every metric with job:<name>.
	Job string `json:"job" yaml:"job"`
	// Tags are extra static tags ("env:prod").
	Tags []string `json:"tags" yaml:"tags"`
	// FlushSeconds overrides the submission interval. 0 uses the default.
	FlushSeconds int `json:"flush_seconds" yaml:"flush_seconds"`
}

// Load reads, decodes, and env-expands a config file. The format is chosen
// by extension: .yaml/.yml decode as YAML, anything else as JSON.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode yaml config: %w", err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode json config: %w", err)
		}
	}

	cfg.Source.URI = os.ExpandEnv(cfg.Source.URI)
	cfg.Warehouse.DSN = os.ExpandEnv(cfg.Warehouse.DSN)
	return cfg, nil
}

// Issue is one validation finding. Severity "error" blocks a run;
// "warning" does not.
type Issue struct {
	Severity string
	Message  string
}

// Validate checks a config for problems a run would otherwise hit later.
// It returns findings rather than an error so the CLI can print all of
// them at once.
func Validate(cfg Config) []Issue {
	var issues []Issue
	errf := func(format string, v ...any) {
		issues = append(issues, Issue{Severity: "error", Message: fmt.Sprintf(format, v...)})
	}
	warnf := func(format string, v ...any) {
		issues = append(issues, Issue{Severity: "warning", Message: fmt.Sprintf(format, v...)})
	}

	if strings.TrimSpace(cfg.Source.URI) == "" {
		errf("source.uri is required")
	}
	if strings.TrimSpace(cfg.Source.Database) == "" {
		errf("source.database is required")
	}
	if strings.TrimSpace(cfg.Warehouse.Kind) == "" {
		errf("warehouse.kind is required")
	}
	if strings.TrimSpace(cfg.Warehouse.DSN) == "" {
		errf("warehouse.dsn is required")
	}
	if strings.TrimSpace(cfg.Dataset) == "" {
		errf("dataset is required")
	}

	if cfg.Runtime.BatchSize < 0 {
		errf("runtime.batch_size must be >= 0")
	}
	if cfg.Runtime.InsertsPerSecond < 0 {
		errf("runtime.inserts_per_second must be >= 0")
	}

	if len(cfg.Collections) == 0 {
		warnf("collections is empty; every collection in %s will be processed", cfg.Source.Database)
	}
	switch cfg.Metrics.Backend {
	case "", "none", "datadog":
	default:
		errf("metrics.backend must be \"datadog\" or \"none\", got %q", cfg.Metrics.Backend)
	}

	return issues
}

// HasErrors reports whether any issue has severity "error".
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == "error" {
			return true
		}
	}
	return false
}
