package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "job.json", `{
		"source": {"uri": "mongodb://localhost:27017", "database": "app"},
		"warehouse": {"kind": "postgres", "dsn": "postgres://localhost/wh"},
		"dataset": "staging",
		"collections": ["users", "orders"],
		"runtime": {"batch_size": 250, "inserts_per_second": 10},
		"metrics": {"backend": "datadog", "job": "nightly", "tags": ["env:test"]}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Source.Database != "app" {
		t.Fatalf("source.database = %q", cfg.Source.Database)
	}
	if cfg.Warehouse.Kind != "postgres" {
		t.Fatalf("warehouse.kind = %q", cfg.Warehouse.Kind)
	}
	if cfg.Dataset != "staging" {
		t.Fatalf("dataset = %q", cfg.Dataset)
	}
	if !reflect.DeepEqual(cfg.Collections, []string{"users", "orders"}) {
		t.Fatalf("collections = %v", cfg.Collections)
	}
	if cfg.Runtime.BatchSize != 250 || cfg.Runtime.InsertsPerSecond != 10 {
		t.Fatalf("runtime = %+v", cfg.Runtime)
	}
	if cfg.Metrics.Backend != "datadog" || cfg.Metrics.Job != "nightly" {
		t.Fatalf("metrics = %+v", cfg.Metrics)
	}
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "job.yaml", `
source:
  uri: mongodb://localhost:27017
  database: app
warehouse:
  kind: sqlite
  dsn: file:wh.db
dataset: staging
collections:
  - users
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Warehouse.Kind != "sqlite" || cfg.Warehouse.DSN != "file:wh.db" {
		t.Fatalf("warehouse = %+v", cfg.Warehouse)
	}
	if !reflect.DeepEqual(cfg.Collections, []string{"users"}) {
		t.Fatalf("collections = %v", cfg.Collections)
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("TEST_MONGO_URI", "mongodb://db:27017")
	t.Setenv("TEST_WH_DSN", "postgres://db/wh")

	path := writeFile(t, "job.json", `{
		"source": {"uri": "${TEST_MONGO_URI}", "database": "app"},
		"warehouse": {"kind": "postgres", "dsn": "${TEST_WH_DSN}"},
		"dataset": "staging"
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Source.URI != "mongodb://db:27017" {
		t.Fatalf("source.uri = %q, env not expanded", cfg.Source.URI)
	}
	if cfg.Warehouse.DSN != "postgres://db/wh" {
		t.Fatalf("warehouse.dsn = %q, env not expanded", cfg.Warehouse.DSN)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}

	bad := writeFile(t, "bad.json", `{not json`)
	if _, err := Load(bad); err == nil {
		t.Fatal("expected error for malformed json")
	}

	badYAML := writeFile(t, "bad.yaml", "\t\tnot yaml")
	if _, err := Load(badYAML); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func validConfig() Config {
	return Config{
		Source:      SourceConfig{URI: "mongodb://localhost", Database: "app"},
		Warehouse:   WarehouseConfig{Kind: "postgres", DSN: "postgres://localhost/wh"},
		Dataset:     "staging",
		Collections: []string{"users"},
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		mutate     func(*Config)
		wantErrors bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing uri", func(c *Config) { c.Source.URI = "" }, true},
		{"missing database", func(c *Config) { c.Source.Database = " " }, true},
		{"missing kind", func(c *Config) { c.Warehouse.Kind = "" }, true},
		{"missing dsn", func(c *Config) { c.Warehouse.DSN = "" }, true},
		{"missing dataset", func(c *Config) { c.Dataset = "" }, true},
		{"negative batch size", func(c *Config) { c.Runtime.BatchSize = -1 }, true},
		{"negative rate", func(c *Config) { c.Runtime.InsertsPerSecond = -0.5 }, true},
		{"unknown metrics backend", func(c *Config) { c.Metrics.Backend = "statsd" }, true},
		{"datadog backend ok", func(c *Config) { c.Metrics.Backend = "datadog" }, false},
		{"none backend ok", func(c *Config) { c.Metrics.Backend = "none" }, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(&cfg)
			issues := Validate(cfg)
			if got := HasErrors(issues); got != tt.wantErrors {
				t.Fatalf("HasErrors = %v, want %v; issues: %+v", got, tt.wantErrors, issues)
			}
		})
	}
}

func TestValidate_EmptyCollectionsWarns(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Collections = nil
	issues := Validate(cfg)
	if HasErrors(issues) {
		t.Fatalf("empty collections should not be an error: %+v", issues)
	}
	found := false
	for _, iss := range issues {
		if iss.Severity == "warning" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a warning for empty collections")
	}
}
