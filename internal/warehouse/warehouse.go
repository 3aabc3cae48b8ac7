// Package warehouse defines the destination collaborator: dataset and table
// lifecycle plus row insertion, behind a backend registry so the copier
// never imports a concrete driver.
package warehouse

import (
	"context"
	"fmt"
	"sync"

	"doccopy/internal/flatten"
)

// Config selects and configures a warehouse backend.
type Config struct {
	// Kind must match a registered backend kind ("postgres", "sqlite",
	// "mssql").
	Kind string
	// DSN is passed through to the backend factory; validation is
	// backend-specific.
	DSN string
}

// Warehouse is the destination side of a copy run.
//
// Semantics the copier relies on:
//   - CreateTable fails when the table already exists. Callers pre-check
//     with ListTables; concurrent creation of the same name is a known
//     race and surfaces as the backend's error.
//   - InsertRows fails on schema mismatch with the backend's own error,
//     verbatim. No retry, no partial salvage.
type Warehouse interface {
	DatasetExists(ctx context.Context, dataset string) (bool, error)
	CreateDataset(ctx context.Context, dataset string) error

	ListTables(ctx context.Context, dataset string) ([]string, error)
	CreateTable(ctx context.Context, dataset, table string, schema flatten.Schema) error
	DeleteTable(ctx context.Context, dataset, table string) error

	// InsertRows inserts the given flattened rows. Cells are looked up by
	// schema column name; a row missing a column inserts NULL there.
	// Returns the number of rows the backend reports inserted.
	InsertRows(ctx context.Context, dataset, table string, schema flatten.Schema, rows []flatten.Row) (int64, error)

	// Close releases backend resources. Call once at shutdown.
	Close()
}

type factory func(ctx context.Context, cfg Config) (Warehouse, error)

var (
	registryMu sync.RWMutex
	factories  = map[string]factory{}
)

// Register registers a backend factory under a kind. Backend packages call
// this from init; cmd binaries blank-import warehouse/all to pull every
// backend in.
//
// Panics on empty kind, nil factory, or duplicate registration: backend
// selection must never be ambiguous.
func Register(kind string, f factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if kind == "" {
		panic("warehouse: Register called with empty kind")
	}
	if f == nil {
		panic("warehouse: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("warehouse: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New constructs a Warehouse using the registered factory for cfg.Kind.
func New(ctx context.Context, cfg Config) (Warehouse, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("warehouse: missing kind")
	}

	registryMu.RLock()
	f := factories[cfg.Kind]
	registryMu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("warehouse: unsupported kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// RowArgs projects a flattened row onto the schema's column order,
// producing driver-ready args. Missing cells become NULL.
//
// Shared by all backends so projection behavior cannot drift between them.
func RowArgs(schema flatten.Schema, row flatten.Row) []any {
	args := make([]any, 0, len(schema.Columns))
	for _, c := range schema.Columns {
		args = append(args, row[c.Name])
	}
	return args
}
