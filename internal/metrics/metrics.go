// Package metrics defines the minimal metrics surface the copier emits to.
//
// The core depends only on Backend; concrete submission (Datadog) lives in
// a subpackage so the copy path never links a vendor SDK it is not using.
package metrics

import (
	"context"
	"time"
)

// Labels are metric tags, e.g. {"collection": "users"}.
type Labels map[string]string

// Backend receives metric observations from the copier.
//
// Implementations must be safe for concurrent use; the copier calls these
// from per-collection goroutines.
type Backend interface {
	// IncCounter adds delta to a counter. Non-positive deltas are ignored.
	IncCounter(name string, delta float64, labels Labels)

	// ObserveDuration records one duration sample.
	ObserveDuration(name string, d time.Duration, labels Labels)

	// Flush submits buffered observations. Safe to call at any time.
	Flush(ctx context.Context) error

	// Close stops background work and performs one final flush.
	Close(ctx context.Context) error
}

// Metric names emitted by the copier.
const (
	MetricTablesCreated = "doccopy.tables.created"
	MetricTablesDeleted = "doccopy.tables.deleted"
	MetricRowsInserted  = "doccopy.rows.inserted"
	MetricUnitFailures  = "doccopy.unit.failures"
	MetricCopyDuration  = "doccopy.copy.duration_seconds"
)

// Nop is a Backend that drops everything.
type Nop struct{}

func (Nop) IncCounter(string, float64, Labels)            {}
func (Nop) ObserveDuration(string, time.Duration, Labels) {}
func (Nop) Flush(context.Context) error                   { return nil }
func (Nop) Close(context.Context) error                   { return nil }
