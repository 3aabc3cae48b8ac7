// Package copier wires the document store to the warehouse: it infers one
// schema per collection, creates the matching tables, and copies documents
// into them as flattened rows.
//
// Every batch entry point fans its collections out as independent
// concurrent units. One unit failing (a table that already exists, a
// rejected insert) never stops its siblings; failures are aggregated into
// a per-unit report plus a joined error for the batch.
package copier

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"doccopy/internal/docstore"
	"doccopy/internal/flatten"
	"doccopy/internal/metrics"
	"doccopy/internal/warehouse"
)

// Logger is the minimal logging interface used by the copier.
// *log.Logger satisfies this interface.
type Logger interface {
	Printf(format string, v ...any)
}

// Copier executes batch operations against one store/warehouse pair.
//
// Fields other than Store and Repo are optional: nil Logger discards, nil
// Metrics drops observations, nil Limiter means unthrottled inserts.
type Copier struct {
	Store   docstore.Store
	Repo    warehouse.Warehouse
	Logger  Logger
	Metrics metrics.Backend

	// Limiter, when set, paces InsertRows calls across all concurrent
	// collection units (one token per statement).
	Limiter *rate.Limiter

	// BatchSize bounds rows per INSERT statement. Defaults to 500, which
	// stays under placeholder limits for any realistic column count.
	BatchSize int
}

// TableExistsError reports a creation request for a table that already
// exists in the dataset.
type TableExistsError struct {
	Table string
}

func (e *TableExistsError) Error() string {
	return fmt.Sprintf("table %q already exists", e.Table)
}

// CopyResult is the outcome of copying one collection.
type CopyResult struct {
	Collection string
	Table      string
	Rows       int64
	Err        error
}

// CreateTables infers a schema for every named collection and creates the
// matching table in the dataset, creating the dataset first if absent.
//
// Existing tables are detected up front with a single ListTables call; a
// conflicting name fails that unit with a TableExistsError while sibling
// units proceed. Returns the number of tables created and, when any unit
// failed, a joined error naming each failure.
func (c *Copier) CreateTables(ctx context.Context, dataset string, collections []string) (int, error) {
	logf := c.logger()

	if err := c.ensureDataset(ctx, dataset); err != nil {
		return 0, err
	}

	existing, err := c.Repo.ListTables(ctx, dataset)
	if err != nil {
		return 0, err
	}
	taken := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		taken[t] = struct{}{}
	}

	errs := make([]error, len(collections))

	var wg sync.WaitGroup
	for i, coll := range collections {
		wg.Add(1)
		go func(i int, coll string) {
			defer wg.Done()

			table := warehouse.TableName(coll)
			if _, exists := taken[table]; exists {
				errs[i] = fmt.Errorf("collection %s: %w", coll, &TableExistsError{Table: table})
				return
			}

			schema, err := c.inferSchema(ctx, coll)
			if err != nil {
				errs[i] = fmt.Errorf("collection %s: %w", coll, err)
				return
			}
			if err := c.Repo.CreateTable(ctx, dataset, table, schema); err != nil {
				errs[i] = fmt.Errorf("collection %s: %w", coll, err)
				return
			}
			logf("stage=create dataset=%s table=%s columns=%d", dataset, table, len(schema.Columns))
		}(i, coll)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
		}
	}
	c.count(metrics.MetricTablesCreated, float64(created), nil)
	c.countFailures(errs)
	return created, errors.Join(errs...)
}

// CopyCollections reads every named collection and inserts its flattened
// rows into the collection's table, creating the dataset first if absent.
//
// Each collection is an independent concurrent unit: a snapshot bulk read,
// then flattening, then chunked inserts. Partial success across the batch
// is expected; callers inspect the per-collection results. The returned
// error joins the individual unit failures, if any.
func (c *Copier) CopyCollections(ctx context.Context, dataset string, collections []string) ([]CopyResult, error) {
	if err := c.ensureDataset(ctx, dataset); err != nil {
		return nil, err
	}

	results := make([]CopyResult, len(collections))

	var wg sync.WaitGroup
	for i, coll := range collections {
		wg.Add(1)
		go func(i int, coll string) {
			defer wg.Done()
			results[i] = c.copyOne(ctx, dataset, coll)
		}(i, coll)
	}
	wg.Wait()

	errs := make([]error, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("collection %s: %w", r.Collection, r.Err))
		}
	}
	c.countFailures(errs)
	return results, errors.Join(errs...)
}

// DeleteTables drops the named tables from the dataset, each as an
// independent concurrent unit. Returns the number dropped and a joined
// error for the failures.
func (c *Copier) DeleteTables(ctx context.Context, dataset string, tables []string) (int, error) {
	logf := c.logger()

	errs := make([]error, len(tables))

	var wg sync.WaitGroup
	for i, table := range tables {
		wg.Add(1)
		go func(i int, table string) {
			defer wg.Done()
			if err := c.Repo.DeleteTable(ctx, dataset, table); err != nil {
				errs[i] = err
				return
			}
			logf("stage=delete dataset=%s table=%s", dataset, table)
		}(i, table)
	}
	wg.Wait()

	deleted := 0
	for _, err := range errs {
		if err == nil {
			deleted++
		}
	}
	c.count(metrics.MetricTablesDeleted, float64(deleted), nil)
	c.countFailures(errs)
	return deleted, errors.Join(errs...)
}

// InferSchema builds the schema a collection would be created with,
// without touching the warehouse.
func (c *Copier) InferSchema(ctx context.Context, collection string) (flatten.Schema, error) {
	return c.inferSchema(ctx, collection)
}

func (c *Copier) inferSchema(ctx context.Context, collection string) (flatten.Schema, error) {
	entries, err := c.Store.ListDocuments(ctx, collection)
	if err != nil {
		return flatten.Schema{}, err
	}

	b := flatten.NewSchemaBuilder()
	for _, e := range entries {
		b.AddDocument(e.Doc)
	}
	return b.Schema(), nil
}

// copyOne copies a single collection. The row accumulator lives inside
// flatten.FlattenRow per document; nothing here is shared with sibling
// units except the repo handle.
func (c *Copier) copyOne(ctx context.Context, dataset, collection string) CopyResult {
	logf := c.logger()
	start := time.Now()

	res := CopyResult{Collection: collection, Table: warehouse.TableName(collection)}

	entries, err := c.Store.ListDocuments(ctx, collection)
	if err != nil {
		res.Err = err
		return res
	}

	// Re-derive the column set from this snapshot. The name flattener is
	// shared with schema inference, so identifiers line up with the table
	// created from the same collection; a document that has since drifted
	// from the created schema fails at insert time with the warehouse's
	// own error.
	b := flatten.NewSchemaBuilder()
	rows := make([]flatten.Row, 0, len(entries))
	for _, e := range entries {
		b.AddDocument(e.Doc)
		rows = append(rows, flatten.FlattenRow(e.ID, e.Doc))
	}
	schema := b.Schema()

	batch := c.BatchSize
	if batch <= 0 {
		batch = 500
	}

	for len(rows) > 0 {
		n := batch
		if n > len(rows) {
			n = len(rows)
		}
		if c.Limiter != nil {
			if err := c.Limiter.Wait(ctx); err != nil {
				res.Err = err
				return res
			}
		}
		inserted, err := c.Repo.InsertRows(ctx, dataset, res.Table, schema, rows[:n])
		res.Rows += inserted
		if err != nil {
			res.Err = err
			return res
		}
		rows = rows[n:]
	}

	c.count(metrics.MetricRowsInserted, float64(res.Rows), metrics.Labels{"collection": collection})
	c.observe(metrics.MetricCopyDuration, time.Since(start), metrics.Labels{"collection": collection})
	logf("stage=copy dataset=%s table=%s rows=%d duration=%s",
		dataset, res.Table, res.Rows, time.Since(start).Truncate(time.Millisecond))
	return res
}

func (c *Copier) ensureDataset(ctx context.Context, dataset string) error {
	exists, err := c.Repo.DatasetExists(ctx, dataset)
	if err != nil {
		return fmt.Errorf("verify dataset %s: %w", dataset, err)
	}
	if exists {
		return nil
	}
	if err := c.Repo.CreateDataset(ctx, dataset); err != nil {
		return fmt.Errorf("create dataset %s: %w", dataset, err)
	}
	c.logger()("stage=dataset created=%s", dataset)
	return nil
}

func (c *Copier) logger() func(format string, v ...any) {
	if c.Logger == nil {
		l := log.New(discardWriter{}, "", 0)
		return l.Printf
	}
	return c.Logger.Printf
}

func (c *Copier) count(name string, v float64, labels metrics.Labels) {
	if c.Metrics == nil || v <= 0 {
		return
	}
	c.Metrics.IncCounter(name, v, labels)
}

func (c *Copier) observe(name string, d time.Duration, labels metrics.Labels) {
	if c.Metrics == nil {
		return
	}
	c.Metrics.ObserveDuration(name, d, labels)
}

func (c *Copier) countFailures(errs []error) {
	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	c.count(metrics.MetricUnitFailures, float64(failed), nil)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
