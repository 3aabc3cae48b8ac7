// Package postgres implements warehouse.Warehouse on Postgres via pgx.
//
// Mapping choices:
//   - A dataset is a Postgres schema.
//   - STRING -> text, INTEGER -> bigint, FLOAT -> double precision,
//     BOOL -> boolean.
//   - CreateTable deliberately omits IF NOT EXISTS: creating a table that
//     already exists must fail, the caller owns the pre-check.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"doccopy/internal/flatten"
	"doccopy/internal/warehouse"
)

// Repo implements warehouse.Warehouse for Postgres.
type Repo struct {
	pool *pgxpool.Pool
}

// New connects a pgx pool and verifies the connection.
func New(ctx context.Context, cfg warehouse.Config) (warehouse.Warehouse, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Repo{pool: pool}, nil
}

// Close closes the connection pool.
func (r *Repo) Close() { r.pool.Close() }

func (r *Repo) DatasetExists(ctx context.Context, dataset string) (bool, error) {
	var one int
	err := r.pool.QueryRow(ctx,
		`SELECT 1 FROM information_schema.schemata WHERE schema_name = $1`,
		dataset,
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("dataset exists %s: %w", dataset, err)
	}
	return true, nil
}

func (r *Repo) CreateDataset(ctx context.Context, dataset string) error {
	if _, err := r.pool.Exec(ctx, "CREATE SCHEMA "+pgIdent(dataset)); err != nil {
		return fmt.Errorf("create dataset %s: %w", dataset, err)
	}
	return nil
}

func (r *Repo) ListTables(ctx context.Context, dataset string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT table_name FROM information_schema.tables
		 WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		 ORDER BY table_name`,
		dataset,
	)
	if err != nil {
		return nil, fmt.Errorf("list tables in %s: %w", dataset, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (r *Repo) CreateTable(ctx context.Context, dataset, table string, schema flatten.Schema) error {
	sql, err := buildCreateSQL(dataset, table, schema)
	if err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("create table %s.%s: %w", dataset, table, err)
	}
	return nil
}

func (r *Repo) DeleteTable(ctx context.Context, dataset, table string) error {
	sql := "DROP TABLE " + qualify(dataset, table)
	if _, err := r.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("drop table %s.%s: %w", dataset, table, err)
	}
	return nil
}

func (r *Repo) InsertRows(ctx context.Context, dataset, table string, schema flatten.Schema, rows []flatten.Row) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	sql, args := buildInsertSQL(dataset, table, schema, rows)
	cmd, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("insert into %s.%s: %w", dataset, table, err)
	}
	return cmd.RowsAffected(), nil
}

// buildCreateSQL constructs the CREATE TABLE statement for a schema.
//
// Pure and deterministic so DDL shape is unit-testable without a database.
func buildCreateSQL(dataset, table string, schema flatten.Schema) (string, error) {
	if strings.TrimSpace(table) == "" {
		return "", fmt.Errorf("postgres: table name is empty")
	}
	if len(schema.Columns) == 0 {
		return "", fmt.Errorf("postgres: schema for %s has no columns", table)
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(qualify(dataset, table))
	b.WriteString(" (")
	for i, c := range schema.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgIdent(c.Name))
		b.WriteString(" ")
		b.WriteString(columnType(c.Type))
		if !c.Nullable {
			b.WriteString(" NOT NULL")
		}
	}
	b.WriteString(");")
	return b.String(), nil
}

// buildInsertSQL constructs a single multi-row INSERT and its args with
// numbered placeholders.
func buildInsertSQL(dataset, table string, schema flatten.Schema, rows []flatten.Row) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(qualify(dataset, table))
	b.WriteString(" (")
	for i, c := range schema.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgIdent(c.Name))
	}
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(schema.Columns))
	p := 1
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j, arg := range warehouse.RowArgs(schema, row) {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", p)
			args = append(args, arg)
			p++
		}
		b.WriteString(")")
	}
	b.WriteString(";")
	return b.String(), args
}

func columnType(t flatten.ColumnType) string {
	switch t {
	case flatten.TypeInteger:
		return "bigint"
	case flatten.TypeFloat:
		return "double precision"
	case flatten.TypeBool:
		return "boolean"
	default:
		return "text"
	}
}

func qualify(dataset, table string) string {
	if dataset == "" {
		return pgIdent(table)
	}
	return pgIdent(dataset) + "." + pgIdent(table)
}

// pgIdent returns a double-quoted identifier, escaping '"' as '""'.
func pgIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
