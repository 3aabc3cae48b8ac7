// Package sqlite implements warehouse.Warehouse on SQLite via
// modernc.org/sqlite.
//
// SQLite has no schemas, so a dataset is encoded into the physical table
// name: the table for collection "users" in dataset "staging" is the single
// quoted identifier "staging.users". Quoting makes the dot part of the name
// rather than a qualifier, which keeps dataset/table round-trips exact no
// matter what characters either part contains. Dataset existence is tracked
// in a small catalog table so an empty dataset is still observable.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"doccopy/internal/flatten"
	"doccopy/internal/warehouse"
)

const catalogTable = "doccopy_datasets"

// Repo implements warehouse.Warehouse for SQLite.
type Repo struct {
	db *sql.DB
}

func New(ctx context.Context, cfg warehouse.Config) (warehouse.Warehouse, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS `+sqlIdent(catalogTable)+` (name TEXT PRIMARY KEY)`,
	); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create dataset catalog: %w", err)
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

func (r *Repo) DatasetExists(ctx context.Context, dataset string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM `+sqlIdent(catalogTable)+` WHERE name = ?`, dataset,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("dataset exists %s: %w", dataset, err)
	}
	return true, nil
}

func (r *Repo) CreateDataset(ctx context.Context, dataset string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO `+sqlIdent(catalogTable)+` (name) VALUES (?)`, dataset,
	)
	if err != nil {
		return fmt.Errorf("create dataset %s: %w", dataset, err)
	}
	return nil
}

func (r *Repo) ListTables(ctx context.Context, dataset string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("list tables in %s: %w", dataset, err)
	}
	defer rows.Close()

	prefix := dataset + "."
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		if strings.HasPrefix(n, prefix) {
			names = append(names, strings.TrimPrefix(n, prefix))
		}
	}
	return names, rows.Err()
}

func (r *Repo) CreateTable(ctx context.Context, dataset, table string, schema flatten.Schema) error {
	stmt, err := buildCreateSQL(dataset, table, schema)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create table %s.%s: %w", dataset, table, err)
	}
	return nil
}

func (r *Repo) DeleteTable(ctx context.Context, dataset, table string) error {
	if _, err := r.db.ExecContext(ctx, "DROP TABLE "+sqlIdent(physicalName(dataset, table))); err != nil {
		return fmt.Errorf("drop table %s.%s: %w", dataset, table, err)
	}
	return nil
}

func (r *Repo) InsertRows(ctx context.Context, dataset, table string, schema flatten.Schema, rows []flatten.Row) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	stmt, args := buildInsertSQL(dataset, table, schema, rows)
	res, err := r.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("insert into %s.%s: %w", dataset, table, err)
	}
	return res.RowsAffected()
}

func buildCreateSQL(dataset, table string, schema flatten.Schema) (string, error) {
	if strings.TrimSpace(table) == "" {
		return "", fmt.Errorf("sqlite: table name is empty")
	}
	if len(schema.Columns) == 0 {
		return "", fmt.Errorf("sqlite: schema for %s has no columns", table)
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(sqlIdent(physicalName(dataset, table)))
	b.WriteString(" (")
	for i, c := range schema.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(sqlIdent(c.Name))
		b.WriteString(" ")
		b.WriteString(columnType(c.Type))
		if !c.Nullable {
			b.WriteString(" NOT NULL")
		}
	}
	b.WriteString(");")
	return b.String(), nil
}

func buildInsertSQL(dataset, table string, schema flatten.Schema, rows []flatten.Row) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(sqlIdent(physicalName(dataset, table)))
	b.WriteString(" (")
	for i, c := range schema.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(sqlIdent(c.Name))
	}
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(schema.Columns))
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j, arg := range warehouse.RowArgs(schema, row) {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString("?")
			args = append(args, arg)
		}
		b.WriteString(")")
	}
	b.WriteString(";")
	return b.String(), args
}

func columnType(t flatten.ColumnType) string {
	switch t {
	case flatten.TypeInteger:
		return "INTEGER"
	case flatten.TypeFloat:
		return "REAL"
	case flatten.TypeBool:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

func physicalName(dataset, table string) string {
	if dataset == "" {
		return table
	}
	return dataset + "." + table
}

func sqlIdent(id string) string {
	// SQLite supports "quoted identifiers"
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
