// Package mssql implements warehouse.Warehouse on SQL Server via
// github.com/microsoft/go-mssqldb.
//
// Mapping choices:
//   - A dataset is a SQL Server schema.
//   - STRING -> nvarchar(max), INTEGER -> bigint, FLOAT -> float,
//     BOOL -> bit.
//   - Placeholders use the driver's @pN form.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"doccopy/internal/flatten"
	"doccopy/internal/warehouse"
)

// Repo implements warehouse.Warehouse for SQL Server.
type Repo struct {
	db *sql.DB
}

func New(ctx context.Context, cfg warehouse.Config) (warehouse.Warehouse, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

func (r *Repo) DatasetExists(ctx context.Context, dataset string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM sys.schemas WHERE name = @p1`, dataset,
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
	// CREATE SCHEMA must be the only statement in its batch, which a plain
	// Exec satisfies. The schema name cannot be parameterized.
	if _, err := r.db.ExecContext(ctx, "CREATE SCHEMA "+mssqlIdent(dataset)); err != nil {
		return fmt.Errorf("create dataset %s: %w", dataset, err)
	}
	return nil
}

func (r *Repo) ListTables(ctx context.Context, dataset string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
		 WHERE TABLE_SCHEMA = @p1 AND TABLE_TYPE = 'BASE TABLE'
		 ORDER BY TABLE_NAME`,
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
	if _, err := r.db.ExecContext(ctx, "DROP TABLE "+qualify(dataset, table)); err != nil {
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
		return "", fmt.Errorf("mssql: table name is empty")
	}
	if len(schema.Columns) == 0 {
		return "", fmt.Errorf("mssql: schema for %s has no columns", table)
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(qualify(dataset, table))
	b.WriteString(" (")
	for i, c := range schema.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(mssqlIdent(c.Name))
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
	b.WriteString(qualify(dataset, table))
	b.WriteString(" (")
	for i, c := range schema.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(mssqlIdent(c.Name))
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
			fmt.Fprintf(&b, "@p%d", p)
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
		return "float"
	case flatten.TypeBool:
		return "bit"
	default:
		return "nvarchar(max)"
	}
}

func qualify(dataset, table string) string {
	if dataset == "" {
		return mssqlIdent(table)
	}
	return mssqlIdent(dataset) + "." + mssqlIdent(table)
}

// mssqlIdent returns a bracket-quoted identifier, escaping ']' as ']]'.
func mssqlIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}
