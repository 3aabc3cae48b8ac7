package mssql

import (
	"reflect"
	"testing"

	"doccopy/internal/flatten"
)

func TestBuildCreateSQL(t *testing.T) {
	t.Parallel()

	schema := flatten.Schema{Columns: []flatten.Column{
		{Name: flatten.DocIDColumn, Type: flatten.TypeString, Nullable: false},
		{Name: "age", Type: flatten.TypeInteger, Nullable: true},
		{Name: "ratio", Type: flatten.TypeFloat, Nullable: true},
		{Name: "ok", Type: flatten.TypeBool, Nullable: true},
	}}

	got, err := buildCreateSQL("warehouse", "users", schema)
	if err != nil {
		t.Fatalf("buildCreateSQL: %v", err)
	}
	want := `CREATE TABLE [warehouse].[users] (` +
		`[doc_ID] nvarchar(max) NOT NULL, ` +
		`[age] bigint, ` +
		`[ratio] float, ` +
		`[ok] bit);`
	if got != want {
		t.Fatalf("sql mismatch:\n got: %s\nwant: %s", got, want)
	}
}

func TestBuildCreateSQL_Errors(t *testing.T) {
	t.Parallel()

	if _, err := buildCreateSQL("d", " ", flatten.Schema{}); err == nil {
		t.Fatal("expected error for blank table name")
	}
	if _, err := buildCreateSQL("d", "t", flatten.Schema{}); err == nil {
		t.Fatal("expected error for empty schema")
	}
}

func TestBuildInsertSQL(t *testing.T) {
	t.Parallel()

	schema := flatten.Schema{Columns: []flatten.Column{
		{Name: flatten.DocIDColumn, Type: flatten.TypeString},
		{Name: "n", Type: flatten.TypeInteger},
	}}
	rows := []flatten.Row{
		{flatten.DocIDColumn: "a", "n": int64(1)},
		{flatten.DocIDColumn: "b"},
	}

	stmt, args := buildInsertSQL("warehouse", "users", schema, rows)

	wantSQL := `INSERT INTO [warehouse].[users] ([doc_ID], [n]) VALUES (@p1, @p2), (@p3, @p4);`
	if stmt != wantSQL {
		t.Fatalf("sql mismatch:\n got: %s\nwant: %s", stmt, wantSQL)
	}
	wantArgs := []any{"a", int64(1), "b", nil}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Fatalf("args = %#v, want %#v", args, wantArgs)
	}
}

func TestMssqlIdent(t *testing.T) {
	t.Parallel()

	if got := mssqlIdent("users"); got != "[users]" {
		t.Fatalf("mssqlIdent = %s", got)
	}
	if got := mssqlIdent("we]ird"); got != "[we]]ird]" {
		t.Fatalf("mssqlIdent escaping = %s", got)
	}
}
