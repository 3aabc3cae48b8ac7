package warehouse

import (
	"context"
	"reflect"
	"testing"

	"doccopy/internal/flatten"
)

func TestRowArgs(t *testing.T) {
	t.Parallel()

	schema := flatten.Schema{Columns: []flatten.Column{
		{Name: flatten.DocIDColumn, Type: flatten.TypeString},
		{Name: "age", Type: flatten.TypeInteger},
		{Name: "name", Type: flatten.TypeString},
	}}

	tests := []struct {
		name string
		row  flatten.Row
		want []any
	}{
		{
			"full row in schema order",
			flatten.Row{flatten.DocIDColumn: "d1", "name": "ada", "age": int64(36)},
			[]any{"d1", int64(36), "ada"},
		},
		{
			"missing cell becomes nil",
			flatten.Row{flatten.DocIDColumn: "d2", "name": "bob"},
			[]any{"d2", nil, "bob"},
		},
		{
			"extra cells are ignored",
			flatten.Row{flatten.DocIDColumn: "d3", "age": int64(1), "name": "c", "ghost": true},
			[]any{"d3", int64(1), "c"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := RowArgs(schema, tt.row)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("RowArgs = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestRegister_Panics(t *testing.T) {
	t.Parallel()

	mustPanic := func(name string, fn func()) {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatal("expected panic")
				}
			}()
			fn()
		})
	}

	noop := func(ctx context.Context, cfg Config) (Warehouse, error) { return nil, nil }

	mustPanic("empty kind", func() { Register("", noop) })
	mustPanic("nil factory", func() { Register("somekind", nil) })

	Register("dupkind", noop)
	mustPanic("duplicate kind", func() { Register("dupkind", noop) })
}

func TestNew_UnknownKind(t *testing.T) {
	t.Parallel()

	if _, err := New(context.Background(), Config{Kind: "nosuch"}); err == nil {
		t.Fatal("expected error for unregistered kind")
	}
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for empty kind")
	}
}
