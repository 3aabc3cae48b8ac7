package flatten

import "doccopy/internal/document"

// SchemaBuilder accumulates the union of columns observed across the
// documents of one collection.
//
// Registration is idempotent and first-observed-wins: a path that has
// already produced a column is silently skipped for later documents, even
// when the later runtime type differs. Column order is order of first
// discovery, which is deterministic for a fixed document enumeration order
// because each document's properties are walked in sorted key order.
//
// A builder is single-use: build, call Schema, discard. It is not safe for
// concurrent use.
type SchemaBuilder struct {
	registered map[string]struct{}
	columns    []Column
}

// NewSchemaBuilder returns a builder seeded with the mandatory DocIDColumn
// (STRING, NOT NULL) as the first column.
func NewSchemaBuilder() *SchemaBuilder {
	b := &SchemaBuilder{
		registered: make(map[string]struct{}),
	}
	b.register(Column{Name: DocIDColumn, Type: TypeString, Nullable: false})
	return b
}

// AddDocument classifies every property of doc, recursing into nested
// objects, and registers each resulting column that has not been seen yet.
func (b *SchemaBuilder) AddDocument(doc document.Document) {
	b.walk("", doc)
}

func (b *SchemaBuilder) walk(parentPath string, doc document.Document) {
	for _, name := range doc.Keys() {
		v := doc[name]
		c := Classify(name, parentPath, v)
		if c.Expand {
			b.walk(Identifier(name, parentPath), v.Fields())
			continue
		}
		b.register(c.Column)
	}
}

func (b *SchemaBuilder) register(col Column) {
	if _, ok := b.registered[col.Name]; ok {
		return
	}
	b.registered[col.Name] = struct{}{}
	b.columns = append(b.columns, col)
}

// Schema returns the accumulated schema. The returned column slice is a
// copy; further AddDocument calls do not mutate it.
func (b *SchemaBuilder) Schema() Schema {
	return Schema{Columns: append([]Column(nil), b.columns...)}
}
