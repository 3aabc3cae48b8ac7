// Package flatten infers tabular schemas from semi-structured documents and
// reduces documents to flat rows matching those schemas.
//
// The package has four cooperating pieces:
//   - Identifier: derives the flat column name for a (possibly nested)
//     property path. Shared by schema inference and row flattening so the
//     two can never disagree on naming.
//   - Classify: maps one property value to a column type, or signals that
//     the value is a nested object whose children must be walked instead.
//   - SchemaBuilder: accumulates the deduplicated, ordered column set across
//     every document of a collection.
//   - Row flattening: reduces one document to a column-name -> scalar map.
//
// Inference is first-observed-wins: once a path has registered a column, a
// later document with a different runtime type at the same path does not
// change the schema. The mismatching value still flattens as-is and is left
// for the warehouse to reject at insert time.
package flatten

const (
	// DocIDColumn is the mandatory first column of every schema. It holds
	// the source document's identifier.
	DocIDColumn = "doc_ID"

	// pathSeparator joins parent and child property names. Double
	// underscore keeps flattened names from colliding with ordinary
	// single-underscore field names.
	pathSeparator = "__"
)

// ColumnType is the scalar type of a column cell.
type ColumnType string

const (
	TypeString  ColumnType = "STRING"
	TypeInteger ColumnType = "INTEGER"
	TypeFloat   ColumnType = "FLOAT"
	TypeBool    ColumnType = "BOOL"
)

// Column describes one schema column.
type Column struct {
	Name     string
	Type     ColumnType
	Nullable bool
}

// Schema is the ordered column set a destination table is created with.
// The first column is always DocIDColumn. A Schema is immutable once built;
// this package offers no alter or merge operation.
type Schema struct {
	Columns []Column
}

// ColumnNames returns the column names in schema order.
func (s Schema) ColumnNames() []string {
	names := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		names = append(names, c.Name)
	}
	return names
}

// Row is a flattened document: column name to scalar (string, int64,
// float64, bool) or nil. Every row carries a DocIDColumn entry.
type Row map[string]any

// Identifier derives the flat column name for a property.
//
// With an empty parent path the property name is the identifier, unchanged.
// Otherwise the parent path and the name are joined once with the
// separator: a property three levels deep yields
// "grandparent__parent__child".
func Identifier(name, parentPath string) string {
	if parentPath == "" {
		return name
	}
	return parentPath + pathSeparator + name
}
