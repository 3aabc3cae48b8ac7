package flatten

import (
	"strconv"
	"strings"

	"doccopy/internal/document"
)

// FlattenRow reduces one document to a flat row keyed by the same
// identifiers the SchemaBuilder derives:
//
//   - null stores nil at the property's identifier
//   - scalars store their value unchanged
//   - arrays serialize to one comma-joined string (elements are not
//     escaped, so embedded commas are ambiguous on the way back out)
//   - non-empty objects contribute no entry themselves, only their
//     descendants, written into the same row (one row per document)
//   - empty objects store nil, like any other degenerate leaf
//
// The row accumulator is function-scoped and passed through the recursion
// by reference; nothing is shared across documents or collections. On
// duplicate identifiers (possible only with malformed input) the later
// write wins.
func FlattenRow(id string, doc document.Document) Row {
	row := Row{DocIDColumn: id}
	flattenInto(row, "", doc)
	return row
}

func flattenInto(row Row, parentPath string, doc document.Document) {
	for _, name := range doc.Keys() {
		v := doc[name]
		c := Classify(name, parentPath, v)
		if c.Expand {
			flattenInto(row, Identifier(name, parentPath), v.Fields())
			continue
		}
		row[c.Column.Name] = cellValue(v)
	}
}

func cellValue(v document.Value) any {
	if v.Kind() == document.KindArray {
		return joinArray(v.Elems())
	}
	if v.Kind() == document.KindObject {
		// Empty object; non-empty objects never reach here.
		return nil
	}
	return v.Scalar()
}

// joinArray renders array elements as strings joined by commas. An empty
// array renders as "". Nested arrays join recursively; null elements and
// objects have no scalar form and render empty.
func joinArray(elems []document.Value) string {
	parts := make([]string, 0, len(elems))
	for _, e := range elems {
		parts = append(parts, elementString(e))
	}
	return strings.Join(parts, ",")
}

func elementString(v document.Value) string {
	switch v.Kind() {
	case document.KindString:
		return v.Str()
	case document.KindInt:
		return strconv.FormatInt(v.Int64(), 10)
	case document.KindFloat:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case document.KindBool:
		return strconv.FormatBool(v.Boolean())
	case document.KindArray:
		return joinArray(v.Elems())
	default:
		return ""
	}
}
