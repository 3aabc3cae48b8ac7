package flatten

import "doccopy/internal/document"

// Classification is the result of classifying one property value: either a
// concrete column, or Expand=true meaning the value is a non-empty nested
// object and the caller must recurse into its children with this property
// appended to the path instead.
type Classification struct {
	Column Column
	Expand bool
}

// Classify maps a property value to a column descriptor.
//
// Rules, in priority order:
//   - null (and absent, which decoders surface as null) -> STRING, nullable
//   - string -> STRING, nullable
//   - integral number -> INTEGER, nullable
//   - fractional number -> FLOAT, nullable
//   - boolean -> BOOL, nullable
//   - array, regardless of element types -> STRING, nullable (arrays are
//     serialized into one cell, never expanded into columns)
//   - non-empty object -> Expand
//   - empty object -> STRING, nullable (degenerate leaf)
//
// The switch is exhaustive over document.Kind; an unrecognized runtime type
// cannot reach this function because document.FromAny rejects it during
// decoding.
//
// The decision is total and deterministic: a given value shape always
// yields the same type.
func Classify(name, parentPath string, v document.Value) Classification {
	id := Identifier(name, parentPath)
	col := func(t ColumnType) Classification {
		return Classification{Column: Column{Name: id, Type: t, Nullable: true}}
	}

	switch v.Kind() {
	case document.KindNull:
		return col(TypeString)
	case document.KindString:
		return col(TypeString)
	case document.KindInt:
		return col(TypeInteger)
	case document.KindFloat:
		return col(TypeFloat)
	case document.KindBool:
		return col(TypeBool)
	case document.KindArray:
		return col(TypeString)
	case document.KindObject:
		if len(v.Fields()) == 0 {
			return col(TypeString)
		}
		return Classification{Expand: true}
	default:
		// Unreachable for values built through the document package.
		return col(TypeString)
	}
}
