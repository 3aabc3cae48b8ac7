// Package document models the semi-structured records read from a source
// document store.
//
// A Document is a flat-to-arbitrarily-nested mapping of property names to
// Values. Value is a closed tagged union over the shapes a document store can
// hand back (null, string, integer, float, boolean, array, object), so that
// downstream classification can switch exhaustively instead of falling
// through a runtime type assertion ladder.
//
// This package is intentionally free of any driver or database dependency;
// decoding from BSON lives in internal/docstore.
package document

import (
	"fmt"
	"math"
	"sort"
)

// Kind discriminates the variants of Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindArray
	KindObject
)

// String returns a short variant name, used in logs and errors.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is one property value of a document.
//
// The zero Value is the null value.
type Value struct {
	kind Kind

	str string
	i64 int64
	f64 float64
	b   bool
	arr []Value
	obj Document
}

// Document is an ordered-irrelevant mapping of property name to Value.
type Document map[string]Value

// Null returns the null value.
func Null() Value { return Value{kind: KindNull} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i64: i} }

// Float returns a floating-point value.
func Float(f float64) Value { return Value{kind: KindFloat, f64: f} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Array returns an array value. The slice is not copied.
func Array(vs ...Value) Value { return Value{kind: KindArray, arr: vs} }

// Object returns an object value. The map is not copied; a nil map is a
// valid (empty) object.
func Object(d Document) Value { return Value{kind: KindObject, obj: d} }

// Kind reports which variant this value holds.
func (v Value) Kind() Kind { return v.kind }

// Str returns the string payload. Valid only for KindString.
func (v Value) Str() string { return v.str }

// Int64 returns the integer payload. Valid only for KindInt.
func (v Value) Int64() int64 { return v.i64 }

// Float64 returns the float payload. Valid only for KindFloat.
func (v Value) Float64() float64 { return v.f64 }

// Boolean returns the bool payload. Valid only for KindBool.
func (v Value) Boolean() bool { return v.b }

// Elems returns the array payload. Valid only for KindArray.
func (v Value) Elems() []Value { return v.arr }

// Fields returns the object payload. Valid only for KindObject.
func (v Value) Fields() Document { return v.obj }

// Scalar returns the value as a plain Go scalar suitable for a database
// driver: string, int64, float64, bool, or nil for the null value.
//
// Array and object values have no scalar form; Scalar returns nil for them.
// Callers that need the serialized form of an array should use the row
// flattener instead.
func (v Value) Scalar() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindString:
		return v.str
	case KindInt:
		return v.i64
	case KindFloat:
		return v.f64
	case KindBool:
		return v.b
	default:
		return nil
	}
}

// Keys returns the document's property names in sorted order.
//
// Go map iteration is randomized; every walk over a document that feeds
// schema or row construction must use this order so results are
// deterministic for a fixed document set.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FromAny converts a generic decoded value (the shapes encoding/json
// produces: nil, bool, string, float64, []any, map[string]any, plus the
// integer widths drivers commonly hand back) into a Value.
//
// Numbers with no fractional part become integers; this is what makes a
// JSON 3 and a driver int64 3 classify identically.
//
// An unsupported runtime type is a classification failure: FromAny returns
// an error and the caller is expected to report and skip the property
// rather than abort the surrounding walk.
func FromAny(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Null(), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case float32:
		return floatValue(float64(t)), nil
	case float64:
		return floatValue(t), nil
	case []any:
		elems := make([]Value, 0, len(t))
		for _, e := range t {
			ev, err := FromAny(e)
			if err != nil {
				return Value{}, err
			}
			elems = append(elems, ev)
		}
		return Array(elems...), nil
	case map[string]any:
		obj := make(Document, len(t))
		for k, e := range t {
			ev, err := FromAny(e)
			if err != nil {
				return Value{}, err
			}
			obj[k] = ev
		}
		return Object(obj), nil
	default:
		return Value{}, fmt.Errorf("document: unsupported value type %T", v)
	}
}

// floatValue maps an integral float to KindInt and anything else to
// KindFloat. NaN and infinities keep their float identity; they are not
// integral.
func floatValue(f float64) Value {
	if f == math.Trunc(f) && !math.IsInf(f, 0) &&
		f >= math.MinInt64 && f <= math.MaxInt64 {
		return Int(int64(f))
	}
	return Float(f)
}
