package formats

import "reflect"

var anySliceType = reflect.TypeOf([]any{})

// newSequence allocates the container Unpack fills for a Vector/Array-shaped
// format: a slice of n elements when t names a slice type, a fixed-size
// array when t names an array type, or []any when no static type is known
// (e.g. inside Any).
func newSequence(t reflect.Type, n int) reflect.Value {
	switch {
	case t != nil && t.Kind() == reflect.Array:
		return reflect.New(t).Elem()
	case t != nil && t.Kind() == reflect.Slice:
		return reflect.MakeSlice(t, n, n)
	default:
		return reflect.MakeSlice(anySliceType, n, n)
	}
}

// sequenceElemType returns the static element type of a slice/array type,
// or nil if t is nil or not a sequence type.
func sequenceElemType(t reflect.Type) reflect.Type {
	if t != nil && (t.Kind() == reflect.Slice || t.Kind() == reflect.Array) {
		return t.Elem()
	}

	return nil
}

var anyMapType = reflect.TypeOf(map[any]any{})

// newMapping allocates the container Unpack fills for a Map-shaped format:
// a map of the static type t when known, else map[any]any.
func newMapping(t reflect.Type) reflect.Value {
	if t != nil && t.Kind() == reflect.Map {
		return reflect.MakeMap(t)
	}

	return reflect.MakeMap(anyMapType)
}

func mapKeyType(t reflect.Type) reflect.Type {
	if t != nil && t.Kind() == reflect.Map {
		return t.Key()
	}

	return nil
}

func mapValueType(t reflect.Type) reflect.Type {
	if t != nil && t.Kind() == reflect.Map {
		return t.Elem()
	}

	return nil
}
