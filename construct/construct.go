// Package construct implements the Construct/Destruct hook interface (spec
// component C5): the pair of functions each catalog format calls to bridge
// a domain value and its format-specific wire intermediate, plus the
// engine's default implementations of both (spec.md §4.5).
//
// This generalizes the split the teacher draws between blob.NumericEncoder
// (domain value -> wire intermediate) and blob.NumericDecoder (wire
// intermediate -> domain value): there the intermediate is always a raw
// float64/int64 column; here it can be a scalar, an iterable, an iterable
// of pairs, or a byte buffer, depending on which catalog format is in play.
package construct

import (
	"fmt"
	"reflect"

	"github.com/arloliu/msgpack/errs"
)

// Hooks bundles the per-type construct/destruct pair spec.md §4.5 defines.
// The formats package does not read Hooks: its catalog formats take
// per-type overrides from format.Binding.Construct/Destruct and otherwise
// fall back to ConvertToType, PositionalOf/Fields, or an element-wise
// default depending on the enclosing format's shape.
type Hooks[T any] struct {
	Destruct  func(v T) (any, error)
	Construct func(intermediate any) (T, error)
}

// FromScalar is the default construct for Core scalar formats: the natural
// conversion from a decoded scalar to T (spec.md §4.5 "the natural
// conversion, e.g. as_signed, as_float, to_string").
func FromScalar[T any](v any) (T, error) {
	var zero T

	if asserted, ok := v.(T); ok {
		return asserted, nil
	}

	target := reflect.TypeOf(zero)
	if target == nil {
		return zero, fmt.Errorf("%w: cannot assign %T to an interface-typed target", errs.ErrTypeAssertionFailed, v)
	}

	rv := reflect.ValueOf(v)
	if !rv.IsValid() || !rv.Type().ConvertibleTo(target) {
		return zero, fmt.Errorf("%w: %T is not convertible to %s", errs.ErrTypeAssertionFailed, v, target)
	}

	out, ok := rv.Convert(target).Interface().(T)
	if !ok {
		return zero, fmt.Errorf("%w: conversion to %s failed", errs.ErrTypeAssertionFailed, target)
	}

	return out, nil
}

// ToScalar is the default destruct for Core scalar formats: the value is
// passed through unchanged, since wire.Writer accepts any Go scalar whose
// kind matches the requested atom.
func ToScalar[T any](v T) any { return v }

// ConvertToType is FromScalar's non-generic counterpart, for callers that
// only have a reflect.Type at hand rather than a compile-time type
// parameter — the Core scalar formats' dynamic-dispatch unpack path, which
// resolves its target type at runtime from the fieldtypes/valuetype hooks.
// t == nil means "no static type requested" (e.g. inside Any) and v is
// returned unchanged, same as FromScalar would for T == any.
func ConvertToType(v any, t reflect.Type) (any, error) {
	if t == nil {
		return v, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Type() == t {
		return v, nil
	}

	if !rv.Type().ConvertibleTo(t) {
		return nil, fmt.Errorf("%w: %T is not convertible to %s", errs.ErrTypeAssertionFailed, v, t)
	}

	return rv.Convert(t).Interface(), nil
}

// Positional is the default construct for struct-shaped formats: it builds
// T by assigning values, in order, to T's exported fields in declaration
// order (spec.md §4.3.4 "invokes T(arg1, arg2, ...) ... determined by the
// user-supplied binding"; the engine default treats every field as
// positional).
func Positional[T any](values []any) (T, error) {
	var zero T

	rt := reflect.TypeOf(zero)
	if rt == nil || rt.Kind() != reflect.Struct {
		return zero, fmt.Errorf("%w: Positional requires a struct type, got %T", errs.ErrTypeAssertionFailed, zero)
	}

	out, err := positionalReflect(rt, values)
	if err != nil {
		return zero, err
	}

	return out.Interface().(T), nil
}

// PositionalOf is Positional for callers that only have a reflect.Type (the
// formats package's struct-shaped catalog formats, which resolve the target
// type at runtime via the fieldtypes/fieldnames hooks rather than a Go
// generic type parameter).
func PositionalOf(t reflect.Type, values []any) (any, error) {
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: PositionalOf requires a struct type, got %v", errs.ErrTypeAssertionFailed, t)
	}

	out, err := positionalReflect(t, values)
	if err != nil {
		return nil, err
	}

	return out.Interface(), nil
}

func positionalReflect(rt reflect.Type, values []any) (reflect.Value, error) {
	out := reflect.New(rt).Elem()

	vi := 0
	for i := 0; i < rt.NumField() && vi < len(values); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}

		if values[vi] == nil {
			// A decoded Nil leaves the field at its zero value — only
			// representable for nilable kinds (interface/pointer/slice/
			// map/chan/func), matching the domain's null per spec.md §4.3.1.
			switch field.Type.Kind() {
			case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
				vi++

				continue
			default:
				return reflect.Value{}, fmt.Errorf("%w: field %s: cannot assign nil to %s", errs.ErrTypeAssertionFailed, field.Name, field.Type)
			}
		}

		fv := reflect.ValueOf(values[vi])
		if !fv.Type().ConvertibleTo(field.Type) {
			return reflect.Value{}, fmt.Errorf("%w: field %s: cannot assign %v", errs.ErrTypeAssertionFailed, field.Name, values[vi])
		}

		out.Field(i).Set(fv.Convert(field.Type))
		vi++
	}

	exported := 0
	for i := 0; i < rt.NumField(); i++ {
		if rt.Field(i).IsExported() {
			exported++
		}
	}

	if vi != len(values) || vi != exported {
		return reflect.Value{}, errs.ErrLengthMismatch
	}

	return out, nil
}

// Fields is the default destruct for struct-shaped formats: it extracts the
// exported field values of v in declaration order (the inverse of
// Positional).
func Fields[T any](v T) []any {
	rv := reflect.ValueOf(v)
	rt := rv.Type()

	out := make([]any, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		if !rt.Field(i).IsExported() {
			continue
		}

		out = append(out, rv.Field(i).Interface())
	}

	return out
}

// FromSequence is the default construct for Vector-shaped formats over a
// slice element type: it collects every value already pulled off the
// generator into a []E (spec.md §4.5 "vector/map formats default to
// iterating the value's element/entry sequence").
func FromSequence[E any](values []E) []E { return values }

// ToSequence is the default destruct for Vector-shaped formats: a slice is
// already the iterable the catalog format needs.
func ToSequence[E any](v []E) []E { return v }
