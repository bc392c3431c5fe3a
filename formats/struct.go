package formats

import (
	"fmt"
	"reflect"

	"github.com/arloliu/msgpack/construct"
	"github.com/arloliu/msgpack/errs"
	"github.com/arloliu/msgpack/format"
	"github.com/arloliu/msgpack/msgctx"
	"github.com/arloliu/msgpack/wire"
)

// exportedFields returns t's exported fields in declaration order. Every
// parallel-indexed hook (fieldnames/fieldtypes/fieldformats) is assumed to
// align with this order when the hook is not overridden — spec.md §4.2
// describes the three as "tuples parallel-indexed," and this order is the
// natural parallel index for a Go struct.
func exportedFields(t reflect.Type) []reflect.StructField {
	fields := make([]reflect.StructField, 0, t.NumField())

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.IsExported() {
			fields = append(fields, f)
		}
	}

	return fields
}

func defaultFieldNames(fields []reflect.StructField) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		name := f.Name
		if tag := f.Tag.Get("msgpack"); tag != "" && tag != "-" {
			name = tag
		}

		names[i] = name
	}

	return names
}

func defaultFieldTypes(fields []reflect.StructField) []reflect.Type {
	types := make([]reflect.Type, len(fields))
	for i, f := range fields {
		types[i] = f.Type
	}

	return types
}

func structFieldPlan(reg *format.Registry, t reflect.Type, ctx msgctx.Context) (names []string, types []reflect.Type, formats_ []format.Format) {
	fields := exportedFields(t)

	names = format.FieldNamesFor(reg, t, ctx)
	if names == nil {
		names = defaultFieldNames(fields)
	}

	types = format.FieldTypesFor(reg, t, ctx)
	if types == nil {
		types = defaultFieldTypes(fields)
	}

	formats_ = format.FieldFormatsFor(reg, t, ctx)

	return names, types, formats_
}

func structKind(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	return t
}

type structVariant int

const (
	structOrdered structVariant = iota
	structUnordered
	structFlexible
)

// structFormat implements Struct, UnorderedStruct and FlexibleStruct (spec.md
// §4.3.4): all three pack identically (keys always String, values follow
// fieldformats); they differ only in how unpack tolerates key order,
// duplicates and unknown keys.
type structFormat struct {
	eng     Engine
	variant structVariant
	name    string
}

// NewStruct returns the Struct format: unpack rejects reordered input.
func NewStruct(eng Engine) Codec { return structFormat{eng: eng, variant: structOrdered, name: "Struct"} }

// NewUnorderedStruct returns the UnorderedStruct format: unpack accepts any
// key permutation, rejects duplicate or unknown keys.
func NewUnorderedStruct(eng Engine) Codec {
	return structFormat{eng: eng, variant: structUnordered, name: "UnorderedStruct"}
}

// NewFlexibleStruct returns the FlexibleStruct format: like
// UnorderedStruct, but unknown keys are silently skipped instead of
// rejected.
func NewFlexibleStruct(eng Engine) Codec {
	return structFormat{eng: eng, variant: structFlexible, name: "FlexibleStruct"}
}

func (f structFormat) FormatName() string { return f.name }

func (f structFormat) Pack(w *wire.Writer, v any, ctx msgctx.Context) error {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}

	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("%w: %T is not a struct", errs.ErrTypeAssertionFailed, v)
	}

	t := rv.Type()
	reg := f.eng.Registry()
	names, _, fieldFmts := structFieldPlan(reg, t, ctx)
	fields := exportedFields(t)

	fieldValues := make([]any, len(fields))

	if destruct := format.DestructFor(reg, t, ctx); destruct != nil {
		raw, err := destruct(v)
		if err != nil {
			return err
		}

		values, ok := raw.([]any)
		if !ok || len(values) != len(fields) {
			return fmt.Errorf("%w: Destruct for %s must return %d field values, got %T", errs.ErrTypeAssertionFailed, t, len(fields), raw)
		}

		fieldValues = values
	} else {
		for i, field := range fields {
			fieldValues[i] = rv.Field(field.Index[0]).Interface()
		}
	}

	if err := w.WriteMapHeader(len(names)); err != nil {
		return err
	}

	for i, name := range names {
		if err := f.eng.Pack(w, name, String, ctx); err != nil {
			return err
		}

		var valFmt format.Format
		if i < len(fieldFmts) {
			valFmt = fieldFmts[i]
		}

		if err := f.eng.Pack(w, fieldValues[i], valFmt, ctx); err != nil {
			return err
		}
	}

	return nil
}

func (f structFormat) Unpack(r *wire.Reader, t reflect.Type, ctx msgctx.Context) (any, error) {
	st := structKind(t)
	if st == nil || st.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct", errs.ErrTypeAssertionFailed, t)
	}

	reg := f.eng.Registry()
	names, types, fieldFmts := structFieldPlan(reg, st, ctx)

	index := make(map[string]int, len(names))
	for i, n := range names {
		index[n] = i
	}

	n, err := r.ReadMapHeader()
	if err != nil {
		return nil, err
	}

	values := make([]any, len(names))
	seen := make([]bool, len(names))

	readValue := func(slot int) (any, error) {
		var valFmt format.Format
		if slot < len(fieldFmts) {
			valFmt = fieldFmts[slot]
		}

		var valType reflect.Type
		if slot < len(types) {
			valType = types[slot]
		}

		return f.eng.Unpack(r, valType, valFmt, ctx)
	}

	for i := 0; i < n; i++ {
		key, err := r.ReadString()
		if err != nil {
			return nil, err
		}

		switch f.variant {
		case structOrdered:
			if i >= len(names) || key != names[i] {
				return nil, fmt.Errorf("%w: expected %q at position %d, got %q", errs.ErrKeyOrderMismatch, safeName(names, i), i, key)
			}

			v, err := readValue(i)
			if err != nil {
				return nil, err
			}

			values[i] = v
			seen[i] = true

		case structUnordered, structFlexible:
			slot, ok := index[key]
			if !ok {
				if f.variant == structFlexible {
					if err := wire.Skip(r); err != nil {
						return nil, err
					}

					continue
				}

				return nil, fmt.Errorf("%w: %q", errs.ErrUnknownKey, key)
			}

			if seen[slot] {
				return nil, fmt.Errorf("%w: %q", errs.ErrDuplicateKey, key)
			}

			v, err := readValue(slot)
			if err != nil {
				return nil, err
			}

			values[slot] = v
			seen[slot] = true
		}
	}

	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("%w: %q", errs.ErrMissingField, safeName(names, i))
		}
	}

	if ctor := format.ConstructFor(reg, st, ctx); ctor != nil {
		return ctor(values)
	}

	return construct.PositionalOf(st, values)
}

func safeName(names []string, i int) string {
	if i < 0 || i >= len(names) {
		return "?"
	}

	return names[i]
}
