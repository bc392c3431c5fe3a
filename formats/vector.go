package formats

import (
	"fmt"
	"reflect"

	"github.com/arloliu/msgpack/errs"
	"github.com/arloliu/msgpack/format"
	"github.com/arloliu/msgpack/generator"
	"github.com/arloliu/msgpack/msgctx"
	"github.com/arloliu/msgpack/wire"
)

// vectorFormat is Vector (spec.md §4.3.2): array header + N packed values,
// each position's format resolved via the 1-based-index `valueformat` hook.
type vectorFormat struct{ eng Engine }

// NewVector returns the Vector format bound to eng for recursive dispatch.
func NewVector(eng Engine) Codec { return vectorFormat{eng: eng} }

func (vectorFormat) FormatName() string { return "Vector" }

func (f vectorFormat) Pack(w *wire.Writer, v any, ctx msgctx.Context) error {
	containerType := reflect.TypeOf(v)
	reg := f.eng.Registry()

	rv := reflect.ValueOf(v)
	if destruct := format.DestructFor(reg, containerType, ctx); destruct != nil {
		raw, err := destruct(v)
		if err != nil {
			return err
		}

		elems, ok := raw.([]any)
		if !ok {
			return fmt.Errorf("%w: Destruct for %s must return []any, got %T", errs.ErrTypeAssertionFailed, containerType, raw)
		}

		rv = reflect.ValueOf(elems)
	} else if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("%w: %T is not a sequence", errs.ErrTypeAssertionFailed, v)
	}

	n := rv.Len()
	if err := w.WriteArrayHeader(n); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		state := i + 1 // spec.md §4.3.2: 1-based index
		elemFmt := format.ValueFormatFor(reg, containerType, state, f, ctx)

		if err := f.eng.Pack(w, rv.Index(i).Interface(), elemFmt, ctx); err != nil {
			return err
		}
	}

	return nil
}

func (f vectorFormat) Unpack(r *wire.Reader, t reflect.Type, ctx msgctx.Context) (any, error) {
	n, err := r.ReadArrayHeader()
	if err != nil {
		return nil, err
	}

	reg := f.eng.Registry()
	ctor := format.ConstructFor(reg, t, ctx)

	var out reflect.Value
	elemType := sequenceElemType(t)
	values := make([]any, 0, n)

	if ctor == nil {
		out = newSequence(t, n)
	}

	pos := 0
	gen := generator.New(n, func() (any, error) {
		state := pos + 1
		pos++

		valFmt := format.ValueFormatFor(reg, t, state, f, ctx)

		valType := elemType
		if vt := format.ValueTypeFor(reg, t, state, f, ctx); vt != nil {
			valType = vt
		}

		return f.eng.Unpack(r, valType, valFmt, ctx)
	})

	for i := 0; i < n; i++ {
		v, ok, err := gen.Next()
		if err != nil {
			return nil, err
		}

		if !ok {
			break
		}

		if ctor != nil {
			values = append(values, v)
		} else {
			out.Index(i).Set(reflect.ValueOf(v))
		}
	}

	gen.Finish()

	if ctor != nil {
		return ctor(values)
	}

	return out.Interface(), nil
}

// Vector, constructed once per Engine instance, applies to a slice/array
// type only where a caller binds it (format.Bind); NewEngine registers no
// default bindings.
var _ Codec = vectorFormat{}

// dynamicVectorFormat is DynamicVector (spec.md §4.3.2): like Vector, but
// the per-element type/format is resolved from an accumulated iteration
// state rather than a bare index, the mechanism Typed relies on to let a
// value's format depend on the type decoded just before it. Modeled on the
// teacher's internal/encoding numeric_gorilla per-element state machine.
type dynamicVectorFormat struct{ eng Engine }

// NewDynamicVector returns the DynamicVector format bound to eng.
func NewDynamicVector(eng Engine) Codec { return dynamicVectorFormat{eng: eng} }

func (dynamicVectorFormat) FormatName() string { return "DynamicVector" }

func (f dynamicVectorFormat) Pack(w *wire.Writer, v any, ctx msgctx.Context) error {
	containerType := reflect.TypeOf(v)
	reg := f.eng.Registry()

	rv := reflect.ValueOf(v)
	if destruct := format.DestructFor(reg, containerType, ctx); destruct != nil {
		raw, err := destruct(v)
		if err != nil {
			return err
		}

		elems, ok := raw.([]any)
		if !ok {
			return fmt.Errorf("%w: Destruct for %s must return []any, got %T", errs.ErrTypeAssertionFailed, containerType, raw)
		}

		rv = reflect.ValueOf(elems)
	} else if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("%w: %T is not a sequence", errs.ErrTypeAssertionFailed, v)
	}

	n := rv.Len()
	if err := w.WriteArrayHeader(n); err != nil {
		return err
	}

	var state format.State
	for i := 0; i < n; i++ {
		state = format.NextIterState(reg, containerType, ctx, state, nil)
		elemFmt := format.ValueFormatFor(reg, containerType, state, f, ctx)
		entry := rv.Index(i).Interface()

		if err := f.eng.Pack(w, entry, elemFmt, ctx); err != nil {
			return err
		}

		state = format.NextIterState(reg, containerType, ctx, state, entry)
	}

	return nil
}

func (f dynamicVectorFormat) Unpack(r *wire.Reader, t reflect.Type, ctx msgctx.Context) (any, error) {
	n, err := r.ReadArrayHeader()
	if err != nil {
		return nil, err
	}

	reg := f.eng.Registry()
	ctor := format.ConstructFor(reg, t, ctx)

	var out reflect.Value
	elemType := sequenceElemType(t)
	values := make([]any, 0, n)

	if ctor == nil {
		out = newSequence(t, n)
	}

	var state format.State

	for i := 0; i < n; i++ {
		state = format.NextIterState(reg, t, ctx, state, nil)

		valFmt := format.ValueFormatFor(reg, t, state, f, ctx)

		valType := elemType
		if vt := format.ValueTypeFor(reg, t, state, f, ctx); vt != nil {
			valType = vt
		}

		entry, err := f.eng.Unpack(r, valType, valFmt, ctx)
		if err != nil {
			return nil, err
		}

		if ctor != nil {
			values = append(values, entry)
		} else {
			out.Index(i).Set(reflect.ValueOf(entry))
		}

		state = format.NextIterState(reg, t, ctx, state, entry)
	}

	if ctor != nil {
		return ctor(values)
	}

	return out.Interface(), nil
}
