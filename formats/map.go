package formats

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/arloliu/msgpack/errs"
	"github.com/arloliu/msgpack/format"
	"github.com/arloliu/msgpack/generator"
	"github.com/arloliu/msgpack/msgctx"
	"github.com/arloliu/msgpack/wire"
)

// sortedMapKeys returns rv's keys in a stable, deterministic order. The wire
// format does not require any particular key order, but a stable order is
// what gives pack(v) byte-for-byte reproducibility across calls (spec.md §8
// "Universal round-trip ... second pack(unpack(b)) equals first pack(v)").
func sortedMapKeys(rv reflect.Value) []reflect.Value {
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})

	return keys
}

// mapFormat is Map (spec.md §4.3.3): map header + N (key, value) pairs,
// each position resolved via the per-position key/value type/format hooks.
type mapFormat struct{ eng Engine }

// NewMap returns the Map format bound to eng.
func NewMap(eng Engine) Codec { return mapFormat{eng: eng} }

func (mapFormat) FormatName() string { return "Map" }

func (f mapFormat) Pack(w *wire.Writer, v any, ctx msgctx.Context) error {
	containerType := reflect.TypeOf(v)
	reg := f.eng.Registry()

	if destruct := format.DestructFor(reg, containerType, ctx); destruct != nil {
		raw, err := destruct(v)
		if err != nil {
			return err
		}

		entries, ok := raw.([]any)
		if !ok || len(entries)%2 != 0 {
			return fmt.Errorf("%w: Destruct for %s must return an even-length []any of key/value pairs, got %T", errs.ErrTypeAssertionFailed, containerType, raw)
		}

		if err := w.WriteMapHeader(len(entries) / 2); err != nil {
			return err
		}

		for i := 0; i < len(entries); i += 2 {
			state := i/2 + 1

			keyFmt := format.KeyFormatFor(reg, containerType, state, f, ctx)
			if keyFmt == nil {
				keyFmt = String
			}

			if err := f.eng.Pack(w, entries[i], keyFmt, ctx); err != nil {
				return err
			}

			valFmt := format.ValueFormatFor(reg, containerType, state, f, ctx)
			if err := f.eng.Pack(w, entries[i+1], valFmt, ctx); err != nil {
				return err
			}
		}

		return nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return fmt.Errorf("%w: %T is not a map", errs.ErrTypeAssertionFailed, v)
	}

	keys := sortedMapKeys(rv)
	if err := w.WriteMapHeader(len(keys)); err != nil {
		return err
	}

	for i, k := range keys {
		state := i + 1

		keyFmt := format.KeyFormatFor(reg, containerType, state, f, ctx)
		if keyFmt == nil {
			keyFmt = String
		}

		if err := f.eng.Pack(w, k.Interface(), keyFmt, ctx); err != nil {
			return err
		}

		valFmt := format.ValueFormatFor(reg, containerType, state, f, ctx)
		if err := f.eng.Pack(w, rv.MapIndex(k).Interface(), valFmt, ctx); err != nil {
			return err
		}
	}

	return nil
}

func (f mapFormat) Unpack(r *wire.Reader, t reflect.Type, ctx msgctx.Context) (any, error) {
	n, err := r.ReadMapHeader()
	if err != nil {
		return nil, err
	}

	reg := f.eng.Registry()
	ctor := format.ConstructFor(reg, t, ctx)

	var out reflect.Value
	keyType := mapKeyType(t)
	valType := mapValueType(t)
	entries := make([]any, 0, n*2)

	if ctor == nil {
		out = newMapping(t)
	}

	type pair struct{ key, value any }

	pos := 0
	gen := generator.New(n, func() (pair, error) {
		state := pos + 1
		pos++

		keyFmt := format.KeyFormatFor(reg, t, state, f, ctx)
		if keyFmt == nil {
			keyFmt = String
		}

		kt := keyType
		if ktOverride := format.KeyTypeFor(reg, t, state, f, ctx); ktOverride != nil {
			kt = ktOverride
		}

		key, err := f.eng.Unpack(r, kt, keyFmt, ctx)
		if err != nil {
			return pair{}, err
		}

		valFmt := format.ValueFormatFor(reg, t, state, f, ctx)

		vt := valType
		if vtOverride := format.ValueTypeFor(reg, t, state, f, ctx); vtOverride != nil {
			vt = vtOverride
		}

		value, err := f.eng.Unpack(r, vt, valFmt, ctx)
		if err != nil {
			return pair{}, err
		}

		return pair{key: key, value: value}, nil
	})

	for i := 0; i < n; i++ {
		p, ok, err := gen.Next()
		if err != nil {
			return nil, err
		}

		if !ok {
			break
		}

		if ctor != nil {
			entries = append(entries, p.key, p.value)
		} else {
			out.SetMapIndex(reflect.ValueOf(p.key), reflect.ValueOf(p.value))
		}
	}

	gen.Finish()

	if ctor != nil {
		return ctor(entries)
	}

	return out.Interface(), nil
}

// dynamicMapFormat is DynamicMap (spec.md §4.3.3): uses the same
// iteration-state machine as DynamicVector.
type dynamicMapFormat struct{ eng Engine }

// NewDynamicMap returns the DynamicMap format bound to eng.
func NewDynamicMap(eng Engine) Codec { return dynamicMapFormat{eng: eng} }

func (dynamicMapFormat) FormatName() string { return "DynamicMap" }

func (f dynamicMapFormat) Pack(w *wire.Writer, v any, ctx msgctx.Context) error {
	containerType := reflect.TypeOf(v)
	reg := f.eng.Registry()

	if destruct := format.DestructFor(reg, containerType, ctx); destruct != nil {
		raw, err := destruct(v)
		if err != nil {
			return err
		}

		entries, ok := raw.([]any)
		if !ok || len(entries)%2 != 0 {
			return fmt.Errorf("%w: Destruct for %s must return an even-length []any of key/value pairs, got %T", errs.ErrTypeAssertionFailed, containerType, raw)
		}

		if err := w.WriteMapHeader(len(entries) / 2); err != nil {
			return err
		}

		var state format.State
		for i := 0; i < len(entries); i += 2 {
			state = format.NextIterState(reg, containerType, ctx, state, nil)

			keyFmt := format.KeyFormatFor(reg, containerType, state, f, ctx)
			if keyFmt == nil {
				keyFmt = String
			}

			if err := f.eng.Pack(w, entries[i], keyFmt, ctx); err != nil {
				return err
			}

			valFmt := format.ValueFormatFor(reg, containerType, state, f, ctx)
			if err := f.eng.Pack(w, entries[i+1], valFmt, ctx); err != nil {
				return err
			}

			state = format.NextIterState(reg, containerType, ctx, state, entries[i+1])
		}

		return nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return fmt.Errorf("%w: %T is not a map", errs.ErrTypeAssertionFailed, v)
	}

	keys := sortedMapKeys(rv)
	if err := w.WriteMapHeader(len(keys)); err != nil {
		return err
	}

	var state format.State
	for _, k := range keys {
		state = format.NextIterState(reg, containerType, ctx, state, nil)

		keyFmt := format.KeyFormatFor(reg, containerType, state, f, ctx)
		if keyFmt == nil {
			keyFmt = String
		}

		if err := f.eng.Pack(w, k.Interface(), keyFmt, ctx); err != nil {
			return err
		}

		valFmt := format.ValueFormatFor(reg, containerType, state, f, ctx)
		entry := rv.MapIndex(k).Interface()

		if err := f.eng.Pack(w, entry, valFmt, ctx); err != nil {
			return err
		}

		state = format.NextIterState(reg, containerType, ctx, state, entry)
	}

	return nil
}

func (f dynamicMapFormat) Unpack(r *wire.Reader, t reflect.Type, ctx msgctx.Context) (any, error) {
	n, err := r.ReadMapHeader()
	if err != nil {
		return nil, err
	}

	reg := f.eng.Registry()
	ctor := format.ConstructFor(reg, t, ctx)

	var out reflect.Value
	keyType := mapKeyType(t)
	valType := mapValueType(t)
	entries := make([]any, 0, n*2)

	if ctor == nil {
		out = newMapping(t)
	}

	var state format.State

	for i := 0; i < n; i++ {
		state = format.NextIterState(reg, t, ctx, state, nil)

		keyFmt := format.KeyFormatFor(reg, t, state, f, ctx)
		if keyFmt == nil {
			keyFmt = String
		}

		key, err := f.eng.Unpack(r, keyType, keyFmt, ctx)
		if err != nil {
			return nil, err
		}

		valFmt := format.ValueFormatFor(reg, t, state, f, ctx)

		value, err := f.eng.Unpack(r, valType, valFmt, ctx)
		if err != nil {
			return nil, err
		}

		if ctor != nil {
			entries = append(entries, key, value)
		} else {
			out.SetMapIndex(reflect.ValueOf(key), reflect.ValueOf(value))
		}

		state = format.NextIterState(reg, t, ctx, state, value)
	}

	if ctor != nil {
		return ctor(entries)
	}

	return out.Interface(), nil
}
