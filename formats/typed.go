package formats

import (
	"fmt"
	"reflect"

	"github.com/arloliu/msgpack/errs"
	"github.com/arloliu/msgpack/format"
	"github.com/arloliu/msgpack/msgctx"
	"github.com/arloliu/msgpack/typeinfo"
	"github.com/arloliu/msgpack/wire"
)

// typeFmtFormat implements TypeFmt (spec.md §4.3.7): a TypeDescriptor is
// packed as a three-field map {"name": string, "path": [string...],
// "params": [...]}, params being either a nested TypeFmt map (the
// parameter is itself a type) or a bare primitive value packed via Any.
type typeFmtFormat struct{ eng Engine }

// NewTypeFmt returns the TypeFmt format bound to eng.
func NewTypeFmt(eng Engine) Codec { return typeFmtFormat{eng: eng} }

func (typeFmtFormat) FormatName() string { return "TypeFmt" }

func (f typeFmtFormat) Pack(w *wire.Writer, v any, ctx msgctx.Context) error {
	desc, ok := v.(*typeinfo.Descriptor)
	if !ok {
		return fmt.Errorf("%w: %T is not a *typeinfo.Descriptor", errs.ErrTypeAssertionFailed, v)
	}

	return f.packDescriptor(w, desc, ctx)
}

func (f typeFmtFormat) packDescriptor(w *wire.Writer, desc *typeinfo.Descriptor, ctx msgctx.Context) error {
	if err := w.WriteMapHeader(3); err != nil {
		return err
	}

	if err := f.eng.Pack(w, "name", String, ctx); err != nil {
		return err
	}

	if err := f.eng.Pack(w, desc.Name, String, ctx); err != nil {
		return err
	}

	if err := f.eng.Pack(w, "path", String, ctx); err != nil {
		return err
	}

	if err := f.eng.Pack(w, desc.Path, NewVector(f.eng), ctx); err != nil {
		return err
	}

	if err := f.eng.Pack(w, "params", String, ctx); err != nil {
		return err
	}

	if err := w.WriteArrayHeader(len(desc.Params)); err != nil {
		return err
	}

	for _, p := range desc.Params {
		if nested, ok := p.(*typeinfo.Descriptor); ok {
			if err := f.packDescriptor(w, nested, ctx); err != nil {
				return err
			}

			continue
		}

		if err := f.eng.Pack(w, p, NewAny(f.eng), ctx); err != nil {
			return err
		}
	}

	return nil
}

func (f typeFmtFormat) Unpack(r *wire.Reader, _ reflect.Type, ctx msgctx.Context) (any, error) {
	return f.unpackDescriptor(r, ctx)
}

func (f typeFmtFormat) unpackDescriptor(r *wire.Reader, ctx msgctx.Context) (*typeinfo.Descriptor, error) {
	n, err := r.ReadMapHeader()
	if err != nil {
		return nil, err
	}

	if n != 3 {
		return nil, errs.ErrLengthMismatch
	}

	desc := &typeinfo.Descriptor{}

	for i := 0; i < 3; i++ {
		key, err := r.ReadString()
		if err != nil {
			return nil, err
		}

		switch key {
		case "name":
			name, err := f.eng.Unpack(r, reflect.TypeOf(""), String, ctx)
			if err != nil {
				return nil, err
			}

			desc.Name = name.(string)

		case "path":
			path, err := f.eng.Unpack(r, reflect.TypeOf([]string{}), NewVector(f.eng), ctx)
			if err != nil {
				return nil, err
			}

			desc.Path = path.([]string)

		case "params":
			count, err := r.ReadArrayHeader()
			if err != nil {
				return nil, err
			}

			// Parameter unpacking needs to know, per slot, what Go type a
			// primitive param decodes as (spec.md §4.3.7). That metadata is
			// registered against the *base* type (name+path, ignoring
			// params — see Descriptor.canonicalKey), so probe for it before
			// reading any slot.
			var paramTypes []reflect.Type
			var paramFormats []format.Format
			if baseType, rerr := f.eng.Types().Resolve(&typeinfo.Descriptor{Name: desc.Name, Path: desc.Path}); rerr == nil {
				paramTypes = format.TypeParamTypesFor(f.eng.Registry(), baseType, ctx)
				paramFormats = format.TypeParamFormatsFor(f.eng.Registry(), baseType, ctx)
			}

			params := make([]any, count)

			for j := 0; j < count; j++ {
				cf, err := r.PeekFormat()
				if err != nil {
					return nil, err
				}

				// A nested TypeDescriptor always recurses regardless of
				// typeparamtypes — it names its own type, it isn't a value.
				if cf == wire.CoreMap {
					nested, err := f.unpackDescriptor(r, ctx)
					if err != nil {
						return nil, err
					}

					params[j] = nested

					continue
				}

				if j >= len(paramTypes) {
					return nil, fmt.Errorf("%w: %q param %d", errs.ErrTypeParamsNotSpecified, desc.Name, j)
				}

				var pf format.Format
				if j < len(paramFormats) {
					pf = paramFormats[j]
				}

				v, err := f.eng.Unpack(r, paramTypes[j], pf, ctx)
				if err != nil {
					return nil, err
				}

				params[j] = v
			}

			desc.Params = params

		default:
			return nil, fmt.Errorf("%w: %q", errs.ErrUnknownKey, key)
		}
	}

	return desc, nil
}

// typedFormat implements Typed<F> (spec.md §4.3.8): packs (type, value) as a
// two-entry map {"type": TypeFmt(descriptor), "value": F(value)}. A nil
// inner field means F is Default: the value's own format(T, ctx) is
// resolved lazily at pack/unpack time, with a recursion guard against that
// resolution landing back on Typed itself.
type typedFormat struct {
	eng       Engine
	inner     format.Format
	whitelist *typeinfo.Whitelist
}

// NewTyped returns Typed<F> bound to eng, packing/unpacking the wrapped
// value under inner. A nil inner means Typed<Default>.
func NewTyped(eng Engine, inner format.Format) Codec {
	return typedFormat{eng: eng, inner: inner, whitelist: typeinfo.AllowAll()}
}

// NewTypedWithWhitelist is NewTyped with an explicit construction whitelist
// (spec.md §4.3.8 Safety) instead of the permissive default.
func NewTypedWithWhitelist(eng Engine, inner format.Format, wl *typeinfo.Whitelist) Codec {
	return typedFormat{eng: eng, inner: inner, whitelist: wl}
}

func (typedFormat) FormatName() string { return "Typed" }

func (f typedFormat) resolveInner(t reflect.Type, ctx msgctx.Context) (format.Format, error) {
	if f.inner != nil {
		return f.inner, nil
	}

	rf, err := format.FormatFor(f.eng.Registry(), t, ctx)
	if err != nil {
		return nil, err
	}

	if _, ok := rf.(typedFormat); ok {
		return nil, errs.ErrRecursiveTypedPacking
	}

	return rf, nil
}

func (f typedFormat) descriptorFor(t reflect.Type) *typeinfo.Descriptor {
	if desc := f.eng.Types().DescriptorFor(t); desc != nil {
		return desc
	}

	return typeinfo.Of(t.Name())
}

func (f typedFormat) Pack(w *wire.Writer, v any, ctx msgctx.Context) error {
	t := reflect.TypeOf(v)

	inner, err := f.resolveInner(t, ctx)
	if err != nil {
		return err
	}

	if err := w.WriteMapHeader(2); err != nil {
		return err
	}

	if err := f.eng.Pack(w, "type", String, ctx); err != nil {
		return err
	}

	if err := f.eng.Pack(w, f.descriptorFor(t), NewTypeFmt(f.eng), ctx); err != nil {
		return err
	}

	if err := f.eng.Pack(w, "value", String, ctx); err != nil {
		return err
	}

	return f.eng.Pack(w, v, inner, ctx)
}

func satisfiesExpected(concrete, expected reflect.Type) bool {
	if expected == nil {
		return true
	}

	if concrete == expected {
		return true
	}

	if expected.Kind() == reflect.Interface {
		return concrete.Implements(expected)
	}

	return false
}

func (f typedFormat) Unpack(r *wire.Reader, t reflect.Type, ctx msgctx.Context) (any, error) {
	n, err := r.ReadMapHeader()
	if err != nil {
		return nil, err
	}

	if n != 2 {
		return nil, errs.ErrLengthMismatch
	}

	var concreteType reflect.Type
	var value any

	for i := 0; i < 2; i++ {
		key, err := r.ReadString()
		if err != nil {
			return nil, err
		}

		switch key {
		case "type":
			raw, err := f.eng.Unpack(r, nil, NewTypeFmt(f.eng), ctx)
			if err != nil {
				return nil, err
			}

			desc := raw.(*typeinfo.Descriptor)

			concreteType, err = f.eng.Types().Resolve(desc)
			if err != nil {
				return nil, err
			}

			if err := f.whitelist.Check(concreteType); err != nil {
				return nil, err
			}

			if !satisfiesExpected(concreteType, t) {
				return nil, fmt.Errorf("%w: %s does not satisfy %s", errs.ErrTypeAssertionFailed, concreteType, t)
			}

		case "value":
			if concreteType == nil {
				return nil, fmt.Errorf("%w: Typed value key preceded type key", errs.ErrInvariant)
			}

			inner, err := f.resolveInner(concreteType, ctx)
			if err != nil {
				return nil, err
			}

			v, err := f.eng.Unpack(r, concreteType, inner, ctx)
			if err != nil {
				return nil, err
			}

			value = v

		default:
			return nil, fmt.Errorf("%w: %q", errs.ErrUnknownKey, key)
		}
	}

	return value, nil
}
