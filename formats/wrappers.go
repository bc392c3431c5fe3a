package formats

import (
	"reflect"

	"github.com/arloliu/msgpack/format"
	"github.com/arloliu/msgpack/msgctx"
	"github.com/arloliu/msgpack/wire"
)

// defaultFormat implements Default (spec.md §4.3.11): a marker that defers
// to format(T, ctx) at pack/unpack time instead of naming a format up
// front. IsLazyDefault lets the format package detect and reject a format
// hook that resolves straight back to Default, without importing this
// package.
type defaultFormat struct{ eng Engine }

// NewDefault returns the Default marker bound to eng.
func NewDefault(eng Engine) Codec { return defaultFormat{eng: eng} }

func (defaultFormat) FormatName() string { return "Default" }

// IsLazyDefault marks this format as the lazy reroute the format package's
// FormatFor refuses to resolve to directly (spec.md §4.3.11).
func (defaultFormat) IsLazyDefault() bool { return true }

func (f defaultFormat) Pack(w *wire.Writer, v any, ctx msgctx.Context) error {
	return f.eng.Pack(w, v, nil, ctx)
}

func (f defaultFormat) Unpack(r *wire.Reader, t reflect.Type, ctx msgctx.Context) (any, error) {
	return f.eng.Unpack(r, t, nil, ctx)
}

// anyFormat implements Any (spec.md §4.3.12): on pack it dispatches by the
// dynamic type of the value exactly like Default; on unpack — where no
// static type is available — it peeks the next atom's core format and
// decodes structurally: scalars via their Core codec, arrays recursively as
// sequence-of-Any, maps via Map with no static type (values decode as Any,
// keys decode under Map's default String key format, so a map with
// non-string keys is not decoded), extensions as ExtensionData.
type anyFormat struct{ eng Engine }

// NewAny returns the Any format bound to eng.
func NewAny(eng Engine) Codec { return anyFormat{eng: eng} }

func (anyFormat) FormatName() string { return "Any" }

func (f anyFormat) Pack(w *wire.Writer, v any, ctx msgctx.Context) error {
	if v == nil {
		return Nil.Pack(w, v, ctx)
	}

	t := reflect.TypeOf(v)

	rf, err := format.FormatFor(f.eng.Registry(), t, ctx)
	if err != nil {
		return err
	}

	return f.eng.Pack(w, v, rf, ctx)
}

func (f anyFormat) Unpack(r *wire.Reader, _ reflect.Type, ctx msgctx.Context) (any, error) {
	cf, err := r.PeekFormat()
	if err != nil {
		return nil, err
	}

	switch cf {
	case wire.CoreNil:
		return Nil.Unpack(r, nil, ctx)
	case wire.CoreBool:
		return Bool.Unpack(r, nil, ctx)
	case wire.CoreInt:
		return Signed.Unpack(r, nil, ctx)
	case wire.CoreUint:
		return Unsigned.Unpack(r, nil, ctx)
	case wire.CoreFloat:
		return Float.Unpack(r, nil, ctx)
	case wire.CoreString:
		return String.Unpack(r, nil, ctx)
	case wire.CoreBinary:
		return Binary.Unpack(r, nil, ctx)
	case wire.CoreArray:
		return NewVector(f.eng).Unpack(r, nil, ctx)
	case wire.CoreMap:
		return NewMap(f.eng).Unpack(r, nil, ctx)
	case wire.CoreExtension:
		return NewAnyExtension(f.eng).Unpack(r, nil, ctx)
	default:
		return nil, wire.Skip(r)
	}
}
