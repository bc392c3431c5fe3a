// Package formats implements the format catalog (spec component C3): the
// concrete Core/Vector/Map/Struct/Array/Typed/Extension/wrapper formats
// described in spec.md §4.3. Each catalog format is both a format.Format
// dispatch tag and a Codec capable of packing/unpacking a domain value.
//
// Grounded on the teacher's encoding package: encoding/numeric_raw.go and
// encoding/varstring.go show the "pack a scalar payload, prefixed by a
// length/flag header" shape Core/String/Binary reuse; encoding/columnar.go's
// generic encoder/decoder interfaces are the model for Vector/Map's
// element-at-a-time loop; internal/encoding/numeric_gorilla.go's per-element
// state machine (each value's encoding depends on the previous one) is the
// direct model for DynamicVector/DynamicMap's iterstate mechanism.
package formats

import (
	"reflect"

	"github.com/arloliu/msgpack/format"
	"github.com/arloliu/msgpack/msgctx"
	"github.com/arloliu/msgpack/typeinfo"
	"github.com/arloliu/msgpack/wire"
)

// Codec is implemented by every catalog format: it is simultaneously a
// format.Format dispatch tag and the thing that knows how to pack/unpack a
// domain value under that format. Operating on `any` (rather than a
// generic type parameter) is what lets one format.Registry and one
// recursive pack/unpack pipeline handle arbitrarily many concrete Go types,
// the same reflect-driven shape encoding/json's Marshal/Unmarshal use.
type Codec interface {
	format.Format
	Pack(w *wire.Writer, v any, ctx msgctx.Context) error
	Unpack(r *wire.Reader, t reflect.Type, ctx msgctx.Context) (any, error)
}

// Engine is the minimal recursive-dispatch surface a container format
// (Vector, Map, Struct, Typed, ...) needs in order to pack/unpack its
// nested elements without this package importing the top-level msgpack
// package that assembles it — the dependency runs the other way, so Engine
// inverts it.
type Engine interface {
	// Pack packs v under f (or, if f is nil, under format.FormatFor(typeof
	// v, ctx)).
	Pack(w *wire.Writer, v any, f format.Format, ctx msgctx.Context) error
	// Unpack unpacks a value of static type t under f (or, if f is nil,
	// under format.FormatFor(t, ctx)).
	Unpack(r *wire.Reader, t reflect.Type, f format.Format, ctx msgctx.Context) (any, error)
	// Registry returns the shared format dispatch registry.
	Registry() *format.Registry
	// Types returns the shared type-descriptor registry (for Typed/TypeFmt).
	Types() *typeinfo.Registry
}
