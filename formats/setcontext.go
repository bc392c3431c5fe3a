package formats

import (
	"reflect"

	"github.com/arloliu/msgpack/format"
	"github.com/arloliu/msgpack/msgctx"
	"github.com/arloliu/msgpack/wire"
)

// setContextFormat implements SetContext<C,F> (spec.md §4.3.10): it
// discards whatever context is active at the call site and substitutes a
// fixed context before delegating to inner, the one escape hatch for
// mixing contexts within a single value (a struct field that must always
// serialize under a specific wire dialect regardless of its caller).
type setContextFormat struct {
	eng   Engine
	ctx   msgctx.Context
	inner format.Format
}

// NewSetContext returns SetContext<ctx,inner> bound to eng.
func NewSetContext(eng Engine, ctx msgctx.Context, inner format.Format) Codec {
	return setContextFormat{eng: eng, ctx: ctx, inner: inner}
}

func (setContextFormat) FormatName() string { return "SetContext" }

func (f setContextFormat) Pack(w *wire.Writer, v any, _ msgctx.Context) error {
	return f.eng.Pack(w, v, f.inner, f.ctx)
}

func (f setContextFormat) Unpack(r *wire.Reader, t reflect.Type, _ msgctx.Context) (any, error) {
	return f.eng.Unpack(r, t, f.inner, f.ctx)
}
