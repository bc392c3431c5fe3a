package formats

import (
	"reflect"

	"github.com/arloliu/msgpack/msgctx"
	"github.com/arloliu/msgpack/wire"
)

// binVectorFormat is BinVector (spec.md §4.3.6): a thin adapter over Binary
// intended for flat arrays of fixed-size primitive elements — pack
// bit-casts the slice directly to bytes; unpack reverses the bit-cast and
// returns a slice of t's element type. No Binding Construct/Destruct hook is
// consulted in either direction.
type binVectorFormat struct{ eng Engine }

// NewBinVector returns the BinVector format bound to eng.
func NewBinVector(eng Engine) Codec { return binVectorFormat{eng: eng} }

func (binVectorFormat) FormatName() string { return "BinVector" }

func (f binVectorFormat) Pack(w *wire.Writer, v any, ctx msgctx.Context) error {
	rv := reflect.ValueOf(v)

	b, err := bitcastToBytes(rv)
	if err != nil {
		return err
	}

	return f.eng.Pack(w, b, Binary, ctx)
}

func (f binVectorFormat) Unpack(r *wire.Reader, t reflect.Type, ctx msgctx.Context) (any, error) {
	raw, err := f.eng.Unpack(r, reflect.TypeOf([]byte{}), Binary, ctx)
	if err != nil {
		return nil, err
	}

	b := raw.([]byte)

	elemType := sequenceElemType(t)
	if elemType == nil {
		elemType = reflect.TypeOf(byte(0))
	}

	width, err := elemWidth(elemType)
	if err != nil {
		return nil, err
	}

	out, err := bitcastFromBytes(b, elemType, len(b)/width)
	if err != nil {
		return nil, err
	}

	return out.Interface(), nil
}
