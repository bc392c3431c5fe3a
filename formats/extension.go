package formats

import (
	"fmt"
	"reflect"

	"github.com/arloliu/msgpack/errs"
	"github.com/arloliu/msgpack/msgctx"
	"github.com/arloliu/msgpack/wire"
)

// ExtensionData is the spec.md §3 ExtensionData tuple: a signed type code
// plus a raw payload, the value AnyExtension decodes to when no concrete
// extension type is registered for the code in the stream.
type ExtensionData struct {
	Code int8
	Data []byte
}

// extensionFormat implements Extension<code> and AnyExtension (spec.md
// §4.3.9).
type extensionFormat struct {
	eng  Engine
	code int8
	any  bool
}

// NewExtension returns Extension<code>: packs destructured bytes under the
// given signed type code; unpack requires the stream's code to match.
func NewExtension(eng Engine, code int8) Codec { return extensionFormat{eng: eng, code: code} }

// NewAnyExtension returns AnyExtension: accepts any code, yielding
// ExtensionData on unpack.
func NewAnyExtension(eng Engine) Codec { return extensionFormat{eng: eng, any: true} }

func (f extensionFormat) FormatName() string {
	if f.any {
		return "AnyExtension"
	}

	return "Extension"
}

func (f extensionFormat) Pack(w *wire.Writer, v any, _ msgctx.Context) error {
	if ed, ok := v.(ExtensionData); ok {
		return w.WriteExtension(ed.Code, ed.Data)
	}

	data, ok := v.([]byte)
	if !ok {
		return fmt.Errorf("%w: %T is not extension payload bytes", errs.ErrTypeAssertionFailed, v)
	}

	return w.WriteExtension(f.code, data)
}

func (f extensionFormat) Unpack(r *wire.Reader, _ reflect.Type, _ msgctx.Context) (any, error) {
	code, data, err := r.ReadExtension()
	if err != nil {
		return nil, err
	}

	if f.any {
		return ExtensionData{Code: code, Data: data}, nil
	}

	if code != f.code {
		return nil, fmt.Errorf("%w: stream code %d, expected %d", errs.ErrExtensionCodeMismatch, code, f.code)
	}

	return data, nil
}
