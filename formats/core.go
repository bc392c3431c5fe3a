package formats

import (
	"fmt"
	"reflect"

	"github.com/arloliu/msgpack/construct"
	"github.com/arloliu/msgpack/errs"
	"github.com/arloliu/msgpack/msgctx"
	"github.com/arloliu/msgpack/wire"
)

// convertTo adapts a decoded Go scalar to the statically requested type t,
// the default construct behavior spec.md §4.5 describes for Core scalar
// formats (construct.FromScalar's natural conversion, applied via
// construct.ConvertToType since t is only known at runtime here).
func convertTo(v any, t reflect.Type) (any, error) {
	return construct.ConvertToType(v, t)
}

func toInt64(v any) (int64, error) {
	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), nil //nolint:gosec // caller chose Signed format
	default:
		return 0, fmt.Errorf("%w: %T is not an integer", errs.ErrTypeAssertionFailed, v)
	}
}

func toUint64(v any) (uint64, error) {
	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		iv := rv.Int()
		if iv < 0 {
			return 0, fmt.Errorf("%w: negative value %d is not Unsigned", errs.ErrTypeAssertionFailed, iv)
		}

		return uint64(iv), nil
	default:
		return 0, fmt.Errorf("%w: %T is not an integer", errs.ErrTypeAssertionFailed, v)
	}
}

// nilFormat is the Nil atom (spec.md §4.3.1).
type nilFormat struct{}

func (nilFormat) FormatName() string { return "Nil" }

func (nilFormat) Pack(w *wire.Writer, _ any, _ msgctx.Context) error {
	w.WriteNil()

	return nil
}

func (nilFormat) Unpack(r *wire.Reader, t reflect.Type, _ msgctx.Context) (any, error) {
	if err := r.ReadNil(); err != nil {
		return nil, err
	}

	if t == nil {
		return nil, nil
	}

	return reflect.Zero(t).Interface(), nil
}

// Nil is the singleton Nil format.
var Nil Codec = nilFormat{}

type boolFormat struct{}

func (boolFormat) FormatName() string { return "Bool" }

func (boolFormat) Pack(w *wire.Writer, v any, _ msgctx.Context) error {
	b, ok := v.(bool)
	if !ok {
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Bool {
			return fmt.Errorf("%w: %T is not a bool", errs.ErrTypeAssertionFailed, v)
		}

		b = rv.Bool()
	}

	w.WriteBool(b)

	return nil
}

func (boolFormat) Unpack(r *wire.Reader, t reflect.Type, _ msgctx.Context) (any, error) {
	b, err := r.ReadBool()
	if err != nil {
		return nil, err
	}

	return convertTo(b, t)
}

// Bool is the singleton Bool format.
var Bool Codec = boolFormat{}

type signedFormat struct{}

func (signedFormat) FormatName() string { return "Signed" }

func (signedFormat) Pack(w *wire.Writer, v any, _ msgctx.Context) error {
	iv, err := toInt64(v)
	if err != nil {
		return err
	}

	w.WriteInt(iv)

	return nil
}

func (signedFormat) Unpack(r *wire.Reader, t reflect.Type, _ msgctx.Context) (any, error) {
	iv, err := r.ReadInt()
	if err != nil {
		return nil, err
	}

	return convertTo(iv, t)
}

// Signed is the singleton Signed integer format.
var Signed Codec = signedFormat{}

type unsignedFormat struct{}

func (unsignedFormat) FormatName() string { return "Unsigned" }

func (unsignedFormat) Pack(w *wire.Writer, v any, _ msgctx.Context) error {
	uv, err := toUint64(v)
	if err != nil {
		return err
	}

	w.WriteUint(uv)

	return nil
}

func (unsignedFormat) Unpack(r *wire.Reader, t reflect.Type, _ msgctx.Context) (any, error) {
	uv, err := r.ReadUint()
	if err != nil {
		return nil, err
	}

	return convertTo(uv, t)
}

// Unsigned is the singleton Unsigned integer format.
var Unsigned Codec = unsignedFormat{}

type floatFormat struct{}

func (floatFormat) FormatName() string { return "Float" }

func (floatFormat) Pack(w *wire.Writer, v any, _ msgctx.Context) error {
	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Float32:
		w.WriteFloat32(float32(rv.Float()))
	case reflect.Float64:
		w.WriteFloat64(rv.Float())
	default:
		return fmt.Errorf("%w: %T is not a float", errs.ErrTypeAssertionFailed, v)
	}

	return nil
}

func (floatFormat) Unpack(r *wire.Reader, t reflect.Type, _ msgctx.Context) (any, error) {
	fv, err := r.ReadFloat64()
	if err != nil {
		return nil, err
	}

	return convertTo(fv, t)
}

// Float is the singleton Float format (f32 widened to f64 internally,
// narrowed back to f32 on write only when the source value's Go kind is
// float32 — spec.md §4.1).
var Float Codec = floatFormat{}

type stringFormat struct{}

func (stringFormat) FormatName() string { return "String" }

func (stringFormat) Pack(w *wire.Writer, v any, _ msgctx.Context) error {
	s, ok := v.(string)
	if !ok {
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.String {
			return fmt.Errorf("%w: %T is not a string", errs.ErrTypeAssertionFailed, v)
		}

		s = rv.String()
	}

	return w.WriteString(s)
}

func (stringFormat) Unpack(r *wire.Reader, t reflect.Type, _ msgctx.Context) (any, error) {
	s, err := r.ReadString()
	if err != nil {
		return nil, err
	}

	return convertTo(s, t)
}

// String is the singleton String format.
var String Codec = stringFormat{}

type binaryFormat struct{}

func (binaryFormat) FormatName() string { return "Binary" }

func (binaryFormat) Pack(w *wire.Writer, v any, _ msgctx.Context) error {
	b, ok := v.([]byte)
	if !ok {
		return fmt.Errorf("%w: %T is not []byte", errs.ErrTypeAssertionFailed, v)
	}

	return w.WriteBinary(b)
}

func (binaryFormat) Unpack(r *wire.Reader, _ reflect.Type, _ msgctx.Context) (any, error) {
	return r.ReadBinary()
}

// Binary is the singleton Binary format.
var Binary Codec = binaryFormat{}
