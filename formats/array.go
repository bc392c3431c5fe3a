package formats

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"

	"github.com/arloliu/msgpack/errs"
	"github.com/arloliu/msgpack/msgctx"
	"github.com/arloliu/msgpack/wire"
)

// bitcastToBytes encodes a flat slice of fixed-width numeric elements (or
// bytes) as a big-endian byte buffer, the representation BinArray/BinVector
// write under Binary (spec.md §4.3.5/§4.3.6 "bit-cast from element
// storage"). byte-per-bit BitArray storage (Design Notes §9 Open Question)
// is handled by the caller encoding each bit as its own byte beforehand.
func bitcastToBytes(data reflect.Value) ([]byte, error) {
	n := data.Len()
	elemType := data.Type().Elem()

	if elemType.Kind() == reflect.Uint8 {
		out := make([]byte, n)
		for i := 0; i < n; i++ {
			out[i] = byte(data.Index(i).Uint())
		}

		return out, nil
	}

	width, err := elemWidth(elemType)
	if err != nil {
		return nil, err
	}

	out := make([]byte, n*width)

	for i := 0; i < n; i++ {
		putElem(out[i*width:(i+1)*width], data.Index(i), elemType)
	}

	return out, nil
}

func elemWidth(t reflect.Type) (int, error) {
	switch t.Kind() {
	case reflect.Int8, reflect.Uint8:
		return 1, nil
	case reflect.Int16, reflect.Uint16:
		return 2, nil
	case reflect.Int32, reflect.Uint32, reflect.Float32:
		return 4, nil
	case reflect.Int64, reflect.Uint64, reflect.Float64, reflect.Int, reflect.Uint:
		return 8, nil
	default:
		return 0, fmt.Errorf("%w: element kind %s is not bit-castable", errs.ErrTypeAssertionFailed, t.Kind())
	}
}

func putElem(dst []byte, v reflect.Value, t reflect.Type) {
	switch t.Kind() {
	case reflect.Int8, reflect.Uint8:
		dst[0] = byte(v.Uint())
	case reflect.Int16, reflect.Uint16:
		binary.BigEndian.PutUint16(dst, uint16(reflectUint(v)))
	case reflect.Int32, reflect.Uint32:
		binary.BigEndian.PutUint32(dst, uint32(reflectUint(v)))
	case reflect.Float32:
		binary.BigEndian.PutUint32(dst, math.Float32bits(float32(v.Float())))
	case reflect.Int64, reflect.Uint64, reflect.Int, reflect.Uint:
		binary.BigEndian.PutUint64(dst, reflectUint(v))
	case reflect.Float64:
		binary.BigEndian.PutUint64(dst, math.Float64bits(v.Float()))
	}
}

func reflectUint(v reflect.Value) uint64 {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return uint64(v.Int()) //nolint:gosec // bit-cast, not a value conversion
	default:
		return v.Uint()
	}
}

// bitcastFromBytes is the inverse of bitcastToBytes: it decodes n elements
// of elemType from a flat byte buffer into a freshly allocated slice.
func bitcastFromBytes(b []byte, elemType reflect.Type, n int) (reflect.Value, error) {
	out := reflect.MakeSlice(reflect.SliceOf(elemType), n, n)

	if elemType.Kind() == reflect.Uint8 {
		for i := 0; i < n; i++ {
			out.Index(i).SetUint(uint64(b[i]))
		}

		return out, nil
	}

	width, err := elemWidth(elemType)
	if err != nil {
		return reflect.Value{}, err
	}

	if len(b) < n*width {
		return reflect.Value{}, errs.ErrLengthMismatch
	}

	for i := 0; i < n; i++ {
		chunk := b[i*width : (i+1)*width]
		setElem(out.Index(i), chunk, elemType)
	}

	return out, nil
}

func setElem(dst reflect.Value, chunk []byte, t reflect.Type) {
	switch t.Kind() {
	case reflect.Int8:
		dst.SetInt(int64(int8(chunk[0])))
	case reflect.Uint8:
		dst.SetUint(uint64(chunk[0]))
	case reflect.Int16:
		dst.SetInt(int64(int16(binary.BigEndian.Uint16(chunk))))
	case reflect.Uint16:
		dst.SetUint(uint64(binary.BigEndian.Uint16(chunk)))
	case reflect.Int32:
		dst.SetInt(int64(int32(binary.BigEndian.Uint32(chunk))))
	case reflect.Uint32:
		dst.SetUint(uint64(binary.BigEndian.Uint32(chunk)))
	case reflect.Float32:
		dst.SetFloat(float64(math.Float32frombits(binary.BigEndian.Uint32(chunk))))
	case reflect.Int64, reflect.Int:
		dst.SetInt(int64(binary.BigEndian.Uint64(chunk)))
	case reflect.Uint64, reflect.Uint:
		dst.SetUint(binary.BigEndian.Uint64(chunk))
	case reflect.Float64:
		dst.SetFloat(math.Float64frombits(binary.BigEndian.Uint64(chunk)))
	}
}

// shapeOf extracts the (Size, Data) pair spec.md §3 ArrayValue/BinArrayValue
// describes from any domain value exposing fields by those names — a
// lightweight structural contract rather than a named interface, so any
// user type shaped like {Size []int; Data []E} works without registration.
func shapeOf(v any) (size reflect.Value, data reflect.Value, err error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}

	if rv.Kind() != reflect.Struct {
		return reflect.Value{}, reflect.Value{}, fmt.Errorf("%w: %T is not shape-preserving (want Size/Data fields)", errs.ErrTypeAssertionFailed, v)
	}

	size = rv.FieldByName("Size")
	data = rv.FieldByName("Data")

	if !size.IsValid() || !data.IsValid() {
		return reflect.Value{}, reflect.Value{}, fmt.Errorf("%w: %T is missing Size/Data fields", errs.ErrTypeAssertionFailed, v)
	}

	return size, data, nil
}

// arrayFormat implements Array and BinArray (spec.md §4.3.5): a two-field
// map {"size": [...], "data": ...}, data packed in Vector format for Array
// and Binary format (bit-cast) for BinArray.
type arrayFormat struct {
	eng    Engine
	binary bool
	name   string
}

// NewArray returns the Array format: data packed element-by-element.
func NewArray(eng Engine) Codec { return arrayFormat{eng: eng, name: "Array"} }

// NewBinArray returns the BinArray format: data packed as a single bit-cast
// Binary payload.
func NewBinArray(eng Engine) Codec { return arrayFormat{eng: eng, binary: true, name: "BinArray"} }

func (f arrayFormat) FormatName() string { return f.name }

func (f arrayFormat) Pack(w *wire.Writer, v any, ctx msgctx.Context) error {
	size, data, err := shapeOf(v)
	if err != nil {
		return err
	}

	if err := w.WriteMapHeader(2); err != nil {
		return err
	}

	if err := f.eng.Pack(w, "size", String, ctx); err != nil {
		return err
	}

	sizeInts := make([]int64, size.Len())
	for i := range sizeInts {
		sizeInts[i] = size.Index(i).Int()
	}

	if err := f.eng.Pack(w, sizeInts, NewVector(f.eng), ctx); err != nil {
		return err
	}

	if err := f.eng.Pack(w, "data", String, ctx); err != nil {
		return err
	}

	if f.binary {
		b, err := bitcastToBytes(data)
		if err != nil {
			return err
		}

		return f.eng.Pack(w, b, Binary, ctx)
	}

	return f.eng.Pack(w, data.Interface(), NewVector(f.eng), ctx)
}

func (f arrayFormat) Unpack(r *wire.Reader, t reflect.Type, ctx msgctx.Context) (any, error) {
	st := structKind(t)
	if st == nil || st.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not shape-preserving", errs.ErrTypeAssertionFailed, t)
	}

	sizeField, ok := st.FieldByName("Size")
	if !ok {
		return nil, fmt.Errorf("%w: %s is missing a Size field", errs.ErrTypeAssertionFailed, st)
	}

	dataField, ok := st.FieldByName("Data")
	if !ok {
		return nil, fmt.Errorf("%w: %s is missing a Data field", errs.ErrTypeAssertionFailed, st)
	}

	n, err := r.ReadMapHeader()
	if err != nil {
		return nil, err
	}

	if n != 2 {
		return nil, errs.ErrLengthMismatch
	}

	out := reflect.New(st).Elem()
	total := 1

	for i := 0; i < 2; i++ {
		key, err := r.ReadString()
		if err != nil {
			return nil, err
		}

		switch key {
		case "size":
			raw, err := f.eng.Unpack(r, reflect.TypeOf([]int64{}), NewVector(f.eng), ctx)
			if err != nil {
				return nil, err
			}

			sizes := raw.([]int64)
			sizeVal := reflect.MakeSlice(sizeField.Type, len(sizes), len(sizes))

			for j, s := range sizes {
				sizeVal.Index(j).SetInt(s)
				total *= int(s)
			}

			out.FieldByIndex(sizeField.Index).Set(sizeVal)

		case "data":
			elemType := dataField.Type.Elem()

			if f.binary {
				b, err := f.eng.Unpack(r, reflect.TypeOf([]byte{}), Binary, ctx)
				if err != nil {
					return nil, err
				}

				dataVal, err := bitcastFromBytes(b.([]byte), elemType, total)
				if err != nil {
					return nil, err
				}

				out.FieldByIndex(dataField.Index).Set(dataVal)
			} else {
				raw, err := f.eng.Unpack(r, dataField.Type, NewVector(f.eng), ctx)
				if err != nil {
					return nil, err
				}

				out.FieldByIndex(dataField.Index).Set(reflect.ValueOf(raw))
			}

		default:
			return nil, fmt.Errorf("%w: %q", errs.ErrUnknownKey, key)
		}
	}

	return out.Interface(), nil
}
