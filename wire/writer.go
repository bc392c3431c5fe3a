package wire

import (
	"io"
	"math"

	"github.com/arloliu/msgpack/errs"
	"github.com/arloliu/msgpack/internal/pool"
)

// Writer batches MessagePack atom writes into a pooled buffer before
// flushing to the caller-owned io.Writer, the same amortized-growth
// strategy the teacher's NumericRawEncoder uses over internal/pool.
//
// The engine neither opens nor closes the underlying stream (spec.md §3
// Lifecycles); Flush must be called by the caller (or via NewWriter's
// returned release func) once packing is complete.
type Writer struct {
	dst io.Writer
	buf *pool.ByteBuffer
}

// NewWriter wraps dst in a pooled-buffer Writer. Release must be called
// when the caller is done (typically via defer) to flush any buffered
// bytes and return the buffer to the pool.
func NewWriter(dst io.Writer) (w *Writer, release func() error) {
	w = &Writer{dst: dst, buf: pool.GetMessageBuffer()}

	return w, w.flushAndRelease
}

func (w *Writer) flushAndRelease() error {
	err := w.Flush()
	pool.PutMessageBuffer(w.buf)
	w.buf = nil

	return err
}

// Flush writes any buffered bytes to the underlying io.Writer without
// releasing the buffer.
func (w *Writer) Flush() error {
	if w.buf.Len() == 0 {
		return nil
	}

	_, err := w.dst.Write(w.buf.Bytes())
	w.buf.Reset()

	return err
}

func (w *Writer) put1(b byte) {
	w.buf.Grow(1)
	w.buf.MustWrite([]byte{b})
}

func (w *Writer) putBytes(b []byte) {
	w.buf.Grow(len(b))
	w.buf.MustWrite(b)
}

func (w *Writer) putUint8At(v uint8) { w.putBytes([]byte{v}) }

func (w *Writer) putUint16(v uint16) {
	var b [2]byte
	byteOrder.PutUint16(b[:], v)
	w.putBytes(b[:])
}

func (w *Writer) putUint32(v uint32) {
	var b [4]byte
	byteOrder.PutUint32(b[:], v)
	w.putBytes(b[:])
}

func (w *Writer) putUint64(v uint64) {
	var b [8]byte
	byteOrder.PutUint64(b[:], v)
	w.putBytes(b[:])
}

// WriteNil writes the nil atom: 0xc0.
func (w *Writer) WriteNil() { w.put1(prefixNil) }

// WriteBool writes the bool atom: 0xc3 for true, 0xc2 for false.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.put1(prefixTrue)
	} else {
		w.put1(prefixFalse)
	}
}

// WriteInt writes a signed integer using the shortest legal encoding:
// negative fixint, positive fixint, then int8/16/32/64.
func (w *Writer) WriteInt(v int64) {
	switch {
	case v >= 0 && v <= int64(fixintPositiveMax):
		w.put1(byte(v))
	case v < 0 && v >= -32:
		w.put1(byte(v))
	case v >= math.MinInt8 && v <= math.MaxInt8:
		w.put1(prefixInt8)
		w.putUint8At(uint8(int8(v)))
	case v >= math.MinInt16 && v <= math.MaxInt16:
		w.put1(prefixInt16)
		w.putUint16(uint16(int16(v)))
	case v >= math.MinInt32 && v <= math.MaxInt32:
		w.put1(prefixInt32)
		w.putUint32(uint32(int32(v)))
	default:
		w.put1(prefixInt64)
		w.putUint64(uint64(v))
	}
}

// WriteUint writes an unsigned integer using the shortest legal encoding:
// positive fixint, then uint8/16/32/64.
func (w *Writer) WriteUint(v uint64) {
	switch {
	case v <= uint64(fixintPositiveMax):
		w.put1(byte(v))
	case v <= math.MaxUint8:
		w.put1(prefixUint8)
		w.putUint8At(uint8(v))
	case v <= math.MaxUint16:
		w.put1(prefixUint16)
		w.putUint16(uint16(v))
	case v <= math.MaxUint32:
		w.put1(prefixUint32)
		w.putUint32(uint32(v))
	default:
		w.put1(prefixUint64)
		w.putUint64(v)
	}
}

// WriteFloat32 writes a 32-bit float atom: 0xca.
func (w *Writer) WriteFloat32(v float32) {
	w.put1(prefixFloat32)
	w.putUint32(math.Float32bits(v))
}

// WriteFloat64 writes a 64-bit float atom: 0xcb.
func (w *Writer) WriteFloat64(v float64) {
	w.put1(prefixFloat64)
	w.putUint64(math.Float64bits(v))
}

// WriteString writes a UTF-8 string using the shortest legal length class:
// fixstr, str8, str16, str32.
func (w *Writer) WriteString(s string) error {
	n := len(s)

	switch {
	case n <= int(fixstrMask):
		w.put1(fixstrPrefix | byte(n))
	case n <= math.MaxUint8:
		w.put1(prefixStr8)
		w.putUint8At(uint8(n))
	case n <= math.MaxUint16:
		w.put1(prefixStr16)
		w.putUint16(uint16(n))
	case n <= maxUint32:
		w.put1(prefixStr32)
		w.putUint32(uint32(n))
	default:
		return errs.ErrOversizeLength
	}

	w.putBytes([]byte(s))

	return nil
}

// WriteBinary writes a byte slice using the shortest legal length class:
// bin8, bin16, bin32.
func (w *Writer) WriteBinary(b []byte) error {
	n := len(b)

	switch {
	case n <= math.MaxUint8:
		w.put1(prefixBin8)
		w.putUint8At(uint8(n))
	case n <= math.MaxUint16:
		w.put1(prefixBin16)
		w.putUint16(uint16(n))
	case n <= maxUint32:
		w.put1(prefixBin32)
		w.putUint32(uint32(n))
	default:
		return errs.ErrOversizeLength
	}

	w.putBytes(b)

	return nil
}

// WriteArrayHeader writes an array header (fixarray/array16/array32) for n
// upcoming elements. The caller writes the n element values itself.
func (w *Writer) WriteArrayHeader(n int) error {
	switch {
	case n <= int(fixarrayMask):
		w.put1(fixarrayPrefix | byte(n))
	case n <= math.MaxUint16:
		w.put1(prefixArray16)
		w.putUint16(uint16(n))
	case n <= maxUint32:
		w.put1(prefixArray32)
		w.putUint32(uint32(n))
	default:
		return errs.ErrOversizeLength
	}

	return nil
}

// WriteMapHeader writes a map header (fixmap/map16/map32) for n upcoming
// key-value pairs. The caller writes the 2*n entries itself.
func (w *Writer) WriteMapHeader(n int) error {
	switch {
	case n <= int(fixmapMask):
		w.put1(fixmapPrefix | byte(n))
	case n <= math.MaxUint16:
		w.put1(prefixMap16)
		w.putUint16(uint16(n))
	case n <= maxUint32:
		w.put1(prefixMap32)
		w.putUint32(uint32(n))
	default:
		return errs.ErrOversizeLength
	}

	return nil
}

// WriteExtension writes one of the 8 MessagePack ext forms for the given
// signed type code and payload, using the shortest legal length class.
func (w *Writer) WriteExtension(code int8, data []byte) error {
	n := len(data)

	switch n {
	case 1:
		w.put1(prefixFixExt1)
	case 2:
		w.put1(prefixFixExt2)
	case 4:
		w.put1(prefixFixExt4)
	case 8:
		w.put1(prefixFixExt8)
	case 16:
		w.put1(prefixFixExt16)
	default:
		switch {
		case n <= math.MaxUint8:
			w.put1(prefixExt8)
			w.putUint8At(uint8(n))
		case n <= math.MaxUint16:
			w.put1(prefixExt16)
			w.putUint16(uint16(n))
		case n <= maxUint32:
			w.put1(prefixExt32)
			w.putUint32(uint32(n))
		default:
			return errs.ErrOversizeLength
		}
	}

	w.putUint8At(uint8(code))
	w.putBytes(data)

	return nil
}
