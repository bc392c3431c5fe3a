package wire

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/arloliu/msgpack/errs"
)

// Reader decodes MessagePack atoms from a caller-owned io.Reader. It wraps
// bufio.Reader purely for its Peek method, which peekformat/isformatbyte
// need to classify the next atom without consuming it.
type Reader struct {
	br *bufio.Reader
}

// NewReader wraps src in a peekable Reader.
func NewReader(src io.Reader) *Reader {
	if br, ok := src.(*bufio.Reader); ok {
		return &Reader{br: br}
	}

	return &Reader{br: bufio.NewReader(src)}
}

// PeekByte returns the next byte without consuming it.
func (r *Reader) PeekByte() (byte, error) {
	b, err := r.br.Peek(1)
	if err != nil {
		return 0, err
	}

	return b[0], nil
}

// PeekFormat classifies the next byte into a CoreFormat without consuming it.
func (r *Reader) PeekFormat() (CoreFormat, error) {
	b, err := r.PeekByte()
	if err != nil {
		return 0, err
	}

	return classify(b), nil
}

func (r *Reader) read1() (byte, error) {
	return r.br.ReadByte()
}

func (r *Reader) readN(n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r.br, buf); err != nil {
		return nil, err
	}

	return buf, nil
}

func (r *Reader) readUint16() (uint16, error) {
	b, err := r.readN(2)
	if err != nil {
		return 0, err
	}

	return byteOrder.Uint16(b), nil
}

func (r *Reader) readUint32() (uint32, error) {
	b, err := r.readN(4)
	if err != nil {
		return 0, err
	}

	return byteOrder.Uint32(b), nil
}

func (r *Reader) readUint64() (uint64, error) {
	b, err := r.readN(8)
	if err != nil {
		return 0, err
	}

	return byteOrder.Uint64(b), nil
}

// ReadNil consumes a nil atom (0xc0).
func (r *Reader) ReadNil() error {
	b, err := r.read1()
	if err != nil {
		return err
	}

	if b != prefixNil {
		return fmt.Errorf("%w: Nil: byte 0x%02x", errs.ErrUnexpectedFormatByte, b)
	}

	return nil
}

// ReadBool consumes a bool atom (0xc2/0xc3).
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.read1()
	if err != nil {
		return false, err
	}

	switch b {
	case prefixTrue:
		return true, nil
	case prefixFalse:
		return false, nil
	default:
		return false, fmt.Errorf("%w: Bool: byte 0x%02x", errs.ErrUnexpectedFormatByte, b)
	}
}

// ReadInt reads a signed integer. Per spec.md §4.1, unsigned encodings
// (0xcc..0xcf) are also accepted for forward compatibility when decoding in
// Signed format — the inverse (accepting signed encodings for an Unsigned
// read) is not performed, matching the asymmetry the teacher's source
// exhibits across revisions (spec.md §9 Open Questions).
func (r *Reader) ReadInt() (int64, error) {
	b, err := r.read1()
	if err != nil {
		return 0, err
	}

	switch {
	case b <= fixintPositiveMax:
		return int64(b), nil
	case b >= fixintNegativeMin:
		return int64(int8(b)), nil
	case b == prefixInt8:
		v, err := r.read1()
		return int64(int8(v)), err
	case b == prefixInt16:
		v, err := r.readUint16()
		return int64(int16(v)), err
	case b == prefixInt32:
		v, err := r.readUint32()
		return int64(int32(v)), err
	case b == prefixInt64:
		v, err := r.readUint64()
		return int64(v), err
	case b == prefixUint8:
		v, err := r.read1()
		return int64(v), err
	case b == prefixUint16:
		v, err := r.readUint16()
		return int64(v), err
	case b == prefixUint32:
		v, err := r.readUint32()
		return int64(v), err
	case b == prefixUint64:
		v, err := r.readUint64()
		return int64(v), err //nolint:gosec // tolerant decode, documented overflow behavior
	default:
		return 0, fmt.Errorf("%w: Signed: byte 0x%02x", errs.ErrUnexpectedFormatByte, b)
	}
}

// ReadUint reads an unsigned integer. Unlike ReadInt, signed encodings are
// never accepted here (spec.md §9 asymmetry).
func (r *Reader) ReadUint() (uint64, error) {
	b, err := r.read1()
	if err != nil {
		return 0, err
	}

	switch {
	case b <= fixintPositiveMax:
		return uint64(b), nil
	case b == prefixUint8:
		v, err := r.read1()
		return uint64(v), err
	case b == prefixUint16:
		return uint64FromUint16(r.readUint16())
	case b == prefixUint32:
		return uint64FromUint32(r.readUint32())
	case b == prefixUint64:
		return r.readUint64()
	default:
		return 0, fmt.Errorf("%w: Unsigned: byte 0x%02x", errs.ErrUnexpectedFormatByte, b)
	}
}

func uint64FromUint16(v uint16, err error) (uint64, error) { return uint64(v), err }
func uint64FromUint32(v uint32, err error) (uint64, error) { return uint64(v), err }

// ReadFloat64 reads a float atom. Only 0xca (f32, widened) and 0xcb (f64)
// are accepted on read — spec.md §4.1 only widens f16 on write.
func (r *Reader) ReadFloat64() (float64, error) {
	b, err := r.read1()
	if err != nil {
		return 0, err
	}

	switch b {
	case prefixFloat32:
		v, err := r.readUint32()
		if err != nil {
			return 0, err
		}

		return float64(math.Float32frombits(v)), nil
	case prefixFloat64:
		v, err := r.readUint64()
		if err != nil {
			return 0, err
		}

		return math.Float64frombits(v), nil
	default:
		return 0, fmt.Errorf("%w: Float: byte 0x%02x", errs.ErrUnexpectedFormatByte, b)
	}
}

func (r *Reader) readLength(fixPrefix, fixMask, p8, p16, p32 byte, hasFix bool) (int, byte, error) {
	b, err := r.read1()
	if err != nil {
		return 0, 0, err
	}

	switch {
	case hasFix && b&^fixMask == fixPrefix:
		return int(b & fixMask), b, nil
	case p8 != 0 && b == p8:
		v, err := r.read1()
		return int(v), b, err
	case b == p16:
		v, err := r.readUint16()
		return int(v), b, err
	case b == p32:
		v, err := r.readUint32()
		return int(v), b, err
	default:
		return 0, b, errs.ErrUnexpectedFormatByte
	}
}

// ReadStringHeader reads a string length prefix without reading the payload.
func (r *Reader) ReadStringHeader() (int, error) {
	n, b, err := r.readLength(fixstrPrefix, fixstrMask, prefixStr8, prefixStr16, prefixStr32, true)
	if err != nil {
		return 0, fmt.Errorf("%w: String: byte 0x%02x", errs.ErrUnexpectedFormatByte, b)
	}

	return n, nil
}

// ReadString reads a full string atom.
func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadStringHeader()
	if err != nil {
		return "", err
	}

	b, err := r.readN(n)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

// ReadBinaryHeader reads a binary length prefix without reading the payload.
func (r *Reader) ReadBinaryHeader() (int, error) {
	n, b, err := r.readLength(0, 0, prefixBin8, prefixBin16, prefixBin32, false)
	if err != nil {
		return 0, fmt.Errorf("%w: Binary: byte 0x%02x", errs.ErrUnexpectedFormatByte, b)
	}

	return n, nil
}

// ReadBinary reads a full binary atom.
func (r *Reader) ReadBinary() ([]byte, error) {
	n, err := r.ReadBinaryHeader()
	if err != nil {
		return nil, err
	}

	return r.readN(n)
}

// ReadArrayHeader reads an array header and returns the element count.
func (r *Reader) ReadArrayHeader() (int, error) {
	n, b, err := r.readLength(fixarrayPrefix, fixarrayMask, 0, prefixArray16, prefixArray32, true)
	if err != nil {
		return 0, fmt.Errorf("%w: Array: byte 0x%02x", errs.ErrUnexpectedFormatByte, b)
	}

	return n, nil
}

// ReadMapHeader reads a map header and returns the pair count.
func (r *Reader) ReadMapHeader() (int, error) {
	n, b, err := r.readLength(fixmapPrefix, fixmapMask, 0, prefixMap16, prefixMap32, true)
	if err != nil {
		return 0, fmt.Errorf("%w: Map: byte 0x%02x", errs.ErrUnexpectedFormatByte, b)
	}

	return n, nil
}

// ReadExtension reads a full extension atom: type code plus payload.
func (r *Reader) ReadExtension() (code int8, data []byte, err error) {
	b, err := r.read1()
	if err != nil {
		return 0, nil, err
	}

	var n int

	switch b {
	case prefixFixExt1:
		n = 1
	case prefixFixExt2:
		n = 2
	case prefixFixExt4:
		n = 4
	case prefixFixExt8:
		n = 8
	case prefixFixExt16:
		n = 16
	case prefixExt8:
		v, err := r.read1()
		if err != nil {
			return 0, nil, err
		}
		n = int(v)
	case prefixExt16:
		v, err := r.readUint16()
		if err != nil {
			return 0, nil, err
		}
		n = int(v)
	case prefixExt32:
		v, err := r.readUint32()
		if err != nil {
			return 0, nil, err
		}
		n = int(v)
	default:
		return 0, nil, fmt.Errorf("%w: byte 0x%02x is not an extension prefix", errs.ErrMalformedExtension, b)
	}

	codeByte, err := r.read1()
	if err != nil {
		return 0, nil, err
	}

	data, err = r.readN(n)
	if err != nil {
		return 0, nil, err
	}

	return int8(codeByte), data, nil
}
