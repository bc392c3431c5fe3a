package wire

import "github.com/arloliu/msgpack/errs"

// Step reads the next atom's header only and reports its CoreFormat,
// enabling cursor-style traversal without full decoding (spec.md §4.7).
// Scalars and extensions have no separate header/body split, so Step
// consumes and discards them whole; for CoreArray/CoreMap it reads only the
// length-prefix header and leaves the container's elements on the stream
// for the caller to read one at a time.
func Step(r *Reader) (CoreFormat, error) {
	cf, err := r.PeekFormat()
	if err != nil {
		return cf, err
	}

	switch cf {
	case CoreNil:
		return cf, r.ReadNil()
	case CoreBool:
		_, err := r.ReadBool()
		return cf, err
	case CoreInt:
		_, err := r.ReadInt()
		return cf, err
	case CoreUint:
		_, err := r.ReadUint()
		return cf, err
	case CoreFloat:
		_, err := r.ReadFloat64()
		return cf, err
	case CoreString:
		_, err := r.ReadString()
		return cf, err
	case CoreBinary:
		_, err := r.ReadBinary()
		return cf, err
	case CoreArray:
		_, err := r.ReadArrayHeader()
		return cf, err
	case CoreMap:
		_, err := r.ReadMapHeader()
		return cf, err
	case CoreExtension:
		_, _, err := r.ReadExtension()
		return cf, err
	default:
		return cf, errs.ErrInvariant
	}
}

// Skip fully discards the next value from r, recursing into array/map
// contents so that every nested atom is consumed along with it — the
// "materialize-and-discard" primitive spec.md §4.7 calls skip, distinct
// from Step's shallow, header-only entry into containers. Used by
// Any's fallback and whenever a key or element is not of interest to
// the caller.
func Skip(r *Reader) error {
	cf, err := r.PeekFormat()
	if err != nil {
		return err
	}

	switch cf {
	case CoreArray:
		n, err := r.ReadArrayHeader()
		if err != nil {
			return err
		}

		for i := 0; i < n; i++ {
			if err := Skip(r); err != nil {
				return err
			}
		}

		return nil
	case CoreMap:
		n, err := r.ReadMapHeader()
		if err != nil {
			return err
		}

		for i := 0; i < n; i++ {
			if err := Skip(r); err != nil {
				return err
			}

			if err := Skip(r); err != nil {
				return err
			}
		}

		return nil
	default:
		_, err := Step(r)
		return err
	}
}
