// Package generator implements the lazy single-pass cursor (spec component
// C4) handed to construct implementations while unpacking Vector/Map-shaped
// formats. It is grounded on the teacher's encoding.ColumnarDecoder.All
// method, which returns an iter.Seq[T] over a decoded byte payload; here the
// payload is the live wire.Reader instead of an in-memory byte slice, since
// spec.md §4.4 requires the cursor read directly off the IO stream rather
// than buffering ahead of time.
package generator

import (
	"iter"

	"github.com/arloliu/msgpack/errs"
)

// Generator is a type-parameterized lazy cursor yielding exactly N entries,
// each produced by calling next against the bound IO cursor. Entries must be
// consumed in order; the Generator does not buffer (spec.md §4.4).
type Generator[T any] struct {
	n       int
	pos     int
	next    func() (T, error)
	err     error
	drained bool
}

// New returns a Generator that will yield exactly n items, each produced by
// calling next once.
func New[T any](n int, next func() (T, error)) *Generator[T] {
	return &Generator[T]{n: n, next: next, drained: n <= 0}
}

// Len reports the total number of entries this Generator yields, known in
// advance from the decoded array/map header.
func (g *Generator[T]) Len() int { return g.n }

// Err returns the first error encountered while pulling entries, if any.
func (g *Generator[T]) Err() error { return g.err }

// Next pulls the next entry. ok is false once all n entries have been
// yielded (not an error condition).
func (g *Generator[T]) Next() (value T, ok bool, err error) {
	if g.pos >= g.n {
		return value, false, nil
	}

	v, err := g.next()
	if err != nil {
		g.err = err
		g.drained = true

		return value, false, err
	}

	g.pos++
	if g.pos == g.n {
		g.drained = true
	}

	return v, true, nil
}

// All returns an iter.Seq2 of (index, value) pairs, the same shape the
// teacher's ColumnarDecoder.All exposes. Breaking out of a range over All
// early (via an early return in the yield func) leaves the Generator
// undrained — callers that do this on purpose must still call Finish only
// after manually draining the remainder, or accept the panic.
func (g *Generator[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for {
			idx := g.pos

			v, ok, err := g.Next()
			if err != nil || !ok {
				return
			}

			if !yield(idx, v) {
				return
			}
		}
	}
}

// Finish asserts the generator was fully drained. construct implementations
// must call this before returning (spec.md §4.4 "construct... must fully
// drain the generator before returning"); Design Notes §9 calls for
// detecting a violation in debug builds and panicking, since a partially
// drained generator corrupts every subsequent decode sharing the same IO
// cursor.
func (g *Generator[T]) Finish() {
	if !g.drained {
		panic(errs.ErrGeneratorNotDrained)
	}
}
