// Package collision detects hash collisions in the typeinfo registry, the
// same bookkeeping the teacher's own collision tracker performs for metric
// name hashes, adapted to a domain where a collision is always a hard
// registration error instead of something the format can route around.
package collision

import (
	"github.com/arloliu/msgpack/errs"
)

// Tracker tracks canonical type names and detects hash collisions among
// them. Unlike the teacher's metric-name tracker (which tolerates a
// collision by falling back to storing full names in the payload), a type
// registry has no such fallback: two distinct types resolving to the same
// hash would make TypeFmt reconstruction ambiguous, so a collision here is
// always rejected.
type Tracker struct {
	byHash map[uint64]string
}

// NewTracker creates a new collision tracker.
func NewTracker() *Tracker {
	return &Tracker{byHash: make(map[uint64]string)}
}

// Track records that canonicalName hashes to hash.
//
// Returns ErrTypeAlreadyRegistered if canonicalName was already tracked
// under this hash, or ErrTypeHashCollision if a different name already
// occupies the hash.
func (t *Tracker) Track(canonicalName string, hash uint64) error {
	if canonicalName == "" {
		return errs.ErrInvalidTypeName
	}

	if existing, ok := t.byHash[hash]; ok {
		if existing == canonicalName {
			return errs.ErrTypeAlreadyRegistered
		}

		return errs.ErrTypeHashCollision
	}

	t.byHash[hash] = canonicalName

	return nil
}

// Count returns the number of tracked types.
func (t *Tracker) Count() int {
	return len(t.byHash)
}

// Lookup returns the canonical name tracked under hash, if any.
func (t *Tracker) Lookup(hash uint64) (string, bool) {
	name, ok := t.byHash[hash]
	return name, ok
}

// Reset clears all tracked types.
func (t *Tracker) Reset() {
	for k := range t.byHash {
		delete(t.byHash, k)
	}
}
