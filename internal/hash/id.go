// Package hash provides the hashing primitive used to turn a type's
// canonical namespace string into a registry key (see the typeinfo
// package), the same way the teacher hashes metric names to IDs.
package hash

import "github.com/cespare/xxhash/v2"

// ID computes the xxHash64 of the given string.
func ID(data string) uint64 {
	return xxhash.Sum64String(data)
}
