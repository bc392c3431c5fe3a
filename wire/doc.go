// Package wire implements the MessagePack atom layer (spec component C1):
// reading and writing nil, bool, int, float, str, bin, array-header,
// map-header and ext atoms in bit-exact MessagePack encoding, plus the
// peek/skip/step primitives used for generic traversal.
//
// The package is deliberately low-level and format-agnostic — it knows
// nothing about Go types or the format/dispatch machinery in the format and
// formats packages above it. Everything here operates on raw Go scalars and
// byte slices, the same separation of concerns the teacher draws between its
// endian package (byte-order engine) and its encoding package (type-aware
// encoders built on top of it).
package wire

import "encoding/binary"

// byteOrder is the wire byte order for every multi-byte integer and float.
// MessagePack is always big-endian on the wire; unlike the teacher's endian
// package, there is no pluggable little-endian mode here — spec.md §4.1
// mandates big-endian unconditionally, so there is no variation point for an
// EndianEngine abstraction to serve.
var byteOrder = binary.BigEndian
