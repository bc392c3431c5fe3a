// Package errs defines the sentinel errors returned by the msgpack engine.
//
// Errors the engine raises itself are one of these sentinels or wrap one with
// fmt.Errorf("%w: ...", errs.ErrXxx, ...), so callers can match on cause with
// errors.Is regardless of the human-readable detail appended around it.
// Errors from the underlying io.Reader/io.Writer are returned as they are. This
// mirrors the teacher's own errs package, whose sentinels (ErrInvalidHeaderSize,
// ErrHashCollision, ErrMetricNotEnded, ...) are wrapped the same way throughout
// blob/*.go and section/*.go.
package errs

import "errors"

// Byte-level mismatch: the first byte of a value is outside the accepted
// set for the requested format.
var ErrUnexpectedFormatByte = errors.New("msgpack: unexpected format byte")

// Structural mismatch errors (length disagreement, key discipline, type
// assertion failures).
var (
	ErrKeyOrderMismatch    = errors.New("msgpack: struct keys out of order")
	ErrDuplicateKey        = errors.New("msgpack: duplicate key in map/struct")
	ErrUnknownKey          = errors.New("msgpack: unknown key not permitted by format")
	ErrMissingField        = errors.New("msgpack: required field missing from stream")
	ErrLengthMismatch      = errors.New("msgpack: decoded length disagrees with expected shape")
	ErrTypeAssertionFailed = errors.New("msgpack: decoded value does not satisfy expected type")
	ErrGeneratorNotDrained = errors.New("msgpack: construct did not drain the generator")
)

// Dispatch underspecification errors.
var (
	ErrFormatNotDefined        = errors.New("msgpack: no format registered for type")
	ErrTypeParamsNotSpecified  = errors.New("msgpack: type parameter types not specified")
	ErrNamespaceNotRegistered  = errors.New("msgpack: type namespace not registered")
	ErrIdentifierNotFound      = errors.New("msgpack: type identifier not found in namespace")
	ErrDefaultContextForbidden = errors.New("msgpack: DefaultContext must not be dispatched on directly")
)

// Recursion hazard.
var ErrRecursiveTypedPacking = errors.New("msgpack: recursive Typed<Default> packing")

// Policy rejection.
var ErrTypeNotWhitelisted = errors.New("msgpack: type rejected by unpack whitelist")

// Format-resolution invariant violations (C2/C3).
var (
	ErrDefaultNotResolvable  = errors.New("msgpack: format(T) must never resolve to Default")
	ErrOversizeLength        = errors.New("msgpack: value length exceeds u32 maximum")
	ErrMalformedExtension    = errors.New("msgpack: malformed extension payload")
	ErrExtensionCodeMismatch = errors.New("msgpack: extension type code mismatch")
)

// Typeinfo registry errors.
var (
	ErrInvalidTypeName       = errors.New("msgpack: invalid (empty) type name")
	ErrTypeAlreadyRegistered = errors.New("msgpack: type already registered under this hash")
	ErrTypeHashCollision     = errors.New("msgpack: distinct types collide on type-descriptor hash")
)

// InvariantError reports an internal inconsistency that should never occur
// in a conformant implementation — analogous to the teacher's use-after-Finish
// panics, but surfaced as an error at API boundaries where panicking would be
// too disruptive for a library caller (e.g. corrupting the caller's io.Writer
// mid-write is already done; we can at least report it).
var ErrInvariant = errors.New("msgpack: internal invariant violated")
