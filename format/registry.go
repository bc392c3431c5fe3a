// Package format implements the dispatch pipeline (spec component C2): the
// Format tag interface, the five per-type dispatch hooks (format, valuetype,
// valueformat, keytype, keyformat) plus the struct/type-parameter hooks, and
// the registry that binds them to concrete Go types.
//
// This generalizes the teacher's compress package: compress.CreateCodec /
// compress.GetCodec resolve a CompressionType byte to a concrete Codec via a
// builtinCodecs registry map; here the key is (reflect.Type, Context)
// instead of a compression byte, and the payload is a bundle of dispatch
// hooks instead of one Codec, but the "small map-backed factory, built once
// and read thereafter" shape is the same.
package format

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/arloliu/msgpack/errs"
	"github.com/arloliu/msgpack/msgctx"
)

// Format is a stateless tag identifying a wire-encoding strategy. Concrete
// formats (Nil, Bool, Vector, Struct, Typed[F], ...) live in the formats
// package; this package only deals with their common identity.
type Format interface {
	FormatName() string
}

// lazyDefault is implemented by the formats.Default marker so this package
// can enforce "format(T) must never resolve to Default" (spec.md §4.3.11)
// without importing the formats package (which imports this one).
type lazyDefault interface {
	IsLazyDefault() bool
}

func isLazyDefault(f Format) bool {
	ld, ok := f.(lazyDefault)
	return ok && ld.IsLazyDefault()
}

// State is the opaque iteration state threaded through DynamicVector /
// DynamicMap dispatch (spec.md §4.3.2). Most bindings use a plain int index;
// Typed uses it to carry the previously-decoded type descriptor.
type State any

// Binding bundles every dispatch hook spec.md §4.2 defines for one Go type
// under one context. Hooks left nil fall back to the catalog-level default
// documented on each hook's spec section — the format package itself stays
// agnostic to what those defaults are, since they differ per catalog format
// (e.g. KeyFormat defaults to String, which formats/core.go defines).
type Binding struct {
	Format func(ctx msgctx.Context) Format

	ValueType   func(state State, f Format, ctx msgctx.Context) reflect.Type
	ValueFormat func(state State, f Format, ctx msgctx.Context) Format
	KeyType     func(state State, f Format, ctx msgctx.Context) reflect.Type
	KeyFormat   func(state State, f Format, ctx msgctx.Context) Format

	// IterState advances the DynamicVector/DynamicMap state machine. Called
	// with state == nil for the initial state. Default: integer index
	// starting at 1, incrementing by 1 (spec.md §4.3.2).
	IterState func(prev State, lastEntry any) State

	FieldNames   func(ctx msgctx.Context) []string
	FieldTypes   func(ctx msgctx.Context) []reflect.Type
	FieldFormats func(ctx msgctx.Context) []Format

	TypeParamTypes   func(ctx msgctx.Context) []reflect.Type
	TypeParamFormats func(ctx msgctx.Context) []Format

	// Construct and Destruct are the per-type Construct/Destruct override
	// spec.md §4.5 describes: the hook a catalog format calls to bridge a
	// domain value and its format-specific wire intermediate, instead of
	// the catalog's own default bridging. The intermediate's shape is
	// format-specific ([]any for Vector/DynamicVector, []any alternating
	// key/value for Map/DynamicMap, positional field values for struct
	// formats) — nil means "use the catalog default." The Core scalar
	// formats and BinVector do not consult these hooks.
	Construct func(intermediate any) (any, error)
	Destruct  func(v any) (any, error)
}

// Registry binds Go types to Bindings, per context. Built once (typically
// from package init() functions, exactly like encoding/gob.Register) and
// safe for concurrent reads thereafter — spec.md §5's "format registry is
// read-only after module initialization."
type Registry struct {
	mu       sync.RWMutex
	bindings map[reflect.Type]map[msgctx.Context]*Binding
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{bindings: make(map[reflect.Type]map[msgctx.Context]*Binding)}
}

func (r *Registry) slot(t reflect.Type) map[msgctx.Context]*Binding {
	m, ok := r.bindings[t]
	if !ok {
		m = make(map[msgctx.Context]*Binding)
		r.bindings[t] = m
	}

	return m
}

// Bind registers the context-free binding for t. This is the only way to
// populate the DefaultContext slot; callers never pass msgctx.DefaultContext
// explicitly (see BindContext).
func Bind(r *Registry, t reflect.Type, b *Binding) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.slot(t)[msgctx.DefaultContext] = b
}

// BindContext registers a context-aware override for t under ctx. ctx must
// not be msgctx.DefaultContext — that sentinel is reserved for Bind's
// context-free slot (spec.md §4.2's "DefaultContext must not be matched in
// user overrides").
func BindContext(r *Registry, t reflect.Type, ctx msgctx.Context, b *Binding) error {
	if msgctx.IsDefault(ctx) {
		return errs.ErrDefaultContextForbidden
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.slot(t)[ctx] = b

	return nil
}

// resolve returns the most specific Binding for (t, ctx): the context-aware
// override if one is registered, else the context-free binding, else nil.
func (r *Registry) resolve(t reflect.Type, ctx msgctx.Context) *Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.bindings[t]
	if !ok {
		return nil
	}

	if ctx != nil && !msgctx.IsDefault(ctx) {
		if b, ok := m[ctx]; ok {
			return b
		}
	}

	return m[msgctx.DefaultContext]
}

// FormatFor resolves the wire format for t under ctx (spec.md §4.2 `format`
// hook). It is an error for no binding to exist, and an invariant violation
// for the resolved format to be the lazy Default marker.
func FormatFor(r *Registry, t reflect.Type, ctx msgctx.Context) (Format, error) {
	b := r.resolve(t, ctx)
	if b == nil || b.Format == nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrFormatNotDefined, t)
	}

	f := b.Format(ctx)
	if isLazyDefault(f) {
		return nil, errs.ErrDefaultNotResolvable
	}

	return f, nil
}

// ValueTypeFor resolves the `valuetype` hook, or nil if unset.
func ValueTypeFor(r *Registry, t reflect.Type, state State, f Format, ctx msgctx.Context) reflect.Type {
	b := r.resolve(t, ctx)
	if b == nil || b.ValueType == nil {
		return nil
	}

	return b.ValueType(state, f, ctx)
}

// ValueFormatFor resolves the `valueformat` hook, or nil if unset.
func ValueFormatFor(r *Registry, t reflect.Type, state State, f Format, ctx msgctx.Context) Format {
	b := r.resolve(t, ctx)
	if b == nil || b.ValueFormat == nil {
		return nil
	}

	return b.ValueFormat(state, f, ctx)
}

// KeyTypeFor resolves the `keytype` hook, or nil if unset.
func KeyTypeFor(r *Registry, t reflect.Type, state State, f Format, ctx msgctx.Context) reflect.Type {
	b := r.resolve(t, ctx)
	if b == nil || b.KeyType == nil {
		return nil
	}

	return b.KeyType(state, f, ctx)
}

// KeyFormatFor resolves the `keyformat` hook, or nil if unset.
func KeyFormatFor(r *Registry, t reflect.Type, state State, f Format, ctx msgctx.Context) Format {
	b := r.resolve(t, ctx)
	if b == nil || b.KeyFormat == nil {
		return nil
	}

	return b.KeyFormat(state, f, ctx)
}

// NextIterState advances the DynamicVector/DynamicMap state machine,
// defaulting to an incrementing 1-based integer index (spec.md §4.3.2).
func NextIterState(r *Registry, t reflect.Type, ctx msgctx.Context, prev State, lastEntry any) State {
	b := r.resolve(t, ctx)
	if b != nil && b.IterState != nil {
		return b.IterState(prev, lastEntry)
	}

	if prev == nil {
		return 1
	}

	n, _ := prev.(int)

	return n + 1
}

// FieldNamesFor, FieldTypesFor and FieldFormatsFor resolve the struct hooks.
// All three return nil if no binding (or no struct support) is registered.
func FieldNamesFor(r *Registry, t reflect.Type, ctx msgctx.Context) []string {
	b := r.resolve(t, ctx)
	if b == nil || b.FieldNames == nil {
		return nil
	}

	return b.FieldNames(ctx)
}

func FieldTypesFor(r *Registry, t reflect.Type, ctx msgctx.Context) []reflect.Type {
	b := r.resolve(t, ctx)
	if b == nil || b.FieldTypes == nil {
		return nil
	}

	return b.FieldTypes(ctx)
}

func FieldFormatsFor(r *Registry, t reflect.Type, ctx msgctx.Context) []Format {
	b := r.resolve(t, ctx)
	if b == nil || b.FieldFormats == nil {
		return nil
	}

	return b.FieldFormats(ctx)
}

// TypeParamTypesFor and TypeParamFormatsFor resolve the type-parameter
// hooks used when reconstructing a parameterized type via TypeFmt (spec.md
// §4.3.7). A nil return means "not specified" — callers raise
// errs.ErrTypeParamsNotSpecified.
func TypeParamTypesFor(r *Registry, t reflect.Type, ctx msgctx.Context) []reflect.Type {
	b := r.resolve(t, ctx)
	if b == nil || b.TypeParamTypes == nil {
		return nil
	}

	return b.TypeParamTypes(ctx)
}

func TypeParamFormatsFor(r *Registry, t reflect.Type, ctx msgctx.Context) []Format {
	b := r.resolve(t, ctx)
	if b == nil || b.TypeParamFormats == nil {
		return nil
	}

	return b.TypeParamFormats(ctx)
}

// ConstructFor and DestructFor return t's registered Construct/Destruct
// override (spec.md §4.5), or nil if none is bound — callers fall back to
// the catalog format's own default bridging in that case.
func ConstructFor(r *Registry, t reflect.Type, ctx msgctx.Context) func(any) (any, error) {
	b := r.resolve(t, ctx)
	if b == nil {
		return nil
	}

	return b.Construct
}

func DestructFor(r *Registry, t reflect.Type, ctx msgctx.Context) func(any) (any, error) {
	b := r.resolve(t, ctx)
	if b == nil {
		return nil
	}

	return b.Destruct
}
