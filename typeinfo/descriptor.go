// Package typeinfo implements TypeDescriptor values and the registry that
// maps them to concrete Go types (spec.md §3 TypeDescriptor, §4.3.7 Type
// format). It generalizes the teacher's internal/hash + internal/collision
// pair — there used to turn a metric name into a collision-checked uint64
// ID — into "type descriptor hash → reflect.Type binding", the mapping
// Design Notes §9 calls for under "map this to a registry keyed by a
// canonical namespace string."
package typeinfo

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/arloliu/msgpack/errs"
	"github.com/arloliu/msgpack/internal/collision"
	"github.com/arloliu/msgpack/internal/hash"
)

// EngineNamespace is the well-known path prefix reserved for this engine's
// own built-in types (spec.md §4.3.7 "a well-known prefix for this engine's
// own namespace recognized specially").
const EngineNamespace = "msgpack"

// Descriptor is the (name, path, params) tuple spec.md §3 defines as the
// value TypeFmt packs. Each entry of Params is either a *Descriptor (the
// parameter is itself a type) or a primitive (string, int64, bool).
type Descriptor struct {
	Name   string
	Path   []string
	Params []any
}

// Of builds a Descriptor with no namespace path and no type parameters —
// the common case for a plain named type.
func Of(name string) *Descriptor { return &Descriptor{Name: name} }

// WithPath returns a copy of d with path prepended to its namespace chain.
func (d *Descriptor) WithPath(path ...string) *Descriptor {
	return &Descriptor{Name: d.Name, Path: path, Params: d.Params}
}

// WithParams returns a copy of d carrying the given type parameters.
func (d *Descriptor) WithParams(params ...any) *Descriptor {
	return &Descriptor{Name: d.Name, Path: d.Path, Params: params}
}

// canonicalKey renders d as the flat string that is hashed for registry
// lookup. Two Descriptors with the same name/path hash identically
// regardless of Params — parameters are resolved recursively after the
// base type is found (spec.md §4.3.7), not folded into the lookup key.
func (d *Descriptor) canonicalKey() string {
	var b strings.Builder
	for _, p := range d.Path {
		b.WriteString(p)
		b.WriteByte('.')
	}

	b.WriteString(d.Name)

	return b.String()
}

// IsEngineType reports whether d names a type in this engine's own
// namespace, recognized specially during reconstruction (spec.md §4.3.7).
func (d *Descriptor) IsEngineType() bool {
	return len(d.Path) > 0 && d.Path[0] == EngineNamespace
}

// Hash returns the registry key for d: xxhash of its canonical namespace
// string, the same ID scheme internal/hash.ID uses for metric names.
func (d *Descriptor) Hash() uint64 { return hash.ID(d.canonicalKey()) }

// binding is what the registry stores per registered type.
type binding struct {
	desc *Descriptor
	typ  reflect.Type
}

// Registry resolves TypeDescriptors to reflect.Types and back. It is built
// once at init time via Register calls and is safe for concurrent read-only
// use thereafter (spec.md §5 "format registry is read-only after module
// initialization" applies equally to the type registry).
type Registry struct {
	byHash     map[uint64]binding
	byType     map[reflect.Type]*Descriptor
	namespaces map[string]bool
	tracker    *collision.Tracker
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byHash:     make(map[uint64]binding),
		byType:     make(map[reflect.Type]*Descriptor),
		namespaces: map[string]bool{EngineNamespace: true},
		tracker:    collision.NewTracker(),
	}
}

// Register binds the Go type T to desc. It fails if desc's canonical name
// collides with a distinct type already registered, or is a re-registration
// of the exact same name (both mirror internal/collision.Tracker's
// semantics, generalized from "metric name" to "type descriptor name").
func Register[T any](r *Registry, desc *Descriptor) error {
	var zero T

	typ := reflect.TypeOf(&zero).Elem()
	key := desc.canonicalKey()

	if err := r.tracker.Track(key, desc.Hash()); err != nil {
		return err
	}

	r.byHash[desc.Hash()] = binding{desc: desc, typ: typ}
	r.byType[typ] = desc

	if len(desc.Path) > 0 {
		r.namespaces[desc.Path[0]] = true
	}

	return nil
}

// DescriptorFor returns the Descriptor registered for a Go type, or nil if
// none was registered — callers fall back to reflect-derived naming in that
// case (see descriptorFor in formats/typed.go).
func (r *Registry) DescriptorFor(t reflect.Type) *Descriptor {
	return r.byType[t]
}

// Resolve looks up the Go type bound to a decoded Descriptor. It follows
// spec.md §4.3.7's two-step reconstruction: first the namespace chain is
// resolved, then the identifier is fetched within it. Unknown namespaces
// and unknown identifiers fail with distinct errors rather than silently
// constructing the wrong type, per Design Notes §9.
func (r *Registry) Resolve(d *Descriptor) (reflect.Type, error) {
	if len(d.Path) > 0 && !r.namespaces[d.Path[0]] {
		return nil, fmt.Errorf("%w: %s", errs.ErrNamespaceNotRegistered, d.Path[0])
	}

	b, ok := r.byHash[d.Hash()]
	if !ok {
		return nil, errNotFound(d)
	}

	return b.typ, nil
}
