package typeinfo

import (
	"fmt"
	"reflect"

	"github.com/arloliu/msgpack/errs"
)

func errNotFound(d *Descriptor) error {
	return fmt.Errorf("%w: %s", errs.ErrIdentifierNotFound, d.canonicalKey())
}

// Whitelist restricts which reflect.Types may be constructed when decoding
// a Typed value (spec.md §4.3.8 Safety). A nil *Whitelist (the default)
// permits everything, matching the "permissive default accepts all" clause.
type Whitelist struct {
	allow func(reflect.Type) bool
}

// AllowAll returns a permissive Whitelist.
func AllowAll() *Whitelist { return nil }

// AllowTypes returns a Whitelist admitting exactly the given set of types.
func AllowTypes(types ...reflect.Type) *Whitelist {
	set := make(map[reflect.Type]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}

	return &Whitelist{allow: func(t reflect.Type) bool {
		_, ok := set[t]
		return ok
	}}
}

// AllowPredicate returns a Whitelist admitting any type for which pred
// returns true.
func AllowPredicate(pred func(reflect.Type) bool) *Whitelist {
	return &Whitelist{allow: pred}
}

// Check reports an error if t is not permitted. A nil Whitelist permits
// everything.
func (w *Whitelist) Check(t reflect.Type) error {
	if w == nil || w.allow == nil || w.allow(t) {
		return nil
	}

	return fmt.Errorf("%w: %s", errs.ErrTypeNotWhitelisted, t.String())
}
