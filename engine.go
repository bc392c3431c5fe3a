// Package msgpack is a type-driven, context-aware MessagePack serialization
// engine (spec component overview): given a Go value and a dispatch
// context, it resolves a wire format from the type's registered bindings
// and recursively packs/unpacks through the format catalog.
//
// Grounded on the teacher's top-level doc.go and the way blob.Encoder /
// blob.Decoder compose section + encoding packages into one entry point:
// here Engine composes format.Registry (C2) and typeinfo.Registry with the
// formats package (C3) the same way.
package msgpack

import (
	"fmt"
	"reflect"

	"github.com/arloliu/msgpack/errs"
	"github.com/arloliu/msgpack/format"
	"github.com/arloliu/msgpack/formats"
	"github.com/arloliu/msgpack/internal/options"
	"github.com/arloliu/msgpack/msgctx"
	"github.com/arloliu/msgpack/typeinfo"
	"github.com/arloliu/msgpack/wire"
)

// Engine is the concrete formats.Engine: it owns the format dispatch
// registry and the type-descriptor registry, and implements the recursive
// Pack/Unpack every catalog format calls back into for its nested values.
type Engine struct {
	registry *format.Registry
	types    *typeinfo.Registry
}

var _ formats.Engine = (*Engine)(nil)

// NewEngine returns an Engine with empty registries. Callers register their
// own types' bindings against it via format.Bind/typeinfo.Register before
// first use.
func NewEngine() *Engine {
	return &Engine{registry: format.NewRegistry(), types: typeinfo.NewRegistry()}
}

// Registry returns the engine's format dispatch registry.
func (e *Engine) Registry() *format.Registry { return e.registry }

// Types returns the engine's type-descriptor registry.
func (e *Engine) Types() *typeinfo.Registry { return e.types }

// resolveFormat implements §4.2's dispatch rule for a nil format argument:
// nil value and nil static type default to Nil/Any respectively, otherwise
// format.FormatFor(t, ctx) is consulted.
func (e *Engine) resolveFormat(v any, t reflect.Type, ctx msgctx.Context) (format.Format, error) {
	if t == nil {
		if v == nil {
			return formats.Nil, nil
		}

		return formats.NewAny(e), nil
	}

	return format.FormatFor(e.registry, t, ctx)
}

// Pack packs v under f, or under format.FormatFor(typeof(v), ctx) if f is
// nil (spec.md §6.2 pack's "Format defaults to format(typeof v, ctx)").
func (e *Engine) Pack(w *wire.Writer, v any, f format.Format, ctx msgctx.Context) error {
	if f == nil {
		var t reflect.Type
		if v != nil {
			t = reflect.TypeOf(v)
		}

		rf, err := e.resolveFormat(v, t, ctx)
		if err != nil {
			return err
		}

		f = rf
	}

	codec, ok := f.(formats.Codec)
	if !ok {
		return fmt.Errorf("%w: %s is not a packable format", errs.ErrFormatNotDefined, f.FormatName())
	}

	return codec.Pack(w, v, ctx)
}

// Unpack unpacks a value of static type t under f, or under
// format.FormatFor(t, ctx) if f is nil. t == nil && f == nil decodes via
// Any (spec.md §4.3.12).
func (e *Engine) Unpack(r *wire.Reader, t reflect.Type, f format.Format, ctx msgctx.Context) (any, error) {
	if f == nil && t == nil {
		f = formats.NewAny(e)
	} else if f == nil {
		rf, err := e.resolveFormat(nil, t, ctx)
		if err != nil {
			return nil, err
		}

		f = rf
	}

	codec, ok := f.(formats.Codec)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not an unpackable format", errs.ErrFormatNotDefined, f.FormatName())
	}

	return codec.Unpack(r, t, ctx)
}

// callConfig bundles the per-call overrides PackValue/UnpackValue accept.
// It generalizes internal/options' "apply a list of functional options to a
// mutable target" pattern from "configure a value once at construction" to
// "override format/context for a single Pack or Unpack call."
type callConfig struct {
	format format.Format
	ctx    msgctx.Context
}

// CallOption overrides one aspect of a single PackValue/UnpackValue call.
type CallOption = options.Option[*callConfig]

// WithFormat forces f instead of the type's registered format(T, ctx)
// (spec.md §6.2's explicit-format pack/unpack).
func WithFormat(f format.Format) CallOption {
	return options.NoError(func(c *callConfig) { c.format = f })
}

// WithContext selects the dispatch context consulted for the registered
// binding (spec.md §4.2's per-context Binding slots), overriding
// msgctx.DefaultContext.
func WithContext(ctx msgctx.Context) CallOption {
	return options.NoError(func(c *callConfig) { c.ctx = ctx })
}

// PackValue is Pack's call-option convenience wrapper: it applies opts over
// DefaultContext/format(typeof(v), ctx) and packs v.
func (e *Engine) PackValue(w *wire.Writer, v any, opts ...CallOption) error {
	cfg := &callConfig{ctx: msgctx.DefaultContext}
	if err := options.Apply(cfg, opts...); err != nil {
		return err
	}

	return e.Pack(w, v, cfg.format, cfg.ctx)
}

// UnpackValue is Unpack's call-option convenience wrapper: it applies opts
// over DefaultContext/format(t, ctx) and unpacks a value of static type t.
func (e *Engine) UnpackValue(r *wire.Reader, t reflect.Type, opts ...CallOption) (any, error) {
	cfg := &callConfig{ctx: msgctx.DefaultContext}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	return e.Unpack(r, t, cfg.format, cfg.ctx)
}
