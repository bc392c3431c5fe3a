package formats_test

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/arloliu/msgpack/errs"
	"github.com/arloliu/msgpack/format"
	"github.com/arloliu/msgpack/formats"
	"github.com/arloliu/msgpack/msgctx"
	"github.com/arloliu/msgpack/typeinfo"
	"github.com/arloliu/msgpack/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEngine is a minimal formats.Engine good enough to drive one format
// under test plus whatever nested formats it delegates to — Pack/Unpack
// dispatch by resolving the registry when no explicit format is given,
// exactly like the top-level Engine, but without pulling in the msgpack
// package (which would be a circular import from _test.go).
type testEngine struct {
	registry *format.Registry
	types    *typeinfo.Registry
}

func newTestEngine() *testEngine {
	return &testEngine{registry: format.NewRegistry(), types: typeinfo.NewRegistry()}
}

func (e *testEngine) Registry() *format.Registry { return e.registry }
func (e *testEngine) Types() *typeinfo.Registry   { return e.types }

func (e *testEngine) Pack(w *wire.Writer, v any, f format.Format, ctx msgctx.Context) error {
	if f == nil {
		var t reflect.Type
		if v != nil {
			t = reflect.TypeOf(v)
		}

		if t == nil {
			return formats.Nil.Pack(w, v, ctx)
		}

		rf, err := format.FormatFor(e.registry, t, ctx)
		if err != nil {
			return err
		}

		f = rf
	}

	codec := f.(formats.Codec)

	return codec.Pack(w, v, ctx)
}

func (e *testEngine) Unpack(r *wire.Reader, t reflect.Type, f format.Format, ctx msgctx.Context) (any, error) {
	if f == nil && t == nil {
		f = formats.NewAny(e)
	} else if f == nil {
		rf, err := format.FormatFor(e.registry, t, ctx)
		if err != nil {
			return nil, err
		}

		f = rf
	}

	codec := f.(formats.Codec)

	return codec.Unpack(r, t, ctx)
}

func packBytes(t *testing.T, f formats.Codec, v any) []byte {
	t.Helper()

	var buf bytes.Buffer
	w, release := wire.NewWriter(&buf)
	require.NoError(t, f.Pack(w, v, msgctx.DefaultContext))
	require.NoError(t, release())

	return buf.Bytes()
}

func unpackValue(t *testing.T, f formats.Codec, b []byte, typ reflect.Type) any {
	t.Helper()

	r := wire.NewReader(bytes.NewReader(b))
	v, err := f.Unpack(r, typ, msgctx.DefaultContext)
	require.NoError(t, err)

	return v
}

// --- Core scalar formats -----------------------------------------------

func TestNil_RoundTrip(t *testing.T) {
	b := packBytes(t, formats.Nil, nil)
	assert.Equal(t, []byte{0xc0}, b)

	v := unpackValue(t, formats.Nil, b, nil)
	assert.Nil(t, v)
}

func TestBool_RoundTrip(t *testing.T) {
	assert.Equal(t, []byte{0xc3}, packBytes(t, formats.Bool, true))
	assert.Equal(t, []byte{0xc2}, packBytes(t, formats.Bool, false))

	v := unpackValue(t, formats.Bool, []byte{0xc3}, reflect.TypeOf(false))
	assert.Equal(t, true, v)
}

func TestSigned_EncodingLengthMinimality(t *testing.T) {
	cases := []struct {
		v    int64
		want []byte
	}{
		{-1, []byte{0xff}},
		{100, []byte{0x64}},
		{200, []byte{0xd1, 0x00, 0xc8}},
		{70000, []byte{0xd2, 0x00, 0x01, 0x11, 0x70}},
	}

	for _, c := range cases {
		got := packBytes(t, formats.Signed, c.v)
		assert.Equal(t, c.want, got, "packing %d", c.v)

		v := unpackValue(t, formats.Signed, got, reflect.TypeOf(int64(0)))
		assert.Equal(t, c.v, v)
	}
}

func TestSigned_AcceptsUnsignedEncodingOnRead(t *testing.T) {
	// spec.md §4.1: Signed tolerates 0xcc..0xcf unsigned wire forms on read.
	b := packBytes(t, formats.Unsigned, uint64(200))

	v := unpackValue(t, formats.Signed, b, reflect.TypeOf(int64(0)))
	assert.Equal(t, int64(200), v)
}

func TestUnsigned_RejectsNegative(t *testing.T) {
	var buf bytes.Buffer
	w, release := wire.NewWriter(&buf)

	err := formats.Unsigned.Pack(w, int64(-1), msgctx.DefaultContext)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrTypeAssertionFailed)
	_ = release()
}

func TestFloat_RoundTrip(t *testing.T) {
	b := packBytes(t, formats.Float, float64(3.5))
	assert.Equal(t, byte(0xcb), b[0])

	v := unpackValue(t, formats.Float, b, reflect.TypeOf(float64(0)))
	assert.Equal(t, 3.5, v)
}

func TestString_RoundTrip(t *testing.T) {
	b := packBytes(t, formats.String, "a")
	assert.Equal(t, []byte{0xa1, 'a'}, b)

	v := unpackValue(t, formats.String, b, reflect.TypeOf(""))
	assert.Equal(t, "a", v)
}

func TestString_LengthClassBoundaries(t *testing.T) {
	for _, n := range []int{0, 1, 15, 16, 31, 32, 255, 256} {
		s := string(bytes.Repeat([]byte{'x'}, n))
		b := packBytes(t, formats.String, s)
		v := unpackValue(t, formats.String, b, reflect.TypeOf(""))
		assert.Equal(t, s, v, "length %d", n)
	}
}

func TestBinary_RoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte{0xab}, 300)
	b := packBytes(t, formats.Binary, data)
	assert.Equal(t, byte(0xc5), b[0]) // bin16

	v := unpackValue(t, formats.Binary, b, reflect.TypeOf([]byte{}))
	assert.Equal(t, data, v)
}

// --- Vector ---------------------------------------------------------------

func TestVector_TupleScenario(t *testing.T) {
	eng := newTestEngine()
	vec := formats.NewVector(eng)

	// A heterogeneous []any tuple resolves each element through Any, the
	// natural valueformat for an untyped-element container; Any itself
	// resolves each element's own format from its registered dynamic type.
	format.Bind(eng.Registry(), reflect.TypeOf([]any{}), &format.Binding{
		ValueFormat: func(format.State, format.Format, msgctx.Context) format.Format { return formats.NewAny(eng) },
	})
	format.Bind(eng.Registry(), reflect.TypeOf(int64(0)), &format.Binding{
		Format: func(msgctx.Context) format.Format { return formats.Signed },
	})
	format.Bind(eng.Registry(), reflect.TypeOf(""), &format.Binding{
		Format: func(msgctx.Context) format.Format { return formats.String },
	})
	format.Bind(eng.Registry(), reflect.TypeOf(true), &format.Binding{
		Format: func(msgctx.Context) format.Format { return formats.Bool },
	})

	var buf bytes.Buffer
	w, release := wire.NewWriter(&buf)

	require.NoError(t, vec.Pack(w, []any{int64(5), "a", true}, msgctx.DefaultContext))
	require.NoError(t, release())

	assert.Equal(t, []byte{0x93, 0x05, 0xa1, 0x61, 0xc3}, buf.Bytes())
}

func TestVector_RoundTripTypedSlice(t *testing.T) {
	eng := newTestEngine()
	vec := formats.NewVector(eng)

	format.Bind(eng.Registry(), reflect.TypeOf(int64(0)), &format.Binding{
		Format: func(msgctx.Context) format.Format { return formats.Signed },
	})

	in := []int64{1, 2, 3}

	var buf bytes.Buffer
	w, release := wire.NewWriter(&buf)
	require.NoError(t, vec.Pack(w, in, msgctx.DefaultContext))
	require.NoError(t, release())

	r := wire.NewReader(bytes.NewReader(buf.Bytes()))
	out, err := vec.Unpack(r, reflect.TypeOf([]int64{}), msgctx.DefaultContext)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

// --- Map --------------------------------------------------------------

func TestMap_RoundTrip(t *testing.T) {
	eng := newTestEngine()
	m := formats.NewMap(eng)

	format.Bind(eng.Registry(), reflect.TypeOf(map[string]int64{}), &format.Binding{
		ValueFormat: func(format.State, format.Format, msgctx.Context) format.Format { return formats.Signed },
	})

	in := map[string]int64{"a": 1, "b": 2}

	var buf bytes.Buffer
	w, release := wire.NewWriter(&buf)
	require.NoError(t, m.Pack(w, in, msgctx.DefaultContext))
	require.NoError(t, release())

	r := wire.NewReader(bytes.NewReader(buf.Bytes()))
	out, err := m.Unpack(r, reflect.TypeOf(map[string]int64{}), msgctx.DefaultContext)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

// --- Struct variants ----------------------------------------------------

type sampleStruct struct {
	A any
	B string
	C [2]int64
	D bool
}

// bindSampleStruct registers explicit field names/formats for sampleStruct
// and an int64 binding for its array field's elements — this test engine
// has no pre-populated kind-based defaults (every type must be bound
// explicitly, spec.md §4.2), so every concrete type the struct touches
// needs a registration, the same way a caller would via the macro DSL's
// hook-level equivalent (spec.md §6.3).
func bindSampleStruct(eng *testEngine) {
	format.Bind(eng.Registry(), reflect.TypeOf(int64(0)), &format.Binding{
		Format: func(msgctx.Context) format.Format { return formats.Signed },
	})

	format.Bind(eng.Registry(), reflect.TypeOf(sampleStruct{}), &format.Binding{
		FieldNames: func(msgctx.Context) []string { return []string{"a", "b", "c", "d"} },
		FieldFormats: func(msgctx.Context) []format.Format {
			return []format.Format{formats.NewAny(eng), formats.String, formats.NewVector(eng), formats.Bool}
		},
	})
}

func TestStruct_FieldOrderScenario(t *testing.T) {
	eng := newTestEngine()
	bindSampleStruct(eng)

	s := formats.NewStruct(eng)
	v := sampleStruct{A: nil, B: "test", C: [2]int64{10, 10}, D: false}

	b := packBytes(t, s, v)
	assert.Equal(t, byte(0x84), b[0]) // fixmap, 4 entries

	out := unpackValue(t, s, b, reflect.TypeOf(sampleStruct{}))
	assert.Equal(t, v, out)
}

func TestStruct_RejectsReorderedKeys(t *testing.T) {
	eng := newTestEngine()
	bindSampleStruct(eng)

	unordered := formats.NewUnorderedStruct(eng)
	ordered := formats.NewStruct(eng)

	v := sampleStruct{A: nil, B: "test", C: [2]int64{10, 10}, D: false}

	// Pack in reordered field order [c, a, b, d] directly via Map-shaped
	// bytes so the wire stream genuinely has reordered keys.
	var buf bytes.Buffer
	w, release := wire.NewWriter(&buf)
	require.NoError(t, w.WriteMapHeader(4))
	require.NoError(t, w.WriteString("c"))
	require.NoError(t, eng.Pack(w, v.C, formats.NewVector(eng), msgctx.DefaultContext))
	require.NoError(t, w.WriteString("a"))
	w.WriteNil()
	require.NoError(t, w.WriteString("b"))
	require.NoError(t, w.WriteString(v.B))
	require.NoError(t, w.WriteString("d"))
	w.WriteBool(v.D)
	require.NoError(t, release())

	reordered := buf.Bytes()

	_, err := ordered.Unpack(wire.NewReader(bytes.NewReader(reordered)), reflect.TypeOf(sampleStruct{}), msgctx.DefaultContext)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrKeyOrderMismatch)

	out, err := unordered.Unpack(wire.NewReader(bytes.NewReader(reordered)), reflect.TypeOf(sampleStruct{}), msgctx.DefaultContext)
	require.NoError(t, err)
	assert.Equal(t, v, out)
}

func TestUnorderedStruct_RejectsDuplicateAndUnknownKeys(t *testing.T) {
	eng := newTestEngine()
	bindSampleStruct(eng)

	unordered := formats.NewUnorderedStruct(eng)

	var dup bytes.Buffer
	w, release := wire.NewWriter(&dup)
	require.NoError(t, w.WriteMapHeader(2))
	require.NoError(t, w.WriteString("a"))
	w.WriteNil()
	require.NoError(t, w.WriteString("a"))
	w.WriteNil()
	require.NoError(t, release())

	_, err := unordered.Unpack(wire.NewReader(bytes.NewReader(dup.Bytes())), reflect.TypeOf(sampleStruct{}), msgctx.DefaultContext)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrDuplicateKey)

	var unknown bytes.Buffer
	w2, release2 := wire.NewWriter(&unknown)
	require.NoError(t, w2.WriteMapHeader(1))
	require.NoError(t, w2.WriteString("z"))
	w2.WriteNil()
	require.NoError(t, release2())

	_, err = unordered.Unpack(wire.NewReader(bytes.NewReader(unknown.Bytes())), reflect.TypeOf(sampleStruct{}), msgctx.DefaultContext)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrUnknownKey)
}

func TestFlexibleStruct_SkipsUnknownKeysButRequiresDeclared(t *testing.T) {
	eng := newTestEngine()
	bindSampleStruct(eng)

	flex := formats.NewFlexibleStruct(eng)

	var buf bytes.Buffer
	w, release := wire.NewWriter(&buf)
	require.NoError(t, w.WriteMapHeader(5))
	require.NoError(t, w.WriteString("a"))
	w.WriteNil()
	require.NoError(t, w.WriteString("extra"))
	require.NoError(t, w.WriteString("ignored"))
	require.NoError(t, w.WriteString("b"))
	require.NoError(t, w.WriteString("test"))
	require.NoError(t, w.WriteString("c"))
	require.NoError(t, eng.Pack(w, [2]int64{10, 10}, formats.NewVector(eng), msgctx.DefaultContext))
	require.NoError(t, w.WriteString("d"))
	w.WriteBool(false)
	require.NoError(t, release())

	out, err := flex.Unpack(wire.NewReader(bytes.NewReader(buf.Bytes())), reflect.TypeOf(sampleStruct{}), msgctx.DefaultContext)
	require.NoError(t, err)
	assert.Equal(t, sampleStruct{A: nil, B: "test", C: [2]int64{10, 10}, D: false}, out)

	var missing bytes.Buffer
	w3, release3 := wire.NewWriter(&missing)
	require.NoError(t, w3.WriteMapHeader(1))
	require.NoError(t, w3.WriteString("a"))
	w3.WriteNil()
	require.NoError(t, release3())

	_, err = flex.Unpack(wire.NewReader(bytes.NewReader(missing.Bytes())), reflect.TypeOf(sampleStruct{}), msgctx.DefaultContext)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrMissingField)
}

// --- Array / BinArray ----------------------------------------------------

type floatGrid struct {
	Size []int
	Data []float64
}

func TestBinArray_ShapeRoundTrip(t *testing.T) {
	eng := newTestEngine()
	ba := formats.NewBinArray(eng)

	// arrayFormat.Pack always packs the "size" field as a []int64 Vector,
	// even for BinArray, whose "data" field bypasses the registry entirely
	// via bit-casting — so int64 still needs a binding for size's elements.
	format.Bind(eng.Registry(), reflect.TypeOf(int64(0)), &format.Binding{
		Format: func(msgctx.Context) format.Format { return formats.Signed },
	})

	data := make([]float64, 25)
	for i := range data {
		data[i] = float64(i)
	}

	grid := floatGrid{Size: []int{5, 5}, Data: data}

	b := packBytes(t, ba, grid)
	assert.Equal(t, byte(0x82), b[0]) // fixmap, 2 entries

	out := unpackValue(t, ba, b, reflect.TypeOf(floatGrid{}))
	assert.Equal(t, grid, out)
}

func TestArray_ShapeRoundTrip(t *testing.T) {
	eng := newTestEngine()
	a := formats.NewArray(eng)

	format.Bind(eng.Registry(), reflect.TypeOf([]int64{}), &format.Binding{
		Format: func(msgctx.Context) format.Format { return formats.NewVector(eng) },
		ValueFormat: func(format.State, format.Format, msgctx.Context) format.Format {
			return formats.Signed
		},
	})

	type intGrid struct {
		Size []int
		Data []int64
	}

	grid := intGrid{Size: []int{2, 3}, Data: []int64{1, 2, 3, 4, 5, 6}}

	b := packBytes(t, a, grid)
	out := unpackValue(t, a, b, reflect.TypeOf(intGrid{}))
	assert.Equal(t, grid, out)
}

// --- BinVector ------------------------------------------------------------

func TestBinVector_RoundTrip(t *testing.T) {
	eng := newTestEngine()
	bv := formats.NewBinVector(eng)

	in := []float64{1.5, 2.5, 3.5}

	b := packBytes(t, bv, in)
	out := unpackValue(t, bv, b, reflect.TypeOf([]float64{}))
	assert.Equal(t, in, out)
}

// --- Extension ------------------------------------------------------------

func TestExtension_RoundTrip(t *testing.T) {
	eng := newTestEngine()
	ext := formats.NewExtension(eng, 7)

	b := packBytes(t, ext, []byte{1, 2, 3, 4})
	out := unpackValue(t, ext, b, nil)
	assert.Equal(t, []byte{1, 2, 3, 4}, out)
}

func TestExtension_CodeMismatch(t *testing.T) {
	eng := newTestEngine()
	writer := formats.NewExtension(eng, 7)
	reader := formats.NewExtension(eng, 8)

	b := packBytes(t, writer, []byte{1, 2, 3, 4})

	_, err := reader.Unpack(wire.NewReader(bytes.NewReader(b)), nil, msgctx.DefaultContext)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrExtensionCodeMismatch)
}

func TestAnyExtension_YieldsExtensionData(t *testing.T) {
	eng := newTestEngine()
	writer := formats.NewExtension(eng, 9)
	any_ := formats.NewAnyExtension(eng)

	b := packBytes(t, writer, []byte{0xde, 0xad})
	out := unpackValue(t, any_, b, nil)
	assert.Equal(t, formats.ExtensionData{Code: 9, Data: []byte{0xde, 0xad}}, out)
}

// --- SetContext -------------------------------------------------------

func TestSetContext_OverridesAmbientContext(t *testing.T) {
	eng := newTestEngine()
	compact := msgctx.New("compact")

	seen := make([]msgctx.Context, 0, 1)
	probe := probeFormat{fn: func(ctx msgctx.Context) { seen = append(seen, ctx) }}

	sc := formats.NewSetContext(eng, compact, probe)

	var buf bytes.Buffer
	w, release := wire.NewWriter(&buf)
	require.NoError(t, sc.Pack(w, "x", msgctx.DefaultContext))
	require.NoError(t, release())

	require.Len(t, seen, 1)
	assert.Equal(t, compact, seen[0])
}

type probeFormat struct{ fn func(msgctx.Context) }

func (probeFormat) FormatName() string { return "Probe" }

func (p probeFormat) Pack(w *wire.Writer, v any, ctx msgctx.Context) error {
	p.fn(ctx)

	return formats.String.Pack(w, v, ctx)
}

func (p probeFormat) Unpack(r *wire.Reader, t reflect.Type, ctx msgctx.Context) (any, error) {
	p.fn(ctx)

	return formats.String.Unpack(r, t, ctx)
}

// --- Default / Any --------------------------------------------------------

func TestDefault_ReroutesToRegisteredFormat(t *testing.T) {
	eng := newTestEngine()

	format.Bind(eng.Registry(), reflect.TypeOf(""), &format.Binding{
		Format: func(msgctx.Context) format.Format { return formats.String },
	})

	def := formats.NewDefault(eng)

	b := packBytes(t, def, "hello")
	out := unpackValue(t, def, b, reflect.TypeOf(""))
	assert.Equal(t, "hello", out)
}

func TestAny_DecodesStructurally(t *testing.T) {
	eng := newTestEngine()
	any_ := formats.NewAny(eng)

	var buf bytes.Buffer
	w, release := wire.NewWriter(&buf)
	require.NoError(t, w.WriteArrayHeader(2))
	w.WriteInt(1)
	require.NoError(t, w.WriteString("x"))
	require.NoError(t, release())

	out := unpackValue(t, any_, buf.Bytes(), nil)
	seq, ok := out.([]any)
	require.True(t, ok)
	assert.Equal(t, []any{int64(1), "x"}, seq)
}

// --- Typed -----------------------------------------------------------

type vehicle interface{ isVehicle() }

type boat struct{ Seats int64 }

func (boat) isVehicle() {}

type train struct{ Cars int64 }

func (train) isVehicle() {}

func bindVehicleTypes(t *testing.T, eng *testEngine) {
	t.Helper()

	require.NoError(t, typeinfo.Register[boat](eng.Types(), typeinfo.Of("Boat")))
	require.NoError(t, typeinfo.Register[train](eng.Types(), typeinfo.Of("Train")))

	format.Bind(eng.Registry(), reflect.TypeOf(int64(0)), &format.Binding{
		Format: func(msgctx.Context) format.Format { return formats.Signed },
	})

	format.Bind(eng.Registry(), reflect.TypeOf(boat{}), &format.Binding{
		FieldNames: func(msgctx.Context) []string { return []string{"a"} },
		FieldTypes: func(msgctx.Context) []reflect.Type { return []reflect.Type{reflect.TypeOf(int64(0))} },
	})
	format.Bind(eng.Registry(), reflect.TypeOf(train{}), &format.Binding{
		FieldNames: func(msgctx.Context) []string { return []string{"a"} },
		FieldTypes: func(msgctx.Context) []reflect.Type { return []reflect.Type{reflect.TypeOf(int64(0))} },
	})
}

func TestTyped_BoatVehicleScenario(t *testing.T) {
	eng := newTestEngine()
	bindVehicleTypes(t, eng)

	st := formats.NewStruct(eng)
	typed := formats.NewTyped(eng, st)

	b := packBytes(t, typed, boat{Seats: 42})

	out, err := typed.Unpack(wire.NewReader(bytes.NewReader(b)), reflect.TypeOf((*vehicle)(nil)).Elem(), msgctx.DefaultContext)
	require.NoError(t, err)
	assert.Equal(t, boat{Seats: 42}, out)

	_, err = typed.Unpack(wire.NewReader(bytes.NewReader(b)), reflect.TypeOf(train{}), msgctx.DefaultContext)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrTypeAssertionFailed)
}

func TestTyped_WhitelistRejection(t *testing.T) {
	eng := newTestEngine()
	bindVehicleTypes(t, eng)

	st := formats.NewStruct(eng)
	writer := formats.NewTyped(eng, st)

	b := packBytes(t, writer, boat{Seats: 1})

	wl := typeinfo.AllowPredicate(func(reflect.Type) bool { return false })
	reader := formats.NewTypedWithWhitelist(eng, st, wl)

	_, err := reader.Unpack(wire.NewReader(bytes.NewReader(b)), nil, msgctx.DefaultContext)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrTypeNotWhitelisted)
}

func TestTyped_RecursionGuard(t *testing.T) {
	eng := newTestEngine()

	var selfTyped format.Format

	format.Bind(eng.Registry(), reflect.TypeOf(boat{}), &format.Binding{
		Format: func(msgctx.Context) format.Format { return selfTyped },
	})

	typed := formats.NewTyped(eng, nil) // Typed<Default>
	selfTyped = typed

	var buf bytes.Buffer
	w, release := wire.NewWriter(&buf)
	defer release()

	err := typed.Pack(w, boat{Seats: 1}, msgctx.DefaultContext)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrRecursiveTypedPacking)
}

// --- Construct/Destruct overrides ---------------------------------------
//
// These exercise the Binding.Construct/Destruct hooks (spec.md §4.5) on
// domain types whose Kind isn't the wire shape the catalog format expects,
// so the default reflect-based bridging in vectorFormat/mapFormat/
// structFormat can't apply and the override is the only path that works.

// intStack is struct-kinded, not slice-kinded, so Vector's default
// slice/array reflection can't pack or unpack it without the override.
type intStack struct{ items []int64 }

func bindIntStack(eng *testEngine) {
	format.Bind(eng.Registry(), reflect.TypeOf(intStack{}), &format.Binding{
		ValueType:   func(format.State, format.Format, msgctx.Context) reflect.Type { return reflect.TypeOf(int64(0)) },
		ValueFormat: func(format.State, format.Format, msgctx.Context) format.Format { return formats.Signed },
		Destruct: func(v any) (any, error) {
			s := v.(intStack)
			out := make([]any, len(s.items))
			for i, n := range s.items {
				out[i] = n
			}

			return out, nil
		},
		Construct: func(intermediate any) (any, error) {
			elems := intermediate.([]any)
			items := make([]int64, len(elems))
			for i, e := range elems {
				items[i] = e.(int64)
			}

			return intStack{items: items}, nil
		},
	})
}

func TestVector_ConstructDestructOverride_StructKindedContainer(t *testing.T) {
	eng := newTestEngine()
	bindIntStack(eng)
	vec := formats.NewVector(eng)

	in := intStack{items: []int64{3, 1, 4, 1, 5}}

	b := packBytes(t, vec, in)
	assert.Equal(t, byte(0x95), b[0]) // fixarray, 5 entries

	out := unpackValue(t, vec, b, reflect.TypeOf(intStack{}))
	assert.Equal(t, in, out)
}

// pairList is an ordered association list: struct-kinded, not map-kinded,
// so Map's default map reflection can't pack or unpack it without the
// override, and unlike a Go map it preserves insertion order on the wire.
type pairList struct {
	keys []string
	vals []int64
}

func bindPairList(eng *testEngine) {
	format.Bind(eng.Registry(), reflect.TypeOf(pairList{}), &format.Binding{
		KeyType:     func(format.State, format.Format, msgctx.Context) reflect.Type { return reflect.TypeOf("") },
		ValueType:   func(format.State, format.Format, msgctx.Context) reflect.Type { return reflect.TypeOf(int64(0)) },
		ValueFormat: func(format.State, format.Format, msgctx.Context) format.Format { return formats.Signed },
		Destruct: func(v any) (any, error) {
			p := v.(pairList)
			out := make([]any, 0, len(p.keys)*2)
			for i, k := range p.keys {
				out = append(out, k, p.vals[i])
			}

			return out, nil
		},
		Construct: func(intermediate any) (any, error) {
			entries := intermediate.([]any)
			p := pairList{keys: make([]string, 0, len(entries)/2), vals: make([]int64, 0, len(entries)/2)}
			for i := 0; i < len(entries); i += 2 {
				p.keys = append(p.keys, entries[i].(string))
				p.vals = append(p.vals, entries[i+1].(int64))
			}

			return p, nil
		},
	})
}

func TestMap_ConstructDestructOverride_PreservesInsertionOrder(t *testing.T) {
	eng := newTestEngine()
	bindPairList(eng)
	m := formats.NewMap(eng)

	// Deliberately not key-sorted: a plain Go map would get reordered by
	// sortedMapKeys, but Destruct hands over the pairs already ordered.
	in := pairList{keys: []string{"z", "a", "m"}, vals: []int64{1, 2, 3}}

	b := packBytes(t, m, in)
	assert.Equal(t, byte(0x83), b[0]) // fixmap, 3 entries

	out := unpackValue(t, m, b, reflect.TypeOf(pairList{}))
	assert.Equal(t, in, out)

	r := wire.NewReader(bytes.NewReader(b))
	_, err := r.ReadMapHeader()
	require.NoError(t, err)
	firstKey, err := r.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "z", firstKey)
}

// duration stores its value internally in nanoseconds but exposes a single
// "seconds" field on the wire — Destruct/Construct do the unit conversion,
// something the positional default bridging in construct.PositionalOf has
// no way to express.
type duration struct{ Nanos int64 }

func bindDuration(eng *testEngine) {
	format.Bind(eng.Registry(), reflect.TypeOf(int64(0)), &format.Binding{
		Format: func(msgctx.Context) format.Format { return formats.Signed },
	})

	format.Bind(eng.Registry(), reflect.TypeOf(duration{}), &format.Binding{
		FieldNames:   func(msgctx.Context) []string { return []string{"seconds"} },
		FieldFormats: func(msgctx.Context) []format.Format { return []format.Format{formats.Signed} },
		Destruct: func(v any) (any, error) {
			d := v.(duration)

			return []any{d.Nanos / int64(1e9)}, nil
		},
		Construct: func(intermediate any) (any, error) {
			values := intermediate.([]any)

			return duration{Nanos: values[0].(int64) * int64(1e9)}, nil
		},
	})
}

func TestStruct_ConstructDestructOverride_UnitConversion(t *testing.T) {
	eng := newTestEngine()
	bindDuration(eng)
	s := formats.NewStruct(eng)

	in := duration{Nanos: 5_000_000_000}

	b := packBytes(t, s, in)
	assert.Equal(t, byte(0x81), b[0]) // fixmap, 1 entry

	out := unpackValue(t, s, b, reflect.TypeOf(duration{}))
	assert.Equal(t, in, out)

	r := wire.NewReader(bytes.NewReader(b))
	_, err := r.ReadMapHeader()
	require.NoError(t, err)
	key, err := r.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "seconds", key)
	seconds, err := r.ReadInt()
	require.NoError(t, err)
	assert.Equal(t, int64(5), seconds)
}
