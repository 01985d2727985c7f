package signature

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tObject   = Primitive{Code: CodeObject}
	tSelector = Primitive{Code: CodeSelector}
	tDouble   = Primitive{Code: CodeDouble}
	tInt      = Primitive{Code: CodeInt}
	tLongLong = Primitive{Code: CodeLongLong}
)

// ---------------------------------------------------------------------------
// Method signatures
// ---------------------------------------------------------------------------

func TestParseMethodWithOffsets(t *testing.T) {
	sig, err := Parse("q32@0:8q16q24")
	require.NoError(t, err)

	want := &Signature{
		Return:    tLongLong,
		Args:      []Type{tObject, tSelector, tLongLong, tLongLong},
		FrameSize: 32,
	}
	if diff := cmp.Diff(want, sig); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, sig.NumExplicit())
	assert.False(t, sig.ReturnsVoid())
}

func TestParseMethodWithoutOffsets(t *testing.T) {
	sig, err := Parse("v@:")
	require.NoError(t, err)
	assert.True(t, sig.ReturnsVoid())
	assert.Empty(t, sig.Explicit())
	assert.Equal(t, 0, sig.FrameSize)
}

func TestParseEmpty(t *testing.T) {
	_, err := Parse("")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestExplicitKeepsArgsWithoutReceiver(t *testing.T) {
	sig := MustParse("iii")
	assert.Len(t, sig.Explicit(), 2)
}

func TestParseNestedStructReturn(t *testing.T) {
	sig, err := Parse("{CGRect={CGPoint=dd}{CGSize=dd}}16@0:8")
	require.NoError(t, err)

	want := Struct{
		Name: "CGRect",
		Fields: []Field{
			{Type: Struct{Name: "CGPoint", Fields: []Field{{Type: tDouble}, {Type: tDouble}}}},
			{Type: Struct{Name: "CGSize", Fields: []Field{{Type: tDouble}, {Type: tDouble}}}},
		},
	}
	if diff := cmp.Diff(Type(want), sig.Return); diff != "" {
		t.Errorf("return type mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 16, sig.FrameSize)
	assert.Len(t, sig.Args, 2)
}

func TestSignatureEncodeComputesOffsets(t *testing.T) {
	sig := MustParse("q@:qq")
	assert.Equal(t, "q32@0:8q16q24", sig.Encode())

	sig = MustParse("v@:{CGPoint=dd}c")
	assert.Equal(t, "v40@0:8{CGPoint=dd}16c32", sig.Encode())
}

// ---------------------------------------------------------------------------
// Single types
// ---------------------------------------------------------------------------

func TestParseType(t *testing.T) {
	tests := []struct {
		enc  string
		want Type
	}{
		{"i", tInt},
		{"^^i", Pointer{Elem: Pointer{Elem: tInt}}},
		{"^?", Pointer{Elem: Primitive{Code: CodeUndefined}}},
		{"[4i]", Array{Len: 4, Elem: tInt}},
		{"b12", BitField{Width: 12}},
		{"r*", Qualified{Qualifiers: "r", Type: Primitive{Code: CodeCString}}},
		{"Vv", Qualified{Qualifiers: "V", Type: Primitive{Code: CodeVoid}}},
		{`@"NSString"`, Primitive{Code: CodeObject, Class: "NSString"}},
		{"@?", Primitive{Code: CodeObject, Block: true}},
		{"{Opaque}", Struct{Name: "Opaque", Opaque: true}},
		{"(Value=id)", Struct{Name: "Value", Union: true, Fields: []Field{{Type: tInt}, {Type: tDouble}}}},
		{`{Point="x"d"y"d}`, Struct{Name: "Point", Fields: []Field{{Name: "x", Type: tDouble}, {Name: "y", Type: tDouble}}}},
		{"[4{pair=ib3}]", Array{Len: 4, Elem: Struct{Name: "pair", Fields: []Field{{Type: tInt}, {Type: BitField{Width: 3}}}}}},
		{"^{node=i^{node}}", Pointer{Elem: Struct{Name: "node", Fields: []Field{
			{Type: tInt},
			{Type: Pointer{Elem: Struct{Name: "node", Opaque: true}}},
		}}}},
	}
	for _, tt := range tests {
		t.Run(tt.enc, func(t *testing.T) {
			got := ParseType(tt.enc)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseType(%q) mismatch (-want +got):\n%s", tt.enc, diff)
			}
			assert.Equal(t, tt.enc, got.Encode())
		})
	}
}

func TestParseObjectClassInsideNamedStruct(t *testing.T) {
	got := ParseType(`{Item="obj"@"NSString""count"i}`)
	want := Struct{Name: "Item", Fields: []Field{
		{Name: "obj", Type: Primitive{Code: CodeObject, Class: "NSString"}},
		{Name: "count", Type: tInt},
	}}
	if diff := cmp.Diff(Type(want), got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	got = ParseType(`{Item="obj"@"count"i}`)
	want = Struct{Name: "Item", Fields: []Field{
		{Name: "obj", Type: tObject},
		{Name: "count", Type: tInt},
	}}
	if diff := cmp.Diff(Type(want), got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFailsClosed(t *testing.T) {
	tests := []string{
		"%",
		"{Foo=ii",
		"[4",
		"[4i",
		"b",
		"^",
		`@"Unterminated`,
		"i}",
		"[99999999999999999999i]",
		"[2147483647[2147483647q]]",
		"b99999999999999999999",
		"b65",
	}
	for _, enc := range tests {
		t.Run(enc, func(t *testing.T) {
			assert.NotPanics(t, func() {
				got := ParseType(enc)
				assert.IsType(t, Unknown{}, got)
				assert.GreaterOrEqual(t, SizeOf(got), 0)
			})
		})
	}
}

func TestParseLargeArrayWithinBounds(t *testing.T) {
	got := ParseType("[1024[1024c]]")
	require.Equal(t, Array{Len: 1024, Elem: Array{Len: 1024, Elem: Primitive{Code: 'c'}}}, got)
	assert.Equal(t, 1<<20, SizeOf(got))
	assert.Equal(t, BitField{Width: 64}, ParseType("b64"))
}

func TestParseMethodWithMalformedArgument(t *testing.T) {
	sig, err := Parse("i@:{bad")
	require.NoError(t, err)
	require.Len(t, sig.Args, 3)
	assert.Equal(t, Unknown{Raw: "{bad"}, sig.Args[2])
}

func TestTypeStrings(t *testing.T) {
	assert.Equal(t, "IMP", ParseType("^?").String())
	assert.Equal(t, "const char *", ParseType("r*").String())
	assert.Equal(t, "struct CGPoint", ParseType("{CGPoint=dd}").String())
	assert.Equal(t, "int[4]", ParseType("[4i]").String())
	assert.Equal(t, "long long (id, SEL, double)", MustParse("q@:d").String())
}

// ---------------------------------------------------------------------------
// Layout
// ---------------------------------------------------------------------------

func TestLayout(t *testing.T) {
	tests := []struct {
		enc   string
		size  int
		align int
	}{
		{"c", 1, 1},
		{"d", 8, 8},
		{"^v", 8, 8},
		{"[3s]", 6, 2},
		{"{CGRect={CGPoint=dd}{CGSize=dd}}", 32, 8},
		{"{S=cid}", 16, 8},
		{"(U=cd)", 8, 8},
		{"{F=b1b2i}", 8, 4},
		{"{Opaque}", 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.enc, func(t *testing.T) {
			typ := ParseType(tt.enc)
			assert.Equal(t, tt.size, SizeOf(typ), "size")
			assert.Equal(t, tt.align, AlignOf(typ), "align")
		})
	}
}

func TestFieldOffsets(t *testing.T) {
	s := ParseType("{S=cidb3b4s}").(Struct)
	assert.Equal(t, []int{0, 4, 8, 16, 16, 20}, FieldOffsets(s))
}
