package ir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placeset/aliases/ir"
)

var intTy = ir.Scalar{Name: "int"}

// testBody is a single-argument body used by most place tests:
//
//	_0 ret: ()
//	_1 p:   &'1 mut (int, &'2 mut int)   (argument)
//	_2 t:   (int, &'2 mut int)
//	_3 a:   [int]
func testBody() *ir.Body {
	pair := ir.Tuple{Elems: []ir.Type{intTy, ir.Ref{Region: 2, Elem: intTy, Mut: true}}}
	return &ir.Body{
		Name: "testBody",
		Locals: []ir.LocalDecl{
			{Name: "ret", Type: ir.Unit{}},
			{Name: "p", Type: ir.Ref{Region: 1, Elem: pair, Mut: true}},
			{Name: "t", Type: pair},
			{Name: "a", Type: ir.Array{Elem: intTy}},
		},
		ArgCount: 1,
		Blocks:   []*ir.BasicBlock{{Instrs: []ir.Instr{ir.Return{}}}},
	}
}

func TestPlaceString(t *testing.T) {
	p := ir.MakePlace(1, ir.DerefElem(), ir.FieldElem(0))
	assert.Equal(t, "(*_1).0", p.String())

	q := ir.MakePlace(3, ir.IndexElem(ir.WildcardIndex))
	assert.Equal(t, "_3[*]", q.String())

	r := ir.MakePlace(3, ir.IndexElem(2))
	assert.Equal(t, "_3[2]", r.String())
}

func TestPlaceTy(t *testing.T) {
	body := testBody()

	ty, err := ir.MakePlace(1, ir.DerefElem(), ir.FieldElem(0)).Ty(body)
	require.NoError(t, err)
	assert.True(t, ir.TypesEqual(ty, intTy))

	ty, err = ir.MakePlace(1, ir.DerefElem(), ir.FieldElem(1), ir.DerefElem()).Ty(body)
	require.NoError(t, err)
	assert.True(t, ir.TypesEqual(ty, intTy))

	_, err = ir.MakePlace(1, ir.FieldElem(0)).Ty(body)
	assert.Error(t, err, "field projection out of a reference")

	_, err = ir.MakePlace(2, ir.FieldElem(2)).Ty(body)
	assert.Error(t, err, "field index out of range")

	_, err = ir.MakePlace(2, ir.DerefElem()).Ty(body)
	assert.Error(t, err, "deref of a non-reference")

	_, err = ir.MakePlace(9).Ty(body)
	assert.Error(t, err, "unknown local")
}

func TestPlaceTyOpaque(t *testing.T) {
	body := &ir.Body{
		Name:   "opaque",
		Locals: []ir.LocalDecl{{Name: "ret", Type: ir.Unit{}}, {Name: "m", Type: ir.Opaque{Name: "map[int]int"}}},
	}

	// Any projection through an opaque stays opaque instead of failing.
	ty, err := ir.MakePlace(1, ir.DerefElem(), ir.FieldElem(3)).Ty(body)
	require.NoError(t, err)
	assert.Equal(t, ir.Opaque{Name: "map[int]int"}, ty)
}

func TestIsDirect(t *testing.T) {
	body := testBody()

	assert.True(t, ir.MakePlace(2).IsDirect(body))
	assert.True(t, ir.MakePlace(2, ir.FieldElem(0)).IsDirect(body))
	// Dereferences of arguments still name caller-visible storage.
	assert.True(t, ir.MakePlace(1, ir.DerefElem()).IsDirect(body))
	assert.False(t, ir.MakePlace(2, ir.FieldElem(1), ir.DerefElem()).IsDirect(body))
}

func TestNormalize(t *testing.T) {
	p := ir.MakePlace(3, ir.IndexElem(2))
	n := p.Normalize()
	assert.Equal(t, "_3[*]", n.String())
	// The receiver keeps its exact index.
	assert.Equal(t, "_3[2]", p.String())
	assert.True(t, n.Equal(ir.MakePlace(3, ir.IndexElem(7)).Normalize()))
}

func TestRefsInProjection(t *testing.T) {
	p := ir.MakePlace(1, ir.DerefElem(), ir.FieldElem(1), ir.DerefElem())
	refs := p.RefsInProjection()
	require.Len(t, refs, 2)

	assert.True(t, refs[0].Ptr.Equal(ir.MakePlace(1)))
	assert.Len(t, refs[0].After, 2)

	last, ok := p.LastDeref()
	require.True(t, ok)
	assert.True(t, last.Ptr.Equal(ir.MakePlace(1, ir.DerefElem(), ir.FieldElem(1))))
	assert.Empty(t, last.After)

	_, ok = ir.MakePlace(2, ir.FieldElem(0)).LastDeref()
	assert.False(t, ok)
}

func TestInteriorPlaces(t *testing.T) {
	body := testBody()

	places := ir.MakePlace(2).InteriorPlaces(body)
	keys := make([]string, len(places))
	for i, p := range places {
		keys[i] = p.Key()
	}
	// The tuple and its two fields; the reference in field 1 is not
	// followed.
	assert.ElementsMatch(t, []string{"_2", "_2.0", "_2.1"}, keys)

	arr := ir.MakePlace(3).InteriorPlaces(body)
	require.Len(t, arr, 2)
	assert.Equal(t, "_3[*]", arr[1].Key())
}

func TestInteriorPointers(t *testing.T) {
	body := testBody()

	deep := ir.MakePlace(1).InteriorPointers(body, false)
	require.Contains(t, deep, ir.Region(1))
	require.Contains(t, deep, ir.Region(2))
	assert.Equal(t, "_1", deep[1][0].Place.Key())
	assert.Equal(t, "(*_1).1", deep[2][0].Place.Key())

	shallow := ir.MakePlace(1).InteriorPointers(body, true)
	assert.Contains(t, shallow, ir.Region(1))
	assert.NotContains(t, shallow, ir.Region(2), "shallow stops at the first reference")
}

func TestInteriorPointersRecursiveType(t *testing.T) {
	// type node struct { next *node }; the pointee is a recursion
	// placeholder, so the walk must terminate.
	node := ir.Struct{Name: "node", Fields: []ir.Field{
		{Name: "next", Type: ir.Ref{Region: 1, Elem: ir.Struct{Name: "node"}, Mut: true}},
	}}
	body := &ir.Body{
		Name:   "rec",
		Locals: []ir.LocalDecl{{Name: "ret", Type: ir.Unit{}}, {Name: "n", Type: node}},
	}

	out := ir.MakePlace(1).InteriorPointers(body, false)
	require.Contains(t, out, ir.Region(1))
	assert.Equal(t, "_1.0", out[1][0].Place.Key())
}

func TestTypesEqual(t *testing.T) {
	// Regions are ignored.
	assert.True(t, ir.TypesEqual(
		ir.Ref{Region: 1, Elem: intTy, Mut: true},
		ir.Ref{Region: 7, Elem: intTy, Mut: true},
	))
	// Mutability is not.
	assert.False(t, ir.TypesEqual(
		ir.Ref{Region: 1, Elem: intTy, Mut: true},
		ir.Ref{Region: 1, Elem: intTy, Mut: false},
	))
	// Named structs compare by name, so placeholders unify.
	full := ir.Struct{Name: "node", Fields: []ir.Field{{Name: "next", Type: intTy}}}
	assert.True(t, ir.TypesEqual(full, ir.Struct{Name: "node"}))
	assert.False(t, ir.TypesEqual(full, ir.Struct{Name: "other"}))
}

func TestPeelRefs(t *testing.T) {
	ty := ir.Ref{Region: 1, Elem: ir.Ref{Region: 2, Elem: intTy, Mut: true}, Mut: true}
	assert.True(t, ir.TypesEqual(ir.PeelRefs(ty), intTy))
	assert.True(t, ir.TypesEqual(ir.PeelRefs(intTy), intTy))
}

func TestTypeRegions(t *testing.T) {
	pair := ir.Tuple{Elems: []ir.Type{intTy, ir.Ref{Region: 2, Elem: intTy, Mut: true}}}
	ty := ir.Ref{Region: 1, Elem: pair, Mut: true}
	assert.Equal(t, []ir.Region{1, 2}, ir.TypeRegions(ty))
	assert.Empty(t, ir.TypeRegions(intTy))
}
