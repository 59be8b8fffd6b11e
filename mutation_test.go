package aliases_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placeset/aliases"
	"github.com/placeset/aliases/ir"
)

// collectMutations runs the visitor over the engine's body and returns
// the mutation batches keyed by location.
func collectMutations(t *testing.T, engine *aliases.Aliases) map[ir.Location][]aliases.Mutation {
	t.Helper()
	out := make(map[ir.Location][]aliases.Mutation)
	visitor := aliases.NewModularMutationVisitor(engine, func(loc ir.Location, muts []aliases.Mutation) {
		_, seen := out[loc]
		require.False(t, seen, "location %v visited twice", loc)
		out[loc] = muts
	})
	visitor.VisitBody()
	return out
}

func inputKeys(m aliases.Mutation) []string {
	out := make([]string, len(m.Inputs))
	for i, p := range m.Inputs {
		out[i] = p.Key()
	}
	return out
}

func TestVisitAggregateDestructures(t *testing.T) {
	pair := ir.Tuple{Elems: []ir.Type{intTy, intTy}}
	body := &ir.Body{
		Name: "aggregate",
		Locals: []ir.LocalDecl{
			{Name: "ret", Type: ir.Unit{}},
			{Name: "t", Type: pair},
			{Name: "x", Type: intTy},
		},
		Blocks: []*ir.BasicBlock{{Instrs: []ir.Instr{
			// t = (x, 0)
			ir.Assign{Dst: ir.MakePlace(1), Rvalue: ir.Aggregate{Ty: pair, Ops: []ir.Operand{
				ir.PlaceOp(ir.MakePlace(2)),
				ir.ConstOp(),
			}}},
			ir.Return{},
		}}},
	}
	engine := mustBuild(t, body, aliases.Facts{}, aliases.Config{})

	muts := collectMutations(t, engine)[ir.Location{Block: 0, Index: 0}]
	require.Len(t, muts, 2, "one mutation per field, not one for the whole aggregate")

	assert.Equal(t, "_1.0", muts[0].Mutated.Key())
	assert.Equal(t, aliases.Definitely, muts[0].Status)
	assert.Equal(t, []string{"_2"}, inputKeys(muts[0]))

	assert.Equal(t, "_1.1", muts[1].Mutated.Key())
	assert.Equal(t, aliases.Definitely, muts[1].Status)
	assert.Empty(t, muts[1].Inputs, "constant operands contribute no input places")
}

func TestVisitStructCopyDestructures(t *testing.T) {
	point := ir.Struct{Name: "point", Fields: []ir.Field{
		{Name: "x", Type: intTy},
		{Name: "y", Type: intTy},
	}}
	body := &ir.Body{
		Name: "copy",
		Locals: []ir.LocalDecl{
			{Name: "ret", Type: ir.Unit{}},
			{Name: "src", Type: point},
			{Name: "dst", Type: point},
		},
		Blocks: []*ir.BasicBlock{{Instrs: []ir.Instr{
			// dst = src
			ir.Assign{Dst: ir.MakePlace(2), Rvalue: ir.Use{Op: ir.PlaceOp(ir.MakePlace(1))}},
			ir.Return{},
		}}},
	}
	engine := mustBuild(t, body, aliases.Facts{}, aliases.Config{})

	muts := collectMutations(t, engine)[ir.Location{Block: 0, Index: 0}]
	require.Len(t, muts, 2)

	assert.Equal(t, "_2.0", muts[0].Mutated.Key())
	assert.Equal(t, []string{"_1.0"}, inputKeys(muts[0]))
	assert.Equal(t, "_2.1", muts[1].Mutated.Key())
	assert.Equal(t, []string{"_1.1"}, inputKeys(muts[1]))
	for _, m := range muts {
		assert.Equal(t, aliases.Definitely, m.Status)
	}
}

func TestVisitGenericAssign(t *testing.T) {
	body := &ir.Body{
		Name: "binop",
		Locals: []ir.LocalDecl{
			{Name: "ret", Type: ir.Unit{}},
			{Name: "a", Type: intTy},
			{Name: "b", Type: intTy},
			{Name: "c", Type: intTy},
		},
		Blocks: []*ir.BasicBlock{{Instrs: []ir.Instr{
			// c = a + b
			ir.Assign{Dst: ir.MakePlace(3), Rvalue: ir.BinaryOp{
				Left:  ir.PlaceOp(ir.MakePlace(1)),
				Right: ir.PlaceOp(ir.MakePlace(2)),
			}},
			ir.Return{},
		}}},
	}
	engine := mustBuild(t, body, aliases.Facts{}, aliases.Config{})

	muts := collectMutations(t, engine)[ir.Location{Block: 0, Index: 0}]
	require.Len(t, muts, 1)
	assert.Equal(t, "_3", muts[0].Mutated.Key())
	assert.Equal(t, aliases.Definitely, muts[0].Status)
	assert.Equal(t, []string{"_1", "_2"}, inputKeys(muts[0]))
}

func TestVisitCall(t *testing.T) {
	body := &ir.Body{
		Name: "call",
		Locals: []ir.LocalDecl{
			{Name: "ret", Type: ir.Unit{}},
			{Name: "p", Type: ir.Ref{Region: 1, Elem: intTy, Mut: true}},
			{Name: "r", Type: intTy},
		},
		ArgCount: 1,
		Blocks: []*ir.BasicBlock{{Instrs: []ir.Instr{
			// r = f(p)
			ir.Call{Dst: ir.MakePlace(2), Func: "f", Args: []ir.Operand{ir.PlaceOp(ir.MakePlace(1))}},
			ir.Return{},
		}}},
	}
	engine := mustBuild(t, body, aliases.Facts{}, aliases.Config{})

	muts := collectMutations(t, engine)[ir.Location{Block: 0, Index: 0}]
	require.Len(t, muts, 2)

	// The destination is definitely overwritten, derived from the args.
	assert.Equal(t, "_2", muts[0].Mutated.Key())
	assert.Equal(t, aliases.Definitely, muts[0].Status)
	assert.Equal(t, []string{"_1"}, inputKeys(muts[0]))

	// The callee may write through the pointer argument, but the
	// argument binding itself cannot change.
	assert.Equal(t, "(*_1)", muts[1].Mutated.Key())
	assert.Equal(t, aliases.Possibly, muts[1].Status)
	assert.Equal(t, []string{"_1"}, inputKeys(muts[1]))
}

func TestVisitCallUnitDst(t *testing.T) {
	body := &ir.Body{
		Name: "unitcall",
		Locals: []ir.LocalDecl{
			{Name: "ret", Type: ir.Unit{}},
			{Name: "a", Type: intTy},
			{Name: "void", Type: ir.Unit{}},
		},
		ArgCount: 1,
		Blocks: []*ir.BasicBlock{{Instrs: []ir.Instr{
			ir.Call{Dst: ir.MakePlace(2), Func: "g", Args: []ir.Operand{ir.PlaceOp(ir.MakePlace(1))}},
			ir.Return{},
		}}},
	}
	engine := mustBuild(t, body, aliases.Facts{}, aliases.Config{})

	muts := collectMutations(t, engine)[ir.Location{Block: 0, Index: 0}]
	require.Len(t, muts, 1)
	assert.Equal(t, "_2", muts[0].Mutated.Key())
	assert.Empty(t, muts[0].Inputs, "a unit destination carries no data")
}

func TestVisitCallSkipsSyntheticArgs(t *testing.T) {
	body := &ir.Body{
		Name: "synthetic",
		Locals: []ir.LocalDecl{
			{Name: "ret", Type: ir.Unit{}},
			{Name: "state", Type: ir.Ref{Region: 1, Elem: intTy, Mut: true}, Synthetic: true},
			{Name: "r", Type: intTy},
		},
		Blocks: []*ir.BasicBlock{{Instrs: []ir.Instr{
			ir.Call{Dst: ir.MakePlace(2), Func: "h", Args: []ir.Operand{ir.PlaceOp(ir.MakePlace(1))}},
			ir.Return{},
		}}},
	}
	engine := mustBuild(t, body, aliases.Facts{}, aliases.Config{})

	muts := collectMutations(t, engine)[ir.Location{Block: 0, Index: 0}]
	require.Len(t, muts, 1, "synthetic slots produce no argument mutations")
	assert.Equal(t, "_2", muts[0].Mutated.Key())
	assert.Empty(t, muts[0].Inputs)
}

func TestVisitCallDistinguishesMutability(t *testing.T) {
	base := func() *ir.Body {
		return &ir.Body{
			Name: "immutable",
			Locals: []ir.LocalDecl{
				{Name: "ret", Type: ir.Unit{}},
				{Name: "p", Type: ir.Ref{Region: 1, Elem: intTy, Mut: false}},
				{Name: "void", Type: ir.Unit{}},
			},
			ArgCount: 1,
			Blocks: []*ir.BasicBlock{{Instrs: []ir.Instr{
				ir.Call{Dst: ir.MakePlace(2), Func: "f", Args: []ir.Operand{ir.PlaceOp(ir.MakePlace(1))}},
				ir.Return{},
			}}},
		}
	}

	engine := mustBuild(t, base(), aliases.Facts{}, aliases.Config{MutabilityMode: aliases.DistinguishMut})
	muts := collectMutations(t, engine)[ir.Location{Block: 0, Index: 0}]
	require.Len(t, muts, 1, "nothing is writable through an immutable ref")

	engine = mustBuild(t, base(), aliases.Facts{}, aliases.Config{MutabilityMode: aliases.IgnoreMut})
	muts = collectMutations(t, engine)[ir.Location{Block: 0, Index: 0}]
	require.Len(t, muts, 2)
	assert.Equal(t, "(*_1)", muts[1].Mutated.Key())
	assert.Equal(t, aliases.Possibly, muts[1].Status)
}

func TestVisitBodyCoversAllLocations(t *testing.T) {
	body, facts := reborrowBody()
	engine := mustBuild(t, body, facts, aliases.Config{})

	muts := collectMutations(t, engine)
	// Three assignments; the return produces no mutations.
	assert.Len(t, muts, 3)
	for _, loc := range []ir.Location{{Block: 0, Index: 0}, {Block: 0, Index: 1}, {Block: 0, Index: 2}} {
		assert.Contains(t, muts, loc)
	}
}

func TestMutationStatusString(t *testing.T) {
	assert.Equal(t, "definitely", aliases.Definitely.String())
	assert.Equal(t, "possibly", aliases.Possibly.String())
}
