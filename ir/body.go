package ir

import (
	"fmt"
	"strings"
)

// LocalDecl declares one storage slot of a body.
type LocalDecl struct {
	Name string
	Type Type
	// Synthetic marks compiler-introduced slots (e.g. suspend-point
	// machinery) that must not appear as call argument places in
	// mutation summaries.
	Synthetic bool
}

// Body is a single function body: a control-flow graph of typed
// instructions over places. Bodies are immutable once handed to the
// analysis.
type Body struct {
	// Name of the function, used in diagnostics.
	Name   string
	Locals []LocalDecl
	// ArgCount arguments occupy locals 1..ArgCount; local 0 is the
	// return slot.
	ArgCount int
	Blocks   []*BasicBlock
}

type BasicBlock struct {
	Instrs []Instr
}

// Location identifies one instruction: block id plus offset within the
// block. Locations are totally ordered within a block.
type Location struct {
	Block, Index int
}

func (l Location) String() string { return fmt.Sprintf("bb%d[%d]", l.Block, l.Index) }

func (b *Body) IsArg(l Local) bool {
	return l >= 1 && int(l) <= b.ArgCount
}

// Args returns the argument locals in declaration order.
func (b *Body) Args() []Local {
	args := make([]Local, b.ArgCount)
	for i := range args {
		args[i] = Local(i + 1)
	}
	return args
}

// Locations returns every instruction location in traversal order.
func (b *Body) Locations() []Location {
	var locs []Location
	for bi, block := range b.Blocks {
		for ii := range block.Instrs {
			locs = append(locs, Location{Block: bi, Index: ii})
		}
	}
	return locs
}

func (b *Body) InstrAt(loc Location) Instr {
	return b.Blocks[loc.Block].Instrs[loc.Index]
}

// Operand is a place read by an instruction, or a constant (which reads
// no place).
type Operand struct {
	place    Place
	hasPlace bool
}

func PlaceOp(p Place) Operand { return Operand{place: p, hasPlace: true} }
func ConstOp() Operand        { return Operand{} }

// Place returns the place this operand reads, if any.
func (o Operand) Place() (Place, bool) { return o.place, o.hasPlace }

func (o Operand) String() string {
	if o.hasPlace {
		return o.place.String()
	}
	return "const"
}

// Instr is one instruction of a body.
type Instr interface {
	instrTag()
	fmt.Stringer
}

type itag struct{}

func (itag) instrTag() {}

// Assign writes the value of Rvalue into Dst.
type Assign struct {
	itag
	Dst    Place
	Rvalue Rvalue
}

func (a Assign) String() string { return fmt.Sprintf("%v = %v", a.Dst, a.Rvalue) }

// Call invokes an opaque callee. The analysis never looks inside it.
type Call struct {
	itag
	Dst  Place
	Func string
	Args []Operand
}

func (c Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%v = %s(%s)", c.Dst, c.Func, strings.Join(args, ", "))
}

type Return struct{ itag }

func (Return) String() string { return "return" }

type Goto struct {
	itag
	Target int
}

func (g Goto) String() string { return fmt.Sprintf("goto bb%d", g.Target) }

type If struct {
	itag
	Cond       Operand
	Then, Else int
}

func (i If) String() string {
	return fmt.Sprintf("if %v goto bb%d else bb%d", i.Cond, i.Then, i.Else)
}

// Rvalue is the right-hand side of an assignment.
type Rvalue interface {
	rvalueTag()
	fmt.Stringer
}

type rtag struct{}

func (rtag) rvalueTag() {}

// Use copies or moves a single operand.
type Use struct {
	rtag
	Op Operand
}

func (u Use) String() string { return u.Op.String() }

// Borrow creates a reference with the given region to Place.
type Borrow struct {
	rtag
	Region Region
	Mut    bool
	Place  Place
}

func (b Borrow) String() string {
	if b.Mut {
		return fmt.Sprintf("&%v mut %v", b.Region, b.Place)
	}
	return fmt.Sprintf("&%v %v", b.Region, b.Place)
}

// Aggregate builds a struct or tuple value field-by-field.
type Aggregate struct {
	rtag
	Ty  Type
	Ops []Operand
}

func (a Aggregate) String() string {
	ops := make([]string, len(a.Ops))
	for i, op := range a.Ops {
		ops[i] = op.String()
	}
	return fmt.Sprintf("%v{%s}", a.Ty, strings.Join(ops, ", "))
}

// BinaryOp combines two operands into a scalar.
type BinaryOp struct {
	rtag
	Left, Right Operand
}

func (b BinaryOp) String() string { return fmt.Sprintf("%v ⊕ %v", b.Left, b.Right) }

// Cast reinterprets an operand (conversions, interface boxing, ...).
type Cast struct {
	rtag
	Op Operand
}

func (c Cast) String() string { return fmt.Sprintf("cast %v", c.Op) }
