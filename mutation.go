package aliases

import (
	"github.com/placeset/aliases/ir"
)

// MutationStatus indicates how certain a mutation is.
type MutationStatus int

const (
	// Definitely means the place's prior value is fully overwritten,
	// e.g. x = y definitely mutates x.
	Definitely MutationStatus = iota
	// Possibly means the place may be written, e.g. f(&mut x) possibly
	// mutates x's pointees.
	Possibly
)

func (s MutationStatus) String() string {
	switch s {
	case Definitely:
		return "definitely"
	case Possibly:
		return "possibly"
	default:
		return "unknown"
	}
}

// Mutation describes one write performed by an instruction.
type Mutation struct {
	// Mutated is the place being written.
	Mutated ir.Place
	// Inputs are the places flowing into the write, in operand order.
	Inputs []ir.Place
	// Status is the certainty of the write.
	Status MutationStatus
}

// ModularMutationVisitor walks a body's instructions and delivers, for
// every assignment and call, the batch of mutations it performs to a
// caller-supplied callback keyed by program point. Calls are summarized
// conservatively from types alone; callee bodies are never inspected.
//
// The callback receives all mutations of one point together, since
// consumers combine them to compute invalidation at that point.
type ModularMutationVisitor struct {
	aliases *Aliases
	f       func(ir.Location, []Mutation)
}

func NewModularMutationVisitor(a *Aliases, f func(ir.Location, []Mutation)) *ModularMutationVisitor {
	return &ModularMutationVisitor{aliases: a, f: f}
}

// VisitBody traverses the engine's body forward, visiting every
// instruction exactly once.
func (v *ModularMutationVisitor) VisitBody() {
	body := v.aliases.body
	for bi, block := range body.Blocks {
		for ii, instr := range block.Instrs {
			loc := ir.Location{Block: bi, Index: ii}
			switch instr := instr.(type) {
			case ir.Assign:
				v.visitAssign(instr, loc)
			case ir.Call:
				v.visitCall(instr, loc)
			}
		}
	}
}

func (v *ModularMutationVisitor) visitAssign(assign ir.Assign, loc ir.Location) {
	body := v.aliases.body

	switch rv := assign.Rvalue.(type) {
	// dst = Agg { f1: op1, f2: op2, ... } destructures into a series of
	// field-level mutations dst.f1 = op1, dst.f2 = op2, ... so that
	// later slicing keeps per-field precision.
	case ir.Aggregate:
		if n, ok := aggregateArity(rv.Ty); ok && n == len(rv.Ops) && n > 0 {
			mutations := make([]Mutation, n)
			for i, op := range rv.Ops {
				var inputs []ir.Place
				if p, ok := op.Place(); ok {
					inputs = []ir.Place{p}
				}
				mutations[i] = Mutation{
					Mutated: assign.Dst.Extend(ir.FieldElem(i)),
					Inputs:  inputs,
					Status:  Definitely,
				}
			}
			v.f(loc, mutations)
			return
		}

	// dst = src where src : struct { f1, f2, ... } destructures into
	// dst.f1 = src.f1, dst.f2 = src.f2, ...
	case ir.Use:
		if src, ok := rv.Op.Place(); ok {
			if ty, err := src.Ty(body); err == nil {
				if st, ok := ty.(ir.Struct); ok && len(st.Fields) > 0 {
					mutations := make([]Mutation, len(st.Fields))
					for i := range st.Fields {
						mutations[i] = Mutation{
							Mutated: assign.Dst.Extend(ir.FieldElem(i)),
							Inputs:  []ir.Place{src.Extend(ir.FieldElem(i))},
							Status:  Definitely,
						}
					}
					v.f(loc, mutations)
					return
				}
			}
		}
	}

	v.f(loc, []Mutation{{
		Mutated: assign.Dst,
		Inputs:  inputPlaces(assign.Rvalue),
		Status:  Definitely,
	}})
}

func (v *ModularMutationVisitor) visitCall(call ir.Call, loc ir.Location) {
	body := v.aliases.body

	var argPlaces []ir.Place
	for _, op := range call.Args {
		p, ok := op.Place()
		if !ok {
			continue
		}
		// Skip synthetic slots (suspend-point machinery); they are not
		// caller-visible storage.
		if body.Locals[p.Local].Synthetic {
			continue
		}
		argPlaces = append(argPlaces, p)
	}

	// The destination is definitely overwritten. A unit-typed
	// destination carries no data, so nothing flows into it.
	var dstInputs []ir.Place
	if ty, err := call.Dst.Ty(body); err != nil || !isUnit(ty) {
		dstInputs = argPlaces
	}

	mutations := []Mutation{{
		Mutated: call.Dst,
		Inputs:  dstInputs,
		Status:  Definitely,
	}}

	// An opaque callee may write through any mutable pointer reachable
	// from an argument. The argument itself is excluded: it is moved or
	// copied into the callee, so the caller's binding cannot change.
	for _, arg := range argPlaces {
		for _, reached := range v.aliases.ReachableValues(arg, false).Places() {
			if reached.Equal(arg) {
				continue
			}
			mutations = append(mutations, Mutation{
				Mutated: reached,
				Inputs:  argPlaces,
				Status:  Possibly,
			})
		}
	}

	v.f(loc, mutations)
}

// inputPlaces collects every place read by an rvalue.
func inputPlaces(rv ir.Rvalue) []ir.Place {
	var places []ir.Place
	add := func(op ir.Operand) {
		if p, ok := op.Place(); ok {
			places = append(places, p)
		}
	}

	switch rv := rv.(type) {
	case ir.Use:
		add(rv.Op)
	case ir.Borrow:
		places = append(places, rv.Place)
	case ir.Aggregate:
		for _, op := range rv.Ops {
			add(op)
		}
	case ir.BinaryOp:
		add(rv.Left)
		add(rv.Right)
	case ir.Cast:
		add(rv.Op)
	}
	return places
}

func isUnit(t ir.Type) bool {
	_, ok := t.(ir.Unit)
	return ok
}
