// Package frontend translates Go SSA functions into the analysis IR.
//
// Go has no borrow checker, so the translation synthesizes the region
// facts itself: every pointer-typed value gets a fresh region embedded
// in its translated type, address-taking instructions become borrow
// rvalues, and value flow between pointers becomes subset edges. The
// result is a conservative approximation good enough to drive the alias
// engine over real Go code; it is not compiler-grade borrow output.
// Instructions outside the modeled vocabulary translate to opaque
// assignments rather than failing.
package frontend

import (
	"fmt"
	"go/constant"
	"go/token"
	"go/types"

	"github.com/placeset/aliases"
	"github.com/placeset/aliases/internal/slices"
	"github.com/placeset/aliases/ir"
	"golang.org/x/tools/go/ssa"
)

// maxTypeDepth bounds type translation; deeper structure becomes Opaque.
const maxTypeDepth = 8

// Translation is the result of translating one SSA function.
type Translation struct {
	Body  *ir.Body
	Facts aliases.Facts

	// Locals maps each translated SSA value to its IR local.
	Locals map[ssa.Value]ir.Local
	// Objects maps each allocation to the IR local standing for the
	// allocated storage (the pointee of the allocation's result).
	Objects map[ssa.Value]ir.Local
}

// Translate converts fn into an IR body plus synthesized borrow facts.
// It fails if fn has no body (external or interface-method stub).
func Translate(fn *ssa.Function) (*Translation, error) {
	if len(fn.Blocks) == 0 {
		return nil, fmt.Errorf("%s: function has no body", fn)
	}

	t := &translator{
		fn:      fn,
		body:    &ir.Body{Name: fn.String()},
		locals:  make(map[ssa.Value]ir.Local),
		objects: make(map[ssa.Value]ir.Local),
		blocks:  make(map[*ssa.BasicBlock]int),
	}
	t.declareLocals()
	t.translateBlocks()

	return &Translation{
		Body:    t.body,
		Facts:   t.facts,
		Locals:  t.locals,
		Objects: t.objects,
	}, nil
}

type translator struct {
	fn      *ssa.Function
	body    *ir.Body
	facts   aliases.Facts
	locals  map[ssa.Value]ir.Local
	objects map[ssa.Value]ir.Local
	blocks  map[*ssa.BasicBlock]int

	regions int
	void    ir.Local // unit slot for result-less calls; allocated lazily
	hasVoid bool
}

func (t *translator) region() ir.Region {
	t.regions++
	return ir.Region(t.regions)
}

// typ translates a Go type, minting a fresh region for every reference
// layer. Each translated value therefore carries its own regions.
func (t *translator) typ(gt types.Type, depth int, inProgress map[string]bool) ir.Type {
	if depth > maxTypeDepth {
		return ir.Opaque{Name: gt.String()}
	}

	switch gt := gt.(type) {
	case *types.Named:
		if st, ok := gt.Underlying().(*types.Struct); ok {
			name := gt.String()
			if inProgress[name] {
				// Recursive type: a named placeholder that compares
				// equal to the full definition.
				return ir.Struct{Name: name}
			}
			inProgress[name] = true
			defer delete(inProgress, name)
			s := t.structType(st, depth, inProgress)
			s.Name = name
			return s
		}
		return t.typ(gt.Underlying(), depth, inProgress)

	case *types.Alias:
		return t.typ(types.Unalias(gt), depth, inProgress)

	case *types.Basic:
		if gt.Kind() == types.UnsafePointer {
			return ir.Opaque{Name: gt.Name()}
		}
		return ir.Scalar{Name: gt.Name()}

	case *types.Pointer:
		return ir.Ref{Region: t.region(), Elem: t.typ(gt.Elem(), depth+1, inProgress), Mut: true}

	case *types.Slice:
		// A slice is a pointer to indexed storage.
		return ir.Ref{
			Region: t.region(),
			Elem:   ir.Array{Elem: t.typ(gt.Elem(), depth+1, inProgress)},
			Mut:    true,
		}

	case *types.Array:
		return ir.Array{Elem: t.typ(gt.Elem(), depth+1, inProgress)}

	case *types.Struct:
		return t.structType(gt, depth, inProgress)

	case *types.Tuple:
		if gt.Len() == 0 {
			return ir.Unit{}
		}
		elems := make([]ir.Type, gt.Len())
		for i := range elems {
			elems[i] = t.typ(gt.At(i).Type(), depth+1, inProgress)
		}
		return ir.Tuple{Elems: elems}

	default:
		// Maps, channels, interfaces, funcs: aliasing through them is
		// not modeled.
		return ir.Opaque{Name: gt.String()}
	}
}

func (t *translator) structType(st *types.Struct, depth int, inProgress map[string]bool) ir.Struct {
	fields := make([]ir.Field, st.NumFields())
	for i := range fields {
		f := st.Field(i)
		fields[i] = ir.Field{Name: f.Name(), Type: t.typ(f.Type(), depth+1, inProgress)}
	}
	return ir.Struct{Fields: fields}
}

func (t *translator) goType(gt types.Type) ir.Type {
	return t.typ(gt, 0, make(map[string]bool))
}

func (t *translator) addLocal(name string, ty ir.Type) ir.Local {
	l := ir.Local(len(t.body.Locals))
	t.body.Locals = append(t.body.Locals, ir.LocalDecl{Name: name, Type: ty})
	return l
}

func (t *translator) declareLocals() {
	// Local 0 is the return slot.
	results := t.fn.Signature.Results()
	var retTy ir.Type
	switch results.Len() {
	case 0:
		retTy = ir.Unit{}
	case 1:
		retTy = t.goType(results.At(0).Type())
	default:
		retTy = t.goType(results)
	}
	t.addLocal("ret", retTy)

	for _, param := range t.fn.Params {
		t.locals[param] = t.addLocal(param.Name(), t.goType(param.Type()))
	}
	t.body.ArgCount = len(t.fn.Params)

	for _, fv := range t.fn.FreeVars {
		t.locals[fv] = t.addLocal(fv.Name(), t.goType(fv.Type()))
	}

	for bi, block := range t.fn.Blocks {
		t.blocks[block] = bi
		for _, instr := range block.Instrs {
			v, ok := instr.(ssa.Value)
			if !ok {
				continue
			}
			t.locals[v] = t.addLocal(v.Name(), t.goType(v.Type()))

			// Allocations get one extra slot for the allocated storage.
			switch v := v.(type) {
			case *ssa.Alloc:
				if rt, ok := t.declType(v).(ir.Ref); ok {
					t.objects[v] = t.addLocal(v.Comment, rt.Elem)
				}
			case *ssa.MakeSlice:
				if rt, ok := t.declType(v).(ir.Ref); ok {
					t.objects[v] = t.addLocal("makeslice", rt.Elem)
				}
			}
		}
	}
}

func (t *translator) declType(v ssa.Value) ir.Type {
	return t.body.Locals[t.locals[v]].Type
}

func (t *translator) place(v ssa.Value) ir.Place {
	return ir.MakePlace(t.locals[v])
}

// placeOf is place for operand positions, where v may be a global or
// constant without a local of its own.
func (t *translator) placeOf(v ssa.Value) (ir.Place, bool) {
	l, ok := t.locals[v]
	if !ok {
		return ir.Place{}, false
	}
	return ir.MakePlace(l), true
}

func (t *translator) operand(v ssa.Value) ir.Operand {
	switch v.(type) {
	case *ssa.Const, *ssa.Function, *ssa.Builtin, *ssa.Global:
		return ir.ConstOp()
	}
	if _, ok := t.locals[v]; !ok {
		return ir.ConstOp()
	}
	return ir.PlaceOp(t.place(v))
}

// regionOf returns the top-level region of a pointer-typed value.
func (t *translator) regionOf(v ssa.Value) (ir.Region, bool) {
	l, ok := t.locals[v]
	if !ok {
		return 0, false
	}
	rt, ok := t.body.Locals[l].Type.(ir.Ref)
	if !ok {
		return 0, false
	}
	return rt.Region, true
}

// innerRegion returns the region of the pointee's own top-level
// reference, for pointers to pointers.
func (t *translator) innerRegion(v ssa.Value) (ir.Region, bool) {
	l, ok := t.locals[v]
	if !ok {
		return 0, false
	}
	rt, ok := t.body.Locals[l].Type.(ir.Ref)
	if !ok {
		return 0, false
	}
	inner, ok := rt.Elem.(ir.Ref)
	if !ok {
		return 0, false
	}
	return inner.Region, true
}

func (t *translator) subset(a, b ir.Region) {
	t.facts.SubsetBase = append(t.facts.SubsetBase, [2]ir.Region{a, b})
}

// flow connects the regions of two translated types positionally,
// modeling a copy from src-typed storage into dst-typed storage.
func (t *translator) flow(src, dst ir.Type) {
	rs, rd := ir.TypeRegions(src), ir.TypeRegions(dst)
	for i := 0; i < len(rs) && i < len(rd); i++ {
		t.subset(rs[i], rd[i])
	}
}

// connectAll conservatively connects every region of src into every
// region of dst, for flows whose shape is unknown (opaque calls).
func (t *translator) connectAll(src, dst ir.Type) {
	for _, a := range ir.TypeRegions(src) {
		for _, b := range ir.TypeRegions(dst) {
			t.subset(a, b)
		}
	}
}

func (t *translator) translateBlocks() {
	t.body.Blocks = make([]*ir.BasicBlock, len(t.fn.Blocks))
	for bi, block := range t.fn.Blocks {
		out := &ir.BasicBlock{}
		for _, instr := range block.Instrs {
			t.translateInstr(instr, out)
		}
		t.body.Blocks[bi] = out
	}
}

// typed reports whether p fits the body's types; emissions fall back to
// opaque assignments when it does not (depth-capped translations).
func (t *translator) typed(p ir.Place) bool {
	_, err := p.Ty(t.body)
	return err == nil
}

func (t *translator) opaqueAssign(v ssa.Value, out *ir.BasicBlock) {
	out.Instrs = append(out.Instrs, ir.Assign{Dst: t.place(v), Rvalue: ir.Use{Op: ir.ConstOp()}})
}

func (t *translator) translateInstr(instr ssa.Instruction, out *ir.BasicBlock) {
	emit := func(i ir.Instr) { out.Instrs = append(out.Instrs, i) }

	switch instr := instr.(type) {
	case *ssa.Alloc:
		obj, haveObj := t.objects[instr]
		r, haveRegion := t.regionOf(instr)
		if haveObj && haveRegion {
			emit(ir.Assign{Dst: t.place(instr), Rvalue: ir.Borrow{Region: r, Mut: true, Place: ir.MakePlace(obj)}})
		} else {
			t.opaqueAssign(instr, out)
		}

	case *ssa.MakeSlice:
		obj, haveObj := t.objects[instr]
		r, haveRegion := t.regionOf(instr)
		if haveObj && haveRegion {
			emit(ir.Assign{Dst: t.place(instr), Rvalue: ir.Borrow{Region: r, Mut: true, Place: ir.MakePlace(obj)}})
		} else {
			t.opaqueAssign(instr, out)
		}

	case *ssa.FieldAddr:
		base, haveBase := t.placeOf(instr.X)
		p := ir.Deref(base).Extend(ir.FieldElem(instr.Field))
		r, haveRegion := t.regionOf(instr)
		if haveBase && haveRegion && t.typed(p) {
			emit(ir.Assign{Dst: t.place(instr), Rvalue: ir.Borrow{Region: r, Mut: true, Place: p}})
			if base, ok := t.regionOf(instr.X); ok {
				t.subset(base, r)
			}
		} else {
			t.opaqueAssign(instr, out)
		}

	case *ssa.IndexAddr:
		base, haveBase := t.placeOf(instr.X)
		p := ir.Deref(base).Extend(ir.IndexElem(constIndex(instr.Index)))
		r, haveRegion := t.regionOf(instr)
		if haveBase && haveRegion && t.typed(p) {
			emit(ir.Assign{Dst: t.place(instr), Rvalue: ir.Borrow{Region: r, Mut: true, Place: p}})
			if base, ok := t.regionOf(instr.X); ok {
				t.subset(base, r)
			}
		} else {
			t.opaqueAssign(instr, out)
		}

	case *ssa.UnOp:
		if base, ok := t.placeOf(instr.X); ok && instr.Op == token.MUL {
			src := ir.Deref(base)
			if t.typed(src) {
				emit(ir.Assign{Dst: t.place(instr), Rvalue: ir.Use{Op: ir.PlaceOp(src)}})
				// Loading a pointer out of storage: the result may
				// denote whatever the stored pointer denotes.
				if inner, ok := t.innerRegion(instr.X); ok {
					if r, ok := t.regionOf(instr); ok {
						t.subset(inner, r)
					}
				}
				return
			}
		}
		emit(ir.Assign{Dst: t.place(instr), Rvalue: ir.Use{Op: t.operand(instr.X)}})

	case *ssa.Store:
		addr, haveAddr := t.placeOf(instr.Addr)
		if !haveAddr {
			return
		}
		dst := ir.Deref(addr)
		if !t.typed(dst) {
			return
		}
		emit(ir.Assign{Dst: dst, Rvalue: ir.Use{Op: t.operand(instr.Val)}})
		if src, ok := t.regionOf(instr.Val); ok {
			if inner, ok := t.innerRegion(instr.Addr); ok {
				t.subset(src, inner)
			}
		}

	case *ssa.Phi:
		for _, edge := range instr.Edges {
			emit(ir.Assign{Dst: t.place(instr), Rvalue: ir.Use{Op: t.operand(edge)}})
			if l, ok := t.locals[edge]; ok {
				t.flow(t.body.Locals[l].Type, t.declType(instr))
			}
		}

	case *ssa.Field:
		base, haveBase := t.placeOf(instr.X)
		p := base.Extend(ir.FieldElem(instr.Field))
		if haveBase && t.typed(p) {
			emit(ir.Assign{Dst: t.place(instr), Rvalue: ir.Use{Op: ir.PlaceOp(p)}})
			t.flow(p.MustTy(t.body), t.declType(instr))
		} else {
			t.opaqueAssign(instr, out)
		}

	case *ssa.Index:
		base, haveBase := t.placeOf(instr.X)
		p := base.Extend(ir.IndexElem(constIndex(instr.Index)))
		if haveBase && t.typed(p) {
			emit(ir.Assign{Dst: t.place(instr), Rvalue: ir.Use{Op: ir.PlaceOp(p)}})
			t.flow(p.MustTy(t.body), t.declType(instr))
		} else {
			t.opaqueAssign(instr, out)
		}

	case *ssa.Extract:
		base, haveBase := t.placeOf(instr.Tuple)
		p := base.Extend(ir.FieldElem(instr.Index))
		if haveBase && t.typed(p) {
			emit(ir.Assign{Dst: t.place(instr), Rvalue: ir.Use{Op: ir.PlaceOp(p)}})
			t.flow(p.MustTy(t.body), t.declType(instr))
		} else {
			t.opaqueAssign(instr, out)
		}

	case *ssa.BinOp:
		emit(ir.Assign{Dst: t.place(instr), Rvalue: ir.BinaryOp{Left: t.operand(instr.X), Right: t.operand(instr.Y)}})

	case *ssa.ChangeType:
		t.cast(instr, instr.X, out)
	case *ssa.Convert:
		t.cast(instr, instr.X, out)
	case *ssa.ChangeInterface:
		t.cast(instr, instr.X, out)
	case *ssa.MakeInterface:
		t.cast(instr, instr.X, out)
	case *ssa.Slice:
		t.cast(instr, instr.X, out)
	case *ssa.SliceToArrayPointer:
		t.cast(instr, instr.X, out)

	case *ssa.Call:
		t.call(instr.Common(), t.place(instr), out)
	case *ssa.Go:
		t.call(instr.Common(), ir.MakePlace(t.voidLocal()), out)
	case *ssa.Defer:
		t.call(instr.Common(), ir.MakePlace(t.voidLocal()), out)

	case *ssa.Return:
		switch len(instr.Results) {
		case 0:
		case 1:
			emit(ir.Assign{Dst: ir.MakePlace(0), Rvalue: ir.Use{Op: t.operand(instr.Results[0])}})
			if l, ok := t.locals[instr.Results[0]]; ok {
				t.flow(t.body.Locals[l].Type, t.body.Locals[0].Type)
			}
		default:
			ops := slices.Map(instr.Results, t.operand)
			emit(ir.Assign{Dst: ir.MakePlace(0), Rvalue: ir.Aggregate{Ty: t.body.Locals[0].Type, Ops: ops}})
		}
		emit(ir.Return{})

	case *ssa.Jump:
		emit(ir.Goto{Target: t.blocks[instr.Block().Succs[0]]})

	case *ssa.If:
		emit(ir.If{
			Cond: t.operand(instr.Cond),
			Then: t.blocks[instr.Block().Succs[0]],
			Else: t.blocks[instr.Block().Succs[1]],
		})

	case *ssa.Panic:
		emit(ir.Return{})

	case *ssa.RunDefers, *ssa.DebugRef, *ssa.Send, *ssa.MapUpdate:
		// Not modeled.

	default:
		if v, ok := instr.(ssa.Value); ok {
			t.opaqueAssign(v, out)
		}
	}
}

func (t *translator) cast(dst ssa.Value, src ssa.Value, out *ir.BasicBlock) {
	out.Instrs = append(out.Instrs, ir.Assign{Dst: t.place(dst), Rvalue: ir.Cast{Op: t.operand(src)}})
	if l, ok := t.locals[src]; ok {
		t.flow(t.body.Locals[l].Type, t.declType(dst))
	}
}

func (t *translator) call(common *ssa.CallCommon, dst ir.Place, out *ir.BasicBlock) {
	name := "dynamic"
	if common.IsInvoke() {
		name = common.Method.FullName()
	} else if sc := common.StaticCallee(); sc != nil {
		name = sc.String()
	} else if common.Value != nil {
		name = common.Value.Name()
	}

	args := slices.Map(common.Args, t.operand)
	out.Instrs = append(out.Instrs, ir.Call{Dst: dst, Func: name, Args: args})

	// An opaque callee may derive its results from any pointer argument.
	dstTy := t.body.Locals[dst.Local].Type
	for _, arg := range common.Args {
		if l, ok := t.locals[arg]; ok {
			t.connectAll(t.body.Locals[l].Type, dstTy)
		}
	}
}

func (t *translator) voidLocal() ir.Local {
	if !t.hasVoid {
		t.void = t.addLocal("void", ir.Unit{})
		t.hasVoid = true
	}
	return t.void
}

func constIndex(v ssa.Value) int {
	if c, ok := v.(*ssa.Const); ok && c.Value != nil {
		if i, exact := constant.Int64Val(constant.ToInt(c.Value)); exact && i >= 0 {
			return int(i)
		}
	}
	return ir.WildcardIndex
}
