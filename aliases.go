// Package aliases computes alias and mutation facts for a single
// function body given as a control-flow graph of typed places.
//
// The engine combines a region-subset constraint graph (derived from
// externally supplied borrow facts) with SCC decomposition and a
// type-sensitive fixpoint to build a points-to relation over places,
// and layers memoized alias/conflict/reachability queries on top. A
// separate modular visitor derives per-instruction mutation summaries
// from the same engine without ever inspecting callee bodies.
//
// Engines are built once per function and are read-only afterwards;
// their caches are not safe to share between goroutines. Callers that
// analyze several functions concurrently build one engine per function.
package aliases

import (
	"fmt"

	"github.com/placeset/aliases/internal/cache"
	"github.com/placeset/aliases/ir"
)

// Facts carries the borrow-checker output for one body. SubsetBase lists
// pairwise region facts a ⊆ b: anything region a may denote, region b
// may also denote.
type Facts struct {
	SubsetBase [][2]ir.Region
}

// Aliases answers alias, conflict and reachability queries over the
// places of one function body.
type Aliases struct {
	body   *ir.Body
	cfg    Config
	domain *LocationDomain

	// loans is the solved contains relation: region -> places it may
	// denote. Immutable after Build.
	loans map[ir.Region]*PlaceSet

	normalizedCache cache.Cache[string, ir.Place]
	aliasesCache    cache.Cache[string, *PlaceSet]
	conflictsCache  cache.Cache[string, *PlaceSet]
	reachableCache  cache.Cache[reachableKey, *PlaceSet]
}

type reachableKey struct {
	place   string
	shallow bool
}

// Build constructs the engine for body from the given borrow facts. It
// fails only when the inputs are structurally inconsistent (places that
// do not fit their local's type, out-of-range regions or block targets),
// which indicates a broken front end rather than a recoverable
// condition. The configuration is fixed for the engine's lifetime.
func Build(body *ir.Body, facts Facts, cfg Config) (*Aliases, error) {
	numRegions, err := validate(body, facts)
	if err != nil {
		return nil, err
	}

	solver := newLoanSolver(body, facts, cfg, numRegions)
	solver.solve()

	return &Aliases{
		body:   body,
		cfg:    cfg,
		domain: newLocationDomain(body),
		loans:  solver.contains,
	}, nil
}

func (a *Aliases) Body() *ir.Body { return a.body }
func (a *Aliases) Config() Config { return a.cfg }

// LocationDomain exposes the ordered program points and argument places
// of the body. The domain is owned by the engine; the outer dataflow
// solver indexes its facts with it rather than duplicating it.
func (a *Aliases) LocationDomain() *LocationDomain { return a.domain }

// Normalize canonicalizes a place for cache-key purposes. Aliases are
// still resolved on the un-normalized place: normalization erases
// distinctions (exact indices) that aliasing precision depends on.
func (a *Aliases) Normalize(p ir.Place) ir.Place {
	return a.normalizedCache.Get(p.Key(), func(string) ir.Place {
		return p.Normalize()
	})
}

// Aliases returns every place p may denote, always including p itself.
// Places that contain no dereference of a non-argument pointer alias
// only themselves, as do pointer kinds outside the modeled vocabulary.
func (a *Aliases) Aliases(p ir.Place) *PlaceSet {
	return a.aliasesCache.Get(a.Normalize(p).Key(), func(string) *PlaceSet {
		set := NewPlaceSet(p)

		if p.IsDirect(a.body) {
			return set
		}

		// p = after[*ptr]
		ref, ok := p.LastDeref()
		if !ok {
			return set
		}

		// ptr : &'region origTy
		ptrTy, err := ref.Ptr.Ty(a.body)
		if err != nil {
			return set
		}
		rt, ok := ptrTy.(ir.Ref)
		if !ok {
			// Unmodeled pointer kind: conservatively alias only p.
			return set
		}

		// For each loan ∈ contains('region):
		//   if loan : origTy then add after[loan] else add loan.
		loans := a.loans[rt.Region]
		if loans == nil {
			return set
		}
		for _, loan := range loans.Places() {
			if lty, err := loan.Ty(a.body); err == nil && ir.TypesEqual(lty, rt.Elem) {
				set.Insert(loan.Extend(ref.After...))
			} else {
				set.Insert(loan)
			}
		}
		return set
	})
}

// Children returns p and all of its structural sub-places.
func (a *Aliases) Children(p ir.Place) *PlaceSet {
	return NewPlaceSet(p.InteriorPlaces(a.body)...)
}

// Conflicts returns every place whose storage may overlap p's: for each
// alias of p, the alias's children plus its strict prefixes up to (not
// including) the first dereference. The outer solver uses this to decide
// which prior facts a mutation invalidates.
func (a *Aliases) Conflicts(p ir.Place) *PlaceSet {
	return a.conflictsCache.Get(a.Normalize(p).Key(), func(string) *PlaceSet {
		set := NewPlaceSet()
		for _, alias := range a.Aliases(p).Places() {
			for _, child := range alias.InteriorPlaces(a.body) {
				set.Insert(child)
			}
			for i, e := range alias.Projection {
				if e.Kind == ir.ElemDeref {
					break
				}
				set.Insert(ir.Place{Local: alias.Local, Projection: alias.Projection[:i]})
			}
		}
		return set
	})
}

// ReachableValues returns the direct places reachable from p by following
// its interior pointers (recursively unless shallow), resolved through
// Aliases. With MutabilityMode DistinguishMut only mutable references
// are followed. This is the conservative modular answer to "what may an
// opaque call write through this value".
func (a *Aliases) ReachableValues(p ir.Place, shallow bool) *PlaceSet {
	key := reachableKey{place: p.Key(), shallow: shallow}
	return a.reachableCache.Get(key, func(reachableKey) *PlaceSet {
		collected := NewPlaceSet(p)
		for _, pps := range p.InteriorPointers(a.body, shallow) {
			for _, pp := range pps {
				if a.cfg.MutabilityMode == DistinguishMut && !pp.Mut {
					continue
				}
				for _, alias := range a.Aliases(ir.Deref(pp.Place)).Places() {
					collected.Insert(alias)
				}
			}
		}

		set := NewPlaceSet()
		for _, q := range collected.Places() {
			if q.IsDirect(a.body) {
				set.Insert(q)
			}
		}
		return set
	})
}

// validate checks the structural consistency of the inputs and returns
// the number of regions.
func validate(body *ir.Body, facts Facts) (int, error) {
	if len(body.Locals) == 0 {
		return 0, fmt.Errorf("%s: body has no locals", body.Name)
	}
	if body.ArgCount >= len(body.Locals) {
		return 0, fmt.Errorf("%s: argument count %d exceeds locals", body.Name, body.ArgCount)
	}

	maxRegion := ir.StaticRegion
	note := func(r ir.Region) error {
		if r < 0 {
			return fmt.Errorf("%s: negative region %d", body.Name, int(r))
		}
		if r > maxRegion {
			maxRegion = r
		}
		return nil
	}

	for _, f := range facts.SubsetBase {
		for _, r := range f {
			if err := note(r); err != nil {
				return 0, err
			}
		}
	}
	for _, decl := range body.Locals {
		if decl.Type == nil {
			return 0, fmt.Errorf("%s: local without a type", body.Name)
		}
		for _, r := range ir.TypeRegions(decl.Type) {
			if err := note(r); err != nil {
				return 0, err
			}
		}
	}

	for bi, block := range body.Blocks {
		for ii, instr := range block.Instrs {
			loc := ir.Location{Block: bi, Index: ii}
			if err := validateInstr(body, instr, loc, note); err != nil {
				return 0, err
			}
		}
	}

	return int(maxRegion) + 1, nil
}

func validateInstr(body *ir.Body, instr ir.Instr, loc ir.Location, note func(ir.Region) error) error {
	checkPlace := func(p ir.Place) error {
		if _, err := p.Ty(body); err != nil {
			return fmt.Errorf("%v: %w", loc, err)
		}
		return nil
	}
	checkOp := func(op ir.Operand) error {
		if p, ok := op.Place(); ok {
			return checkPlace(p)
		}
		return nil
	}
	checkTarget := func(t int) error {
		if t < 0 || t >= len(body.Blocks) {
			return fmt.Errorf("%s: %v: branch to unknown block bb%d", body.Name, loc, t)
		}
		return nil
	}

	switch instr := instr.(type) {
	case ir.Assign:
		if err := checkPlace(instr.Dst); err != nil {
			return err
		}
		switch rv := instr.Rvalue.(type) {
		case ir.Use:
			return checkOp(rv.Op)
		case ir.Borrow:
			if err := note(rv.Region); err != nil {
				return err
			}
			return checkPlace(rv.Place)
		case ir.Aggregate:
			if n, ok := aggregateArity(rv.Ty); ok && n != len(rv.Ops) {
				return fmt.Errorf("%s: %v: aggregate of %v with %d operands", body.Name, loc, rv.Ty, len(rv.Ops))
			}
			for _, op := range rv.Ops {
				if err := checkOp(op); err != nil {
					return err
				}
			}
			return nil
		case ir.BinaryOp:
			if err := checkOp(rv.Left); err != nil {
				return err
			}
			return checkOp(rv.Right)
		case ir.Cast:
			return checkOp(rv.Op)
		default:
			return fmt.Errorf("%s: %v: unknown rvalue %T", body.Name, loc, rv)
		}
	case ir.Call:
		if err := checkPlace(instr.Dst); err != nil {
			return err
		}
		for _, op := range instr.Args {
			if err := checkOp(op); err != nil {
				return err
			}
		}
		return nil
	case ir.Goto:
		return checkTarget(instr.Target)
	case ir.If:
		if err := checkOp(instr.Cond); err != nil {
			return err
		}
		if err := checkTarget(instr.Then); err != nil {
			return err
		}
		return checkTarget(instr.Else)
	case ir.Return:
		return nil
	default:
		return fmt.Errorf("%s: %v: unknown instruction %T", body.Name, loc, instr)
	}
}

func aggregateArity(t ir.Type) (int, bool) {
	switch t := t.(type) {
	case ir.Struct:
		return len(t.Fields), true
	case ir.Tuple:
		return len(t.Elems), true
	default:
		return 0, false
	}
}
