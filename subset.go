package aliases

import (
	"github.com/placeset/aliases/internal/graph"
	"github.com/placeset/aliases/internal/maps"
	"github.com/placeset/aliases/ir"
)

// regionMatrix is a dense adjacency matrix over region ids. Region
// counts per body are small, so the quadratic representation is cheap
// and gives deterministic, ordered row iteration for free.
type regionMatrix struct {
	n    int
	rows [][]bool
}

func newRegionMatrix(n int) *regionMatrix {
	rows := make([][]bool, n)
	for i := range rows {
		rows[i] = make([]bool, n)
	}
	return &regionMatrix{n: n, rows: rows}
}

func (m *regionMatrix) insert(a, b ir.Region) {
	m.rows[a][b] = true
}

func (m *regionMatrix) contains(a, b ir.Region) bool {
	return m.rows[a][b]
}

// row returns the successors of a in ascending order.
func (m *regionMatrix) row(a ir.Region) []ir.Region {
	var succs []ir.Region
	for b, edge := range m.rows[a] {
		if edge {
			succs = append(succs, ir.Region(b))
		}
	}
	return succs
}

type definiteProj struct {
	ty   ir.Type
	proj []ir.Elem
}

// loanSolver computes the contains (points-to) relation: for every
// region, the set of places a pointer carrying that region may denote.
type loanSolver struct {
	body     *ir.Body
	subset   *regionMatrix
	definite map[ir.Region]definiteProj
	contains map[ir.Region]*PlaceSet
}

func newLoanSolver(body *ir.Body, facts Facts, cfg Config, numRegions int) *loanSolver {
	subset := newRegionMatrix(numRegions)

	// subset(a, b) :- subset_base(a, b).
	for _, f := range facts.SubsetBase {
		subset.insert(f[0], f[1])
	}

	// subset(static, r) for every region r.
	for r := 1; r < numRegions; r++ {
		subset.insert(ir.StaticRegion, ir.Region(r))
	}

	if cfg.PointerMode == PointerModeConservative {
		for _, e := range conservativeConstraints(body) {
			subset.insert(e[0], e[1])
		}
	}

	s := &loanSolver{
		body:     body,
		subset:   subset,
		definite: make(map[ir.Region]definiteProj),
		contains: make(map[ir.Region]*PlaceSet),
	}
	s.seed()
	return s
}

func (s *loanSolver) insert(r ir.Region, p ir.Place) bool {
	set := s.contains[r]
	if set == nil {
		set = NewPlaceSet()
		s.contains[r] = set
	}
	return set.Insert(p)
}

// seed records, for every borrow e = &'r p in the body:
//
//	contains('r, p)
//	if p = after[*ptr]: definite('r, pointee(ptr), after)
//	else:               definite('r, ty(local(p)), projection(p))
//
// and contains('r, *arg) for every reference-typed argument, whose
// region has unknown origin.
func (s *loanSolver) seed() {
	for _, block := range s.body.Blocks {
		for _, instr := range block.Instrs {
			assign, ok := instr.(ir.Assign)
			if !ok {
				continue
			}
			borrow, ok := assign.Rvalue.(ir.Borrow)
			if !ok {
				continue
			}

			s.insert(borrow.Region, borrow.Place)

			var def definiteProj
			if ref, ok := borrow.Place.LastDeref(); ok {
				def = definiteProj{
					ty:   ir.PeelRefs(ref.Ptr.MustTy(s.body)),
					proj: ref.After,
				}
			} else {
				def = definiteProj{
					ty:   s.body.Locals[borrow.Place.Local].Type,
					proj: borrow.Place.Projection,
				}
			}
			s.definite[borrow.Region] = def
		}
	}

	for _, arg := range s.body.Args() {
		if rt, ok := s.body.Locals[arg].Type.(ir.Ref); ok {
			s.insert(rt.Region, ir.Deref(ir.MakePlace(arg)))
		}
	}
}

// step propagates contains(a) across the edge a ⊆ b. A place inherits
// b's definite projection only when the edge is not part of a cycle
// (projections would otherwise grow forever) and the projection is
// type-sound for the place.
func (s *loanSolver) step(a, b ir.Region) bool {
	src := s.contains[a]
	if src == nil {
		return false
	}

	cyclic := s.subset.contains(b, a)
	def, hasDef := s.definite[b]

	changed := false
	for _, p := range src.Places() {
		q := p
		if hasDef && !cyclic {
			if pty, err := p.Ty(s.body); err == nil && ir.TypesEqual(pty, def.ty) {
				q = p.Extend(def.proj...)
			}
		}
		if s.insert(b, q) {
			changed = true
		}
	}
	return changed
}

// solve runs the propagation to a fixpoint. Edges inside one strongly
// connected component are iterated until stable; components themselves
// are visited once, in topological order from the static region, so the
// DAG part of the subset relation needs a single pass and field
// projections keep their precision across reborrow chains.
func (s *loanSolver) solve() {
	n := s.subset.n
	succs := func(v int) []int {
		row := s.subset.row(ir.Region(v))
		out := make([]int, len(row))
		for i, r := range row {
			out[i] = int(r)
		}
		return out
	}

	comp, members := graph.SCC(n, succs)

	sccSuccs := func(c int) []int {
		seen := make(map[int]bool)
		var out []int
		for _, v := range members[c] {
			for _, w := range succs(v) {
				d := comp[w]
				if d != c && !seen[d] {
					seen[d] = true
					out = append(out, d)
				}
			}
		}
		return out
	}

	order := graph.ReversePostOrder(len(members), sccSuccs, comp[ir.StaticRegion])
	for _, scc := range order {
		for {
			changed := false
			for _, a := range members[scc] {
				for _, b := range s.subset.row(ir.Region(a)) {
					if s.step(ir.Region(a), b) {
						changed = true
					}
				}
			}
			if !changed {
				break
			}
		}
	}
}

// sweep applies the propagation rule once over every edge and reports
// whether anything changed. A solved relation sweeps clean.
func (s *loanSolver) sweep() bool {
	changed := false
	for a := 0; a < s.subset.n; a++ {
		for _, b := range s.subset.row(ir.Region(a)) {
			if s.step(ir.Region(a), b) {
				changed = true
			}
		}
	}
	return changed
}

// conservativeConstraints widens the subset relation: any two pointers
// with equal pointee types are forced into one aliasing equivalence
// class by adding subset edges in both directions.
func conservativeConstraints(body *ir.Body) [][2]ir.Region {
	regionToPointers := make(map[ir.Region][]ir.PointerPlace)
	for l := range body.Locals {
		for r, ps := range ir.MakePlace(ir.Local(l)).InteriorPointers(body, false) {
			regionToPointers[r] = append(regionToPointers[r], ps...)
		}
	}

	pointee := func(pp ir.PointerPlace) (ir.Type, bool) {
		ty, err := ir.Deref(pp.Place).Ty(body)
		if err != nil {
			return nil, false
		}
		return ty, true
	}

	sameTy := func(ps, qs []ir.PointerPlace) bool {
		for _, p := range ps {
			pty, ok := pointee(p)
			if !ok {
				continue
			}
			for _, q := range qs {
				if qty, ok := pointee(q); ok && ir.TypesEqual(pty, qty) {
					return true
				}
			}
		}
		return false
	}

	var out [][2]ir.Region
	regions := maps.SortedKeys(regionToPointers)
	for _, r1 := range regions {
		for _, r2 := range regions {
			if r1 != r2 && sameTy(regionToPointers[r1], regionToPointers[r2]) {
				out = append(out, [2]ir.Region{r1, r2})
			}
		}
	}
	return out
}
