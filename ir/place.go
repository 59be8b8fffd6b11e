package ir

import (
	"fmt"
	"strconv"
)

// Local identifies one storage slot of a function body. Local 0 is the
// return slot, locals 1..ArgCount are the arguments.
type Local int

func (l Local) String() string { return "_" + strconv.Itoa(int(l)) }

type ElemKind int

const (
	ElemField ElemKind = iota
	ElemDeref
	ElemIndex
)

// WildcardIndex marks an index projection whose exact index is unknown or
// has been normalized away.
const WildcardIndex = -1

// Elem is one projection step of a place path.
type Elem struct {
	Kind ElemKind
	// Field position for ElemField, element index (or WildcardIndex) for
	// ElemIndex. Unused for ElemDeref.
	Field int
}

func FieldElem(i int) Elem { return Elem{Kind: ElemField, Field: i} }
func DerefElem() Elem      { return Elem{Kind: ElemDeref} }
func IndexElem(i int) Elem { return Elem{Kind: ElemIndex, Field: i} }

// Place is a structured reference to a memory location: a base local plus
// a path of field/deref/index projections. Two places are equal iff base
// and full path match exactly.
type Place struct {
	Local      Local
	Projection []Elem
}

func MakePlace(l Local, elems ...Elem) Place {
	return Place{Local: l, Projection: elems}
}

// Deref returns *p.
func Deref(p Place) Place { return p.Extend(DerefElem()) }

// Extend returns p with elems appended. The receiver's projection is not
// shared with the result.
func (p Place) Extend(elems ...Elem) Place {
	proj := make([]Elem, 0, len(p.Projection)+len(elems))
	proj = append(proj, p.Projection...)
	proj = append(proj, elems...)
	return Place{Local: p.Local, Projection: proj}
}

func (p Place) Equal(q Place) bool {
	if p.Local != q.Local || len(p.Projection) != len(q.Projection) {
		return false
	}
	for i, e := range p.Projection {
		if e != q.Projection[i] {
			return false
		}
	}
	return true
}

// String renders the place MIR-style: (*_1).0, _2[*], ...
// The rendering is injective and doubles as the canonical set/cache key.
func (p Place) String() string {
	s := p.Local.String()
	for _, e := range p.Projection {
		switch e.Kind {
		case ElemField:
			s += "." + strconv.Itoa(e.Field)
		case ElemDeref:
			s = "(*" + s + ")"
		case ElemIndex:
			if e.Field == WildcardIndex {
				s += "[*]"
			} else {
				s += "[" + strconv.Itoa(e.Field) + "]"
			}
		}
	}
	return s
}

// Key is the canonical cache/set key for p.
func (p Place) Key() string { return p.String() }

// Normalize canonicalizes p for cache-key purposes by widening exact
// index projections to the wildcard index. Alias resolution must still be
// performed on the un-normalized place, which carries the exact indices.
func (p Place) Normalize() Place {
	proj := make([]Elem, len(p.Projection))
	for i, e := range p.Projection {
		if e.Kind == ElemIndex {
			e.Field = WildcardIndex
		}
		proj[i] = e
	}
	return Place{Local: p.Local, Projection: proj}
}

// IsIndirect reports whether p reaches its storage through a pointer.
func (p Place) IsIndirect() bool {
	for _, e := range p.Projection {
		if e.Kind == ElemDeref {
			return true
		}
	}
	return false
}

// IsDirect reports whether p denotes concrete storage: it contains no
// dereference, or its base is an argument (storage behind argument
// pointers is caller-visible and named through the argument).
func (p Place) IsDirect(b *Body) bool {
	return !p.IsIndirect() || b.IsArg(p.Local)
}

// RefInProj is one dereference step inside a projection: the pointer
// place being dereferenced and the projection remaining after the deref.
type RefInProj struct {
	Ptr   Place
	After []Elem
}

// RefsInProjection returns every dereference step of p, outermost first.
func (p Place) RefsInProjection() []RefInProj {
	var refs []RefInProj
	for i, e := range p.Projection {
		if e.Kind == ElemDeref {
			refs = append(refs, RefInProj{
				Ptr:   Place{Local: p.Local, Projection: p.Projection[:i]},
				After: p.Projection[i+1:],
			})
		}
	}
	return refs
}

// LastDeref returns the innermost dereference step of p, if any.
func (p Place) LastDeref() (RefInProj, bool) {
	refs := p.RefsInProjection()
	if len(refs) == 0 {
		return RefInProj{}, false
	}
	return refs[len(refs)-1], true
}

// Ty computes the type of p in b, or an error if the projection does not
// fit the base local's type. Projections through Opaque stay Opaque.
func (p Place) Ty(b *Body) (Type, error) {
	if int(p.Local) < 0 || int(p.Local) >= len(b.Locals) {
		return nil, fmt.Errorf("%s: place %v references unknown local", b.Name, p)
	}
	t := b.Locals[p.Local].Type
	for _, e := range p.Projection {
		if o, ok := t.(Opaque); ok {
			t = o
			continue
		}
		switch e.Kind {
		case ElemField:
			switch agg := t.(type) {
			case Struct:
				if e.Field < 0 || e.Field >= len(agg.Fields) {
					return nil, fmt.Errorf("%s: place %v projects field %d out of %v", b.Name, p, e.Field, agg)
				}
				t = agg.Fields[e.Field].Type
			case Tuple:
				if e.Field < 0 || e.Field >= len(agg.Elems) {
					return nil, fmt.Errorf("%s: place %v projects element %d out of %v", b.Name, p, e.Field, agg)
				}
				t = agg.Elems[e.Field]
			default:
				return nil, fmt.Errorf("%s: place %v projects a field out of non-aggregate %v", b.Name, p, t)
			}
		case ElemDeref:
			r, ok := t.(Ref)
			if !ok {
				return nil, fmt.Errorf("%s: place %v dereferences non-reference %v", b.Name, p, t)
			}
			t = r.Elem
		case ElemIndex:
			a, ok := t.(Array)
			if !ok {
				return nil, fmt.Errorf("%s: place %v indexes non-array %v", b.Name, p, t)
			}
			t = a.Elem
		}
	}
	return t, nil
}

// MustTy is Ty for places already validated against b. It panics on
// malformed places, which indicates a bug rather than bad input.
func (p Place) MustTy(b *Body) Type {
	t, err := p.Ty(b)
	if err != nil {
		panic(err)
	}
	return t
}

// InteriorPlaces enumerates p and all of its structural sub-places:
// aggregate fields recursively and one wildcard element per array.
// Dereferences are not followed; storage behind a pointer is not part of
// p's own storage.
func (p Place) InteriorPlaces(b *Body) []Place {
	var places []Place
	var walk func(p Place)
	walk = func(p Place) {
		places = append(places, p)
		t, err := p.Ty(b)
		if err != nil {
			return
		}
		switch t := t.(type) {
		case Struct:
			for i := range t.Fields {
				walk(p.Extend(FieldElem(i)))
			}
		case Tuple:
			for i := range t.Elems {
				walk(p.Extend(FieldElem(i)))
			}
		case Array:
			walk(p.Extend(IndexElem(WildcardIndex)))
		}
	}
	walk(p)
	return places
}

// PointerPlace is a reference-typed place found inside another place.
type PointerPlace struct {
	Place Place
	Mut   bool
}

// InteriorPointers finds every reference-typed place reachable inside p,
// grouped by region. With shallow set, pointers behind other pointers are
// not visited. Recursive types are cut off by tracking visited struct
// names across reference boundaries.
func (p Place) InteriorPointers(b *Body, shallow bool) map[Region][]PointerPlace {
	out := make(map[Region][]PointerPlace)
	seen := make(map[string]bool)
	var walk func(p Place)
	walk = func(p Place) {
		t, err := p.Ty(b)
		if err != nil {
			return
		}
		switch t := t.(type) {
		case Ref:
			out[t.Region] = append(out[t.Region], PointerPlace{Place: p, Mut: t.Mut})
			if shallow {
				return
			}
			if s, ok := t.Elem.(Struct); ok && s.Name != "" {
				if seen[s.Name] {
					return
				}
				seen[s.Name] = true
			}
			walk(Deref(p))
		case Struct:
			for i := range t.Fields {
				walk(p.Extend(FieldElem(i)))
			}
		case Tuple:
			for i := range t.Elems {
				walk(p.Extend(FieldElem(i)))
			}
		case Array:
			walk(p.Extend(IndexElem(WildcardIndex)))
		}
	}
	walk(p)
	return out
}
