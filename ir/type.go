package ir

import (
	"fmt"
	"strings"
)

// Region is a symbolic lifetime identifier attached to reference types.
// Region 0 is the static region, which outlives every other region.
type Region int

const StaticRegion Region = 0

func (r Region) String() string {
	if r == StaticRegion {
		return "'static"
	}
	return fmt.Sprintf("'%d", int(r))
}

// Type is the vocabulary of storage types the analysis models. Anything
// outside this vocabulary is represented as [Opaque] and treated
// conservatively by every query.
type Type interface {
	typeTag()
	fmt.Stringer
}

type ttag struct{}

func (ttag) typeTag() {}

// Ref is a region-qualified reference to storage of type Elem.
type Ref struct {
	ttag
	Region Region
	Elem   Type
	Mut    bool
}

func (r Ref) String() string {
	if r.Mut {
		return fmt.Sprintf("&%v mut %v", r.Region, r.Elem)
	}
	return fmt.Sprintf("&%v %v", r.Region, r.Elem)
}

// Struct is a nominal aggregate. A Struct with a name and no fields is a
// placeholder produced when translation cuts off a recursive type; it
// compares equal to any struct with the same name.
type Struct struct {
	ttag
	Name   string
	Fields []Field
}

type Field struct {
	Name string
	Type Type
}

func (s Struct) String() string {
	if s.Name != "" {
		return s.Name
	}
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		parts[i] = fmt.Sprintf("%s: %v", f.Name, f.Type)
	}
	return "struct{" + strings.Join(parts, ", ") + "}"
}

// Tuple is a positional aggregate.
type Tuple struct {
	ttag
	Elems []Type
}

func (t Tuple) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Array is an indexed sequence. Exact indices are not modeled; all index
// projections into the same array may overlap.
type Array struct {
	ttag
	Elem Type
}

func (a Array) String() string { return fmt.Sprintf("[%v]", a.Elem) }

// Scalar is a dataless-from-the-analysis-view primitive (ints, bools, ...).
type Scalar struct {
	ttag
	Name string
}

func (s Scalar) String() string { return s.Name }

// Unit carries no data. Call destinations of unit type have no inputs.
type Unit struct{ ttag }

func (Unit) String() string { return "()" }

// Opaque stands in for types the analysis does not model (maps, channels,
// foreign pointers). Projections through an Opaque stay Opaque and alias
// queries on them fall back to the identity answer.
type Opaque struct {
	ttag
	Name string
}

func (o Opaque) String() string { return "opaque<" + o.Name + ">" }

// TypesEqual reports structural equality, ignoring regions. Named structs
// compare by name so that recursion placeholders unify with their full
// definitions.
func TypesEqual(a, b Type) bool {
	switch a := a.(type) {
	case Ref:
		b, ok := b.(Ref)
		return ok && a.Mut == b.Mut && TypesEqual(a.Elem, b.Elem)
	case Struct:
		b, ok := b.(Struct)
		if !ok {
			return false
		}
		if a.Name != "" || b.Name != "" {
			return a.Name == b.Name
		}
		if len(a.Fields) != len(b.Fields) {
			return false
		}
		for i, f := range a.Fields {
			if f.Name != b.Fields[i].Name || !TypesEqual(f.Type, b.Fields[i].Type) {
				return false
			}
		}
		return true
	case Tuple:
		b, ok := b.(Tuple)
		if !ok || len(a.Elems) != len(b.Elems) {
			return false
		}
		for i, e := range a.Elems {
			if !TypesEqual(e, b.Elems[i]) {
				return false
			}
		}
		return true
	case Array:
		b, ok := b.(Array)
		return ok && TypesEqual(a.Elem, b.Elem)
	case Scalar:
		b, ok := b.(Scalar)
		return ok && a.Name == b.Name
	case Unit:
		_, ok := b.(Unit)
		return ok
	case Opaque:
		b, ok := b.(Opaque)
		return ok && a.Name == b.Name
	default:
		return false
	}
}

// PeelRefs strips all leading reference layers from t.
func PeelRefs(t Type) Type {
	for {
		r, ok := t.(Ref)
		if !ok {
			return t
		}
		t = r.Elem
	}
}

// TypeRegions returns all regions occurring in t, outermost first.
// Recursion placeholders (named structs without fields) terminate the walk.
func TypeRegions(t Type) []Region {
	var regions []Region
	var walk func(Type)
	walk = func(t Type) {
		switch t := t.(type) {
		case Ref:
			regions = append(regions, t.Region)
			walk(t.Elem)
		case Struct:
			for _, f := range t.Fields {
				walk(f.Type)
			}
		case Tuple:
			for _, e := range t.Elems {
				walk(e)
			}
		case Array:
			walk(t.Elem)
		}
	}
	walk(t)
	return regions
}
