package aliases

import (
	"strings"

	"github.com/placeset/aliases/internal/maps"
	"github.com/placeset/aliases/ir"
)

// PlaceSet is a set of places keyed by their canonical rendering.
// Iteration via Places is sorted, so results derived from a PlaceSet are
// deterministic regardless of insertion order.
type PlaceSet struct {
	elems map[string]ir.Place
}

func NewPlaceSet(places ...ir.Place) *PlaceSet {
	s := &PlaceSet{elems: make(map[string]ir.Place, len(places))}
	for _, p := range places {
		s.Insert(p)
	}
	return s
}

// Insert adds p and reports whether the set changed.
func (s *PlaceSet) Insert(p ir.Place) bool {
	key := p.Key()
	if _, found := s.elems[key]; found {
		return false
	}
	s.elems[key] = p
	return true
}

func (s *PlaceSet) Has(p ir.Place) bool {
	_, found := s.elems[p.Key()]
	return found
}

func (s *PlaceSet) Len() int { return len(s.elems) }

// Places returns the members sorted by canonical key.
func (s *PlaceSet) Places() []ir.Place {
	places := make([]ir.Place, 0, len(s.elems))
	for _, key := range maps.SortedKeys(s.elems) {
		places = append(places, s.elems[key])
	}
	return places
}

// Subset reports whether every member of s is in t.
func (s *PlaceSet) Subset(t *PlaceSet) bool {
	if s.Len() > t.Len() {
		return false
	}
	for key := range s.elems {
		if _, found := t.elems[key]; !found {
			return false
		}
	}
	return true
}

func (s *PlaceSet) String() string {
	return "{" + strings.Join(maps.SortedKeys(s.elems), ", ") + "}"
}
