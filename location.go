package aliases

import "github.com/placeset/aliases/ir"

// LocationDomain is the ordered set of program points of one body,
// together with its argument places. It is owned by the engine and
// shared with the outer dataflow solver; callers must not mutate it.
type LocationDomain struct {
	locations []ir.Location
	argPlaces []ir.Place
}

func newLocationDomain(body *ir.Body) *LocationDomain {
	args := body.Args()
	argPlaces := make([]ir.Place, len(args))
	for i, arg := range args {
		argPlaces[i] = ir.MakePlace(arg)
	}
	return &LocationDomain{
		locations: body.Locations(),
		argPlaces: argPlaces,
	}
}

// Locations returns every program point of the body in traversal order.
func (d *LocationDomain) Locations() []ir.Location { return d.locations }

// ArgPlaces returns one place per argument, in declaration order.
func (d *LocationDomain) ArgPlaces() []ir.Place { return d.argPlaces }

func (d *LocationDomain) Len() int { return len(d.locations) }
