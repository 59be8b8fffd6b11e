package aliases

import "fmt"

// PointerMode selects how aggressively pointers of equal pointee type are
// assumed to alias.
type PointerMode int

const (
	// PointerModePrecise trusts the supplied subset facts alone.
	PointerModePrecise PointerMode = iota
	// PointerModeConservative additionally collapses any two pointers
	// with equal pointee types into one aliasing class. A deliberate
	// precision trade-off, off by default.
	PointerModeConservative
)

func (m PointerMode) String() string {
	switch m {
	case PointerModePrecise:
		return "precise"
	case PointerModeConservative:
		return "conservative"
	default:
		return fmt.Sprintf("PointerMode(%d)", int(m))
	}
}

func ParsePointerMode(s string) (PointerMode, error) {
	switch s {
	case "precise":
		return PointerModePrecise, nil
	case "conservative":
		return PointerModeConservative, nil
	default:
		return 0, fmt.Errorf("unknown pointer mode %q", s)
	}
}

// MutabilityMode selects whether immutable references count toward
// mutable-reachable sets.
type MutabilityMode int

const (
	// DistinguishMut only follows mutable references when computing
	// what a call may write through its arguments.
	DistinguishMut MutabilityMode = iota
	// IgnoreMut treats every reference as potentially written through.
	IgnoreMut
)

func (m MutabilityMode) String() string {
	switch m {
	case DistinguishMut:
		return "distinguish-mut"
	case IgnoreMut:
		return "ignore-mut"
	default:
		return fmt.Sprintf("MutabilityMode(%d)", int(m))
	}
}

func ParseMutabilityMode(s string) (MutabilityMode, error) {
	switch s {
	case "distinguish-mut":
		return DistinguishMut, nil
	case "ignore-mut":
		return IgnoreMut, nil
	default:
		return 0, fmt.Errorf("unknown mutability mode %q", s)
	}
}

// Config fixes the behavioral knobs of one engine instance. It is read
// once at construction and never consulted from ambient state; changing
// modes requires building a new engine.
type Config struct {
	PointerMode    PointerMode
	MutabilityMode MutabilityMode
}
