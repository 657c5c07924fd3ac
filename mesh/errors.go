package mesh

import "errors"

// Rejection reasons returned by the topological operators. A rejected
// operation leaves the mesh untouched.
var (
	ErrTopology          = errors.New("mesh: topology rule violated")
	ErrInverted          = errors.New("mesh: operation would invert a face")
	ErrTooShort          = errors.New("mesh: resulting edge below minimum length")
	ErrDead              = errors.New("mesh: element has been removed")
	ErrIllegalTransition = errors.New("mesh: illegal EoL state transition")
)
