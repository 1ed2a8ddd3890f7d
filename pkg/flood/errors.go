package flood

import "errors"

var (
	// ErrConfig is the base of all configuration errors: nil operations,
	// non-positive worker or iteration counts, empty composites.
	ErrConfig = errors.New("invalid flood configuration")

	// ErrState is the base of all lifecycle protocol errors, returned when a
	// transition is requested from a state that does not permit it.
	ErrState = errors.New("illegal flood state")

	// ErrOwned is returned for lifecycle calls on a unit whose lifecycle
	// belongs to the composite it was built into.
	ErrOwned = errors.New("flood unit lifecycle owned by its composite")
)
