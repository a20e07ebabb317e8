package probe

import "errors"

// Sentinel kinds for probe errors.
var (
	ErrUnreachable = errors.New("bridge unreachable")
	ErrNoSnapshot  = errors.New("bridge has no snapshot")
)
