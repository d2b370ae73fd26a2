package validation

import (
	"errors"
	"fmt"
)

// State is the position of a run in Idle → Tracing → Sanitizing → Finalized.
type State int

const (
	Idle State = iota
	Tracing
	Sanitizing
	Finalized
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Tracing:
		return "tracing"
	case Sanitizing:
		return "sanitizing"
	case Finalized:
		return "finalized"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ErrInvalidState is returned for an out-of-order transition.
var ErrInvalidState = errors.New("invalid validation state")

func transitionError(from, to State) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidState, from, to)
}
