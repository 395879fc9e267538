package axle

import "errors"

var (
	// ErrDoesNotExist reports that a query found nothing to borrow from:
	// the requested resource or component is not in the world.
	ErrDoesNotExist = errors.New("axle: requested value does not exist")

	// ErrWorldMismatch reports a system bound to one world being run
	// against another.
	ErrWorldMismatch = errors.New("axle: system is bound to a different world")
)
