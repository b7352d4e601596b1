package grid

import "errors"

var (
	// ErrOutOfBounds is returned for positions outside [0,width)x[0,height).
	ErrOutOfBounds = errors.New("position out of bounds")
	// ErrNoTarget is returned by queries that need a target before one is set.
	ErrNoTarget = errors.New("target point not set")
)
