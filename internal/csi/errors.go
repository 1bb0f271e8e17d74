package csi

import "errors"

var (
	// ErrNoMemory is returned when the frame buffer cannot be allocated.
	// The buffer is left uninitialized; the caller may retry with a
	// smaller capacity.
	ErrNoMemory = errors.New("csi: out of memory")

	// ErrInvalidArg is returned when an operation is given a nil or
	// out-of-range argument. No state is mutated.
	ErrInvalidArg = errors.New("csi: invalid argument")
)
