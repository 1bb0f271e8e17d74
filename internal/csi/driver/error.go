package driver

import "fmt"

// OpError is a driver status surfaced from a single radio operation. The
// controller propagates it unchanged to its caller.
type OpError struct {
	Op  string // The failing driver call, e.g. "set_csi_config"
	Err error
}

func NewOpError(op string, err error) *OpError {
	return &OpError{op, err}
}

func (e *OpError) Error() string {
	return fmt.Sprintf("driver: %s: %s", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}
