package registry

import (
	"errors"
	"fmt"
)

// Sentinel errors for registry operations.
var (
	ErrUnknownName = errors.New("unknown pin")
	ErrEmptyName   = errors.New("pin name is empty")
)

// ExchangeError identifies the pin and direction that rejected an Exchange.
// It unwraps to the underlying sentinel (ErrUnknownName, pin.ErrNotWritable,
// pin.ErrNotReadable or pin.ErrTypeMismatch).
type ExchangeError struct {
	Op   string // "write" or "read"
	Name string
	Err  error
}

// Error implements the error interface.
func (e *ExchangeError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Name, e.Err)
}

// Unwrap enables error unwrapping for errors.Is and errors.As.
func (e *ExchangeError) Unwrap() error {
	return e.Err
}
