package pin

import "errors"

// Sentinel errors for pin access. Callers match them with errors.Is; the
// returned errors wrap them with the pin name.
var (
	ErrUnsupportedType = errors.New("unsupported value type")
	ErrTypeMismatch    = errors.New("value does not match pin kind")
	ErrNotReadable     = errors.New("pin is not readable")
	ErrNotWritable     = errors.New("pin is not writable")
	ErrNotEvent        = errors.New("pin is not an event")
	ErrListenerFailure = errors.New("event listener failed")
)
