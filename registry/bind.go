package registry

import (
	"github.com/tailored-agentic-units/probe/pin"
)

// Value is the set of Go types that can be bound to a pin.
type Value interface {
	int | int64 | float64 | bool | string | []string
}

// Var is a typed handle on a registered pin. It is how instrumented code
// reads and updates a variable that a remote controller can also see and
// change.
type Var[T Value] struct {
	pin *pin.Pin
}

// Bind registers a pin named name holding initial and returns a typed
// accessor for it. Remote writes are visible through Get; Set updates the
// value from the owning program.
func Bind[T Value](r *Registry, name string, initial T, opts ...pin.Option) (*Var[T], error) {
	p, err := r.AddPin(name, initial, opts...)
	if err != nil {
		return nil, err
	}
	return &Var[T]{pin: p}, nil
}

// Pin returns the underlying pin.
func (v *Var[T]) Pin() *pin.Pin {
	return v.pin
}

// Get returns the current value converted to T.
func (v *Var[T]) Get() T {
	val, err := v.pin.Read()
	if err != nil {
		var zero T
		return zero
	}
	return convert[T](val)
}

// Set stores value. It succeeds on read-only pins since the owner is
// allowed to update what it exposes.
func (v *Var[T]) Set(value T) error {
	return v.pin.Set(value)
}

// Accessors returns the getter and setter pair for hosts that wire
// accessors into their own structures.
func (v *Var[T]) Accessors() (func() T, func(T) error) {
	return v.Get, v.Set
}

func convert[T Value](val any) T {
	var out T
	switch dst := any(&out).(type) {
	case *int:
		*dst = int(asInt64(val))
	case *int64:
		*dst = asInt64(val)
	case *float64:
		*dst, _ = pin.Float64(val)
	case *bool:
		*dst, _ = val.(bool)
	case *string:
		*dst, _ = val.(string)
	case *[]string:
		*dst, _ = val.([]string)
	}
	return out
}

func asInt64(val any) int64 {
	switch n := val.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	}
	return 0
}
