package eventsync

import "fmt"

// Condition selects what a Wait blocks for.
type Condition int

const (
	// Lock waits until the synchronizer is armed.
	Lock Condition = iota
	// Unlock waits until the synchronizer is disarmed.
	Unlock
	// Toggle waits until the armed state differs from its state when the
	// wait began.
	Toggle
)

func (c Condition) String() string {
	switch c {
	case Lock:
		return "lock"
	case Unlock:
		return "unlock"
	case Toggle:
		return "toggle"
	default:
		return fmt.Sprintf("Condition(%d)", int(c))
	}
}

// ParseCondition returns the Condition named s.
func ParseCondition(s string) (Condition, error) {
	for _, c := range []Condition{Lock, Unlock, Toggle} {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCondition, s)
}
