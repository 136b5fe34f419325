package pin

import (
	"context"
	"fmt"
	"slices"

	"github.com/tailored-agentic-units/probe/observability"
)

// AddListener appends l to the event pin's listeners. Listeners are not
// de-duplicated; adding the same function twice runs it twice.
func (p *Pin) AddListener(l Listener) error {
	if p.kind != KindEvent {
		return fmt.Errorf("%w: %s", ErrNotEvent, p.name)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, l)
	return nil
}

// AddFunc registers a listener that ignores the payload.
func (p *Pin) AddFunc(f func()) error {
	return p.AddListener(func(any) error {
		f()
		return nil
	})
}

// Listeners returns the number of listeners attached to an event pin.
func (p *Pin) Listeners() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.listeners)
}

// trigger runs every listener in registration order on the caller's
// goroutine. The listener slice is copied first so a listener may attach
// further listeners without deadlocking; those run from the next trigger.
func (p *Pin) trigger(payload any) {
	p.mu.RLock()
	listeners := slices.Clone(p.listeners)
	p.mu.RUnlock()

	for i, l := range listeners {
		if err := invoke(l, payload); err != nil {
			observability.Emit(context.Background(), p.observer, EventListenerFailed, observability.LevelError, "pin.Write", map[string]any{
				"pin":      p.name,
				"listener": i,
				"error":    fmt.Errorf("%w: %w", ErrListenerFailure, err).Error(),
			})
		}
	}
}

func invoke(l Listener, payload any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return l(payload)
}
