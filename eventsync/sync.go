// Package eventsync blocks a goroutine until an event pin fires.
//
// A Synchronizer binds to an event pin and behaves as a latch: any write to
// the pin arms it and records the payload, and only Reset (or the end of a
// WaitOnce) disarms it. A second trigger while armed overwrites the payload;
// triggers are never queued.
//
//	done, _ := reg.AddEvent("done")
//	s, _ := eventsync.New(done)
//	if err := s.Wait(eventsync.Lock, 5*time.Second); errors.Is(err, eventsync.ErrTimeout) {
//		// nobody pressed the button
//	}
//	payload := s.LockValue()
//
// Waiters are woken as soon as the state changes. They also re-check their
// condition once per duty cycle, so predicates over state outside the
// synchronizer are still observed with bounded latency.
package eventsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tailored-agentic-units/probe/observability"
	"github.com/tailored-agentic-units/probe/pin"
)

const (
	// DefaultDutyCycle is the interval at which waiters re-check their
	// condition without a state change.
	DefaultDutyCycle = 100 * time.Millisecond

	// NoTimeout makes a wait block until its condition holds.
	NoTimeout time.Duration = -1
)

const (
	EventArmed    observability.EventType = "eventsync.armed"
	EventReset    observability.EventType = "eventsync.reset"
	EventTimedOut observability.EventType = "eventsync.timeout"
)

// State is a snapshot of a synchronizer.
type State struct {
	Armed    bool
	Payload  any    // last payload delivered, nil until the first trigger
	Triggers uint64 // number of triggers received
}

// Synchronizer is an arm/wait/reset latch over an event pin. Many
// synchronizers may bind to the same pin; each receives every trigger.
type Synchronizer struct {
	name      string
	dutyCycle time.Duration
	observer  observability.Observer

	mu      sync.Mutex
	state   State
	changed chan struct{}
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithArmed sets the initial armed state.
func WithArmed(armed bool) Option {
	return func(s *Synchronizer) { s.state.Armed = armed }
}

// WithDutyCycle sets the re-check interval. Non-positive values keep
// DefaultDutyCycle.
func WithDutyCycle(d time.Duration) Option {
	return func(s *Synchronizer) {
		if d > 0 {
			s.dutyCycle = d
		}
	}
}

// WithObserver receives arm, reset and timeout events.
func WithObserver(obs observability.Observer) Option {
	return func(s *Synchronizer) { s.observer = obs }
}

// New binds a Synchronizer to the event pin ev.
func New(ev *pin.Pin, opts ...Option) (*Synchronizer, error) {
	if ev.Kind() != pin.KindEvent {
		return nil, fmt.Errorf("%w: %s", pin.ErrNotEvent, ev.Name())
	}

	s := &Synchronizer{
		name:      ev.Name(),
		dutyCycle: DefaultDutyCycle,
		changed:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := ev.AddListener(func(payload any) error {
		s.Trigger(payload)
		return nil
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// Name returns the name of the bound event pin.
func (s *Synchronizer) Name() string {
	return s.name
}

// DutyCycle returns the re-check interval.
func (s *Synchronizer) DutyCycle() time.Duration {
	return s.dutyCycle
}

// Trigger arms the synchronizer with payload. It is called for every write
// to the bound pin and may be called directly by local code. It never
// blocks on waiters.
func (s *Synchronizer) Trigger(payload any) {
	s.mu.Lock()
	s.state.Armed = true
	s.state.Payload = payload
	s.state.Triggers++
	s.notifyLocked()
	s.mu.Unlock()

	observability.Emit(context.Background(), s.observer, EventArmed, observability.LevelVerbose, "eventsync.Trigger", map[string]any{
		"event": s.name,
	})
}

// Reset disarms the synchronizer. The last payload is kept.
func (s *Synchronizer) Reset() {
	s.mu.Lock()
	wasArmed := s.state.Armed
	s.resetLocked()
	s.mu.Unlock()

	if wasArmed {
		observability.Emit(context.Background(), s.observer, EventReset, observability.LevelVerbose, "eventsync.Reset", map[string]any{
			"event": s.name,
		})
	}
}

func (s *Synchronizer) resetLocked() {
	if s.state.Armed {
		s.state.Armed = false
		s.notifyLocked()
	}
}

// notifyLocked wakes every waiter by closing the current change channel.
func (s *Synchronizer) notifyLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}

// State returns a snapshot of the synchronizer.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsLocked reports whether the synchronizer is armed.
func (s *Synchronizer) IsLocked() bool {
	return s.State().Armed
}

// LockValue returns the last payload delivered.
func (s *Synchronizer) LockValue() any {
	return s.State().Payload
}
