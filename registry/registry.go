// Package registry maps pin names to pins for one instrumented process and
// dispatches bulk reads and writes against them.
//
// A Registry is created and owned by the host program and handed to
// whatever needs it; there is no package-level instance.
//
//	r := registry.New()
//	counter, _ := registry.Bind(r, "counter", 0)
//	resp, err := r.Exchange(registry.Request{
//		WritePins: map[string]any{"counter": 5},
//		ReadPins:  []string{"counter"},
//	})
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/tailored-agentic-units/probe/observability"
	"github.com/tailored-agentic-units/probe/pin"
)

const (
	EventRegistered  observability.EventType = "registry.pin.registered"
	EventReplaced    observability.EventType = "registry.pin.replaced"
	EventUnsupported observability.EventType = "registry.pin.unsupported"
)

// Registry is the name-to-pin directory of a running process. The map is
// guarded by a single lock; pin values are guarded by the pins themselves,
// so reading or writing values never holds the registry lock.
type Registry struct {
	id       string
	observer observability.Observer

	mu    sync.RWMutex
	pins  map[string]*pin.Pin
	order []string
}

// Option configures a Registry.
type Option func(*Registry)

// WithObserver receives registration events. Pins created through AddPin
// and Bind report to the same observer.
func WithObserver(obs observability.Observer) Option {
	return func(r *Registry) { r.observer = obs }
}

// New creates an empty Registry with a unique UUIDv7 identifier.
func New(opts ...Option) *Registry {
	r := &Registry{
		id:   uuid.Must(uuid.NewV7()).String(),
		pins: make(map[string]*pin.Pin),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ID returns the registry instance identifier.
func (r *Registry) ID() string {
	return r.id
}

// Observer returns the observer the registry reports to, or nil.
func (r *Registry) Observer() observability.Observer {
	return r.observer
}

// Register inserts p under its name. Registering a name that already exists
// replaces the previous pin in place; listeners attached to the old pin are
// not carried over.
func (r *Registry) Register(p *pin.Pin) error {
	if p.Name() == "" {
		return ErrEmptyName
	}

	r.mu.Lock()
	_, replaced := r.pins[p.Name()]
	r.pins[p.Name()] = p
	if !replaced {
		r.order = append(r.order, p.Name())
	}
	r.mu.Unlock()

	if replaced {
		observability.Emit(context.Background(), r.observer, EventReplaced, observability.LevelWarning, "registry.Register", map[string]any{
			"pin":  p.Name(),
			"kind": p.Kind().String(),
		})
		return nil
	}
	observability.Emit(context.Background(), r.observer, EventRegistered, observability.LevelVerbose, "registry.Register", map[string]any{
		"pin":  p.Name(),
		"kind": p.Kind().String(),
	})
	return nil
}

// Get returns the pin registered under name.
func (r *Registry) Get(name string) (*pin.Pin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.pins[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownName, name)
	}
	return p, nil
}

// Pins returns the registered pins in registration order.
func (r *Registry) Pins() []*pin.Pin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pins := make([]*pin.Pin, len(r.order))
	for i, name := range r.order {
		pins[i] = r.pins[name]
	}
	return pins
}

// List describes every pin in registration order. Each description is
// consistent on its own; descriptions of different pins may come from
// different moments.
func (r *Registry) List() []pin.Description {
	pins := r.Pins()
	descs := make([]pin.Description, len(pins))
	for i, p := range pins {
		descs[i] = p.Describe()
	}
	return descs
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len returns the number of registered pins.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Read returns the value of the named pin.
func (r *Registry) Read(name string) (any, error) {
	p, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return p.Read()
}

// Write applies a remote write to the named pin. For event pins this
// triggers the listeners.
func (r *Registry) Write(name string, value any) error {
	p, err := r.Get(name)
	if err != nil {
		return err
	}
	return p.Write(value)
}

// AddPin creates a pin from value (see pin.KindOf) and registers it.
// Unsupported value types are reported to the observer as a warning and
// returned as pin.ErrUnsupportedType so callers can skip the variable.
func (r *Registry) AddPin(name string, value any, opts ...pin.Option) (*pin.Pin, error) {
	p, err := pin.New(name, value, r.pinOptions(opts)...)
	if err != nil {
		observability.Emit(context.Background(), r.observer, EventUnsupported, observability.LevelWarning, "registry.AddPin", map[string]any{
			"pin":   name,
			"type":  fmt.Sprintf("%T", value),
			"error": err.Error(),
		})
		return nil, err
	}
	if err := r.Register(p); err != nil {
		return nil, err
	}
	return p, nil
}

// AddEvent creates and registers an event pin.
func (r *Registry) AddEvent(name string, opts ...pin.Option) (*pin.Pin, error) {
	p := pin.NewEvent(name, r.pinOptions(opts)...)
	if err := r.Register(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Registry) pinOptions(opts []pin.Option) []pin.Option {
	if r.observer == nil {
		return opts
	}
	return append([]pin.Option{pin.WithObserver(r.observer)}, opts...)
}
