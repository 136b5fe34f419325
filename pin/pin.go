// Package pin implements the typed, concurrency-safe value cells that a
// running program exposes to a remote controller.
//
// A Pin holds one named value of a fixed Kind. Event pins hold no value;
// writing to one runs its listeners instead:
//
//	counter := pin.NewNumeric("counter", 0)
//	counter.Write(5)
//	v, _ := counter.Read() // int64(5)
//
//	done := pin.NewEvent("done")
//	done.AddListener(func(payload any) error { ... })
//	done.Write(42)
package pin

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/tailored-agentic-units/probe/observability"
)

const (
	EventListenerFailed observability.EventType = "pin.listener.failed"
	EventWritten        observability.EventType = "pin.written"
)

// Listener receives the payload written to an event pin.
type Listener func(payload any) error

// Pin is a named cell holding a single value of a fixed Kind. All methods
// are safe for concurrent use; each pin is guarded by its own lock so
// operations on different pins never contend.
type Pin struct {
	name      string
	namespace string
	kind      Kind
	options   []string
	readable  bool
	writable  bool
	template  Template
	observer  observability.Observer

	mu        sync.RWMutex
	value     any
	listeners []Listener
}

// Option configures a Pin at construction.
type Option func(*Pin)

// WithNamespace groups the pin under a label shown on the dashboard.
func WithNamespace(namespace string) Option {
	return func(p *Pin) { p.namespace = namespace }
}

// ReadOnly rejects remote writes. The owning program can still update the
// value through Set.
func ReadOnly() Option {
	return func(p *Pin) { p.writable = false }
}

// WithObserver receives listener failures and write notifications.
func WithObserver(obs observability.Observer) Option {
	return func(p *Pin) { p.observer = obs }
}

// WithTemplate overrides the generated presentation fragments. Empty
// fields keep the generated default.
func WithTemplate(t Template) Option {
	return func(p *Pin) { p.template = t }
}

func newPin(name string, kind Kind, opts []Option) *Pin {
	p := &Pin{
		name:     name,
		kind:     kind,
		readable: kind != KindEvent,
		writable: kind != KindImage,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// New creates a pin whose kind is chosen from the type of value (see
// KindOf). It fails with ErrUnsupportedType when no kind matches.
func New(name string, value any, opts ...Option) (*Pin, error) {
	kind, err := KindOf(value)
	if err != nil {
		return nil, fmt.Errorf("pin %s: %w", name, err)
	}
	p := newPin(name, kind, opts)
	if p.value, err = normalize(kind, value, nil); err != nil {
		return nil, fmt.Errorf("pin %s: %w", name, err)
	}
	return p, nil
}

// Number is the set of Go types a numeric pin accepts.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// NewNumeric creates a numeric pin.
func NewNumeric[N Number](name string, value N, opts ...Option) *Pin {
	p := newPin(name, KindNumeric, opts)
	p.value, _ = number(value)
	return p
}

// NewBoolean creates a boolean pin.
func NewBoolean(name string, value bool, opts ...Option) *Pin {
	p := newPin(name, KindBoolean, opts)
	p.value = value
	return p
}

// NewString creates a string pin.
func NewString(name, value string, opts ...Option) *Pin {
	p := newPin(name, KindString, opts)
	p.value = value
	return p
}

// NewList creates a list-of-strings pin.
func NewList(name string, value []string, opts ...Option) *Pin {
	p := newPin(name, KindList, opts)
	p.value = slices.Clone(value)
	return p
}

// NewEnum creates an enum pin restricted to options. An empty option set
// accepts any string.
func NewEnum(name, value string, options []string, opts ...Option) (*Pin, error) {
	p := newPin(name, KindEnum, opts)
	p.options = slices.Clone(options)
	v, err := normalize(KindEnum, value, p.options)
	if err != nil {
		return nil, fmt.Errorf("pin %s: %w", name, err)
	}
	p.value = v
	return p, nil
}

// NewImage creates a read-only image pin. The value is an image URL,
// typically a data URL produced by the owning program.
func NewImage(name, value string, opts ...Option) *Pin {
	p := newPin(name, KindImage, opts)
	p.value = value
	p.writable = false
	return p
}

// NewEvent creates an event pin with no listeners.
func NewEvent(name string, opts ...Option) *Pin {
	return newPin(name, KindEvent, opts)
}

func (p *Pin) Name() string      { return p.name }
func (p *Pin) Namespace() string { return p.namespace }
func (p *Pin) Kind() Kind        { return p.kind }
func (p *Pin) Readable() bool    { return p.readable }
func (p *Pin) Writable() bool    { return p.writable }

// Options returns the allowed values of an enum pin.
func (p *Pin) Options() []string {
	return slices.Clone(p.options)
}

// Read returns the current value. Event pins and pins created unreadable
// fail with ErrNotReadable.
func (p *Pin) Read() (any, error) {
	if !p.readable {
		return nil, fmt.Errorf("%w: %s", ErrNotReadable, p.name)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	return clone(p.value), nil
}

// Write stores v, or triggers the listeners of an event pin. It fails with
// ErrNotWritable on read-only pins and ErrTypeMismatch when v cannot be
// held by the pin's kind; the stored value is unchanged on failure.
func (p *Pin) Write(v any) error {
	if !p.writable {
		return fmt.Errorf("%w: %s", ErrNotWritable, p.name)
	}
	return p.Set(v)
}

// Set is the owner-side write: it ignores the writable flag so the
// instrumented program can update pins it exposes read-only.
func (p *Pin) Set(v any) error {
	if p.kind == KindEvent {
		p.trigger(v)
		return nil
	}

	nv, err := p.Conform(v)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.value = nv
	p.mu.Unlock()

	observability.Emit(context.Background(), p.observer, EventWritten, observability.LevelVerbose, "pin.Write", map[string]any{
		"pin": p.name,
	})
	return nil
}

// Conform returns v converted to the representation the pin stores, or
// ErrTypeMismatch. It does not modify the pin. Any payload conforms to an
// event pin.
func (p *Pin) Conform(v any) (any, error) {
	nv, err := normalize(p.kind, v, p.options)
	if err != nil {
		return nil, fmt.Errorf("pin %s: %w", p.name, err)
	}
	return nv, nil
}

// Description is a point-in-time snapshot of a pin used for enumeration.
type Description struct {
	Name      string   `json:"name"`
	Namespace string   `json:"namespace,omitempty"`
	Value     any      `json:"value"`
	Kind      Kind     `json:"type"`
	Options   []string `json:"options,omitempty"`
	Readable  bool     `json:"readable"`
	Writable  bool     `json:"writable"`
	Template  Template `json:"html_template"`
}

// Describe snapshots the pin. The lock is held only while the value is
// copied out.
func (p *Pin) Describe() Description {
	var value any
	if p.kind != KindEvent {
		p.mu.RLock()
		value = clone(p.value)
		p.mu.RUnlock()
	}

	return Description{
		Name:      p.name,
		Namespace: p.namespace,
		Value:     value,
		Kind:      p.kind,
		Options:   slices.Clone(p.options),
		Readable:  p.readable,
		Writable:  p.writable,
		Template:  p.render(value),
	}
}
