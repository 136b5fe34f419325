// Package probe instruments a running Go program: it owns a pin registry,
// a log sink and the HTTP server that exposes both, and offers the helpers
// a program uses to publish variables and wait on remote events.
//
// A Probe is an ordinary value. Programs that want one per process create
// it in main and pass it down.
//
//	p, err := probe.New(&cfg)
//	counter, _ := registry.Bind(p.Registry(), "counter", 0)
//	ready, _ := p.AddDebugProbe("ready")
//	go p.Run(ctx)
//	ready.WaitOnce(eventsync.Lock, eventsync.NoTimeout)
package probe

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/tailored-agentic-units/probe/eventsync"
	"github.com/tailored-agentic-units/probe/logsink"
	"github.com/tailored-agentic-units/probe/observability"
	"github.com/tailored-agentic-units/probe/pin"
	"github.com/tailored-agentic-units/probe/registry"
	"github.com/tailored-agentic-units/probe/server"
)

// Probe event types.
const (
	EventRunStart    observability.EventType = "probe.run.start"
	EventRunComplete observability.EventType = "probe.run.complete"
)

// Option configures a Probe after config-driven initialization.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	observer observability.Observer
	registry *registry.Registry
	sink     *logsink.Sink
}

// WithLogger sets the logger for console output. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithObserver replaces the console observer selected by Config.Observer.
// Warnings are still copied to the log sink.
func WithObserver(obs observability.Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithRegistry uses an existing registry instead of creating one.
func WithRegistry(r *registry.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithSink uses an existing log sink instead of creating one.
func WithSink(s *logsink.Sink) Option {
	return func(o *options) { o.sink = s }
}

// Probe composes a registry, a log sink and a server.
type Probe struct {
	cfg      Config
	logger   *slog.Logger
	observer observability.Observer
	registry *registry.Registry
	logs     *logsink.Sink
	server   *server.Server
}

// New creates a Probe from configuration. Zero fields of cfg take their
// defaults.
func New(cfg *Config, opts ...Option) (*Probe, error) {
	merged := DefaultConfig()
	if cfg != nil {
		merged.Merge(cfg)
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if o.logger == nil {
		o.logger = slog.Default()
	}

	console := o.observer
	if console == nil {
		if merged.Observer == defaultObserver {
			console = observability.NewSlogObserver(o.logger)
		} else {
			obs, err := observability.GetObserver(merged.Observer)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve observer: %w", err)
			}
			console = obs
		}
	}

	logs := o.sink
	if logs == nil {
		logs = logsink.New(merged.Logs)
	}

	observer := observability.NewMultiObserver(
		console,
		logsink.NewObserver(logs, merged.Logs.Level),
	)

	reg := o.registry
	if reg == nil {
		reg = registry.New(registry.WithObserver(observer))
	}

	srv := server.New(reg, logs, merged.Server,
		server.WithObserver(observer),
		server.WithShutdownTimeout(merged.ShutdownTimeout.Std()),
	)

	return &Probe{
		cfg:      merged,
		logger:   o.logger,
		observer: observer,
		registry: reg,
		logs:     logs,
		server:   srv,
	}, nil
}

// Config returns the effective configuration.
func (p *Probe) Config() Config {
	return p.cfg
}

// Registry returns the pin registry.
func (p *Probe) Registry() *registry.Registry {
	return p.registry
}

// Logs returns the log sink.
func (p *Probe) Logs() *logsink.Sink {
	return p.logs
}

// Server returns the HTTP server.
func (p *Probe) Server() *server.Server {
	return p.server
}

// Observer returns the observer that receives events from every component.
func (p *Probe) Observer() observability.Observer {
	return p.observer
}

// AddPin publishes value under name.
func (p *Probe) AddPin(name string, value any, opts ...pin.Option) (*pin.Pin, error) {
	return p.registry.AddPin(name, value, opts...)
}

// AddEventPin publishes an event pin under name.
func (p *Probe) AddEventPin(name string, opts ...pin.Option) (*pin.Pin, error) {
	return p.registry.AddEvent(name, opts...)
}

// AddDebugProbe publishes an event pin and returns a synchronizer armed by
// it, using the configured duty cycle.
func (p *Probe) AddDebugProbe(name string, opts ...pin.Option) (*eventsync.Synchronizer, error) {
	ev, err := p.registry.AddEvent(name, opts...)
	if err != nil {
		return nil, err
	}
	return eventsync.New(ev,
		eventsync.WithDutyCycle(p.cfg.Sync.DutyCycle.Std()),
		eventsync.WithObserver(p.observer),
	)
}

// CaptureAll publishes every supported entry of vars under namespace.
func (p *Probe) CaptureAll(namespace string, vars map[string]any) []*pin.Pin {
	return registry.CaptureAll(p.registry, namespace, vars)
}

// AppendLog adds message to the log sink.
func (p *Probe) AppendLog(message string) logsink.Entry {
	return p.logs.Append(message)
}

// LogHandler returns a slog.Handler that writes into the log sink.
func (p *Probe) LogHandler(opts *slog.HandlerOptions) slog.Handler {
	return logsink.NewHandler(p.logs, opts)
}

// Run serves until ctx is canceled, running workers alongside the server.
// The first worker or server error cancels the rest and is returned. A
// worker returning nil does not stop the server.
func (p *Probe) Run(ctx context.Context, workers ...func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)

	observability.Emit(ctx, p.observer, EventRunStart, observability.LevelInfo, "probe.Run", map[string]any{
		"addr":    p.cfg.Server.Addr,
		"pins":    p.registry.Len(),
		"workers": len(workers),
	})

	g.Go(func() error {
		return p.server.ListenAndServe(gctx)
	})
	for _, w := range workers {
		g.Go(func() error {
			return w(gctx)
		})
	}

	err := g.Wait()
	observability.Emit(context.Background(), p.observer, EventRunComplete, observability.LevelInfo, "probe.Run", map[string]any{
		"error": err != nil,
	})
	return err
}
