package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/probe/eventsync"
	"github.com/tailored-agentic-units/probe/pin"
	"github.com/tailored-agentic-units/probe/probe"
	"github.com/tailored-agentic-units/probe/registry"
)

// serveOptions holds flags for the serve command.
type serveOptions struct {
	*rootOptions
	Config   string
	Addr     string
	Interval time.Duration
}

func newServeCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &serveOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a demo program behind a probe dashboard",
		Long: `Run a demo program behind a probe dashboard.

The program counts while "enabled" is true, stepping by "step", and logs
every tick to the dashboard. Triggering "done" logs its payload.

Examples:
  probe serve
  probe serve --addr :9000 --interval 250ms
  probe serve --config probe.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to config file (.json, .hujson, .yaml)")
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().DurationVar(&opts.Interval, "interval", time.Second, "demo tick interval")

	return cmd
}

func runServe(opts *serveOptions, cmd *cobra.Command) error {
	cfg := probe.DefaultConfig()
	if opts.Config != "" {
		loaded, err := probe.LoadConfig(opts.Config)
		if err != nil {
			return wrapExitError(exitCommandError, "failed to load config", err)
		}
		cfg = *loaded
	}
	if opts.Addr != "" {
		cfg.Server.Addr = opts.Addr
	}

	logger := opts.logger(cmd)
	p, err := probe.New(&cfg, probe.WithLogger(logger))
	if err != nil {
		return wrapExitError(exitCommandError, "failed to create probe", err)
	}

	d, err := newDemo(p, opts.Interval)
	if err != nil {
		return wrapExitError(exitFailure, "failed to publish demo pins", err)
	}

	logger.Info("Serving probe dashboard", "addr", cfg.Server.Addr, "pins", p.Registry().Len())
	if err := p.Run(cmd.Context(), d.run); err != nil {
		return wrapExitError(exitFailure, "probe stopped", err)
	}
	return nil
}

// demo is the instrumented program run by "probe serve".
type demo struct {
	interval time.Duration
	logger   *slog.Logger
	counter  *registry.Var[int]
	step     *registry.Var[float64]
	enabled  *registry.Var[bool]
	tags     *registry.Var[[]string]
	done     *eventsync.Synchronizer
}

func newDemo(p *probe.Probe, interval time.Duration) (*demo, error) {
	reg := p.Registry()
	ns := pin.WithNamespace("demo")

	counter, err := registry.Bind(reg, "counter", 0, ns)
	if err != nil {
		return nil, err
	}
	step, err := registry.Bind(reg, "step", 1.0, ns)
	if err != nil {
		return nil, err
	}
	enabled, err := registry.Bind(reg, "enabled", true, ns)
	if err != nil {
		return nil, err
	}
	tags, err := registry.Bind(reg, "tags", []string{"demo"}, ns)
	if err != nil {
		return nil, err
	}

	mode, err := pin.NewEnum("mode", "steady", []string{"steady", "burst"}, ns)
	if err != nil {
		return nil, err
	}
	if err := reg.Register(mode); err != nil {
		return nil, err
	}

	p.CaptureAll("build", map[string]any{
		"started": time.Now().Format(time.RFC3339),
		"go":      true,
	})

	done, err := p.AddDebugProbe("done", ns)
	if err != nil {
		return nil, err
	}

	return &demo{
		interval: interval,
		logger:   slog.New(p.LogHandler(nil)),
		counter:  counter,
		step:     step,
		enabled:  enabled,
		tags:     tags,
		done:     done,
	}, nil
}

func (d *demo) run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	var total float64
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if d.enabled.Get() {
			total += d.step.Get()
			d.counter.Set(int(total))
			d.logger.Info("tick", "counter", d.counter.Get(), "tags", d.tags.Get())
		}

		if d.done.IsLocked() {
			d.logger.Info("done triggered", "payload", d.done.LockValue())
			d.done.Reset()
		}
	}
}
