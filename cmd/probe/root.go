package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/probe/server"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Server  string
	Timeout time.Duration
}

var validFormats = []string{"text", "json"}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Inspect and drive a running program",
		Long: `probe serves a live control plane for a running program and talks to one.

"probe serve" runs a demo program with a dashboard. The remaining commands
read, write and trigger pins of a probe server and tail its logs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return newExitError(exitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, validFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Server, "server", "http://localhost:8080", "probe server base URL")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 10*time.Second, "request timeout")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newPinsCommand(opts))
	cmd.AddCommand(newReadCommand(opts))
	cmd.AddCommand(newWriteCommand(opts))
	cmd.AddCommand(newTriggerCommand(opts))
	cmd.AddCommand(newLogsCommand(opts))

	return cmd
}

func (o *rootOptions) client() *server.Client {
	return server.NewClient(&http.Client{Timeout: o.Timeout}, o.Server)
}

func (o *rootOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: level,
	}))
}
