package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/probe/logsink"
	"github.com/tailored-agentic-units/probe/pin"
	"github.com/tailored-agentic-units/probe/registry"
)

func newPinsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pins",
		Short: "List the pins of a probe server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			descs, err := opts.client().ListPins(cmd.Context())
			if err != nil {
				return wrapExitError(exitFailure, "failed to list pins", err)
			}

			out := output{format: opts.Format, w: cmd.OutOrStdout()}
			return out.write(descs, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tTYPE\tNAMESPACE\tACCESS\tVALUE")
				for _, d := range descs {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.Name, d.Kind, d.Namespace, access(d), formatValue(d))
				}
				tw.Flush()
			})
		},
	}
}

func access(d pin.Description) string {
	var b strings.Builder
	if d.Readable {
		b.WriteByte('r')
	} else {
		b.WriteByte('-')
	}
	if d.Writable {
		b.WriteByte('w')
	} else {
		b.WriteByte('-')
	}
	return b.String()
}

func formatValue(d pin.Description) string {
	if !d.Readable {
		return ""
	}
	return render(d.Value)
}

func newReadCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "read NAME...",
		Short: "Read pin values",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.client().Exchange(cmd.Context(), registry.Request{ReadPins: args})
			if err != nil {
				return wrapExitError(exitFailure, "failed to read pins", err)
			}

			out := output{format: opts.Format, w: cmd.OutOrStdout()}
			return out.write(resp.ReadPins, func(w io.Writer) {
				for _, name := range args {
					fmt.Fprintf(w, "%s=%s\n", name, render(resp.ReadPins[name]))
				}
			})
		},
	}
}

func newWriteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "write NAME=VALUE...",
		Short: "Write pin values in one request",
		Long: `Write pin values in one request. Every assignment is validated before
any is applied.

VALUE is parsed as JSON when it is valid JSON and taken as a string
otherwise, so counter=5 writes a number and label=hello writes a string.

Examples:
  probe write counter=5
  probe write enabled=false tags='["a","b"]'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			writes := make(map[string]any, len(args))
			names := make([]string, 0, len(args))
			for _, arg := range args {
				name, raw, ok := strings.Cut(arg, "=")
				if !ok || name == "" {
					return newExitError(exitCommandError, fmt.Sprintf("invalid assignment %q: want NAME=VALUE", arg))
				}
				writes[name] = parseValue(raw)
				names = append(names, name)
			}

			client := opts.client()
			descs, err := client.ListPins(cmd.Context())
			if err != nil {
				return wrapExitError(exitFailure, "failed to list pins", err)
			}

			resp, err := client.Exchange(cmd.Context(), registry.Request{
				WritePins: writes,
				ReadPins:  readable(descs, names),
			})
			if err != nil {
				return wrapExitError(exitFailure, "failed to write pins", err)
			}

			out := output{format: opts.Format, w: cmd.OutOrStdout()}
			return out.write(resp.ReadPins, func(w io.Writer) {
				for _, name := range names {
					if v, ok := resp.ReadPins[name]; ok {
						fmt.Fprintf(w, "%s=%s\n", name, render(v))
					} else {
						fmt.Fprintf(w, "%s written\n", name)
					}
				}
			})
		},
	}
}

// readable returns the names whose pins can be read back, in order. Names
// missing from descs are kept so the server reports them as unknown.
func readable(descs []pin.Description, names []string) []string {
	known := make(map[string]bool, len(descs))
	for _, d := range descs {
		known[d.Name] = d.Readable
	}

	out := make([]string, 0, len(names))
	for _, name := range names {
		if r, ok := known[name]; !ok || r {
			out = append(out, name)
		}
	}
	return out
}

func newTriggerCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "trigger NAME [PAYLOAD]",
		Short: "Fire an event pin",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload any
			if len(args) == 2 {
				payload = parseValue(args[1])
			}

			if err := opts.client().Trigger(cmd.Context(), args[0], payload); err != nil {
				return wrapExitError(exitFailure, "failed to trigger "+args[0], err)
			}

			out := output{format: opts.Format, w: cmd.OutOrStdout()}
			return out.write(map[string]any{"triggered": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "triggered %s\n", args[0])
			})
		},
	}
}

// logsOptions holds flags for the logs command.
type logsOptions struct {
	*rootOptions
	Since    float64
	Follow   bool
	Interval time.Duration
}

func newLogsCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &logsOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the log of a probe server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogs(opts, cmd)
		},
	}

	cmd.Flags().Float64Var(&opts.Since, "since", 0, "only entries at or after this Unix time in seconds")
	cmd.Flags().BoolVarP(&opts.Follow, "follow", "f", false, "keep polling for new entries")
	cmd.Flags().DurationVar(&opts.Interval, "interval", time.Second, "poll interval with --follow")

	return cmd
}

func runLogs(opts *logsOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	client := opts.client()
	out := output{format: opts.Format, w: cmd.OutOrStdout()}

	var watermark time.Time
	if opts.Since > 0 {
		watermark = logsink.FromUnixSeconds(opts.Since)
	}
	seen := make(map[string]time.Time)

	for {
		entries, err := client.ReadLogs(ctx, watermark)
		if err != nil {
			if opts.Follow && ctx.Err() != nil {
				return nil
			}
			return wrapExitError(exitFailure, "failed to read logs", err)
		}

		fresh := make([]logsink.Entry, 0, len(entries))
		for _, e := range entries {
			if _, ok := seen[e.ID]; ok {
				continue
			}
			seen[e.ID] = e.Timestamp
			fresh = append(fresh, e)
		}

		// Since is inclusive, so the next poll returns the entries stamped
		// at the watermark again; seen filters them.
		if n := len(entries); n > 0 {
			watermark = entries[n-1].Timestamp
			for id, ts := range seen {
				if ts.Before(watermark) {
					delete(seen, id)
				}
			}
		}

		if len(fresh) > 0 || !opts.Follow {
			if err := out.write(fresh, func(w io.Writer) {
				for _, e := range fresh {
					fmt.Fprintf(w, "%s %s\n", e.Timestamp.Format(time.RFC3339Nano), e.Message)
				}
			}); err != nil {
				return err
			}
		}

		if !opts.Follow {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(opts.Interval):
		}
	}
}

// parseValue decodes raw as JSON, falling back to the raw string.
func parseValue(raw string) any {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return raw
	}
	return v
}

func render(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimSpace(buf.String())
}
