package logsink

import (
	"io"
	"log/slog"
	"strings"

	"github.com/tailored-agentic-units/probe/observability"
)

type writer struct {
	sink *Sink
}

// Write appends p as one entry, without its trailing newline. Empty
// writes are ignored.
func (w writer) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\r\n")
	if msg != "" {
		w.sink.Append(msg)
	}
	return len(p), nil
}

// Writer returns an io.Writer that appends each Write call as an entry.
func (s *Sink) Writer() io.Writer {
	return writer{sink: s}
}

// NewHandler returns a slog.Handler that formats records as text and
// appends each one to sink, so program logs show up on the dashboard.
func NewHandler(sink *Sink, opts *slog.HandlerOptions) slog.Handler {
	return slog.NewTextHandler(sink.Writer(), opts)
}

// NewObserver returns an observer that appends events at or above min to
// sink. The entry timestamp replaces the record's time attribute.
func NewObserver(sink *Sink, min observability.Level) observability.Observer {
	handler := NewHandler(sink, &slog.HandlerOptions{
		Level: min.SlogLevel(),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	})
	return observability.NewSlogObserver(slog.New(handler))
}
