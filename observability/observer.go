// Package observability provides the event model shared by the probe
// subsystems. Pins, the registry, synchronizers and the transport emit Events
// to an Observer; level values align with OpenTelemetry SeverityNumbers so an
// OTel bridge needs no translation.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Level is an event severity. Values sit at the bottom of the matching
// OpenTelemetry SeverityNumber band so exporters can pass them through.
type Level int

const (
	LevelVerbose Level = 5
	LevelInfo    Level = 9
	LevelWarning Level = 13
	LevelError   Level = 17
)

// severityBands lists the upper bound of each OTel severity band with its
// text and the slog level events in that band are written at.
var severityBands = []struct {
	max  Level
	text string
	slog slog.Level
}{
	{4, "TRACE", slog.LevelDebug},
	{8, "DEBUG", slog.LevelDebug},
	{12, "INFO", slog.LevelInfo},
	{16, "WARN", slog.LevelWarn},
	{20, "ERROR", slog.LevelError},
}

func (l Level) band() (string, slog.Level) {
	for _, b := range severityBands {
		if l <= b.max {
			return b.text, b.slog
		}
	}
	return "FATAL", slog.LevelError
}

func (l Level) String() string {
	text, _ := l.band()
	return text
}

// SlogLevel returns the slog level used when l is written to a slog handler.
func (l Level) SlogLevel() slog.Level {
	_, sl := l.band()
	return sl
}

// ParseLevel resolves a level name as written in config files. Names are
// case-insensitive and accept both the probe names (verbose, warning) and
// the OTel severity text (debug, warn).
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "verbose", "debug":
		return LevelVerbose, nil
	case "info":
		return LevelInfo, nil
	case "warning", "warn":
		return LevelWarning, nil
	case "error":
		return LevelError, nil
	}
	return 0, fmt.Errorf("unknown level %q", name)
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(l.String())), nil
}

func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// EventType identifies the kind of event. Each subsystem defines its own
// constants using this type (e.g., "pin.listener.failed", "registry.pin.replaced").
type EventType string

// Event is an observability event emitted by subsystems. Fields map to
// OTel LogRecord fields: Type→EventName, Level→SeverityNumber,
// Timestamp→Timestamp, Source→InstrumentationScope, Data→Attributes.
type Event struct {
	Type      EventType
	Level     Level
	Timestamp time.Time
	Source    string
	Data      map[string]any
}

// Observer receives events from subsystems for logging, tracing, or metrics.
// OnEvent runs on the emitting goroutine and must not block for long.
type Observer interface {
	OnEvent(ctx context.Context, event Event)
}

// Emit stamps and delivers an event. A nil observer drops the event, which
// lets subsystems hold an optional Observer without guarding every call site.
func Emit(ctx context.Context, obs Observer, typ EventType, level Level, source string, data map[string]any) {
	if obs == nil {
		return
	}
	obs.OnEvent(ctx, Event{
		Type:      typ,
		Level:     level,
		Timestamp: time.Now(),
		Source:    source,
		Data:      data,
	})
}
