// Package logsink keeps the operator-facing log of an instrumented process:
// a time-ordered buffer of messages that the dashboard polls with a "since"
// watermark.
package logsink

import (
	"encoding/json"
	"math"
	"sync"
	"time"

	"github.com/eapache/queue"
	"github.com/google/uuid"
)

// Entry is one log line.
type Entry struct {
	ID        string
	Timestamp time.Time
	Message   string
}

// MarshalJSON encodes the timestamp as fractional Unix seconds, the form
// the dashboard and the "since" query parameter use.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID        string  `json:"id"`
		Timestamp float64 `json:"timestamp"`
		Message   string  `json:"message"`
	}{
		ID:        e.ID,
		Timestamp: UnixSeconds(e.Timestamp),
		Message:   e.Message,
	})
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        string  `json:"id"`
		Timestamp float64 `json:"timestamp"`
		Message   string  `json:"message"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.ID = raw.ID
	e.Timestamp = FromUnixSeconds(raw.Timestamp)
	e.Message = raw.Message
	return nil
}

// UnixSeconds converts t to fractional seconds since the Unix epoch, at
// microsecond precision.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixMicro()) / 1e6
}

// FromUnixSeconds converts fractional Unix seconds to a time, rounded to
// the nearest microsecond. For any time with microsecond precision,
// FromUnixSeconds(UnixSeconds(t)) equals t.
func FromUnixSeconds(s float64) time.Time {
	return time.UnixMicro(int64(math.Round(s * 1e6)))
}

// Sink is an append-only, time-ordered log buffer. Timestamps are kept at
// microsecond precision, the precision of their wire form, and never
// decrease in insertion order: an entry stamped earlier than its
// predecessor takes the predecessor's timestamp. Safe for concurrent use.
type Sink struct {
	capacity int
	now      func() time.Time

	mu      sync.Mutex
	entries *queue.Queue
	last    time.Time
	evicted uint64
}

// Option configures a Sink.
type Option func(*Sink)

// WithClock replaces time.Now as the source of default timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Sink) { s.now = now }
}

// New creates an empty Sink.
func New(cfg Config, opts ...Option) *Sink {
	s := &Sink{
		capacity: cfg.Capacity,
		now:      time.Now,
		entries:  queue.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append adds message stamped with the current time.
func (s *Sink) Append(message string) Entry {
	return s.AppendAt(message, s.now())
}

// AppendAt adds message stamped with ts.
func (s *Sink) AppendAt(message string, ts time.Time) Entry {
	ts = time.UnixMicro(ts.UnixMicro())

	s.mu.Lock()
	defer s.mu.Unlock()

	if ts.Before(s.last) {
		ts = s.last
	}
	s.last = ts

	e := Entry{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Timestamp: ts,
		Message:   message,
	}
	s.entries.Add(e)

	if s.capacity > 0 {
		for s.entries.Length() > s.capacity {
			s.entries.Remove()
			s.evicted++
		}
	}
	return e
}

// Since returns the entries stamped at or after watermark, oldest first.
func (s *Sink) Since(watermark time.Time) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0)
	for i := 0; i < s.entries.Length(); i++ {
		e := s.entries.Get(i).(Entry)
		if !e.Timestamp.Before(watermark) {
			out = append(out, e)
		}
	}
	return out
}

// All returns every retained entry, oldest first.
func (s *Sink) All() []Entry {
	return s.Since(time.Time{})
}

// Len returns the number of retained entries.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries.Length()
}

// Evicted returns how many entries were dropped to honor the capacity.
func (s *Sink) Evicted() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evicted
}
