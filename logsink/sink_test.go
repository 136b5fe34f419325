package logsink_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tailored-agentic-units/probe/logsink"
	"github.com/tailored-agentic-units/probe/observability"
)

func at(sec int) time.Time {
	return time.Unix(int64(sec), 0)
}

func messages(entries []logsink.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Message
	}
	return out
}

func TestSince(t *testing.T) {
	s := logsink.New(logsink.Config{})
	s.AppendAt("one", at(1))
	s.AppendAt("two", at(2))
	s.AppendAt("three", at(3))

	got := messages(s.Since(at(2)))
	want := []string{"two", "three"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Since(2) = %v, want %v", got, want)
	}

	if n := len(s.Since(at(4))); n != 0 {
		t.Errorf("Since(4) returned %d entries, want 0", n)
	}
	if n := len(s.All()); n != 3 {
		t.Errorf("All() returned %d entries, want 3", n)
	}
}

func TestAppend_DefaultTimestamp(t *testing.T) {
	now := at(100)
	s := logsink.New(logsink.Config{}, logsink.WithClock(func() time.Time { return now }))

	e := s.Append("hello")
	if !e.Timestamp.Equal(now) {
		t.Errorf("Timestamp = %v, want %v", e.Timestamp, now)
	}
	if e.ID == "" {
		t.Error("ID is empty")
	}
}

func TestAppend_MonotonicTimestamps(t *testing.T) {
	s := logsink.New(logsink.Config{})
	s.AppendAt("late", at(5))
	e := s.AppendAt("early", at(3))

	if !e.Timestamp.Equal(at(5)) {
		t.Errorf("out-of-order Timestamp = %v, want clamped to %v", e.Timestamp, at(5))
	}

	entries := s.All()
	for i := 1; i < len(entries); i++ {
		if entries[i].Timestamp.Before(entries[i-1].Timestamp) {
			t.Errorf("entry %d timestamp decreases", i)
		}
	}
}

func TestCapacity_EvictsOldest(t *testing.T) {
	s := logsink.New(logsink.Config{Capacity: 2})
	s.AppendAt("a", at(1))
	s.AppendAt("b", at(2))
	s.AppendAt("c", at(3))

	if got := messages(s.All()); strings.Join(got, ",") != "b,c" {
		t.Errorf("All() = %v, want [b c]", got)
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
	if s.Evicted() != 1 {
		t.Errorf("Evicted() = %d, want 1", s.Evicted())
	}
}

func TestEntry_MarshalJSON(t *testing.T) {
	e := logsink.Entry{ID: "x", Timestamp: time.Unix(12, 500_000_000), Message: "m"}

	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded map[string]any
	json.Unmarshal(data, &decoded)
	if decoded["timestamp"] != 12.5 {
		t.Errorf("timestamp = %v, want 12.5", decoded["timestamp"])
	}
	if decoded["message"] != "m" || decoded["id"] != "x" {
		t.Errorf("decoded = %v", decoded)
	}
}

func TestUnixSecondsRoundTrip(t *testing.T) {
	base := time.Unix(1760000000, 0)
	for i := range 1000 {
		ts := base.Add(time.Duration(i*7919) * time.Microsecond)
		if got := logsink.FromUnixSeconds(logsink.UnixSeconds(ts)); !got.Equal(ts) {
			t.Fatalf("round trip of %v = %v", ts, got)
		}
	}
}

func TestAppendAt_MicrosecondPrecision(t *testing.T) {
	s := logsink.New(logsink.Config{})
	e := s.AppendAt("x", time.Unix(1760000000, 123_456_789))

	if want := time.Unix(1760000000, 123_456_000); !e.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", e.Timestamp, want)
	}
}

func TestSince_WireTimestampIncludesEntry(t *testing.T) {
	s := logsink.New(logsink.Config{})
	for i := range 200 {
		ns := int64(i) * 4_999_999
		e := s.AppendAt("x", time.Unix(1760000000, ns))

		data, err := json.Marshal(e)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		var decoded logsink.Entry
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}

		got := s.Since(decoded.Timestamp)
		if len(got) == 0 || got[0].ID != e.ID {
			t.Fatalf("Since(own timestamp) of entry %d excluded it", i)
		}
	}
}

func TestConfig_Merge(t *testing.T) {
	cfg := logsink.DefaultConfig()
	if cfg.Capacity != 10000 {
		t.Errorf("default Capacity = %d, want 10000", cfg.Capacity)
	}

	cfg.Merge(&logsink.Config{})
	if cfg.Capacity != 10000 {
		t.Errorf("Capacity after empty merge = %d, want 10000", cfg.Capacity)
	}

	cfg.Merge(&logsink.Config{Capacity: 50})
	if cfg.Capacity != 50 {
		t.Errorf("Capacity after merge = %d, want 50", cfg.Capacity)
	}
}

func TestNewHandler(t *testing.T) {
	s := logsink.New(logsink.Config{})
	logger := slog.New(logsink.NewHandler(s, nil))

	logger.Info("Starting probe", "port", 8080)
	logger.Debug("hidden")

	entries := s.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	msg := entries[0].Message
	if !strings.Contains(msg, `msg="Starting probe"`) || !strings.Contains(msg, "port=8080") {
		t.Errorf("entry = %q", msg)
	}
	if strings.HasSuffix(msg, "\n") {
		t.Errorf("entry keeps trailing newline: %q", msg)
	}
}

func TestWriter_IgnoresEmpty(t *testing.T) {
	s := logsink.New(logsink.Config{})
	w := s.Writer()
	w.Write([]byte("\n"))
	w.Write([]byte("line\n"))

	if got := messages(s.All()); len(got) != 1 || got[0] != "line" {
		t.Errorf("entries = %v, want [line]", got)
	}
}

func TestNewObserver(t *testing.T) {
	s := logsink.New(logsink.Config{})
	obs := logsink.NewObserver(s, observability.LevelWarning)

	obs.OnEvent(context.Background(), observability.Event{
		Type:   "registry.pin.unsupported",
		Level:  observability.LevelWarning,
		Source: "registry.AddPin",
		Data:   map[string]any{"pin": "d"},
	})
	obs.OnEvent(context.Background(), observability.Event{
		Type:  "registry.pin.registered",
		Level: observability.LevelVerbose,
	})

	entries := s.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	msg := entries[0].Message
	if !strings.Contains(msg, "registry.pin.unsupported") || !strings.Contains(msg, "pin=d") {
		t.Errorf("entry = %q", msg)
	}
	if strings.Contains(msg, "time=") {
		t.Errorf("entry keeps time attribute: %q", msg)
	}
}

func TestSink_ConcurrentAppend(t *testing.T) {
	s := logsink.New(logsink.Config{Capacity: 100})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				s.Append("x")
				s.Since(time.Time{})
			}
		}()
	}
	wg.Wait()

	if s.Len() != 100 {
		t.Errorf("Len() = %d, want 100", s.Len())
	}
	if s.Evicted() != 300 {
		t.Errorf("Evicted() = %d, want 300", s.Evicted())
	}
}

func TestEntry_UnmarshalJSON(t *testing.T) {
	var e logsink.Entry
	if err := json.Unmarshal([]byte(`{"id":"x","timestamp":3.5,"message":"m"}`), &e); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if e.ID != "x" || e.Message != "m" {
		t.Errorf("decoded = %+v", e)
	}
	if want := time.Unix(3, 500_000_000); !e.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", e.Timestamp, want)
	}
}
