package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/google/go-cmp/cmp"

	"github.com/tailored-agentic-units/probe/logsink"
	"github.com/tailored-agentic-units/probe/pin"
	"github.com/tailored-agentic-units/probe/registry"
	"github.com/tailored-agentic-units/probe/server"
)

type fixture struct {
	reg  *registry.Registry
	logs *logsink.Sink
	ts   *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	reg := registry.New()
	if _, err := reg.AddPin("counter", 0); err != nil {
		t.Fatalf("AddPin failed: %v", err)
	}
	if _, err := reg.AddPin("mode", "idle", pin.ReadOnly()); err != nil {
		t.Fatalf("AddPin failed: %v", err)
	}
	if _, err := reg.AddEvent("done"); err != nil {
		t.Fatalf("AddEvent failed: %v", err)
	}

	logs := logsink.New(logsink.Config{})
	srv := server.New(reg, logs, server.Config{Title: "test probe"})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &fixture{reg: reg, logs: logs, ts: ts}
}

func (f *fixture) post(t *testing.T, path, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(f.ts.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func (f *fixture) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(f.ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func TestAllPins(t *testing.T) {
	f := newFixture(t)

	resp, body := f.get(t, "/all_pins")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var pins []struct {
		Name     string `json:"name"`
		Type     string `json:"type"`
		Readable bool   `json:"readable"`
		Writable bool   `json:"writable"`
		Template struct {
			Topic string `json:"topic"`
			Value string `json:"value"`
		} `json:"html_template"`
	}
	if err := json.Unmarshal(body, &pins); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	var names, types []string
	for _, p := range pins {
		names = append(names, p.Name)
		types = append(types, p.Type)
		if p.Template.Topic == "" || p.Template.Value == "" {
			t.Errorf("pin %s has empty html_template", p.Name)
		}
	}
	if diff := cmp.Diff([]string{"counter", "mode", "done"}, names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"numeric", "string", "event"}, types); diff != "" {
		t.Errorf("types mismatch (-want +got):\n%s", diff)
	}
}

func TestPinValue_WriteThenRead(t *testing.T) {
	f := newFixture(t)

	resp, body := f.post(t, "/pin_value", `{"write_pins": {"counter": 5}, "read_pins": ["counter"]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.StatusCode, body)
	}
	if got := strings.TrimSpace(string(body)); got != `{"read_pins":{"counter":5}}` {
		t.Errorf("body = %s", got)
	}

	v, _ := f.reg.Read("counter")
	if v != int64(5) {
		t.Errorf("counter = %v (%T), want int64 5", v, v)
	}
}

func TestPinValue_EmptyReadList(t *testing.T) {
	f := newFixture(t)

	resp, body := f.post(t, "/pin_value", `{"write_pins": {"counter": 5}, "read_pins": []}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.StatusCode, body)
	}
	if got := strings.TrimSpace(string(body)); got != `{"read_pins":{}}` {
		t.Errorf("body = %s, want {\"read_pins\":{}}", got)
	}
}

func TestPinValue_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{
			name:   "malformed",
			body:   `{"write_pins": `,
			status: http.StatusBadRequest,
			code:   server.CodeMalformed,
		},
		{
			name:   "unknown write",
			body:   `{"write_pins": {"nope": 1}}`,
			status: http.StatusNotFound,
			code:   server.CodeUnknownName,
		},
		{
			name:   "unknown read",
			body:   `{"read_pins": ["nope"]}`,
			status: http.StatusNotFound,
			code:   server.CodeUnknownName,
		},
		{
			name:   "read only",
			body:   `{"write_pins": {"mode": "busy"}}`,
			status: http.StatusForbidden,
			code:   server.CodeNotWritable,
		},
		{
			name:   "event not readable",
			body:   `{"read_pins": ["done"]}`,
			status: http.StatusForbidden,
			code:   server.CodeNotReadable,
		},
		{
			name:   "type mismatch",
			body:   `{"write_pins": {"counter": "five"}}`,
			status: http.StatusBadRequest,
			code:   server.CodeTypeMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			resp, body := f.post(t, "/pin_value", tt.body)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}

			var e server.ErrorBody
			if err := json.Unmarshal(body, &e); err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if e.Code != tt.code {
				t.Errorf("code = %q, want %q", e.Code, tt.code)
			}
			if e.Error == "" {
				t.Error("error message is empty")
			}

			if v, _ := f.reg.Read("counter"); v != int64(0) {
				t.Errorf("counter changed to %v", v)
			}
		})
	}
}

func TestPinValue_TriggersEvent(t *testing.T) {
	f := newFixture(t)

	done, _ := f.reg.Get("done")
	var got any
	done.AddListener(func(payload any) error {
		got = payload
		return nil
	})

	resp, _ := f.post(t, "/pin_value", `{"write_pins": {"done": "go"}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got != "go" {
		t.Errorf("payload = %v, want go", got)
	}
}

func TestLogs(t *testing.T) {
	f := newFixture(t)
	f.logs.AppendAt("one", time.Unix(1, 0))
	f.logs.AppendAt("two", time.Unix(2, 0))
	f.logs.AppendAt("three", time.Unix(3, 0))

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"all", "", []string{"one", "two", "three"}},
		{"since", "?since=2", []string{"two", "three"}},
		{"timestamp alias", "?timestamp=3", []string{"three"}},
		{"future", "?since=4", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := f.get(t, "/logs"+tt.query)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want 200", resp.StatusCode)
			}

			var entries []struct {
				ID        string  `json:"id"`
				Timestamp float64 `json:"timestamp"`
				Message   string  `json:"message"`
			}
			if err := json.Unmarshal(body, &entries); err != nil {
				t.Fatalf("decode failed: %v", err)
			}

			got := []string{}
			for _, e := range entries {
				got = append(got, e.Message)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("messages mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLogs_EchoedTimestampIncludesEntry(t *testing.T) {
	f := newFixture(t)
	for i := range 200 {
		f.logs.AppendAt(fmt.Sprintf("entry-%d", i), time.Unix(1760000000, int64(i)*4_999_999))
	}

	_, body := f.get(t, "/logs")
	var entries []struct {
		Timestamp float64 `json:"timestamp"`
		Message   string  `json:"message"`
	}
	if err := json.Unmarshal(body, &entries); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	for _, e := range entries {
		_, body := f.get(t, "/logs?since="+strconv.FormatFloat(e.Timestamp, 'f', -1, 64))
		var got []struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body, &got); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if len(got) == 0 || got[0].Message != e.Message {
			t.Fatalf("since=%v did not return %s first", e.Timestamp, e.Message)
		}
	}
}

func TestLogs_BadWatermark(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.get(t, "/logs?since=yesterday")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)

	resp, body := f.get(t, "/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(string(body), "<title>test probe</title>") {
		t.Error("index does not carry configured title")
	}

	resp, body = f.get(t, "/static/scanner.js")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("scanner.js status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(string(body), "/pin_value") {
		t.Error("scanner.js does not reference /pin_value")
	}

	resp, _ = f.get(t, "/static/missing.js")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing asset status = %d, want 404", resp.StatusCode)
	}
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)
	f.reg.Write("counter", 7)
	f.get(t, "/all_pins")

	resp, body := f.get(t, "/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	text := string(body)
	for _, want := range []string{
		`probe_pin_value{name="counter"`,
		"probe_pins 3",
		"probe_log_entries 0",
		`route="all_pins"`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
	if strings.Contains(text, `name="mode"`) {
		t.Error("string pin exported as gauge")
	}
}

func TestConnect_Client(t *testing.T) {
	f := newFixture(t)
	f.logs.AppendAt("hello", time.Unix(10, 0))
	client := server.NewClient(f.ts.Client(), f.ts.URL)
	ctx := context.Background()

	pins, err := client.ListPins(ctx)
	if err != nil {
		t.Fatalf("ListPins failed: %v", err)
	}
	if len(pins) != 3 || pins[0].Name != "counter" || pins[0].Kind != pin.KindNumeric {
		t.Errorf("ListPins = %+v", pins)
	}

	resp, err := client.Exchange(ctx, registry.Request{
		WritePins: map[string]any{"counter": 9},
		ReadPins:  []string{"counter", "mode"},
	})
	if err != nil {
		t.Fatalf("Exchange failed: %v", err)
	}
	if !pin.Equal(resp.ReadPins["counter"], 9) || resp.ReadPins["mode"] != "idle" {
		t.Errorf("ReadPins = %v", resp.ReadPins)
	}

	entries, err := client.ReadLogs(ctx, time.Unix(10, 0))
	if err != nil {
		t.Fatalf("ReadLogs failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Message != "hello" {
		t.Errorf("ReadLogs = %+v", entries)
	}

	done, _ := f.reg.Get("done")
	var got any
	done.AddListener(func(payload any) error {
		got = payload
		return nil
	})
	if err := client.Trigger(ctx, "done", "now"); err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	if got != "now" {
		t.Errorf("payload = %v, want now", got)
	}
}

func TestConnect_ErrorCodes(t *testing.T) {
	f := newFixture(t)
	client := server.NewClient(f.ts.Client(), f.ts.URL)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
		want connect.Code
	}{
		{
			name: "unknown exchange",
			call: func() error {
				_, err := client.Exchange(ctx, registry.Request{ReadPins: []string{"nope"}})
				return err
			},
			want: connect.CodeNotFound,
		},
		{
			name: "read only",
			call: func() error {
				_, err := client.Exchange(ctx, registry.Request{WritePins: map[string]any{"mode": "x"}})
				return err
			},
			want: connect.CodePermissionDenied,
		},
		{
			name: "mismatch",
			call: func() error {
				_, err := client.Exchange(ctx, registry.Request{WritePins: map[string]any{"counter": true}})
				return err
			},
			want: connect.CodeInvalidArgument,
		},
		{
			name: "trigger non-event",
			call: func() error { return client.Trigger(ctx, "counter", nil) },
			want: connect.CodeInvalidArgument,
		},
		{
			name: "trigger unknown",
			call: func() error { return client.Trigger(ctx, "nope", nil) },
			want: connect.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if code := connect.CodeOf(err); code != tt.want {
				t.Errorf("code = %v, want %v", code, tt.want)
			}
		})
	}
}

func TestServe_ShutdownOnCancel(t *testing.T) {
	reg := registry.New()
	srv := server.New(reg, logsink.New(logsink.Config{}), server.Config{},
		server.WithShutdownTimeout(time.Second))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/all_pins")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()

	if srv.Addr() == nil {
		t.Error("Addr() is nil while serving")
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Serve returned %v, want nil", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestConfig_Merge(t *testing.T) {
	cfg := server.DefaultConfig()
	if cfg.Addr != "localhost:8080" {
		t.Errorf("default Addr = %q", cfg.Addr)
	}

	cfg.Merge(&server.Config{Addr: ":9000"})
	if cfg.Addr != ":9000" || cfg.Title != "probe" {
		t.Errorf("merged = %+v", cfg)
	}
}

func TestListenAndServe_BadAddr(t *testing.T) {
	srv := server.New(registry.New(), logsink.New(logsink.Config{}), server.Config{Addr: "bad::addr::"})
	if err := srv.ListenAndServe(context.Background()); err == nil {
		t.Fatal("expected listen error, got nil")
	}
}
