package registry_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/tailored-agentic-units/probe/pin"
	"github.com/tailored-agentic-units/probe/registry"
)

func TestBind_Int(t *testing.T) {
	r := registry.New()

	v, err := registry.Bind(r, "p_value", 55)
	if err != nil {
		t.Fatalf("Bind() failed: %v", err)
	}
	if got := v.Get(); got != 55 {
		t.Errorf("Get() = %d, want 55", got)
	}

	if err := r.Write("p_value", float64(7)); err != nil {
		t.Fatalf("remote Write() failed: %v", err)
	}
	if got := v.Get(); got != 7 {
		t.Errorf("Get() after remote write = %d, want 7", got)
	}

	if err := v.Set(8); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	got, _ := r.Read("p_value")
	if !pin.Equal(got, 8) {
		t.Errorf("Read() after Set = %v, want 8", got)
	}
}

func TestBind_Types(t *testing.T) {
	r := registry.New()

	f, _ := registry.Bind(r, "ratio", 0.5)
	if f.Get() != 0.5 {
		t.Errorf("float Get() = %v, want 0.5", f.Get())
	}
	f.Set(2)
	if f.Get() != 2 {
		t.Errorf("float Get() after Set(2) = %v, want 2", f.Get())
	}

	b, _ := registry.Bind(r, "enabled", true)
	if !b.Get() {
		t.Error("bool Get() = false, want true")
	}

	s, _ := registry.Bind(r, "label", "Hello")
	get, set := s.Accessors()
	set("World")
	if get() != "World" {
		t.Errorf("string Get() = %q, want World", get())
	}

	l, _ := registry.Bind(r, "tags", []string{"a"})
	r.Write("tags", []any{"b", "c"})
	if got := l.Get(); !slices.Equal(got, []string{"b", "c"}) {
		t.Errorf("list Get() = %v, want [b c]", got)
	}
	if l.Pin().Kind() != pin.KindList {
		t.Errorf("Pin().Kind() = %s, want list", l.Pin().Kind())
	}

	i64, _ := registry.Bind(r, "big", int64(1)<<40)
	if i64.Get() != 1<<40 {
		t.Errorf("int64 Get() = %d, want %d", i64.Get(), int64(1)<<40)
	}
}

func TestBind_ReadOnlyStillSettable(t *testing.T) {
	r := registry.New()
	v, _ := registry.Bind(r, "status", "idle", pin.ReadOnly())

	if err := r.Write("status", "hacked"); !errors.Is(err, pin.ErrNotWritable) {
		t.Errorf("remote Write() error = %v, want %v", err, pin.ErrNotWritable)
	}
	if err := v.Set("busy"); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if v.Get() != "busy" {
		t.Errorf("Get() = %q, want busy", v.Get())
	}
}

func TestCaptureAll(t *testing.T) {
	obs := &captureObserver{}
	r := registry.New(registry.WithObserver(obs))

	pins := registry.CaptureAll(r, "App", map[string]any{
		"a": 10,
		"b": "Hello",
		"c": map[string]int{"a": 1},
		"d": struct{}{},
	})

	if len(pins) != 2 {
		t.Fatalf("CaptureAll() registered %d pins, want 2", len(pins))
	}
	if got := r.Names(); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("Names() = %v, want [a b]", got)
	}
	for _, p := range pins {
		if p.Namespace() != "App" {
			t.Errorf("pin %s namespace = %q, want App", p.Name(), p.Namespace())
		}
	}
	if n := obs.count(registry.EventUnsupported); n != 2 {
		t.Errorf("unsupported warnings = %d, want 2", n)
	}
}
