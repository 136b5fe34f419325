package registry

import (
	"sort"

	"github.com/tailored-agentic-units/probe/pin"
)

// CaptureAll registers one pin per entry of vars under namespace, in name
// order. Values with no matching kind are skipped; each skip is reported to
// the registry observer as a warning. The registered pins are returned.
func CaptureAll(r *Registry, namespace string, vars map[string]any) []*pin.Pin {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	pins := make([]*pin.Pin, 0, len(names))
	for _, name := range names {
		p, err := r.AddPin(name, vars[name], pin.WithNamespace(namespace))
		if err != nil {
			continue
		}
		pins = append(pins, p)
	}
	return pins
}
