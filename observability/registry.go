package observability

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// named holds the observers a config file can select by name.
var named = struct {
	sync.RWMutex
	byName map[string]Observer
}{
	byName: map[string]Observer{
		"noop": Discard,
		"slog": NewSlogObserver(slog.Default()),
	},
}

// GetObserver looks up the observer registered under name. The error lists
// the registered names.
func GetObserver(name string) (Observer, error) {
	named.RLock()
	obs, ok := named.byName[name]
	named.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown observer %q (registered: %s)", name, strings.Join(ObserverNames(), ", "))
	}
	return obs, nil
}

// RegisterObserver makes observer selectable by name, replacing any
// observer already registered under it. A nil observer removes the name.
func RegisterObserver(name string, observer Observer) {
	named.Lock()
	defer named.Unlock()

	if observer == nil {
		delete(named.byName, name)
		return
	}
	named.byName[name] = observer
}

// ObserverNames returns the registered names in sorted order.
func ObserverNames() []string {
	named.RLock()
	defer named.RUnlock()

	names := make([]string, 0, len(named.byName))
	for name := range named.byName {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
