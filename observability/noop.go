package observability

import "context"

// NoOpObserver drops every event. It is the observer of components built
// without one, and is registered as "noop" for configs that silence the
// console.
type NoOpObserver struct{}

func (NoOpObserver) OnEvent(context.Context, Event) {}

// Discard is the shared NoOpObserver value.
var Discard Observer = NoOpObserver{}
