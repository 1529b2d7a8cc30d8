// Package dispatch delivers trigger events to the consumer handler while
// isolating the detection loop from handler failures.
package dispatch

import (
	"encoding/json"

	"github.com/wizzyworks/go-bridge/internal/log"
)

// Handler receives one call per fired marker.
// normalizedX is the marker's horizontal position in [-1, 1].
type Handler func(id int, payload json.RawMessage, normalizedX float64)

// Dispatcher invokes the registered handler synchronously from the
// detection goroutine. A panicking handler is logged and contained; it is
// a handler-side fault, never a tracker-side one. Exactly-once delivery
// per trigger edge is guaranteed by the stability tracker, not here.
type Dispatcher struct {
	handler Handler
}

// New creates a dispatcher with no handler registered.
func New() *Dispatcher {
	return &Dispatcher{}
}

// OnMarkerTriggered registers the consumer handler. Replaces any previous
// handler. Call before the detection loop starts.
func (d *Dispatcher) OnMarkerTriggered(h Handler) {
	d.handler = h
}

// Dispatch delivers one trigger event. Safe to call with no handler set.
func (d *Dispatcher) Dispatch(id int, payload json.RawMessage, normalizedX float64) {
	if d.handler == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("marker handler panicked", "marker_id", id, "panic", r)
		}
	}()

	d.handler(id, payload, normalizedX)
}
