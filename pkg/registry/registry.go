// Package registry holds the set of marker ids the bridge currently cares
// about, each with its opaque payload. It is the single source of truth
// shared between the sync client and the detection loop.
package registry

import (
	"encoding/json"
	"sync"
)

// TargetRegistry is a concurrent id → payload store.
// All operations are atomic with respect to each other and perform no I/O
// while holding the lock. An absent id simply means "not a target".
type TargetRegistry struct {
	mu      sync.RWMutex
	targets map[int]json.RawMessage
}

// New creates an empty registry.
func New() *TargetRegistry {
	return &TargetRegistry{
		targets: make(map[int]json.RawMessage),
	}
}

// Set stores the payload for id, overwriting any previous entry.
// Last write wins.
func (r *TargetRegistry) Set(id int, payload json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets[id] = payload
}

// SetAll stores the same payload for every id in the list.
func (r *TargetRegistry) SetAll(ids []int, payload json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		r.targets[id] = payload
	}
}

// Remove deletes the entry for id. Removing a missing id is a no-op.
func (r *TargetRegistry) Remove(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.targets, id)
}

// Clear drops every entry.
func (r *TargetRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets = make(map[int]json.RawMessage)
}

// Get returns the payload for id and whether it is a current target.
func (r *TargetRegistry) Get(id int) (json.RawMessage, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	payload, ok := r.targets[id]
	return payload, ok
}

// Has reports whether id is a current target.
func (r *TargetRegistry) Has(id int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.targets[id]
	return ok
}

// Len returns the number of targets.
func (r *TargetRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.targets)
}

// Snapshot returns a consistent point-in-time copy of the mapping.
// Callers iterating the result are immune to concurrent mutation; the
// registry never mutates payload bytes after Set.
func (r *TargetRegistry) Snapshot() map[int]json.RawMessage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[int]json.RawMessage, len(r.targets))
	for id, payload := range r.targets {
		out[id] = payload
	}
	return out
}
