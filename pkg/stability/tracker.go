// Package stability turns noisy per-frame marker observations into
// edge-triggered events. A marker fires exactly once per visibility
// episode, after it has held still for the configured duration.
package stability

import (
	"math"
	"time"
)

// Decision is the outcome of ingesting one observation.
type Decision int

const (
	// None means the marker is not (yet) stable: too little data, or it
	// moved beyond the threshold inside the window.
	None Decision = iota
	// Fire means the marker just crossed the stability edge. Emitted at
	// most once per visibility episode.
	Fire
	// AlreadyTriggered means the marker fired earlier in this episode.
	AlreadyTriggered
)

func (d Decision) String() string {
	switch d {
	case Fire:
		return "fire"
	case AlreadyTriggered:
		return "already-triggered"
	}
	return "none"
}

type observation struct {
	x, y float64
	t    time.Time
}

type trackedMarker struct {
	history   []observation
	triggered bool
	lastSeen  time.Time
}

// Tracker keeps independent per-id stability state. It is owned by the
// detection goroutine and needs no locking.
type Tracker struct {
	cfg     Config
	markers map[int]*trackedMarker
}

// New creates a tracker with the given parameters.
func New(cfg Config) *Tracker {
	return &Tracker{
		cfg:     cfg,
		markers: make(map[int]*trackedMarker),
	}
}

// Ingest records one observation of a marker and decides whether it
// crossed the stability edge.
func (t *Tracker) Ingest(id int, x, y float64, now time.Time) Decision {
	m, ok := t.markers[id]
	if !ok {
		m = &trackedMarker{}
		t.markers[id] = m
	}

	m.history = append(m.history, observation{x: x, y: y, t: now})
	m.lastSeen = now

	// Decide before pruning: the oldest entry may have just aged past the
	// window but still anchors the span being judged.
	decision := t.decide(m, now)

	// Entries older than the window are gone by the next ingest, so a
	// movement spike naturally restarts the stable-time clock.
	m.history = pruneOlderThan(m.history, now.Add(-t.cfg.Duration))

	return decision
}

func (t *Tracker) decide(m *trackedMarker, now time.Time) Decision {
	if len(m.history) < 2 {
		return None
	}

	if maxPairwiseDistance(m.history) > t.cfg.Threshold {
		return None
	}

	stableFor := now.Sub(m.history[0].t)
	if stableFor >= t.cfg.Duration && !m.triggered {
		m.triggered = true
		return Fire
	}

	if m.triggered {
		return AlreadyTriggered
	}

	return None
}

// Sweep ages out markers that were not seen this frame. An absent
// marker's history is pruned to the stability window, so a stale sighting
// can never anchor a later stability span. The triggered flag survives on
// lastSeen for the grace period; past it the id's state is dropped
// entirely, which is the only path back to a new Fire.
// Call once per frame with the set of ids visible in that frame.
func (t *Tracker) Sweep(visible map[int]bool, now time.Time) {
	for id, m := range t.markers {
		if visible[id] {
			continue
		}
		if now.Sub(m.lastSeen) >= t.cfg.grace() {
			delete(t.markers, id)
			continue
		}
		m.history = pruneOlderThan(m.history, now.Add(-t.cfg.Duration))
	}
}

// Triggered reports whether the marker fired in its current visibility
// episode. Used by the overlay to label markers.
func (t *Tracker) Triggered(id int) bool {
	m, ok := t.markers[id]
	return ok && m.triggered
}

// TrackedCount returns how many markers currently have state.
func (t *Tracker) TrackedCount() int {
	return len(t.markers)
}

// pruneOlderThan drops leading observations before the cutoff. History is
// append-only in time order, so only the prefix can be stale.
func pruneOlderThan(history []observation, cutoff time.Time) []observation {
	i := 0
	for i < len(history) && history[i].t.Before(cutoff) {
		i++
	}
	if i == 0 {
		return history
	}
	return append(history[:0], history[i:]...)
}

func maxPairwiseDistance(history []observation) float64 {
	max := 0.0
	for i := 0; i < len(history); i++ {
		for j := i + 1; j < len(history); j++ {
			d := math.Hypot(history[i].x-history[j].x, history[i].y-history[j].y)
			if d > max {
				max = d
			}
		}
	}
	return max
}
