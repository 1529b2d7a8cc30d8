package scanner

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/wizzyworks/go-bridge/pkg/dispatch"
	"github.com/wizzyworks/go-bridge/pkg/registry"
	"github.com/wizzyworks/go-bridge/pkg/scanner/detection"
	"github.com/wizzyworks/go-bridge/pkg/stability"
)

// markerAt builds a 20x20 marker centered on (cx, cy).
func markerAt(id int, cx, cy float64) detection.Marker {
	return detection.Marker{
		ID: id,
		Corners: [4]detection.Point{
			{X: cx - 10, Y: cy - 10},
			{X: cx + 10, Y: cy - 10},
			{X: cx + 10, Y: cy + 10},
			{X: cx - 10, Y: cy + 10},
		},
	}
}

func at(seconds float64) time.Time {
	base := time.Unix(1_700_000_000, 0)
	return base.Add(time.Duration(seconds * float64(time.Second)))
}

func newTestScanner(reg *registry.TargetRegistry) *Scanner {
	cfg := stability.Config{Threshold: 10.0, Duration: 2 * time.Second}
	return New(nil, nil, reg, cfg, dispatch.New())
}

func TestProcessFrame_FiresStableTarget(t *testing.T) {
	reg := registry.New()
	reg.Set(7, json.RawMessage(`"boom"`))
	s := newTestScanner(reg)

	const width = 1920

	frames := []struct {
		t       float64
		x, y    float64
		wantHit bool
	}{
		{0.0, 960, 540, false},
		{1.0, 962, 541, false},
		{2.1, 961, 539, true},
		{2.2, 960, 540, false}, // already triggered
	}
	for _, f := range frames {
		fired := s.processFrame([]detection.Marker{markerAt(7, f.x, f.y)}, width, at(f.t))
		if got := len(fired) == 1; got != f.wantHit {
			t.Fatalf("t=%.1f: fired=%d, wantHit=%v", f.t, len(fired), f.wantHit)
		}
		if f.wantHit {
			tr := fired[0]
			if tr.id != 7 {
				t.Errorf("trigger id: got %d, want 7", tr.id)
			}
			if string(tr.payload) != `"boom"` {
				t.Errorf("trigger payload: got %s", tr.payload)
			}
			// Frame center maps to 0 on the [-1, 1] axis.
			if tr.normalizedX < -0.01 || tr.normalizedX > 0.01 {
				t.Errorf("normalizedX: got %v, want ~0", tr.normalizedX)
			}
		}
	}
}

func TestProcessFrame_IgnoresNonTargets(t *testing.T) {
	reg := registry.New()
	s := newTestScanner(reg)

	// Marker 9 is visible and perfectly stable, but nobody asked for it.
	for i := 0; i < 5; i++ {
		fired := s.processFrame([]detection.Marker{markerAt(9, 100, 100)}, 640, at(float64(i)))
		if len(fired) != 0 {
			t.Fatalf("step %d: fired for an untracked marker", i)
		}
	}
	if s.tracker.TrackedCount() != 0 {
		t.Errorf("tracked count: got %d, want 0", s.tracker.TrackedCount())
	}
}

func TestProcessFrame_TargetAddedMidStream(t *testing.T) {
	reg := registry.New()
	s := newTestScanner(reg)

	// Visible before registration: no history accumulates.
	s.processFrame([]detection.Marker{markerAt(5, 100, 100)}, 640, at(0.0))
	s.processFrame([]detection.Marker{markerAt(5, 100, 100)}, 640, at(1.0))

	// The stability clock starts only once the id becomes a target.
	reg.Set(5, json.RawMessage(`1`))
	if fired := s.processFrame([]detection.Marker{markerAt(5, 100, 100)}, 640, at(2.1)); len(fired) != 0 {
		t.Fatal("fired using observations from before registration")
	}
	s.processFrame([]detection.Marker{markerAt(5, 100, 100)}, 640, at(3.0))
	if fired := s.processFrame([]detection.Marker{markerAt(5, 100, 100)}, 640, at(4.2)); len(fired) != 1 {
		t.Fatal("did not fire after a full stable window as a target")
	}
}

func TestProcessFrame_NormalizedXSpansFrame(t *testing.T) {
	reg := registry.New()
	reg.Set(1, json.RawMessage(`1`))
	reg.Set(2, json.RawMessage(`2`))
	s := newTestScanner(reg)

	const width = 1000
	left := markerAt(1, 0, 100)
	right := markerAt(2, 1000, 100)

	s.processFrame([]detection.Marker{left, right}, width, at(0.0))
	s.processFrame([]detection.Marker{left, right}, width, at(1.0))
	fired := s.processFrame([]detection.Marker{left, right}, width, at(2.1))
	if len(fired) != 2 {
		t.Fatalf("fired %d triggers, want 2", len(fired))
	}

	xs := map[int]float64{}
	for _, tr := range fired {
		xs[tr.id] = tr.normalizedX
	}
	if xs[1] != -1.0 {
		t.Errorf("left edge: got %v, want -1", xs[1])
	}
	if xs[2] != 1.0 {
		t.Errorf("right edge: got %v, want 1", xs[2])
	}
}

func TestProcessFrame_SweepResetsAbsentMarker(t *testing.T) {
	reg := registry.New()
	reg.Set(3, json.RawMessage(`1`))
	s := newTestScanner(reg)

	m := markerAt(3, 200, 200)
	s.processFrame([]detection.Marker{m}, 640, at(0.0))
	s.processFrame([]detection.Marker{m}, 640, at(1.0))
	if fired := s.processFrame([]detection.Marker{m}, 640, at(2.1)); len(fired) != 1 {
		t.Fatal("setup: expected initial fire")
	}

	// Absent frames past the grace period clear the tracker state.
	s.processFrame(nil, 640, at(7.0))
	if s.tracker.TrackedCount() != 0 {
		t.Fatal("absent marker not swept after grace period")
	}

	// Reappearing and holding still fires again.
	s.processFrame([]detection.Marker{m}, 640, at(8.0))
	s.processFrame([]detection.Marker{m}, 640, at(9.0))
	if fired := s.processFrame([]detection.Marker{m}, 640, at(10.1)); len(fired) != 1 {
		t.Fatal("marker did not re-fire after being swept")
	}
}

func TestNormalizedX(t *testing.T) {
	cases := []struct {
		cx    float64
		width int
		want  float64
	}{
		{0, 1000, -1},
		{500, 1000, 0},
		{1000, 1000, 1},
		{250, 1000, -0.5},
		{100, 0, 0}, // degenerate width guards against division by zero
	}
	for _, tc := range cases {
		if got := normalizedX(tc.cx, tc.width); got != tc.want {
			t.Errorf("normalizedX(%v, %d): got %v, want %v", tc.cx, tc.width, got, tc.want)
		}
	}
}
