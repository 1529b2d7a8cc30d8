package stability

import (
	"testing"
	"time"
)

// testConfig matches the production defaults: 10px threshold, 2s duration.
func testConfig() Config {
	return Config{Threshold: 10.0, Duration: 2 * time.Second}
}

func at(seconds float64) time.Time {
	base := time.Unix(1_700_000_000, 0)
	return base.Add(time.Duration(seconds * float64(time.Second)))
}

func TestIngest_FiresAfterStableDuration(t *testing.T) {
	tr := New(testConfig())

	// id 7 sits nearly still across the window.
	if d := tr.Ingest(7, 100, 100, at(0.0)); d != None {
		t.Errorf("first observation: got %v, want None", d)
	}
	if d := tr.Ingest(7, 102, 101, at(1.0)); d != None {
		t.Errorf("second observation: got %v, want None", d)
	}
	if d := tr.Ingest(7, 101, 99, at(2.1)); d != Fire {
		t.Errorf("third observation: got %v, want Fire", d)
	}
	if d := tr.Ingest(7, 100, 100, at(2.2)); d != AlreadyTriggered {
		t.Errorf("fourth observation: got %v, want AlreadyTriggered", d)
	}
}

func TestIngest_SingleObservationNeverFires(t *testing.T) {
	tr := New(testConfig())
	if d := tr.Ingest(1, 50, 50, at(0)); d != None {
		t.Errorf("got %v, want None", d)
	}
}

func TestIngest_MovementBlocksFiring(t *testing.T) {
	tr := New(testConfig())

	// Two observations 15px apart inside the window: never stable.
	tr.Ingest(3, 100, 100, at(0.0))
	tr.Ingest(3, 115, 100, at(1.0))
	if d := tr.Ingest(3, 115, 100, at(2.5)); d == Fire {
		t.Error("fired despite movement beyond threshold")
	}
}

func TestIngest_MovementRestartsStableClock(t *testing.T) {
	tr := New(testConfig())

	tr.Ingest(3, 100, 100, at(0.0))
	// Jump at t=1.0; the old position ages out of the window by t=3.0.
	tr.Ingest(3, 200, 200, at(1.0))
	tr.Ingest(3, 200, 200, at(2.0))
	if d := tr.Ingest(3, 201, 200, at(2.9)); d == Fire {
		t.Error("fired while the pre-jump position was still in the window")
	}
	// Stable at the new position since t=1.0; window clean after 3.0.
	if d := tr.Ingest(3, 200, 201, at(3.2)); d != Fire {
		t.Errorf("got %v, want Fire once the jump aged out", d)
	}
}

func TestIngest_OscillatingMarkerNeverFires(t *testing.T) {
	tr := New(testConfig())

	// Bounces 20px back and forth forever: never stable, never fires.
	for i := 0; i < 50; i++ {
		x := 100.0
		if i%2 == 1 {
			x = 120.0
		}
		if d := tr.Ingest(9, x, 100, at(float64(i)*0.2)); d == Fire {
			t.Fatalf("fired at step %d for an oscillating marker", i)
		}
	}
}

func TestIngest_IndependentIDs(t *testing.T) {
	tr := New(testConfig())

	// id 1 fires; id 2 is mid-window with its own history.
	tr.Ingest(1, 100, 100, at(0.0))
	tr.Ingest(2, 500, 500, at(0.5))
	tr.Ingest(1, 101, 100, at(1.0))
	if d := tr.Ingest(1, 100, 101, at(2.1)); d != Fire {
		t.Fatalf("id 1: got %v, want Fire", d)
	}

	if tr.Triggered(2) {
		t.Error("id 1 firing marked id 2 as triggered")
	}
	// id 2 continues independently and fires on its own schedule.
	tr.Ingest(2, 501, 500, at(1.5))
	if d := tr.Ingest(2, 500, 501, at(2.6)); d != Fire {
		t.Errorf("id 2: got %v, want Fire", d)
	}
}

func TestSweep_ClearsTriggeredAfterGracePeriod(t *testing.T) {
	tr := New(testConfig())

	tr.Ingest(7, 100, 100, at(0.0))
	tr.Ingest(7, 101, 100, at(1.0))
	if d := tr.Ingest(7, 100, 101, at(2.1)); d != Fire {
		t.Fatalf("setup: got %v, want Fire", d)
	}
	tr.Ingest(7, 100, 100, at(2.2))

	// Marker goes absent. Within the 4s grace the state survives.
	tr.Sweep(map[int]bool{}, at(4.0))
	if !tr.Triggered(7) {
		t.Fatal("triggered flag cleared before the grace period elapsed")
	}

	// Reappearing within grace must not allow a second fire.
	if d := tr.Ingest(7, 100, 100, at(4.1)); d == Fire {
		t.Error("re-fired within the grace period")
	}
	tr.Sweep(map[int]bool{7: true}, at(4.1))

	// Absent again, this time past the grace cutoff.
	tr.Sweep(map[int]bool{}, at(8.5))
	if tr.Triggered(7) {
		t.Fatal("triggered flag survived past the grace period")
	}
	if tr.TrackedCount() != 0 {
		t.Errorf("tracked count: got %d, want 0", tr.TrackedCount())
	}

	// A fresh stable window fires again.
	tr.Ingest(7, 300, 300, at(9.0))
	tr.Ingest(7, 301, 300, at(10.0))
	if d := tr.Ingest(7, 300, 301, at(11.1)); d != Fire {
		t.Errorf("after grace reset: got %v, want Fire", d)
	}
}

func TestSweep_AbsentMarkerCannotAnchorLaterFire(t *testing.T) {
	tr := New(testConfig())

	// One glimpse, a long absence with per-frame sweeps, then one more
	// glimpse at the same spot. Two sightings 3.9s apart are not
	// continuous visibility; the stale anchor must never produce a fire.
	tr.Ingest(5, 100, 100, at(0.0))
	for i := 1; i <= 38; i++ {
		tr.Sweep(map[int]bool{}, at(float64(i)*0.1))
	}
	if d := tr.Ingest(5, 100, 100, at(3.9)); d == Fire {
		t.Fatal("fired on the second-ever observation after a long absence")
	}
}

func TestSweep_GapWithinWindowStillCounts(t *testing.T) {
	tr := New(testConfig())

	// A short dropout inside the stability window is ordinary detection
	// noise: observations on both sides remain and the fire proceeds.
	tr.Ingest(6, 100, 100, at(0.0))
	tr.Sweep(map[int]bool{}, at(0.5))
	tr.Sweep(map[int]bool{}, at(1.0))
	tr.Ingest(6, 101, 100, at(1.5))
	if d := tr.Ingest(6, 100, 101, at(2.1)); d != Fire {
		t.Errorf("got %v, want Fire despite a sub-window dropout", d)
	}
}

func TestSweep_KeepsVisibleMarkers(t *testing.T) {
	tr := New(testConfig())

	tr.Ingest(5, 10, 10, at(0.0))
	tr.Ingest(5, 10, 10, at(1.0))
	tr.Ingest(5, 10, 10, at(2.1))

	// Visible markers are never swept, no matter how old their history.
	tr.Sweep(map[int]bool{5: true}, at(100.0))
	if !tr.Triggered(5) {
		t.Error("sweep cleared a visible marker")
	}
}

func TestDecisionString(t *testing.T) {
	cases := []struct {
		d    Decision
		want string
	}{
		{None, "none"},
		{Fire, "fire"},
		{AlreadyTriggered, "already-triggered"},
	}
	for _, tc := range cases {
		if got := tc.d.String(); got != tc.want {
			t.Errorf("Decision(%d).String(): got %q, want %q", tc.d, got, tc.want)
		}
	}
}
