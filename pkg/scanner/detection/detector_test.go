package detection

import "testing"

func TestMarkerCenter(t *testing.T) {
	m := Marker{
		ID: 1,
		Corners: [4]Point{
			{X: 100, Y: 200},
			{X: 120, Y: 200},
			{X: 120, Y: 220},
			{X: 100, Y: 220},
		},
	}
	x, y := m.Center()
	if x != 110 || y != 210 {
		t.Errorf("Center: got (%v, %v), want (110, 210)", x, y)
	}
}

func TestMarkerCenter_SkewedQuad(t *testing.T) {
	// A perspective-skewed marker still centers on the corner mean.
	m := Marker{
		Corners: [4]Point{
			{X: 0, Y: 0},
			{X: 40, Y: 4},
			{X: 36, Y: 44},
			{X: 4, Y: 40},
		},
	}
	x, y := m.Center()
	if x != 20 || y != 22 {
		t.Errorf("Center: got (%v, %v), want (20, 22)", x, y)
	}
}
