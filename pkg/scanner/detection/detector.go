// Package detection provides fiducial marker detection using computer vision.
package detection

// Point is a 2D pixel coordinate.
type Point struct {
	X, Y float64
}

// Marker represents one detected fiducial marker in a frame.
type Marker struct {
	ID      int
	Corners [4]Point // Ordered corner points in pixels
}

// Center returns the marker's center point, the mean of its four corners.
func (m Marker) Center() (x, y float64) {
	for _, c := range m.Corners {
		x += c.X
		y += c.Y
	}
	return x / 4, y / 4
}

// Config holds detector configuration.
type Config struct {
	// Dictionary names the fiducial dictionary to detect.
	// Currently "4x4_50" is the only supported value.
	Dictionary string
}

// DefaultConfig returns the production detector configuration.
func DefaultConfig() Config {
	return Config{
		Dictionary: "4x4_50",
	}
}
