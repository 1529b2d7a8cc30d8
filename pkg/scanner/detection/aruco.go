package detection

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// ArucoDetector detects ArUco markers using OpenCV's built-in detector.
type ArucoDetector struct {
	detector gocv.ArucoDetector
	config   Config
	mu       sync.Mutex // Protects inference
}

// NewAruco creates an ArUco detector for the configured dictionary.
func NewAruco(cfg Config) (*ArucoDetector, error) {
	var code gocv.ArucoDictionaryCode
	switch cfg.Dictionary {
	case "", "4x4_50":
		code = gocv.ArucoDict4x4_50
	default:
		return nil, fmt.Errorf("unsupported dictionary: %s", cfg.Dictionary)
	}

	params := gocv.NewArucoDetectorParameters()
	dict := gocv.GetPredefinedDictionary(code)

	return &ArucoDetector{
		detector: gocv.NewArucoDetectorWithParams(dict, params),
		config:   cfg,
	}, nil
}

// Detect finds markers in the frame and returns their ids and corners.
func (d *ArucoDetector) Detect(frame gocv.Mat) ([]Marker, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if frame.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	corners, ids, _ := d.detector.DetectMarkers(frame)

	var markers []Marker
	for i, id := range ids {
		if len(corners[i]) != 4 {
			continue
		}
		m := Marker{ID: id}
		for j, pt := range corners[i] {
			m.Corners[j] = Point{X: float64(pt.X), Y: float64(pt.Y)}
		}
		markers = append(markers, m)
	}

	return markers, nil
}

// Close releases the detector resources.
func (d *ArucoDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detector.Close()
	return nil
}
