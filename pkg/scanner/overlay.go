package scanner

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/wizzyworks/go-bridge/pkg/scanner/detection"
)

var (
	colorTarget    = color.RGBA{G: 255, A: 255}            // green outline
	colorTriggered = color.RGBA{R: 255, A: 255}            // red label
	colorTracking  = color.RGBA{B: 255, A: 255}            // blue label
	colorNonTarget = color.RGBA{R: 128, G: 128, B: 128, A: 255}
	colorCenter    = color.RGBA{R: 255, A: 255}            // red center line
)

// annotate draws marker outlines, center lines and status labels onto the
// frame. Target markers get a green outline; non-targets a thin grey one.
func (s *Scanner) annotate(img *gocv.Mat, markers []detection.Marker) {
	height := img.Rows()
	width := img.Cols()

	for _, m := range markers {
		isTarget := false
		if _, ok := s.targets.Get(m.ID); ok {
			isTarget = true
		}

		outline := colorNonTarget
		thickness := 1
		if isTarget {
			outline = colorTarget
			thickness = 2
		}

		pts := make([]image.Point, 4)
		for i, c := range m.Corners {
			pts[i] = image.Pt(int(c.X), int(c.Y))
		}
		for i := 0; i < 4; i++ {
			gocv.Line(img, pts[i], pts[(i+1)%4], outline, thickness)
		}

		// Vertical line through the marker center, full frame height.
		cx, _ := m.Center()
		gocv.Line(img, image.Pt(int(cx), 0), image.Pt(int(cx), height), colorCenter, 2)

		label, labelColor := s.markerLabel(m.ID, isTarget, normalizedX(cx, width))
		gocv.PutText(img, label, pts[0], gocv.FontHersheySimplex, 0.7, labelColor, 2)
	}
}

func (s *Scanner) markerLabel(id int, isTarget bool, nx float64) (string, color.RGBA) {
	if !isTarget {
		return fmt.Sprintf("ID:%d NOT_TARGET X:%.2f", id, nx), colorNonTarget
	}
	if s.tracker.Triggered(id) {
		return fmt.Sprintf("ID:%d TRIGGERED X:%.2f", id, nx), colorTriggered
	}
	return fmt.Sprintf("ID:%d TRACKING X:%.2f", id, nx), colorTracking
}
