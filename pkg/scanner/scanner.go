// Package scanner runs the per-frame detection loop: it reads frames,
// detects markers, filters them through the stability tracker, and fires
// trigger events for markers the registry cares about.
package scanner

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"

	"github.com/wizzyworks/go-bridge/internal/log"
	"github.com/wizzyworks/go-bridge/pkg/dispatch"
	"github.com/wizzyworks/go-bridge/pkg/scanner/detection"
	"github.com/wizzyworks/go-bridge/pkg/stability"
)

// FrameSource supplies frames to the loop.
type FrameSource interface {
	// Read fills dst with the next frame. False means no frame was
	// available; the loop skips the iteration.
	Read(dst *gocv.Mat) bool
	Close() error
}

// Detector finds markers in a frame.
type Detector interface {
	Detect(frame gocv.Mat) ([]detection.Marker, error)
	Close() error
}

// Targets is the registry surface the loop reads. Observations for ids
// not present are discarded for triggering purposes.
type Targets interface {
	Get(id int) (json.RawMessage, bool)
}

// loopDelay keeps a tight loop from pinning a core between frames.
const loopDelay = 10 * time.Millisecond

// Scanner drives detection. It owns the stability tracker; all tracker
// mutation happens on the Run goroutine.
type Scanner struct {
	source     FrameSource
	detector   Detector
	targets    Targets
	tracker    *stability.Tracker
	dispatcher *dispatch.Dispatcher
	log        *slog.Logger

	// Latest annotated frame for the monitor. Written by the loop,
	// read by the web server.
	frameMu     sync.RWMutex
	latestFrame []byte

	triggerCount atomic.Uint64

	// OnTrigger, if set, is notified after each dispatched trigger.
	// Used by the monitor to broadcast events; must not block.
	OnTrigger func(id int, payload json.RawMessage, normalizedX float64)
}

// trigger is one Fire decision resolved against the registry.
type trigger struct {
	id          int
	payload     json.RawMessage
	normalizedX float64
}

// New creates a scanner. The dispatcher receives one call per trigger edge.
func New(source FrameSource, detector Detector, targets Targets, cfg stability.Config, dispatcher *dispatch.Dispatcher) *Scanner {
	return &Scanner{
		source:     source,
		detector:   detector,
		targets:    targets,
		tracker:    stability.New(cfg),
		dispatcher: dispatcher,
		log:        log.Component("scanner"),
	}
}

// Run loops until ctx is cancelled. It never blocks on network I/O; the
// registry is the only shared state it touches.
func (s *Scanner) Run(ctx context.Context) {
	img := gocv.NewMat()
	defer img.Close()

	s.log.Info("started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info("stopped")
			return
		default:
		}

		if ok := s.source.Read(&img); !ok || img.Empty() {
			time.Sleep(loopDelay)
			continue
		}

		markers, err := s.detector.Detect(img)
		if err != nil {
			s.log.Warn("detect failed", "error", err)
			continue
		}

		now := time.Now()
		triggers := s.processFrame(markers, img.Cols(), now)
		for _, tr := range triggers {
			s.triggerCount.Add(1)
			s.log.Info("marker triggered",
				"marker_id", tr.id,
				"normalized_x", tr.normalizedX,
			)
			s.dispatcher.Dispatch(tr.id, tr.payload, tr.normalizedX)
			if s.OnTrigger != nil {
				s.OnTrigger(tr.id, tr.payload, tr.normalizedX)
			}
		}

		s.annotate(&img, markers)
		s.storeFrame(img)

		time.Sleep(loopDelay)
	}
}

// processFrame feeds one frame's detections through the registry and the
// stability tracker, then sweeps absent ids. Pure over its inputs apart
// from tracker state, so it is testable without frames.
func (s *Scanner) processFrame(markers []detection.Marker, frameWidth int, now time.Time) []trigger {
	var fired []trigger
	visible := make(map[int]bool, len(markers))

	for _, m := range markers {
		visible[m.ID] = true

		payload, ok := s.targets.Get(m.ID)
		if !ok {
			// Not a target: rendered by the overlay, never tracked.
			continue
		}

		cx, cy := m.Center()
		if s.tracker.Ingest(m.ID, cx, cy, now) == stability.Fire {
			fired = append(fired, trigger{
				id:          m.ID,
				payload:     payload,
				normalizedX: normalizedX(cx, frameWidth),
			})
		}
	}

	s.tracker.Sweep(visible, now)
	return fired
}

// normalizedX maps a pixel x to [-1, 1] across the frame width.
func normalizedX(cx float64, frameWidth int) float64 {
	if frameWidth <= 0 {
		return 0
	}
	return (cx/float64(frameWidth))*2 - 1
}

// storeFrame publishes the annotated frame as JPEG for the monitor.
func (s *Scanner) storeFrame(img gocv.Mat) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	if err != nil {
		return
	}
	defer buf.Close()

	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())

	s.frameMu.Lock()
	s.latestFrame = data
	s.frameMu.Unlock()
}

// LatestFrame returns a copy of the most recent annotated frame as JPEG.
func (s *Scanner) LatestFrame() ([]byte, bool) {
	s.frameMu.RLock()
	defer s.frameMu.RUnlock()
	if s.latestFrame == nil {
		return nil, false
	}
	out := make([]byte, len(s.latestFrame))
	copy(out, s.latestFrame)
	return out, true
}

// TriggerCount returns the number of triggers fired since start.
func (s *Scanner) TriggerCount() uint64 {
	return s.triggerCount.Load()
}
