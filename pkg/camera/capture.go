package camera

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/wizzyworks/go-bridge/internal/log"
)

// Capture wraps an open video device. It implements the scanner's
// FrameSource.
type Capture struct {
	cap *gocv.VideoCapture
	cfg Config
}

// Open opens the device and applies the configuration. A device that
// cannot be opened is a hard failure: the bridge has no useful degraded
// mode without frames.
func Open(cfg Config) (*Capture, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid camera config: %w", err)
	}

	cap, err := gocv.OpenVideoCapture(cfg.Index)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", cfg.Index, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("camera %d did not open", cfg.Index)
	}

	cap.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	cap.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	cap.Set(gocv.VideoCaptureAutoExposure, cfg.AutoExposure)
	cap.Set(gocv.VideoCaptureExposure, cfg.Exposure)

	log.Info("camera opened",
		"index", cfg.Index,
		"width", cfg.Width,
		"height", cfg.Height,
	)

	return &Capture{cap: cap, cfg: cfg}, nil
}

// Read fills dst with the next frame. False means no frame was available.
func (c *Capture) Read(dst *gocv.Mat) bool {
	return c.cap.Read(dst)
}

// Close releases the device.
func (c *Capture) Close() error {
	return c.cap.Close()
}
