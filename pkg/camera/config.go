// Package camera opens a local video device and supplies frames to the
// scanner. Camera-parameter tuning lives here, outside the detection core.
package camera

import "fmt"

// Config holds capture parameters.
type Config struct {
	// Index is the video device index. 0 is usually the built-in webcam,
	// 1 or higher are external webcams.
	Index int

	Width  int
	Height int

	// AutoExposure sets the device auto-exposure mode. 0.25 selects
	// manual mode on V4L2 backends.
	AutoExposure float64

	// Exposure is the manual exposure value, applied when auto-exposure
	// is off. Backend-specific units.
	Exposure float64
}

// DefaultConfig returns the capture parameters used in production:
// 1080p with a short manual exposure to keep marker edges sharp.
func DefaultConfig() Config {
	return Config{
		Index:        0,
		Width:        1920,
		Height:       1080,
		AutoExposure: 0.25,
		Exposure:     -6,
	}
}

// Validate checks the configuration for obviously bad values.
func (c Config) Validate() error {
	if c.Index < 0 {
		return fmt.Errorf("camera index must be >= 0, got %d", c.Index)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid resolution %dx%d", c.Width, c.Height)
	}
	return nil
}
