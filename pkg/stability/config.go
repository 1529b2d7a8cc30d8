package stability

import "time"

// Config holds the tunable parameters for marker stability detection.
type Config struct {
	// Threshold is the maximum pixel movement allowed between any two
	// observations in the active window for the marker to count as stable.
	Threshold float64

	// Duration is how long a marker must stay within Threshold before it
	// triggers. It is also the length of the trailing observation window;
	// the grace period before a triggered marker may fire again is twice
	// this value.
	Duration time.Duration
}

// DefaultConfig returns the production parameters: a marker must sit still
// within 10px for 2 seconds.
func DefaultConfig() Config {
	return Config{
		Threshold: 10.0,
		Duration:  2 * time.Second,
	}
}

// QuickConfig returns parameters for demos and manual testing: triggers
// after half a second with a looser movement budget.
func QuickConfig() Config {
	cfg := DefaultConfig()
	cfg.Threshold = 25.0
	cfg.Duration = 500 * time.Millisecond
	return cfg
}

// grace is the absence duration after which a marker's triggered state
// resets, allowing it to fire again.
func (c Config) grace() time.Duration {
	return 2 * c.Duration
}
