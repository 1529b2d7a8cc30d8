// Package config provides configuration helpers for go-bridge commands.
package config

import (
	"os"
	"strconv"
)

// Defaults for the bridge.
const (
	DefaultServerURL   = "ws://localhost:8080/"
	DefaultMonitorPort = "9090"
	DefaultCameraIndex = 0
)

// ServerURL returns the target server URL from BRIDGE_SERVER_URL.
// Falls back to the default if not set.
func ServerURL() string {
	if url := os.Getenv("BRIDGE_SERVER_URL"); url != "" {
		return url
	}
	return DefaultServerURL
}

// MonitorPort returns the monitor web server port from BRIDGE_MONITOR_PORT.
func MonitorPort() string {
	if port := os.Getenv("BRIDGE_MONITOR_PORT"); port != "" {
		return port
	}
	return DefaultMonitorPort
}

// CameraIndex returns the camera device index from BRIDGE_CAMERA_INDEX.
// 0 is usually the built-in webcam, 1 or higher are external webcams.
func CameraIndex() int {
	if v := os.Getenv("BRIDGE_CAMERA_INDEX"); v != "" {
		if idx, err := strconv.Atoi(v); err == nil && idx >= 0 {
			return idx
		}
	}
	return DefaultCameraIndex
}

// OutputDir returns the directory for triggered payload artifacts
// from BRIDGE_OUTPUT_DIR. Empty means artifact writing is disabled.
func OutputDir() string {
	return os.Getenv("BRIDGE_OUTPUT_DIR")
}

// LogLevel returns the log level from BRIDGE_LOG_LEVEL or "info".
func LogLevel() string {
	if lvl := os.Getenv("BRIDGE_LOG_LEVEL"); lvl != "" {
		return lvl
	}
	return "info"
}
