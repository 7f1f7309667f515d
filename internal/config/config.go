// Package config provides configuration helpers for helmetwatch commands.
package config

import (
	"os"
	"strconv"
	"time"
)

// Defaults for the service configuration.
const (
	DefaultBackendURL   = "http://localhost:8844"
	DefaultListenPort   = "8090"
	DefaultCameraDevice = 0
	DefaultSamplePeriod = 1500 * time.Millisecond
)

// BackendURL returns the detection backend base URL from HELMET_BACKEND_URL.
// Falls back to the local development backend if not set.
func BackendURL() string {
	if url := os.Getenv("HELMET_BACKEND_URL"); url != "" {
		return url
	}
	return DefaultBackendURL
}

// ListenPort returns the dashboard listen port from HELMET_PORT or default.
func ListenPort() string {
	if port := os.Getenv("HELMET_PORT"); port != "" {
		return port
	}
	return DefaultListenPort
}

// CameraDevice returns the capture device ID from HELMET_CAMERA or default.
func CameraDevice() int {
	if dev := os.Getenv("HELMET_CAMERA"); dev != "" {
		if id, err := strconv.Atoi(dev); err == nil {
			return id
		}
	}
	return DefaultCameraDevice
}

// SamplePeriod returns the capture period from HELMET_PERIOD_MS or default.
func SamplePeriod() time.Duration {
	if ms := os.Getenv("HELMET_PERIOD_MS"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil {
			return time.Duration(v) * time.Millisecond
		}
	}
	return DefaultSamplePeriod
}

// LogLevel returns the log level from HELMET_LOG_LEVEL or "info".
func LogLevel() string {
	if lvl := os.Getenv("HELMET_LOG_LEVEL"); lvl != "" {
		return lvl
	}
	return "info"
}
