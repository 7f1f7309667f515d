package pipeline

import (
	"time"

	"github.com/roadsight/helmetwatch/pkg/source"
)

// Sampling period bounds. Periods outside this range are rejected to
// keep backend load bounded.
const (
	MinSamplePeriod = 500 * time.Millisecond
	MaxSamplePeriod = 5 * time.Second
)

// Config holds the tunable parameters of the capture pipeline.
type Config struct {
	// SamplePeriod is the interval between capture ticks while
	// detection is running. Must be within [MinSamplePeriod,
	// MaxSamplePeriod].
	SamplePeriod time.Duration

	// CameraDevice is the capture device ID for the default camera
	// source.
	CameraDevice int

	// Resolution is the preferred capture resolution for live
	// sources. A hint only; unmet hints are not errors.
	Resolution source.ResolutionHint
}

// DefaultConfig returns the recommended pipeline configuration.
func DefaultConfig() Config {
	return Config{
		SamplePeriod: 1500 * time.Millisecond,
		CameraDevice: 0,
		Resolution:   source.DefaultHint(),
	}
}

// Validate checks that the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errs []string
	if c.SamplePeriod < MinSamplePeriod || c.SamplePeriod > MaxSamplePeriod {
		errs = append(errs, "sample period must be between 500ms and 5s")
	}
	if c.CameraDevice < 0 {
		errs = append(errs, "camera device must be >= 0")
	}
	return errs
}

// ValidPeriod reports whether a sampling period is inside the
// configured bounds.
func ValidPeriod(p time.Duration) bool {
	return p >= MinSamplePeriod && p <= MaxSamplePeriod
}
