// Package source provides media sources for the capture pipeline.
// A source wraps one capability: produce the next raw frame as a
// decodable image buffer. Live cameras, remote frame streams and
// static images all sit behind the same interface.
package source

import (
	"errors"
	"time"
)

// Sentinel errors for source conditions.
var (
	// ErrDeviceUnavailable is returned when a capture device cannot be
	// opened, is denied, or stops producing frames.
	ErrDeviceUnavailable = errors.New("source: device unavailable")

	// ErrReleased is returned when reading from a released source.
	ErrReleased = errors.New("source: released")
)

// Kind identifies the type of media source.
type Kind int

const (
	// KindNone means no source is active.
	KindNone Kind = iota
	// KindCamera is a local capture device.
	KindCamera
	// KindImage is a static uploaded image.
	KindImage
	// KindStream is a remote websocket frame stream.
	KindStream
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindCamera:
		return "camera"
	case KindImage:
		return "image"
	case KindStream:
		return "stream"
	default:
		return "none"
	}
}

// Frame is one sampled image from a source.
//
// Data is JPEG-encoded and must not be modified after capture; it is
// shared by reference between the dispatcher and the renderer. Seq is
// assigned by the pipeline at capture time, monotonically increasing,
// and lets downstream consumers detect stale detection results without
// relying on callback arrival order.
type Frame struct {
	Data      []byte
	Width     int
	Height    int
	Seq       uint64
	Timestamp time.Time
}

// Source produces frames until released.
//
// CurrentFrame returns the most recent decodable frame. On a live
// source each call reads fresh pixels; on a static image it returns
// the same frame every call.
//
// Release stops any underlying hardware or network acquisition. It is
// idempotent and safe to call on an already-released source; it must
// be called on every exit path, including failed setup.
type Source interface {
	Kind() Kind
	CurrentFrame() (Frame, error)
	Release() error
}

// ResolutionHint is a preferred capture resolution. It is a hint only:
// the device may pick the nearest mode it supports, and an unmet hint
// is never an error.
type ResolutionHint struct {
	Width  int
	Height int
}

// DefaultHint returns the preferred capture resolution for live sources.
func DefaultHint() ResolutionHint {
	return ResolutionHint{Width: 1280, Height: 720}
}
