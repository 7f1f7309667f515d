package source

import (
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Camera is a live capture device backed by a gocv VideoCapture.
type Camera struct {
	mu       sync.Mutex
	cap      *gocv.VideoCapture
	buf      gocv.Mat
	released bool
}

// OpenCamera acquires the capture device and verifies it produces
// frames. The hint is applied best-effort; the device keeps whatever
// mode it actually supports. On any failure the device is closed
// before returning, so a failed open never leaks the device.
func OpenCamera(deviceID int, hint ResolutionHint) (*Camera, error) {
	cap, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, fmt.Errorf("%w: open device %d: %v", ErrDeviceUnavailable, deviceID, err)
	}

	if hint.Width > 0 {
		cap.Set(gocv.VideoCaptureFrameWidth, float64(hint.Width))
	}
	if hint.Height > 0 {
		cap.Set(gocv.VideoCaptureFrameHeight, float64(hint.Height))
	}

	// Probe one frame so acquisition failures surface at open time,
	// not on the first sampler tick.
	probe := gocv.NewMat()
	if ok := cap.Read(&probe); !ok || probe.Empty() {
		probe.Close()
		cap.Close()
		return nil, fmt.Errorf("%w: device %d produced no frames", ErrDeviceUnavailable, deviceID)
	}
	probe.Close()

	return &Camera{
		cap: cap,
		buf: gocv.NewMat(),
	}, nil
}

// Kind implements Source.
func (c *Camera) Kind() Kind { return KindCamera }

// CurrentFrame reads the most recent decoded image from the device
// and returns it JPEG-encoded.
func (c *Camera) CurrentFrame() (Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		return Frame{}, ErrReleased
	}

	if ok := c.cap.Read(&c.buf); !ok || c.buf.Empty() {
		return Frame{}, fmt.Errorf("%w: read failed", ErrDeviceUnavailable)
	}

	data, err := encodeJPEG(c.buf)
	if err != nil {
		return Frame{}, err
	}

	return Frame{
		Data:      data,
		Width:     c.buf.Cols(),
		Height:    c.buf.Rows(),
		Timestamp: time.Now(),
	}, nil
}

// Release stops the capture device. Idempotent.
func (c *Camera) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		return nil
	}
	c.released = true

	c.buf.Close()
	return c.cap.Close()
}

// encodeJPEG encodes a Mat to JPEG bytes. The native buffer is copied
// out because it is freed on Close.
func encodeJPEG(m gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(".jpg", m)
	if err != nil {
		return nil, fmt.Errorf("source: encode frame: %w", err)
	}
	defer buf.Close()

	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())
	return data, nil
}
