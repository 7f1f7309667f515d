package source

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Image is a static image source. CurrentFrame is deterministic and
// returns the same pixels every call.
type Image struct {
	mu       sync.Mutex
	data     []byte
	width    int
	height   int
	released bool
}

// OpenImage wraps already-loaded image bytes (e.g. a dashboard upload)
// as a source. The bytes are decoded once to validate them and probe
// dimensions, then kept in their encoded form.
func OpenImage(data []byte) (*Image, error) {
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("source: decode image: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("source: decode image: empty or unsupported format")
	}

	// Keep a private copy so later mutation by the caller cannot
	// change what CurrentFrame returns.
	own := make([]byte, len(data))
	copy(own, data)

	return &Image{
		data:   own,
		width:  mat.Cols(),
		height: mat.Rows(),
	}, nil
}

// OpenImageFile loads an image from disk as a source.
func OpenImageFile(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("source: read %s: %w", path, err)
	}
	return OpenImage(data)
}

// Kind implements Source.
func (i *Image) Kind() Kind { return KindImage }

// CurrentFrame returns the static image. Each call yields the same
// bytes; sequence numbers are the pipeline's concern.
func (i *Image) CurrentFrame() (Frame, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.released {
		return Frame{}, ErrReleased
	}

	return Frame{
		Data:      i.data,
		Width:     i.width,
		Height:    i.height,
		Timestamp: time.Now(),
	}, nil
}

// Release drops the image data. Idempotent.
func (i *Image) Release() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.released = true
	i.data = nil
	return nil
}
