package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/roadsight/helmetwatch/internal/httpc"
	"github.com/roadsight/helmetwatch/pkg/source"
)

// maxErrorBody bounds how much of an error response we keep for logs.
const maxErrorBody = 256

// Detector runs helmet detection on a single frame.
type Detector interface {
	Detect(ctx context.Context, frame source.Frame) ([]Detection, error)
}

// Client is the HTTP client for the detection backend.
//
// The backend contract: POST {base}/process with a multipart body
// containing one "image" field; a 2xx response carries
// {"detections": [...], "count": n}. Anything else is
// ErrBackendUnavailable.
type Client struct {
	rc *resty.Client
}

// NewClient creates a backend client for the given base URL, e.g.
// "http://localhost:8844".
func NewClient(baseURL string) *Client {
	rc := resty.NewWithClient(httpc.Client).
		SetBaseURL(baseURL)
	return &Client{rc: rc}
}

// Detect sends the frame to the backend and returns its detections.
// There is no application-level retry: under live sampling the next
// tick is the retry.
func (c *Client) Detect(ctx context.Context, frame source.Frame) ([]Detection, error) {
	resp, err := c.rc.R().
		SetContext(ctx).
		SetFileReader("image", "frame.jpg", bytes.NewReader(frame.Data)).
		Post("/process")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	if !resp.IsSuccess() {
		return nil, &APIError{
			StatusCode: resp.StatusCode(),
			Body:       truncate(resp.String(), maxErrorBody),
		}
	}

	var wire wireResponse
	if err := json.Unmarshal(resp.Body(), &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}

	dets := make([]Detection, 0, len(wire.Detections))
	for _, w := range wire.Detections {
		d, ok := w.toDetection()
		if !ok {
			return nil, fmt.Errorf("%w: bbox with %d elements", ErrBadResponse, len(w.BBox))
		}
		dets = append(dets, d)
	}
	return dets, nil
}

// truncate shortens s to at most n bytes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
