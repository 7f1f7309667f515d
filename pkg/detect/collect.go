package detect

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/roadsight/helmetwatch/internal/httpc"
	"github.com/roadsight/helmetwatch/pkg/source"
)

// Sample labels accepted by the backend's training-data endpoint.
const (
	LabelHelmet   = "helmet"
	LabelNoHelmet = "no_helmet"
)

// Collector submits labeled frames to the backend's /collect endpoint
// so operators can grow the training set from live footage.
type Collector struct {
	rc *resty.Client
}

// NewCollector creates a collector for the given backend base URL.
func NewCollector(baseURL string) *Collector {
	rc := resty.NewWithClient(httpc.Client).
		SetBaseURL(baseURL)
	return &Collector{rc: rc}
}

// Submit uploads one labeled frame. label must be LabelHelmet or
// LabelNoHelmet.
func (c *Collector) Submit(ctx context.Context, frame source.Frame, label string) error {
	if label != LabelHelmet && label != LabelNoHelmet {
		return fmt.Errorf("detect: invalid sample label %q", label)
	}

	name := fmt.Sprintf("sample_%s.jpg", uuid.New().String()[:8])
	resp, err := c.rc.R().
		SetContext(ctx).
		SetFileReader("image", name, bytes.NewReader(frame.Data)).
		SetFormData(map[string]string{"label": label}).
		Post("/collect")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if !resp.IsSuccess() {
		return &APIError{
			StatusCode: resp.StatusCode(),
			Body:       truncate(resp.String(), maxErrorBody),
		}
	}
	return nil
}
