package detect

import (
	"context"
	"sync"

	"github.com/roadsight/helmetwatch/internal/log"
	"github.com/roadsight/helmetwatch/pkg/source"
)

// Result is the outcome of one dispatched frame. Exactly one of
// Detections/Err is meaningful; Frame is always the frame that was
// sent, so consumers can run their staleness check against it.
type Result struct {
	Frame      source.Frame
	Detections []Detection
	Err        error
}

// Dispatcher serializes frames to the backend with a single reusable
// request slot.
//
// Invariant: at most one request is in flight at any time. A frame
// submitted while another is outstanding is dropped, not queued:
// under load, freshness beats completeness, because a queued frame
// would be stale by the time the in-flight request resolves anyway.
//
// The result is delivered on Results before the slot clears, so a
// consumer that stops draining the channel also stops new
// submissions rather than piling up requests.
type Dispatcher struct {
	detector Detector

	mu       sync.Mutex
	inFlight bool
	dropped  uint64

	results chan Result
}

// NewDispatcher creates a dispatcher around the given detector.
func NewDispatcher(detector Detector) *Dispatcher {
	return &Dispatcher{
		detector: detector,
		results:  make(chan Result, 1),
	}
}

// Submit dispatches the frame unless a request is already in flight.
// It returns false when the frame was dropped. Fire-and-forget: the
// outcome arrives on Results.
func (d *Dispatcher) Submit(ctx context.Context, frame source.Frame) bool {
	d.mu.Lock()
	if d.inFlight {
		d.dropped++
		dropped := d.dropped
		d.mu.Unlock()
		log.Debug("frame dropped, request in flight", "seq", frame.Seq, "dropped_total", dropped)
		return false
	}
	d.inFlight = true
	d.mu.Unlock()

	go func() {
		dets, err := d.detector.Detect(ctx, frame)

		// Deliver before clearing the slot: a full results channel
		// keeps blocking new submissions.
		d.results <- Result{Frame: frame, Detections: dets, Err: err}

		d.mu.Lock()
		d.inFlight = false
		d.mu.Unlock()
	}()
	return true
}

// Results delivers one Result per accepted Submit, in submission order.
func (d *Dispatcher) Results() <-chan Result {
	return d.results
}

// InFlight reports whether a request is currently outstanding.
func (d *Dispatcher) InFlight() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inFlight
}

// Dropped returns the lifetime count of frames dropped because a
// request was in flight.
func (d *Dispatcher) Dropped() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped
}
