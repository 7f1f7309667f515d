package detect

import (
	"context"
	"sync"

	"github.com/roadsight/helmetwatch/pkg/source"
)

// Mock implements Detector for testing.
type Mock struct {
	// DetectFunc is called when Detect is invoked.
	DetectFunc func(ctx context.Context, frame source.Frame) ([]Detection, error)

	mu    sync.Mutex
	seqs  []uint64
	calls int
}

// NewMock creates a mock detector that returns the given detections
// for every frame.
func NewMock(dets []Detection) *Mock {
	return &Mock{
		DetectFunc: func(ctx context.Context, frame source.Frame) ([]Detection, error) {
			return dets, nil
		},
	}
}

// Detect calls DetectFunc and records the call.
func (m *Mock) Detect(ctx context.Context, frame source.Frame) ([]Detection, error) {
	m.mu.Lock()
	m.calls++
	m.seqs = append(m.seqs, frame.Seq)
	m.mu.Unlock()

	if m.DetectFunc != nil {
		return m.DetectFunc(ctx, frame)
	}
	return nil, ErrBackendUnavailable
}

// Calls returns the number of Detect invocations.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Seqs returns the frame sequence numbers seen, in call order.
func (m *Mock) Seqs() []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]uint64, len(m.seqs))
	copy(out, m.seqs)
	return out
}
