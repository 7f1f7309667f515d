package source

import (
	"sync"
)

// Mock implements Source for testing.
type Mock struct {
	// SourceKind is the kind reported by Kind. Defaults to KindCamera.
	SourceKind Kind

	// CurrentFrameFunc is called when CurrentFrame is invoked.
	CurrentFrameFunc func() (Frame, error)

	// ReleaseFunc is called when Release is invoked.
	ReleaseFunc func() error

	mu           sync.Mutex
	frameCalls   int
	releaseCalls int
}

// NewMock creates a mock source that returns the given frame forever.
func NewMock(frame Frame) *Mock {
	return &Mock{
		SourceKind: KindCamera,
		CurrentFrameFunc: func() (Frame, error) {
			return frame, nil
		},
	}
}

// Kind implements Source.
func (m *Mock) Kind() Kind {
	if m.SourceKind == KindNone {
		return KindCamera
	}
	return m.SourceKind
}

// CurrentFrame calls CurrentFrameFunc and records the call.
func (m *Mock) CurrentFrame() (Frame, error) {
	m.mu.Lock()
	m.frameCalls++
	m.mu.Unlock()

	if m.CurrentFrameFunc != nil {
		return m.CurrentFrameFunc()
	}
	return Frame{}, ErrReleased
}

// Release calls ReleaseFunc and records the call.
func (m *Mock) Release() error {
	m.mu.Lock()
	m.releaseCalls++
	m.mu.Unlock()

	if m.ReleaseFunc != nil {
		return m.ReleaseFunc()
	}
	return nil
}

// FrameCalls returns how many times CurrentFrame was called.
func (m *Mock) FrameCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frameCalls
}

// ReleaseCalls returns how many times Release was called.
func (m *Mock) ReleaseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releaseCalls
}
