package detect

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/roadsight/helmetwatch/pkg/source"
)

// blockingDetector blocks each Detect call until release is closed.
type blockingDetector struct {
	release chan struct{}
	dets    []Detection
}

func (d *blockingDetector) Detect(ctx context.Context, frame source.Frame) ([]Detection, error) {
	<-d.release
	return d.dets, nil
}

func TestDispatcher_SingleInFlight(t *testing.T) {
	det := &blockingDetector{
		release: make(chan struct{}),
		dets:    []Detection{{HasHelmet: true, Confidence: 0.9}},
	}
	d := NewDispatcher(det)
	ctx := context.Background()

	if !d.Submit(ctx, source.Frame{Seq: 1}) {
		t.Fatal("Submit(seq 1) = false, want accepted")
	}

	// Second frame while the first is outstanding must be dropped.
	if d.Submit(ctx, source.Frame{Seq: 2}) {
		t.Error("Submit(seq 2) = true, want dropped while in flight")
	}
	if got := d.Dropped(); got != 1 {
		t.Errorf("Dropped() = %d, want 1", got)
	}
	if !d.InFlight() {
		t.Error("InFlight() = false, want true")
	}

	close(det.release)

	select {
	case res := <-d.Results():
		if res.Frame.Seq != 1 {
			t.Errorf("result seq = %d, want 1", res.Frame.Seq)
		}
		if res.Err != nil {
			t.Errorf("result err = %v, want nil", res.Err)
		}
		if len(res.Detections) != 1 {
			t.Errorf("result detections = %d, want 1", len(res.Detections))
		}
	case <-time.After(time.Second):
		t.Fatal("no result after release")
	}

	// Slot must clear once the result is consumed.
	waitFor(t, func() bool { return !d.InFlight() })
	if !d.Submit(ctx, source.Frame{Seq: 3}) {
		t.Error("Submit(seq 3) = false, want accepted after slot cleared")
	}
}

func TestDispatcher_BlockedConsumerBlocksSubmissions(t *testing.T) {
	det := NewMock([]Detection{{HasHelmet: true}})
	d := NewDispatcher(det)
	ctx := context.Background()

	// First result fills the buffered channel; nobody drains it.
	d.Submit(ctx, source.Frame{Seq: 1})
	waitFor(t, func() bool { return !d.InFlight() })

	// Second request completes but cannot deliver, so the slot stays
	// occupied and further frames are dropped.
	d.Submit(ctx, source.Frame{Seq: 2})
	time.Sleep(50 * time.Millisecond)
	if !d.InFlight() {
		t.Error("InFlight() = false, want true while consumer is stalled")
	}
	if d.Submit(ctx, source.Frame{Seq: 3}) {
		t.Error("Submit(seq 3) = true, want dropped while consumer is stalled")
	}

	// Draining unblocks delivery and frees the slot.
	<-d.Results()
	<-d.Results()
	waitFor(t, func() bool { return !d.InFlight() })
}

func TestDispatcher_ErrorDelivered(t *testing.T) {
	wantErr := errors.New("boom")
	det := &Mock{
		DetectFunc: func(ctx context.Context, frame source.Frame) ([]Detection, error) {
			return nil, wantErr
		},
	}
	d := NewDispatcher(det)

	d.Submit(context.Background(), source.Frame{Seq: 7})

	res := <-d.Results()
	if res.Frame.Seq != 7 {
		t.Errorf("result seq = %d, want 7", res.Frame.Seq)
	}
	if !errors.Is(res.Err, wantErr) {
		t.Errorf("result err = %v, want %v", res.Err, wantErr)
	}
}

// waitFor polls cond until it holds or the test deadline is near.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
