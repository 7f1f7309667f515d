// Package pipeline coordinates the live capture loop: a mode
// controller owning the active media source, a periodic frame
// sampler, and the single-in-flight dispatch of frames to the
// detection backend.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/roadsight/helmetwatch/internal/log"
	"github.com/roadsight/helmetwatch/pkg/detect"
	"github.com/roadsight/helmetwatch/pkg/overlay"
	"github.com/roadsight/helmetwatch/pkg/source"
)

// Error kind names surfaced in State.LastError and notices.
const (
	KindDeviceUnavailable  = "device_unavailable"
	KindInvalidConfig      = "invalid_configuration"
	KindBackendUnavailable = "inference_unavailable"
	KindDecodeFailure      = "transport_decode_failure"
	KindInternal           = "internal"
)

// Factory opens media sources. Injected so tests can substitute mocks
// for real devices.
type Factory interface {
	OpenCamera(deviceID int, hint source.ResolutionHint) (source.Source, error)
	OpenImage(data []byte) (source.Source, error)
	DialStream(url string) (source.Source, error)
}

// DeviceFactory opens real sources from pkg/source.
type DeviceFactory struct{}

// OpenCamera implements Factory.
func (DeviceFactory) OpenCamera(deviceID int, hint source.ResolutionHint) (source.Source, error) {
	return source.OpenCamera(deviceID, hint)
}

// OpenImage implements Factory.
func (DeviceFactory) OpenImage(data []byte) (source.Source, error) {
	return source.OpenImage(data)
}

// DialStream implements Factory.
func (DeviceFactory) DialStream(url string) (source.Source, error) {
	return source.DialStream(url)
}

// Sink receives pipeline output: frames for the display surface,
// state and statistics updates, and transient notices. All methods
// are called from the pipeline run loop and must not block.
type Sink interface {
	PublishFrame(jpeg []byte)
	PublishAnnotated(jpeg []byte)
	PublishState(state State, stats detect.Statistics)
	PublishNotice(kind, message string)
}

// NopSink discards all pipeline output.
type NopSink struct{}

func (NopSink) PublishFrame([]byte)                   {}
func (NopSink) PublishAnnotated([]byte)               {}
func (NopSink) PublishState(State, detect.Statistics) {}
func (NopSink) PublishNotice(string, string)          {}

// acquireSpec carries the parameters of a pending source acquisition.
type acquireSpec struct {
	kind      source.Kind
	imageData []byte
	streamURL string
}

// request is one operation to execute on the run loop.
type request struct {
	op    func() error
	reply chan error
}

// Pipeline is the mode controller. All mutable pipeline state (the
// active source, the latest detection set, sequence counters) is
// owned by the single Run goroutine; public methods hand operations
// to it and wait for the answer. That one-loop discipline plus the
// dispatcher's single request slot is the entire concurrency model:
// no ordering is assumed between a tick firing and a response
// arriving.
type Pipeline struct {
	cfg       Config
	detector  detect.Detector
	dispatch  *detect.Dispatcher
	factory   Factory
	sink      Sink
	sampler   *Sampler

	reqs    chan request
	ticks   chan struct{}
	stopped chan struct{}

	// Run-loop-owned state. Never touched outside the loop.
	state       State
	src         source.Source
	period      time.Duration
	seq         uint64
	lastApplied uint64
	pendingOnce uint64
	latest      detect.DetectionSet
	stats       detect.Statistics
	runCtx      context.Context

	// Snapshot for readers outside the loop.
	snapMu     sync.RWMutex
	snapState  State
	snapStats  detect.Statistics
	snapPeriod time.Duration
}

// New creates a pipeline. The detector is the backend client (or a
// mock); sources are opened through the given factory.
func New(cfg Config, detector detect.Detector, factory Factory) *Pipeline {
	p := &Pipeline{
		cfg:      cfg,
		detector: detector,
		dispatch: detect.NewDispatcher(detector),
		factory:  factory,
		sink:     NopSink{},
		reqs:     make(chan request),
		ticks:    make(chan struct{}, 1),
		stopped:  make(chan struct{}),
		period:   cfg.SamplePeriod,
	}
	p.sampler = NewSampler(clock.New(), p.enqueueTick)
	p.snapPeriod = p.period
	return p
}

// SetSink sets the output sink. Call before Run.
func (p *Pipeline) SetSink(sink Sink) {
	if sink == nil {
		sink = NopSink{}
	}
	p.sink = sink
}

// SetClock replaces the sampler's clock. Call before Run; tests use a
// mock clock to drive ticks deterministically.
func (p *Pipeline) SetClock(clk clock.Clock) {
	p.sampler = NewSampler(clk, p.enqueueTick)
}

// enqueueTick hands a sampler tick to the run loop. Ticks coalesce:
// if the loop has not consumed the previous one yet, this one is
// dropped rather than queued.
func (p *Pipeline) enqueueTick() {
	select {
	case p.ticks <- struct{}{}:
	default:
	}
}

// Run executes the pipeline until ctx is canceled. On exit the
// sampler is stopped and the source released.
func (p *Pipeline) Run(ctx context.Context) {
	p.runCtx = ctx
	defer close(p.stopped)

	log.Info("pipeline started",
		"period", p.period,
		"camera", p.cfg.CameraDevice)

	for {
		select {
		case <-ctx.Done():
			p.teardown()
			return
		case req := <-p.reqs:
			req.reply <- req.op()
		case <-p.ticks:
			p.onTick()
		case res := <-p.dispatch.Results():
			p.onResult(res)
		}
	}
}

// do executes op on the run loop and returns its error.
func (p *Pipeline) do(op func() error) error {
	req := request{op: op, reply: make(chan error, 1)}
	select {
	case p.reqs <- req:
	case <-p.stopped:
		return ErrStopped
	}
	select {
	case err := <-req.reply:
		return err
	case <-p.stopped:
		return ErrStopped
	}
}

// --- Operations (safe from any goroutine) ---

// ActivateCamera makes the default camera the active source.
func (p *Pipeline) ActivateCamera() error {
	return p.do(func() error {
		return p.activate(acquireSpec{kind: source.KindCamera})
	})
}

// ActivateImage makes an uploaded still image the active source.
func (p *Pipeline) ActivateImage(data []byte) error {
	return p.do(func() error {
		return p.activate(acquireSpec{kind: source.KindImage, imageData: data})
	})
}

// ActivateStream makes a remote frame stream the active source.
func (p *Pipeline) ActivateStream(url string) error {
	return p.do(func() error {
		return p.activate(acquireSpec{kind: source.KindStream, streamURL: url})
	})
}

// StartDetection begins periodic sampling. A zero period keeps the
// current one; an out-of-range period is rejected and the previous
// value stays in effect. With no source active, the default camera is
// acquired first.
func (p *Pipeline) StartDetection(period time.Duration) error {
	return p.do(func() error {
		if period != 0 {
			if !ValidPeriod(period) {
				return ErrInvalidPeriod
			}
			p.period = period
		}

		st, cmds := p.state.StartSampling(source.KindCamera)
		return p.execute(st, cmds, acquireSpec{kind: source.KindCamera})
	})
}

// StopDetection stops sampling but keeps the source acquired. An
// in-flight request is allowed to finish; its result is dropped.
func (p *Pipeline) StopDetection() error {
	return p.do(func() error {
		st, cmds := p.state.StopSampling()
		return p.execute(st, cmds, acquireSpec{})
	})
}

// Deactivate stops sampling and releases the source.
func (p *Pipeline) Deactivate() error {
	return p.do(func() error {
		st, cmds := p.state.Deactivate()
		return p.execute(st, cmds, acquireSpec{})
	})
}

// DetectOnce captures and dispatches a single frame from the active
// source without starting the sampler. Useful for still images.
func (p *Pipeline) DetectOnce() error {
	return p.do(func() error {
		if p.src == nil {
			return ErrNoSource
		}
		frame, err := p.captureFrame()
		if err != nil {
			return err
		}
		p.sink.PublishFrame(frame.Data)
		if p.dispatch.Submit(p.runCtx, frame) {
			p.pendingOnce = frame.Seq
		}
		p.publishState()
		return nil
	})
}

// SetPeriod changes the sampling period, restarting a running sampler
// at the new cadence. Out-of-range periods are rejected and the prior
// value retained.
func (p *Pipeline) SetPeriod(period time.Duration) error {
	return p.do(func() error {
		if !ValidPeriod(period) {
			return ErrInvalidPeriod
		}
		p.period = period
		if p.sampler.Running() {
			if err := p.sampler.Start(period); err != nil {
				return err
			}
		}
		p.publishState()
		return nil
	})
}

// CurrentFrame reads a frame from the active source, e.g. for sample
// collection. It does not advance the capture sequence.
func (p *Pipeline) CurrentFrame() (source.Frame, error) {
	var frame source.Frame
	err := p.do(func() error {
		if p.src == nil {
			return ErrNoSource
		}
		var err error
		frame, err = p.src.CurrentFrame()
		return err
	})
	return frame, err
}

// Snapshot returns the externally visible state and statistics.
func (p *Pipeline) Snapshot() (State, detect.Statistics) {
	p.snapMu.RLock()
	defer p.snapMu.RUnlock()
	return p.snapState, p.snapStats
}

// Period returns the current sampling period.
func (p *Pipeline) Period() time.Duration {
	p.snapMu.RLock()
	defer p.snapMu.RUnlock()
	return p.snapPeriod
}

// Dropped returns the number of frames dropped while a request was in
// flight.
func (p *Pipeline) Dropped() uint64 {
	return p.dispatch.Dropped()
}

// --- Run-loop internals ---

// activate swaps the active source to the one described by spec.
func (p *Pipeline) activate(spec acquireSpec) error {
	st, cmds := p.state.Activate(spec.kind)
	return p.execute(st, cmds, spec)
}

// execute applies a transition's commands in order and commits the
// new state. On acquisition failure the pipeline falls back to Idle
// with the old source already released; the caller sees the error and
// the dashboard sees the notice.
func (p *Pipeline) execute(next State, cmds []Command, spec acquireSpec) error {
	for _, cmd := range cmds {
		switch cmd.Kind {
		case CmdStopSampler:
			p.sampler.Stop()
		case CmdReleaseSource:
			p.releaseSource()
		case CmdAcquireSource:
			src, err := p.openSource(spec)
			if err != nil {
				p.state = State{Mode: ModeIdle, Source: source.KindNone, LastError: errorKind(err)}
				p.sink.PublishNotice(errorKind(err), err.Error())
				p.publishState()
				return err
			}
			p.src = src
		case CmdStartSampler:
			if err := p.sampler.Start(p.period); err != nil {
				return err
			}
		}
	}

	p.state = next
	p.state.InFlight = p.dispatch.InFlight()
	p.state.LastError = ""
	p.publishState()

	log.Info("pipeline transition",
		"mode", p.state.Mode.String(),
		"source", p.state.Source.String())
	return nil
}

// openSource opens the source described by spec through the factory.
func (p *Pipeline) openSource(spec acquireSpec) (source.Source, error) {
	switch spec.kind {
	case source.KindCamera:
		return p.factory.OpenCamera(p.cfg.CameraDevice, p.cfg.Resolution)
	case source.KindImage:
		return p.factory.OpenImage(spec.imageData)
	case source.KindStream:
		return p.factory.DialStream(spec.streamURL)
	default:
		return nil, ErrNoSource
	}
}

// releaseSource releases the active source, if any. Release is
// idempotent so double releases on teardown paths are harmless.
func (p *Pipeline) releaseSource() {
	if p.src == nil {
		return
	}
	if err := p.src.Release(); err != nil {
		log.Warn("source release failed", "err", err)
	}
	p.src = nil
}

// captureFrame reads a frame from the active source and tags it with
// the next capture sequence number.
func (p *Pipeline) captureFrame() (source.Frame, error) {
	frame, err := p.src.CurrentFrame()
	if err != nil {
		return source.Frame{}, err
	}
	p.seq++
	frame.Seq = p.seq
	return frame, nil
}

// onTick captures the next frame and hands it to the dispatcher. The
// tick never waits for inference: a frame submitted while a request
// is outstanding is dropped by the dispatcher.
func (p *Pipeline) onTick() {
	if p.state.Mode != ModeSampling || p.src == nil {
		return
	}

	frame, err := p.captureFrame()
	if err != nil {
		p.fail(err)
		return
	}

	// Raw frame first, so the display stays live even while the
	// detection result is pending.
	p.sink.PublishFrame(frame.Data)

	p.dispatch.Submit(p.runCtx, frame)
	p.state.InFlight = p.dispatch.InFlight()
	p.publishState()
}

// onResult applies one dispatch outcome. Results are discarded when
// stale (an answer for a frame older than one already applied) and
// dropped silently when sampling has since stopped.
func (p *Pipeline) onResult(res detect.Result) {
	p.state.InFlight = p.dispatch.InFlight()

	expected := p.state.Mode == ModeSampling || res.Frame.Seq == p.pendingOnce
	if !expected {
		log.Debug("dropping result after stop", "seq", res.Frame.Seq)
		p.publishState()
		return
	}

	if res.Frame.Seq == p.pendingOnce {
		p.pendingOnce = 0
	}

	if res.Err != nil {
		p.fail(res.Err)
		return
	}

	if res.Frame.Seq <= p.lastApplied {
		log.Debug("discarding stale result",
			"seq", res.Frame.Seq,
			"applied", p.lastApplied)
		p.publishState()
		return
	}

	p.lastApplied = res.Frame.Seq
	p.latest = detect.DetectionSet{FrameSeq: res.Frame.Seq, Detections: res.Detections}
	p.stats = detect.Compute(res.Detections)
	p.state.LastError = ""

	annotated, err := overlay.RenderStatic(res.Frame, res.Detections)
	if err != nil {
		log.Warn("overlay render failed", "seq", res.Frame.Seq, "err", err)
	} else {
		p.sink.PublishAnnotated(annotated)
	}

	p.publishState()
}

// fail records a recoverable error. Nothing here is fatal: the next
// tick or the next user action is the retry.
func (p *Pipeline) fail(err error) {
	kind := errorKind(err)
	p.state.LastError = kind
	p.sink.PublishNotice(kind, err.Error())
	p.publishState()
	log.Warn("pipeline error", "kind", kind, "err", err)
}

// teardown releases everything on shutdown.
func (p *Pipeline) teardown() {
	p.sampler.Stop()
	p.releaseSource()
	p.state = State{Mode: ModeIdle, Source: source.KindNone}
	p.publishState()
	log.Info("pipeline stopped")
}

// publishState pushes the current state to the sink and refreshes the
// reader snapshot.
func (p *Pipeline) publishState() {
	st := p.state.named()

	p.snapMu.Lock()
	p.snapState = st
	p.snapStats = p.stats
	p.snapPeriod = p.period
	p.snapMu.Unlock()

	p.sink.PublishState(st, p.stats)
}

// errorKind maps an error to its taxonomy name.
func errorKind(err error) string {
	switch {
	case errors.Is(err, source.ErrDeviceUnavailable), errors.Is(err, source.ErrReleased):
		return KindDeviceUnavailable
	case errors.Is(err, ErrInvalidPeriod):
		return KindInvalidConfig
	case errors.Is(err, detect.ErrBadResponse):
		return KindDecodeFailure
	case errors.Is(err, detect.ErrBackendUnavailable):
		return KindBackendUnavailable
	default:
		return KindInternal
	}
}
