package pipeline

import (
	"github.com/roadsight/helmetwatch/pkg/source"
)

// Mode is the pipeline's lifecycle stage.
type Mode int

const (
	// ModeIdle: no source acquired.
	ModeIdle Mode = iota
	// ModeSourcing: source acquired, sampler not running.
	ModeSourcing
	// ModeSampling: source acquired, sampler running.
	ModeSampling
)

// String returns a human-readable mode name.
func (m Mode) String() string {
	switch m {
	case ModeSourcing:
		return "sourcing"
	case ModeSampling:
		return "sampling"
	default:
		return "idle"
	}
}

// State is the pipeline's externally visible state. It is owned by the
// run loop; everything else reads snapshots or requests transitions.
type State struct {
	Mode      Mode        `json:"-"`
	ModeName  string      `json:"mode"`
	Source    source.Kind `json:"-"`
	SourceKey string      `json:"source"`
	InFlight  bool        `json:"in_flight"`
	LastError string      `json:"last_error,omitempty"`
}

// named fills the JSON-facing name fields from the enum fields.
func (s State) named() State {
	s.ModeName = s.Mode.String()
	s.SourceKey = s.Source.String()
	return s
}

// CommandKind identifies a side effect requested by a transition.
type CommandKind int

const (
	// CmdStopSampler stops the periodic sampler.
	CmdStopSampler CommandKind = iota
	// CmdReleaseSource releases the currently held source.
	CmdReleaseSource
	// CmdAcquireSource acquires the source named in Command.Acquire.
	CmdAcquireSource
	// CmdStartSampler starts the periodic sampler.
	CmdStartSampler
)

// Command is one side effect to execute, in order, after a transition.
// Transitions stay pure; the run loop interprets commands, so illegal
// interleavings (two sources acquired, sampler running with no source)
// cannot be expressed.
type Command struct {
	Kind    CommandKind
	Acquire source.Kind
}

// Activate transitions to a newly acquired source of the given kind.
// Activating while a source is held releases the old one first; while
// sampling, the sampler is stopped for the swap and restarted after,
// so two sources are never acquired simultaneously.
func (s State) Activate(kind source.Kind) (State, []Command) {
	next := s
	next.Source = kind

	switch s.Mode {
	case ModeIdle:
		next.Mode = ModeSourcing
		return next, []Command{{Kind: CmdAcquireSource, Acquire: kind}}
	case ModeSourcing:
		return next, []Command{
			{Kind: CmdReleaseSource},
			{Kind: CmdAcquireSource, Acquire: kind},
		}
	default: // ModeSampling: direct swap keeps detection running
		return next, []Command{
			{Kind: CmdStopSampler},
			{Kind: CmdReleaseSource},
			{Kind: CmdAcquireSource, Acquire: kind},
			{Kind: CmdStartSampler},
		}
	}
}

// StartSampling transitions to Sampling. With no source acquired the
// default kind is activated implicitly first.
func (s State) StartSampling(defaultKind source.Kind) (State, []Command) {
	switch s.Mode {
	case ModeIdle:
		next := s
		next.Mode = ModeSampling
		next.Source = defaultKind
		return next, []Command{
			{Kind: CmdAcquireSource, Acquire: defaultKind},
			{Kind: CmdStartSampler},
		}
	case ModeSourcing:
		next := s
		next.Mode = ModeSampling
		return next, []Command{{Kind: CmdStartSampler}}
	default: // already sampling
		return s, nil
	}
}

// StopSampling transitions Sampling back to Sourcing. The source stays
// acquired.
func (s State) StopSampling() (State, []Command) {
	if s.Mode != ModeSampling {
		return s, nil
	}
	next := s
	next.Mode = ModeSourcing
	return next, []Command{{Kind: CmdStopSampler}}
}

// Deactivate transitions any mode to Idle, always releasing the
// source.
func (s State) Deactivate() (State, []Command) {
	next := s
	next.Mode = ModeIdle
	next.Source = source.KindNone

	switch s.Mode {
	case ModeSampling:
		return next, []Command{
			{Kind: CmdStopSampler},
			{Kind: CmdReleaseSource},
		}
	case ModeSourcing:
		return next, []Command{{Kind: CmdReleaseSource}}
	default:
		return next, nil
	}
}
