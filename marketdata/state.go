package marketdata

import "time"

// Phase is the lifecycle position of a stream session.
type Phase string

const (
	PhaseConnecting Phase = "connecting"
	PhaseSubscribed Phase = "subscribed"
	PhaseDraining   Phase = "draining"
	PhaseClosed     Phase = "closed"
)

// ExitReason records why the receive loop ended.
type ExitReason string

const (
	ExitDuration       ExitReason = "duration"
	ExitRemoteClose    ExitReason = "remote_close"
	ExitTransportError ExitReason = "transport_error"
	ExitContext        ExitReason = "context"
)

type EventKind int

const (
	EventSubscribed EventKind = iota
	EventFrame
	EventIdle
	EventHeartbeat
	EventRemoteClose
	EventTransportError
	EventDeadline
	EventCancelled
	EventClosed
)

// Event is one input to StreamState.Step.
type Event struct {
	Kind    EventKind
	At      time.Time
	Channel Channel
	Trades  int
}

// Thresholds control when idle cycles produce diagnostics.
type Thresholds struct {
	QuietThreshold int
	ProgressEvery  int
}

// Effects are the one-shot outputs of a state transition.
type Effects struct {
	Confirmed bool
	Quiet     bool
	Progress  bool
}

// StreamState holds the counters of one session. It is a value: Step returns
// the next state and never mutates the receiver.
type StreamState struct {
	Phase         Phase
	Started       time.Time
	Elapsed       time.Duration
	Frames        int
	Trades        int
	IdleCycles    int
	Confirmed     bool
	LastHeartbeat time.Time
	Exit          ExitReason
}

func NewStreamState(started time.Time) StreamState {
	return StreamState{
		Phase:         PhaseConnecting,
		Started:       started,
		LastHeartbeat: started,
	}
}

// Active reports whether the receive loop should keep running.
func (s StreamState) Active() bool {
	return s.Phase == PhaseSubscribed
}

func (s StreamState) HeartbeatDue(now time.Time, interval time.Duration) bool {
	return now.Sub(s.LastHeartbeat) >= interval
}

// Step applies ev to s. Events other than EventClosed are ignored once the
// session is draining.
func (s StreamState) Step(ev Event, th Thresholds) (StreamState, Effects) {
	var fx Effects
	if !ev.At.IsZero() && !s.Started.IsZero() {
		s.Elapsed = ev.At.Sub(s.Started)
	}

	if s.Phase == PhaseDraining || s.Phase == PhaseClosed {
		if ev.Kind == EventClosed {
			s.Phase = PhaseClosed
		}
		return s, fx
	}

	switch ev.Kind {
	case EventSubscribed:
		s.Phase = PhaseSubscribed
		s.LastHeartbeat = ev.At

	case EventFrame:
		s.Frames++
		s.IdleCycles = 0
		if ev.Channel == ChannelSubscriptionResponse && !s.Confirmed {
			s.Confirmed = true
			fx.Confirmed = true
		}
		if ev.Channel == ChannelTrades && ev.Trades > 0 {
			s.Trades += ev.Trades
		}

	case EventIdle:
		s.IdleCycles++
		if th.ProgressEvery > 0 && s.Confirmed && s.IdleCycles%th.ProgressEvery == 0 {
			fx.Progress = true
		}
		if s.IdleCycles == th.QuietThreshold {
			fx.Quiet = true
		}

	case EventHeartbeat:
		s.LastHeartbeat = ev.At

	case EventRemoteClose:
		s.Frames++
		s.drain(ExitRemoteClose)

	case EventTransportError:
		s.drain(ExitTransportError)

	case EventDeadline:
		s.drain(ExitDuration)

	case EventCancelled:
		s.drain(ExitContext)

	case EventClosed:
		if s.Exit == "" {
			s.Exit = ExitContext
		}
		s.Phase = PhaseClosed
	}
	return s, fx
}

func (s *StreamState) drain(reason ExitReason) {
	s.Phase = PhaseDraining
	s.Exit = reason
}
