// Package lifecycle sequences the boot handoff between the primary
// core and the peer core.
//
// Primary: Boot → Granted → Held → TransportReset → Released →
// AwaitingReady → Operational.
//
// Peer: (held in reset until released) Boot → ReadySignaled →
// Operational.
//
// The handshake is bidirectional. The peer raises ready, repeating
// until it sees the ack. The primary accepts ready only after
// release and answers with the ack.
package lifecycle

import "fmt"

// State is a state of either track.
type State int

// States.
const (
	StateBoot State = iota
	StateGranted
	StateHeld
	StateTransportReset
	StateReleased
	StateAwaitingReady
	StateReadySignaled
	StateOperational
)

var stateNames = map[State]string{
	StateBoot:           "boot",
	StateGranted:        "granted",
	StateHeld:           "held",
	StateTransportReset: "transport-reset",
	StateReleased:       "released",
	StateAwaitingReady:  "awaiting-ready",
	StateReadySignaled:  "ready-signaled",
	StateOperational:    "operational",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// BootState is the reset state of the peer core as driven by the
// primary.
type BootState int

// Boot states.
const (
	BootHeld BootState = iota
	BootReleased
)

func (s BootState) String() string {
	if s == BootReleased {
		return "released"
	}
	return "held"
}

// Track identifies which side a state belongs to.
type Track int

// Tracks.
const (
	TrackPrimary Track = iota
	TrackPeer
)

func (t Track) String() string {
	if t == TrackPeer {
		return "peer"
	}
	return "primary"
}

// StateNotifier is called on every transition.
type StateNotifier interface {
	StateChanged(Track, State)
}

// StateChangedFunc is func type of StateNotifier.
type StateChangedFunc func(Track, State)

// StateChanged implements StateNotifier.
func (f StateChangedFunc) StateChanged(track Track, state State) {
	f(track, state)
}
