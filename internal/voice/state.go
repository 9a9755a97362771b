package voice

// State of the realtime voice session.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateRecording
	StateError
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateRecording:
		return "recording"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// transitions lists the legal state changes. Error is reachable from
// Connecting, Connected and Recording on transport failure; its only exit
// is back to Disconnected.
var transitions = map[State][]State{
	StateDisconnected: {StateConnecting},
	StateConnecting:   {StateConnected, StateError, StateDisconnected},
	StateConnected:    {StateRecording, StateDisconnected, StateError},
	StateRecording:    {StateConnected, StateDisconnected, StateError},
	StateError:        {StateDisconnected},
}

func canTransition(from, to State) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
