package session

// State represents the session state.
type State uint8

const (
	// StateUninitialized indicates the session has not been created.
	StateUninitialized State = iota

	// StateDisconnected indicates no active connection; the retry
	// timer is armed.
	StateDisconnected

	// StateConnecting indicates a dial is in progress.
	StateConnecting

	// StateHandshaking indicates the init/ack/reconfigure exchange is
	// in progress on a freshly dialed connection.
	StateHandshaking

	// StateConnected indicates an active connection with the
	// dispatcher installed.
	StateConnected

	// StateClosed indicates the supervisor has been shut down.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateHandshaking:
		return "HANDSHAKING"
	case StateConnected:
		return "CONNECTED"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}
