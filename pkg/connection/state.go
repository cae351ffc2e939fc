package connection

// State is the connection state of a Session.
type State uint8

const (
	// StateClosed indicates no transport connection. Initial and terminal.
	StateClosed State = iota

	// StateAwaitingConnection indicates the transport is open and the
	// server's challenge is expected.
	StateAwaitingConnection

	// StateChallenging indicates the challenge response was sent.
	StateChallenging

	// StateAwaitingAuthentication indicates the handshake completed and
	// the session is ready to authenticate.
	StateAwaitingAuthentication

	// StateAuthenticating indicates an auth request is outstanding.
	StateAuthenticating

	// StateOpen indicates the session is authenticated.
	StateOpen

	// StateError indicates the transport or the handshake failed.
	StateError

	// StateReconnecting indicates the transport was lost and is being
	// re-established.
	StateReconnecting
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateAwaitingConnection:
		return "AWAITING_CONNECTION"
	case StateChallenging:
		return "CHALLENGING"
	case StateAwaitingAuthentication:
		return "AWAITING_AUTHENTICATION"
	case StateAuthenticating:
		return "AUTHENTICATING"
	case StateOpen:
		return "OPEN"
	case StateError:
		return "ERROR"
	case StateReconnecting:
		return "RECONNECTING"
	default:
		return "UNKNOWN"
	}
}

// States returns all states in declaration order.
func States() []State {
	return []State{
		StateClosed,
		StateAwaitingConnection,
		StateChallenging,
		StateAwaitingAuthentication,
		StateAuthenticating,
		StateOpen,
		StateError,
		StateReconnecting,
	}
}
