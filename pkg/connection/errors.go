package connection

import "errors"

// Session errors.
var (
	// ErrConnectionClosed is returned for commands on a terminated session.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrAuthAttemptsExhausted is returned by Authenticate once the server
	// has reported too many authentication attempts.
	ErrAuthAttemptsExhausted = errors.New("authentication attempts exhausted")

	// ErrNotAwaitingAuthentication is returned by Authenticate when the
	// handshake has not completed or an attempt is already outstanding.
	ErrNotAwaitingAuthentication = errors.New("connection is not awaiting authentication")

	// ErrNilCallback is returned by Authenticate without a callback.
	ErrNilCallback = errors.New("login callback is nil")

	// ErrNotOpen is returned by Send before the session is authenticated.
	ErrNotOpen = errors.New("connection is not open")

	// ErrReservedTopic is returned by HandleTopic for topics the session
	// handles itself.
	ErrReservedTopic = errors.New("topic is handled by the connection")

	// ErrRedirectUnsupported is reported when the server answers the
	// challenge with a redirect.
	ErrRedirectUnsupported = errors.New("connection redirect is not supported")
)

// closedMessage is the message reported with IS_CLOSED.
const closedMessage = "the client's connection was closed"
