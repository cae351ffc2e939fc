package connection

import (
	"github.com/deepstreamio/deepstream-go/pkg/wire"
)

// StateObserver is notified of every connection state change.
// Calls are synchronous; an observer may query the session but must not
// block.
type StateObserver interface {
	ConnectionStateChanged(state State)
}

// StateObserverFunc adapts a function to StateObserver.
type StateObserverFunc func(state State)

// ConnectionStateChanged calls f(state).
func (f StateObserverFunc) ConnectionStateChanged(state State) {
	f(state)
}

// LoginCallback receives the outcome of one Authenticate call. Exactly one
// of its methods is called, exactly once.
type LoginCallback interface {
	// LoginSuccess is called with the session data sent by the server,
	// or an empty map when there was none.
	LoginSuccess(data map[string]any)

	// LoginFailed is called with the reason the attempt failed.
	LoginFailed(event wire.Event, message string)
}

// LoginFuncs adapts a pair of functions to LoginCallback. Nil functions are
// skipped.
type LoginFuncs struct {
	Success func(data map[string]any)
	Failed  func(event wire.Event, message string)
}

// LoginSuccess calls f.Success.
func (f LoginFuncs) LoginSuccess(data map[string]any) {
	if f.Success != nil {
		f.Success(data)
	}
}

// LoginFailed calls f.Failed.
func (f LoginFuncs) LoginFailed(event wire.Event, message string) {
	if f.Failed != nil {
		f.Failed(event, message)
	}
}

// ErrorSink receives errors that have no caller to return to, such as
// server error messages or misuse of a closed connection.
// Implemented by client.Client.
type ErrorSink interface {
	ReportError(topic wire.Topic, event wire.Event, message string)
}

// ErrorSinkFunc adapts a function to ErrorSink.
type ErrorSinkFunc func(topic wire.Topic, event wire.Event, message string)

// ReportError calls f.
func (f ErrorSinkFunc) ReportError(topic wire.Topic, event wire.Event, message string) {
	f(topic, event, message)
}

// Reconnector is the reconnection policy of a session.
// Implemented by Reconnect.
type Reconnector interface {
	// ConnectionLost is called when the transport closed without a
	// Close request. It returns true if the policy will redial, in which
	// case the session moves to RECONNECTING. It is called with the
	// session lock held and must not call back into the session.
	ConnectionLost() bool

	// ConnectionEstablished is called when the transport reopens after
	// ConnectionLost.
	ConnectionEstablished()
}

// Compile-time interface satisfaction checks.
var (
	_ StateObserver = StateObserverFunc(nil)
	_ LoginCallback = LoginFuncs{}
	_ ErrorSink     = ErrorSinkFunc(nil)
	_ Reconnector   = (*Reconnect)(nil)
)
