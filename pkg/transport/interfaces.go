package transport

import (
	"context"
)

// Listener receives transport lifecycle events. Implementations must not
// assume any particular goroutine.
type Listener interface {
	// OnOpen is called when the transport is ready to send.
	OnOpen()

	// OnMessage is called for every received payload, in arrival order.
	OnMessage(payload []byte)

	// OnClose is called once when the transport has closed.
	OnClose()

	// OnError is called when the transport fails. OnClose follows.
	OnError(err error)
}

// Transport is the port the connection core sends through.
// Implemented by WebSocket.
type Transport interface {
	// SetListener registers the single listener, replacing any previous one.
	SetListener(l Listener)

	// Send sends a payload to the server.
	Send(payload []byte) error
}

// Dialer is a Transport that can be opened and closed repeatedly.
// Implemented by WebSocket.
type Dialer interface {
	Transport

	// Open establishes the connection. OnOpen is emitted before Open returns.
	Open(ctx context.Context) error

	// Close closes the connection. OnClose is emitted asynchronously.
	Close() error
}

// Compile-time interface satisfaction checks.
var (
	_ Transport = (*WebSocket)(nil)
	_ Dialer    = (*WebSocket)(nil)
)
