// Package transport provides the transport port of a deepstream connection.
//
// The connection state machine does not know how bytes reach the server. It
// talks to a Transport, which sends payloads and reports lifecycle events to
// a single Listener:
//
//	OnOpen     the underlying socket is ready
//	OnMessage  a payload arrived (may hold several protocol messages)
//	OnError    the socket failed
//	OnClose    the socket is gone; emitted exactly once per Open
//
// # WebSocket
//
// WebSocket is the production implementation on top of gorilla/websocket.
// Every received frame is delivered as one payload. A ping loop keeps idle
// connections alive and detects dead peers:
//   - Ping interval: 20 seconds
//   - Pong timeout: 10 seconds past the next expected ping
//
// Reconnection is not handled here. A Dialer can be re-opened after OnClose
// by whatever reconnection policy the application installs.
package transport
