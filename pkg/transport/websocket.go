package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket defaults.
const (
	// DefaultHandshakeTimeout bounds the opening handshake.
	DefaultHandshakeTimeout = 10 * time.Second

	// DefaultWriteTimeout bounds a single frame write.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultPingInterval is the interval between websocket pings.
	DefaultPingInterval = 20 * time.Second

	// DefaultPongTimeout is how long past the next ping a pong may be late.
	DefaultPongTimeout = 10 * time.Second

	// DefaultMaxMessageSize is the maximum size of a received frame (1MB).
	DefaultMaxMessageSize = 1 << 20
)

// Transport errors.
var (
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("already connected")
)

// WebSocketConfig configures a WebSocket transport.
type WebSocketConfig struct {
	// HandshakeTimeout bounds the opening handshake (default: 10s).
	HandshakeTimeout time.Duration

	// WriteTimeout bounds each write (0 = no deadline).
	WriteTimeout time.Duration

	// PingInterval is the keep-alive ping interval (0 = no pings).
	PingInterval time.Duration

	// PongTimeout is added to PingInterval to form the read deadline.
	PongTimeout time.Duration

	// MaxMessageSize limits received frames (0 = unlimited).
	MaxMessageSize int64

	// Header is sent with the opening handshake.
	Header http.Header
}

// DefaultWebSocketConfig returns the default websocket configuration.
func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		HandshakeTimeout: DefaultHandshakeTimeout,
		WriteTimeout:     DefaultWriteTimeout,
		PingInterval:     DefaultPingInterval,
		PongTimeout:      DefaultPongTimeout,
		MaxMessageSize:   DefaultMaxMessageSize,
	}
}

// WebSocket is a Dialer over a gorilla/websocket client connection.
type WebSocket struct {
	url    string
	config WebSocketConfig

	mu             sync.Mutex
	listener       Listener
	conn           *websocket.Conn
	closeRequested bool

	// writeMu serialises all frame writes (data, ping, close).
	writeMu sync.Mutex
}

// NewWebSocket creates a websocket transport for url (not yet connected).
func NewWebSocket(url string, config WebSocketConfig) *WebSocket {
	if config.HandshakeTimeout == 0 {
		config.HandshakeTimeout = DefaultHandshakeTimeout
	}
	return &WebSocket{
		url:    url,
		config: config,
	}
}

// URL returns the endpoint the transport dials.
func (w *WebSocket) URL() string {
	return w.url
}

// SetListener registers the listener for lifecycle events.
func (w *WebSocket) SetListener(l Listener) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listener = l
}

// IsConnected returns true while a socket is open.
func (w *WebSocket) IsConnected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn != nil
}

// Open dials the server, emits OnOpen and starts the read loop.
func (w *WebSocket) Open(ctx context.Context) error {
	w.mu.Lock()
	if w.conn != nil {
		w.mu.Unlock()
		return ErrAlreadyConnected
	}
	w.mu.Unlock()

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: w.config.HandshakeTimeout,
	}
	conn, resp, err := dialer.DialContext(ctx, w.url, w.config.Header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("dial failed: %w", err)
	}
	if w.config.MaxMessageSize > 0 {
		conn.SetReadLimit(w.config.MaxMessageSize)
	}
	if w.config.PingInterval > 0 {
		readWindow := w.config.PingInterval + w.config.PongTimeout
		conn.SetReadDeadline(time.Now().Add(readWindow))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(readWindow))
		})
	}

	w.mu.Lock()
	if w.conn != nil {
		w.mu.Unlock()
		conn.Close()
		return ErrAlreadyConnected
	}
	w.conn = conn
	w.closeRequested = false
	listener := w.listener
	w.mu.Unlock()

	if listener != nil {
		listener.OnOpen()
	}

	done := make(chan struct{})
	go w.readLoop(conn, done)
	if w.config.PingInterval > 0 {
		go w.pingLoop(conn, done)
	}
	return nil
}

// Send writes payload as a single text frame.
func (w *WebSocket) Send(payload []byte) error {
	w.mu.Lock()
	conn := w.conn
	w.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	if w.config.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(w.config.WriteTimeout))
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	return nil
}

// Close sends a normal-closure frame and closes the socket. The read loop
// then emits OnClose. Closing a transport that is not open is a no-op.
func (w *WebSocket) Close() error {
	w.mu.Lock()
	conn := w.conn
	if conn == nil {
		w.mu.Unlock()
		return nil
	}
	w.closeRequested = true
	w.mu.Unlock()

	w.writeMu.Lock()
	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	w.writeMu.Unlock()

	return conn.Close()
}

// readLoop delivers frames until the socket fails, then reports the close.
func (w *WebSocket) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			w.finish(conn, err)
			return
		}

		w.mu.Lock()
		listener := w.listener
		w.mu.Unlock()
		if listener != nil {
			listener.OnMessage(data)
		}
	}
}

// finish tears down conn and emits OnError (for abnormal closes) and OnClose.
func (w *WebSocket) finish(conn *websocket.Conn, readErr error) {
	w.mu.Lock()
	if w.conn == conn {
		w.conn = nil
	}
	requested := w.closeRequested
	listener := w.listener
	w.mu.Unlock()

	conn.Close()

	if listener == nil {
		return
	}
	if !requested && !websocket.IsCloseError(readErr, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		listener.OnError(fmt.Errorf("connection lost: %w", readErr))
	}
	listener.OnClose()
}

// pingLoop sends periodic pings until the read loop exits.
func (w *WebSocket) pingLoop(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(w.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			w.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(max(w.config.PongTimeout, time.Second)))
			w.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
