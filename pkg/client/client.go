package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deepstreamio/deepstream-go/pkg/connection"
	"github.com/deepstreamio/deepstream-go/pkg/log"
	"github.com/deepstreamio/deepstream-go/pkg/metrics"
	"github.com/deepstreamio/deepstream-go/pkg/transport"
	"github.com/deepstreamio/deepstream-go/pkg/wire"
)

// closeTimeout bounds how long Close waits for the transport to report
// the close.
const closeTimeout = 5 * time.Second

// ErrorReport is an error delivered to the client's error handler.
type ErrorReport struct {
	Topic   wire.Topic
	Event   wire.Event
	Message string
	Time    time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the operational logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithProtocolLogger adds a protocol capture logger. It is combined with
// the capture file of the config, if any.
func WithProtocolLogger(logger log.Logger) Option {
	return func(c *Client) {
		c.extraProtocolLogger = logger
	}
}

// WithMetrics records connection metrics in m.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithTransport replaces the websocket transport. Connect and reconnection
// require the transport to implement transport.Dialer.
func WithTransport(t transport.Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// WithErrorHandler sets the handler for error reports.
func WithErrorHandler(fn func(ErrorReport)) Option {
	return func(c *Client) {
		c.errorHandler = fn
	}
}

// Client is a deepstream client bound to one server URL.
type Client struct {
	config Config
	connID string

	logger              *slog.Logger
	extraProtocolLogger log.Logger
	fileLogger          *log.FileLogger
	metrics             *metrics.Collector
	errorHandler        func(ErrorReport)

	transport transport.Transport
	dialer    transport.Dialer
	reconnect *connection.Reconnect
	session   *connection.Session

	// terminated is closed once the session reaches its final CLOSED state.
	terminated     chan struct{}
	terminatedOnce sync.Once
	closeOnce      sync.Once
	closeErr       error
}

// New creates a client. The connection is not opened until Connect.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config:     cfg,
		connID:     uuid.NewString(),
		terminated: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	c.logger = c.logger.With("conn_id", c.connID)

	if cfg.Log.ProtocolLog != "" {
		fl, err := log.NewFileLogger(cfg.Log.ProtocolLog)
		if err != nil {
			return nil, err
		}
		c.fileLogger = fl
	}

	if c.transport == nil {
		c.transport = transport.NewWebSocket(cfg.URL, cfg.WebSocket.transportConfig())
	}
	if d, ok := c.transport.(transport.Dialer); ok {
		c.dialer = d
	}

	sessionOpts := []connection.Option{
		connection.WithLogger(c.logger),
		connection.WithObserver(connection.StateObserverFunc(c.stateChanged)),
	}
	if pl := c.protocolLogger(); pl != nil {
		sessionOpts = append(sessionOpts, connection.WithProtocolLogger(pl, c.connID))
	}
	if c.metrics != nil {
		sessionOpts = append(sessionOpts, connection.WithObserver(c.metrics))
	}
	if cfg.Reconnect.Enabled && c.dialer != nil {
		c.reconnect = connection.NewReconnect(c.dialer.Open, cfg.Reconnect.connectionConfig())
		c.reconnect.OnReconnecting(c.reconnecting)
		c.reconnect.OnGiveUp(c.giveUp)
		sessionOpts = append(sessionOpts, connection.WithReconnector(c.reconnect))
	}

	c.session = connection.NewSession(cfg.URL, c.transport, c, sessionOpts...)
	return c, nil
}

// protocolLogger combines the configured capture loggers.
func (c *Client) protocolLogger() log.Logger {
	var loggers []log.Logger
	if c.fileLogger != nil {
		loggers = append(loggers, c.fileLogger)
	}
	if c.extraProtocolLogger != nil {
		loggers = append(loggers, c.extraProtocolLogger)
	}
	switch len(loggers) {
	case 0:
		return nil
	case 1:
		return loggers[0]
	default:
		return log.NewMultiLogger(loggers...)
	}
}

// Connect opens the transport. The handshake then proceeds on its own;
// observe AWAITING_AUTHENTICATION to Login.
func (c *Client) Connect(ctx context.Context) error {
	if c.session.IsTerminated() {
		return ErrClosed
	}
	if c.dialer == nil {
		return ErrNoDialer
	}

	c.logger.Info("connecting", "url", c.config.URL)
	if err := c.dialer.Open(ctx); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.config.URL, err)
	}
	return nil
}

// Login authenticates with params. cb receives the outcome exactly once.
// See connection.Session.Authenticate for the rejected cases.
func (c *Client) Login(params map[string]any, cb connection.LoginCallback) error {
	if cb == nil {
		// Still goes to the session so a closed connection is reported.
		return c.session.Authenticate(params, nil)
	}
	return c.session.Authenticate(params, connection.LoginFuncs{
		Success: func(data map[string]any) {
			c.logger.Info("login succeeded")
			if c.metrics != nil {
				c.metrics.ObserveLogin(true, "")
			}
			cb.LoginSuccess(data)
		},
		Failed: func(event wire.Event, message string) {
			c.logger.Info("login failed", "event", event.String(), "message", message)
			if c.metrics != nil {
				c.metrics.ObserveLogin(false, event)
			}
			cb.LoginFailed(event, message)
		},
	})
}

// State returns the connection state.
func (c *Client) State() connection.State {
	return c.session.State()
}

// AddConnectionChangeListener registers a state observer.
func (c *Client) AddConnectionChangeListener(o connection.StateObserver) {
	c.session.AddConnectionChangeListener(o)
}

// Session returns the underlying session, for higher-level subsystems.
func (c *Client) Session() *connection.Session {
	return c.session
}

// ConnectionID returns the ID that tags this client's protocol capture.
func (c *Client) ConnectionID() string {
	return c.connID
}

// ReportError implements connection.ErrorSink.
func (c *Client) ReportError(topic wire.Topic, event wire.Event, message string) {
	c.logger.Warn("deepstream error",
		"topic", topic.String(),
		"event", event.String(),
		"message", message)
	if c.metrics != nil {
		c.metrics.ObserveError(event)
	}
	if c.errorHandler != nil {
		c.errorHandler(ErrorReport{
			Topic:   topic,
			Event:   event,
			Message: message,
			Time:    time.Now(),
		})
	}
}

// Close stops reconnecting, closes the connection and the capture file.
// It waits up to closeTimeout for the transport to confirm the close.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		if c.reconnect != nil {
			c.reconnect.Stop()
		}

		live := c.session.State() != connection.StateClosed
		err := c.session.Close()
		if live && err == nil {
			select {
			case <-c.terminated:
			case <-time.After(closeTimeout):
				c.logger.Warn("timed out waiting for the connection to close")
			}
		}

		if c.fileLogger != nil {
			if ferr := c.fileLogger.Close(); ferr != nil {
				err = errors.Join(err, fmt.Errorf("failed to close protocol log: %w", ferr))
			}
		}
		c.closeErr = err
	})
	return c.closeErr
}

func (c *Client) stateChanged(state connection.State) {
	c.logger.Debug("connection state", "state", state.String())
	if state == connection.StateClosed {
		c.terminatedOnce.Do(func() {
			close(c.terminated)
		})
	}
}

func (c *Client) reconnecting(attempt int, delay time.Duration) {
	c.logger.Info("reconnecting", "attempt", attempt, "delay", delay)
	if c.metrics != nil {
		c.metrics.ObserveReconnect()
	}
}

func (c *Client) giveUp() {
	c.ReportError(wire.TopicConnection, wire.EventMaxReconnectionAttemptsReached,
		fmt.Sprintf("gave up after %d reconnection attempts", c.config.Reconnect.MaxAttempts))
	if err := c.session.Close(); err != nil {
		c.logger.Warn("failed to close connection", "error", err)
	}
}

var _ connection.ErrorSink = (*Client)(nil)
