package connection

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/deepstreamio/deepstream-go/pkg/log"
	"github.com/deepstreamio/deepstream-go/pkg/transport"
	"github.com/deepstreamio/deepstream-go/pkg/wire"
)

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the operational logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithProtocolLogger enables protocol capture under the given connection ID.
func WithProtocolLogger(logger log.Logger, connID string) Option {
	return func(s *Session) {
		s.protocolLogger = logger
		s.connID = connID
	}
}

// WithReconnector installs a reconnection policy.
func WithReconnector(r Reconnector) Option {
	return func(s *Session) {
		s.reconnector = r
	}
}

// WithObserver registers a state observer at construction.
func WithObserver(o StateObserver) Option {
	return func(s *Session) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// Session is the state machine of one logical connection to a deepstream
// server. It is safe for concurrent use.
type Session struct {
	url       string
	transport transport.Transport
	sink      ErrorSink

	mu sync.Mutex

	state State

	// pendingLogin is set while an Authenticate call is outstanding and
	// taken (read and cleared) exactly once when it resolves.
	pendingLogin LoginCallback

	// authAttemptsExhausted is sticky for the lifetime of the session.
	authAttemptsExhausted bool

	// closing is set by Close; terminated once no further events are
	// processed.
	closing    bool
	terminated bool

	observers []StateObserver
	handlers  map[wire.Topic]func(wire.Message)

	reconnector Reconnector

	logger         *slog.Logger
	protocolLogger log.Logger
	connID         string

	// effects run outside mu, in order, by whichever goroutine drains.
	effects     []func()
	dispatching bool
}

// NewSession creates a session for url and registers it as the listener of
// t. The session starts CLOSED and moves to AWAITING_CONNECTION when the
// transport opens. sink may be nil, in which case reports are only logged.
func NewSession(url string, t transport.Transport, sink ErrorSink, opts ...Option) *Session {
	s := &Session{
		url:       url,
		transport: t,
		sink:      sink,
		state:     StateClosed,
		handlers:  make(map[wire.Topic]func(wire.Message)),
	}
	for _, opt := range opts {
		opt(s)
	}
	t.SetListener(s)
	return s
}

// URL returns the endpoint presented in the challenge response.
func (s *Session) URL() string {
	return s.url
}

// State returns the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// AuthAttemptsExhausted returns true once the server has refused further
// authentication attempts.
func (s *Session) AuthAttemptsExhausted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authAttemptsExhausted
}

// IsTerminated returns true once the session processes no further events.
func (s *Session) IsTerminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminated
}

// AddConnectionChangeListener registers an observer for future state
// changes. Past transitions are not replayed.
func (s *Session) AddConnectionChangeListener(o StateObserver) {
	if o == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// HandleTopic registers fn for messages of a topic the session does not
// handle itself (events, records, RPCs). Messages are delivered only while
// the session is OPEN.
func (s *Session) HandleTopic(topic wire.Topic, fn func(wire.Message)) error {
	switch topic {
	case wire.TopicConnection, wire.TopicAuth, wire.TopicError:
		return fmt.Errorf("%w: %s", ErrReservedTopic, topic)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn == nil {
		delete(s.handlers, topic)
	} else {
		s.handlers[topic] = fn
	}
	return nil
}

// Authenticate sends params to the server and resolves cb with the result.
//
// Once attempts are exhausted, or after the session terminated, the call is
// reported to the error sink as IS_CLOSED and nothing is sent, whatever
// the arguments. Outside AWAITING_AUTHENTICATION the call is rejected with
// ErrNotAwaitingAuthentication; cb is never stored or called for a
// rejected call.
func (s *Session) Authenticate(params map[string]any, cb LoginCallback) error {
	if params == nil {
		params = map[string]any{}
	}

	s.mu.Lock()
	err := s.authenticateLocked(params, cb)
	s.mu.Unlock()

	s.drain()
	return err
}

func (s *Session) authenticateLocked(params map[string]any, cb LoginCallback) error {
	switch {
	case s.authAttemptsExhausted:
		s.queueReport(wire.TopicError, wire.EventIsClosed, closedMessage)
		return ErrAuthAttemptsExhausted
	case s.terminated:
		s.queueReport(wire.TopicError, wire.EventIsClosed, closedMessage)
		return ErrConnectionClosed
	case cb == nil:
		return ErrNilCallback
	case s.state != StateAwaitingAuthentication:
		return fmt.Errorf("%w (state %s)", ErrNotAwaitingAuthentication, s.state)
	}

	field, err := wire.MarshalData(params)
	if err != nil {
		return err
	}

	s.pendingLogin = cb
	s.queueSend(wire.NewMessage(wire.TopicAuth, wire.ActionRequest, field), true)
	s.setState(StateAuthenticating, "authentication requested")
	return nil
}

// Send sends a message on behalf of a higher-level subsystem. Messages are
// not queued: Send fails unless the session is OPEN.
func (s *Session) Send(msg wire.Message) error {
	s.mu.Lock()
	switch {
	case s.terminated:
		s.mu.Unlock()
		return ErrConnectionClosed
	case s.state != StateOpen:
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w (state %s)", ErrNotOpen, state)
	}
	s.queueSend(msg, false)
	s.mu.Unlock()

	s.drain()
	return nil
}

// Close closes the session. If the transport can be closed and is
// connected, the session terminates when the transport reports the close;
// otherwise it terminates immediately. An outstanding login fails with
// IS_CLOSED.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		return nil
	}
	s.closing = true

	closer, canClose := s.transport.(io.Closer)
	live := s.state != StateClosed && s.state != StateReconnecting
	if !canClose || !live {
		s.terminateLocked("closed by client")
		s.mu.Unlock()
		s.drain()
		return nil
	}
	s.mu.Unlock()

	if err := closer.Close(); err != nil {
		s.mu.Lock()
		s.terminateLocked("close failed: " + err.Error())
		s.mu.Unlock()
		s.drain()
		return fmt.Errorf("failed to close transport: %w", err)
	}
	return nil
}

// setState changes the state and queues observer notification. A change to
// the current state is not announced. Must be called with mu held.
func (s *Session) setState(newState State, reason string) {
	if s.state == newState {
		return
	}
	oldState := s.state
	s.state = newState

	if s.logger != nil {
		s.logger.Debug("connection state changed",
			"url", s.url,
			"from", oldState.String(),
			"to", newState.String(),
			"reason", reason)
	}

	observers := slices.Clone(s.observers)
	s.queue(func() {
		s.logStateChange(oldState, newState, reason)
		for _, o := range observers {
			o.ConnectionStateChanged(newState)
		}
	})
}

// takeLogin returns and clears the pending login callback.
// Must be called with mu held.
func (s *Session) takeLogin() LoginCallback {
	cb := s.pendingLogin
	s.pendingLogin = nil
	return cb
}

// terminateLocked fails any pending login and moves to CLOSED for good.
// Must be called with mu held.
func (s *Session) terminateLocked(reason string) {
	if cb := s.takeLogin(); cb != nil {
		s.queue(func() {
			cb.LoginFailed(wire.EventIsClosed, closedMessage)
		})
	}
	s.terminated = true
	s.setState(StateClosed, reason)
}

// queue appends an effect. Must be called with mu held.
func (s *Session) queue(fn func()) {
	s.effects = append(s.effects, fn)
}

// queueSend queues an outbound message. Redacted messages are captured
// without their data fields.
func (s *Session) queueSend(msg wire.Message, redact bool) {
	s.queue(func() {
		s.logMessage(log.DirectionOut, msg, redact)
		if err := s.transport.Send(wire.Encode(msg)); err != nil {
			if s.logger != nil {
				s.logger.Warn("failed to send message",
					"url", s.url,
					"topic", msg.Topic.String(),
					"action", msg.Action.String(),
					"error", err)
			}
			s.logError(log.LayerTransport, err.Error(), wire.EventConnectionError, "send "+msg.Topic.String()+"/"+msg.Action.String())
			s.report(wire.TopicError, wire.EventConnectionError, err.Error())
		}
	})
}

// queueReport queues a report to the error sink.
func (s *Session) queueReport(topic wire.Topic, event wire.Event, message string) {
	s.queue(func() {
		s.report(topic, event, message)
	})
}

func (s *Session) report(topic wire.Topic, event wire.Event, message string) {
	if s.sink != nil {
		s.sink.ReportError(topic, event, message)
		return
	}
	if s.logger != nil {
		s.logger.Warn("unreported connection error",
			"url", s.url,
			"event", event.String(),
			"message", message)
	}
}

// drain runs queued effects until none are left. If another goroutine (or
// an outer frame of this one) is already draining, it returns at once and
// that drainer runs the effects.
func (s *Session) drain() {
	s.mu.Lock()
	if s.dispatching {
		s.mu.Unlock()
		return
	}
	s.dispatching = true

	finished := false
	defer func() {
		if !finished {
			// An effect panicked; let the next caller drain.
			s.mu.Lock()
			s.dispatching = false
			s.mu.Unlock()
		}
	}()

	for len(s.effects) > 0 {
		batch := s.effects
		s.effects = nil
		s.mu.Unlock()
		for _, fn := range batch {
			fn()
		}
		s.mu.Lock()
	}
	s.dispatching = false
	finished = true
	s.mu.Unlock()
}

// Compile-time interface satisfaction check.
var _ transport.Listener = (*Session)(nil)
