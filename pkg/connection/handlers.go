package connection

import (
	"fmt"
	"io"
	"time"

	"github.com/deepstreamio/deepstream-go/pkg/log"
	"github.com/deepstreamio/deepstream-go/pkg/wire"
)

// OnOpen handles the transport opening.
func (s *Session) OnOpen() {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		return
	}
	if s.state == StateReconnecting && s.reconnector != nil {
		s.queue(s.reconnector.ConnectionEstablished)
	}
	// A login sent on the previous connection is never answered.
	if cb := s.takeLogin(); cb != nil {
		s.queue(func() {
			cb.LoginFailed(wire.EventIsClosed, closedMessage)
		})
	}
	s.setState(StateAwaitingConnection, "transport opened")
	s.mu.Unlock()

	s.drain()
}

// OnMessage handles a payload from the transport. Each message in the
// payload is applied atomically, in order. Malformed messages are dropped
// and reported as MESSAGE_PARSE_ERROR in their place in that order.
func (s *Session) OnMessage(payload []byte) {
	for _, chunk := range wire.Split(payload) {
		msg, err := wire.Decode(chunk)

		s.mu.Lock()
		if s.terminated {
			s.mu.Unlock()
			return
		}
		if err != nil {
			s.queueParseError(err)
		} else {
			s.handleMessage(msg)
		}
		s.mu.Unlock()
		s.drain()
	}
}

// OnError handles a transport failure.
func (s *Session) OnError(err error) {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		return
	}
	if s.logger != nil {
		s.logger.Warn("transport error", "url", s.url, "error", err)
	}
	message := err.Error()
	s.queue(func() {
		s.logError(log.LayerTransport, message, wire.EventConnectionError, "")
	})
	s.queueReport(wire.TopicError, wire.EventConnectionError, message)
	s.setState(StateError, "transport error")
	s.mu.Unlock()

	s.drain()
}

// OnClose handles the transport closing. Without a Close request the
// reconnector decides between RECONNECTING and a final CLOSED.
func (s *Session) OnClose() {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		return
	}

	if s.closing || s.reconnector == nil || !s.reconnector.ConnectionLost() {
		reason := "transport closed"
		if s.closing {
			reason = "closed by client"
		}
		s.terminateLocked(reason)
	} else {
		if cb := s.takeLogin(); cb != nil {
			s.queue(func() {
				cb.LoginFailed(wire.EventIsClosed, closedMessage)
			})
		}
		s.setState(StateReconnecting, "transport lost")
	}
	s.mu.Unlock()

	s.drain()
}

// handleMessage routes one inbound message. Must be called with mu held.
func (s *Session) handleMessage(msg wire.Message) {
	s.queue(func() {
		s.logMessage(log.DirectionIn, msg, false)
	})

	switch msg.Topic {
	case wire.TopicConnection:
		s.handleConnectionMessage(msg)
	case wire.TopicAuth:
		s.handleAuthMessage(msg)
	case wire.TopicError:
		s.handleErrorMessage(msg)
	default:
		fn := s.handlers[msg.Topic]
		if fn == nil || s.state != StateOpen {
			s.unsolicited(msg)
			return
		}
		s.queue(func() {
			fn(msg)
		})
	}
}

func (s *Session) handleConnectionMessage(msg wire.Message) {
	switch msg.Action {
	case wire.ActionPing:
		s.queueSend(wire.NewMessage(wire.TopicConnection, wire.ActionPong), false)

	case wire.ActionChallenge:
		if s.state != StateAwaitingConnection {
			s.unsolicited(msg)
			return
		}
		s.queueSend(wire.NewMessage(wire.TopicConnection, wire.ActionChallengeResponse, s.url), false)
		s.setState(StateChallenging, "challenge received")

	case wire.ActionAck:
		if s.state != StateChallenging {
			s.unsolicited(msg)
			return
		}
		s.setState(StateAwaitingAuthentication, "challenge accepted")

	case wire.ActionRedirect:
		if s.state != StateAwaitingConnection && s.state != StateChallenging {
			s.unsolicited(msg)
			return
		}
		// Redirects need a transport re-dial to a new URL, which the
		// session cannot do. The message is dropped without a transition.
		target, _ := msg.Field(0)
		if s.logger != nil {
			s.logger.Warn("connection redirect ignored", "url", s.url, "target", target)
		}
		message := fmt.Sprintf("%v: %s", ErrRedirectUnsupported, target)
		s.queue(func() {
			s.logError(log.LayerSession, message, wire.EventUnsolicitedMessage, msg.String())
		})
		s.queueReport(wire.TopicConnection, wire.EventUnsolicitedMessage, message)

	case wire.ActionRejection:
		if s.state != StateChallenging {
			s.unsolicited(msg)
			return
		}
		reason, _ := msg.Field(0)
		s.queueReport(wire.TopicConnection, wire.EventConnectionError, "challenge rejected: "+reason)
		s.setState(StateError, "challenge rejected")
		s.closing = true
		if closer, ok := s.transport.(io.Closer); ok {
			s.queue(func() {
				_ = closer.Close()
			})
		} else {
			s.terminateLocked("challenge rejected")
		}

	default:
		s.unsolicited(msg)
	}
}

func (s *Session) handleAuthMessage(msg wire.Message) {
	if s.state != StateAuthenticating {
		s.unsolicited(msg)
		return
	}

	switch msg.Action {
	case wire.ActionAck:
		data := map[string]any{}
		if field, ok := msg.Field(0); ok {
			parsed, err := wire.UnmarshalData(field)
			if err != nil {
				s.queueParseError(fmt.Errorf("session data: %w", err))
			} else {
				data = parsed
			}
		}
		cb := s.takeLogin()
		s.setState(StateOpen, "authenticated")
		if cb != nil {
			s.queue(func() {
				cb.LoginSuccess(data)
			})
		}

	case wire.ActionError:
		event := wire.EventInvalidAuthMessage
		if field, ok := msg.Field(0); ok && field != "" {
			event = wire.Event(field)
		}
		message, _ := msg.Field(1)

		if event == wire.EventTooManyAuthAttempts {
			s.authAttemptsExhausted = true
		}
		cb := s.takeLogin()
		s.setState(StateAwaitingAuthentication, "authentication failed: "+event.String())
		if cb != nil {
			s.queue(func() {
				cb.LoginFailed(event, message)
			})
		}

	default:
		s.unsolicited(msg)
	}
}

func (s *Session) handleErrorMessage(msg wire.Message) {
	event := wire.EventUnsolicitedMessage
	if field, ok := msg.Field(0); ok && field != "" {
		event = wire.Event(field)
	}
	message, _ := msg.Field(1)
	s.queueReport(wire.TopicError, event, message)
}

// unsolicited drops a message that is not valid in the current state.
func (s *Session) unsolicited(msg wire.Message) {
	if s.logger != nil {
		s.logger.Debug("unsolicited message dropped",
			"url", s.url,
			"state", s.state.String(),
			"message", msg.String())
	}
	message := fmt.Sprintf("unexpected %s in state %s", msg.String(), s.state)
	s.queueReport(msg.Topic, wire.EventUnsolicitedMessage, message)
}

// queueParseError drops a malformed message. Must be called with mu held.
func (s *Session) queueParseError(err error) {
	if s.logger != nil {
		s.logger.Debug("malformed message dropped", "url", s.url, "error", err)
	}
	message := err.Error()
	s.queue(func() {
		s.logError(log.LayerWire, message, wire.EventMessageParseError, "")
	})
	s.queueReport(wire.TopicError, wire.EventMessageParseError, message)
}

func (s *Session) logMessage(dir log.Direction, msg wire.Message, redact bool) {
	if s.protocolLogger == nil {
		return
	}
	ev := &log.MessageEvent{
		Topic:  string(msg.Topic),
		Action: string(msg.Action),
	}
	if redact {
		ev.Redacted = true
	} else {
		ev.Data = msg.Data
	}
	s.protocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.connID,
		Direction:    dir,
		Layer:        log.LayerWire,
		Category:     log.CategoryMessage,
		URL:          s.url,
		Message:      ev,
	})
}

func (s *Session) logStateChange(oldState, newState State, reason string) {
	if s.protocolLogger == nil {
		return
	}
	s.protocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.connID,
		Layer:        log.LayerSession,
		Category:     log.CategoryState,
		URL:          s.url,
		StateChange: &log.StateChangeEvent{
			OldState: oldState.String(),
			NewState: newState.String(),
			Reason:   reason,
		},
	})
}

func (s *Session) logError(layer log.Layer, message string, event wire.Event, context string) {
	if s.protocolLogger == nil {
		return
	}
	s.protocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.connID,
		Direction:    log.DirectionIn,
		Layer:        layer,
		Category:     log.CategoryError,
		URL:          s.url,
		Error: &log.ErrorEventData{
			Layer:   layer,
			Message: message,
			Event:   string(event),
			Context: context,
		},
	})
}
