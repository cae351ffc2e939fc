package wire

// Topic is the routing category of a message.
type Topic string

const (
	TopicConnection Topic = "C"
	TopicAuth       Topic = "A"
	TopicError      Topic = "X"
	TopicEvent      Topic = "E"
	TopicRecord     Topic = "R"
	TopicRPC        Topic = "P"
)

// IsValid returns true if the topic is a known token.
func (t Topic) IsValid() bool {
	switch t {
	case TopicConnection, TopicAuth, TopicError, TopicEvent, TopicRecord, TopicRPC:
		return true
	default:
		return false
	}
}

// String returns the topic name.
func (t Topic) String() string {
	switch t {
	case TopicConnection:
		return "CONNECTION"
	case TopicAuth:
		return "AUTH"
	case TopicError:
		return "ERROR"
	case TopicEvent:
		return "EVENT"
	case TopicRecord:
		return "RECORD"
	case TopicRPC:
		return "RPC"
	default:
		return "UNKNOWN"
	}
}

// Action is the operation of a message within its topic.
type Action string

const (
	ActionAck               Action = "A"
	ActionError             Action = "E"
	ActionRequest           Action = "REQ"
	ActionChallenge         Action = "CH"
	ActionChallengeResponse Action = "CHR"
	ActionRedirect          Action = "RED"
	ActionRejection         Action = "REJ"
	ActionPing              Action = "PI"
	ActionPong              Action = "PO"
)

// IsValid returns true if the action is a known token.
func (a Action) IsValid() bool {
	switch a {
	case ActionAck, ActionError, ActionRequest, ActionChallenge,
		ActionChallengeResponse, ActionRedirect, ActionRejection,
		ActionPing, ActionPong:
		return true
	default:
		return false
	}
}

// String returns the action name.
func (a Action) String() string {
	switch a {
	case ActionAck:
		return "ACK"
	case ActionError:
		return "ERROR"
	case ActionRequest:
		return "REQUEST"
	case ActionChallenge:
		return "CHALLENGE"
	case ActionChallengeResponse:
		return "CHALLENGE_RESPONSE"
	case ActionRedirect:
		return "REDIRECT"
	case ActionRejection:
		return "REJECTION"
	case ActionPing:
		return "PING"
	case ActionPong:
		return "PONG"
	default:
		return "UNKNOWN"
	}
}

// Event is an error or event kind. Events travel as data fields of
// AUTH/ERROR and ERROR topic messages and are what the client reports to
// its error sink. Unknown server events are kept verbatim as Event(s).
type Event string

const (
	// EventNotAuthenticated is sent when the credentials were rejected.
	// The session stays usable and login may be retried.
	EventNotAuthenticated Event = "NOT_AUTHENTICATED"

	// EventTooManyAuthAttempts is sent when the server stops accepting
	// login attempts on this connection.
	EventTooManyAuthAttempts Event = "TOO_MANY_AUTH_ATTEMPTS"

	// EventIsClosed reports use of a connection that can no longer
	// authenticate or has been closed.
	EventIsClosed Event = "IS_CLOSED"

	EventConnectionError    Event = "CONNECTION_ERROR"
	EventMessageParseError  Event = "MESSAGE_PARSE_ERROR"
	EventUnsolicitedMessage Event = "UNSOLICITED_MESSAGE"
	EventMessageDenied      Event = "MESSAGE_DENIED"
	EventInvalidAuthMessage Event = "INVALID_AUTH_MSG"

	// EventMaxReconnectionAttemptsReached is raised locally when the
	// reconnect policy gives up.
	EventMaxReconnectionAttemptsReached Event = "MAX_RECONNECTION_ATTEMPTS_REACHED"
)

// String returns the event name.
func (e Event) String() string {
	return string(e)
}
