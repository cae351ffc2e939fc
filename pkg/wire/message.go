package wire

import (
	"slices"
	"strings"
)

// Message is a single protocol message. Messages are values; the Data slice
// must not be modified after construction.
type Message struct {
	Topic  Topic
	Action Action
	Data   []string

	// Raw is the text the message was decoded from. Empty for messages
	// built with NewMessage.
	Raw string
}

// NewMessage builds a message from a topic, an action and data fields.
// The fields are copied.
func NewMessage(topic Topic, action Action, fields ...string) Message {
	var data []string
	if len(fields) > 0 {
		data = slices.Clone(fields)
	}
	return Message{Topic: topic, Action: action, Data: data}
}

// Field returns the i-th data field.
func (m Message) Field(i int) (string, bool) {
	if i < 0 || i >= len(m.Data) {
		return "", false
	}
	return m.Data[i], true
}

// Is reports whether the message has the given topic and action.
func (m Message) Is(topic Topic, action Action) bool {
	return m.Topic == topic && m.Action == action
}

// Equal reports whether two messages carry the same topic, action and data
// fields in the same order. Raw is not compared.
func (m Message) Equal(other Message) bool {
	return m.Topic == other.Topic &&
		m.Action == other.Action &&
		slices.Equal(m.Data, other.Data)
}

// String returns a readable form such as "CONNECTION/CHALLENGE_RESPONSE [url]".
func (m Message) String() string {
	var b strings.Builder
	b.WriteString(m.Topic.String())
	b.WriteByte('/')
	b.WriteString(m.Action.String())
	if len(m.Data) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(m.Data, ", "))
		b.WriteByte(']')
	}
	return b.String()
}
