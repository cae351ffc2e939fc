package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Separators of the text protocol.
const (
	// MessagePartSeparator separates topic, action and data fields.
	MessagePartSeparator = "\x1f"

	// MessageSeparator terminates each message within a payload.
	MessageSeparator = "\x1e"
)

// typedObjectPrefix marks a JSON object in deepstream's typed field notation.
const typedObjectPrefix = 'O'

// ErrMalformedMessage is returned when a payload cannot be split into a
// recognized topic and action.
var ErrMalformedMessage = errors.New("malformed message")

// Encode serializes a message, including the trailing message separator.
func Encode(msg Message) []byte {
	var b strings.Builder
	writeMessage(&b, msg)
	return []byte(b.String())
}

// EncodeAll serializes several messages into a single payload.
func EncodeAll(msgs ...Message) []byte {
	var b strings.Builder
	for _, msg := range msgs {
		writeMessage(&b, msg)
	}
	return []byte(b.String())
}

func writeMessage(b *strings.Builder, msg Message) {
	b.WriteString(string(msg.Topic))
	b.WriteString(MessagePartSeparator)
	b.WriteString(string(msg.Action))
	for _, field := range msg.Data {
		b.WriteString(MessagePartSeparator)
		b.WriteString(field)
	}
	b.WriteString(MessageSeparator)
}

// Decode parses a single message. A trailing message separator is allowed.
func Decode(raw []byte) (Message, error) {
	text := strings.TrimSuffix(string(raw), MessageSeparator)
	if strings.Contains(text, MessageSeparator) {
		return Message{}, fmt.Errorf("%w: payload holds more than one message", ErrMalformedMessage)
	}
	return decodeText(text)
}

// Split returns the non-empty message chunks of a payload in order. Each
// chunk can be passed to Decode.
func Split(payload []byte) [][]byte {
	var chunks [][]byte
	for _, chunk := range bytes.Split(payload, []byte(MessageSeparator)) {
		if len(chunk) > 0 {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

// DecodeAll parses every message in a payload. Chunks that fail to decode
// produce an error in the second return value and do not affect their
// neighbours. Empty chunks are skipped.
func DecodeAll(payload []byte) ([]Message, []error) {
	var (
		msgs []Message
		errs []error
	)
	for _, chunk := range Split(payload) {
		msg, err := decodeText(string(chunk))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, errs
}

func decodeText(text string) (Message, error) {
	parts := strings.Split(text, MessagePartSeparator)
	if len(parts) < 2 {
		return Message{}, fmt.Errorf("%w: %q has no action", ErrMalformedMessage, text)
	}

	topic := Topic(parts[0])
	if !topic.IsValid() {
		return Message{}, fmt.Errorf("%w: unknown topic %q", ErrMalformedMessage, parts[0])
	}
	action := Action(parts[1])
	if !action.IsValid() {
		return Message{}, fmt.Errorf("%w: unknown action %q", ErrMalformedMessage, parts[1])
	}

	msg := Message{Topic: topic, Action: action, Raw: text}
	if len(parts) > 2 {
		msg.Data = parts[2:]
	}
	return msg, nil
}

// MarshalData serializes a structured value into a data field.
func MarshalData(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode data field: %w", err)
	}
	return string(data), nil
}

// UnmarshalData parses a structured data field into a key/value mapping.
// Both plain JSON objects and the typed form "O{...}" are accepted. An
// empty field yields an empty, non-nil map.
func UnmarshalData(field string) (map[string]any, error) {
	if field == "" {
		return map[string]any{}, nil
	}
	if field[0] == typedObjectPrefix {
		field = field[1:]
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(field), &result); err != nil {
		return nil, fmt.Errorf("failed to decode data field: %w", err)
	}
	if result == nil {
		result = map[string]any{}
	}
	return result, nil
}
