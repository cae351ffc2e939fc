package wire

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{
			name: "no data",
			msg:  NewMessage(TopicConnection, ActionAck),
			want: "C\x1fA\x1e",
		},
		{
			name: "challenge response",
			msg:  NewMessage(TopicConnection, ActionChallengeResponse, "ws://localhost:6020"),
			want: "C\x1fCHR\x1fws://localhost:6020\x1e",
		},
		{
			name: "auth error",
			msg:  NewMessage(TopicAuth, ActionError, "NOT_AUTHENTICATED", "Fail"),
			want: "A\x1fE\x1fNOT_AUTHENTICATED\x1fFail\x1e",
		},
		{
			name: "empty field kept",
			msg:  NewMessage(TopicAuth, ActionRequest, ""),
			want: "A\x1fREQ\x1f\x1e",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(Encode(tt.msg)))
		})
	}
}

func TestEncodeAll(t *testing.T) {
	payload := EncodeAll(
		NewMessage(TopicConnection, ActionPong),
		NewMessage(TopicAuth, ActionRequest, `{"name":"Yasser"}`),
	)
	assert.Equal(t, "C\x1fPO\x1eA\x1fREQ\x1f{\"name\":\"Yasser\"}\x1e", string(payload))
}

func TestDecode(t *testing.T) {
	t.Run("WithSeparator", func(t *testing.T) {
		msg, err := Decode([]byte("C\x1fCH\x1e"))
		require.NoError(t, err)
		assert.Equal(t, TopicConnection, msg.Topic)
		assert.Equal(t, ActionChallenge, msg.Action)
		assert.Empty(t, msg.Data)
		assert.Equal(t, "C\x1fCH", msg.Raw)
	})

	t.Run("WithoutSeparator", func(t *testing.T) {
		msg, err := Decode([]byte("A\x1fE\x1fTOO_MANY_AUTH_ATTEMPTS\x1fstop"))
		require.NoError(t, err)
		assert.True(t, msg.Equal(NewMessage(TopicAuth, ActionError, "TOO_MANY_AUTH_ATTEMPTS", "stop")))
	})

	t.Run("EncodeDecodeIdentity", func(t *testing.T) {
		in := NewMessage(TopicAuth, ActionAck, `O{"role":"admin"}`)
		out, err := Decode(Encode(in))
		require.NoError(t, err)
		assert.True(t, in.Equal(out), "got %v, want %v", out, in)
	})

	malformed := map[string]string{
		"empty":          "",
		"topic only":     "C",
		"unknown topic":  "Z\x1fA",
		"unknown action": "C\x1fNOPE",
		"two messages":   "C\x1fA\x1eC\x1fCH\x1e",
	}
	for name, raw := range malformed {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(raw))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedMessage), "error %v does not wrap ErrMalformedMessage", err)
		})
	}
}

func TestDecodeAll(t *testing.T) {
	payload := []byte("C\x1fCH\x1e\x1eC\x1fBAD\x1eA\x1fA\x1e")

	msgs, errs := DecodeAll(payload)
	require.Len(t, msgs, 2)
	require.Len(t, errs, 1)

	assert.True(t, msgs[0].Is(TopicConnection, ActionChallenge))
	assert.True(t, msgs[1].Is(TopicAuth, ActionAck))
	assert.ErrorIs(t, errs[0], ErrMalformedMessage)
}

func TestSplit(t *testing.T) {
	chunks := Split([]byte("C\x1fCH\x1e\x1eC\x1fBAD\x1eA\x1fA"))
	require.Len(t, chunks, 3)
	assert.Equal(t, "C\x1fCH", string(chunks[0]))
	assert.Equal(t, "C\x1fBAD", string(chunks[1]))
	assert.Equal(t, "A\x1fA", string(chunks[2]))

	assert.Empty(t, Split(nil))
	assert.Empty(t, Split([]byte("\x1e\x1e")))
}

func TestMessageEqual(t *testing.T) {
	base := NewMessage(TopicAuth, ActionError, "NOT_AUTHENTICATED", "Fail")

	assert.True(t, base.Equal(NewMessage(TopicAuth, ActionError, "NOT_AUTHENTICATED", "Fail")))
	assert.False(t, base.Equal(NewMessage(TopicAuth, ActionError, "Fail", "NOT_AUTHENTICATED")), "order matters")
	assert.False(t, base.Equal(NewMessage(TopicAuth, ActionError, "NOT_AUTHENTICATED")))
	assert.False(t, base.Equal(NewMessage(TopicConnection, ActionError, "NOT_AUTHENTICATED", "Fail")))
	assert.True(t, NewMessage(TopicConnection, ActionAck).Equal(Message{Topic: TopicConnection, Action: ActionAck, Data: []string{}}))
}

func TestNewMessageCopiesFields(t *testing.T) {
	fields := []string{"a", "b"}
	msg := NewMessage(TopicEvent, ActionAck, fields...)
	fields[0] = "changed"

	f, ok := msg.Field(0)
	assert.True(t, ok)
	assert.Equal(t, "a", f)

	_, ok = msg.Field(2)
	assert.False(t, ok)
}

func TestMessageString(t *testing.T) {
	msg := NewMessage(TopicConnection, ActionChallengeResponse, "ws://host")
	assert.Equal(t, "CONNECTION/CHALLENGE_RESPONSE [ws://host]", msg.String())
}

func TestDataHelpers(t *testing.T) {
	t.Run("MarshalData", func(t *testing.T) {
		field, err := MarshalData(map[string]any{"name": "Yasser"})
		require.NoError(t, err)
		assert.Equal(t, `{"name":"Yasser"}`, field)
	})

	t.Run("MarshalDataError", func(t *testing.T) {
		_, err := MarshalData(map[string]any{"ch": make(chan int)})
		assert.Error(t, err)
	})

	t.Run("UnmarshalEmpty", func(t *testing.T) {
		data, err := UnmarshalData("")
		require.NoError(t, err)
		assert.NotNil(t, data)
		assert.Empty(t, data)
	})

	t.Run("UnmarshalPlain", func(t *testing.T) {
		data, err := UnmarshalData(`{"role":"admin"}`)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"role": "admin"}, data)
	})

	t.Run("UnmarshalTyped", func(t *testing.T) {
		data, err := UnmarshalData(`O{"id":1}`)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"id": float64(1)}, data)
	})

	t.Run("UnmarshalNull", func(t *testing.T) {
		data, err := UnmarshalData("null")
		require.NoError(t, err)
		assert.Empty(t, data)
	})

	t.Run("UnmarshalInvalid", func(t *testing.T) {
		_, err := UnmarshalData("not json")
		assert.Error(t, err)
	})
}
