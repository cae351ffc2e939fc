package connection

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/deepstreamio/deepstream-go/pkg/transport"
	"github.com/deepstreamio/deepstream-go/pkg/wire"
)

const testURL = "originalProtocol://originalHost:originalPort"

// fakeTransport records outbound payloads and lets tests drive the
// listener directly.
type fakeTransport struct {
	mu       sync.Mutex
	listener transport.Listener
	sent     [][]byte
	sendErr  error
}

func (f *fakeTransport) SetListener(l transport.Listener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listener = l
}

func (f *fakeTransport) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, append([]byte(nil), data...))
	return nil
}

func (f *fakeTransport) setSendErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendErr = err
}

func (f *fakeTransport) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// lastSent decodes the most recent outbound message.
func (f *fakeTransport) lastSent(t *testing.T) wire.Message {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent, "nothing was sent")
	msg, err := wire.Decode(f.sent[len(f.sent)-1])
	require.NoError(t, err)
	return msg
}

func (f *fakeTransport) lastSentRaw(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent, "nothing was sent")
	return string(f.sent[len(f.sent)-1])
}

func (f *fakeTransport) open() {
	f.listener.OnOpen()
}

func (f *fakeTransport) receive(topic wire.Topic, action wire.Action, fields ...string) {
	f.listener.OnMessage(wire.Encode(wire.NewMessage(topic, action, fields...)))
}

// closableTransport adds io.Closer. Close reports OnClose synchronously,
// like a transport whose socket is already gone.
type closableTransport struct {
	fakeTransport
	closes   int
	closeErr error
}

func (c *closableTransport) Close() error {
	c.mu.Lock()
	c.closes++
	err := c.closeErr
	l := c.listener
	c.mu.Unlock()
	if err != nil {
		return err
	}
	l.OnClose()
	return nil
}

func (c *closableTransport) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

// mockLogin is a LoginCallback double.
type mockLogin struct {
	mock.Mock
}

func (m *mockLogin) LoginSuccess(data map[string]any) {
	m.Called(data)
}

func (m *mockLogin) LoginFailed(event wire.Event, message string) {
	m.Called(event, message)
}

// mockSink is an ErrorSink double.
type mockSink struct {
	mock.Mock
}

func (m *mockSink) ReportError(topic wire.Topic, event wire.Event, message string) {
	m.Called(topic, event, message)
}

// report is one recorded ReportError call.
type report struct {
	topic   wire.Topic
	event   wire.Event
	message string
}

// recordingSink records reports for tests that only inspect them.
type recordingSink struct {
	mu      sync.Mutex
	reports []report
}

func (r *recordingSink) ReportError(topic wire.Topic, event wire.Event, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report{topic, event, message})
}

func (r *recordingSink) all() []report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]report(nil), r.reports...)
}

func (r *recordingSink) events() []wire.Event {
	var out []wire.Event
	for _, rep := range r.all() {
		out = append(out, rep.event)
	}
	return out
}

// stateRecorder records every state it is notified of.
type stateRecorder struct {
	mu     sync.Mutex
	states []State
}

func (r *stateRecorder) ConnectionStateChanged(state State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func (r *stateRecorder) all() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

// newTestSession returns a session over a fake transport.
func newTestSession(t *testing.T, opts ...Option) (*Session, *fakeTransport, *recordingSink) {
	t.Helper()
	ft := &fakeTransport{}
	sink := &recordingSink{}
	s := NewSession(testURL, ft, sink, opts...)
	return s, ft, sink
}

// handshake drives a session to AWAITING_AUTHENTICATION.
func handshake(t *testing.T, s *Session, ft *fakeTransport) {
	t.Helper()
	ft.open()
	ft.receive(wire.TopicConnection, wire.ActionChallenge)
	ft.receive(wire.TopicConnection, wire.ActionAck)
	require.Equal(t, StateAwaitingAuthentication, s.State())
}

// loginResult records the outcomes delivered to a LoginFuncs callback.
type loginResult struct {
	mu        sync.Mutex
	successes []map[string]any
	failures  []report
}

func (r *loginResult) callback() LoginFuncs {
	return LoginFuncs{
		Success: func(data map[string]any) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.successes = append(r.successes, data)
		},
		Failed: func(event wire.Event, message string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.failures = append(r.failures, report{event: event, message: message})
		},
	}
}

func (r *loginResult) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.successes), len(r.failures)
}
