package log

// Logger is a sink for capture events. A session with a nil Logger
// captures nothing.
//
// Log is called on the session's dispatch path, after the session lock is
// released, possibly from several goroutines. It must not block.
type Logger interface {
	Log(event Event)
}

// NoopLogger drops every event. The zero value is ready to use.
type NoopLogger struct{}

// Log does nothing.
func (NoopLogger) Log(Event) {}

var _ Logger = NoopLogger{}
