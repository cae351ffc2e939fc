// Package log provides protocol capture for deepstream connections.
//
// It is separate from operational logging (slog). A protocol Logger receives
// a machine-readable trace of every message sent and received, every
// connection state change and every protocol error of a session.
//
// # Basic Usage
//
//	// Console, through slog at debug level
//	sess := connection.NewSession(url, t, sink,
//	    connection.WithProtocolLogger(log.NewSlogAdapter(slog.Default()), connID))
//
//	// Both console and a binary capture file
//	fl, _ := log.NewFileLogger("/var/log/deepstream/client.dlog")
//	logger := log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fl)
//
// # File Format
//
// Capture files are a stream of CBOR-encoded events (.dlog). The ds-log
// command views and summarizes them.
package log
