package client

import "errors"

// Client errors.
var (
	// ErrInvalidConfig is returned for a configuration that fails validation.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrNoDialer is returned by Connect when the transport cannot dial.
	ErrNoDialer = errors.New("transport cannot dial")

	// ErrClosed is returned by Connect after Close.
	ErrClosed = errors.New("client closed")
)
