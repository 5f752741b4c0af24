package transport

import "errors"

// Transport errors.
var (
	// ErrClosed is returned when an operation is attempted on a closed transport.
	ErrClosed = errors.New("transport: closed")

	// ErrNoHandler is returned when no message handler is configured.
	ErrNoHandler = errors.New("transport: no message handler configured")

	// ErrNoPort is returned when no serial port is configured.
	ErrNoPort = errors.New("transport: no port configured")

	// ErrAlreadyStarted is returned when Start is called on an already running transport.
	ErrAlreadyStarted = errors.New("transport: already started")

	// ErrNoAck is returned when the controller did not acknowledge a frame
	// within the allowed retransmissions.
	ErrNoAck = errors.New("transport: frame not acknowledged")

	// ErrCancelled is returned when the caller's context ends before the
	// frame is acknowledged.
	ErrCancelled = errors.New("transport: send cancelled")
)
