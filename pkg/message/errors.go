package message

import "errors"

// Message layer errors.
var (
	// Frame decoding errors
	ErrMessageTooShort = errors.New("message: data too short")
	ErrInvalidSOF      = errors.New("message: frame does not start with SOF")
	ErrInvalidLength   = errors.New("message: invalid length field")
	ErrInvalidChecksum = errors.New("message: checksum mismatch")
	ErrInvalidType     = errors.New("message: invalid message type")

	// Frame encoding errors
	ErrPayloadTooLong = errors.New("message: payload exceeds maximum frame size")

	// Registry errors
	ErrWrongFunction = errors.New("message: frame carries a different function")
)

// Frame format constants.
const (
	// MinFrameSize is SOF + LEN + TYPE + FUNC + CHECKSUM.
	MinFrameSize = 5

	// frameOverhead is the number of bytes counted by LEN besides the payload:
	// TYPE + FUNC + CHECKSUM.
	frameOverhead = 3

	// MaxPayloadSize keeps LEN within one byte.
	MaxPayloadSize = 0xFF - frameOverhead
)

// Callback ID constants.
const (
	// MinCallbackID is the smallest allocatable callback ID. Values below it
	// belong to the nonce exchange of secure transmissions.
	MinCallbackID uint8 = 10
)
