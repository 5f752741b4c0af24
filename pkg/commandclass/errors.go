package commandclass

import "errors"

// Command class errors.
var (
	ErrPayloadTooShort = errors.New("commandclass: payload too short")
	ErrPayloadTooLong  = errors.New("commandclass: payload too long")
	ErrWrongClass      = errors.New("commandclass: payload belongs to another command class")
	ErrWrongCommand    = errors.New("commandclass: unexpected command")
	ErrMergeType       = errors.New("commandclass: partial has a different type")
	ErrLengthMismatch  = errors.New("commandclass: length byte does not match data")
)

// MaxPayloadSize is the largest unaddressed command that still fits a
// send-data frame next to node, length, options and callback ID.
const MaxPayloadSize = 248
