package senddata

import (
	"errors"

	"github.com/backkem/zwave/pkg/message"
)

// Send-data errors.
var (
	// ErrPacketFormatInvalid is returned when serializing a request that
	// carries no command.
	ErrPacketFormatInvalid = errors.New("senddata: request has no command to send")

	// ErrPayloadTooShort is returned for echo or response frames missing
	// their fixed bytes.
	ErrPayloadTooShort = errors.New("senddata: payload too short")

	// ErrWrongFunction is returned when a frame for another function is
	// deserialized as send-data.
	ErrWrongFunction = message.ErrWrongFunction
)
