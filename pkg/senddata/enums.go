// Package senddata implements the send-data exchange: delivering one
// command to a node through the controller and classifying every message
// that comes back for it.
//
// One exchange is answered in up to three tiers:
//   - a Response, the controller's synchronous "accepted for transmission"
//   - a Request echo carrying the link-layer TransmitStatus, correlated by
//     callback ID
//   - zero or more application commands from the node when the sent
//     command declares an expected response
package senddata

import (
	"fmt"
	"strings"
)

// TransmitOptions are bit flags requesting link-layer behavior for one
// transmission.
type TransmitOptions uint8

// Transmit option flags.
const (
	OptionACK       TransmitOptions = 0x01
	OptionLowPower  TransmitOptions = 0x02
	OptionAutoRoute TransmitOptions = 0x04
	OptionNoRoute   TransmitOptions = 0x10
	OptionExplore   TransmitOptions = 0x20

	// DefaultTransmitOptions requests an acknowledged, routed transmission
	// with explorer frames as fallback.
	DefaultTransmitOptions = OptionACK | OptionAutoRoute | OptionExplore
)

// Has reports whether every bit of flag is set.
func (o TransmitOptions) Has(flag TransmitOptions) bool {
	return o&flag == flag
}

// String lists the set flags, e.g. "ACK|AutoRoute|Explore".
func (o TransmitOptions) String() string {
	if o == 0 {
		return "None"
	}
	names := []struct {
		flag TransmitOptions
		name string
	}{
		{OptionACK, "ACK"},
		{OptionLowPower, "LowPower"},
		{OptionAutoRoute, "AutoRoute"},
		{OptionNoRoute, "NoRoute"},
		{OptionExplore, "Explore"},
	}

	var parts []string
	rest := o
	for _, n := range names {
		if o.Has(n.flag) {
			parts = append(parts, n.name)
			rest &^= n.flag
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%02X", uint8(rest)))
	}
	return strings.Join(parts, "|")
}

// TransmitStatus is the link-layer outcome reported in the echo.
type TransmitStatus uint8

// Transmit status codes.
const (
	// StatusOK means the frame was delivered and acknowledged.
	StatusOK TransmitStatus = 0x00

	// StatusNoAck means the node did not acknowledge the frame.
	StatusNoAck TransmitStatus = 0x01

	// StatusFail means the transmission failed.
	StatusFail TransmitStatus = 0x02

	// StatusNotIdle means the network was busy.
	StatusNotIdle TransmitStatus = 0x03

	// StatusNoRoute means the frame was delivered but no return route exists.
	StatusNoRoute TransmitStatus = 0x04
)

// String returns a human-readable name for the status.
func (s TransmitStatus) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusNoAck:
		return "NoAck"
	case StatusFail:
		return "Fail"
	case StatusNotIdle:
		return "NotIdle"
	case StatusNoRoute:
		return "NoRoute"
	default:
		return fmt.Sprintf("Unknown(0x%02X)", uint8(s))
	}
}

// IsValid returns true if the status is one of the defined codes.
func (s TransmitStatus) IsValid() bool {
	return s <= StatusNoRoute
}
