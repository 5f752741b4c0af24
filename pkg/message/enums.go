// Package message implements the Serial API envelope spoken between a host
// and a Z-Wave controller over a serial link.
//
// The package provides:
//   - Data frame encoding/decoding (SOF, length, type, function, checksum)
//   - Single-byte control frames (ACK, NAK, CAN)
//   - A registry mapping (type, function) pairs to message parsers
//   - The base response classifier extended by concrete message kinds
//   - Callback ID allocation for correlating asynchronous replies
package message

// MessageType distinguishes host-initiated requests from controller
// responses. It is the first byte after the length in a data frame.
type MessageType uint8

const (
	// TypeRequest is an unsolicited frame: a host command or an
	// asynchronous callback from the controller.
	TypeRequest MessageType = 0x00

	// TypeResponse is the controller's synchronous reply to a request.
	TypeResponse MessageType = 0x01
)

// String returns a human-readable name for the message type.
func (t MessageType) String() string {
	switch t {
	case TypeRequest:
		return "Request"
	case TypeResponse:
		return "Response"
	default:
		return "Unknown"
	}
}

// IsValid returns true if the message type is a defined value.
func (t MessageType) IsValid() bool {
	return t <= TypeResponse
}

// FunctionType identifies the Serial API function carried by a data frame.
type FunctionType uint8

const (
	// FunctionApplicationCommand delivers a command class received from a node.
	FunctionApplicationCommand FunctionType = 0x04

	// FunctionSendData hands a command class to the controller for delivery.
	FunctionSendData FunctionType = 0x13
)

// String returns a human-readable name for the function type.
func (f FunctionType) String() string {
	switch f {
	case FunctionApplicationCommand:
		return "ApplicationCommandHandler"
	case FunctionSendData:
		return "SendData"
	default:
		return "Unknown"
	}
}

// Control bytes exchanged on the link layer. A data frame starts with SOF;
// the other three are complete frames on their own.
const (
	SOF byte = 0x01
	ACK byte = 0x06
	NAK byte = 0x15
	CAN byte = 0x18
)

// ResponseRole is the verdict for one inbound message tested against one
// outgoing request. Every (request, message) pair maps to exactly one role.
type ResponseRole int

const (
	// RoleUnexpected means the message does not belong to the request.
	RoleUnexpected ResponseRole = iota

	// RoleConfirmation means the controller accepted the request; more
	// messages are still expected.
	RoleConfirmation

	// RolePartial is one fragment of a multi-message reply.
	RolePartial

	// RoleFinal completes the request successfully.
	RoleFinal

	// RoleFatalController means the controller refused the request.
	RoleFatalController

	// RoleFatalNode means the remote node could not be reached.
	RoleFatalNode
)

// String returns the wire-independent name of the role.
func (r ResponseRole) String() string {
	switch r {
	case RoleUnexpected:
		return "unexpected"
	case RoleConfirmation:
		return "confirmation"
	case RolePartial:
		return "partial"
	case RoleFinal:
		return "final"
	case RoleFatalController:
		return "fatal_controller"
	case RoleFatalNode:
		return "fatal_node"
	default:
		return "invalid"
	}
}

// IsFatal returns true for the two failure roles.
func (r ResponseRole) IsFatal() bool {
	return r == RoleFatalController || r == RoleFatalNode
}

// IsTerminal returns true if no further messages belong to the request
// once this role has been produced.
func (r ResponseRole) IsTerminal() bool {
	return r == RoleFinal || r.IsFatal()
}
