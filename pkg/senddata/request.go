package senddata

import (
	"fmt"

	"github.com/backkem/zwave/pkg/commandclass"
	"github.com/backkem/zwave/pkg/message"
)

// CommandMessage is implemented by inbound messages that carry a command
// from a node, such as an application command request.
type CommandMessage interface {
	message.Message
	Command() commandclass.Command
}

// Request is the send-data request.
//
// The outgoing form is built by NewRequest and carries the command. The
// echo form is the zero value filled by Deserialize; it holds the callback
// ID and transmit status reported by the controller but never a command.
type Request struct {
	// Command is the command to deliver. Nil in the echo form.
	Command commandclass.Command

	TransmitOptions TransmitOptions
	CallbackID      uint8

	// TransmitStatus is only meaningful once HasTransmitStatus is true.
	TransmitStatus TransmitStatus

	hasStatus bool
}

// RequestOption configures an outgoing Request.
type RequestOption func(*requestOptions)

type requestOptions struct {
	transmitOptions *TransmitOptions
	callbackID      *uint8
}

// WithTransmitOptions overrides DefaultTransmitOptions.
func WithTransmitOptions(o TransmitOptions) RequestOption {
	return func(ro *requestOptions) { ro.transmitOptions = &o }
}

// WithCallbackID uses id instead of allocating one.
func WithCallbackID(id uint8) RequestOption {
	return func(ro *requestOptions) { ro.callbackID = &id }
}

// NewRequest creates the outgoing form of a send-data request for cmd.
// Unset options default to DefaultTransmitOptions and a fresh ID from
// alloc. With a nil cmd nothing is defaulted and alloc is not used.
func NewRequest(cmd commandclass.Command, alloc *message.CallbackIDAllocator, opts ...RequestOption) *Request {
	r := &Request{Command: cmd}
	if cmd == nil {
		return r
	}

	var ro requestOptions
	for _, opt := range opts {
		opt(&ro)
	}

	r.TransmitOptions = DefaultTransmitOptions
	if ro.transmitOptions != nil {
		r.TransmitOptions = *ro.transmitOptions
	}

	switch {
	case ro.callbackID != nil:
		r.CallbackID = *ro.callbackID
	case alloc != nil:
		r.CallbackID = alloc.Next()
	}
	return r
}

// MessageType implements message.Message.
func (r *Request) MessageType() message.MessageType { return message.TypeRequest }

// FunctionType implements message.Message.
func (r *Request) FunctionType() message.FunctionType { return message.FunctionSendData }

// Serialize encodes the outgoing form:
//
//	[addressed command...] [transmit options] [callback ID]
//
// Returns ErrPacketFormatInvalid and no bytes when there is no command.
func (r *Request) Serialize() ([]byte, error) {
	if r.Command == nil {
		return nil, ErrPacketFormatInvalid
	}

	cmd, err := r.Command.Serialize()
	if err != nil {
		return nil, fmt.Errorf("senddata: serialize command: %w", err)
	}

	payload := make([]byte, 0, len(cmd)+2)
	payload = append(payload, cmd...)
	payload = append(payload, byte(r.TransmitOptions), r.CallbackID)

	frame := message.Frame{
		Type:     message.TypeRequest,
		Function: message.FunctionSendData,
		Payload:  payload,
	}
	return frame.Encode()
}

// Deserialize decodes an echo frame: payload byte 0 is the callback ID,
// byte 1 the transmit status. Any further bytes are ignored.
// Returns the number of bytes consumed.
func (r *Request) Deserialize(data []byte) (int, error) {
	var frame message.Frame
	n, err := frame.Decode(data)
	if err != nil {
		return 0, err
	}
	if frame.Function != message.FunctionSendData {
		return 0, ErrWrongFunction
	}
	if len(frame.Payload) < 2 {
		return 0, ErrPayloadTooShort
	}

	r.CallbackID = frame.Payload[0]
	r.TransmitStatus = TransmitStatus(frame.Payload[1])
	r.hasStatus = true
	return n, nil
}

// HasTransmitStatus reports whether the transmit status has been
// populated by Deserialize.
func (r *Request) HasTransmitStatus() bool {
	return r.hasStatus
}

// IsFailed reports whether the link layer did not deliver the frame.
// Only meaningful when HasTransmitStatus is true.
func (r *Request) IsFailed() bool {
	return r.TransmitStatus != StatusOK
}

// ExpectedResponse implements message.ResponseExpecter.
func (r *Request) ExpectedResponse() message.ResponseTest {
	return testSendDataResponse
}

// testSendDataResponse is the base classification of replies to a
// send-data request: the controller's Response and the echo.
func testSendDataResponse(_, received message.Message) message.ResponseRole {
	switch m := received.(type) {
	case *Response:
		if m.WasSent {
			return message.RoleConfirmation
		}
		return message.RoleFatalController
	case *Request:
		if !m.HasTransmitStatus() {
			return message.RoleUnexpected
		}
		if m.IsFailed() {
			return message.RoleFatalNode
		}
		return message.RoleFinal
	default:
		return message.RoleUnexpected
	}
}

// TestResponse classifies received relative to r. It always returns
// exactly one role.
//
// Confirmation and fatal verdicts of the base stage stand. When the sent
// command declares an expected response, only a command of that class can
// finish the exchange: it is partial while it expects more messages and
// final otherwise. Everything else, including a successful echo, is then
// unexpected.
func (r *Request) TestResponse(received message.Message) message.ResponseRole {
	role := message.TestResponse(r, received)
	if role == message.RoleConfirmation || role.IsFatal() {
		return role
	}
	if r.Command == nil {
		return role
	}

	expected, ok := r.Command.ExpectedResponse().Resolve(r.Command)
	if !ok {
		return role
	}

	cm, ok := received.(CommandMessage)
	if !ok {
		return message.RoleUnexpected
	}
	cmd := cm.Command()
	if cmd == nil || cmd.CCID() != expected {
		return message.RoleUnexpected
	}
	if cmd.ExpectMoreMessages() {
		return message.RolePartial
	}
	return message.RoleFinal
}

var (
	_ message.Message          = (*Request)(nil)
	_ message.ResponseExpecter = (*Request)(nil)
)
