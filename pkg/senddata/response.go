package senddata

import "github.com/backkem/zwave/pkg/message"

// Response is the controller's synchronous acknowledgment of a send-data
// request. It has no callback ID and answers the most recently submitted
// request.
type Response struct {
	WasSent bool
}

// MessageType implements message.Message.
func (r *Response) MessageType() message.MessageType { return message.TypeResponse }

// FunctionType implements message.Message.
func (r *Response) FunctionType() message.FunctionType { return message.FunctionSendData }

// Serialize encodes the response as the controller sends it.
func (r *Response) Serialize() ([]byte, error) {
	var b byte
	if r.WasSent {
		b = 0x01
	}
	frame := message.Frame{
		Type:     message.TypeResponse,
		Function: message.FunctionSendData,
		Payload:  []byte{b},
	}
	return frame.Encode()
}

// Deserialize decodes byte 0 of the payload into WasSent. Zero is false,
// anything else true. Later bytes are ignored.
func (r *Response) Deserialize(data []byte) (int, error) {
	var frame message.Frame
	n, err := frame.Decode(data)
	if err != nil {
		return 0, err
	}
	if frame.Function != message.FunctionSendData {
		return 0, ErrWrongFunction
	}
	if len(frame.Payload) < 1 {
		return 0, ErrPayloadTooShort
	}
	r.WasSent = frame.Payload[0] != 0
	return n, nil
}

var _ message.Message = (*Response)(nil)
