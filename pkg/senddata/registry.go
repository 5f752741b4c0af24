package senddata

import "github.com/backkem/zwave/pkg/message"

// RegisterMessages adds the send-data Response and echo Request to reg.
func RegisterMessages(reg *message.Registry) {
	reg.Register(message.TypeResponse, message.FunctionSendData, func() message.Message { return &Response{} })
	reg.Register(message.TypeRequest, message.FunctionSendData, func() message.Message { return &Request{} })
}
