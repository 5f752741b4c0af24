// Package application implements the application command handler message,
// the controller's delivery of a command received from a node.
package application

import (
	"errors"
	"fmt"

	"github.com/backkem/zwave/pkg/commandclass"
	"github.com/backkem/zwave/pkg/message"
)

// Errors.
var (
	ErrPayloadTooShort = errors.New("application: payload too short")
	ErrNoCommand       = errors.New("application: no command")
)

// RxStatus flags describe how the frame was received.
type RxStatus uint8

const (
	RxStatusRoutedBusy RxStatus = 0x01
	RxStatusLowPower   RxStatus = 0x02
	RxStatusBroadcast  RxStatus = 0x04
	RxStatusMulticast  RxStatus = 0x08
)

// CommandRequest carries one command from a node:
//
//	[rx status] [source node] [length] [cc] [cmd] [params...]
type CommandRequest struct {
	RxStatus RxStatus
	Source   commandclass.NodeID
	Cmd      commandclass.Command

	registry *commandclass.Registry
}

// NewCommandRequest creates an empty request that parses commands with reg.
// A nil reg uses commandclass.DefaultRegistry.
func NewCommandRequest(reg *commandclass.Registry) *CommandRequest {
	if reg == nil {
		reg = commandclass.DefaultRegistry()
	}
	return &CommandRequest{registry: reg}
}

// RegisterMessages adds CommandRequest to reg, parsing commands with ccReg.
func RegisterMessages(reg *message.Registry, ccReg *commandclass.Registry) {
	if ccReg == nil {
		ccReg = commandclass.DefaultRegistry()
	}
	reg.Register(message.TypeRequest, message.FunctionApplicationCommand, func() message.Message {
		return NewCommandRequest(ccReg)
	})
}

// MessageType implements message.Message.
func (r *CommandRequest) MessageType() message.MessageType { return message.TypeRequest }

// FunctionType implements message.Message.
func (r *CommandRequest) FunctionType() message.FunctionType {
	return message.FunctionApplicationCommand
}

// Command returns the carried command.
func (r *CommandRequest) Command() commandclass.Command { return r.Cmd }

// Serialize encodes the request as the controller would send it.
func (r *CommandRequest) Serialize() ([]byte, error) {
	if r.Cmd == nil {
		return nil, ErrNoCommand
	}
	payload, err := r.Cmd.Payload()
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(payload)+3)
	out = append(out, byte(r.RxStatus), byte(r.Source), byte(len(payload)))
	out = append(out, payload...)

	frame := message.Frame{
		Type:     message.TypeRequest,
		Function: message.FunctionApplicationCommand,
		Payload:  out,
	}
	return frame.Encode()
}

// Deserialize decodes the frame and parses the carried command.
func (r *CommandRequest) Deserialize(data []byte) (int, error) {
	var frame message.Frame
	n, err := frame.Decode(data)
	if err != nil {
		return 0, err
	}
	if frame.Function != message.FunctionApplicationCommand {
		return 0, message.ErrWrongFunction
	}

	p := frame.Payload
	if len(p) < 3 {
		return 0, ErrPayloadTooShort
	}
	length := int(p[2])
	if len(p) < 3+length {
		return 0, ErrPayloadTooShort
	}

	reg := r.registry
	if reg == nil {
		reg = commandclass.DefaultRegistry()
	}
	source := commandclass.NodeID(p[1])
	cmd, err := reg.Parse(source, p[3:3+length])
	if err != nil {
		return 0, fmt.Errorf("application: parse command from node %d: %w", source, err)
	}

	r.RxStatus = RxStatus(p[0])
	r.Source = source
	r.Cmd = cmd
	return n, nil
}

var _ message.Message = (*CommandRequest)(nil)
