package driver

import (
	"sync"
	"time"

	"github.com/backkem/zwave/pkg/commandclass"
	"github.com/backkem/zwave/pkg/senddata"
)

// Result is the terminal outcome of a successful exchange.
type Result struct {
	CallbackID uint8

	// TransmitStatus is set when the echo arrived.
	TransmitStatus    senddata.TransmitStatus
	HasTransmitStatus bool

	// Response is the final command from the node with every partial merged
	// in, or nil when the command expects no reply.
	Response commandclass.Command

	// Partials are the fragments that preceded Response, in arrival order.
	Partials []commandclass.Command
}

// exchange tracks one request from submission until it is retired.
type exchange struct {
	req   *senddata.Request
	node  commandclass.NodeID
	start time.Time

	// Guarded by Driver.mu.
	accepted bool
	finished bool
	result   Result
	err      error

	ackOnce sync.Once
	acked   chan struct{} // closed on confirmation or completion
	done    chan struct{} // closed on completion
}

func newExchange(req *senddata.Request) *exchange {
	return &exchange{
		req:    req,
		node:   req.Command.NodeID(),
		start:  time.Now(),
		result: Result{CallbackID: req.CallbackID},
		acked:  make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (e *exchange) markAcked() {
	e.ackOnce.Do(func() { close(e.acked) })
}
