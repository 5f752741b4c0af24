package driver

import (
	"errors"
	"fmt"

	"github.com/backkem/zwave/pkg/commandclass"
	"github.com/backkem/zwave/pkg/senddata"
)

// Errors returned by the driver package.
var (
	// ErrNoTransport is returned when no transport is configured.
	ErrNoTransport = errors.New("driver: no transport configured")

	// ErrClosed is returned for operations on a closed driver, and to
	// exchanges still live when it closes.
	ErrClosed = errors.New("driver: closed")

	// ErrControllerRejected is returned when the controller refuses to
	// transmit a request.
	ErrControllerRejected = errors.New("driver: controller rejected the request")

	// ErrTimeout is returned when an exchange does not reach a terminal
	// outcome in time.
	ErrTimeout = errors.New("driver: exchange timed out")

	// ErrCallbackIDsExhausted is returned when every callback ID is held
	// by a live exchange.
	ErrCallbackIDsExhausted = errors.New("driver: no free callback ID")
)

// NodeError reports that the link layer could not deliver a request to
// its node.
type NodeError struct {
	Node   commandclass.NodeID
	Status senddata.TransmitStatus
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("driver: node %d not reached: %s", e.Node, e.Status)
}
