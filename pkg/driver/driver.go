// Package driver runs send-data exchanges against a controller.
//
// The driver is the single dispatch point for inbound frames. It correlates
// each message with the live exchange it belongs to, classifies it with the
// exchange's request, and completes the exchange on a terminal role:
//
//	SendCommand -> serialize -> transport.Send (link ACK)
//	HandleFrame -> parse -> route -> Request.TestResponse -> apply role
//
// Responses go to the exchange awaiting the controller's acknowledgment,
// echoes to the exchange holding their callback ID, and application
// commands to the live exchanges addressed to their source node, oldest
// first.
package driver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pion/logging"

	"github.com/backkem/zwave/pkg/application"
	"github.com/backkem/zwave/pkg/commandclass"
	"github.com/backkem/zwave/pkg/message"
	"github.com/backkem/zwave/pkg/metrics"
	"github.com/backkem/zwave/pkg/senddata"
)

// DefaultTimeout bounds one exchange from submission to terminal outcome.
const DefaultTimeout = 10 * time.Second

// maxLiveExchanges is the number of allocatable callback IDs.
const maxLiveExchanges = 256 - int(message.MinCallbackID)

// Sender writes a frame to the controller and waits for the link ACK.
type Sender interface {
	Send(ctx context.Context, frame []byte) error
}

// UnsolicitedHandler receives inbound messages that belong to no exchange.
type UnsolicitedHandler func(msg message.Message)

// Config configures the Driver.
type Config struct {
	// Transport delivers frames to the controller. Required.
	Transport Sender

	// Messages parses inbound frames. If nil, a registry with the
	// send-data and application command messages is used.
	Messages *message.Registry

	// Commands parses command classes for the default Messages registry.
	// If nil, commandclass.DefaultRegistry is used.
	Commands *commandclass.Registry

	// Allocator hands out callback IDs. If nil, a new allocator is used.
	Allocator *message.CallbackIDAllocator

	// Timeout bounds each exchange. Default: DefaultTimeout.
	Timeout time.Duration

	// UnsolicitedHandler is called for messages no exchange claims.
	// Optional; it runs on the dispatch goroutine.
	UnsolicitedHandler UnsolicitedHandler

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory

	// Metrics records exchange statistics. Optional.
	Metrics *metrics.Metrics
}

// Driver correlates requests with the controller's replies.
type Driver struct {
	transport   Sender
	messages    *message.Registry
	alloc       *message.CallbackIDAllocator
	timeout     time.Duration
	unsolicited UnsolicitedHandler
	log         logging.LeveledLogger
	metrics     *metrics.Metrics

	// closers are released by Close, e.g. a transport built by Open.
	closers []func() error

	// submitMu admits one request at a time until the controller answers
	// it, since the controller's Response carries no callback ID.
	submitMu sync.Mutex

	mu          sync.Mutex
	exchanges   map[uint8]*exchange
	order       []*exchange // submission order
	awaitingAck *exchange
	closed      bool
}

// New creates a driver.
func New(config Config) (*Driver, error) {
	if config.Transport == nil {
		return nil, ErrNoTransport
	}

	d := &Driver{
		transport:   config.Transport,
		messages:    config.Messages,
		alloc:       config.Allocator,
		timeout:     config.Timeout,
		unsolicited: config.UnsolicitedHandler,
		metrics:     config.Metrics,
		exchanges:   make(map[uint8]*exchange),
	}
	if d.messages == nil {
		d.messages = NewMessageRegistry(config.Commands)
	}
	if d.alloc == nil {
		d.alloc = message.NewCallbackIDAllocator()
	}
	if d.timeout == 0 {
		d.timeout = DefaultTimeout
	}
	if config.LoggerFactory != nil {
		d.log = config.LoggerFactory.NewLogger("driver")
	}

	return d, nil
}

// NewMessageRegistry returns a registry with every message the driver
// understands.
func NewMessageRegistry(commands *commandclass.Registry) *message.Registry {
	reg := message.NewRegistry()
	senddata.RegisterMessages(reg)
	application.RegisterMessages(reg, commands)
	return reg
}

// SendCommand delivers cmd and waits for the exchange to finish.
//
// A caller-supplied callback ID option is replaced by one that no live
// exchange holds. The returned error is ErrControllerRejected, a
// *NodeError, ErrTimeout, a transport error, or ctx's error.
func (d *Driver) SendCommand(ctx context.Context, cmd commandclass.Command, opts ...senddata.RequestOption) (*Result, error) {
	if cmd == nil {
		return nil, senddata.ErrPacketFormatInvalid
	}

	d.submitMu.Lock()
	submitted := false
	defer func() {
		if !submitted {
			d.submitMu.Unlock()
		}
	}()

	ex, data, err := d.register(cmd, opts)
	if err != nil {
		return nil, err
	}

	timer := time.NewTimer(d.timeout)
	defer timer.Stop()

	if d.log != nil {
		d.log.Debugf("sending %s to node %d (callback %d)", cmd.CCID(), ex.node, ex.req.CallbackID)
	}

	if err := d.transport.Send(ctx, data); err != nil {
		d.finish(ex, fmt.Errorf("driver: send: %w", err), metrics.OutcomeError)
		return nil, ex.err
	}

	// Hold back further submissions until the controller has answered.
	select {
	case <-ex.acked:
	case <-timer.C:
		d.finish(ex, ErrTimeout, metrics.OutcomeTimeout)
	case <-ctx.Done():
		d.finish(ex, ctx.Err(), metrics.OutcomeCancelled)
	}
	submitted = true
	d.submitMu.Unlock()

	select {
	case <-ex.done:
	case <-timer.C:
		d.finish(ex, ErrTimeout, metrics.OutcomeTimeout)
	case <-ctx.Done():
		d.finish(ex, ctx.Err(), metrics.OutcomeCancelled)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if ex.err != nil {
		return nil, ex.err
	}
	res := ex.result
	return &res, nil
}

// register allocates a free callback ID, serializes the request and makes
// it the exchange awaiting the controller's Response.
func (d *Driver) register(cmd commandclass.Command, opts []senddata.RequestOption) (*exchange, []byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, nil, ErrClosed
	}

	id, err := d.nextFreeID()
	if err != nil {
		return nil, nil, err
	}

	opts = append(opts[:len(opts):len(opts)], senddata.WithCallbackID(id))
	req := senddata.NewRequest(cmd, d.alloc, opts...)
	data, err := req.Serialize()
	if err != nil {
		return nil, nil, err
	}

	ex := newExchange(req)
	d.exchanges[id] = ex
	d.order = append(d.order, ex)
	d.awaitingAck = ex
	d.metrics.SetPending(len(d.exchanges))
	return ex, data, nil
}

// nextFreeID skips IDs still held by live exchanges. Must hold d.mu.
func (d *Driver) nextFreeID() (uint8, error) {
	if len(d.exchanges) >= maxLiveExchanges {
		return 0, ErrCallbackIDsExhausted
	}
	for i := 0; i < maxLiveExchanges; i++ {
		id := d.alloc.Next()
		if _, live := d.exchanges[id]; !live {
			return id, nil
		}
	}
	return 0, ErrCallbackIDsExhausted
}

// HandleFrame parses one inbound data frame and dispatches it. It is the
// transport's MessageHandler and must be called in arrival order.
func (d *Driver) HandleFrame(frame []byte) {
	msg, _, err := d.messages.Parse(frame)
	if err != nil {
		if d.log != nil {
			d.log.Warnf("dropping unparsable frame: %v", err)
		}
		return
	}
	d.Dispatch(msg)
}

// Dispatch routes one parsed message to the exchange it belongs to.
func (d *Driver) Dispatch(msg message.Message) {
	if !d.route(msg) {
		d.metrics.Unsolicited()
		if d.log != nil {
			d.log.Debugf("unsolicited %s %s", msg.MessageType(), msg.FunctionType())
		}
		if d.unsolicited != nil {
			d.unsolicited(msg)
		}
	}
}

// route reports whether an exchange claimed msg.
func (d *Driver) route(msg message.Message) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch m := msg.(type) {
	case *senddata.Response:
		ex := d.awaitingAck
		if ex == nil {
			return false
		}
		d.apply(ex, ex.req.TestResponse(m), m)
		return true

	case *senddata.Request:
		ex, ok := d.exchanges[m.CallbackID]
		if !ok {
			return false
		}
		role := ex.req.TestResponse(m)
		if role == message.RoleUnexpected && m.HasTransmitStatus() {
			// Delivered, but the node's reply is still outstanding.
			ex.result.TransmitStatus = m.TransmitStatus
			ex.result.HasTransmitStatus = true
			d.metrics.Classified(role.String())
			return true
		}
		d.apply(ex, role, m)
		return true

	case senddata.CommandMessage:
		cmd := m.Command()
		if cmd == nil {
			return false
		}
		for _, ex := range d.order {
			if ex.node != cmd.NodeID() {
				continue
			}
			role := ex.req.TestResponse(m)
			if role == message.RoleUnexpected {
				continue
			}
			d.apply(ex, role, m)
			return true
		}
		return false
	}

	return false
}

// apply advances ex by one classified message. Must hold d.mu.
func (d *Driver) apply(ex *exchange, role message.ResponseRole, msg message.Message) {
	d.metrics.Classified(role.String())
	if d.log != nil {
		d.log.Tracef("callback %d: %s %s -> %s", ex.req.CallbackID, msg.MessageType(), msg.FunctionType(), role)
	}

	switch role {
	case message.RoleConfirmation:
		ex.accepted = true
		if d.awaitingAck == ex {
			d.awaitingAck = nil
		}
		ex.markAcked()

	case message.RolePartial:
		cm := msg.(senddata.CommandMessage)
		ex.result.Partials = append(ex.result.Partials, cm.Command())

	case message.RoleFinal:
		d.complete(ex, msg)

	case message.RoleFatalController:
		d.retire(ex, ErrControllerRejected, metrics.OutcomeControllerRejects)

	case message.RoleFatalNode:
		status := senddata.StatusFail
		if echo, ok := msg.(*senddata.Request); ok {
			status = echo.TransmitStatus
			ex.result.TransmitStatus = status
			ex.result.HasTransmitStatus = true
		}
		d.retire(ex, &NodeError{Node: ex.node, Status: status}, metrics.OutcomeNodeFailed)

	default:
		if d.log != nil {
			d.log.Debugf("callback %d: ignoring unexpected %s", ex.req.CallbackID, msg.FunctionType())
		}
	}
}

// complete finishes ex successfully with its final message. Must hold d.mu.
func (d *Driver) complete(ex *exchange, msg message.Message) {
	switch m := msg.(type) {
	case *senddata.Request:
		ex.result.TransmitStatus = m.TransmitStatus
		ex.result.HasTransmitStatus = true

	case senddata.CommandMessage:
		final := m.Command()
		if len(ex.result.Partials) > 0 {
			all := make([]commandclass.Command, 0, len(ex.result.Partials)+1)
			all = append(all, ex.result.Partials...)
			all = append(all, final)
			if err := senddata.Merge(final, all); err != nil {
				d.retire(ex, fmt.Errorf("driver: merge partials: %w", err), metrics.OutcomeError)
				return
			}
		}
		ex.result.Response = final
	}
	d.retire(ex, nil, metrics.OutcomeSuccess)
}

// finish retires ex from outside the dispatch path.
func (d *Driver) finish(ex *exchange, err error, outcome string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.retire(ex, err, outcome)
}

// retire removes ex from every table, making its callback ID reusable,
// and wakes the submitter. Must hold d.mu.
func (d *Driver) retire(ex *exchange, err error, outcome string) {
	if ex.finished {
		return
	}
	ex.finished = true
	ex.err = err

	id := ex.req.CallbackID
	if d.exchanges[id] == ex {
		delete(d.exchanges, id)
	}
	for i, o := range d.order {
		if o == ex {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	if d.awaitingAck == ex {
		d.awaitingAck = nil
	}

	d.metrics.SetPending(len(d.exchanges))
	d.metrics.ObserveExchange(outcome, time.Since(ex.start))
	if d.log != nil {
		if err != nil && !errors.Is(err, ErrClosed) {
			d.log.Debugf("callback %d retired: %v", id, err)
		} else {
			d.log.Tracef("callback %d retired: %s", id, outcome)
		}
	}

	ex.markAcked()
	close(ex.done)
}

// Pending returns the number of live exchanges.
func (d *Driver) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.exchanges)
}

// Close fails every live exchange with ErrClosed and releases resources
// the driver owns.
func (d *Driver) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	live := append([]*exchange(nil), d.order...)
	for _, ex := range live {
		d.retire(ex, ErrClosed, metrics.OutcomeCancelled)
	}
	closers := d.closers
	d.mu.Unlock()

	var firstErr error
	for _, c := range closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
