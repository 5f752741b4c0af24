package driver

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/pion/logging"

	"github.com/backkem/zwave/pkg/application"
	"github.com/backkem/zwave/pkg/commandclass"
	"github.com/backkem/zwave/pkg/message"
	"github.com/backkem/zwave/pkg/senddata"
	"github.com/backkem/zwave/pkg/transport"
)

// simulatorSendTimeout bounds each frame the simulator sends to the host.
const simulatorSendTimeout = 5 * time.Second

// SimulatedNode is a node behind a SimulatedController.
type SimulatedNode struct {
	// Unreachable nodes make every transmission end with StatusNoAck.
	Unreachable bool

	// Status overrides the transmit status reported for reachable nodes.
	Status senddata.TransmitStatus

	// Silent nodes are reachable but never send application replies.
	Silent bool

	BasicValue uint8

	// Groups holds association group members. MaxNodes is reported as the
	// group capacity.
	Groups   map[uint8][]commandclass.NodeID
	MaxNodes uint8

	// ReportChunk is the number of members per association report.
	// Zero sends every member in one report.
	ReportChunk int
}

// ObservedRequest is a send-data request as the controller decoded it.
type ObservedRequest struct {
	Command         commandclass.Command
	TransmitOptions senddata.TransmitOptions
	CallbackID      uint8
}

// ControllerConfig configures a SimulatedController.
type ControllerConfig struct {
	// Port is the controller end of the link. Required.
	Port io.ReadWriteCloser

	// Nodes are the nodes in the simulated network.
	Nodes map[commandclass.NodeID]*SimulatedNode

	// Commands parses the commands inside send-data requests.
	// If nil, commandclass.DefaultRegistry is used.
	Commands *commandclass.Registry

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// SimulatedController answers send-data requests the way a controller
// does: a Response, an echo with the transmit status, and application
// replies from the addressed node.
type SimulatedController struct {
	link     *transport.Serial
	commands *commandclass.Registry
	log      logging.LeveledLogger

	frames  chan []byte
	closeCh chan struct{}
	wg      sync.WaitGroup

	mu         sync.Mutex
	nodes      map[commandclass.NodeID]*SimulatedNode
	rejectNext int
	dropEchoes bool
	observed   []ObservedRequest
}

// NewSimulatedController creates a controller on config.Port. Call Start to
// begin answering.
func NewSimulatedController(config ControllerConfig) (*SimulatedController, error) {
	c := &SimulatedController{
		commands: config.Commands,
		frames:   make(chan []byte, 32),
		closeCh:  make(chan struct{}),
		nodes:    make(map[commandclass.NodeID]*SimulatedNode),
	}
	if c.commands == nil {
		c.commands = commandclass.DefaultRegistry()
	}
	for id, n := range config.Nodes {
		c.nodes[id] = n
	}
	if config.LoggerFactory != nil {
		c.log = config.LoggerFactory.NewLogger("controller-sim")
	}

	link, err := transport.NewSerial(transport.SerialConfig{
		Port:           config.Port,
		MessageHandler: c.enqueue,
		LoggerFactory:  config.LoggerFactory,
	})
	if err != nil {
		return nil, err
	}
	c.link = link
	return c, nil
}

// Start begins reading requests.
func (c *SimulatedController) Start() error {
	if err := c.link.Start(); err != nil {
		return err
	}
	c.wg.Add(1)
	go c.run()
	return nil
}

// Close stops the controller.
func (c *SimulatedController) Close() error {
	select {
	case <-c.closeCh:
		return nil
	default:
	}
	close(c.closeCh)
	err := c.link.Close()
	c.wg.Wait()
	return err
}

// SetNode adds or replaces a node.
func (c *SimulatedController) SetNode(id commandclass.NodeID, node *SimulatedNode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodes[id] = node
}

// Node returns a copy of a node's state.
func (c *SimulatedController) Node(id commandclass.NodeID) (SimulatedNode, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.nodes[id]
	if !ok {
		return SimulatedNode{}, false
	}
	return *n, true
}

// RejectNext answers the next n requests with WasSent=false.
func (c *SimulatedController) RejectNext(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rejectNext = n
}

// DropEchoes suppresses the echo for every following request.
func (c *SimulatedController) DropEchoes(drop bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropEchoes = drop
}

// Observed returns the requests received so far.
func (c *SimulatedController) Observed() []ObservedRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ObservedRequest(nil), c.observed...)
}

// Inject sends an arbitrary message to the host.
func (c *SimulatedController) Inject(ctx context.Context, msg message.Message) error {
	data, err := msg.Serialize()
	if err != nil {
		return err
	}
	return c.link.Send(ctx, data)
}

func (c *SimulatedController) enqueue(frame []byte) {
	select {
	case c.frames <- frame:
	case <-c.closeCh:
	}
}

func (c *SimulatedController) run() {
	defer c.wg.Done()
	for {
		select {
		case <-c.closeCh:
			return
		case frame := <-c.frames:
			if err := c.handle(frame); err != nil && c.log != nil {
				c.log.Warnf("simulator: %v", err)
			}
		}
	}
}

func (c *SimulatedController) handle(data []byte) error {
	var frame message.Frame
	if _, err := frame.Decode(data); err != nil {
		return err
	}
	if frame.Type != message.TypeRequest || frame.Function != message.FunctionSendData {
		return nil
	}

	req, err := c.decodeRequest(frame.Payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.observed = append(c.observed, req)
	reject := c.rejectNext > 0
	if reject {
		c.rejectNext--
	}
	dropEcho := c.dropEchoes
	status := senddata.StatusNoAck
	var replies []commandclass.Command
	if node, ok := c.nodes[req.Command.NodeID()]; ok && !node.Unreachable && !reject {
		status = node.Status
		if status == senddata.StatusOK {
			replies = node.apply(req.Command)
		}
	}
	c.mu.Unlock()

	if err := c.send(&senddata.Response{WasSent: !reject}); err != nil {
		return err
	}
	if reject {
		return nil
	}

	if !dropEcho {
		echo := &message.Raw{Frame: message.Frame{
			Type:     message.TypeRequest,
			Function: message.FunctionSendData,
			Payload:  []byte{req.CallbackID, byte(status)},
		}}
		if err := c.send(echo); err != nil {
			return err
		}
	}

	for _, reply := range replies {
		if err := c.send(&application.CommandRequest{Source: reply.NodeID(), Cmd: reply}); err != nil {
			return err
		}
	}
	return nil
}

// decodeRequest reads the outgoing form:
// [node][len][command...][options][callback ID].
func (c *SimulatedController) decodeRequest(payload []byte) (ObservedRequest, error) {
	if len(payload) < 2 || len(payload) < int(payload[1])+4 {
		return ObservedRequest{}, senddata.ErrPayloadTooShort
	}
	cmd, err := c.commands.ParseAddressed(payload)
	if err != nil {
		return ObservedRequest{}, err
	}
	tail := payload[2+int(payload[1]):]
	return ObservedRequest{
		Command:         cmd,
		TransmitOptions: senddata.TransmitOptions(tail[0]),
		CallbackID:      tail[1],
	}, nil
}

func (c *SimulatedController) send(msg message.Message) error {
	ctx, cancel := context.WithTimeout(context.Background(), simulatorSendTimeout)
	defer cancel()

	err := c.Inject(ctx, msg)
	if errors.Is(err, transport.ErrClosed) {
		return nil
	}
	return err
}

// apply executes cmd on the node and returns its replies. The caller holds
// the controller lock.
func (n *SimulatedNode) apply(cmd commandclass.Command) []commandclass.Command {
	if n.Silent {
		return nil
	}
	self := commandclass.Header{Node: cmd.NodeID()}

	switch c := cmd.(type) {
	case *commandclass.BasicSet:
		n.BasicValue = c.Value
	case *commandclass.BasicGet:
		return []commandclass.Command{&commandclass.BasicReport{Header: self, Value: n.BasicValue}}

	case *commandclass.AssociationSet:
		if n.Groups == nil {
			n.Groups = make(map[uint8][]commandclass.NodeID)
		}
		n.Groups[c.GroupID] = append(n.Groups[c.GroupID], c.Nodes...)
	case *commandclass.AssociationRemove:
		if len(c.Nodes) == 0 {
			delete(n.Groups, c.GroupID)
			break
		}
		n.Groups[c.GroupID] = removeNodes(n.Groups[c.GroupID], c.Nodes)
	case *commandclass.AssociationGet:
		return n.associationReports(self, c.GroupID)
	}
	return nil
}

func (n *SimulatedNode) associationReports(self commandclass.Header, group uint8) []commandclass.Command {
	members := n.Groups[group]
	chunk := n.ReportChunk
	if chunk <= 0 || chunk > len(members) {
		chunk = len(members)
	}

	var chunks [][]commandclass.NodeID
	for start := 0; start < len(members); start += chunk {
		end := start + chunk
		if end > len(members) {
			end = len(members)
		}
		chunks = append(chunks, members[start:end])
	}
	if len(chunks) == 0 {
		chunks = [][]commandclass.NodeID{nil}
	}

	reports := make([]commandclass.Command, len(chunks))
	for i, nodes := range chunks {
		reports[i] = &commandclass.AssociationReport{
			Header:          self,
			GroupID:         group,
			MaxNodes:        n.MaxNodes,
			ReportsToFollow: uint8(len(chunks) - 1 - i),
			Nodes:           append([]commandclass.NodeID(nil), nodes...),
		}
	}
	return reports
}

func removeNodes(from, remove []commandclass.NodeID) []commandclass.NodeID {
	out := from[:0]
	for _, id := range from {
		keep := true
		for _, r := range remove {
			if id == r {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, id)
		}
	}
	return out
}
