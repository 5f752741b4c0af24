package driver

import (
	"time"

	"github.com/backkem/zwave/pkg/commandclass"
	"github.com/backkem/zwave/pkg/transport"
)

// =============================================================================
// Exported Test Infrastructure for E2E Testing
// =============================================================================

// TestPair connects a Driver to a SimulatedController through an in-memory
// pipe. Frames travel the full stack:
// Driver -> transport.Serial -> Pipe -> transport.Serial -> SimulatedController
//
// Usage:
//
//	pair, _ := driver.NewTestPair(driver.TestPairConfig{
//		Nodes: map[commandclass.NodeID]*driver.SimulatedNode{5: {}},
//	})
//	defer pair.Close()
//
//	res, err := pair.Driver().SendCommand(ctx, &commandclass.BasicGet{Header: commandclass.Header{Node: 5}})
type TestPair struct {
	pipe       *transport.Pipe
	driver     *Driver
	controller *SimulatedController
}

// TestPairConfig configures the test pair.
type TestPairConfig struct {
	// Driver configures the host side. Transport is ignored.
	Driver Config

	// Nodes are the nodes behind the simulated controller.
	Nodes map[commandclass.NodeID]*SimulatedNode

	// AckTimeout bounds each link-layer send on both ends.
	// Default: transport.DefaultAckTimeout.
	AckTimeout time.Duration
}

// NewTestPair creates a driver and a simulated controller connected via
// a virtual pipe.
func NewTestPair(config TestPairConfig) (*TestPair, error) {
	pipe := transport.NewPipe()

	controller, err := NewSimulatedController(ControllerConfig{
		Port:          pipe.Controller(),
		Nodes:         config.Nodes,
		Commands:      config.Driver.Commands,
		LoggerFactory: config.Driver.LoggerFactory,
	})
	if err != nil {
		pipe.Close()
		return nil, err
	}
	if err := controller.Start(); err != nil {
		pipe.Close()
		return nil, err
	}

	d, err := Open(pipe.Host(), config.Driver, transport.SerialConfig{
		AckTimeout: config.AckTimeout,
	})
	if err != nil {
		controller.Close()
		pipe.Close()
		return nil, err
	}

	return &TestPair{
		pipe:       pipe,
		driver:     d,
		controller: controller,
	}, nil
}

// Driver returns the host side.
func (p *TestPair) Driver() *Driver { return p.driver }

// Controller returns the simulated controller.
func (p *TestPair) Controller() *SimulatedController { return p.controller }

// Pipe returns the link between the two.
func (p *TestPair) Pipe() *transport.Pipe { return p.pipe }

// Close shuts down both ends and the pipe.
func (p *TestPair) Close() error {
	err := p.driver.Close()
	if cerr := p.controller.Close(); err == nil {
		err = cerr
	}
	if perr := p.pipe.Close(); err == nil {
		err = perr
	}
	return err
}
