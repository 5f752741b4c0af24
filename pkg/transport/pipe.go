package transport

import (
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/pion/transport/v3/test"
)

// LinkCondition configures link behavior simulation.
// Use this to test retransmission and resynchronization.
type LinkCondition struct {
	// DropRate is the probability of dropping a write (0.0 - 1.0).
	DropRate float64

	// DelayMin is the minimum delay to add to each write.
	DelayMin time.Duration

	// DelayMax is the maximum delay to add to each write.
	// Actual delay is uniformly distributed between DelayMin and DelayMax.
	DelayMax time.Duration

	// CorruptRate is the probability of flipping a bit in the last byte of
	// a multi-byte write, which invalidates a frame's checksum.
	CorruptRate float64
}

// PipeConfig configures a Pipe.
type PipeConfig struct {
	// AutoProcess enables automatic delivery in a background goroutine.
	// Default: true
	AutoProcess bool

	// ProcessInterval is how often the auto-processor checks for writes.
	// Default: 1ms
	ProcessInterval time.Duration
}

// DefaultPipeConfig returns the default pipe configuration.
func DefaultPipeConfig() PipeConfig {
	return PipeConfig{
		AutoProcess:     true,
		ProcessInterval: 1 * time.Millisecond,
	}
}

// Pipe is an in-memory serial link between a host (end 0) and a
// controller (end 1). It wraps pion's test.Bridge; every Write is
// delivered to the peer as one Read.
//
// By default, Pipe delivers writes in a background goroutine.
// Use SetAutoProcess(false) or NewPipeWithConfig for manual control.
type Pipe struct {
	bridge *test.Bridge
	ports  [2]*PipePort

	mu              sync.RWMutex
	condition       LinkCondition
	closed          bool
	rng             *rand.Rand
	autoProcess     bool
	processInterval time.Duration
	stopCh          chan struct{}
	wg              sync.WaitGroup
}

// NewPipe creates a new pipe with auto-processing enabled.
func NewPipe() *Pipe {
	return NewPipeWithConfig(DefaultPipeConfig())
}

// NewPipeWithConfig creates a new pipe with the given configuration.
func NewPipeWithConfig(config PipeConfig) *Pipe {
	p := &Pipe{
		bridge:          test.NewBridge(),
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
		autoProcess:     config.AutoProcess,
		processInterval: config.ProcessInterval,
		stopCh:          make(chan struct{}),
	}
	if p.processInterval == 0 {
		p.processInterval = 1 * time.Millisecond
	}

	p.ports[0] = &PipePort{conn: p.bridge.GetConn0(), pipe: p}
	p.ports[1] = &PipePort{conn: p.bridge.GetConn1(), pipe: p}

	if p.autoProcess {
		p.startAutoProcess()
	}
	return p
}

func (p *Pipe) startAutoProcess() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.processInterval)
		defer ticker.Stop()

		for {
			select {
			case <-p.stopCh:
				return
			case <-ticker.C:
				p.bridge.Tick()
			}
		}
	}()
}

// SetAutoProcess enables or disables automatic delivery.
// When disabled, you must call Tick() or Process() manually.
func (p *Pipe) SetAutoProcess(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || p.autoProcess == enabled {
		return
	}
	p.autoProcess = enabled

	if enabled {
		p.stopCh = make(chan struct{})
		p.startAutoProcess()
	} else {
		close(p.stopCh)
		p.wg.Wait()
	}
}

// AutoProcess returns whether auto-processing is enabled.
func (p *Pipe) AutoProcess() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.autoProcess
}

// SetCondition configures link simulation for writes in both directions.
func (p *Pipe) SetCondition(cond LinkCondition) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.condition = cond
}

// Condition returns the current link condition.
func (p *Pipe) Condition() LinkCondition {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.condition
}

// Host returns the host end of the link.
func (p *Pipe) Host() *PipePort { return p.ports[0] }

// Controller returns the controller end of the link.
func (p *Pipe) Controller() *PipePort { return p.ports[1] }

// DropNextWrites silently discards the next n writes from end id.
func (p *Pipe) DropNextWrites(id, n int) {
	p.bridge.DropNextNWrites(id, n)
}

// Tick delivers one write in each direction to a waiting reader.
// Returns the number delivered (0, 1, or 2).
func (p *Pipe) Tick() int {
	return p.bridge.Tick()
}

// Process delivers queued writes until none is accepted.
// Returns the number delivered.
func (p *Pipe) Process() int {
	count := 0
	for {
		n := p.Tick()
		if n == 0 {
			break
		}
		count += n
	}
	return count
}

// Close closes both ends and stops auto-processing. Blocked readers on
// either end return io.EOF.
func (p *Pipe) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	if p.autoProcess {
		close(p.stopCh)
	}
	p.mu.Unlock()

	p.wg.Wait()

	for _, port := range p.ports {
		_ = port.Close()
	}

	// Discard undelivered writes so Tick can close the read channels.
	p.bridge.Drop(0, 0, p.bridge.Len(0))
	p.bridge.Drop(1, 0, p.bridge.Len(1))
	p.bridge.Tick()
	return nil
}

// PipePort is one end of a Pipe. It satisfies io.ReadWriteCloser and can
// stand in for a serial port.
type PipePort struct {
	conn net.Conn
	pipe *Pipe

	mu     sync.Mutex
	closed bool
}

// Read reads one write from the peer.
func (c *PipePort) Read(b []byte) (int, error) {
	return c.conn.Read(b)
}

// Write sends b to the peer as one unit, applying the pipe's link condition.
func (c *PipePort) Write(b []byte) (int, error) {
	drop, delay, corrupt := c.pipe.sample(len(b))
	if drop {
		return len(b), nil
	}
	if delay > 0 {
		time.Sleep(delay)
	}

	if corrupt {
		corrupted := make([]byte, len(b))
		copy(corrupted, b)
		corrupted[len(corrupted)-1] ^= 0x01
		if _, err := c.conn.Write(corrupted); err != nil {
			return 0, err
		}
		return len(b), nil
	}

	return c.conn.Write(b)
}

// sample draws the link condition outcome for one write of n bytes.
func (p *Pipe) sample(n int) (drop bool, delay time.Duration, corrupt bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cond := p.condition
	if cond.DropRate > 0 && p.rng.Float64() < cond.DropRate {
		return true, 0, false
	}
	if cond.DelayMax > 0 {
		delay = cond.DelayMin
		if cond.DelayMax > cond.DelayMin {
			delay += time.Duration(p.rng.Int63n(int64(cond.DelayMax - cond.DelayMin)))
		}
	}
	corrupt = cond.CorruptRate > 0 && n > 1 && p.rng.Float64() < cond.CorruptRate
	return false, delay, corrupt
}

// Close closes this end. Closing twice is a no-op.
func (c *PipePort) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

// SetReadDeadline sets the read deadline.
func (c *PipePort) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}
