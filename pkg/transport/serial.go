// Package transport implements the Serial API link layer between host and
// controller.
//
// Every data frame is acknowledged by the receiver with a single ACK byte,
// or rejected with NAK. CAN signals a collision. The Serial transport owns
// that handshake: it acknowledges inbound frames, retransmits outbound
// frames until acknowledged, and hands complete frames to a MessageHandler
// in arrival order.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pion/logging"

	"github.com/backkem/zwave/pkg/message"
	"github.com/backkem/zwave/pkg/metrics"
)

// MessageHandler is called from the read loop for every valid data frame,
// one at a time and in arrival order. Implementations must not block on
// Serial.Send.
type MessageHandler func(frame []byte)

// SerialConfig configures the serial transport.
type SerialConfig struct {
	// Port is the byte stream to the controller. Required.
	Port io.ReadWriteCloser

	// MessageHandler is called for each received data frame. Required.
	MessageHandler MessageHandler

	// AckTimeout bounds the wait for ACK per attempt.
	// Default: DefaultAckTimeout.
	AckTimeout time.Duration

	// MaxRetransmissions is the number of retries after the first attempt.
	// Zero uses DefaultMaxRetransmissions; negative disables retries.
	MaxRetransmissions int

	// BackoffInterval is the base delay before a retransmission.
	// Default: DefaultBackoffInterval.
	BackoffInterval time.Duration

	// Random is the jitter source. Default: DefaultRandomSource.
	Random RandomSource

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory

	// Metrics records link statistics. Optional.
	Metrics *metrics.Metrics
}

// deadliner is implemented by ports that can interrupt a blocked Read.
type deadliner interface {
	SetReadDeadline(t time.Time) error
}

// Serial runs the link layer over a byte stream.
type Serial struct {
	port       io.ReadWriteCloser
	handler    MessageHandler
	ackTimeout time.Duration
	maxRetries int
	interval   time.Duration
	backoff    *BackoffCalculator
	log        logging.LeveledLogger
	metrics    *metrics.Metrics

	// control carries ACK/NAK/CAN bytes from the read loop to Send.
	control chan byte
	closeCh chan struct{}
	wg      sync.WaitGroup

	sendMu  sync.Mutex // one frame in flight
	writeMu sync.Mutex // serializes port writes

	mu      sync.RWMutex
	started bool
	closed  bool
}

// NewSerial creates a serial transport. Call Start to begin reading.
func NewSerial(config SerialConfig) (*Serial, error) {
	if config.Port == nil {
		return nil, ErrNoPort
	}
	if config.MessageHandler == nil {
		return nil, ErrNoHandler
	}

	s := &Serial{
		port:       config.Port,
		handler:    config.MessageHandler,
		ackTimeout: config.AckTimeout,
		maxRetries: config.MaxRetransmissions,
		interval:   config.BackoffInterval,
		backoff:    NewBackoffCalculator(config.Random),
		metrics:    config.Metrics,
		control:    make(chan byte, 8),
		closeCh:    make(chan struct{}),
	}
	if s.ackTimeout == 0 {
		s.ackTimeout = DefaultAckTimeout
	}
	if s.maxRetries == 0 {
		s.maxRetries = DefaultMaxRetransmissions
	} else if s.maxRetries < 0 {
		s.maxRetries = 0
	}
	if s.interval == 0 {
		s.interval = DefaultBackoffInterval
	}

	if config.LoggerFactory != nil {
		s.log = config.LoggerFactory.NewLogger("transport-serial")
	}

	return s, nil
}

// Start begins the read loop.
func (s *Serial) Start() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	if s.log != nil {
		s.log.Info("starting serial transport")
	}

	s.wg.Add(1)
	go s.readLoop()
	return nil
}

// Close stops the read loop and closes the port.
func (s *Serial) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.closed = true
	s.mu.Unlock()

	if s.log != nil {
		s.log.Info("stopping serial transport")
	}

	close(s.closeCh)

	if d, ok := s.port.(deadliner); ok {
		_ = d.SetReadDeadline(time.Now())
	}
	err := s.port.Close()
	s.wg.Wait()
	return err
}

// Send writes a data frame and waits for the controller's ACK,
// retransmitting after NAK, CAN or AckTimeout.
func (s *Serial) Send(ctx context.Context, frame []byte) error {
	if s.isClosed() {
		return ErrClosed
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			delay := s.backoff.Calculate(s.interval, attempt)
			if s.log != nil {
				s.log.Debugf("retransmitting frame in %v (attempt %d)", delay, attempt+1)
			}
			if err := s.sleep(ctx, delay); err != nil {
				return err
			}
			s.metrics.Retransmission()
		}

		s.drainControl()
		if err := s.write(frame); err != nil {
			return fmt.Errorf("transport: write frame: %w", err)
		}
		s.metrics.FrameSent()

		acked, err := s.awaitAck(ctx)
		if err != nil {
			return err
		}
		if acked {
			return nil
		}
	}

	s.metrics.SendFailure()
	if s.log != nil {
		s.log.Warnf("frame not acknowledged after %d attempts", s.maxRetries+1)
	}
	return ErrNoAck
}

// awaitAck returns true on ACK and false when the frame must be sent again.
func (s *Serial) awaitAck(ctx context.Context) (bool, error) {
	timer := time.NewTimer(s.ackTimeout)
	defer timer.Stop()

	for {
		select {
		case b := <-s.control:
			switch b {
			case message.ACK:
				return true, nil
			case message.NAK:
				if s.log != nil {
					s.log.Debug("controller sent NAK")
				}
				return false, nil
			case message.CAN:
				if s.log != nil {
					s.log.Debug("controller sent CAN")
				}
				return false, nil
			}
		case <-timer.C:
			if s.log != nil {
				s.log.Debugf("no ACK within %v", s.ackTimeout)
			}
			return false, nil
		case <-ctx.Done():
			return false, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		case <-s.closeCh:
			return false, ErrClosed
		}
	}
}

func (s *Serial) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	case <-s.closeCh:
		return ErrClosed
	}
}

func (s *Serial) drainControl() {
	for {
		select {
		case <-s.control:
		default:
			return
		}
	}
}

func (s *Serial) write(b []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.port.Write(b)
	return err
}

func (s *Serial) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// readLoop reads from the port and splits the stream into control bytes
// and data frames.
func (s *Serial) readLoop() {
	defer s.wg.Done()

	buf := make([]byte, readBufferSize)
	var pending []byte
	var lastRead time.Time

	for {
		n, err := s.port.Read(buf)
		if n > 0 {
			now := time.Now()
			if len(pending) > 0 && now.Sub(lastRead) > frameTimeout {
				if s.log != nil {
					s.log.Warnf("discarding %d bytes of incomplete frame", len(pending))
				}
				pending = pending[:0]
			}
			lastRead = now

			pending = append(pending, buf[:n]...)
			pending = s.consume(pending)
		}
		if err != nil {
			select {
			case <-s.closeCh:
				return
			default:
			}
			if s.log != nil {
				if errors.Is(err, io.EOF) {
					s.log.Info("serial port closed by peer")
				} else {
					s.log.Errorf("serial read error: %v", err)
				}
			}
			return
		}
	}
}

// consume handles every complete unit at the start of data and returns
// the unconsumed tail.
func (s *Serial) consume(data []byte) []byte {
	for len(data) > 0 {
		b := data[0]
		switch {
		case message.IsControl(b):
			s.deliverControl(b)
			data = data[1:]

		case b == message.SOF:
			if len(data) < 2 {
				return data
			}
			total := int(data[1]) + 2
			if len(data) < total {
				return data
			}

			var frame message.Frame
			_, err := frame.Decode(data[:total])
			switch {
			case err == nil:
				s.metrics.FrameReceived()
				s.ack(message.ACK)
				out := make([]byte, total)
				copy(out, data[:total])
				s.handler(out)
				data = data[total:]
			case errors.Is(err, message.ErrInvalidChecksum):
				if s.log != nil {
					s.log.Warn("dropping frame with bad checksum")
				}
				s.metrics.NakSent()
				s.ack(message.NAK)
				data = data[total:]
			default:
				// Bad length or type: resynchronize on the next byte.
				if s.log != nil {
					s.log.Warnf("dropping malformed frame: %v", err)
				}
				data = data[1:]
			}

		default:
			if s.log != nil {
				s.log.Tracef("skipping stray byte 0x%02X", b)
			}
			data = data[1:]
		}
	}
	return data
}

func (s *Serial) deliverControl(b byte) {
	select {
	case s.control <- b:
	default:
		if s.log != nil {
			s.log.Debugf("dropping control byte 0x%02X, no sender waiting", b)
		}
	}
}

func (s *Serial) ack(b byte) {
	if err := s.write([]byte{b}); err != nil && s.log != nil {
		s.log.Warnf("failed to write 0x%02X: %v", b, err)
	}
}
