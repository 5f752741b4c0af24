package transport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pion/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backkem/zwave/pkg/message"
	"github.com/backkem/zwave/pkg/metrics"
)

// sendDataResponse is a valid frame: Response/SendData, WasSent=1.
var sendDataResponse = []byte{0x01, 0x04, 0x01, 0x13, 0x01, 0xE8}

type frameRecorder struct {
	mu     sync.Mutex
	frames [][]byte
	ch     chan []byte
}

func newFrameRecorder() *frameRecorder {
	return &frameRecorder{ch: make(chan []byte, 16)}
}

func (r *frameRecorder) handle(frame []byte) {
	r.mu.Lock()
	r.frames = append(r.frames, frame)
	r.mu.Unlock()
	r.ch <- frame
}

func newTestSerial(t *testing.T, config SerialConfig) (*Serial, *PipePort) {
	t.Helper()

	p := NewPipe()
	t.Cleanup(func() { p.Close() })

	config.Port = p.Host()
	if config.LoggerFactory == nil {
		config.LoggerFactory = logging.NewDefaultLoggerFactory()
	}
	s, err := NewSerial(config)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	t.Cleanup(func() { s.Close() })

	return s, p.Controller()
}

// readControllerSide reads one write from the controller end.
func readControllerSide(t *testing.T, port *PipePort) []byte {
	t.Helper()
	done := make(chan []byte, 1)
	go func() {
		buf := make([]byte, readBufferSize)
		n, err := port.Read(buf)
		if err != nil {
			done <- nil
			return
		}
		done <- buf[:n]
	}()
	select {
	case b := <-done:
		return b
	case <-time.After(2 * time.Second):
		t.Fatal("timeout reading controller side")
		return nil
	}
}

func TestNewSerialValidation(t *testing.T) {
	_, err := NewSerial(SerialConfig{MessageHandler: func([]byte) {}})
	assert.ErrorIs(t, err, ErrNoPort)

	p := NewPipe()
	defer p.Close()
	_, err = NewSerial(SerialConfig{Port: p.Host()})
	assert.ErrorIs(t, err, ErrNoHandler)
}

func TestSerialReceiveAcknowledges(t *testing.T) {
	rec := newFrameRecorder()
	_, ctrl := newTestSerial(t, SerialConfig{MessageHandler: rec.handle})

	_, err := ctrl.Write(sendDataResponse)
	require.NoError(t, err)

	select {
	case frame := <-rec.ch:
		assert.Equal(t, sendDataResponse, frame)
	case <-time.After(2 * time.Second):
		t.Fatal("frame not delivered to handler")
	}

	assert.Equal(t, []byte{message.ACK}, readControllerSide(t, ctrl))
}

func TestSerialReceiveBadChecksumNaks(t *testing.T) {
	rec := newFrameRecorder()
	reg := prometheus.NewRegistry()
	_, ctrl := newTestSerial(t, SerialConfig{MessageHandler: rec.handle, Metrics: metrics.New(reg, nil)})

	bad := append([]byte(nil), sendDataResponse...)
	bad[len(bad)-1] ^= 0xFF
	_, err := ctrl.Write(bad)
	require.NoError(t, err)

	assert.Equal(t, []byte{message.NAK}, readControllerSide(t, ctrl))
	select {
	case <-rec.ch:
		t.Fatal("corrupt frame delivered")
	default:
	}
	assert.Equal(t, 1.0, counterValue(t, reg, "zwave_transport_naks_sent_total"))
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name && len(f.GetMetric()) > 0 {
			return f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}

func TestSerialReceiveSplitAndJoinedFrames(t *testing.T) {
	rec := newFrameRecorder()
	_, ctrl := newTestSerial(t, SerialConfig{MessageHandler: rec.handle})

	// Garbage, then a frame split over two writes.
	_, err := ctrl.Write([]byte{0x42, sendDataResponse[0], sendDataResponse[1]})
	require.NoError(t, err)
	_, err = ctrl.Write(sendDataResponse[2:])
	require.NoError(t, err)

	select {
	case frame := <-rec.ch:
		assert.Equal(t, sendDataResponse, frame)
	case <-time.After(2 * time.Second):
		t.Fatal("split frame not delivered")
	}
	assert.Equal(t, []byte{message.ACK}, readControllerSide(t, ctrl))

	// Two frames in one write.
	joined := append(append([]byte(nil), sendDataResponse...), sendDataResponse...)
	_, err = ctrl.Write(joined)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		select {
		case <-rec.ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("frame %d of joined write not delivered", i)
		}
	}
}

func TestSerialSendAcked(t *testing.T) {
	rec := newFrameRecorder()
	s, ctrl := newTestSerial(t, SerialConfig{MessageHandler: rec.handle})

	go func() {
		buf := make([]byte, readBufferSize)
		if _, err := ctrl.Read(buf); err == nil {
			ctrl.Write([]byte{message.ACK})
		}
	}()

	err := s.Send(context.Background(), sendDataResponse)
	require.NoError(t, err)
}

func TestSerialSendRetransmitsAfterNak(t *testing.T) {
	rec := newFrameRecorder()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg, nil)
	s, ctrl := newTestSerial(t, SerialConfig{
		MessageHandler:  rec.handle,
		Metrics:         m,
		BackoffInterval: time.Millisecond,
	})

	writes := make(chan []byte, 4)
	go func() {
		buf := make([]byte, readBufferSize)
		for _, reply := range []byte{message.NAK, message.CAN, message.ACK} {
			n, err := ctrl.Read(buf)
			if err != nil {
				return
			}
			writes <- append([]byte(nil), buf[:n]...)
			ctrl.Write([]byte{reply})
		}
	}()

	err := s.Send(context.Background(), sendDataResponse)
	require.NoError(t, err)

	require.Len(t, writes, 3)
	for i := 0; i < 3; i++ {
		assert.Equal(t, sendDataResponse, <-writes)
	}
	assert.Equal(t, 2.0, counterValue(t, reg, "zwave_transport_retransmissions_total"))
	assert.Equal(t, 3.0, counterValue(t, reg, "zwave_transport_frames_sent_total"))
}

func TestSerialSendNoAck(t *testing.T) {
	rec := newFrameRecorder()
	s, _ := newTestSerial(t, SerialConfig{
		MessageHandler:     rec.handle,
		AckTimeout:         10 * time.Millisecond,
		MaxRetransmissions: 1,
		BackoffInterval:    time.Millisecond,
	})

	err := s.Send(context.Background(), sendDataResponse)
	assert.ErrorIs(t, err, ErrNoAck)
}

func TestSerialSendCancelled(t *testing.T) {
	rec := newFrameRecorder()
	s, _ := newTestSerial(t, SerialConfig{MessageHandler: rec.handle})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := s.Send(ctx, sendDataResponse)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Less(t, time.Since(start), DefaultAckTimeout)
}

func TestSerialClose(t *testing.T) {
	p := NewPipe()
	defer p.Close()

	s, err := NewSerial(SerialConfig{Port: p.Host(), MessageHandler: func([]byte) {}})
	require.NoError(t, err)
	require.NoError(t, s.Start())
	assert.ErrorIs(t, s.Start(), ErrAlreadyStarted)

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Close(), ErrClosed)

	err = s.Send(context.Background(), sendDataResponse)
	assert.True(t, errors.Is(err, ErrClosed))
}
