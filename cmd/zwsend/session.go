package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/pion/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.bug.st/serial"

	"github.com/backkem/zwave/pkg/commandclass"
	"github.com/backkem/zwave/pkg/config"
	"github.com/backkem/zwave/pkg/driver"
	"github.com/backkem/zwave/pkg/metrics"
	"github.com/backkem/zwave/pkg/transport"
)

// session is one driver plus the resources it runs on.
type session struct {
	conf    *config.Config
	driver  *driver.Driver
	pair    *driver.TestPair
	server  *http.Server
	log     logging.LeveledLogger
	timeout time.Duration
}

// simulatedNodes is the network behind --simulate.
func simulatedNodes() map[commandclass.NodeID]*driver.SimulatedNode {
	return map[commandclass.NodeID]*driver.SimulatedNode{
		2: {BasicValue: commandclass.BasicOff},
		3: {
			BasicValue:  0x32,
			MaxNodes:    5,
			ReportChunk: 2,
			Groups: map[uint8][]commandclass.NodeID{
				1: {1},
				2: {2, 4, 5, 6},
			},
		},
		4: {Unreachable: true},
		5: {Silent: true},
	}
}

func openSession(unsolicited driver.UnsolicitedHandler) (*session, error) {
	conf, err := loadConfig()
	if err != nil {
		return nil, err
	}

	lf, err := conf.LoggerFactory()
	if err != nil {
		return nil, err
	}

	timeout, err := conf.DriverTimeout()
	if err != nil {
		return nil, err
	}
	ackTimeout, err := conf.AckTimeout()
	if err != nil {
		return nil, err
	}

	s := &session{
		conf:    conf,
		log:     lf.NewLogger("zwsend"),
		timeout: timeout,
	}

	var m *metrics.Metrics
	if conf.Metrics.Listen != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.New(reg, nil)
		if err := s.serveMetrics(conf.Metrics.Listen, reg); err != nil {
			return nil, err
		}
	}

	dc := driver.Config{
		Timeout:            timeout,
		UnsolicitedHandler: unsolicited,
		LoggerFactory:      lf,
		Metrics:            m,
	}

	if flagSimulate {
		s.pair, err = driver.NewTestPair(driver.TestPairConfig{
			Driver:     dc,
			Nodes:      simulatedNodes(),
			AckTimeout: ackTimeout,
		})
		if err != nil {
			s.Close()
			return nil, err
		}
		s.driver = s.pair.Driver()
		s.log.Info("using simulated controller")
		return s, nil
	}

	if conf.Serial.Port == "" {
		s.Close()
		return nil, errors.New("no serial port: set serial.port or --port")
	}
	port, err := serial.Open(conf.Serial.Port, &serial.Mode{
		BaudRate: conf.Serial.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("open %s: %w", conf.Serial.Port, err)
	}

	s.driver, err = driver.Open(port, dc, transport.SerialConfig{
		AckTimeout:         ackTimeout,
		MaxRetransmissions: conf.Retransmissions(),
	})
	if err != nil {
		port.Close()
		s.Close()
		return nil, err
	}
	s.log.Infof("opened %s at %d baud", conf.Serial.Port, conf.Serial.Baud)
	return s, nil
}

func (s *session) serveMetrics(addr string, reg *prometheus.Registry) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	s.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Errorf("metrics server: %v", err)
		}
	}()
	s.log.Infof("serving metrics on %s/metrics", ln.Addr())
	return nil
}

// context bounds one command by the exchange timeout.
func (s *session) context(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, s.timeout+time.Second)
}

func (s *session) Close() {
	if s.pair != nil {
		_ = s.pair.Close()
	} else if s.driver != nil {
		_ = s.driver.Close()
	}
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctx)
	}
}
