// Package metrics exposes Prometheus instrumentation for the transport and
// driver. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config names the metrics.
type Config struct {
	Namespace    string
	SubTransport string
	SubDriver    string
}

// DefaultConfig returns the default metric names.
func DefaultConfig() *Config {
	return &Config{
		Namespace:    "zwave",
		SubTransport: "transport",
		SubDriver:    "driver",
	}
}

// Exchange outcomes recorded by ObserveExchange.
const (
	OutcomeSuccess           = "success"
	OutcomeControllerRejects = "fatal_controller"
	OutcomeNodeFailed        = "fatal_node"
	OutcomeTimeout           = "timeout"
	OutcomeCancelled         = "cancelled"
	OutcomeError             = "error"
)

// Metrics holds the collectors.
type Metrics struct {
	// transport
	framesSent      prometheus.Counter
	framesReceived  prometheus.Counter
	retransmissions prometheus.Counter
	naksSent        prometheus.Counter
	sendFailures    prometheus.Counter

	// driver
	roles            *prometheus.CounterVec
	outcomes         *prometheus.CounterVec
	exchangeDuration prometheus.Histogram
	pending          prometheus.Gauge
	unsolicited      prometheus.Counter
}

// New creates the collectors and registers them with reg. A nil config
// uses DefaultConfig.
func New(reg prometheus.Registerer, config *Config) *Metrics {
	if config == nil {
		config = DefaultConfig()
	}

	m := &Metrics{
		framesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace, Subsystem: config.SubTransport, Name: "frames_sent_total", Help: "Data frames written, including retransmissions"}),
		framesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace, Subsystem: config.SubTransport, Name: "frames_received_total", Help: "Valid data frames received"}),
		retransmissions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace, Subsystem: config.SubTransport, Name: "retransmissions_total", Help: "Data frames sent again after NAK, CAN or ACK timeout"}),
		naksSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace, Subsystem: config.SubTransport, Name: "naks_sent_total", Help: "Received frames rejected with NAK"}),
		sendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace, Subsystem: config.SubTransport, Name: "send_failures_total", Help: "Frames never acknowledged by the controller"}),

		roles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace, Subsystem: config.SubDriver, Name: "classified_total", Help: "Inbound messages by response role"}, []string{"role"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace, Subsystem: config.SubDriver, Name: "exchanges_total", Help: "Completed exchanges by outcome"}, []string{"outcome"}),
		exchangeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: config.Namespace, Subsystem: config.SubDriver, Name: "exchange_duration_seconds", Help: "Time from submission to terminal outcome",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: config.Namespace, Subsystem: config.SubDriver, Name: "pending_exchanges", Help: "Exchanges holding a callback ID"}),
		unsolicited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace, Subsystem: config.SubDriver, Name: "unsolicited_total", Help: "Inbound messages matching no exchange"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.framesSent, m.framesReceived, m.retransmissions, m.naksSent, m.sendFailures,
			m.roles, m.outcomes, m.exchangeDuration, m.pending, m.unsolicited,
		)
	}
	return m
}

// FrameSent records a data frame write.
func (m *Metrics) FrameSent() {
	if m == nil {
		return
	}
	m.framesSent.Inc()
}

// FrameReceived records a valid inbound data frame.
func (m *Metrics) FrameReceived() {
	if m == nil {
		return
	}
	m.framesReceived.Inc()
}

// Retransmission records one retransmitted frame.
func (m *Metrics) Retransmission() {
	if m == nil {
		return
	}
	m.retransmissions.Inc()
}

// NakSent records an inbound frame rejected with NAK.
func (m *Metrics) NakSent() {
	if m == nil {
		return
	}
	m.naksSent.Inc()
}

// SendFailure records a frame that exhausted its retransmissions.
func (m *Metrics) SendFailure() {
	if m == nil {
		return
	}
	m.sendFailures.Inc()
}

// Classified records the role assigned to an inbound message.
func (m *Metrics) Classified(role string) {
	if m == nil {
		return
	}
	m.roles.WithLabelValues(role).Inc()
}

// ObserveExchange records the outcome and duration of a finished exchange.
func (m *Metrics) ObserveExchange(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(outcome).Inc()
	m.exchangeDuration.Observe(d.Seconds())
}

// SetPending sets the number of live exchanges.
func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.pending.Set(float64(n))
}

// Unsolicited records a message that no exchange claimed.
func (m *Metrics) Unsolicited() {
	if m == nil {
		return
	}
	m.unsolicited.Inc()
}
