package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, nil)

	m.FrameSent()
	m.FrameSent()
	m.Retransmission()
	m.FrameReceived()
	m.NakSent()
	m.SendFailure()
	m.Classified("partial")
	m.Classified("partial")
	m.Classified("final")
	m.ObserveExchange(OutcomeSuccess, 120*time.Millisecond)
	m.SetPending(3)
	m.Unsolicited()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.framesSent))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.retransmissions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.framesReceived))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.naksSent))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sendFailures))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.roles.WithLabelValues("partial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.roles.WithLabelValues("final")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outcomes.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.pending))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.unsolicited))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "zwave_driver_exchange_duration_seconds")
	assert.Contains(t, names, "zwave_transport_frames_sent_total")
}

func TestMetricsNil(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.FrameSent()
		m.FrameReceived()
		m.Retransmission()
		m.NakSent()
		m.SendFailure()
		m.Classified("final")
		m.ObserveExchange(OutcomeTimeout, time.Second)
		m.SetPending(1)
		m.Unsolicited()
	})
}

func TestMetricsUnregistered(t *testing.T) {
	m := New(nil, &Config{Namespace: "test", SubTransport: "t", SubDriver: "d"})
	m.FrameSent()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.framesSent))
}
