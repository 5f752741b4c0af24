package driver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backkem/zwave/pkg/application"
	"github.com/backkem/zwave/pkg/commandclass"
	"github.com/backkem/zwave/pkg/message"
	"github.com/backkem/zwave/pkg/metrics"
	"github.com/backkem/zwave/pkg/senddata"
)

func newPair(t *testing.T, config TestPairConfig) *TestPair {
	t.Helper()
	pair, err := NewTestPair(config)
	require.NoError(t, err)
	t.Cleanup(func() { pair.Close() })
	return pair
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestPairSetWithoutReply(t *testing.T) {
	pair := newPair(t, TestPairConfig{
		Nodes: map[commandclass.NodeID]*SimulatedNode{5: {}},
	})

	res, err := pair.Driver().SendCommand(testContext(t), &commandclass.BasicSet{Header: node(5), Value: commandclass.BasicOn})
	require.NoError(t, err)
	assert.Equal(t, senddata.StatusOK, res.TransmitStatus)
	assert.Nil(t, res.Response)

	n, ok := pair.Controller().Node(5)
	require.True(t, ok)
	assert.Equal(t, commandclass.BasicOn, n.BasicValue)

	observed := pair.Controller().Observed()
	require.Len(t, observed, 1)
	assert.Equal(t, senddata.DefaultTransmitOptions, observed[0].TransmitOptions)
	assert.Equal(t, res.CallbackID, observed[0].CallbackID)
	assert.IsType(t, &commandclass.BasicSet{}, observed[0].Command)
}

func TestPairGetWithReply(t *testing.T) {
	pair := newPair(t, TestPairConfig{
		Nodes: map[commandclass.NodeID]*SimulatedNode{5: {BasicValue: 0x63}},
	})

	res, err := pair.Driver().SendCommand(testContext(t), &commandclass.BasicGet{Header: node(5)})
	require.NoError(t, err)
	assert.True(t, res.HasTransmitStatus)

	report, ok := res.Response.(*commandclass.BasicReport)
	require.True(t, ok)
	assert.Equal(t, uint8(0x63), report.Value)
	assert.Equal(t, commandclass.NodeID(5), report.NodeID())
}

func TestPairMultiReportMerge(t *testing.T) {
	members := []commandclass.NodeID{1, 2, 3, 4, 7}
	pair := newPair(t, TestPairConfig{
		Nodes: map[commandclass.NodeID]*SimulatedNode{
			5: {
				Groups:      map[uint8][]commandclass.NodeID{1: members},
				MaxNodes:    8,
				ReportChunk: 2,
			},
		},
	})

	res, err := pair.Driver().SendCommand(testContext(t), &commandclass.AssociationGet{Header: node(5), GroupID: 1})
	require.NoError(t, err)
	assert.Len(t, res.Partials, 2)

	report, ok := res.Response.(*commandclass.AssociationReport)
	require.True(t, ok)
	assert.Equal(t, members, report.Nodes)
	assert.Equal(t, uint8(8), report.MaxNodes)
	assert.Zero(t, report.ReportsToFollow)
}

func TestPairAssociationRoundTrip(t *testing.T) {
	pair := newPair(t, TestPairConfig{
		Nodes: map[commandclass.NodeID]*SimulatedNode{5: {MaxNodes: 5}},
	})
	ctx := testContext(t)
	d := pair.Driver()

	_, err := d.SendCommand(ctx, &commandclass.AssociationSet{Header: node(5), GroupID: 2, Nodes: []commandclass.NodeID{1, 9}})
	require.NoError(t, err)
	_, err = d.SendCommand(ctx, &commandclass.AssociationRemove{Header: node(5), GroupID: 2, Nodes: []commandclass.NodeID{1}})
	require.NoError(t, err)

	res, err := d.SendCommand(ctx, &commandclass.AssociationGet{Header: node(5), GroupID: 2})
	require.NoError(t, err)
	assert.Empty(t, res.Partials)
	assert.Equal(t, []commandclass.NodeID{9}, res.Response.(*commandclass.AssociationReport).Nodes)
}

func TestPairUnreachableNode(t *testing.T) {
	pair := newPair(t, TestPairConfig{
		Nodes: map[commandclass.NodeID]*SimulatedNode{5: {Unreachable: true}},
	})

	_, err := pair.Driver().SendCommand(testContext(t), &commandclass.BasicGet{Header: node(5)})
	var nodeErr *NodeError
	require.True(t, errors.As(err, &nodeErr), "got %v", err)
	assert.Equal(t, senddata.StatusNoAck, nodeErr.Status)
	assert.Zero(t, pair.Driver().Pending())
}

func TestPairControllerRejects(t *testing.T) {
	pair := newPair(t, TestPairConfig{
		Nodes: map[commandclass.NodeID]*SimulatedNode{5: {}},
	})
	pair.Controller().RejectNext(1)

	_, err := pair.Driver().SendCommand(testContext(t), &commandclass.BasicSet{Header: node(5)})
	assert.ErrorIs(t, err, ErrControllerRejected)

	// The controller accepts again afterwards.
	_, err = pair.Driver().SendCommand(testContext(t), &commandclass.BasicSet{Header: node(5)})
	assert.NoError(t, err)
}

func TestPairNoOperation(t *testing.T) {
	pair := newPair(t, TestPairConfig{
		Nodes: map[commandclass.NodeID]*SimulatedNode{5: {}},
	})

	res, err := pair.Driver().SendCommand(testContext(t), &commandclass.NoOperation{Header: node(5)},
		senddata.WithTransmitOptions(senddata.OptionACK))
	require.NoError(t, err)
	assert.Nil(t, res.Response)
	assert.Equal(t, senddata.OptionACK, pair.Controller().Observed()[0].TransmitOptions)
}

func TestPairMissingEchoTimesOut(t *testing.T) {
	pair := newPair(t, TestPairConfig{
		Driver: Config{Timeout: 200 * time.Millisecond},
		Nodes:  map[commandclass.NodeID]*SimulatedNode{5: {}},
	})
	pair.Controller().DropEchoes(true)

	_, err := pair.Driver().SendCommand(testContext(t), &commandclass.BasicSet{Header: node(5)})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Zero(t, pair.Driver().Pending())
}

func TestPairSilentNodeTimesOut(t *testing.T) {
	pair := newPair(t, TestPairConfig{
		Driver: Config{Timeout: 200 * time.Millisecond},
		Nodes:  map[commandclass.NodeID]*SimulatedNode{5: {Silent: true}},
	})

	_, err := pair.Driver().SendCommand(testContext(t), &commandclass.BasicGet{Header: node(5)})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestPairUnsolicited(t *testing.T) {
	received := make(chan message.Message, 1)
	pair := newPair(t, TestPairConfig{
		Driver: Config{
			UnsolicitedHandler: func(m message.Message) { received <- m },
		},
	})

	err := pair.Controller().Inject(testContext(t), &application.CommandRequest{
		Source: 7,
		Cmd:    &commandclass.BasicReport{Header: node(7), Value: 0x10},
	})
	require.NoError(t, err)

	select {
	case m := <-received:
		req, ok := m.(*application.CommandRequest)
		require.True(t, ok)
		assert.Equal(t, commandclass.NodeID(7), req.Source)
	case <-time.After(2 * time.Second):
		t.Fatal("unsolicited message not delivered")
	}
}

func TestPairConcurrentExchanges(t *testing.T) {
	nodes := make(map[commandclass.NodeID]*SimulatedNode)
	for id := commandclass.NodeID(2); id < 12; id++ {
		nodes[id] = &SimulatedNode{BasicValue: uint8(id) * 3}
	}
	pair := newPair(t, TestPairConfig{Nodes: nodes})
	ctx := testContext(t)

	var wg sync.WaitGroup
	errs := make(chan error, len(nodes))
	for id := range nodes {
		wg.Add(1)
		go func(id commandclass.NodeID) {
			defer wg.Done()
			res, err := pair.Driver().SendCommand(ctx, &commandclass.BasicGet{Header: node(id)})
			if err != nil {
				errs <- err
				return
			}
			if got := res.Response.(*commandclass.BasicReport).Value; got != uint8(id)*3 {
				errs <- fmt.Errorf("node %d: value %d", id, got)
			}
		}(id)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	assert.Zero(t, pair.Driver().Pending())
}

func TestPairMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	pair := newPair(t, TestPairConfig{
		Driver: Config{Metrics: metrics.New(reg, nil)},
		Nodes:  map[commandclass.NodeID]*SimulatedNode{5: {}},
	})

	_, err := pair.Driver().SendCommand(testContext(t), &commandclass.BasicGet{Header: node(5)})
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["zwave_transport_frames_sent_total"])
	assert.True(t, names["zwave_driver_exchange_duration_seconds"])
}
