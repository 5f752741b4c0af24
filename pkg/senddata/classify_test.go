package senddata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backkem/zwave/pkg/application"
	"github.com/backkem/zwave/pkg/commandclass"
	"github.com/backkem/zwave/pkg/message"
)

func echo(id uint8, status TransmitStatus) *Request {
	r := &Request{}
	r.CallbackID = id
	r.TransmitStatus = status
	r.hasStatus = true
	return r
}

func appCommand(cmd commandclass.Command) *application.CommandRequest {
	return &application.CommandRequest{Source: cmd.NodeID(), Cmd: cmd}
}

func associationReport(follow uint8, nodes ...commandclass.NodeID) *commandclass.AssociationReport {
	return &commandclass.AssociationReport{
		Header:          commandclass.Header{Node: 3},
		GroupID:         1,
		MaxNodes:        10,
		ReportsToFollow: follow,
		Nodes:           nodes,
	}
}

func TestClassificationTable(t *testing.T) {
	alloc := message.NewCallbackIDAllocator()

	// Expected identity empty.
	plain := NewRequest(basicSet(3), alloc)
	// Expected identity T = Association.
	expecting := NewRequest(&commandclass.AssociationGet{Header: commandclass.Header{Node: 3}, GroupID: 1}, alloc)

	other := &message.Raw{Frame: message.Frame{Type: message.TypeRequest, Function: 0x49}}

	tests := []struct {
		name          string
		received      message.Message
		wantPlain     message.ResponseRole
		wantExpecting message.ResponseRole
	}{
		{"ack true", &Response{WasSent: true}, message.RoleConfirmation, message.RoleConfirmation},
		{"ack false", &Response{WasSent: false}, message.RoleFatalController, message.RoleFatalController},
		{"echo ok", echo(10, StatusOK), message.RoleFinal, message.RoleUnexpected},
		{"echo no ack", echo(10, StatusNoAck), message.RoleFatalNode, message.RoleFatalNode},
		{"echo fail", echo(10, StatusFail), message.RoleFatalNode, message.RoleFatalNode},
		{"echo not idle", echo(10, StatusNotIdle), message.RoleFatalNode, message.RoleFatalNode},
		{"echo no route", echo(10, StatusNoRoute), message.RoleFatalNode, message.RoleFatalNode},
		{"app matching more", appCommand(associationReport(1, 2)), message.RoleUnexpected, message.RolePartial},
		{"app matching done", appCommand(associationReport(0, 2)), message.RoleUnexpected, message.RoleFinal},
		{"app non-matching", appCommand(&commandclass.BasicReport{Header: commandclass.Header{Node: 3}}), message.RoleUnexpected, message.RoleUnexpected},
		{"app without command", &application.CommandRequest{Source: 3}, message.RoleUnexpected, message.RoleUnexpected},
		{"other message", other, message.RoleUnexpected, message.RoleUnexpected},
		{"echo without status", &Request{}, message.RoleUnexpected, message.RoleUnexpected},
		{"nil", nil, message.RoleUnexpected, message.RoleUnexpected},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.wantPlain, plain.TestResponse(tc.received), "empty expectation")
			assert.Equal(t, tc.wantExpecting, expecting.TestResponse(tc.received), "expected association")
		})
	}
}

func TestClassificationDynamicExpectation(t *testing.T) {
	cmd := &dynamicCommand{BasicGet: commandclass.BasicGet{Header: commandclass.Header{Node: 4}}}
	req := NewRequest(cmd, nil, WithCallbackID(20))

	report := appCommand(&commandclass.BasicReport{Header: commandclass.Header{Node: 4}, Value: 1})
	assert.Equal(t, message.RoleFinal, req.TestResponse(report))

	// Resolving to no expectation falls back to the base verdicts.
	cmd.Node = commandclass.BroadcastNodeID
	assert.Equal(t, message.RoleUnexpected, req.TestResponse(report))
	assert.Equal(t, message.RoleFinal, req.TestResponse(echo(20, StatusOK)))
}

// dynamicCommand expects a Basic reply unless broadcast.
type dynamicCommand struct {
	commandclass.BasicGet
}

func (c *dynamicCommand) Serialize() ([]byte, error) { return commandclass.Serialize(c) }

func (c *dynamicCommand) ExpectedResponse() commandclass.ExpectedResponse {
	return commandclass.ExpectFunc(func(sent commandclass.Command) (commandclass.ID, bool) {
		if sent.NodeID() == commandclass.BroadcastNodeID {
			return 0, false
		}
		return commandclass.IDBasic, true
	})
}

func TestClassificationWithoutCommand(t *testing.T) {
	req := &Request{}
	assert.Equal(t, message.RoleConfirmation, req.TestResponse(&Response{WasSent: true}))
	assert.Equal(t, message.RoleFinal, req.TestResponse(echo(10, StatusOK)))
	assert.Equal(t, message.RoleUnexpected, req.TestResponse(appCommand(associationReport(0))))
}

func TestScenarioEmptyExpectation(t *testing.T) {
	req := NewRequest(basicSet(3), message.NewCallbackIDAllocator())

	assert.Equal(t, message.RoleConfirmation, req.TestResponse(&Response{WasSent: true}))
	assert.Equal(t, message.RoleFinal, req.TestResponse(echo(req.CallbackID, StatusOK)))
}

func TestScenarioControllerRejects(t *testing.T) {
	req := NewRequest(basicSet(3), message.NewCallbackIDAllocator())

	role := req.TestResponse(&Response{WasSent: false})
	assert.Equal(t, message.RoleFatalController, role)
	assert.True(t, role.IsTerminal())
}

func TestScenarioNodeUnreachable(t *testing.T) {
	req := NewRequest(basicSet(3), message.NewCallbackIDAllocator())

	role := req.TestResponse(echo(req.CallbackID, StatusNoAck))
	assert.Equal(t, message.RoleFatalNode, role)
	assert.True(t, role.IsTerminal())
}

func TestScenarioPartialsThenMerge(t *testing.T) {
	req := NewRequest(&commandclass.AssociationGet{Header: commandclass.Header{Node: 3}, GroupID: 1}, message.NewCallbackIDAllocator())

	p1 := associationReport(1, 2, 4)
	p2 := associationReport(0, 6)

	assert.Equal(t, message.RolePartial, req.TestResponse(appCommand(p1)))
	assert.Equal(t, message.RoleFinal, req.TestResponse(appCommand(p2)))

	rec := &recordingMerger{BasicReport: commandclass.BasicReport{Header: commandclass.Header{Node: 3}}}
	require.NoError(t, Merge(rec, []commandclass.Command{p1, p2}))
	require.Len(t, rec.got, 2)
	assert.Same(t, p1, rec.got[0])
	assert.Same(t, p2, rec.got[1])

	require.NoError(t, Merge(p2, []commandclass.Command{p1, p2}))
	assert.Equal(t, []commandclass.NodeID{2, 4, 6}, p2.Nodes)
}

func TestScenarioMismatchedClass(t *testing.T) {
	req := NewRequest(&commandclass.AssociationGet{Header: commandclass.Header{Node: 3}, GroupID: 1}, message.NewCallbackIDAllocator())

	basic := appCommand(&commandclass.BasicReport{Header: commandclass.Header{Node: 3}, Value: 1})
	assert.Equal(t, message.RoleUnexpected, req.TestResponse(basic))
}

func TestMergeWithoutMerger(t *testing.T) {
	target := &commandclass.BasicReport{Value: 7}
	require.NoError(t, Merge(target, []commandclass.Command{&commandclass.BasicReport{Value: 1}}))
	assert.Equal(t, uint8(7), target.Value)

	require.NoError(t, Merge(nil, nil))
}

// recordingMerger captures what it is asked to merge.
type recordingMerger struct {
	commandclass.BasicReport
	got []commandclass.Command
}

func (r *recordingMerger) MergePartials(partials []commandclass.Command) error {
	r.got = append(r.got, partials...)
	return nil
}
