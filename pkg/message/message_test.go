package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type expectingRequest struct {
	Raw
	test ResponseTest
}

func (e *expectingRequest) ExpectedResponse() ResponseTest { return e.test }

func rawMessage(t MessageType, f FunctionType) *Raw {
	return &Raw{Frame: Frame{Type: t, Function: f}}
}

func TestTestResponseDefault(t *testing.T) {
	sent := rawMessage(TypeRequest, FunctionSendData)

	tests := []struct {
		name     string
		received Message
		want     ResponseRole
	}{
		{"response same function", rawMessage(TypeResponse, FunctionSendData), RoleFinal},
		{"response other function", rawMessage(TypeResponse, 0x42), RoleUnexpected},
		{"request same function", rawMessage(TypeRequest, FunctionSendData), RoleUnexpected},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, TestResponse(sent, tc.received))
		})
	}
}

func TestTestResponseNil(t *testing.T) {
	m := rawMessage(TypeRequest, FunctionSendData)
	assert.Equal(t, RoleUnexpected, TestResponse(nil, m))
	assert.Equal(t, RoleUnexpected, TestResponse(m, nil))
}

func TestTestResponseExpecter(t *testing.T) {
	sent := &expectingRequest{
		Raw: Raw{Frame: Frame{Type: TypeRequest, Function: FunctionSendData}},
		test: func(sent, received Message) ResponseRole {
			return RolePartial
		},
	}
	assert.Equal(t, RolePartial, TestResponse(sent, rawMessage(TypeRequest, 0x42)))

	// A nil test falls back to the default.
	sent.test = nil
	assert.Equal(t, RoleFinal, TestResponse(sent, rawMessage(TypeResponse, FunctionSendData)))
}

func TestResponseRole(t *testing.T) {
	tests := []struct {
		role     ResponseRole
		name     string
		fatal    bool
		terminal bool
	}{
		{RoleUnexpected, "unexpected", false, false},
		{RoleConfirmation, "confirmation", false, false},
		{RolePartial, "partial", false, false},
		{RoleFinal, "final", false, true},
		{RoleFatalController, "fatal_controller", true, true},
		{RoleFatalNode, "fatal_node", true, true},
		{ResponseRole(42), "invalid", false, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.name, tc.role.String())
			assert.Equal(t, tc.fatal, tc.role.IsFatal())
			assert.Equal(t, tc.terminal, tc.role.IsTerminal())
		})
	}
}

func TestMessageTypeString(t *testing.T) {
	assert.Equal(t, "Request", TypeRequest.String())
	assert.Equal(t, "Response", TypeResponse.String())
	assert.Equal(t, "Unknown", MessageType(9).String())
	assert.True(t, TypeResponse.IsValid())
	assert.False(t, MessageType(2).IsValid())
	assert.Equal(t, "SendData", FunctionSendData.String())
	assert.Equal(t, "ApplicationCommandHandler", FunctionApplicationCommand.String())
	assert.Equal(t, "Unknown", FunctionType(0xEE).String())
}
