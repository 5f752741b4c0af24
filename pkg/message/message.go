package message

// Message is one Serial API message kind. Concrete kinds encode their own
// payload and delegate framing to Frame.
type Message interface {
	// MessageType returns whether this is a request or a response.
	MessageType() MessageType

	// FunctionType returns the Serial API function of the message.
	FunctionType() FunctionType

	// Serialize encodes the complete data frame.
	Serialize() ([]byte, error)

	// Deserialize decodes a data frame and returns the bytes consumed.
	Deserialize(data []byte) (int, error)
}

// ResponseTest classifies a received message relative to a sent one.
type ResponseTest func(sent, received Message) ResponseRole

// ResponseExpecter is implemented by messages that declare how replies
// relate to them. Messages without it use the default test: a response
// frame with the same function is final.
type ResponseExpecter interface {
	ExpectedResponse() ResponseTest
}

// TestResponse is the base classification stage. It never fails and always
// returns exactly one role.
func TestResponse(sent, received Message) ResponseRole {
	if sent == nil || received == nil {
		return RoleUnexpected
	}
	if e, ok := sent.(ResponseExpecter); ok {
		if test := e.ExpectedResponse(); test != nil {
			return test(sent, received)
		}
	}
	return defaultResponseTest(sent, received)
}

func defaultResponseTest(sent, received Message) ResponseRole {
	if received.MessageType() == TypeResponse && received.FunctionType() == sent.FunctionType() {
		return RoleFinal
	}
	return RoleUnexpected
}

// Raw is a message whose function has no registered parser.
// The frame is kept verbatim so it can be logged or forwarded.
type Raw struct {
	Frame Frame
}

// MessageType returns the frame's type.
func (r *Raw) MessageType() MessageType { return r.Frame.Type }

// FunctionType returns the frame's function.
func (r *Raw) FunctionType() FunctionType { return r.Frame.Function }

// Serialize re-encodes the frame.
func (r *Raw) Serialize() ([]byte, error) { return r.Frame.Encode() }

// Deserialize decodes the frame.
func (r *Raw) Deserialize(data []byte) (int, error) { return r.Frame.Decode(data) }
