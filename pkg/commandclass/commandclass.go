// Package commandclass models the application-layer commands carried inside
// send-data and application-command frames.
//
// Every concrete command implements the Command capability set. The
// exchange layer only ever talks to that interface, so new command classes
// can be added without touching it.
package commandclass

import "fmt"

// ID identifies a command class. It is the first byte of every command.
type ID uint8

// Command class identifiers.
const (
	IDNoOperation ID = 0x00
	IDBasic       ID = 0x20
	IDAssociation ID = 0x85
)

// String returns a human-readable name for the command class.
func (id ID) String() string {
	switch id {
	case IDNoOperation:
		return "NoOperation"
	case IDBasic:
		return "Basic"
	case IDAssociation:
		return "Association"
	default:
		return fmt.Sprintf("CommandClass(0x%02X)", uint8(id))
	}
}

// NodeID addresses a node in the network.
type NodeID uint8

// BroadcastNodeID addresses every node.
const BroadcastNodeID NodeID = 0xFF

// Command is the capability set shared by all command classes.
type Command interface {
	// CCID returns the command class of the command.
	CCID() ID

	// CommandID returns the command within the class.
	CommandID() uint8

	// NodeID returns the destination for outgoing commands or the source
	// for received ones.
	NodeID() NodeID

	// Payload encodes the unaddressed command: [cc][cmd][params...].
	Payload() ([]byte, error)

	// Serialize encodes the addressed command: [node][len][cc][cmd][params...].
	Serialize() ([]byte, error)

	// ExpectMoreMessages reports whether this command is one fragment of a
	// reply that continues in later messages.
	ExpectMoreMessages() bool

	// ExpectedResponse declares which command class answers this command.
	ExpectedResponse() ExpectedResponse
}

// PartialMerger is implemented by commands that are delivered in several
// fragments. MergePartials folds the fragments, in arrival order, into the
// receiver.
type PartialMerger interface {
	MergePartials(partials []Command) error
}

// Header holds the addressing shared by every command.
type Header struct {
	Node NodeID
}

// NodeID returns the addressed node.
func (h Header) NodeID() NodeID { return h.Node }

// Serialize encodes cmd in addressed form.
func Serialize(cmd Command) ([]byte, error) {
	payload, err := cmd.Payload()
	if err != nil {
		return nil, err
	}
	if len(payload) > MaxPayloadSize {
		return nil, ErrPayloadTooLong
	}
	out := make([]byte, 0, len(payload)+2)
	out = append(out, byte(cmd.NodeID()), byte(len(payload)))
	return append(out, payload...), nil
}

// ExpectedResponse is the identity of the command class that answers a
// command. The zero value is empty: the command is complete once the
// controller reports delivery.
type ExpectedResponse struct {
	id      ID
	set     bool
	resolve func(sent Command) (ID, bool)
}

// NoResponse is the empty expectation.
var NoResponse = ExpectedResponse{}

// ExpectID expects a reply from command class id.
func ExpectID(id ID) ExpectedResponse {
	return ExpectedResponse{id: id, set: true}
}

// ExpectFunc derives the expected class from the sent command. fn returns
// false when no reply is expected.
func ExpectFunc(fn func(sent Command) (ID, bool)) ExpectedResponse {
	return ExpectedResponse{resolve: fn}
}

// IsEmpty reports whether no reply is expected regardless of the command.
func (e ExpectedResponse) IsEmpty() bool {
	return !e.set && e.resolve == nil
}

// Resolve returns the expected class for sent.
func (e ExpectedResponse) Resolve(sent Command) (ID, bool) {
	if e.set {
		return e.id, true
	}
	if e.resolve != nil {
		return e.resolve(sent)
	}
	return 0, false
}
