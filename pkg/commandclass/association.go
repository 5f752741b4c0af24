package commandclass

// Association command IDs.
const (
	AssociationCmdSet    uint8 = 0x01
	AssociationCmdGet    uint8 = 0x02
	AssociationCmdReport uint8 = 0x03
	AssociationCmdRemove uint8 = 0x04
)

// AssociationSet adds nodes to an association group.
type AssociationSet struct {
	Header
	GroupID uint8
	Nodes   []NodeID
}

func (c *AssociationSet) CCID() ID                           { return IDAssociation }
func (c *AssociationSet) CommandID() uint8                   { return AssociationCmdSet }
func (c *AssociationSet) ExpectMoreMessages() bool           { return false }
func (c *AssociationSet) ExpectedResponse() ExpectedResponse { return NoResponse }
func (c *AssociationSet) Serialize() ([]byte, error)         { return Serialize(c) }

func (c *AssociationSet) Payload() ([]byte, error) {
	return appendNodes([]byte{byte(IDAssociation), AssociationCmdSet, c.GroupID}, c.Nodes), nil
}

func (c *AssociationSet) decode(data []byte) error {
	if len(data) < 1 {
		return ErrPayloadTooShort
	}
	c.GroupID = data[0]
	c.Nodes = decodeNodes(data[1:])
	return nil
}

// AssociationRemove removes nodes from an association group. An empty node
// list clears the group.
type AssociationRemove struct {
	Header
	GroupID uint8
	Nodes   []NodeID
}

func (c *AssociationRemove) CCID() ID                           { return IDAssociation }
func (c *AssociationRemove) CommandID() uint8                   { return AssociationCmdRemove }
func (c *AssociationRemove) ExpectMoreMessages() bool           { return false }
func (c *AssociationRemove) ExpectedResponse() ExpectedResponse { return NoResponse }
func (c *AssociationRemove) Serialize() ([]byte, error)         { return Serialize(c) }

func (c *AssociationRemove) Payload() ([]byte, error) {
	return appendNodes([]byte{byte(IDAssociation), AssociationCmdRemove, c.GroupID}, c.Nodes), nil
}

func (c *AssociationRemove) decode(data []byte) error {
	if len(data) < 1 {
		return ErrPayloadTooShort
	}
	c.GroupID = data[0]
	c.Nodes = decodeNodes(data[1:])
	return nil
}

// AssociationGet requests the members of an association group. Large
// groups are reported in several AssociationReport fragments.
type AssociationGet struct {
	Header
	GroupID uint8
}

func (c *AssociationGet) CCID() ID                           { return IDAssociation }
func (c *AssociationGet) CommandID() uint8                   { return AssociationCmdGet }
func (c *AssociationGet) ExpectMoreMessages() bool           { return false }
func (c *AssociationGet) ExpectedResponse() ExpectedResponse { return ExpectID(IDAssociation) }
func (c *AssociationGet) Serialize() ([]byte, error)         { return Serialize(c) }

func (c *AssociationGet) Payload() ([]byte, error) {
	return []byte{byte(IDAssociation), AssociationCmdGet, c.GroupID}, nil
}

func (c *AssociationGet) decode(data []byte) error {
	if len(data) < 1 {
		return ErrPayloadTooShort
	}
	c.GroupID = data[0]
	return nil
}

// AssociationReport lists the members of an association group.
//
// ReportsToFollow counts the fragments still to come. After MergePartials,
// Nodes holds the members from every fragment in arrival order.
type AssociationReport struct {
	Header
	GroupID         uint8
	MaxNodes        uint8
	ReportsToFollow uint8
	Nodes           []NodeID
}

func (c *AssociationReport) CCID() ID                           { return IDAssociation }
func (c *AssociationReport) CommandID() uint8                   { return AssociationCmdReport }
func (c *AssociationReport) ExpectMoreMessages() bool           { return c.ReportsToFollow > 0 }
func (c *AssociationReport) ExpectedResponse() ExpectedResponse { return NoResponse }
func (c *AssociationReport) Serialize() ([]byte, error)         { return Serialize(c) }

func (c *AssociationReport) Payload() ([]byte, error) {
	head := []byte{byte(IDAssociation), AssociationCmdReport, c.GroupID, c.MaxNodes, c.ReportsToFollow}
	return appendNodes(head, c.Nodes), nil
}

func (c *AssociationReport) decode(data []byte) error {
	if len(data) < 3 {
		return ErrPayloadTooShort
	}
	c.GroupID = data[0]
	c.MaxNodes = data[1]
	c.ReportsToFollow = data[2]
	c.Nodes = decodeNodes(data[3:])
	return nil
}

// MergePartials replaces Nodes with the concatenation of every fragment's
// nodes. partials must be in arrival order and may include the receiver.
func (c *AssociationReport) MergePartials(partials []Command) error {
	var nodes []NodeID
	for _, p := range partials {
		r, ok := p.(*AssociationReport)
		if !ok {
			return ErrMergeType
		}
		nodes = append(nodes, r.Nodes...)
	}
	c.Nodes = nodes
	c.ReportsToFollow = 0
	return nil
}

func appendNodes(out []byte, nodes []NodeID) []byte {
	for _, n := range nodes {
		out = append(out, byte(n))
	}
	return out
}

func decodeNodes(data []byte) []NodeID {
	if len(data) == 0 {
		return nil
	}
	nodes := make([]NodeID, len(data))
	for i, b := range data {
		nodes[i] = NodeID(b)
	}
	return nodes
}

var _ PartialMerger = (*AssociationReport)(nil)
