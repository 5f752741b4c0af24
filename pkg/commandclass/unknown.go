package commandclass

// Unknown is a command from a class without a registered parser. The raw
// bytes are kept so the command can be logged or forwarded.
type Unknown struct {
	Header
	Class   ID
	Command uint8
	Params  []byte
}

func (c *Unknown) CCID() ID                           { return c.Class }
func (c *Unknown) CommandID() uint8                   { return c.Command }
func (c *Unknown) ExpectMoreMessages() bool           { return false }
func (c *Unknown) ExpectedResponse() ExpectedResponse { return NoResponse }
func (c *Unknown) Serialize() ([]byte, error)         { return Serialize(c) }

func (c *Unknown) Payload() ([]byte, error) {
	out := make([]byte, 0, 2+len(c.Params))
	out = append(out, byte(c.Class), c.Command)
	return append(out, c.Params...), nil
}
