package commandclass

// NoOperation is an empty command used to check that a node is reachable.
// Delivery is confirmed by the transmit status alone.
type NoOperation struct {
	Header
}

func (c *NoOperation) CCID() ID                           { return IDNoOperation }
func (c *NoOperation) CommandID() uint8                   { return 0 }
func (c *NoOperation) ExpectMoreMessages() bool           { return false }
func (c *NoOperation) ExpectedResponse() ExpectedResponse { return NoResponse }
func (c *NoOperation) Serialize() ([]byte, error)         { return Serialize(c) }

// Payload is the single class byte; NoOperation has no command byte.
func (c *NoOperation) Payload() ([]byte, error) {
	return []byte{byte(IDNoOperation)}, nil
}
