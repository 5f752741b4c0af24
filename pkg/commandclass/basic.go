package commandclass

// Basic command IDs.
const (
	BasicCmdSet    uint8 = 0x01
	BasicCmdGet    uint8 = 0x02
	BasicCmdReport uint8 = 0x03
)

// Basic values with a fixed meaning.
const (
	BasicOff uint8 = 0x00
	BasicOn  uint8 = 0xFF
)

// BasicSet sets the node's basic value.
type BasicSet struct {
	Header
	Value uint8
}

func (c *BasicSet) CCID() ID                           { return IDBasic }
func (c *BasicSet) CommandID() uint8                   { return BasicCmdSet }
func (c *BasicSet) ExpectMoreMessages() bool           { return false }
func (c *BasicSet) ExpectedResponse() ExpectedResponse { return NoResponse }
func (c *BasicSet) Serialize() ([]byte, error)         { return Serialize(c) }

func (c *BasicSet) Payload() ([]byte, error) {
	return []byte{byte(IDBasic), BasicCmdSet, c.Value}, nil
}

func (c *BasicSet) decode(data []byte) error {
	if len(data) < 1 {
		return ErrPayloadTooShort
	}
	c.Value = data[0]
	return nil
}

// BasicGet requests the node's basic value. The node answers with a
// BasicReport.
type BasicGet struct {
	Header
}

func (c *BasicGet) CCID() ID                           { return IDBasic }
func (c *BasicGet) CommandID() uint8                   { return BasicCmdGet }
func (c *BasicGet) ExpectMoreMessages() bool           { return false }
func (c *BasicGet) ExpectedResponse() ExpectedResponse { return ExpectID(IDBasic) }
func (c *BasicGet) Serialize() ([]byte, error)         { return Serialize(c) }

func (c *BasicGet) Payload() ([]byte, error) {
	return []byte{byte(IDBasic), BasicCmdGet}, nil
}

func (c *BasicGet) decode([]byte) error { return nil }

// BasicReport carries the node's basic value. Version 2 nodes also report a
// target value and transition duration.
type BasicReport struct {
	Header
	Value uint8

	HasTarget   bool
	TargetValue uint8
	Duration    uint8
}

func (c *BasicReport) CCID() ID                           { return IDBasic }
func (c *BasicReport) CommandID() uint8                   { return BasicCmdReport }
func (c *BasicReport) ExpectMoreMessages() bool           { return false }
func (c *BasicReport) ExpectedResponse() ExpectedResponse { return NoResponse }
func (c *BasicReport) Serialize() ([]byte, error)         { return Serialize(c) }

func (c *BasicReport) Payload() ([]byte, error) {
	out := []byte{byte(IDBasic), BasicCmdReport, c.Value}
	if c.HasTarget {
		out = append(out, c.TargetValue, c.Duration)
	}
	return out, nil
}

func (c *BasicReport) decode(data []byte) error {
	if len(data) < 1 {
		return ErrPayloadTooShort
	}
	c.Value = data[0]
	if len(data) >= 3 {
		c.HasTarget = true
		c.TargetValue = data[1]
		c.Duration = data[2]
	}
	return nil
}
