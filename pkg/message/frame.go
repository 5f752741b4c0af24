package message

// Frame is a Serial API data frame:
//
//	SOF | LEN | TYPE | FUNC | PAYLOAD... | CHECKSUM
//
// LEN counts every byte after itself, up to and including CHECKSUM.
type Frame struct {
	Type     MessageType
	Function FunctionType
	Payload  []byte
}

// Size returns the encoded size of the frame in bytes.
func (f *Frame) Size() int {
	return MinFrameSize + len(f.Payload)
}

// Encode serializes the frame, including SOF and checksum.
func (f *Frame) Encode() ([]byte, error) {
	if len(f.Payload) > MaxPayloadSize {
		return nil, ErrPayloadTooLong
	}

	buf := make([]byte, f.Size())
	buf[0] = SOF
	buf[1] = byte(len(f.Payload) + frameOverhead)
	buf[2] = byte(f.Type)
	buf[3] = byte(f.Function)
	copy(buf[4:], f.Payload)
	buf[len(buf)-1] = Checksum(buf[1 : len(buf)-1])

	return buf, nil
}

// Decode deserializes a data frame from the start of data.
// Returns the number of bytes consumed; trailing bytes are left untouched.
func (f *Frame) Decode(data []byte) (int, error) {
	if len(data) < MinFrameSize {
		return 0, ErrMessageTooShort
	}
	if data[0] != SOF {
		return 0, ErrInvalidSOF
	}

	length := int(data[1])
	if length < frameOverhead {
		return 0, ErrInvalidLength
	}

	total := length + 2 // SOF + LEN
	if len(data) < total {
		return 0, ErrMessageTooShort
	}

	if Checksum(data[1:total-1]) != data[total-1] {
		return 0, ErrInvalidChecksum
	}

	msgType := MessageType(data[2])
	if !msgType.IsValid() {
		return 0, ErrInvalidType
	}

	f.Type = msgType
	f.Function = FunctionType(data[3])
	f.Payload = make([]byte, length-frameOverhead)
	copy(f.Payload, data[4:total-1])

	return total, nil
}

// Checksum computes the frame checksum over LEN..PAYLOAD: 0xFF XORed with
// every byte.
func Checksum(data []byte) byte {
	sum := byte(0xFF)
	for _, b := range data {
		sum ^= b
	}
	return sum
}

// IsControl reports whether b is a complete single-byte control frame.
func IsControl(b byte) bool {
	return b == ACK || b == NAK || b == CAN
}
