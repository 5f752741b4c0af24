package transport

import "time"

// Link layer timing. The controller must acknowledge every data frame with
// a single ACK byte; a NAK, CAN or silence triggers a retransmission.
const (
	// DefaultAckTimeout is how long to wait for ACK after writing a frame.
	DefaultAckTimeout = 1600 * time.Millisecond

	// DefaultMaxRetransmissions is the number of retransmissions after the
	// first attempt.
	DefaultMaxRetransmissions = 3

	// DefaultBackoffInterval is the base delay before a retransmission.
	DefaultBackoffInterval = 100 * time.Millisecond

	// BackoffBase is the growth factor once past BackoffThreshold.
	BackoffBase = 1.6

	// BackoffJitter scales the random part of each delay.
	BackoffJitter = 0.25

	// BackoffThreshold is the number of attempts that use the base delay
	// before growth starts.
	BackoffThreshold = 1

	// frameTimeout discards a partial frame when the rest does not follow
	// in time.
	frameTimeout = 1500 * time.Millisecond

	// readBufferSize holds the largest frame a bridge packet can carry.
	readBufferSize = 512
)
