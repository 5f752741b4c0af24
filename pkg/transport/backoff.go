package transport

import (
	"math"
	"math/rand"
	"time"
)

// RandomSource provides random values for jitter calculation.
// Allows injection of deterministic sources for testing.
type RandomSource interface {
	// Float64 returns a random float64 in [0.0, 1.0).
	Float64() float64
}

type defaultRandomSource struct{}

func (defaultRandomSource) Float64() float64 {
	return rand.Float64()
}

// DefaultRandomSource is the default random source using math/rand.
var DefaultRandomSource RandomSource = defaultRandomSource{}

// BackoffCalculator computes the delay before a retransmission:
//
//	delay = interval * BackoffBase^(max(0, n-BackoffThreshold))
//	                 * (1.0 + random(0,1) * BackoffJitter)
//
// where n is the number of attempts already made.
type BackoffCalculator struct {
	random RandomSource
}

// NewBackoffCalculator creates a calculator. A nil random uses
// DefaultRandomSource.
func NewBackoffCalculator(random RandomSource) *BackoffCalculator {
	if random == nil {
		random = DefaultRandomSource
	}
	return &BackoffCalculator{random: random}
}

// Calculate returns the jittered delay before attempt n+1.
func (b *BackoffCalculator) Calculate(interval time.Duration, attempts int) time.Duration {
	return scaled(interval, attempts, 1.0+b.random.Float64()*BackoffJitter)
}

// CalculateMin returns the delay without jitter.
func (b *BackoffCalculator) CalculateMin(interval time.Duration, attempts int) time.Duration {
	return scaled(interval, attempts, 1.0)
}

// CalculateMax returns the delay with full jitter.
func (b *BackoffCalculator) CalculateMax(interval time.Duration, attempts int) time.Duration {
	return scaled(interval, attempts, 1.0+BackoffJitter)
}

func scaled(interval time.Duration, attempts int, jitter float64) time.Duration {
	exponent := attempts - BackoffThreshold
	if exponent < 0 {
		exponent = 0
	}
	return time.Duration(float64(interval) * math.Pow(BackoffBase, float64(exponent)) * jitter)
}
