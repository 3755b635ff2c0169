// Package entropy provides deterministic, independently seedable random streams.
// Field-generation noise and decode-time measurement noise never share a stream,
// so sweeping one source leaves the other untouched.
package entropy

import "math/rand"

// Stream offsets added to a base seed.
const (
	fieldOffset  int64 = 0
	decodeOffset int64 = 7919
)

// Streams derives per-purpose seeds from one base seed.
type Streams struct {
	Base int64
}

// NewStreams returns a Streams rooted at base.
func NewStreams(base int64) Streams {
	return Streams{Base: base}
}

// FieldSeed is the seed used for generation-time noise.
func (s Streams) FieldSeed() int64 {
	return s.Base + fieldOffset
}

// DecodeSeed is the seed used for decode-time noise.
func (s Streams) DecodeSeed() int64 {
	return s.Base + decodeOffset
}

// New returns a math/rand generator for seed.
func New(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// Gaussian fills out with N(0, sigma²) samples drawn from rng.
func Gaussian(rng *rand.Rand, sigma float64, out []float64) {
	for i := range out {
		out[i] = rng.NormFloat64() * sigma
	}
}
