package entropy_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/talgya/coherence-lab/internal/entropy"
)

func TestStreamsAreIndependent(t *testing.T) {
	s := entropy.NewStreams(100)
	assert.Equal(t, int64(100), s.FieldSeed())
	assert.NotEqual(t, s.FieldSeed(), s.DecodeSeed())
}

func TestGaussianIsReproducible(t *testing.T) {
	a := make([]float64, 2000)
	b := make([]float64, 2000)
	entropy.Gaussian(entropy.New(5), 0.5, a)
	entropy.Gaussian(entropy.New(5), 0.5, b)
	assert.Equal(t, a, b)

	var sum, sq float64
	for _, v := range a {
		sum += v
		sq += v * v
	}
	mean := sum / float64(len(a))
	std := math.Sqrt(sq/float64(len(a)) - mean*mean)
	assert.InDelta(t, 0, mean, 0.05)
	assert.InDelta(t, 0.5, std, 0.05)
}
