package coherence_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/talgya/coherence-lab/internal/coherence"
)

func TestMemorySamples(t *testing.T) {
	assert.Equal(t, 10, coherence.MemorySamples(0.05, 2.0/399))
	assert.Equal(t, 12, coherence.MemorySamples(0.05, 2.0/499))
	assert.Equal(t, 1, coherence.MemorySamples(0.05, 0.2), "never below one sample")
	assert.Equal(t, 1, coherence.MemorySamples(0, 0.01))
}

func sampled(n int, h float64, fn func(x float64) float64) []float64 {
	y := make([]float64, n)
	for i := range y {
		y[i] = fn(float64(i) * h)
	}
	return y
}

func TestSimpsonExactOnPolynomials(t *testing.T) {
	const h = 0.1
	square := func(x float64) float64 { return x * x }
	cube := func(x float64) float64 { return x * x * x }
	line := func(x float64) float64 { return 3*x + 1 }

	cases := []struct {
		name string
		y    []float64
		want float64
	}{
		{"single sample", []float64{7}, 0},
		{"trapezoid on a line", sampled(2, h, line), 0.1 * (1 + 1.3) / 2},
		{"odd count cubic", sampled(5, h, cube), 0.4 * 0.4 * 0.4 * 0.4 / 4},
		{"even count quadratic", sampled(6, h, square), 0.5 * 0.5 * 0.5 / 3},
		{"even count four samples", sampled(4, h, square), 0.3 * 0.3 * 0.3 / 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, coherence.Simpson(tc.y, h), 1e-12)
		})
	}
}
