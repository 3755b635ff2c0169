package field

import (
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/coherence-lab/internal/entropy"
	"github.com/talgya/coherence-lab/internal/grid"
	"github.com/talgya/coherence-lab/internal/physics"
)

// Simplex sampling: base frequency in cycles per unit of x and t, octave count
// and per-octave amplitude falloff.
const (
	simplexFrequency   = 6.0
	simplexOctaves     = 4
	simplexPersistence = 0.5
)

// turbulent adds seeded noise to the smooth carrier. The Gaussian source is
// box-filtered along space only, so each time row stays independent.
func turbulent(g *grid.Grid, p Params) *Field {
	f := carrier(g, p)

	switch p.Turbulence {
	case TurbulenceSimplex:
		noise := opensimplex.New(p.Seed)
		for t := 0; t < g.Nt(); t++ {
			row := f.Row(t)
			for x := range row {
				row[x] += physics.TurbulenceAmplitude *
					octaveNoise(noise, g.X(x), g.T(t), simplexOctaves, simplexFrequency, simplexPersistence)
			}
		}
	default:
		rng := entropy.New(p.Seed)
		raw := make([]float64, g.Nx())
		for t := 0; t < g.Nt(); t++ {
			entropy.Gaussian(rng, physics.TurbulenceAmplitude, raw)
			smooth := BoxFilter(raw, physics.TurbulenceKernel)
			row := f.Row(t)
			for x := range row {
				row[x] += smooth[x]
			}
		}
	}
	return f
}

// BoxFilter convolves v with a normalized box kernel of the given width,
// keeping len(v) samples centered on the input and treating out-of-range
// neighbors as zero.
func BoxFilter(v []float64, width int) []float64 {
	out := make([]float64, len(v))
	if width <= 1 {
		copy(out, v)
		return out
	}
	left := (width - 1) / 2
	w := 1.0 / float64(width)
	for i := range v {
		sum := 0.0
		for j := i - left; j < i-left+width; j++ {
			if j >= 0 && j < len(v) {
				sum += v[j]
			}
		}
		out[i] = sum * w
	}
	return out
}

// octaveNoise layers simplex noise at doubling frequencies and returns the
// amplitude-normalized sum.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
