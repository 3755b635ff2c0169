package coherence

import (
	"math"
	"math/cmplx"

	"github.com/talgya/coherence-lab/internal/field"
	"github.com/talgya/coherence-lab/internal/grid"
)

// spatialDerivative returns ∂A/∂x row by row.
func spatialDerivative(f *field.Field, dx float64) *field.Field {
	out := field.New(f.Nt(), f.Nx())
	for t := 0; t < f.Nt(); t++ {
		derivative(f.Row(t), dx, out.Row(t))
	}
	return out
}

// temporalDerivative returns a causal ∂A/∂t: the backward difference
// (A[t]−A[t−1])/dt, with zero at t=0 where no history exists.
func temporalDerivative(f *field.Field, dt float64) *field.Field {
	out := field.New(f.Nt(), f.Nx())
	for t := 1; t < f.Nt(); t++ {
		prev, cur, row := f.Row(t-1), f.Row(t), out.Row(t)
		for x := range row {
			row[x] = (cur[x] - prev[x]) / dt
		}
	}
	return out
}

// windowed integrates each column of integrand over the causal window ending
// at every t and maps the integral through score.
func windowed(integrand *field.Field, nMem int, dt float64, score func(integral float64) float64) *field.Field {
	out := field.New(integrand.Nt(), integrand.Nx())
	for x := 0; x < integrand.Nx(); x++ {
		col := integrand.Column(x)
		for t := range col {
			out.Set(t, x, score(Simpson(col[windowStart(t, nMem):t+1], dt)))
		}
	}
	return out
}

// gradient: C = exp(−α ∫ (∂A/∂x)² dt). Penalizes spatial roughness.
func gradient(f *field.Field, g *grid.Grid, alpha float64, nMem int) *field.Field {
	integrand := spatialDerivative(f, g.Dx())
	for t := 0; t < integrand.Nt(); t++ {
		row := integrand.Row(t)
		for x, v := range row {
			row[x] = v * v
		}
	}
	return windowed(integrand, nMem, g.Dt(), func(i float64) float64 {
		return clip01(math.Exp(-alpha * i))
	})
}

// energyLike: C = exp(−β ∫ ((∂A/∂t)² + (∂A/∂x)²) dt). The integrand is a
// non-negative proxy, not the electromagnetic energy density.
func energyLike(f *field.Field, g *grid.Grid, beta float64, nMem int) *field.Field {
	integrand := spatialDerivative(f, g.Dx())
	dAdt := temporalDerivative(f, g.Dt())
	for t := 0; t < integrand.Nt(); t++ {
		row, drow := integrand.Row(t), dAdt.Row(t)
		for x, v := range row {
			row[x] = v*v + drow[x]*drow[x]
		}
	}
	return windowed(integrand, nMem, g.Dt(), func(i float64) float64 {
		return clip01(math.Exp(-beta * i))
	})
}

// fieldStrength: C = exp(−β |∫ ((∂A/∂t)² − (∂A/∂x)²) dt|), the 1-D
// field-strength invariant. Near zero for plane waves, so it saturates.
func fieldStrength(f *field.Field, g *grid.Grid, beta float64, nMem int) *field.Field {
	integrand := spatialDerivative(f, g.Dx())
	dAdt := temporalDerivative(f, g.Dt())
	for t := 0; t < integrand.Nt(); t++ {
		row, drow := integrand.Row(t), dAdt.Row(t)
		for x, v := range row {
			row[x] = drow[x]*drow[x] - v*v
		}
	}
	return windowed(integrand, nMem, g.Dt(), func(i float64) float64 {
		return clip01(math.Exp(-beta * math.Abs(i)))
	})
}

// hybrid is the geometric mean of the gradient and energy-like scores.
func hybrid(f *field.Field, g *grid.Grid, p Params, nMem int) *field.Field {
	cg := gradient(f, g, p.Alpha, nMem)
	ce := energyLike(f, g, p.Beta, nMem)
	for t := 0; t < cg.Nt(); t++ {
		row, erow := cg.Row(t), ce.Row(t)
		for x := range row {
			row[x] = math.Sqrt(clip01(row[x] * erow[x]))
		}
	}
	return cg
}

// accumulatedPhase: φ(t) = dt·Σ_{s≤t} A(s) per column, C = |∫ e^{iφ} dt| / window,
// then each column is divided by its own maximum over time.
func accumulatedPhase(f *field.Field, g *grid.Grid, nMem int, running bool) *field.Field {
	dt := g.Dt()
	out := field.New(f.Nt(), f.Nx())
	re := make([]float64, f.Nt())
	im := make([]float64, f.Nt())

	for x := 0; x < f.Nx(); x++ {
		sum := 0.0
		for t := 0; t < f.Nt(); t++ {
			sum += f.At(t, x)
			s, c := math.Sincos(sum * dt)
			re[t], im[t] = c, s
		}
		for t := 0; t < f.Nt(); t++ {
			t0 := windowStart(t, nMem)
			integral := complex(Simpson(re[t0:t+1], dt), Simpson(im[t0:t+1], dt))
			window := math.Max(dt, float64(t-t0+1)*dt)
			out.Set(t, x, cmplx.Abs(integral)/window)
		}
	}
	normalizeColumns(out, running)
	return out
}

// varianceBaseline: C = exp(−γ·Var(A over the causal window)), per-column
// normalized. A reference baseline, not a physical entropy.
func varianceBaseline(f *field.Field, gamma float64, nMem int, running bool) *field.Field {
	out := field.New(f.Nt(), f.Nx())
	for x := 0; x < f.Nx(); x++ {
		col := f.Column(x)
		for t := range col {
			out.Set(t, x, math.Exp(-gamma*variance(col[windowStart(t, nMem):t+1])))
		}
	}
	normalizeColumns(out, running)
	return out
}

// variance is the population variance of v.
func variance(v []float64) float64 {
	mean := 0.0
	for _, x := range v {
		mean += x
	}
	mean /= float64(len(v))
	ss := 0.0
	for _, x := range v {
		d := x - mean
		ss += d * d
	}
	return ss / float64(len(v))
}

// normalizeColumns divides each column by max(1e-12, its peak) and clips to
// [0,1]. The peak is the whole-record maximum, or with running set the
// maximum over samples up to and including t.
func normalizeColumns(c *field.Field, running bool) {
	for x := 0; x < c.Nx(); x++ {
		peak := 1e-12
		if !running {
			for t := 0; t < c.Nt(); t++ {
				if v := c.At(t, x); v > peak {
					peak = v
				}
			}
		}
		for t := 0; t < c.Nt(); t++ {
			v := c.At(t, x)
			if running && v > peak {
				peak = v
			}
			c.Set(t, x, clip01(v/peak))
		}
	}
}
