package field

import (
	"math"

	"github.com/talgya/coherence-lab/internal/grid"
	"github.com/talgya/coherence-lab/internal/physics"
)

// CouplingDelay returns the propagation delay in seconds between positions xA
// and xB at the given coupling speed. An infinite speed couples instantly.
func CouplingDelay(xA, xB, speed float64) float64 {
	if physics.IsInstant(speed) {
		return 0
	}
	return math.Abs(xB-xA) / speed
}

// DelaySteps converts the coupling delay to whole time samples, rounding to the
// nearest sample (ties to even).
func DelaySteps(xA, xB, speed, dt float64) int {
	return int(math.RoundToEven(CouplingDelay(xA, xB, speed) / dt))
}

// Delay shifts env right by steps samples. The leading samples are zero-filled;
// nothing wraps around from the tail.
func Delay(env []float64, steps int) []float64 {
	out := make([]float64, len(env))
	if steps <= 0 {
		copy(out, env)
		return out
	}
	if steps >= len(env) {
		return out
	}
	copy(out[steps:], env[:len(env)-steps])
	return out
}

// GaussianProfile evaluates exp(−(x−center)²/(2σ²)) over the space axis.
func GaussianProfile(g *grid.Grid, center, sigma float64) []float64 {
	out := make([]float64, g.Nx())
	den := 2 * sigma * sigma
	for i := range out {
		d := g.X(i) - center
		out[i] = math.Exp(-d * d / den)
	}
	return out
}

// twoNode superposes a base carrier, a bit-driven transmitter at x_A and,
// when coupling is enabled, a delayed receiver contribution at x_B.
func twoNode(g *grid.Grid, p Params) (*Field, Metadata) {
	xA := g.X(g.Nx() / 4)
	if p.XA != nil {
		xA = *p.XA
	}
	xB := g.X(3 * g.Nx() / 4)
	if p.XB != nil {
		xB = *p.XB
	}

	bits := bitsOrDefault(SchemeTwoNode, p)
	bitDur := BitDuration(g.Nt(), len(bits))
	envelope := holdPerBit(g.Nt(), bitDur, Levels(bits))

	f := carrier(g, p)
	addProfile(f, envelope, GaussianProfile(g, xA, p.Sigma), p.TxStrength)

	meta := Metadata{
		Scheme:         SchemeTwoNode,
		Bits:           bits,
		BitDuration:    bitDur,
		Envelope:       envelope,
		XA:             xA,
		XB:             xB,
		EnableCoupling: p.EnableCoupling,
		CouplingSpeed:  p.CouplingSpeed,
	}

	if p.EnableCoupling {
		meta.DelaySeconds = CouplingDelay(xA, xB, p.CouplingSpeed)
		meta.DelaySteps = DelaySteps(xA, xB, p.CouplingSpeed, g.Dt())
		delayed := Delay(envelope, meta.DelaySteps)
		addProfile(f, delayed, GaussianProfile(g, xB, p.Sigma), p.RxStrength)
	}

	return f, meta
}

// addProfile accumulates strength·env[t]·profile[x] into f.
func addProfile(f *Field, env, profile []float64, strength float64) {
	for t := 0; t < f.Nt(); t++ {
		if env[t] == 0 {
			continue
		}
		a := strength * env[t]
		row := f.Row(t)
		for x := range row {
			row[x] += a * profile[x]
		}
	}
}
