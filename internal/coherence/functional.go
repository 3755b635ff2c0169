// Package coherence implements the library of windowed scalar functionals that
// map a field history to a bounded coherence score at every grid point.
//
// Every windowed integral is causal: the score at time index t reads field
// samples at indices ≤ t only, through a window of n_mem = max(1, round(tau/dt))
// past samples. The phase and entropy baselines are additionally normalized per
// column; see Params.RunningPeak.
package coherence

import (
	"errors"
	"fmt"
	"strings"

	"github.com/talgya/coherence-lab/internal/field"
	"github.com/talgya/coherence-lab/internal/grid"
	"github.com/talgya/coherence-lab/internal/physics"
)

var (
	// ErrUnknownFunctional indicates a functional name outside the fixed set.
	ErrUnknownFunctional = errors.New("coherence: unknown functional")

	// ErrShapeMismatch indicates a field whose shape disagrees with the grid.
	ErrShapeMismatch = errors.New("coherence: field shape does not match grid")
)

// Kind names one functional variant.
type Kind string

const (
	KindGradient      Kind = "grad"
	KindEnergy        Kind = "energy"
	KindPhase         Kind = "phase"
	KindHybrid        Kind = "hybrid"
	KindEntropy       Kind = "entropy"
	KindFieldStrength Kind = "field_strength"
)

// Kinds lists every variant in leaderboard order.
func Kinds() []Kind {
	return []Kind{KindGradient, KindEnergy, KindPhase, KindHybrid, KindEntropy, KindFieldStrength}
}

// ParseKind resolves a functional name. Long forms such as "gradient" and
// "energy_like" are accepted.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "grad", "gradient":
		return KindGradient, nil
	case "energy", "energy_like":
		return KindEnergy, nil
	case "phase", "accumulated_phase", "wilson":
		return KindPhase, nil
	case "hybrid":
		return KindHybrid, nil
	case "entropy", "variance":
		return KindEntropy, nil
	case "field_strength", "invariant":
		return KindFieldStrength, nil
	}
	return "", fmt.Errorf("%q: %w", name, ErrUnknownFunctional)
}

// Params holds the functional sensitivities and the causal memory window.
type Params struct {
	Alpha float64 `json:"alpha"` // gradient sensitivity
	Beta  float64 `json:"beta"`  // energy-like and field-strength sensitivity
	Gamma float64 `json:"gamma"` // entropy-baseline sensitivity
	Tau   float64 `json:"tau"`   // memory window, seconds

	// RunningPeak normalizes the phase and entropy columns by their running
	// maximum instead of the whole-record maximum, so those outputs at t
	// depend on samples ≤ t only.
	RunningPeak bool `json:"running_peak,omitempty"`
}

// DefaultParams returns alpha=2, beta=1, gamma=1, tau=0.05.
func DefaultParams() Params {
	return Params{
		Alpha: physics.DefaultAlpha,
		Beta:  physics.DefaultBeta,
		Gamma: physics.DefaultGamma,
		Tau:   physics.DefaultTau,
	}
}

// Functional pairs a variant with its parameters.
type Functional struct {
	Kind   Kind
	Params Params
}

// Library returns the five leaderboard functionals (grad, energy, phase,
// hybrid, entropy) sharing p.
func Library(p Params) []Functional {
	kinds := []Kind{KindGradient, KindEnergy, KindPhase, KindHybrid, KindEntropy}
	out := make([]Functional, len(kinds))
	for i, k := range kinds {
		out[i] = Functional{Kind: k, Params: p}
	}
	return out
}

// Name returns the functional's label.
func (fn Functional) Name() string { return string(fn.Kind) }

// Compute evaluates the functional over the whole field and returns a score
// field of the same shape with every value in [0,1]. The input is not modified.
func (fn Functional) Compute(f *field.Field, g *grid.Grid) (*field.Field, error) {
	if f == nil || f.Nt() != g.Nt() || f.Nx() != g.Nx() {
		return nil, ErrShapeMismatch
	}
	p := fn.Params
	nMem := MemorySamples(p.Tau, g.Dt())

	switch fn.Kind {
	case KindGradient:
		return gradient(f, g, p.Alpha, nMem), nil
	case KindEnergy:
		return energyLike(f, g, p.Beta, nMem), nil
	case KindPhase:
		return accumulatedPhase(f, g, nMem, p.RunningPeak), nil
	case KindHybrid:
		return hybrid(f, g, p, nMem), nil
	case KindEntropy:
		return varianceBaseline(f, p.Gamma, nMem, p.RunningPeak), nil
	case KindFieldStrength:
		return fieldStrength(f, g, p.Beta, nMem), nil
	}
	return nil, fmt.Errorf("%q: %w", fn.Kind, ErrUnknownFunctional)
}

// Compute is shorthand for Functional{Kind: k, Params: p}.Compute(f, g).
func Compute(k Kind, f *field.Field, g *grid.Grid, p Params) (*field.Field, error) {
	return Functional{Kind: k, Params: p}.Compute(f, g)
}

// Trace selects the coherence time series at space index x.
func Trace(c *field.Field, x int) []float64 {
	return c.Column(x)
}
