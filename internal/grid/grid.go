// Package grid defines the uniform space and time axes shared by every other
// component. A Grid is built once per run and never mutated.
package grid

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrTooFewSamples indicates Nx < 2 or Nt < 2.
	ErrTooFewSamples = errors.New("grid: need at least two samples per axis")

	// ErrBadRange indicates an axis whose end is not strictly after its start.
	ErrBadRange = errors.New("grid: axis range must be strictly increasing")

	// ErrBadSpacing indicates a non-positive or non-finite step size.
	ErrBadSpacing = errors.New("grid: step size must be positive and finite")
)

// Config holds grid extents and resolutions.
type Config struct {
	XMin float64 `json:"x_min"`
	XMax float64 `json:"x_max"`
	Nx   int     `json:"nx"`
	TMin float64 `json:"t_min"`
	TMax float64 `json:"t_max"`
	Nt   int     `json:"nt"`
}

// DefaultConfig returns the grid used by the functional comparison runs:
// x ∈ [0,1] with 200 samples, t ∈ [0,2] with 400 samples.
func DefaultConfig() Config {
	return Config{XMin: 0, XMax: 1, Nx: 200, TMin: 0, TMax: 2, Nt: 400}
}

// BenchmarkConfig returns the slightly finer grid used by the leaderboard,
// two-node and sweep runs: 220 space samples, 500 time samples.
func BenchmarkConfig() Config {
	return Config{XMin: 0, XMax: 1, Nx: 220, TMin: 0, TMax: 2, Nt: 500}
}

// Grid is a pair of uniformly spaced, strictly increasing axes.
type Grid struct {
	x  []float64
	t  []float64
	dx float64
	dt float64
}

// New validates cfg and builds the axes with linspace semantics (both ends inclusive).
func New(cfg Config) (*Grid, error) {
	if cfg.Nx < 2 || cfg.Nt < 2 {
		return nil, fmt.Errorf("nx=%d nt=%d: %w", cfg.Nx, cfg.Nt, ErrTooFewSamples)
	}
	if !(cfg.XMax > cfg.XMin) || !(cfg.TMax > cfg.TMin) {
		return nil, fmt.Errorf("x=[%g,%g] t=[%g,%g]: %w", cfg.XMin, cfg.XMax, cfg.TMin, cfg.TMax, ErrBadRange)
	}

	x := Linspace(cfg.XMin, cfg.XMax, cfg.Nx)
	t := Linspace(cfg.TMin, cfg.TMax, cfg.Nt)
	dx := x[1] - x[0]
	dt := t[1] - t[0]
	if !(dx > 0) || !(dt > 0) || math.IsInf(dx, 0) || math.IsInf(dt, 0) {
		return nil, fmt.Errorf("dx=%g dt=%g: %w", dx, dt, ErrBadSpacing)
	}

	return &Grid{x: x, t: t, dx: dx, dt: dt}, nil
}

// Linspace returns n evenly spaced samples over [start, stop], endpoints included.
func Linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}

// Nx returns the number of space samples.
func (g *Grid) Nx() int { return len(g.x) }

// Nt returns the number of time samples.
func (g *Grid) Nt() int { return len(g.t) }

// Dx returns the space step.
func (g *Grid) Dx() float64 { return g.dx }

// Dt returns the time step.
func (g *Grid) Dt() float64 { return g.dt }

// X returns the i-th space coordinate.
func (g *Grid) X(i int) float64 { return g.x[i] }

// T returns the i-th time coordinate.
func (g *Grid) T(i int) float64 { return g.t[i] }

// XAxis returns a copy of the space axis.
func (g *Grid) XAxis() []float64 { return append([]float64(nil), g.x...) }

// TAxis returns a copy of the time axis.
func (g *Grid) TAxis() []float64 { return append([]float64(nil), g.t...) }

// ProbeIndex returns the index of the space sample nearest to x.
// On an exact tie the lower index wins.
func (g *Grid) ProbeIndex(x float64) int {
	best := 0
	bestDist := math.Abs(g.x[0] - x)
	for i := 1; i < len(g.x); i++ {
		if d := math.Abs(g.x[i] - x); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// PercentileIndex returns int(p·(Nx−1)), clamped to the axis. 0.75 gives the
// default benchmark listening point.
func (g *Grid) PercentileIndex(p float64) int {
	idx := int(p * float64(len(g.x)-1))
	if idx < 0 {
		return 0
	}
	if idx >= len(g.x) {
		return len(g.x) - 1
	}
	return idx
}

// Config returns the configuration that reproduces this grid.
func (g *Grid) Config() Config {
	return Config{
		XMin: g.x[0], XMax: g.x[len(g.x)-1], Nx: len(g.x),
		TMin: g.t[0], TMax: g.t[len(g.t)-1], Nt: len(g.t),
	}
}
