package bench

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/talgya/coherence-lab/internal/coherence"
	"github.com/talgya/coherence-lab/internal/decode"
	"github.com/talgya/coherence-lab/internal/field"
	"github.com/talgya/coherence-lab/internal/grid"
	"github.com/talgya/coherence-lab/internal/physics"
)

// NoiseLevels returns n evenly spaced noise levels over [0, maxLevel].
func NoiseLevels(maxLevel float64, n int) []float64 {
	return grid.Linspace(0, maxLevel, n)
}

// DefaultNoiseLevels is 0 to 0.3 in 10 steps.
func DefaultNoiseLevels() []float64 {
	return NoiseLevels(0.3, 10)
}

// SweepPoint is the decode outcome of one functional at one noise level.
type SweepPoint struct {
	Functional string  `json:"functional" db:"functional"`
	NoiseLevel float64 `json:"noise_level" db:"noise_level"`
	BER        float64 `json:"ber" db:"ber"`
	Errors     int     `json:"errors" db:"errors"`
	ValidBits  int     `json:"valid_bits" db:"valid_bits"`
}

// receiverProbe picks the listening position for single-scenario runs:
// cfg.ProbeX if set, else x_B for two-node fields, else the 75th percentile.
func receiverProbe(g *grid.Grid, meta field.Metadata, cfg Config) (float64, int) {
	if cfg.ProbeX == nil && meta.Scheme == field.SchemeTwoNode {
		idx := g.ProbeIndex(meta.XB)
		return meta.XB, idx
	}
	return cfg.probe(g)
}

// NoiseSweep generates sc's field once and decodes each functional's trace at
// every noise level. Every level reuses cfg.DecodeSeed, so the injected noise
// is one fixed realization scaled by the level; the field seed is untouched.
// Threshold and polarity are calibrated once per functional on the noise-free
// trace and held for every level, so noise never feeds the calibration.
// Points are ordered by functional, then by level.
func NoiseSweep(g *grid.Grid, sc Scenario, functionals []coherence.Functional, levels []float64, cfg Config) ([]SweepPoint, error) {
	f, meta, err := field.Generate(sc.Scheme, g, sc.Params)
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", sc.Label, err)
	}
	if !meta.HasBits() {
		return nil, fmt.Errorf("scenario %s: missing bit metadata", sc.Label)
	}
	_, probeIdx := receiverProbe(g, meta, cfg)

	points := make([]SweepPoint, len(functionals)*len(levels))
	var eg errgroup.Group
	eg.SetLimit(cfg.limit())
	for i, fn := range functionals {
		eg.Go(func() error {
			c, err := fn.Compute(f, g)
			if err != nil {
				return fmt.Errorf("%s: %w", fn.Name(), err)
			}
			trace := coherence.Trace(c, probeIdx)
			opts := cfg.decodeOptions(meta.BitDuration)
			opts.NoiseLevel = 0
			clean, err := decode.Decode(trace, meta.Bits, meta.BitDuration, opts)
			if err != nil {
				return fmt.Errorf("%s calibration: %w", fn.Name(), err)
			}
			cal := clean.Calibration()
			opts.Calibration = &cal
			for j, level := range levels {
				opts.NoiseLevel = level
				res, err := decode.Decode(trace, meta.Bits, meta.BitDuration, opts)
				if err != nil {
					return fmt.Errorf("%s at noise %g: %w", fn.Name(), level, err)
				}
				points[i*len(levels)+j] = SweepPoint{
					Functional: fn.Name(),
					NoiseLevel: level,
					BER:        res.BER,
					Errors:     res.Errors,
					ValidBits:  res.ValidBits,
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	slog.Info("noise sweep complete", "scenario", sc.Label, "functionals", len(functionals), "levels", len(levels))
	return points, nil
}

// CouplingSpeed is one labelled coupling hypothesis.
type CouplingSpeed struct {
	Label string
	Speed float64 // m/s; +Inf for instantaneous coupling
}

type speedJSON struct {
	Label string   `json:"label"`
	Speed *float64 `json:"speed"` // null for instantaneous coupling
}

// MarshalJSON writes an instantaneous speed as null.
func (c CouplingSpeed) MarshalJSON() ([]byte, error) {
	out := speedJSON{Label: c.Label}
	if !physics.IsInstant(c.Speed) {
		out.Speed = &c.Speed
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a null speed back as +Inf.
func (c *CouplingSpeed) UnmarshalJSON(data []byte) error {
	var in speedJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	c.Label = in.Label
	c.Speed = math.Inf(1)
	if in.Speed != nil {
		c.Speed = *in.Speed
	}
	return nil
}

// DefaultCouplingSpeeds compares light speed, instantaneous, half and double light speed.
func DefaultCouplingSpeeds() []CouplingSpeed {
	return []CouplingSpeed{
		{Label: "light", Speed: physics.CLight},
		{Label: "instant", Speed: math.Inf(1)},
		{Label: "half_light", Speed: physics.CLight / 2},
		{Label: "double_light", Speed: physics.CLight * 2},
	}
}

// CouplingResult is the receiver-side decode for one coupling speed.
type CouplingResult struct {
	Label        string  `json:"label"`
	Speed        float64 `json:"-"`
	DelaySeconds float64 `json:"delay_seconds"`
	DelaySteps   int     `json:"delay_steps"`
	BER          float64 `json:"ber"`
	Accuracy     float64 `json:"accuracy"`
	Errors       int     `json:"errors"`
	ValidBits    int     `json:"valid_bits"`
}

// CouplingSweep generates a coupled two-node field for each speed and decodes
// fn's trace at the receiver.
func CouplingSweep(g *grid.Grid, base field.Params, speeds []CouplingSpeed, fn coherence.Functional, cfg Config) ([]CouplingResult, error) {
	out := make([]CouplingResult, len(speeds))
	var eg errgroup.Group
	eg.SetLimit(cfg.limit())
	for i, sp := range speeds {
		eg.Go(func() error {
			p := base
			p.EnableCoupling = true
			p.CouplingSpeed = sp.Speed
			f, meta, err := field.Generate(field.SchemeTwoNode, g, p)
			if err != nil {
				return fmt.Errorf("coupling %s: %w", sp.Label, err)
			}
			c, err := fn.Compute(f, g)
			if err != nil {
				return fmt.Errorf("coupling %s: %w", sp.Label, err)
			}
			_, probeIdx := receiverProbe(g, meta, cfg)
			res, err := decode.Decode(coherence.Trace(c, probeIdx), meta.Bits, meta.BitDuration, cfg.decodeOptions(meta.BitDuration))
			if err != nil {
				return fmt.Errorf("coupling %s: %w", sp.Label, err)
			}
			out[i] = CouplingResult{
				Label:        sp.Label,
				Speed:        sp.Speed,
				DelaySeconds: meta.DelaySeconds,
				DelaySteps:   meta.DelaySteps,
				BER:          res.BER,
				Accuracy:     res.Accuracy,
				Errors:       res.Errors,
				ValidBits:    res.ValidBits,
			}
			slog.Debug("coupling point", "label", sp.Label, "delay_steps", meta.DelaySteps, "ber", res.BER)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
