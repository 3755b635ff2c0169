// Package bench drives the field generator, the functional library and the
// decoder across (modulation × functional) combinations and ranks the
// results by bit-error rate.
package bench

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/talgya/coherence-lab/internal/coherence"
	"github.com/talgya/coherence-lab/internal/decode"
	"github.com/talgya/coherence-lab/internal/field"
	"github.com/talgya/coherence-lab/internal/grid"
	"github.com/talgya/coherence-lab/internal/physics"
)

// Scenario is one labelled modulation setup.
type Scenario struct {
	Label  string       `json:"label"`
	Scheme field.Scheme `json:"scheme"`
	Params field.Params `json:"params"`
}

// DefaultScenarios returns AM, PM and FSK (f0=4 Hz, f1=6 Hz) over the
// ten-bit reference pattern.
func DefaultScenarios() []Scenario {
	base := field.DefaultParams().WithBits(physics.DefaultBits()...)
	fsk := base
	fsk.F0, fsk.F1 = 4.0, 6.0
	return []Scenario{
		{Label: "AM", Scheme: field.SchemeAM, Params: base},
		{Label: "PM", Scheme: field.SchemePM, Params: base},
		{Label: "FSK", Scheme: field.SchemeFSK, Params: fsk},
	}
}

// Config controls where and how traces are decoded.
type Config struct {
	// ProbeX is the listening position. Nil selects the 75th-percentile space sample.
	ProbeX *float64 `json:"probe_x,omitempty"`

	// Trim overrides the per-bit settling trim. Nil selects max(1, bit_duration/10).
	Trim *int `json:"trim,omitempty"`

	NoiseLevel float64 `json:"noise_level"`
	DecodeSeed int64   `json:"decode_seed"`

	// FixedPolarity disables polarity calibration in the decoder.
	FixedPolarity bool `json:"fixed_polarity,omitempty"`

	// Workers bounds parallel evaluations. Zero uses GOMAXPROCS.
	Workers int `json:"workers,omitempty"`
}

// DefaultConfig decodes noise-free at the default probe.
func DefaultConfig() Config {
	return Config{DecodeSeed: physics.DefaultDecodeSeed}
}

func (c Config) trim(bitDuration int) int {
	if c.Trim != nil {
		return *c.Trim
	}
	return decode.DefaultTrim(bitDuration)
}

func (c Config) limit() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (c Config) decodeOptions(bitDuration int) decode.Options {
	return decode.Options{
		Trim:          c.trim(bitDuration),
		NoiseLevel:    c.NoiseLevel,
		Seed:          c.DecodeSeed,
		FixedPolarity: c.FixedPolarity,
	}
}

// Entry is one leaderboard row.
type Entry struct {
	Modulation  string       `json:"modulation"`
	Scheme      field.Scheme `json:"scheme"`
	Functional  string       `json:"functional"`
	BER         float64      `json:"ber"`
	Accuracy    float64      `json:"accuracy"`
	Errors      int          `json:"errors"`
	ValidBits   int          `json:"valid_bits"`
	NoValidBits bool         `json:"no_valid_bits"`
	Inverted    bool         `json:"inverted"`
	Threshold   float64      `json:"threshold"`
	Margin      float64      `json:"margin"`
	ProbeX      float64      `json:"probe_x"`
}

// Skip records a scenario left out of the leaderboard and why.
type Skip struct {
	Modulation string `json:"modulation" db:"modulation"`
	Scheme     string `json:"scheme" db:"scheme"`
	Reason     string `json:"reason" db:"reason"`
}

// Leaderboard is the ranked output of RunLeaderboard.
type Leaderboard struct {
	ProbeX     float64 `json:"probe_x"`
	ProbeIndex int     `json:"probe_index"`
	Entries    []Entry `json:"entries"`
	Skips      []Skip  `json:"skips,omitempty"`
}

// probe resolves the listening index on g.
func (c Config) probe(g *grid.Grid) (float64, int) {
	if c.ProbeX != nil {
		idx := g.ProbeIndex(*c.ProbeX)
		return *c.ProbeX, idx
	}
	idx := g.PercentileIndex(0.75)
	return g.X(idx), idx
}

type generated struct {
	scenario Scenario
	field    *field.Field
	meta     field.Metadata
}

// RunLeaderboard evaluates every functional against every scenario at the
// configured probe and returns the ranked entries. Scenarios with an unknown
// scheme or without bit metadata are skipped and reported, not fatal. Inputs
// are only read, so the ranking does not depend on evaluation order.
func RunLeaderboard(g *grid.Grid, functionals []coherence.Functional, scenarios []Scenario, cfg Config) (Leaderboard, error) {
	probeX, probeIdx := cfg.probe(g)
	lb := Leaderboard{ProbeX: probeX, ProbeIndex: probeIdx}

	var ready []generated
	for _, sc := range scenarios {
		f, meta, err := field.Generate(sc.Scheme, g, sc.Params)
		var unknown *field.UnknownSchemeError
		switch {
		case errors.As(err, &unknown):
			slog.Warn("skipping scenario", "modulation", sc.Label, "scheme", sc.Scheme, "reason", err)
			lb.Skips = append(lb.Skips, Skip{Modulation: sc.Label, Scheme: string(sc.Scheme), Reason: err.Error()})
			continue
		case err != nil:
			return Leaderboard{}, fmt.Errorf("generate %s: %w", sc.Label, err)
		}
		if !meta.HasBits() {
			reason := "missing bit metadata"
			slog.Warn("skipping scenario", "modulation", sc.Label, "scheme", sc.Scheme, "reason", reason)
			lb.Skips = append(lb.Skips, Skip{Modulation: sc.Label, Scheme: string(sc.Scheme), Reason: reason})
			continue
		}
		ready = append(ready, generated{scenario: sc, field: f, meta: meta})
	}

	entries := make([]Entry, len(ready)*len(functionals))
	var eg errgroup.Group
	eg.SetLimit(cfg.limit())
	for i, gen := range ready {
		for j, fn := range functionals {
			slot := &entries[i*len(functionals)+j]
			eg.Go(func() error {
				e, err := evaluate(g, gen, fn, probeIdx, cfg)
				if err != nil {
					return fmt.Errorf("%s/%s: %w", gen.scenario.Label, fn.Name(), err)
				}
				e.ProbeX = probeX
				*slot = e
				return nil
			})
		}
	}
	if err := eg.Wait(); err != nil {
		return Leaderboard{}, err
	}

	SortEntries(entries)
	lb.Entries = entries
	slog.Info("leaderboard complete", "entries", len(entries), "skipped", len(lb.Skips), "probe_x", probeX)
	return lb, nil
}

func evaluate(g *grid.Grid, gen generated, fn coherence.Functional, probeIdx int, cfg Config) (Entry, error) {
	c, err := fn.Compute(gen.field, g)
	if err != nil {
		return Entry{}, err
	}
	trace := coherence.Trace(c, probeIdx)
	res, err := decode.Decode(trace, gen.meta.Bits, gen.meta.BitDuration, cfg.decodeOptions(gen.meta.BitDuration))
	if err != nil {
		return Entry{}, err
	}
	slog.Debug("leaderboard entry", "modulation", gen.scenario.Label, "functional", fn.Name(), "ber", res.BER)
	return Entry{
		Modulation:  gen.scenario.Label,
		Scheme:      gen.meta.Scheme,
		Functional:  fn.Name(),
		BER:         res.BER,
		Accuracy:    res.Accuracy,
		Errors:      res.Errors,
		ValidBits:   res.ValidBits,
		NoValidBits: res.NoValidBits,
		Inverted:    res.Inverted,
		Threshold:   res.Threshold,
		Margin:      res.Margin,
	}, nil
}

// SortEntries orders entries by modulation label, then ascending BER, then
// descending margin with undefined margins last. Remaining ties keep their
// input order.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Modulation != b.Modulation {
			return a.Modulation < b.Modulation
		}
		if a.BER != b.BER {
			return a.BER < b.BER
		}
		aNaN, bNaN := math.IsNaN(a.Margin), math.IsNaN(b.Margin)
		if aNaN != bNaN {
			return bNaN
		}
		return !aNaN && a.Margin > b.Margin
	})
}
