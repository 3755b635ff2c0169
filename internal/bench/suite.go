package bench

import (
	"fmt"
	"log/slog"

	"github.com/talgya/coherence-lab/internal/coherence"
	"github.com/talgya/coherence-lab/internal/entropy"
	"github.com/talgya/coherence-lab/internal/field"
	"github.com/talgya/coherence-lab/internal/grid"
	"github.com/talgya/coherence-lab/internal/physics"
)

// SuiteConfig holds everything one full benchmark run needs.
type SuiteConfig struct {
	Grid        grid.Config      `json:"grid"`
	Functional  coherence.Params `json:"functional"`
	TwoNode     field.Params     `json:"two_node"`
	Scenarios   []Scenario       `json:"scenarios"`
	NoiseLevels []float64        `json:"noise_levels"`
	Speeds      []CouplingSpeed  `json:"speeds"`
	Bench       Config           `json:"bench"`
}

// DefaultSuiteConfig returns the reference leaderboard, coupling comparison,
// noise sweep and two-node setup on the 220×500 benchmark grid.
func DefaultSuiteConfig() SuiteConfig {
	return SuiteConfig{
		Grid:        grid.BenchmarkConfig(),
		Functional:  coherence.DefaultParams(),
		TwoNode:     field.DefaultParams().WithBits(physics.DefaultBits()...),
		Scenarios:   DefaultScenarios(),
		NoiseLevels: DefaultNoiseLevels(),
		Speeds:      DefaultCouplingSpeeds(),
		Bench:       DefaultConfig(),
	}
}

// WithSeed derives the field and decode seeds from one base seed, keeping the
// two streams independent.
func (c SuiteConfig) WithSeed(base int64) SuiteConfig {
	s := entropy.NewStreams(base)
	c.TwoNode.Seed = s.FieldSeed()
	scenarios := make([]Scenario, len(c.Scenarios))
	for i, sc := range c.Scenarios {
		sc.Params.Seed = s.FieldSeed()
		scenarios[i] = sc
	}
	c.Scenarios = scenarios
	c.Bench.DecodeSeed = s.DecodeSeed()
	return c
}

// Suite is the combined output of RunSuite.
type Suite struct {
	Leaderboard Leaderboard      `json:"leaderboard"`
	Coupling    []CouplingResult `json:"coupling"`
	Noise       []SweepPoint     `json:"noise"`
	TwoNode     TwoNodeReport    `json:"two_node"`
}

// RunSuite runs the leaderboard, the coupling-speed comparison, the noise
// sweep (grad, energy, hybrid at x_B) and the two-node analysis. Any failure
// aborts the whole run; partial suites are never returned.
func RunSuite(cfg SuiteConfig) (*Suite, error) {
	g, err := grid.New(cfg.Grid)
	if err != nil {
		return nil, err
	}
	slog.Info("suite starting", "nx", g.Nx(), "nt", g.Nt(), "scenarios", len(cfg.Scenarios))

	lb, err := RunLeaderboard(g, coherence.Library(cfg.Functional), cfg.Scenarios, cfg.Bench)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}

	hybrid := coherence.Functional{Kind: coherence.KindHybrid, Params: cfg.Functional}
	receiver := cfg.Bench
	receiver.ProbeX = nil

	coupling, err := CouplingSweep(g, cfg.TwoNode, cfg.Speeds, hybrid, receiver)
	if err != nil {
		return nil, fmt.Errorf("coupling sweep: %w", err)
	}

	sweepFns := []coherence.Functional{
		{Kind: coherence.KindGradient, Params: cfg.Functional},
		{Kind: coherence.KindEnergy, Params: cfg.Functional},
		hybrid,
	}
	twoNode := Scenario{Label: "two_node", Scheme: field.SchemeTwoNode, Params: cfg.TwoNode}
	noise, err := NoiseSweep(g, twoNode, sweepFns, cfg.NoiseLevels, receiver)
	if err != nil {
		return nil, fmt.Errorf("noise sweep: %w", err)
	}

	report, err := AnalyzeTwoNode(g, cfg.TwoNode, hybrid, receiver)
	if err != nil {
		return nil, fmt.Errorf("two-node analysis: %w", err)
	}

	slog.Info("suite complete",
		"entries", len(lb.Entries),
		"coupling_points", len(coupling),
		"noise_points", len(noise),
		"two_node_ber", report.Decode.BER,
	)
	return &Suite{Leaderboard: lb, Coupling: coupling, Noise: noise, TwoNode: report}, nil
}
