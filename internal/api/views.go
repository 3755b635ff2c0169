package api

import (
	"math"

	"github.com/talgya/coherence-lab/internal/bench"
)

// Response shapes. JSON has no NaN or Inf, so undefined values become null.

// num returns nil for NaN and ±Inf.
func num(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

type entryView struct {
	Rank        int      `json:"rank"`
	Modulation  string   `json:"modulation"`
	Scheme      string   `json:"scheme"`
	Functional  string   `json:"functional"`
	BER         float64  `json:"ber"`
	Accuracy    float64  `json:"accuracy"`
	Errors      int      `json:"errors"`
	ValidBits   int      `json:"valid_bits"`
	NoValidBits bool     `json:"no_valid_bits"`
	Inverted    bool     `json:"inverted"`
	Threshold   *float64 `json:"threshold"`
	Margin      *float64 `json:"margin"`
	ProbeX      float64  `json:"probe_x"`
}

type leaderboardView struct {
	ProbeX     float64      `json:"probe_x"`
	ProbeIndex int          `json:"probe_index"`
	Entries    []entryView  `json:"entries"`
	Skips      []bench.Skip `json:"skips"`
}

type couplingView struct {
	Label        string   `json:"label"`
	Speed        *float64 `json:"speed"` // null for instantaneous coupling
	DelaySeconds float64  `json:"delay_seconds"`
	DelaySteps   int      `json:"delay_steps"`
	BER          float64  `json:"ber"`
	Accuracy     float64  `json:"accuracy"`
	Errors       int      `json:"errors"`
	ValidBits    int      `json:"valid_bits"`
}

type twoNodeView struct {
	XA           float64  `json:"x_a"`
	XB           float64  `json:"x_b"`
	DelaySeconds float64  `json:"delay_seconds"`
	DelaySteps   int      `json:"delay_steps"`
	PeakLag      float64  `json:"peak_lag"`
	PeakCorr     float64  `json:"peak_corr"`
	BER          float64  `json:"ber"`
	Accuracy     float64  `json:"accuracy"`
	Errors       int      `json:"errors"`
	ValidBits    int      `json:"valid_bits"`
	NoValidBits  bool     `json:"no_valid_bits"`
	Inverted     bool     `json:"inverted"`
	Threshold    *float64 `json:"threshold"`
	Margin       *float64 `json:"margin"`
}

type suiteView struct {
	ID          string             `json:"id"`
	CreatedAt   string             `json:"created_at,omitempty"`
	Config      *bench.SuiteConfig `json:"config,omitempty"`
	Leaderboard leaderboardView    `json:"leaderboard"`
	Coupling    []couplingView     `json:"coupling"`
	Noise       []bench.SweepPoint `json:"noise"`
	TwoNode     twoNodeView        `json:"two_node"`
}

func newSuiteView(s *bench.Suite) suiteView {
	lb := s.Leaderboard
	out := suiteView{
		Leaderboard: leaderboardView{
			ProbeX:     lb.ProbeX,
			ProbeIndex: lb.ProbeIndex,
			Entries:    make([]entryView, 0, len(lb.Entries)),
			Skips:      lb.Skips,
		},
		Coupling: make([]couplingView, 0, len(s.Coupling)),
		Noise:    s.Noise,
	}
	if out.Leaderboard.Skips == nil {
		out.Leaderboard.Skips = []bench.Skip{}
	}
	if out.Noise == nil {
		out.Noise = []bench.SweepPoint{}
	}

	for i, e := range lb.Entries {
		out.Leaderboard.Entries = append(out.Leaderboard.Entries, entryView{
			Rank:        i + 1,
			Modulation:  e.Modulation,
			Scheme:      string(e.Scheme),
			Functional:  e.Functional,
			BER:         e.BER,
			Accuracy:    e.Accuracy,
			Errors:      e.Errors,
			ValidBits:   e.ValidBits,
			NoValidBits: e.NoValidBits,
			Inverted:    e.Inverted,
			Threshold:   num(e.Threshold),
			Margin:      num(e.Margin),
			ProbeX:      e.ProbeX,
		})
	}

	for _, c := range s.Coupling {
		out.Coupling = append(out.Coupling, couplingView{
			Label:        c.Label,
			Speed:        num(c.Speed),
			DelaySeconds: c.DelaySeconds,
			DelaySteps:   c.DelaySteps,
			BER:          c.BER,
			Accuracy:     c.Accuracy,
			Errors:       c.Errors,
			ValidBits:    c.ValidBits,
		})
	}

	tn := s.TwoNode
	out.TwoNode = twoNodeView{
		XA:           tn.XA,
		XB:           tn.XB,
		DelaySeconds: tn.DelaySeconds,
		DelaySteps:   tn.DelaySteps,
		PeakLag:      tn.PeakLag,
		PeakCorr:     tn.PeakCorr,
		BER:          tn.Decode.BER,
		Accuracy:     tn.Decode.Accuracy,
		Errors:       tn.Decode.Errors,
		ValidBits:    tn.Decode.ValidBits,
		NoValidBits:  tn.Decode.NoValidBits,
		Inverted:     tn.Decode.Inverted,
		Threshold:    num(tn.Decode.Threshold),
		Margin:       num(tn.Decode.Margin),
	}
	return out
}
