package field

import (
	"math"

	"github.com/talgya/coherence-lab/internal/grid"
	"github.com/talgya/coherence-lab/internal/physics"
)

// Metadata records how a message was embedded. Smooth and turbulent fields
// carry only the scheme; HasBits reports whether a decoder can use it.
type Metadata struct {
	Scheme      Scheme `json:"scheme"`
	Bits        []int  `json:"bits,omitempty"`
	BitDuration int    `json:"bit_duration,omitempty"`

	Envelope   []float64 `json:"envelope,omitempty"`
	PhaseShift []float64 `json:"phase_shift,omitempty"`
	FreqSignal []float64 `json:"freq_signal,omitempty"`
	F0         float64   `json:"f0,omitempty"`
	F1         float64   `json:"f1,omitempty"`

	XA             float64 `json:"x_a,omitempty"`
	XB             float64 `json:"x_b,omitempty"`
	EnableCoupling bool    `json:"enable_coupling,omitempty"`
	CouplingSpeed  float64 `json:"coupling_speed,omitempty"`
	DelaySeconds   float64 `json:"delay_seconds,omitempty"`
	DelaySteps     int     `json:"delay_steps,omitempty"`
}

// HasBits reports whether the metadata names a bit pattern and a usable bit duration.
func (m Metadata) HasBits() bool {
	return len(m.Bits) > 0 && m.BitDuration >= 1
}

// Generate synthesizes the field for scheme on g. The result is a fresh Field;
// neither g nor p is modified.
func Generate(scheme Scheme, g *grid.Grid, p Params) (*Field, Metadata, error) {
	scheme, err := ParseScheme(string(scheme))
	if err != nil {
		return nil, Metadata{}, err
	}
	if err := p.validate(scheme); err != nil {
		return nil, Metadata{}, err
	}

	switch scheme {
	case SchemeSmooth:
		return carrier(g, p), Metadata{Scheme: scheme}, nil
	case SchemeTurbulent:
		return turbulent(g, p), Metadata{Scheme: scheme}, nil
	case SchemeAM:
		f, m := amplitudeModulated(g, p)
		return f, m, nil
	case SchemePM:
		f, m := phaseModulated(g, p)
		return f, m, nil
	case SchemeFSK:
		f, m := frequencyModulated(g, p)
		return f, m, nil
	case SchemeTwoNode:
		f, m := twoNode(g, p)
		return f, m, nil
	}
	return nil, Metadata{}, &UnknownSchemeError{Name: string(scheme)}
}

// BitDuration returns max(1, nt/nbits): the samples allotted to each bit.
func BitDuration(nt, nbits int) int {
	if nbits <= 0 {
		return 1
	}
	return max(1, nt/nbits)
}

// holdPerBit spreads one value per bit over its bit window. Samples past the
// last full window keep the zero value.
func holdPerBit(nt, bitDur int, values []float64) []float64 {
	out := make([]float64, nt)
	for i, v := range values {
		start := i * bitDur
		if start >= nt {
			break
		}
		end := min((i+1)*bitDur, nt)
		for t := start; t < end; t++ {
			out[t] = v
		}
	}
	return out
}

// Levels maps bits {0,1} to antipodal levels {−1,+1}.
func Levels(bits []int) []float64 {
	out := make([]float64, len(bits))
	for i, b := range bits {
		if b != 0 {
			out[i] = 1
		} else {
			out[i] = -1
		}
	}
	return out
}

func bitsOrDefault(s Scheme, p Params) []int {
	if len(p.Bits) == 0 {
		return defaultBitsFor(s)
	}
	return append([]int(nil), p.Bits...)
}

func carrier(g *grid.Grid, p Params) *Field {
	f := New(g.Nt(), g.Nx())
	for t := 0; t < g.Nt(); t++ {
		wt := p.Omega * g.T(t)
		row := f.Row(t)
		for x := range row {
			row[x] = p.A0 * math.Sin(p.K*g.X(x)-wt)
		}
	}
	return f
}

func amplitudeModulated(g *grid.Grid, p Params) (*Field, Metadata) {
	bits := bitsOrDefault(SchemeAM, p)
	bitDur := BitDuration(g.Nt(), len(bits))
	envelope := holdPerBit(g.Nt(), bitDur, Levels(bits))

	f := carrier(g, p)
	for t := 0; t < g.Nt(); t++ {
		scale := 1 + physics.AMDepth*envelope[t]
		row := f.Row(t)
		for x := range row {
			row[x] *= scale
		}
	}
	return f, Metadata{Scheme: SchemeAM, Bits: bits, BitDuration: bitDur, Envelope: envelope}
}

func phaseModulated(g *grid.Grid, p Params) (*Field, Metadata) {
	bits := bitsOrDefault(SchemePM, p)
	bitDur := BitDuration(g.Nt(), len(bits))
	shifts := make([]float64, len(bits))
	for i, b := range bits {
		if b == 1 {
			shifts[i] = math.Pi
		}
	}
	phase := holdPerBit(g.Nt(), bitDur, shifts)

	f := New(g.Nt(), g.Nx())
	for t := 0; t < g.Nt(); t++ {
		wt := p.Omega*g.T(t) - phase[t]
		row := f.Row(t)
		for x := range row {
			row[x] = p.A0 * math.Sin(p.K*g.X(x)-wt)
		}
	}
	return f, Metadata{Scheme: SchemePM, Bits: bits, BitDuration: bitDur, PhaseShift: phase}
}

// frequencyModulated resynthesizes each time row from 2π·f(t)·t directly.
// Phase is not carried across bit boundaries; the discontinuity is part of the
// reference behavior.
func frequencyModulated(g *grid.Grid, p Params) (*Field, Metadata) {
	bits := bitsOrDefault(SchemeFSK, p)
	bitDur := BitDuration(g.Nt(), len(bits))

	carrierHz := p.Omega / (2 * math.Pi)
	f0, f1 := p.F0, p.F1
	if f0 == 0 {
		f0 = carrierHz * physics.FSKLowRatio
	}
	if f1 == 0 {
		f1 = carrierHz * physics.FSKHighRatio
	}
	freqs := make([]float64, len(bits))
	for i, b := range bits {
		if b == 1 {
			freqs[i] = f1
		} else {
			freqs[i] = f0
		}
	}
	freq := holdPerBit(g.Nt(), bitDur, freqs)

	f := New(g.Nt(), g.Nx())
	for t := 0; t < g.Nt(); t++ {
		phase := 2 * math.Pi * freq[t] * g.T(t)
		row := f.Row(t)
		for x := range row {
			row[x] = p.A0 * math.Sin(p.K*g.X(x)-phase)
		}
	}
	return f, Metadata{Scheme: SchemeFSK, Bits: bits, BitDuration: bitDur, FreqSignal: freq, F0: f0, F1: f1}
}
