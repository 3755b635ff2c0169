package field

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/talgya/coherence-lab/internal/physics"
)

// Scheme names one of the fixed modulation variants.
type Scheme string

const (
	SchemeSmooth    Scheme = "smooth"
	SchemeTurbulent Scheme = "turbulent"
	SchemeAM        Scheme = "amplitude_modulated"
	SchemePM        Scheme = "phase_modulated"
	SchemeFSK       Scheme = "frequency_modulated"
	SchemeTwoNode   Scheme = "two_node"
)

// Schemes lists every supported scheme in a stable order.
func Schemes() []Scheme {
	return []Scheme{SchemeSmooth, SchemeTurbulent, SchemeAM, SchemePM, SchemeFSK, SchemeTwoNode}
}

var schemeAliases = map[string]Scheme{
	"smooth":              SchemeSmooth,
	"turbulent":           SchemeTurbulent,
	"amplitude_modulated": SchemeAM,
	"modulated":           SchemeAM,
	"am":                  SchemeAM,
	"phase_modulated":     SchemePM,
	"pm":                  SchemePM,
	"psk":                 SchemePM,
	"frequency_modulated": SchemeFSK,
	"freq_modulated":      SchemeFSK,
	"fsk":                 SchemeFSK,
	"two_node":            SchemeTwoNode,
}

// ParseScheme resolves a scheme name or one of its short aliases (case-insensitive).
func ParseScheme(name string) (Scheme, error) {
	if s, ok := schemeAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return s, nil
	}
	return "", &UnknownSchemeError{Name: name}
}

// UnknownSchemeError is returned for a scheme name outside the fixed variant set.
type UnknownSchemeError struct {
	Name string
}

func (e *UnknownSchemeError) Error() string {
	return fmt.Sprintf("field: unknown modulation scheme %q", e.Name)
}

// ErrBadParams indicates generator parameters that cannot produce a field.
var ErrBadParams = errors.New("field: invalid generator parameters")

// Turbulence selects the random source of the turbulent scheme.
type Turbulence string

const (
	// TurbulenceGaussian is white Gaussian noise box-filtered along space.
	TurbulenceGaussian Turbulence = "gaussian"

	// TurbulenceSimplex is octave simplex noise sampled over (x, t).
	TurbulenceSimplex Turbulence = "simplex"
)

// Params configures Generate. Zero F0/F1 derive from the carrier, nil node
// positions default to the quarter and three-quarter space samples, and empty
// Bits select the scheme's default pattern.
type Params struct {
	A0    float64 `json:"a0"`
	K     float64 `json:"k"`
	Omega float64 `json:"omega"`

	Bits []int `json:"bits,omitempty"`

	F0 float64 `json:"f0,omitempty"`
	F1 float64 `json:"f1,omitempty"`

	XA             *float64 `json:"x_a,omitempty"`
	XB             *float64 `json:"x_b,omitempty"`
	Sigma          float64  `json:"sigma"`
	TxStrength     float64  `json:"tx_strength"`
	RxStrength     float64  `json:"rx_strength"`
	EnableCoupling bool     `json:"enable_coupling"`
	CouplingSpeed  float64  `json:"coupling_speed"`

	Seed       int64      `json:"seed"`
	Turbulence Turbulence `json:"turbulence,omitempty"`
}

// DefaultParams returns the reference carrier, two-node geometry and light-speed coupling.
func DefaultParams() Params {
	return Params{
		A0:             physics.DefaultA0,
		K:              physics.DefaultK,
		Omega:          physics.DefaultOmega,
		Sigma:          physics.DefaultSigma,
		TxStrength:     physics.DefaultTxStrength,
		RxStrength:     physics.DefaultRxStrength,
		EnableCoupling: true,
		CouplingSpeed:  physics.CLight,
		Seed:           physics.DefaultFieldSeed,
		Turbulence:     TurbulenceGaussian,
	}
}

// MarshalJSON writes an instantaneous coupling speed as null.
func (p Params) MarshalJSON() ([]byte, error) {
	type plain Params
	out := struct {
		plain
		CouplingSpeed *float64 `json:"coupling_speed"`
	}{plain: plain(p)}
	if !physics.IsInstant(p.CouplingSpeed) {
		out.CouplingSpeed = &p.CouplingSpeed
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a null or absent coupling speed as +Inf.
func (p *Params) UnmarshalJSON(data []byte) error {
	type plain Params
	in := struct {
		plain
		CouplingSpeed *float64 `json:"coupling_speed"`
	}{plain: plain(*p)}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*p = Params(in.plain)
	p.CouplingSpeed = math.Inf(1)
	if in.CouplingSpeed != nil {
		p.CouplingSpeed = *in.CouplingSpeed
	}
	return nil
}

// Pos returns a pointer to x, for the optional node positions.
func Pos(x float64) *float64 { return &x }

// WithBits returns a copy of p carrying bits.
func (p Params) WithBits(bits ...int) Params {
	p.Bits = append([]int(nil), bits...)
	return p
}

func (p Params) validate(s Scheme) error {
	for i, b := range p.Bits {
		if b != 0 && b != 1 {
			return fmt.Errorf("bit %d is %d: %w", i, b, ErrBadParams)
		}
	}
	if math.IsNaN(p.A0) || math.IsNaN(p.K) || math.IsNaN(p.Omega) {
		return fmt.Errorf("carrier has NaN component: %w", ErrBadParams)
	}
	if s == SchemeTwoNode {
		if !(p.Sigma > 0) {
			return fmt.Errorf("sigma=%g: %w", p.Sigma, ErrBadParams)
		}
		if p.EnableCoupling && !(p.CouplingSpeed > 0) {
			return fmt.Errorf("coupling_speed=%g: %w", p.CouplingSpeed, ErrBadParams)
		}
	}
	if s == SchemeTurbulent {
		switch p.Turbulence {
		case "", TurbulenceGaussian, TurbulenceSimplex:
		default:
			return fmt.Errorf("turbulence=%q: %w", p.Turbulence, ErrBadParams)
		}
	}
	return nil
}

func defaultBitsFor(s Scheme) []int {
	if s == SchemeTwoNode {
		return physics.DefaultBits()
	}
	return []int{1, 0, 1, 1, 0}
}
