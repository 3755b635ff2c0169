// Package physics holds the fixed constants and default parameter sets shared by
// the field generator, the coherence functionals, and the benchmark drivers.
package physics

import "math"

// CLight is the speed of light in vacuum (m/s). Used as the default coupling speed.
const CLight = 299_792_458.0

// Carrier defaults for the traveling sinusoid A0·sin(k·x − ω·t).
const (
	// DefaultA0 is the carrier amplitude.
	DefaultA0 = 1.0

	// DefaultK is the carrier wavenumber (3 cycles per unit length).
	DefaultK = 2 * math.Pi * 3

	// DefaultOmega is the carrier angular frequency (5 Hz).
	DefaultOmega = 2 * math.Pi * 5
)

// Two-node defaults.
const (
	// DefaultSigma is the width of the Gaussian TX/RX spatial profiles.
	DefaultSigma = 0.02

	// DefaultTxStrength scales the transmitter contribution.
	DefaultTxStrength = 0.75

	// DefaultRxStrength scales the delayed receiver contribution.
	DefaultRxStrength = 0.35
)

// Functional defaults.
const (
	DefaultAlpha = 2.0
	DefaultBeta  = 1.0
	DefaultGamma = 1.0

	// DefaultTau is the causal memory window in seconds.
	DefaultTau = 0.05
)

// Seed defaults. Field generation and decode noise use separate seeds.
const (
	DefaultFieldSeed  int64 = 1234
	DefaultDecodeSeed int64 = 42
)

// AMDepth is the envelope modulation depth: amplitude is scaled by 1 + AMDepth·envelope.
const AMDepth = 0.25

// TurbulenceAmplitude is the standard deviation of the raw turbulent noise before smoothing.
const TurbulenceAmplitude = 0.4

// TurbulenceKernel is the width of the spatial box filter applied to turbulent noise.
const TurbulenceKernel = 5

// FSK default frequencies relative to the carrier frequency ω/2π.
const (
	FSKLowRatio  = 0.8
	FSKHighRatio = 1.2
)

// DefaultBits is the ten-bit pattern used by the leaderboard and two-node scenarios.
func DefaultBits() []int {
	return []int{1, 0, 1, 1, 0, 1, 0, 0, 1, 1}
}

// IsInstant reports whether a coupling speed represents idealized instantaneous coupling.
func IsInstant(speed float64) bool {
	return math.IsInf(speed, 0)
}
