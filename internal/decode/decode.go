// Package decode reconstructs a bit sequence from a coherence trace by
// averaging one window per bit and thresholding the window means.
package decode

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/talgya/coherence-lab/internal/entropy"
)

var (
	// ErrBadBitDuration indicates a bit duration below one sample.
	ErrBadBitDuration = errors.New("decode: bit duration must be at least 1")

	// ErrBadTrim indicates a negative settling trim.
	ErrBadTrim = errors.New("decode: trim must be non-negative")

	// ErrBadBit indicates a ground-truth bit outside {0,1}.
	ErrBadBit = errors.New("decode: bits must be 0 or 1")
)

// Options controls one decode.
type Options struct {
	// Trim skips this many samples at the start of every bit window (settling time).
	Trim int `json:"trim"`

	// NoiseLevel is the standard deviation of Gaussian noise added to the trace
	// before decoding. Zero disables noise injection.
	NoiseLevel float64 `json:"noise_level"`

	// Seed drives the noise stream. It is independent of any field-generation seed.
	Seed int64 `json:"seed"`

	// FixedPolarity always predicts 1 for features above the threshold, even
	// when the calibration classes show bit 1 scoring lower than bit 0.
	FixedPolarity bool `json:"fixed_polarity,omitempty"`

	// Calibration, when set, is used as-is instead of being derived from the
	// (possibly noisy) features. FixedPolarity is then ignored.
	Calibration *Calibration `json:"calibration,omitempty"`
}

// Calibration is a decision threshold and polarity fixed ahead of a decode.
type Calibration struct {
	Threshold float64 `json:"threshold"`
	Inverted  bool    `json:"inverted"`
}

// DefaultTrim returns max(1, bitDuration/10).
func DefaultTrim(bitDuration int) int {
	return max(1, bitDuration/10)
}

// Result is the outcome of one decode.
type Result struct {
	Features  []float64 `json:"features"`  // per-bit window mean; NaN when the window is out of range
	Threshold float64   `json:"threshold"` // NaN when no bit is valid
	Predicted []int     `json:"predicted"` // −1 for excluded bits
	Truth     []int     `json:"truth"`

	Errors    int     `json:"errors"`
	ValidBits int     `json:"valid_bits"`
	BER       float64 `json:"ber"`
	Accuracy  float64 `json:"accuracy"`

	// Margin is mean(feature | bit=1) − mean(feature | bit=0); NaN unless both classes are valid.
	Margin float64 `json:"margin"`

	// Inverted is set when calibration found mean(bit=1) < mean(bit=0) and the
	// decision was flipped: a feature strictly below the threshold reads as 1.
	Inverted bool `json:"inverted"`

	// NoValidBits is set when every bit window fell outside the trace. BER is
	// then reported as 0 by convention and must not be read as a perfect decode.
	NoValidBits bool `json:"no_valid_bits"`

	NoiseLevel float64 `json:"noise_level"`
}

// Calibration returns the threshold and polarity this decode used.
func (r Result) Calibration() Calibration {
	return Calibration{Threshold: r.Threshold, Inverted: r.Inverted}
}

// Decode extracts one feature per bit, calibrates a threshold and decision
// polarity against bits, and scores the prediction. trace is never modified.
//
// Every functional scores a stronger or busier field as less coherent, so a
// bit-1 feature often sits below a bit-0 feature. Unless opts.FixedPolarity is
// set, a negative margin flips the decision instead of inverting every bit.
// opts.Calibration skips both steps and applies a calibration taken elsewhere,
// typically from a noise-free decode of the same trace.
func Decode(trace []float64, bits []int, bitDuration int, opts Options) (Result, error) {
	if bitDuration < 1 {
		return Result{}, fmt.Errorf("bit duration %d: %w", bitDuration, ErrBadBitDuration)
	}
	if opts.Trim < 0 {
		return Result{}, fmt.Errorf("trim %d: %w", opts.Trim, ErrBadTrim)
	}
	for i, b := range bits {
		if b != 0 && b != 1 {
			return Result{}, fmt.Errorf("bit %d is %d: %w", i, b, ErrBadBit)
		}
	}

	signal := trace
	if opts.NoiseLevel > 0 {
		signal = make([]float64, len(trace))
		noise := make([]float64, len(trace))
		entropy.Gaussian(entropy.New(opts.Seed), opts.NoiseLevel, noise)
		for i, v := range trace {
			signal[i] = v + noise[i]
		}
	}

	res := Result{
		Features:   Features(signal, len(bits), bitDuration, opts.Trim),
		Truth:      append([]int(nil), bits...),
		Predicted:  make([]int, len(bits)),
		NoiseLevel: opts.NoiseLevel,
	}

	res.Margin = Margin(res.Features, bits)
	if c := opts.Calibration; c != nil {
		res.Threshold = c.Threshold
		res.Inverted = c.Inverted
	} else {
		res.Threshold = Threshold(res.Features, bits)
		res.Inverted = !opts.FixedPolarity && res.Margin < 0
	}

	for i, feat := range res.Features {
		if math.IsNaN(feat) {
			res.Predicted[i] = -1
			continue
		}
		res.ValidBits++
		if (!res.Inverted && feat > res.Threshold) || (res.Inverted && feat < res.Threshold) {
			res.Predicted[i] = 1
		}
		if res.Predicted[i] != bits[i] {
			res.Errors++
		}
	}

	if res.ValidBits == 0 {
		res.NoValidBits = true
		res.BER = 0
	} else {
		res.BER = float64(res.Errors) / float64(res.ValidBits)
	}
	res.Accuracy = 1 - res.BER
	return res, nil
}

// Features returns the mean of trace over [i·bitDuration+trim, (i+1)·bitDuration)
// for each of nbits bits, clipped to the trace. Empty windows yield NaN.
func Features(trace []float64, nbits, bitDuration, trim int) []float64 {
	out := make([]float64, nbits)
	for i := range out {
		s := i*bitDuration + trim
		e := min((i+1)*bitDuration, len(trace))
		if s >= e {
			out[i] = math.NaN()
			continue
		}
		sum := 0.0
		for _, v := range trace[s:e] {
			sum += v
		}
		out[i] = sum / float64(e-s)
	}
	return out
}

// classMeans returns the mean valid feature for bit 0 and bit 1, and whether
// each class has at least one valid bit.
func classMeans(feats []float64, bits []int) (m0, m1 float64, has0, has1 bool) {
	var n0, n1 int
	for i, f := range feats {
		if math.IsNaN(f) {
			continue
		}
		if bits[i] == 1 {
			m1 += f
			n1++
		} else {
			m0 += f
			n0++
		}
	}
	if n0 > 0 {
		m0 /= float64(n0)
	}
	if n1 > 0 {
		m1 /= float64(n1)
	}
	return m0, m1, n0 > 0, n1 > 0
}

// Threshold is the midpoint of the two class means when both classes are
// present among valid features, otherwise the median of the valid features.
// It is NaN when no feature is valid.
func Threshold(feats []float64, bits []int) float64 {
	m0, m1, has0, has1 := classMeans(feats, bits)
	if has0 && has1 {
		return 0.5 * (m0 + m1)
	}
	return median(feats)
}

// Margin is mean(bit=1) − mean(bit=0) over valid features, or NaN when either
// class is missing.
func Margin(feats []float64, bits []int) float64 {
	m0, m1, has0, has1 := classMeans(feats, bits)
	if !has0 || !has1 {
		return math.NaN()
	}
	return m1 - m0
}

// median of the non-NaN values; NaN if there are none.
func median(v []float64) float64 {
	valid := make([]float64, 0, len(v))
	for _, x := range v {
		if !math.IsNaN(x) {
			valid = append(valid, x)
		}
	}
	if len(valid) == 0 {
		return math.NaN()
	}
	sort.Float64s(valid)
	mid := len(valid) / 2
	if len(valid)%2 == 1 {
		return valid[mid]
	}
	return 0.5 * (valid[mid-1] + valid[mid])
}
