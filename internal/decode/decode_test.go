package decode_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/coherence-lab/internal/decode"
)

// stepTrace holds one level per bit for bitDur samples.
func stepTrace(levels []float64, bitDur int) []float64 {
	out := make([]float64, 0, len(levels)*bitDur)
	for _, v := range levels {
		for i := 0; i < bitDur; i++ {
			out = append(out, v)
		}
	}
	return out
}

func TestDecodeCleanSteps(t *testing.T) {
	bits := []int{1, 0, 1, 1, 0}
	trace := stepTrace([]float64{0.9, 0.1, 0.9, 0.9, 0.1}, 10)

	res, err := decode.Decode(trace, bits, 10, decode.Options{Trim: 1})
	require.NoError(t, err)

	assert.Equal(t, bits, res.Predicted)
	assert.Equal(t, 0, res.Errors)
	assert.Equal(t, 5, res.ValidBits)
	assert.Equal(t, 0.0, res.BER)
	assert.Equal(t, 1.0, res.Accuracy)
	assert.InDelta(t, 0.5, res.Threshold, 1e-12)
	assert.InDelta(t, 0.8, res.Margin, 1e-12)
	assert.False(t, res.Inverted)
	assert.False(t, res.NoValidBits)
}

func TestDecodeCalibratesPolarity(t *testing.T) {
	bits := []int{1, 0, 1, 1, 0}
	trace := stepTrace([]float64{0.1, 0.9, 0.1, 0.1, 0.9}, 10)

	res, err := decode.Decode(trace, bits, 10, decode.Options{Trim: 1})
	require.NoError(t, err)
	assert.True(t, res.Inverted)
	assert.Equal(t, 0.0, res.BER)
	assert.InDelta(t, -0.8, res.Margin, 1e-12)

	fixed, err := decode.Decode(trace, bits, 10, decode.Options{Trim: 1, FixedPolarity: true})
	require.NoError(t, err)
	assert.False(t, fixed.Inverted)
	assert.Equal(t, 1.0, fixed.BER, "strict rule reads every bit backwards")
}

func TestDecodeHeldCalibration(t *testing.T) {
	bits := []int{1, 0, 1, 1, 0}
	trace := stepTrace([]float64{0.1, 0.9, 0.1, 0.1, 0.9}, 10)

	res, err := decode.Decode(trace, bits, 10, decode.Options{
		Trim:        1,
		Calibration: &decode.Calibration{Threshold: 0.5, Inverted: false},
	})
	require.NoError(t, err)
	assert.False(t, res.Inverted, "held polarity is not recalibrated")
	assert.Equal(t, 0.5, res.Threshold)
	assert.Equal(t, 1.0, res.BER)
	assert.InDelta(t, -0.8, res.Margin, 1e-12)
	assert.Equal(t, decode.Calibration{Threshold: 0.5}, res.Calibration())
}

// On a trace with no signal, calibrating against the noisy features fits the
// noise and pulls BER below chance. A calibration held from the clean trace
// stays at chance.
func TestHeldCalibrationStaysAtChanceOnNoise(t *testing.T) {
	bits := []int{1, 0, 1, 1, 0, 0, 1, 0, 1, 0}
	trace := stepTrace([]float64{0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5}, 20)

	clean, err := decode.Decode(trace, bits, 20, decode.Options{Trim: 2})
	require.NoError(t, err)
	cal := clean.Calibration()

	const seeds = 200
	var held, refit float64
	for seed := int64(1); seed <= seeds; seed++ {
		opts := decode.Options{Trim: 2, NoiseLevel: 0.3, Seed: seed}
		r, err := decode.Decode(trace, bits, 20, opts)
		require.NoError(t, err)
		refit += r.BER

		opts.Calibration = &cal
		h, err := decode.Decode(trace, bits, 20, opts)
		require.NoError(t, err)
		held += h.BER
	}
	held /= seeds
	refit /= seeds

	assert.InDelta(t, 0.5, held, 0.05)
	assert.Less(t, refit, held-0.03)
}

func TestDecodeTruncatedTrace(t *testing.T) {
	bits := []int{1, 0, 1, 0}
	// Two full bits, a partial third bit and nothing for the fourth.
	trace := append(stepTrace([]float64{0.9, 0.1}, 10), 0.9, 0.9, 0.9)

	res, err := decode.Decode(trace, bits, 10, decode.Options{Trim: 1})
	require.NoError(t, err)

	assert.Equal(t, 3, res.ValidBits)
	assert.True(t, math.IsNaN(res.Features[3]))
	assert.Equal(t, -1, res.Predicted[3])
	assert.Equal(t, []int{1, 0, 1, -1}, res.Predicted)
	assert.Equal(t, 0.0, res.BER)
}

func TestDecodeNoValidBits(t *testing.T) {
	res, err := decode.Decode([]float64{0.5, 0.5}, []int{1, 0}, 10, decode.Options{Trim: 5})
	require.NoError(t, err)

	assert.True(t, res.NoValidBits)
	assert.Equal(t, 0, res.ValidBits)
	assert.Equal(t, 0.0, res.BER, "empty decode reports zero BER by convention")
	assert.Equal(t, 1.0, res.Accuracy)
	assert.True(t, math.IsNaN(res.Threshold))
	assert.True(t, math.IsNaN(res.Margin))
	assert.Equal(t, []int{-1, -1}, res.Predicted)
}

func TestDecodeSingleClassUsesMedian(t *testing.T) {
	bits := []int{1, 1, 1}
	trace := stepTrace([]float64{0.2, 0.6, 0.4}, 4)

	res, err := decode.Decode(trace, bits, 4, decode.Options{})
	require.NoError(t, err)

	assert.InDelta(t, 0.4, res.Threshold, 1e-12)
	assert.True(t, math.IsNaN(res.Margin))
	assert.False(t, res.Inverted)
	assert.Equal(t, []int{0, 1, 0}, res.Predicted)
	assert.Equal(t, 2, res.Errors)
}

func TestDecodeNoiseIsSeededAndLeavesTraceAlone(t *testing.T) {
	bits := []int{1, 0, 1, 1, 0, 0, 1, 0}
	trace := stepTrace([]float64{0.9, 0.1, 0.9, 0.9, 0.1, 0.1, 0.9, 0.1}, 20)
	orig := append([]float64(nil), trace...)

	opts := decode.Options{Trim: 2, NoiseLevel: 0.2, Seed: 42}
	a, err := decode.Decode(trace, bits, 20, opts)
	require.NoError(t, err)
	b, err := decode.Decode(trace, bits, 20, opts)
	require.NoError(t, err)

	assert.Equal(t, orig, trace)
	assert.Equal(t, a.Features, b.Features)
	assert.Equal(t, 0.2, a.NoiseLevel)

	opts.Seed = 43
	c, err := decode.Decode(trace, bits, 20, opts)
	require.NoError(t, err)
	assert.NotEqual(t, a.Features, c.Features)
}

func TestDecodeRejectsBadInput(t *testing.T) {
	_, err := decode.Decode([]float64{1}, []int{1}, 0, decode.Options{})
	require.ErrorIs(t, err, decode.ErrBadBitDuration)

	_, err = decode.Decode([]float64{1}, []int{1}, 1, decode.Options{Trim: -1})
	require.ErrorIs(t, err, decode.ErrBadTrim)

	_, err = decode.Decode([]float64{1}, []int{2}, 1, decode.Options{})
	require.ErrorIs(t, err, decode.ErrBadBit)
}

func TestDefaultTrim(t *testing.T) {
	assert.Equal(t, 1, decode.DefaultTrim(5))
	assert.Equal(t, 8, decode.DefaultTrim(80))
	assert.Equal(t, 5, decode.DefaultTrim(50))
}

func TestThresholdAndMargin(t *testing.T) {
	feats := []float64{1, math.NaN(), 3, 5}
	bits := []int{0, 1, 1, 1}
	assert.InDelta(t, 2.5, decode.Threshold(feats, bits), 1e-12)
	assert.InDelta(t, 3.0, decode.Margin(feats, bits), 1e-12)
	assert.True(t, math.IsNaN(decode.Threshold([]float64{math.NaN()}, []int{1})))
}
