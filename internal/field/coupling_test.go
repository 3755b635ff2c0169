package field_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/coherence-lab/internal/field"
	"github.com/talgya/coherence-lab/internal/physics"
)

func TestDelaySteps(t *testing.T) {
	// 0.5 m at 0.1 m/s is 5 s; at dt=0.5 that is exactly 10 samples.
	assert.Equal(t, 10, field.DelaySteps(0.25, 0.75, 0.1, 0.5))
	assert.Equal(t, 10, field.DelaySteps(0.75, 0.25, 0.1, 0.5), "order of nodes does not matter")
	// 1.3 samples rounds down, 1.7 rounds up, 2.5 rounds to even.
	assert.Equal(t, 1, field.DelaySteps(0, 0.13, 1, 0.1))
	assert.Equal(t, 2, field.DelaySteps(0, 0.17, 1, 0.1))
	assert.Equal(t, 2, field.DelaySteps(0, 2.5, 1, 1))
	assert.Equal(t, 0, field.DelaySteps(0.25, 0.75, math.Inf(1), 0.5))
	assert.Equal(t, 0, field.DelaySteps(0.25, 0.75, physics.CLight, 0.004))
}

func TestDelayZeroFills(t *testing.T) {
	env := []float64{1, -1, 1, 1}
	assert.Equal(t, []float64{0, 0, 1, -1}, field.Delay(env, 2))
	assert.Equal(t, env, field.Delay(env, 0))
	assert.Equal(t, []float64{0, 0, 0, 0}, field.Delay(env, 9))
	assert.Equal(t, []float64{1, -1, 1, 1}, env, "input untouched")
}

func TestTwoNodeCoupling(t *testing.T) {
	g := defaultGrid(t)

	slow := field.DefaultParams()
	slow.CouplingSpeed = 0.5 / (12 * g.Dt()) // exactly twelve samples between nodes
	slow.XA, slow.XB = field.Pos(0.25), field.Pos(0.75)

	f, meta, err := field.Generate(field.SchemeTwoNode, g, slow)
	require.NoError(t, err)
	assert.Equal(t, 12, meta.DelaySteps)
	assert.InDelta(t, 12*g.Dt(), meta.DelaySeconds, 1e-12)
	assert.Equal(t, 0.25, meta.XA)
	assert.Equal(t, 0.75, meta.XB)

	instant := slow
	instant.CouplingSpeed = math.Inf(1)
	_, imeta, err := field.Generate(field.SchemeTwoNode, g, instant)
	require.NoError(t, err)
	assert.Equal(t, 0, imeta.DelaySteps)
	assert.Equal(t, 0.0, imeta.DelaySeconds)

	off := slow
	off.EnableCoupling = false
	fOff, ometa, err := field.Generate(field.SchemeTwoNode, g, off)
	require.NoError(t, err)
	assert.Equal(t, 0, ometa.DelaySteps)

	// Before the delayed envelope arrives the receiver adds nothing.
	xB := g.ProbeIndex(0.75)
	for ti := 0; ti < 12; ti++ {
		assert.Equal(t, fOff.At(ti, xB), f.At(ti, xB))
	}
	assert.NotEqual(t, fOff.At(12, xB), f.At(12, xB))
}

func TestTwoNodeDefaultPositions(t *testing.T) {
	g := defaultGrid(t)
	_, meta, err := field.Generate(field.SchemeTwoNode, g, field.DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, g.X(g.Nx()/4), meta.XA)
	assert.Equal(t, g.X(3*g.Nx()/4), meta.XB)
	assert.Equal(t, physics.DefaultBits(), meta.Bits)
	assert.Equal(t, 40, meta.BitDuration)
}
