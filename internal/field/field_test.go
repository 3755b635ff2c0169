package field_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/coherence-lab/internal/field"
	"github.com/talgya/coherence-lab/internal/grid"
	"github.com/talgya/coherence-lab/internal/physics"
)

func defaultGrid(t *testing.T) *grid.Grid {
	t.Helper()
	g, err := grid.New(grid.DefaultConfig())
	require.NoError(t, err)
	return g
}

func TestFieldAccessors(t *testing.T) {
	f, err := field.FromRows([][]float64{{1, 2, 3}, {4, 5, 6}})
	require.NoError(t, err)
	assert.Equal(t, 2, f.Nt())
	assert.Equal(t, 3, f.Nx())
	assert.Equal(t, 6.0, f.At(1, 2))
	assert.Equal(t, []float64{2, 5}, f.Column(1))

	f.Row(0)[0] = 10
	assert.Equal(t, 10.0, f.At(0, 0), "Row aliases the field")

	c := f.Clone()
	c.Set(0, 0, -1)
	assert.Equal(t, 10.0, f.At(0, 0))
	assert.True(t, f.SameShape(c))

	_, err = field.FromRows([][]float64{{1, 2}, {3}})
	require.Error(t, err)
}

func TestParseScheme(t *testing.T) {
	for name, want := range map[string]field.Scheme{
		"modulated":       field.SchemeAM,
		"AM":              field.SchemeAM,
		"psk":             field.SchemePM,
		"freq_modulated":  field.SchemeFSK,
		" Two_Node ":      field.SchemeTwoNode,
		"phase_modulated": field.SchemePM,
	} {
		got, err := field.ParseScheme(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := field.ParseScheme("qam64")
	var unknown *field.UnknownSchemeError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "qam64", unknown.Name)
}

func TestGenerateUnknownSchemeFails(t *testing.T) {
	_, _, err := field.Generate("chirp", defaultGrid(t), field.DefaultParams())
	var unknown *field.UnknownSchemeError
	require.ErrorAs(t, err, &unknown)
}

func TestGenerateShapesAndMetadata(t *testing.T) {
	g := defaultGrid(t)
	for _, s := range field.Schemes() {
		f, meta, err := field.Generate(s, g, field.DefaultParams())
		require.NoError(t, err, s)
		assert.Equal(t, g.Nt(), f.Nt(), s)
		assert.Equal(t, g.Nx(), f.Nx(), s)
		assert.Equal(t, s, meta.Scheme)

		switch s {
		case field.SchemeSmooth, field.SchemeTurbulent:
			assert.False(t, meta.HasBits(), s)
		default:
			assert.True(t, meta.HasBits(), s)
		}
	}
}

func TestAMEnvelope(t *testing.T) {
	g := defaultGrid(t)
	p := field.DefaultParams().WithBits(1, 0, 1)
	f, meta, err := field.Generate(field.SchemeAM, g, p)
	require.NoError(t, err)

	require.Equal(t, 133, meta.BitDuration)
	assert.Equal(t, 1.0, meta.Envelope[0])
	assert.Equal(t, -1.0, meta.Envelope[133])
	assert.Equal(t, 1.0, meta.Envelope[266])
	assert.Equal(t, 0.0, meta.Envelope[399], "samples past the last full bit stay unmodulated")

	x, ti := 17, 150
	want := (1 - physics.AMDepth) * math.Sin(p.K*g.X(x)-p.Omega*g.T(ti))
	assert.InDelta(t, want, f.At(ti, x), 1e-12)
}

func TestFSKDefaults(t *testing.T) {
	_, meta, err := field.Generate(field.SchemeFSK, defaultGrid(t), field.DefaultParams())
	require.NoError(t, err)
	assert.InDelta(t, 4.0, meta.F0, 1e-12)
	assert.InDelta(t, 6.0, meta.F1, 1e-12)
	assert.Equal(t, meta.F1, meta.FreqSignal[0], "first default bit is 1")
}

func TestPMShift(t *testing.T) {
	_, meta, err := field.Generate(field.SchemePM, defaultGrid(t), field.DefaultParams().WithBits(0, 1))
	require.NoError(t, err)
	assert.Equal(t, 0.0, meta.PhaseShift[0])
	assert.Equal(t, math.Pi, meta.PhaseShift[200])
}

func TestGenerateRejectsBadParams(t *testing.T) {
	g := defaultGrid(t)

	_, _, err := field.Generate(field.SchemeAM, g, field.DefaultParams().WithBits(1, 2))
	require.ErrorIs(t, err, field.ErrBadParams)

	p := field.DefaultParams()
	p.Sigma = 0
	_, _, err = field.Generate(field.SchemeTwoNode, g, p)
	require.ErrorIs(t, err, field.ErrBadParams)

	p = field.DefaultParams()
	p.CouplingSpeed = -1
	_, _, err = field.Generate(field.SchemeTwoNode, g, p)
	require.ErrorIs(t, err, field.ErrBadParams)

	p = field.DefaultParams()
	p.Turbulence = "brownian"
	_, _, err = field.Generate(field.SchemeTurbulent, g, p)
	require.ErrorIs(t, err, field.ErrBadParams)
}

func TestTurbulenceIsSeeded(t *testing.T) {
	g := defaultGrid(t)
	for _, kind := range []field.Turbulence{field.TurbulenceGaussian, field.TurbulenceSimplex} {
		p := field.DefaultParams()
		p.Turbulence = kind
		a, _, err := field.Generate(field.SchemeTurbulent, g, p)
		require.NoError(t, err)
		b, _, err := field.Generate(field.SchemeTurbulent, g, p)
		require.NoError(t, err)
		assert.Equal(t, a, b, kind)

		p.Seed++
		c, _, err := field.Generate(field.SchemeTurbulent, g, p)
		require.NoError(t, err)
		assert.NotEqual(t, a, c, kind)
	}
}

func TestBoxFilter(t *testing.T) {
	got := field.BoxFilter([]float64{5, 0, 0, 0, 5}, 5)
	want := []float64{1, 1, 2, 1, 1}
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-12)
	}
	assert.Equal(t, []float64{1, 2}, field.BoxFilter([]float64{1, 2}, 1))
}

func TestParamsJSONInstantCoupling(t *testing.T) {
	p := field.DefaultParams()
	p.CouplingSpeed = math.Inf(1)
	p.XB = field.Pos(0.8)

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"coupling_speed":null`)

	var back field.Params
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, math.IsInf(back.CouplingSpeed, 1))
	assert.Equal(t, p, back)

	p.CouplingSpeed = physics.CLight
	data, err = json.Marshal(p)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, physics.CLight, back.CouplingSpeed)
}
