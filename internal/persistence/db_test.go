package persistence_test

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/coherence-lab/internal/bench"
	"github.com/talgya/coherence-lab/internal/decode"
	"github.com/talgya/coherence-lab/internal/field"
	"github.com/talgya/coherence-lab/internal/persistence"
)

func openTemp(t *testing.T) *persistence.DB {
	t.Helper()
	db, err := persistence.Open(filepath.Join(t.TempDir(), "lab.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleSuite() *bench.Suite {
	return &bench.Suite{
		Leaderboard: bench.Leaderboard{
			ProbeX:     0.7489,
			ProbeIndex: 164,
			Entries: []bench.Entry{
				{Modulation: "AM", Scheme: field.SchemeAM, Functional: "hybrid", BER: 0, Accuracy: 1, ValidBits: 10, Inverted: true, Threshold: 0.25, Margin: -0.5, ProbeX: 0.7489},
				{Modulation: "AM", Scheme: field.SchemeAM, Functional: "phase", BER: 0.3, Accuracy: 0.7, Errors: 3, ValidBits: 10, Threshold: math.NaN(), Margin: math.NaN(), ProbeX: 0.7489},
			},
			Skips: []bench.Skip{{Modulation: "QAM", Scheme: "qam16", Reason: "unknown"}},
		},
		Coupling: []bench.CouplingResult{
			{Label: "light", Speed: 299792458, BER: 0.1, Accuracy: 0.9, Errors: 1, ValidBits: 10},
			{Label: "instant", Speed: math.Inf(1), BER: 0.2, Accuracy: 0.8, Errors: 2, ValidBits: 10},
		},
		Noise: []bench.SweepPoint{
			{Functional: "grad", NoiseLevel: 0, BER: 0, ValidBits: 10},
			{Functional: "grad", NoiseLevel: 0.3, BER: 0.4, Errors: 4, ValidBits: 10},
		},
		TwoNode: bench.TwoNodeReport{
			XA: 0.25, XB: 0.75, DelaySteps: 0, PeakLag: -0.012, PeakCorr: 0.8,
			Decode: decode.Result{BER: 0.1, Accuracy: 0.9, Errors: 1, ValidBits: 10, Threshold: 0.4, Margin: math.NaN()},
		},
	}
}

func TestSaveAndLoadRun(t *testing.T) {
	db := openTemp(t)
	cfg := bench.DefaultSuiteConfig()
	suite := sampleSuite()

	id, err := db.SaveRun(cfg, suite)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	run, err := db.LoadRun(id)
	require.NoError(t, err)

	assert.Equal(t, id, run.Summary.ID)
	assert.Equal(t, 2, run.Summary.Entries)
	assert.Equal(t, cfg, run.Config)

	lb := run.Suite.Leaderboard
	assert.Equal(t, 0.7489, lb.ProbeX)
	assert.Equal(t, 164, lb.ProbeIndex)
	require.Len(t, lb.Entries, 2)
	assert.Equal(t, "hybrid", lb.Entries[0].Functional, "stored rank order is kept")
	assert.True(t, lb.Entries[0].Inverted)
	assert.Equal(t, -0.5, lb.Entries[0].Margin)
	assert.True(t, math.IsNaN(lb.Entries[1].Margin))
	assert.True(t, math.IsNaN(lb.Entries[1].Threshold))
	assert.Equal(t, suite.Leaderboard.Skips, lb.Skips)

	require.Len(t, run.Suite.Coupling, 2)
	assert.Equal(t, 299792458.0, run.Suite.Coupling[0].Speed)
	assert.True(t, math.IsInf(run.Suite.Coupling[1].Speed, 1))
	assert.Equal(t, suite.Noise, run.Suite.Noise)

	tn := run.Suite.TwoNode
	assert.Equal(t, 0.75, tn.XB)
	assert.Equal(t, -0.012, tn.PeakLag)
	assert.Equal(t, 0.4, tn.Decode.Threshold)
	assert.True(t, math.IsNaN(tn.Decode.Margin))
}

func TestLoadRunNotFound(t *testing.T) {
	db := openTemp(t)
	_, err := db.LoadRun("does-not-exist")
	require.ErrorIs(t, err, persistence.ErrRunNotFound)
}

func TestListRunsAndMeta(t *testing.T) {
	db := openTemp(t)

	runs, err := db.ListRuns(10)
	require.NoError(t, err)
	assert.Empty(t, runs)

	first, err := db.SaveRun(bench.DefaultSuiteConfig(), sampleSuite())
	require.NoError(t, err)
	second, err := db.SaveRun(bench.DefaultSuiteConfig(), sampleSuite())
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	runs, err = db.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	ids := []string{runs[0].ID, runs[1].ID}
	assert.ElementsMatch(t, []string{first, second}, ids)
	assert.Equal(t, 2, runs[0].Entries)

	runs, err = db.ListRuns(1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	last, err := db.LastRunID()
	require.NoError(t, err)
	assert.Equal(t, second, last)

	require.NoError(t, db.SaveMeta("note", "hello"))
	v, err := db.GetMeta("note")
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
}

func TestSaveRunWithInstantCoupling(t *testing.T) {
	db := openTemp(t)
	cfg := bench.DefaultSuiteConfig()
	cfg.TwoNode.CouplingSpeed = math.Inf(1)

	id, err := db.SaveRun(cfg, sampleSuite())
	require.NoError(t, err)

	run, err := db.LoadRun(id)
	require.NoError(t, err)
	assert.True(t, math.IsInf(run.Config.TwoNode.CouplingSpeed, 1))
	assert.Equal(t, cfg, run.Config)
}
