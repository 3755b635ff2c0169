package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/talgya/coherence-lab/internal/bench"
	"github.com/talgya/coherence-lab/internal/decode"
	"github.com/talgya/coherence-lab/internal/field"
)

// RunSummary is one row of the runs table.
type RunSummary struct {
	ID         string  `db:"id" json:"id"`
	CreatedAt  string  `db:"created_at" json:"created_at"`
	ProbeX     float64 `db:"probe_x" json:"probe_x"`
	ProbeIndex int     `db:"probe_index" json:"probe_index"`
	Entries    int     `db:"entries" json:"entries"`
}

// StoredRun is a run reloaded from the archive.
type StoredRun struct {
	Summary RunSummary
	Config  bench.SuiteConfig
	Suite   bench.Suite
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]RunSummary, error) {
	var runs []RunSummary
	err := db.conn.Select(&runs, `
		SELECT r.id, r.created_at, r.probe_x, r.probe_index,
		       (SELECT COUNT(*) FROM leaderboard_entries e WHERE e.run_id = r.id) AS entries
		FROM runs r
		ORDER BY r.created_at DESC, r.id
		LIMIT ?`, limit)
	return runs, err
}

type entryRow struct {
	Modulation  string          `db:"modulation"`
	Scheme      string          `db:"scheme"`
	Functional  string          `db:"functional"`
	BER         float64         `db:"ber"`
	Accuracy    float64         `db:"accuracy"`
	Errors      int             `db:"errors"`
	ValidBits   int             `db:"valid_bits"`
	NoValidBits bool            `db:"no_valid_bits"`
	Inverted    bool            `db:"inverted"`
	Threshold   sql.NullFloat64 `db:"threshold"`
	Margin      sql.NullFloat64 `db:"margin"`
	ProbeX      float64         `db:"probe_x"`
}

type couplingRow struct {
	Label        string          `db:"label"`
	Speed        sql.NullFloat64 `db:"speed"`
	DelaySeconds float64         `db:"delay_seconds"`
	DelaySteps   int             `db:"delay_steps"`
	BER          float64         `db:"ber"`
	Accuracy     float64         `db:"accuracy"`
	Errors       int             `db:"errors"`
	ValidBits    int             `db:"valid_bits"`
}

type twoNodeRow struct {
	XA           float64         `db:"x_a"`
	XB           float64         `db:"x_b"`
	DelaySeconds float64         `db:"delay_seconds"`
	DelaySteps   int             `db:"delay_steps"`
	PeakLag      float64         `db:"peak_lag"`
	PeakCorr     float64         `db:"peak_corr"`
	BER          float64         `db:"ber"`
	Accuracy     float64         `db:"accuracy"`
	Errors       int             `db:"errors"`
	ValidBits    int             `db:"valid_bits"`
	NoValidBits  bool            `db:"no_valid_bits"`
	Inverted     bool            `db:"inverted"`
	Threshold    sql.NullFloat64 `db:"threshold"`
	Margin       sql.NullFloat64 `db:"margin"`
}

// LoadRun reloads a stored run. Entries come back in their stored rank order.
// Per-bit features are not archived, so the two-node decode carries summary
// fields only.
func (db *DB) LoadRun(id string) (*StoredRun, error) {
	var run struct {
		RunSummary
		ConfigJSON string `db:"config_json"`
	}
	err := db.conn.Get(&run, `
		SELECT r.id, r.created_at, r.probe_x, r.probe_index, r.config_json,
		       (SELECT COUNT(*) FROM leaderboard_entries e WHERE e.run_id = r.id) AS entries
		FROM runs r WHERE r.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", id, err)
	}

	out := &StoredRun{Summary: run.RunSummary}
	if err := json.Unmarshal([]byte(run.ConfigJSON), &out.Config); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", id, err)
	}
	out.Suite.Leaderboard.ProbeX = run.ProbeX
	out.Suite.Leaderboard.ProbeIndex = run.ProbeIndex

	var entries []entryRow
	if err := db.conn.Select(&entries, `
		SELECT modulation, scheme, functional, ber, accuracy, errors, valid_bits,
		       no_valid_bits, inverted, threshold, margin, probe_x
		FROM leaderboard_entries WHERE run_id = ? ORDER BY position`, id); err != nil {
		return nil, fmt.Errorf("load entries %s: %w", id, err)
	}
	for _, e := range entries {
		out.Suite.Leaderboard.Entries = append(out.Suite.Leaderboard.Entries, bench.Entry{
			Modulation:  e.Modulation,
			Scheme:      field.Scheme(e.Scheme),
			Functional:  e.Functional,
			BER:         e.BER,
			Accuracy:    e.Accuracy,
			Errors:      e.Errors,
			ValidBits:   e.ValidBits,
			NoValidBits: e.NoValidBits,
			Inverted:    e.Inverted,
			Threshold:   orNaN(e.Threshold),
			Margin:      orNaN(e.Margin),
			ProbeX:      e.ProbeX,
		})
	}

	if err := db.conn.Select(&out.Suite.Leaderboard.Skips,
		"SELECT modulation, scheme, reason FROM skips WHERE run_id = ? ORDER BY id", id); err != nil {
		return nil, fmt.Errorf("load skips %s: %w", id, err)
	}

	if err := db.conn.Select(&out.Suite.Noise, `
		SELECT functional, noise_level, ber, errors, valid_bits
		FROM noise_points WHERE run_id = ? ORDER BY id`, id); err != nil {
		return nil, fmt.Errorf("load noise %s: %w", id, err)
	}

	var coupling []couplingRow
	if err := db.conn.Select(&coupling, `
		SELECT label, speed, delay_seconds, delay_steps, ber, accuracy, errors, valid_bits
		FROM coupling_results WHERE run_id = ? ORDER BY id`, id); err != nil {
		return nil, fmt.Errorf("load coupling %s: %w", id, err)
	}
	for _, c := range coupling {
		out.Suite.Coupling = append(out.Suite.Coupling, bench.CouplingResult{
			Label:        c.Label,
			Speed:        orInf(c.Speed),
			DelaySeconds: c.DelaySeconds,
			DelaySteps:   c.DelaySteps,
			BER:          c.BER,
			Accuracy:     c.Accuracy,
			Errors:       c.Errors,
			ValidBits:    c.ValidBits,
		})
	}

	var tn twoNodeRow
	err = db.conn.Get(&tn, `
		SELECT x_a, x_b, delay_seconds, delay_steps, peak_lag, peak_corr, ber, accuracy,
		       errors, valid_bits, no_valid_bits, inverted, threshold, margin
		FROM two_node WHERE run_id = ?`, id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load two-node %s: %w", id, err)
	}
	if err == nil {
		out.Suite.TwoNode = bench.TwoNodeReport{
			XA:           tn.XA,
			XB:           tn.XB,
			DelaySeconds: tn.DelaySeconds,
			DelaySteps:   tn.DelaySteps,
			PeakLag:      tn.PeakLag,
			PeakCorr:     tn.PeakCorr,
			Decode: decode.Result{
				BER:         tn.BER,
				Accuracy:    tn.Accuracy,
				Errors:      tn.Errors,
				ValidBits:   tn.ValidBits,
				NoValidBits: tn.NoValidBits,
				Inverted:    tn.Inverted,
				Threshold:   orNaN(tn.Threshold),
				Margin:      orNaN(tn.Margin),
			},
		}
	}

	return out, nil
}

// LastRunID returns the ID of the most recently saved run.
func (db *DB) LastRunID() (string, error) {
	return db.GetMeta("last_run_id")
}
