// Package persistence archives benchmark runs in SQLite so rankings and sweeps
// can be listed and reloaded later.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/coherence-lab/internal/bench"
)

// ErrRunNotFound is returned by LoadRun for an unknown run ID.
var ErrRunNotFound = errors.New("persistence: run not found")

// Fixed-width UTC timestamps so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// DB wraps a SQLite connection for run storage.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		config_json TEXT NOT NULL,
		probe_x REAL NOT NULL,
		probe_index INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS leaderboard_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		modulation TEXT NOT NULL,
		scheme TEXT NOT NULL,
		functional TEXT NOT NULL,
		ber REAL NOT NULL,
		accuracy REAL NOT NULL,
		errors INTEGER NOT NULL,
		valid_bits INTEGER NOT NULL,
		no_valid_bits INTEGER NOT NULL,
		inverted INTEGER NOT NULL DEFAULT 0,
		threshold REAL,
		margin REAL,
		probe_x REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS skips (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		modulation TEXT NOT NULL,
		scheme TEXT NOT NULL,
		reason TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS noise_points (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		functional TEXT NOT NULL,
		noise_level REAL NOT NULL,
		ber REAL NOT NULL,
		errors INTEGER NOT NULL,
		valid_bits INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS coupling_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		label TEXT NOT NULL,
		speed REAL,
		delay_seconds REAL NOT NULL,
		delay_steps INTEGER NOT NULL,
		ber REAL NOT NULL,
		accuracy REAL NOT NULL,
		errors INTEGER NOT NULL,
		valid_bits INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS two_node (
		run_id TEXT PRIMARY KEY,
		x_a REAL NOT NULL,
		x_b REAL NOT NULL,
		delay_seconds REAL NOT NULL,
		delay_steps INTEGER NOT NULL,
		peak_lag REAL NOT NULL,
		peak_corr REAL NOT NULL,
		ber REAL NOT NULL,
		accuracy REAL NOT NULL,
		errors INTEGER NOT NULL,
		valid_bits INTEGER NOT NULL,
		no_valid_bits INTEGER NOT NULL,
		inverted INTEGER NOT NULL DEFAULT 0,
		threshold REAL,
		margin REAL
	);

	CREATE TABLE IF NOT EXISTS lab_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entries_run ON leaderboard_entries(run_id);
	CREATE INDEX IF NOT EXISTS idx_noise_run ON noise_points(run_id);
	CREATE INDEX IF NOT EXISTS idx_coupling_run ON coupling_results(run_id);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// nullable maps NaN and ±Inf to SQL NULL.
func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

// orNaN maps SQL NULL back to NaN.
func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

// orInf maps SQL NULL back to +Inf (instantaneous coupling).
func orInf(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.Inf(1)
	}
	return v.Float64
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// SaveRun stores a complete suite under a new run ID and returns it.
func (db *DB) SaveRun(cfg bench.SuiteConfig, suite *bench.Suite) (string, error) {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}

	id := uuid.NewString()
	slog.Info("saving run", "run_id", id, "entries", len(suite.Leaderboard.Entries))

	tx, err := db.conn.Beginx()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO runs (id, created_at, config_json, probe_x, probe_index) VALUES (?, ?, ?, ?, ?)",
		id, time.Now().UTC().Format(timeLayout), string(cfgJSON),
		suite.Leaderboard.ProbeX, suite.Leaderboard.ProbeIndex,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Preparex(`INSERT INTO leaderboard_entries
		(run_id, position, modulation, scheme, functional, ber, accuracy, errors,
		 valid_bits, no_valid_bits, inverted, threshold, margin, probe_x)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for rank, e := range suite.Leaderboard.Entries {
		_, err := stmt.Exec(
			id, rank, e.Modulation, string(e.Scheme), e.Functional, e.BER, e.Accuracy, e.Errors,
			e.ValidBits, boolInt(e.NoValidBits), boolInt(e.Inverted), nullable(e.Threshold), nullable(e.Margin), e.ProbeX,
		)
		if err != nil {
			return "", fmt.Errorf("insert entry %d: %w", rank, err)
		}
	}

	for _, s := range suite.Leaderboard.Skips {
		if _, err := tx.Exec(
			"INSERT INTO skips (run_id, modulation, scheme, reason) VALUES (?, ?, ?, ?)",
			id, s.Modulation, s.Scheme, s.Reason,
		); err != nil {
			return "", fmt.Errorf("insert skip %s: %w", s.Modulation, err)
		}
	}

	for _, p := range suite.Noise {
		if _, err := tx.Exec(
			"INSERT INTO noise_points (run_id, functional, noise_level, ber, errors, valid_bits) VALUES (?, ?, ?, ?, ?, ?)",
			id, p.Functional, p.NoiseLevel, p.BER, p.Errors, p.ValidBits,
		); err != nil {
			return "", fmt.Errorf("insert noise point: %w", err)
		}
	}

	for _, c := range suite.Coupling {
		if _, err := tx.Exec(`INSERT INTO coupling_results
			(run_id, label, speed, delay_seconds, delay_steps, ber, accuracy, errors, valid_bits)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, c.Label, nullable(c.Speed), c.DelaySeconds, c.DelaySteps, c.BER, c.Accuracy, c.Errors, c.ValidBits,
		); err != nil {
			return "", fmt.Errorf("insert coupling %s: %w", c.Label, err)
		}
	}

	tn := suite.TwoNode
	if _, err := tx.Exec(`INSERT INTO two_node
		(run_id, x_a, x_b, delay_seconds, delay_steps, peak_lag, peak_corr, ber, accuracy,
		 errors, valid_bits, no_valid_bits, inverted, threshold, margin)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, tn.XA, tn.XB, tn.DelaySeconds, tn.DelaySteps, tn.PeakLag, tn.PeakCorr,
		tn.Decode.BER, tn.Decode.Accuracy, tn.Decode.Errors, tn.Decode.ValidBits,
		boolInt(tn.Decode.NoValidBits), boolInt(tn.Decode.Inverted), nullable(tn.Decode.Threshold), nullable(tn.Decode.Margin),
	); err != nil {
		return "", fmt.Errorf("insert two-node: %w", err)
	}

	if _, err := tx.Exec("INSERT OR REPLACE INTO lab_meta (key, value) VALUES (?, ?)", "last_run_id", id); err != nil {
		return "", fmt.Errorf("save meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	slog.Info("run saved", "run_id", id)
	return id, nil
}

// SaveMeta stores a key-value pair in lab metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO lab_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM lab_meta WHERE key = ?", key)
	return value, err
}
