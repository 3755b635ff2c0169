package main

import (
	"bytes"
	"database/sql"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/talgya/coherence-lab/internal/persistence"
)

func smallGrid(t *testing.T) {
	t.Helper()
	t.Setenv("COHERENCE_NX", "40")
	t.Setenv("COHERENCE_NT", "100")
	t.Setenv("COHERENCE_SEED", "")
}

func TestRunArchivesSuite(t *testing.T) {
	smallGrid(t)
	path := filepath.Join(t.TempDir(), "data", "lab.db")

	var out bytes.Buffer
	require.NoError(t, run([]string{"-db", path}, &out))
	assert.Contains(t, out.String(), "NOISE SWEEP")
	assert.Contains(t, out.String(), "Run archived as")

	db, err := persistence.Open(path)
	require.NoError(t, err)
	defer db.Close()
	runs, err := db.ListRuns(10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRunReturnsSaveError(t *testing.T) {
	smallGrid(t)
	path := filepath.Join(t.TempDir(), "lab.db")

	// A runs table from an incompatible schema survives migration and makes
	// the insert fail after the database has been opened.
	conn, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = conn.Exec("CREATE TABLE runs (id TEXT PRIMARY KEY)")
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	var out bytes.Buffer
	err = run([]string{"-db", path}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save run")
	assert.NotContains(t, out.String(), "Run archived as")
}

func TestRunWithoutArchive(t *testing.T) {
	smallGrid(t)
	var out bytes.Buffer
	require.NoError(t, run([]string{"-db", ""}, &out))
	assert.Contains(t, out.String(), "TWO-NODE")
}

func TestRunRejectsUnknownFlag(t *testing.T) {
	require.Error(t, run([]string{"-bogus"}, &bytes.Buffer{}))
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, logLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, logLevel("warn"))
	assert.Equal(t, slog.LevelError, logLevel("error"))
	assert.Equal(t, slog.LevelInfo, logLevel("loud"))
}
