// Command coherencelab runs the full benchmark suite once, prints the
// leaderboard and sweeps, and archives the run.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/coherence-lab/internal/bench"
	"github.com/talgya/coherence-lab/internal/persistence"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(envOrDefault("COHERENCE_LOG_LEVEL", "info")),
	}))
	slog.SetDefault(logger)

	if err := run(os.Args[1:], os.Stdout); err != nil {
		slog.Error("coherencelab failed", "error", err)
		os.Exit(1)
	}
}

// run parses args, runs the suite, writes the report to out and archives the
// run. Every resource it opens is closed before it returns.
func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("coherencelab", flag.ContinueOnError)
	dbPath := fs.String("db", envOrDefault("COHERENCE_DB", "data/coherence.db"), "SQLite archive path; empty disables saving")
	seed := fs.Int64("seed", int64(envIntOrDefault("COHERENCE_SEED", 0)), "base seed for field and decode streams; 0 keeps the reference seeds")
	noise := fs.Float64("noise", 0, "decoder noise level for the leaderboard")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := bench.DefaultSuiteConfig()
	if *seed != 0 {
		cfg = cfg.WithSeed(*seed)
	}
	cfg.Grid.Nx = envIntOrDefault("COHERENCE_NX", cfg.Grid.Nx)
	cfg.Grid.Nt = envIntOrDefault("COHERENCE_NT", cfg.Grid.Nt)
	cfg.Bench.Workers = envIntOrDefault("COHERENCE_WORKERS", 0)
	cfg.Bench.NoiseLevel = *noise

	slog.Info("coherence lab starting",
		"field_seed", cfg.TwoNode.Seed,
		"decode_seed", cfg.Bench.DecodeSeed,
		"nx", cfg.Grid.Nx,
		"nt", cfg.Grid.Nt,
		"tau", cfg.Functional.Tau,
	)

	start := time.Now()
	suite, err := bench.RunSuite(cfg)
	if err != nil {
		return fmt.Errorf("suite: %w", err)
	}
	slog.Info("suite finished", "elapsed", time.Since(start).Round(time.Millisecond))

	fmt.Fprint(out, bench.FormatSuite(suite))

	if *dbPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	db, err := persistence.Open(*dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	id, err := db.SaveRun(cfg, suite)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	fmt.Fprintf(out, "\nRun archived as %s in %s\n", id, *dbPath)
	return nil
}

func logLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}
