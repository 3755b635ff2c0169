// Command labapi serves the run archive over HTTP and lets an admin start
// new benchmark runs.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/talgya/coherence-lab/internal/api"
	"github.com/talgya/coherence-lab/internal/bench"
	"github.com/talgya/coherence-lab/internal/persistence"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(envOrDefault("COHERENCE_LOG_LEVEL", "info")),
	}))
	slog.SetDefault(logger)

	// Configuration from environment.
	dbPath := envOrDefault("COHERENCE_DB", "data/coherence.db")
	port := envIntOrDefault("LABAPI_PORT", 8080)
	adminKey := os.Getenv("LABAPI_ADMIN_KEY")
	runsPerHour := envIntOrDefault("LABAPI_RUNS_PER_HOUR", 6)
	trustedProxies := splitList(os.Getenv("LABAPI_TRUSTED_PROXIES"))

	if adminKey == "" {
		slog.Warn("LABAPI_ADMIN_KEY not set, POST /api/v1/runs is disabled")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		slog.Error("failed to create data dir", "error", err)
		os.Exit(1)
	}
	db, err := persistence.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", dbPath)

	base := bench.DefaultSuiteConfig()
	base.Bench.Workers = envIntOrDefault("COHERENCE_WORKERS", 0)

	srv := &api.Server{
		DB:             db,
		Port:           port,
		AdminKey:       adminKey,
		Base:           base,
		RunsPerHour:    runsPerHour,
		TrustedProxies: trustedProxies,
	}
	httpSrv := srv.Start()
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
	fmt.Println("labapi stopped.")
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

// splitList splits a comma-separated list, dropping empty items.
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
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
