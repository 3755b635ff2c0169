// Package api serves archived benchmark runs over HTTP.
// GET endpoints are public (read-only).
// POST /api/v1/runs requires a bearer token and starts a new suite run.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/talgya/coherence-lab/internal/bench"
	"github.com/talgya/coherence-lab/internal/coherence"
	"github.com/talgya/coherence-lab/internal/field"
	"github.com/talgya/coherence-lab/internal/persistence"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// Server serves the run archive over HTTP.
type Server struct {
	DB       *persistence.DB
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	// Base is the suite configuration POST /api/v1/runs starts from.
	Base bench.SuiteConfig

	// RunsPerHour bounds POST /api/v1/runs per client. Zero means 6.
	RunsPerHour int

	// TrustedProxies lists reverse-proxy addresses allowed to name the client
	// in X-Forwarded-For. Requests from anyone else are limited by peer address.
	TrustedProxies []string

	// Run executes a suite. Nil uses bench.RunSuite.
	Run func(bench.SuiteConfig) (*bench.Suite, error)

	// Set while a suite is running; a second POST gets 409.
	busy atomic.Bool
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	perHour := s.RunsPerHour
	if perHour <= 0 {
		perHour = 6
	}
	runLimiter := NewRateLimiter(perHour, time.Hour)
	runLimiter.TrustProxies(s.TrustedProxies...)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/functionals", s.handleFunctionals)
	mux.HandleFunc("/api/v1/runs", s.handleRuns(runLimiter))
	mux.HandleFunc("/api/v1/runs/", s.handleRunDetail)
	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return srv
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of extra origins.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no LABAPI_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"name":    "coherence-lab",
		"running": s.busy.Load(),
		"db":      s.DB != nil,
	}
	if s.DB != nil {
		if id, err := s.DB.LastRunID(); err == nil {
			status["last_run_id"] = id
		}
	}
	writeJSON(w, status)
}

func (s *Server) handleFunctionals(w http.ResponseWriter, r *http.Request) {
	kinds := make([]string, 0, len(coherence.Kinds()))
	for _, k := range coherence.Kinds() {
		kinds = append(kinds, string(k))
	}
	schemes := make([]string, 0, len(field.Schemes()))
	for _, sc := range field.Schemes() {
		schemes = append(schemes, string(sc))
	}
	writeJSON(w, map[string]any{
		"functionals": kinds,
		"schemes":     schemes,
		"defaults":    s.Base.Functional,
	})
}

// handleRuns dispatches GET (list) and POST (start a run) on /api/v1/runs.
func (s *Server) handleRuns(limiter *RateLimiter) http.HandlerFunc {
	create := s.adminOnly(RateLimitMiddleware(limiter, s.handleCreateRun))
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.handleListRuns(w, r)
		case http.MethodPost:
			create(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxListLimit)
	}

	runs, err := s.DB.ListRuns(limit)
	if err != nil {
		slog.Error("list runs failed", "error", err)
		http.Error(w, "list failed", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []persistence.RunSummary{}
	}
	writeJSON(w, map[string]any{"runs": runs})
}

func (s *Server) handleRunDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/runs/"), "/")
	if id == "" {
		http.Error(w, "missing run id", http.StatusBadRequest)
		return
	}

	run, err := s.DB.LoadRun(id)
	if errors.Is(err, persistence.ErrRunNotFound) {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("load run failed", "run_id", id, "error", err)
		http.Error(w, "load failed", http.StatusInternalServerError)
		return
	}

	out := newSuiteView(&run.Suite)
	out.ID = run.Summary.ID
	out.CreatedAt = run.Summary.CreatedAt
	out.Config = &run.Config
	writeJSON(w, out)
}

// runRequest holds the optional overrides accepted by POST /api/v1/runs.
type runRequest struct {
	Seed       *int64   `json:"seed,omitempty"`
	NoiseLevel *float64 `json:"noise_level,omitempty"`
	ProbeX     *float64 `json:"probe_x,omitempty"`
	Nx         *int     `json:"nx,omitempty"`
	Nt         *int     `json:"nt,omitempty"`
}

func (req runRequest) apply(cfg bench.SuiteConfig) (bench.SuiteConfig, error) {
	if req.Seed != nil {
		cfg = cfg.WithSeed(*req.Seed)
	}
	if req.NoiseLevel != nil {
		if *req.NoiseLevel < 0 {
			return cfg, errors.New("noise_level must be non-negative")
		}
		cfg.Bench.NoiseLevel = *req.NoiseLevel
	}
	if req.ProbeX != nil {
		x := *req.ProbeX
		if x < cfg.Grid.XMin || x > cfg.Grid.XMax {
			return cfg, fmt.Errorf("probe_x %.3f outside [%.3f, %.3f]", x, cfg.Grid.XMin, cfg.Grid.XMax)
		}
		cfg.Bench.ProbeX = &x
	}
	if req.Nx != nil {
		if *req.Nx < 2 || *req.Nx > 2000 {
			return cfg, errors.New("nx must be in [2, 2000]")
		}
		cfg.Grid.Nx = *req.Nx
	}
	if req.Nt != nil {
		if *req.Nt < 2 || *req.Nt > 5000 {
			return cfg, errors.New("nt must be in [2, 5000]")
		}
		cfg.Grid.Nt = *req.Nt
	}
	return cfg, nil
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	var req runRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
	}
	cfg, err := req.apply(s.Base)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if !s.busy.CompareAndSwap(false, true) {
		http.Error(w, "a run is already in progress", http.StatusConflict)
		return
	}
	defer s.busy.Store(false)

	run := s.Run
	if run == nil {
		run = bench.RunSuite
	}
	start := time.Now()
	suite, err := run(cfg)
	if err != nil {
		slog.Error("suite run failed", "error", err)
		http.Error(w, "run failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	id, err := s.DB.SaveRun(cfg, suite)
	if err != nil {
		slog.Error("save run failed", "error", err)
		http.Error(w, "save failed", http.StatusInternalServerError)
		return
	}
	slog.Info("run created via API", "run_id", id, "elapsed", time.Since(start).Round(time.Millisecond))

	out := newSuiteView(suite)
	out.ID = id
	w.Header().Set("Location", "/api/v1/runs/"+id)
	writeJSONStatus(w, http.StatusCreated, out)
}

func writeJSON(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		slog.Error("encode response failed", "error", err)
	}
}
