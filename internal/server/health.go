// Package server hosts the worker's probe endpoints and its ordered shutdown.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Status is the health state of one dependency or of the whole worker.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// Check is the result of probing one dependency.
type Check struct {
	Name     string            `json:"name"`
	Status   Status            `json:"status"`
	Message  string            `json:"message,omitempty"`
	Duration string            `json:"duration,omitempty"`
	Details  map[string]string `json:"details,omitempty"`
}

// Report is the body of every probe endpoint.
type Report struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
	TaskQueue string    `json:"taskQueue,omitempty"`
	Checks    []Check   `json:"checks,omitempty"`
}

// Checker probes a dependency.
type Checker func(ctx context.Context) Check

// HealthConfig configures a HealthServer.
type HealthConfig struct {
	Version   string
	TaskQueue string
	// Timeout bounds a full /health run. Defaults to 5s.
	Timeout time.Duration
	Logger  *slog.Logger
}

// HealthServer serves /health, /ready and /live plus their z-suffixed aliases.
type HealthServer struct {
	mu      sync.RWMutex
	checks  map[string]Checker
	cfg     HealthConfig
	ready   bool
	live    bool
	httpSrv *http.Server
}

// NewHealthServer returns a server that is live but not yet ready.
func NewHealthServer(cfg HealthConfig) *HealthServer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &HealthServer{
		checks: make(map[string]Checker),
		cfg:    cfg,
		live:   true,
	}
}

// RegisterCheck adds or replaces the checker under name.
func (s *HealthServer) RegisterCheck(name string, c Checker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = c
}

// SetReady toggles the readiness probe.
func (s *HealthServer) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// SetLive toggles the liveness probe.
func (s *HealthServer) SetLive(live bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = live
}

// Handler returns the probe mux.
func (s *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	for _, p := range []string{"/health", "/healthz"} {
		mux.HandleFunc(p, s.handleHealth)
	}
	for _, p := range []string{"/ready", "/readyz"} {
		mux.HandleFunc(p, s.flagHandler(func() bool { return s.ready }))
	}
	for _, p := range []string{"/live", "/livez"} {
		mux.HandleFunc(p, s.flagHandler(func() bool { return s.live }))
	}
	return mux
}

// ListenAndServe serves the probes until Shutdown. A clean shutdown returns nil.
func (s *HealthServer) ListenAndServe(addr string) error {
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: s.cfg.Timeout + time.Second,
	}
	s.mu.Lock()
	s.httpSrv = srv
	s.mu.Unlock()

	s.cfg.Logger.Info("health server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP listener. It is a no-op before ListenAndServe.
func (s *HealthServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpSrv
	s.ready = false
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Run executes every registered check in name order and folds the results.
// Any unhealthy check makes the report unhealthy; otherwise any degraded
// check makes it degraded.
func (s *HealthServer) Run(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	s.mu.RLock()
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	checks := make(map[string]Checker, len(s.checks))
	for k, v := range s.checks {
		checks[k] = v
	}
	s.mu.RUnlock()
	sort.Strings(names)

	rep := Report{
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC(),
		Version:   s.cfg.Version,
		TaskQueue: s.cfg.TaskQueue,
		Checks:    make([]Check, 0, len(names)),
	}
	for _, name := range names {
		start := time.Now()
		c := checks[name](ctx)
		c.Name = name
		c.Duration = time.Since(start).Round(time.Microsecond).String()
		rep.Checks = append(rep.Checks, c)

		switch c.Status {
		case StatusUnhealthy:
			rep.Status = StatusUnhealthy
		case StatusDegraded:
			if rep.Status == StatusHealthy {
				rep.Status = StatusDegraded
			}
		}
	}
	return rep
}

func (s *HealthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	rep := s.Run(r.Context())
	code := http.StatusOK
	if rep.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
		s.cfg.Logger.Warn("health check failed", "checks", len(rep.Checks))
	}
	writeJSON(w, code, rep)
}

func (s *HealthServer) flagHandler(flag func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		ok := flag()
		s.mu.RUnlock()

		rep := Report{Status: StatusHealthy, Timestamp: time.Now().UTC()}
		if !ok {
			rep.Status = StatusUnhealthy
			writeJSON(w, http.StatusServiceUnavailable, rep)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// DependencyChecker wraps a ping function. A failing required dependency is
// unhealthy; a failing optional one only degrades the worker.
func DependencyChecker(kind, target string, required bool, ping func(ctx context.Context) error) Checker {
	return func(ctx context.Context) Check {
		details := map[string]string{"target": target}
		if err := ping(ctx); err != nil {
			status := StatusDegraded
			if required {
				status = StatusUnhealthy
			}
			return Check{Status: status, Message: kind + " unreachable: " + err.Error(), Details: details}
		}
		return Check{Status: StatusHealthy, Message: kind + " reachable", Details: details}
	}
}

// TemporalChecker probes the Temporal frontend. The worker cannot run without it.
func TemporalChecker(hostPort string, ping func(ctx context.Context) error) Checker {
	return DependencyChecker("temporal", hostPort, true, ping)
}

// GraphStoreChecker probes the Neo4j graph store.
func GraphStoreChecker(uri string, ping func(ctx context.Context) error) Checker {
	return DependencyChecker("graph store", uri, false, ping)
}

// VectorStoreChecker probes the Qdrant collection.
func VectorStoreChecker(addr string, ping func(ctx context.Context) error) Checker {
	return DependencyChecker("vector store", addr, false, ping)
}
