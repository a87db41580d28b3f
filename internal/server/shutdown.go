package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"
)

// Hook priorities. Lower values run first.
const (
	PriorityHTTP    = 10
	PriorityWorker  = 20
	PrioritySinks   = 60
	PriorityStores  = 70
	PriorityTracing = 80
)

// ShutdownHook is one step of an ordered shutdown.
type ShutdownHook struct {
	Name     string
	Priority int
	Fn       func(ctx context.Context) error
}

// ShutdownConfig configures a ShutdownHandler.
type ShutdownConfig struct {
	// Timeout bounds the whole hook run. Defaults to 30s.
	Timeout time.Duration
	// Signals defaults to SIGTERM and SIGINT.
	Signals []os.Signal
	Logger  *slog.Logger
}

// ShutdownHandler runs registered hooks in priority order once a signal
// arrives or Shutdown is called.
type ShutdownHandler struct {
	mu      sync.Mutex
	hooks   []ShutdownHook
	timeout time.Duration
	signals []os.Signal
	logger  *slog.Logger
	err     error

	startOnce   sync.Once
	triggerOnce sync.Once
	triggerCh   chan struct{}
	doneCh      chan struct{}
}

// NewShutdownHandler returns a handler with defaults filled in.
func NewShutdownHandler(cfg ShutdownConfig) *ShutdownHandler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if len(cfg.Signals) == 0 {
		cfg.Signals = []os.Signal{syscall.SIGTERM, syscall.SIGINT}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &ShutdownHandler{
		timeout:   cfg.Timeout,
		signals:   cfg.Signals,
		logger:    cfg.Logger,
		triggerCh: make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Register adds hooks. Hooks with equal priority keep registration order.
func (s *ShutdownHandler) Register(hooks ...ShutdownHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hooks...)
	sort.SliceStable(s.hooks, func(i, j int) bool {
		return s.hooks[i].Priority < s.hooks[j].Priority
	})
}

// RegisterHook is shorthand for Register with a single hook.
func (s *ShutdownHandler) RegisterHook(name string, priority int, fn func(ctx context.Context) error) {
	s.Register(ShutdownHook{Name: name, Priority: priority, Fn: fn})
}

// Start begins watching for signals. Calling it more than once is harmless.
func (s *ShutdownHandler) Start() {
	s.startOnce.Do(func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, s.signals...)
		go func() {
			var reason string
			select {
			case sig := <-sigCh:
				reason = sig.String()
			case <-s.triggerCh:
				reason = "requested"
			}
			signal.Stop(sigCh)
			s.run(reason)
		}()
	})
}

// Shutdown triggers the hook run. Start must have been called.
func (s *ShutdownHandler) Shutdown() {
	s.triggerOnce.Do(func() { close(s.triggerCh) })
}

// Wait blocks until every hook has run and returns their joined errors.
func (s *ShutdownHandler) Wait() error {
	<-s.doneCh
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// WaitWithTimeout reports whether shutdown finished within timeout.
func (s *ShutdownHandler) WaitWithTimeout(timeout time.Duration) bool {
	select {
	case <-s.doneCh:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Done closes after the last hook returns.
func (s *ShutdownHandler) Done() <-chan struct{} { return s.doneCh }

// Triggered closes when shutdown begins for any reason other than a signal.
func (s *ShutdownHandler) Triggered() <-chan struct{} { return s.triggerCh }

func (s *ShutdownHandler) run(reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	s.mu.Lock()
	hooks := make([]ShutdownHook, len(s.hooks))
	copy(hooks, s.hooks)
	s.mu.Unlock()

	s.logger.Info("shutting down", "reason", reason, "hooks", len(hooks))
	var errs []error
	for _, h := range hooks {
		start := time.Now()
		if err := h.Fn(ctx); err != nil {
			s.logger.Error("shutdown hook failed", "hook", h.Name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", h.Name, err))
			continue
		}
		s.logger.Debug("shutdown hook done", "hook", h.Name, "duration", time.Since(start))
	}

	s.mu.Lock()
	s.err = errors.Join(errs...)
	s.mu.Unlock()
	close(s.doneCh)
}

// HealthServerHook stops the probe listener first so load balancers drain.
func HealthServerHook(h *HealthServer) ShutdownHook {
	return ShutdownHook{Name: "health-server", Priority: PriorityHTTP, Fn: h.Shutdown}
}

// TemporalWorkerHook stops the scan worker after in-flight activities finish.
func TemporalWorkerHook(stop func()) ShutdownHook {
	return ShutdownHook{
		Name:     "temporal-worker",
		Priority: PriorityWorker,
		Fn: func(context.Context) error {
			stop()
			return nil
		},
	}
}

// CloserHook closes a sink or store that takes no context.
func CloserHook(name string, priority int, closeFn func() error) ShutdownHook {
	return ShutdownHook{
		Name:     name,
		Priority: priority,
		Fn:       func(context.Context) error { return closeFn() },
	}
}

// TracingHook flushes and stops the tracer provider last.
func TracingHook(shutdown func(ctx context.Context) error) ShutdownHook {
	return ShutdownHook{Name: "tracing", Priority: PriorityTracing, Fn: shutdown}
}
