package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

func quietHandler(timeout time.Duration) *ShutdownHandler {
	return NewShutdownHandler(ShutdownConfig{
		Timeout: timeout,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestNewShutdownHandler_Defaults(t *testing.T) {
	h := NewShutdownHandler(ShutdownConfig{})
	if h.timeout != 30*time.Second {
		t.Errorf("timeout %v", h.timeout)
	}
	if len(h.signals) != 2 {
		t.Errorf("expected SIGTERM and SIGINT, got %v", h.signals)
	}
}

func TestShutdownHandler_RunsHooksInPriorityOrder(t *testing.T) {
	h := quietHandler(time.Second)

	var mu sync.Mutex
	var order []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}
	h.RegisterHook("tracing", PriorityTracing, record("tracing"))
	h.RegisterHook("amqp", PrioritySinks, record("amqp"))
	h.RegisterHook("health", PriorityHTTP, record("health"))
	h.RegisterHook("s3", PrioritySinks, record("s3"))
	h.RegisterHook("worker", PriorityWorker, record("worker"))

	h.Start()
	h.Shutdown()
	if err := h.Wait(); err != nil {
		t.Fatal(err)
	}

	want := "health,worker,amqp,s3,tracing"
	if got := strings.Join(order, ","); got != want {
		t.Fatalf("order %s, want %s", got, want)
	}
}

func TestShutdownHandler_HookErrorsAreJoined(t *testing.T) {
	h := quietHandler(time.Second)
	ran := false
	h.Register(
		CloserHook("neo4j", PriorityStores, func() error { return errors.New("driver busy") }),
		TracingHook(func(context.Context) error { ran = true; return nil }),
	)
	h.Start()
	h.Shutdown()

	err := h.Wait()
	if err == nil || !strings.Contains(err.Error(), "neo4j: driver busy") {
		t.Fatalf("unexpected error %v", err)
	}
	if !ran {
		t.Error("later hooks must still run after a failure")
	}
}

func TestShutdownHandler_WaitWithTimeout(t *testing.T) {
	h := quietHandler(time.Second)
	release := make(chan struct{})
	h.RegisterHook("slow", 1, func(context.Context) error {
		<-release
		return nil
	})
	h.Start()
	h.Shutdown()

	if h.WaitWithTimeout(20 * time.Millisecond) {
		t.Fatal("expected timeout while hook blocks")
	}
	close(release)
	if !h.WaitWithTimeout(time.Second) {
		t.Fatal("expected completion after release")
	}
}

func TestShutdownHandler_StartAndShutdownAreIdempotent(t *testing.T) {
	h := quietHandler(time.Second)
	calls := 0
	h.RegisterHook("once", 1, func(context.Context) error { calls++; return nil })
	h.Start()
	h.Start()
	h.Shutdown()
	h.Shutdown()
	if err := h.Wait(); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("hook ran %d times", calls)
	}
	select {
	case <-h.Triggered():
	default:
		t.Error("Triggered should be closed")
	}
}

func TestHookConstructors(t *testing.T) {
	stopped := false
	hooks := []ShutdownHook{
		HealthServerHook(NewHealthServer(HealthConfig{})),
		TemporalWorkerHook(func() { stopped = true }),
		CloserHook("qdrant", PriorityStores, func() error { return nil }),
		TracingHook(func(context.Context) error { return nil }),
	}
	wantPriority := []int{PriorityHTTP, PriorityWorker, PriorityStores, PriorityTracing}
	for i, h := range hooks {
		if h.Priority != wantPriority[i] {
			t.Errorf("%s: priority %d, want %d", h.Name, h.Priority, wantPriority[i])
		}
		if err := h.Fn(context.Background()); err != nil {
			t.Errorf("%s: %v", h.Name, err)
		}
	}
	if !stopped {
		t.Error("temporal worker stop not called")
	}
}
