package pool

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_BasicFanOut(t *testing.T) {
	p := New(WithWorkerCount(4))

	var counter atomic.Int64
	for range 1000 {
		if err := p.Dispatch(func() { counter.Add(1) }); err != nil {
			t.Fatalf("unexpected dispatch error: %v", err)
		}
	}

	if err := p.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}

	if got := counter.Load(); got != 1000 {
		t.Errorf("expected 1000 executed tasks, got %d", got)
	}
}

func TestPool_DefaultWorkerCount(t *testing.T) {
	p := New()
	defer p.Close()

	if p.Size() < 1 {
		t.Errorf("expected at least one worker, got %d", p.Size())
	}
}

func TestPool_ShutdownDrainsPendingTasks(t *testing.T) {
	p := New(WithWorkerCount(2))

	var counter atomic.Int64
	for range 10000 {
		if err := p.Dispatch(func() { counter.Add(1) }); err != nil {
			t.Fatalf("unexpected dispatch error: %v", err)
		}
	}

	// Destroy immediately: everything accepted above must still run
	// exactly once before Close returns.
	if err := p.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}

	if got := counter.Load(); got != 10000 {
		t.Errorf("expected 10000 executed tasks, got %d", got)
	}
}

func TestPool_DispatchAfterClose(t *testing.T) {
	p := New(WithWorkerCount(2))
	if err := p.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}

	var ran atomic.Bool
	err := p.Dispatch(func() { ran.Store(true) })
	if !errors.Is(err, ErrPoolDestroyed) {
		t.Fatalf("expected ErrPoolDestroyed, got %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	if ran.Load() {
		t.Error("task dispatched after close must not run")
	}

	if _, err := Submit(p, func() (int, error) { return 1, nil }); !errors.Is(err, ErrPoolDestroyed) {
		t.Errorf("expected ErrPoolDestroyed from Submit, got %v", err)
	}
	if err := p.DispatchBulk([]Task{func() {}}); !errors.Is(err, ErrPoolDestroyed) {
		t.Errorf("expected ErrPoolDestroyed from DispatchBulk, got %v", err)
	}
	if err := p.DispatchSync([]Task{func() {}}); !errors.Is(err, ErrPoolDestroyed) {
		t.Errorf("expected ErrPoolDestroyed from DispatchSync, got %v", err)
	}
	if err := p.DispatchSerial([]Task{func() {}}); !errors.Is(err, ErrPoolDestroyed) {
		t.Errorf("expected ErrPoolDestroyed from DispatchSerial, got %v", err)
	}
	var once sync.Once
	if err := p.DispatchOnce(&once, func() {}); !errors.Is(err, ErrPoolDestroyed) {
		t.Errorf("expected ErrPoolDestroyed from DispatchOnce, got %v", err)
	}
}

func TestPool_DoubleClose(t *testing.T) {
	p := New(WithWorkerCount(1))

	if err := p.Close(); err != nil {
		t.Fatalf("unexpected first close error: %v", err)
	}
	if err := p.Close(); !errors.Is(err, ErrPoolDestroyed) {
		t.Errorf("expected ErrPoolDestroyed on second close, got %v", err)
	}
}

func TestPool_ExactlyOnceUnderRacingClose(t *testing.T) {
	p := New(WithWorkerCount(4))

	var accepted, executed atomic.Int64
	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				err := p.Dispatch(func() { executed.Add(1) })
				if err != nil {
					return
				}
				accepted.Add(1)
			}
		}()
	}

	time.Sleep(10 * time.Millisecond)
	if err := p.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	wg.Wait()

	// Close returns only after the drain; every accepted task has run
	// exactly once by now.
	if accepted.Load() != executed.Load() {
		t.Errorf("accepted %d tasks but executed %d", accepted.Load(), executed.Load())
	}
	if accepted.Load() == 0 {
		t.Error("expected at least one accepted task before the seal")
	}
}

func TestPool_ShutdownTimeout(t *testing.T) {
	p := New(WithWorkerCount(1))

	release := make(chan struct{})
	if err := p.Dispatch(func() { <-release }); err != nil {
		t.Fatalf("unexpected dispatch error: %v", err)
	}

	err := p.Shutdown(20 * time.Millisecond)
	if !errors.Is(err, ErrShutdownTimeout) {
		t.Fatalf("expected ErrShutdownTimeout, got %v", err)
	}

	// Unblock the worker; the background drain finishes the protocol.
	close(release)
	time.Sleep(50 * time.Millisecond)

	if err := p.Close(); !errors.Is(err, ErrPoolDestroyed) {
		t.Errorf("expected pool to be sealed after timed-out shutdown, got %v", err)
	}
}

func TestPool_ShutdownNoTimeoutWaitsForever(t *testing.T) {
	p := New(WithWorkerCount(2))

	var counter atomic.Int64
	for range 100 {
		_ = p.Dispatch(func() { counter.Add(1) })
	}

	if err := p.Shutdown(0); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}
	if got := counter.Load(); got != 100 {
		t.Errorf("expected 100 executed tasks, got %d", got)
	}
}

func TestPool_PanicInVoidTaskKeepsPoolAlive(t *testing.T) {
	var recovered atomic.Value
	p := New(
		WithWorkerCount(2),
		WithPanicHandler(func(r any) { recovered.Store(r) }),
	)

	if err := p.Dispatch(func() { panic("boom") }); err != nil {
		t.Fatalf("unexpected dispatch error: %v", err)
	}

	// The pool must keep executing tasks after the panic.
	var ran atomic.Bool
	deadline := time.After(time.Second)
	for !ran.Load() {
		select {
		case <-deadline:
			t.Fatal("pool stopped executing tasks after a panic")
		default:
		}
		_ = p.Dispatch(func() { ran.Store(true) })
		time.Sleep(time.Millisecond)
	}

	if err := p.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if recovered.Load() != "boom" {
		t.Errorf("expected panic handler to see %q, got %v", "boom", recovered.Load())
	}
}

func TestPool_RateLimitCapsThroughput(t *testing.T) {
	// 50 tasks/sec with burst 1: 5 tasks cannot finish much faster than
	// ~80ms even with spare workers.
	p := New(WithWorkerCount(4), WithRateLimit(50, 1))

	start := time.Now()
	tasks := make([]Task, 5)
	for i := range tasks {
		tasks[i] = func() {}
	}
	if err := p.DispatchSync(tasks); err != nil {
		t.Fatalf("unexpected dispatch error: %v", err)
	}
	elapsed := time.Since(start)

	if err := p.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if elapsed < 60*time.Millisecond {
		t.Errorf("rate limit not applied: 5 tasks finished in %v", elapsed)
	}
}
