package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cadbridge/internal/service"
)

// ─────────────────────────────────────────────────────────────
// CallGate tests
// ─────────────────────────────────────────────────────────────

func TestCallGate_TryEnter(t *testing.T) {
	g := service.NewCallGate()

	release, ok := g.TryEnter("solidworks_sketch_circle")
	if !ok {
		t.Fatal("expected first TryEnter to succeed")
	}
	if g.Current() != "solidworks_sketch_circle" {
		t.Errorf("Current = %q", g.Current())
	}
	if _, ok := g.TryEnter("solidworks_sketch_rectangle"); ok {
		t.Fatal("expected TryEnter to fail while a call is in flight")
	}
	release()
	release() // no-op

	if g.Current() != "" {
		t.Errorf("Current after release = %q", g.Current())
	}
	release2, ok := g.TryEnter("solidworks_sketch_rectangle")
	if !ok {
		t.Fatal("expected TryEnter to succeed after release")
	}
	release2()
}

func TestCallGate_SerializesCalls(t *testing.T) {
	g := service.NewCallGate()

	var mu sync.Mutex
	active, peak := 0, 0
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := g.Enter(context.Background(), "call")
			if err != nil {
				t.Errorf("Enter: %v", err)
				return
			}
			defer release()
			mu.Lock()
			active++
			if active > peak {
				peak = active
			}
			mu.Unlock()
			time.Sleep(2 * time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()
	if peak != 1 {
		t.Errorf("expected one call at a time, saw %d", peak)
	}
}

func TestCallGate_EnterHonorsContext(t *testing.T) {
	g := service.NewCallGate()
	release, _ := g.TryEnter("first")
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := g.Enter(ctx, "second"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", err)
	}
}

func TestCallGate_CloseAndWaitIdle(t *testing.T) {
	g := service.NewCallGate()
	release, _ := g.TryEnter("long call")
	g.Close()

	idle := make(chan struct{})
	go func() {
		g.WaitIdle(context.Background())
		close(idle)
	}()

	select {
	case <-idle:
		t.Fatal("WaitIdle returned while a call was in flight")
	case <-time.After(20 * time.Millisecond):
	}

	release()
	select {
	case <-idle:
	case <-time.After(time.Second):
		t.Fatal("WaitIdle hung after the call released")
	}

	if _, err := g.Enter(context.Background(), "late"); !errors.Is(err, service.ErrGateClosed) {
		t.Errorf("expected ErrGateClosed, got %v", err)
	}
}

func TestCallGate_WaitIdle_Immediate(t *testing.T) {
	g := service.NewCallGate()
	done := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		g.WaitIdle(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("WaitIdle hung with no call in flight")
	}
}

func TestRelay_DropsUntilAttached(t *testing.T) {
	var r service.Relay
	r.Emit(context.Background(), service.EventShapePlaced, nil)

	em := &service.MockEmitter{}
	r.Attach(em)
	r.Emit(context.Background(), service.EventSketchOpened, "Sketch1")

	names := em.Names()
	if len(names) != 1 || names[0] != service.EventSketchOpened {
		t.Errorf("events = %v", names)
	}
}
