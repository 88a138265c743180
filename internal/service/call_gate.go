package service

import (
	"context"
	"errors"
	"sync"
)

// ErrGateClosed is returned by Enter once the gate has been closed for shutdown.
var ErrGateClosed = errors.New("call gate is closed")

// ─────────────────────────────────────────────────────────────
// CallGate: one host-facing call at a time
// ─────────────────────────────────────────────────────────────

// CallGate admits one call at a time. Waiters give up when their context ends. Close stops admitting new
// calls; WaitIdle blocks until the call in flight has released the gate.
type CallGate struct {
	slot chan struct{}

	mu       sync.Mutex
	closed   bool
	inFlight sync.WaitGroup
	current  string
}

func NewCallGate() *CallGate {
	return &CallGate{slot: make(chan struct{}, 1)}
}

// Enter blocks until the gate is free and returns the release func. Calling
// release more than once is a no-op.
func (g *CallGate) Enter(ctx context.Context, name string) (func(), error) {
	select {
	case g.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.admit(name)
}

// TryEnter is Enter without waiting. It reports false when a call is in flight.
func (g *CallGate) TryEnter(name string) (func(), bool) {
	select {
	case g.slot <- struct{}{}:
	default:
		return nil, false
	}
	release, err := g.admit(name)
	return release, err == nil
}

// admit runs with the slot held.
func (g *CallGate) admit(name string) (func(), error) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		<-g.slot
		return nil, ErrGateClosed
	}
	g.current = name
	g.inFlight.Add(1)
	g.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			g.current = ""
			g.mu.Unlock()
			g.inFlight.Done()
			<-g.slot
		})
	}, nil
}

// Current names the call holding the gate, or "".
func (g *CallGate) Current() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// Close stops admitting calls. It is idempotent.
func (g *CallGate) Close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
}

// WaitIdle blocks until the in-flight call completes or ctx is cancelled.
func (g *CallGate) WaitIdle(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.inFlight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
