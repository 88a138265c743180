// Package dialog keeps host calls that raise a blocking modal dialog from
// hanging the caller. A watcher polls for the dialog while the call runs and
// confirms it as soon as it appears.
package dialog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"cadbridge/internal/domain"
)

// Outcome is how a watcher finished.
type Outcome string

const (
	// The dialog appeared and was confirmed.
	OutcomeDismissed Outcome = "dismissed"
	// No dialog appeared within the detection window. Not an error.
	OutcomeTimedOut Outcome = "timed_out"
	// The guarded call returned before any dialog was seen.
	OutcomeCancelled Outcome = "cancelled"
)

// Options are the watcher timings.
type Options struct {
	PollInterval time.Duration
	Timeout      time.Duration
	// HungCallAfter is how long the call may keep running after the watcher
	// has finished before it is reported as hung. Zero waits forever.
	HungCallAfter time.Duration
}

func DefaultOptions() Options {
	return Options{
		PollInterval:  100 * time.Millisecond,
		Timeout:       10 * time.Second,
		HungCallAfter: 2 * time.Minute,
	}
}

// Report describes one supervised call.
type Report struct {
	Op      string        `json:"op"`
	Outcome Outcome       `json:"outcome"`
	Polls   int           `json:"polls"`
	Window  string        `json:"window,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
}

// Supervisor runs guarded calls one at a time.
type Supervisor struct {
	// busy holds one token per guarded call in flight. A hung call keeps its
	// token until it finally returns.
	busy   chan struct{}
	finder Finder
	logger *slog.Logger

	optsMu sync.RWMutex
	opts   Options

	hungMu sync.Mutex
	hung   string // op of the guarded call still running past HungCallAfter
}

func NewSupervisor(finder Finder, opts Options, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		busy:   make(chan struct{}, 1),
		finder: finder,
		opts:   opts,
		logger: logger.With("component", "dialog"),
	}
}

// SetOptions replaces the timings used by later guarded calls.
func (s *Supervisor) SetOptions(o Options) {
	s.optsMu.Lock()
	s.opts = o
	s.optsMu.Unlock()
}

func (s *Supervisor) Options() Options {
	s.optsMu.RLock()
	defer s.optsMu.RUnlock()
	return s.opts
}

// Hung returns the op of a guarded call that outlived HungCallAfter and has
// not returned yet, or "".
func (s *Supervisor) Hung() string {
	s.hungMu.Lock()
	defer s.hungMu.Unlock()
	return s.hung
}

func (s *Supervisor) setHung(op string) {
	s.hungMu.Lock()
	s.hung = op
	s.hungMu.Unlock()
}

// Guard runs call under a dialog watch. See Run.
func (s *Supervisor) Guard(ctx context.Context, op string, sig Signature, call func() error) (Report, error) {
	_, rep, err := Run(ctx, s, op, sig, func() (struct{}, error) {
		return struct{}{}, call()
	})
	return rep, err
}

type callResult[T any] struct {
	val T
	err error
}

// Run executes call concurrently with a watcher looking for sig. The watcher
// stops as soon as call returns and Run waits for it to exit before returning.
// call's own error is returned unchanged.
//
// If the watcher finishes first, Run keeps waiting for call. When call is
// still running opts.HungCallAfter later, Run returns *domain.DialogTimeoutError
// and leaves call running; its eventual result is only logged. Until it
// returns, later guarded calls fail with a HostCallError instead of running
// alongside it.
func Run[T any](ctx context.Context, s *Supervisor, op string, sig Signature, call func() (T, error)) (T, Report, error) {
	var zero T
	if hung := s.Hung(); hung != "" {
		return zero, Report{Op: op}, domain.HostFailure(op, "the previous %s call is still running on the host", hung)
	}
	select {
	case s.busy <- struct{}{}:
	case <-ctx.Done():
		return zero, Report{Op: op, Outcome: OutcomeCancelled}, ctx.Err()
	}
	release := func() { <-s.busy }

	opts := s.Options()
	start := time.Now()

	results := make(chan callResult[T], 1)
	go func() {
		v, err := call()
		results <- callResult[T]{val: v, err: err}
	}()

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	reports := make(chan Report, 1)
	go func() {
		reports <- s.watch(watchCtx, op, sig, opts)
	}()

	select {
	case res := <-results:
		cancel()
		rep := <-reports
		rep.Elapsed = time.Since(start)
		s.logOutcome(rep)
		release()
		return res.val, rep, res.err

	case rep := <-reports:
		s.logOutcome(rep)
		res, ok := awaitCall(results, opts.HungCallAfter)
		rep.Elapsed = time.Since(start)
		if ok {
			release()
			return res.val, rep, res.err
		}
		s.logger.Warn("guarded call still running", "op", op, "elapsed", rep.Elapsed, "polls", rep.Polls)
		s.setHung(op)
		go func() {
			late := <-results
			s.logger.Warn("hung call returned", "op", op, "after", time.Since(start), "error", late.err)
			s.setHung("")
			release()
		}()
		return zero, rep, &domain.DialogTimeoutError{Op: op, Elapsed: rep.Elapsed, Polls: rep.Polls}
	}
}

// awaitCall waits for the call result, giving up after d when d is positive.
func awaitCall[T any](results <-chan callResult[T], d time.Duration) (callResult[T], bool) {
	if d <= 0 {
		return <-results, true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case res := <-results:
		return res, true
	case <-timer.C:
		return callResult[T]{}, false
	}
}

// watch polls for sig until it is found and dismissed, the detection window
// closes, or ctx is cancelled.
func (s *Supervisor) watch(ctx context.Context, op string, sig Signature, opts Options) Report {
	rep := Report{Op: op}

	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(opts.Timeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			rep.Outcome = OutcomeCancelled
			return rep
		case <-deadline.C:
			rep.Outcome = OutcomeTimedOut
			return rep
		case <-ticker.C:
			rep.Polls++
			w, ok, err := s.finder.Find(sig)
			if err != nil {
				s.logger.Debug("window scan failed", "op", op, "error", err)
				continue
			}
			if !ok {
				continue
			}
			if err := s.finder.Dismiss(w); err != nil {
				s.logger.Warn("dismiss failed", "op", op, "window", w.Title, "error", err)
				continue
			}
			rep.Outcome = OutcomeDismissed
			rep.Window = w.Title
			return rep
		}
	}
}

func (s *Supervisor) logOutcome(rep Report) {
	s.logger.Debug("dialog watch finished",
		"op", rep.Op, "outcome", string(rep.Outcome), "polls", rep.Polls, "window", rep.Window)
}
