package dialog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cadbridge/internal/domain"
)

// fakeFinder shows a dialog once visible is closed and signals dismissed
// when the dialog is confirmed.
type fakeFinder struct {
	mu        sync.Mutex
	visible   chan struct{}
	dismissed chan struct{}
	scans     int
	dismisses int
	failScan  bool
}

func newFakeFinder() *fakeFinder {
	return &fakeFinder{visible: make(chan struct{}), dismissed: make(chan struct{})}
}

func (f *fakeFinder) show() { close(f.visible) }

func (f *fakeFinder) Find(sig Signature) (Window, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans++
	if f.failScan {
		return Window{}, false, errors.New("access denied")
	}
	select {
	case <-f.visible:
		w := Window{Handle: 42, Class: "#32770", Title: "Modify"}
		return w, sig.Matches(w), nil
	default:
		return Window{}, false, nil
	}
}

func (f *fakeFinder) Dismiss(Window) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dismisses++
	if f.dismisses == 1 {
		close(f.dismissed)
	}
	return nil
}

func (f *fakeFinder) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scans, f.dismisses
}

func testOptions() Options {
	return Options{PollInterval: 5 * time.Millisecond, Timeout: 200 * time.Millisecond, HungCallAfter: 0}
}

func TestGuard_NoDialog_ReturnsPromptly(t *testing.T) {
	finder := newFakeFinder()
	s := NewSupervisor(finder, Options{PollInterval: 20 * time.Millisecond, Timeout: 5 * time.Second}, nil)

	start := time.Now()
	rep, err := s.Guard(context.Background(), "add dimension", ModifyDimension, func() error {
		time.Sleep(30 * time.Millisecond)
		return nil
	})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Guard: %v", err)
	}
	if rep.Outcome != OutcomeCancelled {
		t.Errorf("outcome = %s, want %s", rep.Outcome, OutcomeCancelled)
	}
	// Natural latency plus at most one poll, with slack for the scheduler.
	if elapsed > 30*time.Millisecond+20*time.Millisecond+100*time.Millisecond {
		t.Errorf("guard overhead too large: %s", elapsed)
	}
	if _, dismisses := finder.counts(); dismisses != 0 {
		t.Errorf("expected no dismiss, got %d", dismisses)
	}
}

func TestGuard_DismissesBlockingDialog(t *testing.T) {
	finder := newFakeFinder()
	s := NewSupervisor(finder, testOptions(), nil)

	// The call raises the dialog and blocks until it is confirmed.
	rep, err := s.Guard(context.Background(), "hole wizard", Signature{Class: "#32770", Title: "modify"}, func() error {
		finder.show()
		select {
		case <-finder.dismissed:
			return nil
		case <-time.After(5 * time.Second):
			return errors.New("dialog was never dismissed")
		}
	})
	if err != nil {
		t.Fatalf("Guard: %v", err)
	}
	if rep.Outcome != OutcomeDismissed || rep.Window != "Modify" {
		t.Errorf("report = %+v", rep)
	}
	if _, dismisses := finder.counts(); dismisses != 1 {
		t.Errorf("expected 1 dismiss, got %d", dismisses)
	}
}

func TestGuard_PropagatesCallError(t *testing.T) {
	finder := newFakeFinder()
	s := NewSupervisor(finder, testOptions(), nil)

	hostErr := domain.HostFailure("add dimension", "invalid selection")
	_, err := s.Guard(context.Background(), "add dimension", ModifyDimension, func() error {
		return hostErr
	})
	if !errors.Is(err, hostErr) {
		t.Fatalf("expected the call's own error, got %v", err)
	}
	if errors.Is(err, domain.ErrDialogTimeout) {
		t.Error("call error was masked as a dialog timeout")
	}
}

func TestGuard_WatcherTimeoutIsNotAnError(t *testing.T) {
	finder := newFakeFinder()
	s := NewSupervisor(finder, Options{PollInterval: 5 * time.Millisecond, Timeout: 20 * time.Millisecond}, nil)

	rep, err := s.Guard(context.Background(), "add dimension", ModifyDimension, func() error {
		time.Sleep(80 * time.Millisecond)
		return nil
	})
	if err != nil {
		t.Fatalf("Guard: %v", err)
	}
	if rep.Outcome != OutcomeTimedOut {
		t.Errorf("outcome = %s, want %s", rep.Outcome, OutcomeTimedOut)
	}
	if rep.Polls == 0 {
		t.Error("expected the watcher to poll at least once")
	}
}

func TestGuard_HungCallDiagnostic(t *testing.T) {
	finder := newFakeFinder()
	s := NewSupervisor(finder, Options{
		PollInterval:  5 * time.Millisecond,
		Timeout:       20 * time.Millisecond,
		HungCallAfter: 30 * time.Millisecond,
	}, nil)

	release := make(chan struct{})
	defer close(release)

	_, err := s.Guard(context.Background(), "hole wizard", HoleWizard, func() error {
		<-release
		return nil
	})
	var dte *domain.DialogTimeoutError
	if !errors.As(err, &dte) {
		t.Fatalf("expected DialogTimeoutError, got %v", err)
	}
	if dte.Op != "hole wizard" || dte.Polls == 0 {
		t.Errorf("diagnostic = %+v", dte)
	}
}

func TestGuard_ScanErrorsKeepPolling(t *testing.T) {
	finder := newFakeFinder()
	finder.failScan = true
	s := NewSupervisor(finder, testOptions(), nil)

	_, err := s.Guard(context.Background(), "add dimension", ModifyDimension, func() error {
		time.Sleep(40 * time.Millisecond)
		return nil
	})
	if err != nil {
		t.Fatalf("Guard: %v", err)
	}
	if scans, _ := finder.counts(); scans < 2 {
		t.Errorf("expected repeated scans, got %d", scans)
	}
}

func TestRun_ReturnsValue(t *testing.T) {
	s := NewSupervisor(newFakeFinder(), testOptions(), nil)
	v, rep, err := Run(context.Background(), s, "hole wizard", HoleWizard, func() (string, error) {
		return "CBORE for M6 1", nil
	})
	if err != nil || v != "CBORE for M6 1" {
		t.Fatalf("Run = %q, %v", v, err)
	}
	if rep.Op != "hole wizard" {
		t.Errorf("report op = %q", rep.Op)
	}
}

func TestRun_SerializesGuardedCalls(t *testing.T) {
	s := NewSupervisor(newFakeFinder(), testOptions(), nil)

	var mu sync.Mutex
	active, peak := 0, 0
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Guard(context.Background(), "add dimension", ModifyDimension, func() error {
				mu.Lock()
				active++
				if active > peak {
					peak = active
				}
				mu.Unlock()
				time.Sleep(10 * time.Millisecond)
				mu.Lock()
				active--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	if peak != 1 {
		t.Errorf("expected one guarded call at a time, saw %d", peak)
	}
}

func TestRun_HungCallHoldsTheSupervisor(t *testing.T) {
	s := NewSupervisor(newFakeFinder(), Options{
		PollInterval:  5 * time.Millisecond,
		Timeout:       20 * time.Millisecond,
		HungCallAfter: 30 * time.Millisecond,
	}, nil)

	var mu sync.Mutex
	active, peak := 0, 0
	enter := func() {
		mu.Lock()
		active++
		if active > peak {
			peak = active
		}
		mu.Unlock()
	}
	leave := func() {
		mu.Lock()
		active--
		mu.Unlock()
	}

	release := make(chan struct{})
	returned := make(chan struct{})
	_, err := s.Guard(context.Background(), "hole wizard", HoleWizard, func() error {
		enter()
		defer close(returned)
		defer leave()
		<-release
		return nil
	})
	if !errors.Is(err, domain.ErrDialogTimeout) {
		t.Fatalf("expected DialogTimeoutError, got %v", err)
	}
	if s.Hung() != "hole wizard" {
		t.Errorf("Hung() = %q", s.Hung())
	}

	ran := false
	_, err = s.Guard(context.Background(), "add dimension", ModifyDimension, func() error {
		ran = true
		return nil
	})
	if !errors.Is(err, domain.ErrHostCall) || ran {
		t.Fatalf("guarded call ran while another was hung: ran=%v err=%v", ran, err)
	}

	close(release)
	<-returned
	deadline := time.Now().Add(time.Second)
	for s.Hung() != "" && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	_, err = s.Guard(context.Background(), "add dimension", ModifyDimension, func() error {
		enter()
		defer leave()
		return nil
	})
	if err != nil {
		t.Fatalf("guarded call after the hung one returned: %v", err)
	}
	if peak != 1 {
		t.Errorf("expected one guarded call at a time, saw %d", peak)
	}
}

func TestRun_WaitingForSlotHonoursContext(t *testing.T) {
	s := NewSupervisor(newFakeFinder(), testOptions(), nil)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Guard(context.Background(), "hole wizard", HoleWizard, func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	rep, err := s.Guard(ctx, "add dimension", ModifyDimension, func() error { return nil })
	if !errors.Is(err, context.DeadlineExceeded) || rep.Outcome != OutcomeCancelled {
		t.Errorf("rep = %+v, err = %v", rep, err)
	}

	close(release)
	<-done
}

func TestSignature_Matches(t *testing.T) {
	tests := []struct {
		sig  Signature
		w    Window
		want bool
	}{
		{ModifyDimension, Window{Class: "#32770", Title: "Modify"}, true},
		{ModifyDimension, Window{Class: "#32770", Title: "Modify Dimension"}, true},
		{ModifyDimension, Window{Class: "Button", Title: "Modify"}, false},
		{ModifyDimension, Window{Class: "#32770", Title: "Open"}, false},
		{Signature{Title: "solidworks"}, Window{Class: "Afx:1", Title: "SOLIDWORKS 2024"}, true},
	}
	for _, tt := range tests {
		if got := tt.sig.Matches(tt.w); got != tt.want {
			t.Errorf("%+v.Matches(%+v) = %v, want %v", tt.sig, tt.w, got, tt.want)
		}
	}
}
