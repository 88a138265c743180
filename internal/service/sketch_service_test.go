package service_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"cadbridge/internal/dialog"
	"cadbridge/internal/domain"
	"cadbridge/internal/host"
	"cadbridge/internal/layout"
	"cadbridge/internal/service"
)

// spyHost counts drawing calls so tests can assert nothing reached the host.
type spyHost struct {
	host.Host
	mu    sync.Mutex
	calls int
}

func (s *spyHost) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *spyHost) hit() {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
}

func (s *spyHost) Circle(ctx context.Context, c domain.Point, r float64) error {
	s.hit()
	return s.Host.Circle(ctx, c, r)
}

func (s *spyHost) CornerRectangle(ctx context.Context, a, b domain.Point) error {
	s.hit()
	return s.Host.CornerRectangle(ctx, a, b)
}

func f(v float64) *float64 { return &v }

func newServices(t *testing.T) (*service.SketchService, *service.ModelingService, *spyHost, *service.MockEmitter) {
	t.Helper()
	h := &spyHost{Host: host.NewSim()}
	guard := dialog.NewSupervisor(dialog.NewFinder(""), dialog.Options{
		PollInterval: 5 * time.Millisecond,
		Timeout:      100 * time.Millisecond,
	}, nil)
	em := &service.MockEmitter{}
	sigs := service.DefaultSignatures()
	sk := service.NewSketchService(h, guard, sigs, em, nil)
	mod := service.NewModelingService(h, sk, guard, sigs, em, nil)
	return sk, mod, h, em
}

func checkSetup(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
}

func TestSketchService_CreateSketchStartsPart(t *testing.T) {
	sk, _, _, em := newServices(t)
	ctx := context.Background()

	info, err := sk.CreateSketch(ctx, host.SketchTarget{})
	if err != nil {
		t.Fatalf("CreateSketch: %v", err)
	}
	if !info.NewPart || info.Document != "Part1" || info.Name != "Sketch1" {
		t.Errorf("info = %+v", info)
	}
	if info.Target != "Front plane" {
		t.Errorf("default target = %q", info.Target)
	}
	if info.SessionID == "" {
		t.Error("expected a session id")
	}

	names := em.Names()
	if len(names) != 2 || names[0] != service.EventPartCreated || names[1] != service.EventSketchOpened {
		t.Errorf("events = %v", names)
	}

	again, err := sk.CreateSketch(ctx, host.SketchTarget{Plane: "Top"})
	if err != nil {
		t.Fatalf("second CreateSketch: %v", err)
	}
	if again.NewPart || again.Name != "Sketch2" || again.SessionID == info.SessionID {
		t.Errorf("second sketch = %+v", again)
	}
}

func TestSketchService_SpacingFromLastShape(t *testing.T) {
	sk, _, _, _ := newServices(t)
	ctx := context.Background()
	sk.CreateSketch(ctx, host.SketchTarget{Plane: "Front"})

	first, err := sk.Circle(ctx, service.CircleInput{Radius: 10})
	if err != nil {
		t.Fatalf("Circle: %v", err)
	}
	if first.Strategy != layout.StrategyDefault || first.Sketch != "Sketch1" {
		t.Errorf("first = %+v", first)
	}

	second, err := sk.Rectangle(ctx, service.RectangleInput{Width: 20, Height: 10, Hints: layout.Hints{Spacing: f(15)}})
	if err != nil {
		t.Fatalf("Rectangle: %v", err)
	}
	if second.Strategy != layout.StrategySpacing {
		t.Errorf("strategy = %s", second.Strategy)
	}
	// right edge 10, gap 15, half width 10
	if second.Shape.Center != (domain.Point{X: 35, Y: 0}) {
		t.Errorf("center = %+v", second.Shape.Center)
	}

	last, err := sk.LastShape()
	if err != nil || last.Kind != domain.ShapeRectangle || last.Bounds.Right != 45 {
		t.Errorf("LastShape = %+v, %v", last, err)
	}
	if got := len(sk.Shapes()); got != 2 {
		t.Errorf("history length = %d", got)
	}
}

func TestSketchService_RecordLifecycle(t *testing.T) {
	sk, _, _, _ := newServices(t)
	ctx := context.Background()

	if _, err := sk.LastShape(); !errors.Is(err, domain.ErrNoReferenceShape) {
		t.Errorf("before any sketch: %v", err)
	}

	sk.CreateSketch(ctx, host.SketchTarget{Plane: "Front"})
	sk.Line(ctx, domain.Point{}, domain.Point{X: 30, Y: 40})

	// Exiting keeps the record readable.
	if err := sk.ExitSketch(ctx); err != nil {
		t.Fatalf("ExitSketch: %v", err)
	}
	last, err := sk.LastShape()
	if err != nil || last.Kind != domain.ShapeLine || last.Size.Length != 50 {
		t.Errorf("after exit: %+v, %v", last, err)
	}

	// Opening the next sketch clears it.
	sk.CreateSketch(ctx, host.SketchTarget{Plane: "Right"})
	if _, err := sk.LastShape(); !errors.Is(err, domain.ErrNoReferenceShape) {
		t.Errorf("after new sketch: %v", err)
	}

	sk.Circle(ctx, service.CircleInput{Radius: 3})
	sk.NewPart(ctx)
	if _, err := sk.LastShape(); !errors.Is(err, domain.ErrNoReferenceShape) {
		t.Errorf("after new part: %v", err)
	}
}

func TestSketchService_HostFailureIsNotRecorded(t *testing.T) {
	sk, _, _, _ := newServices(t)
	ctx := context.Background()
	sk.CreateSketch(ctx, host.SketchTarget{Plane: "Front"})
	sk.Circle(ctx, service.CircleInput{Radius: 5})
	sk.ExitSketch(ctx)

	_, err := sk.Circle(ctx, service.CircleInput{Radius: 8, Hints: layout.Hints{Spacing: f(2)}})
	if !errors.Is(err, domain.ErrHostCall) {
		t.Fatalf("expected host error outside a sketch, got %v", err)
	}
	last, _ := sk.LastShape()
	if last.Size.Radius != 5 {
		t.Errorf("failed draw overwrote the record: %+v", last)
	}
}

func TestSketchService_RejectsBeforeHost(t *testing.T) {
	sk, _, h, _ := newServices(t)
	ctx := context.Background()
	sk.CreateSketch(ctx, host.SketchTarget{Plane: "Front"})

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"zero radius", func() error {
			_, err := sk.Circle(ctx, service.CircleInput{Radius: 0})
			return err
		}, domain.ErrInvalidGeometry},
		{"spacing without reference", func() error {
			_, err := sk.Circle(ctx, service.CircleInput{Radius: 4, Hints: layout.Hints{Spacing: f(5)}})
			return err
		}, domain.ErrNoReferenceShape},
		{"relative without reference", func() error {
			_, err := sk.Rectangle(ctx, service.RectangleInput{Width: 4, Height: 4, Hints: layout.Hints{RelativeY: f(5)}})
			return err
		}, domain.ErrNoReferenceShape},
		{"NaN center", func() error {
			_, err := sk.Circle(ctx, service.CircleInput{Radius: 4, Hints: layout.Hints{CenterX: f(math.NaN()), CenterY: f(0)}})
			return err
		}, domain.ErrInvalidGeometry},
		{"degenerate corners", func() error {
			a := domain.Point{X: 1, Y: 1}
			_, err := sk.Rectangle(ctx, service.RectangleInput{Corner1: &a, Corner2: &a})
			return err
		}, domain.ErrInvalidGeometry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if h.count() != 0 {
		t.Errorf("host received %d calls", h.count())
	}
}

func TestSketchService_UntrackedEntities(t *testing.T) {
	sk, _, _, _ := newServices(t)
	ctx := context.Background()
	sk.CreateSketch(ctx, host.SketchTarget{Plane: "Front"})

	sk.Circle(ctx, service.CircleInput{Radius: 5})
	if err := sk.Point(ctx, domain.Point{X: 100, Y: 100}); err != nil {
		t.Fatalf("Point: %v", err)
	}
	if err := sk.Centerline(ctx, domain.Point{Y: -50}, domain.Point{Y: 50}); err != nil {
		t.Fatalf("Centerline: %v", err)
	}
	if err := sk.Text(ctx, domain.Point{X: 10}, "A1"); err != nil {
		t.Fatalf("Text: %v", err)
	}
	if err := sk.Text(ctx, domain.Point{}, "  "); !errors.Is(err, domain.ErrInvalidGeometry) {
		t.Errorf("empty text: %v", err)
	}

	last, _ := sk.LastShape()
	if last.Kind != domain.ShapeCircle {
		t.Errorf("untracked entity replaced the record: %+v", last)
	}
}

func TestSketchService_AddDimensionIsGuarded(t *testing.T) {
	sk, _, _, _ := newServices(t)
	ctx := context.Background()
	sk.CreateSketch(ctx, host.SketchTarget{Plane: "Front"})
	sk.Line(ctx, domain.Point{}, domain.Point{X: 40})

	res, err := sk.AddDimension(ctx, domain.Point{X: 20}, domain.Point{X: 20, Y: 10})
	if err != nil {
		t.Fatalf("AddDimension: %v", err)
	}
	if res.Name != "D1@Sketch1" || res.Value != 40 {
		t.Errorf("dimension = %+v", res)
	}
	if res.Dialog != dialog.OutcomeCancelled {
		t.Errorf("dialog outcome = %s", res.Dialog)
	}
	if err := sk.SetDimension(ctx, res.Name, 60); err != nil {
		t.Errorf("SetDimension: %v", err)
	}
	if err := sk.SetDimension(ctx, res.Name, -1); !errors.Is(err, domain.ErrInvalidGeometry) {
		t.Errorf("negative value: %v", err)
	}
}

func TestSketchService_Constrain(t *testing.T) {
	sk, _, _, _ := newServices(t)
	ctx := context.Background()
	sk.CreateSketch(ctx, host.SketchTarget{Plane: "Front"})
	sk.Line(ctx, domain.Point{}, domain.Point{X: 40, Y: 1})

	if err := sk.Constrain(ctx, host.Horizontal, []domain.Point{{X: 20, Y: 0.5}}); err != nil {
		t.Errorf("Horizontal: %v", err)
	}
	if err := sk.Constrain(ctx, host.Parallel, []domain.Point{{X: 20, Y: 0.5}}); !errors.Is(err, domain.ErrInvalidGeometry) {
		t.Errorf("Parallel with one pick: %v", err)
	}
}
