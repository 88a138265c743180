package layout

import (
	"errors"
	"math"
	"testing"

	"cadbridge/internal/domain"
	"cadbridge/internal/geometry"
)

func f(v float64) *float64 { return &v }

func TestSelect_DefaultsToOrigin(t *testing.T) {
	p, err := Select("circle", Hints{}, 15, nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if p.Anchor != (domain.Point{}) || p.Strategy != StrategyDefault {
		t.Errorf("expected default (0, 0), got %+v", p)
	}
}

func TestSelect_RequiresReference(t *testing.T) {
	tests := []struct {
		name  string
		hints Hints
	}{
		{"spacing", Hints{Spacing: f(10)}},
		{"relative", Hints{RelativeX: f(5)}},
		{"relative y only", Hints{RelativeY: f(5)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Select("circle", tt.hints, 15, nil)
			var nre *domain.NoReferenceShapeError
			if !errors.As(err, &nre) {
				t.Fatalf("expected NoReferenceShapeError, got %v", err)
			}
		})
	}
}

func TestSelect_Priority(t *testing.T) {
	last := &domain.LastShape{
		Kind:   domain.ShapeRectangle,
		Center: domain.Point{X: 0, Y: 0},
		Bounds: domain.Bounds{Left: -20, Right: 20, Bottom: -15, Top: 15},
	}
	tests := []struct {
		name     string
		hints    Hints
		want     domain.Point
		strategy Strategy
	}{
		{"absolute beats spacing", Hints{CenterX: f(100), CenterY: f(50), Spacing: f(10)}, domain.Point{X: 100, Y: 50}, StrategyAbsolute},
		{"absolute beats relative", Hints{CenterX: f(1), CenterY: f(2), RelativeX: f(80)}, domain.Point{X: 1, Y: 2}, StrategyAbsolute},
		{"spacing beats relative", Hints{Spacing: f(10), RelativeX: f(80), RelativeY: f(20)}, domain.Point{X: 45, Y: 0}, StrategySpacing},
		{"lone centerX falls through to spacing", Hints{CenterX: f(7), Spacing: f(10)}, domain.Point{X: 45, Y: 0}, StrategySpacing},
		{"lone centerY falls through to default", Hints{CenterY: f(7)}, domain.Point{}, StrategyDefault},
		{"relative with missing axis", Hints{RelativeX: f(80)}, domain.Point{X: 80, Y: 0}, StrategyRelative},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Select("circle", tt.hints, 15, last)
			if err != nil {
				t.Fatalf("Select: %v", err)
			}
			if p.Anchor != tt.want || p.Strategy != tt.strategy {
				t.Errorf("got %+v, want %+v via %s", p, tt.want, tt.strategy)
			}
		})
	}
}

func TestSelect_RejectsBadHints(t *testing.T) {
	last := &domain.LastShape{Kind: domain.ShapeCircle}
	tests := []Hints{
		{Spacing: f(-1)},
		{CenterX: f(math.NaN()), CenterY: f(0)},
		{RelativeY: f(math.Inf(1))},
	}
	for _, h := range tests {
		if _, err := Select("circle", h, 1, last); !errors.Is(err, domain.ErrInvalidGeometry) {
			t.Errorf("hints %+v: expected ErrInvalidGeometry, got %v", h, err)
		}
	}

	// Negative spacing is irrelevant when absolute placement wins.
	if _, err := Select("circle", Hints{CenterX: f(0), CenterY: f(0), Spacing: f(-1)}, 1, last); err != nil {
		t.Errorf("absolute with ignored spacing: %v", err)
	}
}

func TestSession_LastBeforeFirstShape(t *testing.T) {
	s := NewSession("Sketch1")
	if _, err := s.Last(); !errors.Is(err, domain.ErrNoReferenceShape) {
		t.Fatalf("expected ErrNoReferenceShape, got %v", err)
	}

	// Untracked entities leave the session without a record.
	s.Record(domain.LastShape{Kind: domain.ShapePoint, Bounds: domain.Bounds{Right: 1, Top: 1}})
	s.Record(domain.LastShape{Kind: domain.ShapeCenterline})
	if _, err := s.Last(); !errors.Is(err, domain.ErrNoReferenceShape) {
		t.Errorf("expected ErrNoReferenceShape after point and centerline, got %v", err)
	}
	if len(s.History()) != 0 {
		t.Errorf("expected empty history, got %d", len(s.History()))
	}
}

func TestSession_RecordOverwritesAndReset(t *testing.T) {
	s := NewSession("Sketch1")
	first := s.ID()
	s.Record(domain.LastShape{Kind: domain.ShapeRectangle, Center: domain.Point{X: 1}})
	s.Record(domain.LastShape{Kind: domain.ShapeCircle, Center: domain.Point{X: 2}})

	last, err := s.Last()
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if last.Kind != domain.ShapeCircle || last.Center.X != 2 {
		t.Errorf("record was not overwritten: %+v", last)
	}
	if len(s.History()) != 2 {
		t.Errorf("expected 2 history entries, got %d", len(s.History()))
	}

	s.Reset("Sketch2")
	if _, err := s.Last(); err == nil {
		t.Error("expected no record after reset")
	}
	if s.Sketch() != "Sketch2" || s.ID() == first {
		t.Errorf("reset did not start a new session: sketch=%q id=%q", s.Sketch(), s.ID())
	}
}

func TestPlaceShape_SpacingScenario(t *testing.T) {
	s := NewSession("Sketch1")

	rect, ls, p, err := PlaceShape(s, "rectangle", Hints{CenterX: f(0), CenterY: f(0)}, geometry.Rectangle{Width: 40, Height: 30})
	if err != nil {
		t.Fatalf("rectangle: %v", err)
	}
	if p.Strategy != StrategyAbsolute || rect.(geometry.Rectangle).Center != (domain.Point{}) {
		t.Errorf("rectangle placed at %+v", p)
	}
	s.Record(ls)

	_, ls, p, err = PlaceShape(s, "circle", Hints{Spacing: f(10)}, geometry.Circle{Radius: 15})
	if err != nil {
		t.Fatalf("circle: %v", err)
	}
	if p.Anchor != (domain.Point{X: 45, Y: 0}) {
		t.Errorf("circle center = %+v, want (45, 0)", p.Anchor)
	}
	if ls.Bounds.Left != 30 {
		t.Errorf("gap to the rectangle = %v, want 10", ls.Bounds.Left-20)
	}
}

func TestPlaceShape_QueryScenario(t *testing.T) {
	s := NewSession("Sketch1")
	_, ls, _, err := PlaceShape(s, "rectangle", Hints{CenterX: f(10), CenterY: f(20)}, geometry.Rectangle{Width: 50, Height: 30})
	if err != nil {
		t.Fatalf("rectangle: %v", err)
	}
	s.Record(ls)

	last, err := s.Last()
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if last.Center != (domain.Point{X: 10, Y: 20}) {
		t.Errorf("center = %+v", last.Center)
	}
	if last.Bounds != (domain.Bounds{Left: -15, Right: 35, Bottom: 5, Top: 35}) {
		t.Errorf("bounds = %+v", last.Bounds)
	}
}

func TestPlaceShape_RelativeScenario(t *testing.T) {
	s := NewSession("Sketch1")
	_, ls, _, err := PlaceShape(s, "rectangle", Hints{}, geometry.Rectangle{Width: 200, Height: 10})
	if err != nil {
		t.Fatalf("rectangle: %v", err)
	}
	s.Record(ls)

	_, _, p, err := PlaceShape(s, "circle", Hints{RelativeX: f(80), RelativeY: f(20)}, geometry.Circle{Radius: 15})
	if err != nil {
		t.Fatalf("circle: %v", err)
	}
	if p.Anchor != (domain.Point{X: 80, Y: 20}) {
		t.Errorf("circle center = %+v, want (80, 20)", p.Anchor)
	}
}

// Spacing must clear every supported kind's outer edge by exactly the gap.
func TestPlaceShape_SpacingClearsEveryKind(t *testing.T) {
	shapes := []geometry.Placeable{
		geometry.Rectangle{Width: 12, Height: 4},
		geometry.Circle{Radius: 7},
		geometry.Polygon{Radius: 10, NumSides: 6, Inscribed: true},
		geometry.Polygon{Radius: 10, NumSides: 5},
		geometry.Ellipse{MajorRadius: 30, MinorRadius: 10, Angle: 30},
	}
	for _, spacing := range []float64{0, 2.5, 10} {
		for _, shape := range shapes {
			s := NewSession("Sketch1")
			s.Record(domain.LastShape{
				Kind:   domain.ShapeRectangle,
				Center: domain.Point{X: 3, Y: -4},
				Bounds: domain.Bounds{Left: -10, Right: 16, Bottom: -9, Top: 1},
			})
			_, ls, p, err := PlaceShape(s, string(shape.Kind()), Hints{Spacing: f(spacing)}, shape)
			if err != nil {
				t.Fatalf("%s: %v", shape.Kind(), err)
			}
			if math.Abs(p.Anchor.X-(16+spacing+shape.HalfExtent())) > 1e-9 || p.Anchor.Y != -4 {
				t.Errorf("%s spacing %g: anchor %+v", shape.Kind(), spacing, p.Anchor)
			}
			if math.Abs(ls.Bounds.Left-(16+spacing)) > 1e-9 {
				t.Errorf("%s spacing %g: left edge %v, want %v", shape.Kind(), spacing, ls.Bounds.Left, 16+spacing)
			}
		}
	}
}

func TestPlaceShape_InvalidGeometryBeforePlacement(t *testing.T) {
	s := NewSession("Sketch1")
	_, _, _, err := PlaceShape(s, "circle", Hints{Spacing: f(10)}, geometry.Circle{Radius: 0})
	if !errors.Is(err, domain.ErrInvalidGeometry) {
		t.Errorf("expected ErrInvalidGeometry, got %v", err)
	}
}
