package geometry

import (
	"errors"
	"math"
	"testing"

	"cadbridge/internal/domain"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func boundsNear(a, b domain.Bounds) bool {
	return near(a.Left, b.Left) && near(a.Right, b.Right) && near(a.Bottom, b.Bottom) && near(a.Top, b.Top)
}

func TestResolve_RectangleCenterSize(t *testing.T) {
	tests := []struct {
		cx, cy, w, h float64
	}{
		{0, 0, 40, 30},
		{10, 20, 50, 30},
		{-7.5, 3.25, 0.5, 120},
	}
	for _, tt := range tests {
		ls, err := Resolve(Rectangle{Center: domain.Point{X: tt.cx, Y: tt.cy}, Width: tt.w, Height: tt.h})
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		want := domain.Bounds{Left: tt.cx - tt.w/2, Right: tt.cx + tt.w/2, Bottom: tt.cy - tt.h/2, Top: tt.cy + tt.h/2}
		if ls.Bounds != want {
			t.Errorf("bounds = %+v, want %+v", ls.Bounds, want)
		}
		if ls.Center != ls.Bounds.Mid() {
			t.Errorf("center %+v is not the midpoint of %+v", ls.Center, ls.Bounds)
		}
	}
}

func TestResolve_RectangleFromCorners(t *testing.T) {
	r := RectangleFromCorners(domain.Point{X: 30, Y: -10}, domain.Point{X: -10, Y: 20})
	ls, err := Resolve(r)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ls.Bounds != (domain.Bounds{Left: -10, Right: 30, Bottom: -10, Top: 20}) {
		t.Errorf("bounds = %+v", ls.Bounds)
	}
	if ls.Size.Width != 40 || ls.Size.Height != 30 {
		t.Errorf("size = %+v, want 40x30", ls.Size)
	}
}

func TestResolve_Circle(t *testing.T) {
	ls, err := Resolve(Circle{Center: domain.Point{X: 45, Y: 0}, Radius: 15})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ls.Bounds != (domain.Bounds{Left: 30, Right: 60, Bottom: -15, Top: 15}) {
		t.Errorf("bounds = %+v", ls.Bounds)
	}
	if ls.Size.Radius != 15 {
		t.Errorf("radius = %v", ls.Size.Radius)
	}
}

func TestPolygon_HalfExtent(t *testing.T) {
	circ := Polygon{Radius: 30, NumSides: 6}
	if circ.HalfExtent() != 30 {
		t.Errorf("circumscribed half-extent = %v, want 30", circ.HalfExtent())
	}

	ins := Polygon{Radius: 30, NumSides: 6, Inscribed: true}
	want := 30 / math.Cos(math.Pi/6)
	if !near(ins.HalfExtent(), want) {
		t.Errorf("inscribed half-extent = %v, want %v", ins.HalfExtent(), want)
	}

	ls, err := Resolve(ins)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !near(ls.Bounds.Right, want) {
		t.Errorf("bounds right = %v, want %v", ls.Bounds.Right, want)
	}
	if ls.Size.Radius != 30 || ls.Size.NumSides != 6 {
		t.Errorf("size = %+v", ls.Size)
	}
}

func TestEllipse_RotatedEnvelope(t *testing.T) {
	tests := []struct {
		name   string
		angle  float64
		hw, hh float64
	}{
		{"unrotated", 0, 30, 15},
		{"quarter turn", 90, 15, 30},
		{"45 degrees", 45, math.Sqrt((900 + 225) / 2.0), math.Sqrt((900 + 225) / 2.0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Ellipse{Center: domain.Point{X: 10, Y: 20}, MajorRadius: 30, MinorRadius: 15, Angle: tt.angle}
			if !near(e.HalfExtent(), tt.hw) {
				t.Errorf("half-extent = %v, want %v", e.HalfExtent(), tt.hw)
			}
			ls, err := Resolve(e)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			want := domain.Bounds{Left: 10 - tt.hw, Right: 10 + tt.hw, Bottom: 20 - tt.hh, Top: 20 + tt.hh}
			if !boundsNear(ls.Bounds, want) {
				t.Errorf("bounds = %+v, want %+v", ls.Bounds, want)
			}
			if ls.Center != e.Center {
				t.Errorf("center = %+v, want the ellipse center %+v", ls.Center, e.Center)
			}
		})
	}
}

func TestResolve_Slot(t *testing.T) {
	tests := []struct {
		name  string
		slot  Slot
		want  domain.Bounds
		width float64
	}{
		{
			name: "horizontal",
			slot: Slot{Start: domain.Point{X: -25}, End: domain.Point{X: 25}, Width: 20},
			want: domain.Bounds{Left: -35, Right: 35, Bottom: -10, Top: 10},
		},
		{
			name: "vertical",
			slot: Slot{Start: domain.Point{Y: 0}, End: domain.Point{Y: 40}, Width: 10},
			want: domain.Bounds{Left: -5, Right: 5, Bottom: -5, Top: 45},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ls, err := Resolve(tt.slot)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if !boundsNear(ls.Bounds, tt.want) {
				t.Errorf("bounds = %+v, want %+v", ls.Bounds, tt.want)
			}
			if ls.Center != ls.Bounds.Mid() {
				t.Errorf("center = %+v", ls.Center)
			}
		})
	}
}

func TestResolve_LineArcSplineEnvelope(t *testing.T) {
	line, err := Resolve(Line{Start: domain.Point{X: 10, Y: 20}, End: domain.Point{X: 60, Y: 80}})
	if err != nil {
		t.Fatalf("line: %v", err)
	}
	if line.Center != (domain.Point{X: 35, Y: 50}) {
		t.Errorf("line center = %+v, want (35, 50)", line.Center)
	}

	arc, err := Resolve(ThreePointArc{
		Start: domain.Point{X: 0, Y: 0},
		End:   domain.Point{X: 50, Y: 0},
		Mid:   domain.Point{X: 25, Y: 25},
	})
	if err != nil {
		t.Fatalf("arc: %v", err)
	}
	// The envelope of the defining points, not the true curve extremum.
	if arc.Bounds != (domain.Bounds{Left: 0, Right: 50, Bottom: 0, Top: 25}) {
		t.Errorf("arc bounds = %+v", arc.Bounds)
	}
	if !near(arc.Size.Radius, 25) {
		t.Errorf("arc radius = %v, want 25", arc.Size.Radius)
	}

	center, err := Resolve(CenterArc{
		Center: domain.Point{},
		Start:  domain.Point{X: 25},
		End:    domain.Point{Y: 25},
	})
	if err != nil {
		t.Fatalf("center arc: %v", err)
	}
	if !near(center.Size.Radius, 25) {
		t.Errorf("center arc radius = %v", center.Size.Radius)
	}

	spline, err := Resolve(Spline{Points: []domain.Point{{X: 0, Y: 0}, {X: 50, Y: 30}, {X: 100, Y: 0}}})
	if err != nil {
		t.Fatalf("spline: %v", err)
	}
	if spline.Center != (domain.Point{X: 50, Y: 15}) {
		t.Errorf("spline center = %+v, want (50, 15)", spline.Center)
	}
}

func TestResolve_InvalidGeometry(t *testing.T) {
	tests := []struct {
		name  string
		shape Shape
	}{
		{"zero width rectangle", Rectangle{Width: 0, Height: 10}},
		{"negative height rectangle", Rectangle{Width: 10, Height: -1}},
		{"NaN radius circle", Circle{Radius: math.NaN()}},
		{"two-sided polygon", Polygon{Radius: 10, NumSides: 2}},
		{"minor exceeds major", Ellipse{MajorRadius: 10, MinorRadius: 20}},
		{"slot with coincident ends", Slot{Width: 5}},
		{"zero-length line", Line{}},
		{"collinear arc", ThreePointArc{Start: domain.Point{}, Mid: domain.Point{X: 1}, End: domain.Point{X: 2}}},
		{"uneven center arc", CenterArc{Start: domain.Point{X: 10}, End: domain.Point{Y: 12}}},
		{"one-point spline", Spline{Points: []domain.Point{{X: 1, Y: 1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.shape)
			if !errors.Is(err, domain.ErrInvalidGeometry) {
				t.Errorf("expected ErrInvalidGeometry, got %v", err)
			}
		})
	}
}
