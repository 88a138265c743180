// Package geometry computes canonical bounds, centers and sizes of sketch
// entities. Every function here is pure: no host access, no session state.
//
// Arcs and splines are bounded by the envelope of their defining points, not by
// their true curve extrema. A bulging arc can extend past that envelope; spacing
// placement downstream relies on the approximation as-is.
package geometry

import (
	"math"

	"cadbridge/internal/domain"
)

// eps is the coincidence tolerance in millimeters.
const eps = 1e-9

// Shape is a fully specified sketch entity that can be bounded.
type Shape interface {
	Kind() domain.ShapeKind
	Validate() error
	resolve() domain.LastShape
}

// Placeable shapes are anchored at a center that the placement selector may
// choose. HalfExtent is the distance from that center to the shape's right edge.
type Placeable interface {
	Shape
	HalfExtent() float64
	WithCenter(c domain.Point) Placeable
}

// Resolve validates s and computes its last-shape summary.
func Resolve(s Shape) (domain.LastShape, error) {
	if err := s.Validate(); err != nil {
		return domain.LastShape{}, err
	}
	ls := s.resolve()
	if !ls.Bounds.Valid() {
		return domain.LastShape{}, domain.Invalid(s.Kind(), "computed bounds are not finite")
	}
	return ls, nil
}

// ── Rectangle ──────────────────────────────────────────────

type Rectangle struct {
	Center domain.Point
	Width  float64
	Height float64
}

// RectangleFromCorners builds a rectangle from two opposite corners in any order.
func RectangleFromCorners(a, b domain.Point) Rectangle {
	bb := domain.BoundsOf(a, b)
	return Rectangle{Center: bb.Mid(), Width: bb.Width(), Height: bb.Height()}
}

func (r Rectangle) Kind() domain.ShapeKind { return domain.ShapeRectangle }

func (r Rectangle) Validate() error {
	if err := positive(r.Kind(), "width", r.Width); err != nil {
		return err
	}
	return positive(r.Kind(), "height", r.Height)
}

func (r Rectangle) HalfExtent() float64 { return r.Width / 2 }

func (r Rectangle) WithCenter(c domain.Point) Placeable { r.Center = c; return r }

// Corners returns the lower-left and upper-right corners.
func (r Rectangle) Corners() (domain.Point, domain.Point) {
	b := r.bounds()
	return domain.Point{X: b.Left, Y: b.Bottom}, domain.Point{X: b.Right, Y: b.Top}
}

func (r Rectangle) bounds() domain.Bounds {
	hw, hh := r.Width/2, r.Height/2
	return domain.Bounds{
		Left: r.Center.X - hw, Right: r.Center.X + hw,
		Bottom: r.Center.Y - hh, Top: r.Center.Y + hh,
	}
}

func (r Rectangle) resolve() domain.LastShape {
	return domain.LastShape{
		Kind:   r.Kind(),
		Center: r.Center,
		Bounds: r.bounds(),
		Size:   domain.Size{Width: r.Width, Height: r.Height},
	}
}

// ── Circle ─────────────────────────────────────────────────

type Circle struct {
	Center domain.Point
	Radius float64
}

func (c Circle) Kind() domain.ShapeKind { return domain.ShapeCircle }

func (c Circle) Validate() error { return positive(c.Kind(), "radius", c.Radius) }

func (c Circle) HalfExtent() float64 { return c.Radius }

func (c Circle) WithCenter(p domain.Point) Placeable { c.Center = p; return c }

func (c Circle) resolve() domain.LastShape {
	return domain.LastShape{
		Kind:   c.Kind(),
		Center: c.Center,
		Bounds: squareAround(c.Center, c.Radius),
		Size:   domain.Size{Radius: c.Radius},
	}
}

// ── Regular polygon ────────────────────────────────────────

// Polygon is a regular polygon. With Inscribed set, Radius is the radius of the
// circle inscribed in the polygon (the apothem); otherwise it is the
// center-to-vertex distance. Angle rotates the first vertex, in degrees.
type Polygon struct {
	Center    domain.Point
	Radius    float64
	NumSides  int
	Inscribed bool
	Angle     float64
}

func (p Polygon) Kind() domain.ShapeKind { return domain.ShapePolygon }

func (p Polygon) Validate() error {
	if p.NumSides < 3 {
		return domain.Invalid(p.Kind(), "numSides must be at least 3, got %d", p.NumSides)
	}
	return positive(p.Kind(), "radius", p.Radius)
}

// Circumradius is the center-to-vertex distance, corrected from the apothem
// when the radius was given as inscribed.
func (p Polygon) Circumradius() float64 {
	if p.Inscribed {
		return p.Radius / math.Cos(math.Pi/float64(p.NumSides))
	}
	return p.Radius
}

func (p Polygon) HalfExtent() float64 { return p.Circumradius() }

func (p Polygon) WithCenter(c domain.Point) Placeable { p.Center = c; return p }

// Vertex returns the point that fixes the polygon's size and rotation, at
// Radius from the center. The host interprets it per the Inscribed flag.
func (p Polygon) Vertex() domain.Point {
	a := radians(p.Angle)
	return domain.Point{X: p.Center.X + p.Radius*math.Cos(a), Y: p.Center.Y + p.Radius*math.Sin(a)}
}

func (p Polygon) resolve() domain.LastShape {
	return domain.LastShape{
		Kind:   p.Kind(),
		Center: p.Center,
		Bounds: squareAround(p.Center, p.Circumradius()),
		Size:   domain.Size{Radius: p.Radius, NumSides: p.NumSides, Inscribed: p.Inscribed, Angle: p.Angle},
	}
}

// ── Ellipse ────────────────────────────────────────────────

// Ellipse is rotated counter-clockwise by Angle degrees around its center.
type Ellipse struct {
	Center      domain.Point
	MajorRadius float64
	MinorRadius float64
	Angle       float64
}

func (e Ellipse) Kind() domain.ShapeKind { return domain.ShapeEllipse }

func (e Ellipse) Validate() error {
	if err := positive(e.Kind(), "majorRadius", e.MajorRadius); err != nil {
		return err
	}
	if err := positive(e.Kind(), "minorRadius", e.MinorRadius); err != nil {
		return err
	}
	if e.MinorRadius > e.MajorRadius {
		return domain.Invalid(e.Kind(), "minorRadius %g exceeds majorRadius %g", e.MinorRadius, e.MajorRadius)
	}
	return finite(e.Kind(), "angle", e.Angle)
}

// envelope returns the half-width and half-height of the rotated ellipse's
// axis-aligned bounding box.
func (e Ellipse) envelope() (float64, float64) {
	a, b := e.MajorRadius, e.MinorRadius
	s, c := math.Sincos(radians(e.Angle))
	hw := math.Sqrt(a*a*c*c + b*b*s*s)
	hh := math.Sqrt(a*a*s*s + b*b*c*c)
	return hw, hh
}

func (e Ellipse) HalfExtent() float64 {
	hw, _ := e.envelope()
	return hw
}

func (e Ellipse) WithCenter(c domain.Point) Placeable { e.Center = c; return e }

// Axes returns the end points of the major and minor semi-axes.
func (e Ellipse) Axes() (major, minor domain.Point) {
	s, c := math.Sincos(radians(e.Angle))
	major = domain.Point{X: e.Center.X + e.MajorRadius*c, Y: e.Center.Y + e.MajorRadius*s}
	minor = domain.Point{X: e.Center.X - e.MinorRadius*s, Y: e.Center.Y + e.MinorRadius*c}
	return major, minor
}

func (e Ellipse) resolve() domain.LastShape {
	hw, hh := e.envelope()
	return domain.LastShape{
		Kind:   e.Kind(),
		Center: e.Center,
		Bounds: domain.Bounds{
			Left: e.Center.X - hw, Right: e.Center.X + hw,
			Bottom: e.Center.Y - hh, Top: e.Center.Y + hh,
		},
		Size: domain.Size{MajorRadius: e.MajorRadius, MinorRadius: e.MinorRadius, Angle: e.Angle},
	}
}

// ── Slot ───────────────────────────────────────────────────

// Slot is a straight slot between two arc centers with rounded ends.
type Slot struct {
	Start domain.Point
	End   domain.Point
	Width float64
}

func (s Slot) Kind() domain.ShapeKind { return domain.ShapeSlot }

func (s Slot) Validate() error {
	if err := positive(s.Kind(), "width", s.Width); err != nil {
		return err
	}
	if dist(s.Start, s.End) <= eps {
		return domain.Invalid(s.Kind(), "end points coincide")
	}
	return nil
}

// The rounded ends have radius Width/2, so the envelope is the end-point box
// grown by Width/2 across the axis and past each end.
func (s Slot) resolve() domain.LastShape {
	b := domain.BoundsOf(s.Start, s.End).Inflate(s.Width / 2)
	return domain.LastShape{
		Kind:   s.Kind(),
		Center: b.Mid(),
		Bounds: b,
		Size:   domain.Size{Length: dist(s.Start, s.End), SlotWidth: s.Width},
	}
}

// ── Line ───────────────────────────────────────────────────

type Line struct {
	Start domain.Point
	End   domain.Point
}

func (l Line) Kind() domain.ShapeKind { return domain.ShapeLine }

func (l Line) Validate() error {
	if dist(l.Start, l.End) <= eps {
		return domain.Invalid(l.Kind(), "start and end points coincide")
	}
	return nil
}

func (l Line) resolve() domain.LastShape {
	return envelopeShape(l.Kind(), domain.Size{Length: dist(l.Start, l.End)}, l.Start, l.End)
}

// ── Arcs ───────────────────────────────────────────────────

// ThreePointArc runs from Start to End through Mid.
type ThreePointArc struct {
	Start domain.Point
	End   domain.Point
	Mid   domain.Point
}

func (a ThreePointArc) Kind() domain.ShapeKind { return domain.ShapeArc }

func (a ThreePointArc) Validate() error {
	if math.Abs(cross(a.Start, a.Mid, a.End)) <= eps {
		return domain.Invalid(a.Kind(), "the three points are collinear")
	}
	return nil
}

func (a ThreePointArc) resolve() domain.LastShape {
	return envelopeShape(a.Kind(), domain.Size{Radius: circumradius(a.Start, a.Mid, a.End)}, a.Start, a.Mid, a.End)
}

// CenterArc runs from Start to End around Center.
type CenterArc struct {
	Center    domain.Point
	Start     domain.Point
	End       domain.Point
	Clockwise bool
}

// radiusTolerance is how far the start and end radii of a center arc may differ.
const radiusTolerance = 1e-3

func (a CenterArc) Kind() domain.ShapeKind { return domain.ShapeArc }

func (a CenterArc) Validate() error {
	r1, r2 := dist(a.Center, a.Start), dist(a.Center, a.End)
	if r1 <= eps {
		return domain.Invalid(a.Kind(), "start point coincides with center")
	}
	if math.Abs(r1-r2) > radiusTolerance {
		return domain.Invalid(a.Kind(), "start radius %.4g and end radius %.4g differ", r1, r2)
	}
	return nil
}

func (a CenterArc) Radius() float64 { return dist(a.Center, a.Start) }

func (a CenterArc) resolve() domain.LastShape {
	return envelopeShape(a.Kind(), domain.Size{Radius: a.Radius()}, a.Center, a.Start, a.End)
}

// ── Spline ─────────────────────────────────────────────────

type Spline struct {
	Points []domain.Point
}

func (s Spline) Kind() domain.ShapeKind { return domain.ShapeSpline }

func (s Spline) Validate() error {
	if len(s.Points) < 2 {
		return domain.Invalid(s.Kind(), "at least 2 points are required, got %d", len(s.Points))
	}
	b := domain.BoundsOf(s.Points...)
	if b.Width() <= eps && b.Height() <= eps {
		return domain.Invalid(s.Kind(), "all points coincide")
	}
	return nil
}

func (s Spline) resolve() domain.LastShape {
	return envelopeShape(s.Kind(), domain.Size{Points: len(s.Points)}, s.Points...)
}

// ── helpers ────────────────────────────────────────────────

func envelopeShape(kind domain.ShapeKind, size domain.Size, pts ...domain.Point) domain.LastShape {
	b := domain.BoundsOf(pts...)
	return domain.LastShape{Kind: kind, Center: b.Mid(), Bounds: b, Size: size}
}

func squareAround(c domain.Point, r float64) domain.Bounds {
	return domain.Bounds{Left: c.X - r, Right: c.X + r, Bottom: c.Y - r, Top: c.Y + r}
}

func positive(kind domain.ShapeKind, name string, v float64) error {
	if err := finite(kind, name, v); err != nil {
		return err
	}
	if v <= 0 {
		return domain.Invalid(kind, "%s must be greater than 0, got %g", name, v)
	}
	return nil
}

func finite(kind domain.ShapeKind, name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return domain.Invalid(kind, "%s must be a finite number", name)
	}
	return nil
}

func dist(a, b domain.Point) float64 { return math.Hypot(b.X-a.X, b.Y-a.Y) }

// cross is twice the signed area of triangle abc.
func cross(a, b, c domain.Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

func circumradius(a, b, c domain.Point) float64 {
	return dist(a, b) * dist(b, c) * dist(c, a) / (2 * math.Abs(cross(a, b, c)))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
