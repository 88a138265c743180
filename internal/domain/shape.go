package domain

import "math"

type ShapeKind string

const (
	ShapeRectangle ShapeKind = "rectangle"
	ShapeCircle    ShapeKind = "circle"
	ShapeLine      ShapeKind = "line"
	ShapeArc       ShapeKind = "arc"
	ShapePolygon   ShapeKind = "polygon"
	ShapeEllipse   ShapeKind = "ellipse"
	ShapeSpline    ShapeKind = "spline"
	ShapeSlot      ShapeKind = "slot"

	// Drawn at caller coordinates only; never tracked.
	ShapePoint      ShapeKind = "point"
	ShapeCenterline ShapeKind = "centerline"
	ShapeText       ShapeKind = "text"
)

// Tracked reports whether entities of this kind update the last-shape record.
func (k ShapeKind) Tracked() bool {
	switch k {
	case ShapeRectangle, ShapeCircle, ShapeLine, ShapeArc,
		ShapePolygon, ShapeEllipse, ShapeSpline, ShapeSlot:
		return true
	}
	return false
}

// Point is a sketch-plane coordinate in millimeters.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Point3 is a model-space coordinate in millimeters, used to pick faces and edges.
type Point3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Bounds is an axis-aligned box in millimeters.
type Bounds struct {
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Top    float64 `json:"top"`
}

// BoundsOf returns the envelope of pts. It panics on an empty slice.
func BoundsOf(pts ...Point) Bounds {
	b := Bounds{Left: pts[0].X, Right: pts[0].X, Bottom: pts[0].Y, Top: pts[0].Y}
	for _, p := range pts[1:] {
		b = b.Expand(p)
	}
	return b
}

// Expand grows b to include p.
func (b Bounds) Expand(p Point) Bounds {
	b.Left = math.Min(b.Left, p.X)
	b.Right = math.Max(b.Right, p.X)
	b.Bottom = math.Min(b.Bottom, p.Y)
	b.Top = math.Max(b.Top, p.Y)
	return b
}

// Inflate grows every side of b by d.
func (b Bounds) Inflate(d float64) Bounds {
	return Bounds{Left: b.Left - d, Right: b.Right + d, Bottom: b.Bottom - d, Top: b.Top + d}
}

func (b Bounds) Width() float64  { return b.Right - b.Left }
func (b Bounds) Height() float64 { return b.Top - b.Bottom }

// Mid is the arithmetic midpoint of the box.
func (b Bounds) Mid() Point {
	return Point{X: (b.Left + b.Right) / 2, Y: (b.Bottom + b.Top) / 2}
}

// Valid reports whether the box is ordered and finite.
func (b Bounds) Valid() bool {
	for _, v := range []float64{b.Left, b.Right, b.Bottom, b.Top} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.Left <= b.Right && b.Bottom <= b.Top
}

// Size holds the kind-specific canonical extent of a shape. Only the fields
// meaningful for the shape's kind are set.
type Size struct {
	Width       float64 `json:"width,omitempty"`
	Height      float64 `json:"height,omitempty"`
	Radius      float64 `json:"radius,omitempty"`
	NumSides    int     `json:"numSides,omitempty"`
	Inscribed   bool    `json:"inscribed,omitempty"`
	MajorRadius float64 `json:"majorRadius,omitempty"`
	MinorRadius float64 `json:"minorRadius,omitempty"`
	Angle       float64 `json:"angle,omitempty"`
	Length      float64 `json:"length,omitempty"`
	SlotWidth   float64 `json:"slotWidth,omitempty"`
	Points      int     `json:"points,omitempty"`
}

// LastShape summarizes the most recently placed tracked entity of a sketch.
// Center is stored alongside Bounds because for rotated figures the two are
// not derived from one another.
type LastShape struct {
	Kind   ShapeKind `json:"kind"`
	Center Point     `json:"center"`
	Bounds Bounds    `json:"bounds"`
	Size   Size      `json:"size"`
}
