// Package host is the automation call layer: everything that talks to the CAD
// application goes through the Host interface. All lengths cross it in
// millimeters and all angles in degrees; conversion to the application's
// native units happens inside each implementation.
package host

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"cadbridge/internal/domain"
)

// Host is the CAD application's automation surface. Every method that creates
// something returns the name the application assigned to it.
type Host interface {
	Connect(ctx context.Context) error
	Close() error
	Revision(ctx context.Context) (string, error)

	// ActiveDocument returns the active document's title, or "" when none is open.
	ActiveDocument(ctx context.Context) (string, error)
	NewPart(ctx context.Context) (string, error)

	OpenSketch(ctx context.Context, target SketchTarget) (string, error)
	CloseSketch(ctx context.Context) error

	CornerRectangle(ctx context.Context, a, b domain.Point) error
	Circle(ctx context.Context, center domain.Point, radius float64) error
	Line(ctx context.Context, a, b domain.Point) error
	Centerline(ctx context.Context, a, b domain.Point) error
	Point(ctx context.Context, p domain.Point) error
	ThreePointArc(ctx context.Context, start, end, mid domain.Point) error
	CenterArc(ctx context.Context, center, start, end domain.Point, clockwise bool) error
	Polygon(ctx context.Context, center, vertex domain.Point, sides int, inscribed bool) error
	Ellipse(ctx context.Context, center, majorEnd, minorEnd domain.Point) error
	Spline(ctx context.Context, pts []domain.Point) error
	Slot(ctx context.Context, start, end domain.Point, width float64) error
	Text(ctx context.Context, at domain.Point, text string) error

	Constrain(ctx context.Context, rel Relation, picks []domain.Point) error
	ToggleConstruction(ctx context.Context, at domain.Point) error
	// AddDimension raises the Modify dialog on a real host; callers guard it.
	AddDimension(ctx context.Context, at, textAt domain.Point) (Dimension, error)
	SetDimension(ctx context.Context, name string, value float64) error

	Extrude(ctx context.Context, sketch string, o ExtrudeOptions) (Feature, error)
	Revolve(ctx context.Context, sketch string, o RevolveOptions) (Feature, error)
	Fillet(ctx context.Context, radius float64, edges []domain.Point3) (Feature, error)
	Chamfer(ctx context.Context, o ChamferOptions) (Feature, error)
	Shell(ctx context.Context, o ShellOptions) (Feature, error)
	LinearPattern(ctx context.Context, o LinearPatternOptions) (Feature, error)
	CircularPattern(ctx context.Context, o CircularPatternOptions) (Feature, error)
	Mirror(ctx context.Context, o MirrorOptions) (Feature, error)
	RefPlane(ctx context.Context, o RefPlaneOptions) (Feature, error)
	RefAxis(ctx context.Context, o RefAxisOptions) (Feature, error)
	RefPoint(ctx context.Context, o RefPointOptions) (Feature, error)
	CoordinateSystem(ctx context.Context, o CoordinateSystemOptions) (Feature, error)
	// HoleWizard can raise a blocking dialog on a real host; callers guard it.
	HoleWizard(ctx context.Context, o HoleOptions) (Feature, error)

	Features(ctx context.Context) ([]Feature, error)
	MassProperties(ctx context.Context) (MassProperties, error)

	// Topology of the active part's solid bodies.
	BodyInfo(ctx context.Context) (BodyInfo, error)
	Faces(ctx context.Context) ([]FaceInfo, error)
	Edges(ctx context.Context) ([]EdgeInfo, error)
	Vertices(ctx context.Context) ([]domain.Point3, error)
	// FaceEdges describes the face at a pick point and the edges bounding it.
	FaceEdges(ctx context.Context, at domain.Point3) (FaceInfo, []EdgeInfo, error)
}

// Feature type names as reported by the feature tree.
const (
	TypeSketch          = "ProfileFeature"
	TypeOrigin          = "OriginProfileFeature"
	TypeRefPlane        = "RefPlane"
	TypeExtrusion       = "Extrusion"
	TypeCut             = "Cut"
	TypeRevolution      = "Revolution"
	TypeRevCut          = "RevCut"
	TypeFillet          = "Fillet"
	TypeChamfer         = "Chamfer"
	TypeShell           = "Shell"
	TypeLinearPattern   = "LPattern"
	TypeCircularPattern = "CirPattern"
	TypeMirror          = "MirrorPattern"
	TypeHoleWizard      = "HoleWzd"
	TypeRefAxis         = "RefAxis"
	TypeRefPoint        = "RefPoint"
	TypeCoordSys        = "CoordSys"
)

type Feature struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// LatestSketch returns the newest sketch in a feature list.
func LatestSketch(features []Feature) (string, bool) {
	for i := len(features) - 1; i >= 0; i-- {
		if features[i].Type == TypeSketch {
			return features[i].Name, true
		}
	}
	return "", false
}

// SketchTarget is either a named plane or a point on a solid face.
type SketchTarget struct {
	Plane string
	Face  *domain.Point3
}

func (t SketchTarget) String() string {
	if t.Face != nil {
		return fmt.Sprintf("face at (%g, %g, %g) mm", t.Face.X, t.Face.Y, t.Face.Z)
	}
	return t.Plane + " plane"
}

// PlaneName expands the short standard plane names to feature names.
func PlaneName(p string) string {
	switch strings.ToLower(p) {
	case "front", "front plane":
		return "Front Plane"
	case "top", "top plane":
		return "Top Plane"
	case "right", "right plane":
		return "Right Plane"
	}
	return p
}

// Relation is a sketch constraint.
type Relation string

const (
	Horizontal    Relation = "HORIZONTAL"
	Vertical      Relation = "VERTICAL"
	Parallel      Relation = "PARALLEL"
	Perpendicular Relation = "PERPENDICULAR"
	Tangent       Relation = "TANGENT"
	Equal         Relation = "EQUAL"
	Coincident    Relation = "COINCIDENT"
	Concentric    Relation = "CONCENTRIC"
	Midpoint      Relation = "MIDPOINT"
	Collinear     Relation = "COLLINEAR"
)

var relationTokens = map[Relation]string{
	Horizontal:    "sgHORIZONTAL2D",
	Vertical:      "sgVERTICAL2D",
	Parallel:      "sgPARALLEL",
	Perpendicular: "sgPERPENDICULAR",
	Tangent:       "sgTANGENT",
	Equal:         "sgSAMELENGTH",
	Coincident:    "sgCOINCIDENT",
	Concentric:    "sgCONCENTRIC",
	Midpoint:      "sgATMIDDLE",
	Collinear:     "sgCOLINEAR",
}

// ParseRelation accepts a relation name in any case.
func ParseRelation(s string) (Relation, error) {
	r := Relation(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := relationTokens[r]; !ok {
		return "", fmt.Errorf("unknown relation %q", s)
	}
	return r, nil
}

// Token is the application's constraint identifier.
func (r Relation) Token() string { return relationTokens[r] }

// Picks is how many entities the relation needs.
func (r Relation) Picks() int {
	switch r {
	case Horizontal, Vertical:
		return 1
	}
	return 2
}

type Dimension struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

type ExtrudeOptions struct {
	Depth   float64
	Reverse bool
	Cut     bool
}

type RevolveOptions struct {
	Angle   float64
	Reverse bool
	Cut     bool
}

type ChamferOptions struct {
	Distance float64
	Angle    float64
	Edges    []domain.Point3
}

type ShellOptions struct {
	Thickness float64
	Faces     []domain.Point3
	Outward   bool
}

type LinearPatternOptions struct {
	Features  []string
	Direction domain.Point3 // a point on the direction edge
	Spacing   float64
	Count     int
	Reverse   bool
}

type CircularPatternOptions struct {
	Features     []string
	Axis         string
	AxisEdge     *domain.Point3
	Count        int
	Angle        float64
	EqualSpacing bool
}

type MirrorOptions struct {
	Features []string
	Plane    string
	Face     *domain.Point3
}

// PlaneKind is how a reference plane is constrained to its base plane.
type PlaneKind string

const (
	PlaneOffset       PlaneKind = "OFFSET"
	PlaneAngle        PlaneKind = "ANGLE"
	PlaneThroughPoint PlaneKind = "THROUGH_POINT"
)

type RefPlaneOptions struct {
	Kind    PlaneKind
	Base    string
	Offset  float64
	Angle   float64        // degrees, for PlaneAngle
	Edge    *domain.Point3 // rotation edge, for PlaneAngle
	Point   *domain.Point3 // for PlaneThroughPoint
	Reverse bool
}

type AxisKind string

const (
	AxisTwoPoints AxisKind = "TWO_POINTS"
	AxisCylinder  AxisKind = "CYLINDRICAL_FACE"
	AxisEdge      AxisKind = "EDGE"
)

type RefAxisOptions struct {
	Kind     AxisKind
	From, To domain.Point3 // vertices, for AxisTwoPoints
	Pick     domain.Point3 // a point on the face or edge
}

type PointKind string

const (
	PointCoordinates PointKind = "COORDINATES"
	PointArcCenter   PointKind = "ARC_CENTER"
	PointFaceCenter  PointKind = "FACE_CENTER"
	PointOnEdge      PointKind = "ON_EDGE"
)

var pointKindCodes = map[PointKind]int{
	PointOnEdge:      0,
	PointFaceCenter:  1,
	PointArcCenter:   3,
	PointCoordinates: 4,
}

type RefPointOptions struct {
	Kind PointKind
	// At is the point itself for PointCoordinates and a pick point otherwise.
	At domain.Point3
}

type CoordinateSystemOptions struct {
	Origin domain.Point3
	XEdge  *domain.Point3
	YEdge  *domain.Point3
}

func ParsePlaneKind(s string) (PlaneKind, error) {
	return parseKind(s, "reference plane type", PlaneOffset, PlaneAngle, PlaneThroughPoint)
}

func ParseAxisKind(s string) (AxisKind, error) {
	return parseKind(s, "reference axis type", AxisTwoPoints, AxisCylinder, AxisEdge)
}

func ParsePointKind(s string) (PointKind, error) {
	return parseKind(s, "reference point type", PointCoordinates, PointArcCenter, PointFaceCenter, PointOnEdge)
}

func parseKind[K ~string](s, what string, kinds ...K) (K, error) {
	k := K(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown %s %q", what, s)
}

// HoleType is a Hole Wizard hole kind.
type HoleType string

const (
	HoleCounterbore HoleType = "COUNTERBORE"
	HoleCountersink HoleType = "COUNTERSINK"
	HoleSimple      HoleType = "HOLE"
	HoleStraightTap HoleType = "STRAIGHT_TAP"
	HoleTaperedTap  HoleType = "TAPERED_TAP"
	HoleLegacy      HoleType = "LEGACY"
)

var holeTypeCodes = map[HoleType]int{
	HoleCounterbore: 4,
	HoleCountersink: 5,
	HoleSimple:      6,
	HoleStraightTap: 7,
	HoleTaperedTap:  8,
	HoleLegacy:      9,
}

func ParseHoleType(s string) (HoleType, error) {
	t := HoleType(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := holeTypeCodes[t]; !ok {
		return "", fmt.Errorf("unknown hole type %q", s)
	}
	return t, nil
}

var endConditionCodes = map[string]int{
	"BLIND":       0,
	"THROUGH_ALL": 1,
	"UP_TO_NEXT":  11,
}

type HoleOptions struct {
	Type         HoleType
	Standard     int
	Size         string
	EndCondition string
	Depth        float64
	Face         domain.Point3
}

// MassProperties of the active part's solid bodies.
type MassProperties struct {
	Volume      float64 `json:"volumeMm3"`
	SurfaceArea float64 `json:"surfaceAreaMm2,omitempty"`
	Mass        float64 `json:"massKg"`
	Density     float64 `json:"densityKgM3"`
}

// Surface types as reported by face queries.
const (
	SurfacePlanar      = "Planar"
	SurfaceCylindrical = "Cylindrical"
	SurfaceConical     = "Conical"
	SurfaceSpherical   = "Spherical"
	SurfaceToroidal    = "Toroidal"
	SurfaceBSpline     = "BSpline"
	SurfaceBlend       = "Blend"
	SurfaceOffset      = "Offset"
	SurfaceExtrusion   = "Extrusion"
)

var surfaceIdentities = map[int]string{
	4001: SurfacePlanar,
	4002: SurfaceCylindrical,
	4003: SurfaceConical,
	4004: SurfaceSpherical,
	4005: SurfaceToroidal,
	4006: SurfaceBSpline,
	4007: SurfaceBlend,
	4008: SurfaceOffset,
	4009: SurfaceExtrusion,
}

var surfaceFilters = map[string]string{
	"PLANE":    SurfacePlanar,
	"CYLINDER": SurfaceCylindrical,
	"CONE":     SurfaceConical,
	"SPHERE":   SurfaceSpherical,
	"TORUS":    SurfaceToroidal,
	"BSPLINE":  SurfaceBSpline,
}

// ParseSurfaceFilter maps a filter name such as CYLINDER to the surface type
// it selects. An empty name selects everything and returns "".
func ParseSurfaceFilter(s string) (string, error) {
	return parseFilter(s, "surface type", surfaceFilters)
}

// Edge curve types.
const (
	CurveLine   = "Line"
	CurveCircle = "Circle"
	CurveArc    = "Arc"
	CurveOther  = "Curve"
)

var edgeFilters = map[string]string{
	"LINE":    CurveLine,
	"CIRCLE":  CurveCircle,
	"ARC":     CurveArc,
	"ELLIPSE": CurveOther,
	"SPLINE":  CurveOther,
}

// ParseEdgeFilter maps a filter name such as ARC to the curve type it selects.
func ParseEdgeFilter(s string) (string, error) {
	return parseFilter(s, "edge type", edgeFilters)
}

func parseFilter(s, what string, filters map[string]string) (string, error) {
	key := strings.ToUpper(strings.TrimSpace(s))
	if key == "" {
		return "", nil
	}
	if t, ok := filters[key]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unknown %s filter %q", what, s)
}

// BodyInfo summarizes the solid bodies of the active part.
type BodyInfo struct {
	Bodies   int           `json:"bodies"`
	Min      domain.Point3 `json:"min"`
	Max      domain.Point3 `json:"max"`
	Faces    int           `json:"faces"`
	Edges    int           `json:"edges"`
	Vertices int           `json:"vertices"`
}

func (b BodyInfo) Size() domain.Point3 {
	return domain.Point3{X: b.Max.X - b.Min.X, Y: b.Max.Y - b.Min.Y, Z: b.Max.Z - b.Min.Z}
}

// FaceInfo describes one face. Point lies on the face and can be used to
// pick it for other features.
type FaceInfo struct {
	Surface string         `json:"surface"`
	Area    float64        `json:"areaMm2"`
	Normal  *domain.Point3 `json:"normal,omitempty"`
	Axis    *domain.Point3 `json:"axis,omitempty"`
	Radius  float64        `json:"radius,omitempty"`
	Point   domain.Point3  `json:"point"`
	Edges   int            `json:"edges"`
}

// EdgeInfo describes one edge. Start and End are nil for closed edges; Mid
// lies on the edge and can be used to pick it.
type EdgeInfo struct {
	Curve  string         `json:"curve"`
	Start  *domain.Point3 `json:"start,omitempty"`
	End    *domain.Point3 `json:"end,omitempty"`
	Mid    domain.Point3  `json:"mid"`
	Length float64        `json:"length"`
}

func (e EdgeInfo) Closed() bool { return e.Start == nil || e.End == nil }

// vertexTolerance merges vertex positions closer than this, in mm.
const vertexTolerance = 1e-4

// UniqueVertices collects the end points of edges, merged within a small
// tolerance and sorted by x, then y, then z.
func UniqueVertices(edges []EdgeInfo) []domain.Point3 {
	var out []domain.Point3
	add := func(p *domain.Point3) {
		if p == nil {
			return
		}
		for _, q := range out {
			if math.Abs(p.X-q.X) < vertexTolerance && math.Abs(p.Y-q.Y) < vertexTolerance && math.Abs(p.Z-q.Z) < vertexTolerance {
				return
			}
		}
		out = append(out, *p)
	}
	for _, e := range edges {
		add(e.Start)
		add(e.End)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})
	return out
}
