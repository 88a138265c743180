package host

import (
	"context"
	"errors"
	"math"
	"testing"

	"cadbridge/internal/domain"
)

func newPartWithSketch(t *testing.T) (*Sim, string) {
	t.Helper()
	ctx := context.Background()
	s := NewSim()
	if _, err := s.NewPart(ctx); err != nil {
		t.Fatalf("NewPart: %v", err)
	}
	name, err := s.OpenSketch(ctx, SketchTarget{Plane: "Front"})
	if err != nil {
		t.Fatalf("OpenSketch: %v", err)
	}
	return s, name
}

func TestSim_RequiresDocumentAndSketch(t *testing.T) {
	ctx := context.Background()
	s := NewSim()

	if _, err := s.OpenSketch(ctx, SketchTarget{Plane: "Front"}); !errors.Is(err, domain.ErrHostCall) {
		t.Errorf("OpenSketch without document: %v", err)
	}
	if _, err := s.Extrude(ctx, "Sketch1", ExtrudeOptions{Depth: 10}); !errors.Is(err, domain.ErrHostCall) {
		t.Errorf("Extrude without document: %v", err)
	}

	s.NewPart(ctx)
	if err := s.Circle(ctx, domain.Point{}, 5); !errors.Is(err, domain.ErrHostCall) {
		t.Errorf("Circle without sketch: %v", err)
	}
}

func TestSim_SketchNamesAndFeatureTree(t *testing.T) {
	ctx := context.Background()
	s, first := newPartWithSketch(t)
	if first != "Sketch1" {
		t.Errorf("first sketch = %q", first)
	}
	s.CornerRectangle(ctx, domain.Point{X: -20, Y: -15}, domain.Point{X: 20, Y: 15})
	f, err := s.Extrude(ctx, first, ExtrudeOptions{Depth: 10})
	if err != nil {
		t.Fatalf("Extrude: %v", err)
	}
	if f.Name != "Boss-Extrude1" || f.Type != TypeExtrusion {
		t.Errorf("feature = %+v", f)
	}

	second, err := s.OpenSketch(ctx, SketchTarget{Face: &domain.Point3{Z: 10}})
	if err != nil {
		t.Fatalf("OpenSketch on face: %v", err)
	}
	if second != "Sketch2" {
		t.Errorf("second sketch = %q", second)
	}

	features, _ := s.Features(ctx)
	latest, ok := LatestSketch(features)
	if !ok || latest != "Sketch2" {
		t.Errorf("LatestSketch = %q, %v", latest, ok)
	}
}

func TestSim_ExtrudeAndCutVolumes(t *testing.T) {
	ctx := context.Background()
	s, sk := newPartWithSketch(t)
	s.CornerRectangle(ctx, domain.Point{X: -20, Y: -15}, domain.Point{X: 20, Y: 15})
	if _, err := s.Extrude(ctx, sk, ExtrudeOptions{Depth: 10}); err != nil {
		t.Fatalf("Extrude: %v", err)
	}

	mp, err := s.MassProperties(ctx)
	if err != nil {
		t.Fatalf("MassProperties: %v", err)
	}
	if math.Abs(mp.Volume-12000) > 1e-6 {
		t.Errorf("volume = %v, want 12000", mp.Volume)
	}

	hole, _ := s.OpenSketch(ctx, SketchTarget{Face: &domain.Point3{Z: 10}})
	s.Circle(ctx, domain.Point{}, 5)
	f, err := s.Extrude(ctx, hole, ExtrudeOptions{Depth: 10, Cut: true})
	if err != nil {
		t.Fatalf("cut: %v", err)
	}
	if f.Name != "Cut-Extrude1" || f.Type != TypeCut {
		t.Errorf("cut feature = %+v", f)
	}
	mp, _ = s.MassProperties(ctx)
	want := 12000 - math.Pi*25*10
	if math.Abs(mp.Volume-want) > 1e-6 {
		t.Errorf("volume after cut = %v, want %v", mp.Volume, want)
	}
}

func TestSim_ConstructionGeometryIsNotAProfile(t *testing.T) {
	ctx := context.Background()
	s, sk := newPartWithSketch(t)
	s.Circle(ctx, domain.Point{}, 10)
	if err := s.ToggleConstruction(ctx, domain.Point{X: 10}); err != nil {
		t.Fatalf("ToggleConstruction: %v", err)
	}
	if _, err := s.Extrude(ctx, sk, ExtrudeOptions{Depth: 5}); !errors.Is(err, domain.ErrHostCall) {
		t.Errorf("expected extrude of construction-only sketch to fail, got %v", err)
	}
}

func TestSim_RevolveNeedsCenterline(t *testing.T) {
	ctx := context.Background()
	s, sk := newPartWithSketch(t)
	s.CornerRectangle(ctx, domain.Point{X: 10, Y: 0}, domain.Point{X: 20, Y: 10})
	if _, err := s.Revolve(ctx, sk, RevolveOptions{Angle: 360}); !errors.Is(err, domain.ErrHostCall) {
		t.Fatalf("expected revolve without axis to fail, got %v", err)
	}

	// A failed feature call leaves the sketch usable.
	sk2, _ := s.OpenSketch(ctx, SketchTarget{Plane: "Front"})
	s.CornerRectangle(ctx, domain.Point{X: 10, Y: 0}, domain.Point{X: 20, Y: 10})
	s.Centerline(ctx, domain.Point{X: 0, Y: -5}, domain.Point{X: 0, Y: 15})
	f, err := s.Revolve(ctx, sk2, RevolveOptions{Angle: 360})
	if err != nil {
		t.Fatalf("Revolve: %v", err)
	}
	if f.Name != "Revolve1" {
		t.Errorf("feature = %+v", f)
	}
	mp, _ := s.MassProperties(ctx)
	want := 100 * 15 * 2 * math.Pi
	if math.Abs(mp.Volume-want) > 1e-6 {
		t.Errorf("volume = %v, want %v", mp.Volume, want)
	}
}

func TestSim_Dimensions(t *testing.T) {
	ctx := context.Background()
	s, _ := newPartWithSketch(t)
	s.Line(ctx, domain.Point{}, domain.Point{X: 40})

	dim, err := s.AddDimension(ctx, domain.Point{X: 20}, domain.Point{X: 20, Y: 10})
	if err != nil {
		t.Fatalf("AddDimension: %v", err)
	}
	if dim.Name != "D1@Sketch1" || dim.Value != 40 {
		t.Errorf("dimension = %+v", dim)
	}
	if err := s.SetDimension(ctx, dim.Name, 55); err != nil {
		t.Errorf("SetDimension: %v", err)
	}
	if err := s.SetDimension(ctx, "D9@Sketch1", 1); !errors.Is(err, domain.ErrHostCall) {
		t.Errorf("expected unknown dimension to fail, got %v", err)
	}
	if _, err := s.AddDimension(ctx, domain.Point{X: 100, Y: 100}, domain.Point{}); err == nil {
		t.Error("expected dimension on empty space to fail")
	}

	// A point is selectable but yields no dimension.
	s.Point(ctx, domain.Point{X: -30})
	if _, err := s.AddDimension(ctx, domain.Point{X: -30}, domain.Point{X: -30, Y: 10}); !errors.Is(err, domain.ErrHostCall) {
		t.Errorf("dimension on a point: %v", err)
	}
	next, err := s.AddDimension(ctx, domain.Point{X: 20}, domain.Point{X: 20, Y: 5})
	if err != nil || next.Name != "D2@Sketch1" {
		t.Errorf("dimension after a failed one = %+v, %v", next, err)
	}
}

func TestSim_Constraints(t *testing.T) {
	ctx := context.Background()
	s, _ := newPartWithSketch(t)
	s.Line(ctx, domain.Point{}, domain.Point{X: 40, Y: 1})
	s.Line(ctx, domain.Point{Y: 20}, domain.Point{X: 40, Y: 22})

	tests := []struct {
		rel   Relation
		picks []domain.Point
		ok    bool
	}{
		{Horizontal, []domain.Point{{X: 20, Y: 0.5}}, true},
		{Parallel, []domain.Point{{X: 20, Y: 0.5}, {X: 20, Y: 21}}, true},
		{Parallel, []domain.Point{{X: 20, Y: 0.5}}, false},
		{Equal, []domain.Point{{X: 20, Y: 0.5}, {X: 90, Y: 90}}, false},
	}
	for _, tt := range tests {
		err := s.Constrain(ctx, tt.rel, tt.picks)
		if (err == nil) != tt.ok {
			t.Errorf("%s %v: err = %v", tt.rel, tt.picks, err)
		}
	}
}

func TestSim_AppliedFeaturesAndPatterns(t *testing.T) {
	ctx := context.Background()
	s, sk := newPartWithSketch(t)
	edge := []domain.Point3{{X: 20, Y: 15, Z: 5}}

	if _, err := s.Fillet(ctx, 2, edge); !errors.Is(err, domain.ErrHostCall) {
		t.Errorf("fillet without a body: %v", err)
	}

	if err := s.CornerRectangle(ctx, domain.Point{X: -20, Y: -15}, domain.Point{X: 20, Y: 15}); err != nil {
		t.Fatalf("CornerRectangle after failed fillet: %v", err)
	}
	if _, err := s.Extrude(ctx, sk, ExtrudeOptions{Depth: 10}); err != nil {
		t.Fatalf("Extrude: %v", err)
	}

	if f, err := s.Fillet(ctx, 2, edge); err != nil || f.Name != "Fillet1" {
		t.Errorf("Fillet = %+v, %v", f, err)
	}
	if _, err := s.Chamfer(ctx, ChamferOptions{Distance: 1}); err == nil {
		t.Error("expected chamfer with no edges to fail")
	}

	boss, err := s.OpenSketch(ctx, SketchTarget{Face: &domain.Point3{Z: 10}})
	if err != nil {
		t.Fatalf("OpenSketch on face: %v", err)
	}
	if err := s.Circle(ctx, domain.Point{X: -10}, 2); err != nil {
		t.Fatalf("Circle: %v", err)
	}
	pin, err := s.Extrude(ctx, boss, ExtrudeOptions{Depth: 5})
	if err != nil {
		t.Fatalf("pin: %v", err)
	}
	before, err := s.MassProperties(ctx)
	if err != nil {
		t.Fatal(err)
	}
	lp, err := s.LinearPattern(ctx, LinearPatternOptions{
		Features: []string{pin.Name}, Direction: domain.Point3{X: 0, Y: -15, Z: 10}, Spacing: 10, Count: 3,
	})
	if err != nil || lp.Name != "LPattern1" {
		t.Fatalf("LinearPattern = %+v, %v", lp, err)
	}
	after, err := s.MassProperties(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(after.Volume-before.Volume-2*math.Pi*4*5) > 1e-6 {
		t.Errorf("pattern added %v mm³", after.Volume-before.Volume)
	}
	if _, err := s.Mirror(ctx, MirrorOptions{Features: []string{"Missing1"}, Plane: "Right"}); err == nil {
		t.Error("expected mirror of unknown feature to fail")
	}
}

func TestSim_RefPlaneAndHoleWizard(t *testing.T) {
	ctx := context.Background()
	s, _ := newPartWithSketch(t)

	plane, err := s.RefPlane(ctx, RefPlaneOptions{Base: "Top", Offset: 25})
	if err != nil || plane.Name != "Plane1" {
		t.Fatalf("RefPlane = %+v, %v", plane, err)
	}
	if _, err := s.OpenSketch(ctx, SketchTarget{Plane: plane.Name}); err != nil {
		t.Errorf("sketch on created plane: %v", err)
	}
	if _, err := s.HoleWizard(ctx, HoleOptions{Type: HoleCounterbore, Size: "M6"}); err == nil {
		t.Error("expected hole wizard without a body to fail")
	}

	s.OpenSketch(ctx, SketchTarget{Plane: "Front"})
	s.CornerRectangle(ctx, domain.Point{X: -20, Y: -15}, domain.Point{X: 20, Y: 15})
	features, _ := s.Features(ctx)
	latest, _ := LatestSketch(features)
	s.Extrude(ctx, latest, ExtrudeOptions{Depth: 10})

	hole, err := s.HoleWizard(ctx, HoleOptions{Type: HoleCounterbore, Size: "M6", Depth: 10, Face: domain.Point3{Z: 10}})
	if err != nil {
		t.Fatalf("HoleWizard: %v", err)
	}
	if hole.Name != "CBORE for M6 1" || hole.Type != TypeHoleWizard {
		t.Errorf("hole = %+v", hole)
	}
}

func TestParseRelation(t *testing.T) {
	r, err := ParseRelation(" midpoint ")
	if err != nil || r != Midpoint || r.Token() != "sgATMIDDLE" {
		t.Errorf("ParseRelation = %q, %v", r, err)
	}
	if _, err := ParseRelation("SYMMETRIC"); err == nil {
		t.Error("expected unknown relation to fail")
	}
}

func TestSim_FailedFeatureKeepsSketchOpen(t *testing.T) {
	ctx := context.Background()
	s, sk := newPartWithSketch(t)

	if err := s.Circle(ctx, domain.Point{}, 5); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Extrude(ctx, sk, ExtrudeOptions{Depth: 0}); err == nil {
		t.Fatal("expected extrude with zero depth to fail")
	}
	if _, err := s.Shell(ctx, ShellOptions{Thickness: 1, Faces: []domain.Point3{{Z: 10}}}); err == nil {
		t.Fatal("expected shell without a body to fail")
	}
	if _, err := s.LinearPattern(ctx, LinearPatternOptions{Spacing: 10, Count: 3}); err == nil {
		t.Fatal("expected pattern without seeds to fail")
	}
	if err := s.Circle(ctx, domain.Point{X: 20}, 5); err != nil {
		t.Errorf("sketch closed by a failed feature: %v", err)
	}

	if _, err := s.Extrude(ctx, sk, ExtrudeOptions{Depth: 10}); err != nil {
		t.Fatalf("Extrude: %v", err)
	}
	if err := s.Circle(ctx, domain.Point{X: 40}, 5); !errors.Is(err, domain.ErrHostCall) {
		t.Errorf("sketch still open after a successful extrude: %v", err)
	}
}

func boxPart(t *testing.T) *Sim {
	t.Helper()
	ctx := context.Background()
	s, sk := newPartWithSketch(t)
	if err := s.CornerRectangle(ctx, domain.Point{X: -20, Y: -15}, domain.Point{X: 20, Y: 15}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Extrude(ctx, sk, ExtrudeOptions{Depth: 10}); err != nil {
		t.Fatalf("Extrude: %v", err)
	}
	return s
}

func near(a, b domain.Point3) bool {
	return math.Abs(a.X-b.X) < 1e-6 && math.Abs(a.Y-b.Y) < 1e-6 && math.Abs(a.Z-b.Z) < 1e-6
}

func TestSim_TopologyCounts(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name                   string
		build                  func(t *testing.T) *Sim
		faces, edges, vertices int
	}{
		{"box", boxPart, 6, 12, 8},
		{"cylinder", func(t *testing.T) *Sim {
			s, sk := newPartWithSketch(t)
			s.Circle(ctx, domain.Point{}, 5)
			if _, err := s.Extrude(ctx, sk, ExtrudeOptions{Depth: 10}); err != nil {
				t.Fatal(err)
			}
			return s
		}, 3, 2, 0},
		{"filleted box", func(t *testing.T) *Sim {
			s := boxPart(t)
			if _, err := s.Fillet(ctx, 2, []domain.Point3{{X: 20, Y: 15, Z: 5}}); err != nil {
				t.Fatal(err)
			}
			return s
		}, 7, 15, 10},
		{"shelled box", func(t *testing.T) *Sim {
			s := boxPart(t)
			if _, err := s.Shell(ctx, ShellOptions{Thickness: 1, Faces: []domain.Point3{{Z: 10}}}); err != nil {
				t.Fatal(err)
			}
			return s
		}, 11, 24, 16},
		{"revolved ring", func(t *testing.T) *Sim {
			s, sk := newPartWithSketch(t)
			s.CornerRectangle(ctx, domain.Point{X: 10, Y: 0}, domain.Point{X: 20, Y: 10})
			s.Centerline(ctx, domain.Point{X: 0, Y: -5}, domain.Point{X: 0, Y: 15})
			if _, err := s.Revolve(ctx, sk, RevolveOptions{Angle: 360}); err != nil {
				t.Fatal(err)
			}
			return s
		}, 4, 4, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.build(t)
			info, err := s.BodyInfo(ctx)
			if err != nil {
				t.Fatalf("BodyInfo: %v", err)
			}
			if info.Faces != tt.faces || info.Edges != tt.edges || info.Vertices != tt.vertices {
				t.Errorf("faces/edges/vertices = %d/%d/%d, want %d/%d/%d",
					info.Faces, info.Edges, info.Vertices, tt.faces, tt.edges, tt.vertices)
			}
			faces, _ := s.Faces(ctx)
			edges, _ := s.Edges(ctx)
			verts, _ := s.Vertices(ctx)
			if len(faces) != info.Faces || len(edges) != info.Edges || len(verts) != info.Vertices {
				t.Errorf("lists disagree with BodyInfo: %d/%d/%d", len(faces), len(edges), len(verts))
			}
		})
	}
}

func TestSim_BoxGeometry(t *testing.T) {
	ctx := context.Background()
	s := boxPart(t)

	info, err := s.BodyInfo(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !near(info.Min, domain.Point3{X: -20, Y: -15}) || !near(info.Size(), domain.Point3{X: 40, Y: 30, Z: 10}) {
		t.Errorf("box = %+v .. %+v", info.Min, info.Max)
	}
	mp, _ := s.MassProperties(ctx)
	if math.Abs(mp.SurfaceArea-3800) > 1e-6 {
		t.Errorf("surface area = %v", mp.SurfaceArea)
	}

	face, edges, err := s.FaceEdges(ctx, domain.Point3{Z: 10})
	if err != nil {
		t.Fatalf("FaceEdges: %v", err)
	}
	if face.Surface != SurfacePlanar || math.Abs(face.Area-1200) > 1e-6 || face.Edges != 4 {
		t.Errorf("top face = %+v", face)
	}
	if face.Normal == nil || !near(*face.Normal, domain.Point3{Z: 1}) {
		t.Errorf("top normal = %v", face.Normal)
	}
	if len(edges) != 4 {
		t.Fatalf("top face has %d edges", len(edges))
	}
	for _, e := range edges {
		if e.Curve != CurveLine || e.Closed() || math.Abs(e.Mid.Z-10) > 1e-6 {
			t.Errorf("top edge = %+v", e)
		}
	}

	if _, _, err := s.FaceEdges(ctx, domain.Point3{Z: 50}); !errors.Is(err, domain.ErrHostCall) {
		t.Errorf("FaceEdges off the body: %v", err)
	}
	if _, err := s.Fillet(ctx, 1, []domain.Point3{{X: 100, Y: 100, Z: 100}}); !errors.Is(err, domain.ErrHostCall) {
		t.Errorf("fillet off the body: %v", err)
	}
}

func TestSim_CylinderAndRevolveFaces(t *testing.T) {
	ctx := context.Background()
	s, sk := newPartWithSketch(t)
	s.CornerRectangle(ctx, domain.Point{X: 10, Y: 0}, domain.Point{X: 20, Y: 10})
	s.Centerline(ctx, domain.Point{X: 0, Y: -5}, domain.Point{X: 0, Y: 15})
	if _, err := s.Revolve(ctx, sk, RevolveOptions{Angle: 360}); err != nil {
		t.Fatal(err)
	}

	cylinders := map[float64]bool{}
	faces, _ := s.Faces(ctx)
	for _, f := range faces {
		if f.Surface == SurfaceCylindrical {
			cylinders[math.Round(f.Radius)] = true
		}
	}
	if !cylinders[10] || !cylinders[20] {
		t.Errorf("cylinder radii = %v", cylinders)
	}
	edges, _ := s.Edges(ctx)
	for _, e := range edges {
		if e.Curve != CurveCircle || !e.Closed() {
			t.Errorf("edge = %+v", e)
		}
	}
	mp, _ := s.MassProperties(ctx)
	if math.Abs(mp.SurfaceArea-1200*math.Pi) > 1e-6 {
		t.Errorf("surface area = %v, want %v", mp.SurfaceArea, 1200*math.Pi)
	}
}

func TestSim_TopologyNeedsBody(t *testing.T) {
	ctx := context.Background()
	s, _ := newPartWithSketch(t)
	if _, err := s.BodyInfo(ctx); !errors.Is(err, domain.ErrHostCall) {
		t.Errorf("BodyInfo without a body: %v", err)
	}
	if _, err := s.Vertices(ctx); !errors.Is(err, domain.ErrHostCall) {
		t.Errorf("Vertices without a body: %v", err)
	}
}

func TestSim_ReferenceGeometry(t *testing.T) {
	ctx := context.Background()
	s := boxPart(t)

	edge := domain.Point3{Y: -15, Z: 10}
	if f, err := s.RefPlane(ctx, RefPlaneOptions{Kind: PlaneAngle, Base: "Front", Angle: 30, Edge: &edge}); err != nil || f.Name != "Plane1" {
		t.Errorf("angled plane = %+v, %v", f, err)
	}
	corner := domain.Point3{X: 20, Y: 15, Z: 10}
	if _, err := s.RefPlane(ctx, RefPlaneOptions{Kind: PlaneThroughPoint, Base: "Top", Point: &corner}); err != nil {
		t.Errorf("plane through vertex: %v", err)
	}
	off := domain.Point3{X: 3, Y: 3, Z: 3}
	if _, err := s.RefPlane(ctx, RefPlaneOptions{Kind: PlaneThroughPoint, Base: "Top", Point: &off}); err == nil {
		t.Error("expected plane through a non-vertex to fail")
	}

	axis, err := s.RefAxis(ctx, RefAxisOptions{Kind: AxisEdge, Pick: domain.Point3{X: 20, Y: 15, Z: 5}})
	if err != nil || axis.Name != "Axis1" || axis.Type != TypeRefAxis {
		t.Fatalf("RefAxis = %+v, %v", axis, err)
	}
	if _, err := s.RefAxis(ctx, RefAxisOptions{Kind: AxisCylinder, Pick: domain.Point3{Z: 10}}); err == nil {
		t.Error("expected axis on a planar face to fail")
	}
	if _, err := s.RefAxis(ctx, RefAxisOptions{
		Kind: AxisTwoPoints, From: domain.Point3{X: -20, Y: -15}, To: domain.Point3{X: 20, Y: 15, Z: 10},
	}); err != nil {
		t.Errorf("axis through two vertices: %v", err)
	}

	if p, err := s.RefPoint(ctx, RefPointOptions{Kind: PointFaceCenter, At: domain.Point3{Z: 10}}); err != nil || p.Name != "Point1" {
		t.Errorf("face center point = %+v, %v", p, err)
	}
	if _, err := s.RefPoint(ctx, RefPointOptions{Kind: PointArcCenter, At: domain.Point3{X: 20, Y: 15, Z: 5}}); err == nil {
		t.Error("expected arc center on a straight edge to fail")
	}

	xEdge := domain.Point3{Y: -15}
	cs, err := s.CoordinateSystem(ctx, CoordinateSystemOptions{Origin: domain.Point3{X: -20, Y: -15}, XEdge: &xEdge})
	if err != nil || cs.Name != "Coordinate System1" || cs.Type != TypeCoordSys {
		t.Errorf("CoordinateSystem = %+v, %v", cs, err)
	}

	// Pattern a pin about the named axis.
	sk, err := s.OpenSketch(ctx, SketchTarget{Face: &domain.Point3{Z: 10}})
	if err != nil {
		t.Fatal(err)
	}
	s.Circle(ctx, domain.Point{X: -10}, 2)
	pin, err := s.Extrude(ctx, sk, ExtrudeOptions{Depth: 5})
	if err != nil {
		t.Fatal(err)
	}
	cp, err := s.CircularPattern(ctx, CircularPatternOptions{Features: []string{pin.Name}, Axis: axis.Name, Count: 4, Angle: 360, EqualSpacing: true})
	if err != nil || cp.Name != "CirPattern1" {
		t.Errorf("CircularPattern = %+v, %v", cp, err)
	}
	if _, err := s.CircularPattern(ctx, CircularPatternOptions{Features: []string{pin.Name}, Axis: "Axis9", Count: 2}); err == nil {
		t.Error("expected pattern about an unknown axis to fail")
	}
}

func TestUniqueVertices(t *testing.T) {
	p := func(x, y, z float64) *domain.Point3 { return &domain.Point3{X: x, Y: y, Z: z} }
	edges := []EdgeInfo{
		{Curve: CurveLine, Start: p(1, 0, 0), End: p(0, 0, 0)},
		{Curve: CurveLine, Start: p(0, 0, 0.00001), End: p(0, 1, 0)},
		{Curve: CurveCircle},
		{Curve: CurveLine, Start: p(0, 1, 0), End: p(1, 0, 0)},
	}
	got := UniqueVertices(edges)
	want := []domain.Point3{{}, {Y: 1}, {X: 1}}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if !near(got[i], want[i]) {
			t.Errorf("vertex %d = %v, want %v", i, got[i], want[i])
		}
	}
}
