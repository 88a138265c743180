package host

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"sync"

	"cadbridge/internal/domain"
)

// pickTolerance is how far from an entity a pick point may land, in mm.
const pickTolerance = 0.5

// Sim is an in-memory host. It models documents, sketches, entities,
// dimensions and features closely enough to exercise the whole tool surface
// without a CAD application, including the failures a real host reports for
// badly sequenced calls.
type Sim struct {
	mu        sync.Mutex
	connected bool
	parts     int
	doc       *simDoc

	// Density in kg/m³ used for mass properties.
	Density float64
}

type simDoc struct {
	title    string
	features []Feature
	counters map[string]int
	sketches map[string]*simSketch
	planes   map[string]frame
	axes     map[string][2]vec // a point on the axis and its direction
	points   map[string]vec
	open     *simSketch
	dims     map[string]*Dimension
	volume   float64
	// volume added (or removed) by each solid feature
	contrib map[string]float64

	faces []*simFace
	edges []*simEdge
}

type simSketch struct {
	name     string
	frame    frame
	entities []*simEntity
	dims     int
}

type simEntity struct {
	kind         domain.ShapeKind
	bounds       domain.Bounds
	area         float64
	centroid     domain.Point
	measure      float64
	axis         [2]domain.Point
	construction bool
	// boundary of closed profiles, counter-clockwise
	loop []seg
}

func NewSim() *Sim { return &Sim{Density: 1000} }

func (s *Sim) Connect(context.Context) error {
	s.mu.Lock()
	s.connected = true
	s.mu.Unlock()
	return nil
}

func (s *Sim) Close() error {
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()
	return nil
}

func (s *Sim) Revision(context.Context) (string, error) { return "simulated", nil }

func (s *Sim) ActiveDocument(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return "", nil
	}
	return s.doc.title, nil
}

func (s *Sim) NewPart(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parts++
	d := &simDoc{
		title:    fmt.Sprintf("Part%d", s.parts),
		counters: make(map[string]int),
		sketches: make(map[string]*simSketch),
		planes:   make(map[string]frame, len(standardFrames)),
		axes:     make(map[string][2]vec),
		points:   make(map[string]vec),
		dims:     make(map[string]*Dimension),
		contrib:  make(map[string]float64),
	}
	for name, f := range standardFrames {
		d.planes[name] = f
	}
	d.features = []Feature{
		{Name: "Front Plane", Type: TypeRefPlane},
		{Name: "Top Plane", Type: TypeRefPlane},
		{Name: "Right Plane", Type: TypeRefPlane},
		{Name: "Origin", Type: TypeOrigin},
	}
	s.doc = d
	return d.title, nil
}

// ── Sketches ───────────────────────────────────────────────

func (s *Sim) OpenSketch(_ context.Context, t SketchTarget) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	const op = "open sketch"
	d, err := s.active(op)
	if err != nil {
		return "", err
	}
	var f frame
	if t.Face != nil {
		face := d.faceAt(vec(*t.Face), pickTolerance)
		if face == nil || face.surface != SurfacePlanar {
			return "", domain.HostFailure(op, "could not select %s", t)
		}
		f = frameOn(face.point, face.normal)
	} else {
		pf, ok := d.planes[PlaneName(t.Plane)]
		if !ok {
			return "", domain.HostFailure(op, "could not find %s", PlaneName(t.Plane))
		}
		f = pf
	}
	d.open = nil
	name := d.add("Sketch", TypeSketch)
	sk := &simSketch{name: name, frame: f}
	d.sketches[name] = sk
	d.open = sk
	return name, nil
}

func (s *Sim) CloseSketch(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.active("exit sketch")
	if err != nil {
		return err
	}
	d.open = nil
	return nil
}

func (s *Sim) CornerRectangle(_ context.Context, a, b domain.Point) error {
	bb := domain.BoundsOf(a, b)
	return s.draw("rectangle", &simEntity{
		kind: domain.ShapeRectangle, bounds: bb,
		area: bb.Width() * bb.Height(), centroid: bb.Mid(), measure: bb.Width(),
		loop: polyline(
			domain.Point{X: bb.Left, Y: bb.Bottom}, domain.Point{X: bb.Right, Y: bb.Bottom},
			domain.Point{X: bb.Right, Y: bb.Top}, domain.Point{X: bb.Left, Y: bb.Top},
		),
	})
}

func (s *Sim) Circle(_ context.Context, c domain.Point, r float64) error {
	return s.draw("circle", &simEntity{
		kind: domain.ShapeCircle, bounds: domain.BoundsOf(c).Inflate(r),
		area: math.Pi * r * r, centroid: c, measure: 2 * r,
		loop: []seg{{kind: segCircle, c: c, r: r}},
	})
}

func (s *Sim) Line(_ context.Context, a, b domain.Point) error {
	return s.draw("line", &simEntity{
		kind: domain.ShapeLine, bounds: domain.BoundsOf(a, b),
		measure: math.Hypot(b.X-a.X, b.Y-a.Y), axis: [2]domain.Point{a, b},
	})
}

func (s *Sim) Centerline(_ context.Context, a, b domain.Point) error {
	return s.draw("centerline", &simEntity{
		kind: domain.ShapeCenterline, bounds: domain.BoundsOf(a, b),
		measure: math.Hypot(b.X-a.X, b.Y-a.Y), axis: [2]domain.Point{a, b}, construction: true,
	})
}

func (s *Sim) Point(_ context.Context, p domain.Point) error {
	return s.draw("point", &simEntity{kind: domain.ShapePoint, bounds: domain.BoundsOf(p)})
}

func (s *Sim) ThreePointArc(_ context.Context, start, end, mid domain.Point) error {
	return s.draw("arc", &simEntity{kind: domain.ShapeArc, bounds: domain.BoundsOf(start, end, mid)})
}

func (s *Sim) CenterArc(_ context.Context, c, start, end domain.Point, _ bool) error {
	return s.draw("arc", &simEntity{
		kind: domain.ShapeArc, bounds: domain.BoundsOf(c, start, end),
		measure: math.Hypot(start.X-c.X, start.Y-c.Y),
	})
}

func (s *Sim) Polygon(_ context.Context, c, vertex domain.Point, sides int, inscribed bool) error {
	r := math.Hypot(vertex.X-c.X, vertex.Y-c.Y)
	if inscribed {
		r /= math.Cos(math.Pi / float64(sides))
	}
	area := float64(sides) / 2 * r * r * math.Sin(2*math.Pi/float64(sides))
	start := math.Atan2(vertex.Y-c.Y, vertex.X-c.X)
	if inscribed {
		// the given point is the middle of a side
		start += math.Pi / float64(sides)
	}
	corners := make([]domain.Point, sides)
	for i := range corners {
		corners[i] = polar(c, r, start+2*math.Pi*float64(i)/float64(sides))
	}
	return s.draw("polygon", &simEntity{
		kind: domain.ShapePolygon, bounds: domain.BoundsOf(c).Inflate(r),
		area: area, centroid: c, measure: 2 * r,
		loop: polyline(corners...),
	})
}

func (s *Sim) Ellipse(_ context.Context, c, majorEnd, minorEnd domain.Point) error {
	a := math.Hypot(majorEnd.X-c.X, majorEnd.Y-c.Y)
	b := math.Hypot(minorEnd.X-c.X, minorEnd.Y-c.Y)
	return s.draw("ellipse", &simEntity{
		kind: domain.ShapeEllipse, bounds: domain.BoundsOf(c).Inflate(a),
		area: math.Pi * a * b, centroid: c, measure: 2 * a,
		loop: []seg{{kind: segEllipse, c: c, r: a, r2: b, start: math.Atan2(majorEnd.Y-c.Y, majorEnd.X-c.X)}},
	})
}

func (s *Sim) Spline(_ context.Context, pts []domain.Point) error {
	if len(pts) < 2 {
		return domain.HostFailure("spline", "at least 2 points are required")
	}
	return s.draw("spline", &simEntity{kind: domain.ShapeSpline, bounds: domain.BoundsOf(pts...)})
}

func (s *Sim) Slot(_ context.Context, a, b domain.Point, w float64) error {
	l := math.Hypot(b.X-a.X, b.Y-a.Y)
	bb := domain.BoundsOf(a, b).Inflate(w / 2)
	dir := 0.0
	if l > 0 {
		dir = math.Atan2(b.Y-a.Y, b.X-a.X)
	}
	h := w / 2
	right, left := dir-math.Pi/2, dir+math.Pi/2
	return s.draw("slot", &simEntity{
		kind: domain.ShapeSlot, bounds: bb,
		area: l*w + math.Pi*w*w/4, centroid: bb.Mid(), measure: l,
		loop: slotLoop(a, b, h, l > 0, right, left),
	})
}

func slotLoop(a, b domain.Point, h float64, long bool, right, left float64) []seg {
	if !long {
		return []seg{{kind: segCircle, c: a, r: h}}
	}
	return []seg{
		{kind: segLine, a: polar(a, h, right), b: polar(b, h, right)},
		{kind: segArc, c: b, r: h, start: right, sweep: math.Pi},
		{kind: segLine, a: polar(b, h, left), b: polar(a, h, left)},
		{kind: segArc, c: a, r: h, start: left, sweep: math.Pi},
	}
}

// polyline closes a run of corners into a loop of line segments.
func polyline(pts ...domain.Point) []seg {
	out := make([]seg, 0, len(pts))
	for i, p := range pts {
		out = append(out, seg{kind: segLine, a: p, b: pts[(i+1)%len(pts)]})
	}
	return out
}

func (s *Sim) Text(_ context.Context, at domain.Point, text string) error {
	if text == "" {
		return domain.HostFailure("text", "text is empty")
	}
	return s.draw("text", &simEntity{kind: domain.ShapeText, bounds: domain.BoundsOf(at)})
}

func (s *Sim) Constrain(_ context.Context, rel Relation, picks []domain.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	op := "add relation " + string(rel)
	sk, err := s.sketch(op)
	if err != nil {
		return err
	}
	if len(picks) < rel.Picks() {
		return domain.HostFailure(op, "needs %d entities, got %d", rel.Picks(), len(picks))
	}
	for _, p := range picks {
		if sk.pick(p) == nil {
			return domain.HostFailure(op, "no sketch entity at (%g, %g)", p.X, p.Y)
		}
	}
	return nil
}

func (s *Sim) ToggleConstruction(_ context.Context, at domain.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	const op = "toggle construction"
	sk, err := s.sketch(op)
	if err != nil {
		return err
	}
	e := sk.pick(at)
	if e == nil {
		return domain.HostFailure(op, "no sketch entity at (%g, %g)", at.X, at.Y)
	}
	e.construction = !e.construction
	return nil
}

func (s *Sim) AddDimension(_ context.Context, at, _ domain.Point) (Dimension, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	const op = "add dimension"
	sk, err := s.sketch(op)
	if err != nil {
		return Dimension{}, err
	}
	e := sk.pick(at)
	if e == nil || e.measure <= 0 {
		return Dimension{}, domain.HostFailure(op, "no dimensionable entity at (%g, %g)", at.X, at.Y)
	}
	sk.dims++
	dim := &Dimension{Name: fmt.Sprintf("D%d@%s", sk.dims, sk.name), Value: e.measure}
	s.doc.dims[dim.Name] = dim
	return *dim, nil
}

func (s *Sim) SetDimension(_ context.Context, name string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	const op = "set dimension"
	d, err := s.active(op)
	if err != nil {
		return err
	}
	dim, ok := d.dims[name]
	if !ok {
		return domain.HostFailure(op, "dimension %q not found", name)
	}
	if value <= 0 {
		return domain.HostFailure(op, "value must be positive")
	}
	dim.Value = value
	return nil
}

// ── Features ───────────────────────────────────────────────

func (s *Sim) Extrude(_ context.Context, sketch string, o ExtrudeOptions) (Feature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, base, typ := "extrude", "Boss-Extrude", TypeExtrusion
	if o.Cut {
		op, base, typ = "cut extrude", "Cut-Extrude", TypeCut
	}
	d, sk, err := s.profile(op, sketch)
	if err != nil {
		return Feature{}, err
	}
	if o.Depth <= 0 {
		return Feature{}, domain.HostFailure(op, "depth must be positive")
	}
	area, _ := sk.closedArea()
	if area <= 0 {
		return Feature{}, domain.HostFailure(op, "%s has no closed profile", sketch)
	}
	delta := area * o.Depth
	if o.Cut {
		if d.volume <= 0 {
			return Feature{}, domain.HostFailure(op, "there is no solid body to cut")
		}
		delta = -math.Min(delta, d.volume)
	}
	d.open = nil
	f := d.solid(base, typ, delta)
	d.extrude(f.Name, sk, o.Depth, o.Reverse, o.Cut)
	return f, nil
}

func (s *Sim) Revolve(_ context.Context, sketch string, o RevolveOptions) (Feature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, base, typ := "revolve", "Revolve", TypeRevolution
	if o.Cut {
		op, base, typ = "cut revolve", "Cut-Revolve", TypeRevCut
	}
	d, sk, err := s.profile(op, sketch)
	if err != nil {
		return Feature{}, err
	}
	if o.Angle <= 0 || o.Angle > 360 {
		return Feature{}, domain.HostFailure(op, "angle must be in (0, 360]")
	}
	axis := sk.axis()
	if axis == nil {
		return Feature{}, domain.HostFailure(op, "%s contains no centerline for the revolve axis", sketch)
	}
	area, centroid := sk.closedArea()
	if area <= 0 {
		return Feature{}, domain.HostFailure(op, "%s has no closed profile", sketch)
	}
	// Pappus: area times the path length of the centroid.
	delta := area * distToLine(centroid, axis[0], axis[1]) * o.Angle * math.Pi / 180
	if o.Cut {
		if d.volume <= 0 {
			return Feature{}, domain.HostFailure(op, "there is no solid body to cut")
		}
		delta = -math.Min(delta, d.volume)
	}
	d.open = nil
	f := d.solid(base, typ, delta)
	d.revolve(f.Name, sk, o.Angle, o.Reverse, o.Cut)
	return f, nil
}

func (s *Sim) Fillet(_ context.Context, radius float64, edges []domain.Point3) (Feature, error) {
	const op = "fillet"
	return s.applied(op, "Fillet", TypeFillet, radius, len(edges), "edges", func(d *simDoc) (func(string) float64, error) {
		if _, err := d.pickEdges(op, edges); err != nil {
			return nil, err
		}
		return func(name string) float64 {
			d.blendAll(name, edges, radius, radius, true)
			return 0
		}, nil
	})
}

func (s *Sim) Chamfer(_ context.Context, o ChamferOptions) (Feature, error) {
	const op = "chamfer"
	angle := o.Angle
	if angle <= 0 {
		angle = 45
	}
	return s.applied(op, "Chamfer", TypeChamfer, o.Distance, len(o.Edges), "edges", func(d *simDoc) (func(string) float64, error) {
		if _, err := d.pickEdges(op, o.Edges); err != nil {
			return nil, err
		}
		return func(name string) float64 {
			d.blendAll(name, o.Edges, o.Distance, o.Distance*math.Tan(angle*math.Pi/180), false)
			return 0
		}, nil
	})
}

func (s *Sim) Shell(_ context.Context, o ShellOptions) (Feature, error) {
	const op = "shell"
	return s.applied(op, "Shell", TypeShell, o.Thickness, len(o.Faces), "faces", func(d *simDoc) (func(string) float64, error) {
		var open []*simFace
		for _, p := range o.Faces {
			f := d.faceAt(vec(p), pickTolerance)
			if f == nil {
				return nil, domain.HostFailure(op, "no face at (%g, %g, %g)", p.X, p.Y, p.Z)
			}
			if !slices.Contains(open, f) {
				open = append(open, f)
			}
		}
		return func(name string) float64 {
			return math.Max(d.shell(name, open, o.Thickness, o.Outward), -d.volume)
		}, nil
	})
}

func (s *Sim) LinearPattern(_ context.Context, o LinearPatternOptions) (Feature, error) {
	const op = "linear pattern"
	if o.Spacing <= 0 {
		return Feature{}, domain.HostFailure(op, "spacing must be positive")
	}
	return s.pattern(op, "LPattern", TypeLinearPattern, o.Features, o.Count, func(d *simDoc) ([]xform, error) {
		e := d.edgeAt(vec(o.Direction), pickTolerance)
		if e == nil || e.curve != CurveLine {
			return nil, domain.HostFailure(op, "could not select direction edge")
		}
		dir := e.end.sub(e.start).unit()
		if o.Reverse {
			dir = dir.scale(-1)
		}
		xs := make([]xform, 0, o.Count-1)
		for k := 1; k < o.Count; k++ {
			xs = append(xs, translation(dir.scale(o.Spacing*float64(k))))
		}
		return xs, nil
	})
}

func (s *Sim) CircularPattern(_ context.Context, o CircularPatternOptions) (Feature, error) {
	const op = "circular pattern"
	if o.Axis == "" && o.AxisEdge == nil {
		return Feature{}, domain.HostFailure(op, "either an axis or an axis edge is required")
	}
	angle := o.Angle
	if angle <= 0 {
		angle = 360
	}
	return s.pattern(op, "CirPattern", TypeCircularPattern, o.Features, o.Count, func(d *simDoc) ([]xform, error) {
		at, axis, err := d.patternAxis(op, o)
		if err != nil {
			return nil, err
		}
		step := angle
		switch {
		case o.EqualSpacing && angle >= 360:
			step = angle / float64(o.Count)
		case o.EqualSpacing:
			step = angle / float64(o.Count-1)
		}
		xs := make([]xform, 0, o.Count-1)
		for k := 1; k < o.Count; k++ {
			xs = append(xs, rotation(at, axis, step*float64(k)*math.Pi/180))
		}
		return xs, nil
	})
}

func (d *simDoc) patternAxis(op string, o CircularPatternOptions) (vec, vec, error) {
	if o.Axis != "" {
		ax, ok := d.axes[o.Axis]
		if !ok {
			return vec{}, vec{}, domain.HostFailure(op, "could not select axis %q", o.Axis)
		}
		return ax[0], ax[1], nil
	}
	p := vec(*o.AxisEdge)
	if e := d.edgeAt(p, pickTolerance); e != nil {
		switch {
		case e.curve == CurveLine:
			return e.start, e.end.sub(e.start).unit(), nil
		case e.round():
			return e.center, e.axis, nil
		}
	}
	if f := d.faceAt(p, pickTolerance); f != nil && (f.surface == SurfaceCylindrical || f.surface == SurfaceConical) {
		return f.origin, f.axis, nil
	}
	return vec{}, vec{}, domain.HostFailure(op, "could not select axis edge")
}

func (s *Sim) Mirror(_ context.Context, o MirrorOptions) (Feature, error) {
	const op = "mirror"
	return s.pattern(op, "Mirror", TypeMirror, o.Features, 2, func(d *simDoc) ([]xform, error) {
		if o.Plane != "" {
			pf, ok := d.planes[PlaneName(o.Plane)]
			if !ok {
				return nil, domain.HostFailure(op, "could not select mirror plane %q", o.Plane)
			}
			return []xform{reflection(pf.o, pf.n)}, nil
		}
		if o.Face == nil {
			return nil, domain.HostFailure(op, "either a mirror plane or a mirror face is required")
		}
		f := d.faceAt(vec(*o.Face), pickTolerance)
		if f == nil || f.surface != SurfacePlanar {
			return nil, domain.HostFailure(op, "could not select mirror face")
		}
		return []xform{reflection(f.point, f.normal)}, nil
	})
}

// ── Reference geometry ─────────────────────────────────────

func (s *Sim) RefPlane(_ context.Context, o RefPlaneOptions) (Feature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	const op = "reference plane"
	d, err := s.active(op)
	if err != nil {
		return Feature{}, err
	}
	base, ok := d.planes[PlaneName(o.Base)]
	if !ok {
		return Feature{}, domain.HostFailure(op, "could not select reference plane %q", o.Base)
	}
	var f frame
	switch o.Kind {
	case PlaneAngle:
		if o.Edge == nil {
			return Feature{}, domain.HostFailure(op, "an angled plane needs a rotation edge")
		}
		e := d.edgeAt(vec(*o.Edge), pickTolerance)
		if e == nil || e.curve != CurveLine {
			return Feature{}, domain.HostFailure(op, "could not select rotation edge")
		}
		theta := o.Angle * math.Pi / 180
		if o.Reverse {
			theta = -theta
		}
		f = frameOn(e.mid, rotate(base.n, vec{}, e.end.sub(e.start).unit(), theta))
	case PlaneThroughPoint:
		if o.Point == nil {
			return Feature{}, domain.HostFailure(op, "a plane through a point needs the point")
		}
		p, ok := d.vertexAt(vec(*o.Point))
		if !ok {
			return Feature{}, domain.HostFailure(op, "could not select vertex at (%g, %g, %g)", o.Point.X, o.Point.Y, o.Point.Z)
		}
		f = base.shifted(p.sub(base.o).dot(base.n))
	default:
		off := o.Offset
		if o.Reverse {
			off = -off
		}
		f = base.shifted(off)
	}
	name := d.add("Plane", TypeRefPlane)
	d.planes[name] = f
	return Feature{Name: name, Type: TypeRefPlane}, nil
}

func (s *Sim) RefAxis(_ context.Context, o RefAxisOptions) (Feature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	const op = "reference axis"
	d, err := s.active(op)
	if err != nil {
		return Feature{}, err
	}
	var line [2]vec
	switch o.Kind {
	case AxisTwoPoints:
		a, okA := d.vertexAt(vec(o.From))
		b, okB := d.vertexAt(vec(o.To))
		if !okA || !okB {
			return Feature{}, domain.HostFailure(op, "could not select both points")
		}
		if a.dist(b) < topoTolerance {
			return Feature{}, domain.HostFailure(op, "the two points coincide")
		}
		line = [2]vec{a, b.sub(a).unit()}
	case AxisEdge:
		e := d.edgeAt(vec(o.Pick), pickTolerance)
		if e == nil || e.curve != CurveLine {
			return Feature{}, domain.HostFailure(op, "could not select a straight edge")
		}
		line = [2]vec{e.start, e.end.sub(e.start).unit()}
	case AxisCylinder:
		f := d.faceAt(vec(o.Pick), pickTolerance)
		if f == nil || (f.surface != SurfaceCylindrical && f.surface != SurfaceConical) {
			return Feature{}, domain.HostFailure(op, "could not select a cylindrical face")
		}
		line = [2]vec{f.origin, f.axis}
	default:
		return Feature{}, domain.HostFailure(op, "unknown axis type %q", o.Kind)
	}
	name := d.add("Axis", TypeRefAxis)
	d.axes[name] = line
	return Feature{Name: name, Type: TypeRefAxis}, nil
}

func (s *Sim) RefPoint(_ context.Context, o RefPointOptions) (Feature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	const op = "reference point"
	d, err := s.active(op)
	if err != nil {
		return Feature{}, err
	}
	at := vec(o.At)
	var p vec
	switch o.Kind {
	case PointCoordinates:
		p = at
	case PointArcCenter:
		e := d.edgeAt(at, pickTolerance)
		if e == nil || !e.round() {
			return Feature{}, domain.HostFailure(op, "could not select a circular edge")
		}
		p = e.center
	case PointFaceCenter:
		f := d.faceAt(at, pickTolerance)
		if f == nil {
			return Feature{}, domain.HostFailure(op, "could not select a face")
		}
		p = f.point
	case PointOnEdge:
		e := d.edgeAt(at, pickTolerance)
		if e == nil {
			return Feature{}, domain.HostFailure(op, "could not select an edge")
		}
		p = e.mid
	default:
		return Feature{}, domain.HostFailure(op, "unknown point type %q", o.Kind)
	}
	name := d.add("Point", TypeRefPoint)
	d.points[name] = p
	return Feature{Name: name, Type: TypeRefPoint}, nil
}

func (s *Sim) CoordinateSystem(_ context.Context, o CoordinateSystemOptions) (Feature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	const op = "coordinate system"
	d, err := s.active(op)
	if err != nil {
		return Feature{}, err
	}
	if _, ok := d.vertexAt(vec(o.Origin)); !ok {
		return Feature{}, domain.HostFailure(op, "could not select origin vertex")
	}
	for _, p := range []*domain.Point3{o.XEdge, o.YEdge} {
		if p == nil {
			continue
		}
		if e := d.edgeAt(vec(*p), pickTolerance); e == nil || e.curve != CurveLine {
			return Feature{}, domain.HostFailure(op, "could not select axis edge at (%g, %g, %g)", p.X, p.Y, p.Z)
		}
	}
	name := d.add("Coordinate System", TypeCoordSys)
	return Feature{Name: name, Type: TypeCoordSys}, nil
}

var holeSize = regexp.MustCompile(`(?i)^M(\d+(?:\.\d+)?)`)

func (s *Sim) HoleWizard(_ context.Context, o HoleOptions) (Feature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	const op = "hole wizard"
	d, err := s.active(op)
	if err != nil {
		return Feature{}, err
	}
	var face *simFace
	if d.volume > 0 {
		face = d.faceAt(vec(o.Face), pickTolerance)
	}
	if face == nil || face.surface != SurfacePlanar {
		return Feature{}, domain.HostFailure(op, "could not select face for hole placement")
	}
	if _, ok := holeTypeCodes[o.Type]; !ok {
		return Feature{}, domain.HostFailure(op, "unknown hole type %q", o.Type)
	}
	dia := 5.0
	if m := holeSize.FindStringSubmatch(o.Size); m != nil {
		dia, _ = strconv.ParseFloat(m[1], 64)
	}
	depth := o.Depth
	if depth <= 0 {
		depth = 10
	}
	// hole centers sit on the face plane
	at := vec(o.Face)
	at = at.sub(face.normal.scale(at.sub(face.point).dot(face.normal)))
	through := o.EndCondition == "THROUGH_ALL" || o.EndCondition == "UP_TO_NEXT"
	if through {
		if exit, ok := d.exit(at, face.normal.scale(-1), math.Inf(1)); ok {
			depth = exit
		}
	}
	delta := -math.Min(math.Pi*dia*dia/4*depth, d.volume)
	d.open = nil
	f := d.solid(holePrefix(o), TypeHoleWizard, delta)
	d.hole(f.Name, face, at, dia/2, depth, through)
	return f, nil
}

func holePrefix(o HoleOptions) string {
	kind := map[HoleType]string{
		HoleCounterbore: "CBORE", HoleCountersink: "CSK", HoleSimple: "Hole",
		HoleStraightTap: "Tapped Hole", HoleTaperedTap: "Tapered Tap Hole", HoleLegacy: "Legacy Hole",
	}[o.Type]
	if o.Size == "" {
		return kind
	}
	return kind + " for " + o.Size + " "
}

func (s *Sim) Features(context.Context) ([]Feature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.active("list features")
	if err != nil {
		return nil, err
	}
	out := make([]Feature, len(d.features))
	copy(out, d.features)
	return out, nil
}

func (s *Sim) MassProperties(context.Context) (MassProperties, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	const op = "mass properties"
	d, err := s.active(op)
	if err != nil {
		return MassProperties{}, err
	}
	if d.volume <= 0 {
		return MassProperties{}, domain.HostFailure(op, "the part has no solid body")
	}
	return MassProperties{
		Volume:      d.volume,
		SurfaceArea: d.area(),
		Mass:        d.volume * 1e-9 * s.Density,
		Density:     s.Density,
	}, nil
}

// ── Topology ───────────────────────────────────────────────

func (s *Sim) BodyInfo(context.Context) (BodyInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.body("body info")
	if err != nil {
		return BodyInfo{}, err
	}
	b := d.box()
	return BodyInfo{
		Bodies: 1,
		Min:    b.min.point(), Max: b.max.point(),
		Faces: len(d.faces), Edges: len(d.edges),
		Vertices: len(UniqueVertices(d.edgeInfos(d.edges))),
	}, nil
}

func (s *Sim) Faces(context.Context) ([]FaceInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.body("list faces")
	if err != nil {
		return nil, err
	}
	out := make([]FaceInfo, len(d.faces))
	for i, f := range d.faces {
		out[i] = f.info(len(d.edgesOf(f)))
	}
	return out, nil
}

func (s *Sim) Edges(context.Context) ([]EdgeInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.body("list edges")
	if err != nil {
		return nil, err
	}
	return d.edgeInfos(d.edges), nil
}

func (s *Sim) Vertices(context.Context) ([]domain.Point3, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.body("list vertices")
	if err != nil {
		return nil, err
	}
	return UniqueVertices(d.edgeInfos(d.edges)), nil
}

func (s *Sim) FaceEdges(_ context.Context, at domain.Point3) (FaceInfo, []EdgeInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	const op = "face edges"
	d, err := s.body(op)
	if err != nil {
		return FaceInfo{}, nil, err
	}
	f := d.faceAt(vec(at), pickTolerance)
	if f == nil {
		return FaceInfo{}, nil, domain.HostFailure(op, "no face at (%g, %g, %g) mm", at.X, at.Y, at.Z)
	}
	edges := d.edgesOf(f)
	return f.info(len(edges)), d.edgeInfos(edges), nil
}

// ── internals ──────────────────────────────────────────────

func (s *Sim) active(op string) (*simDoc, error) {
	if s.doc == nil {
		return nil, domain.HostFailure(op, "no active document")
	}
	return s.doc, nil
}

func (s *Sim) sketch(op string) (*simSketch, error) {
	d, err := s.active(op)
	if err != nil {
		return nil, err
	}
	if d.open == nil {
		return nil, domain.HostFailure(op, "no active sketch")
	}
	return d.open, nil
}

// body is the active document, provided it has a solid body.
func (s *Sim) body(op string) (*simDoc, error) {
	d, err := s.active(op)
	if err != nil {
		return nil, err
	}
	if d.volume <= 0 || len(d.faces) == 0 {
		return nil, domain.HostFailure(op, "no solid bodies found")
	}
	return d, nil
}

func (s *Sim) draw(op string, e *simEntity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sk, err := s.sketch(op)
	if err != nil {
		return err
	}
	sk.entities = append(sk.entities, e)
	return nil
}

// profile looks up the sketch a feature consumes. The feature closes the open
// sketch only once it has been created; failed calls leave it open.
func (s *Sim) profile(op, sketch string) (*simDoc, *simSketch, error) {
	d, err := s.active(op)
	if err != nil {
		return nil, nil, err
	}
	sk, ok := d.sketches[sketch]
	if !ok || sketch == "" {
		return nil, nil, domain.HostFailure(op, "could not find sketch %q", sketch)
	}
	return d, sk, nil
}

// applied runs a feature that modifies existing geometry. prepare resolves
// the picks before anything is created; the step it returns builds the
// topology and reports the volume change.
func (s *Sim) applied(op, base, typ string, size float64, picks int, what string, prepare func(*simDoc) (func(string) float64, error)) (Feature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.active(op)
	if err != nil {
		return Feature{}, err
	}
	if d.volume <= 0 {
		return Feature{}, domain.HostFailure(op, "there is no solid body")
	}
	if size <= 0 {
		return Feature{}, domain.HostFailure(op, "size must be positive")
	}
	if picks == 0 {
		return Feature{}, domain.HostFailure(op, "no %s could be selected", what)
	}
	build, err := prepare(d)
	if err != nil {
		return Feature{}, err
	}
	d.open = nil
	f := d.solid(base, typ, 0)
	delta := build(f.Name)
	d.volume += delta
	d.contrib[f.Name] = delta
	return f, nil
}

// pattern copies seed features. place resolves the pattern's geometry and
// returns one transform per new instance.
func (s *Sim) pattern(op, base, typ string, seeds []string, count int, place func(*simDoc) ([]xform, error)) (Feature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.active(op)
	if err != nil {
		return Feature{}, err
	}
	if len(seeds) == 0 {
		return Feature{}, domain.HostFailure(op, "no features to pattern")
	}
	if count < 2 {
		return Feature{}, domain.HostFailure(op, "instance count must be at least 2")
	}
	var seedVolume float64
	for _, name := range seeds {
		v, ok := d.contrib[name]
		if !ok {
			return Feature{}, domain.HostFailure(op, "could not select feature %q", name)
		}
		seedVolume += v
	}
	xs, err := place(d)
	if err != nil {
		return Feature{}, err
	}
	delta := seedVolume * float64(count-1)
	if d.volume+delta < 0 {
		delta = -d.volume
	}
	d.open = nil
	f := d.solid(base, typ, delta)
	d.replicate(f.Name, seeds, xs)
	return f, nil
}

func (d *simDoc) pickEdges(op string, picks []domain.Point3) ([]*simEdge, error) {
	var out []*simEdge
	for _, p := range picks {
		e := d.edgeAt(vec(p), pickTolerance)
		if e == nil {
			return nil, domain.HostFailure(op, "no edge at (%g, %g, %g)", p.X, p.Y, p.Z)
		}
		if !slices.Contains(out, e) {
			out = append(out, e)
		}
	}
	return out, nil
}

// blendAll rounds or chamfers the edges at the picks. Picks are resolved one
// at a time because each blend trims its neighbours; a pick that lands on
// the feature's own new edges was already served.
func (d *simDoc) blendAll(feature string, picks []domain.Point3, d1, d2 float64, round bool) {
	for _, p := range picks {
		e := d.edgeAt(vec(p), pickTolerance)
		if e == nil || e.feature == feature {
			continue
		}
		d.blend(feature, e, d1, d2, round)
	}
}

func (d *simDoc) add(base, typ string) string {
	d.counters[base]++
	name := fmt.Sprintf("%s%d", base, d.counters[base])
	d.features = append(d.features, Feature{Name: name, Type: typ})
	return name
}

func (d *simDoc) solid(base, typ string, delta float64) Feature {
	name := d.add(base, typ)
	d.volume += delta
	d.contrib[name] = delta
	return Feature{Name: name, Type: typ}
}

// pick returns the most recently drawn entity near p.
func (sk *simSketch) pick(p domain.Point) *simEntity {
	for i := len(sk.entities) - 1; i >= 0; i-- {
		b := sk.entities[i].bounds.Inflate(pickTolerance)
		if p.X >= b.Left && p.X <= b.Right && p.Y >= b.Bottom && p.Y <= b.Top {
			return sk.entities[i]
		}
	}
	return nil
}

// closedArea sums the closed, non-construction profiles and returns their
// area-weighted centroid.
func (sk *simSketch) closedArea() (float64, domain.Point) {
	var area, mx, my float64
	for _, e := range sk.entities {
		if e.construction || e.area <= 0 {
			continue
		}
		area += e.area
		mx += e.area * e.centroid.X
		my += e.area * e.centroid.Y
	}
	if area == 0 {
		return 0, domain.Point{}
	}
	return area, domain.Point{X: mx / area, Y: my / area}
}

// profiles are the closed, non-construction entities a feature consumes.
func (sk *simSketch) profiles() []*simEntity {
	var out []*simEntity
	for _, e := range sk.entities {
		if !e.construction && len(e.loop) > 0 {
			out = append(out, e)
		}
	}
	return out
}

func (sk *simSketch) axis() *[2]domain.Point {
	for _, e := range sk.entities {
		if e.kind == domain.ShapeCenterline {
			return &e.axis
		}
	}
	return nil
}

func distToLine(p, a, b domain.Point) float64 {
	l := math.Hypot(b.X-a.X, b.Y-a.Y)
	return math.Abs((b.X-a.X)*(a.Y-p.Y)-(a.X-p.X)*(b.Y-a.Y)) / l
}
