package host

import (
	"math"

	"cadbridge/internal/domain"
)

// The simulated host keeps a light boundary representation next to its
// volume bookkeeping: every solid feature adds analytic faces and edges, so
// topology queries and face or edge picks behave like they do on a real part.
// Booleans are not evaluated. Faces a feature covers or opens lose the
// covered area, but nothing is trimmed against later features.

// topoTolerance decides whether two pieces of topology touch, in mm.
const topoTolerance = 1e-3

// ── vectors and frames ─────────────────────────────────────

// vec is a model-space vector in millimeters.
type vec domain.Point3

var (
	unitX = vec{X: 1}
	unitY = vec{Y: 1}
	unitZ = vec{Z: 1}
)

func (a vec) add(b vec) vec       { return vec{X: a.X + b.X, Y: a.Y + b.Y, Z: a.Z + b.Z} }
func (a vec) sub(b vec) vec       { return vec{X: a.X - b.X, Y: a.Y - b.Y, Z: a.Z - b.Z} }
func (a vec) scale(k float64) vec { return vec{X: a.X * k, Y: a.Y * k, Z: a.Z * k} }
func (a vec) dot(b vec) float64   { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }
func (a vec) norm() float64       { return math.Sqrt(a.dot(a)) }
func (a vec) dist(b vec) float64  { return a.sub(b).norm() }

func (a vec) cross(b vec) vec {
	return vec{X: a.Y*b.Z - a.Z*b.Y, Y: a.Z*b.X - a.X*b.Z, Z: a.X*b.Y - a.Y*b.X}
}

func (a vec) unit() vec {
	if l := a.norm(); l > 0 {
		return a.scale(1 / l)
	}
	return a
}

func (a vec) point() domain.Point3 { return domain.Point3(a) }

func (a vec) ref() *domain.Point3 {
	p := domain.Point3(a)
	return &p
}

func parallel(a, b vec) bool { return math.Abs(a.unit().dot(b.unit())) > 1-1e-9 }

// perpendicular returns some unit vector at right angles to d.
func perpendicular(d vec) vec {
	if math.Abs(d.unit().X) < 0.9 {
		return d.cross(unitX).unit()
	}
	return d.cross(unitY).unit()
}

// rotate turns p about the line through o along the unit direction d.
func rotate(p, o, d vec, theta float64) vec {
	w := p.sub(o)
	c, s := math.Cos(theta), math.Sin(theta)
	return o.add(w.scale(c)).add(d.cross(w).scale(s)).add(d.scale(d.dot(w) * (1 - c)))
}

// signedAngle measures from a to b, counter-clockwise seen down axis.
func signedAngle(a, b, axis vec) float64 {
	return math.Atan2(a.cross(b).dot(axis), a.dot(b))
}

func lineDist(p, a, b vec) float64 {
	d := b.sub(a)
	l := d.dot(d)
	if l == 0 {
		return p.dist(a)
	}
	t := math.Max(0, math.Min(1, p.sub(a).dot(d)/l))
	return p.dist(a.add(d.scale(t)))
}

// frame places sketch coordinates in model space: u and v span the sketch
// plane and n = u × v is its normal.
type frame struct{ o, u, v, n vec }

var standardFrames = map[string]frame{
	"Front Plane": {u: unitX, v: unitY, n: unitZ},
	"Top Plane":   {u: unitX, v: unitZ.scale(-1), n: unitY},
	"Right Plane": {u: unitZ.scale(-1), v: unitY, n: unitX},
}

// frameOn builds the frame of the plane through p with normal n. Its origin is
// the model origin projected onto the plane, and its axes line up with the
// standard plane of the same orientation.
func frameOn(p, n vec) frame {
	n = n.unit()
	u := unitX
	if math.Abs(n.X) >= 0.9 {
		u = unitZ.scale(-1)
	}
	u = u.sub(n.scale(u.dot(n))).unit()
	return frame{o: n.scale(p.dot(n)), u: u, v: n.cross(u), n: n}
}

func (f frame) at(p domain.Point, h float64) vec {
	return f.o.add(f.u.scale(p.X)).add(f.v.scale(p.Y)).add(f.n.scale(h))
}

func (f frame) dir(d domain.Point) vec { return f.u.scale(d.X).add(f.v.scale(d.Y)) }

func (f frame) shifted(h float64) frame {
	f.o = f.o.add(f.n.scale(h))
	return f
}

func (f frame) mapped(x xform) frame {
	return frame{o: x.p(f.o), u: x.d(f.u), v: x.d(f.v), n: x.d(f.n)}
}

// ── boxes ──────────────────────────────────────────────────

type box3 struct {
	min, max vec
	set      bool
}

func boxOf(pts ...vec) box3 {
	var b box3
	for _, p := range pts {
		b = b.with(p)
	}
	return b
}

func (b box3) with(p vec) box3 {
	if !b.set {
		return box3{min: p, max: p, set: true}
	}
	b.min = vec{X: math.Min(b.min.X, p.X), Y: math.Min(b.min.Y, p.Y), Z: math.Min(b.min.Z, p.Z)}
	b.max = vec{X: math.Max(b.max.X, p.X), Y: math.Max(b.max.Y, p.Y), Z: math.Max(b.max.Z, p.Z)}
	return b
}

func (b box3) union(o box3) box3 {
	if !o.set {
		return b
	}
	return b.with(o.min).with(o.max)
}

func (b box3) contains(p vec, tol float64) bool {
	return b.set &&
		p.X >= b.min.X-tol && p.X <= b.max.X+tol &&
		p.Y >= b.min.Y-tol && p.Y <= b.max.Y+tol &&
		p.Z >= b.min.Z-tol && p.Z <= b.max.Z+tol
}

func (b box3) corners() []vec {
	out := make([]vec, 0, 8)
	for _, x := range []float64{b.min.X, b.max.X} {
		for _, y := range []float64{b.min.Y, b.max.Y} {
			for _, z := range []float64{b.min.Z, b.max.Z} {
				out = append(out, vec{X: x, Y: y, Z: z})
			}
		}
	}
	return out
}

func (b box3) mapped(x xform) box3 {
	if !b.set {
		return b
	}
	var out box3
	for _, c := range b.corners() {
		out = out.with(x.p(c))
	}
	return out
}

// circleBox is the exact envelope of a circle.
func circleBox(c, n vec, r float64) box3 {
	n = n.unit()
	e := vec{
		X: r * math.Sqrt(math.Max(0, 1-n.X*n.X)),
		Y: r * math.Sqrt(math.Max(0, 1-n.Y*n.Y)),
		Z: r * math.Sqrt(math.Max(0, 1-n.Z*n.Z)),
	}
	return boxOf(c.sub(e), c.add(e))
}

// ── profile segments ───────────────────────────────────────

type segKind int

const (
	segLine segKind = iota
	segArc
	segCircle
	segEllipse
)

// seg is one piece of a closed sketch profile. Profiles run counter-clockwise.
type seg struct {
	kind  segKind
	a, b  domain.Point // line ends
	c     domain.Point // center of arcs, circles and ellipses
	r     float64      // radius, or the ellipse's semi-major axis
	r2    float64      // ellipse semi-minor axis
	start float64      // arc start angle, or the ellipse's major axis angle
	sweep float64      // arc sweep, counter-clockwise positive
}

func polar(c domain.Point, r, a float64) domain.Point {
	return domain.Point{X: c.X + r*math.Cos(a), Y: c.Y + r*math.Sin(a)}
}

func (s seg) at(t float64) domain.Point {
	switch s.kind {
	case segLine:
		return domain.Point{X: s.a.X + (s.b.X-s.a.X)*t, Y: s.a.Y + (s.b.Y-s.a.Y)*t}
	case segArc:
		return polar(s.c, s.r, s.start+s.sweep*t)
	case segCircle:
		return polar(s.c, s.r, s.start+2*math.Pi*t)
	}
	phi := 2 * math.Pi * t
	x, y := s.r*math.Cos(phi), s.r2*math.Sin(phi)
	c, sn := math.Cos(s.start), math.Sin(s.start)
	return domain.Point{X: s.c.X + x*c - y*sn, Y: s.c.Y + x*sn + y*c}
}

func (s seg) closed() bool { return s.kind == segCircle || s.kind == segEllipse }

func (s seg) samples(n int) []domain.Point {
	out := make([]domain.Point, n+1)
	for i := range out {
		out[i] = s.at(float64(i) / float64(n))
	}
	return out
}

func (s seg) length() float64 {
	switch s.kind {
	case segLine:
		return math.Hypot(s.b.X-s.a.X, s.b.Y-s.a.Y)
	case segArc:
		return s.r * math.Abs(s.sweep)
	case segCircle:
		return 2 * math.Pi * s.r
	}
	a, b := s.r, s.r2
	return math.Pi * (3*(a+b) - math.Sqrt((3*a+b)*(a+3*b)))
}

// outward is the unit normal pointing out of the profile at t.
func (s seg) outward(t float64) domain.Point {
	const h = 1e-4
	p, q := s.at(t-h), s.at(t+h)
	dx, dy := q.X-p.X, q.Y-p.Y
	l := math.Hypot(dx, dy)
	return domain.Point{X: dy / l, Y: -dx / l}
}

func (s seg) dist(p domain.Point) float64 {
	switch s.kind {
	case segLine:
		return lineDist(vec{X: p.X, Y: p.Y}, vec{X: s.a.X, Y: s.a.Y}, vec{X: s.b.X, Y: s.b.Y})
	case segCircle:
		return math.Abs(math.Hypot(p.X-s.c.X, p.Y-s.c.Y) - s.r)
	case segArc:
		if withinSweep(math.Atan2(p.Y-s.c.Y, p.X-s.c.X), s.start, s.sweep) {
			return math.Abs(math.Hypot(p.X-s.c.X, p.Y-s.c.Y) - s.r)
		}
		a, b := s.at(0), s.at(1)
		return math.Min(math.Hypot(p.X-a.X, p.Y-a.Y), math.Hypot(p.X-b.X, p.Y-b.Y))
	}
	best := math.Inf(1)
	pts := s.samples(128)
	for i := 1; i < len(pts); i++ {
		d := lineDist(vec{X: p.X, Y: p.Y}, vec{X: pts[i-1].X, Y: pts[i-1].Y}, vec{X: pts[i].X, Y: pts[i].Y})
		best = math.Min(best, d)
	}
	return best
}

// grown moves the profile away from the axis, or grows its radius for
// arcs, circles and ellipses.
func (s seg) grown(dr float64) seg {
	switch s.kind {
	case segLine:
		s.a.Y += dr
		s.b.Y += dr
	case segEllipse:
		s.r += dr
		s.r2 += dr
	default:
		s.r += dr
	}
	return s
}

func withinSweep(a, start, sweep float64) bool {
	d := a - start
	if sweep < 0 {
		d, sweep = -d, -sweep
	}
	d = math.Mod(d, 2*math.Pi)
	if d < 0 {
		d += 2 * math.Pi
	}
	return d <= sweep+1e-9
}

// sectionBox is the envelope of a profile segment placed at height h.
func sectionBox(s seg, f frame, h float64) box3 {
	if s.kind == segCircle {
		return circleBox(f.at(s.c, h), f.n, s.r)
	}
	var b box3
	for _, p := range s.samples(48) {
		b = b.with(f.at(p, h))
	}
	return b
}

// axial maps sketch points to (distance along a revolve axis, distance from it).
type axial struct {
	a, d domain.Point // a point on the axis and its unit direction
	side float64      // +1 when the profile lies left of the axis
}

func (x axial) of(p domain.Point) domain.Point {
	wx, wy := p.X-x.a.X, p.Y-x.a.Y
	return domain.Point{X: wx*x.d.X + wy*x.d.Y, Y: x.side * (x.d.X*wy - x.d.Y*wx)}
}

func (x axial) seg(s seg) seg {
	if s.kind == segLine {
		s.a, s.b = x.of(s.a), x.of(s.b)
		return s
	}
	s.c = x.of(s.c)
	s.start -= math.Atan2(x.d.Y, x.d.X)
	if x.side < 0 {
		s.start, s.sweep = -s.start, -s.sweep
	}
	return s
}

// ── faces and edges ────────────────────────────────────────

type simFace struct {
	feature string
	surface string
	area    float64
	point   vec // lies on the face
	normal  vec // planar faces, pointing out of the material

	// Surfaces of revolution: the axis line and the generating profile in
	// (along, from) axis coordinates.
	origin, axis vec
	profile      seg
	inward       bool // the material lies on the far side from the axis

	// Extruded free-form walls: the sketch frame and the swept curve.
	base    frame
	section seg

	box box3
}

func (f *simFace) revolved() bool {
	return f.surface != SurfacePlanar && f.surface != SurfaceExtrusion && f.surface != SurfaceBlend
}

// dist is how far p lies from the face, or +Inf outside its extent.
func (f *simFace) dist(p vec) float64 {
	if !f.box.contains(p, pickTolerance) {
		return math.Inf(1)
	}
	switch {
	case f.surface == SurfacePlanar:
		return math.Abs(p.sub(f.point).dot(f.normal))
	case f.surface == SurfaceExtrusion:
		w := p.sub(f.base.o)
		return f.section.dist(domain.Point{X: w.dot(f.base.u), Y: w.dot(f.base.v)})
	case f.revolved():
		w := p.sub(f.origin)
		t := w.dot(f.axis)
		return f.profile.dist(domain.Point{X: t, Y: w.sub(f.axis.scale(t)).norm()})
	}
	// blends are only bounded by their box
	return pickTolerance / 2
}

func (f *simFace) mapped(feature string, x xform) *simFace {
	c := *f
	c.feature = feature
	c.point, c.normal = x.p(f.point), x.d(f.normal)
	c.origin, c.axis = x.p(f.origin), x.d(f.axis)
	c.base = f.base.mapped(x)
	c.box = f.box.mapped(x)
	return &c
}

func (f *simFace) info(edges int) FaceInfo {
	fi := FaceInfo{Surface: f.surface, Area: f.area, Point: f.point.point(), Edges: edges}
	switch f.surface {
	case SurfacePlanar:
		fi.Normal = f.normal.ref()
	case SurfaceCylindrical:
		fi.Axis = f.axis.ref()
		fi.Radius = f.profile.a.Y
	case SurfaceSpherical:
		fi.Radius = f.profile.r
	case SurfaceConical, SurfaceToroidal:
		fi.Axis = f.axis.ref()
	}
	return fi
}

type simEdge struct {
	feature    string
	curve      string
	start, end vec // unset on closed edges
	closed     bool
	mid        vec
	length     float64

	// circles and arcs; center and axis also locate ellipses
	center, axis vec
	radius       float64
	sweep        float64

	samples []vec // free-form curves
	box     box3
}

func lineEdge(feature string, a, b vec) *simEdge {
	return &simEdge{
		feature: feature, curve: CurveLine,
		start: a, end: b, mid: a.add(b).scale(0.5), length: a.dist(b),
		box: boxOf(a, b),
	}
}

// arcEdge sweeps from about the axis through center. A full turn makes a
// closed circle whose mid point lies opposite from.
func arcEdge(feature string, center, axis, from vec, sweep float64) *simEdge {
	axis = axis.unit()
	r := from.dist(center)
	if r < topoTolerance {
		return nil
	}
	if math.Abs(sweep) >= 2*math.Pi-1e-9 {
		return &simEdge{
			feature: feature, curve: CurveCircle, closed: true,
			mid: rotate(from, center, axis, math.Pi), length: 2 * math.Pi * r,
			center: center, axis: axis, radius: r, sweep: 2 * math.Pi,
			box: circleBox(center, axis, r),
		}
	}
	e := &simEdge{
		feature: feature, curve: CurveArc,
		start: from, end: rotate(from, center, axis, sweep), mid: rotate(from, center, axis, sweep/2),
		length: r * math.Abs(sweep),
		center: center, axis: axis, radius: r, sweep: sweep,
	}
	for i := 0; i <= 32; i++ {
		e.box = e.box.with(rotate(from, center, axis, sweep*float64(i)/32))
	}
	return e
}

// segEdge is the edge a profile segment leaves at height h.
func segEdge(feature string, s seg, f frame, h float64) *simEdge {
	switch s.kind {
	case segLine:
		return lineEdge(feature, f.at(s.a, h), f.at(s.b, h))
	case segArc:
		return arcEdge(feature, f.at(s.c, h), f.n, f.at(s.at(0), h), s.sweep)
	case segCircle:
		return arcEdge(feature, f.at(s.c, h), f.n, f.at(s.at(0), h), 2*math.Pi)
	}
	e := &simEdge{
		feature: feature, curve: CurveOther, closed: true,
		mid: f.at(s.at(0.5), h), length: s.length(),
		center: f.at(s.c, h), axis: f.n,
	}
	for _, p := range s.samples(64) {
		q := f.at(p, h)
		e.samples = append(e.samples, q)
		e.box = e.box.with(q)
	}
	return e
}

func (e *simEdge) dist(p vec) float64 {
	switch e.curve {
	case CurveLine:
		return lineDist(p, e.start, e.end)
	case CurveArc, CurveCircle:
		if e.curve == CurveArc && !e.box.contains(p, pickTolerance) {
			return math.Min(p.dist(e.start), p.dist(e.end))
		}
		w := p.sub(e.center)
		h := w.dot(e.axis)
		return math.Hypot(h, w.sub(e.axis.scale(h)).norm()-e.radius)
	}
	best := math.Inf(1)
	for i := 1; i < len(e.samples); i++ {
		best = math.Min(best, lineDist(p, e.samples[i-1], e.samples[i]))
	}
	return best
}

// checkpoints are points on the edge used to find the faces it bounds.
func (e *simEdge) checkpoints() []vec {
	if e.closed {
		return []vec{e.mid, e.center.scale(2).sub(e.mid)}
	}
	return []vec{e.start, e.mid, e.end}
}

func (e *simEdge) round() bool { return e.curve == CurveCircle || e.curve == CurveArc }

// moved returns a copy of e translated by delta, with circles and arcs
// grown by dr. It returns nil when the radius collapses.
func (e *simEdge) moved(feature string, delta vec, dr float64) *simEdge {
	switch {
	case e.curve == CurveLine:
		return lineEdge(feature, e.start.add(delta), e.end.add(delta))
	case e.round():
		if e.radius+dr <= topoTolerance {
			return nil
		}
		center := e.center.add(delta)
		from := e.start
		if e.closed {
			from = rotate(e.mid, e.center, e.axis, math.Pi)
		}
		from = from.add(delta)
		from = center.add(from.sub(center).unit().scale(e.radius + dr))
		return arcEdge(feature, center, e.axis, from, e.sweep)
	}
	c := *e
	c.feature = feature
	c.mid, c.center = e.mid.add(delta), e.center.add(delta)
	c.samples = make([]vec, len(e.samples))
	c.box = box3{}
	for i, p := range e.samples {
		c.samples[i] = p.add(delta)
		c.box = c.box.with(c.samples[i])
	}
	return &c
}

func (e *simEdge) mapped(feature string, x xform) *simEdge {
	c := *e
	c.feature = feature
	c.start, c.end, c.mid, c.center = x.p(e.start), x.p(e.end), x.p(e.mid), x.p(e.center)
	c.axis = x.d(e.axis)
	if x.mirror {
		c.sweep = -e.sweep
	}
	c.samples = make([]vec, len(e.samples))
	for i, p := range e.samples {
		c.samples[i] = x.p(p)
	}
	c.box = e.box.mapped(x)
	return &c
}

func (e *simEdge) info() EdgeInfo {
	ei := EdgeInfo{Curve: e.curve, Mid: e.mid.point(), Length: e.length}
	if !e.closed {
		ei.Start, ei.End = e.start.ref(), e.end.ref()
	}
	return ei
}

// xform is a rigid motion applied to copied topology.
type xform struct {
	p      func(vec) vec // points
	d      func(vec) vec // directions
	mirror bool
}

func translation(t vec) xform {
	return xform{p: func(v vec) vec { return v.add(t) }, d: func(v vec) vec { return v }}
}

func rotation(o, axis vec, theta float64) xform {
	axis = axis.unit()
	return xform{
		p: func(v vec) vec { return rotate(v, o, axis, theta) },
		d: func(v vec) vec { return rotate(v, vec{}, axis, theta) },
	}
}

func reflection(o, n vec) xform {
	n = n.unit()
	ref := func(v vec) vec { return v.sub(n.scale(2 * v.dot(n))) }
	return xform{p: func(v vec) vec { return o.add(ref(v.sub(o))) }, d: ref, mirror: true}
}

// ── document topology ──────────────────────────────────────

func (d *simDoc) addFace(f *simFace) { d.faces = append(d.faces, f) }

// addEdge skips nil edges and edges a feature has already produced.
func (d *simDoc) addEdge(e *simEdge) {
	if e == nil {
		return
	}
	for _, o := range d.edges {
		if o.feature == e.feature && o.curve == e.curve &&
			o.mid.dist(e.mid) < topoTolerance && math.Abs(o.length-e.length) < topoTolerance {
			return
		}
	}
	d.edges = append(d.edges, e)
}

func (d *simDoc) removeEdge(e *simEdge) {
	for i, o := range d.edges {
		if o == e {
			d.edges = append(d.edges[:i], d.edges[i+1:]...)
			return
		}
	}
}

func (d *simDoc) removeFace(f *simFace) {
	for i, o := range d.faces {
		if o == f {
			d.faces = append(d.faces[:i], d.faces[i+1:]...)
			return
		}
	}
}

// faceAt returns the face nearest p within tol, preferring newer faces.
func (d *simDoc) faceAt(p vec, tol float64) *simFace {
	var best *simFace
	for _, f := range d.faces {
		if dd := f.dist(p); dd <= tol {
			best, tol = f, dd
		}
	}
	return best
}

func (d *simDoc) edgeAt(p vec, tol float64) *simEdge {
	var best *simEdge
	for _, e := range d.edges {
		if dd := e.dist(p); dd <= tol {
			best, tol = e, dd
		}
	}
	return best
}

// vertexAt finds a body vertex, a reference point or the model origin near p.
func (d *simDoc) vertexAt(p vec) (vec, bool) {
	cands := []vec{{}}
	for _, e := range d.edges {
		if !e.closed {
			cands = append(cands, e.start, e.end)
		}
	}
	for _, rp := range d.points {
		cands = append(cands, rp)
	}
	for _, c := range cands {
		if c.dist(p) <= pickTolerance {
			return c, true
		}
	}
	return vec{}, false
}

func (d *simDoc) bounds(f *simFace, e *simEdge) bool {
	for _, p := range e.checkpoints() {
		if f.dist(p) > topoTolerance {
			return false
		}
	}
	return true
}

func (d *simDoc) edgesOf(f *simFace) []*simEdge {
	var out []*simEdge
	for _, e := range d.edges {
		if d.bounds(f, e) {
			out = append(out, e)
		}
	}
	return out
}

func (d *simDoc) facesOf(e *simEdge) []*simFace {
	var out []*simFace
	for _, f := range d.faces {
		if d.bounds(f, e) {
			out = append(out, f)
		}
	}
	return out
}

// merge folds a planar cap into a coplanar face of opposite orientation,
// which loses the cap's area. It reports whether such a face was found.
func (d *simDoc) merge(c *simFace) bool {
	for _, f := range d.faces {
		if f.surface != SurfacePlanar || f.normal.dot(c.normal) > -1+1e-9 {
			continue
		}
		if f.dist(c.point) <= topoTolerance {
			f.area = math.Max(0, f.area-c.area)
			return true
		}
	}
	return false
}

// exit is where a ray from inside the body leaves through a planar face
// facing along dir, if it does so within reach.
func (d *simDoc) exit(from, dir vec, reach float64) (float64, bool) {
	best, found := 0.0, false
	for _, f := range d.faces {
		if f.surface != SurfacePlanar || f.normal.dot(dir) < 1-1e-9 {
			continue
		}
		dd := f.point.sub(from).dot(dir)
		if dd <= topoTolerance || dd > reach+topoTolerance {
			continue
		}
		if !f.box.contains(from.add(dir.scale(dd)), topoTolerance) {
			continue
		}
		if !found || dd < best {
			best, found = dd, true
		}
	}
	return best, found
}

func (d *simDoc) box() box3 {
	var b box3
	for _, f := range d.faces {
		b = b.union(f.box)
	}
	return b
}

func (d *simDoc) area() float64 {
	var a float64
	for _, f := range d.faces {
		a += f.area
	}
	return a
}

// ── features ───────────────────────────────────────────────

func capFace(feature string, e *simEntity, f frame, h float64, normal vec) *simFace {
	var box box3
	for _, s := range e.loop {
		box = box.union(sectionBox(s, f, h))
	}
	return &simFace{
		feature: feature, surface: SurfacePlanar, area: e.area,
		point: f.at(e.centroid, h), normal: normal.unit(), box: box,
	}
}

// wallFace is the side a profile segment sweeps from height 0 to hn.
func wallFace(feature string, s seg, f frame, hn, sense float64) *simFace {
	lo, hi := math.Min(0, hn), math.Max(0, hn)
	face := &simFace{
		feature: feature,
		area:    s.length() * (hi - lo),
		point:   f.at(s.at(0.5), hn/2),
		box:     sectionBox(s, f, 0).union(sectionBox(s, f, hn)),
	}
	switch s.kind {
	case segLine:
		face.surface = SurfacePlanar
		face.normal = f.dir(s.outward(0.5)).scale(sense)
	case segArc, segCircle:
		face.surface = SurfaceCylindrical
		face.origin, face.axis = f.at(s.c, 0), f.n
		face.profile = seg{kind: segLine, a: domain.Point{X: lo, Y: s.r}, b: domain.Point{X: hi, Y: s.r}}
		face.inward = (sense < 0) != (s.sweep < 0)
	default:
		face.surface = SurfaceExtrusion
		face.base, face.section = f, s
	}
	return face
}

// extrude adds the topology of extruding the sketch's profiles. Bosses grow
// along the sketch normal and cuts go against it; reverse flips either.
func (d *simDoc) extrude(feature string, sk *simSketch, depth float64, reverse, cut bool) {
	f := sk.frame
	sense := 1.0
	if cut {
		sense = -1
	}
	dir := f.n.scale(sense)
	if reverse {
		dir = dir.scale(-1)
	}
	for _, e := range sk.profiles() {
		h := depth
		if cut {
			if exit, ok := d.exit(f.at(e.centroid, 0), dir, depth); ok {
				h = exit
			}
		}
		hn := h * dir.dot(f.n)
		if cut {
			d.merge(capFace(feature, e, f, 0, dir))
			if floor := capFace(feature, e, f, hn, dir.scale(-1)); !d.merge(floor) {
				d.addFace(floor)
			}
		} else {
			if bottom := capFace(feature, e, f, 0, dir.scale(-1)); !d.merge(bottom) {
				d.addFace(bottom)
			}
			d.addFace(capFace(feature, e, f, hn, dir))
		}
		for _, s := range e.loop {
			d.addFace(wallFace(feature, s, f, hn, sense))
			d.addEdge(segEdge(feature, s, f, 0))
			d.addEdge(segEdge(feature, s, f, hn))
			if !s.closed() {
				p := s.at(0)
				d.addEdge(lineEdge(feature, f.at(p, 0), f.at(p, hn)))
			}
		}
	}
}

// revolve adds the topology of spinning the sketch's profiles about its
// centerline by angle degrees.
func (d *simDoc) revolve(feature string, sk *simSketch, angle float64, reverse, cut bool) {
	f := sk.frame
	line := sk.axis()
	l := math.Hypot(line[1].X-line[0].X, line[1].Y-line[0].Y)
	m := axial{a: line[0], d: domain.Point{X: (line[1].X - line[0].X) / l, Y: (line[1].Y - line[0].Y) / l}, side: 1}
	if _, c := sk.closedArea(); m.of(c).Y < 0 {
		m.side = -1
	}
	origin, axis := f.at(m.a, 0), f.dir(m.d)
	theta := angle * math.Pi / 180
	if reverse {
		theta = -theta
	}
	sense := 1.0
	if cut {
		sense = -1
	}
	partial := math.Abs(theta) < 2*math.Pi-1e-9

	for _, e := range sk.profiles() {
		for _, s := range e.loop {
			if face := revolvedFace(feature, s, f, m, origin, axis, theta, sense); face != nil {
				d.addFace(face)
			}
			if s.closed() {
				continue
			}
			if p := m.of(s.at(0)); p.Y > topoTolerance {
				d.addEdge(arcEdge(feature, origin.add(axis.scale(p.X)), axis, f.at(s.at(0), 0), theta))
			}
		}
		if !partial {
			continue
		}
		// a partial revolve is closed at both ends by the profile itself
		turn := axis.cross(f.at(e.centroid, 0).sub(origin)).unit()
		if theta < 0 {
			turn = turn.scale(-1)
		}
		for i, end := range []float64{0, theta} {
			ef := f.mapped(rotation(origin, axis, end))
			n := turn.scale(-sense)
			if i == 1 {
				n = rotate(turn, vec{}, axis, end).scale(sense)
			}
			if c := capFace(feature, e, ef, 0, n); !d.merge(c) {
				d.addFace(c)
			}
			for _, s := range e.loop {
				d.addEdge(segEdge(feature, s, ef, 0))
			}
		}
	}
}

func revolvedFace(feature string, s seg, f frame, m axial, origin, axis vec, theta, sense float64) *simFace {
	prof := m.seg(s)
	sweep := math.Abs(theta)
	out := s.outward(0.5)
	// components of the outward normal along and away from the axis
	along := out.X*m.d.X + out.Y*m.d.Y
	away := m.side * (m.d.X*out.Y - m.d.Y*out.X)

	face := &simFace{
		feature: feature,
		point:   rotate(f.at(s.at(0.5), 0), origin, axis, theta/2),
		origin:  origin, axis: axis, profile: prof,
		inward: (away < 0) != (sense < 0),
		box:    revolvedBox(s, f, origin, axis, theta),
	}
	switch s.kind {
	case segLine:
		r1, r2 := prof.a.Y, prof.b.Y
		if r1 < topoTolerance && r2 < topoTolerance {
			return nil
		}
		face.area = s.length() * (r1 + r2) / 2 * sweep
		switch {
		case math.Abs(prof.a.X-prof.b.X) < topoTolerance:
			face.surface = SurfacePlanar
			face.area = math.Abs(r2*r2-r1*r1) / 2 * sweep
			sign := 1.0
			if along < 0 {
				sign = -1
			}
			face.normal = axis.scale(sign * sense)
		case math.Abs(r1-r2) < topoTolerance:
			face.surface = SurfaceCylindrical
		default:
			face.surface = SurfaceConical
		}
		return face
	case segArc:
		face.surface = SurfaceToroidal
		if prof.c.Y < topoTolerance {
			face.surface = SurfaceSpherical
		}
		face.area = s.length() * m.of(s.at(0.5)).Y * sweep
	case segCircle:
		face.surface = SurfaceToroidal
		face.area = s.length() * prof.c.Y * sweep
	default:
		face.surface = SurfaceBSpline
		face.area = s.length() * prof.c.Y * sweep
	}
	return face
}

func revolvedBox(s seg, f frame, origin, axis vec, theta float64) box3 {
	var b box3
	full := math.Abs(theta) >= 2*math.Pi-1e-9
	for _, q := range s.samples(24) {
		p := f.at(q, 0)
		c := origin.add(axis.scale(p.sub(origin).dot(axis)))
		if full {
			b = b.union(circleBox(c, axis, p.dist(c)))
			continue
		}
		for i := 0; i <= 24; i++ {
			b = b.with(rotate(p, origin, axis, theta*float64(i)/24))
		}
	}
	return b
}

// drillPoint is the half angle of a drilled hole's conical tip.
const drillPoint = 59 * math.Pi / 180

// hole bores a cylinder of the given radius into face at p. Holes with
// through set run until they leave the body.
func (d *simDoc) hole(feature string, face *simFace, p vec, radius, depth float64, through bool) {
	dir := face.normal.scale(-1)
	if through {
		if exit, ok := d.exit(p, dir, math.Inf(1)); ok {
			depth = exit
		} else {
			through = false
		}
	}
	end := p.add(dir.scale(depth))
	side := perpendicular(dir).scale(radius)
	disc := math.Pi * radius * radius

	d.merge(&simFace{surface: SurfacePlanar, area: disc, point: p, normal: dir})
	d.addFace(&simFace{
		feature: feature, surface: SurfaceCylindrical,
		area:  2 * math.Pi * radius * depth,
		point: p.add(side).add(dir.scale(depth / 2)),
		origin: p, axis: dir, inward: true,
		profile: seg{kind: segLine, a: domain.Point{Y: radius}, b: domain.Point{X: depth, Y: radius}},
		box:     circleBox(p, dir, radius).union(circleBox(end, dir, radius)),
	})
	d.addEdge(arcEdge(feature, p, dir, p.add(side), 2*math.Pi))
	d.addEdge(arcEdge(feature, end, dir, end.add(side), 2*math.Pi))
	if through {
		d.merge(&simFace{surface: SurfacePlanar, area: disc, point: end, normal: dir.scale(-1)})
		return
	}
	tip := radius / math.Tan(drillPoint)
	d.addFace(&simFace{
		feature: feature, surface: SurfaceConical,
		area:  math.Pi * radius * math.Hypot(radius, tip),
		point: end.add(side.scale(0.5)).add(dir.scale(tip / 2)),
		origin: p, axis: dir, inward: true,
		profile: seg{kind: segLine, a: domain.Point{X: depth, Y: radius}, b: domain.Point{X: depth + tip}},
		box:     circleBox(end, dir, radius).with(end.add(dir.scale(tip))),
	})
}

// blend replaces an edge with a fillet (round) or a chamfer. d1 is the setback
// on the first adjacent face and d2 on the second.
func (d *simDoc) blend(feature string, e *simEdge, d1, d2 float64, round bool) {
	var planes []*simFace
	for _, f := range d.facesOf(e) {
		if f.surface == SurfacePlanar {
			planes = append(planes, f)
		}
	}
	if e.curve == CurveLine && len(planes) >= 2 && !parallel(planes[0].normal, planes[1].normal) {
		d.blendLine(feature, e, planes[0], planes[1], d1, d2, round)
		return
	}
	d.blendCurve(feature, e, planes, d1, round)
}

func (d *simDoc) blendLine(feature string, e *simEdge, f1, f2 *simFace, d1, d2 float64, round bool) {
	n1, n2 := f1.normal, f2.normal
	// setbacks run into each face, away from the other face's outside
	k := -1.0
	convex := f1.point.sub(e.mid).dot(n2) <= 0
	if !convex {
		k = 1
	}
	off1, off2 := n2.scale(k*d1), n1.scale(k*d2)
	s1, e1 := e.start.add(off1), e.end.add(off1)
	s2, e2 := e.start.add(off2), e.end.add(off2)

	d.removeEdge(e)
	d.trim(e.start, s1, s2)
	d.trim(e.end, e1, e2)
	d.addEdge(lineEdge(feature, s1, e1))
	d.addEdge(lineEdge(feature, s2, e2))

	along := e.end.sub(e.start).unit()
	if !round {
		d.addEdge(lineEdge(feature, s1, s2))
		d.addEdge(lineEdge(feature, e1, e2))
		d.addFace(&simFace{
			feature: feature, surface: SurfacePlanar,
			area:  e.length * s1.dist(s2),
			point: s1.add(e1).add(s2).add(e2).scale(0.25),
			normal: n1.add(n2).unit().scale(-k),
			box:    boxOf(s1, e1, s2, e2),
		})
		return
	}
	c0, c1 := e.start.add(off1).add(off2), e.end.add(off1).add(off2)
	theta := signedAngle(s1.sub(c0), s2.sub(c0), along)
	d.addEdge(arcEdge(feature, c0, along, s1, theta))
	d.addEdge(arcEdge(feature, c1, along, e1, theta))
	cm := c0.add(c1).scale(0.5)
	face := &simFace{
		feature: feature, surface: SurfaceCylindrical,
		area:  e.length * d1 * math.Abs(theta),
		point: rotate(s1.add(e1).scale(0.5), cm, along, theta/2),
		origin: c0, axis: along, inward: !convex,
		profile: seg{kind: segLine, a: domain.Point{Y: d1}, b: domain.Point{X: e.length, Y: d1}},
	}
	for i := 0; i <= 8; i++ {
		t := theta * float64(i) / 8
		face.box = face.box.with(rotate(s1, c0, along, t)).with(rotate(e1, c1, along, t))
	}
	d.addFace(face)
}

// trim moves the ends of line edges meeting at corner onto whichever of
// the new points lies on their line.
func (d *simDoc) trim(corner vec, pts ...vec) {
	for i, o := range d.edges {
		if o.curve != CurveLine {
			continue
		}
		dir := o.end.sub(o.start).unit()
		for _, p := range pts {
			w := p.sub(o.start)
			if w.sub(dir.scale(w.dot(dir))).norm() > topoTolerance {
				continue
			}
			switch {
			case o.start.dist(corner) < topoTolerance:
				d.edges[i] = lineEdge(o.feature, p, o.end)
			case o.end.dist(corner) < topoTolerance:
				d.edges[i] = lineEdge(o.feature, o.start, p)
			default:
				continue
			}
			break
		}
	}
}

// blendCurve handles edges without two planar neighbours. The blend face is
// approximated by the edge's envelope and the edge splits into two copies set
// back onto its neighbours.
func (d *simDoc) blendCurve(feature string, e *simEdge, planes []*simFace, r float64, round bool) {
	surface := SurfaceBlend
	if e.round() {
		surface = SurfaceConical
		if round {
			surface = SurfaceToroidal
		}
	}
	d.removeEdge(e)
	face := &simFace{feature: feature, surface: surface, point: e.mid, origin: e.center, axis: e.axis}
	for _, c := range e.box.corners() {
		face.box = face.box.with(c.add(vec{X: r, Y: r, Z: r})).with(c.sub(vec{X: r, Y: r, Z: r}))
	}
	face.area = e.length * r
	if round {
		face.area *= math.Pi / 2
	}
	if len(planes) == 0 {
		d.addFace(face)
		d.addEdge(e.moved(feature, vec{}, 0))
		return
	}
	n := planes[0].normal
	d.addEdge(e.moved(feature, n.scale(-r), 0))
	switch {
	case e.round():
		// stay in the plane, on whichever side the face continues
		inner := e.center.add(e.mid.sub(e.center).unit().scale(e.radius - r))
		dr := r
		if planes[0].dist(inner) <= topoTolerance {
			dr = -r
		}
		d.addEdge(e.moved(feature, vec{}, dr))
	case len(planes) > 1:
		d.addEdge(e.moved(feature, planes[1].normal.scale(-r), 0))
	}
	d.addFace(face)
}

// shell hollows the body, opening the given faces. Walls keep thickness t
// inside the body, or outside it when outward is set.
func (d *simDoc) shell(feature string, open []*simFace, t float64, outward bool) float64 {
	k := -t
	if outward {
		k = t
	}
	opened := make(map[*simFace]bool, len(open))
	for _, f := range open {
		opened[f] = true
	}
	var kept []*simFace
	for _, f := range d.faces {
		if !opened[f] {
			kept = append(kept, f)
		}
	}
	shift := func(p vec) vec {
		var delta vec
		for _, f := range kept {
			if f.surface == SurfacePlanar && f.dist(p) <= topoTolerance {
				delta = delta.add(f.normal.scale(k))
			}
		}
		return delta
	}

	// each opening leaves a rim as wide as the wall
	rims := make([]*simFace, 0, len(open))
	for _, f := range open {
		var perimeter float64
		rim := &simFace{feature: feature, surface: SurfacePlanar, point: f.point, normal: f.normal, box: f.box}
		for i, e := range d.edgesOf(f) {
			perimeter += e.length
			if i == 0 {
				rim.point = e.mid.add(shift(e.mid).scale(0.5))
			}
		}
		rim.area = perimeter * t
		rims = append(rims, rim)
	}

	edges := append([]*simEdge(nil), d.edges...)
	for _, e := range edges {
		if e.curve == CurveLine {
			d.addEdge(lineEdge(feature, e.start.add(shift(e.start)), e.end.add(shift(e.end))))
			continue
		}
		var delta vec
		var dr float64
		for _, f := range kept {
			if !d.bounds(f, e) {
				continue
			}
			switch {
			case f.surface == SurfacePlanar:
				delta = delta.add(f.normal.scale(k))
			case f.revolved() && e.round() && parallel(f.axis, e.axis):
				if f.inward {
					dr -= k
				} else {
					dr += k
				}
			}
		}
		d.addEdge(e.moved(feature, delta, dr))
	}

	for _, f := range open {
		d.removeFace(f)
	}
	d.faces = append(d.faces, rims...)

	var wall float64
	for _, f := range kept {
		c := *f
		c.feature = feature
		switch {
		case f.surface == SurfacePlanar:
			c.point = f.point.add(f.normal.scale(k))
			c.normal = f.normal.scale(-1)
			c.box = f.box.mapped(translation(f.normal.scale(k)))
		case f.revolved():
			grow := k
			if f.inward {
				grow = -k
			}
			c.profile = f.profile.grown(grow)
			c.inward = !f.inward
			w := f.point.sub(f.origin)
			radial := w.sub(f.axis.scale(w.dot(f.axis))).unit()
			c.point = f.point.add(radial.scale(grow))
		}
		wall += f.area
		d.addFace(&c)
	}
	return wall * k
}

// replicate copies the seed features' topology once per transform.
func (d *simDoc) replicate(feature string, seeds []string, xs []xform) {
	seed := make(map[string]bool, len(seeds))
	for _, s := range seeds {
		seed[s] = true
	}
	faces := append([]*simFace(nil), d.faces...)
	edges := append([]*simEdge(nil), d.edges...)
	for _, x := range xs {
		for _, f := range faces {
			if seed[f.feature] {
				d.addFace(f.mapped(feature, x))
			}
		}
		for _, e := range edges {
			if seed[e.feature] {
				d.addEdge(e.mapped(feature, x))
			}
		}
	}
}

func (d *simDoc) edgeInfos(edges []*simEdge) []EdgeInfo {
	out := make([]EdgeInfo, len(edges))
	for i, e := range edges {
		out[i] = e.info()
	}
	return out
}
