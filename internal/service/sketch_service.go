package service

import (
	"context"
	"log/slog"
	"strings"

	"cadbridge/internal/dialog"
	"cadbridge/internal/domain"
	"cadbridge/internal/geometry"
	"cadbridge/internal/host"
	"cadbridge/internal/layout"
)

// ─────────────────────────────────────────────────────────────
// Sketch Service: sketch lifecycle, entities and layout
// ─────────────────────────────────────────────────────────────

// Signatures are the dialogs the guarded calls watch for.
type Signatures struct {
	Dimension dialog.Signature
	Hole      dialog.Signature
}

func DefaultSignatures() Signatures {
	return Signatures{Dimension: dialog.ModifyDimension, Hole: dialog.HoleWizard}
}

// SketchService owns the layout session of the active sketch. Every tracked
// entity is placed through the session, drawn by the host, and recorded only
// after the host accepted it.
type SketchService struct {
	host    host.Host
	guard   *dialog.Supervisor
	sigs    Signatures
	emitter EventEmitter
	logger  *slog.Logger
	session *layout.Session
}

func NewSketchService(h host.Host, guard *dialog.Supervisor, sigs Signatures, emitter EventEmitter, logger *slog.Logger) *SketchService {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SketchService{
		host:    h,
		guard:   guard,
		sigs:    sigs,
		emitter: emitter,
		logger:  logger.With("component", "sketch"),
		session: layout.NewSession(""),
	}
}

// Session exposes the layout session for read access.
func (s *SketchService) Session() *layout.Session { return s.session }

// ── Lifecycle ──────────────────────────────────────────────

type PartInfo struct {
	Document string `json:"document"`
}

// NewPart creates a part document. The layout session is cleared.
func (s *SketchService) NewPart(ctx context.Context) (PartInfo, error) {
	title, err := s.host.NewPart(ctx)
	if err != nil {
		return PartInfo{}, err
	}
	s.session.Reset("")
	s.logger.Info("part created", "document", title)
	info := PartInfo{Document: title}
	s.emitter.Emit(ctx, EventPartCreated, info)
	return info, nil
}

type SketchInfo struct {
	Name      string `json:"name"`
	Target    string `json:"target"`
	Document  string `json:"document"`
	SessionID string `json:"sessionId"`
	// NewPart is set when no document was open and one was created first.
	NewPart bool `json:"newPart,omitempty"`
}

// CreateSketch opens a sketch on a plane or on a solid face. With no document
// open, a new part is created first. The layout session starts fresh.
func (s *SketchService) CreateSketch(ctx context.Context, target host.SketchTarget) (SketchInfo, error) {
	if target.Face == nil && strings.TrimSpace(target.Plane) == "" {
		target.Plane = "Front"
	}
	if target.Face != nil {
		if err := finitePoint3("face", *target.Face); err != nil {
			return SketchInfo{}, err
		}
	}

	var info SketchInfo
	doc, err := s.host.ActiveDocument(ctx)
	if err != nil {
		return SketchInfo{}, err
	}
	if doc == "" {
		part, err := s.NewPart(ctx)
		if err != nil {
			return SketchInfo{}, err
		}
		doc, info.NewPart = part.Document, true
	}

	name, err := s.host.OpenSketch(ctx, target)
	if err != nil {
		return SketchInfo{}, err
	}
	s.session.Reset(name)
	info.Name = name
	info.Target = target.String()
	info.Document = doc
	info.SessionID = s.session.ID()

	s.logger.Info("sketch opened", "sketch", name, "target", info.Target, "session", info.SessionID)
	s.emitter.Emit(ctx, EventSketchOpened, info)
	return info, nil
}

// ExitSketch leaves sketch mode. The last-shape record stays readable until
// the next sketch opens.
func (s *SketchService) ExitSketch(ctx context.Context) error {
	if err := s.host.CloseSketch(ctx); err != nil {
		return err
	}
	s.emitter.Emit(ctx, EventSketchClosed, s.session.Sketch())
	return nil
}

// LastShape returns the record of the active sketch.
func (s *SketchService) LastShape() (domain.LastShape, error) {
	return s.session.Last()
}

// Shapes returns every tracked shape of the active sketch in placement order.
func (s *SketchService) Shapes() []domain.LastShape {
	return s.session.History()
}

// ── Tracked entities ───────────────────────────────────────

// ShapeResult is what every tracked entity call returns.
type ShapeResult struct {
	Sketch   string           `json:"sketch"`
	Shape    domain.LastShape `json:"shape"`
	Strategy layout.Strategy  `json:"strategy,omitempty"`
}

type RectangleInput struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	// Corner form: when both corners are set, size and hints are ignored.
	Corner1 *domain.Point `json:"corner1,omitempty"`
	Corner2 *domain.Point `json:"corner2,omitempty"`
	layout.Hints
}

func (s *SketchService) Rectangle(ctx context.Context, in RectangleInput) (ShapeResult, error) {
	if in.Corner1 != nil && in.Corner2 != nil {
		a, b := *in.Corner1, *in.Corner2
		if err := finitePoints(domain.ShapeRectangle, a, b); err != nil {
			return ShapeResult{}, err
		}
		r := geometry.RectangleFromCorners(a, b)
		return s.trace(ctx, r, func() error { return s.host.CornerRectangle(ctx, a, b) })
	}
	r := geometry.Rectangle{Width: in.Width, Height: in.Height}
	return s.place(ctx, "rectangle", in.Hints, r, func(p geometry.Placeable) error {
		a, b := p.(geometry.Rectangle).Corners()
		return s.host.CornerRectangle(ctx, a, b)
	})
}

type CircleInput struct {
	Radius float64 `json:"radius"`
	layout.Hints
}

func (s *SketchService) Circle(ctx context.Context, in CircleInput) (ShapeResult, error) {
	return s.place(ctx, "circle", in.Hints, geometry.Circle{Radius: in.Radius}, func(p geometry.Placeable) error {
		c := p.(geometry.Circle)
		return s.host.Circle(ctx, c.Center, c.Radius)
	})
}

type PolygonInput struct {
	Radius    float64 `json:"radius"`
	NumSides  int     `json:"numSides"`
	Inscribed bool    `json:"inscribed"`
	Angle     float64 `json:"angle"`
	layout.Hints
}

func (s *SketchService) Polygon(ctx context.Context, in PolygonInput) (ShapeResult, error) {
	poly := geometry.Polygon{Radius: in.Radius, NumSides: in.NumSides, Inscribed: in.Inscribed, Angle: in.Angle}
	return s.place(ctx, "polygon", in.Hints, poly, func(p geometry.Placeable) error {
		pg := p.(geometry.Polygon)
		return s.host.Polygon(ctx, pg.Center, pg.Vertex(), pg.NumSides, pg.Inscribed)
	})
}

type EllipseInput struct {
	MajorRadius float64 `json:"majorRadius"`
	MinorRadius float64 `json:"minorRadius"`
	Angle       float64 `json:"angle"`
	layout.Hints
}

func (s *SketchService) Ellipse(ctx context.Context, in EllipseInput) (ShapeResult, error) {
	e := geometry.Ellipse{MajorRadius: in.MajorRadius, MinorRadius: in.MinorRadius, Angle: in.Angle}
	return s.place(ctx, "ellipse", in.Hints, e, func(p geometry.Placeable) error {
		el := p.(geometry.Ellipse)
		major, minor := el.Axes()
		return s.host.Ellipse(ctx, el.Center, major, minor)
	})
}

func (s *SketchService) Slot(ctx context.Context, start, end domain.Point, width float64) (ShapeResult, error) {
	if err := finitePoints(domain.ShapeSlot, start, end); err != nil {
		return ShapeResult{}, err
	}
	return s.trace(ctx, geometry.Slot{Start: start, End: end, Width: width}, func() error {
		return s.host.Slot(ctx, start, end, width)
	})
}

func (s *SketchService) Line(ctx context.Context, start, end domain.Point) (ShapeResult, error) {
	if err := finitePoints(domain.ShapeLine, start, end); err != nil {
		return ShapeResult{}, err
	}
	return s.trace(ctx, geometry.Line{Start: start, End: end}, func() error {
		return s.host.Line(ctx, start, end)
	})
}

func (s *SketchService) ThreePointArc(ctx context.Context, start, end, mid domain.Point) (ShapeResult, error) {
	if err := finitePoints(domain.ShapeArc, start, end, mid); err != nil {
		return ShapeResult{}, err
	}
	return s.trace(ctx, geometry.ThreePointArc{Start: start, End: end, Mid: mid}, func() error {
		return s.host.ThreePointArc(ctx, start, end, mid)
	})
}

func (s *SketchService) CenterArc(ctx context.Context, center, start, end domain.Point, clockwise bool) (ShapeResult, error) {
	if err := finitePoints(domain.ShapeArc, center, start, end); err != nil {
		return ShapeResult{}, err
	}
	arc := geometry.CenterArc{Center: center, Start: start, End: end, Clockwise: clockwise}
	return s.trace(ctx, arc, func() error {
		return s.host.CenterArc(ctx, center, start, end, clockwise)
	})
}

func (s *SketchService) Spline(ctx context.Context, pts []domain.Point) (ShapeResult, error) {
	if err := finitePoints(domain.ShapeSpline, pts...); err != nil {
		return ShapeResult{}, err
	}
	return s.trace(ctx, geometry.Spline{Points: pts}, func() error {
		return s.host.Spline(ctx, pts)
	})
}

// ── Untracked entities ─────────────────────────────────────

func (s *SketchService) Point(ctx context.Context, p domain.Point) error {
	if err := finitePoints(domain.ShapePoint, p); err != nil {
		return err
	}
	return s.host.Point(ctx, p)
}

func (s *SketchService) Centerline(ctx context.Context, start, end domain.Point) error {
	if err := finitePoints(domain.ShapeCenterline, start, end); err != nil {
		return err
	}
	if start == end {
		return domain.Invalid(domain.ShapeCenterline, "start and end points coincide")
	}
	return s.host.Centerline(ctx, start, end)
}

func (s *SketchService) Text(ctx context.Context, at domain.Point, text string) error {
	if err := finitePoints(domain.ShapeText, at); err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return domain.Invalid(domain.ShapeText, "text is empty")
	}
	return s.host.Text(ctx, at, text)
}

// ── Relations & dimensions ─────────────────────────────────

func (s *SketchService) Constrain(ctx context.Context, rel host.Relation, picks []domain.Point) error {
	if len(picks) < rel.Picks() {
		return domain.Invalid("", "%s needs %d entities, got %d", rel, rel.Picks(), len(picks))
	}
	return s.host.Constrain(ctx, rel, picks)
}

func (s *SketchService) ToggleConstruction(ctx context.Context, at domain.Point) error {
	return s.host.ToggleConstruction(ctx, at)
}

type DimensionResult struct {
	host.Dimension
	Dialog dialog.Outcome `json:"dialog"`
}

// AddDimension dimensions the entity at `at`, placing the text at textAt. The
// call can raise the Modify dialog, so it runs under the supervisor.
func (s *SketchService) AddDimension(ctx context.Context, at, textAt domain.Point) (DimensionResult, error) {
	dim, rep, err := dialog.Run(ctx, s.guard, "add dimension", s.sigs.Dimension, func() (host.Dimension, error) {
		return s.host.AddDimension(ctx, at, textAt)
	})
	if rep.Outcome == dialog.OutcomeDismissed {
		s.emitter.Emit(ctx, EventDialogHandled, rep)
	}
	if err != nil {
		return DimensionResult{}, err
	}
	return DimensionResult{Dimension: dim, Dialog: rep.Outcome}, nil
}

func (s *SketchService) SetDimension(ctx context.Context, name string, value float64) error {
	if strings.TrimSpace(name) == "" {
		return domain.Invalid("", "dimension name is empty")
	}
	if err := positiveValue("dimension value", value); err != nil {
		return err
	}
	return s.host.SetDimension(ctx, name, value)
}

// ── internals ──────────────────────────────────────────────

// place anchors a positionable shape, draws it and records it.
func (s *SketchService) place(ctx context.Context, op string, h layout.Hints, shape geometry.Placeable, draw func(geometry.Placeable) error) (ShapeResult, error) {
	placed, ls, p, err := layout.PlaceShape(s.session, op, h, shape)
	if err != nil {
		return ShapeResult{}, err
	}
	if err := draw(placed); err != nil {
		return ShapeResult{}, err
	}
	return s.record(ctx, ls, p.Strategy), nil
}

// trace records a shape drawn at caller coordinates.
func (s *SketchService) trace(ctx context.Context, shape geometry.Shape, draw func() error) (ShapeResult, error) {
	ls, err := geometry.Resolve(shape)
	if err != nil {
		return ShapeResult{}, err
	}
	if err := draw(); err != nil {
		return ShapeResult{}, err
	}
	return s.record(ctx, ls, ""), nil
}

func (s *SketchService) record(ctx context.Context, ls domain.LastShape, strategy layout.Strategy) ShapeResult {
	s.session.Record(ls)
	res := ShapeResult{Sketch: s.session.Sketch(), Shape: ls, Strategy: strategy}
	s.logger.Debug("shape placed", "kind", ls.Kind, "center_x", ls.Center.X, "center_y", ls.Center.Y, "strategy", strategy)
	s.emitter.Emit(ctx, EventShapePlaced, res)
	return res
}
