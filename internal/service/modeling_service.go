package service

import (
	"context"
	"log/slog"
	"strings"

	"cadbridge/internal/dialog"
	"cadbridge/internal/domain"
	"cadbridge/internal/host"
)

// ─────────────────────────────────────────────────────────────
// Modeling Service: features built on sketches and bodies
// ─────────────────────────────────────────────────────────────

// ModelingService creates 3-D features. Sketch-based features consume the
// sketch tracked by the SketchService, or the newest sketch in the feature
// tree when nothing is tracked.
type ModelingService struct {
	host     host.Host
	sketches *SketchService
	guard    *dialog.Supervisor
	sigs     Signatures
	emitter  EventEmitter
	logger   *slog.Logger
}

func NewModelingService(h host.Host, sketches *SketchService, guard *dialog.Supervisor, sigs Signatures, emitter EventEmitter, logger *slog.Logger) *ModelingService {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ModelingService{
		host:     h,
		sketches: sketches,
		guard:    guard,
		sigs:     sigs,
		emitter:  emitter,
		logger:   logger.With("component", "modeling"),
	}
}

// FeatureResult is what every feature call returns.
type FeatureResult struct {
	host.Feature
	Sketch string         `json:"sketch,omitempty"`
	Dialog dialog.Outcome `json:"dialog,omitempty"`
}

type ExtrudeInput struct {
	Depth   float64 `json:"depth"`
	Reverse bool    `json:"reverse"`
}

func (m *ModelingService) Extrude(ctx context.Context, in ExtrudeInput) (FeatureResult, error) {
	return m.extrude(ctx, "extrude", in, false)
}

func (m *ModelingService) CutExtrude(ctx context.Context, in ExtrudeInput) (FeatureResult, error) {
	return m.extrude(ctx, "cut extrude", in, true)
}

func (m *ModelingService) extrude(ctx context.Context, op string, in ExtrudeInput, cut bool) (FeatureResult, error) {
	if err := positiveValue("depth", in.Depth); err != nil {
		return FeatureResult{}, err
	}
	sketch, err := m.featureSketch(ctx, op)
	if err != nil {
		return FeatureResult{}, err
	}
	f, err := m.host.Extrude(ctx, sketch, host.ExtrudeOptions{Depth: in.Depth, Reverse: in.Reverse, Cut: cut})
	if err != nil {
		return FeatureResult{}, err
	}
	return m.created(ctx, FeatureResult{Feature: f, Sketch: sketch}), nil
}

type RevolveInput struct {
	Angle   float64 `json:"angle"`
	Reverse bool    `json:"reverse"`
}

// Revolve spins the sketch profile around the sketch's centerline.
func (m *ModelingService) Revolve(ctx context.Context, in RevolveInput) (FeatureResult, error) {
	return m.revolve(ctx, "revolve", in, false)
}

func (m *ModelingService) CutRevolve(ctx context.Context, in RevolveInput) (FeatureResult, error) {
	return m.revolve(ctx, "cut revolve", in, true)
}

func (m *ModelingService) revolve(ctx context.Context, op string, in RevolveInput, cut bool) (FeatureResult, error) {
	if in.Angle == 0 {
		in.Angle = 360
	}
	if !finite(in.Angle) || in.Angle < 0 || in.Angle > 360 {
		return FeatureResult{}, domain.Invalid("", "angle must be in (0, 360], got %g", in.Angle)
	}
	sketch, err := m.featureSketch(ctx, op)
	if err != nil {
		return FeatureResult{}, err
	}
	f, err := m.host.Revolve(ctx, sketch, host.RevolveOptions{Angle: in.Angle, Reverse: in.Reverse, Cut: cut})
	if err != nil {
		return FeatureResult{}, err
	}
	return m.created(ctx, FeatureResult{Feature: f, Sketch: sketch}), nil
}

func (m *ModelingService) Fillet(ctx context.Context, radius float64, edges []domain.Point3) (FeatureResult, error) {
	if err := positiveValue("radius", radius); err != nil {
		return FeatureResult{}, err
	}
	if err := pickPoints("edge", edges); err != nil {
		return FeatureResult{}, err
	}
	return m.feature(ctx, func() (host.Feature, error) { return m.host.Fillet(ctx, radius, edges) })
}

func (m *ModelingService) Chamfer(ctx context.Context, o host.ChamferOptions) (FeatureResult, error) {
	if err := positiveValue("distance", o.Distance); err != nil {
		return FeatureResult{}, err
	}
	if o.Angle != 0 && (!finite(o.Angle) || o.Angle <= 0 || o.Angle >= 90) {
		return FeatureResult{}, domain.Invalid("", "chamfer angle must be in (0, 90), got %g", o.Angle)
	}
	if err := pickPoints("edge", o.Edges); err != nil {
		return FeatureResult{}, err
	}
	return m.feature(ctx, func() (host.Feature, error) { return m.host.Chamfer(ctx, o) })
}

func (m *ModelingService) Shell(ctx context.Context, o host.ShellOptions) (FeatureResult, error) {
	if err := positiveValue("thickness", o.Thickness); err != nil {
		return FeatureResult{}, err
	}
	if err := pickPoints("face", o.Faces); err != nil {
		return FeatureResult{}, err
	}
	return m.feature(ctx, func() (host.Feature, error) { return m.host.Shell(ctx, o) })
}

func (m *ModelingService) LinearPattern(ctx context.Context, o host.LinearPatternOptions) (FeatureResult, error) {
	if err := seeds(o.Features); err != nil {
		return FeatureResult{}, err
	}
	if o.Count < 2 {
		return FeatureResult{}, domain.Invalid("", "pattern count must be at least 2, got %d", o.Count)
	}
	if err := positiveValue("spacing", o.Spacing); err != nil {
		return FeatureResult{}, err
	}
	if err := finitePoint3("direction edge", o.Direction); err != nil {
		return FeatureResult{}, err
	}
	return m.feature(ctx, func() (host.Feature, error) { return m.host.LinearPattern(ctx, o) })
}

func (m *ModelingService) CircularPattern(ctx context.Context, o host.CircularPatternOptions) (FeatureResult, error) {
	if err := seeds(o.Features); err != nil {
		return FeatureResult{}, err
	}
	if o.Count < 2 {
		return FeatureResult{}, domain.Invalid("", "pattern count must be at least 2, got %d", o.Count)
	}
	if o.Axis == "" && o.AxisEdge == nil {
		return FeatureResult{}, domain.Invalid("", "either an axis name or an axis edge is required")
	}
	if o.Angle != 0 && (!finite(o.Angle) || o.Angle < 0 || o.Angle > 360) {
		return FeatureResult{}, domain.Invalid("", "pattern angle must be in (0, 360], got %g", o.Angle)
	}
	return m.feature(ctx, func() (host.Feature, error) { return m.host.CircularPattern(ctx, o) })
}

func (m *ModelingService) Mirror(ctx context.Context, o host.MirrorOptions) (FeatureResult, error) {
	if err := seeds(o.Features); err != nil {
		return FeatureResult{}, err
	}
	if o.Plane == "" && o.Face == nil {
		return FeatureResult{}, domain.Invalid("", "either a mirror plane or a mirror face is required")
	}
	return m.feature(ctx, func() (host.Feature, error) { return m.host.Mirror(ctx, o) })
}

// RefPlane creates a reference plane from a base plane: at an offset, at an
// angle about an edge, or through a vertex.
func (m *ModelingService) RefPlane(ctx context.Context, o host.RefPlaneOptions) (FeatureResult, error) {
	if o.Base == "" {
		o.Base = "Front"
	}
	if o.Kind == "" {
		o.Kind = host.PlaneOffset
	}
	kind, err := host.ParsePlaneKind(string(o.Kind))
	if err != nil {
		return FeatureResult{}, domain.Invalid("", "%v", err)
	}
	o.Kind = kind
	switch kind {
	case host.PlaneAngle:
		if !finite(o.Angle) || o.Angle <= 0 || o.Angle >= 360 {
			return FeatureResult{}, domain.Invalid("", "angle must be between 0 and 360 degrees, got %g", o.Angle)
		}
		if o.Edge == nil {
			return FeatureResult{}, domain.Invalid("", "an angled plane needs a rotation edge")
		}
		if err := finitePoint3("edge", *o.Edge); err != nil {
			return FeatureResult{}, err
		}
	case host.PlaneThroughPoint:
		if o.Point == nil {
			return FeatureResult{}, domain.Invalid("", "a plane through a point needs the point")
		}
		if err := finitePoint3("point", *o.Point); err != nil {
			return FeatureResult{}, err
		}
	default:
		if err := positiveValue("offset", o.Offset); err != nil {
			return FeatureResult{}, err
		}
	}
	return m.feature(ctx, func() (host.Feature, error) { return m.host.RefPlane(ctx, o) })
}

func (m *ModelingService) RefAxis(ctx context.Context, o host.RefAxisOptions) (FeatureResult, error) {
	kind, err := host.ParseAxisKind(string(o.Kind))
	if err != nil {
		return FeatureResult{}, domain.Invalid("", "%v", err)
	}
	o.Kind = kind
	if kind == host.AxisTwoPoints {
		if err := pickPoints("point", []domain.Point3{o.From, o.To}); err != nil {
			return FeatureResult{}, err
		}
		if o.From == o.To {
			return FeatureResult{}, domain.Invalid("", "the two axis points must differ")
		}
	} else if err := finitePoint3("pick", o.Pick); err != nil {
		return FeatureResult{}, err
	}
	return m.feature(ctx, func() (host.Feature, error) { return m.host.RefAxis(ctx, o) })
}

func (m *ModelingService) RefPoint(ctx context.Context, o host.RefPointOptions) (FeatureResult, error) {
	if o.Kind == "" {
		o.Kind = host.PointCoordinates
	}
	kind, err := host.ParsePointKind(string(o.Kind))
	if err != nil {
		return FeatureResult{}, domain.Invalid("", "%v", err)
	}
	o.Kind = kind
	if err := finitePoint3("point", o.At); err != nil {
		return FeatureResult{}, err
	}
	return m.feature(ctx, func() (host.Feature, error) { return m.host.RefPoint(ctx, o) })
}

// CoordinateSystem places a coordinate system at a vertex, optionally
// aligned to one or two edges.
func (m *ModelingService) CoordinateSystem(ctx context.Context, o host.CoordinateSystemOptions) (FeatureResult, error) {
	if err := finitePoint3("origin", o.Origin); err != nil {
		return FeatureResult{}, err
	}
	for _, e := range []*domain.Point3{o.XEdge, o.YEdge} {
		if e == nil {
			continue
		}
		if err := finitePoint3("axis edge", *e); err != nil {
			return FeatureResult{}, err
		}
	}
	return m.feature(ctx, func() (host.Feature, error) { return m.host.CoordinateSystem(ctx, o) })
}

// HoleWizard places a standard hole on the face at o.Face. The call can raise
// a blocking dialog, so it runs under the supervisor.
func (m *ModelingService) HoleWizard(ctx context.Context, o host.HoleOptions) (FeatureResult, error) {
	if strings.TrimSpace(o.Size) == "" {
		return FeatureResult{}, domain.Invalid("", "hole size is required")
	}
	if o.EndCondition == "" {
		o.EndCondition = "BLIND"
	}
	o.EndCondition = strings.ToUpper(o.EndCondition)
	if o.EndCondition == "BLIND" {
		if err := positiveValue("depth", o.Depth); err != nil {
			return FeatureResult{}, err
		}
	}
	if err := finitePoint3("face", o.Face); err != nil {
		return FeatureResult{}, err
	}

	f, rep, err := dialog.Run(ctx, m.guard, "hole wizard", m.sigs.Hole, func() (host.Feature, error) {
		return m.host.HoleWizard(ctx, o)
	})
	if rep.Outcome == dialog.OutcomeDismissed {
		m.emitter.Emit(ctx, EventDialogHandled, rep)
	}
	if err != nil {
		return FeatureResult{}, err
	}
	return m.created(ctx, FeatureResult{Feature: f, Dialog: rep.Outcome}), nil
}

func (m *ModelingService) Features(ctx context.Context) ([]host.Feature, error) {
	return m.host.Features(ctx)
}

func (m *ModelingService) MassProperties(ctx context.Context) (host.MassProperties, error) {
	return m.host.MassProperties(ctx)
}

// ── internals ──────────────────────────────────────────────

// featureSketch picks the sketch a feature consumes.
func (m *ModelingService) featureSketch(ctx context.Context, op string) (string, error) {
	if name := m.sketches.Session().Sketch(); name != "" {
		return name, nil
	}
	features, err := m.host.Features(ctx)
	if err != nil {
		return "", err
	}
	if name, ok := host.LatestSketch(features); ok {
		return name, nil
	}
	return "", domain.HostFailure(op, "there is no sketch to use; create a sketch first")
}

func (m *ModelingService) feature(ctx context.Context, call func() (host.Feature, error)) (FeatureResult, error) {
	f, err := call()
	if err != nil {
		return FeatureResult{}, err
	}
	return m.created(ctx, FeatureResult{Feature: f}), nil
}

func (m *ModelingService) created(ctx context.Context, res FeatureResult) FeatureResult {
	m.logger.Info("feature created", "name", res.Name, "type", res.Type, "sketch", res.Sketch)
	m.emitter.Emit(ctx, EventFeatureCreated, res)
	return res
}

func seeds(features []string) error {
	if len(features) == 0 {
		return domain.Invalid("", "at least one feature to pattern is required")
	}
	for _, f := range features {
		if strings.TrimSpace(f) == "" {
			return domain.Invalid("", "feature names must not be empty")
		}
	}
	return nil
}
