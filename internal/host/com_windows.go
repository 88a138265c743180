//go:build windows

package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"runtime"
	"time"
	"unsafe"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
	"golang.org/x/sys/windows"

	"cadbridge/internal/domain"
)

// COMOptions configures the automation connection.
type COMOptions struct {
	ProgID      string
	Templates   []string // glob patterns for the part template
	StartupWait time.Duration
	Visible     bool
}

// COM drives a running CAD application through its automation interface.
// The application lives in a single-threaded apartment, so every call is
// executed on one goroutine locked to its OS thread.
type COM struct {
	opts   COMOptions
	logger *slog.Logger

	jobs chan func()
	quit chan struct{}

	// owned by the worker thread
	app      *ole.IDispatch
	template string
}

func NewCOM(opts COMOptions, logger *slog.Logger) (*COM, error) {
	if opts.ProgID == "" {
		opts.ProgID = "SldWorks.Application"
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &COM{
		opts:   opts,
		logger: logger.With("component", "host"),
		jobs:   make(chan func()),
		quit:   make(chan struct{}),
	}
	started := make(chan error, 1)
	go c.worker(started)
	if err := <-started; err != nil {
		return nil, err
	}
	return c, nil
}

func (c *COM) worker(started chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ole.CoInitialize(0); err != nil {
		var oleErr *ole.OleError
		// S_FALSE: already initialized on this thread.
		if !errors.As(err, &oleErr) || oleErr.Code() != 1 {
			started <- fmt.Errorf("initialize COM: %w", err)
			return
		}
	}
	defer ole.CoUninitialize()
	started <- nil

	for {
		select {
		case job := <-c.jobs:
			job()
		case <-c.quit:
			if c.app != nil {
				c.app.Release()
				c.app = nil
			}
			return
		}
	}
}

// do runs fn on the apartment thread. Once submitted, fn runs to completion
// even if ctx is cancelled.
func (c *COM) do(ctx context.Context, op string, fn func() error) error {
	done := make(chan error, 1)
	job := func() {
		defer func() {
			if r := recover(); r != nil {
				done <- domain.HostFailure(op, "%v", r)
			}
		}()
		done <- fn()
	}
	select {
	case c.jobs <- job:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.quit:
		return domain.HostFailure(op, "host connection is closed")
	}
	return <-done
}

func (c *COM) Connect(ctx context.Context) error {
	return c.do(ctx, "connect", func() error {
		if c.app != nil {
			return nil
		}
		unknown, err := oleutil.GetActiveObject(c.opts.ProgID)
		if err != nil {
			c.logger.Info("host not running, launching", "prog_id", c.opts.ProgID)
			unknown, err = oleutil.CreateObject(c.opts.ProgID)
			if err != nil {
				return &domain.HostCallError{Op: "connect", Err: err}
			}
		}
		app, err := unknown.QueryInterface(ole.IID_IDispatch)
		unknown.Release()
		if err != nil {
			return &domain.HostCallError{Op: "connect", Err: err}
		}
		c.app = app
		if c.opts.Visible {
			oleutil.PutProperty(app, "Visible", true)
		}
		return c.waitReady()
	})
}

// waitReady polls RevisionNumber until the application answers.
func (c *COM) waitReady() error {
	deadline := time.Now().Add(c.opts.StartupWait)
	for {
		v, err := oleutil.GetProperty(c.app, "RevisionNumber")
		if err == nil {
			c.logger.Info("host ready", "revision", v.ToString())
			v.Clear()
			return nil
		}
		if time.Now().After(deadline) {
			return domain.HostFailure("connect", "host did not start within %s", c.opts.StartupWait)
		}
		time.Sleep(time.Second)
	}
}

func (c *COM) Close() error {
	select {
	case <-c.quit:
	default:
		close(c.quit)
	}
	return nil
}

func (c *COM) Revision(ctx context.Context) (string, error) {
	var rev string
	err := c.do(ctx, "revision", func() error {
		if c.app == nil {
			return domain.HostFailure("revision", "not connected")
		}
		v, err := oleutil.GetProperty(c.app, "RevisionNumber")
		if err != nil {
			return &domain.HostCallError{Op: "revision", Err: err}
		}
		rev = v.ToString()
		return nil
	})
	return rev, err
}

func (c *COM) ActiveDocument(ctx context.Context) (string, error) {
	var title string
	err := c.do(ctx, "active document", func() error {
		doc, err := c.activeDoc()
		if err != nil || doc == nil {
			return err
		}
		defer doc.Release()
		title = getString(doc, "GetTitle")
		return nil
	})
	return title, err
}

func (c *COM) NewPart(ctx context.Context) (string, error) {
	const op = "new part"
	var title string
	err := c.do(ctx, op, func() error {
		tpl, err := c.findTemplate()
		if err != nil {
			return err
		}
		v, err := oleutil.CallMethod(c.app, "NewDocument", tpl, 0, 0.0, 0.0)
		if err != nil {
			return &domain.HostCallError{Op: op, Err: err}
		}
		doc := v.ToIDispatch()
		if doc == nil {
			return domain.HostFailure(op, "failed to create part document")
		}
		defer doc.Release()
		title = getString(doc, "GetTitle")
		return nil
	})
	return title, err
}

func (c *COM) findTemplate() (string, error) {
	if c.template != "" {
		return c.template, nil
	}
	for _, pattern := range c.opts.Templates {
		matches, _ := filepath.Glob(pattern)
		if len(matches) > 0 {
			c.template = matches[0]
			c.logger.Info("found part template", "path", c.template)
			return c.template, nil
		}
	}
	return "", domain.HostFailure("new part", "no part template found")
}

// ── Sketches ───────────────────────────────────────────────

func (c *COM) OpenSketch(ctx context.Context, t SketchTarget) (string, error) {
	const op = "open sketch"
	var name string
	err := c.withDoc(ctx, op, func(doc *ole.IDispatch) error {
		oleutil.CallMethod(doc, "ClearSelection2", true)
		if t.Face != nil {
			if !selectByID(doc, "", "FACE", *t.Face, false, 0) {
				return domain.HostFailure(op, "could not select %s", t)
			}
		} else {
			if err := selectFeature(doc, PlaneName(t.Plane)); err != nil {
				return domain.HostFailure(op, "could not find %s", PlaneName(t.Plane))
			}
		}
		if err := sketchManagerCall(doc, "InsertSketch", true); err != nil {
			return &domain.HostCallError{Op: op, Err: err}
		}
		features, err := featureTree(doc)
		if err != nil {
			return &domain.HostCallError{Op: op, Err: err}
		}
		latest, ok := LatestSketch(features)
		if !ok {
			return domain.HostFailure(op, "sketch was not created on %s", t)
		}
		name = latest
		return nil
	})
	return name, err
}

func (c *COM) CloseSketch(ctx context.Context) error {
	return c.withDoc(ctx, "exit sketch", func(doc *ole.IDispatch) error {
		if !inSketch(doc) {
			return nil
		}
		return sketchManagerCall(doc, "InsertSketch", true)
	})
}

func (c *COM) CornerRectangle(ctx context.Context, a, b domain.Point) error {
	return c.sketchCall(ctx, "rectangle", "CreateCornerRectangle", m(a.X), m(a.Y), 0.0, m(b.X), m(b.Y), 0.0)
}

func (c *COM) Circle(ctx context.Context, center domain.Point, r float64) error {
	return c.sketchCall(ctx, "circle", "CreateCircleByRadius", m(center.X), m(center.Y), 0.0, m(r))
}

func (c *COM) Line(ctx context.Context, a, b domain.Point) error {
	return c.sketchCall(ctx, "line", "CreateLine", m(a.X), m(a.Y), 0.0, m(b.X), m(b.Y), 0.0)
}

func (c *COM) Centerline(ctx context.Context, a, b domain.Point) error {
	return c.sketchCall(ctx, "centerline", "CreateCenterLine", m(a.X), m(a.Y), 0.0, m(b.X), m(b.Y), 0.0)
}

func (c *COM) Point(ctx context.Context, p domain.Point) error {
	return c.sketchCall(ctx, "point", "CreatePoint", m(p.X), m(p.Y), 0.0)
}

func (c *COM) ThreePointArc(ctx context.Context, start, end, mid domain.Point) error {
	return c.sketchCall(ctx, "arc", "Create3PointArc",
		m(start.X), m(start.Y), 0.0, m(end.X), m(end.Y), 0.0, m(mid.X), m(mid.Y), 0.0)
}

func (c *COM) CenterArc(ctx context.Context, center, start, end domain.Point, clockwise bool) error {
	dir := int16(1)
	if clockwise {
		dir = -1
	}
	return c.sketchCall(ctx, "arc", "CreateArc",
		m(center.X), m(center.Y), 0.0, m(start.X), m(start.Y), 0.0, m(end.X), m(end.Y), 0.0, dir)
}

func (c *COM) Polygon(ctx context.Context, center, vertex domain.Point, sides int, inscribed bool) error {
	return c.sketchCall(ctx, "polygon", "CreatePolygon",
		m(center.X), m(center.Y), 0.0, m(vertex.X), m(vertex.Y), 0.0, int32(sides), inscribed)
}

func (c *COM) Ellipse(ctx context.Context, center, majorEnd, minorEnd domain.Point) error {
	return c.sketchCall(ctx, "ellipse", "CreateEllipse",
		m(center.X), m(center.Y), 0.0, m(majorEnd.X), m(majorEnd.Y), 0.0, m(minorEnd.X), m(minorEnd.Y), 0.0)
}

func (c *COM) Spline(ctx context.Context, pts []domain.Point) error {
	const op = "spline"
	return c.withDoc(ctx, op, func(doc *ole.IDispatch) error {
		data := make([]float64, 0, len(pts)*3)
		for _, p := range pts {
			data = append(data, m(p.X), m(p.Y), 0)
		}
		arr, err := doubleArray(data)
		if err != nil {
			return &domain.HostCallError{Op: op, Err: err}
		}
		defer arr.destroy()
		return checkCreated(op, sketchManagerResult(doc, "CreateSpline2", arr.variant(), true))
	})
}

func (c *COM) Slot(ctx context.Context, start, end domain.Point, width float64) error {
	// Straight slot, center-to-center length, no auto dimensions.
	return c.sketchCall(ctx, "slot", "CreateSketchSlot", int32(0), int32(0), m(width),
		m(start.X), m(start.Y), 0.0, m(end.X), m(end.Y), 0.0, 0.0, 0.0, 0.0, int32(1), false)
}

func (c *COM) Text(ctx context.Context, at domain.Point, text string) error {
	return c.sketchCall(ctx, "text", "InsertSketchText", m(at.X), m(at.Y), 0.0, text, int32(0), int32(0), int32(0), int32(100), int32(0))
}

func (c *COM) Constrain(ctx context.Context, rel Relation, picks []domain.Point) error {
	op := "add relation " + string(rel)
	return c.withDoc(ctx, op, func(doc *ole.IDispatch) error {
		if len(picks) < rel.Picks() {
			return domain.HostFailure(op, "needs %d entities, got %d", rel.Picks(), len(picks))
		}
		oleutil.CallMethod(doc, "ClearSelection2", true)
		for i, p := range picks {
			if !selectSegment(doc, p, i > 0) {
				return domain.HostFailure(op, "no sketch entity at (%g, %g)", p.X, p.Y)
			}
		}
		if _, err := oleutil.CallMethod(doc, "SketchAddConstraints", rel.Token()); err != nil {
			return &domain.HostCallError{Op: op, Err: err}
		}
		return nil
	})
}

func (c *COM) ToggleConstruction(ctx context.Context, at domain.Point) error {
	const op = "toggle construction"
	return c.withDoc(ctx, op, func(doc *ole.IDispatch) error {
		oleutil.CallMethod(doc, "ClearSelection2", true)
		if !selectSegment(doc, at, false) {
			return domain.HostFailure(op, "no sketch entity at (%g, %g)", at.X, at.Y)
		}
		if _, err := oleutil.CallMethod(doc, "SketchConstructionGeometry"); err != nil {
			return &domain.HostCallError{Op: op, Err: err}
		}
		return nil
	})
}

// swInputDimValOnCreate: when on, the application opens the Modify dialog
// for every new dimension.
const prefInputDimValOnCreate = 86

func (c *COM) AddDimension(ctx context.Context, at, textAt domain.Point) (Dimension, error) {
	const op = "add dimension"
	var dim Dimension
	err := c.withDoc(ctx, op, func(doc *ole.IDispatch) error {
		oleutil.CallMethod(doc, "ClearSelection2", true)
		if !selectSegment(doc, at, false) {
			return domain.HostFailure(op, "no sketch entity at (%g, %g)", at.X, at.Y)
		}
		prev := getBool(c.app, "GetUserPreferenceToggle", prefInputDimValOnCreate)
		oleutil.CallMethod(c.app, "SetUserPreferenceToggle", prefInputDimValOnCreate, false)
		defer oleutil.CallMethod(c.app, "SetUserPreferenceToggle", prefInputDimValOnCreate, prev)

		v, err := oleutil.CallMethod(doc, "AddDimension2", m(textAt.X), m(textAt.Y), 0.0)
		if err != nil {
			return &domain.HostCallError{Op: op, Err: err}
		}
		display := v.ToIDispatch()
		if display == nil {
			return domain.HostFailure(op, "entity at (%g, %g) could not be dimensioned", at.X, at.Y)
		}
		defer display.Release()
		dv, err := oleutil.CallMethod(display, "GetDimension2", 0)
		if err != nil {
			return &domain.HostCallError{Op: op, Err: err}
		}
		d := dv.ToIDispatch()
		if d == nil {
			return domain.HostFailure(op, "dimension at (%g, %g) has no value", at.X, at.Y)
		}
		defer d.Release()
		dim.Name = getString(d, "FullName")
		sv, _ := oleutil.GetProperty(d, "SystemValue")
		if f, ok := sv.Value().(float64); ok {
			dim.Value = f * 1000
		}
		return nil
	})
	return dim, err
}

func (c *COM) SetDimension(ctx context.Context, name string, value float64) error {
	const op = "set dimension"
	return c.withDoc(ctx, op, func(doc *ole.IDispatch) error {
		v, err := oleutil.CallMethod(doc, "Parameter", name)
		if err != nil {
			return &domain.HostCallError{Op: op, Err: err}
		}
		d := v.ToIDispatch()
		if d == nil {
			return domain.HostFailure(op, "dimension %q not found", name)
		}
		defer d.Release()
		if _, err := oleutil.PutProperty(d, "SystemValue", m(value)); err != nil {
			return &domain.HostCallError{Op: op, Err: err}
		}
		oleutil.CallMethod(doc, "EditRebuild3")
		return nil
	})
}

// ── Features ───────────────────────────────────────────────

func (c *COM) Extrude(ctx context.Context, sketch string, o ExtrudeOptions) (Feature, error) {
	op := "extrude"
	if o.Cut {
		op = "cut extrude"
	}
	return c.featureCall(ctx, op, func(doc, fm *ole.IDispatch) (*ole.VARIANT, error) {
		if err := selectSketchFeature(doc, sketch); err != nil {
			return nil, domain.HostFailure(op, "could not find sketch %q", sketch)
		}
		// Sd=false turns the boss into a cut.
		return oleutil.CallMethod(fm, "FeatureExtrusion2",
			!o.Cut, o.Reverse, false, int32(0), int32(0), m(o.Depth), 0.0,
			false, false, false, false, 0.0, 0.0,
			false, false, false, false, true, true, true,
			int32(0), 0.0, false)
	})
}

func (c *COM) Revolve(ctx context.Context, sketch string, o RevolveOptions) (Feature, error) {
	op := "revolve"
	if o.Cut {
		op = "cut revolve"
	}
	return c.featureCall(ctx, op, func(doc, fm *ole.IDispatch) (*ole.VARIANT, error) {
		if err := selectSketchFeature(doc, sketch); err != nil {
			return nil, domain.HostFailure(op, "could not find sketch %q", sketch)
		}
		return oleutil.CallMethod(fm, "FeatureRevolve2",
			true, true, false, o.Cut, o.Reverse, false,
			int32(0), int32(0), rad(o.Angle), 0.0,
			false, false, 0.0, 0.0,
			int32(0), 0.0, 0.0,
			true, true, true)
	})
}

func (c *COM) Fillet(ctx context.Context, radius float64, edges []domain.Point3) (Feature, error) {
	const op = "fillet"
	return c.featureCall(ctx, op, func(doc, fm *ole.IDispatch) (*ole.VARIANT, error) {
		if selectAll(doc, "EDGE", edges, 1) == 0 {
			return nil, domain.HostFailure(op, "no edges could be selected")
		}
		return oleutil.CallMethod(fm, "FeatureFillet3",
			int32(1), m(radius), 0.0, 0.0, int32(0), int32(0), int32(0), int32(0))
	})
}

func (c *COM) Chamfer(ctx context.Context, o ChamferOptions) (Feature, error) {
	const op = "chamfer"
	angle := o.Angle
	if angle == 0 {
		angle = 45
	}
	return c.featureCall(ctx, op, func(doc, fm *ole.IDispatch) (*ole.VARIANT, error) {
		if selectAll(doc, "EDGE", o.Edges, 0) == 0 {
			return nil, domain.HostFailure(op, "no edges could be selected")
		}
		return oleutil.CallMethod(fm, "InsertFeatureChamfer",
			int32(4), int32(0), m(o.Distance), rad(angle), m(o.Distance))
	})
}

func (c *COM) Shell(ctx context.Context, o ShellOptions) (Feature, error) {
	const op = "shell"
	return c.featureCall(ctx, op, func(doc, fm *ole.IDispatch) (*ole.VARIANT, error) {
		if selectAll(doc, "FACE", o.Faces, 0) == 0 {
			return nil, domain.HostFailure(op, "no faces could be selected")
		}
		return oleutil.CallMethod(fm, "InsertFeatureShell", m(o.Thickness), o.Outward)
	})
}

func (c *COM) LinearPattern(ctx context.Context, o LinearPatternOptions) (Feature, error) {
	const op = "linear pattern"
	return c.featureCall(ctx, op, func(doc, fm *ole.IDispatch) (*ole.VARIANT, error) {
		if !selectByID(doc, "", "EDGE", o.Direction, false, 1) {
			return nil, domain.HostFailure(op, "could not select direction edge")
		}
		if err := selectFeatures(doc, o.Features, 4); err != nil {
			return nil, domain.HostFailure(op, "%v", err)
		}
		return oleutil.CallMethod(fm, "FeatureLinearPattern4",
			int32(o.Count), m(o.Spacing), true, o.Reverse,
			int32(1), 0.0, false, false,
			true, false, false)
	})
}

func (c *COM) CircularPattern(ctx context.Context, o CircularPatternOptions) (Feature, error) {
	const op = "circular pattern"
	angle := o.Angle
	if angle == 0 {
		angle = 360
	}
	return c.featureCall(ctx, op, func(doc, fm *ole.IDispatch) (*ole.VARIANT, error) {
		switch {
		case o.Axis != "":
			if !selectNamed(doc, o.Axis, "AXIS", false, 1) && !selectNamed(doc, o.Axis, "BODYFEATURE", false, 1) {
				return nil, domain.HostFailure(op, "could not select axis %q", o.Axis)
			}
		case o.AxisEdge != nil:
			if !selectByID(doc, "", "EDGE", *o.AxisEdge, false, 1) {
				return nil, domain.HostFailure(op, "could not select axis edge")
			}
		default:
			return nil, domain.HostFailure(op, "either an axis or an axis edge is required")
		}
		if err := selectFeatures(doc, o.Features, 4); err != nil {
			return nil, domain.HostFailure(op, "%v", err)
		}
		return oleutil.CallMethod(fm, "FeatureCircularPattern4",
			int32(o.Count), rad(angle), false, o.EqualSpacing, true, false, false)
	})
}

func (c *COM) Mirror(ctx context.Context, o MirrorOptions) (Feature, error) {
	const op = "mirror"
	return c.featureCall(ctx, op, func(doc, fm *ole.IDispatch) (*ole.VARIANT, error) {
		switch {
		case o.Plane != "":
			if !selectNamed(doc, PlaneName(o.Plane), "DATUMPLANE", false, 4) {
				return nil, domain.HostFailure(op, "could not select mirror plane %q", o.Plane)
			}
		case o.Face != nil:
			if !selectByID(doc, "", "FACE", *o.Face, false, 4) {
				return nil, domain.HostFailure(op, "could not select mirror face")
			}
		default:
			return nil, domain.HostFailure(op, "either a mirror plane or a mirror face is required")
		}
		if err := selectFeatures(doc, o.Features, 1); err != nil {
			return nil, domain.HostFailure(op, "%v", err)
		}
		return oleutil.CallMethod(fm, "InsertMirrorFeature2", true, false, false, true, false)
	})
}

// Reference plane constraint codes. 256 applies a constraint to the first
// selected reference and 512 to the second.
const (
	refPlaneOffsetFirst   = 3 | 256
	refPlaneAngleFirst    = 1 | 256
	refPlaneThroughFirst  = 4 | 256
	refPlaneThroughSecond = 5 | 512
)

func (c *COM) RefPlane(ctx context.Context, o RefPlaneOptions) (Feature, error) {
	const op = "reference plane"
	return c.featureCall(ctx, op, func(doc, fm *ole.IDispatch) (*ole.VARIANT, error) {
		if !selectNamed(doc, PlaneName(o.Base), "DATUMPLANE", false, 0) {
			return nil, domain.HostFailure(op, "could not select reference plane %q", o.Base)
		}
		switch o.Kind {
		case PlaneAngle:
			if o.Edge == nil || !selectByID(doc, "", "EDGE", *o.Edge, true, 0) {
				return nil, domain.HostFailure(op, "could not select rotation edge")
			}
			angle := rad(o.Angle)
			if o.Reverse {
				angle = -angle
			}
			return oleutil.CallMethod(fm, "InsertRefPlane", int32(refPlaneAngleFirst), angle, int32(0), 0.0, int32(0), 0.0)
		case PlaneThroughPoint:
			if o.Point == nil || !selectByID(doc, "", "VERTEX", *o.Point, true, 0) {
				return nil, domain.HostFailure(op, "could not select vertex")
			}
			return oleutil.CallMethod(fm, "InsertRefPlane",
				int32(refPlaneThroughFirst), 0.0, int32(refPlaneThroughSecond), 0.0, int32(0), 0.0)
		default:
			offset := o.Offset
			if o.Reverse {
				offset = -offset
			}
			return oleutil.CallMethod(fm, "InsertRefPlane", int32(refPlaneOffsetFirst), m(offset), int32(0), 0.0, int32(0), 0.0)
		}
	})
}

func (c *COM) RefAxis(ctx context.Context, o RefAxisOptions) (Feature, error) {
	const op = "reference axis"
	return c.featureCall(ctx, op, func(doc, fm *ole.IDispatch) (*ole.VARIANT, error) {
		switch o.Kind {
		case AxisTwoPoints:
			if !selectByID(doc, "", "VERTEX", o.From, false, 0) || !selectByID(doc, "", "VERTEX", o.To, true, 0) {
				return nil, domain.HostFailure(op, "could not select both points")
			}
		case AxisCylinder:
			if !selectByID(doc, "", "FACE", o.Pick, false, 0) {
				return nil, domain.HostFailure(op, "could not select a cylindrical face")
			}
		case AxisEdge:
			if !selectByID(doc, "", "EDGE", o.Pick, false, 0) {
				return nil, domain.HostFailure(op, "could not select a straight edge")
			}
		default:
			return nil, domain.HostFailure(op, "unknown axis type %q", o.Kind)
		}
		if _, err := oleutil.CallMethod(fm, "InsertRefAxis"); err != nil {
			return nil, err
		}
		return lastFeature(doc)
	})
}

func (c *COM) RefPoint(ctx context.Context, o RefPointOptions) (Feature, error) {
	const op = "reference point"
	code, ok := pointKindCodes[o.Kind]
	if !ok {
		return Feature{}, domain.HostFailure(op, "unknown point type %q", o.Kind)
	}
	return c.featureCall(ctx, op, func(doc, fm *ole.IDispatch) (*ole.VARIANT, error) {
		var v *ole.VARIANT
		var err error
		switch o.Kind {
		case PointCoordinates:
			v, err = oleutil.CallMethod(fm, "InsertReferencePoint", int32(code), int32(0), m(o.At.X), m(o.At.Y), m(o.At.Z))
		case PointFaceCenter:
			if !selectByID(doc, "", "FACE", o.At, false, 0) {
				return nil, domain.HostFailure(op, "could not select a face")
			}
			v, err = oleutil.CallMethod(fm, "InsertReferencePoint", int32(code), int32(0), 0.0, 0.0, 0.0)
		default:
			if !selectByID(doc, "", "EDGE", o.At, false, 0) {
				return nil, domain.HostFailure(op, "could not select an edge")
			}
			v, err = oleutil.CallMethod(fm, "InsertReferencePoint", int32(code), int32(0), 0.0, 0.0, 0.0)
		}
		if err != nil {
			return nil, err
		}
		// The call returns an array of points; the feature tree has the new one.
		v.Clear()
		return lastFeature(doc)
	})
}

func (c *COM) CoordinateSystem(ctx context.Context, o CoordinateSystemOptions) (Feature, error) {
	const op = "coordinate system"
	return c.featureCall(ctx, op, func(doc, fm *ole.IDispatch) (*ole.VARIANT, error) {
		if !selectByID(doc, "", "VERTEX", o.Origin, false, 0) {
			return nil, domain.HostFailure(op, "could not select origin vertex")
		}
		for i, p := range []*domain.Point3{o.XEdge, o.YEdge} {
			if p != nil && !selectByID(doc, "", "EDGE", *p, true, int32(i+1)) {
				return nil, domain.HostFailure(op, "could not select axis edge at (%g, %g, %g)", p.X, p.Y, p.Z)
			}
		}
		return oleutil.CallMethod(fm, "InsertCoordinateSystem", false, false, false, false, false)
	})
}

func (c *COM) HoleWizard(ctx context.Context, o HoleOptions) (Feature, error) {
	const op = "hole wizard"
	depth := o.Depth
	if depth <= 0 {
		depth = 10
	}
	end := endConditionCodes[o.EndCondition]
	return c.featureCall(ctx, op, func(doc, fm *ole.IDispatch) (*ole.VARIANT, error) {
		if !selectByID(doc, "", "FACE", o.Face, false, 0) {
			return nil, domain.HostFailure(op, "could not select face for hole placement")
		}
		sm := oleutil.MustGetProperty(doc, "SketchManager").ToIDispatch()
		defer sm.Release()
		oleutil.PutProperty(sm, "AddToDB", true)
		oleutil.PutProperty(sm, "DisplayWhenAdded", false)
		defer func() {
			oleutil.PutProperty(sm, "AddToDB", false)
			oleutil.PutProperty(sm, "DisplayWhenAdded", true)
		}()
		return oleutil.CallMethod(fm, "HoleWizard5",
			int32(holeTypeCodes[o.Type]), int32(o.Standard), int32(0), o.Size, int32(end),
			m(depth), m(depth), 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0)
	})
}

func (c *COM) Features(ctx context.Context) ([]Feature, error) {
	var out []Feature
	err := c.withDoc(ctx, "list features", func(doc *ole.IDispatch) error {
		var err error
		out, err = featureTree(doc)
		return err
	})
	return out, err
}

func (c *COM) MassProperties(ctx context.Context) (MassProperties, error) {
	const op = "mass properties"
	var mp MassProperties
	err := c.withDoc(ctx, op, func(doc *ole.IDispatch) error {
		ext := oleutil.MustGetProperty(doc, "Extension").ToIDispatch()
		defer ext.Release()
		v, err := oleutil.CallMethod(ext, "CreateMassProperty")
		if err != nil {
			return &domain.HostCallError{Op: op, Err: err}
		}
		props := v.ToIDispatch()
		if props == nil {
			return domain.HostFailure(op, "the part has no solid body")
		}
		defer props.Release()
		mp.Volume = getFloat(props, "Volume") * 1e9
		mp.SurfaceArea = getFloat(props, "SurfaceArea") * 1e6
		mp.Mass = getFloat(props, "Mass")
		mp.Density = getFloat(props, "Density")
		return nil
	})
	return mp, err
}

// ── topology ───────────────────────────────────────────────

const swSolidBody = 0

// lineTolerance is the relative difference between arc length and chord
// below which an open edge counts as straight.
const lineTolerance = 1e-6

// solids rebuilds the part and hands its solid bodies to fn.
func (c *COM) solids(ctx context.Context, op string, fn func(doc *ole.IDispatch, bodies []*ole.IDispatch) error) error {
	return c.withDoc(ctx, op, func(doc *ole.IDispatch) error {
		oleutil.CallMethod(doc, "ForceRebuild3", true)
		v, err := oleutil.CallMethod(doc, "GetBodies2", int32(swSolidBody), true)
		if err != nil {
			return &domain.HostCallError{Op: op, Err: err}
		}
		bodies := dispatchArray(v)
		defer releaseAll(bodies)
		if len(bodies) == 0 {
			return domain.HostFailure(op, "no solid bodies found")
		}
		return fn(doc, bodies)
	})
}

func bodyItems(body *ole.IDispatch, method string) []*ole.IDispatch {
	v, err := oleutil.CallMethod(body, method)
	if err != nil {
		return nil
	}
	return dispatchArray(v)
}

func (c *COM) BodyInfo(ctx context.Context) (BodyInfo, error) {
	var info BodyInfo
	err := c.solids(ctx, "body info", func(_ *ole.IDispatch, bodies []*ole.IDispatch) error {
		info.Bodies = len(bodies)
		var edges []EdgeInfo
		for i, body := range bodies {
			bb := doubles(oleutil.CallMethod(body, "GetBodyBox"))
			if len(bb) >= 6 {
				lo := domain.Point3{X: bb[0] * 1000, Y: bb[1] * 1000, Z: bb[2] * 1000}
				hi := domain.Point3{X: bb[3] * 1000, Y: bb[4] * 1000, Z: bb[5] * 1000}
				if i == 0 {
					info.Min, info.Max = lo, hi
				} else {
					info.Min = domain.Point3{X: math.Min(info.Min.X, lo.X), Y: math.Min(info.Min.Y, lo.Y), Z: math.Min(info.Min.Z, lo.Z)}
					info.Max = domain.Point3{X: math.Max(info.Max.X, hi.X), Y: math.Max(info.Max.Y, hi.Y), Z: math.Max(info.Max.Z, hi.Z)}
				}
			}
			faces := bodyItems(body, "GetFaces")
			info.Faces += len(faces)
			releaseAll(faces)
			for _, e := range bodyItems(body, "GetEdges") {
				edges = append(edges, edgeInfo(e))
				e.Release()
			}
		}
		info.Edges = len(edges)
		info.Vertices = len(UniqueVertices(edges))
		return nil
	})
	return info, err
}

func (c *COM) Faces(ctx context.Context) ([]FaceInfo, error) {
	var out []FaceInfo
	err := c.solids(ctx, "list faces", func(_ *ole.IDispatch, bodies []*ole.IDispatch) error {
		for _, body := range bodies {
			for _, f := range bodyItems(body, "GetFaces") {
				out = append(out, faceInfo(f))
				f.Release()
			}
		}
		return nil
	})
	return out, err
}

func (c *COM) Edges(ctx context.Context) ([]EdgeInfo, error) {
	var out []EdgeInfo
	err := c.solids(ctx, "list edges", func(_ *ole.IDispatch, bodies []*ole.IDispatch) error {
		for _, body := range bodies {
			for _, e := range bodyItems(body, "GetEdges") {
				out = append(out, edgeInfo(e))
				e.Release()
			}
		}
		return nil
	})
	return out, err
}

func (c *COM) Vertices(ctx context.Context) ([]domain.Point3, error) {
	edges, err := c.Edges(ctx)
	if err != nil {
		return nil, err
	}
	return UniqueVertices(edges), nil
}

func (c *COM) FaceEdges(ctx context.Context, at domain.Point3) (FaceInfo, []EdgeInfo, error) {
	const op = "face edges"
	var (
		info  FaceInfo
		edges []EdgeInfo
	)
	err := c.solids(ctx, op, func(doc *ole.IDispatch, _ []*ole.IDispatch) error {
		oleutil.CallMethod(doc, "ClearSelection2", true)
		if !selectByID(doc, "", "FACE", at, false, 0) {
			return domain.HostFailure(op, "no face at (%g, %g, %g) mm", at.X, at.Y, at.Z)
		}
		sel := oleutil.MustGetProperty(doc, "SelectionManager").ToIDispatch()
		defer sel.Release()
		v, err := oleutil.CallMethod(sel, "GetSelectedObject6", int32(1), int32(-1))
		if err != nil {
			return &domain.HostCallError{Op: op, Err: err}
		}
		face := v.ToIDispatch()
		if face == nil {
			return domain.HostFailure(op, "no face at (%g, %g, %g) mm", at.X, at.Y, at.Z)
		}
		defer face.Release()
		info = faceInfo(face)
		for _, e := range bodyItems(face, "GetEdges") {
			edges = append(edges, edgeInfo(e))
			e.Release()
		}
		oleutil.CallMethod(doc, "ClearSelection2", true)
		return nil
	})
	return info, edges, err
}

func faceInfo(face *ole.IDispatch) FaceInfo {
	info := FaceInfo{
		Area:  getFloat(face, "GetArea") * 1e6,
		Edges: getInt(face, "GetEdgeCount"),
	}
	sv, err := oleutil.CallMethod(face, "GetSurface")
	if err != nil {
		return info
	}
	surf := sv.ToIDispatch()
	if surf == nil {
		return info
	}
	defer surf.Release()

	info.Surface = surfaceIdentities[getInt(surf, "Identity")]
	if info.Surface == "" {
		info.Surface = "Unknown"
	}
	switch info.Surface {
	case SurfacePlanar:
		if p := doubles(oleutil.GetProperty(surf, "PlaneParams")); len(p) >= 3 {
			n := domain.Point3{X: p[0], Y: p[1], Z: p[2]}
			if !getBool(face, "FaceInSurfaceSense") {
				n = domain.Point3{X: -n.X, Y: -n.Y, Z: -n.Z}
			}
			info.Normal = &n
		}
	case SurfaceCylindrical:
		if p := doubles(oleutil.GetProperty(surf, "CylinderParams")); len(p) >= 7 {
			info.Axis = &domain.Point3{X: p[3], Y: p[4], Z: p[5]}
			info.Radius = p[6] * 1000
		}
	case SurfaceConical:
		if p := doubles(oleutil.GetProperty(surf, "ConeParams")); len(p) >= 6 {
			info.Axis = &domain.Point3{X: p[3], Y: p[4], Z: p[5]}
		}
	case SurfaceSpherical:
		if p := doubles(oleutil.GetProperty(surf, "SphereParams")); len(p) >= 4 {
			info.Radius = p[3] * 1000
		}
	case SurfaceToroidal:
		if p := doubles(oleutil.GetProperty(surf, "TorusParams")); len(p) >= 6 {
			info.Axis = &domain.Point3{X: p[3], Y: p[4], Z: p[5]}
		}
	}

	if uv := doubles(oleutil.CallMethod(face, "GetUVBounds")); len(uv) >= 4 {
		ev := doubles(oleutil.CallMethod(surf, "Evaluate", (uv[0]+uv[1])/2, (uv[2]+uv[3])/2, int32(0), int32(0)))
		if len(ev) >= 3 {
			info.Point = domain.Point3{X: ev[0] * 1000, Y: ev[1] * 1000, Z: ev[2] * 1000}
			return info
		}
	}
	// Fall back to the average of the face's edge vertices.
	var sum domain.Point3
	n := 0
	for _, e := range bodyItems(face, "GetEdges") {
		ei := edgeInfo(e)
		e.Release()
		for _, p := range []*domain.Point3{ei.Start, ei.End} {
			if p != nil {
				sum.X, sum.Y, sum.Z = sum.X+p.X, sum.Y+p.Y, sum.Z+p.Z
				n++
			}
		}
	}
	if n > 0 {
		info.Point = domain.Point3{X: sum.X / float64(n), Y: sum.Y / float64(n), Z: sum.Z / float64(n)}
	}
	return info
}

func edgeInfo(edge *ole.IDispatch) EdgeInfo {
	var info EdgeInfo
	info.Start = vertexPoint(edge, "GetStartVertex")
	info.End = vertexPoint(edge, "GetEndVertex")

	cv, err := oleutil.CallMethod(edge, "GetCurve")
	if err != nil {
		info.Curve = CurveOther
		return info
	}
	curve := cv.ToIDispatch()
	if curve == nil {
		info.Curve = CurveOther
		return info
	}
	defer curve.Release()

	params := doubles(oleutil.CallMethod(edge, "GetCurveParams2"))
	var t0, t1 float64
	if len(params) >= 8 {
		t0, t1 = params[6], params[7]
		info.Length = getFloat(curve, "GetLength2", t0, t1) * 1000
	}

	if info.Closed() {
		info.Start, info.End = nil, nil
		info.Curve = CurveCircle
		if !getBool(curve, "IsCircle") {
			info.Curve = CurveOther
		}
		if p := doubles(oleutil.CallMethod(curve, "Evaluate2", (t0+t1)/2, int32(0))); len(p) >= 3 {
			info.Mid = domain.Point3{X: p[0] * 1000, Y: p[1] * 1000, Z: p[2] * 1000}
		}
		return info
	}

	a, b := *info.Start, *info.End
	chord := math.Sqrt((b.X-a.X)*(b.X-a.X) + (b.Y-a.Y)*(b.Y-a.Y) + (b.Z-a.Z)*(b.Z-a.Z))
	switch {
	case chord > 0 && math.Abs(info.Length-chord)/chord < lineTolerance:
		info.Curve = CurveLine
	case getBool(curve, "IsCircle"):
		info.Curve = CurveArc
	default:
		info.Curve = CurveOther
	}
	mid := domain.Point3{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2, Z: (a.Z + b.Z) / 2}
	info.Mid = mid
	if info.Curve != CurveLine {
		if p := doubles(oleutil.CallMethod(edge, "GetClosestPointOn", m(mid.X), m(mid.Y), m(mid.Z))); len(p) >= 3 {
			info.Mid = domain.Point3{X: p[0] * 1000, Y: p[1] * 1000, Z: p[2] * 1000}
		}
	}
	return info
}

// vertexPoint reads an edge end in mm. Closed edges have no vertices.
func vertexPoint(edge *ole.IDispatch, method string) *domain.Point3 {
	v, err := oleutil.CallMethod(edge, method)
	if err != nil {
		return nil
	}
	vx := v.ToIDispatch()
	if vx == nil {
		return nil
	}
	defer vx.Release()
	p := doubles(oleutil.CallMethod(vx, "GetPoint"))
	if len(p) < 3 {
		return nil
	}
	return &domain.Point3{X: p[0] * 1000, Y: p[1] * 1000, Z: p[2] * 1000}
}

// ── plumbing ───────────────────────────────────────────────

func (c *COM) activeDoc() (*ole.IDispatch, error) {
	if c.app == nil {
		return nil, domain.HostFailure("active document", "not connected")
	}
	v, err := oleutil.GetProperty(c.app, "ActiveDoc")
	if err != nil {
		return nil, &domain.HostCallError{Op: "active document", Err: err}
	}
	return v.ToIDispatch(), nil
}

func (c *COM) withDoc(ctx context.Context, op string, fn func(doc *ole.IDispatch) error) error {
	return c.do(ctx, op, func() error {
		doc, err := c.activeDoc()
		if err != nil {
			return err
		}
		if doc == nil {
			return domain.HostFailure(op, "no active document")
		}
		defer doc.Release()
		return fn(doc)
	})
}

func (c *COM) sketchCall(ctx context.Context, op, method string, args ...any) error {
	return c.withDoc(ctx, op, func(doc *ole.IDispatch) error {
		if !inSketch(doc) {
			return domain.HostFailure(op, "no active sketch")
		}
		return checkCreated(op, sketchManagerResult(doc, method, args...))
	})
}

// featureCall leaves sketch mode, runs create with the feature manager and
// returns the new feature's name.
func (c *COM) featureCall(ctx context.Context, op string, create func(doc, fm *ole.IDispatch) (*ole.VARIANT, error)) (Feature, error) {
	var f Feature
	err := c.withDoc(ctx, op, func(doc *ole.IDispatch) error {
		if inSketch(doc) {
			sketchManagerCall(doc, "InsertSketch", true)
		}
		oleutil.CallMethod(doc, "ClearSelection2", true)
		fm := oleutil.MustGetProperty(doc, "FeatureManager").ToIDispatch()
		defer fm.Release()

		v, err := create(doc, fm)
		if err != nil {
			var hce *domain.HostCallError
			if errors.As(err, &hce) {
				return err
			}
			return &domain.HostCallError{Op: op, Err: err}
		}
		feat := v.ToIDispatch()
		if feat == nil {
			return domain.HostFailure(op, "the host rejected the feature; check the selection and parameters")
		}
		defer feat.Release()
		f.Name = getString(feat, "Name")
		f.Type = getString(feat, "GetTypeName2")
		oleutil.CallMethod(doc, "ViewZoomtofit2")
		return nil
	})
	return f, err
}

func featureTree(doc *ole.IDispatch) ([]Feature, error) {
	v, err := oleutil.CallMethod(doc, "FirstFeature")
	if err != nil {
		return nil, err
	}
	var out []Feature
	feat := v.ToIDispatch()
	for feat != nil {
		out = append(out, Feature{Name: getString(feat, "Name"), Type: getString(feat, "GetTypeName2")})
		next, err := oleutil.CallMethod(feat, "GetNextFeature")
		feat.Release()
		if err != nil {
			break
		}
		feat = next.ToIDispatch()
	}
	return out, nil
}

// lastFeature returns the newest feature, for insert calls that report only
// success.
func lastFeature(doc *ole.IDispatch) (*ole.VARIANT, error) {
	return oleutil.CallMethod(doc, "FeatureByPositionReverse", int32(0))
}

func inSketch(doc *ole.IDispatch) bool {
	sm := oleutil.MustGetProperty(doc, "SketchManager").ToIDispatch()
	defer sm.Release()
	v, err := oleutil.GetProperty(sm, "ActiveSketch")
	if err != nil {
		return false
	}
	sk := v.ToIDispatch()
	if sk == nil {
		return false
	}
	sk.Release()
	return true
}

func sketchManagerResult(doc *ole.IDispatch, method string, args ...any) (*ole.VARIANT, error) {
	sm := oleutil.MustGetProperty(doc, "SketchManager").ToIDispatch()
	defer sm.Release()
	return oleutil.CallMethod(sm, method, args...)
}

func sketchManagerCall(doc *ole.IDispatch, method string, args ...any) error {
	_, err := sketchManagerResult(doc, method, args...)
	return err
}

// checkCreated treats a call that returned Nothing as a failed creation.
func checkCreated(op string, v *ole.VARIANT, err error) error {
	if err != nil {
		return &domain.HostCallError{Op: op, Err: err}
	}
	if v != nil && v.VT == ole.VT_DISPATCH && v.Val == 0 {
		return domain.HostFailure(op, "the host did not create the entity")
	}
	return nil
}

func selectByID(doc *ole.IDispatch, name, typ string, p domain.Point3, appendSel bool, mark int32) bool {
	return selectRaw(doc, name, typ, m(p.X), m(p.Y), m(p.Z), appendSel, mark)
}

func selectNamed(doc *ole.IDispatch, name, typ string, appendSel bool, mark int32) bool {
	return selectRaw(doc, name, typ, 0, 0, 0, appendSel, mark)
}

func selectRaw(doc *ole.IDispatch, name, typ string, x, y, z float64, appendSel bool, mark int32) bool {
	ext := oleutil.MustGetProperty(doc, "Extension").ToIDispatch()
	defer ext.Release()
	callout := ole.NewVariant(ole.VT_DISPATCH, 0)
	v, err := oleutil.CallMethod(ext, "SelectByID2", name, typ, x, y, z, appendSel, mark, callout, int32(0))
	if err != nil {
		return false
	}
	ok, _ := v.Value().(bool)
	return ok
}

func selectSegment(doc *ole.IDispatch, p domain.Point, appendSel bool) bool {
	return selectRaw(doc, "", "SKETCHSEGMENT", m(p.X), m(p.Y), 0, appendSel, 0)
}

func selectAll(doc *ole.IDispatch, typ string, pts []domain.Point3, mark int32) int {
	n := 0
	for i, p := range pts {
		if selectByID(doc, "", typ, p, i > 0, mark) {
			n++
		}
	}
	return n
}

func selectFeatures(doc *ole.IDispatch, names []string, mark int32) error {
	for _, name := range names {
		if !selectNamed(doc, name, "BODYFEATURE", true, mark) {
			return fmt.Errorf("could not select feature %q", name)
		}
	}
	return nil
}

func selectFeature(doc *ole.IDispatch, name string) error {
	v, err := oleutil.CallMethod(doc, "FeatureByName", name)
	if err != nil {
		return err
	}
	feat := v.ToIDispatch()
	if feat == nil {
		return fmt.Errorf("feature %q not found", name)
	}
	defer feat.Release()
	if _, err := oleutil.CallMethod(feat, "Select2", false, int32(0)); err != nil {
		return err
	}
	return nil
}

func selectSketchFeature(doc *ole.IDispatch, sketch string) error {
	if sketch == "" {
		return errors.New("no sketch name")
	}
	oleutil.CallMethod(doc, "ClearSelection2", true)
	return selectFeature(doc, sketch)
}

func getString(d *ole.IDispatch, name string) string {
	v, err := oleutil.GetProperty(d, name)
	if err != nil {
		v, err = oleutil.CallMethod(d, name)
		if err != nil {
			return ""
		}
	}
	return v.ToString()
}

// getFloat reads a numeric property, or calls a method of that name when
// the property read fails.
func getFloat(d *ole.IDispatch, name string, args ...any) float64 {
	v, err := oleutil.GetProperty(d, name, args...)
	if err != nil {
		v, err = oleutil.CallMethod(d, name, args...)
		if err != nil {
			return 0
		}
	}
	switch n := v.Value().(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

func getInt(d *ole.IDispatch, name string) int {
	return int(getFloat(d, name))
}

func getBool(d *ole.IDispatch, method string, args ...any) bool {
	v, err := oleutil.CallMethod(d, method, args...)
	if err != nil {
		return false
	}
	b, _ := v.Value().(bool)
	return b
}

// m converts millimeters to meters.
func m(mm float64) float64 { return mm / 1000 }

func rad(deg float64) float64 { return deg * math.Pi / 180 }

// ── SAFEARRAYs ───────────────────────────────────

var (
	oleaut32                = windows.NewLazySystemDLL("oleaut32.dll")
	procSafeArrayCreateVec  = oleaut32.NewProc("SafeArrayCreateVector")
	procSafeArrayPutElement = oleaut32.NewProc("SafeArrayPutElement")
	procSafeArrayDestroy    = oleaut32.NewProc("SafeArrayDestroy")
	procSafeArrayGetElement = oleaut32.NewProc("SafeArrayGetElement")
	procSafeArrayGetLBound  = oleaut32.NewProc("SafeArrayGetLBound")
)

type safeArray struct{ ptr uintptr }

func doubleArray(vals []float64) (*safeArray, error) {
	p, _, err := procSafeArrayCreateVec.Call(uintptr(ole.VT_R8), 0, uintptr(len(vals)))
	if p == 0 {
		return nil, fmt.Errorf("SafeArrayCreateVector: %w", err)
	}
	for i := range vals {
		idx := int32(i)
		hr, _, _ := procSafeArrayPutElement.Call(p, uintptr(unsafe.Pointer(&idx)), uintptr(unsafe.Pointer(&vals[i])))
		if hr != 0 {
			procSafeArrayDestroy.Call(p)
			return nil, ole.NewError(hr)
		}
	}
	return &safeArray{ptr: p}, nil
}

func (a *safeArray) variant() ole.VARIANT {
	return ole.NewVariant(ole.VT_ARRAY|ole.VT_R8, int64(a.ptr))
}

func (a *safeArray) destroy() { procSafeArrayDestroy.Call(a.ptr) }

// doubles reads a returned array of numbers. Anything else yields nil.
func doubles(v *ole.VARIANT, err error) []float64 {
	if err != nil || v == nil {
		return nil
	}
	defer v.Clear()
	arr := v.ToArray()
	if arr == nil {
		return nil
	}
	vals := arr.ToValueArray()
	out := make([]float64, 0, len(vals))
	for _, x := range vals {
		switch n := x.(type) {
		case float64:
			out = append(out, n)
		case float32:
			out = append(out, float64(n))
		case int32:
			out = append(out, float64(n))
		default:
			return nil
		}
	}
	return out
}

// dispatchArray reads a returned array of objects, whether stored as
// IDispatch pointers or as variants holding them. The caller releases the
// elements.
func dispatchArray(v *ole.VARIANT) []*ole.IDispatch {
	if v == nil {
		return nil
	}
	defer v.Clear()
	conv := v.ToArray()
	if conv == nil {
		return nil
	}
	n, err := conv.TotalElements(0)
	if err != nil || n <= 0 {
		return nil
	}
	vt, err := conv.GetType()
	if err != nil {
		return nil
	}
	psa := uintptr(unsafe.Pointer(conv.Array))
	var lo int32
	if hr, _, _ := procSafeArrayGetLBound.Call(psa, 1, uintptr(unsafe.Pointer(&lo))); hr != 0 {
		return nil
	}
	out := make([]*ole.IDispatch, 0, n)
	for i := lo; i < lo+n; i++ {
		idx := i
		switch ole.VT(vt) {
		case ole.VT_DISPATCH:
			var d *ole.IDispatch
			if hr, _, _ := procSafeArrayGetElement.Call(psa, uintptr(unsafe.Pointer(&idx)), uintptr(unsafe.Pointer(&d))); hr == 0 && d != nil {
				out = append(out, d)
			}
		case ole.VT_VARIANT:
			var elem ole.VARIANT
			if hr, _, _ := procSafeArrayGetElement.Call(psa, uintptr(unsafe.Pointer(&idx)), uintptr(unsafe.Pointer(&elem))); hr != 0 {
				continue
			}
			if d := elem.ToIDispatch(); d != nil {
				out = append(out, d)
			} else {
				elem.Clear()
			}
		}
	}
	return out
}

func releaseAll(items []*ole.IDispatch) {
	for _, d := range items {
		d.Release()
	}
}
