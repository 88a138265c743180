package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"cadbridge/internal/domain"
	"cadbridge/internal/host"
	"cadbridge/internal/service"
)

// positioning are the optional placement fields shared by the positionable shapes.
func positioning() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("centerX", mcp.Description("Absolute center X in mm; used only together with centerY")),
		mcp.WithNumber("centerY", mcp.Description("Absolute center Y in mm; used only together with centerX")),
		mcp.WithNumber("spacing", mcp.Description("Gap in mm between the right edge of the previous shape and this shape's left edge")),
		mcp.WithNumber("relativeX", mcp.Description("X offset in mm from the previous shape's center")),
		mcp.WithNumber("relativeY", mcp.Description("Y offset in mm from the previous shape's center")),
	}
}

func withPositioning(opts ...mcp.ToolOption) []mcp.ToolOption {
	return append(opts, positioning()...)
}

func (s *Server) registerEntityTools() {
	// ── solidworks_sketch_rectangle ────────────────────
	s.addTool(mcp.NewTool("solidworks_sketch_rectangle", withPositioning(
		mcp.WithDescription("Draw a rectangle, either by size (width, height) with optional positioning, or by two opposite corners (x1, y1, x2, y2)"),
		mcp.WithNumber("width", mcp.Description("Width in mm")),
		mcp.WithNumber("height", mcp.Description("Height in mm")),
		mcp.WithNumber("x1", mcp.Description("First corner X in mm")),
		mcp.WithNumber("y1", mcp.Description("First corner Y in mm")),
		mcp.WithNumber("x2", mcp.Description("Opposite corner X in mm")),
		mcp.WithNumber("y2", mcp.Description("Opposite corner Y in mm")),
	)...), s.handleRectangle)

	// ── solidworks_sketch_circle ───────────────────────
	s.addTool(mcp.NewTool("solidworks_sketch_circle", withPositioning(
		mcp.WithDescription("Draw a circle"),
		mcp.WithNumber("radius", mcp.Description("Radius in mm"), mcp.Required()),
	)...), s.handleCircle)

	// ── solidworks_sketch_polygon ──────────────────────
	s.addTool(mcp.NewTool("solidworks_sketch_polygon", withPositioning(
		mcp.WithDescription("Draw a regular polygon"),
		mcp.WithNumber("radius", mcp.Description("Construction circle radius in mm"), mcp.Required()),
		mcp.WithNumber("numSides", mcp.Description("Number of sides, at least 3"), mcp.Required()),
		mcp.WithBoolean("inscribed", mcp.Description("When true the circle is inscribed in the polygon (radius is the apothem); default false")),
		mcp.WithNumber("angle", mcp.Description("Rotation of the first vertex in degrees")),
	)...), s.handlePolygon)

	// ── solidworks_sketch_ellipse ──────────────────────
	s.addTool(mcp.NewTool("solidworks_sketch_ellipse", withPositioning(
		mcp.WithDescription("Draw an ellipse"),
		mcp.WithNumber("majorRadius", mcp.Description("Major semi-axis in mm"), mcp.Required()),
		mcp.WithNumber("minorRadius", mcp.Description("Minor semi-axis in mm"), mcp.Required()),
		mcp.WithNumber("angle", mcp.Description("Rotation of the major axis in degrees, counter-clockwise")),
	)...), s.handleEllipse)

	// ── solidworks_sketch_slot ─────────────────────────
	s.addTool(mcp.NewTool("solidworks_sketch_slot",
		mcp.WithDescription("Draw a straight slot between two arc centers"),
		mcp.WithNumber("startX", mcp.Required()), mcp.WithNumber("startY", mcp.Required()),
		mcp.WithNumber("endX", mcp.Required()), mcp.WithNumber("endY", mcp.Required()),
		mcp.WithNumber("width", mcp.Description("Slot width in mm"), mcp.Required()),
	), s.handleSlot)

	// ── solidworks_sketch_line ─────────────────────────
	s.addTool(mcp.NewTool("solidworks_sketch_line",
		mcp.WithDescription("Draw a line segment"),
		mcp.WithNumber("startX", mcp.Required()), mcp.WithNumber("startY", mcp.Required()),
		mcp.WithNumber("endX", mcp.Required()), mcp.WithNumber("endY", mcp.Required()),
	), s.handleLine)

	// ── solidworks_sketch_arc ──────────────────────────
	s.addTool(mcp.NewTool("solidworks_sketch_arc",
		mcp.WithDescription("Draw an arc. mode=3point uses start, end and a point on the arc (midX, midY); "+
			"mode=center uses center, start and end"),
		mcp.WithString("mode", mcp.Description("3point or center (default 3point)"), mcp.Enum("3point", "center")),
		mcp.WithNumber("startX", mcp.Required()), mcp.WithNumber("startY", mcp.Required()),
		mcp.WithNumber("endX", mcp.Required()), mcp.WithNumber("endY", mcp.Required()),
		mcp.WithNumber("midX"), mcp.WithNumber("midY"),
		mcp.WithNumber("centerX"), mcp.WithNumber("centerY"),
		mcp.WithBoolean("clockwise", mcp.Description("Direction for mode=center; default counter-clockwise")),
	), s.handleArc)

	// ── solidworks_sketch_spline ───────────────────────
	s.addTool(mcp.NewTool("solidworks_sketch_spline",
		mcp.WithDescription("Draw a spline through two or more points"),
		mcp.WithArray("points", mcp.Description("Array of {x, y} objects in mm"), mcp.Required(),
			mcp.Items(map[string]any{"type": "object"})),
	), s.handleSpline)

	// ── solidworks_sketch_point ────────────────────────
	s.addTool(mcp.NewTool("solidworks_sketch_point",
		mcp.WithDescription("Place a sketch point. Points do not change the previous shape."),
		mcp.WithNumber("x", mcp.Required()), mcp.WithNumber("y", mcp.Required()),
	), s.handlePoint)

	// ── solidworks_sketch_centerline ───────────────────
	s.addTool(mcp.NewTool("solidworks_sketch_centerline",
		mcp.WithDescription("Draw a construction centerline, e.g. a revolve axis. Centerlines do not change the previous shape."),
		mcp.WithNumber("startX", mcp.Required()), mcp.WithNumber("startY", mcp.Required()),
		mcp.WithNumber("endX", mcp.Required()), mcp.WithNumber("endY", mcp.Required()),
	), s.handleCenterline)

	// ── solidworks_sketch_text ─────────────────────────
	s.addTool(mcp.NewTool("solidworks_sketch_text",
		mcp.WithDescription("Insert sketch text at a point"),
		mcp.WithNumber("x", mcp.Required()), mcp.WithNumber("y", mcp.Required()),
		mcp.WithString("text", mcp.Required()),
	), s.handleText)

	// ── solidworks_sketch_constraint ───────────────────
	s.addTool(mcp.NewTool("solidworks_sketch_constraint",
		mcp.WithDescription("Add a geometric relation between sketch entities picked by a point on each"),
		mcp.WithString("relation", mcp.Required(), mcp.Enum(
			"HORIZONTAL", "VERTICAL", "PARALLEL", "PERPENDICULAR", "TANGENT",
			"EQUAL", "COINCIDENT", "CONCENTRIC", "MIDPOINT", "COLLINEAR")),
		mcp.WithArray("entities", mcp.Description("Array of {x, y} pick points, one per entity"), mcp.Required(),
			mcp.Items(map[string]any{"type": "object"})),
	), s.handleConstraint)

	// ── solidworks_toggle_construction ─────────────────
	s.addTool(mcp.NewTool("solidworks_toggle_construction",
		mcp.WithDescription("Toggle the sketch entity at a point between regular and construction geometry"),
		mcp.WithNumber("x", mcp.Required()), mcp.WithNumber("y", mcp.Required()),
	), s.handleToggleConstruction)

	// ── solidworks_add_dimension ───────────────────────
	s.addTool(mcp.NewTool("solidworks_add_dimension",
		mcp.WithDescription("Add a driving dimension to the sketch entity at (x, y). Any Modify dialog is confirmed automatically."),
		mcp.WithNumber("x", mcp.Required()), mcp.WithNumber("y", mcp.Required()),
		mcp.WithNumber("textX", mcp.Description("Dimension text X (defaults to x)")),
		mcp.WithNumber("textY", mcp.Description("Dimension text Y (defaults to y + 10)")),
	), s.handleAddDimension)

	// ── solidworks_set_dimension_value ─────────────────
	s.addTool(mcp.NewTool("solidworks_set_dimension_value",
		mcp.WithDescription("Change a dimension by its full name, e.g. D1@Sketch1"),
		mcp.WithString("name", mcp.Required()),
		mcp.WithNumber("value", mcp.Description("New value in mm"), mcp.Required()),
	), s.handleSetDimension)
}

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleRectangle(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	in := service.RectangleInput{
		Width:  getFloat(args, "width", 0),
		Height: getFloat(args, "height", 0),
		Hints:  hints(args),
	}
	if _, ok := args["x1"]; ok {
		a, errA := corner(args, "1")
		b, errB := corner(args, "2")
		if errA != nil || errB != nil {
			return nil, errArg("corners", "x1, y1, x2 and y2 are all required for the corner form")
		}
		in.Corner1, in.Corner2 = &a, &b
	}
	res, err := s.sketches.Rectangle(ctx, in)
	if err != nil {
		return nil, err
	}
	return shapeResult(fmt.Sprintf("Rectangle %smm x %smm", mm(res.Shape.Size.Width), mm(res.Shape.Size.Height)), res)
}

func corner(args map[string]any, n string) (domain.Point, error) {
	x, okX := optFloat(args, "x"+n)
	y, okY := optFloat(args, "y"+n)
	if !okX || !okY {
		return domain.Point{}, errArg("corner", "x%s and y%s are required", n, n)
	}
	return domain.Point{X: x, Y: y}, nil
}

func xyz(args map[string]any) (domain.Point3, error) {
	x, okX := optFloat(args, "x")
	y, okY := optFloat(args, "y")
	z, okZ := optFloat(args, "z")
	if !okX || !okY || !okZ {
		return domain.Point3{}, errArg("x, y, z", "all three coordinates are required")
	}
	return domain.Point3{X: x, Y: y, Z: z}, nil
}

func (s *Server) handleCircle(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	r, err := requireFloat(args, "radius")
	if err != nil {
		return nil, err
	}
	res, err := s.sketches.Circle(ctx, service.CircleInput{Radius: r, Hints: hints(args)})
	if err != nil {
		return nil, err
	}
	return shapeResult(fmt.Sprintf("Circle radius %smm", mm(r)), res)
}

func (s *Server) handlePolygon(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	r, err := requireFloat(args, "radius")
	if err != nil {
		return nil, err
	}
	sides, err := getInt(args, "numSides", 0)
	if err != nil {
		return nil, err
	}
	in := service.PolygonInput{
		Radius:    r,
		NumSides:  sides,
		Inscribed: getBool(args, "inscribed", false),
		Angle:     getFloat(args, "angle", 0),
		Hints:     hints(args),
	}
	res, err := s.sketches.Polygon(ctx, in)
	if err != nil {
		return nil, err
	}
	return shapeResult(fmt.Sprintf("%d-sided polygon", in.NumSides), res)
}

func (s *Server) handleEllipse(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	major, err := requireFloat(args, "majorRadius")
	if err != nil {
		return nil, err
	}
	minor, err := requireFloat(args, "minorRadius")
	if err != nil {
		return nil, err
	}
	in := service.EllipseInput{MajorRadius: major, MinorRadius: minor, Angle: getFloat(args, "angle", 0), Hints: hints(args)}
	res, err := s.sketches.Ellipse(ctx, in)
	if err != nil {
		return nil, err
	}
	return shapeResult(fmt.Sprintf("Ellipse %smm x %smm", mm(major), mm(minor)), res)
}

func (s *Server) handleSlot(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	start, end, err := segment(args)
	if err != nil {
		return nil, err
	}
	w, err := requireFloat(args, "width")
	if err != nil {
		return nil, err
	}
	res, err := s.sketches.Slot(ctx, start, end, w)
	if err != nil {
		return nil, err
	}
	return shapeResult(fmt.Sprintf("Slot width %smm", mm(w)), res)
}

func (s *Server) handleLine(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	start, end, err := segment(args)
	if err != nil {
		return nil, err
	}
	res, err := s.sketches.Line(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return shapeResult(fmt.Sprintf("Line %smm", mm(res.Shape.Size.Length)), res)
}

func (s *Server) handleArc(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	start, end, err := segment(args)
	if err != nil {
		return nil, err
	}
	var res service.ShapeResult
	switch mode := strings.ToLower(getString(args, "mode", "3point")); mode {
	case "3point":
		mid, err := point(args, "mid")
		if err != nil {
			return nil, err
		}
		res, err = s.sketches.ThreePointArc(ctx, start, end, mid)
		if err != nil {
			return nil, err
		}
	case "center":
		center, err := point(args, "center")
		if err != nil {
			return nil, err
		}
		res, err = s.sketches.CenterArc(ctx, center, start, end, getBool(args, "clockwise", false))
		if err != nil {
			return nil, err
		}
	default:
		return nil, errArg("mode", "unknown arc mode %q", mode)
	}
	return shapeResult(fmt.Sprintf("Arc radius %smm", mm(res.Shape.Size.Radius)), res)
}

func (s *Server) handleSpline(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	pts, err := points(args, "points")
	if err != nil {
		return nil, err
	}
	res, err := s.sketches.Spline(ctx, pts)
	if err != nil {
		return nil, err
	}
	return shapeResult(fmt.Sprintf("Spline through %d points", len(pts)), res)
}

func (s *Server) handlePoint(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	p, err := xy(args)
	if err != nil {
		return nil, err
	}
	if err := s.sketches.Point(ctx, p); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("✓ Point at (%s, %s)", mm(p.X), mm(p.Y))), nil
}

func (s *Server) handleCenterline(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	start, end, err := segment(args)
	if err != nil {
		return nil, err
	}
	if err := s.sketches.Centerline(ctx, start, end); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("✓ Centerline from (%s, %s) to (%s, %s)", mm(start.X), mm(start.Y), mm(end.X), mm(end.Y))), nil
}

func (s *Server) handleText(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	p, err := xy(args)
	if err != nil {
		return nil, err
	}
	text := getString(args, "text", "")
	if err := s.sketches.Text(ctx, p, text); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("✓ Text %q at (%s, %s)", text, mm(p.X), mm(p.Y))), nil
}

func (s *Server) handleConstraint(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	rel, err := host.ParseRelation(getString(args, "relation", ""))
	if err != nil {
		return nil, err
	}
	picks, err := points(args, "entities")
	if err != nil {
		return nil, err
	}
	if err := s.sketches.Constrain(ctx, rel, picks); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("✓ %s relation added", rel)), nil
}

func (s *Server) handleToggleConstruction(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	p, err := xy(args)
	if err != nil {
		return nil, err
	}
	if err := s.sketches.ToggleConstruction(ctx, p); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("✓ Construction toggled at (%s, %s)", mm(p.X), mm(p.Y))), nil
}

func (s *Server) handleAddDimension(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	p, err := xy(args)
	if err != nil {
		return nil, err
	}
	textAt := domain.Point{X: getFloat(args, "textX", p.X), Y: getFloat(args, "textY", p.Y+10)}
	res, err := s.sketches.AddDimension(ctx, p, textAt)
	if err != nil {
		return nil, err
	}
	return summaryResult(fmt.Sprintf("✓ Dimension %s = %smm", res.Name, mm(res.Value)), res)
}

func (s *Server) handleSetDimension(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	name := getString(args, "name", "")
	v, err := requireFloat(args, "value")
	if err != nil {
		return nil, err
	}
	if err := s.sketches.SetDimension(ctx, name, v); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("✓ %s set to %smm", name, mm(v))), nil
}

// ── helpers ────────────────────────────────────────────────

func segment(args map[string]any) (domain.Point, domain.Point, error) {
	start, err := point(args, "start")
	if err != nil {
		return domain.Point{}, domain.Point{}, err
	}
	end, err := point(args, "end")
	if err != nil {
		return domain.Point{}, domain.Point{}, err
	}
	return start, end, nil
}

func xy(args map[string]any) (domain.Point, error) {
	x, okX := optFloat(args, "x")
	y, okY := optFloat(args, "y")
	if !okX || !okY {
		return domain.Point{}, errArg("x, y", "both coordinates are required")
	}
	return domain.Point{X: x, Y: y}, nil
}

func shapeResult(what string, res service.ShapeResult) (*mcp.CallToolResult, error) {
	c := res.Shape.Center
	summary := fmt.Sprintf("✓ %s at position (%s, %s)", what, mm(c.X), mm(c.Y))
	if res.Strategy != "" {
		summary += fmt.Sprintf(" [%s]", res.Strategy)
	}
	return summaryResult(summary, res)
}
