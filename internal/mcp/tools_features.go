package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"cadbridge/internal/host"
)

var pickItems = mcp.Items(map[string]any{
	"type": "object",
	"properties": map[string]any{
		"x": map[string]any{"type": "number"},
		"y": map[string]any{"type": "number"},
		"z": map[string]any{"type": "number"},
	},
})

func (s *Server) registerFeatureTools() {
	// ── solidworks_fillet ──────────────────────────────
	s.addTool(mcp.NewTool("solidworks_fillet",
		mcp.WithDescription("Round edges picked by a model-space point on each edge"),
		mcp.WithNumber("radius", mcp.Description("Fillet radius in mm"), mcp.Required()),
		mcp.WithArray("edges", mcp.Description("Array of {x, y, z} points in mm, one on each edge"), mcp.Required(), pickItems),
	), s.handleFillet)

	// ── solidworks_chamfer ─────────────────────────────
	s.addTool(mcp.NewTool("solidworks_chamfer",
		mcp.WithDescription("Bevel edges with a distance-angle chamfer"),
		mcp.WithNumber("distance", mcp.Description("Chamfer distance in mm"), mcp.Required()),
		mcp.WithNumber("angle", mcp.Description("Chamfer angle in degrees (default 45)")),
		mcp.WithArray("edges", mcp.Description("Array of {x, y, z} points in mm, one on each edge"), mcp.Required(), pickItems),
	), s.handleChamfer)

	// ── solidworks_shell ───────────────────────────────
	s.addTool(mcp.NewTool("solidworks_shell",
		mcp.WithDescription("Hollow the part, removing the picked faces"),
		mcp.WithNumber("thickness", mcp.Description("Wall thickness in mm"), mcp.Required()),
		mcp.WithArray("faces", mcp.Description("Array of {x, y, z} points in mm, one on each face to remove"), mcp.Required(), pickItems),
		mcp.WithBoolean("outward", mcp.Description("Add the wall outside the body")),
	), s.handleShell)

	// ── solidworks_linear_pattern ──────────────────────
	s.addTool(mcp.NewTool("solidworks_linear_pattern",
		mcp.WithDescription("Repeat features along the direction of a picked edge"),
		mcp.WithString("features", mcp.Description("Comma-separated feature names to pattern"), mcp.Required()),
		mcp.WithNumber("directionX", mcp.Required()), mcp.WithNumber("directionY", mcp.Required()), mcp.WithNumber("directionZ", mcp.Required()),
		mcp.WithNumber("spacing", mcp.Description("Distance between instances in mm"), mcp.Required()),
		mcp.WithNumber("count", mcp.Description("Instance count including the seed, at least 2"), mcp.Required()),
		mcp.WithBoolean("reverse"),
	), s.handleLinearPattern)

	// ── solidworks_circular_pattern ────────────────────
	s.addTool(mcp.NewTool("solidworks_circular_pattern",
		mcp.WithDescription("Repeat features around an axis, given by name or by a point on a circular edge"),
		mcp.WithString("features", mcp.Description("Comma-separated feature names to pattern"), mcp.Required()),
		mcp.WithString("axis", mcp.Description("Axis name, e.g. Axis1")),
		mcp.WithNumber("axisX"), mcp.WithNumber("axisY"), mcp.WithNumber("axisZ"),
		mcp.WithNumber("count", mcp.Description("Instance count including the seed, at least 2"), mcp.Required()),
		mcp.WithNumber("angle", mcp.Description("Total angle in degrees (default 360)")),
		mcp.WithBoolean("equalSpacing", mcp.Description("Spread instances evenly over the angle (default true)")),
	), s.handleCircularPattern)

	// ── solidworks_mirror ──────────────────────────────
	s.addTool(mcp.NewTool("solidworks_mirror",
		mcp.WithDescription("Mirror features about a plane or a planar face"),
		mcp.WithString("features", mcp.Description("Comma-separated feature names to mirror"), mcp.Required()),
		mcp.WithString("plane", mcp.Description("Front, Top, Right or a reference plane name")),
		mcp.WithNumber("faceX"), mcp.WithNumber("faceY"), mcp.WithNumber("faceZ"),
	), s.handleMirror)

	// ── solidworks_ref_plane ───────────────────────────
	s.addTool(mcp.NewTool("solidworks_ref_plane",
		mcp.WithDescription("Create a reference plane from a base plane: at an offset, at an angle about an edge, or through a vertex"),
		mcp.WithString("type", mcp.Enum(string(host.PlaneOffset), string(host.PlaneAngle), string(host.PlaneThroughPoint)),
			mcp.Description("Default OFFSET")),
		mcp.WithString("base", mcp.Description("Front, Top, Right or a plane name (default Front)")),
		mcp.WithNumber("offset", mcp.Description("Offset in mm, for OFFSET")),
		mcp.WithNumber("angle", mcp.Description("Angle in degrees, for ANGLE")),
		mcp.WithNumber("edgeX"), mcp.WithNumber("edgeY"), mcp.WithNumber("edgeZ", mcp.Description("A point on the rotation edge, for ANGLE")),
		mcp.WithNumber("pointX"), mcp.WithNumber("pointY"), mcp.WithNumber("pointZ", mcp.Description("The vertex, for THROUGH_POINT")),
		mcp.WithBoolean("reverse", mcp.Description("Offset or rotate to the other side")),
	), s.handleRefPlane)

	// ── solidworks_ref_axis ────────────────────────────
	s.addTool(mcp.NewTool("solidworks_ref_axis",
		mcp.WithDescription("Create a reference axis through two vertices, along a cylindrical face or along a straight edge"),
		mcp.WithString("type", mcp.Required(), mcp.Enum(string(host.AxisTwoPoints), string(host.AxisCylinder), string(host.AxisEdge))),
		mcp.WithNumber("point1X"), mcp.WithNumber("point1Y"), mcp.WithNumber("point1Z"),
		mcp.WithNumber("point2X"), mcp.WithNumber("point2Y"), mcp.WithNumber("point2Z", mcp.Description("Vertices, for TWO_POINTS")),
		mcp.WithNumber("x"), mcp.WithNumber("y"), mcp.WithNumber("z", mcp.Description("A point on the face or edge")),
	), s.handleRefAxis)

	// ── solidworks_ref_point ───────────────────────────
	s.addTool(mcp.NewTool("solidworks_ref_point",
		mcp.WithDescription("Create a reference point at coordinates, at an arc center, at a face center or on an edge"),
		mcp.WithString("type", mcp.Enum(string(host.PointCoordinates), string(host.PointArcCenter), string(host.PointFaceCenter), string(host.PointOnEdge)),
			mcp.Description("Default COORDINATES")),
		mcp.WithNumber("x", mcp.Required()), mcp.WithNumber("y", mcp.Required()),
		mcp.WithNumber("z", mcp.Required(), mcp.Description("The point itself, or a point on the edge or face")),
	), s.handleRefPoint)

	// ── solidworks_coordinate_system ───────────────────
	s.addTool(mcp.NewTool("solidworks_coordinate_system",
		mcp.WithDescription("Create a coordinate system at a vertex, optionally aligned to edges"),
		mcp.WithNumber("originX", mcp.Required()), mcp.WithNumber("originY", mcp.Required()), mcp.WithNumber("originZ", mcp.Required()),
		mcp.WithNumber("xEdgeX"), mcp.WithNumber("xEdgeY"), mcp.WithNumber("xEdgeZ", mcp.Description("A point on the X direction edge")),
		mcp.WithNumber("yEdgeX"), mcp.WithNumber("yEdgeY"), mcp.WithNumber("yEdgeZ", mcp.Description("A point on the Y direction edge")),
	), s.handleCoordinateSystem)

	// ── solidworks_hole_wizard ─────────────────────────
	s.addTool(mcp.NewTool("solidworks_hole_wizard",
		mcp.WithDescription("Place a standard hole on the face at (x, y, z). Any confirmation dialog is dismissed automatically."),
		mcp.WithString("type", mcp.Required(), mcp.Enum(
			string(host.HoleCounterbore), string(host.HoleCountersink), string(host.HoleSimple),
			string(host.HoleStraightTap), string(host.HoleTaperedTap), string(host.HoleLegacy))),
		mcp.WithString("size", mcp.Description("Fastener size, e.g. M6"), mcp.Required()),
		mcp.WithNumber("standard", mcp.Description("Standard code (default 1, ISO)")),
		mcp.WithString("endCondition", mcp.Enum("BLIND", "THROUGH_ALL", "UP_TO_NEXT")),
		mcp.WithNumber("depth", mcp.Description("Depth in mm, required for BLIND")),
		mcp.WithNumber("x", mcp.Required()), mcp.WithNumber("y", mcp.Required()), mcp.WithNumber("z", mcp.Required()),
	), s.handleHoleWizard)
}

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleFillet(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	r, err := requireFloat(args, "radius")
	if err != nil {
		return nil, err
	}
	edges, err := points3(args, "edges")
	if err != nil {
		return nil, err
	}
	res, err := s.modeling.Fillet(ctx, r, edges)
	if err != nil {
		return nil, err
	}
	return featureResult(fmt.Sprintf("Fillet R%smm on %d edge(s)", mm(r), len(edges)), res)
}

func (s *Server) handleChamfer(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	d, err := requireFloat(args, "distance")
	if err != nil {
		return nil, err
	}
	edges, err := points3(args, "edges")
	if err != nil {
		return nil, err
	}
	o := host.ChamferOptions{Distance: d, Angle: getFloat(args, "angle", 45), Edges: edges}
	res, err := s.modeling.Chamfer(ctx, o)
	if err != nil {
		return nil, err
	}
	return featureResult(fmt.Sprintf("Chamfer %smm x %g° on %d edge(s)", mm(d), o.Angle, len(edges)), res)
}

func (s *Server) handleShell(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	t, err := requireFloat(args, "thickness")
	if err != nil {
		return nil, err
	}
	faces, err := points3(args, "faces")
	if err != nil {
		return nil, err
	}
	res, err := s.modeling.Shell(ctx, host.ShellOptions{Thickness: t, Faces: faces, Outward: getBool(args, "outward", false)})
	if err != nil {
		return nil, err
	}
	return featureResult(fmt.Sprintf("Shell %smm", mm(t)), res)
}

func (s *Server) handleLinearPattern(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	dir, err := optPoint3(args, "direction")
	if err != nil {
		return nil, err
	}
	if dir == nil {
		return nil, errArg("direction", "directionX, directionY and directionZ are required")
	}
	spacing, err := requireFloat(args, "spacing")
	if err != nil {
		return nil, err
	}
	count, err := getInt(args, "count", 0)
	if err != nil {
		return nil, err
	}
	o := host.LinearPatternOptions{
		Features:  names(args, "features"),
		Direction: *dir,
		Spacing:   spacing,
		Count:     count,
		Reverse:   getBool(args, "reverse", false),
	}
	res, err := s.modeling.LinearPattern(ctx, o)
	if err != nil {
		return nil, err
	}
	return featureResult(fmt.Sprintf("Linear pattern x%d @ %smm", o.Count, mm(spacing)), res)
}

func (s *Server) handleCircularPattern(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	edge, err := optPoint3(args, "axis")
	if err != nil {
		return nil, err
	}
	count, err := getInt(args, "count", 0)
	if err != nil {
		return nil, err
	}
	o := host.CircularPatternOptions{
		Features:     names(args, "features"),
		Axis:         getString(args, "axis", ""),
		AxisEdge:     edge,
		Count:        count,
		Angle:        getFloat(args, "angle", 360),
		EqualSpacing: getBool(args, "equalSpacing", true),
	}
	res, err := s.modeling.CircularPattern(ctx, o)
	if err != nil {
		return nil, err
	}
	return featureResult(fmt.Sprintf("Circular pattern x%d over %g°", o.Count, o.Angle), res)
}

func (s *Server) handleMirror(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	face, err := optPoint3(args, "face")
	if err != nil {
		return nil, err
	}
	o := host.MirrorOptions{Features: names(args, "features"), Plane: getString(args, "plane", ""), Face: face}
	res, err := s.modeling.Mirror(ctx, o)
	if err != nil {
		return nil, err
	}
	return featureResult(fmt.Sprintf("Mirrored %d feature(s)", len(o.Features)), res)
}

func (s *Server) handleRefPlane(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	kind, err := host.ParsePlaneKind(getString(args, "type", string(host.PlaneOffset)))
	if err != nil {
		return nil, errArg("type", "%v", err)
	}
	o := host.RefPlaneOptions{Kind: kind, Base: getString(args, "base", "Front"), Reverse: getBool(args, "reverse", false)}
	var what string
	switch kind {
	case host.PlaneAngle:
		if o.Angle, err = requireFloat(args, "angle"); err != nil {
			return nil, err
		}
		if o.Edge, err = optPoint3(args, "edge"); err != nil {
			return nil, err
		}
		what = fmt.Sprintf("Plane at %s° to %s", mm(o.Angle), o.Base)
	case host.PlaneThroughPoint:
		if o.Point, err = optPoint3(args, "point"); err != nil {
			return nil, err
		}
		what = fmt.Sprintf("Plane parallel to %s through a vertex", o.Base)
	default:
		if o.Offset, err = requireFloat(args, "offset"); err != nil {
			return nil, err
		}
		what = fmt.Sprintf("Plane %smm from %s", mm(o.Offset), o.Base)
	}
	res, err := s.modeling.RefPlane(ctx, o)
	if err != nil {
		return nil, err
	}
	return featureResult(what, res)
}

func (s *Server) handleRefAxis(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	kind, err := host.ParseAxisKind(getString(args, "type", ""))
	if err != nil {
		return nil, errArg("type", "%v", err)
	}
	o := host.RefAxisOptions{Kind: kind}
	if kind == host.AxisTwoPoints {
		if o.From, err = requirePoint3(args, "point1"); err != nil {
			return nil, err
		}
		if o.To, err = requirePoint3(args, "point2"); err != nil {
			return nil, err
		}
	} else if o.Pick, err = xyz(args); err != nil {
		return nil, err
	}
	res, err := s.modeling.RefAxis(ctx, o)
	if err != nil {
		return nil, err
	}
	return featureResult(fmt.Sprintf("Axis (%s)", kind), res)
}

func (s *Server) handleRefPoint(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	kind, err := host.ParsePointKind(getString(args, "type", string(host.PointCoordinates)))
	if err != nil {
		return nil, errArg("type", "%v", err)
	}
	at, err := xyz(args)
	if err != nil {
		return nil, err
	}
	res, err := s.modeling.RefPoint(ctx, host.RefPointOptions{Kind: kind, At: at})
	if err != nil {
		return nil, err
	}
	return featureResult(fmt.Sprintf("Point (%s)", kind), res)
}

func (s *Server) handleCoordinateSystem(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	origin, err := requirePoint3(args, "origin")
	if err != nil {
		return nil, err
	}
	o := host.CoordinateSystemOptions{Origin: origin}
	if o.XEdge, err = optPoint3(args, "xEdge"); err != nil {
		return nil, err
	}
	if o.YEdge, err = optPoint3(args, "yEdge"); err != nil {
		return nil, err
	}
	res, err := s.modeling.CoordinateSystem(ctx, o)
	if err != nil {
		return nil, err
	}
	return featureResult(fmt.Sprintf("Coordinate system at (%s, %s, %s)", mm(origin.X), mm(origin.Y), mm(origin.Z)), res)
}

func (s *Server) handleHoleWizard(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	kind, err := host.ParseHoleType(getString(args, "type", ""))
	if err != nil {
		return nil, err
	}
	face, err := xyz(args)
	if err != nil {
		return nil, err
	}
	standard, err := getInt(args, "standard", 1)
	if err != nil {
		return nil, err
	}
	o := host.HoleOptions{
		Type:         kind,
		Standard:     standard,
		Size:         getString(args, "size", ""),
		EndCondition: getString(args, "endCondition", ""),
		Depth:        getFloat(args, "depth", 0),
		Face:         face,
	}
	res, err := s.modeling.HoleWizard(ctx, o)
	if err != nil {
		return nil, err
	}
	return featureResult(fmt.Sprintf("%s %s hole", o.Size, kind), res)
}
