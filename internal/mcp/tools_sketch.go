package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"cadbridge/internal/host"
)

func (s *Server) registerSketchTools() {
	// ── solidworks_new_part ────────────────────────────
	s.addTool(mcp.NewTool("solidworks_new_part",
		mcp.WithDescription("Create a new part document from the default part template. Clears the sketch layout state."),
	), s.handleNewPart)

	// ── solidworks_create_sketch ───────────────────────
	s.addTool(mcp.NewTool("solidworks_create_sketch",
		mcp.WithDescription("Open a new sketch on a standard plane, a reference plane, or a planar face of the solid. "+
			"Creates a part first if none is open. The previous shape is forgotten."),
		mcp.WithString("plane", mcp.Description("Front, Top, Right, or a reference plane name such as Plane1 (default Front)")),
		mcp.WithNumber("faceX", mcp.Description("X of a point on the face to sketch on (mm); use with faceY and faceZ instead of plane")),
		mcp.WithNumber("faceY", mcp.Description("Y of a point on the face (mm)")),
		mcp.WithNumber("faceZ", mcp.Description("Z of a point on the face (mm)")),
	), s.handleCreateSketch)

	// ── solidworks_exit_sketch ─────────────────────────
	s.addTool(mcp.NewTool("solidworks_exit_sketch",
		mcp.WithDescription("Leave sketch edit mode. The previous shape stays queryable until the next sketch opens."),
	), s.handleExitSketch)

	// ── solidworks_get_last_shape_info ─────────────────
	s.addTool(mcp.NewTool("solidworks_get_last_shape_info",
		mcp.WithDescription("Return the kind, center, bounding box and size of the most recent shape in the active sketch"),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleLastShape)

	// ── solidworks_list_sketch_shapes ──────────────────
	s.addTool(mcp.NewTool("solidworks_list_sketch_shapes",
		mcp.WithDescription("List every positioned shape of the active sketch in drawing order"),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleListShapes)
}

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleNewPart(ctx context.Context, _ map[string]any) (*mcp.CallToolResult, error) {
	info, err := s.sketches.NewPart(ctx)
	if err != nil {
		return nil, err
	}
	return summaryResult(fmt.Sprintf("✓ New part %s created", info.Document), info)
}

func (s *Server) handleCreateSketch(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	face, err := optPoint3(args, "face")
	if err != nil {
		return nil, err
	}
	target := host.SketchTarget{Plane: getString(args, "plane", ""), Face: face}
	info, err := s.sketches.CreateSketch(ctx, target)
	if err != nil {
		return nil, err
	}
	summary := fmt.Sprintf("✓ %s opened on %s", info.Name, info.Target)
	if info.NewPart {
		summary += fmt.Sprintf(" (new part %s)", info.Document)
	}
	return summaryResult(summary, info)
}

func (s *Server) handleExitSketch(ctx context.Context, _ map[string]any) (*mcp.CallToolResult, error) {
	if err := s.sketches.ExitSketch(ctx); err != nil {
		return nil, err
	}
	return textResult("✓ Exited sketch"), nil
}

func (s *Server) handleLastShape(_ context.Context, _ map[string]any) (*mcp.CallToolResult, error) {
	ls, err := s.sketches.LastShape()
	if err != nil {
		return nil, err
	}
	b := ls.Bounds
	return summaryResult(fmt.Sprintf("Last shape: %s centered at (%s, %s), bounds x %s..%s, y %s..%s",
		ls.Kind, mm(ls.Center.X), mm(ls.Center.Y), mm(b.Left), mm(b.Right), mm(b.Bottom), mm(b.Top)), ls)
}

func (s *Server) handleListShapes(_ context.Context, _ map[string]any) (*mcp.CallToolResult, error) {
	shapes := s.sketches.Shapes()
	return summaryResult(fmt.Sprintf("%d shape(s) in %s", len(shapes), sketchLabel(s.sketches.Session().Sketch())), shapes)
}

func sketchLabel(name string) string {
	if name == "" {
		return "no sketch"
	}
	return name
}
