package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"cadbridge/internal/dialog"
	"cadbridge/internal/service"
)

func (s *Server) registerModelingTools() {
	// ── solidworks_create_extrusion ────────────────────
	s.addTool(mcp.NewTool("solidworks_create_extrusion",
		mcp.WithDescription("Extrude the current sketch into a boss. Uses the newest sketch in the tree when none is open."),
		mcp.WithNumber("depth", mcp.Description("Depth in mm"), mcp.Required()),
		mcp.WithBoolean("reverse", mcp.Description("Extrude in the opposite direction")),
	), s.handleExtrude)

	// ── solidworks_create_cut_extrusion ────────────────
	s.addTool(mcp.NewTool("solidworks_create_cut_extrusion",
		mcp.WithDescription("Cut material by extruding the current sketch"),
		mcp.WithNumber("depth", mcp.Description("Depth in mm"), mcp.Required()),
		mcp.WithBoolean("reverse", mcp.Description("Cut in the opposite direction")),
	), s.handleCutExtrude)

	// ── solidworks_revolve ─────────────────────────────
	s.addTool(mcp.NewTool("solidworks_revolve",
		mcp.WithDescription("Revolve the current sketch about its centerline"),
		mcp.WithNumber("angle", mcp.Description("Angle in degrees, 0 < angle <= 360 (default 360)")),
		mcp.WithBoolean("reverse", mcp.Description("Revolve in the opposite direction")),
	), s.handleRevolve)

	// ── solidworks_cut_revolve ─────────────────────────
	s.addTool(mcp.NewTool("solidworks_cut_revolve",
		mcp.WithDescription("Cut material by revolving the current sketch about its centerline"),
		mcp.WithNumber("angle", mcp.Description("Angle in degrees, 0 < angle <= 360 (default 360)")),
		mcp.WithBoolean("reverse", mcp.Description("Revolve in the opposite direction")),
	), s.handleCutRevolve)
}

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleExtrude(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	in, err := extrudeInput(args)
	if err != nil {
		return nil, err
	}
	res, err := s.modeling.Extrude(ctx, in)
	if err != nil {
		return nil, err
	}
	return featureResult(fmt.Sprintf("Extruded %s by %smm", res.Sketch, mm(in.Depth)), res)
}

func (s *Server) handleCutExtrude(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	in, err := extrudeInput(args)
	if err != nil {
		return nil, err
	}
	res, err := s.modeling.CutExtrude(ctx, in)
	if err != nil {
		return nil, err
	}
	return featureResult(fmt.Sprintf("Cut %s by %smm", res.Sketch, mm(in.Depth)), res)
}

func (s *Server) handleRevolve(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	in := revolveInput(args)
	res, err := s.modeling.Revolve(ctx, in)
	if err != nil {
		return nil, err
	}
	return featureResult(fmt.Sprintf("Revolved %s", res.Sketch), res)
}

func (s *Server) handleCutRevolve(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	in := revolveInput(args)
	res, err := s.modeling.CutRevolve(ctx, in)
	if err != nil {
		return nil, err
	}
	return featureResult(fmt.Sprintf("Revolve-cut %s", res.Sketch), res)
}

func extrudeInput(args map[string]any) (service.ExtrudeInput, error) {
	depth, err := requireFloat(args, "depth")
	if err != nil {
		return service.ExtrudeInput{}, err
	}
	return service.ExtrudeInput{Depth: depth, Reverse: getBool(args, "reverse", false)}, nil
}

func revolveInput(args map[string]any) service.RevolveInput {
	return service.RevolveInput{Angle: getFloat(args, "angle", 0), Reverse: getBool(args, "reverse", false)}
}

func featureResult(what string, res service.FeatureResult) (*mcp.CallToolResult, error) {
	summary := fmt.Sprintf("✓ %s → %s", what, res.Name)
	if res.Dialog == dialog.OutcomeDismissed {
		summary += " (dialog confirmed)"
	}
	return summaryResult(summary, res)
}
