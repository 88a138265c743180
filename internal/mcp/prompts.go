package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("sketch_row",
		mcp.WithPromptDescription("Lay out a row of evenly spaced shapes without tracking coordinates"),
		mcp.WithArgument("shapes",
			mcp.ArgumentDescription("What to draw, e.g. \"a 40x30 rectangle, then two circles of radius 5\""),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("gap",
			mcp.ArgumentDescription("Gap between shapes in mm (default 10)"),
		),
	), s.handleSketchRowPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("plate_with_holes",
		mcp.WithPromptDescription("Model a rectangular plate with a pattern of holes"),
		mcp.WithArgument("width", mcp.ArgumentDescription("Plate width in mm"), mcp.RequiredArgument()),
		mcp.WithArgument("height", mcp.ArgumentDescription("Plate height in mm"), mcp.RequiredArgument()),
		mcp.WithArgument("thickness", mcp.ArgumentDescription("Plate thickness in mm"), mcp.RequiredArgument()),
		mcp.WithArgument("holeSize", mcp.ArgumentDescription("Fastener size, e.g. M6 (default M6)")),
	), s.handlePlatePrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("turned_part",
		mcp.WithPromptDescription("Model a rotationally symmetric part from a half profile"),
		mcp.WithArgument("description",
			mcp.ArgumentDescription("The part, e.g. \"a stepped shaft, 20mm then 12mm diameter\""),
			mcp.RequiredArgument(),
		),
	), s.handleTurnedPartPrompt)
}

func (s *Server) handleSketchRowPrompt(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	shapes := req.Params.Arguments["shapes"]
	gap := req.Params.Arguments["gap"]
	if gap == "" {
		gap = "10"
	}
	return userPrompt(fmt.Sprintf("Sketch a row: %s", shapes), fmt.Sprintf(`Draw %s in one row. Follow these steps:

1. Use solidworks_create_sketch on the Front plane
2. Draw the first shape with no positioning arguments; it is centered on the origin
3. Draw every following shape with spacing=%s; it is placed to the right of the previous shape, sharing its center height
4. After each shape, check the summary line for the position that was used
5. Use solidworks_get_last_shape_info if you need the bounds of the previous shape
6. Finish with solidworks_exit_sketch

Never compute coordinates by hand when spacing or relativeX/relativeY can express the layout.`, shapes, gap)), nil
}

func (s *Server) handlePlatePrompt(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	a := req.Params.Arguments
	size := a["holeSize"]
	if size == "" {
		size = "M6"
	}
	return userPrompt(fmt.Sprintf("Plate %sx%sx%s with %s holes", a["width"], a["height"], a["thickness"], size), fmt.Sprintf(`Model a %smm x %smm plate, %smm thick, with %s holes. Follow these steps:

1. Use solidworks_create_sketch on the Front plane (this creates a part if none is open)
2. Use solidworks_sketch_rectangle with width=%s and height=%s
3. Use solidworks_create_extrusion with depth=%s
4. Use solidworks_hole_wizard with type=COUNTERBORE, size=%s and endCondition=THROUGH_ALL, picking a point on the top face (z=%s) near one corner
5. Use solidworks_list_features to find the hole feature name
6. Use solidworks_linear_pattern on that feature to repeat it along the plate edge
7. Check the result with solidworks_get_mass_properties`, a["width"], a["height"], a["thickness"], size, a["width"], a["height"], a["thickness"], size, a["thickness"])), nil
}

func (s *Server) handleTurnedPartPrompt(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	desc := req.Params.Arguments["description"]
	return userPrompt(fmt.Sprintf("Turned part: %s", desc), fmt.Sprintf(`Model %s as a revolved part. Follow these steps:

1. Use solidworks_create_sketch on the Front plane
2. Draw a solidworks_sketch_centerline along the Y axis; it becomes the revolve axis
3. Draw the half profile to the right of the axis with solidworks_sketch_rectangle using corners (x1, y1, x2, y2), one rectangle per diameter step
4. Use solidworks_revolve with angle=360
5. Add edge breaks with solidworks_chamfer where the steps meet`, desc)), nil
}

func userPrompt(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: text,
				},
			},
		},
	}
}
