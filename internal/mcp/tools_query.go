package mcpserver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"cadbridge/internal/domain"
	"cadbridge/internal/host"
)

func (s *Server) registerQueryTools() {
	// ── solidworks_list_features ───────────────────────
	s.addTool(mcp.NewTool("solidworks_list_features",
		mcp.WithDescription("List the feature tree of the active part, oldest first"),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleListFeatures)

	// ── solidworks_get_mass_properties ─────────────────
	s.addTool(mcp.NewTool("solidworks_get_mass_properties",
		mcp.WithDescription("Volume, surface area and mass of the active part"),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleMassProperties)

	// ── solidworks_get_body_info ───────────────────────
	s.addTool(mcp.NewTool("solidworks_get_body_info",
		mcp.WithDescription("Bounding box and face, edge and vertex counts of the solid bodies"),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleBodyInfo)

	// ── solidworks_get_faces ───────────────────────────
	s.addTool(mcp.NewTool("solidworks_get_faces",
		mcp.WithDescription("List faces with surface type, area and a point on each face usable for picking"),
		mcp.WithString("surfaceType", mcp.Enum("PLANE", "CYLINDER", "CONE", "SPHERE", "TORUS", "BSPLINE"),
			mcp.Description("Only faces of this type")),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleFaces)

	// ── solidworks_get_edges ───────────────────────────
	s.addTool(mcp.NewTool("solidworks_get_edges",
		mcp.WithDescription("List edges with curve type, end points, length and a midpoint usable for fillet and chamfer picks"),
		mcp.WithString("edgeType", mcp.Enum("LINE", "CIRCLE", "ARC", "ELLIPSE", "SPLINE"),
			mcp.Description("Only edges of this type")),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleEdges)

	// ── solidworks_get_face_edges ──────────────────────
	s.addTool(mcp.NewTool("solidworks_get_face_edges",
		mcp.WithDescription("Describe the face at (x, y, z) and list its boundary edges"),
		mcp.WithNumber("x", mcp.Required()), mcp.WithNumber("y", mcp.Required()), mcp.WithNumber("z", mcp.Required()),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleFaceEdges)

	// ── solidworks_get_vertices ────────────────────────
	s.addTool(mcp.NewTool("solidworks_get_vertices",
		mcp.WithDescription("List the distinct vertices of the solid bodies"),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleVertices)

	// ── solidworks_connection_status ───────────────────
	s.addTool(mcp.NewTool("solidworks_connection_status",
		mcp.WithDescription("Report the application revision, the active document and the dialog watcher timings"),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleStatus)

	// ── solidworks_call_history ────────────────────────
	s.addTool(mcp.NewTool("solidworks_call_history",
		mcp.WithDescription("Recent tool calls from the call journal, newest first"),
		mcp.WithNumber("limit", mcp.Description("Maximum entries (default 20)")),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleHistory)
}

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleListFeatures(ctx context.Context, _ map[string]any) (*mcp.CallToolResult, error) {
	features, err := s.modeling.Features(ctx)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d feature(s)", len(features))
	for i, f := range features {
		fmt.Fprintf(&b, "\n%3d. %s (%s)", i+1, f.Name, f.Type)
	}
	return textResult(b.String()), nil
}

func (s *Server) handleMassProperties(ctx context.Context, _ map[string]any) (*mcp.CallToolResult, error) {
	mp, err := s.modeling.MassProperties(ctx)
	if err != nil {
		return nil, err
	}
	return summaryResult(fmt.Sprintf("Volume %.2f mm³, mass %.4f kg", mp.Volume, mp.Mass), mp)
}

func (s *Server) handleBodyInfo(ctx context.Context, _ map[string]any) (*mcp.CallToolResult, error) {
	info, err := s.inspect.BodyInfo(ctx)
	if err != nil {
		return nil, err
	}
	size := info.Size()
	return summaryResult(fmt.Sprintf("✓ %d body(ies), %s × %s × %s mm, %d faces, %d edges, %d vertices",
		info.Bodies, mm(size.X), mm(size.Y), mm(size.Z), info.Faces, info.Edges, info.Vertices), info)
}

func (s *Server) handleFaces(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	faces, err := s.inspect.Faces(ctx, getString(args, "surfaceType", ""))
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d face(s)", len(faces))
	for i, f := range faces {
		b.WriteString("\n")
		writeFace(&b, i, f)
	}
	return textResult(b.String()), nil
}

func (s *Server) handleEdges(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	edges, err := s.inspect.Edges(ctx, getString(args, "edgeType", ""))
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d edge(s)", len(edges))
	for i, e := range edges {
		b.WriteString("\n")
		writeEdge(&b, i, e)
	}
	return textResult(b.String()), nil
}

func (s *Server) handleFaceEdges(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	at, err := xyz(args)
	if err != nil {
		return nil, err
	}
	face, edges, err := s.inspect.FaceEdges(ctx, at)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "✓ Face at %s:\n", triple(at))
	fmt.Fprintf(&b, "  Type: %s\n  Area: %.2f mm²\n  Sample point: %s\n", face.Surface, face.Area, triple(face.Point))
	fmt.Fprintf(&b, "  Edges (%d):", len(edges))
	for i, e := range edges {
		b.WriteString("\n    ")
		writeEdge(&b, i, e)
	}
	return textResult(b.String()), nil
}

func (s *Server) handleVertices(ctx context.Context, _ map[string]any) (*mcp.CallToolResult, error) {
	verts, err := s.inspect.Vertices(ctx)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d vertex(es)", len(verts))
	for i, v := range verts {
		fmt.Fprintf(&b, "\n[%d] %s", i, triple(v))
	}
	return textResult(b.String()), nil
}

func writeFace(b *strings.Builder, i int, f host.FaceInfo) {
	fmt.Fprintf(b, "[%d] %s face | area=%.2f mm²", i, f.Surface, f.Area)
	if f.Normal != nil {
		fmt.Fprintf(b, " | normal=(%.3f, %.3f, %.3f)", f.Normal.X, f.Normal.Y, f.Normal.Z)
	}
	if f.Radius > 0 {
		fmt.Fprintf(b, " | radius=%s mm", mm(f.Radius))
	}
	fmt.Fprintf(b, " | point=%s | edges=%d", triple(f.Point), f.Edges)
}

func writeEdge(b *strings.Builder, i int, e host.EdgeInfo) {
	fmt.Fprintf(b, "[%d] %s", i, e.Curve)
	if !e.Closed() {
		fmt.Fprintf(b, " %s → %s", triple(*e.Start), triple(*e.End))
	}
	fmt.Fprintf(b, " | length=%.2f mm | mid=%s", e.Length, triple(e.Mid))
}

func triple(p domain.Point3) string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", p.X, p.Y, p.Z)
}

type status struct {
	Revision      string `json:"revision"`
	Document      string `json:"document"`
	Sketch        string `json:"sketch,omitempty"`
	Session       string `json:"session"`
	PollInterval  string `json:"dialogPollInterval"`
	DialogTimeout string `json:"dialogTimeout"`
}

func (s *Server) handleStatus(ctx context.Context, _ map[string]any) (*mcp.CallToolResult, error) {
	rev, err := s.host.Revision(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := s.host.ActiveDocument(ctx)
	if err != nil {
		return nil, err
	}
	st := status{
		Revision: rev,
		Document: doc,
		Sketch:   s.sketches.Session().Sketch(),
		Session:  s.sketches.Session().ID(),
	}
	if s.guard != nil {
		o := s.guard.Options()
		st.PollInterval, st.DialogTimeout = o.PollInterval.String(), o.Timeout.String()
	}
	summary := fmt.Sprintf("✓ Connected, revision %s", rev)
	if doc != "" {
		summary += ", active document " + doc
	}
	return summaryResult(summary, st)
}

func (s *Server) handleHistory(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	if s.history == nil {
		return textResult("The call journal is disabled."), nil
	}
	limit, err := getInt(args, "limit", 20)
	if err != nil {
		return nil, err
	}
	entries, err := s.history.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d call(s)", len(entries))
	for _, e := range entries {
		mark := "✓"
		if e.Failed() {
			mark = "✗"
		}
		fmt.Fprintf(&b, "\n%s %s %s (%s)", mark, e.StartedAt.Format(time.DateTime), e.Tool, e.Duration().Round(time.Millisecond))
		if e.Failed() {
			fmt.Fprintf(&b, ": %s", e.Error)
		}
	}
	return textResult(b.String()), nil
}
