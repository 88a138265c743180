package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	uriLastShape = "cadbridge://sketch/last-shape"
	uriShapes    = "cadbridge://sketch/shapes"
	uriFeatures  = "cadbridge://features"
	uriJournal   = "cadbridge://journal/recent"
)

func (s *Server) registerResources() {
	// ── cadbridge://sketch/last-shape ──────────────────
	s.mcp.AddResource(mcp.NewResource(
		uriLastShape,
		"Last Shape",
		mcp.WithResourceDescription("The most recent shape of the active sketch, or null"),
		mcp.WithMIMEType("application/json"),
	), s.handleLastShapeResource)

	// ── cadbridge://sketch/shapes ──────────────────────
	s.mcp.AddResource(mcp.NewResource(
		uriShapes,
		"Sketch Shapes",
		mcp.WithResourceDescription("Every positioned shape of the active sketch"),
		mcp.WithMIMEType("application/json"),
	), s.handleShapesResource)

	// ── cadbridge://features ───────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		uriFeatures,
		"Feature Tree",
		mcp.WithMIMEType("application/json"),
	), s.handleFeaturesResource)

	// ── cadbridge://journal/recent ─────────────────────
	s.mcp.AddResource(mcp.NewResource(
		uriJournal,
		"Recent Calls",
		mcp.WithMIMEType("application/json"),
	), s.handleJournalResource)
}

func (s *Server) handleLastShapeResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	ls, err := s.sketches.LastShape()
	if err != nil {
		return jsonContents(uriLastShape, nil)
	}
	return jsonContents(uriLastShape, ls)
}

func (s *Server) handleShapesResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonContents(uriShapes, map[string]any{
		"sketch": s.sketches.Session().Sketch(),
		"shapes": s.sketches.Shapes(),
	})
}

func (s *Server) handleFeaturesResource(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	release, err := s.gate.Enter(ctx, "resource:features")
	if err != nil {
		return nil, err
	}
	defer release()
	features, err := s.modeling.Features(ctx)
	if err != nil {
		return nil, err
	}
	return jsonContents(uriFeatures, features)
}

func (s *Server) handleJournalResource(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	if s.history == nil {
		return jsonContents(uriJournal, []any{})
	}
	entries, err := s.history.Recent(ctx, 50)
	if err != nil {
		return nil, err
	}
	return jsonContents(uriJournal, entries)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
