package service

import (
	"context"
	"log/slog"

	"cadbridge/internal/domain"
	"cadbridge/internal/host"
)

// ─────────────────────────────────────────────────────────────
// Inspect Service: read-only topology queries on the active part
// ─────────────────────────────────────────────────────────────

// InspectService reports the faces, edges and vertices of the active part so
// callers can find pick points for fillets, holes and sketches on faces.
type InspectService struct {
	host   host.Host
	logger *slog.Logger
}

func NewInspectService(h host.Host, logger *slog.Logger) *InspectService {
	if logger == nil {
		logger = slog.Default()
	}
	return &InspectService{host: h, logger: logger.With("component", "inspect")}
}

func (s *InspectService) BodyInfo(ctx context.Context) (host.BodyInfo, error) {
	return s.host.BodyInfo(ctx)
}

// Faces lists the faces of every solid body. A non-empty filter such as
// CYLINDER keeps only faces of that surface type.
func (s *InspectService) Faces(ctx context.Context, filter string) ([]host.FaceInfo, error) {
	surface, err := host.ParseSurfaceFilter(filter)
	if err != nil {
		return nil, domain.Invalid("", "%v", err)
	}
	faces, err := s.host.Faces(ctx)
	if err != nil {
		return nil, err
	}
	if surface == "" {
		return faces, nil
	}
	out := faces[:0:0]
	for _, f := range faces {
		if f.Surface == surface {
			out = append(out, f)
		}
	}
	s.logger.Debug("faces filtered", "filter", surface, "total", len(faces), "kept", len(out))
	return out, nil
}

// Edges lists the edges of every solid body, optionally filtered by curve
// type.
func (s *InspectService) Edges(ctx context.Context, filter string) ([]host.EdgeInfo, error) {
	curve, err := host.ParseEdgeFilter(filter)
	if err != nil {
		return nil, domain.Invalid("", "%v", err)
	}
	edges, err := s.host.Edges(ctx)
	if err != nil {
		return nil, err
	}
	if curve == "" {
		return edges, nil
	}
	out := edges[:0:0]
	for _, e := range edges {
		if e.Curve == curve {
			out = append(out, e)
		}
	}
	s.logger.Debug("edges filtered", "filter", curve, "total", len(edges), "kept", len(out))
	return out, nil
}

func (s *InspectService) Vertices(ctx context.Context) ([]domain.Point3, error) {
	return s.host.Vertices(ctx)
}

// FaceEdges describes the face at a pick point together with its boundary
// edges.
func (s *InspectService) FaceEdges(ctx context.Context, at domain.Point3) (host.FaceInfo, []host.EdgeInfo, error) {
	if err := finitePoint3("face", at); err != nil {
		return host.FaceInfo{}, nil, err
	}
	return s.host.FaceEdges(ctx, at)
}
