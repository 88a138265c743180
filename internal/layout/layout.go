// Package layout tracks the last placed shape of a sketch and decides where
// the next shape goes, so that independent tool calls compose into one
// coherent profile without the caller tracking coordinates itself.
package layout

import (
	"math"

	"cadbridge/internal/domain"
	"cadbridge/internal/geometry"
)

// Strategy names the rule that produced an anchor.
type Strategy string

const (
	StrategyAbsolute Strategy = "absolute"
	StrategySpacing  Strategy = "spacing"
	StrategyRelative Strategy = "relative"
	StrategyDefault  Strategy = "default"
)

// Hints are the optional positioning fields of a creation request. A nil
// field was not supplied.
type Hints struct {
	CenterX   *float64 `json:"centerX,omitempty"`
	CenterY   *float64 `json:"centerY,omitempty"`
	Spacing   *float64 `json:"spacing,omitempty"`
	RelativeX *float64 `json:"relativeX,omitempty"`
	RelativeY *float64 `json:"relativeY,omitempty"`
}

func (h Hints) absolute() bool { return h.CenterX != nil && h.CenterY != nil }
func (h Hints) relative() bool { return h.RelativeX != nil || h.RelativeY != nil }

// Placement is a resolved anchor and the strategy that chose it.
type Placement struct {
	Anchor   domain.Point `json:"anchor"`
	Strategy Strategy     `json:"strategy"`
}

// Select resolves hints against last in strict priority order: absolute,
// spacing, relative, default. The first satisfied rule wins and lower-priority
// fields are ignored. A lone centerX or centerY does not satisfy the absolute
// rule. last is nil when nothing has been placed in the sketch yet.
func Select(op string, h Hints, halfExtent float64, last *domain.LastShape) (Placement, error) {
	if err := h.validate(); err != nil {
		return Placement{}, err
	}

	switch {
	case h.absolute():
		return Placement{Anchor: domain.Point{X: *h.CenterX, Y: *h.CenterY}, Strategy: StrategyAbsolute}, nil

	case h.Spacing != nil:
		if last == nil {
			return Placement{}, &domain.NoReferenceShapeError{Op: op + " (spacing)"}
		}
		return Placement{
			Anchor:   domain.Point{X: last.Bounds.Right + *h.Spacing + halfExtent, Y: last.Center.Y},
			Strategy: StrategySpacing,
		}, nil

	case h.relative():
		if last == nil {
			return Placement{}, &domain.NoReferenceShapeError{Op: op + " (relative)"}
		}
		return Placement{
			Anchor:   domain.Point{X: last.Center.X + deref(h.RelativeX), Y: last.Center.Y + deref(h.RelativeY)},
			Strategy: StrategyRelative,
		}, nil
	}
	return Placement{Anchor: domain.Point{}, Strategy: StrategyDefault}, nil
}

// PlaceShape validates s, anchors it through the session and returns the
// positioned shape along with its resolved summary. Nothing is recorded: the
// caller records the summary once the host has drawn the shape.
func PlaceShape(sess *Session, op string, h Hints, s geometry.Placeable) (geometry.Placeable, domain.LastShape, Placement, error) {
	if err := s.Validate(); err != nil {
		return nil, domain.LastShape{}, Placement{}, err
	}
	p, err := sess.Place(op, h, s.HalfExtent())
	if err != nil {
		return nil, domain.LastShape{}, Placement{}, err
	}
	placed := s.WithCenter(p.Anchor)
	ls, err := geometry.Resolve(placed)
	if err != nil {
		return nil, domain.LastShape{}, Placement{}, err
	}
	return placed, ls, p, nil
}

func (h Hints) validate() error {
	fields := []struct {
		name string
		v    *float64
	}{
		{"centerX", h.CenterX}, {"centerY", h.CenterY}, {"spacing", h.Spacing},
		{"relativeX", h.RelativeX}, {"relativeY", h.RelativeY},
	}
	for _, f := range fields {
		if f.v != nil && (math.IsNaN(*f.v) || math.IsInf(*f.v, 0)) {
			return domain.Invalid("", "%s must be a finite number", f.name)
		}
	}
	// Only checked when spacing would actually be used.
	if !h.absolute() && h.Spacing != nil && *h.Spacing < 0 {
		return domain.Invalid("", "spacing must not be negative, got %g", *h.Spacing)
	}
	return nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
