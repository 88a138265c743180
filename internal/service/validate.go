package service

import (
	"math"

	"cadbridge/internal/domain"
)

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func finitePoints(kind domain.ShapeKind, pts ...domain.Point) error {
	for _, p := range pts {
		if !finite(p.X) || !finite(p.Y) {
			return domain.Invalid(kind, "coordinates must be finite numbers")
		}
	}
	return nil
}

func finitePoint3(name string, p domain.Point3) error {
	if !finite(p.X) || !finite(p.Y) || !finite(p.Z) {
		return domain.Invalid("", "%s coordinates must be finite numbers", name)
	}
	return nil
}

func positiveValue(name string, v float64) error {
	if !finite(v) || v <= 0 {
		return domain.Invalid("", "%s must be a positive number, got %g", name, v)
	}
	return nil
}

func pickPoints(name string, pts []domain.Point3) error {
	if len(pts) == 0 {
		return domain.Invalid("", "at least one %s is required", name)
	}
	for _, p := range pts {
		if err := finitePoint3(name, p); err != nil {
			return err
		}
	}
	return nil
}
