package transform

import (
	"github.com/jobrunner/meridian/internal/domain"
)

// GeographicTransform moves longitudes between two geographic systems on the
// same datum that differ in prime meridian. It has no inverse.
type GeographicTransform struct {
	source *domain.GeographicCS
	target *domain.GeographicCS
}

// NewGeographicTransform creates a prime meridian shift from source to target.
func NewGeographicTransform(source, target *domain.GeographicCS) *GeographicTransform {
	return &GeographicTransform{source: source, target: target}
}

// Name implements MathTransform.
func (t *GeographicTransform) Name() string { return "Prime_Meridian_Shift" }

// IsInverse implements MathTransform.
func (t *GeographicTransform) IsInverse() bool { return false }

// Invert implements MathTransform.
func (t *GeographicTransform) Invert() error {
	return &domain.UnsupportedOperationError{Operation: "invert", Message: "geographic transform has no inverse"}
}

// Inverse implements MathTransform.
func (t *GeographicTransform) Inverse() (MathTransform, error) {
	return nil, &domain.UnsupportedOperationError{Operation: "inverse", Message: "geographic transform has no inverse"}
}

func (t *GeographicTransform) copyTransform() MathTransform {
	c := *t
	return &c
}

// Transform implements MathTransform. The longitude is expressed in the
// source angular unit on both sides.
func (t *GeographicTransform) Transform(p domain.Point) (domain.Point, error) {
	if err := checkPoint(p); err != nil {
		return nil, err
	}
	unit := t.source.AngularUnit
	out := p.Clone()
	out[0] = out[0] - t.source.PrimeMeridian.In(unit) + t.target.PrimeMeridian.In(unit)
	return out, nil
}

// TransformMany implements MathTransform.
func (t *GeographicTransform) TransformMany(points []domain.Point) ([]domain.Point, error) {
	return transformMany(t, points)
}
