package transform

import (
	"github.com/jobrunner/meridian/internal/domain"
)

// DatumTransform applies a seven parameter Bursa-Wolf shift to geocentric
// coordinates. Forward shifts towards WGS84.
//
// The inverse direction negates the rotation and translation terms instead
// of inverting the matrix. It is accurate for the small rotations found in
// published shifts.
type DatumTransform struct {
	toWGS84 domain.Wgs84ConversionInfo
	v       [7]float64
	inverse bool
}

// NewDatumTransform creates a forward datum shift.
func NewDatumTransform(toWGS84 domain.Wgs84ConversionInfo) *DatumTransform {
	return &DatumTransform{toWGS84: toWGS84, v: toWGS84.AffineTransform()}
}

// Parameters returns the shift parameters.
func (t *DatumTransform) Parameters() domain.Wgs84ConversionInfo { return t.toWGS84 }

// Name implements MathTransform.
func (t *DatumTransform) Name() string { return "Bursa_Wolf" }

// IsInverse implements MathTransform.
func (t *DatumTransform) IsInverse() bool { return t.inverse }

// Invert implements MathTransform.
func (t *DatumTransform) Invert() error {
	t.inverse = !t.inverse
	return nil
}

// Inverse implements MathTransform.
func (t *DatumTransform) Inverse() (MathTransform, error) {
	c := *t
	c.inverse = !c.inverse
	return &c, nil
}

func (t *DatumTransform) copyTransform() MathTransform {
	c := *t
	return &c
}

// Transform implements MathTransform.
func (t *DatumTransform) Transform(p domain.Point) (domain.Point, error) {
	if err := checkPoint(p); err != nil {
		return nil, err
	}
	if t.inverse {
		return t.applyInverted(p), nil
	}
	return t.apply(p), nil
}

// TransformMany implements MathTransform.
func (t *DatumTransform) TransformMany(points []domain.Point) ([]domain.Point, error) {
	return transformMany(t, points)
}

func (t *DatumTransform) apply(p domain.Point) domain.Point {
	v := &t.v
	x, y, z := p[0], p[1], third(p)
	return domain.Point{
		v[0]*x - v[3]*y + v[2]*z + v[4],
		v[3]*x + v[0]*y - v[1]*z + v[5],
		-v[2]*x + v[1]*y + v[0]*z + v[6],
	}
}

func (t *DatumTransform) applyInverted(p domain.Point) domain.Point {
	v := &t.v
	x, y, z := p[0], p[1], third(p)
	return domain.Point{
		v[0]*x + v[3]*y - v[2]*z - v[4],
		-v[3]*x + v[0]*y + v[1]*z - v[5],
		v[2]*x - v[1]*y + v[0]*z - v[6],
	}
}
